package cmd

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	LogLevel          string `json:"log_level"`
	LogFormat         string `json:"log_format"`
	DatabaseName      string `json:"database_name"`
	DatabaseUser      string `json:"database_user"`
	DatabaseHost      string `json:"database_host"`
	DatabasePassword  string `json:"database_password"`
	StoriesPerPage    int    `json:"stories_per_page"`
	MaxStoriesPerPage int    `json:"max_stories_per_page"`
	Addr              string `json:"addr"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "json",
		DatabaseName:      "storywall",
		DatabaseUser:      "postgres",
		DatabasePassword:  "postgres",
		DatabaseHost:      "127.0.0.1",
		StoriesPerPage:    20,
		MaxStoriesPerPage: 100,
		Addr:              "localhost:8080",
	}
}

// Load merges an optional .env file, an optional config.json and env vars
// into the config, the env vars winning.
func (c *Config) Load() error {
	// missing .env files are fine, envs may come from the environment itself
	_ = godotenv.Load()

	f, err := os.Open("config.json")
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if !os.IsNotExist(err) {
		err = json.NewDecoder(f).Decode(c)
		if err != nil {
			return err
		}
	}

	v := os.Getenv("LOG_LEVEL")
	if v != "" {
		c.LogLevel = v
	}

	v = os.Getenv("LOG_FORMAT")
	if v != "" {
		c.LogFormat = v
	}

	v = os.Getenv("DATABASE_NAME")
	if v != "" {
		c.DatabaseName = v
	}

	v = os.Getenv("DATABASE_USER")
	if v != "" {
		c.DatabaseUser = v
	}

	v = os.Getenv("DATABASE_HOST")
	if v != "" {
		c.DatabaseHost = v
	}

	v = os.Getenv("DATABASE_PASSWORD")
	if v != "" {
		c.DatabasePassword = v
	}

	v = os.Getenv("STORIES_PER_PAGE")
	if v != "" {
		vi, err := strconv.Atoi(v)
		if err != nil {
			return err
		}

		c.StoriesPerPage = vi
	}

	v = os.Getenv("MAX_STORIES_PER_PAGE")
	if v != "" {
		vi, err := strconv.Atoi(v)
		if err != nil {
			return err
		}

		c.MaxStoriesPerPage = vi
	}

	v = os.Getenv("ADDR")
	if v != "" {
		c.Addr = v
	}

	return nil
}

func SetupLogger(cfg *Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("input", cfg.LogLevel).Msg("Cannot parse log level")
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "" || cfg.LogFormat == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
}
