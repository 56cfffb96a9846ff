package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/storywall/storywall"
	"github.com/storywall/storywall/cmd"
	"github.com/storywall/storywall/metrics"
	"github.com/storywall/storywall/pgstore"
)

func main() {
	cfg := cmd.DefaultConfig()
	err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot read configuration")
	}
	logger := cmd.SetupLogger(cfg)

	// setup database
	pgcfg := fmt.Sprintf(
		"user=%v dbname=%v sslmode=disable password=%v host=%v",
		cfg.DatabaseUser,
		cfg.DatabaseName,
		cfg.DatabasePassword,
		cfg.DatabaseHost,
	)
	pg := pgstore.New(pgcfg)

	collector := metrics.NewCollector(prometheus.NewRegistry())

	// fire the server
	s := storywall.NewServer(&storywall.ServerConfig{
		Addr:              cfg.Addr,
		StoriesPerPage:    cfg.StoriesPerPage,
		MaxStoriesPerPage: cfg.MaxStoriesPerPage,
	}, logger, pg, collector)

	err = s.Prepare()
	if err != nil {
		logger.Fatal().Err(err).Msg("Cannot prepare server")
	}

	logger.Info().Str("addr", cfg.Addr).Msg("Listening")
	err = s.Start()
	if err != nil {
		logger.Fatal().Err(err).Msg("Cannot start server")
	}
}
