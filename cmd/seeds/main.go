package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/storywall/storywall"
	"github.com/storywall/storywall/cmd"
	"github.com/storywall/storywall/pgstore"
)

type seed struct {
	title    string
	content  string
	location string
	votes    int
}

var seeds = []seed{
	{
		title:    "Seven stamps for one permit",
		content:  "Waited 6 hours for a permit that needed 7 stamps from 7 different desks, each desk on a different floor. The last desk closed for lunch right as I reached it.",
		location: "Ankara",
		votes:    12,
	},
	{
		title:    "",
		content:  "The clerk told me my form was the old version. The new version was identical except for the year printed in the footer. I had to come back the next day to get it.",
		location: "Izmir",
		votes:    7,
	},
	{
		title:    "Lost in translation",
		content:  "Brought a certified translation of my birth certificate. They wanted a translation of the translator's certification too.",
		location: "",
		votes:    21,
	},
	{
		title:    "The queue ticket machine",
		content:  "The machine that prints queue tickets had its own queue. No machine prints tickets for that one.",
		location: "Istanbul",
		votes:    34,
	},
	{
		title:    "",
		content:  "Showed up at 8am sharp with every document listed on the website. Turns out the website lists the documents for a different office with the same name in another district.",
		location: "Bursa",
		votes:    3,
	},
}

func main() {
	cfg := cmd.DefaultConfig()
	err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot read configuration")
	}
	logger := cmd.SetupLogger(cfg)
	logger.Info().Msg("Seeding database")

	// setup database
	pgcfg := fmt.Sprintf(
		"user=%v dbname=%v sslmode=disable password=%v host=%v",
		cfg.DatabaseUser,
		cfg.DatabaseName,
		cfg.DatabasePassword,
		cfg.DatabaseHost,
	)
	pg := pgstore.New(pgcfg)
	err = pg.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("Can't connect to database")
	}

	// run every seed through the same validation path real submissions take,
	// then bump the counters to make the "top" sort interesting
	for _, sd := range seeds {
		story, err := storywall.ValidateSubmission(storywall.StorySubmission{
			Title:    sd.title,
			Content:  sd.content,
			Location: sd.location,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Seed rejected by validation")
		}

		err = pg.InsertStory(story)
		if err != nil {
			log.Fatal().Err(err).Msg("Can't create story")
		}

		for i := 0; i < sd.votes; i++ {
			_, err := pg.IncrementStoryVotes(story.ID)
			if err != nil {
				log.Fatal().Err(err).Msg("Can't add seed vote")
			}
		}
	}

	logger.Info().Int("stories", len(seeds)).Msg("Done")
}
