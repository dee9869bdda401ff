package main

import (
	"log"

	"github.com/slack-go/slack"
)

func main() {
	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	rules, err := LoadRules(cfg.RulesPath)
	if err != nil {
		log.Fatalf("Failed to load rules: %v", err)
	}

	learner := NewLearner(db, rules)
	if err := learner.LoadFromDB(); err != nil {
		log.Fatalf("Failed to load learning stores: %v", err)
	}

	pastCorrections, err := GetCategoryCorrections(db, 200)
	if err != nil {
		log.Fatalf("Failed to load corrections: %v", err)
	}
	suggester := NewSuggester(cfg, pastCorrections)

	var api *slack.Client
	if cfg.SlackBotToken != "" {
		opts := []slack.Option{}
		if cfg.SlackAppToken != "" {
			opts = append(opts, slack.OptionAppLevelToken(cfg.SlackAppToken))
		}
		api = slack.New(cfg.SlackBotToken, opts...)
	}

	source := NewSpoolDirSource(cfg.SpoolDir)

	log.Println("Starting mail triage...")
	StartTriageScheduler(cfg, db, rules, learner, suggester, source, api)
	StartNudgeScheduler(cfg, db, api)

	// The interactive command surface needs Socket Mode; without an app
	// token the daemon still runs scheduled triage.
	if api != nil && cfg.SlackAppToken != "" {
		if err := StartSlackBot(cfg, db, rules, learner, suggester, source, api); err != nil {
			log.Fatalf("Slack bot error: %v", err)
		}
		return
	}
	select {}
}
