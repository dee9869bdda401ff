package main

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// StartTriageScheduler runs the triage pipeline on a standard 5-field cron
// schedule (minute hour day-of-month month day-of-week) and posts a run
// summary to the triage channel.
// Examples: "*/30 * * * *" (every 30 min), "0 7-19 * * 1-5" (hourly, weekdays).
func StartTriageScheduler(cfg Config, db *sql.DB, rules *RulesFile,
	learner *Learner, suggester *Suggester, source RecordSource, api *slack.Client) {

	schedule := strings.TrimSpace(cfg.TriageSchedule)
	if schedule == "" {
		log.Println("Scheduled triage disabled (triage_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid triage_schedule '%s': %v — scheduled triage disabled", schedule, err)
		return
	}
	log.Printf("Triage scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next triage run at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			result, archived, runErr := RunTriage(context.Background(), cfg, db, rules, learner, suggester, source)
			if runErr != nil {
				log.Printf("Triage run error: %v", runErr)
				continue
			}
			summary := FormatTriageSummary(result, archived)
			log.Printf("Triage run complete: %s", summary)

			if api != nil && cfg.TriageChannelID != "" {
				PostTriageSummary(api, cfg.TriageChannelID, summary)
			}
		}
	}()
}
