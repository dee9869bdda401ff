package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

var dayMap = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func PostTriageSummary(api *slack.Client, channelID, summary string) {
	_, _, err := api.PostMessage(channelID, slack.MsgOptionText(
		fmt.Sprintf("Triage run complete: %s", summary), false))
	if err != nil {
		log.Printf("Triage summary post error: %v", err)
	}
}

// StartNudgeScheduler reminds the triage channel once a week to review
// items still marked Unsure.
func StartNudgeScheduler(cfg Config, db *sql.DB, api *slack.Client) {
	if api == nil || cfg.TriageChannelID == "" {
		log.Println("No triage_channel_id configured, nudge disabled")
		return
	}

	weekday, ok := dayMap[strings.ToLower(cfg.NudgeDay)]
	if !ok {
		log.Printf("Invalid nudge_day '%s', using Friday", cfg.NudgeDay)
		weekday = time.Friday
	}
	hour, min, err := parseClock(cfg.NudgeTime)
	if err != nil {
		log.Printf("Invalid nudge_time '%s': %v, using 10:00", cfg.NudgeTime, err)
		hour, min = 10, 0
	}
	log.Printf("Nudge scheduled every %s at %02d:%02d", weekday, hour, min)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := nextWeekday(now, weekday, hour, min)
			wait := next.Sub(now)
			log.Printf("Next nudge at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)
			sendNudge(api, cfg, db)
		}
	}()
}

func nextWeekday(now time.Time, day time.Weekday, hour, min int) time.Time {
	daysUntil := (day - now.Weekday() + 7) % 7
	if daysUntil == 0 {
		target := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
		if now.Before(target) {
			return target
		}
		daysUntil = 7
	}
	return time.Date(now.Year(), now.Month(), now.Day()+int(daysUntil), hour, min, 0, 0, now.Location())
}

func sendNudge(api *slack.Client, cfg Config, db *sql.DB) {
	unsure, err := CountUnsureItems(db)
	if err != nil {
		log.Printf("Nudge count error: %v", err)
		return
	}
	if unsure == 0 {
		log.Println("Nudge skipped: nothing marked Unsure")
		return
	}
	msg := fmt.Sprintf(
		"Hey! %d triaged item(s) are still marked `Unsure`. "+
			"Reviewing them teaches the classifier — corrections apply immediately.", unsure)

	if _, _, err := api.PostMessage(cfg.TriageChannelID, slack.MsgOptionText(msg, false)); err != nil {
		log.Printf("Error sending nudge: %v", err)
	} else {
		log.Printf("Sent nudge (%d unsure items)", unsure)
	}
}
