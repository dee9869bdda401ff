package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// StartSlackBot runs the interactive command surface over Socket Mode.
// Corrections made here are the classifier's only learning signal, so the
// handlers write both the item row and the learning stores.
func StartSlackBot(cfg Config, db *sql.DB, rules *RulesFile,
	learner *Learner, suggester *Suggester, source RecordSource, api *slack.Client) error {

	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go handleSlashCommand(api, db, cfg, rules, learner, suggester, source, cmd)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.Run()
}

func handleSlashCommand(api *slack.Client, db *sql.DB, cfg Config, rules *RulesFile,
	learner *Learner, suggester *Suggester, source RecordSource, cmd slack.SlashCommand) {

	switch cmd.Command {
	case "/triage":
		handleTriageRun(api, db, cfg, rules, learner, suggester, source, cmd)
	case "/correct":
		handleCorrect(api, db, learner, cmd)
	case "/triage-stats":
		handleTriageStats(api, db, cmd)
	case "/triage-help":
		handleTriageHelp(api, cmd)
	}
}

// handleTriageRun triggers a triage run outside the schedule.
func handleTriageRun(api *slack.Client, db *sql.DB, cfg Config, rules *RulesFile,
	learner *Learner, suggester *Suggester, source RecordSource, cmd slack.SlashCommand) {

	postEphemeral(api, cmd, "Triage run started...")
	result, archived, err := RunTriage(context.Background(), cfg, db, rules, learner, suggester, source)
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Triage run failed: %v", err))
		return
	}
	postEphemeral(api, cmd, FormatTriageSummary(result, archived))
}

// handleCorrect applies a human override to a triaged item:
// /correct <message-id> <category|task_for_me|priority> <new value>
// The override updates the stored row and feeds the learning stores.
func handleCorrect(api *slack.Client, db *sql.DB, learner *Learner, cmd slack.SlashCommand) {
	parts := strings.Fields(cmd.Text)
	if len(parts) < 3 {
		postEphemeral(api, cmd, "Usage: /correct <message-id> <category|task_for_me|priority> <new value>")
		return
	}
	messageID, field := parts[0], parts[1]
	newValue := strings.Join(parts[2:], " ")

	item, err := GetTriageItemByMessageID(db, messageID)
	if err == sql.ErrNoRows {
		postEphemeral(api, cmd, fmt.Sprintf("No triaged item with message id `%s`.", messageID))
		return
	}
	if err != nil {
		log.Printf("correct lookup msg=%s: %v", messageID, err)
		postEphemeral(api, cmd, "Error looking up the item.")
		return
	}

	var oldValue string
	switch field {
	case FieldCategory:
		oldValue = item.Category
	case FieldTaskForMe:
		oldValue = item.TaskForMe
	case FieldPriority:
		oldValue = item.Priority
	default:
		postEphemeral(api, cmd, fmt.Sprintf("Unknown field `%s`; use category, task_for_me or priority.", field))
		return
	}
	if err := validateCorrectionValue(field, newValue); err != nil {
		postEphemeral(api, cmd, err.Error())
		return
	}

	if err := UpdateTriageItemField(db, messageID, field, newValue); err != nil {
		log.Printf("correct update msg=%s field=%s: %v", messageID, field, err)
		postEphemeral(api, cmd, "Error updating the item.")
		return
	}
	if err := learner.IngestCorrection(Correction{
		MessageID:  messageID,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
		Subject:    item.Subject,
		FromDomain: item.FromDomain,
	}); err != nil {
		log.Printf("correct learn msg=%s field=%s: %v", messageID, field, err)
		postEphemeral(api, cmd, "Item updated, but recording the correction failed.")
		return
	}
	postEphemeral(api, cmd, fmt.Sprintf("Corrected %s: `%s` -> `%s`. The classifier learned from this.",
		field, oldValue, newValue))
}

// validateCorrectionValue rejects values outside a field's vocabulary, so
// the stored row never diverges from what the learner can consume.
// Category stays free-form: its vocabulary is open.
func validateCorrectionValue(field, value string) error {
	switch field {
	case FieldTaskForMe:
		if !isTaskForMeValue(value) {
			return fmt.Errorf("task_for_me must be Yes, No or Unsure.")
		}
	case FieldPriority:
		if !isPriorityLevel(value) {
			return fmt.Errorf("Priority must be one of: %s.", strings.Join(priorityLevels, ", "))
		}
	}
	return nil
}

// handleTriageStats posts category distribution and learning progress.
func handleTriageStats(api *slack.Client, db *sql.DB, cmd slack.SlashCommand) {
	counts, err := CategoryCounts(db)
	if err != nil {
		log.Printf("stats categories: %v", err)
		postEphemeral(api, cmd, "Error reading category stats.")
		return
	}
	corrections, err := CountCorrections(db)
	if err != nil {
		log.Printf("stats corrections: %v", err)
		postEphemeral(api, cmd, "Error reading correction stats.")
		return
	}
	unsure, err := CountUnsureItems(db)
	if err != nil {
		log.Printf("stats unsure: %v", err)
		postEphemeral(api, cmd, "Error reading unsure stats.")
		return
	}

	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("*Triage stats*\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s: %d\n", c, counts[c])
	}
	fmt.Fprintf(&b, "Corrections recorded: %d\nItems still Unsure: %d\n", corrections, unsure)
	postEphemeral(api, cmd, b.String())
}

func handleTriageHelp(api *slack.Client, cmd slack.SlashCommand) {
	postEphemeral(api, cmd, strings.Join([]string{
		"*Mail triage commands*",
		"`/triage` - run triage now",
		"`/correct <message-id> <field> <value>` - fix a category, task_for_me or priority",
		"`/triage-stats` - category distribution and learning progress",
	}, "\n"))
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	if _, err := api.PostEphemeral(cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("Error posting ephemeral: %v", err)
	}
}
