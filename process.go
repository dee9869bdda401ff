package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// RecordSource delivers the records of one triage run. Fetching mail is an
// external concern; the pipeline only sees already-materialized values.
type RecordSource interface {
	FetchRecords(ctx context.Context) ([]Record, error)
}

// TriageResult tracks separate counters for each outcome of a run.
type TriageResult struct {
	TotalFetched   int
	Processed      int
	AlreadyTracked int
	Uncategorized  int
	Errors         []string
}

// ProcessRecords runs the triage pipeline over a batch: dedup, classify,
// bump history for confident decisions, decide task applicability and
// priority, persist. Records are processed oldest first and strictly
// sequentially, so a correction learned earlier in the batch is visible to
// later records. A failing record is reported and skipped, never fatal to
// the rest of the batch.
func ProcessRecords(ctx context.Context, cfg Config, db *sql.DB, rules *RulesFile,
	learner *Learner, suggester *Suggester, records []Record) TriageResult {

	result := TriageResult{TotalFetched: len(records)}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ReceivedAt.Before(sorted[j].ReceivedAt)
	})

	for _, rec := range sorted {
		exists, err := MessageIDExists(db, rec.MessageID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: dedup check: %v", rec.MessageID, err))
			continue
		}
		if exists {
			result.AlreadyTracked++
			continue
		}

		decision, item := triageOne(ctx, cfg, rules, learner, suggester, rec)
		if decision.Err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.MessageID, decision.Err))
			continue
		}
		if item.Category == Uncategorized {
			result.Uncategorized++
		}
		if err := InsertTriageItem(db, item); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: insert: %v", rec.MessageID, err))
			continue
		}
		result.Processed++
	}

	return result
}

// triageOne classifies a single record and fills the persisted row.
func triageOne(ctx context.Context, cfg Config, rules *RulesFile,
	learner *Learner, suggester *Suggester, rec Record) (Decision, TriageItem) {

	if cfg.MaxBodyChars > 0 && len(rec.Body) > cfg.MaxBodyChars {
		rec.Body = rec.Body[:cfg.MaxBodyChars]
	}
	fromDomain := emailDomain(rec.From)

	var history *AssociationStore
	if learner != nil {
		history = learner.ProjectHistory
	}
	decision := ClassifyRecord(rec, rules, cfg.Scoring, history)
	log.Printf("triage classify msg=%s category=%s score=%.0f signals=%d",
		rec.MessageID, decision.Category, decision.Score, len(decision.Signals))

	// Optional AI label suggestion; it can override the rule decision but
	// only with a label from the known candidate set.
	aiLabel := ""
	if suggester != nil {
		label, err := suggester.SuggestLabel(ctx, rec.Subject, rec.Body, candidateCategories(rules, history))
		if err != nil {
			log.Printf("triage ai label msg=%s error (non-fatal): %v", rec.MessageID, err)
		} else {
			aiLabel = label
		}
	}
	finalCategory := decision.Category
	if aiLabel != "" {
		finalCategory = aiLabel
	}

	// A confident decision feeds project history so the sender's domain
	// converges on its category over time.
	if learner != nil && fromDomain != "" && finalCategory != Uncategorized {
		if err := learner.bump(learner.ProjectHistory, fromDomain, finalCategory); err != nil {
			decision.Err = fmt.Errorf("bump history: %w", err)
			return decision, TriageItem{}
		}
	}

	taskForMe, aiTaskTitle, aiPriority := decideTask(ctx, learner, suggester, rec, fromDomain)
	priority := ComputePriority(cfg.Priority, learner, rec, aiPriority)

	status := "Open"
	if sameDay(rec.ReceivedAt, time.Now(), cfg.Location) {
		status = "New"
	}

	return decision, TriageItem{
		MessageID:   rec.MessageID,
		Subject:     strings.TrimSpace(rec.Subject),
		FromAddr:    rec.From,
		FromDomain:  fromDomain,
		Category:    finalCategory,
		Score:       decision.Score,
		Status:      status,
		Priority:    priority,
		TaskForMe:   taskForMe,
		AILabel:     aiLabel,
		AITaskTitle: aiTaskTitle,
		ReceivedAt:  rec.ReceivedAt,
	}
}

// decideTask combines learned task-applicability patterns with the AI
// analysis: a learned "No" skips the AI call entirely, and a learned "Yes"
// upgrades an AI "Unsure".
func decideTask(ctx context.Context, learner *Learner, suggester *Suggester,
	rec Record, fromDomain string) (taskForMe, aiTaskTitle, aiPriority string) {

	learned := ""
	if learner != nil {
		learned = learner.QueryTaskApplicability(fromDomain, rec.Subject)
	}
	if learned == "No" {
		log.Printf("triage task msg=%s learned=No, skipping ai", rec.MessageID)
		return "No", "", ""
	}

	taskForMe = "Unsure"
	if suggester != nil {
		analysis, err := suggester.Actionability(ctx, rec.Subject, rec.Body, nil)
		if err != nil {
			log.Printf("triage task msg=%s ai error (non-fatal): %v", rec.MessageID, err)
		} else {
			taskForMe = analysis.IsTaskForMe
			if len(analysis.Tasks) > 0 {
				aiTaskTitle = analysis.Tasks[0].Title
				aiPriority = analysis.Tasks[0].Priority
			}
		}
	}
	if taskForMe == "Unsure" && learned == "Yes" {
		taskForMe = "Yes"
	}
	return taskForMe, aiTaskTitle, aiPriority
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// FormatTriageSummary returns a human-readable summary of a run.
func FormatTriageSummary(result TriageResult, archived int) string {
	if len(result.Errors) > 0 && result.TotalFetched == 0 {
		return fmt.Sprintf("Triage run failed:\n%s", strings.Join(result.Errors, "\n"))
	}

	var parts []string
	parts = append(parts, fmt.Sprintf("%d new", result.Processed))
	if result.Uncategorized > 0 {
		parts = append(parts, fmt.Sprintf("%d uncategorized", result.Uncategorized))
	}
	if result.AlreadyTracked > 0 {
		parts = append(parts, fmt.Sprintf("%d already tracked", result.AlreadyTracked))
	}
	if archived > 0 {
		parts = append(parts, fmt.Sprintf("%d archived", archived))
	}
	msg := fmt.Sprintf("Processed %d messages: %s", result.TotalFetched, strings.Join(parts, ", "))
	if len(result.Errors) > 0 {
		msg += fmt.Sprintf("\nWarnings:\n%s", strings.Join(result.Errors, "\n"))
	}
	return msg
}

// RunTriage is one complete scheduled run: fetch, process, archive.
func RunTriage(ctx context.Context, cfg Config, db *sql.DB, rules *RulesFile,
	learner *Learner, suggester *Suggester, source RecordSource) (TriageResult, int, error) {

	records, err := source.FetchRecords(ctx)
	if err != nil {
		return TriageResult{}, 0, fmt.Errorf("fetch records: %w", err)
	}
	result := ProcessRecords(ctx, cfg, db, rules, learner, suggester, records)

	archived, err := ArchiveOldItems(db, cfg.ArchiveOlderThan, cfg.ArchiveStatuses)
	if err != nil {
		log.Printf("triage archive error (non-fatal): %v", err)
		archived = 0
	}
	return result, archived, nil
}
