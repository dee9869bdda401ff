package main

import "time"

// Record is one incoming message, already materialized by the caller:
// the core never fetches mail itself.
type Record struct {
	MessageID  string    `json:"message_id"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Tags       []string  `json:"tags"`
	ReceivedAt time.Time `json:"received_at"`
}

// Signal is one scoring contribution, kept so every decision is
// explainable and testable.
type Signal struct {
	Kind    string // "label", "regex", "domain", "keyword_subject", ...
	Weight  float64
	Matched string
}

// Decision is the outcome of classifying one record. Err is set by the
// batch loop when a record could not be processed; the loop never aborts
// on a single bad record.
type Decision struct {
	Category string
	Score    float64
	Signals  []Signal
	Err      error
}

// TriageItem is a processed record as persisted in sqlite.
type TriageItem struct {
	ID          int64
	MessageID   string
	Subject     string
	FromAddr    string
	FromDomain  string
	Category    string
	Score       float64
	Status      string
	Priority    string
	TaskForMe   string
	AILabel     string
	AITaskTitle string
	ReceivedAt  time.Time
	CreatedAt   time.Time
}

// Correction is a human override of a previously assigned value, the sole
// learning signal. Field is one of "category", "task_for_me", "priority".
type Correction struct {
	ID          int64
	MessageID   string
	Field       string
	OldValue    string
	NewValue    string
	Subject     string
	FromDomain  string
	CorrectedAt time.Time
}

const (
	FieldCategory  = "category"
	FieldTaskForMe = "task_for_me"
	FieldPriority  = "priority"

	Uncategorized = "Uncategorized"
)

var (
	taskForMeOutcomes = []string{"Yes", "No"}
	priorityLevels    = []string{"Low", "Medium", "High", "Urgent"}
)

func isPriorityLevel(s string) bool {
	for _, p := range priorityLevels {
		if s == p {
			return true
		}
	}
	return false
}

func isTaskForMeValue(s string) bool {
	switch s {
	case "Yes", "No", "Unsure":
		return true
	}
	return false
}
