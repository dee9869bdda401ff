package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// Learner owns the three association stores and routes correction events
// into them. Stores are injected, never global, so runs and tests get
// isolated instances. db may be nil for in-memory operation; when a db is
// present, a failed persistence write is returned as an error, never
// swallowed.
type Learner struct {
	db    *sql.DB
	rules *RulesFile

	ProjectHistory   *AssociationStore
	TaskLearning     *AssociationStore
	PriorityLearning *AssociationStore
}

func NewLearner(db *sql.DB, rules *RulesFile) *Learner {
	return &Learner{
		db:               db,
		rules:            rules,
		ProjectHistory:   NewAssociationStore("project-history"),
		TaskLearning:     NewAssociationStore("task-learning"),
		PriorityLearning: NewAssociationStore("priority-learning"),
	}
}

// LoadFromDB rehydrates all three stores from the associations table.
func (l *Learner) LoadFromDB() error {
	if l.db == nil {
		return nil
	}
	for _, store := range []*AssociationStore{l.ProjectHistory, l.TaskLearning, l.PriorityLearning} {
		entries, err := LoadAssociations(l.db, store.Name)
		if err != nil {
			return fmt.Errorf("load %s: %w", store.Name, err)
		}
		for _, e := range entries {
			store.Seed(e)
		}
	}
	return nil
}

func (l *Learner) bump(store *AssociationStore, dimensionKey, outcome string) error {
	if strings.TrimSpace(dimensionKey) == "" || strings.TrimSpace(outcome) == "" {
		return nil
	}
	entry := store.Increment(dimensionKey, outcome)
	if l.db == nil {
		return nil
	}
	if err := UpsertAssociation(l.db, store.Name, entry); err != nil {
		return fmt.Errorf("persist %s %s::%s: %w", store.Name, entry.DimensionKey, entry.Outcome, err)
	}
	return nil
}

// IngestCorrection consumes one correction event and updates the relevant
// store(s). Events for fields or transitions that carry no learning signal
// are dropped without error. Increments commute, so replaying a set of
// events in any order converges on the same counts.
func (l *Learner) IngestCorrection(c Correction) error {
	if l.db != nil {
		if err := InsertCorrection(l.db, c); err != nil {
			return fmt.Errorf("record correction: %w", err)
		}
	}
	switch c.Field {
	case FieldCategory:
		return l.LearnCategoryCorrection(c.FromDomain, c.NewValue)
	case FieldTaskForMe:
		return l.LearnTaskApplicability(c.FromDomain, c.Subject, c.OldValue, c.NewValue)
	case FieldPriority:
		return l.LearnPriority(c.FromDomain, c.Subject, c.NewValue)
	default:
		log.Printf("learn ignoring correction field=%q msg=%s", c.Field, c.MessageID)
		return nil
	}
}

// LearnCategoryCorrection bumps project history for a user-chosen label.
// The label is first resolved through the tag canonicalizer (so "0 Aspire"
// learns as "Aspire"); an unresolvable label is learned verbatim, since the
// category vocabulary is open.
func (l *Learner) LearnCategoryCorrection(domain, newLabel string) error {
	newLabel = strings.TrimSpace(newLabel)
	if domain == "" || newLabel == "" {
		return nil
	}
	category := canonicalizeTags([]string{newLabel}, l.rules)
	if category == "" || category == Uncategorized {
		category = newLabel
	}
	log.Printf("learn category domain=%s label=%q -> %s", domain, newLabel, category)
	return l.bump(l.ProjectHistory, domain, category)
}

// LearnTaskApplicability learns from an Unsure/empty -> Yes/No transition:
// the sender domain and every extracted subject keyword each get a counter
// bump for the decided outcome.
func (l *Learner) LearnTaskApplicability(domain, subject, oldValue, newValue string) error {
	if oldValue != "" && oldValue != "Unsure" {
		return nil
	}
	if newValue != "Yes" && newValue != "No" {
		return nil
	}
	if err := l.bump(l.TaskLearning, domain, newValue); err != nil {
		return err
	}
	keywords := extractKeywords(subject)
	for _, k := range keywords {
		if err := l.bump(l.TaskLearning, k, newValue); err != nil {
			return err
		}
	}
	log.Printf("learn task domain=%s decision=%s keywords=%s", domain, newValue, strings.Join(keywords, ","))
	return nil
}

// LearnPriority learns a corrected priority level against the sender
// domain and subject keywords.
func (l *Learner) LearnPriority(domain, subject, newValue string) error {
	if !isPriorityLevel(newValue) {
		return nil
	}
	if err := l.bump(l.PriorityLearning, domain, newValue); err != nil {
		return err
	}
	keywords := extractKeywords(subject)
	for _, k := range keywords {
		if err := l.bump(l.PriorityLearning, k, newValue); err != nil {
			return err
		}
	}
	log.Printf("learn priority domain=%s level=%s keywords=%s", domain, newValue, strings.Join(keywords, ","))
	return nil
}

// QueryTaskApplicability returns "Yes", "No" or "" (undecided) by majority
// over the domain and subject-keyword counters.
func (l *Learner) QueryTaskApplicability(domain, subject string) string {
	dims := append([]string{domain}, extractKeywords(subject)...)
	return l.TaskLearning.MajorityDecision(dims, taskForMeOutcomes)
}

// QueryPriority returns a learned priority level or "" (undecided).
func (l *Learner) QueryPriority(domain, subject string) string {
	dims := append([]string{domain}, extractKeywords(subject)...)
	return l.PriorityLearning.MajorityDecision(dims, priorityLevels)
}
