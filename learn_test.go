package main

import (
	"testing"
	"time"
)

func newTestLearner() *Learner {
	return NewLearner(nil, testRules())
}

func TestLearnCategoryCorrectionResolvesRawTag(t *testing.T) {
	l := newTestLearner()

	// A raw tag fed back as a correction learns the canonical category,
	// not the tag string.
	if err := l.LearnCategoryCorrection("acme.com", "0 Aspire"); err != nil {
		t.Fatalf("LearnCategoryCorrection failed: %v", err)
	}
	if got := l.ProjectHistory.ScoreContribution("acme.com", "Aspire"); got != 1 {
		t.Fatalf("expected history for resolved category Aspire, got %d", got)
	}
	if got := l.ProjectHistory.ScoreContribution("acme.com", "0 Aspire"); got != 0 {
		t.Fatalf("raw tag string must not be learned, got %d", got)
	}
}

func TestLearnCategoryCorrectionVerbatimFallback(t *testing.T) {
	l := newTestLearner()

	// An unresolvable label is learned verbatim.
	if err := l.LearnCategoryCorrection("acme.com", "Brand New Project"); err != nil {
		t.Fatalf("LearnCategoryCorrection failed: %v", err)
	}
	if got := l.ProjectHistory.ScoreContribution("acme.com", "Brand New Project"); got != 1 {
		t.Fatalf("expected verbatim learning, got %d", got)
	}
}

func TestLearnTaskApplicabilityTransitions(t *testing.T) {
	l := newTestLearner()

	// Only Unsure/empty -> Yes/No transitions carry signal.
	if err := l.LearnTaskApplicability("acme.com", "Invoice due", "Yes", "No"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := l.TaskLearning.ScoreContribution("acme.com", "No"); got != 0 {
		t.Fatalf("Yes->No must not learn, got %d", got)
	}

	if err := l.LearnTaskApplicability("acme.com", "Invoice due", "Unsure", "No"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := l.TaskLearning.ScoreContribution("acme.com", "No"); got != 1 {
		t.Fatalf("expected domain counter, got %d", got)
	}
	// Subject keywords learn alongside the domain.
	if got := l.TaskLearning.ScoreContribution("invoice", "No"); got != 1 {
		t.Fatalf("expected keyword counter, got %d", got)
	}
}

func TestLearnPriorityRejectsUnknownLevel(t *testing.T) {
	l := newTestLearner()
	if err := l.LearnPriority("acme.com", "Anything", "Critical"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries := l.PriorityLearning.Entries(); len(entries) != 0 {
		t.Fatalf("unknown level must not learn, got %v", entries)
	}
}

func TestQueryTaskApplicabilityMajority(t *testing.T) {
	l := newTestLearner()
	for i := 0; i < 3; i++ {
		l.TaskLearning.Increment("acme.com", "No")
	}
	if got := l.QueryTaskApplicability("acme.com", "any subject"); got != "No" {
		t.Fatalf("expected No, got %q", got)
	}
	if got := l.QueryTaskApplicability("unknown.org", "any subject"); got != "" {
		t.Fatalf("expected undecided for unknown domain, got %q", got)
	}
}

func TestQueryPriorityMajority(t *testing.T) {
	l := newTestLearner()
	l.PriorityLearning.Increment("acme.com", "High")
	l.PriorityLearning.Increment("acme.com", "High")
	l.PriorityLearning.Increment("acme.com", "Medium")
	if got := l.QueryPriority("acme.com", "any subject"); got != "High" {
		t.Fatalf("expected High at 2:1, got %q", got)
	}

	l.PriorityLearning.Increment("acme.com", "Medium")
	if got := l.QueryPriority("acme.com", "any subject"); got != "" {
		t.Fatalf("expected undecided at 2:2, got %q", got)
	}
}

func TestIngestCorrectionRouting(t *testing.T) {
	l := newTestLearner()

	events := []Correction{
		{MessageID: "m1", Field: FieldCategory, NewValue: "0 Aspire", FromDomain: "acme.com"},
		{MessageID: "m2", Field: FieldTaskForMe, OldValue: "Unsure", NewValue: "No",
			Subject: "Your shipment has arrived", FromDomain: "dhl.com"},
		{MessageID: "m3", Field: FieldPriority, NewValue: "High",
			Subject: "Production outage", FromDomain: "acme.com"},
		{MessageID: "m4", Field: "status", NewValue: "Done", FromDomain: "acme.com"},
	}
	for _, e := range events {
		if err := l.IngestCorrection(e); err != nil {
			t.Fatalf("IngestCorrection(%s) failed: %v", e.MessageID, err)
		}
	}

	if got := l.ProjectHistory.ScoreContribution("acme.com", "Aspire"); got != 1 {
		t.Fatalf("category event not routed, got %d", got)
	}
	if got := l.TaskLearning.ScoreContribution("dhl.com", "No"); got != 1 {
		t.Fatalf("task event not routed, got %d", got)
	}
	if got := l.TaskLearning.ScoreContribution("parcel", "No"); got != 1 {
		t.Fatalf("pattern keyword not learned, got %d", got)
	}
	if got := l.PriorityLearning.ScoreContribution("acme.com", "High"); got != 1 {
		t.Fatalf("priority event not routed, got %d", got)
	}
}

func TestIngestCorrectionOrderIndependent(t *testing.T) {
	events := []Correction{
		{Field: FieldTaskForMe, OldValue: "Unsure", NewValue: "No", Subject: "Invoice due", FromDomain: "acme.com"},
		{Field: FieldTaskForMe, OldValue: "", NewValue: "No", Subject: "Invoice reminder", FromDomain: "acme.com"},
		{Field: FieldTaskForMe, OldValue: "Unsure", NewValue: "Yes", Subject: "Contract question", FromDomain: "legal.example"},
	}

	forward := newTestLearner()
	for _, e := range events {
		if err := forward.IngestCorrection(e); err != nil {
			t.Fatalf("forward ingest failed: %v", err)
		}
	}
	backward := newTestLearner()
	for i := len(events) - 1; i >= 0; i-- {
		if err := backward.IngestCorrection(events[i]); err != nil {
			t.Fatalf("backward ingest failed: %v", err)
		}
	}

	fw := forward.TaskLearning.Entries()
	bw := backward.TaskLearning.Entries()
	if len(fw) != len(bw) {
		t.Fatalf("entry counts differ: %d vs %d", len(fw), len(bw))
	}
	for i := range fw {
		if fw[i].DimensionKey != bw[i].DimensionKey || fw[i].Outcome != bw[i].Outcome || fw[i].Count != bw[i].Count {
			t.Fatalf("entry %d differs: %+v vs %+v", i, fw[i], bw[i])
		}
	}
}

func TestLearnerLoadFromDB(t *testing.T) {
	db := newTestDB(t)
	l := NewLearner(db, testRules())

	if err := l.LearnCategoryCorrection("acme.com", "0 Aspire"); err != nil {
		t.Fatalf("learn failed: %v", err)
	}
	if err := l.LearnTaskApplicability("acme.com", "Invoice due", "Unsure", "No"); err != nil {
		t.Fatalf("learn failed: %v", err)
	}

	// A fresh learner over the same db sees the persisted counters.
	reloaded := NewLearner(db, testRules())
	if err := reloaded.LoadFromDB(); err != nil {
		t.Fatalf("LoadFromDB failed: %v", err)
	}
	if got := reloaded.ProjectHistory.ScoreContribution("acme.com", "Aspire"); got != 1 {
		t.Fatalf("expected reloaded history, got %d", got)
	}
	if got := reloaded.TaskLearning.ScoreContribution("invoice", "No"); got != 1 {
		t.Fatalf("expected reloaded task learning, got %d", got)
	}

	// Counts keep accumulating after reload.
	if err := reloaded.LearnCategoryCorrection("acme.com", "0 Aspire"); err != nil {
		t.Fatalf("learn after reload failed: %v", err)
	}
	entries, err := LoadAssociations(db, "project-history")
	if err != nil {
		t.Fatalf("LoadAssociations failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Count != 2 {
		t.Fatalf("expected persisted count 2, got %+v", entries)
	}
	if entries[0].LastUpdated.After(time.Now().Add(time.Minute)) {
		t.Fatalf("implausible last_updated: %v", entries[0].LastUpdated)
	}
}
