package main

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "mailtriage-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTriageItemCRUDAndQueries(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	item := TriageItem{
		MessageID:  "msg-001",
		Subject:    "Invoice due",
		FromAddr:   "billing@acme.com",
		FromDomain: "acme.com",
		Category:   "Finance",
		Score:      18,
		Status:     "New",
		Priority:   "Medium",
		TaskForMe:  "Unsure",
		ReceivedAt: base,
	}
	if err := InsertTriageItem(db, item); err != nil {
		t.Fatalf("InsertTriageItem failed: %v", err)
	}

	exists, err := MessageIDExists(db, "msg-001")
	if err != nil {
		t.Fatalf("MessageIDExists failed: %v", err)
	}
	if !exists {
		t.Fatalf("expected msg-001 to exist")
	}
	exists, err = MessageIDExists(db, "msg-999")
	if err != nil {
		t.Fatalf("MessageIDExists failed: %v", err)
	}
	if exists {
		t.Fatalf("expected msg-999 to be absent")
	}

	got, err := GetTriageItemByMessageID(db, "msg-001")
	if err != nil {
		t.Fatalf("GetTriageItemByMessageID failed: %v", err)
	}
	if got.Subject != "Invoice due" || got.Category != "Finance" || got.Score != 18 {
		t.Fatalf("unexpected item: %+v", got)
	}
	if !got.ReceivedAt.Equal(base) {
		t.Fatalf("received_at round trip: got %v, want %v", got.ReceivedAt, base)
	}

	// Duplicate message IDs are rejected by the unique constraint.
	if err := InsertTriageItem(db, item); err == nil {
		t.Fatalf("expected duplicate insert to fail")
	}
}

func TestUpdateTriageItemField(t *testing.T) {
	db := newTestDB(t)
	if err := InsertTriageItem(db, TriageItem{
		MessageID: "msg-001", Subject: "s", ReceivedAt: time.Now(),
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	for field, value := range map[string]string{
		FieldCategory:  "Budget",
		FieldTaskForMe: "Yes",
		FieldPriority:  "High",
	} {
		if err := UpdateTriageItemField(db, "msg-001", field, value); err != nil {
			t.Fatalf("UpdateTriageItemField(%s) failed: %v", field, err)
		}
	}
	got, err := GetTriageItemByMessageID(db, "msg-001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Category != "Budget" || got.TaskForMe != "Yes" || got.Priority != "High" {
		t.Fatalf("updates not applied: %+v", got)
	}

	if err := UpdateTriageItemField(db, "msg-001", "subject", "nope"); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestCountUnsureAndCategoryCounts(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	seed := []TriageItem{
		{MessageID: "a", Subject: "s", Category: "Finance", TaskForMe: "Unsure", ReceivedAt: now},
		{MessageID: "b", Subject: "s", Category: "Finance", TaskForMe: "Yes", ReceivedAt: now},
		{MessageID: "c", Subject: "s", Category: Uncategorized, TaskForMe: "Unsure", ReceivedAt: now},
	}
	for _, it := range seed {
		if err := InsertTriageItem(db, it); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	unsure, err := CountUnsureItems(db)
	if err != nil {
		t.Fatalf("CountUnsureItems failed: %v", err)
	}
	if unsure != 2 {
		t.Fatalf("expected 2 unsure items, got %d", unsure)
	}

	counts, err := CategoryCounts(db)
	if err != nil {
		t.Fatalf("CategoryCounts failed: %v", err)
	}
	if counts["Finance"] != 2 || counts[Uncategorized] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestAssociationUpsertRoundTrip(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	e := AssociationEntry{DimensionKey: "acme.com", Outcome: "Aspire", Count: 1, LastUpdated: now}
	if err := UpsertAssociation(db, "project-history", e); err != nil {
		t.Fatalf("UpsertAssociation failed: %v", err)
	}
	// Second write with a higher count updates in place.
	e.Count = 5
	e.LastUpdated = now.Add(time.Hour)
	if err := UpsertAssociation(db, "project-history", e); err != nil {
		t.Fatalf("UpsertAssociation update failed: %v", err)
	}
	// Same key under a different store name is independent.
	if err := UpsertAssociation(db, "task-learning", AssociationEntry{
		DimensionKey: "acme.com", Outcome: "No", Count: 2, LastUpdated: now,
	}); err != nil {
		t.Fatalf("UpsertAssociation other store failed: %v", err)
	}

	entries, err := LoadAssociations(db, "project-history")
	if err != nil {
		t.Fatalf("LoadAssociations failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Count != 5 || entries[0].Outcome != "Aspire" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}

	other, err := LoadAssociations(db, "task-learning")
	if err != nil {
		t.Fatalf("LoadAssociations failed: %v", err)
	}
	if len(other) != 1 || other[0].Count != 2 {
		t.Fatalf("unexpected task-learning entries: %+v", other)
	}
}

func TestCorrectionsInsertAndQuery(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	seed := []Correction{
		{MessageID: "a", Field: FieldCategory, NewValue: "Budget", Subject: "Plan 2026",
			FromDomain: "acme.com", CorrectedAt: base},
		{MessageID: "b", Field: FieldCategory, NewValue: "Aspire", Subject: "Kickoff",
			FromDomain: "acme.com", CorrectedAt: base.Add(time.Minute)},
		{MessageID: "c", Field: FieldPriority, NewValue: "High", CorrectedAt: base.Add(2 * time.Minute)},
	}
	for _, c := range seed {
		if err := InsertCorrection(db, c); err != nil {
			t.Fatalf("InsertCorrection failed: %v", err)
		}
	}

	total, err := CountCorrections(db)
	if err != nil {
		t.Fatalf("CountCorrections failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 corrections, got %d", total)
	}

	// Category corrections only, newest first, limit respected.
	cats, err := GetCategoryCorrections(db, 10)
	if err != nil {
		t.Fatalf("GetCategoryCorrections failed: %v", err)
	}
	if len(cats) != 2 {
		t.Fatalf("expected 2 category corrections, got %d", len(cats))
	}
	if cats[0].NewValue != "Aspire" || cats[1].NewValue != "Budget" {
		t.Fatalf("expected newest first, got %+v", cats)
	}

	cats, err = GetCategoryCorrections(db, 1)
	if err != nil {
		t.Fatalf("GetCategoryCorrections failed: %v", err)
	}
	if len(cats) != 1 || cats[0].NewValue != "Aspire" {
		t.Fatalf("limit not respected: %+v", cats)
	}
}

func TestArchiveOldItems(t *testing.T) {
	db := newTestDB(t)
	now := time.Now()
	seed := []TriageItem{
		{MessageID: "old-done", Subject: "s", Status: "Done", ReceivedAt: now.AddDate(0, 0, -30)},
		{MessageID: "old-new", Subject: "s", Status: "New", ReceivedAt: now.AddDate(0, 0, -30)},
		{MessageID: "fresh-done", Subject: "s", Status: "Done", ReceivedAt: now},
	}
	for _, it := range seed {
		if err := InsertTriageItem(db, it); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	moved, err := ArchiveOldItems(db, 14, []string{"Done", "Replied"})
	if err != nil {
		t.Fatalf("ArchiveOldItems failed: %v", err)
	}
	if moved != 1 {
		t.Fatalf("expected 1 item archived, got %d", moved)
	}

	// The archived item left the live table but still blocks re-ingestion.
	if _, err := GetTriageItemByMessageID(db, "old-done"); err != sql.ErrNoRows {
		t.Fatalf("expected old-done gone from live table, err=%v", err)
	}
	exists, err := MessageIDExists(db, "old-done")
	if err != nil {
		t.Fatalf("MessageIDExists failed: %v", err)
	}
	if !exists {
		t.Fatalf("archived message must still count as seen")
	}

	// Old-but-open and fresh items stay put.
	for _, id := range []string{"old-new", "fresh-done"} {
		if _, err := GetTriageItemByMessageID(db, id); err != nil {
			t.Fatalf("expected %s to remain live: %v", id, err)
		}
	}

	// Disabled archiving is a no-op.
	moved, err = ArchiveOldItems(db, 0, []string{"Done"})
	if err != nil || moved != 0 {
		t.Fatalf("expected no-op for disabled archiving, moved=%d err=%v", moved, err)
	}
}
