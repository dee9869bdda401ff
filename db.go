package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS triage_items (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id    TEXT NOT NULL UNIQUE,
		subject       TEXT NOT NULL,
		from_addr     TEXT DEFAULT '',
		from_domain   TEXT DEFAULT '',
		category      TEXT DEFAULT '',
		score         REAL DEFAULT 0,
		status        TEXT DEFAULT 'New',
		priority      TEXT DEFAULT 'Medium',
		task_for_me   TEXT DEFAULT 'Unsure',
		ai_label      TEXT DEFAULT '',
		ai_task_title TEXT DEFAULT '',
		received_at   DATETIME NOT NULL,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_triage_received_at ON triage_items(received_at);
	CREATE INDEX IF NOT EXISTS idx_triage_category ON triage_items(category);

	CREATE TABLE IF NOT EXISTS triage_archive (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id    TEXT NOT NULL,
		subject       TEXT NOT NULL,
		from_addr     TEXT DEFAULT '',
		from_domain   TEXT DEFAULT '',
		category      TEXT DEFAULT '',
		score         REAL DEFAULT 0,
		status        TEXT DEFAULT '',
		priority      TEXT DEFAULT '',
		task_for_me   TEXT DEFAULT '',
		ai_label      TEXT DEFAULT '',
		ai_task_title TEXT DEFAULT '',
		received_at   DATETIME NOT NULL,
		created_at    DATETIME,
		archived_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS associations (
		store         TEXT NOT NULL,
		dimension_key TEXT NOT NULL,
		outcome       TEXT NOT NULL,
		count         INTEGER NOT NULL DEFAULT 0,
		last_updated  DATETIME NOT NULL,
		UNIQUE(store, dimension_key, outcome)
	);

	CREATE TABLE IF NOT EXISTS corrections (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id   TEXT DEFAULT '',
		field        TEXT NOT NULL,
		old_value    TEXT DEFAULT '',
		new_value    TEXT DEFAULT '',
		subject      TEXT DEFAULT '',
		from_domain  TEXT DEFAULT '',
		corrected_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_corrections_date ON corrections(corrected_at);
	`
	if _, err = db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

func InsertTriageItem(db *sql.DB, item TriageItem) error {
	_, err := db.Exec(
		`INSERT INTO triage_items (message_id, subject, from_addr, from_domain, category, score,
		   status, priority, task_for_me, ai_label, ai_task_title, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.MessageID, item.Subject, item.FromAddr, item.FromDomain, item.Category, item.Score,
		item.Status, item.Priority, item.TaskForMe, item.AILabel, item.AITaskTitle, item.ReceivedAt,
	)
	return err
}

func MessageIDExists(db *sql.DB, messageID string) (bool, error) {
	var count int
	err := db.QueryRow(
		`SELECT (SELECT COUNT(*) FROM triage_items WHERE message_id = ?)
		      + (SELECT COUNT(*) FROM triage_archive WHERE message_id = ?)`,
		messageID, messageID,
	).Scan(&count)
	return count > 0, err
}

func GetTriageItemByMessageID(db *sql.DB, messageID string) (TriageItem, error) {
	var item TriageItem
	err := db.QueryRow(
		`SELECT id, message_id, subject, from_addr, from_domain, category, score,
		        status, priority, task_for_me, ai_label, ai_task_title, received_at, created_at
		 FROM triage_items WHERE message_id = ?`,
		messageID,
	).Scan(
		&item.ID, &item.MessageID, &item.Subject, &item.FromAddr, &item.FromDomain,
		&item.Category, &item.Score, &item.Status, &item.Priority, &item.TaskForMe,
		&item.AILabel, &item.AITaskTitle, &item.ReceivedAt, &item.CreatedAt,
	)
	return item, err
}

func UpdateTriageItemField(db *sql.DB, messageID, field, value string) error {
	var column string
	switch field {
	case FieldCategory:
		column = "category"
	case FieldTaskForMe:
		column = "task_for_me"
	case FieldPriority:
		column = "priority"
	default:
		return fmt.Errorf("unknown triage field %q", field)
	}
	_, err := db.Exec(`UPDATE triage_items SET `+column+` = ? WHERE message_id = ?`, value, messageID)
	return err
}

func CountUnsureItems(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM triage_items WHERE task_for_me = 'Unsure'`).Scan(&count)
	return count, err
}

// CategoryCounts returns how many triage items landed in each category,
// for the run summary.
func CategoryCounts(db *sql.DB) (map[string]int, error) {
	rows, err := db.Query(`SELECT category, COUNT(*) FROM triage_items GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		out[cat] = n
	}
	return out, rows.Err()
}

func UpsertAssociation(db *sql.DB, store string, e AssociationEntry) error {
	_, err := db.Exec(
		`INSERT INTO associations (store, dimension_key, outcome, count, last_updated)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(store, dimension_key, outcome)
		 DO UPDATE SET count = excluded.count, last_updated = excluded.last_updated`,
		store, e.DimensionKey, e.Outcome, e.Count, e.LastUpdated,
	)
	return err
}

func LoadAssociations(db *sql.DB, store string) ([]AssociationEntry, error) {
	rows, err := db.Query(
		`SELECT dimension_key, outcome, count, last_updated
		 FROM associations WHERE store = ?`,
		store,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssociationEntry
	for rows.Next() {
		var e AssociationEntry
		if err := rows.Scan(&e.DimensionKey, &e.Outcome, &e.Count, &e.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func InsertCorrection(db *sql.DB, c Correction) error {
	when := c.CorrectedAt
	if when.IsZero() {
		when = time.Now()
	}
	_, err := db.Exec(
		`INSERT INTO corrections (message_id, field, old_value, new_value, subject, from_domain, corrected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.MessageID, c.Field, c.OldValue, c.NewValue, c.Subject, c.FromDomain, when,
	)
	return err
}

// GetCategoryCorrections returns past category corrections, newest first,
// capped at limit. Used to pick few-shot examples for the AI prompt.
func GetCategoryCorrections(db *sql.DB, limit int) ([]Correction, error) {
	rows, err := db.Query(
		`SELECT id, message_id, field, old_value, new_value, subject, from_domain, corrected_at
		 FROM corrections WHERE field = ? ORDER BY corrected_at DESC LIMIT ?`,
		FieldCategory, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Correction
	for rows.Next() {
		var c Correction
		if err := rows.Scan(&c.ID, &c.MessageID, &c.Field, &c.OldValue, &c.NewValue,
			&c.Subject, &c.FromDomain, &c.CorrectedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func CountCorrections(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM corrections`).Scan(&count)
	return count, err
}

// ArchiveOldItems moves items in an archivable status whose received date
// is older than the cutoff into triage_archive. Returns how many moved.
func ArchiveOldItems(db *sql.DB, olderThanDays int, statuses []string) (int, error) {
	if olderThanDays <= 0 || len(statuses) == 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	placeholders := strings.TrimRight(strings.Repeat("?,", len(statuses)), ",")
	args := make([]interface{}, 0, len(statuses)+1)
	args = append(args, cutoff)
	for _, s := range statuses {
		args = append(args, s)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO triage_archive (message_id, subject, from_addr, from_domain, category, score,
		   status, priority, task_for_me, ai_label, ai_task_title, received_at, created_at)
		 SELECT message_id, subject, from_addr, from_domain, category, score,
		   status, priority, task_for_me, ai_label, ai_task_title, received_at, created_at
		 FROM triage_items WHERE received_at < ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, err
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(
		`DELETE FROM triage_items WHERE received_at < ? AND status IN (`+placeholders+`)`,
		args...,
	); err != nil {
		return 0, err
	}

	return int(moved), tx.Commit()
}
