package marker

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// querier abstracts *sql.DB and *sql.Tx for shared query logic.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

// Store provides access to marker records.
type Store struct {
	db *sql.DB
}

// NewStore creates a new marker store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Begin starts a transaction.
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps a database transaction with the same methods as Store.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// mapSQLiteError converts SQLite errors to package error types.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	// modernc.org/sqlite wraps errors; check the message for constraint
	// violations.
	errStr := err.Error()
	if strings.Contains(errStr, "FOREIGN KEY constraint failed") ||
		strings.Contains(errStr, "CHECK constraint failed") {
		return ErrConstraint
	}
	return err
}

const recordColumns = `item_id, kind, title, show_title, parent_id, grandparent_id,
	theme_start, theme_end, heuristic_end, credits_start, credits_end, has_recap,
	correct_theme_start, correct_theme_end, correct_heuristic_end,
	correct_credits_start, correct_credits_end,
	duration_ms, location, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	r := &Record{}
	err := row.Scan(&r.ItemID, &r.Kind, &r.Title, &r.ShowTitle, &r.ParentID, &r.GrandparentID,
		&r.ThemeStart, &r.ThemeEnd, &r.HeuristicEnd, &r.CreditsStart, &r.CreditsEnd, &r.HasRecap,
		&r.CorrectThemeStart, &r.CorrectThemeEnd, &r.CorrectHeuristicEnd,
		&r.CorrectCreditsStart, &r.CorrectCreditsEnd,
		&r.DurationMS, &r.Location, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func getRecord(q querier, itemID int64) (*Record, error) {
	r, err := scanRecord(q.QueryRow(
		`SELECT `+recordColumns+` FROM markers WHERE item_id = ?`, itemID))
	if err != nil {
		return nil, fmt.Errorf("get marker %d: %w", itemID, mapSQLiteError(err))
	}
	return r, nil
}

// Get retrieves the record for an item.
// Returns ErrNotFound if no record exists.
func (s *Store) Get(itemID int64) (*Record, error) { return getRecord(s.db, itemID) }

// Get retrieves the record for an item within a transaction.
func (t *Tx) Get(itemID int64) (*Record, error) { return getRecord(t.tx, itemID) }

func upsertRecord(q querier, r *Record) error {
	now := time.Now()
	// Corrected fields are only written when no value exists yet. COALESCE
	// with the stored column keeps a correction intact even if the caller
	// passes nil for it on re-analysis.
	_, err := q.Exec(`
		INSERT INTO markers (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			show_title = excluded.show_title,
			parent_id = excluded.parent_id,
			grandparent_id = excluded.grandparent_id,
			theme_start = excluded.theme_start,
			theme_end = excluded.theme_end,
			heuristic_end = excluded.heuristic_end,
			credits_start = excluded.credits_start,
			credits_end = excluded.credits_end,
			has_recap = excluded.has_recap,
			correct_theme_start = COALESCE(markers.correct_theme_start, excluded.correct_theme_start),
			correct_theme_end = COALESCE(markers.correct_theme_end, excluded.correct_theme_end),
			correct_heuristic_end = COALESCE(markers.correct_heuristic_end, excluded.correct_heuristic_end),
			correct_credits_start = COALESCE(markers.correct_credits_start, excluded.correct_credits_start),
			correct_credits_end = COALESCE(markers.correct_credits_end, excluded.correct_credits_end),
			duration_ms = excluded.duration_ms,
			location = excluded.location,
			updated_at = excluded.updated_at`,
		r.ItemID, r.Kind, r.Title, r.ShowTitle, r.ParentID, r.GrandparentID,
		r.ThemeStart, r.ThemeEnd, r.HeuristicEnd, r.CreditsStart, r.CreditsEnd, r.HasRecap,
		r.CorrectThemeStart, r.CorrectThemeEnd, r.CorrectHeuristicEnd,
		r.CorrectCreditsStart, r.CorrectCreditsEnd,
		r.DurationMS, r.Location, now,
	)
	if err != nil {
		return fmt.Errorf("upsert marker %d: %w", r.ItemID, mapSQLiteError(err))
	}
	r.UpdatedAt = now
	return nil
}

// Upsert inserts or updates the record for an item. Exactly one record
// exists per item id. Non-nil corrected fields already in the database
// are never overwritten.
func (s *Store) Upsert(r *Record) error { return upsertRecord(s.db, r) }

// Upsert inserts or updates a record within a transaction.
func (t *Tx) Upsert(r *Record) error { return upsertRecord(t.tx, r) }

// CorrectedField names a human-correctable offset column.
type CorrectedField string

const (
	FieldThemeStart   CorrectedField = "correct_theme_start"
	FieldThemeEnd     CorrectedField = "correct_theme_end"
	FieldHeuristicEnd CorrectedField = "correct_heuristic_end"
	FieldCreditsStart CorrectedField = "correct_credits_start"
	FieldCreditsEnd   CorrectedField = "correct_credits_end"
)

func validCorrectedField(f CorrectedField) bool {
	switch f {
	case FieldThemeStart, FieldThemeEnd, FieldHeuristicEnd, FieldCreditsStart, FieldCreditsEnd:
		return true
	}
	return false
}

func setCorrected(q querier, itemID int64, field CorrectedField, sec int64) error {
	if !validCorrectedField(field) {
		return fmt.Errorf("set corrected: unknown field %q", field)
	}
	res, err := q.Exec(
		`UPDATE markers SET `+string(field)+` = ?, updated_at = ? WHERE item_id = ?`,
		sec, time.Now(), itemID)
	if err != nil {
		return fmt.Errorf("set corrected %s for %d: %w", field, itemID, mapSQLiteError(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set corrected %s for %d: %w", field, itemID, ErrNotFound)
	}
	return nil
}

// SetCorrected writes a human correction for one field.
// Returns ErrNotFound if the item has no record yet.
func (s *Store) SetCorrected(itemID int64, field CorrectedField, sec int64) error {
	return setCorrected(s.db, itemID, field, sec)
}

// SetCorrected writes a human correction within a transaction.
func (t *Tx) SetCorrected(itemID int64, field CorrectedField, sec int64) error {
	return setCorrected(t.tx, itemID, field, sec)
}

func deleteRecord(q querier, itemID int64) error {
	_, err := q.Exec(`DELETE FROM markers WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("delete marker %d: %w", itemID, mapSQLiteError(err))
	}
	return nil
}

// Delete removes the record for an item. Idempotent: deleting a missing
// record is not an error.
func (s *Store) Delete(itemID int64) error { return deleteRecord(s.db, itemID) }

// Delete removes a record within a transaction.
func (t *Tx) Delete(itemID int64) error { return deleteRecord(t.tx, itemID) }

func listRecords(q querier) ([]*Record, error) {
	rows, err := q.Query(`SELECT ` + recordColumns + ` FROM markers ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate markers: %w", err)
	}
	return results, nil
}

// ListAll returns every marker record ordered by item id.
func (s *Store) ListAll() ([]*Record, error) { return listRecords(s.db) }

// ListAll returns every marker record within a transaction.
func (t *Tx) ListAll() ([]*Record, error) { return listRecords(t.tx) }
