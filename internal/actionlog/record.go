package actionlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/statecore/internal/ir"
)

// Record is one logged action.
type Record struct {
	ID        string         `json:"id"`
	Session   string         `json:"session"`
	Seq       int64          `json:"seq"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	StateHash string         `json:"state_hash"`
}

// Append inserts rec. Duplicate IDs are silently ignored, so appending the
// same record twice is safe. Other constraint violations, such as a reused
// (session, seq) pair, return errors.
func (l *Log) Append(ctx context.Context, rec Record) error {
	payload, err := ir.MarshalCanonical(orEmpty(rec.Payload))
	if err != nil {
		return fmt.Errorf("append: payload: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO actions
		(id, session, seq, type, payload, state_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Session,
		rec.Seq,
		rec.Type,
		string(payload),
		rec.StateHash,
	)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}
	return nil
}

// Records returns every record in log order.
// Returns an empty slice (not nil) for an empty log.
func (l *Log) Records(ctx context.Context) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, session, seq, type, payload, state_hash
		FROM actions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// LastSeq returns the highest seq in the log, or 0 when it is empty.
func (l *Log) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := l.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM actions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Count returns the number of records in the log.
func (l *Log) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Get returns the record with the given ID.
func (l *Log) Get(ctx context.Context, id string) (Record, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, session, seq, type, payload, state_hash
		FROM actions
		WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// ErrNotFound is returned by Get for an unknown record ID.
var ErrNotFound = errors.New("record not found")

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		rec     Record
		payload string
	)
	if err := s.Scan(&rec.ID, &rec.Session, &rec.Seq, &rec.Type, &payload, &rec.StateHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan record: %w", err)
	}

	obj, err := ir.DecodeObject([]byte(payload))
	if err != nil {
		return Record{}, fmt.Errorf("record %s: payload: %w", rec.ID, err)
	}
	if len(obj) > 0 {
		rec.Payload = obj
	}
	return rec, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
