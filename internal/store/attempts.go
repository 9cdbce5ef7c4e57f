package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AttemptRecord is one finished attempt as written to the journal.
type AttemptRecord struct {
	ID        string
	ChapterID string
	Outcome   string
	Message   string
	Seq       int64
	Duration  time.Duration
	CreatedAt time.Time
}

// RecordAttempt appends an attempt to the journal.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) RecordAttempt(ctx context.Context, rec AttemptRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts
		(id, chapter_id, outcome, message, seq, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.ChapterID,
		rec.Outcome,
		rec.Message,
		rec.Seq,
		rec.Duration.Milliseconds(),
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns journal entries, newest first.
// An empty chapterID lists every chapter. limit <= 0 means no limit.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListAttempts(ctx context.Context, chapterID string, limit int) ([]AttemptRecord, error) {
	query := `
		SELECT id, chapter_id, outcome, message, seq, duration_ms, created_at
		FROM attempts`
	var args []any
	if chapterID != "" {
		query += ` WHERE chapter_id = ?`
		args = append(args, chapterID)
	}
	query += ` ORDER BY seq DESC, id COLLATE BINARY ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	records := []AttemptRecord{}
	for rows.Next() {
		rec, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return records, nil
}

// LastAttemptSeq returns the highest journal seq, or 0 for an empty journal.
// Used to resume the engine clock across processes.
func (s *Store) LastAttemptSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM attempts`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last attempt seq: %w", err)
	}
	return seq.Int64, nil
}

func scanAttempt(rows *sql.Rows) (AttemptRecord, error) {
	var (
		rec        AttemptRecord
		durationMS int64
		createdAt  string
	)
	if err := rows.Scan(&rec.ID, &rec.ChapterID, &rec.Outcome, &rec.Message, &rec.Seq, &durationMS, &createdAt); err != nil {
		return AttemptRecord{}, fmt.Errorf("scan attempt: %w", err)
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return AttemptRecord{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = t
	return rec, nil
}
