package summary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"callsummary/internal/calls"
)

// PostgresStore persists summaries in call_summaries and resolves owners from
// user_configurations. Phone numbers are stored and looked up normalized.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) LookupUserID(ctx context.Context, phone string) (string, bool, error) {
	phone = calls.NormalizePhone(phone)
	if phone == "" {
		return "", false, nil
	}
	const q = `
SELECT user_id
FROM user_configurations
WHERE phone_number = $1
LIMIT 1
`
	var userID string
	if err := s.db.QueryRowContext(ctx, q, phone).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup user by phone: %w", err)
	}
	return userID, true, nil
}

// Upsert inserts r or, when the call already has a summary, overwrites it.
// The original id, created_at and a known owner survive the overwrite.
func (s *PostgresStore) Upsert(ctx context.Context, r Record) (Record, error) {
	if r.CallSID == "" {
		return Record{}, ErrInvalidRecord
	}
	now := s.now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}

	const q = `
INSERT INTO call_summaries (
  id, call_sid, user_id, transcript_sid, from_number, to_number, duration, summary, language_code, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
ON CONFLICT (call_sid)
DO UPDATE SET user_id = COALESCE(EXCLUDED.user_id, call_summaries.user_id),
              transcript_sid = EXCLUDED.transcript_sid,
              from_number = EXCLUDED.from_number,
              to_number = EXCLUDED.to_number,
              duration = EXCLUDED.duration,
              summary = EXCLUDED.summary,
              language_code = EXCLUDED.language_code,
              updated_at = GREATEST(EXCLUDED.updated_at, call_summaries.updated_at + interval '1 microsecond')
RETURNING id, call_sid, user_id, transcript_sid, from_number, to_number, duration, summary, language_code, created_at, updated_at
`
	var userID sql.NullString
	if r.UserID != nil {
		userID = sql.NullString{String: *r.UserID, Valid: true}
	}

	row := s.db.QueryRowContext(ctx, q,
		r.ID,
		r.CallSID,
		userID,
		r.TranscriptSID,
		r.From,
		r.To,
		r.DurationSeconds,
		r.Summary,
		r.LanguageCode,
		r.CreatedAt,
		now,
	)
	out, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("upsert call summary: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, callSID string) (Record, bool, error) {
	const q = `
SELECT id, call_sid, user_id, transcript_sid, from_number, to_number, duration, summary, language_code, created_at, updated_at
FROM call_summaries
WHERE call_sid = $1
`
	r, err := scanRecord(s.db.QueryRowContext(ctx, q, callSID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("get call summary: %w", err)
	}
	return r, true, nil
}

func scanRecord(row *sql.Row) (Record, error) {
	var (
		r      Record
		userID sql.NullString
	)
	if err := row.Scan(
		&r.ID,
		&r.CallSID,
		&userID,
		&r.TranscriptSID,
		&r.From,
		&r.To,
		&r.DurationSeconds,
		&r.Summary,
		&r.LanguageCode,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return Record{}, err
	}
	if userID.Valid {
		id := userID.String
		r.UserID = &id
	}
	return r, nil
}
