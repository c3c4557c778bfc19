package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sunlunch/lunchbot/internal/lunchbot/domain"
)

type pgRecordStore struct {
	db *pgxpool.Pool
}

// NewPgRecordStore creates a RecordStore backed by PostgreSQL.
func NewPgRecordStore(db *pgxpool.Pool) domain.RecordStore {
	return &pgRecordStore{db: db}
}

func (s *pgRecordStore) Put(ctx context.Context, rec *domain.MessageRecord) error {
	query := `
		INSERT INTO message_records (
			id, location, message_type, date_bucket, sent_at, temperature, condition, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			sent_at = EXCLUDED.sent_at,
			temperature = EXCLUDED.temperature,
			condition = EXCLUDED.condition,
			expires_at = EXCLUDED.expires_at
	`
	_, err := s.db.Exec(ctx, query,
		rec.ID, rec.Location, rec.Type, rec.DateBucket, rec.SentAt,
		rec.Temperature, rec.Condition, rec.ExpiresAt,
	)
	return err
}

func (s *pgRecordStore) Get(ctx context.Context, key string) (*domain.MessageRecord, error) {
	rec := &domain.MessageRecord{}
	query := `
		SELECT id, location, message_type, date_bucket, sent_at, temperature, condition, expires_at
		FROM message_records WHERE id = $1
	`
	err := s.db.QueryRow(ctx, query, key).Scan(
		&rec.ID, &rec.Location, &rec.Type, &rec.DateBucket, &rec.SentAt,
		&rec.Temperature, &rec.Condition, &rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *pgRecordStore) ListByLocationSince(ctx context.Context, location string, since time.Time) ([]*domain.MessageRecord, error) {
	query := `
		SELECT id, location, message_type, date_bucket, sent_at, temperature, condition, expires_at
		FROM message_records
		WHERE location = $1 AND sent_at >= $2
		ORDER BY sent_at DESC
	`
	rows, err := s.db.Query(ctx, query, location, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.MessageRecord
	for rows.Next() {
		rec := &domain.MessageRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.Location, &rec.Type, &rec.DateBucket, &rec.SentAt,
			&rec.Temperature, &rec.Condition, &rec.ExpiresAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *pgRecordStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	// Preference records carry no expiry and are exempt from retention.
	query := `DELETE FROM message_records WHERE sent_at < $1 AND expires_at IS NOT NULL`
	tag, err := s.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
