// Package ledger implements the rate-limited message ledger: the persisted
// record of sends, lunch confirmations and warning preferences that the
// decision engine consults before messaging anyone.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sunlunch/lunchbot/internal/lunchbot/domain"
)

// Config carries the ledger's rate-limit knobs.
type Config struct {
	WeeklyCap     int // max sends per (location, type) per Monday-anchored week
	RetentionDays int // expiry horizon stamped onto daily records
}

// Ledger answers send-guard questions and records outcomes over a RecordStore.
type Ledger struct {
	store  domain.RecordStore
	logger *slog.Logger
	cfg    Config

	now func() time.Time // injectable for tests
}

func New(store domain.RecordStore, logger *slog.Logger, cfg Config) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// HasBeenSentToday reports whether a message of msgType already went out for
// location on the current calendar date. The daily idempotence guard.
func (l *Ledger) HasBeenSentToday(ctx context.Context, msgType domain.MessageType, location string) (bool, error) {
	key := domain.RecordKey(location, msgType, domain.DateOf(l.now()))
	_, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check message status: %w", err)
	}
	return true, nil
}

// WeeklyStats scans the current Monday-anchored week for (location, msgType)
// records and reports the count against the weekly cap.
func (l *Ledger) WeeklyStats(ctx context.Context, location string, msgType domain.MessageType) (*domain.WeeklyStats, error) {
	now := l.now()
	weekStart, weekEnd := domain.WeekBoundsOf(now)

	records, err := l.store.ListByLocationSince(ctx, location, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekly stats: %w", err)
	}

	stats := &domain.WeeklyStats{WeekStart: domain.WeekStartOf(now)}
	for _, rec := range records {
		if rec.Type != msgType || !rec.SentAt.Before(weekEnd) {
			continue
		}
		stats.MessageCount++
		if stats.LastSentDate == "" {
			stats.LastSentDate = rec.DateBucket // records arrive newest first
		}
	}
	stats.CanSend = stats.MessageCount < l.cfg.WeeklyCap
	return stats, nil
}

// CanSendThisWeek reports whether the weekly cap still allows a send.
func (l *Ledger) CanSendThisWeek(ctx context.Context, location string, msgType domain.MessageType) (bool, error) {
	stats, err := l.WeeklyStats(ctx, location, msgType)
	if err != nil {
		return false, err
	}
	return stats.CanSend, nil
}

// RecordSent writes the daily record for a delivered message. The upsert is
// last-write-wins, which keeps retries idempotent; the daily guard prevents
// normal double-sends.
func (l *Ledger) RecordSent(ctx context.Context, msgType domain.MessageType, location string, temperature *int, condition *string) error {
	now := l.now()
	rec := domain.NewMessageRecord(location, msgType, domain.DateOf(now), now)
	rec.Temperature = temperature
	rec.Condition = condition
	expiry := now.AddDate(0, 0, l.cfg.RetentionDays)
	rec.ExpiresAt = &expiry

	if err := l.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}
	l.logger.InfoContext(ctx, "Message recorded", "type", msgType, "location", location, "date", rec.DateBucket)
	return nil
}

// History returns all records for a location newer than daysBack days,
// newest first.
func (l *Ledger) History(ctx context.Context, location string, daysBack int) ([]*domain.MessageRecord, error) {
	since := l.now().AddDate(0, 0, -daysBack)
	records, err := l.store.ListByLocationSince(ctx, location, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load message history: %w", err)
	}
	return records, nil
}

// PruneOlderThan deletes records of any location older than daysToKeep days.
func (l *Ledger) PruneOlderThan(ctx context.Context, daysToKeep int) (int64, error) {
	cutoff := l.now().AddDate(0, 0, -daysToKeep)
	deleted, err := l.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune old records: %w", err)
	}
	return deleted, nil
}

// RecordLunchConfirmation marks the week anchored at weekStart as confirmed
// for location. An empty weekStart selects the current week. Confirmation
// records expire with the retention window like daily records.
func (l *Ledger) RecordLunchConfirmation(ctx context.Context, location, weekStart string) error {
	now := l.now()
	if weekStart == "" {
		weekStart = domain.WeekStartOf(now)
	}
	rec := domain.NewMessageRecord(location, domain.TypeLunchConfirmation, weekStart, now)
	expiry := now.AddDate(0, 0, l.cfg.RetentionDays)
	rec.ExpiresAt = &expiry

	if err := l.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to record lunch confirmation: %w", err)
	}
	l.logger.InfoContext(ctx, "Lunch confirmed", "location", location, "week_start", weekStart)
	return nil
}

// HasLunchBeenConfirmed reports whether the week anchored at weekStart has a
// confirmation record for location.
func (l *Ledger) HasLunchBeenConfirmed(ctx context.Context, location, weekStart string) (bool, error) {
	key := domain.RecordKey(location, domain.TypeLunchConfirmation, weekStart)
	_, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check lunch confirmation: %w", err)
	}
	return true, nil
}

// SetWarningOptIn upserts the single current-value warning preference for
// location. The record carries no expiry and survives pruning.
func (l *Ledger) SetWarningOptIn(ctx context.Context, location string, optedIn bool) error {
	rec := domain.NewMessageRecord(location, domain.TypeWarningOptIn, domain.OptInBucket, l.now())
	value := "false"
	if optedIn {
		value = "true"
	}
	rec.Condition = &value

	if err := l.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to set warning opt-in: %w", err)
	}
	l.logger.InfoContext(ctx, "Warning opt-in updated", "location", location, "opted_in", optedIn)
	return nil
}

// IsOptedInToWarnings reads the warning preference for location. A missing
// record means opted out; warnings are an add-on feature.
func (l *Ledger) IsOptedInToWarnings(ctx context.Context, location string) (bool, error) {
	key := domain.RecordKey(location, domain.TypeWarningOptIn, domain.OptInBucket)
	rec, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check warning opt-in: %w", err)
	}
	return rec.Condition != nil && *rec.Condition == "true", nil
}
