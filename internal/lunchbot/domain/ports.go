package domain

import (
	"context"
	"time"
)

// Coordinates identifies a point the weather service can evaluate.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RecordStore is the narrow persistence contract the ledger is built on.
// Production uses PostgreSQL; tests use the in-memory implementation.
type RecordStore interface {
	// Put upserts a record by its composite ID (last write wins).
	Put(ctx context.Context, rec *MessageRecord) error
	// Get returns the record at key, or ErrRecordNotFound.
	Get(ctx context.Context, key string) (*MessageRecord, error)
	// ListByLocationSince returns all records for a location with
	// SentAt >= since, newest first.
	ListByLocationSince(ctx context.Context, location string, since time.Time) ([]*MessageRecord, error)
	// DeleteOlderThan removes records of any location with SentAt before
	// cutoff, returning the number deleted. Preference records (no expiry)
	// are never removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// MessageLedger is the rate-limited send ledger consumed by the decision
// engine and the reply service.
type MessageLedger interface {
	HasBeenSentToday(ctx context.Context, msgType MessageType, location string) (bool, error)
	WeeklyStats(ctx context.Context, location string, msgType MessageType) (*WeeklyStats, error)
	CanSendThisWeek(ctx context.Context, location string, msgType MessageType) (bool, error)
	RecordSent(ctx context.Context, msgType MessageType, location string, temperature *int, condition *string) error
	History(ctx context.Context, location string, daysBack int) ([]*MessageRecord, error)
	PruneOlderThan(ctx context.Context, daysToKeep int) (int64, error)
	RecordLunchConfirmation(ctx context.Context, location, weekStart string) error
	HasLunchBeenConfirmed(ctx context.Context, location, weekStart string) (bool, error)
	SetWarningOptIn(ctx context.Context, location string, optedIn bool) error
	IsOptedInToWarnings(ctx context.Context, location string) (bool, error)
}

// WeatherService produces the suitability verdict for a location's check hour.
type WeatherService interface {
	IsWeatherGood(ctx context.Context, coords Coordinates) (*WeatherVerdict, error)
}

// Notifier delivers formatted messages to the team channel.
type Notifier interface {
	SendReminder(ctx context.Context, temperature int, description, location, confirmationURL string) error
	SendWarning(ctx context.Context, temperature int, description, location, optOutURL string) error
}

// EventPublisher emits service events (decision outcomes, reply mutations).
// Publishing is best-effort; callers log and continue on error.
type EventPublisher interface {
	PublishJSON(ctx context.Context, subject string, payload any) error
}
