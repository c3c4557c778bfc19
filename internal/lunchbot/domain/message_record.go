package domain

import (
	"fmt"
	"time"
)

// MessageType identifies what kind of fact a MessageRecord represents.
type MessageType string

const (
	TypeReminder          MessageType = "reminder"           // good-weather lunch invitation, daily scoped
	TypeWarning           MessageType = "warning"            // bad-weather heads-up, daily scoped, opt-in gated
	TypeLunchConfirmation MessageType = "lunch-confirmation" // weekly scoped, keyed by week start
	TypeWarningOptIn      MessageType = "warning-opt-in"     // single current-value preference per location
)

const (
	// DateLayout is the calendar-date format used in record keys and buckets.
	DateLayout = "2006-01-02"

	// OptInBucket is the fixed key bucket for the per-location opt-in record.
	// Preference records carry no date scope; the latest upsert wins.
	OptInBucket = "current"
)

// MessageRecord is one persisted fact: a message of a given type was sent (or a
// confirmation/preference was set) for a location on a given day or week.
type MessageRecord struct {
	// ID is the composite record key "{location}#{type}#{dateOrWeek}". This is
	// a documented wire format shared with existing stored data; separator and
	// field order must not change.
	ID          string      `json:"id"`
	Location    string      `json:"location"`
	Type        MessageType `json:"type"`
	DateBucket  string      `json:"date_bucket"` // YYYY-MM-DD day, week-start Monday, or "current"
	SentAt      time.Time   `json:"sent_at"`
	Temperature *int        `json:"temperature,omitempty"`
	Condition   *string     `json:"condition,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"` // nil for records with no retention expiry
}

// RecordKey builds the composite record id for a location, type and bucket.
func RecordKey(location string, msgType MessageType, bucket string) string {
	return fmt.Sprintf("%s#%s#%s", location, msgType, bucket)
}

// NewMessageRecord creates a record keyed to the given bucket.
func NewMessageRecord(location string, msgType MessageType, bucket string, sentAt time.Time) *MessageRecord {
	return &MessageRecord{
		ID:         RecordKey(location, msgType, bucket),
		Location:   location,
		Type:       msgType,
		DateBucket: bucket,
		SentAt:     sentAt,
	}
}

// WeeklyStats summarizes the current week's sends for a (location, type) pair.
// Derived by scanning records; never stored.
type WeeklyStats struct {
	WeekStart    string `json:"weekStart"`
	MessageCount int    `json:"messageCount"`
	LastSentDate string `json:"lastSentDate,omitempty"`
	CanSend      bool   `json:"canSendMore"`
}

// WeatherVerdict is the yes/no weather-suitability judgment for one check.
// Ephemeral; only temperature and condition are copied into a MessageRecord
// when a message is sent.
type WeatherVerdict struct {
	IsGood      bool      `json:"isGood"`
	Temperature int       `json:"temperature"` // rounded °C
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	ObservedAt  time.Time `json:"observedAt"`
}
