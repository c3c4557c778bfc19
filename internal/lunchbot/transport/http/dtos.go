package http

import "github.com/sunlunch/lunchbot/internal/lunchbot/domain"

// --- Request DTOs ---

// TriggerRequestDTO is the optional override bag for a manual decision run.
// An empty body runs with the configured defaults.
type TriggerRequestDTO struct {
	Location        string   `json:"location,omitempty" validate:"omitempty,max=100"`
	Latitude        *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude       *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	MinTemperature  *int     `json:"minTemperature,omitempty" validate:"omitempty,gte=-60,lte=60"`
	GoodConditions  []string `json:"goodConditions,omitempty" validate:"omitempty,dive,max=32"`
	BadConditions   []string `json:"badConditions,omitempty" validate:"omitempty,dive,max=32"`
	CheckHour       *int     `json:"checkHour,omitempty" validate:"omitempty,gte=0,lte=23"`
	WeeklyCap       *int     `json:"weeklyCap,omitempty" validate:"omitempty,gte=1,lte=14"`
}

// ReplyRequestDTO carries a confirm/preference action, from either a JSON
// body or query parameters.
type ReplyRequestDTO struct {
	Action   string `json:"action,omitempty" validate:"omitempty,max=50"`
	Location string `json:"location,omitempty" validate:"omitempty,max=100"`
	Date     string `json:"date,omitempty" validate:"omitempty,len=10"`
}

// --- Response DTOs ---

// HistoryResponseDTO lists a location's recent ledger records.
type HistoryResponseDTO struct {
	Location string                  `json:"location"`
	Days     int                     `json:"days"`
	Records  []*domain.MessageRecord `json:"records"`
}

// GenericErrorResponse is the error body for 4xx/5xx responses.
type GenericErrorResponse struct {
	Error string `json:"error"`
}
