package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sunlunch/lunchbot/internal/lunchbot/domain"
)

var repliesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "lunchbot",
		Name:      "replies_total",
		Help:      "Total reply requests by action and result.",
	},
	[]string{"action", "result"},
)

const repliesSubject = "lunchbot.replies"

// Reply actions.
const (
	ActionConfirmLunch   = "confirm-lunch"
	ActionOptInWarnings  = "opt-in-warnings"
	ActionOptOutWarnings = "opt-out-warnings"
)

// ReplyRequest is a confirm/preference request from a recipient.
type ReplyRequest struct {
	Action   string `json:"action"`
	Location string `json:"location,omitempty"`
	Date     string `json:"date,omitempty"` // selects the confirmation week, YYYY-MM-DD
}

// ReplyResponse reports the state after handling a reply.
type ReplyResponse struct {
	Message          string `json:"message"`
	Action           string `json:"action"`
	Location         string `json:"location"`
	Confirmed        bool   `json:"confirmed,omitempty"`
	AlreadyConfirmed bool   `json:"alreadyConfirmed,omitempty"`
	OptedIn          *bool  `json:"optedIn,omitempty"`
	WeekStart        string `json:"weekStart,omitempty"`
}

// ReplyService routes confirm-lunch and warning-preference requests into the
// ledger.
type ReplyService struct {
	ledger          domain.MessageLedger
	publisher       domain.EventPublisher // nil disables event publishing
	logger          *slog.Logger
	defaultLocation string

	now func() time.Time
}

func NewReplyService(ledger domain.MessageLedger, publisher domain.EventPublisher, logger *slog.Logger, defaultLocation string) *ReplyService {
	return &ReplyService{
		ledger:          ledger,
		publisher:       publisher,
		logger:          logger,
		defaultLocation: defaultLocation,
		now:             time.Now,
	}
}

// Handle processes one reply request. Unknown actions are rejected before any
// state is read. A validation failure returns domain.ErrUnknownAction or
// domain.ErrInvalidDate; everything else surfaces store errors.
func (s *ReplyService) Handle(ctx context.Context, req ReplyRequest) (*ReplyResponse, error) {
	action := req.Action
	if action == "" {
		action = ActionConfirmLunch
	}
	switch action {
	case ActionConfirmLunch, ActionOptInWarnings, ActionOptOutWarnings:
	default:
		repliesTotal.WithLabelValues(action, "rejected").Inc()
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAction, req.Action)
	}

	location := req.Location
	if location == "" {
		location = s.defaultLocation
	}

	var (
		resp *ReplyResponse
		err  error
	)
	switch action {
	case ActionConfirmLunch:
		resp, err = s.confirmLunch(ctx, location, req.Date)
	case ActionOptInWarnings:
		resp, err = s.setOptIn(ctx, location, true)
	case ActionOptOutWarnings:
		resp, err = s.setOptIn(ctx, location, false)
	}
	if err != nil {
		repliesTotal.WithLabelValues(action, "error").Inc()
		return nil, err
	}
	resp.Action = action

	repliesTotal.WithLabelValues(action, "ok").Inc()
	if s.publisher != nil {
		if pubErr := s.publisher.PublishJSON(ctx, repliesSubject, resp); pubErr != nil {
			s.logger.WarnContext(ctx, "Failed to publish reply event", "error", pubErr)
		}
	}
	return resp, nil
}

func (s *ReplyService) confirmLunch(ctx context.Context, location, date string) (*ReplyResponse, error) {
	var weekStart string
	if date != "" {
		day, err := domain.ParseDate(date)
		if err != nil {
			return nil, err
		}
		weekStart = domain.WeekStartOf(day)
	} else {
		weekStart = domain.WeekStartOf(s.now())
	}

	confirmed, err := s.ledger.HasLunchBeenConfirmed(ctx, location, weekStart)
	if err != nil {
		return nil, err
	}
	if confirmed {
		return &ReplyResponse{
			Message:          "Lunch already confirmed for this week",
			Location:         location,
			AlreadyConfirmed: true,
			WeekStart:        weekStart,
		}, nil
	}

	if err := s.ledger.RecordLunchConfirmation(ctx, location, weekStart); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Lunch confirmed via reply", "location", location, "week_start", weekStart)
	return &ReplyResponse{
		Message:   "Lunch confirmed, enjoy! No more reminders this week",
		Location:  location,
		Confirmed: true,
		WeekStart: weekStart,
	}, nil
}

func (s *ReplyService) setOptIn(ctx context.Context, location string, optedIn bool) (*ReplyResponse, error) {
	if err := s.ledger.SetWarningOptIn(ctx, location, optedIn); err != nil {
		return nil, err
	}
	message := "Opted in to bad-weather warnings"
	if !optedIn {
		message = "Opted out of bad-weather warnings"
	}
	return &ReplyResponse{
		Message:  message,
		Location: location,
		OptedIn:  &optedIn,
	}, nil
}
