package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sunlunch/lunchbot/internal/lunchbot/domain"
	"github.com/sunlunch/lunchbot/internal/lunchbot/weather"
)

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lunchbot",
			Name:      "decisions_total",
			Help:      "Total decision runs by outcome.",
		},
		[]string{"outcome"},
	)
	messagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lunchbot",
			Name:      "messages_sent_total",
			Help:      "Total messages delivered by type.",
		},
		[]string{"type"},
	)
)

const decisionsSubject = "lunchbot.decisions"

// DecisionConfig carries the defaults a run uses when the request brings no
// overrides.
type DecisionConfig struct {
	Location        string
	Coordinates     domain.Coordinates
	MinTemperatureC int
	GoodConditions  []string
	BadConditions   []string
	CheckHour       int
	Timezone        string
	WeeklyCap       int
	RetentionDays   int
	PublicBaseURL   string
}

// RunRequest is the optional override bag accepted by the trigger entry point.
// Nil/empty fields fall back to the configured defaults.
type RunRequest struct {
	Location        string
	Coordinates     *domain.Coordinates
	MinTemperatureC *int
	GoodConditions  []string
	BadConditions   []string
	CheckHour       *int
	WeeklyCap       *int
}

// MessagesSent reports whether a run delivered a message and of which type.
type MessagesSent struct {
	Sent bool   `json:"sent"`
	Type string `json:"type,omitempty"`
}

// DecisionSummary is the structured outcome of one decision run.
type DecisionSummary struct {
	RunID          string                 `json:"runId"`
	Location       string                 `json:"location"`
	Message        string                 `json:"message"`
	LunchConfirmed bool                   `json:"lunchConfirmed"`
	Weather        *domain.WeatherVerdict `json:"weather,omitempty"`
	MessagesSent   *MessagesSent          `json:"messagesSent,omitempty"`
	WeeklyStats    *domain.WeeklyStats    `json:"weeklyStats,omitempty"`
	CheckedAt      time.Time              `json:"checkedAt"`
}

// WeatherFactory builds a weather service for an overridden evaluation config.
// Runs without overrides use the default service and never call the factory.
type WeatherFactory func(cfg weather.Config) domain.WeatherService

// DecisionService runs the send/skip state machine for one trigger.
type DecisionService struct {
	ledger         domain.MessageLedger
	weather        domain.WeatherService
	weatherFactory WeatherFactory
	notifier       domain.Notifier
	publisher      domain.EventPublisher // nil disables event publishing
	logger         *slog.Logger
	cfg            DecisionConfig

	now func() time.Time
}

func NewDecisionService(
	ledger domain.MessageLedger,
	weatherSvc domain.WeatherService,
	weatherFactory WeatherFactory,
	notifier domain.Notifier,
	publisher domain.EventPublisher,
	logger *slog.Logger,
	cfg DecisionConfig,
) *DecisionService {
	return &DecisionService{
		ledger:         ledger,
		weather:        weatherSvc,
		weatherFactory: weatherFactory,
		notifier:       notifier,
		publisher:      publisher,
		logger:         logger,
		cfg:            cfg,
		now:            time.Now,
	}
}

// Run executes the decision state machine. Rate-limit and confirmation exits
// are ordered before the weather evaluation so a confirmed or capped week
// never costs an external call. Business-rule exits are normal summaries, not
// errors; only upstream failures return an error.
func (s *DecisionService) Run(ctx context.Context, req RunRequest) (*DecisionSummary, error) {
	now := s.now()
	location := req.Location
	if location == "" {
		location = s.cfg.Location
	}
	summary := &DecisionSummary{
		RunID:     uuid.NewString(),
		Location:  location,
		CheckedAt: now,
	}
	log := s.logger.With("run_id", summary.RunID, "location", location)

	weekStart := domain.WeekStartOf(now)
	confirmed, err := s.ledger.HasLunchBeenConfirmed(ctx, location, weekStart)
	if err != nil {
		decisionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if confirmed {
		summary.LunchConfirmed = true
		summary.Message = "Lunch already confirmed for this week, no messages needed"
		return s.finish(ctx, log, summary, "lunch_confirmed"), nil
	}

	sentToday, err := s.ledger.HasBeenSentToday(ctx, domain.TypeReminder, location)
	if err != nil {
		decisionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if sentToday {
		summary.Message = "Message already sent today"
		return s.finish(ctx, log, summary, "already_sent_today"), nil
	}

	weeklyCap := s.cfg.WeeklyCap
	if req.WeeklyCap != nil {
		weeklyCap = *req.WeeklyCap
	}
	stats, err := s.ledger.WeeklyStats(ctx, location, domain.TypeReminder)
	if err != nil {
		decisionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	stats.CanSend = stats.MessageCount < weeklyCap
	summary.WeeklyStats = stats
	if !stats.CanSend {
		summary.Message = "Weekly message limit reached"
		return s.finish(ctx, log, summary, "weekly_limit"), nil
	}

	verdict, err := s.evaluateWeather(ctx, req)
	if err != nil {
		decisionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("weather evaluation failed: %w", err)
	}
	summary.Weather = verdict

	if verdict.IsGood {
		confirmURL := s.replyURL("confirm-lunch", location, domain.DateOf(now))
		if err := s.notifier.SendReminder(ctx, verdict.Temperature, verdict.Description, location, confirmURL); err != nil {
			decisionsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to send reminder: %w", err)
		}
		if err := s.ledger.RecordSent(ctx, domain.TypeReminder, location, &verdict.Temperature, &verdict.Condition); err != nil {
			decisionsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
		messagesSentTotal.WithLabelValues(string(domain.TypeReminder)).Inc()
		summary.MessagesSent = &MessagesSent{Sent: true, Type: string(domain.TypeReminder)}
		summary.WeeklyStats.MessageCount++
		summary.WeeklyStats.CanSend = summary.WeeklyStats.MessageCount < weeklyCap
		summary.WeeklyStats.LastSentDate = domain.DateOf(now)
		summary.Message = "Lunch reminder sent"
		return s.finish(ctx, log, summary, "reminder_sent"), nil
	}

	return s.handleBadWeather(ctx, log, summary, location, verdict, weeklyCap)
}

func (s *DecisionService) handleBadWeather(
	ctx context.Context,
	log *slog.Logger,
	summary *DecisionSummary,
	location string,
	verdict *domain.WeatherVerdict,
	weeklyCap int,
) (*DecisionSummary, error) {
	optedIn, err := s.ledger.IsOptedInToWarnings(ctx, location)
	if err != nil {
		decisionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !optedIn {
		// Normal nothing-to-do outcome: no record is written.
		summary.Message = "Weather not suitable and location not opted in to warnings"
		return s.finish(ctx, log, summary, "warning_opt_out"), nil
	}

	warnedToday, err := s.ledger.HasBeenSentToday(ctx, domain.TypeWarning, location)
	if err != nil {
		decisionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	warningStats, err := s.ledger.WeeklyStats(ctx, location, domain.TypeWarning)
	if err != nil {
		decisionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if warnedToday || warningStats.MessageCount >= weeklyCap {
		summary.Message = "Warning already sent today or weekly warning limit reached"
		return s.finish(ctx, log, summary, "warning_blocked"), nil
	}

	optOutURL := s.replyURL("opt-out-warnings", location, "")
	if err := s.notifier.SendWarning(ctx, verdict.Temperature, verdict.Description, location, optOutURL); err != nil {
		decisionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to send warning: %w", err)
	}
	if err := s.ledger.RecordSent(ctx, domain.TypeWarning, location, &verdict.Temperature, &verdict.Condition); err != nil {
		decisionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	messagesSentTotal.WithLabelValues(string(domain.TypeWarning)).Inc()
	summary.MessagesSent = &MessagesSent{Sent: true, Type: string(domain.TypeWarning)}
	summary.Message = "Bad weather warning sent"
	return s.finish(ctx, log, summary, "warning_sent"), nil
}

// evaluateWeather uses the default service unless the request overrides any
// evaluation parameter, in which case a scoped service is built.
func (s *DecisionService) evaluateWeather(ctx context.Context, req RunRequest) (*domain.WeatherVerdict, error) {
	coords := s.cfg.Coordinates
	if req.Coordinates != nil {
		coords = *req.Coordinates
	}

	svc := s.weather
	if s.weatherFactory != nil && hasWeatherOverrides(req) {
		cfg := weather.Config{
			MinTemperatureC: s.cfg.MinTemperatureC,
			GoodConditions:  s.cfg.GoodConditions,
			BadConditions:   s.cfg.BadConditions,
			CheckHour:       s.cfg.CheckHour,
			Timezone:        s.cfg.Timezone,
		}
		if req.MinTemperatureC != nil {
			cfg.MinTemperatureC = *req.MinTemperatureC
		}
		if len(req.GoodConditions) > 0 {
			cfg.GoodConditions = req.GoodConditions
		}
		if len(req.BadConditions) > 0 {
			cfg.BadConditions = req.BadConditions
		}
		if req.CheckHour != nil {
			cfg.CheckHour = *req.CheckHour
		}
		svc = s.weatherFactory(cfg)
	}

	return svc.IsWeatherGood(ctx, coords)
}

func hasWeatherOverrides(req RunRequest) bool {
	return req.MinTemperatureC != nil || req.CheckHour != nil ||
		len(req.GoodConditions) > 0 || len(req.BadConditions) > 0
}

// finish runs the retention sweep, publishes the outcome event and bumps the
// outcome counter. Housekeeping failures never gate the response.
func (s *DecisionService) finish(ctx context.Context, log *slog.Logger, summary *DecisionSummary, outcome string) *DecisionSummary {
	decisionsTotal.WithLabelValues(outcome).Inc()

	deleted, err := s.ledger.PruneOlderThan(ctx, s.cfg.RetentionDays)
	if err != nil {
		log.WarnContext(ctx, "Retention sweep failed", "error", err)
	} else if deleted > 0 {
		log.InfoContext(ctx, "Retention sweep removed records", "deleted", deleted)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishJSON(ctx, decisionsSubject, summary); err != nil {
			log.WarnContext(ctx, "Failed to publish decision event", "error", err)
		}
	}

	log.InfoContext(ctx, "Decision run finished", "outcome", outcome, "message", summary.Message)
	return summary
}

func (s *DecisionService) replyURL(action, location, date string) string {
	if s.cfg.PublicBaseURL == "" {
		return ""
	}
	q := url.Values{}
	q.Set("action", action)
	q.Set("location", location)
	if date != "" {
		q.Set("date", date)
	}
	return fmt.Sprintf("%s/api/v1/reply?%s", s.cfg.PublicBaseURL, q.Encode())
}
