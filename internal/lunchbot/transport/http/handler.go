// Package http exposes the trigger, reply and history endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sunlunch/lunchbot/internal/lunchbot/app"
	"github.com/sunlunch/lunchbot/internal/lunchbot/domain"
)

// DecisionRunner runs the decision state machine for one trigger.
type DecisionRunner interface {
	Run(ctx context.Context, req app.RunRequest) (*app.DecisionSummary, error)
}

// ReplyHandler processes confirm/preference requests.
type ReplyHandler interface {
	Handle(ctx context.Context, req app.ReplyRequest) (*app.ReplyResponse, error)
}

// HistoryProvider reads recent ledger records for a location.
type HistoryProvider interface {
	History(ctx context.Context, location string, daysBack int) ([]*domain.MessageRecord, error)
}

type Handler struct {
	decisions       DecisionRunner
	replies         ReplyHandler
	history         HistoryProvider
	logger          *slog.Logger
	validate        *validator.Validate
	defaultLocation string
}

func NewHandler(
	decisions DecisionRunner,
	replies ReplyHandler,
	history HistoryProvider,
	logger *slog.Logger,
	validate *validator.Validate,
	defaultLocation string,
) *Handler {
	return &Handler{
		decisions:       decisions,
		replies:         replies,
		history:         history,
		logger:          logger,
		validate:        validate,
		defaultLocation: defaultLocation,
	}
}

// NewRouter wires the HTTP surface.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/trigger", h.Trigger)
		r.Route("/reply", func(r chi.Router) {
			r.Use(corsHeaders)
			r.Post("/", h.Reply)
			r.Get("/", h.Reply)
			r.Options("/", h.replyPreflight)
		})
		r.Get("/history", h.History)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) replyPreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Trigger runs the decision engine on demand with an optional override bag.
// Business-rule exits (already sent, limit reached, confirmed, opted out) are
// 200 responses like any other run outcome.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var dto TriggerRequestDTO
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &dto); err != nil {
			h.logger.WarnContext(ctx, "Failed to decode trigger request", "error", err)
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := h.validate.StructCtx(ctx, dto); err != nil {
		h.logger.WarnContext(ctx, "Trigger request failed validation", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("validation error: %s", err))
		return
	}
	if (dto.Latitude == nil) != (dto.Longitude == nil) {
		writeError(w, http.StatusBadRequest, "latitude and longitude must be provided together")
		return
	}

	req := app.RunRequest{
		Location:        dto.Location,
		MinTemperatureC: dto.MinTemperature,
		GoodConditions:  dto.GoodConditions,
		BadConditions:   dto.BadConditions,
		CheckHour:       dto.CheckHour,
		WeeklyCap:       dto.WeeklyCap,
	}
	if dto.Latitude != nil {
		req.Coordinates = &domain.Coordinates{Latitude: *dto.Latitude, Longitude: *dto.Longitude}
	}

	summary, err := h.decisions.Run(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "Decision run failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Reply handles confirm-lunch / opt-in / opt-out from a JSON body (POST) or
// query parameters (GET, or POST without a body).
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dto, ok := h.decodeReply(w, r)
	if !ok {
		return
	}
	if err := h.validate.StructCtx(ctx, dto); err != nil {
		h.logger.WarnContext(ctx, "Reply request failed validation", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("validation error: %s", err))
		return
	}

	resp, err := h.replies.Handle(ctx, app.ReplyRequest{
		Action:   dto.Action,
		Location: dto.Location,
		Date:     dto.Date,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAction) || errors.Is(err, domain.ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "Reply handling failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) decodeReply(w http.ResponseWriter, r *http.Request) (ReplyRequestDTO, bool) {
	var dto ReplyRequestDTO

	if r.Method == http.MethodPost {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return dto, false
		}
		if len(body) > 0 {
			if err := json.Unmarshal(body, &dto); err != nil {
				h.logger.WarnContext(r.Context(), "Failed to decode reply request", "error", err)
				writeError(w, http.StatusBadRequest, "invalid request body")
				return dto, false
			}
			return dto, true
		}
	}

	q := r.URL.Query()
	dto.Action = q.Get("action")
	dto.Location = q.Get("location")
	dto.Date = q.Get("date")
	return dto, true
}

// History lists a location's recent ledger records, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	location := r.URL.Query().Get("location")
	if location == "" {
		location = h.defaultLocation
	}
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			writeError(w, http.StatusBadRequest, "days must be an integer between 1 and 365")
			return
		}
		days = parsed
	}

	records, err := h.history.History(ctx, location, days)
	if err != nil {
		h.logger.ErrorContext(ctx, "History lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*domain.MessageRecord{}
	}
	writeJSON(w, http.StatusOK, HistoryResponseDTO{Location: location, Days: days, Records: records})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, GenericErrorResponse{Error: message})
}
