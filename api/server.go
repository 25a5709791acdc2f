package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeafMist/bounty-radar/internal/alert"
	"github.com/DeafMist/bounty-radar/internal/config"
	"github.com/DeafMist/bounty-radar/internal/elasticsearch"
)

const version = "1.0.0"

type alertRunner interface {
	Run(ctx context.Context, trigger string) alert.Result
	Preview(ctx context.Context) alert.Preview
}

type archiveSearcher interface {
	SearchBounties(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
	Health(ctx context.Context) error
}

type server struct {
	log     *slog.Logger
	cfg     *config.API
	alerts  alertRunner
	archive archiveSearcher
}

type errorResponse struct {
	Status    string    `json:"status"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleDocs)
	r.Get("/health", s.handleHealth)
	r.Get("/bounties", s.handleArchive)
	r.Route("/api", func(r chi.Router) {
		r.Get("/test", s.handleTest)
		r.Post("/manual", s.handleTrigger(alert.TriggerManual))
		r.Post("/cron", s.handleTrigger(alert.TriggerCron))
	})
	return r
}

func (s *server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "🎯 Bounty Radar API",
		"endpoints": map[string]string{
			"/":           "API documentation",
			"/health":     "Health check (GET)",
			"/bounties":   "Search notified bounties (GET)",
			"/api/test":   "Test bounty scraping (GET)",
			"/api/manual": "Manual bounty check (POST)",
			"/api/cron":   "Automated cron job (POST)",
		},
		"status":  "active",
		"version": version,
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.archive != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.archive.Health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Status: "error", Error: err.Error(), Timestamp: time.Now().UTC()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.alerts.Preview(r.Context()))
}

func (s *server) handleTrigger(trigger string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("alert cycle panicked", slog.String("trigger", trigger), slog.Any("panic", rec))
				writeJSON(w, http.StatusInternalServerError, alert.Result{
					Status:    alert.StatusError,
					Message:   "internal error",
					Timestamp: time.Now().UTC(),
				})
			}
		}()

		if trigger == alert.TriggerCron {
			s.log.Info("cron job triggered")
		}

		res := s.alerts.Run(r.Context(), trigger)
		writeJSON(w, statusCode(res.Status), res)
	}
}

func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Status:    "error",
			Error:     "archive not configured",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		Query:    strings.TrimSpace(q.Get("q")),
		Source:   strings.TrimSpace(q.Get("source")),
		Trigger:  strings.TrimSpace(q.Get("trigger")),
		MinValue: parseFloat(q.Get("min_value")),
		From:     clampInt(q.Get("from"), 0, 10_000),
		Size:     clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Sort:     strings.TrimSpace(q.Get("sort")),
		Start:    parseTime(q.Get("start")),
		End:      parseTime(q.Get("end")),
	}

	result, err := s.archive.SearchBounties(ctx, params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Error: err.Error(), Timestamp: time.Now().UTC()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func statusCode(status string) int {
	switch status {
	case alert.StatusConfigError, alert.StatusError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
