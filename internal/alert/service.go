package alert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/DeafMist/bounty-radar/internal/dedupe"
	"github.com/DeafMist/bounty-radar/internal/models"
	"github.com/DeafMist/bounty-radar/internal/notify"
	"github.com/DeafMist/bounty-radar/internal/ranking"
)

// Result statuses reported by Run.
const (
	StatusSuccess            = "success"
	StatusNoBounties         = "no_bounties"
	StatusNoRecentBounties   = "no_recent_bounties"
	StatusAlreadySent        = "already_sent"
	StatusNotificationFailed = "notification_failed"
	StatusConfigError        = "config_error"
	StatusError              = "error"
)

// Triggers recorded on published events.
const (
	TriggerManual   = "manual"
	TriggerCron     = "cron"
	TriggerSchedule = "schedule"
)

const previewLimit = 5

// Scraper produces the current bounty list. It must not fail.
type Scraper interface {
	Scrape(ctx context.Context) []models.Bounty
	ListingURL() string
}

// Notifier delivers one bounty to the chat webhook.
type Notifier interface {
	Configured() bool
	Notify(ctx context.Context, b models.Bounty) error
}

// Publisher records a delivered bounty for the archive.
type Publisher interface {
	Publish(ctx context.Context, b models.Bounty, trigger string) (models.NotifiedEvent, error)
}

// Result is the outcome of one Run.
type Result struct {
	Status        string         `json:"status"`
	Message       string         `json:"message"`
	Bounty        *models.Bounty `json:"bounty,omitempty"`
	TotalBounties int            `json:"total_bounties,omitempty"`
	TotalRecent   int            `json:"total_recent,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Preview is what the test endpoint reports.
type Preview struct {
	Status        string          `json:"status"`
	BountiesFound int             `json:"bounties_found"`
	HighestValue  float64         `json:"highest_value"`
	Bounties      []models.Bounty `json:"bounties"`
	DebugInfo     DebugInfo       `json:"debug_info"`
	Timestamp     time.Time       `json:"timestamp"`
}

type DebugInfo struct {
	Sources []string  `json:"sources"`
	Values  []float64 `json:"values"`
}

// Config tunes a Service.
type Config struct {
	Recency time.Duration
}

// Service runs the scrape, filter, rank, dedupe and notify cycle.
type Service struct {
	scraper   Scraper
	notifier  Notifier
	store     dedupe.Store
	publisher Publisher
	recency   time.Duration
	log       *slog.Logger
	now       func() time.Time

	// serializes the check-then-mark on store
	mu sync.Mutex
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher archives delivered bounties.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the cycle together.
func NewService(cfg Config, sc Scraper, n Notifier, store dedupe.Store, logger *slog.Logger, opts ...Option) *Service {
	if cfg.Recency <= 0 {
		cfg.Recency = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		scraper:  sc,
		notifier: n,
		store:    store,
		recency:  cfg.Recency,
		log:      logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one cycle and reports what happened. It never panics on
// scrape, store, notify or publish failures.
func (s *Service) Run(ctx context.Context, trigger string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With(slog.String("trigger", trigger))

	if !s.notifier.Configured() {
		log.Warn("webhook not configured")
		return s.result(StatusConfigError, notify.ErrNotConfigured.Error(), nil)
	}

	bounties := s.scraper.Scrape(ctx)
	if len(bounties) == 0 {
		return s.result(StatusNoBounties, "No bounties found", nil)
	}

	recent := ranking.FilterRecent(bounties, s.recency, s.now())
	if len(recent) == 0 {
		res := s.result(StatusNoRecentBounties, "No recent bounties found", nil)
		res.TotalBounties = len(bounties)
		return res
	}

	top, _ := ranking.Highest(recent)
	key := ranking.Key(top, s.scraper.ListingURL())

	seen, err := s.store.IsSeen(ctx, key)
	if err != nil {
		log.Warn("dedupe lookup failed, treating as unsent", slog.String("key", key), slog.Any("err", err))
	}
	if seen {
		log.Info("highest bounty already sent", slog.String("key", key))
		return s.result(StatusAlreadySent, "Highest value bounty already notified", &top)
	}

	if err := s.notifier.Notify(ctx, top); err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			return s.result(StatusConfigError, err.Error(), &top)
		}
		log.Error("send notification", slog.String("key", key), slog.Any("err", err))
		return s.result(StatusNotificationFailed, "Failed to send Slack notification", &top)
	}

	if err := s.store.MarkSeen(ctx, key); err != nil {
		log.Error("mark bounty sent", slog.String("key", key), slog.Any("err", err))
	}

	if s.publisher != nil {
		if evt, err := s.publisher.Publish(ctx, top, trigger); err != nil {
			log.Warn("publish notified event", slog.String("bounty_id", top.ID), slog.Any("err", err))
		} else {
			log.Debug("published notified event", slog.String("event_id", evt.EventID))
		}
	}

	log.Info("bounty notified",
		slog.String("key", key),
		slog.String("title", top.Title),
		slog.Float64("value", top.Value),
	)

	res := s.result(StatusSuccess, "Notification sent successfully", &top)
	res.TotalRecent = len(recent)
	return res
}

// Preview scrapes without notifying.
func (s *Service) Preview(ctx context.Context) Preview {
	bounties := s.scraper.Scrape(ctx)

	p := Preview{
		Status:        StatusSuccess,
		BountiesFound: len(bounties),
		Bounties:      bounties,
		DebugInfo: DebugInfo{
			Sources: []string{},
			Values:  make([]float64, 0, len(bounties)),
		},
		Timestamp: s.now().UTC(),
	}
	if top, ok := ranking.Highest(bounties); ok {
		p.HighestValue = top.Value
	}
	if len(p.Bounties) > previewLimit {
		p.Bounties = p.Bounties[:previewLimit]
	}

	seen := make(map[string]struct{})
	for _, b := range bounties {
		p.DebugInfo.Values = append(p.DebugInfo.Values, b.Value)
		if _, ok := seen[b.Source]; !ok {
			seen[b.Source] = struct{}{}
			p.DebugInfo.Sources = append(p.DebugInfo.Sources, b.Source)
		}
	}
	return p
}

func (s *Service) result(status, message string, b *models.Bounty) Result {
	return Result{
		Status:    status,
		Message:   message,
		Bounty:    b,
		Timestamp: s.now().UTC(),
	}
}
