// Package daemon provides the long-running background budget monitor service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/pipeline"
	"github.com/theirongolddev/cloudburn/internal/source"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	Schedule     string // cron spec, e.g. "@every 15m" or "*/10 * * * *"
	Days         int    // status window ends today and starts Days earlier
	Region       string
	Account      string
	EventsBuffer int
	Concurrency  int
	ConfigPath   string
	WatchConfig  bool
}

// BudgetLoader returns the budgets to poll. It is called at startup and
// again on every config reload.
type BudgetLoader func() ([]model.Budget, error)

// Utilization thresholds that emit a threshold event when crossed upward.
var thresholds = []float64{80, 100}

// BudgetSnapshot is the polled state of one budget.
type BudgetSnapshot struct {
	Name               string           `json:"name"`
	PeriodType         model.PeriodType `json:"period_type"`
	Amount             float64          `json:"amount"`
	PeriodStart        calendar.Date    `json:"period_start,omitzero"`
	PeriodEnd          calendar.Date    `json:"period_end,omitzero"`
	CurrentSpent       float64          `json:"current_spent"`
	CurrentRemaining   float64          `json:"current_remaining"`
	CurrentUtilization float64          `json:"current_utilization_percent"`
	WindowSpent        float64          `json:"window_spent"`
	WindowBudget       float64          `json:"window_budget"`
	FailedFetches      int              `json:"failed_fetches"`
	Error              string           `json:"error,omitempty"`

	Status *model.BudgetStatus `json:"status,omitempty"`
}

// Event is emitted whenever a budget's polled state changes.
type Event struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Budget    string         `json:"budget"`
	Snapshot  BudgetSnapshot `json:"snapshot"`
	Delta     float64        `json:"delta,omitempty"`
	Threshold float64        `json:"threshold,omitempty"`
}

// Event types.
const (
	EventSnapshot  = "snapshot"
	EventSpend     = "spend_delta"
	EventRollover  = "period_rollover"
	EventThreshold = "threshold"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time        `json:"started_at"`
	LastPollAt      time.Time        `json:"last_poll_at"`
	NextPollAt      time.Time        `json:"next_poll_at,omitzero"`
	Schedule        string           `json:"schedule"`
	PollCount       int64            `json:"poll_count"`
	ConfigReloads   int              `json:"config_reloads"`
	Days            int              `json:"days"`
	Budgets         []BudgetSnapshot `json:"budgets"`
	LastError       string           `json:"last_error,omitempty"`
	EventCount      int              `json:"event_count"`
	SubscriberCount int              `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	src     source.ConsumptionSource
	load    BudgetLoader
	log     *slog.Logger
	metrics *Metrics
	today   func() calendar.Date

	mu         sync.RWMutex
	cron       *cron.Cron
	startedAt  time.Time
	lastPollAt time.Time
	pollCount  int64
	reloads    int
	lastError  string
	budgets    []model.Budget
	snapshots  map[string]BudgetSnapshot
	nextSeq    int64
	events     []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service polling src for the budgets load returns.
func New(cfg Config, src source.ConsumptionSource, load BudgetLoader, logger *slog.Logger) (*Service, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 15m"
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if cfg.Days < 1 {
		cfg.Days = 90
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if logger == nil {
		logger = slog.Default()
	}

	budgets, err := load()
	if err != nil {
		return nil, fmt.Errorf("loading budgets: %w", err)
	}

	return &Service{
		cfg:       cfg,
		src:       src,
		load:      load,
		log:       logger.With("component", "daemon"),
		metrics:   NewMetrics(),
		today:     calendar.Today,
		startedAt: time.Now(),
		budgets:   budgets,
		snapshots: make(map[string]BudgetSnapshot),
		subs:      make(map[int]chan Event),
	}, nil
}

// Run starts HTTP endpoints, the poll schedule and the config watcher, and
// blocks until ctx is canceled or the server fails.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.pollOnce(ctx) }); err != nil {
		return fmt.Errorf("scheduling polls: %w", err)
	}
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	// Seed initial snapshots so status is useful immediately.
	s.pollOnce(ctx)
	c.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("daemon http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		<-c.Stop().Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if s.cfg.WatchConfig && s.cfg.ConfigPath != "" {
		g.Go(func() error { return s.watchConfig(gctx) })
	}

	return g.Wait()
}

type pollResult struct {
	status *model.BudgetStatus
	err    error
}

// pollOnce computes every budget's status concurrently, bounded by
// Config.Concurrency, then diffs against the previous snapshots and
// publishes events. A failing budget never stops the others.
func (s *Service) pollOnce(ctx context.Context) {
	start := time.Now()

	s.mu.RLock()
	budgets := slices.Clone(s.budgets)
	s.mu.RUnlock()

	today := s.today()
	from := today.AddDays(-s.cfg.Days)
	results := make([]pollResult, len(budgets))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, b := range budgets {
		g.Go(func() error {
			st, err := pipeline.ComputeStatus(ctx, b, s.src, from, today,
				pipeline.WithLogger(s.log),
				pipeline.WithRegion(s.cfg.Region),
				pipeline.WithAccount(s.cfg.Account),
			)
			results[i] = pollResult{status: st, err: err}
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now()
	var (
		pending []Event
		errs    []error
	)

	s.mu.Lock()
	seen := make(map[string]struct{}, len(budgets))
	for i, b := range budgets {
		seen[b.Name] = struct{}{}
		snap := BudgetSnapshot{Name: b.Name, PeriodType: b.PeriodType, Amount: b.Amount}
		if err := results[i].err; err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))
			snap.Error = err.Error()
		} else {
			snap = snapshotFromStatus(b, results[i].status, today)
		}
		prev, had := s.snapshots[b.Name]
		s.snapshots[b.Name] = snap
		if snap.Error == "" {
			s.metrics.observeBudget(b.Name, snap)
			pending = append(pending, diffSnapshots(prev, had && prev.Error == "", snap)...)
		}
	}
	for name := range s.snapshots {
		if _, ok := seen[name]; !ok {
			delete(s.snapshots, name)
			s.metrics.forget(name)
		}
	}
	s.lastPollAt = now
	s.pollCount++
	s.lastError = ""
	if err := errors.Join(errs...); err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	result := "ok"
	if len(errs) > 0 {
		result = "error"
		s.log.Warn("poll finished with errors", "failed", len(errs), "err", errors.Join(errs...))
	}
	s.metrics.polls.WithLabelValues(result).Inc()
	s.metrics.pollDuration.Observe(time.Since(start).Seconds())
	s.log.Debug("poll finished", "budgets", len(budgets), "events", len(pending), "took", time.Since(start))

	for _, ev := range pending {
		ev.Timestamp = now
		s.publishEvent(ev)
	}
}

// snapshotFromStatus condenses a status to the period containing today.
// When no period contains today (the budget ended or has not started) the
// current fields stay zero.
func snapshotFromStatus(b model.Budget, st *model.BudgetStatus, today calendar.Date) BudgetSnapshot {
	snap := BudgetSnapshot{
		Name:          b.Name,
		PeriodType:    b.PeriodType,
		Amount:        b.Amount,
		WindowSpent:   st.TotalSpent,
		WindowBudget:  st.TotalBudget,
		FailedFetches: st.FailedFetches,
		Status:        st,
	}
	for _, p := range st.Periods {
		if p.Period.Range().Contains(today) {
			snap.PeriodStart = p.Period.Start
			snap.PeriodEnd = p.Period.End
			snap.Amount = p.Period.BudgetAmount
			snap.CurrentSpent = p.Spent
			snap.CurrentRemaining = p.Remaining
			snap.CurrentUtilization = p.UtilizationPercent
			break
		}
	}
	return snap
}

// diffSnapshots returns the events implied by moving from prev to curr.
// had is false on a budget's first successful poll.
func diffSnapshots(prev BudgetSnapshot, had bool, curr BudgetSnapshot) []Event {
	if !had {
		return []Event{{Type: EventSnapshot, Budget: curr.Name, Snapshot: curr}}
	}
	if !prev.PeriodStart.Equal(curr.PeriodStart) {
		return []Event{{Type: EventRollover, Budget: curr.Name, Snapshot: curr}}
	}

	delta := curr.CurrentSpent - prev.CurrentSpent
	if math.Abs(delta) < 1e-9 {
		return nil
	}
	out := []Event{{Type: EventSpend, Budget: curr.Name, Snapshot: curr, Delta: delta}}
	for _, t := range thresholds {
		if prev.CurrentUtilization < t && curr.CurrentUtilization >= t {
			out = append(out, Event{Type: EventThreshold, Budget: curr.Name, Snapshot: curr, Threshold: t})
		}
	}
	return out
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.nextSeq++
	ev.Seq = s.nextSeq
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

// Reload re-reads the budget list and polls immediately. On error the old
// budgets stay in effect.
func (s *Service) Reload(ctx context.Context) error {
	budgets, err := s.load()
	if err != nil {
		s.mu.Lock()
		s.lastError = fmt.Sprintf("config reload: %v", err)
		s.mu.Unlock()
		return fmt.Errorf("reloading budgets: %w", err)
	}

	s.mu.Lock()
	s.budgets = budgets
	s.reloads++
	s.mu.Unlock()

	s.log.Info("config reloaded", "budgets", len(budgets))
	s.pollOnce(ctx)
	return nil
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		Schedule:        s.cfg.Schedule,
		PollCount:       s.pollCount,
		ConfigReloads:   s.reloads,
		Days:            s.cfg.Days,
		Budgets:         s.budgetSnapshotsLocked(),
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
	if s.cron != nil {
		if entries := s.cron.Entries(); len(entries) > 0 {
			st.NextPollAt = entries[0].Next
		}
	}
	return st
}

// budgetSnapshotsLocked returns snapshots sorted by name without the full
// per-period status.
func (s *Service) budgetSnapshotsLocked() []BudgetSnapshot {
	out := make([]BudgetSnapshot, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		snap.Status = nil
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) findBudget(name string) (model.Budget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.budgets {
		if b.Name == name || (b.ID != "" && b.ID == name) {
			return b, true
		}
	}
	return model.Budget{}, false
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
