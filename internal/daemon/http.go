package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/pipeline"
	"github.com/theirongolddev/cloudburn/internal/trend"
)

// Handler returns the daemon's HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/budgets", s.handleBudgets)
	mux.HandleFunc("GET /v1/budgets/{name}", s.handleBudget)
	mux.HandleFunc("GET /v1/budgets/{name}/trend", s.handleTrend)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleBudgets(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := s.budgetSnapshotsLocked()
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleBudget(w http.ResponseWriter, r *http.Request) {
	b, ok := s.findBudget(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("budget %q not found", r.PathValue("name")))
		return
	}
	s.mu.RLock()
	snap, polled := s.snapshots[b.Name]
	s.mu.RUnlock()
	if !polled {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("budget %q not polled yet", b.Name))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleTrend computes a trend on demand. Query parameters: from, to
// (default: the daemon window), granularity (default week), resource_type,
// and until, which projects the series forward within the budget's periods.
func (s *Service) handleTrend(w http.ResponseWriter, r *http.Request) {
	b, ok := s.findBudget(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("budget %q not found", r.PathValue("name")))
		return
	}

	q := r.URL.Query()
	today := s.today()
	req := pipeline.TrendRequest{
		From:         today.AddDays(-s.cfg.Days),
		To:           today,
		Granularity:  calendar.Week,
		ResourceType: q.Get("resource_type"),
		Region:       s.cfg.Region,
		Account:      s.cfg.Account,
		Budget:       &b,
		Today:        today,
	}
	var err error
	if v := q.Get("from"); v != "" {
		if req.From, err = calendar.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if req.To, err = calendar.ParseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	if v := q.Get("granularity"); v != "" {
		if req.Granularity, err = calendar.ParseGranularity(v); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	res, err := pipeline.ComputeTrend(r.Context(), req, s.src,
		pipeline.WithLogger(s.log.With("budget", b.Name)))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	if v := q.Get("until"); v != "" {
		until, err := calendar.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		projected, err := trend.ProjectUntil(*res, until, &b)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		res = &projected
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshots immediately.
	now := time.Now()
	for _, snap := range s.snapshotStatus().Budgets {
		writeSSE(w, Event{Type: EventSnapshot, Timestamp: now, Budget: snap.Name, Snapshot: snap})
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	ev.Snapshot.Status = nil
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	if errors.Is(err, calendar.ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, trend.ErrComputation) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
