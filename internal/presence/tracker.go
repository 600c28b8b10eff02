// Package presence keeps a live roster of actor executions from the event
// bus. Runs are keyed by execution id; a background reaper marks runs that
// started but never reported an end as stalled.
package presence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/troupe/internal/events"
)

// Run states.
const (
	StateRunning  = "running"
	StateFinished = "finished"
	StateFailed   = "failed"
	StateStalled  = "stalled"
)

// Entry is a single execution's state.
type Entry struct {
	ExecutionID string    `json:"execution_id"`
	Actor       string    `json:"actor"`
	Directory   string    `json:"directory,omitempty"`
	State       string    `json:"state"`
	StartedAt   time.Time `json:"started_at"`
	LastSeen    time.Time `json:"last_seen"`
	Produced    int       `json:"produced"`
	Errors      int       `json:"errors"`
	ExitCode    int       `json:"exit_code,omitempty"`
	Error       string    `json:"error,omitempty"`
	IdleSecs    float64   `json:"idle_secs"`
}

// ReaperConfig configures the background stall detector.
type ReaperConfig struct {
	// StallThreshold is how long a run may go without an end event before
	// it is marked stalled. Default: 15 minutes.
	StallThreshold time.Duration

	// EvictAfter is how long ended runs stay in the roster. Default: 30
	// minutes.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans. Default: 60 seconds.
	SweepInterval time.Duration

	// OnStalled is called outside the lock for each newly stalled run.
	OnStalled func(e Entry)
}

// Tracker maintains the roster.
type Tracker struct {
	mu   sync.RWMutex
	runs map[string]*runState

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type runState struct {
	actor     string
	directory string
	state     string
	startedAt time.Time
	lastSeen  time.Time
	endedAt   time.Time
	produced  int
	errors    int
	exitCode  int
	err       string
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{runs: make(map[string]*runState)}
}

// Record applies one bus event. Events other than run lifecycle events are
// ignored.
func (t *Tracker) Record(topic string, payload []byte) error {
	now := time.Now()
	switch topic {
	case events.TopicRunStarted:
		var ev events.RunStarted
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		t.update(ev.ExecutionID, now, func(s *runState) {
			s.actor, s.directory, s.state = ev.Actor, ev.Directory, StateRunning
			s.startedAt = now
		})
	case events.TopicRunFinished:
		var ev events.RunFinished
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		t.update(ev.ExecutionID, now, func(s *runState) {
			s.actor, s.state, s.endedAt = ev.Actor, StateFinished, now
			s.produced, s.errors = ev.Produced, ev.Errors
		})
	case events.TopicRunFailed:
		var ev events.RunFailed
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", topic, err)
		}
		t.update(ev.ExecutionID, now, func(s *runState) {
			s.actor, s.state, s.endedAt = ev.Actor, StateFailed, now
			s.exitCode, s.err = ev.ExitCode, ev.Error
		})
	}
	return nil
}

func (t *Tracker) update(id string, now time.Time, apply func(*runState)) {
	if id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.runs[id]
	if !ok {
		s = &runState{startedAt: now}
		t.runs[id] = s
	}
	if s.state == StateStalled {
		slog.Info("presence: stalled run reported again", "execution_id", id)
	}
	s.lastSeen = now
	apply(s)
}

// Roster returns a snapshot of the tracked runs, most recently active
// first. Runs idle for longer than staleThreshold are left out; 0 keeps
// every run.
func (t *Tracker) Roster(staleThreshold time.Duration) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := time.Now()
	entries := make([]Entry, 0, len(t.runs))
	for id, s := range t.runs {
		idle := now.Sub(s.lastSeen)
		if staleThreshold > 0 && idle > staleThreshold {
			continue
		}
		entries = append(entries, Entry{
			ExecutionID: id,
			Actor:       s.actor,
			Directory:   s.directory,
			State:       s.state,
			StartedAt:   s.startedAt,
			LastSeen:    s.lastSeen,
			Produced:    s.produced,
			Errors:      s.errors,
			ExitCode:    s.exitCode,
			Error:       s.err,
			IdleSecs:    idle.Seconds(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	return entries
}

// StartReaper launches the background stall detector. Call Stop to shut
// it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.StallThreshold == 0 {
		cfg.StallThreshold = 15 * time.Minute
	}
	if cfg.EvictAfter == 0 {
		cfg.EvictAfter = 30 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 60 * time.Second
	}

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})
	go t.reapLoop(cfg)
	slog.Debug("presence: reaper started", "stall_threshold", cfg.StallThreshold, "sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg, time.Now())
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig, now time.Time) {
	var stalled []Entry

	t.mu.Lock()
	for id, s := range t.runs {
		switch s.state {
		case StateRunning:
			if now.Sub(s.lastSeen) > cfg.StallThreshold {
				s.state = StateStalled
				s.endedAt = now
				stalled = append(stalled, Entry{ExecutionID: id, Actor: s.actor, Directory: s.directory, State: StateStalled, StartedAt: s.startedAt, LastSeen: s.lastSeen})
			}
		default:
			if !s.endedAt.IsZero() && now.Sub(s.endedAt) > cfg.EvictAfter {
				delete(t.runs, id)
			}
		}
	}
	t.mu.Unlock()

	for _, e := range stalled {
		slog.Warn("presence: run stalled", "execution_id", e.ExecutionID, "actor", e.Actor, "threshold", cfg.StallThreshold)
		if cfg.OnStalled != nil {
			cfg.OnStalled(e)
		}
	}
}
