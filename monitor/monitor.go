// Package monitor implements the visualizer/monitor of spec.md section
// 4.6: a bounded ring of snapshots of observed transitions (state value,
// event type and time; no context), running aggregates, a read-only
// time-travel cursor, and diagram export over the immutable
// statecore.Machine graph.
package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/fluxorio/statecore"
)

// Config mirrors spec.md's VisualizationConfig.
type Config struct {
	ShowGuards        bool
	ShowActions       bool
	ShowDescriptions  bool
	MaxHistory        int
	CaptureSnapshots  bool
	EnableTimeTravel  bool
}

// DefaultConfig matches the spec's default max_history of 100.
func DefaultConfig() Config {
	return Config{ShowGuards: true, ShowActions: true, MaxHistory: 100, CaptureSnapshots: true, EnableTimeTravel: true}
}

// Snapshot is one recorded transition together with the resulting state
// value, used by the time-travel cursor. Context is not filled in:
// TransitionEvent carries no context, so it stays nil.
type Snapshot struct {
	Index     int
	Value     statecore.StateValue
	Context   any
	EventType string
	At        time.Time
}

// Aggregates are the running statistics spec.md section 4.6 requires.
type Aggregates struct {
	TotalTransitions int
	ErrorCount       int
	AvgDuration      time.Duration
	StateVisits      map[statecore.StateId]int
	EventCounts      map[string]int
}

// Monitor subscribes to an statecore.EventBus and accumulates bounded
// history for time-travel. It never touches the live Instance: it sees
// only the events published on the bus.
type Monitor struct {
	cfg Config

	mu         sync.RWMutex
	snapshots  []Snapshot // bounded ring, oldest evicted first
	nextIndex  int
	cursor     int
	totalDur   time.Duration
	agg        Aggregates
}

// New creates a Monitor with cfg (use DefaultConfig() for spec defaults)
// and attaches it to bus.
func New(cfg Config, bus *statecore.EventBus) *Monitor {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 100
	}
	m := &Monitor{
		cfg: cfg,
		agg: Aggregates{StateVisits: make(map[statecore.StateId]int), EventCounts: make(map[string]int)},
	}
	bus.SubscribeTransitions(m.onTransition)
	bus.SubscribeErrors(m.onError)
	bus.SubscribePerformance(m.onPerformance)
	return m
}

func (m *Monitor) onTransition(ev statecore.TransitionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{Index: m.nextIndex, Value: ev.To, EventType: ev.EventType, At: ev.At}
	m.nextIndex++

	if m.cfg.CaptureSnapshots {
		m.snapshots = append(m.snapshots, snap)
		if len(m.snapshots) > m.cfg.MaxHistory {
			m.snapshots = m.snapshots[len(m.snapshots)-m.cfg.MaxHistory:]
		}
		m.cursor = len(m.snapshots) - 1
	}

	m.agg.TotalTransitions++
	m.agg.StateVisits[ev.To.Leaf()]++
	m.agg.EventCounts[ev.EventType]++
}

func (m *Monitor) onError(ev statecore.ErrorEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agg.ErrorCount++
}

func (m *Monitor) onPerformance(ev statecore.PerformanceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.agg.TotalTransitions
	if n == 0 {
		m.totalDur = ev.Duration
	} else {
		m.totalDur += ev.Duration
	}
	if n > 0 {
		m.agg.AvgDuration = m.totalDur / time.Duration(n)
	} else {
		m.agg.AvgDuration = m.totalDur
	}
}

// Stats returns a copy of the current running aggregates.
func (m *Monitor) Stats() Aggregates {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := Aggregates{
		TotalTransitions: m.agg.TotalTransitions,
		ErrorCount:       m.agg.ErrorCount,
		AvgDuration:      m.agg.AvgDuration,
		StateVisits:      make(map[statecore.StateId]int, len(m.agg.StateVisits)),
		EventCounts:      make(map[string]int, len(m.agg.EventCounts)),
	}
	for k, v := range m.agg.StateVisits {
		out.StateVisits[k] = v
	}
	for k, v := range m.agg.EventCounts {
		out.EventCounts[k] = v
	}
	return out
}

// ErrBeyondBounds is returned by the time-travel cursor operations when
// the requested index has no corresponding retained snapshot.
var ErrBeyondBounds = fmt.Errorf("monitor: cursor index beyond retained history bounds")

// GoBack moves the cursor one snapshot earlier and returns it.
func (m *Monitor) GoBack() (Snapshot, error) { return m.goTo(m.cursorUnlocked() - 1) }

// GoForward moves the cursor one snapshot later and returns it.
func (m *Monitor) GoForward() (Snapshot, error) { return m.goTo(m.cursorUnlocked() + 1) }

// GoToStart moves the cursor to the oldest retained snapshot.
func (m *Monitor) GoToStart() (Snapshot, error) { return m.goTo(0) }

// GoToEnd moves the cursor to the newest retained snapshot.
func (m *Monitor) GoToEnd() (Snapshot, error) {
	m.mu.RLock()
	last := len(m.snapshots) - 1
	m.mu.RUnlock()
	return m.goTo(last)
}

// GoTo moves the cursor to an absolute position within the retained ring.
func (m *Monitor) GoTo(index int) (Snapshot, error) { return m.goTo(index) }

func (m *Monitor) cursorUnlocked() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursor
}

func (m *Monitor) goTo(index int) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index >= len(m.snapshots) {
		return Snapshot{}, ErrBeyondBounds
	}
	m.cursor = index
	return m.snapshots[index], nil
}

// CursorPosition reports {current_index, total} for the time-travel
// cursor.
func (m *Monitor) CursorPosition() (current, total int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursor, len(m.snapshots)
}
