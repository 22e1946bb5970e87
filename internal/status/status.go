// Package status implements the Shared Status Surface (spec §4.H): a
// concurrent-safe table of per-connector state, pid, error, and offset
// for external observation and control. Grounded on the teacher's
// single-mutex-guarded registry idiom (pkg/anchor/adapter/registry.go),
// generalized here to a reader-writer lock because reads (admin
// status polls) vastly outnumber writes (one per processed batch).
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/hornetlabs/synchdb/internal/model"
)

// Stats mirrors spec §3's per-connector counters.
type Stats struct {
	DDLOps        int64
	DMLOps        int64
	Reads         int64
	Inserts       int64
	Updates       int64
	Deletes       int64
	BadEvents     int64
	TotalEvents   int64
	Batches       int64
	AvgBatchSize  float64
	RenamesIgnored int64 // supplemented counter; see DESIGN.md column-rename decision

	// The six last-batch latency timestamps (spec §3 SharedStatus):
	// source/dbz timestamps come from the Debezium envelope
	// (payload.source.ts_ms, payload.ts_ms) of the first and last event
	// in the most recently processed batch; destination timestamps are
	// wall-clock, captured around the batch's apply loop.
	SourceFirstTimestamp      time.Time
	DBZFirstTimestamp         time.Time
	DestinationFirstTimestamp time.Time
	SourceLastTimestamp       time.Time
	DBZLastTimestamp          time.Time
	DestinationLastTimestamp  time.Time
}

// Snapshot is a point-in-time, lock-free copy of one connector's
// status (spec §4.H "Snapshots are copied out under lock to avoid
// retaining references.").
type Snapshot struct {
	Name             string
	PID              int
	State            model.ConnectorState
	Stage            model.ConnectorStage
	LastErrorMsg     string
	LastOffsetString string
	SnapshotMode     model.SnapshotMode
	Stats            Stats
}

// requestSlot is the single-slot mailbox of spec §3: RequestedState ==
// RequestNone means empty.
type requestSlot struct {
	requestedState model.RequestedState
	requestData    string
}

type entry struct {
	pid              int
	state            model.ConnectorState
	stage            model.ConnectorStage
	lastErrorMsg     string
	lastOffsetString string
	snapshotMode     model.SnapshotMode
	stats            Stats
	request          requestSlot
}

// Surface is the process-wide status table, one entry per connector
// name, guarded by a single reader-writer lock (spec §4.H).
type Surface struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty status surface.
func New() *Surface {
	return &Surface{entries: make(map[string]*entry)}
}

func (s *Surface) ensure(name string) *entry {
	if e, ok := s.entries[name]; ok {
		return e
	}
	e := &entry{state: model.StateUndef, stage: model.StageUndef}
	s.entries[name] = e
	return e
}

// Claim acquires the status slot for name under pid, failing if
// another live pid already holds it (spec §4.G "fails with an error if
// another pid already holds it").
func (s *Surface) Claim(name string, pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(name)
	if e.pid != 0 && e.pid != pid {
		return fmt.Errorf("status: connector %s already claimed by pid %d", name, e.pid)
	}
	e.pid = pid
	return nil
}

// Release clears pid and sets Stopped, but only if callerPID still
// owns the slot (spec §4.G "On a process-exit hook, if the current pid
// owns the slot, clear it regardless of exit reason.").
func (s *Surface) Release(name string, callerPID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok || e.pid != callerPID {
		return
	}
	e.pid = 0
	e.state = model.StateStopped
}

// GetStatus returns a Snapshot for name (spec §4.H "shared lock").
func (s *Surface) GetStatus(name string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Name:             name,
		PID:              e.pid,
		State:            e.state,
		Stage:            e.stage,
		LastErrorMsg:     e.lastErrorMsg,
		LastOffsetString: e.lastOffsetString,
		SnapshotMode:     e.snapshotMode,
		Stats:            e.stats,
	}, true
}

// SetState, SetStage, SetError, and SetOffset all take the exclusive
// lock (spec §4.H).
func (s *Surface) SetState(name string, state model.ConnectorState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(name).state = state
}

func (s *Surface) SetStage(name string, stage model.ConnectorStage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(name).stage = stage
}

func (s *Surface) SetError(name string, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(name).lastErrorMsg = msg
}

func (s *Surface) ClearError(name string) {
	s.SetError(name, "")
}

func (s *Surface) SetOffset(name string, offset string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(name).lastOffsetString = offset
}

func (s *Surface) SetSnapshotMode(name string, mode model.SnapshotMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(name).snapshotMode = mode
}

// MutateStats applies fn to the connector's stats counters under the
// exclusive lock, so callers can do read-modify-write increments
// (e.g. bad_events += 1) without a lock of their own.
func (s *Surface) MutateStats(name string, fn func(*Stats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.ensure(name).stats)
}

// PostRequest fills the request slot for name, rejecting if it is
// already occupied (spec §4.H "rejects if slot occupied").
func (s *Surface) PostRequest(name string, requested model.RequestedState, data string) (ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(name)
	if e.request.requestedState != model.RequestNone {
		return false
	}
	e.request = requestSlot{requestedState: requested, requestData: data}
	return true
}

// DrainRequest atomically reads and clears the request slot (spec §8
// invariant: "no request persists across two iterations").
func (s *Surface) DrainRequest(name string) (requested model.RequestedState, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.ensure(name)
	requested, data = e.request.requestedState, e.request.requestData
	e.request = requestSlot{}
	return requested, data
}
