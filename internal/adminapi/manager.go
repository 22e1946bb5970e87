// Package adminapi implements the admin surface of spec §6: eleven
// verbs, each keyed by connector name, each returning an integer
// status. Manager holds the in-memory bookkeeping (configs, rule
// stores, running supervisors); Server exposes it over HTTP with
// gorilla/mux, the way the teacher's engine.Server wraps an engine.Engine
// (services/serviceapi/internal/engine/server.go).
package adminapi

import (
	"context"
	"sync"

	"github.com/hornetlabs/synchdb/internal/connector"
	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/rulestore"
	"github.com/hornetlabs/synchdb/internal/status"
	"github.com/hornetlabs/synchdb/internal/typemap"
)

// Status codes returned by every admin verb (spec §6 "All return an
// integer status").
const (
	StatusOK             = 0
	StatusError          = 1
	StatusNotFound       = 2
	StatusInvalidState   = 3
	StatusAlreadyExists  = 4
	StatusAlreadyRunning = 5
)

// Launcher builds and does not run a Supervisor for cfg; the caller
// (Manager.Start) launches it in its own goroutine. Supplied by
// cmd/synchdb, which is the only place that knows how to wire a
// Producer and the shared Destination/Applier for a connector.
type Launcher func(ctx context.Context, cfg model.ConnectorConfig, registry *typemap.Registry, rules *rulestore.Store, ruleFile string) (*connector.Supervisor, error)

type connectorEntry struct {
	cfg      model.ConnectorConfig
	ruleFile string
	registry *typemap.Registry
	rules    *rulestore.Store

	sup    *connector.Supervisor
	cancel context.CancelFunc
}

// Manager is the business logic behind the admin surface; Server is a
// thin HTTP decoder/encoder in front of it.
type Manager struct {
	mu      sync.Mutex
	status  *status.Surface
	launch  Launcher
	entries map[string]*connectorEntry
}

// NewManager builds a Manager. launch may be nil if the caller only
// needs config/objmap bookkeeping without ever starting connectors
// (e.g. in tests).
func NewManager(st *status.Surface, launch Launcher) *Manager {
	return &Manager{
		status:  st,
		launch:  launch,
		entries: make(map[string]*connectorEntry),
	}
}

// AddConnInfo registers a new connector's configuration (admin verb
// add_conninfo). It does not start the connector; call Start
// separately.
func (m *Manager) AddConnInfo(cfg model.ConnectorConfig, ruleFile string) int {
	if err := cfg.Validate(); err != nil {
		return StatusError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[cfg.Name]; exists {
		return StatusAlreadyExists
	}
	if cfg.ExtraConnInfo == nil {
		cfg.ExtraConnInfo = make(map[string]string)
	}
	m.entries[cfg.Name] = &connectorEntry{
		cfg:      cfg,
		ruleFile: ruleFile,
		registry: typemap.NewRegistry(),
		rules:    rulestore.NewStore(),
	}
	return StatusOK
}

// DeleteConnInfo removes a connector's configuration (admin verb
// delete_conninfo). A running connector must be stopped first.
func (m *Manager) DeleteConnInfo(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[name]
	if !ok {
		return StatusNotFound
	}
	if e.sup != nil {
		return StatusInvalidState
	}
	delete(m.entries, name)
	return StatusOK
}

// AddExtraConnInfo sets one driver-specific connection parameter
// (admin verb add_extra_conninfo). Takes effect on the next Start.
func (m *Manager) AddExtraConnInfo(name, key, value string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[name]
	if !ok {
		return StatusNotFound
	}
	e.cfg.ExtraConnInfo[key] = value
	return StatusOK
}

// DeleteExtraConnInfo removes one extra connection parameter (admin
// verb delete_extra_conninfo).
func (m *Manager) DeleteExtraConnInfo(name, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[name]
	if !ok {
		return StatusNotFound
	}
	delete(e.cfg.ExtraConnInfo, key)
	return StatusOK
}

// AddObjMap registers a table/column name-map override (admin verb
// add_objmap), taking effect immediately since rulestore.Store is safe
// for concurrent use by a running supervisor.
func (m *Manager) AddObjMap(name string, kind rulestore.ObjectKind, source, destination string) int {
	m.mu.Lock()
	e, ok := m.entries[name]
	m.mu.Unlock()
	if !ok {
		return StatusNotFound
	}
	e.rules.SetObjectName(kind, source, destination)
	return StatusOK
}

// DeleteObjMap removes a name-map override (admin verb delete_objmap).
func (m *Manager) DeleteObjMap(name string, kind rulestore.ObjectKind, source string) int {
	m.mu.Lock()
	e, ok := m.entries[name]
	m.mu.Unlock()
	if !ok {
		return StatusNotFound
	}
	e.rules.DeleteObjectName(kind, source)
	return StatusOK
}

// Start launches the connector's supervisor goroutine (admin verb
// start).
func (m *Manager) Start(ctx context.Context, name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[name]
	if !ok {
		return StatusNotFound
	}
	if e.sup != nil {
		return StatusAlreadyRunning
	}
	if m.launch == nil {
		return StatusError
	}

	sup, err := m.launch(ctx, e.cfg, e.registry, e.rules, e.ruleFile)
	if err != nil {
		return StatusError
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.sup = sup
	e.cancel = cancel

	go func() {
		_ = sup.Run(runCtx)
		m.mu.Lock()
		e.sup = nil
		e.cancel = nil
		m.mu.Unlock()
	}()

	return StatusOK
}

// Stop requests a graceful shutdown (admin verb stop). The supervisor
// drains the request on its next iteration (spec §4.G).
func (m *Manager) Stop(name string) int {
	if !m.status.PostRequest(name, model.RequestStop, "") {
		return StatusError
	}
	return StatusOK
}

// Pause requests a transition to Paused (admin verb pause); only legal
// from Syncing (enforced by the supervisor itself).
func (m *Manager) Pause(name string) int {
	if !m.status.PostRequest(name, model.RequestPause, "") {
		return StatusError
	}
	return StatusOK
}

// Resume requests a transition back to Syncing (admin verb resume).
func (m *Manager) Resume(name string) int {
	if !m.status.PostRequest(name, model.RequestResume, "") {
		return StatusError
	}
	return StatusOK
}

// SetOffset requests an offset override (admin verb set_offset). The
// spec requires state == Paused; checked here for a precise status
// code and again by the supervisor before it acts.
func (m *Manager) SetOffset(name, offset string) int {
	snap, ok := m.status.GetStatus(name)
	if !ok {
		return StatusNotFound
	}
	if snap.State != model.StatePaused {
		return StatusInvalidState
	}
	if !m.status.PostRequest(name, model.RequestSetOffset, offset) {
		return StatusError
	}
	return StatusOK
}

// Snapshot exposes the connector's status for observers (not one of
// the eleven admin verbs, but needed by synchdbctl status/list).
func (m *Manager) Snapshot(name string) (status.Snapshot, int) {
	snap, ok := m.status.GetStatus(name)
	if !ok {
		return status.Snapshot{}, StatusNotFound
	}
	return snap, StatusOK
}

// Names lists every registered connector.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	return names
}
