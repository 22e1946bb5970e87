// Package connector implements the Connector Supervisor (spec §4.G):
// one task per ConnectorConfig, owning the state machine, the event
// loop, and the shared-status slot. Modeled on the teacher's
// ServiceProcess lifecycle (cmd/supervisor/internal/manager/process.go)
// generalized from "manage one OS process" to "manage one long-running
// goroutine with cooperative pause/resume".
package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hornetlabs/synchdb/internal/apply"
	"github.com/hornetlabs/synchdb/internal/catalog"
	"github.com/hornetlabs/synchdb/internal/ddl"
	"github.com/hornetlabs/synchdb/internal/dml"
	"github.com/hornetlabs/synchdb/internal/errkind"
	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/rulestore"
	"github.com/hornetlabs/synchdb/internal/source"
	"github.com/hornetlabs/synchdb/internal/source/dbprobe"
	"github.com/hornetlabs/synchdb/internal/status"
	"github.com/hornetlabs/synchdb/internal/synclog"
	"github.com/hornetlabs/synchdb/internal/typemap"
)

// Deps bundles everything a Supervisor needs that is shared across
// connectors (status surface, applier, logger) or built once per
// connector at start (registry, rules, producer).
type Deps struct {
	Status *status.Surface

	// Applier and Cache must be the SAME DataCache instance the applier
	// was built with (apply.New(dest, cache)): ApplyDDL invalidates
	// entries on Cache, and processDML reads the same entries back via
	// dml.Translate. Two separate instances would silently desync,
	// leaving the DML path converting against a stale DataCache entry
	// after a DDL the Applier already invalidated (spec §4.D "Always
	// invalidate DataCache for the affected table before apply.").
	Applier   *apply.Applier
	Cache     *catalog.DataCache
	CatProbe  ddl.CatalogProbe
	CatLoader dml.CatalogLoader
	Logger    *synclog.Logger

	// SchemaProbe is only consulted when a connector's SnapshotMode is
	// "schemasync" (spec §3); nil for every other mode.
	SchemaProbe *dbprobe.Probe
}

// Supervisor runs one ConnectorConfig's event loop (spec §4.G).
type Supervisor struct {
	cfg  model.ConnectorConfig
	deps Deps

	registry *typemap.Registry
	rules    *rulestore.Store
	producer source.Producer

	pid     int
	wakeCh  chan struct{}
	stopCh  chan struct{}

	// schemaOnly is set once a schemasync bootstrap completes; from then
	// on the connector behaves like SnapshotNever (schema only, no
	// data), per the supplemented schemasync design (SPEC_FULL.md).
	schemaOnly bool
}

// New builds a Supervisor. registry and rules should already be
// loaded from the connector's rule file (spec §5: "built once at
// worker start from immutable sources, then read-only"). deps.Cache
// must be the exact instance deps.Applier was constructed with.
func New(cfg model.ConnectorConfig, deps Deps, registry *typemap.Registry, rules *rulestore.Store, producer source.Producer) *Supervisor {
	if deps.Cache == nil {
		deps.Cache = catalog.New()
	}
	return &Supervisor{
		cfg:      cfg,
		deps:     deps,
		registry: registry,
		rules:    rules,
		producer: producer,
		pid:      os.Getpid(),
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Notify wakes the loop early from its latch wait, e.g. right after an
// admin call posts a request (spec §5 "waking early on any latch set").
func (s *Supervisor) Notify() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Stop marks the per-task shutdown flag observed at the top of every
// iteration (spec §5 "Cancellation").
func (s *Supervisor) Stop() {
	close(s.stopCh)
	s.Notify()
}

// Run is the supervisor's event loop. It returns when Stop is called
// or a fatal error occurs.
func (s *Supervisor) Run(ctx context.Context) error {
	name := s.cfg.Name

	if err := s.deps.Status.Claim(name, s.pid); err != nil {
		return errkind.Wrap(errkind.Config, name, "connector.Run", err)
	}
	defer s.deps.Status.Release(name, s.pid)

	s.deps.Status.SetStage(name, model.StageUndef)
	s.deps.Status.ClearError(name)
	s.deps.Status.SetState(name, model.StateInitializing)
	s.deps.Status.SetSnapshotMode(name, s.cfg.SnapshotMode)

	if err := s.producer.Start(ctx); err != nil {
		s.deps.Status.SetError(name, err.Error())
		s.deps.Status.SetState(name, model.StateStopped)
		return errkind.Wrap(errkind.Producer, name, "connector.Run", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 100*time.Second)
		defer cancel()
		_ = s.producer.Stop(shutdownCtx)
	}()

	if s.cfg.SnapshotMode == model.SnapshotSchemaSync {
		if err := s.runSchemaSync(ctx, name); err != nil {
			s.deps.Status.SetError(name, err.Error())
			s.deps.Status.SetState(name, model.StateStopped)
			return errkind.Wrap(errkind.Catalog, name, "schemasync", err)
		}
		s.schemaOnly = true
	}

	s.deps.Status.SetState(name, model.StateSyncing)

	nap := time.Duration(s.cfg.NapInterval) * time.Second
	if nap <= 0 {
		nap = 5 * time.Second
	}

	for {
		select {
		case <-s.stopCh:
			s.deps.Status.SetState(name, model.StateStopped)
			return nil
		default:
		}

		s.handleRequest(ctx, name)

		snap, _ := s.deps.Status.GetStatus(name)
		if snap.State == model.StateSyncing {
			if err := s.runIteration(ctx, name); err != nil {
				if errkind.KindOf(err).Fatal() {
					s.deps.Status.SetError(name, err.Error())
					s.deps.Status.SetState(name, model.StateStopped)
					return err
				}
				s.deps.Status.SetError(name, err.Error())
			}
		}

		select {
		case <-s.stopCh:
			s.deps.Status.SetState(name, model.StateStopped)
			return nil
		case <-s.wakeCh:
		case <-time.After(nap):
		}
	}
}

// handleRequest drains one pending control request, if any, applying
// the state machine's allowed transitions (spec §4.G). The slot is
// always cleared, even for a rejected transition.
func (s *Supervisor) handleRequest(ctx context.Context, name string) {
	requested, data := s.deps.Status.DrainRequest(name)
	if requested == model.RequestNone {
		return
	}

	snap, _ := s.deps.Status.GetStatus(name)
	cur := snap.State

	switch requested {
	case model.RequestPause:
		if cur == model.StateSyncing {
			s.deps.Status.SetState(name, model.StatePaused)
		} else {
			s.warnf(name, "pause request ignored from state %s", cur)
		}
	case model.RequestResume:
		if cur == model.StatePaused {
			s.deps.Status.SetState(name, model.StateSyncing)
		} else {
			s.warnf(name, "resume request ignored from state %s", cur)
		}
	case model.RequestSetOffset:
		if cur != model.StatePaused {
			s.warnf(name, "set_offset request ignored from state %s", cur)
			return
		}
		s.deps.Status.SetState(name, model.StateOffsetUpdate)
		if err := s.producer.SetOffset(ctx, s.cfg.SourceDatabase, data, ""); err != nil {
			s.deps.Status.SetError(name, err.Error())
		} else {
			s.deps.Status.SetOffset(name, data)
		}
		s.deps.Status.SetState(name, model.StatePaused)
	case model.RequestReloadRules:
		s.deps.Status.SetState(name, model.StateReloadObjmap)
		s.deps.Status.SetState(name, cur)
	case model.RequestStop:
		s.Stop()
	default:
		s.warnf(name, "unhandled request %q ignored", requested)
	}
}

func (s *Supervisor) warnf(name, format string, args ...interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.Warn("connector %s: "+format, append([]interface{}{name}, args...)...)
	}
}

// runSchemaSync performs the one-shot direct-catalog-read bootstrap for
// SnapshotMode.SchemaSync (SPEC_FULL.md supplemented feature): every
// table visible to the source probe is translated into a synthetic
// CREATE DDLRecord and applied, then the connector transitions through
// SchemaSyncDone and subsequently runs schema-only (spec's "never"
// behavior) for the rest of its life.
func (s *Supervisor) runSchemaSync(ctx context.Context, name string) error {
	if s.deps.SchemaProbe == nil {
		return fmt.Errorf("schemasync requested but no schema probe is configured")
	}

	s.deps.Status.SetStage(name, model.StageSchemaSync)

	tables, err := s.deps.SchemaProbe.ListTables(ctx, s.cfg.SourceDatabase, s.cfg.IncludesTable)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	for _, table := range tables {
		schema, err := s.deps.SchemaProbe.TableSchema(ctx, s.cfg.SourceDatabase, table)
		if err != nil {
			return fmt.Errorf("table schema for %s: %w", table, err)
		}

		rec := model.DDLRecord{
			FQID:      schema.FQID,
			Kind:      model.DDLCreate,
			PKColumns: schema.PKColumns,
			Columns:   schema.Columns,
		}

		stmt, err := ddl.Translate(ctx, name, rec, s.cfg.SourceDatabase, s.cfg.SourceFlavor, s.registry, s.rules, s.deps.CatProbe)
		if err != nil {
			return fmt.Errorf("translate %s: %w", schema.FQID, err)
		}
		if err := s.deps.Applier.ApplyDDL(ctx, name, stmt); err != nil {
			return fmt.Errorf("apply %s: %w", schema.FQID, err)
		}
		s.deps.Status.MutateStats(name, func(st *status.Stats) { st.DDLOps++ })
	}

	s.deps.Status.SetState(name, model.StateSchemaSyncDone)
	return nil
}

// runIteration performs one fetch + process-all-events pass (spec
// §4.G step 2-3).
func (s *Supervisor) runIteration(ctx context.Context, name string) error {
	events, err := s.producer.FetchEvents(ctx)
	if err != nil {
		return errkind.Wrap(errkind.Producer, name, "fetch_events", err)
	}
	if len(events) == 0 {
		return nil
	}

	destFirst := time.Now()
	var sourceFirst, dbzFirst, sourceLast, dbzLast time.Time
	for i, raw := range events {
		ts := eventTimestamps([]byte(raw))
		if i == 0 {
			sourceFirst, dbzFirst = ts.source, ts.dbz
		}
		sourceLast, dbzLast = ts.source, ts.dbz
		s.processEvent(ctx, name, []byte(raw))
		// exit_on_error: recordFailure moved the connector to Stopped;
		// end the run here, leaving the offset at the failed batch.
		if snap, _ := s.deps.Status.GetStatus(name); snap.State == model.StateStopped {
			return fmt.Errorf("exit_on_error: %s", snap.LastErrorMsg)
		}
	}
	destLast := time.Now()

	s.deps.Status.MutateStats(name, func(st *status.Stats) {
		st.Batches++
		st.AvgBatchSize += (float64(len(events)) - st.AvgBatchSize) / float64(st.Batches)
		st.SourceFirstTimestamp = sourceFirst
		st.DBZFirstTimestamp = dbzFirst
		st.DestinationFirstTimestamp = destFirst
		st.SourceLastTimestamp = sourceLast
		st.DBZLastTimestamp = dbzLast
		st.DestinationLastTimestamp = destLast
	})

	// Advance the observable offset once the batch has been fully
	// applied, so last_offset reflects committed progress (spec §3
	// SharedStatus, §8 "after apply_dml commits, the persisted offset
	// is >= the pre-commit offset"). A failure here is non-fatal: the
	// batch already committed, so the iteration still succeeded.
	if offset, err := s.producer.GetOffset(ctx, s.cfg.SourceDatabase); err != nil {
		s.warnf(name, "get_offset after batch apply: %v", err)
	} else {
		s.deps.Status.SetOffset(name, offset)
	}

	return nil
}

// batchTimestamps holds the Debezium-style source-commit and
// dbz-processing times parsed out of one raw event.
type batchTimestamps struct {
	source time.Time
	dbz    time.Time
}

// eventTimestamps extracts payload.source.ts_ms and payload.ts_ms from
// raw (spec §3's source/dbz batch-latency timestamps). A malformed or
// missing field yields the zero time rather than an error: timestamp
// tracking is best-effort and must never block event processing.
func eventTimestamps(raw []byte) batchTimestamps {
	var probe struct {
		Payload struct {
			TsMs   int64 `json:"ts_ms"`
			Source struct {
				TsMs int64 `json:"ts_ms"`
			} `json:"source"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return batchTimestamps{}
	}

	var out batchTimestamps
	if probe.Payload.TsMs > 0 {
		out.dbz = time.UnixMilli(probe.Payload.TsMs)
	}
	if probe.Payload.Source.TsMs > 0 {
		out.source = time.UnixMilli(probe.Payload.Source.TsMs)
	}
	return out
}

// processEvent classifies one raw event and routes it to the DDL or
// DML translator, then to the applier. Per-event failures are handled
// according to the connector's error strategy and never abort the
// loop (spec §4.G "Failure policy").
func (s *Supervisor) processEvent(ctx context.Context, name string, raw []byte) {
	var probe struct {
		Payload struct {
			DDL    json.RawMessage `json:"ddl"`
			Op     string          `json:"op"`
			Source struct {
				Snapshot json.RawMessage `json:"snapshot"`
			} `json:"source"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		s.recordFailure(name, errkind.Wrap(errkind.Parse, name, "classify_event", err))
		return
	}

	s.deps.Status.MutateStats(name, func(st *status.Stats) { st.TotalEvents++ })

	isSnapshot := len(probe.Payload.Source.Snapshot) > 0 && strings.Trim(string(probe.Payload.Source.Snapshot), `"`) != "false"
	if isSnapshot {
		s.deps.Status.SetStage(name, model.StageInitialSnapshot)
	} else {
		s.deps.Status.SetStage(name, model.StageChangeDataCapture)
	}

	switch {
	case len(probe.Payload.DDL) > 0 || probe.Payload.Op == "":
		s.deps.Status.SetState(name, model.StateParsing)
		s.processDDL(ctx, name, raw)
	case s.schemaOnly:
		// schemasync already seeded the destination schema; per spec
		// §3 "never" semantics this connector applies schema only, no
		// row data, for the rest of its life.
	default:
		s.deps.Status.SetState(name, model.StateParsing)
		s.processDML(ctx, name, raw)
	}

	// A skip/retry failure leaves the connector running; an exit_on_error
	// failure already moved state to Stopped and must stay there.
	if snap, _ := s.deps.Status.GetStatus(name); snap.State != model.StateStopped {
		s.deps.Status.SetState(name, model.StateSyncing)
	}
}

func (s *Supervisor) processDDL(ctx context.Context, name string, raw []byte) {
	result, count, err := ddl.Parse(raw)
	if err != nil {
		s.recordFailure(name, errkind.Wrap(errkind.Parse, name, "ddl.Parse", err))
		return
	}
	if count > 1 && s.deps.Logger != nil {
		s.deps.Logger.Warn("connector %s: tableChanges had %d entries, only the first was applied (%d dropped)", name, count, count-1)
	}
	if result.NoChange {
		return
	}

	s.deps.Status.SetState(name, model.StateConverting)
	stmt, err := ddl.Translate(ctx, name, result.Record, s.cfg.SourceDatabase, s.cfg.SourceFlavor, s.registry, s.rules, s.deps.CatProbe)
	if err != nil {
		s.recordFailure(name, err)
		return
	}
	if stmt.RenamesIgnored > 0 {
		s.deps.Status.MutateStats(name, func(st *status.Stats) { st.RenamesIgnored += int64(stmt.RenamesIgnored) })
		s.warnf(name, "%d column(s) in %s.%s had no matching destination name and were not treated as renames", stmt.RenamesIgnored, stmt.Schema, stmt.Table)
	}

	s.deps.Status.SetState(name, model.StateExecuting)
	if err := s.deps.Applier.ApplyDDL(ctx, name, stmt); err != nil {
		s.recordFailure(name, err)
		return
	}
	s.deps.Status.MutateStats(name, func(st *status.Stats) { st.DDLOps++ })
}

func (s *Supervisor) processDML(ctx context.Context, name string, raw []byte) {
	parsed, err := dml.Parse(raw)
	if err != nil {
		s.recordFailure(name, errkind.Wrap(errkind.Parse, name, "dml.Parse", err))
		return
	}

	mode := dml.ModeTuple
	if s.cfg.SQLMode {
		mode = dml.ModeSQL
	}

	s.deps.Status.SetState(name, model.StateConverting)
	translated, err := dml.Translate(ctx, name, parsed, s.rules, s.deps.Cache, s.deps.CatLoader, mode)
	if err != nil {
		s.recordFailure(name, err)
		return
	}

	entry, _ := s.deps.Cache.Lookup(strings.ToLower(translated.Schema), strings.ToLower(translated.Table))

	s.deps.Status.SetState(name, model.StateExecuting)
	result, err := s.deps.Applier.ApplyDML(ctx, name, translated, entry.PKColumns, s.rules)
	if err != nil {
		s.recordFailure(name, err)
		return
	}

	s.deps.Status.MutateStats(name, func(st *status.Stats) {
		st.DMLOps++
		switch parsed.Op {
		case model.DMLRead:
			st.Reads++
		case model.DMLCreate:
			st.Inserts++
		case model.DMLUpdate:
			st.Updates++
		case model.DMLDelete:
			st.Deletes++
		}
	})

	if result.NotFound {
		verb := "update"
		if parsed.Op == model.DMLDelete {
			verb = "delete"
		}
		s.recordFailure(name, fmt.Errorf("tuple to %s not found", verb))
	}
}

// recordFailure applies the connector's configured error strategy
// (spec §4.G, §7): skip increments bad_events and continues; retry
// falls back to skip when the producer offers no redelivery; exit is
// fatal.
func (s *Supervisor) recordFailure(name string, err error) {
	s.deps.Status.MutateStats(name, func(st *status.Stats) { st.BadEvents++ })
	s.deps.Status.SetError(name, err.Error())

	if s.deps.Logger != nil {
		s.deps.Logger.Error("connector %s: %v", name, err)
	}

	if s.cfg.ErrorStrategy == model.ErrorStrategyExit {
		s.deps.Status.SetState(name, model.StateStopped)
	}
}
