// Package model holds the data types shared across the translation and
// supervision pipeline: connector configuration, the connector state
// machine, and the parsed DDL/DML record shapes that flow between the
// translators and the destination applier.
package model

import "fmt"

// SourceFlavor identifies the upstream relational engine a connector
// captures from.
type SourceFlavor string

const (
	MySQL     SourceFlavor = "mysql"
	SQLServer SourceFlavor = "sqlserver"
	Oracle    SourceFlavor = "oracle"
)

// Valid reports whether f is one of the three supported source flavors.
func (f SourceFlavor) Valid() bool {
	switch f {
	case MySQL, SQLServer, Oracle:
		return true
	}
	return false
}

// SnapshotMode governs whether the upstream producer replays historical
// rows before streaming live changes.
type SnapshotMode string

const (
	SnapshotInitial     SnapshotMode = "initial"
	SnapshotInitialOnly SnapshotMode = "initial_only"
	SnapshotNever       SnapshotMode = "never"
	SnapshotNoData      SnapshotMode = "no_data"
	SnapshotAlways      SnapshotMode = "always"
	SnapshotSchemaSync  SnapshotMode = "schemasync"
)

// ErrorStrategy controls what the connector loop does when a single
// event fails to parse, convert, or apply.
type ErrorStrategy string

const (
	ErrorStrategyExit  ErrorStrategy = "exit_on_error"
	ErrorStrategySkip  ErrorStrategy = "skip_on_error"
	ErrorStrategyRetry ErrorStrategy = "retry_on_error"
)

// ConnectorConfig is the immutable per-connector descriptor. It is
// created and destroyed by the admin surface and never mutated while a
// supervisor owns it (spec §3 Lifecycles).
type ConnectorConfig struct {
	Name                string
	SourceFlavor        SourceFlavor
	Host                string
	Port                int
	User                string
	Credential          string
	SourceDatabase      string
	DestinationDatabase string
	TableIncludeList    []string // empty = all tables
	SnapshotMode        SnapshotMode
	ErrorStrategy       ErrorStrategy
	SQLMode             bool // true = emit textual SQL, false = tuple mode
	NapInterval         int  // seconds, default 5

	// ExtraConnInfo holds driver-specific connection parameters beyond
	// the fixed host/port/user fields above (e.g. TLS options, JDBC-style
	// properties), managed independently via add_extra_conninfo /
	// delete_extra_conninfo (spec §6 admin surface).
	ExtraConnInfo map[string]string
}

// Validate checks the invariants a ConnectorConfig must satisfy before a
// supervisor can be started for it.
func (c *ConnectorConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("connector config: name is required")
	}
	if !c.SourceFlavor.Valid() {
		return fmt.Errorf("connector config %s: unsupported source flavor %q", c.Name, c.SourceFlavor)
	}
	if c.DestinationDatabase == "" {
		return fmt.Errorf("connector config %s: destination_database is required", c.Name)
	}
	switch c.SnapshotMode {
	case SnapshotInitial, SnapshotInitialOnly, SnapshotNever, SnapshotNoData, SnapshotAlways, SnapshotSchemaSync, "":
	default:
		return fmt.Errorf("connector config %s: unknown snapshot mode %q", c.Name, c.SnapshotMode)
	}
	return nil
}

// IncludesTable reports whether table is in scope for this connector. An
// empty TableIncludeList means "all tables".
func (c *ConnectorConfig) IncludesTable(table string) bool {
	if len(c.TableIncludeList) == 0 {
		return true
	}
	for _, t := range c.TableIncludeList {
		if t == table {
			return true
		}
	}
	return false
}

// ConnectorState is the supervisor's state machine (spec §3, §4.G).
type ConnectorState string

const (
	StateUndef          ConnectorState = "undef"
	StateStopped        ConnectorState = "stopped"
	StateInitializing   ConnectorState = "initializing"
	StatePaused         ConnectorState = "paused"
	StateSyncing        ConnectorState = "syncing"
	StateParsing        ConnectorState = "parsing"
	StateConverting     ConnectorState = "converting"
	StateExecuting      ConnectorState = "executing"
	StateOffsetUpdate   ConnectorState = "offset_update"
	StateRestarting     ConnectorState = "restarting"
	StateSchemaSyncDone ConnectorState = "schema_sync_done"
	StateReloadObjmap   ConnectorState = "reload_objmap"
)

// ConnectorStage is the coarse-grained progress reported to observers.
type ConnectorStage string

const (
	StageUndef             ConnectorStage = "undef"
	StageInitialSnapshot   ConnectorStage = "initial_snapshot"
	StageChangeDataCapture ConnectorStage = "change_data_capture"
	StageSchemaSync        ConnectorStage = "schema_sync"
)

// RequestedState is the set of state transitions an external controller
// may ask the supervisor for via the request slot.
type RequestedState string

const (
	RequestNone        RequestedState = ""
	RequestStart       RequestedState = "start"
	RequestStop        RequestedState = "stop"
	RequestPause       RequestedState = "pause"
	RequestResume      RequestedState = "resume"
	RequestSetOffset   RequestedState = "set_offset"
	RequestReloadRules RequestedState = "reload_objmap"
)
