// Package source defines the Producer interface the core consumes
// (spec §6 "Producer interface (consumed)") and a subprocess-based
// implementation that reads newline-delimited JSON change events from
// an external capture process, grounded on the teacher's
// cmd/supervisor/internal/manager.ServiceProcess lifecycle
// (start/monitor/graceful-stop-then-kill).
//
// The interface is deliberately process-agnostic (spec §9): a future
// implementation could poll an HTTP stream or call into a native
// library instead. Message-broker-style producers (Kafka, Pub/Sub,
// Event Hubs, MQTT) are valid alternate implementations of this same
// interface; none is wired here because the worked examples in the
// specification all assume a Debezium-style embedded runner emitting
// NDJSON, not a broker topic.
package source

import "context"

// Producer is the upstream event source the connector supervisor
// pulls from (spec §6).
type Producer interface {
	// Start performs blocking initialization (spec: "start(config) ->
	// () — blocking init").
	Start(ctx context.Context) error

	// FetchEvents is a non-blocking pull that may return an empty
	// slice (spec: "fetch_events() -> [json_string]").
	FetchEvents(ctx context.Context) ([]string, error)

	// GetOffset returns the producer's opaque offset descriptor for db.
	GetOffset(ctx context.Context, db string) (string, error)

	// SetOffset installs a previously persisted offset.
	SetOffset(ctx context.Context, db, offset, file string) error

	// Stop is idempotent and bounded by the supervisor's shutdown
	// timeout (spec §5 "default 100 s").
	Stop(ctx context.Context) error
}
