// Package ingest defines the dialect-agnostic surface the pipeline engine
// uses to establish, resume and tear down a job's resumption cursor.  Each
// supported source engine registers one PositionManager implementation.
package ingest

import (
	"context"

	"github.com/javens0601/cdcpos/pkg/position"
)

// SourceConn is a live connection to a source database.  Acquisition and
// release are scoped by the caller: acquire before the call, release after it
// returns, on every path.  Concrete managers narrow a SourceConn to their own
// driver's wrapper and fail if handed a connection for another dialect.
type SourceConn interface {
	// Identity returns a stable description of the connection's target
	// (host, port, database).  It must not perform I/O; repeated calls
	// across process restarts against the same target return the same
	// value, so derived resource names are reproducible.
	Identity() string
}

// PositionManager is the per-dialect capability contract.  Implementations
// hold no per-call state; the same instance may serve many connections and
// jobs concurrently.
type PositionManager interface {
	// Dialect returns the stable identifier this manager registers under.
	Dialect() string

	// ParsePosition decodes a previously persisted position string.  Pure,
	// no I/O; fails with position.ErrMalformedPosition on invalid input.
	ParsePosition(data string) (position.Position, error)

	// Init prepares a new job against the source: it derives the job's slot
	// name from suffix, creates the backing replication slot if it does not
	// already exist, and returns the current head-of-stream position the job
	// starts from.  Two callers racing to create the same slot both succeed;
	// the engine's duplicate-object rejection is the only serialization.
	// The created slot is durable and survives process crashes until
	// Destroy is called.
	Init(ctx context.Context, conn SourceConn, slotSuffix string) (position.Position, error)

	// Destroy releases the job's replication slot and whatever WAL retention
	// it was pinning.  Destroying a slot that does not exist is a no-op.
	Destroy(ctx context.Context, conn SourceConn, slotSuffix string) error
}
