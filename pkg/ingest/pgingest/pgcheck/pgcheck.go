// Package pgcheck verifies that a PostgreSQL source is able to host a
// job's replication slot before the pipeline commits to it.  Checks run as a
// short-circuiting chain and report per-step results so callers can tell a
// misconfigured server from a missing slot.
package pgcheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	ErrLogicalReplicationNotSetUp = fmt.Errorf("ERR_PG_001: the source does not have logical replication configured; set wal_level to 'logical' to stream changes")
	ErrSlotNotFound               = fmt.Errorf("ERR_PG_002: the job's replication slot does not exist on the source")
)

// StepResult records one check's outcome.
type StepResult struct {
	Complete bool  `json:"complete"`
	Error    error `json:"error,omitempty"`
}

// Result reports each preflight step for a source connection.
type Result struct {
	LogicalReplication StepResult
	SlotPresent        StepResult
}

// Steps returns the step names in execution order.
func (r Result) Steps() []string {
	return []string{
		"logical_replication_enabled",
		"replication_slot_present",
	}
}

// Results maps step names to their outcomes.
func (r Result) Results() map[string]StepResult {
	return map[string]StepResult{
		"logical_replication_enabled": r.LogicalReplication,
		"replication_slot_present":    r.SlotPresent,
	}
}

type Opts struct {
	// Slot is the derived slot name to look for.  When empty the slot step
	// is skipped, checking server configuration only.
	Slot string

	// DecodePlugin filters the slot existence check; a slot created for a
	// different consumer does not count.
	DecodePlugin string
}

// Check runs the preflight chain against a live connection, returning the
// per-step results and the first failure.
func Check(ctx context.Context, conn *pgx.Conn, opts Opts) (Result, error) {
	c := checker{conn: conn, opts: opts}

	chain := []func(ctx context.Context) error{
		c.checkWAL,
	}
	if opts.Slot != "" {
		chain = append(chain, c.checkSlot)
	}
	for _, f := range chain {
		if err := f(ctx); err != nil {
			return c.res, err
		}
	}
	return c.res, nil
}

type checker struct {
	conn *pgx.Conn
	opts Opts

	res Result
}

func (c *checker) checkWAL(ctx context.Context) error {
	var mode string
	if err := c.conn.QueryRow(ctx, "SHOW wal_level").Scan(&mode); err != nil {
		c.res.LogicalReplication.Error = fmt.Errorf("error checking wal_level: %w", err)
		return c.res.LogicalReplication.Error
	}
	if mode != "logical" {
		c.res.LogicalReplication.Error = ErrLogicalReplicationNotSetUp
		return c.res.LogicalReplication.Error
	}
	c.res.LogicalReplication.Complete = true
	return nil
}

func (c *checker) checkSlot(ctx context.Context) error {
	row := c.conn.QueryRow(ctx,
		"SELECT slot_name FROM pg_replication_slots WHERE slot_name=$1 AND plugin=$2",
		c.opts.Slot, c.opts.DecodePlugin,
	)
	var name string
	err := row.Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		c.res.SlotPresent.Error = ErrSlotNotFound
		return c.res.SlotPresent.Error
	}
	if err != nil {
		c.res.SlotPresent.Error = fmt.Errorf("error checking replication slot %q: %w", c.opts.Slot, err)
		return c.res.SlotPresent.Error
	}
	c.res.SlotPresent.Complete = true
	return nil
}
