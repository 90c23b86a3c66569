// Package pgingest implements the PostgreSQL ingest position manager.  Each
// job owns one logical replication slot on the source; the manager creates
// the slot on first init, resumes by decoding a persisted WAL position, and
// drops the slot on job removal.
package pgingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/javens0601/cdcpos/pkg/ingest"
	"github.com/javens0601/cdcpos/pkg/position"
	"github.com/javens0601/cdcpos/pkg/position/pgpos"
)

// Dialect is the identifier the PostgreSQL manager registers under.
const Dialect = "PostgreSQL"

// DefaultDecodePlugin is the logical decoding plugin slots are created with
// when Opts does not name one.
const DefaultDecodePlugin = "pgoutput"

// duplicateObjectCode is the SQLSTATE the server raises when a second caller
// races a slot creation.  Postgres has used 42710 for this since logical
// slots were introduced; isDuplicateObject is the single seam to update if a
// future major release changes it.
const duplicateObjectCode = "42710"

type Opts struct {
	// DecodePlugin is the logical decoding plugin tag used when creating
	// slots and when matching existing ones.  Defaults to
	// DefaultDecodePlugin.
	DecodePlugin string

	// Events receives slot lifecycle notices.  Optional; defaults to a
	// no-op sink.  Notices are observability only and never affect control
	// flow.
	Events ingest.Sink
}

// Manager is the PostgreSQL position manager.  It holds no per-call state
// and is safe for concurrent use across connections and jobs.
type Manager struct {
	plugin string
	events ingest.Sink
}

var _ ingest.PositionManager = (*Manager)(nil)

// New returns a PostgreSQL position manager.
func New(opts Opts) *Manager {
	if opts.DecodePlugin == "" {
		opts.DecodePlugin = DefaultDecodePlugin
	}
	if opts.Events == nil {
		opts.Events = ingest.NopSink()
	}
	return &Manager{
		plugin: opts.DecodePlugin,
		events: opts.Events,
	}
}

// Dialect implements ingest.PositionManager.
func (m *Manager) Dialect() string {
	return Dialect
}

// ParsePosition decodes a persisted WAL position string.  Pure; used when
// resuming a previously checkpointed job.
func (m *Manager) ParsePosition(data string) (position.Position, error) {
	return pgpos.Parse(data)
}

// Init derives the job's slot name, creates the slot if it does not already
// exist, and returns the source's current WAL head as the job's starting
// position.  A concurrent init racing the creation of the same slot is
// absorbed: the server's duplicate-object rejection is treated as success.
func (m *Manager) Init(ctx context.Context, conn ingest.SourceConn, slotSuffix string) (position.Position, error) {
	pc, err := narrow(conn)
	if err != nil {
		return nil, err
	}
	slot := SlotName(pc.Identity(), slotSuffix)
	if err := m.createSlotIfNotExists(ctx, pc.PgConn(), slot); err != nil {
		return nil, err
	}
	return m.currentPosition(ctx, pc.PgConn())
}

// Destroy drops the job's slot, releasing the WAL retention it pins.
// Destroying a slot that does not exist returns nil.
func (m *Manager) Destroy(ctx context.Context, conn ingest.SourceConn, slotSuffix string) error {
	pc, err := narrow(conn)
	if err != nil {
		return err
	}
	slot := SlotName(pc.Identity(), slotSuffix)

	exists, err := m.slotExists(ctx, pc.PgConn(), slot)
	if err != nil {
		return err
	}
	if !exists {
		m.events.Emit(ctx, ingest.Event{Name: ingest.EventSlotNotFound, Slot: slot})
		return nil
	}
	if _, err := pc.PgConn().Exec(ctx, "SELECT pg_drop_replication_slot($1)", slot); err != nil {
		return fmt.Errorf("error dropping replication slot %q: %w", slot, err)
	}
	m.events.Emit(ctx, ingest.Event{Name: ingest.EventSlotDropped, Slot: slot})
	return nil
}

func (m *Manager) createSlotIfNotExists(ctx context.Context, conn *pgx.Conn, slot string) error {
	exists, err := m.slotExists(ctx, conn, slot)
	if err != nil {
		return err
	}
	if exists {
		m.events.Emit(ctx, ingest.Event{Name: ingest.EventSlotExists, Slot: slot})
		return nil
	}

	_, err = conn.Exec(ctx, "SELECT pg_create_logical_replication_slot($1, $2)", slot, m.plugin)
	if err != nil {
		if isDuplicateObject(err) {
			// Another init won the create between our existence check and
			// now.  The slot is in the state we wanted; carry on.
			m.events.Emit(ctx, ingest.Event{Name: ingest.EventSlotCreateRaced, Slot: slot})
			return nil
		}
		return fmt.Errorf("error creating replication slot %q: %w", slot, err)
	}
	m.events.Emit(ctx, ingest.Event{Name: ingest.EventSlotCreated, Slot: slot})
	return nil
}

// slotExists reports whether a slot with this name and decode plugin exists.
// The plugin filter keeps a job from adopting a slot created for a different
// consumer.
func (m *Manager) slotExists(ctx context.Context, conn *pgx.Conn, slot string) (bool, error) {
	row := conn.QueryRow(ctx,
		"SELECT slot_name FROM pg_replication_slots WHERE slot_name=$1 AND plugin=$2",
		slot, m.plugin,
	)
	var name string
	err := row.Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking replication slot %q: %w", slot, err)
	}
	return true, nil
}

// currentPosition reads the source's WAL head with the query form legal for
// its version.
func (m *Manager) currentPosition(ctx context.Context, conn *pgx.Conn) (position.Position, error) {
	version, err := readServerVersion(ctx, conn)
	if err != nil {
		return nil, err
	}
	query, err := version.currentLSNQuery()
	if err != nil {
		return nil, err
	}
	var lsn string
	if err := conn.QueryRow(ctx, query).Scan(&lsn); err != nil {
		return nil, fmt.Errorf("error reading current WAL position: %w", err)
	}
	return pgpos.Parse(lsn)
}

// isDuplicateObject reports whether err is the server's machine-readable
// duplicate-object rejection.  Checked by SQLSTATE, never by message text.
func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == duplicateObjectCode
}
