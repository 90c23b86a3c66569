package pgingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/javens0601/cdcpos/internal/test"
	"github.com/javens0601/cdcpos/pkg/ingest"
)

func TestLifecycle(t *testing.T) {
	t.Parallel()
	versions := []int{10, 12, 14, 16}

	for _, version := range versions {
		v := version // loop capture

		t.Run(fmt.Sprintf("init, resume and destroy - Postgres %d", v), func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			c, cfg := test.StartPG(t, ctx, test.StartPGOpts{Version: v})
			defer func() { _ = c.Stop(ctx, nil) }()
			conn := test.Connect(t, ctx, cfg)
			source := WrapConn(conn)

			m := New(Opts{})
			suffix := "migr-01"
			slot := SlotName(source.Identity(), suffix)

			// A fresh source has no slot for this job.
			require.False(t, slotExistsByName(t, ctx, conn, slot))

			p0, err := m.Init(ctx, source, suffix)
			require.NoError(t, err)
			require.True(t, slotExistsByName(t, ctx, conn, slot))

			// Persist, "restart", resume: the persisted string decodes to an
			// equal position.
			persisted := p0.String()
			resumed, err := m.ParsePosition(persisted)
			require.NoError(t, err)
			require.Equal(t, p0, resumed)

			cmp, err := resumed.Compare(p0)
			require.NoError(t, err)
			require.Equal(t, 0, cmp)

			require.NoError(t, m.Destroy(ctx, source, suffix))
			require.False(t, slotExistsByName(t, ctx, conn, slot))
		})
	}
}

func TestInitIdempotent(t *testing.T) {
	t.Parallel()
	versions := []int{12, 16}

	for _, version := range versions {
		v := version // loop capture

		t.Run(fmt.Sprintf("second init succeeds - Postgres %d", v), func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			c, cfg := test.StartPG(t, ctx, test.StartPGOpts{Version: v})
			defer func() { _ = c.Stop(ctx, nil) }()
			conn := test.Connect(t, ctx, cfg)
			source := WrapConn(conn)

			var (
				mu     sync.Mutex
				events []ingest.Event
			)
			m := New(Opts{
				Events: ingest.SinkFunc(func(_ context.Context, evt ingest.Event) {
					mu.Lock()
					events = append(events, evt)
					mu.Unlock()
				}),
			})
			suffix := uuid.NewString()

			p0, err := m.Init(ctx, source, suffix)
			require.NoError(t, err)

			// The slot already exists, so the second init must not fail and
			// must return a position at or after the first.
			p1, err := m.Init(ctx, source, suffix)
			require.NoError(t, err)

			cmp, err := p1.Compare(p0)
			require.NoError(t, err)
			require.GreaterOrEqual(t, cmp, 0)

			mu.Lock()
			require.Len(t, events, 2)
			require.Equal(t, ingest.EventSlotCreated, events[0].Name)
			require.Equal(t, ingest.EventSlotExists, events[1].Name)
			mu.Unlock()

			require.NoError(t, m.Destroy(ctx, source, suffix))
		})
	}
}

func TestInitCreateRace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, cfg := test.StartPG(t, ctx, test.StartPGOpts{Version: 16})
	defer func() { _ = c.Stop(ctx, nil) }()
	conn := test.Connect(t, ctx, cfg)
	source := WrapConn(conn)

	m := New(Opts{})
	suffix := uuid.NewString()
	slot := SlotName(source.Identity(), suffix)

	// Create the slot out of band with a different decode plugin.  The
	// existence check filters by plugin and misses it, so init's create hits
	// the server's duplicate-object rejection, which must be absorbed.
	_, err := conn.Exec(ctx,
		"SELECT pg_create_logical_replication_slot($1, $2)", slot, "test_decoding")
	require.NoError(t, err)

	p, err := m.Init(ctx, source, suffix)
	require.NoError(t, err)
	require.NotEmpty(t, p.String())
}

func TestDestroyIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c, cfg := test.StartPG(t, ctx, test.StartPGOpts{Version: 14})
	defer func() { _ = c.Stop(ctx, nil) }()
	conn := test.Connect(t, ctx, cfg)
	source := WrapConn(conn)

	m := New(Opts{})
	suffix := uuid.NewString()

	// Destroying a slot that never existed is a no-op.
	require.NoError(t, m.Destroy(ctx, source, suffix))

	_, err := m.Init(ctx, source, suffix)
	require.NoError(t, err)

	// Destroying twice in a row is equally successful.
	require.NoError(t, m.Destroy(ctx, source, suffix))
	require.NoError(t, m.Destroy(ctx, source, suffix))
	require.False(t, slotExistsByName(t, ctx, conn, SlotName(source.Identity(), suffix)))
}

type notAPostgresConn struct{}

func (notAPostgresConn) Identity() string { return "other://host" }

func TestWrongConnDialect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := New(Opts{})
	_, err := m.Init(ctx, notAPostgresConn{}, "jobA")
	require.ErrorIs(t, err, ingest.ErrWrongConnDialect)

	err = m.Destroy(ctx, notAPostgresConn{}, "jobA")
	require.ErrorIs(t, err, ingest.ErrWrongConnDialect)
}

func TestParsePositionMalformed(t *testing.T) {
	t.Parallel()

	m := New(Opts{})
	_, err := m.ParsePosition("not-an-lsn")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "not-an-lsn"))
}

func TestIsDuplicateObject(t *testing.T) {
	t.Parallel()

	require.True(t, isDuplicateObject(&pgconn.PgError{Code: "42710"}))
	require.True(t, isDuplicateObject(fmt.Errorf("creating slot: %w", &pgconn.PgError{Code: "42710"})))
	require.False(t, isDuplicateObject(&pgconn.PgError{Code: "42P01"}))
	// Message text never decides; only the SQLSTATE does.
	require.False(t, isDuplicateObject(errors.New(`ERROR: replication slot "x" already exists (SQLSTATE 42710)`)))
}

func slotExistsByName(t *testing.T, ctx context.Context, conn *pgx.Conn, slot string) bool {
	t.Helper()
	var name string
	err := conn.QueryRow(ctx,
		"SELECT slot_name FROM pg_replication_slots WHERE slot_name=$1", slot,
	).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}
	require.NoError(t, err)
	return true
}
