// Package test starts throwaway postgres containers for integration tests.
package test

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	pgtc "github.com/testcontainers/testcontainers-go/modules/postgres"
)

type StartPGOpts struct {
	Version                   int
	DisableLogicalReplication bool
}

// StartPG runs a postgres container for the given major version, returning
// the container and a connection config for the superuser.  Slot lifecycle
// is left to each test; no slots or publications are pre-created.
func StartPG(t *testing.T, ctx context.Context, opts StartPGOpts) (tc.Container, pgx.ConnConfig) {
	t.Helper()
	args := []tc.ContainerCustomizer{
		pgtc.WithDatabase("db"),
		pgtc.WithUsername("postgres"),
		pgtc.WithPassword("password"),
		pgtc.BasicWaitStrategies(),
	}
	if !opts.DisableLogicalReplication {
		args = append(args, tc.CustomizeRequest(tc.GenericContainerRequest{
			ContainerRequest: tc.ContainerRequest{
				Cmd: []string{"-c", "wal_level=logical"},
			},
		}))
	}
	c, err := pgtc.Run(ctx,
		fmt.Sprintf("docker.io/postgres:%d-alpine", opts.Version),
		args...,
	)
	require.NoError(t, err)

	return c, connOpts(t, c)
}

// Connect opens a pgx connection to the container's database.
func Connect(t *testing.T, ctx context.Context, cfg pgx.ConnConfig) *pgx.Conn {
	t.Helper()
	conn, err := pgx.ConnectConfig(ctx, &cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close(context.Background())
	})
	return conn
}

func connOpts(t *testing.T, c tc.Container) pgx.ConnConfig {
	t.Helper()
	host, err := c.Host(context.Background())
	require.NoError(t, err)
	port, err := c.MappedPort(context.Background(), "5432/tcp")
	require.NoError(t, err)

	cfg, err := pgx.ParseConfig(fmt.Sprintf("postgres://postgres:password@%s:%d/db", host, port.Int()))
	require.NoError(t, err)
	return *cfg
}
