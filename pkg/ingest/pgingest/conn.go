package pgingest

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/javens0601/cdcpos/pkg/ingest"
)

// Conn adapts a live pgx connection to the ingest.SourceConn contract.  The
// caller owns the underlying connection's lifetime; Conn never closes it.
type Conn struct {
	conn *pgx.Conn
}

var _ ingest.SourceConn = (*Conn)(nil)

// WrapConn wraps an established pgx connection for use with the PostgreSQL
// position manager.
func WrapConn(conn *pgx.Conn) *Conn {
	return &Conn{conn: conn}
}

// Identity returns "host:port/database" for the connection's target.  The
// values come from the connection config already held by pgx, so no round
// trip to the server is made.
func (c *Conn) Identity() string {
	cfg := c.conn.Config()
	return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
}

// PgConn returns the underlying pgx connection.
func (c *Conn) PgConn() *pgx.Conn {
	return c.conn
}

// narrow asserts that a dialect-agnostic SourceConn is a postgres connection.
func narrow(conn ingest.SourceConn) (*Conn, error) {
	pc, ok := conn.(*Conn)
	if !ok {
		return nil, fmt.Errorf("%w: want *pgingest.Conn, got %T", ingest.ErrWrongConnDialect, conn)
	}
	return pc, nil
}
