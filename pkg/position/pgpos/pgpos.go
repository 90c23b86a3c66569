// Package pgpos implements the PostgreSQL WAL position.  The textual form is
// the server's own LSN rendering, a "<hi>/<lo>" hexadecimal pair, and
// round-trips exactly through Parse and String.
package pgpos

import (
	"fmt"

	"github.com/jackc/pglogrepl"

	"github.com/javens0601/cdcpos/pkg/position"
)

// Position wraps a WAL log sequence number.
type Position struct {
	lsn pglogrepl.LSN
}

var _ position.Position = Position{}

// New returns the Position for the given LSN.
func New(lsn pglogrepl.LSN) Position {
	return Position{lsn: lsn}
}

// Parse decodes a persisted "<hi>/<lo>" LSN string.
func Parse(data string) (Position, error) {
	lsn, err := pglogrepl.ParseLSN(data)
	if err != nil {
		return Position{}, fmt.Errorf("%w: %q: %v", position.ErrMalformedPosition, data, err)
	}
	return Position{lsn: lsn}, nil
}

// LSN returns the underlying log sequence number.
func (p Position) LSN() pglogrepl.LSN {
	return p.lsn
}

func (p Position) String() string {
	return p.lsn.String()
}

// Compare orders p against other.  The other position must also be a
// PostgreSQL WAL position.
func (p Position) Compare(other position.Position) (int, error) {
	o, ok := other.(Position)
	if !ok {
		return 0, fmt.Errorf("%w: %T", position.ErrIncomparable, other)
	}
	switch {
	case p.lsn < o.lsn:
		return -1, nil
	case p.lsn > o.lsn:
		return 1, nil
	default:
		return 0, nil
	}
}
