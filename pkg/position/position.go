// Package position defines the resumption cursor used by streaming ingestion
// jobs.  A Position marks a point in a source database's change stream; a job
// persists its textual form and resumes from it after any restart.
package position

import "fmt"

var (
	// ErrMalformedPosition is returned when a persisted position string does
	// not decode for the dialect asked to parse it.
	ErrMalformedPosition = fmt.Errorf("ERR_POS_001: persisted position does not decode for this dialect")

	// ErrIncomparable is returned when two positions from different dialects
	// are compared.  Ordering is only defined within a single dialect.
	ErrIncomparable = fmt.Errorf("ERR_POS_002: positions from different dialects are not comparable")
)

// Position is an immutable, totally-ordered marker into a source engine's
// change stream.  Implementations are value types; a job never mutates a
// Position, it only replaces it with a newer one as the stream is read.
type Position interface {
	fmt.Stringer

	// Compare orders p against other within the same dialect, returning -1,
	// 0 or 1.  Comparing positions of different dialects returns
	// ErrIncomparable.
	Compare(other Position) (int, error)
}
