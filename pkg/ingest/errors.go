package ingest

import "fmt"

var (
	// ErrUnsupportedDialect is returned by Registry.Lookup when no manager
	// is registered for the requested dialect.
	ErrUnsupportedDialect = fmt.Errorf("ERR_ING_001: no position manager registered for dialect")

	// ErrWrongConnDialect is returned when a manager is handed a SourceConn
	// belonging to another dialect.
	ErrWrongConnDialect = fmt.Errorf("ERR_ING_002: connection does not belong to this dialect")
)

// UnsupportedVersionError reports a source engine version for which no
// position-acquisition query form is known.  Fatal for the job; callers must
// not retry.
type UnsupportedVersionError struct {
	// Version is the version string exactly as the source reported it.
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("ERR_ING_003: unsupported source engine version: %s", e.Version)
}
