package pgingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/javens0601/cdcpos/pkg/ingest"
)

// Head-of-stream queries.  Postgres renamed the xlog functions to wal in 10.
const (
	currentLSNQueryLegacy = "SELECT PG_CURRENT_XLOG_LOCATION()"
	currentLSNQueryModern = "SELECT PG_CURRENT_WAL_LSN()"
)

// serverVersion is the source's reported version, read fresh on every init
// against a live connection.  It is never cached on the manager: one manager
// instance serves heterogeneous sources over its lifetime.
type serverVersion struct {
	major int
	minor int
	raw   string
}

// readServerVersion asks the server for its version.
func readServerVersion(ctx context.Context, conn *pgx.Conn) (serverVersion, error) {
	var raw string
	if err := conn.QueryRow(ctx, "SHOW server_version").Scan(&raw); err != nil {
		return serverVersion{}, fmt.Errorf("error reading server version: %w", err)
	}
	return parseServerVersion(raw)
}

// parseServerVersion parses strings such as "16.4", "9.6.24" or
// "12.3 (Debian 12.3-1)" down to major.minor.  Pre-release suffixes
// ("17beta1", "9.6rc1") are tolerated on either component; the leading
// digits decide.  A missing minor component parses as zero, matching how the
// server reports development versions.
func parseServerVersion(raw string) (serverVersion, error) {
	v := serverVersion{raw: raw}
	num, _, _ := strings.Cut(strings.TrimSpace(raw), " ")
	parts := strings.Split(num, ".")
	major, err := strconv.Atoi(leadingDigits(parts[0]))
	if err != nil {
		return v, fmt.Errorf("error parsing server version %q: %w", raw, err)
	}
	v.major = major
	if len(parts) > 1 {
		minor, err := strconv.Atoi(leadingDigits(parts[1]))
		if err != nil {
			return v, fmt.Errorf("error parsing server version %q: %w", raw, err)
		}
		v.minor = minor
	}
	return v, nil
}

func leadingDigits(s string) string {
	for i, r := range s {
		if r < '0' || r > '9' {
			return s[:i]
		}
	}
	return s
}

// currentLSNQuery selects the legal head-of-stream query for this server
// version.  Consulted on every init; versions below 9.6 have no logical
// replication and fail with UnsupportedVersionError.
func (v serverVersion) currentLSNQuery() (string, error) {
	switch {
	case v.major == 9 && v.minor >= 6:
		return currentLSNQueryLegacy, nil
	case v.major >= 10:
		return currentLSNQueryModern, nil
	default:
		return "", &ingest.UnsupportedVersionError{Version: v.raw}
	}
}
