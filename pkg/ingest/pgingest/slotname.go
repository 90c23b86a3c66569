package pgingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/javens0601/cdcpos/pkg/ingest"
)

const (
	slotPrefix = "cdcpos"

	// Postgres truncates replication slot names beyond NAMEDATALEN-1.
	maxSlotNameLen = 63
)

// SlotName derives the replication slot name for a job from the connection's
// target identity and the job's slot suffix.  The derivation is pure: the
// same (identity, suffix) pair always yields the same name, so a restarted
// job re-addresses its own slot, and distinct (identity, suffix) pairs never
// collide.  The trailing hash covers both identity and the full suffix, so
// the readable suffix token may be truncated to fit the name limit without
// losing uniqueness.
func SlotName(identity, suffix string) string {
	sum := xxhash.Sum64String(identity + "\x00" + suffix)
	hash := strconv.FormatUint(sum, 36)

	token := sanitizeSuffix(suffix)
	// prefix + "_" + token + "_" + hash must fit in maxSlotNameLen.
	if budget := maxSlotNameLen - len(slotPrefix) - len(hash) - 2; len(token) > budget {
		token = token[:budget]
	}
	return fmt.Sprintf("%s_%s_%s", slotPrefix, token, hash)
}

// DeriveSlotName derives the slot name for a live connection.  Identity is
// read from state already present on the connection; no query is issued.
func DeriveSlotName(conn ingest.SourceConn, suffix string) (string, error) {
	pc, err := narrow(conn)
	if err != nil {
		return "", err
	}
	return SlotName(pc.Identity(), suffix), nil
}

// sanitizeSuffix maps a job suffix onto the slot-name charset ([a-z0-9_]).
// Suffixes that differ only in case or punctuation sanitize to the same
// token; the pipeline requires suffixes distinct under this mapping.
func sanitizeSuffix(suffix string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, suffix)
}
