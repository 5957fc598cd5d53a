package store

import "github.com/oklog/ulid/v2"

// newID returns a prefixed ULID, e.g. "p_01J8ZQ4T9GV0B3...". The prefix makes
// ids self-describing in logs and admin views.
func newID(prefix string) string {
	return prefix + ulid.Make().String()
}
