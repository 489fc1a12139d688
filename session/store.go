package session

import (
	"encoding/json"
	"strings"

	"github.com/motrack/adminkit/principal"
)

// Snapshot is the persisted token/principal pair. It is written atomically as
// a unit: a session either exists in full or not at all.
type Snapshot struct {
	Token     string               `json:"token"`
	Principal *principal.Principal `json:"principal"`
}

// Store persists the single session across process restarts. Only the
// Manager writes to it; everything else reads the Manager's in-memory state.
//
// Load returns (nil, nil) when no session is persisted. Implementations must
// treat corrupted values as absent and remove them rather than fail: the
// console has shipped clients that wrote the literal strings "undefined" and
// "null" into storage.
type Store interface {
	Load() (*Snapshot, error)
	Save(snapshot *Snapshot) error
	Clear() error
}

// junkValues are raw stored values that must be read as "absent". They come
// from older clients serializing missing values verbatim.
var junkValues = map[string]bool{
	"":          true,
	"undefined": true,
	"null":      true,
}

// SanitizeValue maps known-junk raw stored values to the empty string.
func SanitizeValue(raw string) string {
	if junkValues[strings.TrimSpace(raw)] {
		return ""
	}
	return raw
}

// DecodePrincipal parses a stored principal value. It returns (nil, false)
// for junk or unparsable input so callers can self-heal by clearing the key.
func DecodePrincipal(raw string) (*principal.Principal, bool) {
	raw = SanitizeValue(raw)
	if raw == "" {
		return nil, false
	}
	var p principal.Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false
	}
	return &p, true
}
