package domain

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
)

// Backend selects the storage behind a dataset.
type Backend int

const (
	// BackendDefault is the in-memory store.
	BackendDefault Backend = iota
	// BackendOxigraph forwards to a running Oxigraph server.
	BackendOxigraph
	// BackendBadger is the embedded on-disk store.
	BackendBadger
	// BackendCottas is the read-only columnar store. It is chosen by file extension, never by name.
	BackendCottas
)

var backendNames = map[Backend]string{
	BackendDefault:  "default",
	BackendOxigraph: "oxigraph",
	BackendBadger:   "badger",
	BackendCottas:   "cottas",
}

// SelectableBackends lists the names accepted by --store.
var SelectableBackends = []Backend{BackendDefault, BackendOxigraph, BackendBadger}

func (b Backend) String() string {
	if name, ok := backendNames[b]; ok {
		return name
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

// MarshalText renders the backend name for config dumps.
func (b Backend) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// ParseBackend maps a --store value to a Backend. Matching ignores case.
// An unknown name yields a ValidationError that suggests the closest known name.
func ParseBackend(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "memory" {
		return BackendDefault, nil
	}
	for _, b := range SelectableBackends {
		if backendNames[b] == name {
			return b, nil
		}
	}

	msg := fmt.Sprintf("unknown store %q", name)
	if suggestion := suggestBackend(name); suggestion != "" {
		msg += fmt.Sprintf(", did you mean %q?", suggestion)
	}
	return BackendDefault, NewValidationError("store", msg)
}

// suggestBackend returns the closest selectable backend name, or "" if none is close.
func suggestBackend(name string) string {
	best, bestDist := "", -1
	for _, b := range SelectableBackends {
		candidate := backendNames[b]
		dist := levenshtein.Distance(name, candidate, nil)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = candidate, dist
		}
	}
	if bestDist > 3 {
		return ""
	}
	return best
}
