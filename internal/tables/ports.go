// Package tables defines the append-only table store ports implemented by
// every backend adapter, and the tagged load outcome they return.
package tables

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tracker/internal/core"
)

var (
	// ErrMalformed marks a resource that exists but cannot be parsed.
	ErrMalformed = errors.New("malformed table")
	// ErrUnreachable marks a backend that could not be contacted.
	ErrUnreachable = errors.New("backend unreachable")
	// ErrInvalidName is returned for table names no backend can address.
	ErrInvalidName = errors.New("invalid table name")
	// ErrNotMalformed is returned by Quarantine when the live resource is
	// readable again, typically because an append already recovered it.
	ErrNotMalformed = errors.New("table is not malformed")
)

// Ports for outbound adapters.
type (
	Loader interface {
		// Load fetches the full current contents of the named table.
		Load(ctx context.Context, name string) Outcome
	}

	Appender interface {
		// Append writes rows after the existing ones. Readers observe either
		// the previous or the new contents, never a partial write.
		Append(ctx context.Context, name string, rows []core.Row) error
	}

	// Quarantiner moves an unreadable resource aside so the table restarts
	// empty. It returns the name of the artifact left behind. The resource is
	// re-read under the table lock and left alone with ErrNotMalformed unless
	// it is still unreadable.
	Quarantiner interface {
		Quarantine(ctx context.Context, name string) (artifact string, err error)
	}

	// Store is the capability set every backend provides.
	Store interface {
		Loader
		Appender
	}
)

// ValidateName rejects names that cannot map to exactly one resource.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, `/\!:'`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
