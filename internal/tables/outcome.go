package tables

import (
	"errors"
	"fmt"

	"tracker/internal/core"
)

// Status tags a load outcome.
type Status int

const (
	// Loaded means the resource was read and parsed.
	Loaded Status = iota
	// Missing means the resource does not exist yet.
	Missing
	// Malformed means the resource exists but could not be parsed.
	Malformed
	// Unreachable means the backend could not be contacted.
	Unreachable
)

func (s Status) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Missing:
		return "missing"
	case Malformed:
		return "malformed"
	case Unreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the tagged result of Loader.Load.
type Outcome struct {
	Status Status
	Table  core.Table
	Err    error
}

// LoadedTable wraps a parsed table.
func LoadedTable(t core.Table) Outcome { return Outcome{Status: Loaded, Table: t} }

// MissingTable reports a table that has never been written.
func MissingTable(name string) Outcome {
	return Outcome{Status: Missing, Table: core.Table{Name: name}}
}

// MalformedTable reports an unparseable resource. err is wrapped with
// ErrMalformed.
func MalformedTable(name string, err error) Outcome {
	if !errors.Is(err, ErrMalformed) {
		err = fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	}
	return Outcome{Status: Malformed, Table: core.Table{Name: name}, Err: err}
}

// UnreachableTable reports a backend failure. err is wrapped with
// ErrUnreachable.
func UnreachableTable(name string, err error) Outcome {
	if !errors.Is(err, ErrUnreachable) {
		err = fmt.Errorf("%w: %s: %w", ErrUnreachable, name, err)
	}
	return Outcome{Status: Unreachable, Table: core.Table{Name: name}, Err: err}
}

// OK reports whether the outcome is usable without a warning.
func (o Outcome) OK() bool { return o.Status == Loaded || o.Status == Missing }

// TableOrEmpty always returns a usable table; failures yield an empty one.
func (o Outcome) TableOrEmpty() core.Table {
	if o.Status == Loaded {
		return o.Table
	}
	return core.Table{Name: o.Table.Name}
}
