// Package merge decides, field by field, which pending writes a
// reconciliation applies: it resolves mapping rules against source items
// into target-shaped column writes and evaluates each rule's merge
// strategy against the target's current value.
package merge

import (
	"fmt"

	"github.com/meridianlabs/boardsync/pkg/boards"
)

// Strategy is the policy governing whether a field write is applied when
// the target record already exists.
type Strategy int

// Merge strategies.
const (
	// OnlyIfEmpty writes only when the target field's display text is
	// empty. The default: merging fills gaps, it does not clobber.
	OnlyIfEmpty Strategy = iota
	// Overwrite always writes.
	Overwrite
	// Skip never writes.
	Skip
	// Append is recognized in configuration but has no implementation;
	// it resolves exactly like Skip. The intended semantics were never
	// specified, so no append behavior is invented here.
	Append
)

// String returns the strategy's configuration spelling.
func (s Strategy) String() string {
	switch s {
	case OnlyIfEmpty:
		return "only_if_empty"
	case Overwrite:
		return "overwrite"
	case Skip:
		return "skip"
	case Append:
		return "append"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a configuration strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "only_if_empty":
		return OnlyIfEmpty, nil
	case "overwrite":
		return Overwrite, nil
	case "skip":
		return Skip, nil
	case "append":
		return Append, nil
	default:
		return OnlyIfEmpty, fmt.Errorf("unknown merge strategy %q", s)
	}
}

// ShouldUpdate reports whether a pending write is applied against the
// target's current column value. Emptiness is judged on display text
// alone; a stale structured payload behind empty text does not block the
// write, and non-empty text protects the field even when the payload is
// orphaned.
func ShouldUpdate(s Strategy, current *boards.ColumnValue) bool {
	switch s {
	case Overwrite:
		return true
	case OnlyIfEmpty:
		return current.IsEmpty()
	case Append:
		// Unimplemented, resolves like Skip.
		return false
	case Skip:
		return false
	default:
		return false
	}
}
