// Package duplicate builds the duplicate-detection index over a target
// board and matches source items against it. Identity keys are ordered by
// reliability: email, then reference number, then the secondary-id+name
// composite, then the normalized name alone. The name-only fallback
// is only trusted when no stronger identifier exists on the source item
// and exactly one candidate matches.
package duplicate

import (
	"strings"

	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/identity"
	"github.com/meridianlabs/boardsync/pkg/logging"
)

// Columns names the identity-bearing columns consulted when deriving keys.
// SecondaryID is optional; an empty id disables the composite key.
type Columns struct {
	Email       string
	Reference   string
	SecondaryID string
}

// Entry is one indexed target item together with the identity values that
// were recovered for it. An entry appears once per derived key.
type Entry struct {
	ItemID      string `json:"target_item_id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Reference   string `json:"reference,omitempty"`
	SecondaryID string `json:"secondary_id,omitempty"`
}

// Index is a read-only snapshot of the target board keyed by identity.
// Collisions are preserved: every key maps to all items that derived it,
// in insertion order.
type Index struct {
	byEmail         map[string][]Entry
	byReference     map[string][]Entry
	bySecondaryName map[compositeKey]Entry
	byName          map[string][]Entry

	// items gives the merge engine direct access to current target
	// values without re-fetching.
	items map[string]*boards.Item

	// entries holds one entry per indexed item, in board order.
	entries []Entry
}

type compositeKey struct {
	secondaryID string
	name        string
}

// BuildIndex derives identity keys for every target item and indexes the
// items under each. The snapshot is never mutated afterwards: items the
// reconciler creates during a run are invisible to later lookups in the
// same run.
func BuildIndex(items []boards.Item, cols Columns) *Index {
	idx := &Index{
		byEmail:         make(map[string][]Entry),
		byReference:     make(map[string][]Entry),
		bySecondaryName: make(map[compositeKey]Entry),
		byName:          make(map[string][]Entry),
		items:           make(map[string]*boards.Item, len(items)),
	}

	for i := range items {
		item := &items[i]
		idx.items[item.ID] = item

		entry := Entry{ItemID: item.ID, Name: strings.TrimSpace(item.Name)}
		if email, ok := identity.Email(item.ColumnValue(cols.Email)); ok {
			entry.Email = email
		}
		if ref, ok := identity.ReferenceNumber(item.ColumnValue(cols.Reference)); ok {
			entry.Reference = ref
		}
		if cols.SecondaryID != "" {
			entry.SecondaryID = item.ColumnValue(cols.SecondaryID).TrimmedText()
		}

		if entry.Email != "" {
			idx.byEmail[entry.Email] = append(idx.byEmail[entry.Email], entry)
		}
		if entry.Reference != "" {
			idx.byReference[entry.Reference] = append(idx.byReference[entry.Reference], entry)
		}
		if entry.SecondaryID != "" && entry.Name != "" {
			key := compositeKey{
				secondaryID: strings.ToLower(entry.SecondaryID),
				name:        strings.ToLower(entry.Name),
			}
			if _, exists := idx.bySecondaryName[key]; !exists {
				idx.bySecondaryName[key] = entry
			}
		}
		if norm := identity.NormalizeName(entry.Name); norm != "" {
			idx.byName[norm] = append(idx.byName[norm], entry)
		}
		idx.entries = append(idx.entries, entry)
	}

	if emails, refs := idx.collisions(); emails > 0 || refs > 0 {
		logging.Warn().
			Int("email_collisions", emails).
			Int("reference_collisions", refs).
			Msg("target board holds duplicate identity keys")
	}

	return idx
}

// Item returns the indexed target item with the given id, or nil.
func (idx *Index) Item(id string) *boards.Item {
	return idx.items[id]
}

// Len returns the number of indexed target items.
func (idx *Index) Len() int {
	return len(idx.items)
}

// Entries returns one entry per indexed item, in board order.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Stats summarizes an index for reporting.
type Stats struct {
	Items               int `json:"items"`
	EmailKeys           int `json:"email_keys"`
	ReferenceKeys       int `json:"reference_keys"`
	CompositeKeys       int `json:"composite_keys"`
	NameKeys            int `json:"name_keys"`
	EmailCollisions     int `json:"email_collisions"`
	ReferenceCollisions int `json:"reference_collisions"`
}

// Stats returns key counts and collision counts for the index.
func (idx *Index) Stats() Stats {
	emails, refs := idx.collisions()
	return Stats{
		Items:               len(idx.items),
		EmailKeys:           len(idx.byEmail),
		ReferenceKeys:       len(idx.byReference),
		CompositeKeys:       len(idx.bySecondaryName),
		NameKeys:            len(idx.byName),
		EmailCollisions:     emails,
		ReferenceCollisions: refs,
	}
}

// collisions counts identity keys shared by more than one target item.
func (idx *Index) collisions() (emails, refs int) {
	for _, entries := range idx.byEmail {
		if len(entries) > 1 {
			emails++
		}
	}
	for _, entries := range idx.byReference {
		if len(entries) > 1 {
			refs++
		}
	}
	return emails, refs
}
