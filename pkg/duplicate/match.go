package duplicate

import (
	"strings"

	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/identity"
)

// MatchKind identifies which identity key produced a match.
type MatchKind int

// Match kinds, in descending reliability order.
const (
	// MatchNone means no duplicate was found.
	MatchNone MatchKind = iota
	// MatchEmail means the source email exists on a target item.
	MatchEmail
	// MatchReference means the source reference number exists on a target item.
	MatchReference
	// MatchSecondaryID means the secondary-id + name composite matched.
	MatchSecondaryID
	// MatchNameOnly means the normalized name matched exactly one target item.
	MatchNameOnly
	// MatchAmbiguousName means the normalized name matched several target
	// items. Terminal and non-actionable: the caller must log it and fall
	// through to create-new behavior, never pick a winner.
	MatchAmbiguousName
)

// String returns the match kind for logs and audit entries.
func (k MatchKind) String() string {
	switch k {
	case MatchNone:
		return "none"
	case MatchEmail:
		return "email"
	case MatchReference:
		return "reference"
	case MatchSecondaryID:
		return "secondary_id"
	case MatchNameOnly:
		return "name_only"
	case MatchAmbiguousName:
		return "name_only_ambiguous"
	default:
		return "unknown"
	}
}

// Result is the outcome of matching one source item against the index.
// For MatchAmbiguousName, Candidates carries every colliding target id
// and TargetID is empty.
type Result struct {
	Kind           MatchKind
	TargetID       string
	Email          string
	Reference      string
	SecondaryID    string
	NormalizedName string
	Candidates     []string
}

// Matched reports whether the result names a single usable target item.
func (r Result) Matched() bool {
	return r.Kind != MatchNone && r.Kind != MatchAmbiguousName
}

// Match finds the target duplicate of a source item, if any.
//
// Keys are tried in strict priority order and the first hit wins. The
// name-only fallback is only reached when the source item carries neither
// an email nor a reference number: a strong identifier that merely fails
// to find an index entry still suppresses name matching.
func Match(item *boards.Item, idx *Index, cols Columns) Result {
	name := strings.TrimSpace(item.Name)

	sourceEmail, _ := identity.Email(item.ColumnValue(cols.Email))
	sourceRef, _ := identity.ReferenceNumber(item.ColumnValue(cols.Reference))
	sourceSecondary := ""
	if cols.SecondaryID != "" {
		sourceSecondary = item.ColumnValue(cols.SecondaryID).TrimmedText()
	}

	if sourceEmail != "" {
		if entries := idx.byEmail[sourceEmail]; len(entries) > 0 {
			entry := entries[0]
			result := Result{
				Kind:     MatchEmail,
				TargetID: entry.ItemID,
				Email:    sourceEmail,
			}
			// Enrich with the reference number from whichever side has it.
			if entry.Reference != "" {
				result.Reference = entry.Reference
			} else {
				result.Reference = sourceRef
			}
			return result
		}
	}

	if sourceRef != "" {
		if entries := idx.byReference[sourceRef]; len(entries) > 0 {
			entry := entries[0]
			result := Result{
				Kind:      MatchReference,
				TargetID:  entry.ItemID,
				Reference: sourceRef,
			}
			if entry.Email != "" {
				result.Email = entry.Email
			} else {
				result.Email = sourceEmail
			}
			return result
		}
	}

	if sourceSecondary != "" && name != "" {
		key := compositeKey{
			secondaryID: strings.ToLower(sourceSecondary),
			name:        strings.ToLower(name),
		}
		if entry, ok := idx.bySecondaryName[key]; ok {
			result := Result{
				Kind:        MatchSecondaryID,
				TargetID:    entry.ItemID,
				SecondaryID: sourceSecondary,
			}
			if entry.Email != "" {
				result.Email = entry.Email
			} else {
				result.Email = sourceEmail
			}
			if entry.Reference != "" {
				result.Reference = entry.Reference
			} else {
				result.Reference = sourceRef
			}
			return result
		}
	}

	if sourceEmail == "" && sourceRef == "" && name != "" {
		norm := identity.NormalizeName(name)
		entries := idx.byName[norm]
		switch {
		case len(entries) == 1:
			return Result{
				Kind:           MatchNameOnly,
				TargetID:       entries[0].ItemID,
				NormalizedName: norm,
			}
		case len(entries) > 1:
			candidates := make([]string, 0, len(entries))
			for _, entry := range entries {
				candidates = append(candidates, entry.ItemID)
			}
			return Result{
				Kind:           MatchAmbiguousName,
				NormalizedName: norm,
				Candidates:     candidates,
			}
		}
	}

	return Result{Kind: MatchNone}
}
