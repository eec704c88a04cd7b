package merge

import (
	"strconv"

	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/transform"
)

// DeferredKind classifies writes that cannot ride along with the primary
// create call and must follow it as independent calls.
type DeferredKind int

// Deferred write kinds.
const (
	// DeferredFile is an attachment copied to the created item.
	DeferredFile DeferredKind = iota
	// DeferredEmail is an email column set after creation; the create
	// call does not accept email payloads reliably.
	DeferredEmail
)

// String returns the deferred kind for audit entries.
func (k DeferredKind) String() string {
	switch k {
	case DeferredFile:
		return "file"
	case DeferredEmail:
		return "email"
	default:
		return "unknown"
	}
}

// Write is one pending column write on the target item.
type Write struct {
	ColumnID string
	Value    any
}

// Deferred is one write applied after the primary create call succeeds.
// Each deferred write stands alone: its failure is a field-level failure
// and never rolls back the created record.
type Deferred struct {
	Kind     DeferredKind
	ColumnID string

	// File fields.
	AssetID  string
	Filename string

	// Email field.
	Email string
}

// Plan is the resolved set of writes for one source item.
type Plan struct {
	Writes   []Write
	Deferred []Deferred
}

// RelationWrite is the wire shape for board-relation column writes.
type RelationWrite struct {
	ItemIDs []int64 `json:"item_ids"`
}

// Mapper resolves mapping rules against source items into write plans.
type Mapper struct {
	registry *transform.Registry
	rules    []Rule

	// params holds each transform's configured parameter bag (label
	// dictionaries), keyed by transform name.
	params map[string]map[string]string
}

// NewMapper creates a mapper over the given rules and transform registry.
func NewMapper(registry *transform.Registry, rules []Rule, params map[string]map[string]string) *Mapper {
	return &Mapper{
		registry: registry,
		rules:    rules,
		params:   params,
	}
}

// PlanCreate resolves every active rule unconditionally: a new record has
// no current values to merge against. File and email columns become
// deferred writes.
func (m *Mapper) PlanCreate(item *boards.Item) Plan {
	var plan Plan

	for _, rule := range m.rules {
		if !rule.Active() {
			continue
		}

		cv := item.ColumnValue(rule.SourceColumn)
		decoded := cv.Decode()

		switch decoded.Kind {
		case boards.KindFile:
			if d, ok := deferredFile(rule.TargetColumn, decoded); ok {
				plan.Deferred = append(plan.Deferred, d)
			}
			continue
		case boards.KindEmail:
			if text := cv.TrimmedText(); text != "" {
				plan.Deferred = append(plan.Deferred, Deferred{
					Kind:     DeferredEmail,
					ColumnID: rule.TargetColumn,
					Email:    text,
				})
			}
			continue
		}

		if value, ok := m.resolve(rule, item, cv, decoded); ok {
			plan.Writes = append(plan.Writes, Write{ColumnID: rule.TargetColumn, Value: value})
		}
	}

	return plan
}

// PlanUpdate resolves rules against an existing target item, applying
// each rule's merge strategy to the target's current value. A value that
// resolves to absent produces no write; fields are never cleared.
// Attachments are not copied on update.
func (m *Mapper) PlanUpdate(item *boards.Item, target *boards.Item) Plan {
	var plan Plan

	for _, rule := range m.rules {
		if !rule.Active() {
			continue
		}

		current := target.ColumnValue(rule.TargetColumn)
		if !ShouldUpdate(rule.Strategy, current) {
			continue
		}

		cv := item.ColumnValue(rule.SourceColumn)
		decoded := cv.Decode()
		if decoded.Kind == boards.KindFile {
			continue
		}

		if value, ok := m.resolve(rule, item, cv, decoded); ok {
			plan.Writes = append(plan.Writes, Write{ColumnID: rule.TargetColumn, Value: value})
		}
	}

	return plan
}

// resolve produces the target-shaped value for one rule, via the rule's
// transform when present, else by reshaping the source payload.
func (m *Mapper) resolve(rule Rule, item *boards.Item, cv *boards.ColumnValue, decoded boards.Decoded) (any, bool) {
	if rule.Transform != "" {
		fn, ok := m.registry.Get(rule.Transform)
		if !ok {
			return nil, false
		}
		out, ok := fn(transform.Context{
			Item:         item,
			SourceColumn: rule.SourceColumn,
			Options:      rule.Options,
			ValueMapping: m.params[rule.Transform],
		})
		if !ok {
			return nil, false
		}
		return shapeTransformed(out)
	}

	if cv == nil {
		return nil, false
	}
	return shapePassthrough(cv, decoded)
}

// shapeTransformed converts a transform's result into the wire shape the
// target column expects, dispatching on the concrete result type.
func shapeTransformed(out any) (any, bool) {
	switch v := out.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return boards.DropdownValue{IDs: []int{v}}, true
	case []string:
		if len(v) == 0 {
			return nil, false
		}
		return boards.DropdownValue{Labels: v}, true
	case string:
		if v == "" {
			return nil, false
		}
		return v, true
	default:
		return nil, false
	}
}

// shapePassthrough reshapes an untransformed source value for the target
// column based on its decoded structural kind. Unrecognized payloads fall
// back to display text.
func shapePassthrough(cv *boards.ColumnValue, decoded boards.Decoded) (any, bool) {
	text := cv.TrimmedText()

	switch decoded.Kind {
	case boards.KindDate:
		if decoded.Date.Date != "" {
			return decoded.Date.Date, true
		}
	case boards.KindEmail:
		// The wire format requires the structured payload; a bare string
		// is rejected by the column.
		email := decoded.Email.Email
		if email == "" {
			email = text
		}
		if email == "" {
			return nil, false
		}
		value := boards.EmailValue{Email: email, Text: decoded.Email.Text}
		if value.Text == "" {
			value.Text = email
		}
		return value, true
	case boards.KindLink:
		return *decoded.Link, true
	case boards.KindStatus:
		return *decoded.Status, true
	case boards.KindDropdown:
		if len(decoded.Dropdown.IDs) > 0 {
			return boards.DropdownValue{IDs: decoded.Dropdown.IDs}, true
		}
	case boards.KindLocation:
		return *decoded.Location, true
	case boards.KindRelation:
		ids := make([]int64, 0, len(decoded.Relation.LinkedPulseIDs))
		for _, linked := range decoded.Relation.LinkedPulseIDs {
			if linked.LinkedPulseID != 0 {
				ids = append(ids, linked.LinkedPulseID)
			}
		}
		if len(ids) == 0 {
			return nil, false
		}
		return RelationWrite{ItemIDs: ids}, true
	case boards.KindPhone:
		phone := *decoded.Phone
		if phone.CountryShortName == "" {
			phone.CountryShortName = "DE"
		}
		return phone, true
	}

	if text == "" {
		return nil, false
	}
	// Text, numeric-as-string, and dropdowns carrying only labels.
	if decoded.Kind == boards.KindDropdown {
		return boards.DropdownValue{Labels: []string{text}}, true
	}
	return text, true
}

// deferredFile extracts the first attachment of a file payload.
func deferredFile(targetColumn string, decoded boards.Decoded) (Deferred, bool) {
	if decoded.File == nil || len(decoded.File.Files) == 0 {
		return Deferred{}, false
	}

	entry := decoded.File.Files[0]
	if entry.AssetID == "" {
		return Deferred{}, false
	}

	name := entry.Name
	if name == "" {
		name = "file"
	}

	return Deferred{
		Kind:     DeferredFile,
		ColumnID: targetColumn,
		AssetID:  entry.AssetID.String(),
		Filename: name,
	}, true
}
