// Package transform provides the registry of named column transforms used
// by the merge engine to convert source-shaped values into target-shaped
// values. Every transform is pure and deterministic: identical inputs and
// registry tables always produce identical outputs, and a transform that
// cannot produce a value reports absence instead of failing.
//
// Transforms return one of a small set of concrete types, which the merge
// engine shapes for the target column:
//
//	float64  -> numeric column (rendered as a string)
//	int      -> dropdown column by option id
//	[]string -> dropdown column by labels
//	string   -> text column
package transform

import (
	"sort"

	"github.com/meridianlabs/boardsync/pkg/boards"
)

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Tables holds the fixed lookup data transforms consult. Injected at
// construction so tests can substitute small fixtures instead of the
// full deployment tables.
type Tables struct {
	// Cities maps reference city names to coordinates for nearest-city
	// resolution.
	Cities map[string]Coordinates

	// Countries is the valid-category list for country label mapping.
	Countries []string

	// GenderLabels maps known gender labels (matched case-insensitively
	// as substrings of display text) to target option ids. Labels are
	// checked in ascending target-option order.
	GenderLabels map[string]int

	// GenderOptions maps source option ids to target option ids when the
	// display text yields nothing.
	GenderOptions map[int]int

	// Sentinels are tokens treated as "no value" in free-text numeric and
	// category fields, compared case-insensitively.
	Sentinels []string
}

// DefaultTables returns the deployment defaults for the fixed tables that
// are not configuration-supplied. Cities and Countries are expected to
// come from the mapping configuration.
func DefaultTables() Tables {
	return Tables{
		Cities:    map[string]Coordinates{},
		Countries: nil,
		GenderLabels: map[string]int{
			"weiblich": 1,
			"männlich": 2,
		},
		GenderOptions: map[int]int{1: 1, 2: 2},
		Sentinels:     []string{"keine", "nein", "-", "n/a", "bitte wählen"},
	}
}

// Context carries the inputs available to a transform invocation.
type Context struct {
	// Item is the full source item, for multi-field transforms.
	Item *boards.Item

	// SourceColumn is the mapping rule's source column id.
	SourceColumn string

	// Options are rule-supplied parameters (e.g. the column ids a
	// multi-source transform reads).
	Options map[string]string

	// ValueMapping is the label dictionary from the transform's
	// configured parameter bag.
	ValueMapping map[string]string
}

// sourceValue returns the source column's value, or nil when absent.
func (tc Context) sourceValue() *boards.ColumnValue {
	if tc.Item == nil {
		return nil
	}
	return tc.Item.ColumnValue(tc.SourceColumn)
}

// option returns a rule option with a fallback default.
func (tc Context) option(key, fallback string) string {
	if v, ok := tc.Options[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Func converts a source value into a target-shaped value. The boolean
// reports whether a value was produced; false means the field is skipped.
type Func func(Context) (any, bool)

// Registry is the named set of transforms available to mapping rules.
type Registry struct {
	tables Tables
	funcs  map[string]Func
}

// NewRegistry creates a registry with the built-in transforms registered
// against the given tables.
func NewRegistry(tables Tables) *Registry {
	r := &Registry{
		tables: tables,
		funcs:  make(map[string]Func),
	}

	r.Register("parse_salary", r.parseSalary)
	r.Register("calculate_salary", r.calculateSalary)
	r.Register("gender_to_salutation", r.genderToSalutation)
	r.Register("parse_number", r.parseNumber)
	r.Register("map_country", r.mapCountry)
	r.Register("map_nearest_city", r.mapNearestCity)

	// The dictionary-driven dropdown mapper serves several configured
	// rule names; each alias reads its own value mapping from Context.
	for _, name := range []string{"map_dropdown", "map_hours", "map_languages", "map_familienstand", "map_nationalitaet"} {
		r.Register(name, r.mapDropdown)
	}

	return r
}

// Register adds or replaces a named transform.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Get returns the named transform.
func (r *Registry) Get(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered transform names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
