package transform

import (
	"sort"
	"strings"

	"github.com/meridianlabs/boardsync/pkg/boards"
)

// genderToSalutation recodes a closed gender marker to the target
// salutation option id. Display text wins when it contains a known label;
// otherwise the structured option id is recoded through the id-to-id
// table.
func (r *Registry) genderToSalutation(tc Context) (any, bool) {
	cv := tc.sourceValue()
	if cv == nil {
		return nil, false
	}

	text := strings.ToLower(cv.TrimmedText())
	if text != "" {
		// Labels are checked in ascending target-option order, so
		// "weiblich" (option 1) takes precedence over "männlich" when a
		// text mentions both.
		labels := make([]string, 0, len(r.tables.GenderLabels))
		for label := range r.tables.GenderLabels {
			labels = append(labels, label)
		}
		sort.Slice(labels, func(i, j int) bool {
			a, b := r.tables.GenderLabels[labels[i]], r.tables.GenderLabels[labels[j]]
			if a != b {
				return a < b
			}
			return labels[i] < labels[j]
		})
		for _, label := range labels {
			if strings.Contains(text, label) {
				return r.tables.GenderLabels[label], true
			}
		}
	}

	decoded := cv.Decode()
	if decoded.Kind == boards.KindDropdown && len(decoded.Dropdown.IDs) > 0 {
		if target, ok := r.tables.GenderOptions[decoded.Dropdown.IDs[0]]; ok {
			return target, true
		}
	}

	return nil, false
}

// mapDropdown splits a comma-separated multi-select display text into
// labels and maps each through the rule's label dictionary. Unmapped
// labels are dropped silently; an empty result means no value.
func (r *Registry) mapDropdown(tc Context) (any, bool) {
	cv := tc.sourceValue()
	if cv == nil || len(tc.ValueMapping) == 0 {
		return nil, false
	}

	text := cv.TrimmedText()
	if text == "" {
		return nil, false
	}

	var mapped []string
	for _, part := range strings.Split(text, ",") {
		label := strings.TrimSpace(part)
		if label == "" {
			continue
		}
		if target, ok := tc.ValueMapping[label]; ok && target != "" {
			mapped = append(mapped, target)
		}
	}

	if len(mapped) == 0 {
		return nil, false
	}
	return mapped, true
}

// mapCountry resolves free text to a valid country label: the override
// dictionary first (case-insensitive exact), then an exact
// case-insensitive match against the valid list, then a substring match
// in either direction. First hit wins.
//
// The substring step is intentionally permissive to absorb typos; short
// inputs can produce false positives. Kept as-is.
func (r *Registry) mapCountry(tc Context) (any, bool) {
	cv := tc.sourceValue()
	if cv == nil {
		return nil, false
	}

	text := cv.TrimmedText()
	if text == "" || r.isSentinel(strings.ToLower(text)) {
		return nil, false
	}
	lower := strings.ToLower(text)

	overrides := make([]string, 0, len(tc.ValueMapping))
	for source := range tc.ValueMapping {
		overrides = append(overrides, source)
	}
	sort.Strings(overrides)
	for _, source := range overrides {
		if strings.ToLower(source) == lower {
			return []string{tc.ValueMapping[source]}, true
		}
	}

	for _, country := range r.tables.Countries {
		if strings.ToLower(country) == lower {
			return []string{country}, true
		}
	}

	for _, country := range r.tables.Countries {
		countryLower := strings.ToLower(country)
		if strings.Contains(countryLower, lower) || strings.Contains(lower, countryLower) {
			return []string{country}, true
		}
	}

	return nil, false
}
