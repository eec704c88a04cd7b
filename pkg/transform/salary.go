package transform

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// monthlyNetToAnnualGrossFactor converts a monthly net salary to an
// approximate annual gross figure. An empirically fixed multiplier, not a
// tax computation: 2000 monthly net maps to 36000 annual gross.
const monthlyNetToAnnualGrossFactor = 18

var (
	currencySymbols = strings.NewReplacer("€", "", "$", "", "£", "")

	kSuffixPattern  = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*[Kk]`)
	dotGroupPattern = regexp.MustCompile(`\d{1,3}(?:\.\d{3})+`)
	plainRunPattern = regexp.MustCompile(`\d+`)
	commaOrSpace    = regexp.MustCompile(`[,\s]`)
)

// ParseSalaryText extracts a monetary magnitude from free text.
//
// Candidates come from three categories: K-suffixed numbers (multiplied
// by 1000, with an optional decimal separator before the suffix),
// dot-thousands-separated integers, and leftover plain digit runs not
// already consumed by the first two. The maximum candidate wins: the
// largest plausible number is assumed to be the salary, since smaller
// numbers in the same text are often percentages or counts. This is a
// known-imprecise policy kept deliberately.
func ParseSalaryText(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}

	cleaned := currencySymbols.Replace(text)

	var candidates []float64
	var kDigits, dotDigits []string

	for _, loc := range kSuffixPattern.FindAllStringSubmatchIndex(cleaned, -1) {
		// RE2 has no lookahead; reject suffixes like "Kraft" by peeking
		// at the rune after the K.
		if next := nextRune(cleaned, loc[1]); unicode.IsLetter(next) {
			continue
		}
		number := strings.ReplaceAll(cleaned[loc[2]:loc[3]], ",", ".")
		if v, err := strconv.ParseFloat(number, 64); err == nil {
			candidates = append(candidates, v*1000)
			kDigits = append(kDigits, digitsOnly(number))
		}
	}

	noComma := commaOrSpace.ReplaceAllString(cleaned, "")

	for _, m := range dotGroupPattern.FindAllString(noComma, -1) {
		joined := strings.ReplaceAll(m, ".", "")
		if v, err := strconv.ParseFloat(joined, 64); err == nil {
			candidates = append(candidates, v)
			dotDigits = append(dotDigits, joined)
		}
	}

	for _, run := range plainRunPattern.FindAllString(noComma, -1) {
		if containedIn(run, kDigits) || containedIn(run, dotDigits) {
			continue
		}
		if v, err := strconv.ParseFloat(run, 64); err == nil {
			candidates = append(candidates, v)
		}
	}

	if len(candidates) == 0 {
		return 0, false
	}

	max := candidates[0]
	for _, c := range candidates[1:] {
		if c > max {
			max = c
		}
	}
	return max, true
}

// MonthlyNetToAnnualGross converts a monthly net salary to an annual
// gross approximation using the fixed multiplier.
func MonthlyNetToAnnualGross(monthlyNet float64) float64 {
	return monthlyNet * monthlyNetToAnnualGrossFactor
}

// parseSalary parses the source column's display text as a salary figure.
func (r *Registry) parseSalary(tc Context) (any, bool) {
	cv := tc.sourceValue()
	if cv == nil {
		return nil, false
	}
	v, ok := ParseSalaryText(cv.TrimmedText())
	if !ok {
		return nil, false
	}
	return v, true
}

// calculateSalary resolves an annual gross salary from two source
// columns: the annual-gross field wins when it parses to a nonzero
// value; otherwise the monthly-net field is converted via the fixed
// multiplier. A zero parse counts as absent and falls through.
func (r *Registry) calculateSalary(tc Context) (any, bool) {
	if tc.Item == nil {
		return nil, false
	}

	yearlyCol := tc.option("source_yearly_column_id", "")
	monthlyCol := tc.option("source_monthly_column_id", "")

	if cv := tc.Item.ColumnValue(yearlyCol); cv != nil {
		if v, ok := ParseSalaryText(cv.TrimmedText()); ok && v != 0 {
			return v, true
		}
	}

	if cv := tc.Item.ColumnValue(monthlyCol); cv != nil {
		if v, ok := ParseSalaryText(cv.TrimmedText()); ok && v != 0 {
			return MonthlyNetToAnnualGross(v), true
		}
	}

	return nil, false
}

// parseNumber extracts the first numeric substring from a text column,
// treating the configured sentinel tokens as absent and normalizing a
// decimal comma to a dot.
func (r *Registry) parseNumber(tc Context) (any, bool) {
	cv := tc.sourceValue()
	if cv == nil {
		return nil, false
	}

	text := strings.ToLower(cv.TrimmedText())
	if text == "" || r.isSentinel(text) {
		return nil, false
	}

	text = strings.ReplaceAll(text, ",", ".")
	m := numberPattern.FindString(text)
	if m == "" {
		return nil, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil, false
	}
	return v, true
}

var numberPattern = regexp.MustCompile(`[\d.]+`)

// isSentinel reports whether text equals one of the "no value" tokens.
func (r *Registry) isSentinel(text string) bool {
	for _, s := range r.tables.Sentinels {
		if strings.EqualFold(text, s) {
			return true
		}
	}
	return false
}

// nextRune returns the rune at byte offset i, or 0 past the end.
func nextRune(s string, i int) rune {
	if i >= len(s) {
		return 0
	}
	for _, r := range s[i:] {
		return r
	}
	return 0
}

// digitsOnly strips everything but digits from s.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// containedIn reports whether run occurs inside any of the given digit
// strings, marking it as already consumed by an earlier pattern.
func containedIn(run string, consumed []string) bool {
	for _, c := range consumed {
		if strings.Contains(c, run) {
			return true
		}
	}
	return false
}
