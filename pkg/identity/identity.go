// Package identity canonicalizes identity-bearing column values into
// comparable keys: normalized person names, lower-cased emails, and
// reference numbers recovered from link columns or free text.
//
// Extraction never fails: malformed input yields an absent key, not an
// error, so callers can treat every key as optional.
package identity

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/meridianlabs/boardsync/pkg/boards"
)

// transliterations maps locale diacritics to their multi-character ASCII
// expansions. Expansion, not stripping: "Müller" and "Mueller" must meet
// at the same key.
var transliterations = strings.NewReplacer(
	"ß", "ss",
	"ä", "ae",
	"ö", "oe",
	"ü", "ue",
)

var (
	separatorRuns = regexp.MustCompile(`[\-_,./()]+`)
	nonAlnum      = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespace    = regexp.MustCompile(`\s+`)

	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	digitRuns    = regexp.MustCompile(`\d+`)
)

// NormalizeName canonicalizes a person name for duplicate matching.
// Pure and total: empty input yields an empty key, and the function is
// idempotent, so keys can themselves be re-normalized safely.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}

	s := strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
	s = transliterations.Replace(s)
	s = separatorRuns.ReplaceAllString(s, " ")
	s = nonAlnum.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// Email extracts a lower-cased email address from a column value.
// Display text is preferred; the structured payload's email sub-field is
// the fallback when the text yields nothing.
func Email(cv *boards.ColumnValue) (string, bool) {
	if cv == nil {
		return "", false
	}

	if text := cv.TrimmedText(); text != "" {
		if m := emailPattern.FindString(text); m != "" {
			return strings.ToLower(m), true
		}
	}

	decoded := cv.Decode()
	if decoded.Kind == boards.KindEmail {
		candidate := decoded.Email.Email
		if candidate == "" {
			candidate = decoded.Email.Text
		}
		if strings.Contains(candidate, "@") {
			return strings.ToLower(candidate), true
		}
	}

	return "", false
}

// ReferenceNumber extracts a reference number from a link column value.
//
// Priority: the payload's text sub-field verbatim (the curated number),
// then the longest digit run in the payload URL, then the longest digit
// run in the display text. "Longest" is string length; on equal length
// the first run encountered wins. This is a known-imprecise policy kept
// for compatibility with existing indexes.
func ReferenceNumber(cv *boards.ColumnValue) (string, bool) {
	if cv == nil {
		return "", false
	}

	decoded := cv.Decode()
	if decoded.Kind == boards.KindLink {
		if text := strings.TrimSpace(decoded.Link.Text); text != "" {
			return text, true
		}
		if num := longestDigitRun(decoded.Link.URL); num != "" {
			return num, true
		}
	}

	if num := longestDigitRun(cv.TrimmedText()); num != "" {
		return num, true
	}

	return "", false
}

// longestDigitRun returns the longest run of consecutive digits in s,
// or "" when s has none. Earlier runs win ties.
func longestDigitRun(s string) string {
	if s == "" {
		return ""
	}

	longest := ""
	for _, run := range digitRuns.FindAllString(s, -1) {
		if len(run) > len(longest) {
			longest = run
		}
	}
	return longest
}
