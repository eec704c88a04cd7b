package identity_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/identity"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"simple", "Anna Schmidt", "anna schmidt"},
		{"umlauts expand", "Jörg Müller", "joerg mueller"},
		{"eszett expands", "Klaus Weiß", "klaus weiss"},
		{"separators become spaces", "Schmidt, Anna-Maria", "schmidt anna maria"},
		{"collapses whitespace", "  Anna   Schmidt  ", "anna schmidt"},
		{"strips punctuation", "Dr. Anna Schmidt (extern)", "dr anna schmidt extern"},
		{"digits survive", "Agent 007", "agent 007"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identity.NormalizeName(tt.in))
		})
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	inputs := []string{"Jörg Müller", "Schmidt, Anna-Maria", "Klaus Weiß", "  Ötzi  "}
	for _, in := range inputs {
		once := identity.NormalizeName(in)
		assert.Equal(t, once, identity.NormalizeName(once), "re-normalizing %q must be stable", in)
	}
}

func TestNormalizeNameMeetsTransliteratedSpelling(t *testing.T) {
	// "Müller" written with umlaut and written out must derive the same key.
	assert.Equal(t, identity.NormalizeName("Jörg Müller"), identity.NormalizeName("Joerg Mueller"))
}

func TestEmail(t *testing.T) {
	t.Run("nil column", func(t *testing.T) {
		_, ok := identity.Email(nil)
		assert.False(t, ok)
	})

	t.Run("from display text", func(t *testing.T) {
		cv := &boards.ColumnValue{ID: "email", Text: "Anna.Schmidt@Example.COM"}
		got, ok := identity.Email(cv)
		require.True(t, ok)
		assert.Equal(t, "anna.schmidt@example.com", got)
	})

	t.Run("embedded in prose", func(t *testing.T) {
		cv := &boards.ColumnValue{ID: "notes", Text: "reach me at anna@example.com please"}
		got, ok := identity.Email(cv)
		require.True(t, ok)
		assert.Equal(t, "anna@example.com", got)
	})

	t.Run("payload fallback when text yields nothing", func(t *testing.T) {
		payload, _ := json.Marshal(map[string]string{"email": "Anna@Example.com", "text": "Anna"})
		cv := &boards.ColumnValue{ID: "email", Text: "Anna", Value: payload}
		got, ok := identity.Email(cv)
		require.True(t, ok)
		assert.Equal(t, "anna@example.com", got)
	})

	t.Run("payload without at sign rejected", func(t *testing.T) {
		payload, _ := json.Marshal(map[string]string{"email": "not-an-email", "text": ""})
		cv := &boards.ColumnValue{ID: "email", Text: "", Value: payload}
		_, ok := identity.Email(cv)
		assert.False(t, ok)
	})

	t.Run("empty column", func(t *testing.T) {
		_, ok := identity.Email(&boards.ColumnValue{ID: "email"})
		assert.False(t, ok)
	})
}

func linkValue(t *testing.T, url, text string) *boards.ColumnValue {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"url": url, "text": text})
	require.NoError(t, err)
	return &boards.ColumnValue{ID: "link", Text: text, Value: payload}
}

func TestReferenceNumber(t *testing.T) {
	t.Run("nil column", func(t *testing.T) {
		_, ok := identity.ReferenceNumber(nil)
		assert.False(t, ok)
	})

	t.Run("payload text wins verbatim", func(t *testing.T) {
		cv := linkValue(t, "https://portal.example/candidate/99999", "12345")
		got, ok := identity.ReferenceNumber(cv)
		require.True(t, ok)
		assert.Equal(t, "12345", got)
	})

	t.Run("longest digit run in url", func(t *testing.T) {
		cv := linkValue(t, "https://portal.example/v2/candidate/456789?page=3", "")
		got, ok := identity.ReferenceNumber(cv)
		require.True(t, ok)
		assert.Equal(t, "456789", got)
	})

	t.Run("display text fallback", func(t *testing.T) {
		cv := &boards.ColumnValue{ID: "ref", Text: "Ref Nr. 778899"}
		got, ok := identity.ReferenceNumber(cv)
		require.True(t, ok)
		assert.Equal(t, "778899", got)
	})

	t.Run("earlier run wins length ties", func(t *testing.T) {
		cv := &boards.ColumnValue{ID: "ref", Text: "111 and 222"}
		got, ok := identity.ReferenceNumber(cv)
		require.True(t, ok)
		assert.Equal(t, "111", got)
	})

	t.Run("no digits anywhere", func(t *testing.T) {
		cv := &boards.ColumnValue{ID: "ref", Text: "no number here"}
		_, ok := identity.ReferenceNumber(cv)
		assert.False(t, ok)
	})
}
