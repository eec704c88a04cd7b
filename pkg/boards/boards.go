// Package boards defines the record data model shared by the duplicate
// index, the transform registry and the merge engine: boards, items,
// column values, and the decoded payload variants behind them.
package boards

import (
	"encoding/json"
	"strings"
)

// Board describes a board's schema surface: its identity plus the columns
// and groups the API reports for it.
type Board struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Columns []Column `json:"columns,omitempty"`
	Groups  []Group  `json:"groups,omitempty"`
}

// Column describes one column of a board.
type Column struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"type"`
	Settings string `json:"settings_str,omitempty"`
}

// Group is a named section of a board.
type Group struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Item is one record on a board. Items are immutable once read; all
// mutation goes through the board API.
type Item struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ColumnValues []ColumnValue `json:"column_values"`
	Updates      []Update      `json:"updates,omitempty"`
}

// Update is a textual annotation attached to an item by a user.
// The API returns updates newest first.
type Update struct {
	Body      string `json:"body"`
	CreatedAt string `json:"created_at,omitempty"`
	Creator   string `json:"creator,omitempty"`
}

// ColumnValue is one field of an item: the rendered display text plus the
// raw structured payload. Text is the authoritative emptiness signal; the
// payload may carry stale data (deleted dropdown options, orphaned ids)
// and must not be consulted for emptiness.
type ColumnValue struct {
	ID    string          `json:"id"`
	Text  string          `json:"text"`
	Value json.RawMessage `json:"value,omitempty"`
}

// ColumnValue returns the column value with the given id, or nil.
func (it *Item) ColumnValue(columnID string) *ColumnValue {
	for i := range it.ColumnValues {
		if it.ColumnValues[i].ID == columnID {
			return &it.ColumnValues[i]
		}
	}
	return nil
}

// IsEmpty reports whether the column holds no user-visible value.
// Only display text counts.
func (cv *ColumnValue) IsEmpty() bool {
	if cv == nil {
		return true
	}
	return strings.TrimSpace(cv.Text) == ""
}

// TrimmedText returns the display text with surrounding whitespace removed.
func (cv *ColumnValue) TrimmedText() string {
	if cv == nil {
		return ""
	}
	return strings.TrimSpace(cv.Text)
}
