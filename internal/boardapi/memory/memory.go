// Package memory provides an in-memory board store implementing the
// reconciler's Source and Writer surfaces. It backs tests and dry runs
// where no remote board store should be touched.
package memory

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"

	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/errors"
)

// Annotation is one annotation recorded against an item.
type Annotation struct {
	ItemID string
	Body   string
}

// FileCopy records one asset copied onto an item.
type FileCopy struct {
	AssetID  string
	ItemID   string
	ColumnID string
	Filename string
}

// Store is an in-memory board store. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	boards map[string]*boards.Board
	items  map[string][]*boards.Item // board id -> items in insertion order
	nextID int64

	// Recorded writes, in call order.
	Annotations []Annotation
	FileCopies  []FileCopy

	// FailCreates makes CreateItem fail for the named items.
	FailCreates map[string]error
	// FailColumns makes ChangeColumnValue fail for the named column ids.
	FailColumns map[string]error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		boards: make(map[string]*boards.Board),
		items:  make(map[string][]*boards.Item),
		nextID: 1000,
	}
}

// SetBoard registers a board schema.
func (s *Store) SetBoard(board *boards.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards[board.ID] = board
}

// AddItem appends an item to a board.
func (s *Store) AddItem(boardID string, item *boards.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[boardID] = append(s.items[boardID], item)
}

// Items returns the board's items in insertion order.
func (s *Store) Items(boardID string) []*boards.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*boards.Item, len(s.items[boardID]))
	copy(out, s.items[boardID])
	return out
}

// Item returns an item by id from any board, or nil.
func (s *Store) Item(itemID string) *boards.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.items {
		for _, item := range list {
			if item.ID == itemID {
				return item
			}
		}
	}
	return nil
}

// Board returns a registered board schema.
func (s *Store) Board(_ context.Context, boardID string) (*boards.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	board, ok := s.boards[boardID]
	if !ok {
		return nil, errors.NewNotFoundError("board", boardID)
	}
	return board, nil
}

// ForEachItem streams the board's items in insertion order.
func (s *Store) ForEachItem(_ context.Context, boardID string, fn func(*boards.Item) error) error {
	for _, item := range s.Items(boardID) {
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

// CreateItem creates an item with the given column values and returns
// its id. Values are stored as both payload and display text so the
// created item round-trips through emptiness checks.
func (s *Store) CreateItem(_ context.Context, boardID, name string, values map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FailCreates[name]; ok {
		return "", err
	}

	s.nextID++
	item := &boards.Item{
		ID:   strconv.FormatInt(s.nextID, 10),
		Name: name,
	}
	for columnID, value := range values {
		item.ColumnValues = append(item.ColumnValues, toColumnValue(columnID, value))
	}

	s.items[boardID] = append(s.items[boardID], item)
	return item.ID, nil
}

// ChangeColumnValue sets a single column of an existing item.
func (s *Store) ChangeColumnValue(_ context.Context, boardID, itemID, columnID string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FailColumns[columnID]; ok {
		return err
	}

	for _, item := range s.items[boardID] {
		if item.ID != itemID {
			continue
		}
		cv := toColumnValue(columnID, value)
		for i := range item.ColumnValues {
			if item.ColumnValues[i].ID == columnID {
				item.ColumnValues[i] = cv
				return nil
			}
		}
		item.ColumnValues = append(item.ColumnValues, cv)
		return nil
	}
	return errors.NewNotFoundError("item", itemID)
}

// AttachFile records a direct upload.
func (s *Store) AttachFile(_ context.Context, itemID, columnID, filename string, r io.Reader) error {
	_, _ = io.Copy(io.Discard, r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FileCopies = append(s.FileCopies, FileCopy{ItemID: itemID, ColumnID: columnID, Filename: filename})
	return nil
}

// CopyAsset records an asset copy.
func (s *Store) CopyAsset(_ context.Context, assetID, itemID, columnID, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FileCopies = append(s.FileCopies, FileCopy{AssetID: assetID, ItemID: itemID, ColumnID: columnID, Filename: filename})
	return nil
}

// AddAnnotation records an annotation.
func (s *Store) AddAnnotation(_ context.Context, itemID, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Annotations = append(s.Annotations, Annotation{ItemID: itemID, Body: body})
	return nil
}

// toColumnValue renders a write value into a stored column value. Strings
// become display text directly; structured payloads are serialized and
// their text approximated from the string form.
func toColumnValue(columnID string, value any) boards.ColumnValue {
	cv := boards.ColumnValue{ID: columnID}

	switch v := value.(type) {
	case string:
		cv.Text = v
		encoded, _ := json.Marshal(v)
		cv.Value = encoded
	default:
		encoded, err := json.Marshal(v)
		if err == nil {
			cv.Value = encoded
			cv.Text = string(encoded)
		}
	}
	return cv
}
