package boardapi

import (
	"context"

	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/errors"
)

const boardQuery = `
query GetBoardInfo($boardId: [ID!]!) {
  boards(ids: $boardId) {
    id
    name
    columns {
      id
      title
      type
      settings_str
    }
    groups {
      id
      title
    }
  }
}`

const itemsQuery = `
query GetItems($boardId: [ID!]!, $cursor: String, $limit: Int!) {
  boards(ids: $boardId) {
    items_page(limit: $limit, cursor: $cursor) {
      cursor
      items {
        id
        name
        column_values {
          id
          text
          value
        }
        updates(limit: 2) {
          body
          created_at
          creator {
            name
          }
        }
      }
    }
  }
}`

const itemQuery = `
query GetItem($itemId: [ID!]!) {
  items(ids: $itemId) {
    id
    name
    column_values {
      id
      text
      value
    }
    updates(limit: 2) {
      body
      created_at
      creator {
        name
      }
    }
  }
}`

// wireUpdate is the update shape on the wire; the creator comes nested.
type wireUpdate struct {
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	Creator   struct {
		Name string `json:"name"`
	} `json:"creator"`
}

// wireItem is the item shape on the wire.
type wireItem struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	ColumnValues []boards.ColumnValue `json:"column_values"`
	Updates      []wireUpdate         `json:"updates"`
}

func (w wireItem) toItem() *boards.Item {
	item := &boards.Item{
		ID:           w.ID,
		Name:         w.Name,
		ColumnValues: w.ColumnValues,
	}
	for _, u := range w.Updates {
		item.Updates = append(item.Updates, boards.Update{
			Body:      u.Body,
			CreatedAt: u.CreatedAt,
			Creator:   u.Creator.Name,
		})
	}
	return item
}

// Board fetches a board's schema surface: name, columns and groups.
func (c *Client) Board(ctx context.Context, boardID string) (*boards.Board, error) {
	var data struct {
		Boards []boards.Board `json:"boards"`
	}
	if err := c.execute(ctx, boardQuery, map[string]any{"boardId": []string{boardID}}, &data); err != nil {
		return nil, err
	}
	if len(data.Boards) == 0 {
		return nil, errors.NewNotFoundError("board", boardID)
	}
	return &data.Boards[0], nil
}

// Item fetches a single item by id.
func (c *Client) Item(ctx context.Context, itemID string) (*boards.Item, error) {
	var data struct {
		Items []wireItem `json:"items"`
	}
	if err := c.execute(ctx, itemQuery, map[string]any{"itemId": []string{itemID}}, &data); err != nil {
		return nil, err
	}
	if len(data.Items) == 0 {
		return nil, errors.NewNotFoundError("item", itemID)
	}
	return data.Items[0].toItem(), nil
}

// ForEachItem streams every item of a board in board order, loading one
// page at a time. The callback's error stops the stream and is returned
// unchanged.
func (c *Client) ForEachItem(ctx context.Context, boardID string, fn func(*boards.Item) error) error {
	cursor := ""
	for {
		page, err := c.itemsPage(ctx, boardID, cursor)
		if err != nil {
			return err
		}

		for _, wire := range page.Items {
			if err := fn(wire.toItem()); err != nil {
				return err
			}
		}

		if page.Cursor == "" {
			return nil
		}
		cursor = page.Cursor
	}
}

type itemsPage struct {
	Cursor string     `json:"cursor"`
	Items  []wireItem `json:"items"`
}

func (c *Client) itemsPage(ctx context.Context, boardID, cursor string) (*itemsPage, error) {
	variables := map[string]any{
		"boardId": []string{boardID},
		"limit":   pageSize,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}

	var data struct {
		Boards []struct {
			ItemsPage itemsPage `json:"items_page"`
		} `json:"boards"`
	}
	if err := c.execute(ctx, itemsQuery, variables, &data); err != nil {
		return nil, err
	}
	if len(data.Boards) == 0 {
		return nil, errors.NewNotFoundError("board", boardID)
	}
	return &data.Boards[0].ItemsPage, nil
}
