package boardapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/meridianlabs/boardsync/pkg/errors"
	"github.com/meridianlabs/boardsync/pkg/logging"
)

const createItemMutation = `
mutation CreateItem($boardId: ID!, $itemName: String!, $columnValues: JSON!) {
  create_item(
    board_id: $boardId,
    item_name: $itemName,
    column_values: $columnValues,
    create_labels_if_missing: true
  ) {
    id
  }
}`

const changeColumnMutation = `
mutation ChangeColumnValue($boardId: ID!, $itemId: ID!, $columnId: String!, $value: JSON!) {
  change_column_value(
    board_id: $boardId,
    item_id: $itemId,
    column_id: $columnId,
    value: $value,
    create_labels_if_missing: true
  ) {
    id
  }
}`

const createAnnotationMutation = `
mutation CreateUpdate($itemId: ID!, $body: String!) {
  create_update(item_id: $itemId, body: $body) {
    id
  }
}`

const assetQuery = `
query GetAsset($assetIds: [ID!]!) {
  assets(ids: $assetIds) {
    public_url
  }
}`

// CreateItem creates an item with the given column values and returns
// its id. The values map is JSON-encoded into the mutation's JSON scalar.
func (c *Client) CreateItem(ctx context.Context, boardID, name string, values map[string]any) (string, error) {
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", errors.WrapParse("json", "", err)
	}

	var data struct {
		CreateItem struct {
			ID string `json:"id"`
		} `json:"create_item"`
	}
	err = c.execute(ctx, createItemMutation, map[string]any{
		"boardId":      boardID,
		"itemName":     name,
		"columnValues": string(encoded),
	}, &data)
	if err != nil {
		return "", errors.WrapWrite(boardID, "", "", err)
	}
	if data.CreateItem.ID == "" {
		return "", errors.NewWriteError(boardID, "", "", stderrors.New("no item id returned"))
	}
	return data.CreateItem.ID, nil
}

// ChangeColumnValue sets a single column of an existing item.
func (c *Client) ChangeColumnValue(ctx context.Context, boardID, itemID, columnID string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return errors.WrapParse("json", "", err)
	}

	err = c.execute(ctx, changeColumnMutation, map[string]any{
		"boardId":  boardID,
		"itemId":   itemID,
		"columnId": columnID,
		"value":    string(encoded),
	}, nil)
	return errors.WrapWrite(boardID, itemID, columnID, err)
}

// AddAnnotation appends a textual annotation to an item.
func (c *Client) AddAnnotation(ctx context.Context, itemID, body string) error {
	err := c.execute(ctx, createAnnotationMutation, map[string]any{
		"itemId": itemID,
		"body":   body,
	}, nil)
	return errors.WrapWrite("", itemID, "", err)
}

// AssetPublicURL returns the public download URL for a stored asset.
func (c *Client) AssetPublicURL(ctx context.Context, assetID string) (string, error) {
	var data struct {
		Assets []struct {
			PublicURL string `json:"public_url"`
		} `json:"assets"`
	}
	if err := c.execute(ctx, assetQuery, map[string]any{"assetIds": []string{assetID}}, &data); err != nil {
		return "", err
	}
	if len(data.Assets) == 0 || data.Assets[0].PublicURL == "" {
		return "", errors.NewNotFoundError("asset", assetID)
	}
	return data.Assets[0].PublicURL, nil
}

// AttachFile uploads an attachment to an item's file column through the
// multipart file endpoint. The whole content is buffered: attachments are
// small and the mutation must know the part up front.
func (c *Client) AttachFile(ctx context.Context, itemID, columnID, filename string, r io.Reader) error {
	mutation := fmt.Sprintf(`mutation ($file: File!) {
  add_file_to_column(item_id: %s, column_id: %q, file: $file) {
    id
  }
}`, itemID, columnID)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("query", mutation); err != nil {
		return errors.WrapIO("write", "multipart form", err)
	}
	part, err := form.CreateFormFile("variables[file]", filename)
	if err != nil {
		return errors.WrapIO("write", "multipart form", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return errors.WrapIO("read", filename, err)
	}
	if err := form.Close(); err != nil {
		return errors.WrapIO("write", "multipart form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/file", &buf)
	if err != nil {
		return &errors.APIError{Endpoint: c.endpoint + "/file", Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return errors.WrapWrite("", itemID, columnID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.WrapWrite("", itemID, columnID,
			errors.NewAPIError(c.endpoint+"/file", resp.StatusCode, resp.Status))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errors.WrapParse("json", "", err)
	}
	if len(env.Errors) > 0 {
		return errors.WrapWrite("", itemID, columnID,
			&errors.APIError{Endpoint: c.endpoint + "/file", Message: env.Errors[0].Message})
	}
	return nil
}

// CopyAsset copies an existing stored asset onto an item's file column:
// resolve the asset's public URL, download it, and re-upload through
// AttachFile. The download needs no authentication.
func (c *Client) CopyAsset(ctx context.Context, assetID, itemID, columnID, filename string) error {
	publicURL, err := c.AssetPublicURL(ctx, assetID)
	if err != nil {
		return err
	}

	download := &http.Client{Timeout: 60 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, publicURL, nil)
	if err != nil {
		return errors.WrapIO("open", publicURL, err)
	}
	resp, err := download.Do(req)
	if err != nil {
		return errors.WrapIO("read", publicURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.NewAPIError(publicURL, resp.StatusCode, "asset download failed")
	}

	logging.Debug().
		Str("asset", assetID).
		Str("item", itemID).
		Str("column", columnID).
		Msg("copying asset")

	return c.AttachFile(ctx, itemID, columnID, filename, resp.Body)
}
