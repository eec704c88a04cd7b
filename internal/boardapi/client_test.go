package boardapi_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/boardsync/internal/boardapi"
	"github.com/meridianlabs/boardsync/pkg/boards"
	"github.com/meridianlabs/boardsync/pkg/errors"
)

// graphQLRequest is the request shape the client sends.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func decodeRequest(t *testing.T, r *http.Request) graphQLRequest {
	t.Helper()
	var req graphQLRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *boardapi.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := boardapi.New("token", boardapi.WithEndpoint(server.URL))
	require.NoError(t, err)
	return client
}

func TestNewRequiresToken(t *testing.T) {
	_, err := boardapi.New("")
	assert.ErrorIs(t, err, errors.ErrTokenRequired)
}

func TestBoard(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Contains(t, req.Query, "boards(ids: $boardId)")
		fmt.Fprint(w, `{"data":{"boards":[{
			"id":"200","name":"Candidates",
			"columns":[{"id":"email","title":"Email","type":"email"}],
			"groups":[{"id":"g1","title":"Open"}]
		}]}}`)
	})

	board, err := client.Board(context.Background(), "200")
	require.NoError(t, err)
	assert.Equal(t, "Candidates", board.Name)
	require.Len(t, board.Columns, 1)
	assert.Equal(t, "email", board.Columns[0].ID)
}

func TestBoardNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":{"boards":[]}}`)
	})

	_, err := client.Board(context.Background(), "999")
	assert.True(t, errors.IsNotFound(err))
}

func TestForEachItemPaginates(t *testing.T) {
	var cursors []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		cursor, _ := req.Variables["cursor"].(string)
		cursors = append(cursors, cursor)

		if cursor == "" {
			fmt.Fprint(w, `{"data":{"boards":[{"items_page":{
				"cursor":"page2",
				"items":[
					{"id":"1","name":"Anna Schmidt","column_values":[{"id":"email","text":"anna@example.com"}],
					 "updates":[{"body":"hello","created_at":"2025-06-01","creator":{"name":"HR"}}]},
					{"id":"2","name":"Bernd Maier","column_values":[]}
				]}}]}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"boards":[{"items_page":{
			"cursor":null,
			"items":[{"id":"3","name":"Clara Vogel","column_values":[]}]}}]}}`)
	})

	var names []string
	err := client.ForEachItem(context.Background(), "200", func(item *boards.Item) error {
		names = append(names, item.Name)
		if item.ID == "1" {
			require.Len(t, item.Updates, 1)
			assert.Equal(t, "HR", item.Updates[0].Creator)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Anna Schmidt", "Bernd Maier", "Clara Vogel"}, names)
	assert.Equal(t, []string{"", "page2"}, cursors)
}

func TestForEachItemCallbackErrorStopsStream(t *testing.T) {
	var pages int
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		pages++
		fmt.Fprint(w, `{"data":{"boards":[{"items_page":{
			"cursor":"more",
			"items":[{"id":"1","name":"Anna","column_values":[]}]}}]}}`)
	})

	sentinel := stderrors.New("stop here")
	err := client.ForEachItem(context.Background(), "200", func(*boards.Item) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, pages)
}

func TestCreateItem(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Contains(t, req.Query, "create_item")
		assert.Contains(t, req.Query, "create_labels_if_missing: true")
		assert.Equal(t, "Anna Schmidt", req.Variables["itemName"])

		// Column values travel as a JSON-encoded string.
		encoded, ok := req.Variables["columnValues"].(string)
		require.True(t, ok)
		var values map[string]any
		require.NoError(t, json.Unmarshal([]byte(encoded), &values))
		assert.Equal(t, "note", values["t_notes"])

		fmt.Fprint(w, `{"data":{"create_item":{"id":"4242"}}}`)
	})

	id, err := client.CreateItem(context.Background(), "200", "Anna Schmidt", map[string]any{"t_notes": "note"})
	require.NoError(t, err)
	assert.Equal(t, "4242", id)
}

func TestChangeColumnValue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Contains(t, req.Query, "change_column_value")
		assert.Equal(t, "t_email", req.Variables["columnId"])

		encoded, ok := req.Variables["value"].(string)
		require.True(t, ok)
		assert.True(t, strings.Contains(encoded, "anna@example.com"))

		fmt.Fprint(w, `{"data":{"change_column_value":{"id":"4242"}}}`)
	})

	err := client.ChangeColumnValue(context.Background(), "200", "4242", "t_email",
		boards.EmailValue{Email: "anna@example.com", Text: "anna@example.com"})
	require.NoError(t, err)
}

func TestGraphQLErrorsFailTheCall(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":null,"errors":[{"message":"ColumnValueException"}]}`)
	})

	err := client.ChangeColumnValue(context.Background(), "200", "4242", "bad_col", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ColumnValueException")
}

func TestAddAnnotation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Contains(t, req.Query, "create_update")
		assert.Equal(t, "transferred text", req.Variables["body"])
		fmt.Fprint(w, `{"data":{"create_update":{"id":"77"}}}`)
	})

	require.NoError(t, client.AddAnnotation(context.Background(), "4242", "transferred text"))
}

func TestAssetPublicURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":{"assets":[{"public_url":"https://files.example/cv.pdf"}]}}`)
	})

	url, err := client.AssetPublicURL(context.Background(), "4711")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/cv.pdf", url)
}

func TestAssetPublicURLMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":{"assets":[]}}`)
	})

	_, err := client.AssetPublicURL(context.Background(), "4711")
	assert.True(t, errors.IsNotFound(err))
}
