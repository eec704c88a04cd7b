// Package boardapi implements the GraphQL-over-JSON board store client.
// It exposes the board read and write surface the reconciler consumes,
// with cursor pagination on reads and one mutation per write.
package boardapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/meridianlabs/boardsync/internal/transport"
	"github.com/meridianlabs/boardsync/pkg/errors"
)

// DefaultEndpoint is the board API GraphQL endpoint.
const DefaultEndpoint = "https://api.monday.com/v2"

// pageSize is the items_page batch size. The API caps pages at 500.
const pageSize = 500

// Client talks to the board API.
type Client struct {
	endpoint string
	http     *transport.Client
	token    string
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithTransport replaces the underlying transport client.
func WithTransport(t *transport.Client) Option {
	return func(c *Client) {
		if t != nil {
			c.http = t
		}
	}
}

// New creates a board API client. The token is required; the API
// expects it raw in the Authorization header.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.ErrTokenRequired
	}

	c := &Client{
		endpoint: DefaultEndpoint,
		http:     transport.New(&transport.HeaderAuth{}, token),
		token:    token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// graphQLError is one error of a GraphQL response envelope.
type graphQLError struct {
	Message string `json:"message"`
}

// envelope is the GraphQL response wrapper.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// execute runs one GraphQL operation and decodes its data into out.
// A response carrying GraphQL errors fails even on HTTP 200.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any, out any) error {
	payload := map[string]any{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.WrapParse("json", "", err)
	}

	resp, err := c.http.Post(ctx, c.endpoint, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.NewAPIError(c.endpoint, resp.StatusCode, resp.Status)
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
		messages := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			messages = append(messages, e.Message)
		}
		return &errors.APIError{
			Endpoint: c.endpoint,
			Message:  strings.Join(messages, "; "),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.WrapParse("json", "", err)
	}
	return nil
}
