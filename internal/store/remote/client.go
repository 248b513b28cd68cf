// Package remote implements the document store over a generic
// key -> JSON-blob HTTP service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chronicle/internal/state"
	"chronicle/internal/store"
)

var _ store.Store = (*Client)(nil)

type Client struct {
	baseURL string
	token   string
	client  http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Close(ctx context.Context) error {
	return nil
}

func (c *Client) FetchAll(ctx context.Context, collectionID string) (map[string]state.Document, error) {
	var docs map[string]state.Document
	err := c.do(ctx, http.MethodGet, "/collections/"+collectionID+"/documents", nil, &docs)
	if err != nil {
		return nil, fmt.Errorf("fetching collection %s: %w", collectionID, err)
	}
	if docs == nil {
		docs = map[string]state.Document{}
	}
	return docs, nil
}

func (c *Client) Patch(ctx context.Context, collectionID string, docs map[string]state.Document) error {
	if err := c.do(ctx, http.MethodPatch, "/collections/"+collectionID+"/documents", docs, nil); err != nil {
		return fmt.Errorf("patching collection %s: %w", collectionID, err)
	}
	return nil
}

func (c *Client) Create(ctx context.Context, description string, initial map[string]state.Document) (string, error) {
	payload := map[string]any{
		"description": description,
		"files":       initial,
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/collections", payload, &created); err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("creating collection: no id in response")
	}
	return created.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &store.StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
