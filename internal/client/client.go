package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"inventory-keeper/internal/domain"
)

// APIError is the decoded error shape returned by the inventory API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inventory api: %d %s", e.Status, e.Message)
}

// Client talks to the inventory HTTP API with a bearer session token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// SetToken replaces the session token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Token() string {
	return c.token
}

type itemPayload struct {
	ID    int64  `json:"id,omitempty"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  string `json:"year"`
	Color string `json:"color"`
}

func toItems(payload []itemPayload) []domain.Item {
	items := make([]domain.Item, len(payload))
	for i, p := range payload {
		items[i] = domain.Item{ID: p.ID, Brand: p.Brand, Model: p.Model, Year: p.Year, Color: p.Color}
	}
	return items
}

// Login exchanges credentials for a session token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

func (c *Client) List(ctx context.Context) ([]domain.Item, error) {
	var payload []itemPayload
	if err := c.do(ctx, http.MethodGet, "/api/inventory/all", nil, &payload); err != nil {
		return nil, err
	}
	return toItems(payload), nil
}

func (c *Client) Total(ctx context.Context) (int64, error) {
	var resp struct {
		Total int64 `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/inventory/total", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Total, nil
}

func (c *Client) Find(ctx context.Context, search string) ([]domain.Item, error) {
	var payload []itemPayload
	path := "/api/inventory/find/" + url.PathEscape(search)
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return toItems(payload), nil
}

// Add creates item and returns the server assigned id.
func (c *Client) Add(ctx context.Context, item domain.Item) (int64, error) {
	var resp struct {
		ID int64 `json:"id"`
	}
	body := itemPayload{Brand: item.Brand, Model: item.Model, Year: item.Year, Color: item.Color}
	if err := c.do(ctx, http.MethodPost, "/api/inventory/add", body, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// Update replaces the fields of item. It reports false when the server
// matched no row owned by the caller.
func (c *Client) Update(ctx context.Context, item domain.Item) (bool, error) {
	var resp struct {
		ID *int64 `json:"id"`
	}
	body := itemPayload{ID: item.ID, Brand: item.Brand, Model: item.Model, Year: item.Year, Color: item.Color}
	if err := c.do(ctx, http.MethodPost, "/api/inventory/update", body, &resp); err != nil {
		return false, err
	}
	return resp.ID != nil, nil
}

// Remove deletes id and returns how many rows the server deleted.
func (c *Client) Remove(ctx context.Context, id int64) (int64, error) {
	var resp struct {
		ID int64 `json:"id"`
	}
	path := "/api/inventory/remove/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// ExportResult describes a snapshot written by the server.
type ExportResult struct {
	Key        string `json:"key"`
	Location   string `json:"location"`
	Total      int    `json:"total"`
	ExportedAt string `json:"exported_at"`
}

// Export asks the server to write a snapshot of the caller's inventory.
func (c *Client) Export(ctx context.Context) (*ExportResult, error) {
	var resp ExportResult
	if err := c.do(ctx, http.MethodPost, "/api/inventory/export", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
