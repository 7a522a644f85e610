package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal HTTP client for the oracle server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New returns a client with a default HTTP timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// WeaponRequest mirrors the score payload. Identity fields are decimal strings.
type WeaponRequest struct {
	Hash          string             `json:"hash"`
	ItemFamily    string             `json:"itemFamily"`
	ItemSubFamily string             `json:"itemSubFamily"`
	AmmoType      string             `json:"ammoType"`
	DamageType    string             `json:"damageType"`
	Stats         map[string]float64 `json:"stats"`
}

// Metadata describes the server build.
type Metadata struct {
	APIVersion   string `json:"apiVersion"`
	APICommit    string `json:"apiCommit"`
	APIBranch    string `json:"apiBranch"`
	APITimestamp string `json:"apiTimestamp"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
	// RetryAfter is set when the server reported the engine busy.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

// IsBusy reports whether err is an engine busy rejection.
func IsBusy(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusServiceUnavailable
}

func (c *Client) endpoint(path string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	return base + path
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var payload io.Reader
	if body != nil {
		payload = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), payload)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = resp.Status
		}
		se := &StatusError{StatusCode: resp.StatusCode, Message: msg}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
		return nil, se
	}
	return data, nil
}

// Score submits a weapon and returns the serialized weapon unchanged.
func (c *Client) Score(ctx context.Context, req *WeaponRequest) (json.RawMessage, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return c.ScoreRaw(ctx, body)
}

// ScoreRaw submits a raw JSON body.
func (c *Client) ScoreRaw(ctx context.Context, body []byte) (json.RawMessage, error) {
	data, err := c.do(ctx, http.MethodPost, "/v1/oracle", body)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// Metadata fetches build information.
func (c *Client) Metadata(ctx context.Context) (*Metadata, error) {
	data, err := c.do(ctx, http.MethodGet, "/v1/oracle/metadata", nil)
	if err != nil {
		return nil, err
	}
	var out Metadata
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &out, nil
}

// Status fetches the server status document.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	data, err := c.do(ctx, http.MethodGet, "/v1/oracle/status", nil)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return out, nil
}
