package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spikeai/spike/backend/pkg/models"
)

// ErrUnreachable means the backend could not be contacted at all.
var ErrUnreachable = errors.New("cannot connect to the Spike backend")

// Client talks to the backend's HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Health reports whether GET /health answers 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %s", resp.Status)
	}
	return nil
}

// Query sends one question and waits for the answer.
func (c *Client) Query(ctx context.Context, query, propertyID string) (*models.QueryResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/query", models.QueryRequest{Query: query, PropertyID: propertyID})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	var out models.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Stream sends one question to /query/stream and calls onEvent per event.
// It returns the final event carrying the response.
func (c *Client) Stream(ctx context.Context, query, propertyID string, onEvent func(models.StreamEvent)) (*models.StreamEvent, error) {
	resp, err := c.do(ctx, http.MethodPost, "/query/stream", models.QueryRequest{Query: query, PropertyID: propertyID})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var ev models.StreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		if ev.Error != "" {
			return nil, errors.New(ev.Error)
		}
		if onEvent != nil {
			onEvent(ev)
		}
		if ev.Response != "" || ev.Status == "Complete!" {
			return &ev, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return nil, errors.New("stream ended without a response")
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var timeout interface{ Timeout() bool }
		if errors.As(err, &timeout) && timeout.Timeout() {
			return nil, fmt.Errorf("request timed out after %s: %w", c.http.Timeout, err)
		}
		return nil, fmt.Errorf("%w at %s: %v", ErrUnreachable, c.baseURL, err)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status, body.Message)
		}
		if body.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, body.Error)
		}
	}
	return fmt.Errorf("backend returned %s", resp.Status)
}
