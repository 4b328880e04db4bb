// Package client talks to a running forgeone server.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/forgeone/internal/ledger"
)

const httpTimeout = 5 * time.Second

// Client talks to the forgeone server.
type Client struct {
	http      *http.Client
	serverURL string
}

// New creates a client for the server at serverURL.
func New(serverURL string) *Client {
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: strings.TrimRight(serverURL, "/"),
	}
}

// APIError is a failed response from the server.
type APIError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("status %d: %s (%s)", e.Status, e.Message, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
}

// do sends body as JSON and decodes the envelope's data into out, if non-nil.
func (c *Client) do(method, path string, body any, out any) error {
	if body == nil {
		return c.send(method, path, "", nil, out)
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return c.send(method, path, "application/json", bytes.NewReader(buf), out)
}

func (c *Client) send(method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequest(method, c.serverURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, data)
	}
	if resp.StatusCode >= 400 || !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message, Errors: env.Errors}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return nil
}

// CreateEntry records a new entry on the server.
func (c *Client) CreateEntry(d ledger.Draft) (ledger.Entry, error) {
	var e ledger.Entry
	err := c.do(http.MethodPost, "/api/entries", d, &e)
	return e, err
}

// Import sends a JSON array or JSON Lines document of entries to the server.
func (c *Client) Import(data []byte) (ledger.ImportResult, error) {
	var res ledger.ImportResult
	err := c.send(http.MethodPost, "/api/import", "application/json", bytes.NewReader(data), &res)
	return res, err
}

// ResetAnchors has the server discard every memory anchor and extract them
// again from the current entries. It returns the new anchor count.
func (c *Client) ResetAnchors() (int, error) {
	var out struct {
		Anchors int `json:"anchors"`
	}
	err := c.do(http.MethodPost, "/api/anchors/reset", nil, &out)
	return out.Anchors, err
}

// Digest fetches the markdown digest listing up to maxAnchors memories.
func (c *Client) Digest(maxAnchors int) (string, error) {
	var out struct {
		Digest string `json:"digest"`
	}
	err := c.do(http.MethodGet, "/api/digest?anchors="+strconv.Itoa(maxAnchors), nil, &out)
	return out.Digest, err
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
