// Package ctlclient is the HTTP client synchdbctl uses to talk to a
// running daemon's admin surface, grounded on the teacher's
// cmd/cli/internal/httpclient package: a thin wrapper around
// net/http that marshals a request body, decodes a status/error
// envelope, and turns a non-2xx response into a typed error.
package ctlclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to one daemon's admin API base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL (e.g. "http://localhost:8089").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// StatusResponse is the {"status": N} envelope every admin verb
// returns (spec §6 "All return an integer status").
type StatusResponse struct {
	Status int `json:"status"`
}

// APIError reports a non-2xx response from the admin API.
type APIError struct {
	HTTPStatus int
	Status     int
}

func (e APIError) Error() string {
	return fmt.Sprintf("admin API returned HTTP %d (status=%d)", e.HTTPStatus, e.Status)
}

func (c *Client) do(method, path string, body interface{}) (StatusResponse, error) {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return StatusResponse{}, fmt.Errorf("ctlclient: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("ctlclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("ctlclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var sr StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return StatusResponse{}, fmt.Errorf("ctlclient: decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return sr, APIError{HTTPStatus: resp.StatusCode, Status: sr.Status}
	}
	return sr, nil
}

// AddConnInfo registers a connector (admin verb add_conninfo). cfg is
// the JSON body the server decodes into model.ConnectorConfig plus a
// rule_file path; callers build it as a map to avoid an import cycle
// back into internal/model from the CLI binary.
func (c *Client) AddConnInfo(cfg map[string]interface{}) (StatusResponse, error) {
	return c.do(http.MethodPost, "/api/v1/connectors", cfg)
}

func (c *Client) DeleteConnInfo(name string) (StatusResponse, error) {
	return c.do(http.MethodDelete, "/api/v1/connectors/"+name, nil)
}

func (c *Client) Start(name string) (StatusResponse, error) {
	return c.do(http.MethodPost, "/api/v1/connectors/"+name+"/start", nil)
}

func (c *Client) Stop(name string) (StatusResponse, error) {
	return c.do(http.MethodPost, "/api/v1/connectors/"+name+"/stop", nil)
}

func (c *Client) Pause(name string) (StatusResponse, error) {
	return c.do(http.MethodPost, "/api/v1/connectors/"+name+"/pause", nil)
}

func (c *Client) Resume(name string) (StatusResponse, error) {
	return c.do(http.MethodPost, "/api/v1/connectors/"+name+"/resume", nil)
}

func (c *Client) SetOffset(name, offset string) (StatusResponse, error) {
	return c.do(http.MethodPost, "/api/v1/connectors/"+name+"/set_offset", map[string]string{"offset": offset})
}

func (c *Client) AddObjMap(name, objectType, source, destination string) (StatusResponse, error) {
	return c.do(http.MethodPost, "/api/v1/connectors/"+name+"/objmap", map[string]string{
		"object_type":        objectType,
		"source_object":      source,
		"destination_object": destination,
	})
}

func (c *Client) DeleteObjMap(name, objectType, source string) (StatusResponse, error) {
	return c.do(http.MethodDelete, "/api/v1/connectors/"+name+"/objmap", map[string]string{
		"object_type":   objectType,
		"source_object": source,
	})
}

func (c *Client) AddExtraConnInfo(name, key, value string) (StatusResponse, error) {
	return c.do(http.MethodPost, "/api/v1/connectors/"+name+"/extra_conninfo", map[string]string{"key": key, "value": value})
}

func (c *Client) DeleteExtraConnInfo(name, key string) (StatusResponse, error) {
	return c.do(http.MethodDelete, "/api/v1/connectors/"+name+"/extra_conninfo", map[string]string{"key": key})
}

// Status fetches one connector's full snapshot (not one of the eleven
// admin verbs, but exposed by the server for observers).
func (c *Client) Status(name string) (map[string]interface{}, error) {
	resp, err := c.http.Get(c.baseURL + "/api/v1/connectors/" + name)
	if err != nil {
		return nil, fmt.Errorf("ctlclient: status %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ctlclient: status %s: HTTP %d", name, resp.StatusCode)
	}
	var snap map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("ctlclient: decode status %s: %w", name, err)
	}
	return snap, nil
}

// List returns every registered connector name.
func (c *Client) List() ([]string, error) {
	resp, err := c.http.Get(c.baseURL + "/api/v1/connectors")
	if err != nil {
		return nil, fmt.Errorf("ctlclient: list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ctlclient: list: HTTP %d", resp.StatusCode)
	}
	var body struct {
		Connectors []string `json:"connectors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ctlclient: decode list: %w", err)
	}
	return body.Connectors, nil
}
