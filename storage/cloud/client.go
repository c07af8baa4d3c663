// Package cloudstore talks to the managed backend over JSON/HTTP: the
// full-state fetch plus the fixed set of single-record writes.
package cloudstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		baseURL:    core.Conf.GetString("backendURL"),
		apiKey:     core.Conf.GetString("backendApiKey"),
		httpClient: &http.Client{Timeout: core.Conf.GetDuration("backendTimeout")},
	}
}

// checkConfig fails fast with the credential/endpoint wording the sync
// engine's failure classifier keys on.
func (c *Client) checkConfig() error {
	if c.baseURL == "" {
		return errors.New("backend URL is not configured")
	}
	if c.apiKey == "" {
		return errors.New("backend API key is not configured")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if err := c.checkConfig(); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Errorf("backend rejected the API key (status %d)", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return ErrNoRows
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return errors.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "decoding %s response", path)
		}
	}
	return nil
}

// ErrNoRows marks an absent record; callers map it to their domain not-found
// sentinel.
var ErrNoRows = errors.New("no rows returned")

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) patch(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func recordPath(collection, id string) string {
	return fmt.Sprintf("/%s/%s", collection, url.PathEscape(id))
}
