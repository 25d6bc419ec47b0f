// Package router is an HTTP client for mc-router, the L7 Minecraft proxy
// that the DNS reconciler pushes route tables to. Grounded on spec.md §6's
// external interface description: "GET /routes, POST /routes with
// {serverAddress, backend}, DELETE /routes/<route>. Override is
// remove-all + add-all."
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client talks to a single mc-router instance over its JSON HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Route is one mc-router route entry.
type Route struct {
	ServerAddress string `json:"serverAddress"`
	Backend       string `json:"backend"`
}

// New creates a Client bound to baseURL (e.g. "http://mc-router:8080"). Every
// call carries its own deadline via the passed context; the http.Client here
// has no default timeout so long-lived contexts aren't clipped unexpectedly.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{}}
}

// GetRoutes lists every route currently registered with the router.
func (c *Client) GetRoutes(ctx context.Context) ([]Route, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/routes", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mc-router: GET /routes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mc-router: GET /routes: status %d", resp.StatusCode)
	}

	// mc-router's native shape is a map[serverAddress]backend; normalize to
	// the Route slice the reconciler works with.
	var raw map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("mc-router: decode routes: %w", err)
	}
	routes := make([]Route, 0, len(raw))
	for addr, backend := range raw {
		routes = append(routes, Route{ServerAddress: addr, Backend: backend})
	}
	return routes, nil
}

// AddRoute registers a single route.
func (c *Client) AddRoute(ctx context.Context, r Route) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/routes", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mc-router: POST /routes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mc-router: POST /routes %s: status %d", r.ServerAddress, resp.StatusCode)
	}
	return nil
}

// RemoveRoute deletes a single route by its server address.
func (c *Client) RemoveRoute(ctx context.Context, serverAddress string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/routes/"+url.PathEscape(serverAddress), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mc-router: DELETE /routes/%s: %w", serverAddress, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("mc-router: DELETE /routes/%s: status %d", serverAddress, resp.StatusCode)
	}
	return nil
}

// ReplaceAll overrides the full route set: remove every currently-known
// route, then add every target route, per spec.md §4.5.3 ("Router routes
// are pushed in one call that replaces the full set").
func (c *Client) ReplaceAll(ctx context.Context, target []Route) error {
	current, err := c.GetRoutes(ctx)
	if err != nil {
		return err
	}
	for _, r := range current {
		if err := c.RemoveRoute(ctx, r.ServerAddress); err != nil {
			return err
		}
	}
	for _, r := range target {
		if err := c.AddRoute(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// WithTimeout returns a context bounded by the router client's per-call
// deadline policy (spec.md §5: "HTTP-provider calls carry a per-call
// deadline (e.g. 10-30s)").
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 15*time.Second)
}
