package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// HTTPGeolocator resolves IPs against an ip-api style JSON endpoint.
type HTTPGeolocator struct {
	client  *http.Client
	baseURL string
}

// NewHTTPGeolocator constructs a geolocator. The base URL is joined with the
// IP as the last path segment.
func NewHTTPGeolocator(client *http.Client, baseURL string) *HTTPGeolocator {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGeolocator{client: client, baseURL: baseURL}
}

// Lookup fetches coarse location data for the IP.
func (g *HTTPGeolocator) Lookup(ctx context.Context, ip string) (map[string]any, error) {
	u, err := url.JoinPath(g.baseURL, ip)
	if err != nil {
		return nil, fmt.Errorf("audit: geo url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("audit: geo request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("audit: geo lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("audit: geo lookup status %d", resp.StatusCode)
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("audit: geo decode: %w", err)
	}

	return data, nil
}

// NoopGeolocator disables enrichment.
type NoopGeolocator struct{}

// Lookup always returns no data.
func (NoopGeolocator) Lookup(context.Context, string) (map[string]any, error) {
	return nil, nil
}
