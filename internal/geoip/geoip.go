// Package geoip resolves a requester's network address to a coarse location
// string via ipinfo.io. Lookups are best-effort audit data; callers substitute
// a placeholder on failure.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const defaultBaseURL = "https://ipinfo.io"

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func New(token string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		client:  &http.Client{},
	}
}

// Lookup returns "{city} {region} {country} ({ip})" for the given address.
func (c *Client) Lookup(ctx context.Context, ip string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/json?token=%s", c.baseURL, url.PathEscape(ip), url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geolocation lookup returned status %d", resp.StatusCode)
	}

	var info struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
		IP      string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s %s %s (%s)", info.City, info.Region, info.Country, info.IP), nil
}
