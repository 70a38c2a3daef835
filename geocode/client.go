// Package geocode resolves free-text street addresses to coordinates via the
// geocode.maps.co forward geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ErrNotFound means the geocoder returned no usable result for the address.
// Callers store null coordinates and carry on; an address can stay
// ungeocoded forever.
var ErrNotFound = errors.New("geocode: no coordinates found")

// StatusError is a non-success response from the geocoding API. It is a hard
// failure and is never retried by this client.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("geocode: status %d: %s", e.Code, e.Body)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logf       func(format string, args ...any)
}

func NewClient(httpClient *http.Client, baseURL, apiKey string, logf func(format string, args ...any)) *Client {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logf:       logf,
	}
}

var leadingRangePattern = regexp.MustCompile(`^\d+ \d`)

// NormalizeQuery rewrites an address for lookup. Unit numbers before a "/"
// and bare leading number pairs ("36 14 High St") confuse the geocoding
// index, so both are dropped.
func NormalizeQuery(address string) string {
	if i := strings.Index(address, "/"); i >= 0 {
		return address[i+1:]
	}
	if leadingRangePattern.MatchString(address) {
		return address[strings.Index(address, " ")+1:]
	}
	return address
}

type result struct {
	Lat     string `json:"lat"`
	Lon     string `json:"lon"`
	Address struct {
		Suburb string `json:"suburb"`
	} `json:"address"`
}

// Coordinate resolves an address to (lat, lon). Zero results and failed
// disambiguation return ErrNotFound; non-200 responses return a StatusError.
func (c *Client) Coordinate(ctx context.Context, address string) (float64, float64, error) {
	query := NormalizeQuery(address)

	reqURL := fmt.Sprintf("%s/search?q=%s&api_key=%s", c.baseURL, url.QueryEscape(query), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, 0, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var results []result
	if err := json.Unmarshal(body, &results); err != nil {
		return 0, 0, fmt.Errorf("geocode: parse response: %w", err)
	}

	switch {
	case len(results) == 0:
		c.logf("%s - geocode: no results found", address)
		return 0, 0, ErrNotFound
	case len(results) == 1:
		return results[0].coords()
	default:
		lowered := strings.ToLower(address)
		for _, r := range results {
			if r.Address.Suburb == "" {
				continue
			}
			if strings.Contains(lowered, strings.ToLower(r.Address.Suburb)) {
				return r.coords()
			}
		}
		c.logf("%s - geocode: multiple results found", address)
		return 0, 0, ErrNotFound
	}
}

func (r result) coords() (float64, float64, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: parse lat %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: parse lon %q: %w", r.Lon, err)
	}
	return lat, lon, nil
}
