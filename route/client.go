package route

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"
)

// ClientConfig configures the HTTP route planner.
type ClientConfig struct {
	// GeocodeURL is a Nominatim-compatible search endpoint.
	GeocodeURL string

	// RouteURL is an OSRM-compatible routing endpoint root.
	RouteURL string

	// UserAgent is sent with every request; geocoding services require one.
	UserAgent string

	HTTPClient *http.Client

	// RequestsPerSecond caps outgoing calls. Zero disables the limiter.
	RequestsPerSecond float64
}

// Client is an HTTP Planner backed by Nominatim-style geocoding and
// OSRM-style routing.
type Client struct {
	geocodeURL string
	routeURL   string
	userAgent  string
	http       *http.Client
	limiter    *rate.Limiter
}

// NewClient creates an HTTP route planner.
func NewClient(cfg ClientConfig) *Client {
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = "https://nominatim.openstreetmap.org/search"
	}
	if cfg.RouteURL == "" {
		cfg.RouteURL = "https://router.project-osrm.org"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "waytales"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	c := &Client{
		geocodeURL: cfg.GeocodeURL,
		routeURL:   cfg.RouteURL,
		userAgent:  cfg.UserAgent,
		http:       cfg.HTTPClient,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

type geocodeResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Duration float64 `json:"duration"`
		Distance float64 `json:"distance"`
	} `json:"routes"`
}

// Plan implements Planner.
func (c *Client) Plan(ctx context.Context, req Request) (Summary, error) {
	if !req.Mode.Valid() {
		return Summary{}, fmt.Errorf("unsupported travel mode %q", req.Mode)
	}

	start, err := c.geocode(ctx, req.Start)
	if err != nil {
		return Summary{}, fmt.Errorf("geocoding %q: %w", req.Start, err)
	}
	end, err := c.geocode(ctx, req.End)
	if err != nil {
		return Summary{}, fmt.Errorf("geocoding %q: %w", req.End, err)
	}

	profile := "driving"
	if req.Mode == ModeWalking {
		profile = "foot"
	}
	u := fmt.Sprintf("%s/route/v1/%s/%s,%s;%s,%s?overview=false",
		c.routeURL, profile, start.Lon, start.Lat, end.Lon, end.Lat)

	var resp osrmResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return Summary{}, fmt.Errorf("routing: %w", err)
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return Summary{}, ErrNotFound
	}

	duration := time.Duration(resp.Routes[0].Duration * float64(time.Second))
	if duration > MaxDuration {
		return Summary{}, ErrTooLong
	}

	log.Debug("route resolved",
		"start", start.DisplayName,
		"end", end.DisplayName,
		"duration", duration)

	return Summary{
		StartLabel:   start.DisplayName,
		EndLabel:     end.DisplayName,
		Mode:         req.Mode,
		Duration:     duration,
		DurationText: humanDuration(duration),
		DistanceText: humanDistance(resp.Routes[0].Distance),
	}, nil
}

func (c *Client) geocode(ctx context.Context, query string) (geocodeResult, error) {
	u := fmt.Sprintf("%s?format=json&limit=1&q=%s", c.geocodeURL, url.QueryEscape(query))

	var results []geocodeResult
	if err := c.getJSON(ctx, u, &results); err != nil {
		return geocodeResult{}, err
	}
	if len(results) == 0 {
		return geocodeResult{}, ErrNotFound
	}
	return results[0], nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP status %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close() //nolint:errcheck
		body = gz
	}

	return json.NewDecoder(body).Decode(out)
}
