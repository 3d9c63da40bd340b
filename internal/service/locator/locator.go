package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client finds mental-health practices near a named place using the
// OpenStreetMap Nominatim geocoder plus an Overpass nearby query.
type Client struct {
	geocodeURL  string
	overpassURL string
	httpClient  *http.Client
	radiusM     int
	maxResults  int
}

// NewClient creates a locator over the given endpoints.
func NewClient(geocodeURL, overpassURL string, timeout time.Duration) *Client {
	return &Client{
		geocodeURL:  geocodeURL,
		overpassURL: overpassURL,
		httpClient:  &http.Client{Timeout: timeout},
		radiusM:     10000,
		maxResults:  5,
	}
}

type geocodeResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type overpassResponse struct {
	Elements []struct {
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// FindTherapists geocodes location and lists nearby clinics and practices.
func (c *Client) FindTherapists(ctx context.Context, location string) (string, error) {
	lat, lon, err := c.geocode(ctx, location)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(`[out:json];
(
  node["amenity"~"clinic|hospital|doctors"](around:%d,%s,%s);
  node["office"="therapist"](around:%d,%s,%s);
  node["name"~"psychologist|therapist|counseling",i](around:%d,%s,%s);
);
out center;`, c.radiusM, lat, lon, c.radiusM, lat, lon, c.radiusM, lat, lon)

	form := url.Values{}
	form.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.overpassURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("overpass returned status %d", resp.StatusCode)
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode overpass response: %w", err)
	}

	if len(parsed.Elements) == 0 {
		return fmt.Sprintf("No therapists found near %s.", location), nil
	}

	var lines []string
	for _, el := range parsed.Elements {
		name := el.Tags["name"]
		if name == "" {
			name = "Name not available"
		}
		address := joinNonEmpty(el.Tags["addr:street"], el.Tags["addr:city"], el.Tags["addr:postcode"])
		if address == "" {
			address = "Address not available"
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", name, address))
		if len(lines) >= c.maxResults {
			break
		}
	}

	return "Therapists and clinics found near " + location + ":\n" + strings.Join(lines, "\n"), nil
}

func (c *Client) geocode(ctx context.Context, location string) (lat, lon string, err error) {
	endpoint := strings.TrimRight(c.geocodeURL, "/") + "/search?format=json&limit=1&q=" + url.QueryEscape(location)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "safespace-agent/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", "", fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return "", "", fmt.Errorf("could not find location %q", location)
	}

	return results[0].Lat, results[0].Lon, nil
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
