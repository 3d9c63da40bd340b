package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/safespace/safespace-agent/internal/config"
)

var ErrNotConfigured = errors.New("twilio credentials not configured")

// Client places outbound safety calls through the Twilio REST API.
type Client struct {
	cfg        config.TwilioConfig
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a telephony client. baseURL is overridable for tests.
func NewClient(cfg config.TwilioConfig, timeout time.Duration) *Client {
	return &Client{
		cfg:        cfg,
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether calls can be placed.
func (c *Client) Configured() bool {
	return c.cfg.Enabled()
}

type callResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PlaceEmergencyCall initiates a voice call to the configured emergency
// contact and returns a human-readable confirmation.
func (c *Client) PlaceEmergencyCall(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", strings.TrimRight(c.baseURL, "/"), c.cfg.AccountSID)

	form := url.Values{}
	form.Set("To", c.cfg.EmergencyContact)
	form.Set("From", c.cfg.FromNumber)
	form.Set("Url", "http://demo.twilio.com/docs/voice.xml")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build call request: %w", err)
	}
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed callResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode call response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("twilio returned status %d: %s", resp.StatusCode, parsed.Message)
	}

	return fmt.Sprintf("Initiating emergency call to %s with SID %s", c.cfg.EmergencyContact, parsed.SID), nil
}

// SetBaseURL points the client at an alternate API host (tests only).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}
