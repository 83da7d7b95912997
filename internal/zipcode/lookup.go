// Package zipcode resolves US ZIP codes to a city and state through a public,
// unauthenticated HTTP service (zippopotam.us by default). Lookups are
// best-effort: every failure collapses to "no result".
package zipcode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// CityInfo is the location a ZIP code belongs to.
type CityInfo struct {
	City         string `json:"city"`
	State        string `json:"state"`
	FullLocation string `json:"fullLocation"` // "New York, NY"
}

// Client looks ZIP codes up against baseURL (e.g. "https://api.zippopotam.us/us").
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger.With("component", "zipcode"),
	}
}

// response mirrors the parts of the zippopotam.us payload we use.
type response struct {
	PostCode string `json:"post code"`
	Places   []struct {
		PlaceName         string `json:"place name"`
		State             string `json:"state"`
		StateAbbreviation string `json:"state abbreviation"`
	} `json:"places"`
}

// Lookup returns the city for zip. The boolean is false when the ZIP is unknown
// or the service could not be reached; the error is logged, never returned.
func (c *Client) Lookup(ctx context.Context, zip string) (*CityInfo, bool) {
	// ZIP+4 resolves by its first five digits.
	zip = strings.TrimSpace(zip)
	if i := strings.IndexByte(zip, '-'); i >= 0 {
		zip = zip[:i]
	}
	if zip == "" {
		return nil, false
	}

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, false
	}

	agent := fiber.Get(fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(zip)))
	agent.Timeout(timeout)
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		c.logger.Warn("zip lookup failed", "zip", zip, "error", errs[0])
		return nil, false
	}
	if status != fiber.StatusOK {
		c.logger.Debug("zip not found", "zip", zip, "status", status)
		return nil, false
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		c.logger.Warn("zip lookup returned malformed body", "zip", zip, "error", err)
		return nil, false
	}
	if len(resp.Places) == 0 || resp.Places[0].PlaceName == "" {
		return nil, false
	}

	place := resp.Places[0]
	abbrev := place.StateAbbreviation
	if abbrev == "" {
		abbrev = place.State
	}
	return &CityInfo{
		City:         place.PlaceName,
		State:        place.State,
		FullLocation: fmt.Sprintf("%s, %s", place.PlaceName, abbrev),
	}, true
}
