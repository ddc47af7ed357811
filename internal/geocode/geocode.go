package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrGeocodeFailed marks any failure to resolve coordinates to a place name.
// Geocoding is decorative; callers degrade to no location name.
var ErrGeocodeFailed = errors.New("geocode failed")

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Resolver reverse-geocodes coordinates against a Nominatim-compatible
// service. The service rejects anonymous traffic and rate-limits clients, so
// every request carries a User-Agent and passes a client-side limiter first.
type Resolver struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
}

// Config holds resolver configuration
type Config struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// NewResolver creates a new Resolver
func NewResolver(cfg Config) *Resolver {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "CineVault/1.0"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	return &Resolver{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// response is the subset of the Nominatim reverse response we read
type response struct {
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
}

type address struct {
	Neighbourhood string `json:"neighbourhood"`
	Suburb        string `json:"suburb"`
	Village       string `json:"village"`
	City          string `json:"city"`
	Town          string `json:"town"`
	County        string `json:"county"`
	State         string `json:"state"`
	Country       string `json:"country"`
}

// Resolve returns a short, human-readable place name for the coordinates, or
// "" when the service knows nothing about them. Network errors, non-success
// statuses, and malformed bodies all wrap ErrGeocodeFailed.
func (r *Resolver) Resolve(ctx context.Context, latitude, longitude float64) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limit wait: %v", ErrGeocodeFailed, err)
	}

	query := url.Values{}
	query.Set("format", "json")
	query.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	query.Set("zoom", "14")

	endpoint := r.baseURL + "/reverse?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeocodeFailed, err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeocodeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", ErrGeocodeFailed, resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrGeocodeFailed, err)
	}

	return reduceAddress(&body), nil
}

// reduceAddress builds a short place name from the structured address: the
// most specific locality, the most specific city-level name, then state and
// country. Falls back to the service's display name when no structured parts
// exist.
func reduceAddress(body *response) string {
	addr := body.Address
	var parts []string

	switch {
	case addr.Neighbourhood != "":
		parts = append(parts, addr.Neighbourhood)
	case addr.Suburb != "":
		parts = append(parts, addr.Suburb)
	case addr.Village != "":
		parts = append(parts, addr.Village)
	}

	switch {
	case addr.City != "":
		parts = append(parts, addr.City)
	case addr.Town != "":
		parts = append(parts, addr.Town)
	case addr.County != "":
		parts = append(parts, addr.County)
	}

	if addr.State != "" {
		parts = append(parts, addr.State)
	}
	if addr.Country != "" {
		parts = append(parts, addr.Country)
	}

	if len(parts) == 0 {
		return body.DisplayName
	}
	return strings.Join(parts, ", ")
}
