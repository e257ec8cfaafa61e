package imgw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var (
	// ErrConnection indicates the transport layer could not reach the host
	// (DNS, TCP, TLS) or the circuit breaker is refusing calls.
	ErrConnection = errors.New("imgw: connection error")

	// ErrAPI indicates the host responded, but with a bad status, a timeout,
	// or a payload whose top-level shape does not match the endpoint.
	ErrAPI = errors.New("imgw: api error")
)

// Client fetches public IMGW-PIB data and the auxiliary geocoding/forecast
// endpoints. It is stateless apart from its circuit breakers and safe for
// concurrent use.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	proxyURL     string
	nominatimURL string

	breakers map[Endpoint]*gobreaker.CircuitBreaker
	auxCB    *gobreaker.CircuitBreaker

	// Nominatim asks for at most one request per second.
	nominatimLimiter *rate.Limiter
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the primary data API base URL (used in tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithProxyURL overrides the search/forecast proxy base URL.
func WithProxyURL(u string) ClientOption {
	return func(c *Client) { c.proxyURL = u }
}

// WithNominatimURL overrides the Nominatim base URL.
func WithNominatimURL(u string) ClientOption {
	return func(c *Client) { c.nominatimURL = u }
}

// NewClient creates an IMGW API client sharing the given HTTP client.
func NewClient(httpClient *http.Client, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:       httpClient,
		baseURL:          DefaultBaseURL,
		proxyURL:         DefaultProxyURL,
		nominatimURL:     DefaultNominatimURL,
		breakers:         make(map[Endpoint]*gobreaker.CircuitBreaker, len(Endpoints)),
		nominatimLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, ep := range Endpoints {
		c.breakers[ep] = newBreaker("imgw-" + string(ep))
	}
	c.auxCB = newBreaker("imgw-proxy")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// FetchRecords fetches one primary endpoint and returns its raw record list.
func (c *Client) FetchRecords(ctx context.Context, ep Endpoint) ([]Record, error) {
	cb, ok := c.breakers[ep]
	if !ok {
		return nil, fmt.Errorf("%w: unknown endpoint %q", ErrAPI, ep)
	}

	body, err := c.get(ctx, cb, c.baseURL+"/"+string(ep), fetchTimeout)
	if err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s: invalid json: %v", ErrAPI, ep, err)
	}

	items, ok := payload.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s: expected a list, got %T", ErrAPI, ep, payload)
	}

	records := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, Record(m))
		}
	}
	return records, nil
}

// SearchLocations forward-geocodes a place name through the proxy. Results
// are sorted by rank descending; entries without usable coordinates are
// skipped. Returns at most limit results.
func (c *Client) SearchLocations(ctx context.Context, name string, limit int) ([]SearchResult, error) {
	u := fmt.Sprintf("%s/search?%s", c.proxyURL, url.Values{"name": {name}}.Encode())
	body, err := c.get(ctx, c.auxCB, u, searchTimeout)
	if err != nil {
		return nil, err
	}

	var raw []map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: search: invalid json: %v", ErrAPI, err)
	}

	results := make([]SearchResult, 0, len(raw))
	for _, item := range raw {
		rec := Record(item)
		lat := parseCoord(item["lat"])
		lon := parseCoord(item["lon"])
		if lat == 0 && lon == 0 {
			continue
		}
		rank := parseCoord(item["rank"])
		synoptic, _ := item["synoptic"].(bool)
		results = append(results, SearchResult{
			Name:       rec.Str("name"),
			Lat:        lat,
			Lon:        lon,
			Teryt:      rec.Str("teryt"),
			Province:   rec.Str("province"),
			District:   rec.Str("district"),
			Commune:    rec.Str("commune"),
			Rank:       rank,
			Identifier: rec.Str("identifier"),
			Synoptic:   synoptic,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Rank > results[j].Rank
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ReverseGeocode resolves administrative details for a point by searching
// each hint name and keeping the nearest match within maxKM. Best effort: a
// failed lookup returns (nil, nil).
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64, hints []string, maxKM float64, distance func(lat1, lon1, lat2, lon2 float64) float64) (*SearchResult, error) {
	var best *SearchResult
	bestDist := maxKM

	for _, hint := range hints {
		if hint == "" {
			continue
		}
		results, err := c.SearchLocations(ctx, hint, 0)
		if err != nil {
			// Reverse geocoding is advisory; never fail the caller.
			continue
		}
		for i := range results {
			d := distance(lat, lon, results[i].Lat, results[i].Lon)
			if d <= bestDist {
				r := results[i]
				best = &r
				bestDist = d
			}
		}
	}
	return best, nil
}

// NominatimReverse returns the city/town/village name at the given point, or
// "" when Nominatim has no settlement there. Calls are throttled to one per
// second per the Nominatim usage policy.
func (c *Client) NominatimReverse(ctx context.Context, lat, lon float64) (string, error) {
	if err := c.nominatimLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: nominatim limiter: %v", ErrConnection, err)
	}

	params := url.Values{
		"lat":             {strconv.FormatFloat(lat, 'f', 4, 64)},
		"lon":             {strconv.FormatFloat(lon, 'f', 4, 64)},
		"format":          {"json"},
		"accept-language": {"pl"},
		"zoom":            {"10"},
	}
	body, err := c.get(ctx, nil, c.nominatimURL+"/reverse?"+params.Encode(), searchTimeout)
	if err != nil {
		return "", err
	}

	var payload struct {
		Error   string `json:"error"`
		Address struct {
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
		} `json:"address"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: nominatim: invalid json: %v", ErrAPI, err)
	}
	if payload.Error != "" {
		return "", nil
	}

	for _, name := range []string{payload.Address.City, payload.Address.Town, payload.Address.Village} {
		if name != "" {
			return name, nil
		}
	}
	return "", nil
}

// FetchForecast fetches current conditions plus hourly/daily forecasts for a
// point. The proxy wraps some responses in a "data" envelope; both forms are
// accepted.
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64) (Record, error) {
	params := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', 4, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', 4, 64)},
	}
	body, err := c.get(ctx, c.auxCB, c.proxyURL+"/forecast?"+params.Encode(), forecastTimeout)
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: forecast: invalid json: %v", ErrAPI, err)
	}

	if inner, ok := payload["data"].(map[string]any); ok {
		payload = inner
	}
	if _, ok := payload["current"]; !ok {
		return nil, fmt.Errorf("%w: forecast: missing current conditions", ErrAPI)
	}
	return Record(payload), nil
}

// get performs one GET through the optional circuit breaker and returns the
// response body on a 2xx status.
func (c *Client) get(ctx context.Context, cb *gobreaker.CircuitBreaker, rawURL string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	do := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAPI, err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: timeout: %v", ErrAPI, err)
			}
			return nil, fmt.Errorf("%w: %v", ErrConnection, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: status %d", ErrAPI, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: reading body: %v", ErrConnection, err)
		}
		return body, nil
	}

	if cb == nil {
		return do()
	}

	result, err := cb.Execute(func() (interface{}, error) {
		return do()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open: %v", ErrConnection, err)
		}
		return nil, err
	}
	return result.([]byte), nil
}

// parseCoord tolerates both stringified and native JSON numbers.
func parseCoord(v any) float64 {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	case float64:
		return t
	}
	return 0
}
