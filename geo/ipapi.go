package geo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/ratelimit"
)

const (
	DefaultBaseURL           = "http://ip-api.com"
	DefaultTimeout           = 5 * time.Second
	DefaultRequestsPerMinute = 15

	// MaxBatchSize is the largest batch ip-api.com accepts.
	MaxBatchSize = 100

	fields = "status,message,country,countryCode,regionName,city,lat,lon,query"
)

// ErrResolveFailed is returned when the service answers with status "fail".
var ErrResolveFailed = errors.New("geolocation failed")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Resolver turns IP addresses into locations.
type Resolver interface {
	Lookup(ctx context.Context, ip string) (Location, error)
	// LookupBatch returns the locations it could resolve. IPs missing from
	// the result were not resolved.
	LookupBatch(ctx context.Context, ips []string) (map[string]Location, error)
}

type ipAPIResult struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	RegionName  string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Query       string  `json:"query"`
}

func (r ipAPIResult) location() Location {
	return Location{
		Lat:         r.Lat,
		Lon:         r.Lon,
		Country:     r.Country,
		CountryCode: r.CountryCode,
		Region:      r.RegionName,
		City:        r.City,
	}
}

// IPAPIClient talks to the ip-api.com JSON endpoints.
type IPAPIClient struct {
	baseURL string
	http    *http.Client
	limiter ratelimit.Limiter
}

// NewIPAPIClient creates a client. requestsPerMinute <= 0 disables rate
// limiting.
func NewIPAPIClient(baseURL string, timeout time.Duration, requestsPerMinute int) *IPAPIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limiter := ratelimit.NewUnlimited()
	if requestsPerMinute > 0 {
		limiter = ratelimit.New(requestsPerMinute, ratelimit.Per(time.Minute), ratelimit.WithSlack(0))
	}
	return &IPAPIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

func (c *IPAPIClient) Lookup(ctx context.Context, ip string) (Location, error) {
	var res ipAPIResult
	path := "/json/" + url.PathEscape(ip) + "?fields=" + fields
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return Location{}, err
	}
	if res.Status != "success" {
		return Location{}, fmt.Errorf("%s: %w: %s", ip, ErrResolveFailed, res.Message)
	}
	return res.location(), nil
}

// LookupBatch resolves up to MaxBatchSize addresses in one request. Entries
// the service could not resolve are left out of the result.
func (c *IPAPIClient) LookupBatch(ctx context.Context, ips []string) (map[string]Location, error) {
	if len(ips) == 0 {
		return map[string]Location{}, nil
	}
	if len(ips) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds the limit of %d", len(ips), MaxBatchSize)
	}

	var results []ipAPIResult
	if err := c.do(ctx, http.MethodPost, "/batch?fields="+fields, ips, &results); err != nil {
		return nil, err
	}

	out := make(map[string]Location, len(results))
	for _, r := range results {
		if r.Status != "success" || r.Query == "" {
			continue
		}
		out[r.Query] = r.location()
	}
	return out, nil
}

func (c *IPAPIClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	if err := c.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		if s := strings.TrimSpace(string(msg)); s != "" {
			return fmt.Errorf("geo request failed: %s: %s", res.Status, s)
		}
		return fmt.Errorf("geo request failed: %s", res.Status)
	}

	return json.NewDecoder(res.Body).Decode(out)
}

// wait blocks for a rate limiter slot or until ctx is done.
func (c *IPAPIClient) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	go func() {
		c.limiter.Take()
		close(done)
	}()
	select {
	case <-done:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Resolver = (*IPAPIClient)(nil)
