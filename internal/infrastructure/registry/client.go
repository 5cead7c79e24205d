// Package registry is the HTTP client for the GA4GH service registry
// and for per-service live service-info probes.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ga4gh-tools/svcreg/internal/domain/service"
	"github.com/ga4gh-tools/svcreg/internal/httputil"
	"github.com/ga4gh-tools/svcreg/internal/log"
)

// DefaultBaseURL is the public GA4GH service registry.
const DefaultBaseURL = "https://registry.ga4gh.org/v1"

// ErrRegistryUnavailable indicates the registry could not be reached
// or answered with a non-2xx status.
var ErrRegistryUnavailable = errors.New("registry unavailable")

// serviceInfoPaths maps artifact types to their live service-info
// endpoint, relative to the service base URL.
var serviceInfoPaths = map[string]string{
	"drs": "/ga4gh/drs/v1/service-info",
}

// Config configures the registry client.
type Config struct {
	BaseURL             string `mapstructure:"url"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	RetryMax            int    `mapstructure:"retry_max"`
	ProbeTimeoutSeconds int    `mapstructure:"probe_timeout_seconds"`
}

// DefaultConfig returns the production registry settings. Retries are
// off by default; failures surface immediately to the invoker.
func DefaultConfig() Config {
	return Config{
		BaseURL:             DefaultBaseURL,
		TimeoutSeconds:      30,
		RetryMax:            0,
		ProbeTimeoutSeconds: 5,
	}
}

// LiveInfo is the outcome of probing one service's live service-info
// endpoint. A probe failure is recorded, never fatal.
type LiveInfo struct {
	URL     string
	Version string
	Err     string
}

// Client fetches the service list and probes live service-info
// endpoints. Probe results are memoized per base URL for the run.
type Client struct {
	httpClient  *retryablehttp.Client
	probeClient *retryablehttp.Client
	baseURL     string
	probeCache  *gocache.Cache
}

// NewClient creates a registry client from config.
func NewClient(cfg Config) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	c.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	c.Logger = nil

	p := retryablehttp.NewClient()
	p.RetryMax = 0
	p.HTTPClient.Timeout = time.Duration(cfg.ProbeTimeoutSeconds) * time.Second
	p.Logger = nil

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient:  c,
		probeClient: p,
		baseURL:     strings.TrimRight(baseURL, "/"),
		probeCache:  gocache.New(gocache.NoExpiration, gocache.NoExpiration),
	}
}

// ListServices fetches the full service list from the registry.
func (c *Client) ListServices(ctx context.Context) ([]service.Service, error) {
	url := c.baseURL + "/services"
	log.Debug(log.CatFetch, "fetching service list", "url", url)

	req, err := retryablehttp.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()

	if err := httputil.EnsureSuccessStatusCode(resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	var services []service.Service
	if err := json.NewDecoder(resp.Body).Decode(&services); err != nil {
		return nil, fmt.Errorf("decoding service list: %w", err)
	}

	log.Info(log.CatFetch, "fetched service list", "count", len(services))
	return services, nil
}

// ProbeServiceInfo fetches the live service-info document for a
// service. Returns nil when the artifact has no known service-info
// path. Results, including failures, are memoized per base URL.
func (c *Client) ProbeServiceInfo(ctx context.Context, baseURL, artifact string) *LiveInfo {
	path, ok := serviceInfoPaths[strings.ToLower(artifact)]
	if !ok || baseURL == "" {
		return nil
	}
	infoURL := strings.TrimRight(baseURL, "/") + path

	if cached, found := c.probeCache.Get(infoURL); found {
		log.Debug(log.CatCache, "probe cache hit", "url", infoURL)
		info := cached.(LiveInfo)
		return &info
	}

	info := c.probe(ctx, infoURL)
	c.probeCache.Set(infoURL, info, gocache.NoExpiration)
	return &info
}

func (c *Client) probe(ctx context.Context, infoURL string) LiveInfo {
	info := LiveInfo{URL: infoURL}

	req, err := retryablehttp.NewRequest("GET", infoURL, nil)
	if err != nil {
		info.Err = err.Error()
		return info
	}

	resp, err := c.probeClient.Do(req.WithContext(ctx))
	if err != nil {
		log.Warn(log.CatFetch, "service-info probe failed", "url", infoURL, "error", err)
		info.Err = err.Error()
		return info
	}
	defer resp.Body.Close()

	if err := httputil.EnsureSuccessStatusCode(resp); err != nil {
		info.Err = err.Error()
		return info
	}

	var doc struct {
		Type struct {
			Version string `json:"version"`
		} `json:"type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		info.Err = err.Error()
		return info
	}

	info.Version = doc.Type.Version
	return info
}
