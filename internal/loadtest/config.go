package loadtest

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultTargetURL is the collaborator's list endpoint on the local service
	DefaultTargetURL = "http://localhost:8000/items"

	// DefaultRequestTimeout bounds a single generated request
	DefaultRequestTimeout = 5 * time.Second

	// DefaultMaxRPS is the largest rate accepted from callers
	DefaultMaxRPS = 1000

	// HTTP client configuration timeouts
	TCPDialTimeout       = 5 * time.Second
	TCPKeepAliveInterval = 30 * time.Second
	IdleConnTimeout      = 90 * time.Second
	maxIdleConns         = 16
)

// Config contains the settings of the load generator
type Config struct {
	TargetURL            string
	RequestTimeout       time.Duration
	MaxRPS               int
	BroadcastParallelism int
}

// Validate validates the load generator configuration
func (c *Config) Validate() error {
	if c.TargetURL == "" {
		return fmt.Errorf("target URL is required")
	}
	u, err := url.Parse(c.TargetURL)
	if err != nil {
		return fmt.Errorf("invalid target URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target URL must use http or https, got %q", u.Scheme)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	if c.MaxRPS < 0 {
		return fmt.Errorf("max rps cannot be negative")
	}
	if c.BroadcastParallelism < 0 {
		return fmt.Errorf("broadcast parallelism cannot be negative")
	}
	return nil
}

// GetRequestTimeout returns the request timeout, falling back to the default
func (c *Config) GetRequestTimeout() time.Duration {
	if c.RequestTimeout == 0 {
		return DefaultRequestTimeout
	}
	return c.RequestTimeout
}

// GetMaxRPS returns the rate limit for callers, falling back to the default
func (c *Config) GetMaxRPS() int {
	if c.MaxRPS == 0 {
		return DefaultMaxRPS
	}
	return c.MaxRPS
}

// ValidateRate checks a caller supplied rate against the configured bounds
func (c *Config) ValidateRate(rps int) error {
	if rps <= 0 {
		return fmt.Errorf("%w: rps must be greater than 0", ErrInvalidRate)
	}
	if rps > c.GetMaxRPS() {
		return fmt.Errorf("%w: rps cannot exceed %d", ErrInvalidRate, c.GetMaxRPS())
	}
	return nil
}

// buildHTTPClient creates the shared client used by the request loop.
// The loop is sequential, so a small idle pool is enough to keep the
// connection to the target alive between ticks.
func buildHTTPClient(config *Config) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConns,
		IdleConnTimeout:     IdleConnTimeout,
		DialContext: (&net.Dialer{
			Timeout:   TCPDialTimeout,
			KeepAlive: TCPKeepAliveInterval,
		}).DialContext,
		ResponseHeaderTimeout: config.GetRequestTimeout(),
	}

	return &http.Client{
		Timeout:   config.GetRequestTimeout(),
		Transport: transport,
	}
}
