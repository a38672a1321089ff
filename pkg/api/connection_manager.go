package api

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi/transport"
)

// ConnectionConfig holds configuration for HTTP connections
type ConnectionConfig struct {
	MaxConnsPerHost       int
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	RequestTimeout        time.Duration
	ResponseHeaderTimeout time.Duration

	// RequestsPerSecond caps the combined request rate of every key. Zero
	// disables the limiter.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConnectionConfig returns optimized default connection settings
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxConnsPerHost:       100,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		DialTimeout:           10 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		RequestTimeout:        30 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
}

// ConnectionManager owns the transport shared by every per-key client, so
// switching keys reuses pooled connections.
type ConnectionManager struct {
	config  ConnectionConfig
	base    http.RoundTripper
	limiter *rate.Limiter
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
	}
	return newConnectionManager(config, base)
}

// NewConnectionManagerWithTransport wraps an existing round tripper, e.g.
// an httptest server's.
func NewConnectionManagerWithTransport(config ConnectionConfig, base http.RoundTripper) *ConnectionManager {
	if base == nil {
		base = http.DefaultTransport
	}
	return newConnectionManager(config, base)
}

func newConnectionManager(config ConnectionConfig, base http.RoundTripper) *ConnectionManager {
	cm := &ConnectionManager{config: config, base: base}
	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		cm.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}
	return cm
}

// ClientFor returns an HTTP client that signs every request with key.
func (cm *ConnectionManager) ClientFor(key Key) *http.Client {
	var rt http.RoundTripper = cm.base
	if cm.limiter != nil {
		rt = &limitedTransport{limiter: cm.limiter, next: rt}
	}
	return &http.Client{
		Transport: &transport.APIKey{Key: key.Token, Transport: rt},
		Timeout:   cm.config.RequestTimeout,
	}
}

type limitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}
