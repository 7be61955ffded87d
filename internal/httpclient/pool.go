// Package httpclient builds the single pooled *http.Client every scholarly
// and full-text source shares, so repeated calls reuse TCP connections
// instead of paying a fresh TLS handshake each time.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// Options configures the shared transport's connection pool.
type Options struct {
	// MaxConnsPerHost caps concurrent connections to a single host.
	// Semantic Scholar's public rate limit is roughly 100 req/s; half of
	// that leaves headroom for retries sharing the same pool.
	MaxConnsPerHost int
	// DNSCacheTTL is approximated via the transport's IdleConnTimeout
	// and the dialer's keep-alive, since net/http has no first-class DNS
	// cache knob the way aiohttp's TCPConnector does.
	DNSCacheTTL time.Duration
	// Timeout bounds the whole request: connect, any redirects, reading
	// the body.
	Timeout time.Duration
}

// New builds a client with one connection pool shared across every caller
// that receives it. Callers should take this by reference from whatever
// constructed it in cmd/autoscholar, never build their own.
func New(opts Options) *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: opts.DNSCacheTTL,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxConnsPerHost:     opts.MaxConnsPerHost,
		MaxIdleConnsPerHost: opts.MaxConnsPerHost,
		IdleConnTimeout:     opts.DNSCacheTTL,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}
}
