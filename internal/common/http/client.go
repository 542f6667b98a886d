// internal/common/http/client.go
package http

import (
	"net"
	"net/http"
	"time"
)

// PoolConfig sizes the shared transport used for upstream API calls.
type PoolConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

const (
	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 120 * time.Second
)

// NewClient returns an *http.Client backed by a pooled transport. It is safe
// for concurrent use and is meant to be shared by all requests. Per-call
// deadlines come from the request context; timeout is only an upper bound.
func NewClient(timeout time.Duration, pool PoolConfig) *http.Client {
	if pool.MaxIdleConns <= 0 {
		pool.MaxIdleConns = defaultMaxIdleConns
	}
	if pool.MaxIdleConnsPerHost <= 0 {
		pool.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if pool.IdleConnTimeout <= 0 {
		pool.IdleConnTimeout = defaultIdleConnTimeout
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        pool.MaxIdleConns,
			MaxIdleConnsPerHost: pool.MaxIdleConnsPerHost,
			IdleConnTimeout:     pool.IdleConnTimeout,
			ForceAttemptHTTP2:   true,
		},
		Timeout: timeout,
	}
}
