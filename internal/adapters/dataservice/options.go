package dataservice

import (
	"net/http"
	"time"

	"github.com/okian/speciesdex/pkg/logger"
	"golang.org/x/time/rate"
)

// Option configures a RESTClient.
type Option func(*RESTClient)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *RESTClient) {
		if c != nil {
			r.http = c
		}
	}
}

// WithTimeout bounds each request. Zero keeps the client's own timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *RESTClient) {
		r.timeout = d
	}
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables it.
func WithRateLimit(rps float64) Option {
	return func(r *RESTClient) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *RESTClient) {
		if l != nil {
			r.logger = l.Named("dataservice")
		}
	}
}
