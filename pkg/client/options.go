package client

import (
	"net/http"
	"time"
)

type Options struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
	HTTPClient     *http.Client
}

type Option func(*Options) error

// BaseURL overrides the Twitter API base URL. Tests point this at a local
// server.
func BaseURL(u string) Option {
	return func(o *Options) error {
		o.BaseURL = u
		return nil
	}
}

// Timeout sets the per-request timeout. The default is 30 seconds.
func Timeout(timeout time.Duration) Option {
	return func(o *Options) error {
		o.Timeout = timeout
		return nil
	}
}

// RequestsPerSecond caps the request rate against the API. The default is 1.
func RequestsPerSecond(rps float64) Option {
	return func(o *Options) error {
		o.RequestsPerSec = rps
		return nil
	}
}

// HTTPClient supplies a custom http.Client.
func HTTPClient(c *http.Client) Option {
	return func(o *Options) error {
		o.HTTPClient = c
		return nil
	}
}
