package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.twitter.com"

// APIResponse is one raw page response. A non-2xx status is not an error at
// this layer; the caller classifies it.
type APIResponse struct {
	StatusCode int
	Body       []byte
}

// TwitterClient talks to the Twitter REST API. Requests are signed by the
// host-supplied signer and throttled by a local courtesy limiter so a
// paginated walk doesn't burn through the provider's rate window.
type TwitterClient struct {
	baseURL    string
	httpClient *http.Client
	signer     RequestSigner
	limiter    *rate.Limiter
}

func NewTwitterClient(signer RequestSigner, opts ...Option) (*TwitterClient, error) {
	options := Options{
		BaseURL:        defaultBaseURL,
		Timeout:        30 * time.Second,
		RequestsPerSec: 1.0,
	}
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, err
		}
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.Timeout}
	}

	return &TwitterClient{
		baseURL:    options.BaseURL,
		httpClient: httpClient,
		signer:     signer,
		limiter:    rate.NewLimiter(rate.Limit(options.RequestsPerSec), 1),
	}, nil
}

// Get performs one signed GET against an API endpoint. It returns an error
// only for transport-level failures (or context cancellation); any HTTP
// response, success or not, comes back as an APIResponse.
func (c *TwitterClient) Get(ctx context.Context, endpoint string, params url.Values) (*APIResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	logrus.Debug("GET request to: ", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if err := c.signer.Sign(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making GET request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Body: body}, nil
}
