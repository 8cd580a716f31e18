package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff"

	"github.com/workbenchdata/twitter-fetch/api/types"
)

// WorkerClient talks to a running twitter-fetch worker over its HTTP API.
type WorkerClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewWorkerClient creates a new WorkerClient instance.
func NewWorkerClient(baseURL string) *WorkerClient {
	return &WorkerClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
	}
}

// Fetch runs one fetch invocation on the worker and returns the resulting
// table.
func (c *WorkerClient) Fetch(req types.FetchRequest) (*types.FetchResponse, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshaling fetch request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.BaseURL+"/fetch", bytes.NewBuffer(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("error creating POST request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	return c.do(httpReq)
}

// GetDataset returns the current table for a dataset without fetching.
func (c *WorkerClient) GetDataset(dataset string) (*types.FetchResponse, error) {
	httpReq, err := http.NewRequest(http.MethodGet, c.BaseURL+"/dataset/"+dataset, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating GET request: %w", err)
	}
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	return c.do(httpReq)
}

// WaitForChange polls the worker until the dataset's version token differs
// from lastVersion, backing off exponentially between polls.
func (c *WorkerClient) WaitForChange(ctx context.Context, dataset, lastVersion string) (*types.FetchResponse, error) {
	var result *types.FetchResponse

	operation := func() error {
		resp, err := c.GetDataset(dataset)
		if err != nil {
			return err
		}
		if resp.Version == lastVersion {
			return fmt.Errorf("dataset %s unchanged at version %s", dataset, lastVersion)
		}
		result = resp
		return nil
	}

	b := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *WorkerClient) do(req *http.Request) (*types.FetchResponse, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error: received status code %d: %s", resp.StatusCode, string(body))
	}

	var fetchResp types.FetchResponse
	if err := json.Unmarshal(body, &fetchResp); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	return &fetchResp, nil
}
