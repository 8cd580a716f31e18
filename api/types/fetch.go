package types

import "fmt"

// ErrorKind classifies a failed fetch. The kind decides what the host tells
// the user and whether retrying can help.
type ErrorKind string

const (
	// ConfigError means a required parameter is missing or malformed. No
	// network call was attempted.
	ConfigError ErrorKind = "config"
	// AuthError means the credential was rejected (or the target account is
	// private). The user has to re-authenticate.
	AuthError ErrorKind = "auth"
	// RateLimitError means Twitter is throttling us. Retry later.
	RateLimitError ErrorKind = "rate_limit"
	// NetworkError is a transport-level failure before any response arrived.
	NetworkError ErrorKind = "network"
	// ApiError is a non-success response from Twitter, e.g. "user not found".
	ApiError ErrorKind = "api"
)

// ErrorInfo is the user-facing record of a failed fetch.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// FetchRequest is one invocation of the engine against a named dataset. The
// query fields are inlined, so the wire shape is
// {"dataset": ..., "querytype": ..., "query": ..., "accumulate": ...}.
type FetchRequest struct {
	Dataset string `json:"dataset"`
	QuerySpec
	Accumulate bool `json:"accumulate"`
}

// FetchResponse carries the table after an invocation. Error is non-nil when
// the invocation failed; Rows then still holds the most recent good table.
type FetchResponse struct {
	Dataset  string     `json:"dataset"`
	Rows     []Tweet    `json:"rows"`
	RowCount int        `json:"row_count"`
	Version  string     `json:"version"`
	Changed  bool       `json:"changed"`
	Error    *ErrorInfo `json:"error,omitempty"`
}
