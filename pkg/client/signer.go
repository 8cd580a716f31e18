package client

import (
	"errors"
	"net/http"
)

// ErrNoCredential is returned when a request must be signed but no
// credential was configured.
var ErrNoCredential = errors.New("no Twitter credential configured")

// RequestSigner attaches the host-supplied credential to an outgoing
// request. The worker treats the credential as opaque: OAuth1a signing (or
// whatever the host uses) happens on the host's side of this interface.
type RequestSigner interface {
	Sign(req *http.Request) error
}

// HeaderSigner attaches a pre-built Authorization header to every request.
type HeaderSigner struct {
	Authorization string
}

func NewHeaderSigner(authorization string) *HeaderSigner {
	return &HeaderSigner{Authorization: authorization}
}

func (s *HeaderSigner) Sign(req *http.Request) error {
	if s.Authorization == "" {
		return ErrNoCredential
	}
	req.Header.Set("Authorization", s.Authorization)
	return nil
}
