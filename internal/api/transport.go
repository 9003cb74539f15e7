package api

import (
	"fmt"
	"net/http"

	"github.com/youhedge/hedgetv/internal/shared"
	"golang.org/x/oauth2"
)

// TokenHeader is the header the YouHedge API reads the access token from.
const TokenHeader = "X-YouHedge-Token"

// Transport is an [http.RoundTripper] that stamps each request with the current
// access token from Source. Header construction fails synchronously with
// [shared.ErrNotAuthenticated] when no token is available, before anything goes
// on the wire.
type Transport struct {
	Source oauth2.TokenSource
	Base   http.RoundTripper
}

var _ http.RoundTripper = (*Transport)(nil)

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Source == nil {
		return nil, shared.ErrNotAuthenticated
	}

	token, err := t.Source.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// Per RoundTripper contract the request must not be mutated.
	clone := req.Clone(req.Context())
	clone.Header.Set(TokenHeader, token.AccessToken)
	clone.Header.Set("Accept", "application/json")

	resp, err := base.RoundTrip(clone)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	return resp, nil
}

// NewAuthorizedClient builds an [http.Client] whose requests carry the
// X-YouHedge-Token header sourced from src.
func NewAuthorizedClient(src oauth2.TokenSource, base *http.Client) *http.Client {
	var rt http.RoundTripper
	if base != nil {
		rt = base.Transport
	}

	client := &http.Client{Transport: &Transport{Source: src, Base: rt}}
	if base != nil {
		client.Timeout = base.Timeout
	}
	return client
}
