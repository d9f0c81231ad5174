// Package transport authorizes outgoing HTTP requests with the token held in
// the shared authentication state.
package transport

import (
	"net/http"

	"github.com/MrEthical07/authstate"
)

// ViewSource supplies the current authentication view.
type ViewSource interface {
	Auth() authstate.View
}

// Bearer is an http.RoundTripper that sets "Authorization: Bearer <token>"
// when the view is authenticated. Requests that already carry an
// Authorization header are sent unchanged.
type Bearer struct {
	Source ViewSource
	// Base is the underlying transport. http.DefaultTransport when nil.
	Base http.RoundTripper
}

func (b *Bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	base := b.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if b.Source == nil || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	view := b.Source.Auth()
	if !view.IsAuthenticated || view.Token == "" {
		return base.RoundTrip(req)
	}

	// RoundTrippers must not mutate the caller's request.
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+view.Token)
	return base.RoundTrip(out)
}

// Client returns an http.Client using a Bearer transport over base.
func Client(src ViewSource, base *http.Client) *http.Client {
	c := &http.Client{}
	if base != nil {
		*c = *base
	}
	c.Transport = &Bearer{Source: src, Base: c.Transport}
	return c
}
