package net

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	maxIdleConns     = 10
	timeoutInSeconds = 60
	clientAgent      = "duanju-cli"

	tokenHeader = "token"
)

var (
	reqTransport = &http.Transport{
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       timeoutInSeconds * time.Second,
		DisableCompression:    true,
		DisableKeepAlives:     false,
		ResponseHeaderTimeout: time.Duration(timeoutInSeconds) * time.Second,
	}
)

// agentTransport stamps every request with the client agent and, when set,
// the raw session token header the API expects next to the bearer one.
type agentTransport struct {
	base  http.RoundTripper
	token string
}

func (t *agentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", clientAgent)
	if t.token != "" {
		r.Header.Set(tokenHeader, t.token)
	}
	return t.base.RoundTrip(r)
}

func (t *agentTransport) CloseIdleConnections() {
	if c, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

// GetHTTPClient returns an unauthenticated client.
func GetHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = timeoutInSeconds * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &agentTransport{base: reqTransport},
	}
}

// GetOAuthClient returns a client that sends token as a bearer token. An
// empty token yields a plain client.
func GetOAuthClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	base := GetHTTPClient(timeout)
	if token == "" {
		return base
	}
	base.Transport = &agentTransport{base: reqTransport, token: token}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{
			TokenType:   "Bearer",
			AccessToken: token,
		},
	)
	tc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), ts)
	tc.Timeout = base.Timeout

	return tc
}
