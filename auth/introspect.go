package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// IntrospectionRequest is the wire request of the introspection endpoint.
type IntrospectionRequest struct {
	Token string `json:"token"`
}

// IntrospectionVerdict is the issuer's answer about a token. It is
// transient, never persisted, and held at most for one request.
type IntrospectionVerdict struct {
	Active  bool     `json:"active"`
	Subject string   `json:"sub,omitempty"`
	Roles   []string `json:"roles"`
}

// InactiveVerdict is the verdict returned for any token the issuer
// cannot positively validate.
func InactiveVerdict() *IntrospectionVerdict {
	return &IntrospectionVerdict{Active: false, Roles: []string{}}
}

// IntrospectionClient asks the issuing service whether a token is
// currently valid. It is a capability interface so a relying service
// can be tested with an in-process stub instead of a network client.
type IntrospectionClient interface {
	Introspect(ctx context.Context, token string) (*IntrospectionVerdict, error)
}

// DefaultIntrospectionTimeout bounds one introspection round trip.
const DefaultIntrospectionTimeout = 5 * time.Second

// HTTPIntrospectionClient calls the issuer's introspection endpoint
// over HTTP. Calls are not retried: a timeout or I/O failure surfaces
// to the validator, which fails closed, and the caller of the outer
// request decides whether to retry.
type HTTPIntrospectionClient struct {
	endpoint string
	timeout  time.Duration
	client   *retryablehttp.Client
}

var _ IntrospectionClient = (*HTTPIntrospectionClient)(nil)

// NewHTTPIntrospectionClient creates a client for the given endpoint
// URL. A non-positive timeout selects DefaultIntrospectionTimeout.
func NewHTTPIntrospectionClient(endpoint string, timeout time.Duration) *HTTPIntrospectionClient {
	if timeout <= 0 {
		timeout = DefaultIntrospectionTimeout
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.RetryMax = 0
	client.Logger = nil

	return &HTTPIntrospectionClient{
		endpoint: endpoint,
		timeout:  timeout,
		client:   client,
	}
}

// Introspect posts the raw token to the issuer and decodes the verdict.
func (c *HTTPIntrospectionClient) Introspect(ctx context.Context, token string) (*IntrospectionVerdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(&IntrospectionRequest{Token: token})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("introspection endpoint returned status %d", resp.StatusCode)
	}

	var verdict IntrospectionVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}
