package logging

import (
	"net/http"
	"time"
)

// Transport wraps an http.RoundTripper and logs every outgoing request.
type Transport struct {
	// Base is the underlying transport. http.DefaultTransport when nil.
	Base http.RoundTripper
}

// NewTransport returns a logging transport around base.
func NewTransport(base http.RoundTripper) *Transport {
	return &Transport{Base: base}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.base().RoundTrip(req)

	duration := time.Since(start)
	if err != nil {
		HTTPRequestContext(req.Context(), req.Method, req.URL.Redacted(), 0, duration, "error", err.Error())
		return nil, err
	}
	HTTPRequestContext(req.Context(), req.Method, req.URL.Redacted(), resp.StatusCode, duration)
	return resp, nil
}
