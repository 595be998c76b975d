package transport

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Request describes an API call. The transport never mutates it; each
// attempt works on its own [Call].
type Request struct {
	Method string
	// Path is resolved against the configured base URL unless absolute.
	Path   string
	Query  url.Values
	Header http.Header
	// Body is JSON encoded. []byte and json.RawMessage are sent as given
	// after null normalization.
	Body any
}

// Response is a completed HTTP exchange with its body fully read.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	RequestID string
	// Retried is true when the response came from the refresh-triggered retry.
	Retried bool
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 {
		return ErrMalformedResponse
	}
	return json.Unmarshal(r.Body, v)
}

// Call is one attempt of a request as seen by request interceptors.
// Interceptors may edit Header and Body.
type Call struct {
	ID      string
	Attempt int
	Retried bool
	Method  string
	URL     *url.URL
	Path    string
	Header  http.Header
	Body    any

	encoded []byte
}

// pending is a request in flight plus its retry bookkeeping. The retry
// marker lives here, beside the request, so concurrent retries never touch
// shared request state.
type pending struct {
	req       *Request
	id        string
	retried   bool
	attempt   int
	sentToken string
}

func (p *pending) markRetried() bool {
	if p.retried {
		return false
	}
	p.retried = true
	return true
}
