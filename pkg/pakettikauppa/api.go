package pakettikauppa

import (
	"context"
	"net/http"
)

// Transport performs a single HTTP round trip. Implementations must not
// retry and must return the raw response body whatever the status code;
// only failures of the round trip itself are returned as errors.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request is an outbound HTTP request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a raw HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Content types used by the API.
const (
	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeXML  = "text/xml; charset=utf-8"
)
