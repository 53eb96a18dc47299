package pakettikauppa

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
)

// DefaultTimeout bounds every round trip.
const DefaultTimeout = 30 * time.Second

// HTTPTransport is the production Transport built on imroc/req. Connections
// are not reused between calls.
type HTTPTransport struct {
	client *req.Client
}

// HTTPTransportConfig holds configuration for the HTTP transport.
type HTTPTransportConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// NewHTTPTransport creates a new HTTP transport for production use.
func NewHTTPTransport(cfg HTTPTransportConfig) *HTTPTransport {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	client := req.C().
		SetTimeout(timeout).
		SetUserAgent(userAgent).
		DisableKeepAlives().
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)

	return &HTTPTransport{client: client}
}

// Do performs the request. Network failures and timeouts are returned as
// TransportError; HTTP error statuses are not errors at this layer.
func (t *HTTPTransport) Do(ctx context.Context, r *Request) (*Response, error) {
	request := t.client.R().SetContext(ctx)
	for name, values := range r.Header {
		for _, v := range values {
			request.SetHeader(name, v)
		}
	}
	if r.Body != nil {
		request.SetBodyBytes(r.Body)
	}

	resp, err := request.Send(r.Method, r.URL)
	if err != nil {
		return nil, &TransportError{URL: r.URL, Cause: err}
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, &TransportError{URL: r.URL, Cause: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

var _ Transport = (*HTTPTransport)(nil)
