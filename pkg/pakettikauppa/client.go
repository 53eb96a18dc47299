// Package pakettikauppa is a client for the Pakettikauppa shipment API.
//
// Form endpoints are signed with an HMAC over the sorted form values;
// shipment documents carry a routing block signed with the shared secret or,
// in OAuth mode, a bearer token. Every call performs exactly one round trip
// (two when a token has to be fetched first) and returns a typed result or
// one of ConfigurationError, AuthenticationError, ProtocolError, RemoteError
// and TransportError. Nothing is retried.
//
// A Client caches the bearer token and the last raw response. Concurrent
// calls are memory-safe but race on both values; keep one call in flight per
// Client, or use one Client per concurrent caller.
package pakettikauppa

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const providerName = "pakettikauppa"

// Version of this client library, sent in the User-Agent.
const Version = "1.0.0"

// DefaultUserAgent identifies the client to the API.
const DefaultUserAgent = "pakettikauppa-go/" + Version

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "fi"

// Recorder receives per-call metrics. *telemetry.Metrics implements it.
type Recorder interface {
	RecordRequest(operation, provider, status string, duration float64)
	RecordError(provider, errorType string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(string, string, string, float64) {}
func (nopRecorder) RecordError(string, string)                   {}

// Option customizes a Client.
type Option func(*Client)

// WithMetrics records call metrics to r.
func WithMetrics(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.metrics = r
		}
	}
}

// WithClock replaces time.Now, e.g. for deterministic signatures in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client is the Pakettikauppa API client.
type Client struct {
	creds     Credentials
	config    Config
	transport Transport
	logger    *otelzap.Logger
	tracer    trace.Tracer
	metrics   Recorder
	now       func() time.Time

	mu    sync.Mutex
	token *Token
	last  *Response
}

// New creates a new client. The transport is the HTTP transport, or a
// MockTransport when cfg.UseMock is set.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer, opts ...Option) (*Client, error) {
	var transport Transport
	if cfg.UseMock {
		transport = NewMockTransport()
	} else {
		transport = NewHTTPTransport(HTTPTransportConfig{
			Timeout:   cfg.Timeout,
			UserAgent: cfg.UserAgent,
		})
	}
	return NewWithTransport(cfg, transport, logger, tracer, opts...)
}

// NewWithTransport creates a new client with a custom transport.
func NewWithTransport(cfg Config, transport Transport, logger *otelzap.Logger, tracer trace.Tracer, opts ...Option) (*Client, error) {
	creds, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(providerName)
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	c := &Client{
		creds:     creds,
		config:    cfg,
		transport: transport,
		logger:    logger,
		tracer:    tracer,
		metrics:   nopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// Credentials returns the resolved credentials.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// LastResponse returns the raw response of the most recent call, or nil.
func (c *Client) LastResponse() *Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Client) setLast(resp *Response) {
	c.mu.Lock()
	c.last = resp
	c.mu.Unlock()
}

// ============================================================================
// Instrumentation
// ============================================================================

// observe starts a span for operation; the returned func ends it and records
// metrics and failures.
func (c *Client) observe(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs,
		attribute.String("pakettikauppa.operation", operation),
		attribute.Bool("pakettikauppa.sandbox", c.creds.Sandbox),
	)
	ctx, span := c.tracer.Start(ctx, providerName+"."+operation, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.metrics.RecordError(providerName, ErrorKind(err))
			c.logger.Ctx(ctx).Error("Pakettikauppa API error",
				zap.String("operation", operation),
				zap.Error(err),
			)
		}
		c.metrics.RecordRequest(operation, providerName, status, time.Since(start).Seconds())
		span.End()
	}
}

// ============================================================================
// Request helpers
// ============================================================================

func (c *Client) url(path string) string {
	return c.creds.BaseURI + path
}

func (c *Client) baseHeader(contentType string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", contentType)
	h.Set("User-Agent", c.config.UserAgent)
	return h
}

// postForm signs params and posts them to path.
func (c *Client) postForm(ctx context.Context, path string, params map[string]string) (*Response, error) {
	if c.creds.APIKey == "" || c.creds.Secret == "" {
		return nil, &AuthenticationError{Message: "credentials not set"}
	}

	header := c.baseHeader(contentTypeForm)
	if c.creds.AuthMode == AuthOAuthBearer {
		token, err := c.Token(ctx)
		if err != nil {
			return nil, err
		}
		header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	values := SignForm(params, c.creds.APIKey, c.creds.Secret, c.now())
	req := &Request{
		Method: http.MethodPost,
		URL:    c.url(path),
		Header: header,
		Body:   []byte(values.Encode()),
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	c.setLast(resp)
	return resp, nil
}

// postFormJSON posts a signed form and validates the JSON response.
func (c *Client) postFormJSON(ctx context.Context, path string, params map[string]string, v any) ([]byte, error) {
	resp, err := c.postForm(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var raw []byte
	if v != nil {
		raw, err = decodeInto(resp.Body, v)
	} else {
		raw, err = DecodeJSON(resp.Body)
	}
	if err != nil {
		return nil, withHTTPStatus(err, resp.StatusCode)
	}
	return raw, nil
}

// routing builds the routing block for the next document.
func (c *Client) routing(ctx context.Context) (Routing, error) {
	var r Routing
	if c.creds.AuthMode == AuthOAuthBearer {
		token, err := c.Token(ctx)
		if err != nil {
			return Routing{}, err
		}
		r = NewTokenRouting(c.creds.APIKey, token.AccessToken, c.now())
	} else {
		if c.creds.APIKey == "" || c.creds.Secret == "" {
			return Routing{}, &AuthenticationError{Message: "credentials not set"}
		}
		r = NewKeyedRouting(c.creds.RoutingScheme, c.creds.APIKey, c.creds.Secret, c.now())
	}
	r.Comment = c.config.Comment
	return r, nil
}

// postDocument builds a document with a fresh routing block, posts it to
// path and parses the response envelope.
func (c *Client) postDocument(ctx context.Context, path string, build func(Routing) ([]byte, error)) (*Envelope, error) {
	routing, err := c.routing(ctx)
	if err != nil {
		return nil, err
	}
	body, err := build(routing)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Method: http.MethodPost,
		URL:    c.url(path),
		Header: c.baseHeader(contentTypeXML),
		Body:   body,
	}
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	c.setLast(resp)

	env, err := ParseEnvelope(resp.Body)
	if err != nil {
		return nil, withHTTPStatus(err, resp.StatusCode)
	}
	return env, nil
}

// withHTTPStatus annotates protocol errors with the HTTP status code.
func withHTTPStatus(err error, status int) error {
	if pErr, ok := err.(*ProtocolError); ok && pErr.StatusCode == 0 {
		pErr.StatusCode = status
	}
	return err
}
