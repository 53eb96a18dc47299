package pakettikauppa

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// MockTransport is a Transport for tests and offline use. Without hooks it
// answers every endpoint with a canned successful response.
type MockTransport struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	// OnDo, when set, answers every request.
	OnDo func(ctx context.Context, req *Request) (*Response, error)

	mu       sync.Mutex
	requests []*Request
}

// NewMockTransport creates a new mock transport with default behavior.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Requests returns the requests seen so far.
func (m *MockTransport) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil.
func (m *MockTransport) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// Do records req and answers it.
func (m *MockTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return nil, &TransportError{URL: req.URL, Cause: ctx.Err()}
		}
	}

	if m.SimulateErrors {
		return nil, &TransportError{URL: req.URL, Cause: errors.New("simulated network error")}
	}

	if m.OnDo != nil {
		return m.OnDo(ctx, req)
	}

	return m.defaultResponse(req)
}

// XMLResponse is a helper for OnDo hooks.
func XMLResponse(status int, body string) *Response {
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/xml"}},
		Body:       []byte(body),
	}
}

// JSONResponse is a helper for OnDo hooks.
func JSONResponse(status int, body string) *Response {
	return &Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(body),
	}
}

func (m *MockTransport) defaultResponse(req *Request) (*Response, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, &TransportError{URL: req.URL, Cause: err}
	}

	switch u.Path {
	case "/oauth/token":
		return JSONResponse(http.StatusOK, `{"access_token":"mock-token-`+uuid.New().String()[:8]+`","token_type":"Bearer","expires_in":3600}`), nil

	case "/prinetti/create-shipment":
		return XMLResponse(http.StatusOK, fmt.Sprintf(
			`<?xml version="1.0"?><Response><response.status>0</response.status><response.message>OK</response.message>`+
				`<response.reference>%s</response.reference><response.trackingcode>%s</response.trackingcode></Response>`,
			mockReference(), mockTrackingCode())), nil

	case "/prinetti/create-shipment-draft":
		return XMLResponse(http.StatusOK, fmt.Sprintf(
			`<?xml version="1.0"?><Response><response.status>0</response.status><response.message>OK</response.message>`+
				`<response.reference uuid="%s">%s</response.reference></Response>`,
			uuid.New().String(), mockReference())), nil

	case "/prinetti/confirm-shipment-draft":
		return XMLResponse(http.StatusOK, fmt.Sprintf(
			`<?xml version="1.0"?><Response><response.status>0</response.status><response.message>OK</response.message>`+
				`<response.trackingcode>%s</response.trackingcode></Response>`,
			mockTrackingCode())), nil

	case "/prinetti/get-shipping-label":
		// "%PDF-1.4 mock label" in base64
		return XMLResponse(http.StatusOK,
			`<?xml version="1.0"?><Response><response.status>0</response.status><response.message>OK</response.message>`+
				`<response.file>JVBERi0xLjQgbW9jayBsYWJlbA==</response.file></Response>`), nil

	case "/shipment/status":
		return mockJSON(map[string]any{
			"status":        0,
			"message":       "OK",
			"tracking_code": formValue(req, "tracking_code"),
			"events":        []any{},
		})

	case "/shipment/estimate-price":
		return JSONResponse(http.StatusOK, `{"status":0,"price":990,"currency":"EUR"}`), nil

	case "/info/find-city":
		return mockJSON(map[string]any{"postcode": formValue(req, "postcode"), "city": "TAMPERE"})

	case "/pickup-points/search":
		return JSONResponse(http.StatusOK, `[{"pickup_point_id":"905253201","provider":"Posti","name":"Mock Point",`+
			`"street_address":"Keskustori 1","postcode":"33100","city":"TAMPERE","country":"FI","map_latitude":61.4981,"map_longitude":23.7610,"distance":120}]`), nil

	case "/pickup-point/info":
		return mockJSON(map[string]any{"pickup_point_id": formValue(req, "point_id"), "name": "Mock Point"})

	case "/shipment/create-activation-code":
		return JSONResponse(http.StatusOK, `{"status":0,"activation_code":"123456"}`), nil

	case "/shipping-methods/list":
		return JSONResponse(http.StatusOK, `[{"shipping_method_code":"2103","name":"Postipaketti","service_provider":"Posti","has_pickup_points":true}]`), nil

	case "/additional-services/list":
		return JSONResponse(http.StatusOK, `[{"service_code":"3101","name":"Postiennakko"},{"service_code":"2106","name":"Noutopistevalinta"}]`), nil

	default:
		resp, err := mockJSON(map[string]any{"status": 404, "message": "unknown endpoint " + u.Path})
		if resp != nil {
			resp.StatusCode = http.StatusNotFound
		}
		return resp, err
	}
}

// mockJSON encodes fields as a successful JSON response.
func mockJSON(fields map[string]any) (*Response, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mock response: %w", err)
	}
	return JSONResponse(http.StatusOK, string(body)), nil
}

func formValue(req *Request, key string) string {
	if !strings.HasPrefix(req.Header.Get("Content-Type"), contentTypeForm) {
		return ""
	}
	values, err := url.ParseQuery(string(req.Body))
	if err != nil {
		return ""
	}
	return values.Get(key)
}

func mockReference() string {
	return "MOCK" + strings.ToUpper(uuid.New().String()[:8])
}

func mockTrackingCode() string {
	return fmt.Sprintf("JJFI%014d", time.Now().UnixNano()%100000000000000)
}

var _ Transport = (*MockTransport)(nil)
