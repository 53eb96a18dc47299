package graphql_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	gqlgen "github.com/99designs/gqlgen/graphql"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/pakettikauppa/internal/graphql"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestExecutor(mockTransport *pakettikauppa.MockTransport) *graphql.Executor {
	logger := otelzap.New(zap.NewNop())
	factory := func(ctx context.Context) (*pakettikauppa.Client, error) {
		return pakettikauppa.NewWithTransport(pakettikauppa.Config{TestMode: true}, mockTransport, logger, nil)
	}
	return graphql.NewExecutor(graphql.NewResolver(factory, logger))
}

func execute(t *testing.T, e *graphql.Executor, query string, vars map[string]any) (*gqlgen.Response, map[string]any) {
	t.Helper()
	resp := e.Execute(context.Background(), &gqlgen.RawParams{Query: query, Variables: vars})
	if resp.Data == nil {
		return resp, nil
	}
	var data map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return resp, data
}

func lastForm(t *testing.T, m *pakettikauppa.MockTransport) url.Values {
	t.Helper()
	form, err := url.ParseQuery(string(m.LastRequest().Body))
	require.NoError(t, err)
	return form
}

func TestSchema_Loads(t *testing.T) {
	s := graphql.Schema()
	require.NotNil(t, s.Query)
	for _, name := range []string{"health", "shipmentStatus", "findCity", "pickupPoints", "pickupPoint", "estimate", "shippingMethods", "additionalServices"} {
		assert.NotNil(t, s.Query.Fields.ForName(name), name)
	}
}

func TestExecute_Health(t *testing.T) {
	resp, data := execute(t, newTestExecutor(pakettikauppa.NewMockTransport()), `{ health }`, nil)

	assert.Empty(t, resp.Errors)
	assert.Equal(t, map[string]any{"health": "ok"}, data)
}

func TestExecute_ShipmentStatusWithVariables(t *testing.T) {
	mockTransport := pakettikauppa.NewMockTransport()
	e := newTestExecutor(mockTransport)

	resp, data := execute(t, e,
		`query Status($code: String!) { status: shipmentStatus(trackingCode: $code, language: "en") }`,
		map[string]any{"code": "JJFITEST123"})

	require.Empty(t, resp.Errors)
	status := data["status"].(map[string]any)
	assert.Equal(t, "JJFITEST123", status["tracking_code"])

	form := lastForm(t, mockTransport)
	assert.Equal(t, "JJFITEST123", form.Get("tracking_code"))
	assert.Equal(t, "en", form.Get("language"))
}

func TestExecute_PickupPointsSelection(t *testing.T) {
	mockTransport := pakettikauppa.NewMockTransport()
	e := newTestExecutor(mockTransport)

	resp, data := execute(t, e, `{
		pickupPoints(postcode: "33100", country: "FI", serviceProvider: "Posti", limit: 20) {
			id
			where: city
			latitude
			__typename
		}
	}`, nil)

	require.Empty(t, resp.Errors)
	points := data["pickupPoints"].([]any)
	require.Len(t, points, 1)
	assert.Equal(t, map[string]any{
		"id":         "905253201",
		"where":      "TAMPERE",
		"latitude":   61.4981,
		"__typename": "PickupPoint",
	}, points[0])

	form := lastForm(t, mockTransport)
	assert.Equal(t, "15", form.Get("limit"))
	assert.Equal(t, "Posti", form.Get("service_provider"))
}

func TestExecute_PickupPointsByTextWithFragment(t *testing.T) {
	mockTransport := pakettikauppa.NewMockTransport()
	e := newTestExecutor(mockTransport)

	resp, data := execute(t, e, `
		query { pickupPoints(query: "Keskustori 1, 33100 Tampere") { ...point } }
		fragment point on PickupPoint { name raw }
	`, nil)

	require.Empty(t, resp.Errors)
	point := data["pickupPoints"].([]any)[0].(map[string]any)
	assert.Equal(t, "Mock Point", point["name"])
	assert.Equal(t, "905253201", point["raw"].(map[string]any)["pickup_point_id"])
	assert.Equal(t, "Keskustori 1, 33100 Tampere", lastForm(t, mockTransport).Get("query"))
}

func TestExecute_FindCityAndSkip(t *testing.T) {
	e := newTestExecutor(pakettikauppa.NewMockTransport())

	resp, data := execute(t, e,
		`query($noHealth: Boolean!) { findCity(postcode: "33100") health @skip(if: $noHealth) }`,
		map[string]any{"noHealth": true})

	require.Empty(t, resp.Errors)
	assert.Equal(t, map[string]any{"postcode": "33100", "city": "TAMPERE"}, data["findCity"])
	assert.NotContains(t, data, "health")
}

func TestExecute_Estimate(t *testing.T) {
	mockTransport := pakettikauppa.NewMockTransport()
	e := newTestExecutor(mockTransport)

	resp, data := execute(t, e, `query($s: ShipmentInput!) { estimate(shipment: $s) { price } }`, map[string]any{
		"s": map[string]any{
			"shippingMethod":     "2103",
			"receiver":           map[string]any{"postcode": "33100", "country": "FI"},
			"parcels":            []any{map[string]any{"weight": 1.5, "packageType": "PC"}},
			"additionalServices": []any{"3101"},
			"pickupPoint":        "905253201",
		},
	})

	require.Empty(t, resp.Errors)
	assert.Equal(t, map[string]any{"price": 990.0}, data["estimate"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(lastForm(t, mockTransport).Get("shipment")), &payload))
	assert.Equal(t, "2103", payload["product_code"])
	assert.Equal(t, []any{"3101", "2106"}, payload["additional_services"])
	parcels := payload["parcels"].([]any)
	require.Len(t, parcels, 1)
	assert.Equal(t, 1.5, parcels[0].(map[string]any)["weight"])
}

func TestExecute_FieldErrorKeepsSiblings(t *testing.T) {
	mockTransport := pakettikauppa.NewMockTransport()
	mockTransport.OnDo = func(ctx context.Context, req *pakettikauppa.Request) (*pakettikauppa.Response, error) {
		return pakettikauppa.JSONResponse(http.StatusOK, `{"status":1,"message":"Unknown tracking code"}`), nil
	}
	e := newTestExecutor(mockTransport)

	resp, data := execute(t, e, `{ health shipmentStatus(trackingCode: "NOPE") }`, nil)

	require.NotNil(t, data)
	assert.Equal(t, "ok", data["health"])
	assert.Nil(t, data["shipmentStatus"])
	assert.Contains(t, data, "shipmentStatus")

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "Unknown tracking code", resp.Errors[0].Message)
	assert.Equal(t, "shipmentStatus", resp.Errors[0].Path.String())
	assert.Equal(t, "remote", resp.Errors[0].Extensions["kind"])
	assert.Equal(t, 1, resp.Errors[0].Extensions["code"])
}

func TestExecute_KeepsSelectionOrder(t *testing.T) {
	e := newTestExecutor(pakettikauppa.NewMockTransport())

	resp := e.Execute(context.Background(), &gqlgen.RawParams{Query: `{ b: health a: health }`})

	require.Empty(t, resp.Errors)
	assert.Equal(t, `{"b":"ok","a":"ok"}`, string(resp.Data))
}

func TestExecute_RejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		params gqlgen.RawParams
	}{
		{"syntax error", gqlgen.RawParams{Query: `{ health`}},
		{"unknown field", gqlgen.RawParams{Query: `{ carriers }`}},
		{"missing argument", gqlgen.RawParams{Query: `{ findCity }`}},
		{"mutation", gqlgen.RawParams{Query: `mutation { health }`}},
		{"missing variable", gqlgen.RawParams{Query: `query($c: String!) { shipmentStatus(trackingCode: $c) }`}},
		{"unknown operation", gqlgen.RawParams{Query: `query A { health }`, OperationName: "B"}},
		{"ambiguous operation", gqlgen.RawParams{Query: `query A { health } query B { health }`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTransport := pakettikauppa.NewMockTransport()
			resp := newTestExecutor(mockTransport).Execute(context.Background(), &tt.params)

			assert.Nil(t, resp.Data)
			assert.NotEmpty(t, resp.Errors)
			assert.Empty(t, mockTransport.Requests())
		})
	}
}

func TestExecute_NamedOperation(t *testing.T) {
	e := newTestExecutor(pakettikauppa.NewMockTransport())

	resp := e.Execute(context.Background(), &gqlgen.RawParams{
		Query:         `query A { a: health } query B { b: health }`,
		OperationName: "B",
	})

	require.Empty(t, resp.Errors)
	assert.Equal(t, `{"b":"ok"}`, string(resp.Data))
}
