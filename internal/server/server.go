package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gqlgen "github.com/99designs/gqlgen/graphql"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/pakettikauppa/internal/graphql"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// ClientFactory returns a client for a single request. Clients are not shared
// between requests.
type ClientFactory func(ctx context.Context) (*pakettikauppa.Client, error)

// Server is the HTTP bridge exposing read-only Pakettikauppa operations.
type Server struct {
	port      int
	newClient ClientFactory
	logger    *otelzap.Logger
	gatherer  prometheus.Gatherer
	executor  *graphql.Executor
}

// Config holds server configuration.
type Config struct {
	Port int

	// Gatherer serves /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// New creates a new server instance.
func New(cfg Config, newClient ClientFactory, logger *otelzap.Logger) *Server {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	resolver := graphql.NewResolver(graphql.ClientFactory(newClient), logger)
	return &Server{
		port:      cfg.Port,
		newClient: newClient,
		logger:    logger,
		gatherer:  gatherer,
		executor:  graphql.NewExecutor(resolver),
	}
}

// Handler returns the bridge's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /v1/shipments/status", s.handleShipmentStatus)
	mux.HandleFunc("POST /v1/pickup-points/search", s.handlePickupSearch)
	mux.HandleFunc("POST /v1/cities/find", s.handleFindCity)
	mux.HandleFunc("POST /v1/shipments/estimate", s.handleEstimate)

	mux.HandleFunc("POST /graphql", s.handleGraphQL)

	return mux
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ============================================================================
// Request/response types
// ============================================================================

type statusRequest struct {
	TrackingCode string `json:"tracking_code"`
	Language     string `json:"language,omitempty"`
}

type pickupSearchRequest struct {
	pakettikauppa.PickupPointQuery
	Query string `json:"query,omitempty"`
}

type findCityRequest struct {
	Postcode string `json:"postcode"`
	Country  string `json:"country,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	Code  *int   `json:"code,omitempty"`
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleShipmentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.TrackingCode == "" {
		s.writeBadRequest(w, "tracking_code is required")
		return
	}

	client, ok := s.client(w, r)
	if !ok {
		return
	}
	status, err := client.GetShipmentStatus(r.Context(), req.TrackingCode, req.Language)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeRaw(w, status)
}

func (s *Server) handlePickupSearch(w http.ResponseWriter, r *http.Request) {
	var req pickupSearchRequest
	if !s.decode(w, r, &req) {
		return
	}

	client, ok := s.client(w, r)
	if !ok {
		return
	}

	var (
		points []pakettikauppa.PickupPoint
		err    error
	)
	if req.Query != "" {
		points, err = client.SearchPickupPointsByText(r.Context(), req.Query, req.ServiceProvider, req.Limit)
	} else {
		points, err = client.SearchPickupPoints(r.Context(), req.PickupPointQuery)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleFindCity(w http.ResponseWriter, r *http.Request) {
	var req findCityRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Postcode == "" {
		s.writeBadRequest(w, "postcode is required")
		return
	}

	client, ok := s.client(w, r)
	if !ok {
		return
	}
	city, err := client.FindCityByPostcode(r.Context(), req.Postcode, req.Country)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeRaw(w, city)
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var shipment pakettikauppa.Shipment
	if !s.decode(w, r, &shipment) {
		return
	}
	if shipment.ShippingMethod == "" || len(shipment.Parcels) == 0 {
		s.writeBadRequest(w, "shipping_method and at least one parcel are required")
		return
	}

	client, ok := s.client(w, r)
	if !ok {
		return
	}
	estimate, err := client.EstimateShippingCost(r.Context(), &shipment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeRaw(w, estimate.Raw)
}

// handleGraphQL answers requests that fail before execution with 400 (bad
// JSON) or 422 (invalid query); executed queries answer 200 even when some
// fields failed.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, &gqlgen.Response{Errors: gqlerror.List{gqlerror.Errorf("failed to read body")}})
		return
	}
	var params gqlgen.RawParams
	if err := json.Unmarshal(body, &params); err != nil {
		s.writeJSON(w, http.StatusBadRequest, &gqlgen.Response{Errors: gqlerror.List{gqlerror.Errorf("Invalid JSON: %v", err)}})
		return
	}

	resp := s.executor.Execute(r.Context(), &params)

	status := http.StatusOK
	if resp.Data == nil {
		status = http.StatusUnprocessableEntity
	}
	for _, gqlErr := range resp.Errors {
		if kind, _ := gqlErr.Extensions["kind"].(string); kind != "" && kind != "remote" && kind != "invalid_shipment" {
			s.logger.Ctx(r.Context()).Error("GraphQL field failed",
				zap.String("path", gqlErr.Path.String()),
				zap.String("kind", kind),
				zap.String("error", gqlErr.Message),
			)
		}
	}
	s.writeJSON(w, status, resp)
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeBadRequest(w, "failed to read body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		s.writeBadRequest(w, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

func (s *Server) client(w http.ResponseWriter, r *http.Request) (*pakettikauppa.Client, bool) {
	client, err := s.newClient(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return client, true
}

func (s *Server) writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: "bad_request"})
}

// writeError maps client errors to HTTP statuses: remote errors are the
// caller's problem (422), upstream failures are 502.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var remoteErr *pakettikauppa.RemoteError
	switch {
	case errors.As(err, &remoteErr):
		status = http.StatusUnprocessableEntity
		resp.Kind = "remote"
		resp.Error = remoteErr.Message
		resp.Code = &remoteErr.Code
	case errors.Is(err, pakettikauppa.ErrInvalidShipment):
		status = http.StatusBadRequest
		resp.Kind = "invalid_shipment"
	case errors.Is(err, pakettikauppa.ErrProtocol):
		status = http.StatusBadGateway
		resp.Kind = "protocol"
	case errors.Is(err, pakettikauppa.ErrTransport):
		status = http.StatusBadGateway
		resp.Kind = "transport"
	case errors.Is(err, pakettikauppa.ErrAuthentication):
		status = http.StatusBadGateway
		resp.Kind = "authentication"
	case errors.Is(err, pakettikauppa.ErrConfiguration):
		resp.Kind = "configuration"
	default:
		resp.Kind = "internal"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Ctx(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	s.writeJSON(w, status, resp)
}
