package graphql

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ClientFactory returns a client for a single field resolution.
type ClientFactory func(ctx context.Context) (*pakettikauppa.Client, error)

// Resolver is the root resolver for the GraphQL schema.
// It holds dependencies needed by all resolvers.
type Resolver struct {
	NewClient ClientFactory
	Logger    *otelzap.Logger
}

// NewResolver creates a new resolver with the given dependencies.
func NewResolver(newClient ClientFactory, logger *otelzap.Logger) *Resolver {
	return &Resolver{
		NewClient: newClient,
		Logger:    logger,
	}
}

// PickupPointsArgs are the arguments of the pickupPoints field.
type PickupPointsArgs struct {
	pakettikauppa.PickupPointQuery
	Query string
}

func (r *Resolver) Health(ctx context.Context) (string, error) {
	return "ok", nil
}

func (r *Resolver) ShipmentStatus(ctx context.Context, trackingCode, language string) (json.RawMessage, error) {
	client, err := r.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.GetShipmentStatus(ctx, trackingCode, language)
}

func (r *Resolver) FindCity(ctx context.Context, postcode, country string) (json.RawMessage, error) {
	client, err := r.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.FindCityByPostcode(ctx, postcode, country)
}

func (r *Resolver) ShippingMethods(ctx context.Context) (json.RawMessage, error) {
	client, err := r.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.ListShippingMethods(ctx)
}

func (r *Resolver) AdditionalServices(ctx context.Context) (json.RawMessage, error) {
	client, err := r.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.ListAdditionalServices(ctx)
}

func (r *Resolver) PickupPoints(ctx context.Context, args PickupPointsArgs) ([]map[string]any, error) {
	client, err := r.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	var points []pakettikauppa.PickupPoint
	if args.Query != "" {
		points, err = client.SearchPickupPointsByText(ctx, args.Query, args.ServiceProvider, args.Limit)
	} else {
		points, err = client.SearchPickupPoints(ctx, args.PickupPointQuery)
	}
	if err != nil {
		return nil, err
	}

	r.Logger.Ctx(ctx).Debug("Resolved pickup points", zap.Int("count", len(points)))

	out := make([]map[string]any, len(points))
	for i := range points {
		out[i] = pickupPointToGraphQL(&points[i])
	}
	return out, nil
}

func (r *Resolver) PickupPoint(ctx context.Context, id, service string) (json.RawMessage, error) {
	client, err := r.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.GetPickupPointInfo(ctx, id, service)
}

func (r *Resolver) Estimate(ctx context.Context, input map[string]any) (map[string]any, error) {
	client, err := r.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	estimate, err := client.EstimateShippingCost(ctx, shipmentInputToModel(input))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"price": estimate.Price,
		"raw":   estimate.Raw,
	}, nil
}
