package pakettikauppa

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// API paths.
const (
	pathShipmentStatus     = "/shipment/status"
	pathAdditionalServices = "/additional-services/list"
	pathShippingMethods    = "/shipping-methods/list"
	pathFindCity           = "/info/find-city"
	pathPickupSearch       = "/pickup-points/search"
	pathPickupInfo         = "/pickup-point/info"
	pathActivationCode     = "/shipment/create-activation-code"
	pathEstimatePrice      = "/shipment/estimate-price"
	pathCreateShipment     = "/prinetti/create-shipment"
	pathCreateDraft        = "/prinetti/create-shipment-draft"
	pathConfirmDraft       = "/prinetti/confirm-shipment-draft"
	pathShippingLabel      = "/prinetti/get-shipping-label"
)

// Pickup point search limits.
const (
	DefaultPickupLimit = 5
	MaxPickupLimit     = 15
)

// ============================================================================
// Form endpoints
// ============================================================================

// GetShipmentStatus returns the tracking status of a shipment as decoded JSON.
// An empty lang uses the configured language.
func (c *Client) GetShipmentStatus(ctx context.Context, trackingCode, lang string) (_ json.RawMessage, err error) {
	ctx, done := c.observe(ctx, "get_shipment_status", attribute.String("tracking_code", trackingCode))
	defer func() { done(err) }()

	c.logger.Ctx(ctx).Info("Getting Pakettikauppa shipment status", zap.String("tracking_code", trackingCode))

	return c.postFormJSON(ctx, pathShipmentStatus, map[string]string{
		"tracking_code": trackingCode,
		"language":      c.language(lang),
	}, nil)
}

// ListAdditionalServices lists the additional services available to the account.
func (c *Client) ListAdditionalServices(ctx context.Context) (_ json.RawMessage, err error) {
	ctx, done := c.observe(ctx, "list_additional_services")
	defer func() { done(err) }()

	return c.postFormJSON(ctx, pathAdditionalServices, map[string]string{}, nil)
}

// ListShippingMethods lists the shipping methods available to the account.
func (c *Client) ListShippingMethods(ctx context.Context) (_ json.RawMessage, err error) {
	ctx, done := c.observe(ctx, "list_shipping_methods")
	defer func() { done(err) }()

	return c.postFormJSON(ctx, pathShippingMethods, map[string]string{}, nil)
}

// FindCityByPostcode resolves the city of a postcode.
func (c *Client) FindCityByPostcode(ctx context.Context, postcode, country string) (_ json.RawMessage, err error) {
	ctx, done := c.observe(ctx, "find_city", attribute.String("postcode", postcode))
	defer func() { done(err) }()

	return c.postFormJSON(ctx, pathFindCity, map[string]string{
		"postcode": postcode,
		"country":  country,
	}, nil)
}

// SearchPickupPoints searches pickup points near an address. A query with
// neither postcode nor street address returns an empty list without calling
// the API.
func (c *Client) SearchPickupPoints(ctx context.Context, q PickupPointQuery) (_ []PickupPoint, err error) {
	if strings.TrimSpace(q.Postcode) == "" && strings.TrimSpace(q.StreetAddress) == "" {
		return []PickupPoint{}, nil
	}

	ctx, done := c.observe(ctx, "search_pickup_points", attribute.String("postcode", q.Postcode))
	defer func() { done(err) }()

	c.logger.Ctx(ctx).Info("Searching Pakettikauppa pickup points",
		zap.String("postcode", q.Postcode),
		zap.String("country", q.Country),
		zap.String("service_provider", q.ServiceProvider),
	)

	points := []PickupPoint{}
	if _, err := c.postFormJSON(ctx, pathPickupSearch, map[string]string{
		"postcode":         q.Postcode,
		"address":          q.StreetAddress,
		"country":          q.Country,
		"service_provider": q.ServiceProvider,
		"limit":            strconv.Itoa(clampLimit(q.Limit)),
	}, &points); err != nil {
		return nil, err
	}
	if points == nil {
		points = []PickupPoint{}
	}
	return points, nil
}

// SearchPickupPointsByText searches pickup points with a free text query
// such as "Keskustori 1, 33100 Tampere". An empty query returns an empty list
// without calling the API.
func (c *Client) SearchPickupPointsByText(ctx context.Context, query, serviceProvider string, limit int) (_ []PickupPoint, err error) {
	if strings.TrimSpace(query) == "" {
		return []PickupPoint{}, nil
	}

	ctx, done := c.observe(ctx, "search_pickup_points_by_text")
	defer func() { done(err) }()

	points := []PickupPoint{}
	if _, err := c.postFormJSON(ctx, pathPickupSearch, map[string]string{
		"query":            query,
		"service_provider": serviceProvider,
		"limit":            strconv.Itoa(clampLimit(limit)),
	}, &points); err != nil {
		return nil, err
	}
	if points == nil {
		points = []PickupPoint{}
	}
	return points, nil
}

// GetPickupPointInfo returns details of a single pickup point. service is a
// shipping method code such as "2103" or a provider name such as "Posti".
// Empty arguments return nil without calling the API.
func (c *Client) GetPickupPointInfo(ctx context.Context, pointID, service string) (_ json.RawMessage, err error) {
	if pointID == "" || service == "" {
		return nil, nil
	}

	ctx, done := c.observe(ctx, "get_pickup_point_info", attribute.String("point_id", pointID))
	defer func() { done(err) }()

	params := map[string]string{"point_id": pointID}
	if isNumeric(service) {
		params["service_code"] = service
	} else {
		params["service_provider"] = service
	}
	return c.postFormJSON(ctx, pathPickupInfo, params, nil)
}

// CreateActivationCode creates an activation code for a Posti shipment. An
// empty tracking code returns nil without calling the API.
func (c *Client) CreateActivationCode(ctx context.Context, trackingCode string) (_ json.RawMessage, err error) {
	if trackingCode == "" {
		return nil, nil
	}

	ctx, done := c.observe(ctx, "create_activation_code", attribute.String("tracking_code", trackingCode))
	defer func() { done(err) }()

	return c.postFormJSON(ctx, pathActivationCode, map[string]string{"tracking_code": trackingCode}, nil)
}

// EstimateShippingCost estimates the price of s. The shipment needs a
// shipping method and at least one parcel with a weight; cargo estimates
// also need sender and receiver postcodes.
func (c *Client) EstimateShippingCost(ctx context.Context, s *Shipment) (_ *PriceEstimate, err error) {
	ctx, done := c.observe(ctx, "estimate_shipping_cost")
	defer func() { done(err) }()

	if s == nil {
		return nil, fmt.Errorf("%w: shipment is nil", ErrInvalidShipment)
	}

	payload, err := json.Marshal(newEstimateRequest(s))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal estimate: %w", err)
	}

	c.logger.Ctx(ctx).Info("Estimating Pakettikauppa shipping cost",
		zap.String("shipping_method", s.ShippingMethod),
		zap.Int("parcel_count", len(s.Parcels)),
	)

	var estimate PriceEstimate
	raw, err := c.postFormJSON(ctx, pathEstimatePrice, map[string]string{"shipment": string(payload)}, &estimate)
	if err != nil {
		return nil, err
	}
	estimate.Raw = raw
	return &estimate, nil
}

// ============================================================================
// Document endpoints
// ============================================================================

// CreateShipment creates s and returns its reference and tracking code. s
// is not modified; use CreateResult.Apply to merge the result. An empty lang
// uses the configured language.
func (c *Client) CreateShipment(ctx context.Context, s *Shipment, lang string) (_ *CreateResult, err error) {
	ctx, done := c.observe(ctx, "create_shipment")
	defer func() { done(err) }()

	if s != nil {
		c.logger.Ctx(ctx).Info("Creating Pakettikauppa shipment",
			zap.String("shipping_method", s.ShippingMethod),
			zap.String("receiver_postcode", s.Receiver.Postcode),
			zap.Int("parcel_count", len(s.Parcels)),
		)
	}

	path := pathCreateShipment + "?lang=" + url.QueryEscape(c.language(lang))
	env, err := c.postDocument(ctx, path, func(r Routing) ([]byte, error) {
		return BuildShipmentDocument(s, r)
	})
	if err != nil {
		return nil, err
	}
	return env.CreateResult()
}

// CreateShipmentDraft creates s as a draft to be confirmed later with
// ConfirmShipmentDraft.
func (c *Client) CreateShipmentDraft(ctx context.Context, s *Shipment) (_ *DraftResult, err error) {
	ctx, done := c.observe(ctx, "create_shipment_draft")
	defer func() { done(err) }()

	env, err := c.postDocument(ctx, pathCreateDraft, func(r Routing) ([]byte, error) {
		return BuildShipmentDocument(s, r)
	})
	if err != nil {
		return nil, err
	}
	return env.DraftResult()
}

// ConfirmShipmentDraft turns the draft draftUUID into a real shipment.
func (c *Client) ConfirmShipmentDraft(ctx context.Context, draftUUID string) (_ *ConfirmResult, err error) {
	ctx, done := c.observe(ctx, "confirm_shipment_draft", attribute.String("draft_uuid", draftUUID))
	defer func() { done(err) }()

	if _, err := uuid.Parse(draftUUID); err != nil {
		return nil, fmt.Errorf("%w: invalid draft uuid %q", ErrInvalidShipment, draftUUID)
	}

	env, err := c.postDocument(ctx, pathConfirmDraft, func(r Routing) ([]byte, error) {
		return BuildConfirmDraftDocument(r, draftUUID)
	})
	if err != nil {
		return nil, err
	}
	return env.ConfirmResult()
}

// FetchShippingLabel fetches the label of a created shipment. s must have a
// tracking code; its reference is sent when set. Use Label.Apply to store
// the label on s.
func (c *Client) FetchShippingLabel(ctx context.Context, s *Shipment) (_ *Label, err error) {
	ctx, done := c.observe(ctx, "fetch_shipping_label")
	defer func() { done(err) }()

	if s == nil || s.TrackingCode == "" {
		return nil, fmt.Errorf("%w: tracking code not set", ErrInvalidShipment)
	}

	env, err := c.postDocument(ctx, pathShippingLabel, func(r Routing) ([]byte, error) {
		return BuildLabelDocument(r, s.Reference, s.TrackingCode)
	})
	if err != nil {
		return nil, err
	}
	return env.Label()
}

// FetchShippingLabels fetches the labels of several shipments as one PDF.
func (c *Client) FetchShippingLabels(ctx context.Context, trackingCodes ...string) (_ *Label, err error) {
	ctx, done := c.observe(ctx, "fetch_shipping_labels", attribute.Int("label_count", len(trackingCodes)))
	defer func() { done(err) }()

	env, err := c.postDocument(ctx, pathShippingLabel, func(r Routing) ([]byte, error) {
		return BuildLabelDocument(r, "", trackingCodes...)
	})
	if err != nil {
		return nil, err
	}
	return env.Label()
}

// ============================================================================
// Helpers
// ============================================================================

func (c *Client) language(lang string) string {
	if lang != "" {
		return lang
	}
	return c.config.Language
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPickupLimit
	case limit > MaxPickupLimit:
		return MaxPickupLimit
	default:
		return limit
	}
}

// isNumeric reports whether s is a shipping method code such as "2103".
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
