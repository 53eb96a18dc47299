package graphql

import (
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
)

func shipmentInputToModel(input map[string]any) *pakettikauppa.Shipment {
	s := &pakettikauppa.Shipment{
		ShippingMethod: stringArg(input, "shippingMethod"),
		Sender:         partyInputToModel(mapArg(input, "sender")),
		Receiver:       partyInputToModel(mapArg(input, "receiver")),
	}
	for _, item := range listArg(input, "parcels") {
		if parcel, ok := item.(map[string]any); ok {
			s.AddParcel(parcelInputToModel(parcel))
		}
	}
	for _, item := range listArg(input, "additionalServices") {
		if code, ok := item.(string); ok && code != "" {
			s.AddAdditionalService(pakettikauppa.AdditionalService{ServiceCode: code})
		}
	}
	if id := stringArg(input, "pickupPoint"); id != "" {
		s.SetPickupPoint(id)
	}
	return s
}

func partyInputToModel(input map[string]any) pakettikauppa.Party {
	return pakettikauppa.Party{
		Name1:    stringArg(input, "name"),
		Addr1:    stringArg(input, "address"),
		Postcode: stringArg(input, "postcode"),
		City:     stringArg(input, "city"),
		Country:  stringArg(input, "country"),
	}
}

func parcelInputToModel(input map[string]any) pakettikauppa.Parcel {
	return pakettikauppa.Parcel{
		Weight:      floatArg(input, "weight"),
		Volume:      floatArg(input, "volume"),
		PackageType: stringArg(input, "packageType"),
		X:           floatArg(input, "x"),
		Y:           floatArg(input, "y"),
		Z:           floatArg(input, "z"),
	}
}

func pickupPointsArgs(args map[string]any) PickupPointsArgs {
	return PickupPointsArgs{
		PickupPointQuery: pakettikauppa.PickupPointQuery{
			Postcode:        stringArg(args, "postcode"),
			StreetAddress:   stringArg(args, "streetAddress"),
			Country:         stringArg(args, "country"),
			ServiceProvider: stringArg(args, "serviceProvider"),
			Limit:           int(floatArg(args, "limit")),
		},
		Query: stringArg(args, "query"),
	}
}

func pickupPointToGraphQL(p *pakettikauppa.PickupPoint) map[string]any {
	return map[string]any{
		"id":              p.ID,
		"provider":        p.Provider,
		"providerCode":    p.ProviderCode,
		"name":            p.Name,
		"streetAddress":   p.StreetAddress,
		"postcode":        p.Postcode,
		"city":            p.City,
		"country":         p.Country,
		"description":     p.Description,
		"latitude":        p.Latitude,
		"longitude":       p.Longitude,
		"distance":        p.Distance,
		"serviceCode":     p.ServiceCode,
		"providerService": p.ProviderService,
		"raw":             p.Raw,
	}
}

// Argument values arrive as literals (int64, float64) or as JSON decoded
// variables (float64), so the accessors accept both.

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func floatArg(args map[string]any, name string) float64 {
	switch v := args[name].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func mapArg(args map[string]any, name string) map[string]any {
	m, _ := args[name].(map[string]any)
	return m
}

// listArg also accepts a single item where a list is expected.
func listArg(args map[string]any, name string) []any {
	switch v := args[name].(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		return []any{v}
	}
}
