package pakettikauppa_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/pakettikauppa/pkg/pakettikauppa"
)

func testRouting() pakettikauppa.Routing {
	return pakettikauppa.NewKeyedRouting(pakettikauppa.RoutingHMAC, "acct", "secret", fixedTime)
}

func testShipment() *pakettikauppa.Shipment {
	s := &pakettikauppa.Shipment{
		Sender: pakettikauppa.Party{
			Name1:    "Stockmann Oyj",
			Addr1:    "Aleksanterinkatu 52",
			Postcode: "00100",
			City:     "Helsinki",
			Country:  "FI",
		},
		Receiver: pakettikauppa.Party{
			Name1:    "Matti Meikäläinen",
			Addr1:    "Hämeenkatu 1",
			Postcode: "33100",
			City:     "Tampere",
			Country:  "FI",
			Email:    "matti@example.com",
		},
		ShippingMethod:       "2103",
		ConsignmentReference: "ORDER-1001",
	}
	s.AddParcel(pakettikauppa.Parcel{Reference: "P1", Weight: 1.5, Volume: 0.001, X: 10, Y: 20, Z: 5, Contents: "Books"})
	return s
}

func TestBuildShipmentDocument_RoundTrip(t *testing.T) {
	s := testShipment()
	s.SetPickupPoint("905253201")
	s.AddAdditionalService(pakettikauppa.AdditionalService{
		ServiceCode: "3101",
		Specifiers:  map[string]string{"amount": "12.50", "account": "FI123"},
	})

	data, err := pakettikauppa.BuildShipmentDocument(s, testRouting())
	require.NoError(t, err)
	assert.Contains(t, string(data), `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, string(data), "<eChannel>")
	assert.Contains(t, string(data), `<Parcel.Weight unit="kg">1.5</Parcel.Weight>`)
	assert.Contains(t, string(data), `<AdditionalService.Specifier name="pickup_point_id">905253201</AdditionalService.Specifier>`)

	doc, err := pakettikauppa.ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, testRouting(), doc.RoutingBlock())

	got, err := doc.ToShipment()
	require.NoError(t, err)
	assert.Equal(t, s.Sender, got.Sender)
	assert.Equal(t, s.Receiver, got.Receiver)
	assert.Equal(t, "2103", got.ShippingMethod)
	assert.Equal(t, "ORDER-1001", got.ConsignmentReference)
	assert.Equal(t, "905253201", got.PickupPoint())
	assert.Equal(t, s.AdditionalServices, got.AdditionalServices)

	require.Len(t, got.Parcels, 1)
	assert.Equal(t, 1.5, got.Parcels[0].Weight)
	assert.Equal(t, 0.001, got.Parcels[0].Volume)
	assert.Equal(t, "PC", got.Parcels[0].PackageType, "unset package type is sent as PC")
	assert.Equal(t, "Books", got.Parcels[0].Contents)
}

func TestBuildShipmentDocument_PackageTypeDefault(t *testing.T) {
	s := testShipment()
	s.AddParcel(pakettikauppa.Parcel{Weight: 2, PackageType: "KK"})

	data, err := pakettikauppa.BuildShipmentDocument(s, testRouting())
	require.NoError(t, err)
	assert.Contains(t, string(data), "<Parcel.Packagetype>PC</Parcel.Packagetype>")
	assert.Contains(t, string(data), "<Parcel.Packagetype>KK</Parcel.Packagetype>")

	doc, err := pakettikauppa.ParseDocument(data)
	require.NoError(t, err)
	got, err := doc.ToShipment()
	require.NoError(t, err)

	// The document cannot tell a defaulted type from an explicit one.
	require.Len(t, got.Parcels, 2)
	assert.Empty(t, s.Parcels[0].PackageType)
	assert.Equal(t, "PC", got.Parcels[0].PackageType)
	assert.Equal(t, "KK", got.Parcels[1].PackageType)
}

func TestBuildShipmentDocument_DoesNotModifyShipment(t *testing.T) {
	s := testShipment()
	before := *s

	_, err := pakettikauppa.BuildShipmentDocument(s, testRouting())
	require.NoError(t, err)
	assert.Equal(t, before, *s)
}

func TestBuildShipmentDocument_Invalid(t *testing.T) {
	noMethod := testShipment()
	noMethod.ShippingMethod = ""
	noParcels := testShipment()
	noParcels.Parcels = nil

	tests := []struct {
		name     string
		shipment *pakettikauppa.Shipment
	}{
		{"nil", nil},
		{"no shipping method", noMethod},
		{"no parcels", noParcels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pakettikauppa.BuildShipmentDocument(tt.shipment, testRouting())
			assert.True(t, errors.Is(err, pakettikauppa.ErrInvalidShipment))
		})
	}
}

func TestBuildShipmentDocument_RequiresCredentials(t *testing.T) {
	_, err := pakettikauppa.BuildShipmentDocument(testShipment(), pakettikauppa.Routing{Account: "acct"})
	assert.True(t, errors.Is(err, pakettikauppa.ErrAuthentication))
}

func TestBuildLabelDocument_MultipleCodes(t *testing.T) {
	data, err := pakettikauppa.BuildLabelDocument(testRouting(), "", "JJFI1", "", "JJFI2")
	require.NoError(t, err)
	assert.Contains(t, string(data), `<PrintLabel responseFormat="File">`)

	doc, err := pakettikauppa.ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"JJFI1", "JJFI2"}, doc.TrackingCodes())
	assert.Empty(t, doc.LabelReference())
}

func TestBuildLabelDocument_WithReference(t *testing.T) {
	data, err := pakettikauppa.BuildLabelDocument(testRouting(), "REF1", "JJFI1")
	require.NoError(t, err)

	doc, err := pakettikauppa.ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, "REF1", doc.LabelReference())
}

func TestBuildLabelDocument_NoCodes(t *testing.T) {
	_, err := pakettikauppa.BuildLabelDocument(testRouting(), "REF1", "")
	assert.True(t, errors.Is(err, pakettikauppa.ErrInvalidShipment))
}

func TestBuildConfirmDraftDocument(t *testing.T) {
	r := pakettikauppa.NewTokenRouting("acct", "tok", fixedTime)
	data, err := pakettikauppa.BuildConfirmDraftDocument(r, "7b6d3f4e-1c2a-4b5d-8e9f-0a1b2c3d4e5f")
	require.NoError(t, err)
	assert.Contains(t, string(data), `<Reference uuid="7b6d3f4e-1c2a-4b5d-8e9f-0a1b2c3d4e5f">`)
	assert.Contains(t, string(data), "<Routing.Token>tok</Routing.Token>")
	assert.NotContains(t, string(data), "Routing.Key")

	doc, err := pakettikauppa.ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, "7b6d3f4e-1c2a-4b5d-8e9f-0a1b2c3d4e5f", doc.DraftUUID())
}

func TestParseDocument_Malformed(t *testing.T) {
	_, err := pakettikauppa.ParseDocument([]byte("<eChannel><ROUTING>"))
	assert.True(t, errors.Is(err, pakettikauppa.ErrProtocol))
}

func TestToShipment_NoShipment(t *testing.T) {
	data, err := pakettikauppa.BuildLabelDocument(testRouting(), "", "JJFI1")
	require.NoError(t, err)

	doc, err := pakettikauppa.ParseDocument(data)
	require.NoError(t, err)
	_, err = doc.ToShipment()
	assert.True(t, errors.Is(err, pakettikauppa.ErrProtocol))
}
