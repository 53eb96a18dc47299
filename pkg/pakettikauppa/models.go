package pakettikauppa

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ServicePickupPoint is the additional service that selects a pickup point.
const (
	ServicePickupPoint   = "2106"
	specifierPickupPoint = "pickup_point_id"
)

// Party is a sender or receiver.
type Party struct {
	Name1    string `json:"name1,omitempty"`
	Name2    string `json:"name2,omitempty"`
	Addr1    string `json:"addr1,omitempty"`
	Addr2    string `json:"addr2,omitempty"`
	Addr3    string `json:"addr3,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	City     string `json:"city,omitempty"`
	Country  string `json:"country,omitempty"` // ISO 3166-1 alpha-2, e.g. "FI"
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	VATCode  string `json:"vatcode,omitempty"`
}

// Parcel is a single package of a shipment.
type Parcel struct {
	Reference   string  `json:"reference,omitempty"`
	Weight      float64 `json:"weight"`           // kg
	Volume      float64 `json:"volume,omitempty"` // m3
	PackageType string  `json:"package_type,omitempty"`
	X           float64 `json:"x,omitempty"`
	Y           float64 `json:"y,omitempty"`
	Z           float64 `json:"z,omitempty"`
	Contents    string  `json:"contents,omitempty"`
	InfoCode    string  `json:"info_code,omitempty"`
}

// AdditionalService is an extra service ordered for a shipment, such as
// cash on delivery or a pickup point.
type AdditionalService struct {
	ServiceCode string            `json:"service_code"`
	Specifiers  map[string]string `json:"specifiers,omitempty"`
}

// Shipment is the caller-owned shipment aggregate. The client never mutates
// it: results of create and label calls are merged back with the Apply
// methods of the result types.
type Shipment struct {
	Sender             Party               `json:"sender"`
	Receiver           Party               `json:"receiver"`
	Parcels            []Parcel            `json:"parcels"`
	AdditionalServices []AdditionalService `json:"additional_services,omitempty"`
	ShippingMethod     string              `json:"shipping_method"`

	// ConsignmentReference is the merchant's own reference, e.g. an order number.
	ConsignmentReference string `json:"consignment_reference,omitempty"`

	// Set from call results.
	Reference    string `json:"reference,omitempty"`
	TrackingCode string `json:"tracking_code,omitempty"`
	LabelPDF     string `json:"label_pdf,omitempty"`
}

// AddParcel appends a parcel, keeping order.
func (s *Shipment) AddParcel(p Parcel) {
	s.Parcels = append(s.Parcels, p)
}

// AddAdditionalService adds svc, replacing any service with the same code.
func (s *Shipment) AddAdditionalService(svc AdditionalService) {
	for i, existing := range s.AdditionalServices {
		if existing.ServiceCode == svc.ServiceCode {
			s.AdditionalServices[i] = svc
			return
		}
	}
	s.AdditionalServices = append(s.AdditionalServices, svc)
}

// SetPickupPoint selects a pickup point as the delivery address.
func (s *Shipment) SetPickupPoint(pointID string) {
	s.AddAdditionalService(AdditionalService{
		ServiceCode: ServicePickupPoint,
		Specifiers:  map[string]string{specifierPickupPoint: pointID},
	})
}

// PickupPoint returns the selected pickup point id, if any.
func (s *Shipment) PickupPoint() string {
	for _, svc := range s.AdditionalServices {
		if svc.ServiceCode == ServicePickupPoint {
			return svc.Specifiers[specifierPickupPoint]
		}
	}
	return ""
}

// CreateResult is returned by CreateShipment.
type CreateResult struct {
	Reference    string `json:"reference"`
	TrackingCode string `json:"tracking_code"`
}

// Apply copies the result onto s.
func (r *CreateResult) Apply(s *Shipment) {
	s.Reference = r.Reference
	s.TrackingCode = r.TrackingCode
}

// DraftResult is returned by CreateShipmentDraft. UUID identifies the draft
// for ConfirmShipmentDraft and is distinct from Reference.
type DraftResult struct {
	UUID      string `json:"uuid"`
	Reference string `json:"reference,omitempty"`
}

// Apply copies the draft reference onto s.
func (r *DraftResult) Apply(s *Shipment) {
	s.Reference = r.Reference
}

// ConfirmResult is returned by ConfirmShipmentDraft.
type ConfirmResult struct {
	TrackingCode string `json:"tracking_code"`
}

// Apply copies the tracking code onto s.
func (r *ConfirmResult) Apply(s *Shipment) {
	s.TrackingCode = r.TrackingCode
}

// Label is a base64 encoded PDF with one or more shipping labels.
type Label struct {
	FileBase64 string `json:"file"`
}

// Apply stores the label on s.
func (l *Label) Apply(s *Shipment) {
	s.LabelPDF = l.FileBase64
}

// PriceEstimate is returned by EstimateShippingCost. Raw keeps the whole
// decoded response. Price is zero when the response carries no usable price.
type PriceEstimate struct {
	Price float64         `json:"price"`
	Raw   json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts the price as a number or a numeric string.
func (e *PriceEstimate) UnmarshalJSON(data []byte) error {
	var wire struct {
		Price flexFloat `json:"price"`
	}
	_ = json.Unmarshal(data, &wire)
	e.Price = float64(wire.Price)
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// PickupPoint is a location where a parcel can be dropped off or collected.
// Raw keeps the point as returned by the API.
type PickupPoint struct {
	ID              string          `json:"pickup_point_id"`
	Provider        string          `json:"provider"`
	ProviderCode    string          `json:"provider_code,omitempty"`
	Name            string          `json:"name"`
	StreetAddress   string          `json:"street_address"`
	Postcode        string          `json:"postcode"`
	City            string          `json:"city"`
	Country         string          `json:"country"`
	Description     string          `json:"description,omitempty"`
	Latitude        float64         `json:"map_latitude,omitempty"`
	Longitude       float64         `json:"map_longitude,omitempty"`
	Distance        float64         `json:"distance,omitempty"`
	ServiceCode     string          `json:"service_code,omitempty"`
	ProviderService string          `json:"provider_service,omitempty"`
	Raw             json.RawMessage `json:"-"`
}

// UnmarshalJSON fills the typed fields from whatever scalar types the API
// sends. Fields that cannot be read stay empty; it never fails.
func (p *PickupPoint) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID              flexString `json:"pickup_point_id"`
		Provider        flexString `json:"provider"`
		ProviderCode    flexString `json:"provider_code"`
		Name            flexString `json:"name"`
		StreetAddress   flexString `json:"street_address"`
		Postcode        flexString `json:"postcode"`
		City            flexString `json:"city"`
		Country         flexString `json:"country"`
		Description     flexString `json:"description"`
		Latitude        flexFloat  `json:"map_latitude"`
		Longitude       flexFloat  `json:"map_longitude"`
		Distance        flexFloat  `json:"distance"`
		ServiceCode     flexString `json:"service_code"`
		ProviderService flexString `json:"provider_service"`
	}
	_ = json.Unmarshal(data, &wire)

	*p = PickupPoint{
		ID:              string(wire.ID),
		Provider:        string(wire.Provider),
		ProviderCode:    string(wire.ProviderCode),
		Name:            string(wire.Name),
		StreetAddress:   string(wire.StreetAddress),
		Postcode:        string(wire.Postcode),
		City:            string(wire.City),
		Country:         string(wire.Country),
		Description:     string(wire.Description),
		Latitude:        float64(wire.Latitude),
		Longitude:       float64(wire.Longitude),
		Distance:        float64(wire.Distance),
		ServiceCode:     string(wire.ServiceCode),
		ProviderService: string(wire.ProviderService),
		Raw:             append(json.RawMessage(nil), data...),
	}
	return nil
}

// PickupPointQuery searches pickup points near an address.
type PickupPointQuery struct {
	Postcode        string `json:"postcode"`
	StreetAddress   string `json:"street_address"`
	Country         string `json:"country"`
	ServiceProvider string `json:"service_provider"`
	Limit           int    `json:"limit"`
}

// estimateRequest is the JSON payload of the estimate-price form field.
type estimateRequest struct {
	Sender             estimateParty    `json:"sender"`
	Receiver           estimateParty    `json:"receiver"`
	ProductCode        string           `json:"product_code"`
	Parcels            []estimateParcel `json:"parcels"`
	AdditionalServices []string         `json:"additional_services"`
}

type estimateParty struct {
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

type estimateParcel struct {
	Weight     float64 `json:"weight"`
	Volume     float64 `json:"volume"`
	Type       string  `json:"type"`
	XDimension float64 `json:"x_dimension"`
	YDimension float64 `json:"y_dimension"`
	ZDimension float64 `json:"z_dimension"`
}

func newEstimateRequest(s *Shipment) estimateRequest {
	req := estimateRequest{
		Sender:             estimateParty{Postcode: s.Sender.Postcode, Country: s.Sender.Country},
		Receiver:           estimateParty{Postcode: s.Receiver.Postcode, Country: s.Receiver.Country},
		ProductCode:        s.ShippingMethod,
		Parcels:            make([]estimateParcel, 0, len(s.Parcels)),
		AdditionalServices: make([]string, 0, len(s.AdditionalServices)),
	}
	for _, p := range s.Parcels {
		req.Parcels = append(req.Parcels, estimateParcel{
			Weight:     p.Weight,
			Volume:     p.Volume,
			Type:       p.PackageType,
			XDimension: p.X,
			YDimension: p.Y,
			ZDimension: p.Z,
		})
	}
	for _, svc := range s.AdditionalServices {
		req.AdditionalServices = append(req.AdditionalServices, svc.ServiceCode)
	}
	return req
}

// flexString reads a JSON string or number as text. Other values read as "".
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = ""
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if json.Unmarshal(data, &v) == nil {
			*s = flexString(v)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*s = flexString(data)
	}
	return nil
}

// flexFloat reads a JSON number or a numeric string such as "61.49" or
// "9,90". Other values read as 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = 0
	if len(data) == 0 {
		return nil
	}
	text := string(data)
	if data[0] == '"' {
		var v string
		if json.Unmarshal(data, &v) != nil {
			return nil
		}
		text = strings.ReplaceAll(strings.TrimSpace(v), ",", ".")
	}
	if n, err := strconv.ParseFloat(text, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		*f = flexFloat(n)
	}
	return nil
}
