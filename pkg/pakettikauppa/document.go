package pakettikauppa

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
)

// ============================================================================
// eChannel document structures
// ============================================================================

// Document is an outbound eChannel document. Exactly one of Shipment,
// PrintLabel and ConfirmLabel is set.
type Document struct {
	XMLName      xml.Name         `xml:"eChannel"`
	Routing      routingXML       `xml:"ROUTING"`
	Shipment     *shipmentXML     `xml:"Shipment,omitempty"`
	PrintLabel   *printLabelXML   `xml:"PrintLabel,omitempty"`
	ConfirmLabel *confirmLabelXML `xml:"ConfirmLabel,omitempty"`
}

type routingXML struct {
	Account string `xml:"Routing.Account"`
	ID      string `xml:"Routing.Id"`
	Version string `xml:"Routing.Version,omitempty"`
	Key     string `xml:"Routing.Key,omitempty"`
	Token   string `xml:"Routing.Token,omitempty"`
	Comment string `xml:"Routing.Comment,omitempty"`
}

type shipmentXML struct {
	Sender      senderXML      `xml:"Shipment.Sender"`
	Recipient   recipientXML   `xml:"Shipment.Recipient"`
	Consignment consignmentXML `xml:"Shipment.Consignment"`
}

type senderXML struct {
	Name1    string `xml:"Sender.Name1"`
	Name2    string `xml:"Sender.Name2,omitempty"`
	Addr1    string `xml:"Sender.Addr1"`
	Addr2    string `xml:"Sender.Addr2,omitempty"`
	Addr3    string `xml:"Sender.Addr3,omitempty"`
	Postcode string `xml:"Sender.Postcode"`
	City     string `xml:"Sender.City"`
	Country  string `xml:"Sender.Country"`
	Phone    string `xml:"Sender.Phone,omitempty"`
	Email    string `xml:"Sender.Email,omitempty"`
	VATCode  string `xml:"Sender.Vatcode,omitempty"`
}

type recipientXML struct {
	Name1    string `xml:"Recipient.Name1"`
	Name2    string `xml:"Recipient.Name2,omitempty"`
	Addr1    string `xml:"Recipient.Addr1"`
	Addr2    string `xml:"Recipient.Addr2,omitempty"`
	Addr3    string `xml:"Recipient.Addr3,omitempty"`
	Postcode string `xml:"Recipient.Postcode"`
	City     string `xml:"Recipient.City"`
	Country  string `xml:"Recipient.Country"`
	Phone    string `xml:"Recipient.Phone,omitempty"`
	Email    string `xml:"Recipient.Email,omitempty"`
	VATCode  string `xml:"Recipient.Vatcode,omitempty"`
}

type consignmentXML struct {
	Reference          string                 `xml:"Consignment.Reference,omitempty"`
	Product            string                 `xml:"Consignment.Product"`
	AdditionalServices []additionalServiceXML `xml:"Consignment.AdditionalService"`
	Parcels            []parcelXML            `xml:"Consignment.Parcel"`
}

type additionalServiceXML struct {
	ServiceCode string         `xml:"AdditionalService.ServiceCode"`
	Specifiers  []specifierXML `xml:"AdditionalService.Specifier"`
}

type specifierXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type parcelXML struct {
	Reference   string      `xml:"Parcel.Reference,omitempty"`
	PackageType string      `xml:"Parcel.Packagetype"`
	Weight      measureXML  `xml:"Parcel.Weight"`
	Volume      *measureXML `xml:"Parcel.Volume,omitempty"`
	XDimension  string      `xml:"Parcel.x_dimension,omitempty"`
	YDimension  string      `xml:"Parcel.y_dimension,omitempty"`
	ZDimension  string      `xml:"Parcel.z_dimension,omitempty"`
	InfoCode    string      `xml:"Parcel.Infocode,omitempty"`
	Contents    string      `xml:"Parcel.Contents,omitempty"`
}

type measureXML struct {
	Unit  string `xml:"unit,attr"`
	Value string `xml:",chardata"`
}

type printLabelXML struct {
	ResponseFormat string   `xml:"responseFormat,attr"`
	Reference      string   `xml:"Reference,omitempty"`
	TrackingCodes  []string `xml:"TrackingCode"`
}

type confirmLabelXML struct {
	Reference draftReferenceXML `xml:"Reference"`
}

type draftReferenceXML struct {
	UUID string `xml:"uuid,attr"`
}

// defaultPackageType is sent for parcels without a package type. Parsed
// documents report it as the parcel's type.
const defaultPackageType = "PC"

// ============================================================================
// Builders
// ============================================================================

// BuildShipmentDocument serializes s into a shipment creation document
// authenticated by r. It does not modify s.
func BuildShipmentDocument(s *Shipment, r Routing) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: shipment is nil", ErrInvalidShipment)
	}
	if s.ShippingMethod == "" {
		return nil, fmt.Errorf("%w: shipping method not set", ErrInvalidShipment)
	}
	if len(s.Parcels) == 0 {
		return nil, fmt.Errorf("%w: no parcels", ErrInvalidShipment)
	}

	doc := Document{Shipment: shipmentToXML(s)}
	return marshalDocument(&doc, r)
}

// BuildLabelDocument builds a label printing request for one or more
// tracking codes. The API answers with a single PDF containing all labels.
// reference may be empty.
func BuildLabelDocument(r Routing, reference string, trackingCodes ...string) ([]byte, error) {
	codes := make([]string, 0, len(trackingCodes))
	for _, code := range trackingCodes {
		if code != "" {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: no tracking codes", ErrInvalidShipment)
	}

	doc := Document{
		PrintLabel: &printLabelXML{
			ResponseFormat: "File",
			Reference:      reference,
			TrackingCodes:  codes,
		},
	}
	return marshalDocument(&doc, r)
}

// BuildConfirmDraftDocument builds a request confirming the draft uuid.
func BuildConfirmDraftDocument(r Routing, uuid string) ([]byte, error) {
	if uuid == "" {
		return nil, fmt.Errorf("%w: draft uuid not set", ErrInvalidShipment)
	}

	doc := Document{
		ConfirmLabel: &confirmLabelXML{Reference: draftReferenceXML{UUID: uuid}},
	}
	return marshalDocument(&doc, r)
}

func marshalDocument(doc *Document, r Routing) ([]byte, error) {
	if r.Account == "" || (r.Key == "" && r.Token == "") {
		return nil, &AuthenticationError{Message: "routing block has no credentials"}
	}
	doc.Routing = routingXML(r)

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func shipmentToXML(s *Shipment) *shipmentXML {
	out := &shipmentXML{
		Sender: senderXML{
			Name1:    s.Sender.Name1,
			Name2:    s.Sender.Name2,
			Addr1:    s.Sender.Addr1,
			Addr2:    s.Sender.Addr2,
			Addr3:    s.Sender.Addr3,
			Postcode: s.Sender.Postcode,
			City:     s.Sender.City,
			Country:  s.Sender.Country,
			Phone:    s.Sender.Phone,
			Email:    s.Sender.Email,
			VATCode:  s.Sender.VATCode,
		},
		Recipient: recipientXML{
			Name1:    s.Receiver.Name1,
			Name2:    s.Receiver.Name2,
			Addr1:    s.Receiver.Addr1,
			Addr2:    s.Receiver.Addr2,
			Addr3:    s.Receiver.Addr3,
			Postcode: s.Receiver.Postcode,
			City:     s.Receiver.City,
			Country:  s.Receiver.Country,
			Phone:    s.Receiver.Phone,
			Email:    s.Receiver.Email,
			VATCode:  s.Receiver.VATCode,
		},
		Consignment: consignmentXML{
			Reference: s.ConsignmentReference,
			Product:   s.ShippingMethod,
		},
	}

	for _, svc := range s.AdditionalServices {
		names := make([]string, 0, len(svc.Specifiers))
		for name := range svc.Specifiers {
			names = append(names, name)
		}
		sort.Strings(names)

		x := additionalServiceXML{ServiceCode: svc.ServiceCode}
		for _, name := range names {
			x.Specifiers = append(x.Specifiers, specifierXML{Name: name, Value: svc.Specifiers[name]})
		}
		out.Consignment.AdditionalServices = append(out.Consignment.AdditionalServices, x)
	}

	for _, p := range s.Parcels {
		packageType := p.PackageType
		if packageType == "" {
			packageType = defaultPackageType
		}
		x := parcelXML{
			Reference:   p.Reference,
			PackageType: packageType,
			Weight:      measureXML{Unit: "kg", Value: formatDecimal(p.Weight)},
			XDimension:  formatOptionalDecimal(p.X),
			YDimension:  formatOptionalDecimal(p.Y),
			ZDimension:  formatOptionalDecimal(p.Z),
			InfoCode:    p.InfoCode,
			Contents:    p.Contents,
		}
		if p.Volume > 0 {
			x.Volume = &measureXML{Unit: "m3", Value: formatDecimal(p.Volume)}
		}
		out.Consignment.Parcels = append(out.Consignment.Parcels, x)
	}

	return out
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalDecimal(v float64) string {
	if v == 0 {
		return ""
	}
	return formatDecimal(v)
}

// ============================================================================
// Decoding
// ============================================================================

// ParseDocument decodes an eChannel document, e.g. one produced by the
// builders above or echoed back by the API.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ProtocolError{Reason: "malformed document", Cause: err}
	}
	return &doc, nil
}

// RoutingBlock returns the document's routing block.
func (d *Document) RoutingBlock() Routing {
	return Routing(d.Routing)
}

// TrackingCodes returns the tracking codes of a label request.
func (d *Document) TrackingCodes() []string {
	if d.PrintLabel == nil {
		return nil
	}
	return d.PrintLabel.TrackingCodes
}

// LabelReference returns the shipment reference of a label request.
func (d *Document) LabelReference() string {
	if d.PrintLabel == nil {
		return ""
	}
	return d.PrintLabel.Reference
}

// DraftUUID returns the draft uuid of a confirmation request.
func (d *Document) DraftUUID() string {
	if d.ConfirmLabel == nil {
		return ""
	}
	return d.ConfirmLabel.Reference.UUID
}

// ToShipment reconstructs the shipment carried by a creation document.
func (d *Document) ToShipment() (*Shipment, error) {
	if d.Shipment == nil {
		return nil, &ProtocolError{Reason: "document carries no shipment"}
	}
	x := d.Shipment

	s := &Shipment{
		Sender: Party{
			Name1:    x.Sender.Name1,
			Name2:    x.Sender.Name2,
			Addr1:    x.Sender.Addr1,
			Addr2:    x.Sender.Addr2,
			Addr3:    x.Sender.Addr3,
			Postcode: x.Sender.Postcode,
			City:     x.Sender.City,
			Country:  x.Sender.Country,
			Phone:    x.Sender.Phone,
			Email:    x.Sender.Email,
			VATCode:  x.Sender.VATCode,
		},
		Receiver: Party{
			Name1:    x.Recipient.Name1,
			Name2:    x.Recipient.Name2,
			Addr1:    x.Recipient.Addr1,
			Addr2:    x.Recipient.Addr2,
			Addr3:    x.Recipient.Addr3,
			Postcode: x.Recipient.Postcode,
			City:     x.Recipient.City,
			Country:  x.Recipient.Country,
			Phone:    x.Recipient.Phone,
			Email:    x.Recipient.Email,
			VATCode:  x.Recipient.VATCode,
		},
		ShippingMethod:       x.Consignment.Product,
		ConsignmentReference: x.Consignment.Reference,
	}

	for _, svc := range x.Consignment.AdditionalServices {
		out := AdditionalService{ServiceCode: svc.ServiceCode}
		if len(svc.Specifiers) > 0 {
			out.Specifiers = make(map[string]string, len(svc.Specifiers))
			for _, spec := range svc.Specifiers {
				out.Specifiers[spec.Name] = spec.Value
			}
		}
		s.AdditionalServices = append(s.AdditionalServices, out)
	}

	for _, p := range x.Consignment.Parcels {
		parcel := Parcel{
			Reference:   p.Reference,
			PackageType: p.PackageType,
			InfoCode:    p.InfoCode,
			Contents:    p.Contents,
		}
		var err error
		if parcel.Weight, err = parseDecimal(p.Weight.Value); err != nil {
			return nil, err
		}
		if p.Volume != nil {
			if parcel.Volume, err = parseDecimal(p.Volume.Value); err != nil {
				return nil, err
			}
		}
		if parcel.X, err = parseDecimal(p.XDimension); err != nil {
			return nil, err
		}
		if parcel.Y, err = parseDecimal(p.YDimension); err != nil {
			return nil, err
		}
		if parcel.Z, err = parseDecimal(p.ZDimension); err != nil {
			return nil, err
		}
		s.Parcels = append(s.Parcels, parcel)
	}

	return s, nil
}

func parseDecimal(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ProtocolError{Reason: fmt.Sprintf("invalid decimal %q", s), Cause: err}
	}
	return v, nil
}
