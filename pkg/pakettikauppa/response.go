package pakettikauppa

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/goccy/go-json"
)

// Response element names.
const (
	elemStatus       = "response.status"
	elemMessage      = "response.message"
	elemReference    = "response.reference"
	elemTrackingCode = "response.trackingcode"
	elemFile         = "response.file"
)

// Envelope is a parsed XML response whose status was zero.
type Envelope struct {
	Status  int
	Message string
	root    *etree.Element
}

// ParseEnvelope parses an XML response body and validates its status.
// Unparsable bodies yield a ProtocolError; a non-zero response.status yields
// a RemoteError carrying the status and response.message.
func ParseEnvelope(body []byte) (*Envelope, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, &ProtocolError{Reason: "malformed response", Cause: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &ProtocolError{Reason: "malformed response"}
	}

	statusElem := root.SelectElement(elemStatus)
	if statusElem == nil {
		return nil, &ProtocolError{Reason: "response has no status"}
	}
	status, err := strconv.Atoi(strings.TrimSpace(statusElem.Text()))
	if err != nil {
		return nil, &ProtocolError{Reason: "response status is not a number", Cause: err}
	}

	env := &Envelope{
		Status:  status,
		Message: childText(root, elemMessage),
		root:    root,
	}
	if status != 0 {
		return nil, &RemoteError{Code: status, Message: env.Message}
	}
	return env, nil
}

// Text returns the trimmed text of the named response element, or "".
func (e *Envelope) Text(name string) string {
	return childText(e.root, name)
}

// Attr returns an attribute of the named response element, or "".
func (e *Envelope) Attr(name, attr string) string {
	el := e.root.SelectElement(name)
	if el == nil {
		return ""
	}
	return el.SelectAttrValue(attr, "")
}

// require returns the text of a mandatory element.
func (e *Envelope) require(name string) (string, error) {
	v := e.Text(name)
	if v == "" {
		return "", &ProtocolError{Reason: "response has no " + name}
	}
	return v, nil
}

func childText(root *etree.Element, name string) string {
	el := root.SelectElement(name)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// CreateResult extracts the reference and tracking code of a created shipment.
func (e *Envelope) CreateResult() (*CreateResult, error) {
	ref, err := e.require(elemReference)
	if err != nil {
		return nil, err
	}
	code, err := e.require(elemTrackingCode)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Reference: ref, TrackingCode: code}, nil
}

// DraftResult extracts the draft uuid. The uuid is an attribute of
// response.reference, not its text.
func (e *Envelope) DraftResult() (*DraftResult, error) {
	uuid := strings.TrimSpace(e.Attr(elemReference, "uuid"))
	if uuid == "" {
		return nil, &ProtocolError{Reason: "response has no draft uuid"}
	}
	return &DraftResult{UUID: uuid, Reference: e.Text(elemReference)}, nil
}

// ConfirmResult extracts the tracking code of a confirmed draft.
func (e *Envelope) ConfirmResult() (*ConfirmResult, error) {
	code, err := e.require(elemTrackingCode)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{TrackingCode: code}, nil
}

// Label extracts the base64 encoded label file.
func (e *Envelope) Label() (*Label, error) {
	file, err := e.require(elemFile)
	if err != nil {
		return nil, err
	}
	return &Label{FileBase64: file}, nil
}

// jsonStatus reads the provider status fields.
type jsonStatus struct {
	Status  json.RawMessage `json:"status"`
	Message flexString      `json:"message"`
}

// DecodeJSON validates a JSON response body. Malformed bodies yield a
// ProtocolError. An object with a non-zero numeric "status" field yields a
// RemoteError; arrays and objects without a status pass through unchanged.
func DecodeJSON(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, &ProtocolError{Reason: "malformed response"}
	}

	if trimmed[0] == '{' {
		var st jsonStatus
		if err := json.Unmarshal(trimmed, &st); err != nil {
			return nil, &ProtocolError{Reason: "malformed response", Cause: err}
		}
		if code, ok := parseJSONStatus(st.Status); ok && code != 0 {
			return nil, &RemoteError{Code: code, Message: string(st.Message)}
		}
	}

	return json.RawMessage(trimmed), nil
}

// parseJSONStatus accepts 1 and "1" alike.
func parseJSONStatus(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	s := strings.Trim(string(raw), `"`)
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return code, true
}

// decodeInto validates body like DecodeJSON and unmarshals it into v.
func decodeInto(body []byte, v any) (json.RawMessage, error) {
	raw, err := DecodeJSON(body)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, &ProtocolError{Reason: "unexpected response shape", Cause: err}
	}
	return raw, nil
}
