package remoteblob

import (
	"encoding/xml"
	"fmt"
)

// The XML-RPC envelope is a fixed compatibility contract with an
// existing XAPI-style server, not a general RPC negotiation (spec.md
// §4.5) — hence stdlib encoding/xml rather than a general XML-RPC
// client library (see DESIGN.md).

type methodCall struct {
	XMLName    xml.Name `xml:"methodCall"`
	MethodName string   `xml:"methodName"`
	Params     params   `xml:"params"`
}

type methodResponse struct {
	XMLName xml.Name `xml:"methodResponse"`
	Params  params   `xml:"params"`
	Fault   *fault   `xml:"fault"`
}

type params struct {
	Param []param `xml:"param"`
}

type param struct {
	Value value `xml:"value"`
}

type value struct {
	String string `xml:"string"`
}

type fault struct {
	Value value `xml:"value"`
}

// WrapRequest builds an XML-RPC methodCall envelope carrying a single
// string parameter — the base64 snapshot — addressed to method.
func WrapRequest(method string, body string) ([]byte, error) {
	call := methodCall{
		MethodName: method,
		Params:     params{Param: []param{{Value: value{String: body}}}},
	}
	out, err := xml.Marshal(call)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// UnwrapResponse extracts the single string parameter from an XML-RPC
// methodResponse envelope (the base64 snapshot returned by a fetch).
func UnwrapResponse(raw []byte) (string, error) {
	var resp methodResponse
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("remoteblob: parsing methodResponse: %w", err)
	}
	if resp.Fault != nil {
		return "", fmt.Errorf("remoteblob: remote fault: %s", resp.Fault.Value.String)
	}
	if len(resp.Params.Param) != 1 {
		return "", fmt.Errorf("remoteblob: expected exactly one param, got %d", len(resp.Params.Param))
	}
	return resp.Params.Param[0].Value.String, nil
}
