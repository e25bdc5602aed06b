package payload

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Envelope constants matching the device API conventions. The Google JSON
// context and the JSON-RPC id are fixed so generated payloads are comparable
// across runs.
const (
	GoogleAPIVersion = "1.5"
	GoogleContext    = "test12345"
	JSONRPCVersion   = "2.0"
	JSONRPCID        = "helmut"
)

// Format identifies how a method call is serialized onto the wire. The set
// is closed: presets are generated across exactly these five formats.
type Format int

const (
	// PathStyle embeds the method name in the URL path; the body carries
	// the bare params object.
	PathStyle Format = iota
	// ActionQuery passes the method as an `action` query parameter.
	ActionQuery
	// BodyWrapped nests the params under the method name in the JSON body.
	BodyWrapped
	// GoogleJSON wraps the call in a Google JSON-style envelope.
	GoogleJSON
	// JSONRPC wraps the call in a JSON-RPC 2.0 envelope.
	JSONRPC
)

var formatNames = map[Format]string{
	PathStyle:   "path",
	ActionQuery: "action",
	BodyWrapped: "body",
	GoogleJSON:  "google",
	JSONRPC:     "rpc",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// MarshalJSON serializes the format as its string name.
func (f Format) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON accepts the string names produced by MarshalJSON.
func (f *Format) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFormat maps a format name to its Format value.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if name == strings.ToLower(strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown payload format %q (want path, action, body, google or rpc)", s)
}

// Formats returns all five formats in their canonical order.
func Formats() []Format {
	return []Format{PathStyle, ActionQuery, BodyWrapped, GoogleJSON, JSONRPC}
}

type googleEnvelope struct {
	APIVersion string          `json:"apiVersion"`
	Method     string          `json:"method"`
	Params     json.RawMessage `json:"params"`
	Context    string          `json:"context"`
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      string          `json:"id"`
}

// EncodeBody serializes the request body for a method call in the given
// format. A nil params is treated as an empty object, matching parameterless
// GET-style calls. Serialization is deterministic per format.
func EncodeBody(f Format, method string, params json.RawMessage) ([]byte, error) {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	if !json.Valid(params) {
		return nil, fmt.Errorf("params for %s is not valid JSON", method)
	}

	switch f {
	case PathStyle, ActionQuery:
		return params, nil
	case BodyWrapped:
		return json.Marshal(map[string]json.RawMessage{method: params})
	case GoogleJSON:
		return json.Marshal(googleEnvelope{
			APIVersion: GoogleAPIVersion,
			Method:     method,
			Params:     params,
			Context:    GoogleContext,
		})
	case JSONRPC:
		return json.Marshal(rpcEnvelope{
			JSONRPC: JSONRPCVersion,
			Method:  method,
			Params:  params,
			ID:      JSONRPCID,
		})
	default:
		return nil, fmt.Errorf("unknown payload format %d", int(f))
	}
}

// EndpointPath returns the URL path for a call against an endpoint group,
// e.g. group "/api/call" with method "GetContacts". Envelope formats carry
// the method in the body, so the path stays at the group.
func EndpointPath(f Format, group, method string) string {
	group = strings.TrimSuffix(group, "/")
	switch f {
	case PathStyle, ActionQuery:
		return group + "/" + method
	default:
		return group
	}
}

// QueryValues returns the format-specific query parameters for a call.
func QueryValues(f Format, method string) url.Values {
	q := url.Values{}
	if f == ActionQuery {
		q.Set("action", method)
	}
	return q
}
