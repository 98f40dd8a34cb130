package deviceconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response is a parsed JSON reply to a device command.
// Tasmota replies are loosely shaped, so fields are read with Lookup rather
// than decoded into fixed structs.
type Response struct {
	raw json.RawMessage
	doc any
}

// ParseResponse parses a command reply body
func ParseResponse(body []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(body)

	var doc any
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}

	return &Response{
		raw: json.RawMessage(trimmed),
		doc: doc,
	}, nil
}

// Raw returns the reply exactly as the device sent it (whitespace trimmed)
func (r *Response) Raw() json.RawMessage {
	if r == nil {
		return nil
	}
	return r.raw
}

// String returns the raw JSON text
func (r *Response) String() string {
	if r == nil {
		return "null"
	}
	return string(r.raw)
}

// Lookup walks nested objects by key.
// A missing key, a non-object level, or a nil Response all report false.
func (r *Response) Lookup(path ...string) (any, bool) {
	if r == nil {
		return nil, false
	}

	current := r.doc
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// LookupString is Lookup restricted to string leaves
func (r *Response) LookupString(path ...string) (string, bool) {
	v, ok := r.Lookup(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// FirmwareVersion returns StatusFWR.Version from a "Status 2" reply
// (e.g., "13.1.0(tasmota)")
func (r *Response) FirmwareVersion() (string, bool) {
	return r.LookupString("StatusFWR", "Version")
}

// DeviceName returns Status.DeviceName from a "Status" or "Status 0" reply
func (r *Response) DeviceName() (string, bool) {
	return r.LookupString("Status", "DeviceName")
}
