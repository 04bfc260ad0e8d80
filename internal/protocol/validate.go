package protocol

import (
	"encoding/json"
	"regexp"
)

// timestampPattern matches the ISO-8601 `Z` format required by spec §4.1.
var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)

// ValidateEnvelope performs the first validation phase: the envelope itself,
// independent of payload contents. It returns the protoerr.Code to use in an
// error response, or "" if the envelope is well-formed.
func ValidateEnvelope(e *Envelope) string {
	if e == nil {
		return "INVALID_MESSAGE_FORMAT"
	}
	if e.Type == "" {
		return "MISSING_REQUIRED_FIELD"
	}
	if !IsKnown(e.Type) {
		return "UNKNOWN_MESSAGE_TYPE"
	}
	if e.ID == "" {
		return "MISSING_REQUIRED_FIELD"
	}
	if e.Timestamp == "" {
		return "MISSING_REQUIRED_FIELD"
	}
	if !timestampPattern.MatchString(e.Timestamp) {
		return "INVALID_FIELD_VALUE"
	}
	return ""
}

// DecodePayload unmarshals a raw envelope payload into dst, returning false
// (INVALID_MESSAGE_FORMAT) if the payload isn't valid JSON for dst's shape.
func DecodePayload(raw json.RawMessage, dst any) bool {
	if len(raw) == 0 {
		// Treat an absent payload as an empty object so dst keeps its zero
		// value rather than erroring — several message types (ping,
		// disconnect) carry no required fields.
		return true
	}
	return json.Unmarshal(raw, dst) == nil
}

// Decode parses a raw transport frame into an Envelope and runs phase-one
// validation. The returned code is "" when the envelope is well-formed.
func Decode(raw []byte) (*Envelope, string) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, "INVALID_MESSAGE_FORMAT"
	}
	if code := ValidateEnvelope(&e); code != "" {
		return &e, code
	}
	return &e, ""
}
