package nodemap

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// EmptyGraph is the serialized form of an empty node or edge list.
const EmptyGraph = "[]"

var (
	// ErrNotArray is returned when an incoming payload is not a JSON array.
	ErrNotArray = errors.New("graph payload must be a JSON array")
	// ErrCorruptPayload is returned when a stored payload cannot be decoded.
	ErrCorruptPayload = errors.New("stored graph payload is not a JSON array")
)

// EncodeGraph validates raw as a JSON array of arbitrary values and returns
// its compact serialization for storage.
func EncodeGraph(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsArray() {
		return "", ErrNotArray
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", ErrNotArray
	}
	return buf.String(), nil
}

// DecodeGraph returns the stored payload as raw JSON. A blank column decodes
// to an empty list.
func DecodeGraph(stored string) (json.RawMessage, error) {
	stored = strings.TrimSpace(stored)
	if stored == "" {
		return json.RawMessage(EmptyGraph), nil
	}
	if !gjson.Valid(stored) || !gjson.Parse(stored).IsArray() {
		return nil, ErrCorruptPayload
	}
	return json.RawMessage(stored), nil
}

// IsArray reports whether raw is a well-formed JSON array.
func IsArray(raw json.RawMessage) bool {
	_, err := EncodeGraph(raw)
	return err == nil
}
