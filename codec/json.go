package codec

import "encoding/json"

// JSON is a codec backed by encoding/json.
//
// It is the default codec for container tables of contents: the TOC is
// small compared to the numeric payload, so readability wins over speed.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }
