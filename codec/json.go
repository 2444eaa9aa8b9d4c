package codec

import gojson "github.com/goccy/go-json"

// JSON is a variable-size codec backed by github.com/goccy/go-json.
//
// Decode returns the generic JSON representation (map[string]any, []any,
// float64, string, bool, nil), not the original Go type.
type JSON struct{}

// Encode encodes the value to JSON.
func (JSON) Encode(v any) ([]byte, error) { return gojson.Marshal(v) }

// Decode decodes the JSON data to its generic representation.
func (JSON) Decode(b []byte) (any, error) {
	var v any
	if err := gojson.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Size returns SizeVariable.
func (JSON) Size() int { return SizeVariable }

// Name returns "json".
func (JSON) Name() string { return "json" }
