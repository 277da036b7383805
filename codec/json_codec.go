package codec

import (
	"encoding/json"
)

// JSONCodec uses encoding/json for serialization. Human-readable and
// cross-language, which is what the server speaks on both bindings.
type JSONCodec struct{}

func (c *JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c *JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
