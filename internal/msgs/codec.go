package msgs

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// Poses must survive a round trip bit for bit, so floats keep full precision.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode serializes a message.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return b, nil
}

// Decode deserializes payload into v.
func Decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decoding message: %w", err)
	}
	return nil
}

// DecodeHeader reads only the id and discriminant of a message.
func DecodeHeader(payload []byte) (Header, error) {
	var h Header
	if err := Decode(payload, &h); err != nil {
		return Header{}, err
	}
	if h.Type == "" {
		return Header{}, fmt.Errorf("decoding message: missing type")
	}
	return h, nil
}
