package service

import (
	"encoding/json"
	"fmt"
)

// jsonCodec serializes plain Go request and response structs. It replaces
// Connect's default protojson codec under the same name, so clients send
// application/json (unary) or application/connect+json (streaming).
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	return nil
}
