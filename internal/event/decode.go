package event

import (
	"encoding/json"
	"fmt"
)

// DecodePayload recovers a typed payload. Events published in-process carry
// the notification value itself; events read back from the dead-letter log
// carry generic JSON and are re-decoded into T.
func DecodePayload[T any](payload any) (T, error) {
	var out T
	switch v := payload.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			out = *v
		}
		return out, nil
	case json.RawMessage:
		if err := json.Unmarshal(v, &out); err != nil {
			return out, fmt.Errorf("decode payload as %T: %w", out, err)
		}
		return out, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("re-encode %T payload: %w", payload, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode payload as %T: %w", out, err)
	}
	return out, nil
}
