package coding

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnsupportedByteEncoding = errors.New("unsupported byte encoding")

// DecodeJSONBytes decodes a byte field sent by a remote peer. Peers send either a base64 string,
// an array of numbers, or an object keyed by index ({"0": 10, "1": 32}).
func DecodeJSONBytes(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return nil, err
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 bytes: %w", err)
		}
		return decoded, nil
	case '[':
		var numbers []uint8
		if err := json.Unmarshal(trimmed, &numbers); err != nil {
			return nil, fmt.Errorf("invalid byte array: %w", err)
		}
		return numbers, nil
	case '{':
		var indexed map[int]uint8
		if err := json.Unmarshal(trimmed, &indexed); err != nil {
			return nil, fmt.Errorf("invalid indexed byte object: %w", err)
		}
		out := make([]byte, len(indexed))
		for i := range out {
			b, ok := indexed[i]
			if !ok {
				return nil, fmt.Errorf("indexed byte object is missing index %d", i)
			}
			out[i] = b
		}
		return out, nil
	}

	return nil, ErrUnsupportedByteEncoding
}
