package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/steady/internal/event"
)

// marshalFields serializes an event payload to canonical JSON.
// A nil payload is stored as "{}".
func marshalFields(fields event.Fields) (string, error) {
	if fields == nil {
		return "{}", nil
	}
	data, err := event.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields decodes a stored payload. Integral numbers come back as
// int64 and everything else numeric as float64, so a round trip through the
// store re-marshals to the same canonical bytes.
func unmarshalFields(data string) (event.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	out, ok := normalizeNumbers(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unmarshal fields: expected object")
	}
	return event.Fields(out), nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, elem := range val {
			val[k] = normalizeNumbers(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = normalizeNumbers(elem)
		}
		return val
	default:
		return v
	}
}
