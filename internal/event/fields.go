package event

import (
	"log/slog"
	"slices"
	"unicode/utf16"
)

// Fields is the structured payload of an Event.
//
// Values may be slog.LogValuer implementations; they are resolved only when
// a sink actually renders the event (see Resolve).
type Fields map[string]any

// With returns a copy of f with key set to value.
func (f Fields) With(key string, value any) Fields {
	out := make(Fields, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[key] = value
	return out
}

// Merge returns a copy of f overlaid with other. Keys in other win.
func (f Fields) Merge(other Fields) Fields {
	out := make(Fields, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (f Fields) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// Attrs converts f into slog attributes in canonical key order.
// LogValuer values are passed through untouched so slog resolves them
// only if the record is emitted.
func (f Fields) Attrs() []any {
	keys := f.SortedKeys()
	attrs := make([]any, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, f[k]))
	}
	return attrs
}

// Resolve returns a copy of f with every slog.LogValuer replaced by its
// resolved value. Nested Fields and maps are resolved recursively.
func (f Fields) Resolve() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = resolveValue(v)
	}
	return out
}

// FieldsValuer is a lazily computed payload. Resolve calls Fields directly
// instead of going through slog, which would widen int to int64 and
// float32 to float64.
type FieldsValuer interface {
	Fields() Fields
}

func resolveValue(v any) any {
	switch val := v.(type) {
	case FieldsValuer:
		return val.Fields().Resolve()
	case slog.LogValuer:
		return slogValue(val.LogValue().Resolve())
	case slog.Value:
		return slogValue(val.Resolve())
	case Fields:
		return val.Resolve()
	case map[string]any:
		return Fields(val).Resolve()
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = resolveValue(elem)
		}
		return out
	default:
		return v
	}
}

func slogValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindGroup:
		out := make(Fields)
		for _, a := range v.Group() {
			out[a.Key] = slogValue(a.Value.Resolve())
		}
		return out
	case slog.KindAny:
		return resolveValue(v.Any())
	default:
		return v.Any()
	}
}

// compareKeys compares strings using UTF-16 code unit ordering as RFC 8785
// requires. Go's native string comparison is UTF-8 and orders differently
// for supplementary-plane characters.
func compareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
