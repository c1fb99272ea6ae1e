package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EncodeCollection serializes the elements of a collection in the given
// format. JSON output matches the on-disk layout of a collection file.
func EncodeCollection(items []any, format Format) ([]byte, error) {
	if items == nil {
		items = []any{}
	}
	return EncodeValue(items, format)
}

// EncodeValue serializes any JSON-marshalable value. For YAML the value is
// first converted to its generic JSON form so that json struct tags decide
// the keys and numbers stay numbers.
func EncodeValue(v any, format Format) ([]byte, error) {
	switch format {
	case "", FormatJSON:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return buf.Bytes(), nil

	case FormatYAML:
		generic, err := toGeneric(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// toGeneric round-trips v through JSON into maps, slices and native numbers
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return normalizeNumbers(out), nil
}

// normalizeNumbers replaces json.Number values with native integers or
// floats so that YAML renders them as numbers rather than strings.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		s := val.String()
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, el := range val {
			out[k] = normalizeNumbers(el)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, el := range val {
			out[i] = normalizeNumbers(el)
		}
		return out
	default:
		return v
	}
}
