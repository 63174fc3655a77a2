package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Encode writes v to w in format.
func Encode(w io.Writer, v any, format string) error {
	switch format {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Select evaluates a gjson path against state and returns the match as a
// plain value.
func Select(state any, query string) (any, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	result := gjson.GetBytes(data, query)
	if !result.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, query)
	}
	return result.Value(), nil
}
