package parser

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"docqa/internal/domain"
)

// JSONParser flattens JSON documents into "path: value" lines so nested
// fields remain searchable as text.
type JSONParser struct{}

func (p *JSONParser) Parse(path string) (string, error) {
	data, err := readBounded(path)
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", nil
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", &domain.ParseError{Path: path, Err: err}
	}
	var b strings.Builder
	flatten("", doc, &b)
	return b.String(), nil
}

func flatten(prefix string, v any, b *strings.Builder) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(joinKey(prefix, k), val[k], b)
		}
	case []any:
		for i, item := range val {
			flatten(fmt.Sprintf("%s[%d]", prefix, i), item, b)
		}
	default:
		fmt.Fprintf(b, "%s: %v\n", prefix, val)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
