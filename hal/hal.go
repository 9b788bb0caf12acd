// Package hal normalizes application/hal+json bodies into a plain object
// graph: embedded resources are promoted to sibling properties and link
// relations are reduced to a rel -> href map.
package hal

import (
	"encoding/json"
)

const (
	embeddedKey = "_embedded"
	linksKey    = "_links"

	// LinksProperty is the key the reduced link map is published under.
	LinksProperty = "links"
)

// Parse unwraps a raw HAL body and re-encodes the normalized graph. On any
// failure to parse, the original body is returned unchanged so the caller
// keeps a usable payload.
func Parse(raw []byte) []byte {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return raw
	}
	normalized, err := json.Marshal(Unwrap(decoded))
	if err != nil {
		return raw
	}
	return normalized
}

// Unwrap walks a decoded JSON value and resolves HAL structure wherever it
// appears. Non-HAL values pass through untouched.
func Unwrap(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return unwrapObject(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = Unwrap(item)
		}
		return out
	default:
		return v
	}
}

func unwrapObject(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == embeddedKey || k == linksKey {
			continue
		}
		out[k] = Unwrap(v)
	}

	if embedded, ok := obj[embeddedKey].(map[string]any); ok {
		for rel, resource := range embedded {
			out[rel] = Unwrap(resource)
		}
	}

	if links, ok := obj[linksKey].(map[string]any); ok {
		reduced := reduceLinks(links)
		if len(reduced) > 0 {
			out[LinksProperty] = reduced
		}
	}

	return out
}

// reduceLinks flattens a _links object into rel -> href. A rel holding an
// array of link objects maps to the list of hrefs.
func reduceLinks(links map[string]any) map[string]any {
	out := make(map[string]any, len(links))
	for rel, link := range links {
		switch l := link.(type) {
		case map[string]any:
			if href, ok := l["href"].(string); ok {
				out[rel] = href
			}
		case []any:
			var hrefs []string
			for _, item := range l {
				if m, ok := item.(map[string]any); ok {
					if href, ok := m["href"].(string); ok {
						hrefs = append(hrefs, href)
					}
				}
			}
			if len(hrefs) > 0 {
				out[rel] = hrefs
			}
		}
	}
	return out
}
