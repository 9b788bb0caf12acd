// Package uritemplate expands route templates of the form
// "resource/{id}/action{?a,b,c}" against a parameter map. Path variables
// are required; query-expansion variables are emitted only when a value is
// present.
package uritemplate

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
)

// RouteError reports a template that could not be expanded, typically a
// required path variable with no value.
type RouteError struct {
	Param string
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("route: missing required parameter %q", e.Param)
}

var placeholderRe = regexp.MustCompile(`\{(\??)([^{}]+)\}`)

// Expand substitutes every placeholder in template using params. Path
// variables ({var}) are percent-encoded and mandatory. Query expansions
// ({?a,b,c}) produce "?a=1&b=2" pairs for defined parameters only; an
// expansion with no defined parameters disappears entirely. Parameters not
// named by the template are ignored. Slice values are comma-joined.
func Expand(template string, params map[string]any) (string, error) {
	var expandErr error

	out := placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		groups := placeholderRe.FindStringSubmatch(match)
		names := strings.Split(groups[2], ",")

		if groups[1] == "?" {
			return expandQuery(names, params)
		}

		// Path variable: a single required name.
		name := strings.TrimSpace(groups[2])
		value, ok := params[name]
		if !ok || value == nil {
			if expandErr == nil {
				expandErr = &RouteError{Param: name}
			}
			return ""
		}
		return url.PathEscape(stringify(value))
	})

	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}

func expandQuery(names []string, params map[string]any) string {
	var pairs []string
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		value, ok := params[name]
		if !ok || value == nil {
			continue
		}
		pairs = append(pairs, url.QueryEscape(name)+"="+url.QueryEscape(stringify(value)))
	}
	if len(pairs) == 0 {
		return ""
	}
	return "?" + strings.Join(pairs, "&")
}

// stringify renders a parameter value; slices and arrays join their
// elements with commas.
func stringify(value any) string {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts[i] = fmt.Sprintf("%v", rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprintf("%v", value)
}
