package dto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtraHeaders type is a comma separated key=value string defined for use
// with flag/appconfig parsing. Values end up applied to every request via
// the static header middleware.
type ExtraHeaders map[string]string

func (e ExtraHeaders) String() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// Set Value should be a comma separated key=value string
func (e ExtraHeaders) Set(s string) error {
	for _, header := range strings.Split(s, ",") {
		name, value, found := strings.Cut(header, "=")
		if !found {
			return fmt.Errorf("malformed header entry: %q", header)
		}
		e[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return nil
}

func (e ExtraHeaders) Type() string {
	return "ExtraHeaders"
}
