// Package routes maps named operations to URI templates. One generic
// builder interprets a per-resource definition table instead of a wrapper
// type per route.
package routes

import (
	"fmt"
	"net/http"

	"github.com/baasic/baasic-go/client/apiclient"
	"github.com/baasic/baasic-go/uritemplate"
)

// Definition binds one named operation to its method and route template.
type Definition struct {
	Name     string
	Method   string
	Template string
}

// Builder expands named definitions into ready request configs.
type Builder struct {
	defs map[string]Definition
}

func NewBuilder(defs ...Definition) *Builder {
	b := &Builder{defs: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		b.defs[def.Name] = def
	}
	return b
}

// Merge returns a builder that also knows the given definitions; later
// definitions shadow earlier ones by name.
func (b *Builder) Merge(defs ...Definition) *Builder {
	merged := make([]Definition, 0, len(b.defs)+len(defs))
	for _, def := range b.defs {
		merged = append(merged, def)
	}
	merged = append(merged, defs...)
	return NewBuilder(merged...)
}

// Build expands the named route with params into a request config the
// pipeline can run. Expansion failures (unknown name, missing required
// path variable) fail fast, before any network call.
func (b *Builder) Build(name string, params map[string]any) (*apiclient.RequestConfig, error) {
	def, ok := b.defs[name]
	if !ok {
		return nil, fmt.Errorf("routes: unknown route %q", name)
	}

	url, err := uritemplate.Expand(def.Template, params)
	if err != nil {
		return nil, err
	}

	rc := apiclient.DefaultRequestConfig()
	rc.WithURL(url)
	if def.Method != "" {
		rc.WithMethod(def.Method)
	}
	return &rc, nil
}

// Membership is the route table for the operations the SDK itself uses.
var Membership = []Definition{
	{Name: "login", Method: http.MethodPost, Template: "login{?options}"},
	{Name: "login.delete", Method: http.MethodDelete, Template: "login"},
	{Name: "user.info", Method: http.MethodGet, Template: "users/me{?embed,fields}"},
	{Name: "permissions.list", Method: http.MethodGet, Template: "permissions/sections{?sort}"},
}
