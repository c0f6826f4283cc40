// Package typeregistry implements the schema defaulting/mixin loading
// collaborator of spec.md §3/§9: "a contract type is itself a contract
// whose data is a JSON Schema." Adapted from the teacher's own
// domain/typeregistry — which already keyed a JSON Schema registry by
// type name — generalized from its project-scoped
// kb.project_object_type_registry table to AutumnDB's single shared
// contracts table (a registry entry is just a contract of type "type").
package typeregistry

import (
	"context"
	"encoding/json"
	"log/slog"

	jsonschema "github.com/google/jsonschema-go/jsonschema"

	"github.com/autumndb/autumndb/domain/contracts"
	"github.com/autumndb/autumndb/pkg/apperror"
	"github.com/autumndb/autumndb/pkg/logger"
)

// typeData is the data payload shape of a contract whose type is "type":
// the JSON Schema body itself, an optional list of mixin type slugs to
// compose via allOf, and default values applied to new documents of this
// type that don't set a given property.
type typeData struct {
	Schema   json.RawMessage            `json:"schema"`
	Mixins   []string                   `json:"mixins,omitempty"`
	Defaults map[string]json.RawMessage `json:"defaults,omitempty"`
}

// Registry resolves a contract type slug to its compiled JSON Schema,
// composing declared mixins via allOf and caching the result per slug
// (registry entries change rarely relative to query volume).
type Registry struct {
	store contracts.Store
	log   *slog.Logger
	cache map[string]*jsonschema.Schema
}

// NewRegistry builds a Registry over the contract store.
func NewRegistry(store contracts.Store, log *slog.Logger) *Registry {
	return &Registry{store: store, log: log.With(logger.Scope("typeregistry")), cache: make(map[string]*jsonschema.Schema)}
}

// Schema returns the composed JSON Schema for a type slug (e.g.
// "card@1.0.0"), with every declared mixin folded into an allOf.
func (r *Registry) Schema(ctx context.Context, typeSlug string) (*jsonschema.Schema, error) {
	if s, ok := r.cache[typeSlug]; ok {
		return s, nil
	}

	td, err := r.load(ctx, typeSlug)
	if err != nil {
		return nil, err
	}

	schema := new(jsonschema.Schema)
	if err := json.Unmarshal(td.Schema, schema); err != nil {
		return nil, apperror.NewSchemaInvalid(err)
	}

	for _, mixin := range td.Mixins {
		mixinSchema, err := r.Schema(ctx, mixin)
		if err != nil {
			return nil, err
		}
		schema.AllOf = append(schema.AllOf, mixinSchema)
	}

	r.cache[typeSlug] = schema
	return schema, nil
}

// ApplyDefaults fills in any property data leaves unset with the type's
// declared defaults, without overwriting values already present.
func (r *Registry) ApplyDefaults(ctx context.Context, typeSlug string, data map[string]any) (map[string]any, error) {
	td, err := r.load(ctx, typeSlug)
	if err != nil {
		return nil, err
	}
	for key, raw := range td.Defaults {
		if _, present := data[key]; present {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		data[key] = v
	}
	return data, nil
}

func (r *Registry) load(ctx context.Context, typeSlug string) (*typeData, error) {
	c, err := r.store.GetBySlug(ctx, typeSlug)
	if err != nil {
		return nil, err
	}
	var td typeData
	if err := json.Unmarshal(c.Data, &td); err != nil {
		return nil, apperror.NewSchemaInvalid(err)
	}
	return &td, nil
}

// Invalidate drops a cached schema. Nothing in this module calls it;
// a cached schema otherwise stays until the Registry is discarded.
func (r *Registry) Invalidate(typeSlug string) {
	delete(r.cache, typeSlug)
}
