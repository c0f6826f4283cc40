// Package useraccess implements the permission masking/role evaluation
// collaborator, reduced from the teacher's org/project access-tree
// service to the narrow interface the schema compiler needs:
// Mask(schema, role) schema. The teacher's own implementation resolved a
// user's role by a raw-SQL join against org/project membership tables;
// this keeps that "look the role's rule set up with one raw query, apply
// it in Go" shape, scoped down to per-type field masks instead of a
// multi-tenant access tree.
package useraccess

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	jsonschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/uptrace/bun"

	"github.com/autumndb/autumndb/pkg/apperror"
	"github.com/autumndb/autumndb/pkg/logger"
)

// Masker narrows a compiled schema's visible properties to what a role
// may see, out of scope for deep implementation per spec.md §1 — this
// gives the compiler a real call site with a working, if simple, rule
// store.
type Masker interface {
	Mask(ctx context.Context, schema *jsonschema.Schema, role string) (*jsonschema.Schema, error)
}

type maskRule struct {
	Role          string   `bun:"role"`
	AllowedFields []string `bun:"allowed_fields,array"`
}

type masker struct {
	db  bun.IDB
	log *slog.Logger
}

// NewMasker builds a Masker backed by the access_masks table.
func NewMasker(db bun.IDB, log *slog.Logger) Masker {
	return &masker{db: db, log: log.With(logger.Scope("useraccess.mask"))}
}

// Mask removes properties the role's allow-list doesn't name, leaving
// required/additionalProperties and every other keyword untouched. A
// role with no registered rule sees the schema unmodified (no
// restriction configured is the same as unrestricted, matching the
// compiler's own Unrestricted() fast path).
func (m *masker) Mask(ctx context.Context, schema *jsonschema.Schema, role string) (*jsonschema.Schema, error) {
	if role == "" || schema == nil || len(schema.Properties) == 0 {
		return schema, nil
	}

	var rule maskRule
	err := m.db.NewSelect().
		Table("access_masks").
		Column("role", "allowed_fields").
		Where("role = ?", role).
		Scan(ctx, &rule)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return schema, nil
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	allowed := make(map[string]bool, len(rule.AllowedFields))
	for _, f := range rule.AllowedFields {
		allowed[f] = true
	}

	masked := *schema
	masked.Properties = make(map[string]*jsonschema.Schema, len(schema.Properties))
	for name, prop := range schema.Properties {
		if allowed[name] {
			masked.Properties[name] = prop
		}
	}
	return &masked, nil
}
