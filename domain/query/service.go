// Package query is the glue that the spec's §2 data flow describes in
// prose: it accepts the external (select, schema, options) input,
// applies domain/useraccess's role mask, compiles the schema with
// pkg/schema/compiler (C7), renders final SQL with pkg/schema/linkexpand
// (C8), and executes it against the contracts table.
package query

import (
	"context"
	"encoding/json"
	"log/slog"

	jsonschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/uptrace/bun"

	"github.com/autumndb/autumndb/domain/useraccess"
	"github.com/autumndb/autumndb/internal/config"
	"github.com/autumndb/autumndb/pkg/apperror"
	"github.com/autumndb/autumndb/pkg/logger"
	"github.com/autumndb/autumndb/pkg/pgutils"
	"github.com/autumndb/autumndb/pkg/schema/compiler"
	"github.com/autumndb/autumndb/pkg/schema/linkexpand"
)

// LinkOptions mirrors compiler.LinkOptions for the external interface's
// options.links map.
type LinkOptions struct {
	Skip    int      `json:"skip"`
	Limit   int      `json:"limit"`
	SortBy  []string `json:"sortBy"`
	SortDir string   `json:"sortDir"`
}

// Options mirrors spec.md §6's query options.
type Options struct {
	Skip        int                    `json:"skip"`
	Limit       int                    `json:"limit"`
	SortBy      []string               `json:"sortBy"`
	SortDir     string                 `json:"sortDir"`
	Links       map[string]LinkOptions `json:"links"`
	ExtraFilter string                 `json:"extraFilter"`
}

// Input is the (select, schema, options) tuple described in spec.md §6.
type Input struct {
	Select  map[string]any  `json:"select"`
	Schema  json.RawMessage `json:"schema"`
	Options Options         `json:"options"`
	// Role gates the schema through domain/useraccess.Masker before
	// compiling; it is supplied by the caller (the HTTP handler reads it
	// from the authenticated principal), not by the request body.
	Role string `json:"-"`
}

// Service executes (select, schema, options) queries against the
// contracts table.
type Service struct {
	db     bun.IDB
	masker useraccess.Masker
	cfg    *config.Config
	log    *slog.Logger
}

// NewService builds the query Service.
func NewService(db bun.IDB, masker useraccess.Masker, cfg *config.Config, log *slog.Logger) *Service {
	return &Service{db: db, masker: masker, cfg: cfg, log: log.With(logger.Scope("query"))}
}

// Run compiles in.Schema, renders SQL, executes it, and returns the
// ordered sequence of payload JSON objects (one per matched root
// contract), each with its "links" field materialized per $$links.
func (s *Service) Run(ctx context.Context, in Input) ([]json.RawMessage, error) {
	schema, err := s.maskedSchema(ctx, in)
	if err != nil {
		return nil, err
	}

	opts := toCompilerOptions(in.Options, s.cfg)

	res, err := compiler.Compile(schema, in.Select, opts)
	if err != nil {
		return nil, err
	}

	sql := linkexpand.Build(res, opts)

	var rows []struct {
		Payload json.RawMessage `bun:"payload"`
	}
	if err := s.db.NewRaw(sql).Scan(ctx, &rows); err != nil {
		if pgutils.IsStatementTimeout(err) {
			return nil, apperror.NewDatabaseTimeout(err)
		}
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	out := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		out[i] = r.Payload
	}
	return out, nil
}

func (s *Service) maskedSchema(ctx context.Context, in Input) (*jsonschema.Schema, error) {
	schema := &jsonschema.Schema{}
	if len(in.Schema) > 0 {
		if err := json.Unmarshal(in.Schema, schema); err != nil {
			return nil, apperror.NewSchemaInvalid(err)
		}
	}

	masked, err := s.masker.Mask(ctx, schema, in.Role)
	if err != nil {
		return nil, err
	}
	return masked, nil
}

func toCompilerOptions(o Options, cfg *config.Config) compiler.Options {
	links := make(map[string]compiler.LinkOptions, len(o.Links))
	for verb, lo := range o.Links {
		links[verb] = compiler.LinkOptions{
			Skip:    lo.Skip,
			Limit:   lo.Limit,
			SortBy:  lo.SortBy,
			SortDir: lo.SortDir,
		}
	}

	limit := o.Limit
	if limit == 0 {
		limit = cfg.Query.DefaultLimit
	}

	return compiler.Options{
		Skip:        o.Skip,
		Limit:       limit,
		MaxLimit:    cfg.Query.MaxLimit,
		SortBy:      o.SortBy,
		SortDir:     o.SortDir,
		Links:       links,
		ExtraFilter: o.ExtraFilter,
	}
}
