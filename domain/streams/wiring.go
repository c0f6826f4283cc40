package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	jsonschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/autumndb/autumndb/internal/config"
	"github.com/autumndb/autumndb/pkg/apperror"
	"github.com/autumndb/autumndb/pkg/logger"
	"github.com/autumndb/autumndb/pkg/pgutils"
	"github.com/autumndb/autumndb/pkg/schema/compiler"
	"github.com/autumndb/autumndb/pkg/schema/linkexpand"
)

// Wirer builds the Requery/Prefilter callbacks a live Subscriber needs,
// closing over the database connection the matcher itself never touches
// directly (see Requery's doc comment).
type Wirer struct {
	db  bun.IDB
	cfg *config.Config
	log *slog.Logger
}

// NewWirer builds a Wirer.
func NewWirer(db bun.IDB, cfg *config.Config, log *slog.Logger) *Wirer {
	return &Wirer{db: db, cfg: cfg, log: log.With(logger.Scope("streams.wirer"))}
}

// BuildSubscriber returns a Subscriber wired to re-query through
// pkg/schema/compiler and pkg/schema/linkexpand, pinned to a single
// contract id via ExtraFilter. The schema is compiled on each Requery
// call, not once up front.
func (w *Wirer) BuildSubscriber(schema *jsonschema.Schema, bufferSize int) *Subscriber {
	topType := topTypeConst(schema)
	prefilter := buildPrefilter(schema, topType)
	requery := w.buildRequery(schema)
	return NewSubscriber(schema, topType, prefilter, requery, bufferSize)
}

// buildRequery compiles schema into a query restricted to a single row,
// re-running it per notification. The compiled Result's root alias is
// always "c" (compiler.Compile hardcodes it), so the id filter can be
// built before Compile runs.
func (w *Wirer) buildRequery(schema *jsonschema.Schema) Requery {
	return func(ctx context.Context, id uuid.UUID) (bool, error) {
		opts := compiler.Options{
			Limit:       1,
			MaxLimit:    w.cfg.Query.MaxLimit,
			ExtraFilter: fmt.Sprintf("c.id = '%s'", id.String()),
		}

		res, err := compiler.Compile(schema, nil, opts)
		if err != nil {
			return false, err
		}

		sql := linkexpand.Build(res, opts)

		var rows []struct {
			Payload json.RawMessage `bun:"payload"`
		}
		if err := w.db.NewRaw(sql).Scan(ctx, &rows); err != nil {
			if pgutils.IsStatementTimeout(err) {
				return false, apperror.NewDatabaseTimeout(err)
			}
			return false, apperror.ErrDatabase.WithInternal(err)
		}
		return len(rows) > 0, nil
	}
}

// buildPrefilter rejects inserts outright when schema pins "type" to a
// constant and the notification payload carries a different cardType,
// avoiding a round trip for contracts of other types. A payload whose
// cardType equals the pinned type is left undecided, so Requery runs.
func buildPrefilter(schema *jsonschema.Schema, topType string) Prefilter {
	if topType == "" {
		return nil
	}
	return func(p Payload) (matches, decided bool) {
		if string(p.CardType) != topType {
			return false, true
		}
		return false, false
	}
}

// topTypeConst extracts properties.type.const from schema, the same
// "type" pin the schema compiler treats specially, without depending on
// jsonschema-go's exact struct layout (mirrors compiler.toRaw's
// marshal-to-map approach).
func topTypeConst(schema *jsonschema.Schema) string {
	if schema == nil {
		return ""
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return ""
	}
	var raw struct {
		Properties struct {
			Type struct {
				Const string `json:"const"`
			} `json:"type"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return ""
	}
	return raw.Properties.Type.Const
}
