// Package links materializes the link contract type of spec.md §3 into
// links2's two-directed-edge rows, grounded on
// domain/graph/entity.go's GraphRelationship (renamed here to AutumnDB's
// from/to/name/inverseName shape: a link is itself a contract, not a
// separate entity type).
package links

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/autumndb/autumndb/domain/contracts"
	"github.com/autumndb/autumndb/pkg/apperror"
	"github.com/autumndb/autumndb/pkg/logger"
)

// Endpoint is one side of a link contract's data payload ({id, type}).
type Endpoint struct {
	ID   uuid.UUID `json:"id"`
	Type string    `json:"type"`
}

// Data is the shape a link contract's data column must have.
type Data struct {
	From        Endpoint `json:"from"`
	To          Endpoint `json:"to"`
	InverseName string   `json:"inverseName"`
}

// edge is one row of links2.
type edge struct {
	bun.BaseModel `bun:"table:links2,alias:l"`

	ID      uuid.UUID `bun:"id,pk"`
	Forward bool      `bun:"forward,pk"`
	FromID  uuid.UUID `bun:"fromId"`
	Name    int       `bun:"name"`
	ToID    uuid.UUID `bun:"toId"`
}

// RelationshipResolver tells whether a relationship contract declares
// `from` may point to `to` under the given forward verb, honoring the
// `*` wildcard either side may use. Deep implementation is out of scope
// per spec.md §1 (relationships are a typeregistry concern); this
// interface is the narrow call site link materialization needs.
type RelationshipResolver interface {
	Allows(ctx context.Context, fromType, toType, verb string) (bool, error)
}

// Materializer writes the two directed edges a link contract implies,
// and interns verb strings into the strings table on first use.
type Materializer struct {
	db        bun.IDB
	resolvers RelationshipResolver
	log       *slog.Logger
}

// NewMaterializer builds a Materializer.
func NewMaterializer(db bun.IDB, resolvers RelationshipResolver, log *slog.Logger) *Materializer {
	return &Materializer{db: db, resolvers: resolvers, log: log.With(logger.Scope("links.materialize"))}
}

// Materialize validates and writes the forward/reverse edge pair for a
// link contract (data.from, data.to, name=forward verb,
// data.inverseName=reverse verb). Both the link's own target and the
// from/to contracts must already exist: a dangling id yields
// no-link-target; a from/to type pair with no declared relationship
// contract yields unknown-relationship. The edge insert and both
// endpoints' linked_at bookkeeping commit together, so a query never
// observes one without the other.
func (m *Materializer) Materialize(ctx context.Context, linkID uuid.UUID, verb string, data json.RawMessage) error {
	var d Data
	if err := json.Unmarshal(data, &d); err != nil {
		return apperror.NewSchemaInvalid(err)
	}

	if err := m.checkEndpointExists(ctx, d.From.ID); err != nil {
		return err
	}
	if err := m.checkEndpointExists(ctx, d.To.ID); err != nil {
		return err
	}

	ok, err := m.resolvers.Allows(ctx, d.From.Type, d.To.Type, verb)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NewUnknownRelationship(verb)
	}

	forwardID, err := m.internString(ctx, verb)
	if err != nil {
		return err
	}
	reverseID, err := m.internString(ctx, d.InverseName)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	var linkCreatedAt time.Time
	if err := tx.NewSelect().
		Model((*contracts.Contract)(nil)).
		Column("created_at").
		Where("id = ?", linkID).
		Scan(ctx, &linkCreatedAt); err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}

	edges := []*edge{
		{ID: linkID, Forward: true, FromID: d.From.ID, Name: forwardID, ToID: d.To.ID},
		{ID: linkID, Forward: false, FromID: d.To.ID, Name: reverseID, ToID: d.From.ID},
	}
	if _, err := tx.NewInsert().
		Model(&edges).
		On("CONFLICT (id, forward) DO UPDATE").
		Set(`"fromId" = EXCLUDED."fromId"`).
		Set("name = EXCLUDED.name").
		Set(`"toId" = EXCLUDED."toId"`).
		Exec(ctx); err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}

	if err := m.markLinkedAt(ctx, tx, d.From.ID, verb, linkCreatedAt); err != nil {
		return err
	}
	if err := m.markLinkedAt(ctx, tx, d.To.ID, d.InverseName, linkCreatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// markLinkedAt sets linked_at[verb] on a contract to the link's own
// created_at, guarded by the jsonb key-existence check so it only fires
// on the verb's first appearance (spec.md §3 invariant e: linked_at[verb]
// is set at most once).
func (m *Materializer) markLinkedAt(ctx context.Context, tx bun.Tx, contractID uuid.UUID, verb string, at time.Time) error {
	_, err := tx.NewUpdate().
		Model((*contracts.Contract)(nil)).
		Set("linked_at = jsonb_set(linked_at, ARRAY[?]::text[], to_jsonb(?::timestamptz), true)", verb, at).
		Where("id = ?", contractID).
		Where("NOT jsonb_exists(linked_at, ?)", verb).
		Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// Delete removes both directed edges for a link contract id.
func (m *Materializer) Delete(ctx context.Context, linkID uuid.UUID) error {
	_, err := m.db.NewDelete().Model((*edge)(nil)).Where("id = ?", linkID).Exec(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

func (m *Materializer) checkEndpointExists(ctx context.Context, id uuid.UUID) error {
	exists, err := m.db.NewSelect().Model((*contracts.Contract)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return apperror.ErrDatabase.WithInternal(err)
	}
	if !exists {
		return apperror.NewNoLinkTarget(id.String())
	}
	return nil
}

// internString inserts verb into the strings table if absent and returns its id.
func (m *Materializer) internString(ctx context.Context, verb string) (int, error) {
	var id int
	err := m.db.NewInsert().
		Model(&struct {
			bun.BaseModel `bun:"table:strings"`
			ID            int    `bun:"id,pk,autoincrement"`
			String        string `bun:"string"`
		}{String: verb}).
		On("CONFLICT (string) DO UPDATE SET string = EXCLUDED.string").
		Returning("id").
		Scan(ctx, &id)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	return id, nil
}
