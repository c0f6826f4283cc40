// Package contracts implements the C0 CRUD wrapper collaborator: a
// bun-backed Store over the wide contracts table, enforcing spec.md §3's
// contract invariants around a plain repository grounded on
// domain/graph/repository.go.
package contracts

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/autumndb/autumndb/pkg/apperror"
	"github.com/autumndb/autumndb/pkg/logger"
	"github.com/autumndb/autumndb/pkg/pgutils"
)

// Store is the narrow interface the schema compiler/link expansion
// callers need: fetch by id, fetch by slug (optionally pinned to an
// exact version, otherwise "latest"), and upsert.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	GetBySlug(ctx context.Context, versionedSlug string) (*Contract, error)
	Upsert(ctx context.Context, c *Contract) error
}

type store struct {
	db  bun.IDB
	log *slog.Logger
}

// NewStore builds the bun-backed Store.
func NewStore(db bun.IDB, log *slog.Logger) Store {
	return &store{db: db, log: log.With(logger.Scope("contracts.store"))}
}

func (s *store) GetByID(ctx context.Context, id uuid.UUID) (*Contract, error) {
	c := new(Contract)
	err := s.db.NewSelect().Model(c).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, classifyRead(err, id.String())
	}
	return c, nil
}

func (s *store) GetBySlug(ctx context.Context, versionedSlug string) (*Contract, error) {
	vs, err := ParseVersionedSlug(versionedSlug)
	if err != nil {
		return nil, err
	}

	q := s.db.NewSelect().Model((*Contract)(nil)).Where("slug = ?", vs.Slug)
	if vs.Latest {
		// "Latest" orders by (major,minor,patch,build) and excludes
		// pre-release versions, per spec.md §3's version semantics. Build
		// is compared as a string, preserving the ordering the original
		// implementation used rather than a stricter numeric comparison
		// (see DESIGN.md Open Question resolution).
		q = q.Where("version_prerelease = ''").
			Order("version_major DESC", "version_minor DESC", "version_patch DESC", "version_build DESC").
			Limit(1)
	} else {
		q = q.Where("version_major = ?", vs.Version.Major).
			Where("version_minor = ?", vs.Version.Minor).
			Where("version_patch = ?", vs.Version.Patch).
			Where("version_prerelease = ?", vs.Version.Prerelease).
			Where("version_build = ?", vs.Version.Build)
	}

	c := new(Contract)
	if err := q.Scan(ctx, c); err != nil {
		return nil, classifyRead(err, versionedSlug)
	}
	return c, nil
}

// Upsert inserts a new contract or updates an existing one by id.
// slug and id are immutable after insert (spec.md §3 invariant c): on
// conflict, every column except id/slug/version/created_at is
// overwritten. linked_at is never written here — it exists only as the
// side effect of domain/links' edge materialization (invariant e), so
// Upsert write-ignores it exactly as invariant (d) requires for the
// derived "links" projection.
func (s *store) Upsert(ctx context.Context, c *Contract) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if err := ValidateSlug(c.Slug); err != nil {
		return err
	}

	_, err := s.db.NewInsert().
		Model(c).
		ExcludeColumn("linked_at", "versioned_slug").
		On("CONFLICT (id) DO UPDATE").
		Set("type = EXCLUDED.type").
		Set("active = EXCLUDED.active").
		Set("name = EXCLUDED.name").
		Set("tags = EXCLUDED.tags").
		Set("markers = EXCLUDED.markers").
		Set("requires = EXCLUDED.requires").
		Set("capabilities = EXCLUDED.capabilities").
		Set("data = EXCLUDED.data").
		Set("updated_at = now()").
		Exec(ctx)
	if err != nil {
		return classifyWrite(err, c)
	}
	return nil
}

func classifyRead(err error, ref string) error {
	if pgutils.IsStatementTimeout(err) {
		return apperror.NewDatabaseTimeout(err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewNoElement(ref)
	}
	return apperror.ErrDatabase.WithInternal(err)
}

func classifyWrite(err error, c *Contract) error {
	if pgutils.IsStatementTimeout(err) {
		return apperror.NewDatabaseTimeout(err)
	}
	if pgutils.IsUniqueViolation(err) {
		switch pgutils.ClassifyDuplicate(err) {
		case pgutils.DuplicateSlugVersion:
			return apperror.NewElementAlreadyExists(c.Slug, c.Version().String())
		default:
			return apperror.NewElementAlreadyExists(c.Slug, c.Version().String())
		}
	}
	return apperror.ErrDatabase.WithInternal(err)
}
