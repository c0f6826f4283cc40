package testutil

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/autumndb/autumndb/domain/contracts"
	"github.com/autumndb/autumndb/pkg/auth"
)

// Fixed bearer tokens pkg/auth.Middleware resolves without a signed JWT
// when AuthConfig.DevTokensEnabled is set. Keep these in sync with the
// devTokens map in pkg/auth/middleware.go.
const (
	AdminToken    = "admin-token"
	ReadOnlyToken = "read-only"
	NoRoleToken   = "no-role"
	E2EAdminToken = "e2e-test-admin"
)

// AuthHeader returns an Authorization header value for a token.
func AuthHeader(token string) string {
	return "Bearer " + token
}

// IssueRoleToken signs a short-lived HS256 bearer token carrying role,
// using the same JWT secret the test server's config carries.
func IssueRoleToken(jwtSecret, sub, role string) (string, error) {
	return auth.IssueToken(jwtSecret, sub, role, time.Hour)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestContract is the fixture shape CreateTestContract accepts; zero
// values fall back to sensible defaults.
type TestContract struct {
	ID     uuid.UUID
	Slug   string
	Type   string
	Name   string
	Tags   []string
	Data   map[string]any
	Active *bool
}

// CreateTestContract inserts a contract row directly, bypassing the
// schema compiler, for tests that only need rows to query against.
func CreateTestContract(ctx context.Context, db bun.IDB, tc TestContract) (*contracts.Contract, error) {
	id := tc.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	active := true
	if tc.Active != nil {
		active = *tc.Active
	}

	data := tc.Data
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	c := &contracts.Contract{
		ID:     id,
		Slug:   tc.Slug,
		Type:   tc.Type,
		Active: active,
		Name:   tc.Name,
		Tags:   tc.Tags,
		Data:   dataJSON,
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}

	store := contracts.NewStore(db, noopLogger())
	if err := store.Upsert(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateTestLink inserts a forward/backward link row pair into links2,
// interning verb into the strings table the way domain/links.Materializer
// does.
func CreateTestLink(ctx context.Context, db bun.IDB, id uuid.UUID, fromID, toID uuid.UUID, verb string) error {
	var stringID int
	err := db.NewRaw(`
		INSERT INTO strings (string) VALUES (?)
		ON CONFLICT (string) DO UPDATE SET string = EXCLUDED.string
		RETURNING id
	`, verb).Scan(ctx, &stringID)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		INSERT INTO links2 (id, forward, "fromId", name, "toId")
		VALUES (?, true, ?, ?, ?)
		ON CONFLICT (id, forward) DO NOTHING
	`, id, fromID, stringID, toID).Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		INSERT INTO links2 (id, forward, "fromId", name, "toId")
		VALUES (?, false, ?, ?, ?)
		ON CONFLICT (id, forward) DO NOTHING
	`, id, toID, stringID, fromID).Exec(ctx)
	return err
}

// SetAccessMask upserts the allowed-fields rule a role sees, mirroring
// how a real deployment seeds access_masks.
func SetAccessMask(ctx context.Context, db bun.IDB, role string, allowedFields []string) error {
	_, err := db.NewRaw(`
		INSERT INTO access_masks (role, allowed_fields)
		VALUES (?, ?)
		ON CONFLICT (role) DO UPDATE SET allowed_fields = EXCLUDED.allowed_fields
	`, role, pqArray(allowedFields)).Exec(ctx)
	return err
}

func pqArray(fields []string) []string {
	if fields == nil {
		return []string{}
	}
	return fields
}
