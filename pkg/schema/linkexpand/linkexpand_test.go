package linkexpand

import (
	"strings"
	"testing"

	jsonschema "github.com/google/jsonschema-go/jsonschema"

	"github.com/autumndb/autumndb/pkg/schema/compiler"
)

func TestBuildSimpleQueryHasNoLateralJoin(t *testing.T) {
	schema := &jsonschema.Schema{
		Type:       "object",
		Required:   []string{"type"},
		Properties: map[string]*jsonschema.Schema{"type": {Const: "card@1.0.0"}},
	}
	res, err := compiler.Compile(schema, nil, compiler.Options{MaxLimit: 1000})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got := Build(res, compiler.Options{MaxLimit: 1000, Limit: 50})
	if strings.Contains(got, "LATERAL") {
		t.Errorf("Build() = %q, did not expect a lateral join for a link-free schema", got)
	}
	if !strings.Contains(got, "SELECT") || !strings.Contains(got, `FROM "contracts" AS "c"`) {
		t.Errorf("Build() = %q, want a plain contracts SELECT", got)
	}
	if !strings.Contains(got, "LIMIT 50") {
		t.Errorf("Build() = %q, want the page limit applied", got)
	}
}

func TestBuildWithLinksEmitsRootsCTEAndLateral(t *testing.T) {
	schema := &jsonschema.Schema{
		Extra: map[string]any{
			"$$links": map[string]any{
				"has attached element": map[string]any{"type": "object"},
			},
		},
	}
	res, err := compiler.Compile(schema, nil, compiler.Options{MaxLimit: 1000})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got := Build(res, compiler.Options{MaxLimit: 1000})
	if !strings.HasPrefix(got, "WITH \"roots\" AS MATERIALIZED (") {
		t.Errorf("Build() = %q, want a materialized roots CTE", got)
	}
	if !strings.Contains(got, "LATERAL") {
		t.Errorf("Build() = %q, want a lateral join for the registered link", got)
	}
	if !strings.Contains(got, "jsonb_agg(") {
		t.Errorf("Build() = %q, want the per-link aggregate", got)
	}
}

// TestBuildLinkOnlyFilterBindsEveryAliasInRootsCTE exercises a schema
// whose only top-level constraint is $$links (spec's own worked example:
// "has attached element" used purely as an existence filter, nothing
// else pinning the root down). The roots CTE's own WHERE clause renders
// a "<joinAlias>.id IS NOT NULL" check from the filter.Link leaf, so that
// alias must be bound by a join inside the same CTE — if it isn't,
// Postgres would reject the query with a missing FROM-clause entry.
func TestBuildLinkOnlyFilterBindsEveryAliasInRootsCTE(t *testing.T) {
	schema := &jsonschema.Schema{
		Extra: map[string]any{
			"$$links": map[string]any{
				"has attached element": map[string]any{"type": "object"},
			},
		},
	}
	res, err := compiler.Compile(schema, nil, compiler.Options{MaxLimit: 1000})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got := Build(res, compiler.Options{MaxLimit: 1000})

	ctePrefix := "WITH \"roots\" AS MATERIALIZED ("
	if !strings.HasPrefix(got, ctePrefix) {
		t.Fatalf("Build() = %q, want a materialized roots CTE", got)
	}
	rootsEnd := strings.Index(got, ") SELECT")
	if rootsEnd == -1 {
		t.Fatalf("Build() = %q, could not locate end of roots CTE", got)
	}
	rootsSQL := got[len(ctePrefix):rootsEnd]

	idx := strings.Index(rootsSQL, ".id IS NOT NULL")
	if idx == -1 {
		t.Fatalf("roots CTE = %q, want the link existence check in its WHERE clause", rootsSQL)
	}
	start := strings.LastIndex(rootsSQL[:idx-1], `"`)
	if start == -1 {
		t.Fatalf("roots CTE = %q, could not find quoted alias before existence check", rootsSQL)
	}
	quotedAlias := rootsSQL[start:idx]

	if !strings.Contains(rootsSQL, "LEFT JOIN LATERAL") {
		t.Errorf("roots CTE = %q, want a lateral existence join for the registered link", rootsSQL)
	}
	if !strings.Contains(rootsSQL, quotedAlias+" ON true") {
		t.Errorf("roots CTE = %q, want the filter's alias %s bound by a join in the same CTE", rootsSQL, quotedAlias)
	}
}

func TestBuildDefaultOrderIsCreatedAt(t *testing.T) {
	res, err := compiler.Compile(&jsonschema.Schema{}, nil, compiler.Options{MaxLimit: 1000})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	got := Build(res, compiler.Options{MaxLimit: 1000})
	if !strings.Contains(got, `"c".created_at ASC NULLS LAST`) {
		t.Errorf("Build() = %q, want default created_at ordering", got)
	}
}

func TestBuildVersionSortUsesVersionColumns(t *testing.T) {
	res, err := compiler.Compile(&jsonschema.Schema{}, nil, compiler.Options{MaxLimit: 1000})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	got := Build(res, compiler.Options{MaxLimit: 1000, SortBy: []string{"version"}, SortDir: "desc"})
	if !strings.Contains(got, "version_major") || !strings.Contains(got, "version_prerelease <> ''") {
		t.Errorf("Build() = %q, want version-aware ordering", got)
	}
}
