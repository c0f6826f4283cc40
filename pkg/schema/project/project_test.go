package project

import (
	"strings"
	"testing"

	"github.com/autumndb/autumndb/pkg/schema/buildctx"
	"github.com/autumndb/autumndb/pkg/schema/filter"
)

func TestUnrestrictedUsesRowToJSON(t *testing.T) {
	p := New()
	ctx := buildctx.New("c")
	got := p.Render(ctx, "c", nil)
	want := `row_to_json("c")`
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestFieldSelectionBuildsObject(t *testing.T) {
	p := New()
	p.SetAdditionalProperties(false)
	p.AddField("slug", `"c"."slug"`, nil)

	ctx := buildctx.New("c")
	got := p.Render(ctx, "c", nil)
	if !strings.Contains(got, "jsonb_build_object") || !strings.Contains(got, `'slug'`) {
		t.Errorf("Render() = %q, want a jsonb_build_object with slug", got)
	}
}

func TestLinkVerbFallsBackToNullWhenMissing(t *testing.T) {
	p := New()
	p.SetAdditionalProperties(false)
	p.AddLinkVerb("has attached element")

	ctx := buildctx.New("c")
	got := p.Render(ctx, "c", nil)
	if !strings.Contains(got, "null") {
		t.Errorf("Render() = %q, want a null fallback for the missing link expr", got)
	}
}

func TestLinkVerbUsesSuppliedExpr(t *testing.T) {
	p := New()
	p.SetAdditionalProperties(false)
	p.AddLinkVerb("owns")

	ctx := buildctx.New("c")
	got := p.Render(ctx, "c", map[string]string{"owns": "coalesce(fence.arr, '[]'::jsonb)"})
	if !strings.Contains(got, "coalesce(fence.arr") {
		t.Errorf("Render() = %q, want the supplied link expression", got)
	}
}

func TestBranchMergesConditionally(t *testing.T) {
	p := New()
	p.SetAdditionalProperties(false)
	p.AddField("slug", `"c"."slug"`, nil)
	branch := p.AddBranch(filter.Literal(`"c"."type" = 'a'`))
	branch.SetAdditionalProperties(false)
	branch.AddField("extra", `"c"."data" #> '{extra}'`, nil)

	ctx := buildctx.New("c")
	got := p.Render(ctx, "c", nil)
	if !strings.Contains(got, "CASE WHEN") || !strings.Contains(got, "'extra'") {
		t.Errorf("Render() = %q, want a conditional branch merge", got)
	}
}
