package expr

import (
	"testing"

	"github.com/autumndb/autumndb/pkg/schema/buildctx"
	"github.com/autumndb/autumndb/pkg/schema/filter"
)

func TestAndIdentityAbsorbsTrue(t *testing.T) {
	e := NewAnd().And(filter.True()).And(filter.Literal(`"c"."active" = true`))
	ctx := buildctx.New("c")
	got := e.Render(ctx)
	want := `"c"."active" = true`
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestAndShortCircuitsOnFalse(t *testing.T) {
	e := NewAnd().And(filter.Literal(`"c"."active" = true`)).And(filter.False())
	if !e.Unsatisfiable() {
		t.Fatal("expected AND with a false operand to be unsatisfiable")
	}
	ctx := buildctx.New("c")
	if got := e.Render(ctx); got != "false" {
		t.Errorf("Render() = %q, want false", got)
	}
}

func TestOrShortCircuitsOnTrue(t *testing.T) {
	e := NewOr().Or(filter.Literal(`"c"."active" = true`)).Or(filter.True())
	if e.Unsatisfiable() {
		t.Fatal("OR folded to true should not be unsatisfiable")
	}
	ctx := buildctx.New("c")
	if got := e.Render(ctx); got != "true" {
		t.Errorf("Render() = %q, want true", got)
	}
}

func TestOrIdentityAbsorbsFalse(t *testing.T) {
	e := NewOr().Or(filter.False()).Or(filter.Literal(`"c"."active" = true`))
	ctx := buildctx.New("c")
	got := e.Render(ctx)
	want := `"c"."active" = true`
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestNegateIsInvolution(t *testing.T) {
	e := NewAnd().And(filter.Literal(`x`))
	twice := e.Negate().Negate()
	ctx := buildctx.New("c")
	if e.Render(ctx) != twice.Render(ctx) {
		t.Error("Negate(Negate(e)) should render the same as e")
	}
}

func TestNegateOfConstFlips(t *testing.T) {
	e := NewAnd()
	if e.Unsatisfiable() {
		t.Fatal("fresh AND (identity true) should not be unsatisfiable")
	}
	if !e.Negate().Unsatisfiable() {
		t.Fatal("Negate(true) should be unsatisfiable")
	}
}

func TestMakeUnsatisfiableScrapesLinks(t *testing.T) {
	link := NewLinkFilterForTest("verb")
	e := NewAnd().And(link).MakeUnsatisfiable()

	var out []*filter.Link
	e.ScrapeLinks(&out)
	if len(out) != 1 {
		t.Fatalf("expected the discarded operand's link to survive as optional, got %d", len(out))
	}

	ctx := buildctx.New("c")
	e.Render(ctx)
	if len(ctx.LinksForVerb("verb")) != 1 {
		t.Error("optional link should still register its join alias on render")
	}
}

func TestImpliesBuildsNegatedOr(t *testing.T) {
	e := NewAnd().And(filter.Literal("x"))
	implied := e.Implies(filter.Literal("y"))
	ctx := buildctx.New("c")
	got := implied.Render(ctx)
	if got == "" {
		t.Fatal("expected non-empty render")
	}
}

func TestFlattenSameOperator(t *testing.T) {
	inner := NewAnd().And(filter.Literal("a")).And(filter.Literal("b"))
	outer := NewAnd().And(inner).And(filter.Literal("c"))

	ctx := buildctx.New("c")
	got := outer.Render(ctx)
	want := "(a AND b AND c)"
	if got != want {
		t.Errorf("Render() = %q, want flattened %q", got, want)
	}
}

// NewLinkFilterForTest exists only to build a Link leaf from outside the
// filter package for this test file.
func NewLinkFilterForTest(verb string) filter.Filter {
	return filter.NewLink(verb, filter.Literal("true"))
}
