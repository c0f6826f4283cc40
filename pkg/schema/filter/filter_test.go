package filter

import (
	"strings"
	"testing"

	"github.com/autumndb/autumndb/pkg/schema/buildctx"
	"github.com/autumndb/autumndb/pkg/schema/path"
)

func TestEqualsRenderColumn(t *testing.T) {
	p := path.NewRoot("c").Push("slug")
	f := Equals(p, []string{"'widget'"})
	ctx := buildctx.New("c")
	got := f.Render(ctx)
	want := `"c"."slug" = 'widget'`
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestEqualsUnsatisfiableOnEmptyEnum(t *testing.T) {
	p := path.NewRoot("c").Push("slug")
	f := Equals(p, nil)
	if !f.Unsatisfiable() {
		t.Error("Equals with no values should be unsatisfiable")
	}
}

func TestIsNullPolarity(t *testing.T) {
	p := path.NewRoot("c").Push("data").Push("x")
	ctx := buildctx.New("c")
	if got := IsNull(p, true).Render(ctx); !strings.Contains(got, "IS NULL") {
		t.Errorf("Render() = %q, want IS NULL", got)
	}
	if got := IsNull(p, false).Render(ctx); !strings.Contains(got, "IS NOT NULL") {
		t.Errorf("Render() = %q, want IS NOT NULL", got)
	}
}

func TestNotInvolution(t *testing.T) {
	if Not(Not(True())) != True() {
		t.Error("Not(Not(true)) should fold back to the canonical true literal")
	}
	if Not(True()) != False() {
		t.Error("Not(true) should be false")
	}
	if Not(False()) != True() {
		t.Error("Not(false) should be true")
	}
}

func TestLinkRenderRegistersAndHoists(t *testing.T) {
	ctx := buildctx.New("c")
	innerLink := NewLink("nested-verb", Equals(path.NewRoot("x").Push("slug"), []string{"'y'"}))
	outer := NewLink("verb", innerLink.(*Link))

	got := outer.Render(ctx)
	if !strings.Contains(got, "IS NOT NULL") {
		t.Errorf("Render() = %q, want an existence check", got)
	}
	entries := ctx.LinksForVerb("verb")
	if len(entries) != 1 {
		t.Fatalf("expected 1 registered entry for verb, got %d", len(entries))
	}
	if len(ctx.HoistedFilters()) != 1 {
		t.Errorf("expected the nested link's filter to be hoisted, got %d hoisted filters", len(ctx.HoistedFilters()))
	}
	if entries[0].InnerFilterSQL != "true" {
		t.Errorf("InnerFilterSQL = %q, want true (replaced by hoist)", entries[0].InnerFilterSQL)
	}
}

func TestScrapeLinksCollectsNested(t *testing.T) {
	inner := NewLink("b", Literal("true"))
	outer := NewLink("a", inner)

	var out []*Link
	outer.ScrapeLinks(&out)
	if len(out) != 2 {
		t.Fatalf("expected 2 scraped links, got %d", len(out))
	}
	if out[0].Verb != "a" || out[1].Verb != "b" {
		t.Errorf("scraped verbs = [%s, %s], want [a, b]", out[0].Verb, out[1].Verb)
	}
}

func TestArrayContainsNegation(t *testing.T) {
	ctx := buildctx.New("c")
	p := path.NewRoot("c").Push("data").Push("tags")
	f := ArrayContains(p, Literal("elem = '1'"), true)
	got := f.Render(ctx)
	if !strings.HasPrefix(got, "NOT EXISTS") {
		t.Errorf("Render() = %q, want NOT EXISTS prefix", got)
	}
}
