// Package filter implements the Filter IR (C2): a closed set of leaf
// filter variants, each owning a clone of the path it references. Every
// variant exposes render (emit SQL into the shared build context) and
// scrapeLinks (collect nested Link nodes so their join context registers
// even when the surrounding branch is later constant-folded away).
//
// The leaf variants are the fixed list of struct types in this file, all
// unexported except Link. Filter's methods are exported, so types in other
// packages can satisfy it too: expr.Expression does, as the AND/OR node
// above the leaves.
package filter

import (
	"fmt"
	"strings"

	"github.com/autumndb/autumndb/pkg/schema/buildctx"
	"github.com/autumndb/autumndb/pkg/schema/path"
)

// Filter is the closed interface implemented by every IR leaf.
type Filter interface {
	// Render compiles the filter into a boolean SQL fragment against ctx.
	Render(ctx *buildctx.Context) string
	// ScrapeLinks appends every Link node reachable from this filter to out.
	ScrapeLinks(out *[]*Link)
	// Unsatisfiable reports whether this filter is the constant "false".
	Unsatisfiable() bool
}

// literalTrue/literalFalse are canonical constant filters used by the
// expression algebra's fold rules and by existence gating.
var (
	literalTrue  = Literal("true")
	literalFalse = &literal{sql: "false", unsat: true}
)

// True returns the canonical constant-true filter.
func True() Filter { return literalTrue }

// False returns the canonical constant-false (unsatisfiable) filter.
func False() Filter { return literalFalse }

// literal is a raw, already-rendered SQL boolean expression.
type literal struct {
	sql   string
	unsat bool
}

// Literal wraps a raw SQL string as a Filter leaf.
func Literal(sql string) Filter { return &literal{sql: sql} }

func (f *literal) Render(*buildctx.Context) string { return f.sql }
func (f *literal) ScrapeLinks(*[]*Link)             {}
func (f *literal) Unsatisfiable() bool              { return f.unsat }

// CompOp is a comparison operator for ValueIs.
type CompOp string

const (
	OpLT CompOp = "<"
	OpLE CompOp = "<="
	OpGT CompOp = ">"
	OpGE CompOp = ">="
	OpEQ CompOp = "="
	OpNE CompOp = "<>"
)

// equals renders path IN (values...), or path = value for a single value.
type equals struct {
	path   *path.Path
	values []string
}

// Equals builds an Equals(path, values) leaf. values are pre-rendered SQL
// literal expressions (already quoted/cast by the caller).
func Equals(p *path.Path, values []string) Filter {
	return &equals{path: p.Clone(), values: values}
}

func (f *equals) Render(*buildctx.Context) string {
	col := f.path.Render(!f.path.IsJSONProperty())
	if len(f.values) == 1 {
		return col + " = " + f.values[0]
	}
	return col + " IN (" + strings.Join(f.values, ", ") + ")"
}
func (f *equals) ScrapeLinks(*[]*Link) {}
func (f *equals) Unsatisfiable() bool  { return len(f.values) == 0 }

// valueIs renders a scalar comparison, optionally cast to a SQL type.
type valueIs struct {
	path  *path.Path
	op    CompOp
	value string
	cast  string
}

// ValueIs builds a ValueIs(path, op, const, cast?) leaf.
func ValueIs(p *path.Path, op CompOp, value, cast string) Filter {
	return &valueIs{path: p.Clone(), op: op, value: value, cast: cast}
}

func (f *valueIs) Render(*buildctx.Context) string {
	col := f.path.Render(true)
	if f.cast != "" {
		col = "(" + col + ")::" + f.cast
	}
	return col + " " + string(f.op) + " " + f.value
}
func (f *valueIs) ScrapeLinks(*[]*Link) {}
func (f *valueIs) Unsatisfiable() bool  { return false }

// isNull renders an existence test, used both for explicit `null` checks
// and for the schema compiler's existence policy.
type isNull struct {
	path     *path.Path
	polarity bool // true = IS NULL, false = IS NOT NULL
}

// IsNull builds an IsNull(path, polarity) leaf.
func IsNull(p *path.Path, polarity bool) Filter {
	return &isNull{path: p.Clone(), polarity: polarity}
}

func (f *isNull) Render(*buildctx.Context) string {
	col := f.path.Render(false)
	if f.polarity {
		return col + " IS NULL"
	}
	return col + " IS NOT NULL"
}
func (f *isNull) ScrapeLinks(*[]*Link) {}
func (f *isNull) Unsatisfiable() bool  { return false }

// isOfJSONTypes gates a JSON property on jsonb_typeof(...) membership.
type isOfJSONTypes struct {
	path  *path.Path
	types []string
}

// IsOfJsonTypes builds an IsOfJsonTypes(path, types) leaf.
func IsOfJsonTypes(p *path.Path, types []string) Filter {
	return &isOfJSONTypes{path: p.Clone(), types: types}
}

func (f *isOfJSONTypes) Render(*buildctx.Context) string {
	col := f.path.Render(false)
	quoted := make([]string, len(f.types))
	for i, t := range f.types {
		quoted[i] = "'" + t + "'"
	}
	return "jsonb_typeof(" + col + ") IN (" + strings.Join(quoted, ", ") + ")"
}
func (f *isOfJSONTypes) ScrapeLinks(*[]*Link) {}
func (f *isOfJSONTypes) Unsatisfiable() bool  { return len(f.types) == 0 }

// stringLength gates char_length(path::text) op n.
type stringLength struct {
	path *path.Path
	op   CompOp
	n    int
}

// StringLength builds a StringLength(path, op, n) leaf.
func StringLength(p *path.Path, op CompOp, n int) Filter {
	return &stringLength{path: p.Clone(), op: op, n: n}
}

func (f *stringLength) Render(*buildctx.Context) string {
	col := f.path.Render(true)
	return fmt.Sprintf("char_length(%s) %s %d", col, f.op, f.n)
}
func (f *stringLength) ScrapeLinks(*[]*Link) {}
func (f *stringLength) Unsatisfiable() bool  { return false }

// arrayLength gates jsonb_array_length(path) op n.
type arrayLength struct {
	path *path.Path
	op   CompOp
	n    int
}

// ArrayLength builds an ArrayLength(path, op, n) leaf.
func ArrayLength(p *path.Path, op CompOp, n int) Filter {
	return &arrayLength{path: p.Clone(), op: op, n: n}
}

func (f *arrayLength) Render(*buildctx.Context) string {
	col := f.path.Render(false)
	return fmt.Sprintf("jsonb_array_length(%s) %s %d", col, f.op, f.n)
}
func (f *arrayLength) ScrapeLinks(*[]*Link) {}
func (f *arrayLength) Unsatisfiable() bool  { return false }

// jsonMapPropertyCount gates the number of keys of a JSON object property.
type jsonMapPropertyCount struct {
	path *path.Path
	op   CompOp
	n    int
}

// JsonMapPropertyCount builds a JsonMapPropertyCount(path, op, n) leaf.
func JsonMapPropertyCount(p *path.Path, op CompOp, n int) Filter {
	return &jsonMapPropertyCount{path: p.Clone(), op: op, n: n}
}

func (f *jsonMapPropertyCount) Render(*buildctx.Context) string {
	col := f.path.Render(false)
	return fmt.Sprintf("(SELECT count(*) FROM jsonb_object_keys(%s)) %s %d", col, f.op, f.n)
}
func (f *jsonMapPropertyCount) ScrapeLinks(*[]*Link) {}
func (f *jsonMapPropertyCount) Unsatisfiable() bool  { return false }

// arrayContains renders "no element violates inner" / "some element
// satisfies inner" depending on negate, over a JSON array column.
type arrayContains struct {
	path   *path.Path
	inner  Filter
	negate bool
}

// ArrayContains builds an ArrayContains(path, inner_filter) leaf. negate
// flips the quantifier from "exists" to "not exists" (used by items's
// "no element violates inner" semantics).
func ArrayContains(p *path.Path, inner Filter, negate bool) Filter {
	return &arrayContains{path: p.Clone(), inner: inner, negate: negate}
}

func (f *arrayContains) Render(ctx *buildctx.Context) string {
	col := f.path.Render(false)
	elemAlias := "elem"
	pop := ctx.PushAlias(elemAlias)
	defer pop()
	inner := f.inner.Render(ctx)
	quant := fmt.Sprintf("EXISTS (SELECT 1 FROM jsonb_array_elements(%s) AS %s WHERE %s)", col, quoteIdent(elemAlias), inner)
	if f.negate {
		return "NOT " + quant
	}
	return quant
}
func (f *arrayContains) ScrapeLinks(out *[]*Link) { f.inner.ScrapeLinks(out) }
func (f *arrayContains) Unsatisfiable() bool       { return false }

// multipleOf renders `path % k = 0`, gated by the caller on numeric type.
type multipleOf struct {
	path *path.Path
	k    float64
}

// MultipleOf builds a MultipleOf(path, k) leaf.
func MultipleOf(p *path.Path, k float64) Filter {
	return &multipleOf{path: p.Clone(), k: k}
}

func (f *multipleOf) Render(*buildctx.Context) string {
	col := f.path.Render(true)
	return fmt.Sprintf("mod((%s)::numeric, %v) = 0", col, f.k)
}
func (f *multipleOf) ScrapeLinks(*[]*Link) {}
func (f *multipleOf) Unsatisfiable() bool  { return false }

// matchesRegex renders a POSIX regex match, case-sensitive or not.
type matchesRegex struct {
	path       *path.Path
	pattern    string
	ignoreCase bool
}

// MatchesRegex builds a MatchesRegex(path, pattern, ignoreCase) leaf.
func MatchesRegex(p *path.Path, pattern string, ignoreCase bool) Filter {
	return &matchesRegex{path: p.Clone(), pattern: pattern, ignoreCase: ignoreCase}
}

func (f *matchesRegex) Render(*buildctx.Context) string {
	col := f.path.Render(true)
	op := "~"
	if f.ignoreCase {
		op = "~*"
	}
	return fmt.Sprintf("%s %s %s", col, op, quoteLiteral(f.pattern))
}
func (f *matchesRegex) ScrapeLinks(*[]*Link) {}
func (f *matchesRegex) Unsatisfiable() bool  { return false }

// fullTextSearch renders a to_tsvector/plainto_tsquery match, optionally
// over an array of strings (asArray). The schema compiler always passes
// asArray=false, including under contains.
type fullTextSearch struct {
	path    *path.Path
	term    string
	asArray bool
}

// FullTextSearch builds a FullTextSearch(path, term, asArray) leaf.
func FullTextSearch(p *path.Path, term string, asArray bool) Filter {
	return &fullTextSearch{path: p.Clone(), term: term, asArray: asArray}
}

func (f *fullTextSearch) Render(*buildctx.Context) string {
	var vector string
	if f.asArray {
		col := f.path.Render(false)
		vector = fmt.Sprintf("to_tsvector('english', immutable_array_to_string(%s, ' '))", col)
	} else {
		col := f.path.Render(true)
		vector = fmt.Sprintf("to_tsvector('english', %s)", col)
	}
	return fmt.Sprintf("%s @@ plainto_tsquery('english', %s)", vector, quoteLiteral(f.term))
}
func (f *fullTextSearch) ScrapeLinks(*[]*Link) {}
func (f *fullTextSearch) Unsatisfiable() bool  { return false }

// ifThenElse renders CASE WHEN a THEN b ELSE c END, used for type-gating.
type ifThenElse struct {
	cond, then, els Filter
}

// IfThenElse builds an IfThenElse(a,b,c) leaf.
func IfThenElse(cond, then, els Filter) Filter {
	return &ifThenElse{cond: cond, then: then, els: els}
}

func (f *ifThenElse) Render(ctx *buildctx.Context) string {
	return fmt.Sprintf("(CASE WHEN %s THEN %s ELSE %s END)", f.cond.Render(ctx), f.then.Render(ctx), f.els.Render(ctx))
}
func (f *ifThenElse) ScrapeLinks(out *[]*Link) {
	f.cond.ScrapeLinks(out)
	f.then.ScrapeLinks(out)
	f.els.ScrapeLinks(out)
}
func (f *ifThenElse) Unsatisfiable() bool { return false }

// not negates an inner filter.
type not struct {
	inner Filter
}

// Not builds a Not(inner) leaf.
func Not(inner Filter) Filter {
	if lit, ok := inner.(*literal); ok {
		if lit == literalTrue {
			return literalFalse
		}
		if lit == literalFalse {
			return literalTrue
		}
	}
	return &not{inner: inner}
}

func (f *not) Render(ctx *buildctx.Context) string {
	return "NOT (" + f.inner.Render(ctx) + ")"
}
func (f *not) ScrapeLinks(out *[]*Link) { f.inner.ScrapeLinks(out) }
func (f *not) Unsatisfiable() bool       { return false }

// Link represents a `$$links` traversal: verb is the forward relationship
// name, inner is the compiled filter of the joined subschema.
type Link struct {
	Verb  string
	Inner Filter
}

// NewLink builds a Link(verb, inner_filter) leaf.
func NewLink(verb string, inner Filter) Filter {
	return &Link{Verb: verb, Inner: inner}
}

// Render registers the link in ctx's registry (per the C6 protocol),
// compiles Inner against the link's fresh join alias, hoists the inner
// SQL if the inner compile itself registered sub-links, and returns a
// boolean existence check over the join alias.
func (f *Link) Render(ctx *buildctx.Context) string {
	entry := ctx.RegisterLink(f.Verb)
	nestedBefore := entry.Nested.LinkCount()

	innerSQL := "true"
	if f.Inner != nil {
		innerSQL = f.Inner.Render(entry.Nested)
	}

	if entry.Nested.LinkCount() > nestedBefore {
		// The inner compile registered further links: its filter must be
		// hoisted to the outer WHERE and replaced with `true` at the join
		// site, to avoid a circular join dependency.
		ctx.Hoist(innerSQL)
		entry.InnerFilterSQL = "true"
	} else {
		entry.InnerFilterSQL = innerSQL
	}

	return quoteIdent(entry.JoinAlias) + ".id IS NOT NULL"
}

func (f *Link) ScrapeLinks(out *[]*Link) {
	*out = append(*out, f)
	if f.Inner != nil {
		f.Inner.ScrapeLinks(out)
	}
}
func (f *Link) Unsatisfiable() bool { return false }

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
