// Package project implements the select projection map (C4): a tree
// mirroring a schema's properties and link verbs, used to decide what
// the final payload JSONB looks like.
package project

import (
	"fmt"
	"strings"

	"github.com/autumndb/autumndb/pkg/schema/buildctx"
	"github.com/autumndb/autumndb/pkg/schema/filter"
)

// Field is one selected property of an object node: either a leaf with a
// pre-rendered SQL expression, or a nested object with its own Projection.
type Field struct {
	Key    string
	Expr   string
	Nested *Projection
}

// Branch is an anyOf alternative: its own filter gates whether its
// payload contribution is merged into the parent object.
type Branch struct {
	Filter     filter.Filter
	Projection *Projection
}

// Projection is one node of the projection tree, tracking which keys
// were seen (by properties or required) and the node's
// additionalProperties flag (see SetAdditionalProperties).
type Projection struct {
	additionalProperties bool
	seen                 map[string]bool
	fields               []*Field
	linkVerbs            []string
	branches             []*Branch
}

// New returns a fresh node with additionalProperties defaulting to true.
func New() *Projection {
	return &Projection{additionalProperties: true, seen: map[string]bool{}}
}

// MarkSeen records that key was mentioned by properties or required,
// independent of whether a field was actually added for it.
func (p *Projection) MarkSeen(key string) { p.seen[key] = true }

// Seen reports whether key has been marked seen on this node.
func (p *Projection) Seen(key string) bool { return p.seen[key] }

// SetAdditionalProperties sets the node's additionalProperties flag.
// Render passes keys outside the declared set through only when the flag
// is true and the node has no fields, link verbs or branches (the
// row_to_json fast path); a node with any of those emits only them,
// whatever the flag. The flag is not inherited: every node starts at
// true, and the schema compiler sets it only from that node's own
// additionalProperties keyword.
func (p *Projection) SetAdditionalProperties(v bool) { p.additionalProperties = v }

// AdditionalProperties reports the current setting.
func (p *Projection) AdditionalProperties() bool { return p.additionalProperties }

// AddField records a selected property. If nested is non-nil, the
// field's value is the nested projection's own render, not expr.
func (p *Projection) AddField(key, expr string, nested *Projection) {
	p.fields = append(p.fields, &Field{Key: key, Expr: expr, Nested: nested})
	p.MarkSeen(key)
}

// AddLinkVerb registers that verb's payload should be merged in at
// render time; expressions are supplied later by the link expansion
// engine, keyed by verb.
func (p *Projection) AddLinkVerb(verb string) {
	for _, v := range p.linkVerbs {
		if v == verb {
			return
		}
	}
	p.linkVerbs = append(p.linkVerbs, verb)
	p.MarkSeen(verb)
}

// LinkVerbs returns the registered verbs in registration order.
func (p *Projection) LinkVerbs() []string {
	return p.linkVerbs
}

// AddBranch opens a new anyOf alternative with its own filter and
// returns its child projection for the caller to populate.
func (p *Projection) AddBranch(f filter.Filter) *Projection {
	child := New()
	p.branches = append(p.branches, &Branch{Filter: f, Projection: child})
	return child
}

// Unrestricted reports that nothing gates field selection, so the whole
// row can be emitted with row_to_json instead of a field-by-field build.
func (p *Projection) Unrestricted() bool {
	return p.additionalProperties && len(p.fields) == 0 && len(p.linkVerbs) == 0 && len(p.branches) == 0
}

// Render emits the payload SQL for this node. linkExprs supplies the
// pre-built lateral aggregate expression for each registered verb (built
// by the link expansion engine); tableAlias is used for the
// row_to_json(table) fast path and is threaded through to nested and
// branch renders.
func (p *Projection) Render(ctx *buildctx.Context, tableAlias string, linkExprs map[string]string) string {
	if p.Unrestricted() {
		return fmt.Sprintf("row_to_json(%s)", quoteIdent(tableAlias))
	}

	pairs := make([]string, 0, (len(p.fields)+len(p.linkVerbs))*2)
	for _, f := range p.fields {
		expr := f.Expr
		if f.Nested != nil {
			expr = f.Nested.Render(ctx, tableAlias, linkExprs)
		}
		pairs = append(pairs, quoteLiteral(f.Key), expr)
	}
	for _, verb := range p.linkVerbs {
		expr, ok := linkExprs[verb]
		if !ok {
			expr = "null"
		}
		pairs = append(pairs, quoteLiteral(verb), expr)
	}

	built := "jsonb_build_object(" + strings.Join(pairs, ", ") + ")"
	for _, b := range p.branches {
		cond := b.Filter.Render(ctx)
		branchObj := b.Projection.Render(ctx, tableAlias, linkExprs)
		built = fmt.Sprintf("(%s || (CASE WHEN %s THEN %s ELSE '{}'::jsonb END))", built, cond, branchObj)
	}

	return "jsonb_strip_nulls(" + built + ")"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
