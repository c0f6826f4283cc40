// Package path implements the compile-time document pointer (C1): a
// dual column/JSONB path with state flags describing where a reference
// sits relative to the contracts table.
package path

import (
	"strconv"
	"strings"
)

// Kind identifies which of the four positions a Path currently occupies.
type Kind int

const (
	// KindTable is the bare table root, before any column has been pushed.
	KindTable Kind = iota
	// KindColumn is a direct table column (depth 1).
	KindColumn
	// KindSubColumn is an element of an array-typed column.
	KindSubColumn
	// KindJSONProperty is a keypath inside a JSONB-typed column.
	KindJSONProperty
)

// jsonColumns lists the table columns that hold JSONB documents; pushing a
// second segment under one of these flips the path into KindJSONProperty.
var jsonColumns = map[string]bool{
	"data": true,
}

// Path is an immutable-by-convention pointer into the logical document.
// Mutating methods (Push, Pop, SetLast) operate in place by design: the
// filter IR owns its path and clones it on construction, not on every
// traversal step.
type Path struct {
	alias   string
	segs    []string
	kind    Kind
	parent  *Path
	// forceCast wraps a rendered JSON property in (...)::text.
	forceCast bool
	// jsonRoot marks a path whose alias is itself a bare JSONB value (e.g.
	// the "elem" alias bound by jsonb_array_elements in ArrayContains),
	// rather than a table with a named JSONB column. Pushed segments are
	// JSON keys from the first push, with no column component in the
	// rendered #>/#>> path.
	jsonRoot bool
}

// NewRoot returns a path positioned at the table root for the given alias.
func NewRoot(alias string) *Path {
	return &Path{alias: alias, kind: KindTable}
}

// NewJSONRoot returns a path whose alias is itself a bare JSONB value
// (not a table column), used for the element alias bound inside an
// ArrayContains existential quantifier.
func NewJSONRoot(alias string) *Path {
	return &Path{alias: alias, kind: KindTable, jsonRoot: true}
}

// Clone returns an owned, independent copy of the path. Filter IR leaves
// clone the path they're built with so that later mutation of the
// caller's path (e.g. across sibling compiles) cannot retroactively
// change an already-constructed filter.
func (p *Path) Clone() *Path {
	if p == nil {
		return nil
	}
	cp := *p
	cp.segs = append([]string(nil), p.segs...)
	if p.parent != nil {
		cp.parent = p.parent.Clone()
	}
	return &cp
}

// WithParent returns a copy of p whose parent chain is set to parent, so a
// correlated subquery's path can see its parent's prefix when navigating a
// JSON column used as a correlated table.
func (p *Path) WithParent(parent *Path) *Path {
	cp := p.Clone()
	cp.parent = parent
	return cp
}

// Push appends a property segment and recomputes the path's kind.
// Pushing the first segment onto a table-root path makes it a column;
// pushing a second segment makes it either a JSON property (if the
// column is JSONB) or a sub-column (if the column is an array).
func (p *Path) Push(seg string) *Path {
	next := p.Clone()
	next.segs = append(next.segs, seg)
	next.kind = next.computeKind()
	return next
}

// SetLast overwrites the last pushed segment in place without growing the
// path, used by the tuple-items visitor which pre-pushes a placeholder
// index and overwrites it per tuple slot rather than pushing a fresh
// segment for every element (see design notes on tuple-items tracking).
func (p *Path) SetLast(seg string) {
	if len(p.segs) == 0 {
		p.segs = []string{seg}
	} else {
		p.segs[len(p.segs)-1] = seg
	}
	p.kind = p.computeKind()
}

// PushPlaceholder pushes a null placeholder segment meant to be
// overwritten by SetLast, mirroring the tuple-items "set-last without
// grow" behavior named as an open question in the source design.
func (p *Path) PushPlaceholder() *Path {
	return p.Push("")
}

func (p *Path) computeKind() Kind {
	if len(p.segs) == 0 {
		return KindTable
	}
	if p.jsonRoot {
		return KindJSONProperty
	}
	if len(p.segs) == 1 {
		return KindColumn
	}
	col := p.segs[0]
	if jsonColumns[col] {
		return KindJSONProperty
	}
	return KindSubColumn
}

// jsonKeys returns the JSON keypath to render after the column (or, for
// a jsonRoot path, after the bare alias itself).
func (p *Path) jsonKeys() []string {
	if p.jsonRoot {
		return p.segs
	}
	return p.Keys()
}

// Kind reports the path's current position.
func (p *Path) Kind() Kind { return p.kind }

func (p *Path) IsTable() bool        { return p.kind == KindTable }
func (p *Path) IsColumn() bool       { return p.kind == KindColumn }
func (p *Path) IsSubColumn() bool    { return p.kind == KindSubColumn }
func (p *Path) IsJSONProperty() bool { return p.kind == KindJSONProperty }

// Alias returns the table alias this path is rooted at.
func (p *Path) Alias() string { return p.alias }

// Column returns the depth-1 segment (the physical column name), or ""
// at the table root.
func (p *Path) Column() string {
	if len(p.segs) == 0 {
		return ""
	}
	return p.segs[0]
}

// Keys returns the JSON keypath beneath the column (segs[1:]).
func (p *Path) Keys() []string {
	if len(p.segs) < 2 {
		return nil
	}
	return p.segs[1:]
}

// WithForceCast returns a copy of p with forceCast set, wrapping rendered
// JSON property access in (...)::text.
func (p *Path) WithForceCast() *Path {
	cp := p.Clone()
	cp.forceCast = true
	return cp
}

// RegisterJSONColumn declares an additional column as JSONB-typed so
// paths pushed under it render as JSON properties rather than
// sub-columns. Called once at schema-compiler startup for any
// non-"data" JSONB columns a caller's schema addresses (e.g. linked_at).
func RegisterJSONColumn(name string) {
	jsonColumns[name] = true
}

// Render emits the SQL fragment for this path. textual requests the
// text-extraction operator (#>>) instead of the JSON operator (#>) for
// JSON properties; it is ignored for plain columns.
func (p *Path) Render(textual bool) string {
	switch p.kind {
	case KindTable:
		return quoteIdent(p.alias)
	case KindColumn:
		if p.Column() == "version" {
			return renderVersionColumn(p.alias)
		}
		return quoteIdent(p.alias) + "." + quoteIdent(p.Column())
	case KindSubColumn:
		return quoteIdent(p.alias) + "." + quoteIdent(p.Column()) + "[" + strconv.Itoa(len(p.segs)) + "]"
	case KindJSONProperty:
		op := "#>"
		if textual {
			op = "#>>"
		}
		col := quoteIdent(p.alias)
		if !p.jsonRoot {
			col += "." + quoteIdent(p.Column())
		}
		frag := col + " " + op + " '{" + strings.Join(p.jsonKeys(), ",") + "}'"
		if p.forceCast {
			frag = "(" + frag + ")::text"
		}
		return frag
	}
	return ""
}

// renderVersionColumn concatenates the five version components into the
// slug@semver string the spec treats as a single computed "version" field.
func renderVersionColumn(alias string) string {
	a := quoteIdent(alias)
	return "(" + a + ".version_major::text || '.' || " + a + ".version_minor::text || '.' || " +
		a + ".version_patch::text || " +
		"(CASE WHEN " + a + ".version_prerelease <> '' THEN '-' || " + a + ".version_prerelease ELSE '' END) || " +
		"(CASE WHEN " + a + ".version_build <> '' THEN '+' || " + a + ".version_build ELSE '' END))"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
