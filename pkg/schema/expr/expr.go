// Package expr implements the expression algebra (C3): boolean AND/OR
// combinators over the Filter IR with constant folding and scope-aware
// link scraping. Combinators consume their operand by Go value
// semantics — Expression is a value type, and every combinator method
// returns a new value rather than mutating a shared pointer, realizing
// the "filters are consumed by move" ownership rule without an explicit
// move operator.
package expr

import (
	"github.com/autumndb/autumndb/pkg/schema/buildctx"
	"github.com/autumndb/autumndb/pkg/schema/filter"
	"github.com/autumndb/autumndb/pkg/schema/sqlbuild"
)

// Operator is the boolean combinator an Expression applies to its operands.
type Operator int

const (
	And Operator = iota
	Or
)

// Expression is a tagged AND/OR node over the Filter IR, with constant
// folding applied eagerly on every combine.
type Expression struct {
	op       Operator
	isConst  bool
	constVal bool
	negated  bool
	operands []filter.Filter

	// optionalLinks are Link nodes scraped from a branch that was folded
	// away by short-circuiting; they no longer constrain the filter but
	// must still register their join context so the outer SELECT sees
	// the link's id column.
	optionalLinks []*filter.Link
}

// identity reports the absorbing constant a fresh, empty expression of op
// starts as: true for AND, false for OR.
func identity(op Operator) bool {
	return op == And
}

// New returns a fresh, empty expression of the given operator, equal to
// its identity constant until operands are combined in.
func New(op Operator) Expression {
	return Expression{op: op, isConst: true, constVal: identity(op)}
}

// NewAnd returns a fresh AND expression (the "true" identity).
func NewAnd() Expression { return New(And) }

// NewOr returns a fresh OR expression (the "false" identity).
func NewOr() Expression { return New(Or) }

// isFresh reports whether e has not yet absorbed any operand, so its
// operator may still be safely switched rather than wrapped.
func (e Expression) isFresh() bool {
	return e.isConst && !e.negated && e.constVal == identity(e.op) && len(e.operands) == 0 && len(e.optionalLinks) == 0
}

// finalConst resolves the truth value of a constant expression, honoring
// any pending negation.
func (e Expression) finalConst() bool {
	if e.negated {
		return !e.constVal
	}
	return e.constVal
}

// And combines f into e's AND chain: true∧x=x, false∧x=false. If e is
// currently an OR expression with operands already absorbed, or is
// negated, e is first wrapped as a single operand of a fresh AND.
func (e Expression) And(f filter.Filter) Expression {
	return e.combine(And, f)
}

// Or combines f into e's OR chain: true∨x=true, false∨x=x.
func (e Expression) Or(f filter.Filter) Expression {
	return e.combine(Or, f)
}

// Negate flips the expression's truth value. Implemented as a toggled
// flag rather than a recursive De Morgan expansion, so Negate is its own
// involution by construction: Negate(Negate(e)) == e.
func (e Expression) Negate() Expression {
	ne := e
	ne.negated = !e.negated
	return ne
}

// Implies builds (¬this)∨f.
func (e Expression) Implies(f filter.Filter) Expression {
	return e.Negate().Or(f)
}

// MakeUnsatisfiable collapses e to the constant false, scraping every
// operand's links into the optional-links list first.
func (e Expression) MakeUnsatisfiable() Expression {
	return e.collapseTo(false)
}

// Unsatisfiable reports whether e has folded to the constant false.
func (e Expression) Unsatisfiable() bool {
	return e.isConst && !e.finalConst()
}

func (e Expression) combine(op Operator, f filter.Filter) Expression {
	if e.op != op || e.negated {
		if e.isFresh() {
			e.op = op
			e.constVal = identity(op)
		} else {
			wrapped := New(op)
			wrapped = wrapped.appendOperand(e)
			return wrapped.combine(op, f)
		}
	}
	return e.appendFilter(f)
}

// appendOperand adds an already-built Expression as a single operand of
// e, inlining it if its operator matches e's.
func (e Expression) appendOperand(sub Expression) Expression {
	if sub.isConst {
		return e.appendFilter(constFilter(sub.finalConst()))
	}
	if sub.op == e.op && !sub.negated {
		ne := e
		ne.operands = append(append([]filter.Filter(nil), e.operands...), sub.operands...)
		ne.optionalLinks = append(append([]*filter.Link(nil), e.optionalLinks...), sub.optionalLinks...)
		ne.isConst = false
		return ne
	}
	ne := e
	ne.operands = append(append([]filter.Filter(nil), e.operands...), sub)
	ne.isConst = false
	return ne
}

func (e Expression) appendFilter(f filter.Filter) Expression {
	if sub, ok := f.(Expression); ok {
		return e.appendOperand(sub)
	}

	anti := !identity(e.op) // false for AND, true for OR
	if isConstLiteral(f, identity(e.op)) {
		// absorbing into identity: no-op (true for AND, false for OR)
		return e
	}
	if isConstLiteral(f, anti) || f.Unsatisfiable() && e.op == And {
		return e.collapseTo(anti)
	}

	if sub, ok := f.(*filter.Link); ok {
		ne := e
		ne.operands = append(append([]filter.Filter(nil), e.operands...), sub)
		ne.isConst = false
		return ne
	}

	ne := e
	ne.operands = append(append([]filter.Filter(nil), e.operands...), f)
	ne.isConst = false
	return ne
}

// collapseTo folds e to the constant val, scraping every discarded
// operand's links into optionalLinks so they still register downstream.
func (e Expression) collapseTo(val bool) Expression {
	var links []*filter.Link
	for _, o := range e.operands {
		o.ScrapeLinks(&links)
	}
	return Expression{
		op:            e.op,
		isConst:       true,
		constVal:      val,
		optionalLinks: append(append([]*filter.Link(nil), e.optionalLinks...), links...),
	}
}

// Render emits "(" + operands joined by AND/OR + ")", wrapped in NOT(...)
// if negated, parenthesizing iff there is more than one operand. After
// emitting, every optional link is rerun through a throwaway render so
// the shared context still records its join aliases.
func (e Expression) Render(ctx *buildctx.Context) string {
	var inner string
	if e.isConst {
		if e.finalConst() {
			inner = "true"
		} else {
			inner = "false"
		}
	} else {
		rendered := make([]string, 0, len(e.operands))
		for _, o := range e.operands {
			rendered = append(rendered, o.Render(ctx))
		}
		sep := " AND "
		if e.op == Or {
			sep = " OR "
		}
		inner = sqlbuild.NewFragment().PushParenthisedList(rendered, sep).String()
		if e.negated {
			inner = "NOT (" + inner + ")"
		}
	}

	for _, l := range e.optionalLinks {
		l.Render(ctx)
	}

	return inner
}

// ScrapeLinks appends every Link reachable from e's operands and its
// already-folded-away optional links.
func (e Expression) ScrapeLinks(out *[]*filter.Link) {
	for _, o := range e.operands {
		o.ScrapeLinks(out)
	}
	*out = append(*out, e.optionalLinks...)
}

func constFilter(v bool) filter.Filter {
	if v {
		return filter.True()
	}
	return filter.False()
}

func isConstLiteral(f filter.Filter, v bool) bool {
	if v {
		return f == filter.True()
	}
	return f == filter.False()
}

var _ filter.Filter = Expression{}
