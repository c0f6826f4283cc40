// Package sqlbuild provides thin textual SQL emitters (C5): a Fragment
// builder for boolean/scalar expressions, a Select builder, and a CTE
// builder, all sharing the same composition style.
package sqlbuild

import "strings"

// Fragment is an append-only textual SQL expression builder.
type Fragment struct {
	b strings.Builder
}

// NewFragment returns an empty fragment.
func NewFragment() *Fragment {
	return &Fragment{}
}

// Push appends a raw SQL fragment verbatim.
func (f *Fragment) Push(s string) *Fragment {
	f.b.WriteString(s)
	return f
}

// PushList appends items joined by sep, with no surrounding parens.
func (f *Fragment) PushList(items []string, sep string) *Fragment {
	f.b.WriteString(strings.Join(items, sep))
	return f
}

// PushParenthisedList appends items joined by sep, wrapped in parens
// unless there is exactly one item (matching C3's "parenthesize iff
// length > 1" rule).
func (f *Fragment) PushParenthisedList(items []string, sep string) *Fragment {
	if len(items) == 1 {
		f.b.WriteString(items[0])
		return f
	}
	f.b.WriteByte('(')
	f.b.WriteString(strings.Join(items, sep))
	f.b.WriteByte(')')
	return f
}

// PushCasted appends expr cast to sqlType via ::type.
func (f *Fragment) PushCasted(expr, sqlType string) *Fragment {
	f.b.WriteString("(")
	f.b.WriteString(expr)
	f.b.WriteString(")::")
	f.b.WriteString(sqlType)
	return f
}

// PushInvoked appends a function call fn(args...).
func (f *Fragment) PushInvoked(fn string, args []string) *Fragment {
	f.b.WriteString(fn)
	f.b.WriteByte('(')
	f.b.WriteString(strings.Join(args, ", "))
	f.b.WriteByte(')')
	return f
}

// ExtendFrom appends the other fragment's text verbatim.
func (f *Fragment) ExtendFrom(other *Fragment) *Fragment {
	f.b.WriteString(other.String())
	return f
}

// ExtendParenthisedFrom appends other's text wrapped in parens.
func (f *Fragment) ExtendParenthisedFrom(other *Fragment) *Fragment {
	f.b.WriteByte('(')
	f.b.WriteString(other.String())
	f.b.WriteByte(')')
	return f
}

// String returns the accumulated SQL text.
func (f *Fragment) String() string {
	return f.b.String()
}
