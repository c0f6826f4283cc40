package sqlbuild

import "strings"

// CTEEntry is one WITH-clause subquery.
type CTEEntry struct {
	Select       *Select
	Alias        string
	Materialized bool
}

// CTE owns an ordered sequence of (select, alias, materialized?)
// subqueries prepended to a tail statement.
type CTE struct {
	entries []CTEEntry
}

// NewCTE returns an empty CTE builder.
func NewCTE() *CTE {
	return &CTE{}
}

// Add appends one named subquery to the WITH clause.
func (c *CTE) Add(alias string, sel *Select, materialized bool) *CTE {
	c.entries = append(c.entries, CTEEntry{Select: sel, Alias: alias, Materialized: materialized})
	return c
}

// Render renders the full "WITH ... tail" statement.
func (c *CTE) Render(tail *Select) string {
	if len(c.entries) == 0 {
		return tail.Render()
	}

	var b strings.Builder
	b.WriteString("WITH ")
	parts := make([]string, len(c.entries))
	for i, e := range c.entries {
		mat := ""
		if e.Materialized {
			mat = "MATERIALIZED "
		}
		parts[i] = quoteIdent(e.Alias) + " AS " + mat + "(" + e.Select.Render() + ")"
	}
	b.WriteString(strings.Join(parts, ", "))
	b.WriteString(" ")
	b.WriteString(tail.Render())
	return b.String()
}
