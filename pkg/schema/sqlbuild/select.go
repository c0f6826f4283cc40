package sqlbuild

import (
	"fmt"
	"strconv"
	"strings"
)

// JoinKind distinguishes INNER from LEFT joins in a Select's join list.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
)

// SelectItem is one projected column/expression, with an optional alias.
type SelectItem struct {
	Expr  string
	Alias string
}

// FromItem is one entry in the FROM clause: either a bare table/alias
// string, or a nested Select/CTE rendered as a derived table.
type FromItem struct {
	Raw     string
	Nested  *Select
	Alias   string
	Lateral bool
}

// Join is one JOIN clause.
type Join struct {
	Kind   JoinKind
	Target FromItem
	On     string
}

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr       string
	Descending bool
	NullsLast  bool
}

// Select aggregates the pieces of a single SELECT statement.
type Select struct {
	Items    []SelectItem
	From     []FromItem
	Joins    []Join
	Where    string
	GroupBy  []string
	OrderBy  []OrderItem
	Offset   *int
	Limit    *int
}

// NewSelect returns an empty Select builder.
func NewSelect() *Select {
	return &Select{}
}

func (s *Select) Select(expr, alias string) *Select {
	s.Items = append(s.Items, SelectItem{Expr: expr, Alias: alias})
	return s
}

func (s *Select) AddFrom(item FromItem) *Select {
	s.From = append(s.From, item)
	return s
}

func (s *Select) AddJoin(j Join) *Select {
	s.Joins = append(s.Joins, j)
	return s
}

func (s *Select) SetWhere(filter string) *Select {
	s.Where = filter
	return s
}

func (s *Select) AddGroupBy(expr string) *Select {
	s.GroupBy = append(s.GroupBy, expr)
	return s
}

func (s *Select) AddOrderBy(expr string, desc, nullsLast bool) *Select {
	s.OrderBy = append(s.OrderBy, OrderItem{Expr: expr, Descending: desc, NullsLast: nullsLast})
	return s
}

func (s *Select) SetOffset(n int) *Select {
	s.Offset = &n
	return s
}

func (s *Select) SetLimit(n int) *Select {
	s.Limit = &n
	return s
}

// Render renders the statement as a single line of SQL; a nested Select
// in a FromItem is rendered inline in parentheses.
func (s *Select) Render() string {
	var b strings.Builder

	b.WriteString("SELECT ")
	items := make([]string, len(s.Items))
	for i, it := range s.Items {
		if it.Alias != "" {
			items[i] = fmt.Sprintf("%s AS %s", it.Expr, quoteIdent(it.Alias))
		} else {
			items[i] = it.Expr
		}
	}
	if len(items) == 0 {
		items = []string{"*"}
	}
	b.WriteString(strings.Join(items, ", "))

	if len(s.From) > 0 {
		b.WriteString(" FROM ")
		froms := make([]string, len(s.From))
		for i, f := range s.From {
			froms[i] = renderFromItem(f)
		}
		b.WriteString(strings.Join(froms, ", "))
	}

	for _, j := range s.Joins {
		switch j.Kind {
		case JoinInner:
			b.WriteString(" INNER JOIN ")
		case JoinLeft:
			b.WriteString(" LEFT JOIN ")
		}
		b.WriteString(renderFromItem(j.Target))
		b.WriteString(" ON ")
		b.WriteString(j.On)
	}

	if s.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(s.Where)
	}

	if len(s.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(s.GroupBy, ", "))
	}

	if len(s.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		parts := make([]string, len(s.OrderBy))
		for i, o := range s.OrderBy {
			dir := "ASC"
			if o.Descending {
				dir = "DESC"
			}
			nulls := ""
			if o.NullsLast {
				nulls = " NULLS LAST"
			}
			parts[i] = fmt.Sprintf("%s %s%s", o.Expr, dir, nulls)
		}
		b.WriteString(strings.Join(parts, ", "))
	}

	if s.Offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(*s.Offset))
	}
	if s.Limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*s.Limit))
	}

	return b.String()
}

func renderFromItem(f FromItem) string {
	var core string
	switch {
	case f.Nested != nil:
		core = "(" + f.Nested.Render() + ")"
	default:
		core = f.Raw
	}
	if f.Lateral {
		core = "LATERAL " + core
	}
	if f.Alias != "" {
		core = core + " AS " + quoteIdent(f.Alias)
	}
	return core
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
