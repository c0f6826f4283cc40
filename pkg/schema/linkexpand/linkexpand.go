// Package linkexpand implements the link expansion engine (C8): turning
// a compiled filter/projection pair and its populated build context into
// final SQL, either a simple single-table SELECT or a two-stage
// roots-CTE-plus-lateral-aggregation query when $$links were registered.
//
// The roots CTE plays the role of the spec's "fence" optimization
// barrier: it pins down the page of root ids (after the root filter,
// including every hoisted nested-link constraint) before any per-link
// lateral aggregation runs, so LIMIT is enforced on root rows rather
// than on the cross product of joined edges.
package linkexpand

import (
	"fmt"
	"strings"

	"github.com/autumndb/autumndb/pkg/schema/buildctx"
	"github.com/autumndb/autumndb/pkg/schema/compiler"
	"github.com/autumndb/autumndb/pkg/schema/project"
	"github.com/autumndb/autumndb/pkg/schema/sqlbuild"
)

const defaultLinkLimit = 1000

// Build renders the final SQL for a compiled query. opts.ExtraFilter, if
// set, is AND-ed into the root WHERE clause verbatim — the hook
// domain/streams' re-query wiring uses to pin a compiled query down to a
// single contract id without recompiling the schema.
func Build(res *compiler.Result, opts compiler.Options) string {
	rootFilterSQL := res.Filter.Render(res.Context)
	where := buildctx.HoistedWhere(rootFilterSQL, res.Context.HoistedFilters())
	if opts.ExtraFilter != "" {
		if where == "" {
			where = opts.ExtraFilter
		} else {
			where = where + " AND (" + opts.ExtraFilter + ")"
		}
	}

	if res.Context.LinkCount() == 0 {
		return simple(res, where, opts)
	}
	return withLinks(res, where, opts)
}

func simple(res *compiler.Result, where string, opts compiler.Options) string {
	sel := sqlbuild.NewSelect().
		Select(res.Projection.Render(res.Context, res.RootAlias, nil), "payload").
		AddFrom(sqlbuild.FromItem{Raw: fmt.Sprintf(`"contracts" AS %s`, quoteIdent(res.RootAlias))}).
		SetWhere(where)
	applyOrder(sel, res.RootAlias, opts)
	applyPage(sel, opts.Skip, opts.Limit)
	return sel.Render()
}

func withLinks(res *compiler.Result, where string, opts compiler.Options) string {
	rootAlias := res.RootAlias

	rootsSel := sqlbuild.NewSelect().
		Select(fmt.Sprintf("%s.id", quoteIdent(rootAlias)), "id").
		AddFrom(sqlbuild.FromItem{Raw: fmt.Sprintf(`"contracts" AS %s`, quoteIdent(rootAlias))}).
		SetWhere(where)
	for _, entry := range res.Context.AllEntries() {
		joinLinkExistence(rootsSel, entry, quoteIdent(rootAlias)+".id")
	}
	applyOrder(rootsSel, rootAlias, opts)
	applyPage(rootsSel, opts.Skip, opts.Limit)

	outer := sqlbuild.NewSelect()
	linkExprs := make(map[string]string)

	for _, verb := range res.Projection.LinkVerbs() {
		entries := res.Context.LinksForVerb(verb)
		if len(entries) == 0 {
			continue
		}
		aggAlias := "agg@" + verb
		lateralSel := buildVerbLateral(res, verb, entries, quoteIdent(rootAlias)+".id", opts)
		outer.AddJoin(sqlbuild.Join{
			Kind:   sqlbuild.JoinLeft,
			Target: sqlbuild.FromItem{Nested: lateralSel, Alias: aggAlias, Lateral: true},
			On:     "true",
		})
		linkExprs[verb] = fmt.Sprintf("coalesce(%s.arr, '[]'::jsonb)", quoteIdent(aggAlias))
	}

	payload := res.Projection.Render(res.Context, rootAlias, linkExprs)
	outer.Select(payload, "payload")
	outer.AddFrom(sqlbuild.FromItem{Raw: "roots"})
	outer.AddJoin(sqlbuild.Join{
		Kind:   sqlbuild.JoinInner,
		Target: sqlbuild.FromItem{Raw: fmt.Sprintf(`"contracts" AS %s`, quoteIdent(rootAlias))},
		On:     fmt.Sprintf("%s.id = roots.id", quoteIdent(rootAlias)),
	})
	applyOrder(outer, rootAlias, opts)

	return sqlbuild.NewCTE().Add("roots", rootsSel, true).Render(outer)
}

// joinLinkExistence binds a registered link entry's join alias into sel
// via a LEFT JOIN LATERAL existence probe, so a filter.Link leaf's
// rendered "<joinAlias>.id IS NOT NULL" check (pkg/schema/filter) has
// something to resolve against. It mirrors the links2/contracts join
// buildVerbLateral builds for the payload stage, but as a single-row
// probe (LIMIT 1) rather than a jsonb_agg, since the roots stage only
// needs to know a matching edge exists, not collect every one of them —
// a plain join here would multiply root rows per matching edge and
// corrupt the page's LIMIT.
func joinLinkExistence(sel *sqlbuild.Select, entry *buildctx.LinkEntry, parentIDExpr string) {
	nameExpr := fmt.Sprintf("(SELECT id FROM strings WHERE string = %s)", quoteLiteral(entry.Verb))

	probe := sqlbuild.NewSelect()
	probe.Select(fmt.Sprintf("%s.id", quoteIdent(entry.JoinAlias)), "id")
	probe.AddFrom(sqlbuild.FromItem{Raw: fmt.Sprintf(`"links2" AS %s`, quoteIdent(entry.LinksAlias))})
	probe.AddJoin(sqlbuild.Join{
		Kind:   sqlbuild.JoinInner,
		Target: sqlbuild.FromItem{Raw: fmt.Sprintf(`"contracts" AS %s`, quoteIdent(entry.JoinAlias))},
		On:     fmt.Sprintf(`%s."toId" = %s.id AND (%s)`, quoteIdent(entry.LinksAlias), quoteIdent(entry.JoinAlias), entry.InnerFilterSQL),
	})
	probe.SetWhere(fmt.Sprintf(`%s."fromId" = %s AND %s.name = %s`, quoteIdent(entry.LinksAlias), parentIDExpr, quoteIdent(entry.LinksAlias), nameExpr))
	probe.SetLimit(1)

	sel.AddJoin(sqlbuild.Join{
		Kind:   sqlbuild.JoinLeft,
		Target: sqlbuild.FromItem{Nested: probe, Alias: entry.JoinAlias, Lateral: true},
		On:     "true",
	})
}

// buildVerbLateral aggregates every sink reachable through verb's
// registered join entries into one jsonb array. More than one entry for
// the same verb arises from an anyOf schema registering the verb in more
// than one branch; their per-sink payloads are deep-merged with
// merge_jsonb_views rather than emitted as separate array elements.
func buildVerbLateral(res *compiler.Result, verb string, entries []*buildctx.LinkEntry, parentIDExpr string, opts compiler.Options) *sqlbuild.Select {
	linkOpts := opts.Links[verb]
	limit := linkOpts.Limit
	if limit <= 0 {
		limit = defaultLinkLimit
	}

	payloadExpr := fmt.Sprintf("row_to_json(%s)", quoteIdent(entries[0].JoinAlias))
	if raw, ok := res.Context.LinkPayload(verb); ok {
		if proj, ok := raw.(*project.Projection); ok {
			payloadExpr = proj.Render(entries[0].Nested, entries[0].JoinAlias, nil)
		}
	}

	itemExpr := payloadExpr
	for _, extra := range entries[1:] {
		itemExpr = fmt.Sprintf("merge_jsonb_views(%s, row_to_json(%s)::jsonb)", itemExpr, quoteIdent(extra.JoinAlias))
	}

	sel := sqlbuild.NewSelect()
	sel.Select(itemExpr, "item")

	nameExpr := fmt.Sprintf("(SELECT id FROM strings WHERE string = %s)", quoteLiteral(verb))
	for i, entry := range entries {
		linksAlias, joinAlias := entry.LinksAlias, entry.JoinAlias
		if i == 0 {
			sel.AddFrom(sqlbuild.FromItem{Raw: fmt.Sprintf(`"links2" AS %s`, quoteIdent(linksAlias))})
		} else {
			sel.AddJoin(sqlbuild.Join{
				Kind:   sqlbuild.JoinLeft,
				Target: sqlbuild.FromItem{Raw: fmt.Sprintf(`"links2" AS %s`, quoteIdent(linksAlias))},
				On:     fmt.Sprintf(`%s."fromId" = %s AND %s.name = %s`, quoteIdent(linksAlias), parentIDExpr, quoteIdent(linksAlias), nameExpr),
			})
		}
		sel.AddJoin(sqlbuild.Join{
			Kind:   sqlbuild.JoinInner,
			Target: sqlbuild.FromItem{Raw: fmt.Sprintf(`"contracts" AS %s`, quoteIdent(joinAlias))},
			On:     fmt.Sprintf(`%s."toId" = %s.id AND (%s)`, quoteIdent(linksAlias), quoteIdent(joinAlias), entry.InnerFilterSQL),
		})
	}

	where := fmt.Sprintf(`%s."fromId" = %s AND %s.name = %s`, quoteIdent(entries[0].LinksAlias), parentIDExpr, quoteIdent(entries[0].LinksAlias), nameExpr)
	sel.SetWhere(where)

	if len(linkOpts.SortBy) > 0 {
		desc := strings.ToUpper(linkOpts.SortDir) == "DESC"
		for _, col := range linkOpts.SortBy {
			sel.AddOrderBy(fmt.Sprintf("%s.%s", quoteIdent(entries[0].JoinAlias), quoteIdent(col)), desc, true)
		}
	} else {
		sel.AddOrderBy(fmt.Sprintf("%s.created_at", quoteIdent(entries[0].JoinAlias)), false, true)
	}
	sel.SetOffset(linkOpts.Skip)
	sel.SetLimit(limit)

	// ORDER BY/OFFSET/LIMIT cut the page of linked rows in a subquery, so
	// jsonb_agg folds only that page into the array.
	return sqlbuild.NewSelect().
		Select(`jsonb_agg("page".item)`, "arr").
		AddFrom(sqlbuild.FromItem{Nested: sel, Alias: "page"})
}

func applyOrder(sel *sqlbuild.Select, alias string, opts compiler.Options) {
	if len(opts.SortBy) == 0 {
		sel.AddOrderBy(fmt.Sprintf("%s.created_at", quoteIdent(alias)), false, true)
		return
	}
	desc := strings.ToUpper(opts.SortDir) == "DESC"
	for _, col := range opts.SortBy {
		if col == "version" {
			applyVersionOrder(sel, alias, desc)
			continue
		}
		sel.AddOrderBy(fmt.Sprintf("%s.%s", quoteIdent(alias), quoteIdent(col)), desc, true)
	}
}

// applyVersionOrder orders by the five version components, with
// pre-release builds always sorting below release builds regardless of
// the requested direction.
func applyVersionOrder(sel *sqlbuild.Select, alias string, desc bool) {
	a := quoteIdent(alias)
	sel.AddOrderBy(fmt.Sprintf("(%s.version_prerelease <> '')", a), false, true)
	sel.AddOrderBy(fmt.Sprintf("%s.version_major", a), desc, true)
	sel.AddOrderBy(fmt.Sprintf("%s.version_minor", a), desc, true)
	sel.AddOrderBy(fmt.Sprintf("%s.version_patch", a), desc, true)
	sel.AddOrderBy(fmt.Sprintf("%s.version_prerelease", a), desc, true)
	sel.AddOrderBy(fmt.Sprintf("%s.version_build", a), desc, true)
}

func applyPage(sel *sqlbuild.Select, skip, limit int) {
	if skip > 0 {
		sel.SetOffset(skip)
	}
	if limit > 0 {
		sel.SetLimit(limit)
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
