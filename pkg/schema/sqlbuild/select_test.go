package sqlbuild

import (
	"strings"
	"testing"
)

func TestSelectRenderBasic(t *testing.T) {
	s := NewSelect().
		Select(`"c"."id"`, "").
		AddFrom(FromItem{Raw: `"contracts" AS "c"`}).
		SetWhere(`"c"."active" = true`).
		AddOrderBy(`"c"."created_at"`, true, true).
		SetLimit(10)

	got := s.Render()
	for _, want := range []string{
		`SELECT "c"."id"`,
		`FROM "contracts" AS "c"`,
		`WHERE "c"."active" = true`,
		`ORDER BY "c"."created_at" DESC NULLS LAST`,
		`LIMIT 10`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() = %q, missing %q", got, want)
		}
	}
}

func TestSelectRenderJoinAndLateral(t *testing.T) {
	inner := NewSelect().Select("1", "")
	s := NewSelect().
		Select("*", "").
		AddFrom(FromItem{Raw: `"contracts" AS "c"`}).
		AddJoin(Join{
			Kind:   JoinLeft,
			Target: FromItem{Nested: inner, Alias: "sub", Lateral: true},
			On:     "true",
		})

	got := s.Render()
	if !strings.Contains(got, "LEFT JOIN LATERAL (SELECT 1) AS \"sub\" ON true") {
		t.Errorf("Render() = %q, missing lateral join", got)
	}
}

func TestCTERenderMaterialized(t *testing.T) {
	fence := NewSelect().Select("1", "")
	tail := NewSelect().Select("2", "").AddFrom(FromItem{Raw: `"fence"`})

	got := NewCTE().Add("fence", fence, true).Render(tail)
	if !strings.Contains(got, `WITH "fence" AS MATERIALIZED (SELECT 1)`) {
		t.Errorf("Render() = %q, missing materialized CTE", got)
	}
	if !strings.Contains(got, "SELECT 2") {
		t.Errorf("Render() = %q, missing tail", got)
	}
}
