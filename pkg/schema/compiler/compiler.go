// Package compiler implements the schema compiler (C7): a recursive
// visitor over a JSON Schema document that produces a Filter IR tree, a
// projection tree, and a populated builder context in one pass.
package compiler

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	jsonschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/autumndb/autumndb/pkg/apperror"
	"github.com/autumndb/autumndb/pkg/schema/buildctx"
	"github.com/autumndb/autumndb/pkg/schema/expr"
	"github.com/autumndb/autumndb/pkg/schema/filter"
	"github.com/autumndb/autumndb/pkg/schema/path"
	"github.com/autumndb/autumndb/pkg/schema/project"
)

var allTypes = []string{"null", "boolean", "object", "array", "number", "string", "integer"}

var knownFormats = map[string]string{
	// format name -> SQL cast type used by formatMinimum/formatMaximum
	"date":      "date",
	"time":      "time",
	"date-time": "timestamptz",
	"email":     "",
	"uuid":      "",
	"hostname":  "",
	"markdown":  "",
}

var formatPatterns = map[string]string{
	"date":      `^\d{4}-\d{2}-\d{2}$`,
	"time":      `^\d{2}:\d{2}:\d{2}`,
	"date-time": `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`,
	"email":     `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
	"uuid":      `^[0-9a-fA-F-]{36}$`,
	"hostname":  `^[a-zA-Z0-9.-]+$`,
}

var compileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "autumndb",
	Subsystem: "compiler",
	Name:      "compile_duration_seconds",
	Help:      "Time to compile one schema into a Filter IR and projection tree.",
	Buckets:   prometheus.DefBuckets,
})

func init() {
	prometheus.MustRegister(compileDuration)
}

// LinkOptions are the per-verb pagination/sort options threaded through
// to the link expansion engine.
type LinkOptions struct {
	Skip    int
	Limit   int
	SortBy  []string
	SortDir string
}

// Options mirrors the query-input options of the external interface.
type Options struct {
	Skip        int
	Limit       int
	MaxLimit    int
	SortBy      []string
	SortDir     string
	Links       map[string]LinkOptions
	ExtraFilter string
}

// Result is everything C8 (link expansion) needs to finish the query.
type Result struct {
	Filter     filter.Filter
	Projection *project.Projection
	Context    *buildctx.Context
	RootAlias  string
}

// Compile walks schema and selectTree, producing a Result. selectTree may
// be nil (select everything).
func Compile(schema *jsonschema.Schema, selectTree map[string]any, opts Options) (_ *Result, err error) {
	timer := prometheus.NewTimer(compileDuration)
	defer timer.ObserveDuration()

	if err := validateLimit(opts); err != nil {
		return nil, err
	}

	raw, err := toRaw(schema)
	if err != nil {
		return nil, apperror.NewSchemaInvalid(err)
	}

	ctx := buildctx.New("c")
	proj := project.New()
	fr := &frame{
		ctx:        ctx,
		path:       path.NewRoot("c"),
		proj:       proj,
		selectTree: selectTree,
		correlated: true,
	}

	f, _, _, err := fr.compile(raw)
	if err != nil {
		return nil, err
	}

	return &Result{Filter: f, Projection: proj, Context: ctx, RootAlias: "c"}, nil
}

func validateLimit(opts Options) error {
	max := opts.MaxLimit
	if max <= 0 {
		max = 1000
	}
	if opts.Limit < 0 || opts.Limit > max {
		return apperror.NewInvalidLimit(opts.Limit, max)
	}
	return nil
}

// toRaw round-trips schema through JSON into a generic map so the
// recursive walk need not depend on jsonschema-go's exact field layout —
// only that *jsonschema.Schema marshals to the JSON Schema wire format it
// was built to represent.
func toRaw(schema *jsonschema.Schema) (map[string]any, error) {
	if schema == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// frame is the per-node compile state: §4.7's
// (path, select, filter, required[], typeSet, propertyFilter?, format?, filterImpliesExists) tuple.
type frame struct {
	ctx        *buildctx.Context
	path       *path.Path
	proj       *project.Projection
	selectTree map[string]any
	correlated bool
	format     string
}

// selected reports whether key passes the select tree filter (nil tree = everything).
func (fr *frame) selected(key string) (map[string]any, bool) {
	if fr.selectTree == nil {
		return nil, true
	}
	v, ok := fr.selectTree[key]
	if !ok {
		return nil, false
	}
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	return nil, true
}

// compile recursively walks one schema node, returning its filter, the
// resolved type set, whether the filter already implies existence of
// this path, and an error for an invalid shape of a handled keyword or an
// unknown format. Keywords it does not handle are ignored, not rejected.
func (fr *frame) compile(raw map[string]any) (filt filter.Filter, types map[string]bool, impliesExists bool, err error) {
	types = fullTypeSet()
	e := expr.NewAnd()

	if t, ok := raw["type"]; ok {
		requested, err := typeList(t)
		if err != nil {
			return nil, nil, false, err
		}
		types = intersectTypes(types, requested)
		if len(types) == 0 {
			return filter.False(), types, true, nil
		}
		if fr.path.IsJSONProperty() {
			e = e.And(filter.IsOfJsonTypes(fr.path, sortedTypes(types)))
			impliesExists = true
		}
		if types["integer"] {
			e = e.And(fr.gate([]string{"number", "integer"}, types, filter.MultipleOf(fr.path, 1)))
		}
	}

	if cf, err := fr.compileConstOrEnum(raw); err != nil {
		return nil, nil, false, err
	} else if cf != nil {
		e = e.And(cf)
		impliesExists = true
	}

	if nf, ok, err := fr.numericKeyword(raw, "minimum", func(p *path.Path, n float64) filter.Filter {
		return filter.ValueIs(p, filter.OpGE, numLiteral(n), "numeric")
	}); err != nil {
		return nil, nil, false, err
	} else if ok {
		e = e.And(fr.gate(numericTypes, types, nf))
	}
	if nf, ok, err := fr.numericKeyword(raw, "maximum", func(p *path.Path, n float64) filter.Filter {
		return filter.ValueIs(p, filter.OpLE, numLiteral(n), "numeric")
	}); err != nil {
		return nil, nil, false, err
	} else if ok {
		e = e.And(fr.gate(numericTypes, types, nf))
	}
	if nf, ok, err := fr.numericKeyword(raw, "exclusiveMinimum", func(p *path.Path, n float64) filter.Filter {
		return filter.ValueIs(p, filter.OpGT, numLiteral(n), "numeric")
	}); err != nil {
		return nil, nil, false, err
	} else if ok {
		e = e.And(fr.gate(numericTypes, types, nf))
	}
	if nf, ok, err := fr.numericKeyword(raw, "exclusiveMaximum", func(p *path.Path, n float64) filter.Filter {
		return filter.ValueIs(p, filter.OpLT, numLiteral(n), "numeric")
	}); err != nil {
		return nil, nil, false, err
	} else if ok {
		e = e.And(fr.gate(numericTypes, types, nf))
	}

	if n, ok, err := intKeyword(raw, "minLength"); err != nil {
		return nil, nil, false, err
	} else if ok {
		e = e.And(fr.gate(stringTypes, types, filter.StringLength(fr.path, filter.OpGE, n)))
	}
	if n, ok, err := intKeyword(raw, "maxLength"); err != nil {
		return nil, nil, false, err
	} else if ok {
		e = e.And(fr.gate(stringTypes, types, filter.StringLength(fr.path, filter.OpLE, n)))
	}

	if n, ok, err := intKeyword(raw, "minItems"); err != nil {
		return nil, nil, false, err
	} else if ok {
		e = e.And(fr.gate(arrayTypes, types, filter.ArrayLength(fr.path, filter.OpGE, n)))
	}
	if n, ok, err := intKeyword(raw, "maxItems"); err != nil {
		return nil, nil, false, err
	} else if ok {
		e = e.And(fr.gate(arrayTypes, types, filter.ArrayLength(fr.path, filter.OpLE, n)))
	}

	if n, ok, err := intKeyword(raw, "minProperties"); err != nil {
		return nil, nil, false, err
	} else if ok {
		e = e.And(fr.gate(objectTypes, types, filter.JsonMapPropertyCount(fr.path, filter.OpGE, n)))
	}
	if n, ok, err := intKeyword(raw, "maxProperties"); err != nil {
		return nil, nil, false, err
	} else if ok {
		e = e.And(fr.gate(objectTypes, types, filter.JsonMapPropertyCount(fr.path, filter.OpLE, n)))
	}

	if v, ok := raw["multipleOf"]; ok {
		k, ok := asFloat(v)
		if !ok {
			return nil, nil, false, apperror.NewSchemaInvalid(fmt.Errorf("multipleOf must be numeric"))
		}
		e = e.And(fr.gate(numericTypes, types, filter.MultipleOf(fr.path, k)))
	}

	if v, ok := raw["pattern"]; ok {
		pat, ok := v.(string)
		if !ok {
			return nil, nil, false, apperror.NewSchemaInvalid(fmt.Errorf("pattern must be a string"))
		}
		e = e.And(fr.gate(stringTypes, types, filter.MatchesRegex(fr.path, pat, false)))
	}

	if v, ok := raw["format"]; ok {
		name, ok := v.(string)
		if !ok {
			return nil, nil, false, apperror.NewSchemaInvalid(fmt.Errorf("format must be a string"))
		}
		if _, known := knownFormats[name]; !known {
			return nil, nil, false, apperror.NewSchemaInvalid(fmt.Errorf("unknown format %q", name))
		}
		fr.format = name
		if pat, ok := formatPatterns[name]; ok {
			e = e.And(fr.gate(stringTypes, types, filter.MatchesRegex(fr.path, pat, false)))
		}
	}

	if fc, err := fr.formatBound(raw, "formatMinimum", filter.OpGE); err != nil {
		return nil, nil, false, err
	} else if fc != nil {
		e = e.And(fc)
	}
	if fc, err := fr.formatBound(raw, "formatMaximum", filter.OpLE); err != nil {
		return nil, nil, false, err
	} else if fc != nil {
		e = e.And(fc)
	}

	if v, ok := raw["regexp"]; ok {
		pat, ignoreCase, err := parseRegexpKeyword(v)
		if err != nil {
			return nil, nil, false, err
		}
		e = e.And(fr.gate(stringTypes, types, filter.MatchesRegex(fr.path, pat, ignoreCase)))
	}

	if v, ok := raw["fullTextSearch"]; ok {
		term, err := parseFullTextSearch(v)
		if err != nil {
			return nil, nil, false, err
		}
		e = e.And(filter.FullTextSearch(fr.path, term, false))
	}

	if v, ok := raw["items"]; ok {
		itf, tupleLen, err := fr.compileItems(v)
		if err != nil {
			return nil, nil, false, err
		}
		if tupleLen >= 0 {
			if ap, ok := raw["additionalProperties"].(bool); ok && !ap {
				itf = expr.NewAnd().And(itf).And(filter.ArrayLength(fr.path, filter.OpLE, tupleLen))
			}
		}
		e = e.And(fr.gate(arrayTypes, types, itf))
	}

	if v, ok := raw["contains"]; ok {
		inner, ok := v.(map[string]any)
		if !ok {
			return nil, nil, false, apperror.NewSchemaInvalid(fmt.Errorf("contains must be an object"))
		}
		elemPath := path.NewJSONRoot("elem")
		cfr := &frame{ctx: fr.ctx, path: elemPath, proj: project.New(), correlated: true}
		cf, _, _, err := cfr.compile(inner)
		if err != nil {
			return nil, nil, false, err
		}
		if onlyConstOrType(inner) {
			if cv, ok := inner["const"]; ok {
				e = e.And(filter.Literal(fmt.Sprintf("%s @> %s", fr.path.Render(false), jsonLiteral([]any{cv}))))
			} else {
				e = e.And(fr.gate(arrayTypes, types, filter.ArrayContains(fr.path, cf, false)))
			}
		} else {
			e = e.And(fr.gate(arrayTypes, types, filter.ArrayContains(fr.path, cf, false)))
		}
	}

	if v, ok := raw["not"]; ok {
		inner, ok := v.(map[string]any)
		if !ok {
			return nil, nil, false, apperror.NewSchemaInvalid(fmt.Errorf("not must be an object"))
		}
		cf, _, _, err := fr.compile(inner)
		if err != nil {
			return nil, nil, false, err
		}
		e = e.And(filter.Not(cf))
	}

	if v, ok := raw["allOf"]; ok {
		branches, err := asSchemaList(v, "allOf")
		if err != nil {
			return nil, nil, false, err
		}
		anyImplies := false
		for _, b := range branches {
			cf, _, implies, err := fr.compile(b)
			if err != nil {
				return nil, nil, false, err
			}
			e = e.And(cf)
			anyImplies = anyImplies || implies
		}
		impliesExists = impliesExists || anyImplies
	}

	if v, ok := raw["anyOf"]; ok {
		branches, err := asSchemaList(v, "anyOf")
		if err != nil {
			return nil, nil, false, err
		}
		or := expr.NewOr()
		allImply := true
		for _, b := range branches {
			branchProj := fr.proj.AddBranch(filter.Literal("true"))
			bfr := &frame{ctx: fr.ctx, path: fr.path, proj: branchProj, selectTree: fr.selectTree, correlated: fr.correlated}
			cf, _, implies, err := bfr.compile(b)
			if err != nil {
				return nil, nil, false, err
			}
			or = or.Or(cf)
			allImply = allImply && implies
		}
		e = e.And(or)
		impliesExists = impliesExists || allImply
	}

	requiredNames := stringSlice(raw["required"])
	requiredSet := make(map[string]bool, len(requiredNames))
	for _, r := range requiredNames {
		requiredSet[r] = true
	}
	seenProps := make(map[string]bool, len(requiredNames))

	if v, ok := raw["properties"]; ok {
		props, ok := v.(map[string]any)
		if !ok {
			return nil, nil, false, apperror.NewSchemaInvalid(fmt.Errorf("properties must be an object"))
		}

		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			childSchema, ok := props[key].(map[string]any)
			if !ok {
				return nil, nil, false, apperror.NewSchemaInvalid(fmt.Errorf("properties.%s must be an object", key))
			}
			fr.proj.MarkSeen(key)
			seenProps[key] = true
			selTree, include := fr.selected(key)
			if !include {
				continue
			}

			childPath := fr.path.Push(key)
			childProj := project.New()
			cfr := &frame{ctx: fr.ctx, path: childPath, proj: childProj, selectTree: selTree, correlated: fr.correlated}
			cf, _, childImplies, err := cfr.compile(childSchema)
			if err != nil {
				return nil, nil, false, err
			}

			required := requiredSet[key]
			propFilter := fr.existenceGate(childPath, cf, required, childImplies)
			if required && cf.Unsatisfiable() {
				return filter.False(), types, true, nil
			}
			e = e.And(propFilter)

			fr.proj.AddField(key, childPath.Render(!childPath.IsJSONProperty()), childProj)
		}
	}

	// required may name keys properties never describes (or properties
	// may be absent entirely); finalize() still owes each of those an
	// existence check since no subschema exists to imply one.
	for _, name := range requiredNames {
		if seenProps[name] {
			continue
		}
		if _, include := fr.selected(name); !include {
			continue
		}
		childPath := fr.path.Push(name)
		e = e.And(fr.existenceGate(childPath, filter.True(), true, false))
	}

	if v, ok := raw["additionalProperties"]; ok {
		if b, ok := v.(bool); ok {
			fr.proj.SetAdditionalProperties(b)
		}
	}

	if v, ok := raw["$$links"]; ok {
		links, ok := v.(map[string]any)
		if !ok {
			return nil, nil, false, apperror.NewSchemaInvalid(fmt.Errorf("$$links must be an object"))
		}
		verbs := make([]string, 0, len(links))
		for verb := range links {
			verbs = append(verbs, verb)
		}
		sort.Strings(verbs)
		for _, verb := range verbs {
			inner, ok := links[verb].(map[string]any)
			if !ok {
				return nil, nil, false, apperror.NewSchemaInvalid(fmt.Errorf("$$links.%s must be an object", verb))
			}
			selTree, include := fr.selected(verb)
			if !include {
				continue
			}
			lfr := &frame{ctx: fr.ctx, path: path.NewRoot("linked"), proj: project.New(), selectTree: selTree, correlated: false}
			cf, _, _, err := lfr.compile(inner)
			if err != nil {
				return nil, nil, false, err
			}
			e = e.And(filter.NewLink(verb, cf))
			fr.proj.AddLinkVerb(verb)
			fr.ctx.SetLinkPayload(verb, lfr.proj)
		}
	}

	return e, types, impliesExists, nil
}

// gate implements ifTypeThen: drops the gate when the current type set
// already fits wholly within allowed, folds to true when the
// intersection is empty, and otherwise emits type ⇒ cond.
func (fr *frame) gate(allowed []string, current map[string]bool, cond filter.Filter) filter.Filter {
	if subset(current, allowed) {
		return cond
	}
	if !intersects(current, allowed) {
		return filter.True()
	}
	if !fr.path.IsJSONProperty() {
		return cond
	}
	gate := filter.IsOfJsonTypes(fr.path, allowed)
	return filter.IfThenElse(gate, cond, filter.True())
}

// existenceGate implements the per-property existence policy of
// finalize(): a required property whose filter implies existence is
// emitted as-is; a required-but-unsatisfiable filter propagates up;
// otherwise an optional property is ¬exists ∨ filter.
func (fr *frame) existenceGate(p *path.Path, childFilter filter.Filter, required, childImplies bool) filter.Filter {
	if childFilter.Unsatisfiable() {
		if required {
			return filter.False()
		}
		return filter.IsNull(p, true)
	}
	if required && childImplies {
		return childFilter
	}
	exists := filter.IsNull(p, false)
	if required {
		return expr.NewAnd().And(exists).And(childFilter)
	}
	notExists := filter.IsNull(p, true)
	return expr.NewOr().Or(notExists).Or(childFilter)
}

func (fr *frame) compileConstOrEnum(raw map[string]any) (filter.Filter, error) {
	if val, ok := raw["const"]; ok {
		if onlyConstOrType(raw) && fr.path.IsJSONProperty() {
			return filter.Literal(fmt.Sprintf("%s @> %s", fr.path.Render(false), jsonLiteral(val))), nil
		}
		return filter.Equals(fr.path, []string{fr.literalFor(val)}), nil
	}
	if v, ok := raw["enum"]; ok {
		arr, ok := v.([]any)
		if !ok {
			return nil, apperror.NewSchemaInvalid(fmt.Errorf("enum must be an array"))
		}
		if len(arr) == 0 {
			return nil, apperror.NewSchemaInvalid(fmt.Errorf("enum must not be empty"))
		}
		vals := make([]string, len(arr))
		for i, v := range arr {
			vals[i] = fr.literalFor(v)
		}
		return filter.Equals(fr.path, vals), nil
	}
	return nil, nil
}

func (fr *frame) literalFor(v any) string {
	if fr.path.IsJSONProperty() {
		return jsonLiteral(v)
	}
	switch t := v.(type) {
	case string:
		return quoteLiteral(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return quoteLiteral(fmt.Sprintf("%v", t))
	}
}

func (fr *frame) numericKeyword(raw map[string]any, key string, build func(*path.Path, float64) filter.Filter) (filter.Filter, bool, error) {
	v, ok := raw[key]
	if !ok {
		return nil, false, nil
	}
	n, ok := asFloat(v)
	if !ok {
		return nil, false, apperror.NewSchemaInvalid(fmt.Errorf("%s must be numeric", key))
	}
	return build(fr.path, n), true, nil
}

func (fr *frame) formatBound(raw map[string]any, key string, op filter.CompOp) (filter.Filter, error) {
	v, ok := raw[key]
	if !ok {
		return nil, nil
	}
	if fr.format == "" {
		return nil, apperror.NewSchemaInvalid(fmt.Errorf("%s requires a compatible format", key))
	}
	castType, known := knownFormats[fr.format]
	if !known || castType == "" {
		return nil, apperror.NewSchemaInvalid(fmt.Errorf("%s is not compatible with format %q", key, fr.format))
	}
	s, ok := v.(string)
	if !ok {
		return nil, apperror.NewSchemaInvalid(fmt.Errorf("%s must be a string", key))
	}
	return filter.ValueIs(fr.path, op, quoteLiteral(s)+"::"+castType, castType), nil
}

// compileItems implements both the object form ("no element violates
// inner") and the tuple form (per-index conjunction using the
// "set-last without grow" path mutation).
// compileItems returns the compiled filter and, for the tuple form, the
// number of tuple slots (or -1 for the object form, which has none).
func (fr *frame) compileItems(v any) (filter.Filter, int, error) {
	switch t := v.(type) {
	case map[string]any:
		elemPath := path.NewJSONRoot("elem")
		cfr := &frame{ctx: fr.ctx, path: elemPath, proj: project.New(), correlated: true}
		inner, _, _, err := cfr.compile(t)
		if err != nil {
			return nil, -1, err
		}
		return filter.ArrayContains(fr.path, filter.Not(inner), true), -1, nil
	case []any:
		e := expr.NewAnd()
		elemPath := fr.path.PushPlaceholder()
		for i, item := range t {
			sch, ok := item.(map[string]any)
			if !ok {
				return nil, -1, apperror.NewSchemaInvalid(fmt.Errorf("items[%d] must be an object", i))
			}
			elemPath.SetLast(strconv.Itoa(i))
			cfr := &frame{ctx: fr.ctx, path: elemPath, proj: project.New(), correlated: true}
			cf, _, _, err := cfr.compile(sch)
			if err != nil {
				return nil, -1, err
			}
			guard := filter.ArrayLength(fr.path, filter.OpGT, i)
			e = e.And(filter.IfThenElse(guard, cf, filter.True()))
		}
		return e, len(t), nil
	default:
		return nil, -1, apperror.NewSchemaInvalid(fmt.Errorf("items must be an object or array"))
	}
}

func onlyConstOrType(raw map[string]any) bool {
	for k := range raw {
		if k != "const" && k != "type" {
			return false
		}
	}
	return true
}

func parseRegexpKeyword(v any) (pattern string, ignoreCase bool, err error) {
	switch t := v.(type) {
	case string:
		return t, false, nil
	case map[string]any:
		p, _ := t["pattern"].(string)
		if p == "" {
			return "", false, apperror.NewSchemaInvalid(fmt.Errorf("regexp.pattern is required"))
		}
		flags, _ := t["flags"].(string)
		return p, strings.Contains(flags, "i"), nil
	default:
		return "", false, apperror.NewSchemaInvalid(fmt.Errorf("regexp must be a string or object"))
	}
}

func parseFullTextSearch(v any) (string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", apperror.NewSchemaInvalid(fmt.Errorf("fullTextSearch must be an object"))
	}
	term, _ := m["term"].(string)
	if term == "" {
		return "", apperror.NewSchemaInvalid(fmt.Errorf("fullTextSearch.term is required"))
	}
	return term, nil
}

func asSchemaList(v any, key string) ([]map[string]any, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, apperror.NewSchemaInvalid(fmt.Errorf("%s must be an array", key))
	}
	out := make([]map[string]any, len(arr))
	for i, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, apperror.NewSchemaInvalid(fmt.Errorf("%s[%d] must be an object", key, i))
		}
		out[i] = m
	}
	return out, nil
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func typeList(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, apperror.NewSchemaInvalid(fmt.Errorf("type array must contain only strings"))
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, apperror.NewSchemaInvalid(fmt.Errorf("type must be a string or array of strings"))
	}
}

func fullTypeSet() map[string]bool {
	m := make(map[string]bool, len(allTypes))
	for _, t := range allTypes {
		m[t] = true
	}
	return m
}

func intersectTypes(cur map[string]bool, requested []string) map[string]bool {
	req := make(map[string]bool, len(requested))
	for _, t := range requested {
		req[t] = true
	}
	out := make(map[string]bool)
	for t := range cur {
		if req[t] {
			out[t] = true
		}
	}
	return out
}

func sortedTypes(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func subset(current map[string]bool, allowed []string) bool {
	allowedSet := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = true
	}
	for t := range current {
		if !allowedSet[t] {
			return false
		}
	}
	return true
}

func intersects(current map[string]bool, allowed []string) bool {
	for _, t := range allowed {
		if current[t] {
			return true
		}
	}
	return false
}

var numericTypes = []string{"number", "integer"}
var stringTypes = []string{"string"}
var arrayTypes = []string{"array"}
var objectTypes = []string{"object"}

func intKeyword(raw map[string]any, key string) (int, bool, error) {
	v, ok := raw[key]
	if !ok {
		return 0, false, nil
	}
	n, ok := asFloat(v)
	if !ok {
		return 0, false, apperror.NewSchemaInvalid(fmt.Errorf("%s must be numeric", key))
	}
	return int(n), true, nil
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func numLiteral(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func jsonLiteral(v any) string {
	b, _ := json.Marshal(v)
	return quoteLiteral(string(b)) + "::jsonb"
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
