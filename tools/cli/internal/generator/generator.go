// Package generator turns a directory of JSON Schema documents — one
// per registered contract type's data shape — into Go struct
// definitions, so callers working against a known type get a typed
// accessor instead of hand-decoding a contract's data column.
package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
)

// Generate reads every "*.json" file in schemaDir and writes one
// "<slug>_gen.go" file per schema into outDir, declaring package pkgName.
//
// Schemas are decoded into a generic map[string]any rather than
// *jsonschema.Schema: this tool only needs the "type"/"properties"/
// "items"/"required" keywords, and walking the raw map sidesteps
// depending on that library's exact struct layout a second time (the
// schema compiler already takes on that risk once, via its own toRaw
// round-trip).
func Generate(schemaDir, outDir, pkgName string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(schemaDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("generator: glob %q: %w", schemaDir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("generator: mkdir %q: %w", outDir, err)
	}

	var written []string
	for _, path := range matches {
		slug := strings.TrimSuffix(filepath.Base(path), ".json")
		raw, err := os.ReadFile(path)
		if err != nil {
			return written, fmt.Errorf("generator: read %q: %w", path, err)
		}

		var schema map[string]any
		if err := json.Unmarshal(raw, &schema); err != nil {
			return written, fmt.Errorf("generator: parse %q: %w", path, err)
		}

		src, err := renderStruct(pkgName, slug, schema)
		if err != nil {
			return written, fmt.Errorf("generator: render %q: %w", slug, err)
		}

		outPath := filepath.Join(outDir, slug+"_gen.go")
		if err := os.WriteFile(outPath, src, 0o644); err != nil {
			return written, fmt.Errorf("generator: write %q: %w", outPath, err)
		}
		written = append(written, outPath)
	}
	return written, nil
}

type field struct {
	GoName   string
	JSONName string
	GoType   string
	Required bool
}

type structData struct {
	Package  string
	TypeName string
	TypeSlug string
	Fields   []field
}

var fileTemplate = template.Must(template.New("gen").Parse(`// Code generated by autumndb-types from the "{{.TypeSlug}}" contract
// type's schema. DO NOT EDIT.

package {{.Package}}

// {{.TypeName}} is the typed data payload for "{{.TypeSlug}}" contracts.
type {{.TypeName}} struct {
{{- range .Fields}}
	{{.GoName}} {{.GoType}} ` + "`json:\"{{.JSONName}}{{if not .Required}},omitempty{{end}}\"`" + `
{{- end}}
}
`))

func renderStruct(pkgName, slug string, schema map[string]any) ([]byte, error) {
	required := make(map[string]bool)
	if r, ok := schema["required"].([]any); ok {
		for _, name := range r {
			if s, ok := name.(string); ok {
				required[s] = true
			}
		}
	}

	props, _ := schema["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]field, 0, len(names))
	for _, name := range names {
		propSchema, _ := props[name].(map[string]any)
		fields = append(fields, field{
			GoName:   exportedName(name),
			JSONName: name,
			GoType:   goType(propSchema),
			Required: required[name],
		})
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, structData{
		Package:  pkgName,
		TypeName: exportedName(slug),
		TypeSlug: slug,
		Fields:   fields,
	}); err != nil {
		return nil, err
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("gofmt: %w", err)
	}
	return formatted, nil
}

// goType maps a subset of JSON Schema types to Go types, covering the
// scalar/array/object shapes a contract's data column actually uses;
// anything more exotic (oneOf, $ref) falls back to any.
func goType(s map[string]any) string {
	if s == nil {
		return "any"
	}
	switch s["type"] {
	case "string":
		return "string"
	case "integer":
		return "int64"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "array":
		items, _ := s["items"].(map[string]any)
		return "[]" + goType(items)
	case "object":
		return "map[string]any"
	default:
		return "any"
	}
}

// exportedName turns a slug like "contract-type" into "ContractType".
func exportedName(slug string) string {
	parts := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
