package compiler

import (
	"strings"
	"testing"

	jsonschema "github.com/google/jsonschema-go/jsonschema"
)

func TestCompileEmptySchemaYieldsRootFilter(t *testing.T) {
	res, err := Compile(&jsonschema.Schema{}, nil, Options{MaxLimit: 1000})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if res.Filter == nil {
		t.Fatal("expected a non-nil root filter for an empty schema")
	}
}

func TestCompileEmptyEnumIsSchemaInvalid(t *testing.T) {
	schema := &jsonschema.Schema{
		Type:       "object",
		Required:   []string{"slug"},
		Properties: map[string]*jsonschema.Schema{"slug": {Enum: []any{}}},
	}
	_, err := Compile(schema, nil, Options{MaxLimit: 1000})
	if err == nil {
		t.Fatal("expected schema-invalid error for empty enum")
	}
}

func TestCompileInvalidLimitRejected(t *testing.T) {
	_, err := Compile(&jsonschema.Schema{}, nil, Options{Limit: 5000, MaxLimit: 1000})
	if err == nil {
		t.Fatal("expected invalid-limit error")
	}
}

func TestCompileConstSimpleProperty(t *testing.T) {
	schema := &jsonschema.Schema{
		Type:       "object",
		Required:   []string{"type"},
		Properties: map[string]*jsonschema.Schema{"type": {Const: "card@1.0.0"}},
	}
	res, err := Compile(schema, nil, Options{MaxLimit: 1000})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	got := res.Filter.Render(res.Context)
	if !strings.Contains(got, `"c"."type" = 'card@1.0.0'`) {
		t.Errorf("Render() = %q, want a column equality check", got)
	}
}

func TestCompileLinksRegistersVerb(t *testing.T) {
	schema := &jsonschema.Schema{
		Extra: map[string]any{
			"$$links": map[string]any{
				"has attached element": map[string]any{"type": "object"},
			},
		},
	}
	res, err := Compile(schema, nil, Options{MaxLimit: 1000})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	_ = res.Filter.Render(res.Context)
	if len(res.Context.LinksForVerb("has attached element")) != 1 {
		t.Error("expected the $$links verb to register in the build context")
	}
	if len(res.Projection.LinkVerbs()) != 1 {
		t.Error("expected the projection tree to record the link verb")
	}
}
