package streams

import (
	"testing"

	jsonschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
)

func TestTopTypeConstExtractsPinnedType(t *testing.T) {
	schema := &jsonschema.Schema{
		Properties: map[string]*jsonschema.Schema{
			"type": {Const: "widget"},
		},
	}
	assert.Equal(t, "widget", topTypeConst(schema))
}

func TestTopTypeConstEmptyWhenUnpinned(t *testing.T) {
	schema := &jsonschema.Schema{
		Properties: map[string]*jsonschema.Schema{
			"type": {Type: "string"},
		},
	}
	assert.Equal(t, "", topTypeConst(schema))
}

func TestTopTypeConstNilSchema(t *testing.T) {
	assert.Equal(t, "", topTypeConst(nil))
}

func TestBuildPrefilterNilWhenUnpinned(t *testing.T) {
	assert.Nil(t, buildPrefilter(&jsonschema.Schema{}, ""))
}

func TestBuildPrefilterRejectsMismatchedType(t *testing.T) {
	prefilter := buildPrefilter(&jsonschema.Schema{}, "widget")
	matches, decided := prefilter(Payload{CardType: "gadget"})
	assert.False(t, matches)
	assert.True(t, decided)
}

func TestBuildPrefilterDefersOnMatchingType(t *testing.T) {
	prefilter := buildPrefilter(&jsonschema.Schema{}, "widget")
	matches, decided := prefilter(Payload{CardType: "widget"})
	assert.False(t, matches)
	assert.False(t, decided)
}
