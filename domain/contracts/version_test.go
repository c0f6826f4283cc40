package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionedSlugRoundTrips(t *testing.T) {
	vs, err := ParseVersionedSlug("card@1.2.3-beta+42")
	require.NoError(t, err)
	assert.Equal(t, "card", vs.Slug)
	assert.Equal(t, Version{Major: 1, Minor: 2, Patch: 3, Prerelease: "beta", Build: "42"}, vs.Version)
	assert.False(t, vs.Latest)
}

func TestParseVersionedSlugMissingComponentsDefaultToZero(t *testing.T) {
	vs, err := ParseVersionedSlug("card@1")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 1}, vs.Version)
}

func TestParseVersionedSlugLatestToken(t *testing.T) {
	vs, err := ParseVersionedSlug("card@latest")
	require.NoError(t, err)
	assert.True(t, vs.Latest)
	assert.Equal(t, "card", vs.Slug)
}

func TestParseVersionedSlugRejectsMissingAt(t *testing.T) {
	_, err := ParseVersionedSlug("card-1.0.0")
	assert.Error(t, err)
}

func TestValidateSlugRejectsUppercaseAndUnderscore(t *testing.T) {
	assert.Error(t, ValidateSlug("Card_Type"))
	assert.NoError(t, ValidateSlug("card-type"))
}

func TestValidateSlugRejectsOverLength(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, ValidateSlug(string(long)))
}
