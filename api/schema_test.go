package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldType(t *testing.T) {
	ft, err := ParseFieldType(" Image_Path ")
	require.NoError(t, err)
	assert.Equal(t, TypeImagePath, ft)

	_, err = ParseFieldType("blob")
	assert.Error(t, err)
}

func TestParseKindTag(t *testing.T) {
	k, err := ParseKindTag(1)
	require.NoError(t, err)
	assert.Equal(t, KindGame, k)

	k, err = ParseKindTag(2)
	require.NoError(t, err)
	assert.Equal(t, KindFolder, k)

	_, err = ParseKindTag(0)
	assert.Error(t, err)
	assert.Equal(t, "kind(7)", Kind(7).String())
}

func TestDeclarations_Lookup(t *testing.T) {
	decls := DefaultDeclarations()

	d, ok := decls.Lookup(KindGame, "players")
	require.True(t, ok)
	assert.Equal(t, TypeInt, d.Type)
	require.NotNil(t, d.Default)
	assert.Equal(t, "1", *d.Default)

	_, ok = decls.Lookup(KindFolder, "players")
	assert.False(t, ok)
}

func TestSystem_IsGameFile(t *testing.T) {
	sys := System{ID: "snes", Extensions: []string{".smc", ".sfc"}}

	assert.True(t, sys.IsGameFile("mario.smc"))
	assert.True(t, sys.IsGameFile("a.b.sfc"))
	assert.False(t, sys.IsGameFile("mario.SMC"))
	assert.False(t, sys.IsGameFile("smc"))
	assert.False(t, sys.IsGameFile("mario.smc.zip"))
}
