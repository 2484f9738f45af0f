package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnimRefsAppendKeepsOrder(t *testing.T) {
	var refs AnimRefs
	refs = refs.Append("idle", "https://a/idle.glb")
	refs = refs.Append("biped:agree", "https://a/agree.glb")
	refs = refs.Append("biped:dance", "https://a/dance.glb")

	assert.Equal(t, AnimRefs{
		{Preset: "idle", URL: "https://a/idle.glb"},
		{Preset: "biped:agree", URL: "https://a/agree.glb"},
		{Preset: "biped:dance", URL: "https://a/dance.glb"},
	}, refs)
}

func TestAnimRefsAppendOverwritesInPlace(t *testing.T) {
	refs := AnimRefs{
		{Preset: "idle", URL: "https://a/old.glb"},
		{Preset: "biped:agree", URL: "https://a/agree.glb"},
	}
	refs = refs.Append("idle", "https://a/new.glb")

	require.Len(t, refs, 2)
	assert.Equal(t, "idle", refs[0].Preset)
	assert.Equal(t, "https://a/new.glb", refs[0].URL)
}

func TestAnimRefsGet(t *testing.T) {
	refs := AnimRefs{{Preset: "idle", URL: "https://a/idle.glb"}}

	url, ok := refs.Get("idle")
	assert.True(t, ok)
	assert.Equal(t, "https://a/idle.glb", url)

	_, ok = refs.Get("biped:dance")
	assert.False(t, ok)
}

func TestAnimRefsValueScanRoundTrip(t *testing.T) {
	refs := AnimRefs{
		{Preset: "idle", URL: "https://a/idle.glb"},
		{Preset: "biped:agree", URL: "https://a/agree.glb"},
	}

	value, err := refs.Value()
	require.NoError(t, err)

	var decoded AnimRefs
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, refs, decoded)
}

func TestAnimRefsScanNil(t *testing.T) {
	var refs AnimRefs
	require.NoError(t, refs.Scan(nil))
	assert.Nil(t, refs)
}
