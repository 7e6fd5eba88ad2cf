package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldloom/internal/config"
	"worldloom/internal/domain/frontier"
)

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"frontier"}, Names())

	d, err := Lookup("frontier", nil)
	require.NoError(t, err)
	assert.Equal(t, "frontier", d.Name)

	_, err = Lookup("atlantis", nil)
	assert.ErrorIs(t, err, ErrUnknownDomain)

	raw, err := DefaultSchema("frontier")
	require.NoError(t, err)
	assert.Equal(t, frontier.SchemaYAML, raw)
}

func TestLoadHonorsSchemaOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.yaml"), frontier.SchemaYAML, 0o644))
	cfgPath := filepath.Join(dir, "worldloom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("project: demo\nversion: 1\ndomain: frontier\nschema: schema.yaml\n"), 0o644))

	cfg, err := config.LoadProjectConfig(cfgPath)
	require.NoError(t, err)
	d, err := Load(cfg)
	require.NoError(t, err)
	assert.True(t, d.Schema.IsValidRelationshipKind("splinter_of"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.yaml"), []byte("version: 1\nentity_kinds: []\n"), 0o644))
	_, err = Load(cfg)
	assert.Error(t, err)
}
