package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigs_RequiresDatabase(t *testing.T) {
	_, err := execute(t, "configs")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "CASM_MONTE_DB")
}

func TestConfigs_Empty(t *testing.T) {
	out, err := execute(t, "configs", "--db", filepath.Join(t.TempDir(), "project.db"))
	require.NoError(t, err)
	assert.Equal(t, "No configurations stored\n", out)
}

func TestConfigs_ListsEnumeratedConfigurations(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "project.db")
	path := writeSettings(t, dir, func(doc map[string]any) {
		doc["enumeration"] = map[string]any{
			"metric":          "formation_energy",
			"N_config":        3,
			"check_existence": true,
			"save_configs":    true,
		}
	})
	_, err := execute(t, "run", "--db", db, "--seed", "8", path)
	require.NoError(t, err)

	t.Setenv("CASM_MONTE_DB", db)
	out, err := execute(t, "--format", "json", "configs")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)
	list := resp.Data.([]any)
	require.NotEmpty(t, list)
	for _, item := range list {
		c := item.(map[string]any)
		assert.NotEmpty(t, c["name"])
		assert.NotEmpty(t, c["fingerprint"])
	}
}
