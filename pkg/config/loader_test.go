package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/swissknife/pkg/config"
)

func newStore(t *testing.T) (*config.Store, string) {
	t.Helper()

	workspace := t.TempDir()

	return &config.Store{StateDir: t.TempDir(), Workspace: workspace}, workspace
}

func writeConfig(t *testing.T, workspace, name, content string) {
	t.Helper()

	path := filepath.Join(workspace, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_EmptyPathReturnsDefaultsAndPersists(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)

	cfg, err := store.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.New(), cfg)
	assert.FileExists(t, store.StatePath())
}

func TestLoad_ValidFile(t *testing.T) {
	t.Parallel()

	store, workspace := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(workspace, "custom"), 0o755))

	writeConfig(t, workspace, ".github/codeql.yml", `name: nightly
disable-default-queries: true
queries:
  - uses: security-extended
  - uses: octo/packs/java@v1
  - uses: ./custom
paths-ignore:
  - vendor
  - third_party
paths:
  - src
unknown-key: ignored
`)

	cfg, err := store.Load(".github/codeql.yml")
	require.NoError(t, err)

	realWorkspace, err := filepath.EvalSymlinks(workspace)
	require.NoError(t, err)

	assert.Equal(t, "nightly", cfg.Name)
	assert.True(t, cfg.DisableDefaultQueries)
	assert.Equal(t, []config.Suite{config.SuiteSecurityExtended}, cfg.AdditionalSuites)
	assert.Equal(t, []config.ExternalQuery{{Repository: "octo/packs", Ref: "v1", Path: "java"}}, cfg.ExternalQueries)
	assert.Equal(t, []string{filepath.Join(realWorkspace, "custom")}, cfg.AdditionalQueries)
	assert.Equal(t, []string{"vendor", "third_party"}, cfg.PathsIgnore)
	assert.Equal(t, []string{"src"}, cfg.Paths)
}

func TestLoad_PersistedCopyWins(t *testing.T) {
	t.Parallel()

	store, workspace := newStore(t)
	writeConfig(t, workspace, "first.yml", "name: first\n")
	writeConfig(t, workspace, "second.yml", "name: second\n")

	first, err := store.Load("first.yml")
	require.NoError(t, err)

	second, err := store.Load("second.yml")
	require.NoError(t, err)

	assert.Equal(t, "first", first.Name)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(store.StatePath())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "first", raw["name"])
	assert.Contains(t, raw, "disableDefaultQueries")
	assert.Contains(t, raw, "pathsIgnore")
}

func TestLoad_OutsideWorkspace(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)

	_, err := store.Load("../elsewhere.yml")
	require.ErrorIs(t, err, config.ErrOutsideWorkspace)
	assert.Contains(t, err.Error(), "is outside of the workspace")
	assert.NoFileExists(t, store.StatePath())
}

func TestLoad_NotFound(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)

	_, err := store.Load("missing.yml")
	require.ErrorIs(t, err, config.ErrNotFound)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestParse_InvalidProperties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		property string
		kind     error
	}{
		{"name not string", "name: 42\n", "name", config.ErrInvalidProperty},
		{"name empty", "name: \"\"\n", "name", config.ErrInvalidProperty},
		{"disable not bool", "disable-default-queries: \"yes\"\n", "disable-default-queries", config.ErrInvalidProperty},
		{"queries not array", "queries: security-extended\n", "queries", config.ErrInvalidProperty},
		{"query without uses", "queries:\n  - name: x\n", "queries.uses", config.ErrInvalidQueryReference},
		{"query uses not string", "queries:\n  - uses: [a]\n", "queries.uses", config.ErrInvalidQueryReference},
		{"paths-ignore not array", "paths-ignore: vendor\n", "paths-ignore", config.ErrInvalidProperty},
		{"paths-ignore empty entry", "paths-ignore:\n  - \"\"\n", "paths-ignore", config.ErrInvalidProperty},
		{"paths number entry", "paths:\n  - 1\n", "paths", config.ErrInvalidProperty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Parse([]byte(tt.content), testConfigFile, t.TempDir())
			require.ErrorIs(t, err, tt.kind)

			var cfgErr *config.Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.property, cfgErr.Property)
			assert.Contains(t, err.Error(), `property "`+tt.property+`"`)
		})
	}
}

func TestParse_EmptyDocuments(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"", "---\n", "# only a comment\n"} {
		cfg, err := config.Parse([]byte(content), testConfigFile, t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, config.New(), cfg)
	}
}

func TestParse_FirstViolationWins(t *testing.T) {
	t.Parallel()

	_, err := config.Parse([]byte("name: 1\npaths: x\n"), testConfigFile, t.TempDir())

	var cfgErr *config.Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "name", cfgErr.Property)
}

func TestLoadPersisted_Missing(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)

	_, err := store.LoadPersisted()
	require.ErrorIs(t, err, os.ErrNotExist)
}
