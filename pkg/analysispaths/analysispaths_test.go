package analysispaths_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/swissknife/pkg/analysispaths"
	"github.com/Sumatoshi-tech/swissknife/pkg/config"
	"github.com/Sumatoshi-tech/swissknife/pkg/envstore"
	"github.com/Sumatoshi-tech/swissknife/pkg/languages"
)

func TestApply_ExportsFilters(t *testing.T) {
	t.Parallel()

	env := envstore.NewMapStore(nil)
	cfg := config.New()
	cfg.Paths = []string{"src", "lib"}
	cfg.PathsIgnore = []string{"vendor"}

	warn, err := analysispaths.Apply(env, cfg, []languages.Language{languages.Python})
	require.NoError(t, err)

	assert.False(t, warn)
	assert.Equal(t, "src\nlib", env.Get(analysispaths.EnvInclude))
	assert.Equal(t, "vendor", env.Get(analysispaths.EnvExclude))
	assert.Equal(t, []string{analysispaths.EnvInclude, analysispaths.EnvExclude}, env.Exported())
}

func TestApply_Warning(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		paths       []string
		pathsIgnore []string
		langs       []languages.Language
		want        bool
	}{
		{"no filters compiled", nil, nil, []languages.Language{languages.Java}, false},
		{"paths interpreted only", []string{"src"}, nil, []languages.Language{languages.JavaScript, languages.Python}, false},
		{"paths with compiled", []string{"src"}, nil, []languages.Language{languages.Python, languages.Go}, true},
		{"ignore with compiled", nil, []string{"vendor"}, []languages.Language{languages.CPP}, true},
		{"filters no languages", []string{"src"}, nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.New()
			cfg.Paths = append(cfg.Paths, tt.paths...)
			cfg.PathsIgnore = append(cfg.PathsIgnore, tt.pathsIgnore...)

			warn, err := analysispaths.Apply(envstore.NewMapStore(nil), cfg, tt.langs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, warn)
		})
	}
}

func TestApply_NoFiltersExportsNothing(t *testing.T) {
	t.Parallel()

	env := envstore.NewMapStore(nil)

	_, err := analysispaths.Apply(env, config.New(), []languages.Language{languages.Go})
	require.NoError(t, err)

	assert.Empty(t, env.Exported())
}
