package languages_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/swissknife/pkg/envstore"
	"github.com/Sumatoshi-tech/swissknife/pkg/languages"
)

type fakeSource struct {
	stats []languages.Stat
	err   error
	calls int
}

func (fs *fakeSource) Stats(context.Context) ([]languages.Stat, error) {
	fs.calls++

	return fs.stats, fs.err
}

func TestParseOverride(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  []languages.Language
	}{
		{"python, go ,go", []languages.Language{languages.Python, languages.Go}},
		{"java", []languages.Language{languages.Java}},
		{" , ,", []languages.Language{}},
		{"rust,cpp,rust", []languages.Language{"rust", languages.CPP}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, languages.ParseOverride(tt.input))
		})
	}
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want languages.Language
		ok   bool
	}{
		{"C", languages.CPP, true},
		{"C++", languages.CPP, true},
		{"C#", languages.CSharp, true},
		{"Go", languages.Go, true},
		{"Java", languages.Java, true},
		{"JavaScript", languages.JavaScript, true},
		{"TypeScript", languages.JavaScript, true},
		{"Python", languages.Python, true},
		{"Shell", "", false},
		{"python", "", false},
	}

	for _, tt := range tests {
		lang, ok := languages.Canonical(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, lang, tt.name)
	}
}

func TestLanguageClasses(t *testing.T) {
	t.Parallel()

	assert.True(t, languages.IsTraced(languages.CPP))
	assert.True(t, languages.IsTraced(languages.Java))
	assert.True(t, languages.IsTraced(languages.CSharp))
	assert.False(t, languages.IsTraced(languages.Go))
	assert.False(t, languages.IsTraced(languages.Python))

	assert.True(t, languages.IsInterpreted(languages.JavaScript))
	assert.True(t, languages.IsInterpreted(languages.Python))
	assert.False(t, languages.IsInterpreted(languages.Java))
}

func TestOrderedSet(t *testing.T) {
	t.Parallel()

	set := languages.NewOrderedSet()
	assert.True(t, set.Add(languages.Java))
	assert.True(t, set.Add(languages.CPP))
	assert.False(t, set.Add(languages.Java))

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(languages.CPP))
	assert.False(t, set.Contains(languages.Go))
	assert.Equal(t, []languages.Language{languages.Java, languages.CPP}, set.Values())
}

func TestResolve_OverrideSkipsSource(t *testing.T) {
	t.Parallel()

	env := envstore.NewMapStore(map[string]string{languages.EnvLanguages: "python, go ,go"})
	source := &fakeSource{}

	resolver := &languages.Resolver{Env: env, Source: source}

	langs, err := resolver.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []languages.Language{languages.Python, languages.Go}, langs)
	assert.Zero(t, source.calls)
	assert.Empty(t, env.Exported())
}

func TestResolve_DetectedIsMappedAndExported(t *testing.T) {
	t.Parallel()

	env := envstore.NewMapStore(nil)
	source := &fakeSource{stats: []languages.Stat{
		{Name: "TypeScript", Bytes: 9000},
		{Name: "Shell", Bytes: 5000},
		{Name: "C++", Bytes: 4000},
		{Name: "JavaScript", Bytes: 3000},
		{Name: "C", Bytes: 100},
	}}

	resolver := &languages.Resolver{Env: env, Source: source}

	langs, err := resolver.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []languages.Language{languages.JavaScript, languages.CPP}, langs)
	assert.Equal(t, "javascript,cpp", env.Get(languages.EnvLanguages))
	assert.Equal(t, []string{languages.EnvLanguages}, env.Exported())
}

func TestResolve_NothingSupported(t *testing.T) {
	t.Parallel()

	env := envstore.NewMapStore(nil)
	resolver := &languages.Resolver{
		Env:    env,
		Source: &fakeSource{stats: []languages.Stat{{Name: "Haskell", Bytes: 10}}},
	}

	langs, err := resolver.Resolve(context.Background())
	require.NoError(t, err)

	assert.Empty(t, langs)
	assert.Empty(t, env.Exported())
}

func TestResolve_SourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	resolver := &languages.Resolver{Env: envstore.NewMapStore(nil), Source: &fakeSource{err: boom}}

	_, err := resolver.Resolve(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestGitHubSource_Stats(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/demo/languages", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Python": 200, "Go": 500, "C": 200}`))
	}))
	t.Cleanup(server.Close)

	client := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)

	client.BaseURL = baseURL

	stats, err := languages.NewGitHubSourceWithClient(client, "octo", "demo").Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []languages.Stat{
		{Name: "Go", Bytes: 500},
		{Name: "C", Bytes: 200},
		{Name: "Python", Bytes: 200},
	}, stats)
}

func TestGitHubSource_RequiresRepository(t *testing.T) {
	t.Parallel()

	source, err := languages.NewGitHubSource(context.Background(), "", "demo", "", "")
	require.NoError(t, err)

	_, err = source.Stats(context.Background())
	require.ErrorIs(t, err, languages.ErrEmptyRepository)
}

func TestLocalSource_Stats(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	write("main.go", "package main\n\nfunc main() {}\n")
	write("lib/util.py", "def util():\n    return 1\n")
	write("lib/more.py", "def more():\n    return 2\n\n\n\n")
	write("vendor/dep/dep.go", "package dep\n// padding padding padding padding padding padding\n")
	write(".hidden/x.py", "print('x')\n")

	source := &languages.LocalSource{Root: root}

	stats, err := source.Stats(context.Background())
	require.NoError(t, err)

	require.Len(t, stats, 2)
	assert.Equal(t, "Python", stats[0].Name)
	assert.Equal(t, "Go", stats[1].Name)
}
