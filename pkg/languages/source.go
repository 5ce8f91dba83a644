package languages

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/go-github/v57/github"
	"github.com/src-d/enry/v2"
	"golang.org/x/oauth2"
)

// Stat is the size of one language in a repository, as reported by a Source.
type Stat struct {
	Name  string
	Bytes int64
}

// Source reports per-language statistics, largest first.
type Source interface {
	Stats(ctx context.Context) ([]Stat, error)
}

// ErrEmptyRepository is returned by GitHubSource when owner or repo is unset.
var ErrEmptyRepository = errors.New("repository owner and name must be set")

// GitHubSource reads language statistics from the GitHub repository API.
type GitHubSource struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubSource creates a source for owner/repo. token may be empty for
// public repositories; a non-empty apiURL points the client at GitHub
// Enterprise.
func NewGitHubSource(ctx context.Context, owner, repo, token, apiURL string) (*GitHubSource, error) {
	var httpClient *http.Client

	if token != "" {
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, tokenSource)
	}

	client := github.NewClient(httpClient)

	if apiURL != "" {
		enterprise, err := client.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("github api url: %w", err)
		}

		client = enterprise
	}

	return NewGitHubSourceWithClient(client, owner, repo), nil
}

// NewGitHubSourceWithClient creates a source using an existing client.
func NewGitHubSourceWithClient(client *github.Client, owner, repo string) *GitHubSource {
	return &GitHubSource{client: client, owner: owner, repo: repo}
}

// Stats lists the repository's languages.
func (gs *GitHubSource) Stats(ctx context.Context) ([]Stat, error) {
	if gs.owner == "" || gs.repo == "" {
		return nil, ErrEmptyRepository
	}

	counts, _, err := gs.client.Repositories.ListLanguages(ctx, gs.owner, gs.repo)
	if err != nil {
		return nil, fmt.Errorf("list languages of %s/%s: %w", gs.owner, gs.repo, err)
	}

	stats := make([]Stat, 0, len(counts))
	for name, size := range counts {
		stats = append(stats, Stat{Name: name, Bytes: int64(size)})
	}

	sortStats(stats)

	return stats, nil
}

// sniffSize bounds how much of a file is read for content-based detection.
const sniffSize = 16 * 1024

// LocalSource detects languages by walking a checked-out workspace.
// Vendored, dot, documentation and configuration files are skipped.
type LocalSource struct {
	Root string
}

// Stats sums file sizes per detected language.
func (ls *LocalSource) Stats(ctx context.Context) ([]Stat, error) {
	totals := make(map[string]int64)

	err := filepath.WalkDir(ls.Root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(ls.Root, path)
		if relErr != nil {
			return relErr
		}

		if rel == "." {
			return nil
		}

		rel = filepath.ToSlash(rel)

		if entry.IsDir() {
			if enry.IsVendor(rel+"/") || enry.IsDotFile(rel) {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() || skipFile(rel) {
			return nil
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			return infoErr
		}

		lang, detectErr := detect(path, entry.Name())
		if detectErr != nil {
			return detectErr
		}

		if lang != "" {
			totals[lang] += info.Size()
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", ls.Root, err)
	}

	stats := make([]Stat, 0, len(totals))
	for name, size := range totals {
		stats = append(stats, Stat{Name: name, Bytes: size})
	}

	sortStats(stats)

	return stats, nil
}

func skipFile(rel string) bool {
	return enry.IsVendor(rel) || enry.IsDotFile(rel) ||
		enry.IsDocumentation(rel) || enry.IsConfiguration(rel)
}

func detect(path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, sniffSize)

	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	head = head[:n]
	if enry.IsBinary(head) {
		return "", nil
	}

	return enry.GetLanguage(name, head), nil
}

func sortStats(stats []Stat) {
	slices.SortFunc(stats, func(a, b Stat) int {
		if c := cmp.Compare(b.Bytes, a.Bytes); c != 0 {
			return c
		}

		return cmp.Compare(a.Name, b.Name)
	})
}

var (
	_ Source = (*GitHubSource)(nil)
	_ Source = (*LocalSource)(nil)
)
