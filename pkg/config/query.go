package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const localPathPrefix = "./"

// minRepositorySegments is owner plus repo.
const minRepositorySegments = 2

// AddQuery parses one `uses` entry of the queries list and records it.
// file is only used in error messages. Local paths are resolved against
// workspace and must stay inside it after symlinks are followed.
func (c *Config) AddQuery(file, workspace, uses string) error {
	uses = strings.TrimSpace(uses)
	if uses == "" {
		return queryUsesInvalid(file, "")
	}

	if strings.HasPrefix(uses, localPathPrefix) {
		return c.addLocalQuery(file, workspace, strings.TrimPrefix(uses, localPathPrefix))
	}

	if !strings.ContainsAny(uses, "/@") {
		suite := Suite(uses)
		if !slices.Contains(builtinSuites, suite) {
			return queryUsesInvalid(file, uses)
		}

		c.AdditionalSuites = append(c.AdditionalSuites, suite)

		return nil
	}

	external, err := ParseExternalQuery(uses)
	if err != nil {
		return queryUsesInvalid(file, uses)
	}

	c.ExternalQueries = append(c.ExternalQueries, external)

	return nil
}

// ParseExternalQuery parses `owner/repo[/path]@ref`.
func ParseExternalQuery(uses string) (ExternalQuery, error) {
	repoPart, ref, found := strings.Cut(uses, "@")
	if !found || strings.Contains(ref, "@") {
		return ExternalQuery{}, fmt.Errorf("%w: %s", ErrInvalidQueryReference, uses)
	}

	segments := strings.Split(repoPart, "/")
	if len(segments) < minRepositorySegments {
		return ExternalQuery{}, fmt.Errorf("%w: %s", ErrInvalidQueryReference, uses)
	}

	owner, repo := segments[0], segments[1]
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return ExternalQuery{}, fmt.Errorf("%w: %s", ErrInvalidQueryReference, uses)
	}

	return ExternalQuery{
		Repository: owner + "/" + repo,
		Ref:        ref,
		Path:       strings.Join(segments[minRepositorySegments:], "/"),
	}, nil
}

func (c *Config) addLocalQuery(file, workspace, localPath string) error {
	workspaceReal, err := filepath.EvalSymlinks(workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace %s: %w", workspace, err)
	}

	queryPath := filepath.Join(workspaceReal, localPath)

	_, statErr := os.Stat(queryPath)
	if statErr != nil {
		return localPathDoesNotExist(file, localPath)
	}

	queryReal, err := filepath.EvalSymlinks(queryPath)
	if err != nil {
		return localPathDoesNotExist(file, localPath)
	}

	if !isWithin(queryReal, workspaceReal) {
		return localPathOutsideRepository(file, localPath)
	}

	c.AdditionalQueries = append(c.AdditionalQueries, queryReal)

	return nil
}

// isWithin reports whether path is root or a descendant of it.
// Both arguments must be clean absolute paths.
func isWithin(path, root string) bool {
	sep := string(filepath.Separator)

	return strings.HasPrefix(path+sep, strings.TrimSuffix(root, sep)+sep)
}
