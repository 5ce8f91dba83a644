package gitlib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrRefNotFound is returned when a ref resolves neither locally nor on origin.
var ErrRefNotFound = errors.New("ref not found")

const remoteName = "origin"

// Checkout makes dir a clone of url with HEAD detached at ref, and returns
// the checked-out commit id. An existing clone in dir is fetched instead of
// cloned again. ref may be a commit id, a tag or a branch of origin.
func Checkout(ctx context.Context, url, dir, ref string) (string, error) {
	err := ctx.Err()
	if err != nil {
		return "", err
	}

	repo, err := cloneOrOpen(url, dir)
	if err != nil {
		return "", err
	}
	defer repo.Free()

	commit, err := resolveCommit(repo, ref)
	if err != nil {
		return "", fmt.Errorf("%s@%s: %w", url, ref, err)
	}
	defer commit.Free()

	err = repo.SetHeadDetached(commit.Id())
	if err != nil {
		return "", fmt.Errorf("detach HEAD: %w", err)
	}

	err = repo.CheckoutHead(&git2go.CheckoutOptions{Strategy: git2go.CheckoutForce})
	if err != nil {
		return "", fmt.Errorf("checkout %s: %w", ref, err)
	}

	return commit.Id().String(), nil
}

func cloneOrOpen(url, dir string) (*git2go.Repository, error) {
	_, statErr := os.Stat(filepath.Join(dir, ".git"))
	if statErr != nil {
		repo, err := git2go.Clone(url, dir, &git2go.CloneOptions{})
		if err != nil {
			return nil, fmt.Errorf("clone %s: %w", url, err)
		}

		return repo, nil
	}

	repo, err := git2go.OpenRepository(dir)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	remote, err := repo.Remotes.Lookup(remoteName)
	if err != nil {
		repo.Free()

		return nil, fmt.Errorf("lookup %s: %w", remoteName, err)
	}
	defer remote.Free()

	err = remote.Fetch(nil, &git2go.FetchOptions{DownloadTags: git2go.DownloadTagsAll}, "")
	if err != nil {
		repo.Free()

		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	return repo, nil
}

func resolveCommit(repo *git2go.Repository, ref string) (*git2go.Commit, error) {
	for _, spec := range []string{ref, remoteName + "/" + ref} {
		obj, err := repo.RevparseSingle(spec)
		if err != nil {
			continue
		}

		peeled, err := obj.Peel(git2go.ObjectCommit)
		obj.Free()

		if err != nil {
			continue
		}

		commit, err := peeled.AsCommit()
		if err != nil {
			peeled.Free()

			continue
		}

		return commit, nil
	}

	return nil, ErrRefNotFound
}
