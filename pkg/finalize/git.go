package finalize

import (
	"context"

	"github.com/Sumatoshi-tech/swissknife/pkg/gitlib"
)

// GitFetcher checks out query packs with libgit2.
type GitFetcher struct{}

var _ Fetcher = GitFetcher{}

// Fetch clones or updates dir and detaches it at ref.
func (GitFetcher) Fetch(ctx context.Context, url, dir, ref string) (string, error) {
	return gitlib.Checkout(ctx, url, dir, ref)
}
