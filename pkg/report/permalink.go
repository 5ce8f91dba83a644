package report

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Permalinker builds links to files of one repository at one commit.
type Permalinker struct {
	// BaseURL is the web root of the hosting platform.
	BaseURL string
	Owner   string
	Repo    string
	Commit  string
}

// Link returns the permalink of uri, with a line fragment when line is positive.
func (p Permalinker) Link(uri string, line int64) string {
	fragment := ""
	if line > 0 {
		fragment = "#" + strconv.FormatInt(line, 10)
	}

	return fmt.Sprintf("%s/%s/%s/blob/%s/%s%s",
		strings.TrimSuffix(p.BaseURL, "/"), p.Owner, p.Repo, p.Commit, strings.TrimPrefix(uri, "/"), fragment)
}

// isRelative reports whether uri names a file in the repository rather than
// an absolute location.
func isRelative(uri string) bool {
	parsed, err := url.Parse(uri)
	if err != nil {
		return false
	}

	return parsed.Scheme == "" && parsed.Host == ""
}
