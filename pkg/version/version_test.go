package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/swissknife/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	got := version.String()

	assert.True(t, strings.HasPrefix(got, version.Version+" ("), got)
	assert.True(t, strings.HasSuffix(got, ")"), got)
}
