package tracer

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedSpec is returned for spec files without a log path and a block count.
var ErrMalformedSpec = errors.New("malformed tracer spec")

// Spec is a parsed tracer spec file: a log path, a block count and the
// block lines, whose order is significant.
type Spec struct {
	LogPath string
	Count   int
	Blocks  []string
}

// ParseSpec parses spec file content. Lines end in \n or \r\n; a single
// trailing line terminator is ignored.
func ParseSpec(data []byte) (Spec, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")

	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return Spec{}, fmt.Errorf("%w: expected at least 2 lines, got %d", ErrMalformedSpec, len(lines))
	}

	count, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil || count < 0 {
		return Spec{}, fmt.Errorf("%w: block count %q", ErrMalformedSpec, lines[1])
	}

	return Spec{LogPath: lines[0], Count: count, Blocks: lines[2:]}, nil
}

// ReadSpec parses the spec file at path.
func ReadSpec(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read tracer spec: %w", err)
	}

	spec, err := ParseSpec(data)
	if err != nil {
		return Spec{}, fmt.Errorf("%s: %w", path, err)
	}

	return spec, nil
}

// Bytes renders the spec file content.
func (s Spec) Bytes() []byte {
	lines := make([]string, 0, len(s.Blocks)+2)
	lines = append(lines, s.LogPath, strconv.Itoa(s.Count))
	lines = append(lines, s.Blocks...)

	return []byte(strings.Join(lines, "\n"))
}
