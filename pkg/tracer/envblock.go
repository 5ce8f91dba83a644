package tracer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/swissknife/pkg/safeconv"
)

// ErrMalformedEnvironment is returned by DecodeEnvironment for truncated or
// inconsistent blocks.
var ErrMalformedEnvironment = errors.New("malformed environment block")

const lengthSize = 4

// EncodeEnvironment serializes env for the tracer: an int32le entry count,
// then per entry an int32le byte length and the bytes of KEY=VALUE\0.
// Entries are sorted by key.
func EncodeEnvironment(env map[string]string) []byte {
	keys := sortedKeys(env)

	size := lengthSize
	for _, key := range keys {
		size += lengthSize + len(key) + 1 + len(env[key]) + 1
	}

	block := make([]byte, 0, size)
	block = binary.LittleEndian.AppendUint32(block, uint32(safeconv.MustIntToInt32(len(keys))))

	for _, key := range keys {
		entry := key + "=" + env[key] + "\x00"

		block = binary.LittleEndian.AppendUint32(block, uint32(safeconv.MustIntToInt32(len(entry))))
		block = append(block, entry...)
	}

	return block
}

// DecodeEnvironment parses a block written by EncodeEnvironment.
func DecodeEnvironment(block []byte) (map[string]string, error) {
	if len(block) < lengthSize {
		return nil, fmt.Errorf("%w: missing entry count", ErrMalformedEnvironment)
	}

	count := int32(binary.LittleEndian.Uint32(block))
	if count < 0 {
		return nil, fmt.Errorf("%w: negative entry count", ErrMalformedEnvironment)
	}

	env := make(map[string]string, count)
	rest := block[lengthSize:]

	for i := range int(count) {
		if len(rest) < lengthSize {
			return nil, fmt.Errorf("%w: entry %d: missing length", ErrMalformedEnvironment, i)
		}

		length := int32(binary.LittleEndian.Uint32(rest))
		rest = rest[lengthSize:]

		if length < 1 || int(length) > len(rest) {
			return nil, fmt.Errorf("%w: entry %d: length %d", ErrMalformedEnvironment, i, length)
		}

		entry := rest[:length]
		rest = rest[length:]

		if entry[len(entry)-1] != 0 {
			return nil, fmt.Errorf("%w: entry %d: not NUL-terminated", ErrMalformedEnvironment, i)
		}

		key, value, ok := strings.Cut(string(entry[:len(entry)-1]), "=")
		if !ok {
			return nil, fmt.Errorf("%w: entry %d: no '='", ErrMalformedEnvironment, i)
		}

		env[key] = value
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedEnvironment, len(rest))
	}

	return env, nil
}

func sortedKeys(env map[string]string) []string {
	return slices.Sorted(maps.Keys(env))
}
