package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustIntToInt32(t *testing.T) {
	t.Parallel()

	t.Run("bounds", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, int32(math.MaxInt32), MustIntToInt32(math.MaxInt32))
		assert.Equal(t, int32(math.MinInt32), MustIntToInt32(math.MinInt32))
	})

	t.Run("overflow_panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "safeconv: int to int32 out of bounds", func() {
			MustIntToInt32(math.MaxInt32 + 1)
		})
	})
}

func TestInt64ToUint64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0), Int64ToUint64(-5))
	assert.Equal(t, uint64(0), Int64ToUint64(0))
	assert.Equal(t, uint64(math.MaxInt64), Int64ToUint64(math.MaxInt64))
}
