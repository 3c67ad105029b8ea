package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token := EncodeCursor(Cursor{Before: 1042})
	assert.NotContains(t, token, "=")

	c, err := ParseCursor(token)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(1042), c.Before)
}

func TestParseCursorEmptyIsFirstPage(t *testing.T) {
	c, err := ParseCursor("  ")
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"%%%", "bm9wZQ", EncodeCursor(Cursor{Before: 0})} {
		_, err := ParseCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, token)
	}
}

func TestNormalizeLimitAndTrim(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	assert.Equal(t, 7, NormalizeLimit(7))

	page, more := Trim([]int{1, 2, 3}, 2)
	assert.Equal(t, []int{1, 2}, page)
	assert.True(t, more)

	page, more = Trim([]int{1}, 2)
	assert.Equal(t, []int{1}, page)
	assert.False(t, more)
}
