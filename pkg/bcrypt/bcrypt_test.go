package bcrypt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	SetCost(4)
	t.Cleanup(func() { SetCost(DefaultCost) })

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.ErrorIs(t, ComparePassword(hash, "battery staple"), ErrPasswordMismatch)

	err = ComparePassword("not-a-hash", "correct horse")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPasswordMismatch)
}

func TestHashRejectsLongPassword(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestNeedsRehash(t *testing.T) {
	SetCost(4)
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.False(t, NeedsRehash(hash))

	SetCost(5)
	t.Cleanup(func() { SetCost(DefaultCost) })
	assert.True(t, NeedsRehash(hash))
	assert.True(t, NeedsRehash("garbage"))
}

func TestSetCostOutOfRange(t *testing.T) {
	SetCost(99)
	t.Cleanup(func() { SetCost(DefaultCost) })
	assert.Equal(t, DefaultCost, cost)
}
