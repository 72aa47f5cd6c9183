package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUUID(t *testing.T) {
	t.Run("CanonicalForm", func(t *testing.T) {
		want := uuid.New()
		got, err := ParseUUID(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := ParseUUID("not-a-uuid")
		assert.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ParseUUID("")
		assert.Error(t, err)
	})
}

func TestIsTrue(t *testing.T) {
	assert.False(t, IsTrue(nil))
	assert.False(t, IsTrue(ToPtr(false)))
	assert.True(t, IsTrue(ToPtr(true)))
}
