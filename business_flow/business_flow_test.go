package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/utils"
)

func TestRenderContent(t *testing.T) {
	user := &models.User{
		DisplayName: "Ana Silva",
		Email:       "ana.silva@example.com",
		Position:    "Team Manager",
	}

	t.Run("ReplacesKnownPlaceholders", func(t *testing.T) {
		out := RenderContent("Hi {name} ({email}), as {position} please review.", user)
		assert.Equal(t, "Hi Ana Silva (ana.silva@example.com), as Team Manager please review.", out)
	})

	t.Run("UnknownPlaceholdersPassThrough", func(t *testing.T) {
		out := RenderContent("Hi {name}, code {code}", user)
		assert.Equal(t, "Hi Ana Silva, code {code}", out)
	})

	t.Run("RepeatedPlaceholders", func(t *testing.T) {
		out := RenderContent("{name} {name}", user)
		assert.Equal(t, "Ana Silva Ana Silva", out)
	})

	t.Run("NilUserLeavesTextUntouched", func(t *testing.T) {
		out := RenderContent("Hi {name}", nil)
		assert.Equal(t, "Hi {name}", out)
	})
}

func TestDedupeUints(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, dedupeUints([]uint{3, 1, 3, 2, 1}))
	assert.Empty(t, dedupeUints(nil))
}

func TestInt64sToUints(t *testing.T) {
	assert.Equal(t, []uint{5, 9}, int64sToUints([]int64{5, 9}))

	// Non-positive ids cannot reference a user row
	assert.Equal(t, []uint{7}, int64sToUints([]int64{0, -3, 7}))
	assert.Empty(t, int64sToUints(nil))
}

func TestNormalizedChannels(t *testing.T) {
	in := []string{utils.ChannelBrowser, "carrier-pigeon", utils.ChannelSMS, utils.ChannelEmail}
	assert.Equal(t, []string{utils.ChannelBrowser, utils.ChannelSMS, utils.ChannelEmail}, normalizedChannels(in))
	assert.Empty(t, normalizedChannels([]string{"fax"}))
}
