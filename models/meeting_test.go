package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeetingValidateTimes(t *testing.T) {
	t.Run("ValidWindow", func(t *testing.T) {
		m := &Meeting{StartTime: "09:00", EndTime: "10:30"}
		assert.NoError(t, m.ValidateTimes())
	})

	t.Run("StartAfterEnd", func(t *testing.T) {
		m := &Meeting{StartTime: "14:00", EndTime: "13:00"}
		assert.Error(t, m.ValidateTimes())
	})

	t.Run("ZeroLengthWindow", func(t *testing.T) {
		m := &Meeting{StartTime: "09:00", EndTime: "09:00"}
		assert.Error(t, m.ValidateTimes())
	})

	t.Run("MalformedStartTime", func(t *testing.T) {
		m := &Meeting{StartTime: "9am", EndTime: "10:00"}
		assert.Error(t, m.ValidateTimes())
	})

	t.Run("MalformedEndTime", func(t *testing.T) {
		m := &Meeting{StartTime: "09:00", EndTime: "25:61"}
		assert.Error(t, m.ValidateTimes())
	})
}

func TestMeetingParticipantIDs(t *testing.T) {
	m := &Meeting{
		Participants: []MeetingParticipant{
			{UserID: 4},
			{UserID: 9},
			{UserID: 2},
		},
	}
	assert.Equal(t, []uint{4, 9, 2}, m.ParticipantIDs())

	empty := &Meeting{}
	assert.Empty(t, empty.ParticipantIDs())
}

func TestMeetingKindValid(t *testing.T) {
	assert.True(t, MeetingKindPresencial.Valid())
	assert.True(t, MeetingKindOnline.Valid())
	assert.False(t, MeetingKind("hybrid").Valid())
}
