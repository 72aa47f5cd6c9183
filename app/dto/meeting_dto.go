package dto

import (
	"time"

	"github.com/orgdesk/orgdesk/models"
)

// MeetingParticipantInput names one invitee
type MeetingParticipantInput struct {
	UserID uint   `json:"user_id" validate:"required,min=1"`
	Status string `json:"status" validate:"omitempty,oneof=convocado convidado"`
}

// CreateMeetingRequest schedules a meeting
type CreateMeetingRequest struct {
	Title        string                    `json:"title" validate:"required,min=1,max=200"`
	Date         string                    `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string                    `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string                    `json:"end_time" validate:"required,datetime=15:04"`
	Location     string                    `json:"location" validate:"omitempty,max=200"`
	Kind         string                    `json:"kind" validate:"omitempty,oneof=presencial online"`
	MeetingLink  string                    `json:"meeting_link" validate:"omitempty,url"`
	Priority     string                    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Agenda       string                    `json:"agenda" validate:"omitempty,max=5000"`
	Tags         []string                  `json:"tags" validate:"omitempty,dive,max=50"`
	Participants []MeetingParticipantInput `json:"participants" validate:"required,min=1,dive"`
}

// UpdateMeetingRequest reschedules a meeting. The participant list replaces
// the existing one wholesale.
type UpdateMeetingRequest struct {
	Title        string                    `json:"title" validate:"required,min=1,max=200"`
	Date         string                    `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string                    `json:"start_time" validate:"required,datetime=15:04"`
	EndTime      string                    `json:"end_time" validate:"required,datetime=15:04"`
	Location     string                    `json:"location" validate:"omitempty,max=200"`
	Kind         string                    `json:"kind" validate:"omitempty,oneof=presencial online"`
	MeetingLink  string                    `json:"meeting_link" validate:"omitempty,url"`
	Priority     string                    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Agenda       string                    `json:"agenda" validate:"omitempty,max=5000"`
	Tags         []string                  `json:"tags" validate:"omitempty,dive,max=50"`
	Participants []MeetingParticipantInput `json:"participants" validate:"required,min=1,dive"`
}

// MeetingParticipantDTO is one participant in a meeting response
type MeetingParticipantDTO struct {
	UserID   uint   `json:"user_id"`
	Status   string `json:"status"`
	Response string `json:"response"`
}

// ConflictDTO reports one schedule collision
type ConflictDTO struct {
	UserID       uint   `json:"user_id"`
	MeetingID    uint   `json:"meeting_id"`
	MeetingTitle string `json:"meeting_title"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}

// MeetingDTO is the meeting representation returned by the API
type MeetingDTO struct {
	ID           uint                    `json:"id"`
	UUID         string                  `json:"uuid"`
	Title        string                  `json:"title"`
	Date         string                  `json:"date"`
	StartTime    string                  `json:"start_time"`
	EndTime      string                  `json:"end_time"`
	Location     string                  `json:"location,omitempty"`
	Kind         string                  `json:"kind"`
	MeetingLink  string                  `json:"meeting_link,omitempty"`
	Priority     string                  `json:"priority"`
	Agenda       string                  `json:"agenda,omitempty"`
	Tags         []string                `json:"tags,omitempty"`
	CreatedBy    uint                    `json:"created_by"`
	CreatedAt    time.Time               `json:"created_at"`
	Participants []MeetingParticipantDTO `json:"participants"`
}

// NewMeetingDTO maps a meeting model to its API representation
func NewMeetingDTO(m *models.Meeting) MeetingDTO {
	participants := make([]MeetingParticipantDTO, 0, len(m.Participants))
	for _, p := range m.Participants {
		participants = append(participants, MeetingParticipantDTO{
			UserID:   p.UserID,
			Status:   string(p.Status),
			Response: string(p.Response),
		})
	}
	return MeetingDTO{
		ID:           m.ID,
		UUID:         m.UUID.String(),
		Title:        m.Title,
		Date:         m.Date.Format("2006-01-02"),
		StartTime:    m.StartTime,
		EndTime:      m.EndTime,
		Location:     m.Location,
		Kind:         m.Kind.String(),
		MeetingLink:  m.MeetingLink,
		Priority:     m.Priority.String(),
		Agenda:       m.Agenda,
		Tags:         m.Tags,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
		Participants: participants,
	}
}

// NewConflictDTOs maps conflict rows to their API representation
func NewConflictDTOs(conflicts []models.ParticipantConflict) []ConflictDTO {
	out := make([]ConflictDTO, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, ConflictDTO{
			UserID:       c.UserID,
			MeetingID:    c.MeetingID,
			MeetingTitle: c.MeetingTitle,
			Date:         c.Date.Format("2006-01-02"),
			StartTime:    c.StartTime,
			EndTime:      c.EndTime,
		})
	}
	return out
}

// CheckConflictsRequest asks for conflict detection without persisting anything
type CheckConflictsRequest struct {
	Date             string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime        string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime          string `json:"end_time" validate:"required,datetime=15:04"`
	ParticipantIDs   []uint `json:"participant_ids" validate:"required,min=1,dive,min=1"`
	ExcludeMeetingID uint   `json:"exclude_meeting_id"`
}

// MeetingResponse returns the meeting plus any conflicts that were tolerated
type MeetingResponse struct {
	Meeting  MeetingDTO    `json:"meeting"`
	Warnings []ConflictDTO `json:"warnings,omitempty"`
}

// ListMeetingsFilter filters the meeting list
type ListMeetingsFilter struct {
	PaginationRequest
	Date *string `json:"date" query:"date" validate:"omitempty,datetime=2006-01-02"`
}

// ListMeetingsResponse is a meeting list
type ListMeetingsResponse struct {
	Items []MeetingDTO `json:"items"`
}
