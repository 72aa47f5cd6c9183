package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/utils"
)

// MeetingKind distinguishes in-person from online meetings
type MeetingKind string

const (
	MeetingKindPresencial MeetingKind = "presencial"
	MeetingKindOnline     MeetingKind = "online"
)

// String returns the string representation of the kind
func (k MeetingKind) String() string {
	return string(k)
}

// Valid checks if the kind is valid
func (k MeetingKind) Valid() bool {
	return k == MeetingKindPresencial || k == MeetingKindOnline
}

// ParticipantStatus marks how a participant was added to a meeting
type ParticipantStatus string

const (
	// ParticipantConvocado means attendance is mandatory
	ParticipantConvocado ParticipantStatus = "convocado"
	// ParticipantConvidado means attendance is optional
	ParticipantConvidado ParticipantStatus = "convidado"
)

// Valid checks if the status is valid
func (s ParticipantStatus) Valid() bool {
	return s == ParticipantConvocado || s == ParticipantConvidado
}

// Scan implements the sql.Scanner interface for ParticipantStatus
func (s *ParticipantStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ParticipantStatus(v)
	case []byte:
		*s = ParticipantStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ParticipantStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ParticipantStatus
func (s ParticipantStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ParticipantStatus: %s", s)
	}
	return string(s), nil
}

// ParticipantResponse is the participant's answer to the invitation
type ParticipantResponse string

const (
	ResponseAceito   ParticipantResponse = "aceito"
	ResponseRecusado ParticipantResponse = "recusado"
	ResponsePendente ParticipantResponse = "pendente"
)

// Valid checks if the response is valid
func (r ParticipantResponse) Valid() bool {
	switch r {
	case ResponseAceito, ResponseRecusado, ResponsePendente:
		return true
	default:
		return false
	}
}

// Meeting represents a scheduled meeting
type Meeting struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_meetings_uuid" json:"uuid"`
	Title       string         `gorm:"not null" json:"title"`
	Date        time.Time      `gorm:"type:date;not null;index:idx_meetings_date" json:"date"`
	StartTime   string         `gorm:"not null" json:"start_time"`
	EndTime     string         `gorm:"not null" json:"end_time"`
	Location    string         `json:"location"`
	Kind        MeetingKind    `gorm:"not null;default:'presencial'" json:"kind"`
	MeetingLink string         `json:"meeting_link,omitempty"`
	Priority    Priority       `gorm:"not null;default:'medium'" json:"priority"`
	Agenda      string         `gorm:"type:text" json:"agenda"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags,omitempty"`
	CreatedBy   uint           `gorm:"not null;index:idx_meetings_created_by" json:"created_by"`
	CreatedAt   time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`

	// Relations
	Participants []MeetingParticipant `gorm:"foreignKey:MeetingID" json:"participants,omitempty"`
}

// TableName returns the table name for the model
func (Meeting) TableName() string {
	return "meetings"
}

// BeforeCreate is called before creating a new record
func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if m.Kind == "" {
		m.Kind = MeetingKindPresencial
	}
	if m.Priority == "" {
		m.Priority = PriorityMedium
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (m *Meeting) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	m.UpdatedAt = &now
	return nil
}

// ValidateTimes checks the wall-clock window: both times parse as HH:MM and
// the meeting starts before it ends.
func (m *Meeting) ValidateTimes() error {
	start, err := utils.ParseClock(m.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start time %q: %w", m.StartTime, err)
	}
	end, err := utils.ParseClock(m.EndTime)
	if err != nil {
		return fmt.Errorf("invalid end time %q: %w", m.EndTime, err)
	}
	if start >= end {
		return errors.New("meeting start time must be before end time")
	}
	return nil
}

// ParticipantIDs returns the user ids of all participants
func (m *Meeting) ParticipantIDs() []uint {
	ids := make([]uint, 0, len(m.Participants))
	for _, p := range m.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// MeetingParticipant links a user to a meeting
type MeetingParticipant struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	MeetingID uint                `gorm:"not null;uniqueIndex:uk_meeting_participants_meeting_user;index:idx_meeting_participants_meeting_id" json:"meeting_id"`
	UserID    uint                `gorm:"not null;uniqueIndex:uk_meeting_participants_meeting_user;index:idx_meeting_participants_user_id" json:"user_id"`
	Status    ParticipantStatus   `gorm:"not null;default:'convocado'" json:"status"`
	Response  ParticipantResponse `gorm:"not null;default:'pendente'" json:"response"`
	CreatedAt time.Time           `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName returns the table name for the model
func (MeetingParticipant) TableName() string {
	return "meeting_participants"
}

// BeforeCreate is called before creating a new record
func (p *MeetingParticipant) BeforeCreate(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = ParticipantConvocado
	}
	if p.Response == "" {
		p.Response = ResponsePendente
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ParticipantConflict reports one overlapping meeting for one participant
type ParticipantConflict struct {
	UserID       uint      `json:"user_id"`
	MeetingID    uint      `json:"meeting_id"`
	MeetingTitle string    `json:"meeting_title"`
	Date         time.Time `json:"date"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
}

// MeetingFilter represents filter criteria for meetings
type MeetingFilter struct {
	ID         *uint      `json:"id,omitempty"`
	UUID       *uuid.UUID `json:"uuid,omitempty"`
	CreatedBy  *uint      `json:"created_by,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	DateAfter  *time.Time `json:"date_after,omitempty"`
	DateBefore *time.Time `json:"date_before,omitempty"`
}
