package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/utils"
)

// NotificationKind classifies notifications and templates
type NotificationKind string

const (
	NotificationKindMeeting  NotificationKind = "meeting"
	NotificationKindTask     NotificationKind = "task"
	NotificationKindMessage  NotificationKind = "message"
	NotificationKindSystem   NotificationKind = "system"
	NotificationKindReminder NotificationKind = "reminder"
	NotificationKindConflict NotificationKind = "conflict"
)

// String returns the string representation of the kind
func (k NotificationKind) String() string {
	return string(k)
}

// Valid checks if the kind is valid
func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationKindMeeting, NotificationKindTask, NotificationKindMessage,
		NotificationKindSystem, NotificationKindReminder, NotificationKindConflict:
		return true
	default:
		return false
	}
}

// Priority represents the urgency of a notification or campaign
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// String returns the string representation of the priority
func (p Priority) String() string {
	return string(p)
}

// Valid checks if the priority is valid
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// NotificationTemplate represents a reusable notification body
type NotificationTemplate struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_notification_templates_uuid" json:"uuid"`
	Name      string           `gorm:"not null" json:"name"`
	Kind      NotificationKind `gorm:"not null;default:'message'" json:"kind"`
	Title     string           `gorm:"not null" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Priority  Priority         `gorm:"not null;default:'medium'" json:"priority"`
	Channels  pq.StringArray   `gorm:"type:text[];not null" json:"channels"`
	IsActive  bool             `gorm:"not null;default:true;index:idx_notification_templates_is_active" json:"is_active"`
	CreatedBy uint             `gorm:"not null" json:"created_by"`
	CreatedAt time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (NotificationTemplate) TableName() string {
	return "notification_templates"
}

// BeforeCreate is called before creating a new record
func (t *NotificationTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.Kind == "" {
		t.Kind = NotificationKindMessage
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (t *NotificationTemplate) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	t.UpdatedAt = &now
	return nil
}

// NotificationTemplateFilter represents filter criteria for templates
type NotificationTemplateFilter struct {
	ID       *uint             `json:"id,omitempty"`
	UUID     *uuid.UUID        `json:"uuid,omitempty"`
	Kind     *NotificationKind `json:"kind,omitempty"`
	IsActive *bool             `json:"is_active,omitempty"`
}
