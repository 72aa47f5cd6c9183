package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/utils"
)

// CampaignStatus represents the lifecycle state of a notification campaign
type CampaignStatus string

const (
	CampaignStatusDraft           CampaignStatus = "draft"
	CampaignStatusPendingApproval CampaignStatus = "pending_approval"
	CampaignStatusApproved        CampaignStatus = "approved"
	CampaignStatusRejected        CampaignStatus = "rejected"
	CampaignStatusScheduled       CampaignStatus = "scheduled"
	CampaignStatusSending         CampaignStatus = "sending"
	CampaignStatusCompleted       CampaignStatus = "completed"
	CampaignStatusCancelled       CampaignStatus = "cancelled"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusPendingApproval, CampaignStatusApproved,
		CampaignStatusRejected, CampaignStatusScheduled, CampaignStatusSending,
		CampaignStatusCompleted, CampaignStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status admits no further transitions
func (s CampaignStatus) IsTerminal() bool {
	switch s {
	case CampaignStatusRejected, CampaignStatusCompleted, CampaignStatusCancelled:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// CampaignStats holds delivery counters for a campaign.
// Counters only ever grow; the execution engine is the single writer.
type CampaignStats struct {
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Opened    int `json:"opened"`
	Clicked   int `json:"clicked"`
	Failed    int `json:"failed"`
}

// Value implements the driver.Valuer interface for CampaignStats
func (s CampaignStats) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for CampaignStats
func (s *CampaignStats) Scan(value any) error {
	if value == nil {
		*s = CampaignStats{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CampaignStats", value)
	}

	return json.Unmarshal(bytes, s)
}

// Campaign represents a notification campaign
type Campaign struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`

	// Content source: exactly one of TemplateID or CustomTitle+CustomMessage
	TemplateID    *uint  `gorm:"index:idx_campaigns_template_id" json:"template_id,omitempty"`
	CustomTitle   string `json:"custom_title,omitempty"`
	CustomMessage string `gorm:"type:text" json:"custom_message,omitempty"`

	TargetUserIDs    pq.Int64Array  `gorm:"type:bigint[];not null" json:"target_user_ids"`
	Priority         Priority       `gorm:"not null;default:'medium'" json:"priority"`
	Channels         pq.StringArray `gorm:"type:text[];not null" json:"channels"`
	ScheduledFor     *time.Time     `gorm:"index:idx_campaigns_scheduled_for" json:"scheduled_for,omitempty"`
	RequiresApproval bool           `gorm:"not null;default:false" json:"requires_approval"`

	Status CampaignStatus `gorm:"not null;default:'draft';index:idx_campaigns_status" json:"status"`
	Stats  CampaignStats  `gorm:"type:jsonb;not null;default:'{}'" json:"stats"`

	CreatedBy       uint       `gorm:"not null;index:idx_campaigns_created_by" json:"created_by"`
	ApprovedBy      *uint      `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectedBy      *uint      `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason *string    `gorm:"type:text" json:"rejection_reason,omitempty"`
	SentAt          *time.Time `json:"sent_at,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Template *NotificationTemplate `gorm:"foreignKey:TemplateID;references:ID" json:"template,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.Priority == "" {
		c.Priority = PriorityMedium
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// ValidateContent enforces the content union: a campaign references a template
// or carries custom content, never both and never neither.
func (c *Campaign) ValidateContent() error {
	hasTemplate := c.TemplateID != nil
	hasCustom := c.CustomTitle != "" || c.CustomMessage != ""
	switch {
	case hasTemplate && hasCustom:
		return errors.New("campaign content must reference a template or carry custom content, not both")
	case !hasTemplate && (c.CustomTitle == "" || c.CustomMessage == ""):
		return errors.New("campaign content requires a template reference or both a custom title and message")
	default:
		return nil
	}
}

// UsesTemplate reports whether the campaign content comes from a template
func (c *Campaign) UsesTemplate() bool {
	return c.TemplateID != nil
}

// IsEditable checks if the campaign can be edited
func (c *Campaign) IsEditable() bool {
	return c.Status == CampaignStatusDraft ||
		c.Status == CampaignStatusPendingApproval
}

// IsCancellable checks if the campaign can still be cancelled
func (c *Campaign) IsCancellable() bool {
	switch c.Status {
	case CampaignStatusDraft, CampaignStatusPendingApproval,
		CampaignStatusApproved, CampaignStatusScheduled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the campaign can transition to the given status
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusPendingApproval ||
			newStatus == CampaignStatusApproved ||
			newStatus == CampaignStatusScheduled ||
			newStatus == CampaignStatusCancelled
	case CampaignStatusPendingApproval:
		return newStatus == CampaignStatusApproved ||
			newStatus == CampaignStatusRejected ||
			newStatus == CampaignStatusScheduled ||
			newStatus == CampaignStatusCancelled
	case CampaignStatusApproved:
		return newStatus == CampaignStatusScheduled ||
			newStatus == CampaignStatusSending ||
			newStatus == CampaignStatusCancelled
	case CampaignStatusScheduled:
		return newStatus == CampaignStatusSending ||
			newStatus == CampaignStatusCancelled
	case CampaignStatusSending:
		return newStatus == CampaignStatusCompleted
	default:
		return false
	}
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID              *uint           `json:"id,omitempty"`
	UUID            *uuid.UUID      `json:"uuid,omitempty"`
	Status          *CampaignStatus `json:"status,omitempty"`
	CreatedBy       *uint           `json:"created_by,omitempty"`
	Priority        *Priority       `json:"priority,omitempty"`
	ScheduledAfter  *time.Time      `json:"scheduled_after,omitempty"`
	ScheduledBefore *time.Time      `json:"scheduled_before,omitempty"`
	CreatedAfter    *time.Time      `json:"created_after,omitempty"`
	CreatedBefore   *time.Time      `json:"created_before,omitempty"`
}
