package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/utils"
)

// ChannelState is the delivery state of a notification on one channel
type ChannelState string

const (
	ChannelStatePending   ChannelState = "pending"
	ChannelStateSent      ChannelState = "sent"
	ChannelStateDelivered ChannelState = "delivered"
	ChannelStateFailed    ChannelState = "failed"
	ChannelStateDismissed ChannelState = "dismissed"
)

// Valid checks if the state is valid
func (s ChannelState) Valid() bool {
	switch s {
	case ChannelStatePending, ChannelStateSent, ChannelStateDelivered,
		ChannelStateFailed, ChannelStateDismissed:
		return true
	default:
		return false
	}
}

// DeliveryStatus tracks per-channel delivery of a notification
type DeliveryStatus struct {
	Browser ChannelState `json:"browser,omitempty"`
	Email   ChannelState `json:"email,omitempty"`
	SMS     ChannelState `json:"sms,omitempty"`
}

// Value implements the driver.Valuer interface for DeliveryStatus
func (d DeliveryStatus) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface for DeliveryStatus
func (d *DeliveryStatus) Scan(value any) error {
	if value == nil {
		*d = DeliveryStatus{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into DeliveryStatus", value)
	}

	return json.Unmarshal(bytes, d)
}

// PendingForChannels builds a DeliveryStatus with the given channels pending
func PendingForChannels(channels []string) DeliveryStatus {
	var d DeliveryStatus
	for _, ch := range channels {
		switch ch {
		case utils.ChannelBrowser:
			d.Browser = ChannelStatePending
		case utils.ChannelEmail:
			d.Email = ChannelStatePending
		case utils.ChannelSMS:
			d.SMS = ChannelStatePending
		}
	}
	return d
}

// Notification is a single message addressed to a single user
type Notification struct {
	ID       uint             `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_notifications_uuid" json:"uuid"`
	Kind     NotificationKind `gorm:"not null;default:'message'" json:"kind"`
	Title    string           `gorm:"not null" json:"title"`
	Message  string           `gorm:"type:text;not null" json:"message"`
	UserID   uint             `gorm:"not null;index:idx_notifications_user_id" json:"user_id"`
	Priority Priority         `gorm:"not null;default:'medium'" json:"priority"`

	CampaignID *uint `gorm:"index:idx_notifications_campaign_id" json:"campaign_id,omitempty"`
	MeetingID  *uint `json:"meeting_id,omitempty"`
	CreatedBy  uint  `gorm:"not null" json:"created_by"`

	IsRead         bool           `gorm:"not null;default:false" json:"is_read"`
	DeliveryStatus DeliveryStatus `gorm:"type:jsonb;not null;default:'{}'" json:"delivery_status"`
	ScheduledFor   *time.Time     `json:"scheduled_for,omitempty"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_notifications_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate is called before creating a new record
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.UUID == uuid.Nil {
		n.UUID = uuid.New()
	}
	if n.Kind == "" {
		n.Kind = NotificationKindMessage
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (n *Notification) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	n.UpdatedAt = &now
	return nil
}

// NotificationFilter represents filter criteria for notifications
type NotificationFilter struct {
	ID         *uint             `json:"id,omitempty"`
	UUID       *uuid.UUID        `json:"uuid,omitempty"`
	UserID     *uint             `json:"user_id,omitempty"`
	CampaignID *uint             `json:"campaign_id,omitempty"`
	Kind       *NotificationKind `json:"kind,omitempty"`
	IsRead     *bool             `json:"is_read,omitempty"`
}
