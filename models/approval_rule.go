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

// RuleConditions describes which campaigns a rule applies to.
// Empty fields are wildcards; populated fields must all match.
type RuleConditions struct {
	CampaignKinds []string `json:"campaignKinds,omitempty"`
	MinTargets    *int     `json:"minTargets,omitempty"`
	MaxTargets    *int     `json:"maxTargets,omitempty"`
	Priorities    []string `json:"priorities,omitempty"`
	Channels      []string `json:"channels,omitempty"`
	CreatorLevels []int    `json:"creatorLevels,omitempty"`
}

// Value implements the driver.Valuer interface for RuleConditions
func (c RuleConditions) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface for RuleConditions
func (c *RuleConditions) Scan(value any) error {
	if value == nil {
		*c = RuleConditions{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RuleConditions", value)
	}

	return json.Unmarshal(bytes, c)
}

// RuleApprovers names who must approve a matching campaign
type RuleApprovers struct {
	UserIDs      []uint `json:"userIds,omitempty"`
	Levels       []int  `json:"levels,omitempty"`
	MinApprovers int    `json:"minApprovers,omitempty"`
	RequireAll   bool   `json:"requireAll,omitempty"`
}

// Value implements the driver.Valuer interface for RuleApprovers
func (a RuleApprovers) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for RuleApprovers
func (a *RuleApprovers) Scan(value any) error {
	if value == nil {
		*a = RuleApprovers{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RuleApprovers", value)
	}

	return json.Unmarshal(bytes, a)
}

// RuleSettings tunes how the approval workflow behaves
type RuleSettings struct {
	AllowSelfApproval     bool `json:"allowSelfApproval,omitempty"`
	RequireSequential     bool `json:"requireSequential,omitempty"`
	AutoApproveAfterHours *int `json:"autoApproveAfterHours,omitempty"`
	EscalationEnabled     bool `json:"escalationEnabled,omitempty"`
}

// Value implements the driver.Valuer interface for RuleSettings
func (s RuleSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for RuleSettings
func (s *RuleSettings) Scan(value any) error {
	if value == nil {
		*s = RuleSettings{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RuleSettings", value)
	}

	return json.Unmarshal(bytes, s)
}

// ApprovalRule decides whether a submitted campaign needs approval and by whom
type ApprovalRule struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_approval_rules_uuid" json:"uuid"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Conditions  RuleConditions `gorm:"type:jsonb;not null;default:'{}'" json:"conditions"`
	Approvers   RuleApprovers  `gorm:"type:jsonb;not null;default:'{}'" json:"approvers"`
	Settings    RuleSettings   `gorm:"type:jsonb;not null;default:'{}'" json:"settings"`
	IsActive    bool           `gorm:"not null;default:true;index:idx_approval_rules_is_active" json:"is_active"`
	CreatedBy   uint           `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (ApprovalRule) TableName() string {
	return "approval_rules"
}

// BeforeCreate is called before creating a new record
func (r *ApprovalRule) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (r *ApprovalRule) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	r.UpdatedAt = &now
	return nil
}

// ApprovalRuleFilter represents filter criteria for approval rules
type ApprovalRuleFilter struct {
	ID        *uint      `json:"id,omitempty"`
	UUID      *uuid.UUID `json:"uuid,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
	CreatedBy *uint      `json:"created_by,omitempty"`
}
