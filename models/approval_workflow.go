package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/utils"
)

// WorkflowStatus represents the state of an approval workflow
type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"
	WorkflowStatusApproved  WorkflowStatus = "approved"
	WorkflowStatusRejected  WorkflowStatus = "rejected"
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// String returns the string representation of the status
func (s WorkflowStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowStatusPending, WorkflowStatusApproved,
		WorkflowStatusRejected, WorkflowStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the workflow has reached a final decision
func (s WorkflowStatus) IsTerminal() bool {
	return s != WorkflowStatusPending
}

// Scan implements the sql.Scanner interface for WorkflowStatus
func (s *WorkflowStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = WorkflowStatus(v)
	case []byte:
		*s = WorkflowStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into WorkflowStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for WorkflowStatus
func (s WorkflowStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid WorkflowStatus: %s", s)
	}
	return string(s), nil
}

// ApproverStatus represents one approver's decision within a workflow
type ApproverStatus string

const (
	ApproverStatusPending  ApproverStatus = "pending"
	ApproverStatusApproved ApproverStatus = "approved"
	ApproverStatusRejected ApproverStatus = "rejected"
)

// String returns the string representation of the status
func (s ApproverStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ApproverStatus) Valid() bool {
	switch s {
	case ApproverStatusPending, ApproverStatusApproved, ApproverStatusRejected:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for ApproverStatus
func (s *ApproverStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ApproverStatus(v)
	case []byte:
		*s = ApproverStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ApproverStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ApproverStatus
func (s ApproverStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ApproverStatus: %s", s)
	}
	return string(s), nil
}

// ApprovalWorkflow tracks the approval of a single campaign (1:1)
type ApprovalWorkflow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_approval_workflows_uuid" json:"uuid"`
	CampaignID uint      `gorm:"not null;uniqueIndex:uk_approval_workflows_campaign_id" json:"campaign_id"`

	Status      WorkflowStatus `gorm:"not null;default:'pending';index:idx_approval_workflows_status" json:"status"`
	RequestedBy uint           `gorm:"not null" json:"requested_by"`
	RequestedAt time.Time      `gorm:"not null" json:"requested_at"`

	CurrentStep           int  `gorm:"not null;default:1" json:"current_step"`
	TotalSteps            int  `gorm:"not null;default:1" json:"total_steps"`
	RequireAllApprovers   bool `gorm:"not null;default:false" json:"require_all_approvers"`
	AllowParallelApproval bool `gorm:"not null;default:true" json:"allow_parallel_approval"`
	MinApprovers          int  `gorm:"not null;default:1" json:"min_approvers"`
	AutoApproveAfterHours *int `json:"auto_approve_after_hours,omitempty"`

	// Final decision. DecidedBy is nil when the workflow auto-approves on timeout.
	DecidedBy    *uint      `json:"decided_by,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	FinalComment *string    `gorm:"type:text" json:"final_comment,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Campaign  *Campaign          `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Approvers []WorkflowApprover `gorm:"foreignKey:WorkflowID" json:"approvers,omitempty"`
}

// TableName returns the table name for the model
func (ApprovalWorkflow) TableName() string {
	return "approval_workflows"
}

// BeforeCreate is called before creating a new record
func (w *ApprovalWorkflow) BeforeCreate(tx *gorm.DB) error {
	if w.UUID == uuid.Nil {
		w.UUID = uuid.New()
	}
	if w.Status == "" {
		w.Status = WorkflowStatusPending
	}
	if w.RequestedAt.IsZero() {
		w.RequestedAt = utils.UTCNow()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (w *ApprovalWorkflow) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	w.UpdatedAt = &now
	return nil
}

// ApproverFor returns the approver row for the given user, or nil
func (w *ApprovalWorkflow) ApproverFor(userID uint) *WorkflowApprover {
	for i := range w.Approvers {
		if w.Approvers[i].UserID == userID {
			return &w.Approvers[i]
		}
	}
	return nil
}

// AutoApproveDeadline returns the instant after which the workflow may
// auto-approve, or nil when no timeout is configured.
func (w *ApprovalWorkflow) AutoApproveDeadline() *time.Time {
	if w.AutoApproveAfterHours == nil {
		return nil
	}
	deadline := w.RequestedAt.Add(time.Duration(*w.AutoApproveAfterHours) * time.Hour)
	return &deadline
}

// WorkflowApprover is one approver's slot in a workflow
type WorkflowApprover struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	WorkflowID uint           `gorm:"not null;uniqueIndex:uk_workflow_approvers_workflow_user;index:idx_workflow_approvers_workflow_id" json:"workflow_id"`
	UserID     uint           `gorm:"not null;uniqueIndex:uk_workflow_approvers_workflow_user;index:idx_workflow_approvers_user_id" json:"user_id"`
	StepOrder  int            `gorm:"not null;default:1" json:"step_order"`
	Status     ApproverStatus `gorm:"not null;default:'pending'" json:"status"`
	Comment    *string        `gorm:"type:text" json:"comment,omitempty"`
	DecidedAt  *time.Time     `json:"decided_at,omitempty"`
	CreatedAt  time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName returns the table name for the model
func (WorkflowApprover) TableName() string {
	return "workflow_approvers"
}

// BeforeCreate is called before creating a new record
func (a *WorkflowApprover) BeforeCreate(tx *gorm.DB) error {
	if a.Status == "" {
		a.Status = ApproverStatusPending
	}
	if a.StepOrder == 0 {
		a.StepOrder = 1
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ApprovalWorkflowFilter represents filter criteria for workflows
type ApprovalWorkflowFilter struct {
	ID         *uint           `json:"id,omitempty"`
	UUID       *uuid.UUID      `json:"uuid,omitempty"`
	CampaignID *uint           `json:"campaign_id,omitempty"`
	Status     *WorkflowStatus `json:"status,omitempty"`
}
