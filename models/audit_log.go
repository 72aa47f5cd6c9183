package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       *uint           `gorm:"index:idx_audit_user_id" json:"user_id,omitempty"`
	Action       string          `gorm:"not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet" json:"ip_address,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionCampaignCreated      = "campaign_created"
	AuditActionCampaignUpdated      = "campaign_updated"
	AuditActionCampaignSubmitted    = "campaign_submitted"
	AuditActionCampaignCancelled    = "campaign_cancelled"
	AuditActionCampaignExecuted     = "campaign_executed"
	AuditActionWorkflowApproved     = "workflow_approved"
	AuditActionWorkflowRejected     = "workflow_rejected"
	AuditActionWorkflowCancelled    = "workflow_cancelled"
	AuditActionWorkflowAutoApproved = "workflow_auto_approved"
	AuditActionMeetingCreated       = "meeting_created"
	AuditActionMeetingUpdated       = "meeting_updated"
	AuditActionRuleCreated          = "rule_created"
	AuditActionRuleUpdated          = "rule_updated"
	AuditActionRuleDeactivated      = "rule_deactivated"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	UserID        *uint
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
