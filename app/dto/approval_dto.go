package dto

import (
	"time"

	"github.com/orgdesk/orgdesk/models"
)

// ApprovalDecisionRequest carries the approver's optional comment
type ApprovalDecisionRequest struct {
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

// RejectionRequest requires a reason
type RejectionRequest struct {
	Comment string `json:"comment" validate:"required,min=1,max=2000"`
}

// WorkflowApproverDTO is one approver slot in a workflow
type WorkflowApproverDTO struct {
	UserID    uint       `json:"user_id"`
	StepOrder int        `json:"step_order"`
	Status    string     `json:"status"`
	Comment   *string    `json:"comment,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

// WorkflowDTO is the workflow representation returned by the API
type WorkflowDTO struct {
	ID                    uint                  `json:"id"`
	UUID                  string                `json:"uuid"`
	CampaignID            uint                  `json:"campaign_id"`
	Status                string                `json:"status"`
	RequestedBy           uint                  `json:"requested_by"`
	RequestedAt           time.Time             `json:"requested_at"`
	CurrentStep           int                   `json:"current_step"`
	TotalSteps            int                   `json:"total_steps"`
	RequireAllApprovers   bool                  `json:"require_all_approvers"`
	AllowParallelApproval bool                  `json:"allow_parallel_approval"`
	MinApprovers          int                   `json:"min_approvers"`
	AutoApproveAfterHours *int                  `json:"auto_approve_after_hours,omitempty"`
	DecidedBy             *uint                 `json:"decided_by,omitempty"`
	DecidedAt             *time.Time            `json:"decided_at,omitempty"`
	FinalComment          *string               `json:"final_comment,omitempty"`
	Approvers             []WorkflowApproverDTO `json:"approvers"`
}

// NewWorkflowDTO maps a workflow model to its API representation
func NewWorkflowDTO(w *models.ApprovalWorkflow) WorkflowDTO {
	approvers := make([]WorkflowApproverDTO, 0, len(w.Approvers))
	for _, a := range w.Approvers {
		approvers = append(approvers, WorkflowApproverDTO{
			UserID:    a.UserID,
			StepOrder: a.StepOrder,
			Status:    a.Status.String(),
			Comment:   a.Comment,
			DecidedAt: a.DecidedAt,
		})
	}
	return WorkflowDTO{
		ID:                    w.ID,
		UUID:                  w.UUID.String(),
		CampaignID:            w.CampaignID,
		Status:                w.Status.String(),
		RequestedBy:           w.RequestedBy,
		RequestedAt:           w.RequestedAt,
		CurrentStep:           w.CurrentStep,
		TotalSteps:            w.TotalSteps,
		RequireAllApprovers:   w.RequireAllApprovers,
		AllowParallelApproval: w.AllowParallelApproval,
		MinApprovers:          w.MinApprovers,
		AutoApproveAfterHours: w.AutoApproveAfterHours,
		DecidedBy:             w.DecidedBy,
		DecidedAt:             w.DecidedAt,
		FinalComment:          w.FinalComment,
		Approvers:             approvers,
	}
}

// ListWorkflowsResponse is a workflow list
type ListWorkflowsResponse struct {
	Items []WorkflowDTO `json:"items"`
}
