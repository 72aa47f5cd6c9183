package dto

import (
	"time"

	"github.com/orgdesk/orgdesk/models"
)

// CreateCampaignRequest creates a draft campaign. Content is a union: either
// template_id or both custom_title and custom_message.
type CreateCampaignRequest struct {
	Name          string     `json:"name" validate:"required,min=1,max=200"`
	Description   string     `json:"description" validate:"omitempty,max=2000"`
	TemplateID    *uint      `json:"template_id" validate:"omitempty,min=1"`
	CustomTitle   string     `json:"custom_title" validate:"omitempty,max=200"`
	CustomMessage string     `json:"custom_message" validate:"omitempty,max=5000"`
	TargetUserIDs []uint     `json:"target_user_ids" validate:"required,min=1,dive,min=1"`
	Priority      string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Channels      []string   `json:"channels" validate:"required,min=1,dive,oneof=browser email sms"`
	ScheduledFor  *time.Time `json:"scheduled_for"`
}

// UpdateCampaignRequest patches an editable campaign; nil fields are untouched
type UpdateCampaignRequest struct {
	Name          *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Description   *string    `json:"description" validate:"omitempty,max=2000"`
	TemplateID    *uint      `json:"template_id" validate:"omitempty,min=1"`
	CustomTitle   *string    `json:"custom_title" validate:"omitempty,max=200"`
	CustomMessage *string    `json:"custom_message" validate:"omitempty,max=5000"`
	TargetUserIDs []uint     `json:"target_user_ids" validate:"omitempty,min=1,dive,min=1"`
	Priority      *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Channels      []string   `json:"channels" validate:"omitempty,min=1,dive,oneof=browser email sms"`
	ScheduledFor  *time.Time `json:"scheduled_for"`
}

// ListCampaignsFilter filters the campaign list
type ListCampaignsFilter struct {
	PaginationRequest
	Status *string `json:"status" query:"status" validate:"omitempty,oneof=draft pending_approval approved rejected scheduled sending completed cancelled"`
}

// CampaignDTO is the campaign representation returned by the API
type CampaignDTO struct {
	ID              uint                 `json:"id"`
	UUID            string               `json:"uuid"`
	Name            string               `json:"name"`
	Description     string               `json:"description,omitempty"`
	TemplateID      *uint                `json:"template_id,omitempty"`
	CustomTitle     string               `json:"custom_title,omitempty"`
	CustomMessage   string               `json:"custom_message,omitempty"`
	TargetUserIDs   []uint               `json:"target_user_ids"`
	Priority        string               `json:"priority"`
	Channels        []string             `json:"channels"`
	ScheduledFor    *time.Time           `json:"scheduled_for,omitempty"`
	Status          string               `json:"status"`
	Stats           models.CampaignStats `json:"stats"`
	CreatedBy       uint                 `json:"created_by"`
	ApprovedBy      *uint                `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time           `json:"approved_at,omitempty"`
	RejectedBy      *uint                `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time           `json:"rejected_at,omitempty"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
	SentAt          *time.Time           `json:"sent_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       *time.Time           `json:"updated_at,omitempty"`
}

// NewCampaignDTO maps a campaign model to its API representation
func NewCampaignDTO(c *models.Campaign) CampaignDTO {
	targets := make([]uint, 0, len(c.TargetUserIDs))
	for _, id := range c.TargetUserIDs {
		targets = append(targets, uint(id))
	}
	return CampaignDTO{
		ID:              c.ID,
		UUID:            c.UUID.String(),
		Name:            c.Name,
		Description:     c.Description,
		TemplateID:      c.TemplateID,
		CustomTitle:     c.CustomTitle,
		CustomMessage:   c.CustomMessage,
		TargetUserIDs:   targets,
		Priority:        c.Priority.String(),
		Channels:        c.Channels,
		ScheduledFor:    c.ScheduledFor,
		Status:          c.Status.String(),
		Stats:           c.Stats,
		CreatedBy:       c.CreatedBy,
		ApprovedBy:      c.ApprovedBy,
		ApprovedAt:      c.ApprovedAt,
		RejectedBy:      c.RejectedBy,
		RejectedAt:      c.RejectedAt,
		RejectionReason: c.RejectionReason,
		SentAt:          c.SentAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// SubmitCampaignResponse reports what submission decided
type SubmitCampaignResponse struct {
	Campaign CampaignDTO  `json:"campaign"`
	Workflow *WorkflowDTO `json:"workflow,omitempty"`
}

// ListCampaignsResponse is a paginated campaign list
type ListCampaignsResponse struct {
	Items []CampaignDTO `json:"items"`
	Total int64         `json:"total"`
}

// ExecutionResultDTO summarizes one campaign execution
type ExecutionResultDTO struct {
	CampaignID uint                 `json:"campaign_id"`
	Status     string               `json:"status"`
	Stats      models.CampaignStats `json:"stats"`
}

// RecordEngagementRequest bumps a delivery counter
type RecordEngagementRequest struct {
	Kind string `json:"kind" validate:"required,oneof=delivered opened clicked"`
}
