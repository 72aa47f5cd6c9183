package dto

import (
	"time"

	"github.com/orgdesk/orgdesk/models"
)

// RuleConditionsInput mirrors the rule condition set; empty fields are wildcards
type RuleConditionsInput struct {
	CampaignKinds []string `json:"campaign_kinds" validate:"omitempty,dive,oneof=meeting task message system reminder conflict"`
	MinTargets    *int     `json:"min_targets" validate:"omitempty,min=0"`
	MaxTargets    *int     `json:"max_targets" validate:"omitempty,min=0"`
	Priorities    []string `json:"priorities" validate:"omitempty,dive,oneof=low medium high"`
	Channels      []string `json:"channels" validate:"omitempty,dive,oneof=browser email sms"`
	CreatorLevels []int    `json:"creator_levels" validate:"omitempty,dive,min=1,max=5"`
}

// RuleApproversInput names who must approve
type RuleApproversInput struct {
	UserIDs      []uint `json:"user_ids" validate:"omitempty,dive,min=1"`
	Levels       []int  `json:"levels" validate:"omitempty,dive,min=1,max=5"`
	MinApprovers int    `json:"min_approvers" validate:"omitempty,min=1"`
	RequireAll   bool   `json:"require_all"`
}

// RuleSettingsInput tunes workflow behavior
type RuleSettingsInput struct {
	AllowSelfApproval     bool `json:"allow_self_approval"`
	RequireSequential     bool `json:"require_sequential"`
	AutoApproveAfterHours *int `json:"auto_approve_after_hours" validate:"omitempty,min=1"`
	EscalationEnabled     bool `json:"escalation_enabled"`
}

// CreateRuleRequest creates an approval rule
type CreateRuleRequest struct {
	Name        string              `json:"name" validate:"required,min=1,max=200"`
	Description string              `json:"description" validate:"omitempty,max=2000"`
	Conditions  RuleConditionsInput `json:"conditions"`
	Approvers   RuleApproversInput  `json:"approvers"`
	Settings    RuleSettingsInput   `json:"settings"`
	IsActive    *bool               `json:"is_active"`
}

// UpdateRuleRequest replaces an approval rule's definition
type UpdateRuleRequest struct {
	Name        string              `json:"name" validate:"required,min=1,max=200"`
	Description string              `json:"description" validate:"omitempty,max=2000"`
	Conditions  RuleConditionsInput `json:"conditions"`
	Approvers   RuleApproversInput  `json:"approvers"`
	Settings    RuleSettingsInput   `json:"settings"`
	IsActive    *bool               `json:"is_active"`
}

// RuleDTO is the rule representation returned by the API
type RuleDTO struct {
	ID          uint                  `json:"id"`
	UUID        string                `json:"uuid"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Conditions  models.RuleConditions `json:"conditions"`
	Approvers   models.RuleApprovers  `json:"approvers"`
	Settings    models.RuleSettings   `json:"settings"`
	IsActive    bool                  `json:"is_active"`
	CreatedBy   uint                  `json:"created_by"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   *time.Time            `json:"updated_at,omitempty"`
}

// NewRuleDTO maps a rule model to its API representation
func NewRuleDTO(r *models.ApprovalRule) RuleDTO {
	return RuleDTO{
		ID:          r.ID,
		UUID:        r.UUID.String(),
		Name:        r.Name,
		Description: r.Description,
		Conditions:  r.Conditions,
		Approvers:   r.Approvers,
		Settings:    r.Settings,
		IsActive:    r.IsActive,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// ListRulesResponse is a rule list
type ListRulesResponse struct {
	Items []RuleDTO `json:"items"`
}
