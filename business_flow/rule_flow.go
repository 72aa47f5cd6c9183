package businessflow

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/orgdesk/orgdesk/app/dto"
	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/repository"
)

// RuleFlow handles approval rule administration
type RuleFlow interface {
	CreateRule(ctx context.Context, req *dto.CreateRuleRequest, adminID uint, metadata *ClientMetadata) (*dto.RuleDTO, error)
	UpdateRule(ctx context.Context, id uint, req *dto.UpdateRuleRequest, adminID uint, metadata *ClientMetadata) (*dto.RuleDTO, error)
	DeactivateRule(ctx context.Context, id uint, adminID uint, metadata *ClientMetadata) (*dto.RuleDTO, error)
	GetRule(ctx context.Context, id uint) (*dto.RuleDTO, error)
	ListRules(ctx context.Context, includeInactive bool) (*dto.ListRulesResponse, error)
}

// RuleFlowImpl implements the rule administration flow
type RuleFlowImpl struct {
	ruleRepo  repository.ApprovalRuleRepository
	auditRepo repository.AuditLogRepository
	cache     *redis.Client
}

// NewRuleFlow creates a new rule flow instance
func NewRuleFlow(ruleRepo repository.ApprovalRuleRepository, auditRepo repository.AuditLogRepository, cache *redis.Client) RuleFlow {
	return &RuleFlowImpl{
		ruleRepo:  ruleRepo,
		auditRepo: auditRepo,
		cache:     cache,
	}
}

// CreateRule creates an approval rule
func (s *RuleFlowImpl) CreateRule(ctx context.Context, req *dto.CreateRuleRequest, adminID uint, metadata *ClientMetadata) (*dto.RuleDTO, error) {
	rule := &models.ApprovalRule{
		Name:        req.Name,
		Description: req.Description,
		Conditions:  conditionsFromInput(req.Conditions),
		Approvers:   approversFromInput(req.Approvers),
		Settings:    settingsFromInput(req.Settings),
		IsActive:    true,
		CreatedBy:   adminID,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := validateRuleApprovers(rule.Approvers); err != nil {
		return nil, err
	}

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, NewBusinessError("RULE_CREATE_FAILED", "Failed to create rule", err)
	}

	s.invalidateCache(ctx)

	recordAudit(ctx, s.auditRepo, models.AuditActionRuleCreated, adminID,
		"Approval rule "+rule.Name+" created", true,
		map[string]any{"rule_id": rule.ID}, metadata)

	out := dto.NewRuleDTO(rule)
	return &out, nil
}

// UpdateRule replaces a rule's definition
func (s *RuleFlowImpl) UpdateRule(ctx context.Context, id uint, req *dto.UpdateRuleRequest, adminID uint, metadata *ClientMetadata) (*dto.RuleDTO, error) {
	rule, err := s.ruleRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("RULE_LOAD_FAILED", "Failed to load rule", err)
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}

	rule.Name = req.Name
	rule.Description = req.Description
	rule.Conditions = conditionsFromInput(req.Conditions)
	rule.Approvers = approversFromInput(req.Approvers)
	rule.Settings = settingsFromInput(req.Settings)
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := validateRuleApprovers(rule.Approvers); err != nil {
		return nil, err
	}

	if err := s.ruleRepo.Update(ctx, *rule); err != nil {
		return nil, NewBusinessError("RULE_UPDATE_FAILED", "Failed to update rule", err)
	}

	s.invalidateCache(ctx)

	recordAudit(ctx, s.auditRepo, models.AuditActionRuleUpdated, adminID,
		"Approval rule "+rule.Name+" updated", true,
		map[string]any{"rule_id": rule.ID}, metadata)

	out := dto.NewRuleDTO(rule)
	return &out, nil
}

// DeactivateRule turns a rule off without deleting its history
func (s *RuleFlowImpl) DeactivateRule(ctx context.Context, id uint, adminID uint, metadata *ClientMetadata) (*dto.RuleDTO, error) {
	rule, err := s.ruleRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("RULE_LOAD_FAILED", "Failed to load rule", err)
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}

	rule.IsActive = false
	if err := s.ruleRepo.Update(ctx, *rule); err != nil {
		return nil, NewBusinessError("RULE_UPDATE_FAILED", "Failed to deactivate rule", err)
	}

	s.invalidateCache(ctx)

	recordAudit(ctx, s.auditRepo, models.AuditActionRuleDeactivated, adminID,
		"Approval rule "+rule.Name+" deactivated", true,
		map[string]any{"rule_id": rule.ID}, metadata)

	out := dto.NewRuleDTO(rule)
	return &out, nil
}

// GetRule retrieves a rule by ID
func (s *RuleFlowImpl) GetRule(ctx context.Context, id uint) (*dto.RuleDTO, error) {
	rule, err := s.ruleRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("RULE_LOAD_FAILED", "Failed to load rule", err)
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	out := dto.NewRuleDTO(rule)
	return &out, nil
}

// ListRules lists rules, active only by default
func (s *RuleFlowImpl) ListRules(ctx context.Context, includeInactive bool) (*dto.ListRulesResponse, error) {
	var rows []*models.ApprovalRule
	var err error
	if includeInactive {
		rows, err = s.ruleRepo.ByFilter(ctx, models.ApprovalRuleFilter{}, "id ASC", 0, 0)
	} else {
		rows, err = s.ruleRepo.ListActive(ctx)
	}
	if err != nil {
		return nil, NewBusinessError("RULE_LIST_FAILED", "Failed to list rules", err)
	}

	items := make([]dto.RuleDTO, 0, len(rows))
	for _, r := range rows {
		items = append(items, dto.NewRuleDTO(r))
	}

	return &dto.ListRulesResponse{Items: items}, nil
}

func (s *RuleFlowImpl) invalidateCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Del(ctx, activeRulesCacheKey).Err()
	}
}

// validateRuleApprovers rejects rules that could never resolve an approver
func validateRuleApprovers(a models.RuleApprovers) error {
	if len(a.UserIDs) == 0 && len(a.Levels) == 0 {
		return NewBusinessError("RULE_APPROVERS_INVALID", "Rule must name approver users or levels", nil)
	}
	return nil
}

func conditionsFromInput(in dto.RuleConditionsInput) models.RuleConditions {
	return models.RuleConditions{
		CampaignKinds: in.CampaignKinds,
		MinTargets:    in.MinTargets,
		MaxTargets:    in.MaxTargets,
		Priorities:    in.Priorities,
		Channels:      in.Channels,
		CreatorLevels: in.CreatorLevels,
	}
}

func approversFromInput(in dto.RuleApproversInput) models.RuleApprovers {
	return models.RuleApprovers{
		UserIDs:      in.UserIDs,
		Levels:       in.Levels,
		MinApprovers: in.MinApprovers,
		RequireAll:   in.RequireAll,
	}
}

func settingsFromInput(in dto.RuleSettingsInput) models.RuleSettings {
	return models.RuleSettings{
		AllowSelfApproval:     in.AllowSelfApproval,
		RequireSequential:     in.RequireSequential,
		AutoApproveAfterHours: in.AutoApproveAfterHours,
		EscalationEnabled:     in.EscalationEnabled,
	}
}
