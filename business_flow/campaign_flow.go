// Package businessflow contains the core business logic and use cases for campaign approval workflows
package businessflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/app/dto"
	"github.com/orgdesk/orgdesk/app/services"
	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/repository"
	"github.com/orgdesk/orgdesk/utils"
)

const activeRulesCacheKey = "approval_rules:active"
const activeRulesCacheTTL = 30 * time.Second

// CampaignFlow handles the campaign lifecycle business logic
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, creatorID uint, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	UpdateCampaign(ctx context.Context, id uint, req *dto.UpdateCampaignRequest, userID uint, userLevel int, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	SubmitCampaign(ctx context.Context, id uint, userID uint, userLevel int, metadata *ClientMetadata) (*dto.SubmitCampaignResponse, error)
	CancelCampaign(ctx context.Context, id uint, userID uint, userLevel int, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	GetCampaign(ctx context.Context, id uint, userID uint, userLevel int) (*dto.CampaignDTO, error)
	ListCampaigns(ctx context.Context, filter dto.ListCampaignsFilter, userID uint, userLevel int) (*dto.ListCampaignsResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	templateRepo repository.NotificationTemplateRepository
	ruleRepo     repository.ApprovalRuleRepository
	workflowRepo repository.ApprovalWorkflowRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditLogRepository
	eventBus     services.EventBus
	cache        *redis.Client
	db           *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	templateRepo repository.NotificationTemplateRepository,
	ruleRepo repository.ApprovalRuleRepository,
	workflowRepo repository.ApprovalWorkflowRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	eventBus services.EventBus,
	cache *redis.Client,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo: campaignRepo,
		templateRepo: templateRepo,
		ruleRepo:     ruleRepo,
		workflowRepo: workflowRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		eventBus:     eventBus,
		cache:        cache,
		db:           db,
	}
}

// CreateCampaign creates a draft campaign
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest, creatorID uint, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	targets := dedupeUints(req.TargetUserIDs)
	if len(targets) == 0 {
		return nil, ErrNoTargetUsers
	}

	campaign := &models.Campaign{
		Name:          req.Name,
		Description:   req.Description,
		TemplateID:    req.TemplateID,
		CustomTitle:   req.CustomTitle,
		CustomMessage: req.CustomMessage,
		TargetUserIDs: uintsToInt64s(targets),
		Priority:      models.Priority(req.Priority),
		Channels:      normalizedChannels(req.Channels),
		ScheduledFor:  utils.TimeToUTCPtr(req.ScheduledFor),
		Status:        models.CampaignStatusDraft,
		CreatedBy:     creatorID,
	}
	if campaign.Priority == "" {
		campaign.Priority = models.PriorityMedium
	}

	if err := campaign.ValidateContent(); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CONTENT_INVALID", err.Error(), ErrCampaignMisconfigured)
	}
	if len(campaign.Channels) == 0 {
		return nil, NewBusinessError("CAMPAIGN_CHANNELS_INVALID", "At least one delivery channel is required", nil)
	}
	if campaign.TemplateID != nil {
		if err := s.checkTemplate(ctx, *campaign.TemplateID); err != nil {
			return nil, err
		}
	}

	if err := s.campaignRepo.Save(ctx, campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATE_FAILED", "Failed to create campaign", err)
	}

	recordAudit(ctx, s.auditRepo, models.AuditActionCampaignCreated, creatorID,
		"Campaign "+campaign.Name+" created", true,
		map[string]any{"campaign_id": campaign.ID}, metadata)

	out := dto.NewCampaignDTO(campaign)
	return &out, nil
}

// UpdateCampaign updates a campaign while it is still editable
func (s *CampaignFlowImpl) UpdateCampaign(ctx context.Context, id uint, req *dto.UpdateCampaignRequest, userID uint, userLevel int, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	campaign, err := s.loadOwned(ctx, id, userID, userLevel)
	if err != nil {
		return nil, err
	}
	if !campaign.IsEditable() {
		return nil, ErrCampaignUpdateNotAllowed
	}

	if req.Name != nil {
		campaign.Name = *req.Name
	}
	if req.Description != nil {
		campaign.Description = *req.Description
	}
	if req.TemplateID != nil {
		campaign.TemplateID = req.TemplateID
		campaign.CustomTitle = ""
		campaign.CustomMessage = ""
	}
	if req.CustomTitle != nil {
		campaign.CustomTitle = *req.CustomTitle
		campaign.TemplateID = nil
	}
	if req.CustomMessage != nil {
		campaign.CustomMessage = *req.CustomMessage
		campaign.TemplateID = nil
	}
	if len(req.TargetUserIDs) > 0 {
		campaign.TargetUserIDs = uintsToInt64s(dedupeUints(req.TargetUserIDs))
	}
	if req.Priority != nil {
		campaign.Priority = models.Priority(*req.Priority)
	}
	if len(req.Channels) > 0 {
		campaign.Channels = normalizedChannels(req.Channels)
	}
	if req.ScheduledFor != nil {
		campaign.ScheduledFor = utils.TimeToUTCPtr(req.ScheduledFor)
	}

	if err := campaign.ValidateContent(); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CONTENT_INVALID", err.Error(), ErrCampaignMisconfigured)
	}
	if campaign.TemplateID != nil {
		if err := s.checkTemplate(ctx, *campaign.TemplateID); err != nil {
			return nil, err
		}
	}

	campaign.Template = nil
	if err := s.campaignRepo.Update(ctx, *campaign); err != nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Failed to update campaign", err)
	}

	recordAudit(ctx, s.auditRepo, models.AuditActionCampaignUpdated, userID,
		"Campaign "+campaign.Name+" updated", true,
		map[string]any{"campaign_id": campaign.ID}, metadata)

	out := dto.NewCampaignDTO(campaign)
	return &out, nil
}

// SubmitCampaign evaluates the approval rules and either opens a workflow or
// releases the campaign for delivery.
func (s *CampaignFlowImpl) SubmitCampaign(ctx context.Context, id uint, userID uint, userLevel int, metadata *ClientMetadata) (*dto.SubmitCampaignResponse, error) {
	campaign, err := s.loadOwned(ctx, id, userID, userLevel)
	if err != nil {
		return nil, err
	}
	if campaign.Status != models.CampaignStatusDraft {
		return nil, ErrInvalidCampaignState
	}
	if err := campaign.ValidateContent(); err != nil {
		return nil, NewBusinessError("CAMPAIGN_CONTENT_INVALID", err.Error(), ErrCampaignMisconfigured)
	}
	if len(campaign.TargetUserIDs) == 0 {
		return nil, ErrNoTargetUsers
	}

	kind := string(models.NotificationKindMessage)
	if campaign.TemplateID != nil {
		template, err := s.templateRepo.ByID(ctx, *campaign.TemplateID)
		if err != nil {
			return nil, NewBusinessError("CAMPAIGN_SUBMIT_FAILED", "Failed to load template", err)
		}
		if template == nil {
			return nil, ErrTemplateNotFound
		}
		if !template.IsActive {
			return nil, ErrTemplateDisabled
		}
		kind = template.Kind.String()
	}

	creator, err := s.userRepo.ByID(ctx, campaign.CreatedBy)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SUBMIT_FAILED", "Failed to load creator", err)
	}
	creatorLevel := 0
	if creator != nil {
		creatorLevel = creator.HierarchyLevel
	}

	rules, err := s.activeRules(ctx)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SUBMIT_FAILED", "Failed to load approval rules", err)
	}

	requirement := MatchRules(rules, CampaignAttributes{
		Kind:         kind,
		TargetCount:  len(campaign.TargetUserIDs),
		Priority:     campaign.Priority.String(),
		Channels:     campaign.Channels,
		CreatorLevel: creatorLevel,
	})
	// The creator can also demand approval explicitly; senior management
	// (CEO and directors) then reviews.
	if requirement == nil && campaign.RequiresApproval {
		requirement = &ApprovalRequirement{
			ApproverLevels: []int{utils.LevelCEO, utils.LevelDirector},
			MinApprovers:   1,
		}
	}

	resp := &dto.SubmitCampaignResponse{}

	if requirement == nil {
		if err := s.release(ctx, campaign); err != nil {
			return nil, err
		}
		resp.Campaign = dto.NewCampaignDTO(campaign)
		s.publishCampaignEvent(ctx, "campaign.submitted", campaign)
		return resp, nil
	}

	approvers, err := ResolveApprovers(ctx, s.userRepo, requirement, campaign.CreatedBy)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SUBMIT_FAILED", "Failed to resolve approvers", err)
	}
	// Nobody left to approve (every candidate was the excluded creator):
	// the campaign would deadlock, so it goes straight through.
	if len(approvers) == 0 {
		if err := s.release(ctx, campaign); err != nil {
			return nil, err
		}
		resp.Campaign = dto.NewCampaignDTO(campaign)
		s.publishCampaignEvent(ctx, "campaign.submitted", campaign)
		return resp, nil
	}

	workflow := buildWorkflow(campaign, requirement, approvers, userID)

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		changed, err := s.campaignRepo.UpdateStatusIf(txCtx, campaign.ID,
			[]models.CampaignStatus{models.CampaignStatusDraft}, models.CampaignStatusPendingApproval)
		if err != nil {
			return err
		}
		if !changed {
			return ErrInvalidCampaignState
		}
		return s.workflowRepo.Save(txCtx, workflow)
	})
	if err != nil {
		if IsInvalidCampaignState(err) {
			return nil, err
		}
		return nil, NewBusinessError("CAMPAIGN_SUBMIT_FAILED", "Failed to open approval workflow", err)
	}
	campaign.Status = models.CampaignStatusPendingApproval

	recordAudit(ctx, s.auditRepo, models.AuditActionCampaignSubmitted, userID,
		"Campaign "+campaign.Name+" submitted for approval", true,
		map[string]any{"campaign_id": campaign.ID, "workflow_id": workflow.ID, "rule_ids": requirement.MatchedRuleIDs}, metadata)

	resp.Campaign = dto.NewCampaignDTO(campaign)
	wf := dto.NewWorkflowDTO(workflow)
	resp.Workflow = &wf
	s.publishCampaignEvent(ctx, "campaign.submitted", campaign)
	return resp, nil
}

// CancelCampaign cancels a campaign in any pre-sending state
func (s *CampaignFlowImpl) CancelCampaign(ctx context.Context, id uint, userID uint, userLevel int, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	campaign, err := s.loadOwned(ctx, id, userID, userLevel)
	if err != nil {
		return nil, err
	}
	if !campaign.IsCancellable() {
		return nil, ErrInvalidCampaignState
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		changed, err := s.campaignRepo.UpdateStatusIf(txCtx, campaign.ID,
			[]models.CampaignStatus{
				models.CampaignStatusDraft, models.CampaignStatusPendingApproval,
				models.CampaignStatusApproved, models.CampaignStatusScheduled,
			}, models.CampaignStatusCancelled)
		if err != nil {
			return err
		}
		if !changed {
			return ErrInvalidCampaignState
		}

		workflow, err := s.workflowRepo.ByCampaignID(txCtx, campaign.ID)
		if err != nil {
			return err
		}
		if workflow != nil && workflow.Status == models.WorkflowStatusPending {
			comment := "Campaign cancelled"
			_, err = s.workflowRepo.UpdateStatusIf(txCtx, workflow.ID,
				models.WorkflowStatusPending, models.WorkflowStatusCancelled, &userID, &comment)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if IsInvalidCampaignState(err) {
			return nil, err
		}
		return nil, NewBusinessError("CAMPAIGN_CANCEL_FAILED", "Failed to cancel campaign", err)
	}
	campaign.Status = models.CampaignStatusCancelled

	recordAudit(ctx, s.auditRepo, models.AuditActionCampaignCancelled, userID,
		"Campaign "+campaign.Name+" cancelled", true,
		map[string]any{"campaign_id": campaign.ID}, metadata)

	s.publishCampaignEvent(ctx, "campaign.cancelled", campaign)

	out := dto.NewCampaignDTO(campaign)
	return &out, nil
}

// GetCampaign retrieves a single campaign
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, id uint, userID uint, userLevel int) (*dto.CampaignDTO, error) {
	campaign, err := s.loadOwned(ctx, id, userID, userLevel)
	if err != nil {
		return nil, err
	}
	out := dto.NewCampaignDTO(campaign)
	return &out, nil
}

// ListCampaigns lists campaigns. Admins (CEO and directors) see every
// creator's campaigns; everyone else sees their own.
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, filter dto.ListCampaignsFilter, userID uint, userLevel int) (*dto.ListCampaignsResponse, error) {
	filter.Normalize()

	cf := models.CampaignFilter{}
	if userLevel > utils.AdminMaxLevel {
		cf.CreatedBy = &userID
	}
	if filter.Status != nil && *filter.Status != "" {
		st := models.CampaignStatus(*filter.Status)
		if st.Valid() {
			cf.Status = &st
		}
	}

	rows, err := s.campaignRepo.ByFilter(ctx, cf, "created_at DESC", filter.PageSize, filter.Offset())
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}
	total, err := s.campaignRepo.Count(ctx, cf)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to count campaigns", err)
	}

	items := make([]dto.CampaignDTO, 0, len(rows))
	for _, c := range rows {
		items = append(items, dto.NewCampaignDTO(c))
	}

	return &dto.ListCampaignsResponse{Items: items, Total: total}, nil
}

// loadOwned loads a campaign and checks access: the creator or an admin
func (s *CampaignFlowImpl) loadOwned(ctx context.Context, id, userID uint, userLevel int) (*models.Campaign, error) {
	campaign, err := s.campaignRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOAD_FAILED", "Failed to load campaign", err)
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	if campaign.CreatedBy != userID && userLevel > utils.AdminMaxLevel {
		return nil, ErrCampaignAccessDenied
	}
	return campaign, nil
}

// release moves a draft campaign straight past approval
func (s *CampaignFlowImpl) release(ctx context.Context, campaign *models.Campaign) error {
	target := models.CampaignStatusApproved
	if campaign.ScheduledFor != nil {
		target = models.CampaignStatusScheduled
	}

	changed, err := s.campaignRepo.UpdateStatusIf(ctx, campaign.ID,
		[]models.CampaignStatus{models.CampaignStatusDraft}, target)
	if err != nil {
		return NewBusinessError("CAMPAIGN_SUBMIT_FAILED", "Failed to release campaign", err)
	}
	if !changed {
		return ErrInvalidCampaignState
	}
	campaign.Status = target
	return nil
}

// checkTemplate verifies the referenced template exists and is enabled
func (s *CampaignFlowImpl) checkTemplate(ctx context.Context, templateID uint) error {
	template, err := s.templateRepo.ByID(ctx, templateID)
	if err != nil {
		return NewBusinessError("TEMPLATE_LOAD_FAILED", "Failed to load template", err)
	}
	if template == nil {
		return ErrTemplateNotFound
	}
	if !template.IsActive {
		return ErrTemplateDisabled
	}
	return nil
}

// activeRules returns the active rule set, cached briefly in Redis so bursts
// of submissions do not hammer the table
func (s *CampaignFlowImpl) activeRules(ctx context.Context) ([]*models.ApprovalRule, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, activeRulesCacheKey).Bytes(); err == nil {
			var rules []*models.ApprovalRule
			if json.Unmarshal(raw, &rules) == nil {
				return rules, nil
			}
		}
	}

	rules, err := s.ruleRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(rules); err == nil {
			_ = s.cache.Set(ctx, activeRulesCacheKey, raw, activeRulesCacheTTL).Err()
		}
	}

	return rules, nil
}

func (s *CampaignFlowImpl) publishCampaignEvent(ctx context.Context, eventType string, campaign *models.Campaign) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, utils.EventChannelCampaigns, services.Event{
		Type: eventType,
		Payload: map[string]any{
			"campaign_id": campaign.ID,
			"status":      campaign.Status.String(),
		},
	})
}

// buildWorkflow lays the requirement out as workflow rows. Sequential
// workflows walk the approver chain one step at a time; parallel ones put
// everyone on step 1.
func buildWorkflow(campaign *models.Campaign, req *ApprovalRequirement, approvers []*models.User, requestedBy uint) *models.ApprovalWorkflow {
	workflow := &models.ApprovalWorkflow{
		CampaignID:            campaign.ID,
		Status:                models.WorkflowStatusPending,
		RequestedBy:           requestedBy,
		RequestedAt:           utils.UTCNow(),
		CurrentStep:           1,
		TotalSteps:            len(approvers),
		RequireAllApprovers:   req.RequireAll,
		AllowParallelApproval: !req.RequireSequential,
		MinApprovers:          req.MinApprovers,
		AutoApproveAfterHours: req.AutoApproveAfterHours,
	}
	if req.MinApprovers > len(approvers) {
		workflow.MinApprovers = len(approvers)
	}

	workflow.Approvers = make([]models.WorkflowApprover, 0, len(approvers))
	for i, user := range approvers {
		step := 1
		if req.RequireSequential {
			step = i + 1
		}
		workflow.Approvers = append(workflow.Approvers, models.WorkflowApprover{
			UserID:    user.ID,
			StepOrder: step,
			Status:    models.ApproverStatusPending,
		})
	}

	return workflow
}

func uintsToInt64s(ids []uint) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}
