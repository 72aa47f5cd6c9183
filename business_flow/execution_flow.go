package businessflow

import (
	"context"
	"log"

	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/app/dto"
	"github.com/orgdesk/orgdesk/app/services"
	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/repository"
	"github.com/orgdesk/orgdesk/utils"
)

// ExecutionFlow turns an approved campaign into stored notifications and
// delivery jobs
type ExecutionFlow interface {
	ExecuteCampaign(ctx context.Context, campaignID uint) (*dto.ExecutionResultDTO, error)
	RecordEngagement(ctx context.Context, campaignID uint, kind string) (*dto.ExecutionResultDTO, error)
}

// ExecutionFlowImpl implements the campaign execution engine
type ExecutionFlowImpl struct {
	campaignRepo     repository.CampaignRepository
	templateRepo     repository.NotificationTemplateRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	auditRepo        repository.AuditLogRepository
	sink             services.NotificationSink
	eventBus         services.EventBus
	db               *gorm.DB
}

// NewExecutionFlow creates a new execution flow instance
func NewExecutionFlow(
	campaignRepo repository.CampaignRepository,
	templateRepo repository.NotificationTemplateRepository,
	userRepo repository.UserRepository,
	notificationRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	sink services.NotificationSink,
	eventBus services.EventBus,
	db *gorm.DB,
) ExecutionFlow {
	return &ExecutionFlowImpl{
		campaignRepo:     campaignRepo,
		templateRepo:     templateRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		auditRepo:        auditRepo,
		sink:             sink,
		eventBus:         eventBus,
		db:               db,
	}
}

// ExecuteCampaign claims the campaign, materializes one notification per
// recipient and hands the batch to the delivery sink. The status claim makes
// execution idempotent: a repeated or concurrent call loses the claim.
func (s *ExecutionFlowImpl) ExecuteCampaign(ctx context.Context, campaignID uint) (*dto.ExecutionResultDTO, error) {
	campaign, claimed, err := s.campaignRepo.ClaimForSending(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_EXECUTE_FAILED", "Failed to claim campaign", err)
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	if !claimed {
		return nil, ErrInvalidCampaignState
	}
	priorStatus := campaign.Status
	campaign.Status = models.CampaignStatusSending

	title, message, kind, err := s.resolveContent(ctx, campaign)
	if err != nil {
		s.rollback(ctx, campaign.ID, priorStatus)
		return nil, err
	}

	targetIDs := int64sToUints(campaign.TargetUserIDs)
	stats := models.CampaignStats{}

	// Zero recipients is a valid, immediately complete send
	if len(targetIDs) == 0 {
		if err := s.complete(ctx, campaign, stats); err != nil {
			return nil, err
		}
		return &dto.ExecutionResultDTO{CampaignID: campaign.ID, Status: campaign.Status.String(), Stats: stats}, nil
	}

	users, err := s.userRepo.ByIDs(ctx, targetIDs)
	if err != nil {
		s.rollback(ctx, campaign.ID, priorStatus)
		return nil, NewBusinessError("CAMPAIGN_EXECUTE_FAILED", "Failed to load recipients", err)
	}
	usersByID := make(map[uint]*models.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	notifications := make([]*models.Notification, 0, len(targetIDs))
	for _, userID := range targetIDs {
		user, ok := usersByID[userID]
		if !ok {
			// Target left the directory between creation and execution
			stats.Failed++
			continue
		}
		notifications = append(notifications, &models.Notification{
			Kind:           kind,
			Title:          RenderContent(title, user),
			Message:        RenderContent(message, user),
			UserID:         user.ID,
			Priority:       campaign.Priority,
			CampaignID:     &campaign.ID,
			CreatedBy:      campaign.CreatedBy,
			DeliveryStatus: models.PendingForChannels(campaign.Channels),
			ScheduledFor:   campaign.ScheduledFor,
		})
	}

	if err := s.notificationRepo.SaveBatch(ctx, notifications); err != nil {
		// Never leave the campaign stuck in sending
		s.rollback(ctx, campaign.ID, priorStatus)
		return nil, NewBusinessError("CAMPAIGN_EXECUTE_FAILED", "Failed to store notifications", err)
	}

	jobs := make([]services.DeliveryJob, 0, len(notifications))
	for _, n := range notifications {
		jobs = append(jobs, services.NewDeliveryJob(n, campaign.Channels))
	}
	failedIdx := s.sink.PublishBatch(ctx, jobs)

	stats.Sent = len(notifications) - len(failedIdx)
	stats.Failed += len(failedIdx)

	if err := s.complete(ctx, campaign, stats); err != nil {
		return nil, err
	}

	recordAudit(ctx, s.auditRepo, models.AuditActionCampaignExecuted, campaign.CreatedBy,
		"Campaign "+campaign.Name+" executed", true,
		map[string]any{"campaign_id": campaign.ID, "sent": stats.Sent, "failed": stats.Failed}, nil)

	s.publishEvent(ctx, "campaign.completed", campaign, stats)

	return &dto.ExecutionResultDTO{CampaignID: campaign.ID, Status: campaign.Status.String(), Stats: stats}, nil
}

// RecordEngagement bumps one delivery counter. Counters only grow; this flow
// is the single writer of campaign stats.
func (s *ExecutionFlowImpl) RecordEngagement(ctx context.Context, campaignID uint, kind string) (*dto.ExecutionResultDTO, error) {
	campaign, err := s.campaignRepo.ByID(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("ENGAGEMENT_RECORD_FAILED", "Failed to load campaign", err)
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	stats := campaign.Stats
	switch kind {
	case "delivered":
		stats.Delivered++
	case "opened":
		stats.Opened++
	case "clicked":
		stats.Clicked++
	default:
		return nil, NewBusinessError("ENGAGEMENT_KIND_INVALID", "Unknown engagement kind: "+kind, nil)
	}

	if err := s.campaignRepo.UpdateStats(ctx, campaign.ID, stats); err != nil {
		return nil, NewBusinessError("ENGAGEMENT_RECORD_FAILED", "Failed to update stats", err)
	}

	return &dto.ExecutionResultDTO{CampaignID: campaign.ID, Status: campaign.Status.String(), Stats: stats}, nil
}

// resolveContent picks the campaign's title and message from its template or
// custom fields
func (s *ExecutionFlowImpl) resolveContent(ctx context.Context, campaign *models.Campaign) (title, message string, kind models.NotificationKind, err error) {
	if campaign.TemplateID == nil {
		if campaign.CustomTitle == "" || campaign.CustomMessage == "" {
			return "", "", "", ErrCampaignMisconfigured
		}
		return campaign.CustomTitle, campaign.CustomMessage, models.NotificationKindMessage, nil
	}

	template, err := s.templateRepo.ByID(ctx, *campaign.TemplateID)
	if err != nil {
		return "", "", "", NewBusinessError("CAMPAIGN_EXECUTE_FAILED", "Failed to load template", err)
	}
	if template == nil || !template.IsActive {
		return "", "", "", ErrCampaignMisconfigured
	}

	return template.Title, template.Message, template.Kind, nil
}

// complete stamps the final state and stats
func (s *ExecutionFlowImpl) complete(ctx context.Context, campaign *models.Campaign, stats models.CampaignStats) error {
	now := utils.UTCNow()
	campaign.Status = models.CampaignStatusCompleted
	campaign.Stats = stats
	campaign.SentAt = &now
	campaign.Template = nil

	if err := s.campaignRepo.Update(ctx, *campaign); err != nil {
		return NewBusinessError("CAMPAIGN_EXECUTE_FAILED", "Failed to finalize campaign", err)
	}
	return nil
}

// rollback returns the claimed campaign to its pre-claim status
func (s *ExecutionFlowImpl) rollback(ctx context.Context, campaignID uint, prior models.CampaignStatus) {
	changed, err := s.campaignRepo.UpdateStatusIf(ctx, campaignID,
		[]models.CampaignStatus{models.CampaignStatusSending}, prior)
	if err != nil || !changed {
		log.Printf("execution flow: failed to roll campaign %d back to %s: %v", campaignID, prior, err)
	}
}

func (s *ExecutionFlowImpl) publishEvent(ctx context.Context, eventType string, campaign *models.Campaign, stats models.CampaignStats) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, utils.EventChannelNotifications, services.Event{
		Type: eventType,
		Payload: map[string]any{
			"campaign_id": campaign.ID,
			"status":      campaign.Status.String(),
			"sent":        stats.Sent,
			"failed":      stats.Failed,
		},
	})
}
