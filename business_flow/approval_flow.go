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

// ApprovalFlow handles the approval workflow state machine
type ApprovalFlow interface {
	Approve(ctx context.Context, workflowID, approverID uint, req *dto.ApprovalDecisionRequest, metadata *ClientMetadata) (*dto.WorkflowDTO, error)
	Reject(ctx context.Context, workflowID, approverID uint, req *dto.RejectionRequest, metadata *ClientMetadata) (*dto.WorkflowDTO, error)
	Cancel(ctx context.Context, workflowID, userID uint, metadata *ClientMetadata) (*dto.WorkflowDTO, error)
	GetWorkflow(ctx context.Context, workflowID uint) (*dto.WorkflowDTO, error)
	GetByCampaign(ctx context.Context, campaignID uint) (*dto.WorkflowDTO, error)
	ListPending(ctx context.Context, approverID uint, page dto.PaginationRequest) (*dto.ListWorkflowsResponse, error)
	AutoApproveDue(ctx context.Context) (int, error)
}

// ApprovalFlowImpl implements the approval business flow
type ApprovalFlowImpl struct {
	workflowRepo     repository.ApprovalWorkflowRepository
	campaignRepo     repository.CampaignRepository
	notificationRepo repository.NotificationRepository
	auditRepo        repository.AuditLogRepository
	eventBus         services.EventBus
	db               *gorm.DB
}

// NewApprovalFlow creates a new approval flow instance
func NewApprovalFlow(
	workflowRepo repository.ApprovalWorkflowRepository,
	campaignRepo repository.CampaignRepository,
	notificationRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	eventBus services.EventBus,
	db *gorm.DB,
) ApprovalFlow {
	return &ApprovalFlowImpl{
		workflowRepo:     workflowRepo,
		campaignRepo:     campaignRepo,
		notificationRepo: notificationRepo,
		auditRepo:        auditRepo,
		eventBus:         eventBus,
		db:               db,
	}
}

// computeOutcome folds the approver decisions into a workflow status. A
// single rejection settles the workflow; otherwise requireAll demands every
// approver and the quorum mode demands at least minApprovers.
func computeOutcome(approvers []models.WorkflowApprover, requireAll bool, minApprovers int) models.WorkflowStatus {
	approved := 0
	for _, a := range approvers {
		switch a.Status {
		case models.ApproverStatusRejected:
			return models.WorkflowStatusRejected
		case models.ApproverStatusApproved:
			approved++
		}
	}

	if requireAll {
		if approved == len(approvers) {
			return models.WorkflowStatusApproved
		}
		return models.WorkflowStatusPending
	}

	if minApprovers < 1 {
		minApprovers = 1
	}
	if approved >= minApprovers {
		return models.WorkflowStatusApproved
	}
	return models.WorkflowStatusPending
}

// nextPendingStep returns the lowest step that still has a pending approver,
// or 0 when none remain
func nextPendingStep(approvers []models.WorkflowApprover) int {
	next := 0
	for _, a := range approvers {
		if a.Status != models.ApproverStatusPending {
			continue
		}
		if next == 0 || a.StepOrder < next {
			next = a.StepOrder
		}
	}
	return next
}

// Approve records one approver's approval and settles the workflow when the
// quorum is reached.
func (s *ApprovalFlowImpl) Approve(ctx context.Context, workflowID, approverID uint, req *dto.ApprovalDecisionRequest, metadata *ClientMetadata) (*dto.WorkflowDTO, error) {
	workflow, err := s.loadPendingFor(ctx, workflowID, approverID)
	if err != nil {
		return nil, err
	}

	slot := workflow.ApproverFor(approverID)
	if !workflow.AllowParallelApproval && slot.StepOrder > workflow.CurrentStep {
		return nil, ErrNotApproverTurn
	}

	var comment *string
	if req != nil {
		comment = req.Comment
	}

	var decided *models.ApprovalWorkflow
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		// Lock the workflow row so concurrent deciders serialize and the
		// quorum is always computed over the peers' committed decisions
		locked, err := s.workflowRepo.ByIDForUpdate(txCtx, workflow.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrWorkflowNotFound
		}
		if locked.Status.IsTerminal() {
			return ErrWorkflowAlreadyDecided
		}

		changed, err := s.workflowRepo.DecideApprover(txCtx, locked.ID, approverID,
			models.ApproverStatusApproved, comment, utils.UTCNow())
		if err != nil {
			return err
		}
		if !changed {
			return ErrApproverAlreadyDecided
		}
		if slot := locked.ApproverFor(approverID); slot != nil {
			slot.Status = models.ApproverStatusApproved
		}

		outcome := computeOutcome(locked.Approvers, locked.RequireAllApprovers, locked.MinApprovers)
		switch outcome {
		case models.WorkflowStatusApproved:
			changed, err := s.workflowRepo.UpdateStatusIf(txCtx, locked.ID,
				models.WorkflowStatusPending, models.WorkflowStatusApproved, &approverID, comment)
			if err != nil {
				return err
			}
			if !changed {
				return ErrWorkflowAlreadyDecided
			}
			locked.Status = models.WorkflowStatusApproved
			return s.releaseCampaign(txCtx, locked, approverID)
		default:
			if !locked.AllowParallelApproval {
				if next := nextPendingStep(locked.Approvers); next > locked.CurrentStep {
					if err := s.workflowRepo.UpdateCurrentStep(txCtx, locked.ID, next); err != nil {
						return err
					}
				}
			}
			return nil
		}
	})
	if err != nil {
		if isFlowError(err) {
			return nil, err
		}
		return nil, NewBusinessError("WORKFLOW_APPROVE_FAILED", "Failed to record approval", err)
	}

	decided, err = s.workflowRepo.ByID(ctx, workflow.ID)
	if err != nil || decided == nil {
		decided = workflow
	}

	recordAudit(ctx, s.auditRepo, models.AuditActionWorkflowApproved, approverID,
		"Workflow approval recorded", true,
		map[string]any{"workflow_id": workflow.ID, "campaign_id": workflow.CampaignID, "final": decided.Status.String()}, metadata)

	s.notifyRequester(ctx, decided, approverID)
	s.publishWorkflowEvent(ctx, "workflow.approved", decided)

	out := dto.NewWorkflowDTO(decided)
	return &out, nil
}

// Reject records one approver's rejection; a single rejection settles the
// whole workflow immediately.
func (s *ApprovalFlowImpl) Reject(ctx context.Context, workflowID, approverID uint, req *dto.RejectionRequest, metadata *ClientMetadata) (*dto.WorkflowDTO, error) {
	workflow, err := s.loadPendingFor(ctx, workflowID, approverID)
	if err != nil {
		return nil, err
	}

	slot := workflow.ApproverFor(approverID)
	if !workflow.AllowParallelApproval && slot.StepOrder > workflow.CurrentStep {
		return nil, ErrNotApproverTurn
	}

	comment := req.Comment

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		// Same locking discipline as Approve: a rejection must not land on
		// a workflow a concurrent approval already settled
		locked, err := s.workflowRepo.ByIDForUpdate(txCtx, workflow.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrWorkflowNotFound
		}
		if locked.Status.IsTerminal() {
			return ErrWorkflowAlreadyDecided
		}

		changed, err := s.workflowRepo.DecideApprover(txCtx, locked.ID, approverID,
			models.ApproverStatusRejected, &comment, utils.UTCNow())
		if err != nil {
			return err
		}
		if !changed {
			return ErrApproverAlreadyDecided
		}

		changed, err = s.workflowRepo.UpdateStatusIf(txCtx, locked.ID,
			models.WorkflowStatusPending, models.WorkflowStatusRejected, &approverID, &comment)
		if err != nil {
			return err
		}
		if !changed {
			return ErrWorkflowAlreadyDecided
		}
		locked.Status = models.WorkflowStatusRejected

		return s.rejectCampaign(txCtx, locked, approverID, comment)
	})
	if err != nil {
		if isFlowError(err) {
			return nil, err
		}
		return nil, NewBusinessError("WORKFLOW_REJECT_FAILED", "Failed to record rejection", err)
	}

	decided, err := s.workflowRepo.ByID(ctx, workflow.ID)
	if err != nil || decided == nil {
		decided = workflow
	}

	recordAudit(ctx, s.auditRepo, models.AuditActionWorkflowRejected, approverID,
		"Workflow rejected: "+comment, true,
		map[string]any{"workflow_id": workflow.ID, "campaign_id": workflow.CampaignID}, metadata)

	s.notifyRequester(ctx, decided, approverID)
	s.publishWorkflowEvent(ctx, "workflow.rejected", decided)

	out := dto.NewWorkflowDTO(decided)
	return &out, nil
}

// Cancel withdraws a pending workflow. Only the requester may cancel; the
// campaign drops back to draft.
func (s *ApprovalFlowImpl) Cancel(ctx context.Context, workflowID, userID uint, metadata *ClientMetadata) (*dto.WorkflowDTO, error) {
	workflow, err := s.workflowRepo.ByID(ctx, workflowID)
	if err != nil {
		return nil, NewBusinessError("WORKFLOW_LOAD_FAILED", "Failed to load workflow", err)
	}
	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}
	if workflow.Status.IsTerminal() {
		return nil, ErrWorkflowAlreadyDecided
	}
	if workflow.RequestedBy != userID {
		return nil, ErrWorkflowCancelNotOwner
	}

	comment := "Withdrawn by requester"
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		changed, err := s.workflowRepo.UpdateStatusIf(txCtx, workflow.ID,
			models.WorkflowStatusPending, models.WorkflowStatusCancelled, &userID, &comment)
		if err != nil {
			return err
		}
		if !changed {
			return ErrWorkflowAlreadyDecided
		}
		workflow.Status = models.WorkflowStatusCancelled

		_, err = s.campaignRepo.UpdateStatusIf(txCtx, workflow.CampaignID,
			[]models.CampaignStatus{models.CampaignStatusPendingApproval}, models.CampaignStatusDraft)
		return err
	})
	if err != nil {
		if isFlowError(err) {
			return nil, err
		}
		return nil, NewBusinessError("WORKFLOW_CANCEL_FAILED", "Failed to cancel workflow", err)
	}

	recordAudit(ctx, s.auditRepo, models.AuditActionWorkflowCancelled, userID,
		"Workflow cancelled by requester", true,
		map[string]any{"workflow_id": workflow.ID, "campaign_id": workflow.CampaignID}, metadata)

	s.publishWorkflowEvent(ctx, "workflow.cancelled", workflow)

	out := dto.NewWorkflowDTO(workflow)
	return &out, nil
}

// GetWorkflow retrieves a workflow by ID
func (s *ApprovalFlowImpl) GetWorkflow(ctx context.Context, workflowID uint) (*dto.WorkflowDTO, error) {
	workflow, err := s.workflowRepo.ByID(ctx, workflowID)
	if err != nil {
		return nil, NewBusinessError("WORKFLOW_LOAD_FAILED", "Failed to load workflow", err)
	}
	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}
	out := dto.NewWorkflowDTO(workflow)
	return &out, nil
}

// GetByCampaign retrieves the workflow attached to a campaign
func (s *ApprovalFlowImpl) GetByCampaign(ctx context.Context, campaignID uint) (*dto.WorkflowDTO, error) {
	workflow, err := s.workflowRepo.ByCampaignID(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("WORKFLOW_LOAD_FAILED", "Failed to load workflow", err)
	}
	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}
	out := dto.NewWorkflowDTO(workflow)
	return &out, nil
}

// ListPending lists the workflows still waiting on the given approver
func (s *ApprovalFlowImpl) ListPending(ctx context.Context, approverID uint, page dto.PaginationRequest) (*dto.ListWorkflowsResponse, error) {
	page.Normalize()

	rows, err := s.workflowRepo.ListPendingByApprover(ctx, approverID, page.PageSize, page.Offset())
	if err != nil {
		return nil, NewBusinessError("WORKFLOW_LIST_FAILED", "Failed to list pending workflows", err)
	}

	items := make([]dto.WorkflowDTO, 0, len(rows))
	for _, w := range rows {
		items = append(items, dto.NewWorkflowDTO(w))
	}

	return &dto.ListWorkflowsResponse{Items: items}, nil
}

// AutoApproveDue settles every pending workflow whose auto-approval deadline
// has passed. The system is the decider, so decided_by stays empty. Returns
// the number of workflows approved.
func (s *ApprovalFlowImpl) AutoApproveDue(ctx context.Context) (int, error) {
	due, err := s.workflowRepo.ListPendingAutoApprovable(ctx, utils.UTCNow(), 100)
	if err != nil {
		return 0, NewBusinessError("WORKFLOW_SWEEP_FAILED", "Failed to list auto-approvable workflows", err)
	}

	approved := 0
	for _, workflow := range due {
		comment := "Auto-approved: no decision before the deadline"
		err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
			changed, err := s.workflowRepo.UpdateStatusIf(txCtx, workflow.ID,
				models.WorkflowStatusPending, models.WorkflowStatusApproved, nil, &comment)
			if err != nil {
				return err
			}
			if !changed {
				// Someone decided between the listing and now
				return ErrWorkflowAlreadyDecided
			}
			workflow.Status = models.WorkflowStatusApproved
			return s.releaseCampaign(txCtx, workflow, 0)
		})
		if err != nil {
			if !isFlowError(err) {
				log.Printf("approval flow: auto-approval of workflow %d failed: %v", workflow.ID, err)
			}
			continue
		}
		approved++

		recordAudit(ctx, s.auditRepo, models.AuditActionWorkflowAutoApproved, workflow.RequestedBy,
			"Workflow auto-approved after deadline", true,
			map[string]any{"workflow_id": workflow.ID, "campaign_id": workflow.CampaignID}, nil)

		s.notifyRequester(ctx, workflow, workflow.RequestedBy)
		s.publishWorkflowEvent(ctx, "workflow.auto_approved", workflow)
	}

	return approved, nil
}

// loadPendingFor loads the workflow and checks that the caller holds a
// pending approver slot
func (s *ApprovalFlowImpl) loadPendingFor(ctx context.Context, workflowID, approverID uint) (*models.ApprovalWorkflow, error) {
	workflow, err := s.workflowRepo.ByID(ctx, workflowID)
	if err != nil {
		return nil, NewBusinessError("WORKFLOW_LOAD_FAILED", "Failed to load workflow", err)
	}
	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}
	if workflow.Status.IsTerminal() {
		return nil, ErrWorkflowAlreadyDecided
	}

	slot := workflow.ApproverFor(approverID)
	if slot == nil {
		return nil, ErrNotAnApprover
	}
	if slot.Status != models.ApproverStatusPending {
		return nil, ErrApproverAlreadyDecided
	}

	return workflow, nil
}

// releaseCampaign moves the approved campaign onward: scheduled when a send
// time exists, approved otherwise. decidedBy nil means the system decided.
func (s *ApprovalFlowImpl) releaseCampaign(ctx context.Context, workflow *models.ApprovalWorkflow, decidedBy uint) error {
	campaign, err := s.campaignRepo.ByID(ctx, workflow.CampaignID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return ErrCampaignNotFound
	}

	target := models.CampaignStatusApproved
	if campaign.ScheduledFor != nil {
		target = models.CampaignStatusScheduled
	}
	changed, err := s.campaignRepo.UpdateStatusIf(ctx, campaign.ID,
		[]models.CampaignStatus{models.CampaignStatusPendingApproval}, target)
	if err != nil {
		return err
	}
	if !changed {
		return ErrInvalidCampaignState
	}

	campaign.Status = target
	now := utils.UTCNow()
	campaign.ApprovedAt = &now
	if decidedBy != 0 {
		campaign.ApprovedBy = &decidedBy
	}
	campaign.Template = nil
	return s.campaignRepo.Update(ctx, *campaign)
}

// rejectCampaign marks the campaign rejected with the decision comment
func (s *ApprovalFlowImpl) rejectCampaign(ctx context.Context, workflow *models.ApprovalWorkflow, decidedBy uint, reason string) error {
	campaign, err := s.campaignRepo.ByID(ctx, workflow.CampaignID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return ErrCampaignNotFound
	}

	changed, err := s.campaignRepo.UpdateStatusIf(ctx, campaign.ID,
		[]models.CampaignStatus{models.CampaignStatusPendingApproval}, models.CampaignStatusRejected)
	if err != nil {
		return err
	}
	if !changed {
		return ErrInvalidCampaignState
	}

	campaign.Status = models.CampaignStatusRejected
	now := utils.UTCNow()
	campaign.RejectedAt = &now
	campaign.RejectedBy = &decidedBy
	campaign.RejectionReason = &reason
	campaign.Template = nil
	return s.campaignRepo.Update(ctx, *campaign)
}

// notifyRequester tells the requester how the workflow moved. Best-effort
// side effect outside the decision transaction.
func (s *ApprovalFlowImpl) notifyRequester(ctx context.Context, workflow *models.ApprovalWorkflow, actorID uint) {
	if !workflow.Status.IsTerminal() {
		return
	}

	title := "Campaign approved"
	message := "Your campaign passed approval and is ready for delivery."
	if workflow.Status == models.WorkflowStatusRejected {
		title = "Campaign rejected"
		message = "Your campaign was rejected during approval."
		if workflow.FinalComment != nil && *workflow.FinalComment != "" {
			message += " Reason: " + *workflow.FinalComment
		}
	}

	notification := &models.Notification{
		Kind:           models.NotificationKindSystem,
		Title:          title,
		Message:        message,
		UserID:         workflow.RequestedBy,
		Priority:       models.PriorityHigh,
		CampaignID:     &workflow.CampaignID,
		CreatedBy:      actorID,
		DeliveryStatus: models.PendingForChannels([]string{utils.ChannelBrowser}),
	}
	if err := s.notificationRepo.Save(ctx, notification); err != nil {
		log.Printf("approval flow: failed to notify requester %d: %v", workflow.RequestedBy, err)
	}
}

func (s *ApprovalFlowImpl) publishWorkflowEvent(ctx context.Context, eventType string, workflow *models.ApprovalWorkflow) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, utils.EventChannelCampaigns, services.Event{
		Type: eventType,
		Payload: map[string]any{
			"workflow_id": workflow.ID,
			"campaign_id": workflow.CampaignID,
			"status":      workflow.Status.String(),
		},
	})
}

// isFlowError reports whether the error is one of the domain sentinels that
// must surface to the caller unchanged
func isFlowError(err error) bool {
	return IsWorkflowNotFound(err) || IsWorkflowAlreadyDecided(err) ||
		IsNotAnApprover(err) || IsApproverAlreadyDecided(err) ||
		IsNotApproverTurn(err) || IsInvalidCampaignState(err) ||
		IsCampaignNotFound(err)
}
