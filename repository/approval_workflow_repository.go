package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/utils"
)

// ApprovalWorkflowRepositoryImpl implements the ApprovalWorkflowRepository interface
type ApprovalWorkflowRepositoryImpl struct {
	*BaseRepository[models.ApprovalWorkflow, models.ApprovalWorkflowFilter]
}

// NewApprovalWorkflowRepository creates a new approval workflow repository
func NewApprovalWorkflowRepository(db *gorm.DB) ApprovalWorkflowRepository {
	return &ApprovalWorkflowRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ApprovalWorkflow, models.ApprovalWorkflowFilter](db),
	}
}

// ByID retrieves a workflow by ID with its approvers ordered by step
func (r *ApprovalWorkflowRepositoryImpl) ByID(ctx context.Context, id uint) (*models.ApprovalWorkflow, error) {
	db := r.getDB(ctx)

	var workflow models.ApprovalWorkflow
	err := db.Preload("Approvers", func(db *gorm.DB) *gorm.DB {
		return db.Order("workflow_approvers.step_order ASC, workflow_approvers.user_id ASC")
	}).Last(&workflow, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &workflow, nil
}

// ByIDForUpdate locks the workflow row and reads the approver rows after the
// lock is held, so concurrent deciders serialize on the workflow and each one
// observes the decisions committed before it. Must run inside WithTransaction.
func (r *ApprovalWorkflowRepositoryImpl) ByIDForUpdate(ctx context.Context, id uint) (*models.ApprovalWorkflow, error) {
	db := r.getDB(ctx)

	var workflow models.ApprovalWorkflow
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Last(&workflow, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	err = db.Where("workflow_id = ?", id).
		Order("step_order ASC, user_id ASC").
		Find(&workflow.Approvers).Error
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

// ByUUID retrieves a workflow by UUID
func (r *ApprovalWorkflowRepositoryImpl) ByUUID(ctx context.Context, rawUUID string) (*models.ApprovalWorkflow, error) {
	parsedUUID, err := utils.ParseUUID(rawUUID)
	if err != nil {
		return nil, err
	}

	filter := models.ApprovalWorkflowFilter{UUID: &parsedUUID}
	workflows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(workflows) == 0 {
		return nil, nil
	}

	return workflows[0], nil
}

// ByCampaignID retrieves the workflow for a campaign (at most one exists)
func (r *ApprovalWorkflowRepositoryImpl) ByCampaignID(ctx context.Context, campaignID uint) (*models.ApprovalWorkflow, error) {
	filter := models.ApprovalWorkflowFilter{CampaignID: &campaignID}
	workflows, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(workflows) == 0 {
		return nil, nil
	}

	return workflows[0], nil
}

// DecideApprover records one approver's decision. The WHERE status='pending'
// guard makes a duplicate or late decision lose the update.
func (r *ApprovalWorkflowRepositoryImpl) DecideApprover(ctx context.Context, workflowID, userID uint, status models.ApproverStatus, comment *string, decidedAt time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.WorkflowApprover{}).
		Where("workflow_id = ? AND user_id = ? AND status = ?", workflowID, userID, models.ApproverStatusPending).
		Updates(map[string]any{
			"status":     status,
			"comment":    comment,
			"decided_at": decidedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// UpdateStatusIf moves the workflow between statuses, recording the final
// decision. Returns false when the workflow was not in the expected state.
func (r *ApprovalWorkflowRepositoryImpl) UpdateStatusIf(ctx context.Context, id uint, from, to models.WorkflowStatus, decidedBy *uint, comment *string) (bool, error) {
	db := r.getDB(ctx)

	updates := map[string]any{
		"status":     to,
		"updated_at": utils.UTCNow(),
	}
	if to.IsTerminal() {
		updates["decided_by"] = decidedBy
		updates["decided_at"] = utils.UTCNow()
		updates["final_comment"] = comment
	}

	res := db.Model(&models.ApprovalWorkflow{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// UpdateCurrentStep advances the sequential step pointer
func (r *ApprovalWorkflowRepositoryImpl) UpdateCurrentStep(ctx context.Context, id uint, step int) error {
	db := r.getDB(ctx)

	return db.Model(&models.ApprovalWorkflow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_step": step,
			"updated_at":   utils.UTCNow(),
		}).Error
}

// ListPendingByApprover retrieves pending workflows where the given user still
// has a pending slot
func (r *ApprovalWorkflowRepositoryImpl) ListPendingByApprover(ctx context.Context, userID uint, limit, offset int) ([]*models.ApprovalWorkflow, error) {
	db := r.getDB(ctx)

	query := db.
		Joins("JOIN workflow_approvers ON workflow_approvers.workflow_id = approval_workflows.id").
		Where("approval_workflows.status = ?", models.WorkflowStatusPending).
		Where("workflow_approvers.user_id = ? AND workflow_approvers.status = ?", userID, models.ApproverStatusPending).
		Order("approval_workflows.requested_at ASC").
		Preload("Approvers", func(db *gorm.DB) *gorm.DB {
			return db.Order("workflow_approvers.step_order ASC, workflow_approvers.user_id ASC")
		}).
		Preload("Campaign")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var workflows []*models.ApprovalWorkflow
	err := query.Find(&workflows).Error
	if err != nil {
		return nil, err
	}

	return workflows, nil
}

// ListPendingAutoApprovable retrieves pending workflows whose auto-approve
// deadline has passed
func (r *ApprovalWorkflowRepositoryImpl) ListPendingAutoApprovable(ctx context.Context, now time.Time, limit int) ([]*models.ApprovalWorkflow, error) {
	db := r.getDB(ctx)

	query := db.Where("status = ? AND auto_approve_after_hours IS NOT NULL", models.WorkflowStatusPending).
		Where("requested_at + (auto_approve_after_hours || ' hours')::interval <= ?", now).
		Order("requested_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var workflows []*models.ApprovalWorkflow
	err := query.Find(&workflows).Error
	if err != nil {
		return nil, err
	}

	return workflows, nil
}

// ByFilter retrieves workflows based on filter criteria
func (r *ApprovalWorkflowRepositoryImpl) ByFilter(ctx context.Context, filter models.ApprovalWorkflowFilter, orderBy string, limit, offset int) ([]*models.ApprovalWorkflow, error) {
	db := r.getDB(ctx)

	var workflows []*models.ApprovalWorkflow
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	query = query.Preload("Approvers", func(db *gorm.DB) *gorm.DB {
		return db.Order("workflow_approvers.step_order ASC, workflow_approvers.user_id ASC")
	})

	err := query.Find(&workflows).Error
	if err != nil {
		return nil, err
	}

	return workflows, nil
}

// Count returns the number of workflows matching the filter
func (r *ApprovalWorkflowRepositoryImpl) Count(ctx context.Context, filter models.ApprovalWorkflowFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.ApprovalWorkflow{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any workflow matching the filter exists
func (r *ApprovalWorkflowRepositoryImpl) Exists(ctx context.Context, filter models.ApprovalWorkflowFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ApprovalWorkflowRepositoryImpl) applyFilter(db *gorm.DB, filter models.ApprovalWorkflowFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}

	return db
}
