// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/orgdesk/orgdesk/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository exposes read-only lookups over the corporate directory
type UserRepository interface {
	ByID(ctx context.Context, id uint) (*models.User, error)
	ByIDs(ctx context.Context, ids []uint) ([]*models.User, error)
	ByHierarchyLevels(ctx context.Context, levels []int) ([]*models.User, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// NotificationTemplateRepository defines operations for notification templates
type NotificationTemplateRepository interface {
	Repository[models.NotificationTemplate, models.NotificationTemplateFilter]
	ListActive(ctx context.Context) ([]*models.NotificationTemplate, error)
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	Update(ctx context.Context, campaign models.Campaign) error
	UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error
	// UpdateStatusIf performs a conditional status update and reports whether a row changed
	UpdateStatusIf(ctx context.Context, id uint, from []models.CampaignStatus, to models.CampaignStatus) (bool, error)
	// ClaimForSending atomically moves an executable campaign into sending
	ClaimForSending(ctx context.Context, id uint) (*models.Campaign, bool, error)
	UpdateStats(ctx context.Context, id uint, stats models.CampaignStats) error
	ListDueScheduled(ctx context.Context, now time.Time, limit int) ([]*models.Campaign, error)
}

// ApprovalRuleRepository defines operations for approval rules
type ApprovalRuleRepository interface {
	Repository[models.ApprovalRule, models.ApprovalRuleFilter]
	ByUUID(ctx context.Context, uuid string) (*models.ApprovalRule, error)
	ListActive(ctx context.Context) ([]*models.ApprovalRule, error)
	Update(ctx context.Context, rule models.ApprovalRule) error
}

// ApprovalWorkflowRepository defines operations for approval workflows
type ApprovalWorkflowRepository interface {
	Repository[models.ApprovalWorkflow, models.ApprovalWorkflowFilter]
	ByUUID(ctx context.Context, uuid string) (*models.ApprovalWorkflow, error)
	ByCampaignID(ctx context.Context, campaignID uint) (*models.ApprovalWorkflow, error)
	// ByIDForUpdate locks the workflow row for the rest of the transaction
	// and returns it with freshly read approver rows
	ByIDForUpdate(ctx context.Context, id uint) (*models.ApprovalWorkflow, error)
	// DecideApprover flips one approver slot from pending and reports whether the row changed
	DecideApprover(ctx context.Context, workflowID, userID uint, status models.ApproverStatus, comment *string, decidedAt time.Time) (bool, error)
	// UpdateStatusIf performs a conditional workflow status update
	UpdateStatusIf(ctx context.Context, id uint, from, to models.WorkflowStatus, decidedBy *uint, comment *string) (bool, error)
	UpdateCurrentStep(ctx context.Context, id uint, step int) error
	ListPendingByApprover(ctx context.Context, userID uint, limit, offset int) ([]*models.ApprovalWorkflow, error)
	ListPendingAutoApprovable(ctx context.Context, now time.Time, limit int) ([]*models.ApprovalWorkflow, error)
}

// MeetingRepository defines operations for meetings
type MeetingRepository interface {
	ByID(ctx context.Context, id uint) (*models.Meeting, error)
	ByUUID(ctx context.Context, uuid string) (*models.Meeting, error)
	ByFilter(ctx context.Context, filter models.MeetingFilter, orderBy string, limit, offset int) ([]*models.Meeting, error)
	SaveWithParticipants(ctx context.Context, meeting *models.Meeting) error
	UpdateWithParticipants(ctx context.Context, meeting *models.Meeting) error
	// FindOverlapping returns the meetings already occupying the proposed slot
	// for any of the given participants, ordered by participant then start time.
	FindOverlapping(ctx context.Context, date time.Time, startTime, endTime string, participantIDs []uint, excludeMeetingID uint) ([]models.ParticipantConflict, error)
}

// NotificationRepository defines operations for notifications
type NotificationRepository interface {
	Repository[models.Notification, models.NotificationFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID uint) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
}
