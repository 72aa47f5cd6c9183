package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/utils"
)

// ApprovalRuleRepositoryImpl implements the ApprovalRuleRepository interface
type ApprovalRuleRepositoryImpl struct {
	*BaseRepository[models.ApprovalRule, models.ApprovalRuleFilter]
}

// NewApprovalRuleRepository creates a new approval rule repository
func NewApprovalRuleRepository(db *gorm.DB) ApprovalRuleRepository {
	return &ApprovalRuleRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ApprovalRule, models.ApprovalRuleFilter](db),
	}
}

// ByUUID retrieves a rule by UUID
func (r *ApprovalRuleRepositoryImpl) ByUUID(ctx context.Context, rawUUID string) (*models.ApprovalRule, error) {
	parsedUUID, err := utils.ParseUUID(rawUUID)
	if err != nil {
		return nil, err
	}

	filter := models.ApprovalRuleFilter{UUID: &parsedUUID}
	rules, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(rules) == 0 {
		return nil, nil
	}

	return rules[0], nil
}

// ListActive retrieves all active rules ordered by creation
func (r *ApprovalRuleRepositoryImpl) ListActive(ctx context.Context) ([]*models.ApprovalRule, error) {
	filter := models.ApprovalRuleFilter{IsActive: utils.ToPtr(true)}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// Update updates a rule
func (r *ApprovalRuleRepositoryImpl) Update(ctx context.Context, rule models.ApprovalRule) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	rule.UpdatedAt = &now

	err = db.Save(&rule).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves rules based on filter criteria
func (r *ApprovalRuleRepositoryImpl) ByFilter(ctx context.Context, filter models.ApprovalRuleFilter, orderBy string, limit, offset int) ([]*models.ApprovalRule, error) {
	db := r.getDB(ctx)

	var rules []*models.ApprovalRule
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

	err := query.Find(&rules).Error
	if err != nil {
		return nil, err
	}

	return rules, nil
}

// Count returns the number of rules matching the filter
func (r *ApprovalRuleRepositoryImpl) Count(ctx context.Context, filter models.ApprovalRuleFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.ApprovalRule{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any rule matching the filter exists
func (r *ApprovalRuleRepositoryImpl) Exists(ctx context.Context, filter models.ApprovalRuleFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ApprovalRuleRepositoryImpl) applyFilter(db *gorm.DB, filter models.ApprovalRuleFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedBy != nil {
		db = db.Where("created_by = ?", *filter.CreatedBy)
	}

	return db
}
