package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/utils"
)

// NotificationTemplateRepositoryImpl implements the NotificationTemplateRepository interface
type NotificationTemplateRepositoryImpl struct {
	*BaseRepository[models.NotificationTemplate, models.NotificationTemplateFilter]
}

// NewNotificationTemplateRepository creates a new notification template repository
func NewNotificationTemplateRepository(db *gorm.DB) NotificationTemplateRepository {
	return &NotificationTemplateRepositoryImpl{
		BaseRepository: NewBaseRepository[models.NotificationTemplate, models.NotificationTemplateFilter](db),
	}
}

// ListActive retrieves all enabled templates
func (r *NotificationTemplateRepositoryImpl) ListActive(ctx context.Context) ([]*models.NotificationTemplate, error) {
	filter := models.NotificationTemplateFilter{IsActive: utils.ToPtr(true)}
	return r.ByFilter(ctx, filter, "id ASC", 0, 0)
}

// ByFilter retrieves templates based on filter criteria
func (r *NotificationTemplateRepositoryImpl) ByFilter(ctx context.Context, filter models.NotificationTemplateFilter, orderBy string, limit, offset int) ([]*models.NotificationTemplate, error) {
	db := r.getDB(ctx)

	var templates []*models.NotificationTemplate
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

	err := query.Find(&templates).Error
	if err != nil {
		return nil, err
	}

	return templates, nil
}

// Count returns the number of templates matching the filter
func (r *NotificationTemplateRepositoryImpl) Count(ctx context.Context, filter models.NotificationTemplateFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.NotificationTemplate{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any template matching the filter exists
func (r *NotificationTemplateRepositoryImpl) Exists(ctx context.Context, filter models.NotificationTemplateFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *NotificationTemplateRepositoryImpl) applyFilter(db *gorm.DB, filter models.NotificationTemplateFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Kind != nil {
		db = db.Where("kind = ?", *filter.Kind)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
