package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/models"
)

// UserRepositoryImpl implements the UserRepository interface.
// The directory is read-only from this service; there is no save path.
type UserRepositoryImpl struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// ByID retrieves a user by ID
func (r *UserRepositoryImpl) ByID(ctx context.Context, id uint) (*models.User, error) {
	db := r.getDB(ctx)

	var user models.User
	err := db.Last(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// ByIDs retrieves users by a set of IDs; missing IDs are silently dropped
func (r *UserRepositoryImpl) ByIDs(ctx context.Context, ids []uint) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var users []*models.User
	err := db.Where("id IN ?", ids).Order("id ASC").Find(&users).Error
	if err != nil {
		return nil, err
	}

	return users, nil
}

// ByHierarchyLevels retrieves active users at any of the given levels
func (r *UserRepositoryImpl) ByHierarchyLevels(ctx context.Context, levels []int) ([]*models.User, error) {
	if len(levels) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	var users []*models.User
	err := db.Where("hierarchy_level IN ? AND is_active = ?", levels, true).
		Order("hierarchy_level ASC, id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	return users, nil
}

// ListActive retrieves active users with pagination
func (r *UserRepositoryImpl) ListActive(ctx context.Context, limit, offset int) ([]*models.User, error) {
	db := r.getDB(ctx)

	query := db.Where("is_active = ?", true).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var users []*models.User
	err := query.Find(&users).Error
	if err != nil {
		return nil, err
	}

	return users, nil
}
