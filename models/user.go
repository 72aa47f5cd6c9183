// Package models contains the database models for the application
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/utils"
)

// User represents an entry in the corporate directory.
// This service treats the directory as read-only; user lifecycle is owned elsewhere.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UUID           uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	DisplayName    string     `gorm:"not null" json:"display_name"`
	Email          string     `gorm:"not null;uniqueIndex:uk_users_email" json:"email"`
	Position       string     `gorm:"not null" json:"position"`
	HierarchyLevel int        `gorm:"not null;index:idx_users_hierarchy_level" json:"hierarchy_level"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	IsOnline       bool       `gorm:"not null;default:false" json:"is_online"`
	LastActivity   *time.Time `json:"last_activity,omitempty"`
	CreatedAt      time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (User) TableName() string {
	return "users"
}

// BeforeCreate is called before creating a new record
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	u.UpdatedAt = &now
	return nil
}

// IsAdmin reports whether the user may access the admin surface (CEO and directors)
func (u *User) IsAdmin() bool {
	return u.HierarchyLevel <= utils.AdminMaxLevel
}

// LevelName returns a human-readable name for the hierarchy level
func (u *User) LevelName() string {
	switch u.HierarchyLevel {
	case utils.LevelCEO:
		return "CEO"
	case utils.LevelDirector:
		return "Director"
	case utils.LevelManager:
		return "Manager"
	case utils.LevelAnalyst:
		return "Analyst"
	case utils.LevelAssistant:
		return "Assistant"
	default:
		return "Unknown"
	}
}

// UserFilter represents filter criteria for users
type UserFilter struct {
	ID              *uint      `json:"id,omitempty"`
	UUID            *uuid.UUID `json:"uuid,omitempty"`
	Email           *string    `json:"email,omitempty"`
	HierarchyLevel  *int       `json:"hierarchy_level,omitempty"`
	IsActive        *bool      `json:"is_active,omitempty"`
	HierarchyLevels []int      `json:"hierarchy_levels,omitempty"`
}
