package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/utils"
)

// MeetingRepositoryImpl implements the MeetingRepository interface
type MeetingRepositoryImpl struct {
	db *gorm.DB
}

// NewMeetingRepository creates a new meeting repository
func NewMeetingRepository(db *gorm.DB) MeetingRepository {
	return &MeetingRepositoryImpl{db: db}
}

func (r *MeetingRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// ByID retrieves a meeting by ID with its participants
func (r *MeetingRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Meeting, error) {
	db := r.getDB(ctx)

	var meeting models.Meeting
	err := db.Preload("Participants").Last(&meeting, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &meeting, nil
}

// ByUUID retrieves a meeting by UUID
func (r *MeetingRepositoryImpl) ByUUID(ctx context.Context, rawUUID string) (*models.Meeting, error) {
	parsedUUID, err := utils.ParseUUID(rawUUID)
	if err != nil {
		return nil, err
	}

	db := r.getDB(ctx)

	var meeting models.Meeting
	err = db.Preload("Participants").Where("uuid = ?", parsedUUID).Last(&meeting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &meeting, nil
}

// ByFilter retrieves meetings based on filter criteria
func (r *MeetingRepositoryImpl) ByFilter(ctx context.Context, filter models.MeetingFilter, orderBy string, limit, offset int) ([]*models.Meeting, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.Meeting{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.Date != nil {
		query = query.Where("date = ?", filter.Date.Format("2006-01-02"))
	}
	if filter.DateAfter != nil {
		query = query.Where("date >= ?", filter.DateAfter.Format("2006-01-02"))
	}
	if filter.DateBefore != nil {
		query = query.Where("date <= ?", filter.DateBefore.Format("2006-01-02"))
	}

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	query = query.Preload("Participants")

	var meetings []*models.Meeting
	err := query.Find(&meetings).Error
	if err != nil {
		return nil, err
	}

	return meetings, nil
}

// SaveWithParticipants inserts the meeting and its participant rows in one
// transaction. A participant insert failure leaves no orphan meeting.
func (r *MeetingRepositoryImpl) SaveWithParticipants(ctx context.Context, meeting *models.Meeting) error {
	db := r.getDB(ctx)

	// Participants are written through the association in the same transaction
	return db.Create(meeting).Error
}

// UpdateWithParticipants saves the meeting and replaces its participant set
// wholesale. Must run inside WithTransaction.
func (r *MeetingRepositoryImpl) UpdateWithParticipants(ctx context.Context, meeting *models.Meeting) error {
	db := r.getDB(ctx)

	participants := meeting.Participants
	meeting.Participants = nil

	now := utils.UTCNow()
	meeting.UpdatedAt = &now

	if err := db.Omit("Participants").Save(meeting).Error; err != nil {
		return err
	}

	if err := db.Where("meeting_id = ?", meeting.ID).Delete(&models.MeetingParticipant{}).Error; err != nil {
		return err
	}

	for i := range participants {
		participants[i].ID = 0
		participants[i].MeetingID = meeting.ID
	}
	if len(participants) > 0 {
		if err := db.Create(&participants).Error; err != nil {
			return err
		}
	}

	meeting.Participants = participants
	return nil
}

// FindOverlapping returns every (participant, meeting) pair on the given date
// whose time window overlaps the proposed one. Open-interval test: meetings
// that merely touch (one ends when the other starts) do not conflict.
func (r *MeetingRepositoryImpl) FindOverlapping(ctx context.Context, date time.Time, startTime, endTime string, participantIDs []uint, excludeMeetingID uint) ([]models.ParticipantConflict, error) {
	if len(participantIDs) == 0 {
		return nil, nil
	}

	db := r.getDB(ctx)

	query := db.Table("meetings").
		Select("meeting_participants.user_id, meetings.id AS meeting_id, meetings.title AS meeting_title, meetings.date, meetings.start_time, meetings.end_time").
		Joins("JOIN meeting_participants ON meeting_participants.meeting_id = meetings.id").
		Where("meetings.date = ?", date.Format("2006-01-02")).
		Where("meeting_participants.user_id IN ?", participantIDs).
		Where("meetings.start_time < ? AND meetings.end_time > ?", endTime, startTime).
		Order("meeting_participants.user_id ASC, meetings.start_time ASC")
	if excludeMeetingID != 0 {
		query = query.Where("meetings.id <> ?", excludeMeetingID)
	}

	var conflicts []models.ParticipantConflict
	err := query.Scan(&conflicts).Error
	if err != nil {
		return nil, err
	}

	return conflicts, nil
}
