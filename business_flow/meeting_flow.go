package businessflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/orgdesk/orgdesk/app/dto"
	"github.com/orgdesk/orgdesk/app/services"
	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/repository"
	"github.com/orgdesk/orgdesk/utils"
)

// MeetingFlow handles meeting scheduling with conflict detection
type MeetingFlow interface {
	CreateMeeting(ctx context.Context, req *dto.CreateMeetingRequest, creatorID uint, creatorLevel int, metadata *ClientMetadata) (*dto.MeetingResponse, error)
	UpdateMeeting(ctx context.Context, id uint, req *dto.UpdateMeetingRequest, userID uint, userLevel int, metadata *ClientMetadata) (*dto.MeetingResponse, error)
	GetMeeting(ctx context.Context, id uint) (*dto.MeetingDTO, error)
	ListMeetings(ctx context.Context, filter dto.ListMeetingsFilter, userID uint) (*dto.ListMeetingsResponse, error)
	CheckConflicts(ctx context.Context, date string, startTime, endTime string, participantIDs []uint, excludeMeetingID uint) ([]dto.ConflictDTO, error)
}

// MeetingFlowImpl implements the meeting business flow
type MeetingFlowImpl struct {
	meetingRepo      repository.MeetingRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	auditRepo        repository.AuditLogRepository
	eventBus         services.EventBus
	db               *gorm.DB
}

// NewMeetingFlow creates a new meeting flow instance
func NewMeetingFlow(
	meetingRepo repository.MeetingRepository,
	userRepo repository.UserRepository,
	notificationRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	eventBus services.EventBus,
	db *gorm.DB,
) MeetingFlow {
	return &MeetingFlowImpl{
		meetingRepo:      meetingRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		auditRepo:        auditRepo,
		eventBus:         eventBus,
		db:               db,
	}
}

// CreateMeeting validates the slot, runs conflict detection and persists the
// meeting with its participants atomically. Conflicts block scheduling except
// for the CEO, who may overrule them; tolerated conflicts come back as
// warnings and notify the affected participants.
func (s *MeetingFlowImpl) CreateMeeting(ctx context.Context, req *dto.CreateMeetingRequest, creatorID uint, creatorLevel int, metadata *ClientMetadata) (*dto.MeetingResponse, error) {
	meeting, err := meetingFromRequest(req.Title, req.Date, req.StartTime, req.EndTime, req.Location,
		req.Kind, req.MeetingLink, req.Priority, req.Agenda, req.Tags, req.Participants, creatorID)
	if err != nil {
		return nil, err
	}

	conflicts, err := s.meetingRepo.FindOverlapping(ctx, meeting.Date, meeting.StartTime, meeting.EndTime, meeting.ParticipantIDs(), 0)
	if err != nil {
		// A failed check must never pass as "no conflicts"
		return nil, NewBusinessError("CONFLICT_CHECK_FAILED", "Could not verify schedule availability", ErrConflictCheckFailed)
	}
	if len(conflicts) > 0 && creatorLevel != utils.LevelCEO {
		return nil, NewBusinessError("SCHEDULE_CONFLICT",
			fmt.Sprintf("%d participant schedule conflict(s) found", len(conflicts)), ErrScheduleConflict)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.meetingRepo.SaveWithParticipants(txCtx, meeting)
	})
	if err != nil {
		return nil, NewBusinessError("MEETING_CREATE_FAILED", "Failed to create meeting", err)
	}

	recordAudit(ctx, s.auditRepo, models.AuditActionMeetingCreated, creatorID,
		"Meeting "+meeting.Title+" scheduled", true,
		map[string]any{"meeting_id": meeting.ID, "conflicts": len(conflicts)}, metadata)

	s.notifyParticipants(ctx, meeting, conflicts, creatorID)
	s.publishMeetingEvent(ctx, "meeting.created", meeting)

	return &dto.MeetingResponse{
		Meeting:  dto.NewMeetingDTO(meeting),
		Warnings: dto.NewConflictDTOs(conflicts),
	}, nil
}

// UpdateMeeting reschedules a meeting. The participant list is replaced
// wholesale, never patched.
func (s *MeetingFlowImpl) UpdateMeeting(ctx context.Context, id uint, req *dto.UpdateMeetingRequest, userID uint, userLevel int, metadata *ClientMetadata) (*dto.MeetingResponse, error) {
	existing, err := s.meetingRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("MEETING_LOAD_FAILED", "Failed to load meeting", err)
	}
	if existing == nil {
		return nil, ErrMeetingNotFound
	}
	if existing.CreatedBy != userID && userLevel > utils.AdminMaxLevel {
		return nil, ErrMeetingAccessDenied
	}

	meeting, err := meetingFromRequest(req.Title, req.Date, req.StartTime, req.EndTime, req.Location,
		req.Kind, req.MeetingLink, req.Priority, req.Agenda, req.Tags, req.Participants, existing.CreatedBy)
	if err != nil {
		return nil, err
	}
	meeting.ID = existing.ID
	meeting.UUID = existing.UUID
	meeting.CreatedAt = existing.CreatedAt

	conflicts, err := s.meetingRepo.FindOverlapping(ctx, meeting.Date, meeting.StartTime, meeting.EndTime, meeting.ParticipantIDs(), meeting.ID)
	if err != nil {
		return nil, NewBusinessError("CONFLICT_CHECK_FAILED", "Could not verify schedule availability", ErrConflictCheckFailed)
	}
	if len(conflicts) > 0 && userLevel != utils.LevelCEO {
		return nil, NewBusinessError("SCHEDULE_CONFLICT",
			fmt.Sprintf("%d participant schedule conflict(s) found", len(conflicts)), ErrScheduleConflict)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.meetingRepo.UpdateWithParticipants(txCtx, meeting)
	})
	if err != nil {
		return nil, NewBusinessError("MEETING_UPDATE_FAILED", "Failed to update meeting", err)
	}

	recordAudit(ctx, s.auditRepo, models.AuditActionMeetingUpdated, userID,
		"Meeting "+meeting.Title+" rescheduled", true,
		map[string]any{"meeting_id": meeting.ID, "conflicts": len(conflicts)}, metadata)

	s.notifyParticipants(ctx, meeting, conflicts, userID)
	s.publishMeetingEvent(ctx, "meeting.updated", meeting)

	return &dto.MeetingResponse{
		Meeting:  dto.NewMeetingDTO(meeting),
		Warnings: dto.NewConflictDTOs(conflicts),
	}, nil
}

// GetMeeting retrieves a meeting by ID
func (s *MeetingFlowImpl) GetMeeting(ctx context.Context, id uint) (*dto.MeetingDTO, error) {
	meeting, err := s.meetingRepo.ByID(ctx, id)
	if err != nil {
		return nil, NewBusinessError("MEETING_LOAD_FAILED", "Failed to load meeting", err)
	}
	if meeting == nil {
		return nil, ErrMeetingNotFound
	}
	out := dto.NewMeetingDTO(meeting)
	return &out, nil
}

// ListMeetings lists meetings, optionally restricted to one date
func (s *MeetingFlowImpl) ListMeetings(ctx context.Context, filter dto.ListMeetingsFilter, userID uint) (*dto.ListMeetingsResponse, error) {
	filter.Normalize()

	mf := models.MeetingFilter{}
	if filter.Date != nil && *filter.Date != "" {
		d, err := time.Parse("2006-01-02", *filter.Date)
		if err != nil {
			return nil, NewBusinessError("MEETING_LIST_FAILED", "Invalid date filter", err)
		}
		mf.Date = &d
	}

	rows, err := s.meetingRepo.ByFilter(ctx, mf, "date ASC, start_time ASC", filter.PageSize, filter.Offset())
	if err != nil {
		return nil, NewBusinessError("MEETING_LIST_FAILED", "Failed to list meetings", err)
	}

	items := make([]dto.MeetingDTO, 0, len(rows))
	for _, m := range rows {
		items = append(items, dto.NewMeetingDTO(m))
	}

	return &dto.ListMeetingsResponse{Items: items}, nil
}

// CheckConflicts runs conflict detection without persisting anything
func (s *MeetingFlowImpl) CheckConflicts(ctx context.Context, date, startTime, endTime string, participantIDs []uint, excludeMeetingID uint) ([]dto.ConflictDTO, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, NewBusinessError("CONFLICT_CHECK_FAILED", "Invalid date", err)
	}

	conflicts, err := s.meetingRepo.FindOverlapping(ctx, d, startTime, endTime, dedupeUints(participantIDs), excludeMeetingID)
	if err != nil {
		return nil, NewBusinessError("CONFLICT_CHECK_FAILED", "Could not verify schedule availability", ErrConflictCheckFailed)
	}

	return dto.NewConflictDTOs(conflicts), nil
}

// meetingFromRequest builds and validates the meeting model
func meetingFromRequest(title, date, startTime, endTime, location, kind, link, priority, agenda string, tags []string, participants []dto.MeetingParticipantInput, creatorID uint) (*models.Meeting, error) {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, NewBusinessError("MEETING_DATE_INVALID", "Invalid meeting date", err)
	}

	meeting := &models.Meeting{
		Title:       title,
		Date:        d,
		StartTime:   startTime,
		EndTime:     endTime,
		Location:    location,
		Kind:        models.MeetingKind(kind),
		MeetingLink: link,
		Priority:    models.Priority(priority),
		Agenda:      agenda,
		Tags:        tags,
		CreatedBy:   creatorID,
	}
	if meeting.Kind == "" {
		meeting.Kind = models.MeetingKindPresencial
	}
	if meeting.Priority == "" {
		meeting.Priority = models.PriorityMedium
	}

	if err := meeting.ValidateTimes(); err != nil {
		return nil, NewBusinessError("MEETING_TIME_INVALID", err.Error(), nil)
	}

	seen := make(map[uint]struct{}, len(participants))
	for _, p := range participants {
		if _, ok := seen[p.UserID]; ok {
			continue
		}
		seen[p.UserID] = struct{}{}

		status := models.ParticipantStatus(p.Status)
		if status == "" {
			status = models.ParticipantConvocado
		}
		meeting.Participants = append(meeting.Participants, models.MeetingParticipant{
			UserID:   p.UserID,
			Status:   status,
			Response: models.ResponsePendente,
		})
	}

	return meeting, nil
}

// notifyParticipants writes the invitation notifications, plus conflict
// notices for participants whose schedules were overruled. Best-effort.
func (s *MeetingFlowImpl) notifyParticipants(ctx context.Context, meeting *models.Meeting, conflicts []models.ParticipantConflict, actorID uint) {
	conflicted := make(map[uint]bool, len(conflicts))
	for _, c := range conflicts {
		conflicted[c.UserID] = true
	}

	slot := fmt.Sprintf("%s %s-%s", meeting.Date.Format("2006-01-02"), meeting.StartTime, meeting.EndTime)

	notifications := make([]*models.Notification, 0, len(meeting.Participants)+len(conflicts))
	for _, p := range meeting.Participants {
		notifications = append(notifications, &models.Notification{
			Kind:           models.NotificationKindMeeting,
			Title:          "Meeting: " + meeting.Title,
			Message:        "You were added to " + meeting.Title + " on " + slot + " (" + string(p.Status) + ").",
			UserID:         p.UserID,
			Priority:       meeting.Priority,
			MeetingID:      &meeting.ID,
			CreatedBy:      actorID,
			DeliveryStatus: models.PendingForChannels([]string{utils.ChannelBrowser}),
		})
		if conflicted[p.UserID] {
			notifications = append(notifications, &models.Notification{
				Kind:           models.NotificationKindConflict,
				Title:          "Schedule conflict: " + meeting.Title,
				Message:        "The meeting " + meeting.Title + " on " + slot + " overlaps another meeting in your schedule.",
				UserID:         p.UserID,
				Priority:       models.PriorityHigh,
				MeetingID:      &meeting.ID,
				CreatedBy:      actorID,
				DeliveryStatus: models.PendingForChannels([]string{utils.ChannelBrowser}),
			})
		}
	}

	if err := s.notificationRepo.SaveBatch(ctx, notifications); err != nil {
		log.Printf("meeting flow: failed to notify participants of meeting %d: %v", meeting.ID, err)
	}
}

func (s *MeetingFlowImpl) publishMeetingEvent(ctx context.Context, eventType string, meeting *models.Meeting) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, utils.EventChannelMeetings, services.Event{
		Type: eventType,
		Payload: map[string]any{
			"meeting_id": meeting.ID,
			"date":       meeting.Date.Format("2006-01-02"),
			"start_time": meeting.StartTime,
			"end_time":   meeting.EndTime,
		},
	})
}
