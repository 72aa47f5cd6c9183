package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/orgdesk/orgdesk/app/dto"
	"github.com/orgdesk/orgdesk/app/middleware"
	businessflow "github.com/orgdesk/orgdesk/business_flow"
)

// MeetingHandlerInterface defines the contract for meeting handlers
type MeetingHandlerInterface interface {
	CreateMeeting(c fiber.Ctx) error
	UpdateMeeting(c fiber.Ctx) error
	GetMeeting(c fiber.Ctx) error
	ListMeetings(c fiber.Ctx) error
	CheckConflicts(c fiber.Ctx) error
}

// MeetingHandler handles meeting-related HTTP requests
type MeetingHandler struct {
	meetingFlow businessflow.MeetingFlow
	validator   *validator.Validate
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(meetingFlow businessflow.MeetingFlow) *MeetingHandler {
	return &MeetingHandler{
		meetingFlow: meetingFlow,
		validator:   validator.New(),
	}
}

func (h *MeetingHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *MeetingHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateMeeting schedules a meeting, enforcing participant availability
func (h *MeetingHandler) CreateMeeting(c fiber.Ctx) error {
	var req dto.CreateMeetingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	userLevel, _ := middleware.GetUserLevelFromContext(c)

	result, err := h.meetingFlow.CreateMeeting(createRequestContext(c, "/api/v1/meetings"), &req, userID, userLevel, clientMetadata(c))
	if err != nil {
		return h.mapMeetingError(c, err, "Meeting creation failed", "MEETING_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Meeting created successfully", result)
}

// UpdateMeeting reschedules a meeting, re-running conflict detection
func (h *MeetingHandler) UpdateMeeting(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid meeting ID", "INVALID_MEETING_ID", err.Error())
	}

	var req dto.UpdateMeetingRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	userLevel, _ := middleware.GetUserLevelFromContext(c)

	result, err := h.meetingFlow.UpdateMeeting(createRequestContext(c, "/api/v1/meetings/:id"), id, &req, userID, userLevel, clientMetadata(c))
	if err != nil {
		return h.mapMeetingError(c, err, "Meeting update failed", "MEETING_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Meeting updated successfully", result)
}

// GetMeeting retrieves a meeting with its participants
func (h *MeetingHandler) GetMeeting(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid meeting ID", "INVALID_MEETING_ID", err.Error())
	}

	result, err := h.meetingFlow.GetMeeting(createRequestContext(c, "/api/v1/meetings/:id"), id)
	if err != nil {
		return h.mapMeetingError(c, err, "Failed to retrieve meeting", "MEETING_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Meeting retrieved successfully", result)
}

// ListMeetings lists meetings, optionally for one date
func (h *MeetingHandler) ListMeetings(c fiber.Ctx) error {
	var filter dto.ListMeetingsFilter
	if err := c.Bind().Query(&filter); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&filter); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	result, err := h.meetingFlow.ListMeetings(createRequestContext(c, "/api/v1/meetings"), filter, userID)
	if err != nil {
		log.Println("Meeting listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list meetings", "MEETING_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Meetings retrieved successfully", result)
}

// CheckConflicts runs conflict detection for a proposed slot without saving
// anything
func (h *MeetingHandler) CheckConflicts(c fiber.Ctx) error {
	var req dto.CheckConflictsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	conflicts, err := h.meetingFlow.CheckConflicts(createRequestContext(c, "/api/v1/meetings/check-conflicts"),
		req.Date, req.StartTime, req.EndTime, req.ParticipantIDs, req.ExcludeMeetingID)
	if err != nil {
		return h.mapMeetingError(c, err, "Conflict check failed", "CONFLICT_CHECK_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Conflict check completed", fiber.Map{
		"conflicts":     conflicts,
		"has_conflicts": len(conflicts) > 0,
	})
}

// mapMeetingError translates meeting business errors into HTTP responses
func (h *MeetingHandler) mapMeetingError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	if businessflow.IsMeetingNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Meeting not found", "MEETING_NOT_FOUND", nil)
	}
	if businessflow.IsMeetingAccessDenied(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Meeting access denied", "MEETING_ACCESS_DENIED", nil)
	}
	if businessflow.IsScheduleConflict(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Participants have conflicting meetings", "SCHEDULE_CONFLICT", err.Error())
	}
	if businessflow.IsConflictCheckFailed(err) {
		// Availability is unknown, so the meeting is refused rather than
		// silently double-booked
		return h.ErrorResponse(c, fiber.StatusBadGateway, "Could not verify participant availability", "CONFLICT_CHECK_FAILED", nil)
	}

	log.Println(fallbackMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}
