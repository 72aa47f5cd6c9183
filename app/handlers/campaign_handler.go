package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/orgdesk/orgdesk/app/dto"
	"github.com/orgdesk/orgdesk/app/middleware"
	businessflow "github.com/orgdesk/orgdesk/business_flow"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateCampaign(c fiber.Ctx) error
	UpdateCampaign(c fiber.Ctx) error
	SubmitCampaign(c fiber.Ctx) error
	CancelCampaign(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	ExecuteCampaign(c fiber.Ctx) error
	RecordEngagement(c fiber.Ctx) error
}

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	campaignFlow  businessflow.CampaignFlow
	executionFlow businessflow.ExecutionFlow
	validator     *validator.Validate
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow, executionFlow businessflow.ExecutionFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow:  campaignFlow,
		executionFlow: executionFlow,
		validator:     validator.New(),
	}
}

func (h *CampaignHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CampaignHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateCampaign handles the campaign creation process
func (h *CampaignHandler) CreateCampaign(c fiber.Ctx) error {
	var req dto.CreateCampaignRequest
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

	result, err := h.campaignFlow.CreateCampaign(createRequestContext(c, "/api/v1/campaigns"), &req, userID, clientMetadata(c))
	if err != nil {
		return h.mapCampaignError(c, err, "Campaign creation failed", "CAMPAIGN_CREATION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", result)
}

// UpdateCampaign handles the campaign update process
func (h *CampaignHandler) UpdateCampaign(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", err.Error())
	}

	var req dto.UpdateCampaignRequest
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

	result, err := h.campaignFlow.UpdateCampaign(createRequestContext(c, "/api/v1/campaigns/:id"), id, &req, userID, userLevel, clientMetadata(c))
	if err != nil {
		if err == businessflow.ErrCampaignUpdateNotAllowed {
			return h.ErrorResponse(c, fiber.StatusConflict, "Campaign can no longer be edited", "CAMPAIGN_NOT_EDITABLE", nil)
		}
		return h.mapCampaignError(c, err, "Campaign update failed", "CAMPAIGN_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign updated successfully", result)
}

// SubmitCampaign runs rule matching and opens an approval workflow if one is
// required
func (h *CampaignHandler) SubmitCampaign(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", err.Error())
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	userLevel, _ := middleware.GetUserLevelFromContext(c)

	result, err := h.campaignFlow.SubmitCampaign(createRequestContext(c, "/api/v1/campaigns/:id/submit"), id, userID, userLevel, clientMetadata(c))
	if err != nil {
		return h.mapCampaignError(c, err, "Campaign submission failed", "CAMPAIGN_SUBMIT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign submitted successfully", result)
}

// CancelCampaign cancels a campaign before it is sent
func (h *CampaignHandler) CancelCampaign(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", err.Error())
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	userLevel, _ := middleware.GetUserLevelFromContext(c)

	result, err := h.campaignFlow.CancelCampaign(createRequestContext(c, "/api/v1/campaigns/:id/cancel"), id, userID, userLevel, clientMetadata(c))
	if err != nil {
		return h.mapCampaignError(c, err, "Campaign cancellation failed", "CAMPAIGN_CANCEL_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign cancelled successfully", result)
}

// GetCampaign retrieves a single campaign
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", err.Error())
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}
	userLevel, _ := middleware.GetUserLevelFromContext(c)

	result, err := h.campaignFlow.GetCampaign(createRequestContext(c, "/api/v1/campaigns/:id"), id, userID, userLevel)
	if err != nil {
		return h.mapCampaignError(c, err, "Failed to retrieve campaign", "CAMPAIGN_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", result)
}

// ListCampaigns lists campaigns visible to the caller
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	var filter dto.ListCampaignsFilter
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
	userLevel, _ := middleware.GetUserLevelFromContext(c)

	result, err := h.campaignFlow.ListCampaigns(createRequestContext(c, "/api/v1/campaigns"), filter, userID, userLevel)
	if err != nil {
		log.Println("Campaign listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "CAMPAIGN_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", result)
}

// ExecuteCampaign triggers immediate delivery of an approved campaign
func (h *CampaignHandler) ExecuteCampaign(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", err.Error())
	}

	result, err := h.executionFlow.ExecuteCampaign(createRequestContext(c, "/api/v1/campaigns/:id/execute"), id)
	if err != nil {
		middleware.CountCampaignExecution("error")
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidCampaignState(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Campaign is not ready for delivery", "INVALID_CAMPAIGN_STATE", nil)
		}
		if businessflow.IsCampaignMisconfigured(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Campaign content is misconfigured", "CAMPAIGN_MISCONFIGURED", nil)
		}
		log.Println("Campaign execution failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign execution failed", "CAMPAIGN_EXECUTE_FAILED", nil)
	}
	middleware.CountCampaignExecution("success")

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign executed successfully", result)
}

// RecordEngagement bumps a delivery counter for a campaign
func (h *CampaignHandler) RecordEngagement(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", err.Error())
	}

	var req dto.RecordEngagementRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.executionFlow.RecordEngagement(createRequestContext(c, "/api/v1/campaigns/:id/engagement"), id, req.Kind)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		log.Println("Engagement recording failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record engagement", "ENGAGEMENT_RECORD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Engagement recorded successfully", result)
}

// mapCampaignError translates business errors shared by the campaign
// endpoints into HTTP responses
func (h *CampaignHandler) mapCampaignError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	if businessflow.IsCampaignNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
	}
	if businessflow.IsCampaignAccessDenied(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "Campaign access denied", "CAMPAIGN_ACCESS_DENIED", nil)
	}
	if businessflow.IsInvalidCampaignState(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Campaign is not in a valid state for this operation", "INVALID_CAMPAIGN_STATE", nil)
	}
	if businessflow.IsCampaignMisconfigured(err) {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Campaign content is misconfigured", "CAMPAIGN_MISCONFIGURED", nil)
	}
	if businessflow.IsTemplateNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Notification template not found", "TEMPLATE_NOT_FOUND", nil)
	}
	if err == businessflow.ErrTemplateDisabled {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Notification template is disabled", "TEMPLATE_DISABLED", nil)
	}
	if err == businessflow.ErrNoTargetUsers {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Campaign has no target users", "NO_TARGET_USERS", nil)
	}

	log.Println(fallbackMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}
