package handlers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/orgdesk/orgdesk/app/dto"
	"github.com/orgdesk/orgdesk/app/middleware"
	businessflow "github.com/orgdesk/orgdesk/business_flow"
)

// RuleAdminHandlerInterface defines the contract for rule administration handlers
type RuleAdminHandlerInterface interface {
	CreateRule(c fiber.Ctx) error
	UpdateRule(c fiber.Ctx) error
	DeactivateRule(c fiber.Ctx) error
	GetRule(c fiber.Ctx) error
	ListRules(c fiber.Ctx) error
}

// RuleAdminHandler handles approval rule administration requests
type RuleAdminHandler struct {
	ruleFlow  businessflow.RuleFlow
	validator *validator.Validate
}

// NewRuleAdminHandler creates a new rule admin handler
func NewRuleAdminHandler(ruleFlow businessflow.RuleFlow) *RuleAdminHandler {
	return &RuleAdminHandler{
		ruleFlow:  ruleFlow,
		validator: validator.New(),
	}
}

func (h *RuleAdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *RuleAdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateRule creates a new approval rule
func (h *RuleAdminHandler) CreateRule(c fiber.Ctx) error {
	var req dto.CreateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	adminID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	result, err := h.ruleFlow.CreateRule(createRequestContext(c, "/api/v1/admin/rules"), &req, adminID, clientMetadata(c))
	if err != nil {
		return h.mapRuleError(c, err, "Rule creation failed", "RULE_CREATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Rule created successfully", result)
}

// UpdateRule replaces an existing rule's definition
func (h *RuleAdminHandler) UpdateRule(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule ID", "INVALID_RULE_ID", err.Error())
	}

	var req dto.UpdateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	adminID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	result, err := h.ruleFlow.UpdateRule(createRequestContext(c, "/api/v1/admin/rules/:id"), id, &req, adminID, clientMetadata(c))
	if err != nil {
		return h.mapRuleError(c, err, "Rule update failed", "RULE_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Rule updated successfully", result)
}

// DeactivateRule turns a rule off
func (h *RuleAdminHandler) DeactivateRule(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule ID", "INVALID_RULE_ID", err.Error())
	}

	adminID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	result, err := h.ruleFlow.DeactivateRule(createRequestContext(c, "/api/v1/admin/rules/:id/deactivate"), id, adminID, clientMetadata(c))
	if err != nil {
		return h.mapRuleError(c, err, "Rule deactivation failed", "RULE_DEACTIVATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Rule deactivated successfully", result)
}

// GetRule retrieves a rule by ID
func (h *RuleAdminHandler) GetRule(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid rule ID", "INVALID_RULE_ID", err.Error())
	}

	result, err := h.ruleFlow.GetRule(createRequestContext(c, "/api/v1/admin/rules/:id"), id)
	if err != nil {
		return h.mapRuleError(c, err, "Failed to retrieve rule", "RULE_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Rule retrieved successfully", result)
}

// ListRules lists approval rules; pass include_inactive=true to see all
func (h *RuleAdminHandler) ListRules(c fiber.Ctx) error {
	includeInactive := c.Query("include_inactive") == "true"

	result, err := h.ruleFlow.ListRules(createRequestContext(c, "/api/v1/admin/rules"), includeInactive)
	if err != nil {
		log.Println("Rule listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list rules", "RULE_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Rules retrieved successfully", result)
}

// mapRuleError translates rule business errors into HTTP responses
func (h *RuleAdminHandler) mapRuleError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	if businessflow.IsRuleNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Approval rule not found", "RULE_NOT_FOUND", nil)
	}
	var berr *businessflow.BusinessError
	if errors.As(err, &berr) && berr.Code == "RULE_APPROVERS_INVALID" {
		return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, berr.Message, berr.Code, nil)
	}

	log.Println(fallbackMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}
