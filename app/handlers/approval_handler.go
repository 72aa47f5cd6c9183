package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/orgdesk/orgdesk/app/dto"
	"github.com/orgdesk/orgdesk/app/middleware"
	businessflow "github.com/orgdesk/orgdesk/business_flow"
)

// ApprovalHandlerInterface defines the contract for approval handlers
type ApprovalHandlerInterface interface {
	Approve(c fiber.Ctx) error
	Reject(c fiber.Ctx) error
	Cancel(c fiber.Ctx) error
	GetWorkflow(c fiber.Ctx) error
	GetByCampaign(c fiber.Ctx) error
	ListPending(c fiber.Ctx) error
}

// ApprovalHandler handles approval workflow HTTP requests
type ApprovalHandler struct {
	approvalFlow businessflow.ApprovalFlow
	validator    *validator.Validate
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(approvalFlow businessflow.ApprovalFlow) *ApprovalHandler {
	return &ApprovalHandler{
		approvalFlow: approvalFlow,
		validator:    validator.New(),
	}
}

func (h *ApprovalHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ApprovalHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Approve records an approval decision on a workflow
func (h *ApprovalHandler) Approve(c fiber.Ctx) error {
	workflowID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid workflow ID", "INVALID_WORKFLOW_ID", err.Error())
	}

	var req dto.ApprovalDecisionRequest
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

	result, err := h.approvalFlow.Approve(createRequestContext(c, "/api/v1/approvals/:id/approve"), workflowID, userID, &req, clientMetadata(c))
	if err != nil {
		return h.mapWorkflowError(c, err, "Approval failed", "APPROVAL_FAILED")
	}
	middleware.CountWorkflowDecision("approve")

	return h.SuccessResponse(c, fiber.StatusOK, "Approval recorded successfully", result)
}

// Reject records a rejection on a workflow
func (h *ApprovalHandler) Reject(c fiber.Ctx) error {
	workflowID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid workflow ID", "INVALID_WORKFLOW_ID", err.Error())
	}

	var req dto.RejectionRequest
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

	result, err := h.approvalFlow.Reject(createRequestContext(c, "/api/v1/approvals/:id/reject"), workflowID, userID, &req, clientMetadata(c))
	if err != nil {
		return h.mapWorkflowError(c, err, "Rejection failed", "REJECTION_FAILED")
	}
	middleware.CountWorkflowDecision("reject")

	return h.SuccessResponse(c, fiber.StatusOK, "Rejection recorded successfully", result)
}

// Cancel withdraws a pending workflow; only its requester may do this
func (h *ApprovalHandler) Cancel(c fiber.Ctx) error {
	workflowID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid workflow ID", "INVALID_WORKFLOW_ID", err.Error())
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	result, err := h.approvalFlow.Cancel(createRequestContext(c, "/api/v1/approvals/:id/cancel"), workflowID, userID, clientMetadata(c))
	if err != nil {
		if err == businessflow.ErrWorkflowCancelNotOwner {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Only the requester may cancel the workflow", "WORKFLOW_CANCEL_NOT_OWNER", nil)
		}
		return h.mapWorkflowError(c, err, "Workflow cancellation failed", "WORKFLOW_CANCEL_FAILED")
	}
	middleware.CountWorkflowDecision("cancel")

	return h.SuccessResponse(c, fiber.StatusOK, "Workflow cancelled successfully", result)
}

// GetWorkflow retrieves a workflow with its approver slots
func (h *ApprovalHandler) GetWorkflow(c fiber.Ctx) error {
	workflowID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid workflow ID", "INVALID_WORKFLOW_ID", err.Error())
	}

	result, err := h.approvalFlow.GetWorkflow(createRequestContext(c, "/api/v1/approvals/:id"), workflowID)
	if err != nil {
		return h.mapWorkflowError(c, err, "Failed to retrieve workflow", "WORKFLOW_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Workflow retrieved successfully", result)
}

// GetByCampaign retrieves the workflow attached to a campaign
func (h *ApprovalHandler) GetByCampaign(c fiber.Ctx) error {
	campaignID, err := parseIDParam(c, "id")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid campaign ID", "INVALID_CAMPAIGN_ID", err.Error())
	}

	result, err := h.approvalFlow.GetByCampaign(createRequestContext(c, "/api/v1/campaigns/:id/workflow"), campaignID)
	if err != nil {
		return h.mapWorkflowError(c, err, "Failed to retrieve workflow", "WORKFLOW_GET_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Workflow retrieved successfully", result)
}

// ListPending lists the workflows waiting on the caller's decision
func (h *ApprovalHandler) ListPending(c fiber.Ctx) error {
	var page dto.PaginationRequest
	if err := c.Bind().Query(&page); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "User ID not found in context", "MISSING_USER_ID", nil)
	}

	result, err := h.approvalFlow.ListPending(createRequestContext(c, "/api/v1/approvals/pending"), userID, page)
	if err != nil {
		log.Println("Pending workflow listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list pending workflows", "WORKFLOW_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Pending workflows retrieved successfully", result)
}

// mapWorkflowError translates workflow business errors into HTTP responses
func (h *ApprovalHandler) mapWorkflowError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	if businessflow.IsWorkflowNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Approval workflow not found", "WORKFLOW_NOT_FOUND", nil)
	}
	if businessflow.IsWorkflowAlreadyDecided(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Workflow already reached a final decision", "WORKFLOW_ALREADY_DECIDED", nil)
	}
	if businessflow.IsNotAnApprover(err) {
		return h.ErrorResponse(c, fiber.StatusForbidden, "You are not an approver of this workflow", "NOT_AN_APPROVER", nil)
	}
	if businessflow.IsApproverAlreadyDecided(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "You have already recorded a decision", "APPROVER_ALREADY_DECIDED", nil)
	}
	if businessflow.IsNotApproverTurn(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "An earlier approval step is still pending", "NOT_APPROVER_TURN", nil)
	}

	log.Println(fallbackMessage, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
}
