package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/orgdesk/orgdesk/app/dto"
	businessflow "github.com/orgdesk/orgdesk/business_flow"
)

// ReportAdminHandlerInterface defines the contract for report handlers
type ReportAdminHandlerInterface interface {
	ExportCampaignStats(c fiber.Ctx) error
}

// ReportAdminHandler serves delivery reports on the admin surface
type ReportAdminHandler struct {
	reportFlow businessflow.ReportFlow
}

// NewReportAdminHandler creates a new report admin handler
func NewReportAdminHandler(reportFlow businessflow.ReportFlow) *ReportAdminHandler {
	return &ReportAdminHandler{reportFlow: reportFlow}
}

func (h *ReportAdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// ExportCampaignStats streams an Excel file of campaign delivery stats.
// Optional created_after and created_before query parameters (RFC3339) bound
// the export window.
func (h *ReportAdminHandler) ExportCampaignStats(c fiber.Ctx) error {
	var createdAfter, createdBefore *time.Time
	if raw := c.Query("created_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "created_after must be RFC3339", "INVALID_REQUEST", err.Error())
		}
		createdAfter = &t
	}
	if raw := c.Query("created_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "created_before must be RFC3339", "INVALID_REQUEST", err.Error())
		}
		createdBefore = &t
	}

	filename, data, err := h.reportFlow.ExportCampaignStatsExcel(
		createRequestContextWithTimeout(c, "/api/v1/admin/reports/campaigns.xlsx", 2*time.Minute),
		createdAfter, createdBefore)
	if err != nil {
		log.Println("Campaign stats export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to export campaign stats", "REPORT_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}
