package businessflow

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/repository"
	"github.com/orgdesk/orgdesk/utils"
)

// ReportFlow builds delivery reports for the admin surface
type ReportFlow interface {
	ExportCampaignStatsExcel(ctx context.Context, createdAfter, createdBefore *time.Time) (string, []byte, error)
}

// ReportFlowImpl implements the report flow
type ReportFlowImpl struct {
	campaignRepo repository.CampaignRepository
	userRepo     repository.UserRepository
}

// NewReportFlow creates a new report flow instance
func NewReportFlow(campaignRepo repository.CampaignRepository, userRepo repository.UserRepository) ReportFlow {
	return &ReportFlowImpl{
		campaignRepo: campaignRepo,
		userRepo:     userRepo,
	}
}

// ExportCampaignStatsExcel writes one sheet per campaign status with
// per-campaign delivery counters
func (s *ReportFlowImpl) ExportCampaignStatsExcel(ctx context.Context, createdAfter, createdBefore *time.Time) (string, []byte, error) {
	filter := models.CampaignFilter{
		CreatedAfter:  createdAfter,
		CreatedBefore: createdBefore,
	}
	campaigns, err := s.campaignRepo.ByFilter(ctx, filter, "id ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("REPORT_QUERY_FAILED", "Failed to load campaigns", err)
	}

	creatorIDs := make([]uint, 0, len(campaigns))
	for _, c := range campaigns {
		creatorIDs = append(creatorIDs, c.CreatedBy)
	}
	creators := map[uint]*models.User{}
	if len(creatorIDs) > 0 {
		users, err := s.userRepo.ByIDs(ctx, dedupeUints(creatorIDs))
		if err != nil {
			return "", nil, NewBusinessError("REPORT_QUERY_FAILED", "Failed to load campaign creators", err)
		}
		for _, u := range users {
			creators[u.ID] = u
		}
	}

	byStatus := map[models.CampaignStatus][]*models.Campaign{}
	var order []models.CampaignStatus
	for _, c := range campaigns {
		if _, seen := byStatus[c.Status]; !seen {
			order = append(order, c.Status)
		}
		byStatus[c.Status] = append(byStatus[c.Status], c)
	}
	if len(order) == 0 {
		order = []models.CampaignStatus{models.CampaignStatusDraft}
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	for i, status := range order {
		name := sanitizeSheetName(status.String())
		if i == 0 {
			// Rename default sheet
			xl.SetSheetName(xl.GetSheetName(0), name)
		} else {
			_, _ = xl.NewSheet(name)
		}

		header := []string{"id", "uuid", "name", "created_by", "creator", "priority", "targets", "sent", "delivered", "opened", "clicked", "failed", "scheduled_for", "sent_at", "created_at"}
		_ = xl.SetSheetRow(name, "A1", &header)

		for ri, c := range byStatus[status] {
			creatorName := ""
			if u, ok := creators[c.CreatedBy]; ok {
				creatorName = u.DisplayName
			}
			scheduledFor := ""
			if c.ScheduledFor != nil {
				scheduledFor = c.ScheduledFor.UTC().Format(time.RFC3339)
			}
			sentAt := ""
			if c.SentAt != nil {
				sentAt = c.SentAt.UTC().Format(time.RFC3339)
			}
			record := []any{
				strconv.FormatUint(uint64(c.ID), 10),
				c.UUID.String(),
				c.Name,
				strconv.FormatUint(uint64(c.CreatedBy), 10),
				creatorName,
				string(c.Priority),
				len(c.TargetUserIDs),
				c.Stats.Sent,
				c.Stats.Delivered,
				c.Stats.Opened,
				c.Stats.Clicked,
				c.Stats.Failed,
				scheduledFor,
				sentAt,
				c.CreatedAt.UTC().Format(time.RFC3339),
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
			_ = xl.SetSheetRow(name, cellRef, &record)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	filename := "campaign_delivery_stats_" + utils.UTCNow().Format("20060102_150405") + ".xlsx"
	return filename, buf.Bytes(), nil
}

func sanitizeSheetName(name string) string {
	// Excel sheet names cannot contain: : \ / ? * [ ] and must be <= 31 chars
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	safe := replacer.Replace(name)
	return truncateSheetName(strings.TrimSpace(safe))
}

func truncateSheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	if name == "" {
		return "Sheet"
	}
	return name
}
