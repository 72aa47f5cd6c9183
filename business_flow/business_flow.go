// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/repository"
	"github.com/orgdesk/orgdesk/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// recordAudit writes an audit entry; audit failures never fail the operation
func recordAudit(ctx context.Context, auditRepo repository.AuditLogRepository, action string, userID uint, description string, success bool, metadata map[string]any, clientMeta *ClientMetadata) {
	entry := &models.AuditLog{
		Action:      action,
		UserID:      &userID,
		Description: &description,
		Success:     &success,
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = raw
		}
	}
	if clientMeta != nil {
		if clientMeta.RequestID != "" {
			entry.RequestID = &clientMeta.RequestID
		}
		if clientMeta.IPAddress != "" {
			entry.IPAddress = &clientMeta.IPAddress
		}
	}
	_ = auditRepo.Save(ctx, entry)
}

// RenderContent substitutes {name}, {email} and {position} placeholders with
// the recipient's directory fields. Unknown placeholders pass through verbatim.
func RenderContent(text string, user *models.User) string {
	if user == nil {
		return text
	}
	r := strings.NewReplacer(
		"{name}", user.DisplayName,
		"{email}", user.Email,
		"{position}", user.Position,
	)
	return r.Replace(text)
}

// dedupeUints returns the ids with duplicates removed, order preserved
func dedupeUints(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// int64sToUints converts a pq.Int64Array-backed slice to uints
func int64sToUints(ids []int64) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, uint(id))
		}
	}
	return out
}

// normalizedChannels keeps only the known delivery channels
func normalizedChannels(channels []string) []string {
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		switch ch {
		case utils.ChannelBrowser, utils.ChannelEmail, utils.ChannelSMS:
			out = append(out, ch)
		}
	}
	return out
}
