// Package businessflow contains the core business logic and use cases for campaign approval workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Campaign-related errors
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrCampaignAccessDenied     = errors.New("campaign access denied")
	ErrCampaignUpdateNotAllowed = errors.New("campaign update not allowed")
	ErrCampaignMisconfigured    = errors.New("campaign content is misconfigured")
	ErrInvalidCampaignState     = errors.New("campaign is not in a valid state for this operation")
	ErrInvalidTransition        = errors.New("invalid campaign status transition")
	ErrNoTargetUsers            = errors.New("campaign has no target users")
	ErrTemplateNotFound         = errors.New("notification template not found")
	ErrTemplateDisabled         = errors.New("notification template is disabled")

	// Workflow-related errors
	ErrWorkflowNotFound       = errors.New("approval workflow not found")
	ErrWorkflowAlreadyDecided = errors.New("approval workflow already reached a final decision")
	ErrNotAnApprover          = errors.New("user is not an approver of this workflow")
	ErrApproverAlreadyDecided = errors.New("approver has already recorded a decision")
	ErrNotApproverTurn        = errors.New("an earlier approval step is still pending")
	ErrWorkflowCancelNotOwner = errors.New("only the requester may cancel the workflow")

	// Rule-related errors
	ErrRuleNotFound = errors.New("approval rule not found")

	// Meeting-related errors
	ErrMeetingNotFound     = errors.New("meeting not found")
	ErrMeetingAccessDenied = errors.New("meeting access denied")
	ErrScheduleConflict    = errors.New("meeting conflicts with existing schedules")
	ErrConflictCheckFailed = errors.New("conflict check failed")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCampaignNotFound checks if the error indicates a missing campaign
func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

// IsCampaignAccessDenied checks if the error indicates denied campaign access
func IsCampaignAccessDenied(err error) bool {
	return errors.Is(err, ErrCampaignAccessDenied)
}

// IsCampaignMisconfigured checks if the error indicates broken campaign content
func IsCampaignMisconfigured(err error) bool {
	return errors.Is(err, ErrCampaignMisconfigured)
}

// IsInvalidCampaignState checks if the error indicates an ineligible campaign state
func IsInvalidCampaignState(err error) bool {
	return errors.Is(err, ErrInvalidCampaignState) || errors.Is(err, ErrInvalidTransition)
}

// IsWorkflowNotFound checks if the error indicates a missing workflow
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsWorkflowAlreadyDecided checks if the error indicates a settled workflow
func IsWorkflowAlreadyDecided(err error) bool {
	return errors.Is(err, ErrWorkflowAlreadyDecided)
}

// IsNotAnApprover checks if the error indicates the caller is not an approver
func IsNotAnApprover(err error) bool {
	return errors.Is(err, ErrNotAnApprover)
}

// IsApproverAlreadyDecided checks if the error indicates a duplicate decision
func IsApproverAlreadyDecided(err error) bool {
	return errors.Is(err, ErrApproverAlreadyDecided)
}

// IsNotApproverTurn checks if the error indicates a sequential-order violation
func IsNotApproverTurn(err error) bool {
	return errors.Is(err, ErrNotApproverTurn)
}

// IsRuleNotFound checks if the error indicates a missing rule
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}

// IsMeetingNotFound checks if the error indicates a missing meeting
func IsMeetingNotFound(err error) bool {
	return errors.Is(err, ErrMeetingNotFound)
}

// IsMeetingAccessDenied checks if the error indicates denied meeting access
func IsMeetingAccessDenied(err error) bool {
	return errors.Is(err, ErrMeetingAccessDenied)
}

// IsScheduleConflict checks if the error indicates overlapping meetings
func IsScheduleConflict(err error) bool {
	return errors.Is(err, ErrScheduleConflict)
}

// IsConflictCheckFailed checks if the error indicates the conflict query itself failed
func IsConflictCheckFailed(err error) bool {
	return errors.Is(err, ErrConflictCheckFailed)
}

// IsTemplateNotFound checks if the error indicates a missing template
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}
