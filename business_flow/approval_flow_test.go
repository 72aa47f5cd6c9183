package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orgdesk/orgdesk/models"
)

func approverSlots(statuses ...models.ApproverStatus) []models.WorkflowApprover {
	approvers := make([]models.WorkflowApprover, 0, len(statuses))
	for i, status := range statuses {
		approvers = append(approvers, models.WorkflowApprover{
			UserID:    uint(i + 1),
			StepOrder: i + 1,
			Status:    status,
		})
	}
	return approvers
}

func TestComputeOutcome(t *testing.T) {
	t.Run("AnyRejectionRejectsImmediately", func(t *testing.T) {
		approvers := approverSlots(
			models.ApproverStatusApproved,
			models.ApproverStatusRejected,
			models.ApproverStatusPending,
		)
		assert.Equal(t, models.WorkflowStatusRejected, computeOutcome(approvers, false, 1))
		assert.Equal(t, models.WorkflowStatusRejected, computeOutcome(approvers, true, 3))
	})

	t.Run("RequireAllStaysPendingUntilEveryoneApproves", func(t *testing.T) {
		approvers := approverSlots(
			models.ApproverStatusApproved,
			models.ApproverStatusPending,
		)
		assert.Equal(t, models.WorkflowStatusPending, computeOutcome(approvers, true, 1))

		approvers[1].Status = models.ApproverStatusApproved
		assert.Equal(t, models.WorkflowStatusApproved, computeOutcome(approvers, true, 1))
	})

	t.Run("QuorumReached", func(t *testing.T) {
		approvers := approverSlots(
			models.ApproverStatusApproved,
			models.ApproverStatusApproved,
			models.ApproverStatusPending,
		)
		assert.Equal(t, models.WorkflowStatusApproved, computeOutcome(approvers, false, 2))
	})

	t.Run("QuorumNotReached", func(t *testing.T) {
		approvers := approverSlots(
			models.ApproverStatusApproved,
			models.ApproverStatusPending,
			models.ApproverStatusPending,
		)
		assert.Equal(t, models.WorkflowStatusPending, computeOutcome(approvers, false, 2))
	})

	t.Run("MinApproversClampedToOne", func(t *testing.T) {
		approvers := approverSlots(models.ApproverStatusApproved)
		assert.Equal(t, models.WorkflowStatusApproved, computeOutcome(approvers, false, 0))
	})
}

func TestNextPendingStep(t *testing.T) {
	t.Run("LowestPendingStepWins", func(t *testing.T) {
		approvers := []models.WorkflowApprover{
			{UserID: 1, StepOrder: 1, Status: models.ApproverStatusApproved},
			{UserID: 2, StepOrder: 3, Status: models.ApproverStatusPending},
			{UserID: 3, StepOrder: 2, Status: models.ApproverStatusPending},
		}
		assert.Equal(t, 2, nextPendingStep(approvers))
	})

	t.Run("NoPendingApproversLeft", func(t *testing.T) {
		approvers := approverSlots(
			models.ApproverStatusApproved,
			models.ApproverStatusApproved,
		)
		assert.Equal(t, 0, nextPendingStep(approvers))
	})

	t.Run("EmptySlice", func(t *testing.T) {
		assert.Equal(t, 0, nextPendingStep(nil))
	})
}
