package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgdesk/orgdesk/models"
)

func TestBuildWorkflow(t *testing.T) {
	campaign := &models.Campaign{ID: 9}
	approvers := []*models.User{{ID: 11}, {ID: 12}, {ID: 13}}

	t.Run("ParallelPutsEveryoneOnStepOne", func(t *testing.T) {
		req := &ApprovalRequirement{MinApprovers: 2}
		workflow := buildWorkflow(campaign, req, approvers, 42)

		assert.Equal(t, campaign.ID, workflow.CampaignID)
		assert.Equal(t, models.WorkflowStatusPending, workflow.Status)
		assert.Equal(t, 1, workflow.CurrentStep)
		assert.Equal(t, len(approvers), workflow.TotalSteps)
		assert.True(t, workflow.AllowParallelApproval)
		assert.Equal(t, 2, workflow.MinApprovers)

		require.Len(t, workflow.Approvers, len(approvers))
		for _, slot := range workflow.Approvers {
			assert.Equal(t, 1, slot.StepOrder)
			assert.Equal(t, models.ApproverStatusPending, slot.Status)
		}
	})

	t.Run("SequentialChainsTheSteps", func(t *testing.T) {
		req := &ApprovalRequirement{RequireSequential: true, RequireAll: true}
		workflow := buildWorkflow(campaign, req, approvers, 42)

		assert.Equal(t, len(approvers), workflow.TotalSteps)
		assert.False(t, workflow.AllowParallelApproval)
		assert.True(t, workflow.RequireAllApprovers)

		require.Len(t, workflow.Approvers, len(approvers))
		for i, slot := range workflow.Approvers {
			assert.Equal(t, i+1, slot.StepOrder)
			assert.Equal(t, approvers[i].ID, slot.UserID)
		}
	})

	t.Run("MinApproversClampedToPool", func(t *testing.T) {
		req := &ApprovalRequirement{MinApprovers: 10}
		workflow := buildWorkflow(campaign, req, approvers, 42)

		assert.Equal(t, len(approvers), workflow.MinApprovers)
	})
}
