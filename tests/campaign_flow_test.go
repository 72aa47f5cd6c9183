// Package tests contains integration tests for repositories and business flows
package tests

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgdesk/orgdesk/app/dto"
	"github.com/orgdesk/orgdesk/app/services"
	businessflow "github.com/orgdesk/orgdesk/business_flow"
	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/repository"
	testingutil "github.com/orgdesk/orgdesk/testing"
	"github.com/orgdesk/orgdesk/utils"
)

type flowHarness struct {
	fixtures      *testingutil.TestFixtures
	campaignFlow  businessflow.CampaignFlow
	approvalFlow  businessflow.ApprovalFlow
	executionFlow businessflow.ExecutionFlow
	sink          *services.MockNotificationSink
}

func newFlowHarness(testDB *testingutil.TestDB) *flowHarness {
	userRepo := repository.NewUserRepository(testDB.DB)
	templateRepo := repository.NewNotificationTemplateRepository(testDB.DB)
	campaignRepo := repository.NewCampaignRepository(testDB.DB)
	ruleRepo := repository.NewApprovalRuleRepository(testDB.DB)
	workflowRepo := repository.NewApprovalWorkflowRepository(testDB.DB)
	notificationRepo := repository.NewNotificationRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	sink := services.NewMockNotificationSink()
	eventBus := services.NewRedisEventBus(nil)

	return &flowHarness{
		fixtures:      testingutil.NewTestFixtures(testDB),
		campaignFlow:  businessflow.NewCampaignFlow(campaignRepo, templateRepo, ruleRepo, workflowRepo, userRepo, auditRepo, eventBus, nil, testDB.DB),
		approvalFlow:  businessflow.NewApprovalFlow(workflowRepo, campaignRepo, notificationRepo, auditRepo, eventBus, testDB.DB),
		executionFlow: businessflow.NewExecutionFlow(campaignRepo, templateRepo, userRepo, notificationRepo, auditRepo, sink, eventBus, testDB.DB),
		sink:          sink,
	}
}

func TestCampaignApprovalFlow(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		h := newFlowHarness(testDB)
		ctx := testingutil.CreateTestContext()

		creator, err := h.fixtures.CreateTestUser(utils.LevelAnalyst)
		require.NoError(t, err)
		director, err := h.fixtures.CreateTestUser(utils.LevelDirector)
		require.NoError(t, err)
		target, err := h.fixtures.CreateTestUser(utils.LevelAssistant)
		require.NoError(t, err)

		// Campaigns created by analysts need a director's sign-off
		_, err = h.fixtures.CreateTestRule(director.ID,
			models.RuleConditions{CreatorLevels: []int{utils.LevelAnalyst}},
			models.RuleApprovers{Levels: []int{utils.LevelDirector}},
			models.RuleSettings{},
		)
		require.NoError(t, err)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "integration-test")

		t.Run("SubmitRoutesThroughApproval", func(t *testing.T) {
			created, err := h.campaignFlow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
				Name:          "Policy update",
				CustomTitle:   "New travel policy",
				CustomMessage: "Please read the attached policy.",
				TargetUserIDs: []uint{target.ID},
				Channels:      []string{utils.ChannelBrowser},
			}, creator.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.CampaignStatusDraft), created.Status)

			submitted, err := h.campaignFlow.SubmitCampaign(ctx, created.ID, creator.ID, utils.LevelAnalyst, metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.CampaignStatusPendingApproval), submitted.Campaign.Status)
			require.NotNil(t, submitted.Workflow)
			require.Len(t, submitted.Workflow.Approvers, 1)
			assert.Equal(t, director.ID, submitted.Workflow.Approvers[0].UserID)

			decided, err := h.approvalFlow.Approve(ctx, submitted.Workflow.ID, director.ID, nil, metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.WorkflowStatusApproved), decided.Status)

			campaign, err := h.campaignFlow.GetCampaign(ctx, created.ID, creator.ID, utils.LevelAnalyst)
			require.NoError(t, err)
			assert.Equal(t, string(models.CampaignStatusApproved), campaign.Status)
			require.NotNil(t, campaign.ApprovedBy)
			assert.Equal(t, director.ID, *campaign.ApprovedBy)
		})

		t.Run("RejectionCarriesReason", func(t *testing.T) {
			created, err := h.campaignFlow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
				Name:          "Risky announcement",
				CustomTitle:   "Big news",
				CustomMessage: "Not vetted yet.",
				TargetUserIDs: []uint{target.ID},
				Channels:      []string{utils.ChannelBrowser},
			}, creator.ID, metadata)
			require.NoError(t, err)

			submitted, err := h.campaignFlow.SubmitCampaign(ctx, created.ID, creator.ID, utils.LevelAnalyst, metadata)
			require.NoError(t, err)
			require.NotNil(t, submitted.Workflow)

			decided, err := h.approvalFlow.Reject(ctx, submitted.Workflow.ID, director.ID,
				&dto.RejectionRequest{Comment: "Needs legal review"}, metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.WorkflowStatusRejected), decided.Status)

			campaign, err := h.campaignFlow.GetCampaign(ctx, created.ID, creator.ID, utils.LevelAnalyst)
			require.NoError(t, err)
			assert.Equal(t, string(models.CampaignStatusRejected), campaign.Status)
			require.NotNil(t, campaign.RejectionReason)
			assert.Equal(t, "Needs legal review", *campaign.RejectionReason)
		})

		t.Run("SecondDecisionIsRefused", func(t *testing.T) {
			created, err := h.campaignFlow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
				Name:          "Once only",
				CustomTitle:   "Decision race",
				CustomMessage: "Only one decision may land.",
				TargetUserIDs: []uint{target.ID},
				Channels:      []string{utils.ChannelBrowser},
			}, creator.ID, metadata)
			require.NoError(t, err)

			submitted, err := h.campaignFlow.SubmitCampaign(ctx, created.ID, creator.ID, utils.LevelAnalyst, metadata)
			require.NoError(t, err)
			require.NotNil(t, submitted.Workflow)

			_, err = h.approvalFlow.Approve(ctx, submitted.Workflow.ID, director.ID, nil, metadata)
			require.NoError(t, err)

			_, err = h.approvalFlow.Approve(ctx, submitted.Workflow.ID, director.ID, nil, metadata)
			assert.Error(t, err)
		})

	})
}

func TestConcurrentQuorumApprovals(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		h := newFlowHarness(testDB)
		ctx := testingutil.CreateTestContext()

		creator, err := h.fixtures.CreateTestUser(utils.LevelAnalyst)
		require.NoError(t, err)
		director, err := h.fixtures.CreateTestUser(utils.LevelDirector)
		require.NoError(t, err)
		manager, err := h.fixtures.CreateTestUser(utils.LevelManager)
		require.NoError(t, err)
		target, err := h.fixtures.CreateTestUser(utils.LevelAssistant)
		require.NoError(t, err)

		_, err = h.fixtures.CreateTestRule(director.ID,
			models.RuleConditions{CreatorLevels: []int{utils.LevelAnalyst}},
			models.RuleApprovers{Levels: []int{utils.LevelDirector, utils.LevelManager}, MinApprovers: 2},
			models.RuleSettings{},
		)
		require.NoError(t, err)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "integration-test")

		created, err := h.campaignFlow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			Name:          "Quorum race",
			CustomTitle:   "Two sign-offs needed",
			CustomMessage: "Both approvals may land at the same time.",
			TargetUserIDs: []uint{target.ID},
			Channels:      []string{utils.ChannelBrowser},
		}, creator.ID, metadata)
		require.NoError(t, err)

		submitted, err := h.campaignFlow.SubmitCampaign(ctx, created.ID, creator.ID, utils.LevelAnalyst, metadata)
		require.NoError(t, err)
		require.NotNil(t, submitted.Workflow)
		require.Len(t, submitted.Workflow.Approvers, 2)
		require.Equal(t, 2, submitted.Workflow.MinApprovers)

		// Both approvers decide at the same time. Neither decision may be
		// lost: the quorum of two must be reached and the campaign released.
		approverIDs := []uint{director.ID, manager.ID}
		errs := make([]error, len(approverIDs))
		var wg sync.WaitGroup
		for i, approverID := range approverIDs {
			wg.Add(1)
			go func(i int, approverID uint) {
				defer wg.Done()
				_, errs[i] = h.approvalFlow.Approve(ctx, submitted.Workflow.ID, approverID, nil, metadata)
			}(i, approverID)
		}
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		workflow, err := h.approvalFlow.GetWorkflow(ctx, submitted.Workflow.ID)
		require.NoError(t, err)
		assert.Equal(t, string(models.WorkflowStatusApproved), workflow.Status)

		campaign, err := h.campaignFlow.GetCampaign(ctx, created.ID, creator.ID, utils.LevelAnalyst)
		require.NoError(t, err)
		assert.Equal(t, string(models.CampaignStatusApproved), campaign.Status)
	})
}

func TestSequentialApprovalOrder(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		h := newFlowHarness(testDB)
		ctx := testingutil.CreateTestContext()

		creator, err := h.fixtures.CreateTestUser(utils.LevelAnalyst)
		require.NoError(t, err)
		director, err := h.fixtures.CreateTestUser(utils.LevelDirector)
		require.NoError(t, err)
		manager, err := h.fixtures.CreateTestUser(utils.LevelManager)
		require.NoError(t, err)
		target, err := h.fixtures.CreateTestUser(utils.LevelAssistant)
		require.NoError(t, err)

		// Approvers sort by hierarchy level, so the director holds step 1
		// and the manager step 2
		_, err = h.fixtures.CreateTestRule(director.ID,
			models.RuleConditions{CreatorLevels: []int{utils.LevelAnalyst}},
			models.RuleApprovers{Levels: []int{utils.LevelDirector, utils.LevelManager}, RequireAll: true},
			models.RuleSettings{RequireSequential: true},
		)
		require.NoError(t, err)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "integration-test")

		created, err := h.campaignFlow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			Name:          "Chain of command",
			CustomTitle:   "Strictly ordered",
			CustomMessage: "Approvals must follow the chain.",
			TargetUserIDs: []uint{target.ID},
			Channels:      []string{utils.ChannelBrowser},
		}, creator.ID, metadata)
		require.NoError(t, err)

		submitted, err := h.campaignFlow.SubmitCampaign(ctx, created.ID, creator.ID, utils.LevelAnalyst, metadata)
		require.NoError(t, err)
		require.NotNil(t, submitted.Workflow)
		require.Len(t, submitted.Workflow.Approvers, 2)
		assert.Equal(t, 2, submitted.Workflow.TotalSteps)
		assert.Equal(t, 1, submitted.Workflow.CurrentStep)
		assert.Equal(t, director.ID, submitted.Workflow.Approvers[0].UserID)
		assert.Equal(t, manager.ID, submitted.Workflow.Approvers[1].UserID)

		t.Run("OutOfTurnApprovalIsRefused", func(t *testing.T) {
			_, err := h.approvalFlow.Approve(ctx, submitted.Workflow.ID, manager.ID, nil, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsNotApproverTurn(err))
		})

		t.Run("FirstStepAdvancesTheChain", func(t *testing.T) {
			workflow, err := h.approvalFlow.Approve(ctx, submitted.Workflow.ID, director.ID, nil, metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.WorkflowStatusPending), workflow.Status)
			assert.Equal(t, 2, workflow.CurrentStep)
		})

		t.Run("LastStepSettlesTheWorkflow", func(t *testing.T) {
			workflow, err := h.approvalFlow.Approve(ctx, submitted.Workflow.ID, manager.ID, nil, metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.WorkflowStatusApproved), workflow.Status)

			campaign, err := h.campaignFlow.GetCampaign(ctx, created.ID, creator.ID, utils.LevelAnalyst)
			require.NoError(t, err)
			assert.Equal(t, string(models.CampaignStatusApproved), campaign.Status)
		})
	})
}

func TestCampaignExecutionFlow(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		h := newFlowHarness(testDB)
		ctx := testingutil.CreateTestContext()

		// No rules exist, so submission approves immediately
		creator, err := h.fixtures.CreateTestUser(utils.LevelDirector)
		require.NoError(t, err)
		alice, err := h.fixtures.CreateTestUser(utils.LevelAnalyst)
		require.NoError(t, err)
		bob, err := h.fixtures.CreateTestUser(utils.LevelAssistant)
		require.NoError(t, err)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "integration-test")

		created, err := h.campaignFlow.CreateCampaign(ctx, &dto.CreateCampaignRequest{
			Name:          "All hands reminder",
			CustomTitle:   "All hands on Friday",
			CustomMessage: "Main auditorium, 10:00.",
			TargetUserIDs: []uint{alice.ID, bob.ID},
			Channels:      []string{utils.ChannelBrowser, utils.ChannelEmail},
		}, creator.ID, metadata)
		require.NoError(t, err)

		submitted, err := h.campaignFlow.SubmitCampaign(ctx, created.ID, creator.ID, utils.LevelDirector, metadata)
		require.NoError(t, err)
		assert.Nil(t, submitted.Workflow)
		assert.Equal(t, string(models.CampaignStatusApproved), submitted.Campaign.Status)

		result, err := h.executionFlow.ExecuteCampaign(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, string(models.CampaignStatusCompleted), result.Status)
		assert.Equal(t, 2, result.Stats.Sent)
		assert.Equal(t, 0, result.Stats.Failed)
		assert.NotEmpty(t, h.sink.Published)

		// Execution is one-shot: a second run finds no executable campaign
		_, err = h.executionFlow.ExecuteCampaign(ctx, created.ID)
		assert.Error(t, err)

		t.Run("EngagementCounters", func(t *testing.T) {
			result, err := h.executionFlow.RecordEngagement(ctx, created.ID, "delivered")
			require.NoError(t, err)
			assert.Equal(t, 1, result.Stats.Delivered)

			result, err = h.executionFlow.RecordEngagement(ctx, created.ID, "opened")
			require.NoError(t, err)
			assert.Equal(t, 1, result.Stats.Opened)
		})

	})
}

func TestMeetingConflictFlow(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		userRepo := repository.NewUserRepository(testDB.DB)
		meetingRepo := repository.NewMeetingRepository(testDB.DB)
		notificationRepo := repository.NewNotificationRepository(testDB.DB)
		auditRepo := repository.NewAuditLogRepository(testDB.DB)
		eventBus := services.NewRedisEventBus(nil)

		meetingFlow := businessflow.NewMeetingFlow(meetingRepo, userRepo, notificationRepo, auditRepo, eventBus, testDB.DB)

		organizer, err := fixtures.CreateTestUser(utils.LevelManager)
		require.NoError(t, err)
		alice, err := fixtures.CreateTestUser(utils.LevelAnalyst)
		require.NoError(t, err)

		metadata := businessflow.NewClientMetadata("127.0.0.1", "integration-test")

		first, err := meetingFlow.CreateMeeting(ctx, &dto.CreateMeetingRequest{
			Title:       "Sprint review",
			Date:        "2026-09-21",
			StartTime:   "09:00",
			EndTime:     "10:00",
			Kind:        string(models.MeetingKindOnline),
			MeetingLink: "https://meet.example.com/sprint",
			Participants: []dto.MeetingParticipantInput{
				{UserID: alice.ID},
			},
		}, organizer.ID, utils.LevelManager, metadata)
		require.NoError(t, err)
		require.NotNil(t, first)

		t.Run("OverlapIsRefused", func(t *testing.T) {
			_, err := meetingFlow.CreateMeeting(ctx, &dto.CreateMeetingRequest{
				Title:       "Conflicting sync",
				Date:        "2026-09-21",
				StartTime:   "09:30",
				EndTime:     "10:30",
				Kind:        string(models.MeetingKindOnline),
				MeetingLink: "https://meet.example.com/sync",
				Participants: []dto.MeetingParticipantInput{
					{UserID: alice.ID},
				},
			}, organizer.ID, utils.LevelManager, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsScheduleConflict(err))
		})

		t.Run("CheckConflictsReportsTheBusySlot", func(t *testing.T) {
			conflicts, err := meetingFlow.CheckConflicts(ctx, "2026-09-21", "09:30", "10:30", []uint{alice.ID}, 0)
			require.NoError(t, err)
			require.Len(t, conflicts, 1)
			assert.Equal(t, alice.ID, conflicts[0].UserID)
		})

		t.Run("AdjacentSlotIsFree", func(t *testing.T) {
			conflicts, err := meetingFlow.CheckConflicts(ctx, "2026-09-21", "10:00", "11:00", []uint{alice.ID}, 0)
			require.NoError(t, err)
			assert.Empty(t, conflicts)
		})

	})
}
