// Package tests contains integration tests for repositories and business flows
package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/repository"
	testingutil "github.com/orgdesk/orgdesk/testing"
	"github.com/orgdesk/orgdesk/utils"
)

// withTestDB runs the test body against a disposable database and skips the
// test when no test database is reachable
func withTestDB(t *testing.T, fn func(testDB *testingutil.TestDB)) {
	t.Helper()
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fn(testDB)
		return nil
	})
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}
}

func TestUserRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewUserRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		users, err := fixtures.CreateTestHierarchy()
		require.NoError(t, err)
		require.Len(t, users, 5)

		t.Run("ByID", func(t *testing.T) {
			user, err := repo.ByID(ctx, users[0].ID)
			require.NoError(t, err)
			require.NotNil(t, user)
			assert.Equal(t, utils.LevelCEO, user.HierarchyLevel)
		})

		t.Run("ByIDNotFound", func(t *testing.T) {
			user, err := repo.ByID(ctx, 999999)
			assert.NoError(t, err)
			assert.Nil(t, user)
		})

		t.Run("ByIDs", func(t *testing.T) {
			got, err := repo.ByIDs(ctx, []uint{users[0].ID, users[2].ID})
			require.NoError(t, err)
			assert.Len(t, got, 2)
		})

		t.Run("ByHierarchyLevels", func(t *testing.T) {
			got, err := repo.ByHierarchyLevels(ctx, []int{utils.LevelCEO, utils.LevelDirector})
			require.NoError(t, err)
			require.Len(t, got, 2)
			for _, u := range got {
				assert.LessOrEqual(t, u.HierarchyLevel, utils.LevelDirector)
			}
		})

	})
}

func TestCampaignRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewCampaignRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		creator, err := fixtures.CreateTestUser(utils.LevelManager)
		require.NoError(t, err)
		target, err := fixtures.CreateTestUser(utils.LevelAnalyst)
		require.NoError(t, err)

		t.Run("SaveAndByID", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(creator.ID, []uint{target.ID})
			require.NoError(t, err)

			got, err := repo.ByID(ctx, campaign.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, models.CampaignStatusDraft, got.Status)
			assert.Equal(t, campaign.UUID, got.UUID)
		})

		t.Run("UpdateStatusIf", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(creator.ID, []uint{target.ID})
			require.NoError(t, err)

			changed, err := repo.UpdateStatusIf(ctx, campaign.ID,
				[]models.CampaignStatus{models.CampaignStatusDraft}, models.CampaignStatusApproved)
			require.NoError(t, err)
			assert.True(t, changed)

			// Second attempt from the same precondition must not match
			changed, err = repo.UpdateStatusIf(ctx, campaign.ID,
				[]models.CampaignStatus{models.CampaignStatusDraft}, models.CampaignStatusApproved)
			require.NoError(t, err)
			assert.False(t, changed)
		})

		t.Run("ClaimForSending", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(creator.ID, []uint{target.ID})
			require.NoError(t, err)

			changed, err := repo.UpdateStatusIf(ctx, campaign.ID,
				[]models.CampaignStatus{models.CampaignStatusDraft}, models.CampaignStatusApproved)
			require.NoError(t, err)
			require.True(t, changed)

			claimed, ok, err := repo.ClaimForSending(ctx, campaign.ID)
			require.NoError(t, err)
			assert.True(t, ok)
			require.NotNil(t, claimed)
			assert.Equal(t, models.CampaignStatusSending, claimed.Status)

			// A second claim loses the race
			_, ok, err = repo.ClaimForSending(ctx, campaign.ID)
			require.NoError(t, err)
			assert.False(t, ok)
		})

		t.Run("ListDueScheduled", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(creator.ID, []uint{target.ID})
			require.NoError(t, err)

			past := utils.UTCNowAdd(-time.Hour)
			campaign.ScheduledFor = &past
			campaign.Status = models.CampaignStatusScheduled
			require.NoError(t, repo.Update(ctx, *campaign))

			due, err := repo.ListDueScheduled(ctx, utils.UTCNow(), 10)
			require.NoError(t, err)
			require.Len(t, due, 1)
			assert.Equal(t, campaign.ID, due[0].ID)

			// A future schedule is not due yet
			future, err := fixtures.CreateTestCampaign(creator.ID, []uint{target.ID})
			require.NoError(t, err)
			later := utils.UTCNowAdd(time.Hour)
			future.ScheduledFor = &later
			future.Status = models.CampaignStatusScheduled
			require.NoError(t, repo.Update(ctx, *future))

			due, err = repo.ListDueScheduled(ctx, utils.UTCNow(), 10)
			require.NoError(t, err)
			assert.Len(t, due, 1)
		})

	})
}

func TestApprovalWorkflowRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewApprovalWorkflowRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		creator, err := fixtures.CreateTestUser(utils.LevelAnalyst)
		require.NoError(t, err)
		approver, err := fixtures.CreateTestUser(utils.LevelDirector)
		require.NoError(t, err)

		newWorkflow := func(t *testing.T) *models.ApprovalWorkflow {
			t.Helper()
			campaign, err := fixtures.CreateTestCampaign(creator.ID, []uint{creator.ID})
			require.NoError(t, err)

			workflow := &models.ApprovalWorkflow{
				CampaignID:   campaign.ID,
				Status:       models.WorkflowStatusPending,
				RequestedBy:  creator.ID,
				RequestedAt:  utils.UTCNow(),
				CurrentStep:  1,
				TotalSteps:   1,
				MinApprovers: 1,
				Approvers: []models.WorkflowApprover{
					{UserID: approver.ID, StepOrder: 1, Status: models.ApproverStatusPending},
				},
			}
			require.NoError(t, repo.Save(ctx, workflow))
			return workflow
		}

		t.Run("SaveAndByCampaignID", func(t *testing.T) {
			workflow := newWorkflow(t)

			got, err := repo.ByCampaignID(ctx, workflow.CampaignID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, workflow.ID, got.ID)
			require.Len(t, got.Approvers, 1)
			assert.Equal(t, approver.ID, got.Approvers[0].UserID)
		})

		t.Run("DecideApproverIsIdempotent", func(t *testing.T) {
			workflow := newWorkflow(t)

			changed, err := repo.DecideApprover(ctx, workflow.ID, approver.ID,
				models.ApproverStatusApproved, nil, utils.UTCNow())
			require.NoError(t, err)
			assert.True(t, changed)

			// The slot already left pending, so nothing changes
			changed, err = repo.DecideApprover(ctx, workflow.ID, approver.ID,
				models.ApproverStatusRejected, nil, utils.UTCNow())
			require.NoError(t, err)
			assert.False(t, changed)
		})

		t.Run("UpdateStatusIf", func(t *testing.T) {
			workflow := newWorkflow(t)

			changed, err := repo.UpdateStatusIf(ctx, workflow.ID,
				models.WorkflowStatusPending, models.WorkflowStatusApproved, &approver.ID, nil)
			require.NoError(t, err)
			assert.True(t, changed)

			changed, err = repo.UpdateStatusIf(ctx, workflow.ID,
				models.WorkflowStatusPending, models.WorkflowStatusRejected, &approver.ID, nil)
			require.NoError(t, err)
			assert.False(t, changed)

			got, err := repo.ByID(ctx, workflow.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, models.WorkflowStatusApproved, got.Status)
			require.NotNil(t, got.DecidedBy)
			assert.Equal(t, approver.ID, *got.DecidedBy)
		})

		t.Run("ListPendingByApprover", func(t *testing.T) {
			workflow := newWorkflow(t)

			pending, err := repo.ListPendingByApprover(ctx, approver.ID, 10, 0)
			require.NoError(t, err)

			found := false
			for _, w := range pending {
				if w.ID == workflow.ID {
					found = true
				}
				assert.Equal(t, models.WorkflowStatusPending, w.Status)
			}
			assert.True(t, found)
		})

		t.Run("ListPendingAutoApprovable", func(t *testing.T) {
			campaign, err := fixtures.CreateTestCampaign(creator.ID, []uint{creator.ID})
			require.NoError(t, err)

			hours := 1
			workflow := &models.ApprovalWorkflow{
				CampaignID:            campaign.ID,
				Status:                models.WorkflowStatusPending,
				RequestedBy:           creator.ID,
				RequestedAt:           utils.UTCNowAdd(-2 * time.Hour),
				CurrentStep:           1,
				TotalSteps:            1,
				MinApprovers:          1,
				AutoApproveAfterHours: &hours,
				Approvers: []models.WorkflowApprover{
					{UserID: approver.ID, StepOrder: 1, Status: models.ApproverStatusPending},
				},
			}
			require.NoError(t, repo.Save(ctx, workflow))

			due, err := repo.ListPendingAutoApprovable(ctx, utils.UTCNow(), 10)
			require.NoError(t, err)

			found := false
			for _, w := range due {
				if w.ID == workflow.ID {
					found = true
				}
			}
			assert.True(t, found)
		})

	})
}

func TestMeetingRepository(t *testing.T) {
	withTestDB(t, func(testDB *testingutil.TestDB) {
		repo := repository.NewMeetingRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		organizer, err := fixtures.CreateTestUser(utils.LevelManager)
		require.NoError(t, err)
		alice, err := fixtures.CreateTestUser(utils.LevelAnalyst)
		require.NoError(t, err)
		bob, err := fixtures.CreateTestUser(utils.LevelAnalyst)
		require.NoError(t, err)

		date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

		existing, err := fixtures.CreateTestMeeting(organizer.ID, date, "09:00", "10:00", []uint{alice.ID})
		require.NoError(t, err)

		t.Run("FindOverlappingDetectsOverlap", func(t *testing.T) {
			conflicts, err := repo.FindOverlapping(ctx, date, "09:30", "11:00", []uint{alice.ID, bob.ID}, 0)
			require.NoError(t, err)
			require.Len(t, conflicts, 1)
			assert.Equal(t, alice.ID, conflicts[0].UserID)
			assert.Equal(t, existing.ID, conflicts[0].MeetingID)
		})

		t.Run("AdjacentSlotsDoNotOverlap", func(t *testing.T) {
			conflicts, err := repo.FindOverlapping(ctx, date, "10:00", "11:00", []uint{alice.ID}, 0)
			require.NoError(t, err)
			assert.Empty(t, conflicts)
		})

		t.Run("DifferentDayDoesNotOverlap", func(t *testing.T) {
			otherDay := date.AddDate(0, 0, 1)
			conflicts, err := repo.FindOverlapping(ctx, otherDay, "09:00", "10:00", []uint{alice.ID}, 0)
			require.NoError(t, err)
			assert.Empty(t, conflicts)
		})

		t.Run("ExcludedMeetingIsIgnored", func(t *testing.T) {
			conflicts, err := repo.FindOverlapping(ctx, date, "09:00", "10:00", []uint{alice.ID}, existing.ID)
			require.NoError(t, err)
			assert.Empty(t, conflicts)
		})

		t.Run("SaveWithParticipants", func(t *testing.T) {
			meeting := &models.Meeting{
				Title:     "Planning session",
				Date:      date,
				StartTime: "14:00",
				EndTime:   "15:00",
				Kind:      models.MeetingKindOnline,
				CreatedBy: organizer.ID,
				Participants: []models.MeetingParticipant{
					{UserID: alice.ID},
					{UserID: bob.ID},
				},
			}
			require.NoError(t, repo.SaveWithParticipants(ctx, meeting))
			require.NotZero(t, meeting.ID)

			got, err := repo.ByID(ctx, meeting.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Len(t, got.Participants, 2)
		})

		t.Run("FailedParticipantInsertLeavesNoMeeting", func(t *testing.T) {
			// The second participant references a user that does not exist,
			// so the insert fails and the whole save must roll back
			meeting := &models.Meeting{
				Title:     "Doomed meeting",
				Date:      date,
				StartTime: "16:00",
				EndTime:   "17:00",
				Kind:      models.MeetingKindOnline,
				CreatedBy: organizer.ID,
				Participants: []models.MeetingParticipant{
					{UserID: alice.ID},
					{UserID: 999999},
				},
			}
			require.Error(t, repo.SaveWithParticipants(ctx, meeting))

			var count int64
			require.NoError(t, testDB.DB.Model(&models.Meeting{}).
				Where("title = ?", "Doomed meeting").
				Count(&count).Error)
			assert.Zero(t, count)
		})

	})
}
