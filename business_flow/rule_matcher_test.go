package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/utils"
)

func intPtr(n int) *int { return &n }

func TestRuleMatches(t *testing.T) {
	attrs := CampaignAttributes{
		Kind:         "message",
		TargetCount:  120,
		Priority:     "high",
		Channels:     []string{utils.ChannelBrowser, utils.ChannelEmail},
		CreatorLevel: utils.LevelManager,
	}

	t.Run("EmptyConditionsMatchEverything", func(t *testing.T) {
		rule := &models.ApprovalRule{IsActive: true}
		assert.True(t, RuleMatches(rule, attrs))
	})

	t.Run("AllConditionsSatisfied", func(t *testing.T) {
		rule := &models.ApprovalRule{
			Conditions: models.RuleConditions{
				CampaignKinds: []string{"message", "system"},
				MinTargets:    intPtr(100),
				MaxTargets:    intPtr(500),
				Priorities:    []string{"high", "urgent"},
				Channels:      []string{utils.ChannelEmail},
				CreatorLevels: []int{utils.LevelManager, utils.LevelAnalyst},
			},
		}
		assert.True(t, RuleMatches(rule, attrs))
	})

	t.Run("KindMismatch", func(t *testing.T) {
		rule := &models.ApprovalRule{
			Conditions: models.RuleConditions{CampaignKinds: []string{"reminder"}},
		}
		assert.False(t, RuleMatches(rule, attrs))
	})

	t.Run("TargetCountBelowMinimum", func(t *testing.T) {
		rule := &models.ApprovalRule{
			Conditions: models.RuleConditions{MinTargets: intPtr(200)},
		}
		assert.False(t, RuleMatches(rule, attrs))
	})

	t.Run("TargetCountAboveMaximum", func(t *testing.T) {
		rule := &models.ApprovalRule{
			Conditions: models.RuleConditions{MaxTargets: intPtr(100)},
		}
		assert.False(t, RuleMatches(rule, attrs))
	})

	t.Run("TargetCountAtBoundary", func(t *testing.T) {
		rule := &models.ApprovalRule{
			Conditions: models.RuleConditions{MinTargets: intPtr(120), MaxTargets: intPtr(120)},
		}
		assert.True(t, RuleMatches(rule, attrs))
	})

	t.Run("PriorityMismatch", func(t *testing.T) {
		rule := &models.ApprovalRule{
			Conditions: models.RuleConditions{Priorities: []string{"low"}},
		}
		assert.False(t, RuleMatches(rule, attrs))
	})

	t.Run("ChannelsMatchOnAnyOverlap", func(t *testing.T) {
		rule := &models.ApprovalRule{
			Conditions: models.RuleConditions{Channels: []string{utils.ChannelSMS, utils.ChannelEmail}},
		}
		assert.True(t, RuleMatches(rule, attrs))
	})

	t.Run("ChannelsNoOverlap", func(t *testing.T) {
		rule := &models.ApprovalRule{
			Conditions: models.RuleConditions{Channels: []string{utils.ChannelSMS}},
		}
		assert.False(t, RuleMatches(rule, attrs))
	})

	t.Run("CreatorLevelMismatch", func(t *testing.T) {
		rule := &models.ApprovalRule{
			Conditions: models.RuleConditions{CreatorLevels: []int{utils.LevelAssistant}},
		}
		assert.False(t, RuleMatches(rule, attrs))
	})
}

func TestMatchRules(t *testing.T) {
	attrs := CampaignAttributes{
		Kind:         "message",
		TargetCount:  50,
		Priority:     "medium",
		Channels:     []string{utils.ChannelBrowser},
		CreatorLevel: utils.LevelAnalyst,
	}

	t.Run("NoRulesMeansNoApproval", func(t *testing.T) {
		assert.Nil(t, MatchRules(nil, attrs))
	})

	t.Run("NoMatchMeansNoApproval", func(t *testing.T) {
		rules := []*models.ApprovalRule{
			{
				ID:         1,
				IsActive:   true,
				Conditions: models.RuleConditions{Priorities: []string{"urgent"}},
			},
		}
		assert.Nil(t, MatchRules(rules, attrs))
	})

	t.Run("InactiveRulesAreSkipped", func(t *testing.T) {
		rules := []*models.ApprovalRule{
			{ID: 1, IsActive: false},
		}
		assert.Nil(t, MatchRules(rules, attrs))
	})

	t.Run("SingleMatchDefaults", func(t *testing.T) {
		rules := []*models.ApprovalRule{
			{
				ID:        7,
				IsActive:  true,
				Approvers: models.RuleApprovers{Levels: []int{utils.LevelDirector}},
			},
		}
		req := MatchRules(rules, attrs)
		require.NotNil(t, req)
		assert.Equal(t, []uint{7}, req.MatchedRuleIDs)
		assert.Equal(t, []int{utils.LevelDirector}, req.ApproverLevels)
		assert.Equal(t, 1, req.MinApprovers)
		assert.False(t, req.RequireAll)
		assert.False(t, req.RequireSequential)
		// zero-value settings forbid self-approval
		assert.False(t, req.AllowSelfApproval)
		assert.Nil(t, req.AutoApproveAfterHours)
	})

	t.Run("MergeIsMostRestrictive", func(t *testing.T) {
		rules := []*models.ApprovalRule{
			{
				ID:       1,
				IsActive: true,
				Approvers: models.RuleApprovers{
					UserIDs:      []uint{42, 17},
					MinApprovers: 2,
				},
				Settings: models.RuleSettings{
					AllowSelfApproval:     true,
					AutoApproveAfterHours: intPtr(24),
				},
			},
			{
				ID:       2,
				IsActive: true,
				Approvers: models.RuleApprovers{
					UserIDs:    []uint{42},
					Levels:     []int{utils.LevelCEO, utils.LevelDirector},
					RequireAll: true,
				},
				Settings: models.RuleSettings{
					RequireSequential:     true,
					AutoApproveAfterHours: intPtr(48),
				},
			},
		}

		req := MatchRules(rules, attrs)
		require.NotNil(t, req)
		assert.Equal(t, []uint{1, 2}, req.MatchedRuleIDs)
		assert.Equal(t, []uint{17, 42}, req.ApproverUserIDs)
		assert.Equal(t, []int{utils.LevelCEO, utils.LevelDirector}, req.ApproverLevels)
		assert.Equal(t, 2, req.MinApprovers)
		assert.True(t, req.RequireAll)
		assert.True(t, req.RequireSequential)
		// Second rule leaves AllowSelfApproval at its zero value, so the
		// merge forbids self-approval
		assert.False(t, req.AllowSelfApproval)
		require.NotNil(t, req.AutoApproveAfterHours)
		assert.Equal(t, 48, *req.AutoApproveAfterHours)
	})

	t.Run("MinApproversTakesMaximum", func(t *testing.T) {
		rules := []*models.ApprovalRule{
			{
				ID:        1,
				IsActive:  true,
				Approvers: models.RuleApprovers{MinApprovers: 3},
				Settings:  models.RuleSettings{AllowSelfApproval: true},
			},
			{
				ID:        2,
				IsActive:  true,
				Approvers: models.RuleApprovers{MinApprovers: 1},
				Settings:  models.RuleSettings{AllowSelfApproval: true},
			},
		}

		req := MatchRules(rules, attrs)
		require.NotNil(t, req)
		assert.Equal(t, 3, req.MinApprovers)
		assert.True(t, req.AllowSelfApproval)
	})
}
