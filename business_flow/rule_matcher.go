package businessflow

import (
	"context"
	"sort"

	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/repository"
)

// CampaignAttributes are the campaign facts rules are evaluated against
type CampaignAttributes struct {
	Kind         string
	TargetCount  int
	Priority     string
	Channels     []string
	CreatorLevel int
}

// ApprovalRequirement is the merged outcome of all matching rules
type ApprovalRequirement struct {
	ApproverUserIDs       []uint
	ApproverLevels        []int
	MinApprovers          int
	RequireAll            bool
	RequireSequential     bool
	AllowSelfApproval     bool
	AutoApproveAfterHours *int
	MatchedRuleIDs        []uint
}

// RuleMatches reports whether one rule applies to the campaign. Every
// populated condition must match; an empty condition is a wildcard.
func RuleMatches(rule *models.ApprovalRule, attrs CampaignAttributes) bool {
	c := rule.Conditions

	if len(c.CampaignKinds) > 0 && !containsString(c.CampaignKinds, attrs.Kind) {
		return false
	}
	if c.MinTargets != nil && attrs.TargetCount < *c.MinTargets {
		return false
	}
	if c.MaxTargets != nil && attrs.TargetCount > *c.MaxTargets {
		return false
	}
	if len(c.Priorities) > 0 && !containsString(c.Priorities, attrs.Priority) {
		return false
	}
	if len(c.Channels) > 0 && !intersects(c.Channels, attrs.Channels) {
		return false
	}
	if len(c.CreatorLevels) > 0 && !containsInt(c.CreatorLevels, attrs.CreatorLevel) {
		return false
	}

	return true
}

// MatchRules evaluates the active rules against the campaign and merges all
// matches into one requirement. Nil means no approval is needed.
//
// Merging is most-restrictive: approver sets union, requireAll and sequential
// stick once any rule demands them, minApprovers takes the maximum,
// self-approval survives only when every matched rule allows it, and the
// auto-approve timeout is the longest one configured.
func MatchRules(rules []*models.ApprovalRule, attrs CampaignAttributes) *ApprovalRequirement {
	var matched []*models.ApprovalRule
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if RuleMatches(rule, attrs) {
			matched = append(matched, rule)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	req := &ApprovalRequirement{
		AllowSelfApproval: true,
		MinApprovers:      1,
	}
	userIDs := map[uint]struct{}{}
	levels := map[int]struct{}{}

	for _, rule := range matched {
		req.MatchedRuleIDs = append(req.MatchedRuleIDs, rule.ID)

		for _, id := range rule.Approvers.UserIDs {
			userIDs[id] = struct{}{}
		}
		for _, lvl := range rule.Approvers.Levels {
			levels[lvl] = struct{}{}
		}
		if rule.Approvers.RequireAll {
			req.RequireAll = true
		}
		if rule.Approvers.MinApprovers > req.MinApprovers {
			req.MinApprovers = rule.Approvers.MinApprovers
		}
		if rule.Settings.RequireSequential {
			req.RequireSequential = true
		}
		if !rule.Settings.AllowSelfApproval {
			req.AllowSelfApproval = false
		}
		if h := rule.Settings.AutoApproveAfterHours; h != nil {
			if req.AutoApproveAfterHours == nil || *h > *req.AutoApproveAfterHours {
				req.AutoApproveAfterHours = h
			}
		}
	}

	for id := range userIDs {
		req.ApproverUserIDs = append(req.ApproverUserIDs, id)
	}
	sort.Slice(req.ApproverUserIDs, func(i, j int) bool { return req.ApproverUserIDs[i] < req.ApproverUserIDs[j] })
	for lvl := range levels {
		req.ApproverLevels = append(req.ApproverLevels, lvl)
	}
	sort.Ints(req.ApproverLevels)

	return req
}

// ResolveApprovers expands the requirement into concrete users, ordered by
// (hierarchy level, id) so sequential workflows walk the chain top-down. The
// creator is dropped unless self-approval survived the merge.
func ResolveApprovers(ctx context.Context, userRepo repository.UserRepository, req *ApprovalRequirement, creatorID uint) ([]*models.User, error) {
	byID := map[uint]*models.User{}

	if len(req.ApproverUserIDs) > 0 {
		users, err := userRepo.ByIDs(ctx, req.ApproverUserIDs)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if u.IsActive {
				byID[u.ID] = u
			}
		}
	}

	if len(req.ApproverLevels) > 0 {
		users, err := userRepo.ByHierarchyLevels(ctx, req.ApproverLevels)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			byID[u.ID] = u
		}
	}

	approvers := make([]*models.User, 0, len(byID))
	for _, u := range byID {
		if u.ID == creatorID && !req.AllowSelfApproval {
			continue
		}
		approvers = append(approvers, u)
	}

	sort.Slice(approvers, func(i, j int) bool {
		if approvers[i].HierarchyLevel != approvers[j].HierarchyLevel {
			return approvers[i].HierarchyLevel < approvers[j].HierarchyLevel
		}
		return approvers[i].ID < approvers[j].ID
	})

	return approvers, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsInt(haystack []int, needle int) bool {
	for _, n := range haystack {
		if n == needle {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, s := range a {
		if containsString(b, s) {
			return true
		}
	}
	return false
}
