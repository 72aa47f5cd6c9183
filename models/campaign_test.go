package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func uintPtr(n uint) *uint { return &n }

func TestCampaignValidateContent(t *testing.T) {
	t.Run("TemplateOnly", func(t *testing.T) {
		c := &Campaign{TemplateID: uintPtr(1)}
		assert.NoError(t, c.ValidateContent())
	})

	t.Run("CustomContentOnly", func(t *testing.T) {
		c := &Campaign{CustomTitle: "Title", CustomMessage: "Body"}
		assert.NoError(t, c.ValidateContent())
	})

	t.Run("BothRejected", func(t *testing.T) {
		c := &Campaign{TemplateID: uintPtr(1), CustomTitle: "Title", CustomMessage: "Body"}
		assert.Error(t, c.ValidateContent())
	})

	t.Run("NeitherRejected", func(t *testing.T) {
		c := &Campaign{}
		assert.Error(t, c.ValidateContent())
	})

	t.Run("PartialCustomContentRejected", func(t *testing.T) {
		c := &Campaign{CustomTitle: "Title"}
		assert.Error(t, c.ValidateContent())

		c = &Campaign{CustomMessage: "Body"}
		assert.Error(t, c.ValidateContent())
	})
}

func TestCampaignCanTransitionTo(t *testing.T) {
	cases := []struct {
		from    CampaignStatus
		to      CampaignStatus
		allowed bool
	}{
		{CampaignStatusDraft, CampaignStatusPendingApproval, true},
		{CampaignStatusDraft, CampaignStatusApproved, true},
		{CampaignStatusDraft, CampaignStatusScheduled, true},
		{CampaignStatusDraft, CampaignStatusCancelled, true},
		{CampaignStatusDraft, CampaignStatusSending, false},
		{CampaignStatusDraft, CampaignStatusCompleted, false},
		{CampaignStatusDraft, CampaignStatusRejected, false},

		{CampaignStatusPendingApproval, CampaignStatusApproved, true},
		{CampaignStatusPendingApproval, CampaignStatusRejected, true},
		{CampaignStatusPendingApproval, CampaignStatusScheduled, true},
		{CampaignStatusPendingApproval, CampaignStatusCancelled, true},
		{CampaignStatusPendingApproval, CampaignStatusSending, false},

		{CampaignStatusApproved, CampaignStatusScheduled, true},
		{CampaignStatusApproved, CampaignStatusSending, true},
		{CampaignStatusApproved, CampaignStatusCancelled, true},
		{CampaignStatusApproved, CampaignStatusCompleted, false},

		{CampaignStatusScheduled, CampaignStatusSending, true},
		{CampaignStatusScheduled, CampaignStatusCancelled, true},
		{CampaignStatusScheduled, CampaignStatusApproved, false},

		{CampaignStatusSending, CampaignStatusCompleted, true},
		{CampaignStatusSending, CampaignStatusCancelled, false},

		{CampaignStatusCompleted, CampaignStatusDraft, false},
		{CampaignStatusRejected, CampaignStatusPendingApproval, false},
		{CampaignStatusCancelled, CampaignStatusDraft, false},
	}

	for _, tc := range cases {
		c := &Campaign{Status: tc.from}
		assert.Equal(t, tc.allowed, c.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestCampaignStatusPredicates(t *testing.T) {
	t.Run("Editable", func(t *testing.T) {
		assert.True(t, (&Campaign{Status: CampaignStatusDraft}).IsEditable())
		assert.True(t, (&Campaign{Status: CampaignStatusPendingApproval}).IsEditable())
		assert.False(t, (&Campaign{Status: CampaignStatusApproved}).IsEditable())
		assert.False(t, (&Campaign{Status: CampaignStatusSending}).IsEditable())
	})

	t.Run("Cancellable", func(t *testing.T) {
		assert.True(t, (&Campaign{Status: CampaignStatusDraft}).IsCancellable())
		assert.True(t, (&Campaign{Status: CampaignStatusPendingApproval}).IsCancellable())
		assert.True(t, (&Campaign{Status: CampaignStatusApproved}).IsCancellable())
		assert.True(t, (&Campaign{Status: CampaignStatusScheduled}).IsCancellable())
		assert.False(t, (&Campaign{Status: CampaignStatusSending}).IsCancellable())
		assert.False(t, (&Campaign{Status: CampaignStatusCompleted}).IsCancellable())
	})

	t.Run("Terminal", func(t *testing.T) {
		assert.True(t, CampaignStatusRejected.IsTerminal())
		assert.True(t, CampaignStatusCompleted.IsTerminal())
		assert.True(t, CampaignStatusCancelled.IsTerminal())
		assert.False(t, CampaignStatusDraft.IsTerminal())
		assert.False(t, CampaignStatusSending.IsTerminal())
	})
}
