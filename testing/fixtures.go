package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/orgdesk/orgdesk/models"
	"github.com/orgdesk/orgdesk/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates an active user at the given hierarchy level
func (tf *TestFixtures) CreateTestUser(level int) (*models.User, error) {
	positions := map[int]string{
		utils.LevelCEO:       "Chief Executive Officer",
		utils.LevelDirector:  "Director of Operations",
		utils.LevelManager:   "Team Manager",
		utils.LevelAnalyst:   "Business Analyst",
		utils.LevelAssistant: "Administrative Assistant",
	}
	position, ok := positions[level]
	if !ok {
		position = "Staff"
	}

	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	user := &models.User{
		UUID:           uuid.New(),
		DisplayName:    fmt.Sprintf("Test User %s", randomDigits),
		Email:          fmt.Sprintf("test.user.%d.%s@example.com", level, randomDigits),
		Position:       position,
		HierarchyLevel: level,
		IsActive:       true,
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// CreateTestHierarchy creates one active user per hierarchy level, CEO first
func (tf *TestFixtures) CreateTestHierarchy() ([]*models.User, error) {
	levels := []int{
		utils.LevelCEO,
		utils.LevelDirector,
		utils.LevelManager,
		utils.LevelAnalyst,
		utils.LevelAssistant,
	}

	users := make([]*models.User, 0, len(levels))
	for _, level := range levels {
		user, err := tf.CreateTestUser(level)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, nil
}

// CreateTestTemplate creates an active notification template
func (tf *TestFixtures) CreateTestTemplate(createdBy uint) (*models.NotificationTemplate, error) {
	randomDigits := fmt.Sprintf("%06d", rand.Intn(900000)+100000)

	template := &models.NotificationTemplate{
		UUID:      uuid.New(),
		Name:      fmt.Sprintf("Test Template %s", randomDigits),
		Kind:      models.NotificationKindMessage,
		Title:     "Hello {name}",
		Message:   "This is a test announcement for {position}.",
		Priority:  models.PriorityMedium,
		Channels:  pq.StringArray{utils.ChannelBrowser, utils.ChannelEmail},
		IsActive:  true,
		CreatedBy: createdBy,
	}

	if err := tf.DB.DB.Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to create test template: %w", err)
	}

	return template, nil
}

// CreateTestCampaign creates a draft campaign with custom content targeting
// the given users
func (tf *TestFixtures) CreateTestCampaign(createdBy uint, targetIDs []uint) (*models.Campaign, error) {
	randomDigits := fmt.Sprintf("%06d", rand.Intn(900000)+100000)

	targets := make(pq.Int64Array, 0, len(targetIDs))
	for _, id := range targetIDs {
		targets = append(targets, int64(id))
	}

	campaign := &models.Campaign{
		UUID:          uuid.New(),
		Name:          fmt.Sprintf("Test Campaign %s", randomDigits),
		Description:   "Created by test fixtures",
		CustomTitle:   "Quarterly update",
		CustomMessage: "Please review the quarterly figures.",
		TargetUserIDs: targets,
		Priority:      models.PriorityMedium,
		Channels:      pq.StringArray{utils.ChannelBrowser},
		Status:        models.CampaignStatusDraft,
		CreatedBy:     createdBy,
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	return campaign, nil
}

// CreateTestRule creates an active approval rule. Empty conditions match every
// campaign, which keeps most tests simple; pass conditions to narrow it.
func (tf *TestFixtures) CreateTestRule(createdBy uint, conditions models.RuleConditions, approvers models.RuleApprovers, settings models.RuleSettings) (*models.ApprovalRule, error) {
	randomDigits := fmt.Sprintf("%06d", rand.Intn(900000)+100000)

	rule := &models.ApprovalRule{
		UUID:        uuid.New(),
		Name:        fmt.Sprintf("Test Rule %s", randomDigits),
		Description: "Created by test fixtures",
		Conditions:  conditions,
		Approvers:   approvers,
		Settings:    settings,
		IsActive:    true,
		CreatedBy:   createdBy,
	}

	if err := tf.DB.DB.Create(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to create test rule: %w", err)
	}

	return rule, nil
}

// CreateTestMeeting creates a meeting on the given date with the given
// participants. Times use the HH:MM wall-clock format the scheduler stores.
func (tf *TestFixtures) CreateTestMeeting(createdBy uint, date time.Time, startTime, endTime string, participantIDs []uint) (*models.Meeting, error) {
	randomDigits := fmt.Sprintf("%06d", rand.Intn(900000)+100000)

	meeting := &models.Meeting{
		UUID:      uuid.New(),
		Title:     fmt.Sprintf("Test Meeting %s", randomDigits),
		Date:      date,
		StartTime: startTime,
		EndTime:   endTime,
		Location:  "Room 101",
		Kind:      models.MeetingKindPresencial,
		Priority:  models.PriorityMedium,
		Agenda:    "Created by test fixtures",
		CreatedBy: createdBy,
	}

	if err := tf.DB.DB.Create(meeting).Error; err != nil {
		return nil, fmt.Errorf("failed to create test meeting: %w", err)
	}

	for _, pid := range participantIDs {
		participant := &models.MeetingParticipant{
			MeetingID: meeting.ID,
			UserID:    pid,
		}
		if err := tf.DB.DB.Create(participant).Error; err != nil {
			return nil, fmt.Errorf("failed to create test meeting participant: %w", err)
		}
		meeting.Participants = append(meeting.Participants, *participant)
	}

	return meeting, nil
}
