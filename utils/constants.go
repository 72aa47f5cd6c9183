package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Hierarchy levels of the corporate directory (1 is the most senior)
const (
	LevelCEO       = 1
	LevelDirector  = 2
	LevelManager   = 3
	LevelAnalyst   = 4
	LevelAssistant = 5

	// AdminMaxLevel is the highest (numerically) level allowed on the admin surface
	AdminMaxLevel = LevelDirector
)

// Notification delivery channels
const (
	ChannelBrowser = "browser"
	ChannelEmail   = "email"
	ChannelSMS     = "sms"
)

// Redis pub/sub channels for real-time event fan-out
const (
	EventChannelNotifications = "events:notifications"
	EventChannelCampaigns     = "events:campaigns"
	EventChannelMeetings      = "events:meetings"
)
