// Package scheduler runs the periodic background work: auto-approving stale
// workflows and delivering scheduled campaigns.
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	businessflow "github.com/orgdesk/orgdesk/business_flow"
	"github.com/orgdesk/orgdesk/repository"
	"github.com/orgdesk/orgdesk/utils"
)

// WorkflowSweeper periodically auto-approves overdue workflows and executes
// campaigns whose scheduled time has arrived
type WorkflowSweeper struct {
	approvalFlow  businessflow.ApprovalFlow
	executionFlow businessflow.ExecutionFlow
	campaignRepo  repository.CampaignRepository
	logger        *log.Logger
	interval      time.Duration
	batchSize     int
}

// NewWorkflowSweeper creates a new sweeper
func NewWorkflowSweeper(
	approvalFlow businessflow.ApprovalFlow,
	executionFlow businessflow.ExecutionFlow,
	campaignRepo repository.CampaignRepository,
	interval time.Duration,
	logDir string,
) *WorkflowSweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	s := &WorkflowSweeper{
		approvalFlow:  approvalFlow,
		executionFlow: executionFlow,
		campaignRepo:  campaignRepo,
		interval:      interval,
		batchSize:     50,
	}
	s.initLogger(logDir)

	return s
}

// initLogger writes to stdout and a size-rotated file
func (s *WorkflowSweeper) initLogger(logDir string) {
	if logDir == "" {
		logDir = "data"
	}
	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "sweeper.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	mw := io.MultiWriter(os.Stdout, rotated)
	s.logger = log.New(mw, "sweeper ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the sweeper loop in a background goroutine and returns a
// stop function
func (s *WorkflowSweeper) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *WorkflowSweeper) runOnce(ctx context.Context) {
	s.autoApprove(ctx)
	s.executeDue(ctx)
}

// autoApprove settles workflows whose auto-approval deadline passed
func (s *WorkflowSweeper) autoApprove(ctx context.Context) {
	approved, err := s.approvalFlow.AutoApproveDue(ctx)
	if err != nil {
		s.logger.Printf("auto-approval sweep failed: %v", err)
		return
	}
	if approved > 0 {
		s.logger.Printf("auto-approved %d workflow(s)", approved)
	}
}

// executeDue delivers campaigns whose scheduled time has arrived. Execution
// claims the campaign first, so a concurrent manual trigger cannot double-send.
func (s *WorkflowSweeper) executeDue(ctx context.Context) {
	due, err := s.campaignRepo.ListDueScheduled(ctx, utils.UTCNow(), s.batchSize)
	if err != nil {
		s.logger.Printf("listing due campaigns failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Printf("found %d due campaign(s)", len(due))

	for _, campaign := range due {
		if ctx.Err() != nil {
			return
		}
		result, err := s.executionFlow.ExecuteCampaign(ctx, campaign.ID)
		if err != nil {
			if businessflow.IsInvalidCampaignState(err) {
				// Claimed by another executor in the meantime
				continue
			}
			s.logger.Printf("executing campaign %d failed: %v", campaign.ID, err)
			continue
		}
		s.logger.Printf("executed campaign %d: sent=%d failed=%d", campaign.ID, result.Stats.Sent, result.Stats.Failed)
	}
}
