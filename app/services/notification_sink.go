package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/streadway/amqp"

	"github.com/orgdesk/orgdesk/models"
)

// DeliveryJob is one per-recipient delivery request handed to the channel workers
type DeliveryJob struct {
	NotificationID uint     `json:"notification_id"`
	CampaignID     *uint    `json:"campaign_id,omitempty"`
	UserID         uint     `json:"user_id"`
	Kind           string   `json:"kind"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
	Priority       string   `json:"priority"`
	Channels       []string `json:"channels"`
}

// NotificationSink hands delivery jobs off to the transport workers.
// Publishing means delivery was attempted, not that it succeeded.
type NotificationSink interface {
	// PublishBatch publishes the jobs and returns the indexes that failed
	PublishBatch(ctx context.Context, jobs []DeliveryJob) []int
	Close() error
}

// NewDeliveryJob builds a job from a stored notification
func NewDeliveryJob(n *models.Notification, channels []string) DeliveryJob {
	return DeliveryJob{
		NotificationID: n.ID,
		CampaignID:     n.CampaignID,
		UserID:         n.UserID,
		Kind:           n.Kind.String(),
		Title:          n.Title,
		Message:        n.Message,
		Priority:       n.Priority.String(),
		Channels:       channels,
	}
}

// AMQPNotificationSink publishes delivery jobs to a RabbitMQ queue
type AMQPNotificationSink struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewAMQPNotificationSink connects to RabbitMQ and declares the delivery queue
func NewAMQPNotificationSink(url, queue string) (*AMQPNotificationSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = channel.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	return &AMQPNotificationSink{
		conn:    conn,
		channel: channel,
		queue:   queue,
	}, nil
}

// PublishBatch publishes each job as its own durable message
func (s *AMQPNotificationSink) PublishBatch(ctx context.Context, jobs []DeliveryJob) []int {
	var failed []int
	for i, job := range jobs {
		select {
		case <-ctx.Done():
			for j := i; j < len(jobs); j++ {
				failed = append(failed, j)
			}
			return failed
		default:
		}

		body, err := json.Marshal(job)
		if err != nil {
			failed = append(failed, i)
			continue
		}

		err = s.channel.Publish("", s.queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
		if err != nil {
			log.Printf("notification sink: publish failed for notification %d: %v", job.NotificationID, err)
			failed = append(failed, i)
		}
	}
	return failed
}

// Close releases the channel and connection
func (s *AMQPNotificationSink) Close() error {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// MockNotificationSink records published jobs in memory. Used in tests and
// when AMQP is disabled.
type MockNotificationSink struct {
	mu        sync.Mutex
	Published []DeliveryJob
	// FailNext marks job indexes (within the next batch) that should fail
	FailNext map[int]bool
}

// NewMockNotificationSink creates an in-memory sink
func NewMockNotificationSink() *MockNotificationSink {
	return &MockNotificationSink{}
}

// PublishBatch records the jobs and reports the configured failures
func (s *MockNotificationSink) PublishBatch(ctx context.Context, jobs []DeliveryJob) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []int
	for i, job := range jobs {
		if s.FailNext[i] {
			failed = append(failed, i)
			continue
		}
		s.Published = append(s.Published, job)
	}
	s.FailNext = nil
	return failed
}

// Close is a no-op for the mock sink
func (s *MockNotificationSink) Close() error {
	return nil
}
