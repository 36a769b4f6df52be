package service

import (
	"context"
)

// JobEvent represents a unit of background work to be processed by the worker
type JobEvent struct {
	RequestID string `json:"request_id,omitempty"` // For distributed tracing
	Job       string `json:"job"`                  // One of the constants.Job* names
	UserID    string `json:"user_id,omitempty"`
	SubID     string `json:"sub_id,omitempty"`
	SiteName  string `json:"site_name,omitempty"`
}

// EventPublisher defines the interface for publishing job events to a message queue
type EventPublisher interface {
	// PublishJobEvent publishes a job event for async processing
	PublishJobEvent(ctx context.Context, event *JobEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
