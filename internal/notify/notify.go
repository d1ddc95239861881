// Package notify delivers alert and dashboard messages to external surfaces.
package notify

import (
	"context"
	"time"
)

// Status classifies one delivery attempt.
type Status int

const (
	// Delivered means the surface accepted the message.
	Delivered Status = iota
	// RateLimited means the surface throttled the request; RetryAfter is set.
	RateLimited
	// Failed means a permanent failure; the message is dropped.
	Failed
)

func (s Status) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case RateLimited:
		return "rate_limited"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// SendResult is the outcome of one delivery attempt. Err is set only for
// Failed results; RetryAfter only for RateLimited ones.
type SendResult struct {
	Status     Status
	RetryAfter time.Duration
	Err        error
}

// Message is a surface-agnostic rendered notification.
type Message struct {
	Title       string
	Body        string
	Description string
	Color       int
	Fields      []Field
	Timestamp   time.Time
}

// Field is a labeled value in a message.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Notifier sends rendered messages to one delivery surface.
type Notifier interface {
	Name() string
	Send(ctx context.Context, msg Message) SendResult
}

// NoOpNotifier accepts every message without delivering it. Used when no
// surface is configured and in tests.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Name returns the surface name.
func (n *NoOpNotifier) Name() string {
	return "noop"
}

// Send reports success without doing anything.
func (n *NoOpNotifier) Send(ctx context.Context, msg Message) SendResult {
	return SendResult{Status: Delivered}
}
