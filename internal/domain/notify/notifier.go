// Package notify defines the notification contract.
// Implementations live in the infrastructure layer.
package notify

import "context"

// Kind identifies the notification template.
type Kind string

const (
	KindTransferRequested Kind = "transfer_requested"
	KindTransferApproved  Kind = "transfer_approved"
	KindTransferRejected  Kind = "transfer_rejected"
	KindTransferConfirmed Kind = "transfer_confirmed"
)

// Message is a notification to deliver.
type Message struct {
	Kind      Kind           `json:"kind"`
	Recipient string         `json:"recipient"` // user ID or email
	Subject   string         `json:"subject"`
	Data      map[string]any `json:"data,omitempty"`
}

// Notifier delivers notifications.
//
// Delivery is strictly best-effort: callers log a failed Send and continue,
// a notification failure never fails the business operation that raised it.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Noop discards all notifications. Used in tests and when mail is not configured.
type Noop struct{}

func (Noop) Send(ctx context.Context, msg Message) error { return nil }
