package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"inventra/internal/core/id"
	"inventra/internal/core/tenant"
	"inventra/internal/domain/notify"
	"inventra/internal/infrastructure/storage/postgres"
	"inventra/pkg/logger"
)

// notificationAggregate marks outbox rows carrying notify.Message payloads.
const notificationAggregate = "Notification"

// OutboxNotifier stores notifications in the transactional outbox instead of
// delivering them inline. The worker's relay picks them up and hands them to
// a Handler, so a mail server outage never slows a request down.
type OutboxNotifier struct{}

var _ notify.Notifier = (*OutboxNotifier)(nil)

// NewOutboxNotifier creates an outbox-backed notifier.
func NewOutboxNotifier() *OutboxNotifier {
	return &OutboxNotifier{}
}

// Send enqueues the message. Callers invoke Send after their business
// transaction commits, so the insert runs in a transaction of its own.
func (n *OutboxNotifier) Send(ctx context.Context, msg notify.Message) error {
	txm := postgres.MustGetTxManager(ctx)
	publisher := postgres.NewOutboxPublisher(txm)

	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		return publisher.Publish(ctx, postgres.DomainEvent{
			AggregateType: notificationAggregate,
			AggregateID:   id.New(),
			EventType:     string(msg.Kind),
			Payload:       msg,
		})
	})
}

// Handler delivers queued notifications. It implements postgres.OutboxHandler
// and is driven by the relay in the worker process.
type Handler struct {
	delivery notify.Notifier
}

var _ postgres.OutboxHandler = (*Handler)(nil)

// NewHandler creates a handler that forwards to the given delivery backend.
func NewHandler(delivery notify.Notifier) *Handler {
	return &Handler{delivery: delivery}
}

// Handle processes one outbox row. Rows from other aggregates are
// acknowledged untouched so the relay can share one outbox table.
func (h *Handler) Handle(ctx context.Context, row *postgres.OutboxMessage) error {
	if row.AggregateType != notificationAggregate {
		logger.Debug(ctx, "outbox message skipped",
			"aggregate_type", row.AggregateType,
			"event_type", row.EventType,
		)
		return nil
	}

	var msg notify.Message
	if err := json.Unmarshal(row.Payload, &msg); err != nil {
		return fmt.Errorf("decode notification payload: %w", err)
	}

	// Restore tenant identity for downstream logging.
	ctx = tenant.WithTenant(ctx, &tenant.Tenant{ID: row.TenantID})

	if err := h.delivery.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver notification %s: %w", row.ID, err)
	}
	return nil
}
