package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"inventra/internal/core/id"
	"inventra/internal/core/tenant"
	"inventra/pkg/logger"
)

// OutboxStatus is the delivery state of an outbox row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// maxAttempts is how many delivery failures a row survives before it
// is marked failed and eligible for the dead letter table.
const maxAttempts = 5

// OutboxMessage is one row of the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	TenantID      string       `db:"tenant_id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// DomainEvent is what services hand to the publisher. Payload is
// marshalled to JSON on insert.
type DomainEvent struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// OutboxPublisher appends events to the outbox inside the caller's
// transaction, so the event commits or rolls back with the change
// that produced it.
type OutboxPublisher struct {
	txManager *TxManager
}

func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

const insertOutboxSQL = `
	INSERT INTO sys_outbox (id, tenant_id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Publish stores one event. The context must carry an open transaction.
func (p *OutboxPublisher) Publish(ctx context.Context, event DomainEvent) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = tx.Exec(ctx, insertOutboxSQL,
		id.New(), tenant.MustGetTenantID(ctx),
		event.AggregateType, event.AggregateID, event.EventType,
		payload, OutboxStatusPending, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// OutboxHandler delivers a fetched outbox row. A returned error
// schedules a retry.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay drains pending rows in the background worker. It runs
// without tenant context; the tenant travels with each row.
type OutboxRelay struct {
	pool      *pgxpool.Pool
	batchSize int
	handler   OutboxHandler
}

func NewOutboxRelay(pool *pgxpool.Pool, batchSize int, handler OutboxHandler) *OutboxRelay {
	return &OutboxRelay{
		pool:      pool,
		batchSize: batchSize,
		handler:   handler,
	}
}

const fetchPendingSQL = `
	SELECT id, tenant_id, aggregate_type, aggregate_id, event_type, payload, status,
	       retry_count, last_error, next_retry_at, created_at, published_at
	FROM sys_outbox
	WHERE status = $1
	  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
	ORDER BY created_at
	LIMIT $2
	FOR UPDATE SKIP LOCKED`

// ProcessBatch fetches due pending rows and hands each to the handler.
// A row that fails stays in the outbox for a later attempt; delivery
// continues with the rest of the batch. Returns how many rows were
// delivered.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	var messages []*OutboxMessage
	if err := pgxscan.Select(ctx, r.pool, &messages, fetchPendingSQL, OutboxStatusPending, r.batchSize); err != nil {
		return 0, fmt.Errorf("fetch outbox messages: %w", err)
	}

	delivered := 0
	for _, msg := range messages {
		if err := r.deliver(ctx, msg); err != nil {
			logger.Warn(ctx, "outbox delivery failed",
				"message_id", msg.ID,
				"event_type", msg.EventType,
				"attempt", msg.RetryCount+1,
				"error", err,
			)
			continue
		}
		delivered++
	}
	return delivered, nil
}

const markPublishedSQL = `
	UPDATE sys_outbox
	SET status = $1, published_at = $2
	WHERE id = $3`

const recordFailureSQL = `
	UPDATE sys_outbox
	SET retry_count = retry_count + 1,
	    last_error = $1,
	    next_retry_at = $2,
	    status = CASE WHEN retry_count + 1 >= $3 THEN $4 ELSE status END
	WHERE id = $5`

func (r *OutboxRelay) deliver(ctx context.Context, msg *OutboxMessage) error {
	if err := r.handler.Handle(ctx, msg); err != nil {
		// Linear backoff, one extra minute per attempt.
		nextRetry := time.Now().UTC().Add(time.Duration(msg.RetryCount+1) * time.Minute)
		_, updateErr := r.pool.Exec(ctx, recordFailureSQL,
			err.Error(), nextRetry, maxAttempts, OutboxStatusFailed, msg.ID)
		if updateErr != nil {
			return fmt.Errorf("record delivery failure: %w", updateErr)
		}
		return err
	}

	_, err := r.pool.Exec(ctx, markPublishedSQL, OutboxStatusPublished, time.Now().UTC(), msg.ID)
	return err
}

const moveToDLQSQL = `
	WITH moved AS (
		DELETE FROM sys_outbox
		WHERE status = $1 AND retry_count >= $2
		RETURNING *
	)
	INSERT INTO sys_outbox_dlq
	SELECT *, NOW() as failed_at, last_error as failure_reason FROM moved`

// MoveToDLQ shifts rows that exhausted their attempts into the dead
// letter table and reports how many moved.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, moveToDLQSQL, OutboxStatusFailed, maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}
	return result.RowsAffected(), nil
}
