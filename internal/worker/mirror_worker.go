// Package worker replays table append events onto a secondary backend.
package worker

import (
	"context"
	"fmt"
	"time"

	"tracker/internal/amqp"
	"tracker/internal/cache"
	"tracker/internal/log"
	"tracker/internal/tables"
)

const (
	seenCapacity = 1024
	seenTTL      = time.Hour
)

// Consumer delivers TableAppended messages until ctx is done.
type Consumer interface {
	ConsumeTableAppended(ctx context.Context, handler amqp.Handler) error
}

// MirrorWorker appends every announced row batch to the mirror backend.
// Message ids already applied are skipped so a redelivery after a lost ack
// does not duplicate rows.
type MirrorWorker struct {
	mirror tables.Appender
	seen   *cache.LRUCache[struct{}]
	logger *log.Logger
}

func NewMirrorWorker(mirror tables.Appender, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		mirror: mirror,
		seen:   cache.NewLRUCache[struct{}](seenCapacity, seenTTL),
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleTableAppended applies one message. An error makes the consumer
// requeue the delivery.
func (w *MirrorWorker) HandleTableAppended(ctx context.Context, msg *amqp.TableAppendedMessage) error {
	key := msg.ID.String()
	if _, ok := w.seen.Get(key); ok {
		w.logger.DebugContext(ctx, "Skipping already mirrored message",
			log.FieldMessageID, key,
			log.FieldTable, msg.Table)
		return nil
	}

	if err := w.mirror.Append(ctx, msg.Table, msg.Rows); err != nil {
		return fmt.Errorf("mirror %s: %w", msg.Table, err)
	}
	w.seen.Set(key, struct{}{})

	w.logger.InfoContext(ctx, "Mirrored rows",
		log.FieldMessageID, key,
		log.FieldTable, msg.Table,
		log.FieldRows, len(msg.Rows))
	return nil
}

// Run consumes until ctx is cancelled.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer) error {
	err := consumer.ConsumeTableAppended(ctx, w.HandleTableAppended)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// CleanExpired drops stale dedupe entries.
func (w *MirrorWorker) CleanExpired() int {
	n := w.seen.CleanExpired()
	st := w.seen.Stats()
	w.logger.Debug("Dedupe cache cleaned",
		"expired", n,
		"redeliveries_skipped", st.Hits,
		"evictions", st.Evictions)
	return n
}
