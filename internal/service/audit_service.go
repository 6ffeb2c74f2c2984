package service

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/go-demo/roomchat/internal/chat"
	"github.com/go-demo/roomchat/internal/model"
)

const (
	defaultAuditBuffer = 256
	auditBatchSize     = 64
	auditFlushInterval = 2 * time.Second
	auditWriteTimeout  = 5 * time.Second
)

// ModerationEventStore persists audit events.
type ModerationEventStore interface {
	CreateBatch(ctx context.Context, events []*model.ModerationEvent) error
}

// AuditService is a chat.AuditSink that writes moderation events to a
// store from a background worker. Record never blocks: when the buffer is
// full the event is dropped and counted.
type AuditService struct {
	store   ModerationEventStore
	queue   chan chat.AuditEntry
	dropped atomic.Int64
	written atomic.Int64
	logger  *zap.Logger
}

func NewAuditService(store ModerationEventStore, buffer int, logger *zap.Logger) *AuditService {
	if buffer <= 0 {
		buffer = defaultAuditBuffer
	}
	return &AuditService{
		store:  store,
		queue:  make(chan chat.AuditEntry, buffer),
		logger: logger,
	}
}

// Record implements chat.AuditSink.
func (s *AuditService) Record(entry chat.AuditEntry) {
	select {
	case s.queue <- entry:
	default:
		s.dropped.Add(1)
	}
}

// Run writes queued events in batches until ctx is cancelled, then flushes
// whatever is still queued.
func (s *AuditService) Run(ctx context.Context) {
	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	batch := make([]*model.ModerationEvent, 0, auditBatchSize)
	for {
		select {
		case entry := <-s.queue:
			batch = append(batch, toModerationEvent(entry))
			if len(batch) >= auditBatchSize {
				batch = s.flush(batch)
			}

		case <-ticker.C:
			batch = s.flush(batch)

		case <-ctx.Done():
			for {
				select {
				case entry := <-s.queue:
					batch = append(batch, toModerationEvent(entry))
				default:
					s.flush(batch)
					return
				}
			}
		}
	}
}

// Stats reports written and dropped event counts.
func (s *AuditService) Stats() (written, dropped int64) {
	return s.written.Load(), s.dropped.Load()
}

func (s *AuditService) flush(batch []*model.ModerationEvent) []*model.ModerationEvent {
	if len(batch) == 0 {
		return batch
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := s.store.CreateBatch(ctx, batch); err != nil {
		s.dropped.Add(int64(len(batch)))
		s.logger.Error("Failed to write moderation events",
			zap.Int("count", len(batch)),
			zap.Error(err),
		)
	} else {
		s.written.Add(int64(len(batch)))
	}

	return make([]*model.ModerationEvent, 0, auditBatchSize)
}

func toModerationEvent(entry chat.AuditEntry) *model.ModerationEvent {
	return &model.ModerationEvent{
		RoomID:    entry.RoomID,
		ActorID:   model.NullString(entry.ActorID),
		Target:    model.NullString(entry.Target),
		Action:    string(entry.Action),
		Detail:    model.NullString(entry.Detail),
		CreatedAt: entry.CreatedAt,
	}
}
