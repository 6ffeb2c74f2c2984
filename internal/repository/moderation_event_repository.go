package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/go-demo/roomchat/internal/model"
)

const moderationEventsSchema = `
	CREATE TABLE IF NOT EXISTS moderation_events (
		id         BIGSERIAL PRIMARY KEY,
		room_id    VARCHAR(32)  NOT NULL,
		actor_id   VARCHAR(64),
		target     VARCHAR(64),
		action     VARCHAR(32)  NOT NULL,
		detail     TEXT,
		created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_moderation_events_room_created
		ON moderation_events (room_id, created_at);`

type ModerationEventRepository struct {
	db *sqlx.DB
}

func NewModerationEventRepository(db *sqlx.DB) *ModerationEventRepository {
	return &ModerationEventRepository{db: db}
}

// Migrate creates the audit table if it does not exist
func (r *ModerationEventRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, moderationEventsSchema); err != nil {
		return fmt.Errorf("failed to migrate moderation_events: %w", err)
	}
	return nil
}

// CreateBatch inserts events in one transaction and fills in their IDs
func (r *ModerationEventRepository) CreateBatch(ctx context.Context, events []*model.ModerationEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO moderation_events (room_id, actor_id, target, action, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if err := stmt.QueryRowxContext(ctx,
			e.RoomID,
			e.ActorID,
			e.Target,
			e.Action,
			e.Detail,
			e.CreatedAt,
		).Scan(&e.ID); err != nil {
			return fmt.Errorf("failed to insert moderation event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit moderation events: %w", err)
	}
	return nil
}

// ListByRoom returns the most recent events of a room, newest first
func (r *ModerationEventRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]*model.ModerationEvent, error) {
	var events []*model.ModerationEvent
	query := `
		SELECT id, room_id, actor_id, target, action, detail, created_at
		FROM moderation_events
		WHERE room_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &events, query, roomID, limit); err != nil {
		return nil, fmt.Errorf("failed to list moderation events: %w", err)
	}
	return events, nil
}
