package repository

import (
	"context"
	"testing"
	"time"

	"github.com/go-demo/roomchat/internal/model"
)

func TestModerationEventRepository_CreateBatch(t *testing.T) {
	db, prefix := SetupIsolatedTestDB(t)
	defer db.Close()
	defer CleanupTestDataByPrefix(t, db, prefix)

	repo := NewModerationEventRepository(db)
	ctx := context.Background()
	roomID := prefix + "_R1"
	base := time.Now().UTC().Truncate(time.Millisecond)

	events := []*model.ModerationEvent{
		{RoomID: roomID, Action: "room_created", Detail: model.NullString("Book Club"), CreatedAt: base},
		{RoomID: roomID, ActorID: model.NullString("conn-a"), Target: model.NullString("bob"), Action: "user_kicked", Detail: model.NullString("spam"), CreatedAt: base.Add(time.Second)},
	}

	if err := repo.CreateBatch(ctx, events); err != nil {
		t.Fatalf("Failed to create events: %v", err)
	}
	for _, e := range events {
		if e.ID == 0 {
			t.Error("Expected ID to be set")
		}
	}

	got, err := repo.ListByRoom(ctx, roomID, 10)
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	if got[0].Action != "user_kicked" || got[0].Target.String != "bob" {
		t.Errorf("Expected newest event first, got %+v", got[0])
	}
	if got[1].ActorID.Valid {
		t.Error("Expected empty actor to be stored as NULL")
	}
}

func TestModerationEventRepository_CreateBatchEmpty(t *testing.T) {
	db, _ := SetupIsolatedTestDB(t)
	defer db.Close()

	if err := NewModerationEventRepository(db).CreateBatch(context.Background(), nil); err != nil {
		t.Errorf("Expected no error for an empty batch, got %v", err)
	}
}

func TestModerationEventRepository_ListLimit(t *testing.T) {
	db, prefix := SetupIsolatedTestDB(t)
	defer db.Close()
	defer CleanupTestDataByPrefix(t, db, prefix)

	repo := NewModerationEventRepository(db)
	ctx := context.Background()
	roomID := prefix + "_R2"

	var events []*model.ModerationEvent
	for i := 0; i < 5; i++ {
		events = append(events, &model.ModerationEvent{
			RoomID:    roomID,
			Action:    "user_warned",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
	}
	if err := repo.CreateBatch(ctx, events); err != nil {
		t.Fatalf("Failed to create events: %v", err)
	}

	got, err := repo.ListByRoom(ctx, roomID, 3)
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 events, got %d", len(got))
	}
}
