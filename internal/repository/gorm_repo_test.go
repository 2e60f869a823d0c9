package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/joblink/chat-service/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "chat.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.ConversationModel{}, &domain.MessageModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestFindOrCreateIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormConversationRepository(db)
	ctx := context.Background()

	first, err := repo.FindOrCreate(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("first find-or-create: %v", err)
	}

	second, err := repo.FindOrCreate(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatalf("second find-or-create: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("same pair produced two conversations: %s vs %s", first.ID, second.ID)
	}

	// The pair is unordered.
	reversed, err := repo.FindOrCreate(ctx, "bob", "alice", nil)
	if err != nil {
		t.Fatalf("reversed find-or-create: %v", err)
	}
	if reversed.ID != first.ID {
		t.Errorf("reversed pair produced a new conversation: %s vs %s", first.ID, reversed.ID)
	}

	var count int64
	db.Model(&domain.ConversationModel{}).Count(&count)
	if count != 1 {
		t.Errorf("conversation rows = %d, want 1", count)
	}
}

func TestFindOrCreateKeepsJobReference(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormConversationRepository(db)
	ctx := context.Background()

	jobID := "job-42"
	conv, err := repo.FindOrCreate(ctx, "alice", "bob", &jobID)
	if err != nil {
		t.Fatal(err)
	}
	if conv.JobID == nil || *conv.JobID != jobID {
		t.Errorf("job id = %v, want %s", conv.JobID, jobID)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormConversationRepository(db)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("error = %v, want ErrConversationNotFound", err)
	}
}

func TestCreateMessageAdvancesLastMessagePointer(t *testing.T) {
	db := newTestDB(t)
	convRepo := NewGormConversationRepository(db)
	msgRepo := NewGormMessageRepository(db)
	ctx := context.Background()

	conv, err := convRepo.FindOrCreate(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatal(err)
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		Sender:         domain.Identity{ID: "alice", DisplayName: "Alice"},
		Text:           "hello",
		CreatedAt:      time.Now().UTC(),
	}
	if err := msgRepo.Create(ctx, msg); err != nil {
		t.Fatalf("create message: %v", err)
	}
	if msg.ID == "" {
		t.Error("message id not assigned")
	}
	if msg.Seq == 0 {
		t.Error("message seq not assigned")
	}

	got, err := convRepo.GetByID(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastMessageID == nil || *got.LastMessageID != msg.ID {
		t.Errorf("last message id = %v, want %s", got.LastMessageID, msg.ID)
	}
	if got.LastMessageAt == nil || !got.LastMessageAt.Equal(msg.CreatedAt) {
		t.Errorf("last message at = %v, want %v", got.LastMessageAt, msg.CreatedAt)
	}
}

func TestCreateMessageUnknownConversation(t *testing.T) {
	db := newTestDB(t)
	msgRepo := NewGormMessageRepository(db)

	msg := &domain.Message{
		ConversationID: "missing",
		Sender:         domain.Identity{ID: "alice"},
		Text:           "hello",
		CreatedAt:      time.Now().UTC(),
	}
	err := msgRepo.Create(context.Background(), msg)
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("error = %v, want ErrConversationNotFound", err)
	}

	// The transaction must have rolled the insert back.
	var count int64
	db.Model(&domain.MessageModel{}).Count(&count)
	if count != 0 {
		t.Errorf("message rows = %d, want 0", count)
	}
}

func TestListByConversationTotalOrder(t *testing.T) {
	db := newTestDB(t)
	convRepo := NewGormConversationRepository(db)
	msgRepo := NewGormMessageRepository(db)
	ctx := context.Background()

	conv, err := convRepo.FindOrCreate(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Same timestamp on purpose: insertion sequence must break the tie.
	ts := time.Now().UTC().Truncate(time.Second)
	for _, text := range []string{"one", "two", "three"} {
		msg := &domain.Message{
			ConversationID: conv.ID,
			Sender:         domain.Identity{ID: "alice"},
			Text:           text,
			CreatedAt:      ts,
		}
		if err := msgRepo.Create(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := msgRepo.ListByConversation(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	for i, want := range []string{"one", "two", "three"} {
		if msgs[i].Text != want {
			t.Errorf("msgs[%d].Text = %q, want %q", i, msgs[i].Text, want)
		}
	}
}

func TestMarkReadIdempotentAndScoped(t *testing.T) {
	db := newTestDB(t)
	convRepo := NewGormConversationRepository(db)
	msgRepo := NewGormMessageRepository(db)
	ctx := context.Background()

	conv, err := convRepo.FindOrCreate(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, m := range []struct{ sender, text string }{
		{"alice", "hi bob"},
		{"bob", "hi alice"},
		{"alice", "how are you"},
	} {
		msg := &domain.Message{
			ConversationID: conv.ID,
			Sender:         domain.Identity{ID: m.sender},
			Text:           m.text,
			CreatedAt:      time.Now().UTC(),
		}
		if err := msgRepo.Create(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	// Bob reads: only alice's two messages flip.
	n, err := msgRepo.MarkRead(ctx, conv.ID, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("updated = %d, want 2", n)
	}

	msgs, err := msgRepo.ListByConversation(ctx, conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, msg := range msgs {
		wantRead := msg.Sender.ID == "alice"
		if msg.Read != wantRead {
			t.Errorf("message %q read = %v, want %v", msg.Text, msg.Read, wantRead)
		}
		if wantRead && msg.ReadAt == nil {
			t.Errorf("message %q has no read timestamp", msg.Text)
		}
	}

	// Second call with no new messages changes nothing.
	n, err = msgRepo.MarkRead(ctx, conv.ID, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("second mark-read updated = %d, want 0", n)
	}
}

func TestListForParticipantOrdering(t *testing.T) {
	db := newTestDB(t)
	convRepo := NewGormConversationRepository(db)
	msgRepo := NewGormMessageRepository(db)
	ctx := context.Background()

	older, err := convRepo.FindOrCreate(ctx, "alice", "bob", nil)
	if err != nil {
		t.Fatal(err)
	}
	newer, err := convRepo.FindOrCreate(ctx, "alice", "carol", nil)
	if err != nil {
		t.Fatal(err)
	}

	base := time.Now().UTC()
	for _, m := range []struct {
		conv *domain.Conversation
		at   time.Time
	}{
		{older, base.Add(-time.Hour)},
		{newer, base},
	} {
		msg := &domain.Message{
			ConversationID: m.conv.ID,
			Sender:         domain.Identity{ID: "alice"},
			Text:           "ping",
			CreatedAt:      m.at,
		}
		if err := msgRepo.Create(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := convRepo.ListForParticipant(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Fatalf("conversations = %d, want 2", len(convs))
	}
	if convs[0].ID != newer.ID || convs[1].ID != older.ID {
		t.Errorf("order = [%s %s], want newest activity first", convs[0].ID, convs[1].ID)
	}

	// Bob only sees his one conversation.
	bobConvs, err := convRepo.ListForParticipant(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(bobConvs) != 1 || bobConvs[0].ID != older.ID {
		t.Errorf("bob's conversations = %v", bobConvs)
	}
}
