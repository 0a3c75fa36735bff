package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/internal/model"
	"lingua_lms_backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&model.User{}, &model.Notebook{}, &model.Source{}, &model.Note{}, &model.ChatMessage{}, &model.GenerationJob{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type stubReplier struct {
	mu      sync.Mutex
	calls   int
	reply   string
	err     error
	done    chan struct{}
}

func (r *stubReplier) ChatReply(ctx context.Context, sessionID, message string, history []WorkflowChatTurn) (string, json.RawMessage, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	defer close(r.done)
	return r.reply, nil, r.err
}

func newChatFixture(t *testing.T, replier ChatReplier) (*ChatService, *model.Notebook, feed.Bus) {
	t.Helper()
	db := testDB(t)
	bus := feed.NewMemoryBus()

	owner := &model.User{Name: "U", Email: "u@example.com", Password: "x", Role: model.Student}
	if err := db.Create(owner).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	nb := &model.Notebook{OwnerID: owner.ID, Week: 1, Title: "W1", Status: model.NotebookCompleted}
	if err := db.Create(nb).Error; err != nil {
		t.Fatalf("seed notebook: %v", err)
	}

	chatRepo := repository.NewChatRepository(db, bus)
	nbRepo := repository.NewNotebookRepository(db, bus)
	svc := NewChatService(chatRepo, nbRepo, bus, NewQueryCache(), replier, zap.NewNop())
	return svc, nb, bus
}

func TestSendMessagePersistsAndReconciles(t *testing.T) {
	replier := &stubReplier{reply: "marhaba", done: make(chan struct{})}
	svc, nb, bus := newChatFixture(t, replier)

	svc.Cache.PutChat(nb.ID, nil, nil)
	unsub, err := bus.Subscribe(context.Background(), svc.Cache.ApplyEvent)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	owner, _ := svc.Notebooks.FindByID(context.Background(), nb.ID)
	msg, err := svc.SendMessage(context.Background(), owner.OwnerID, nb.ID, "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID == 0 || msg.ClientMsgID == "" {
		t.Fatalf("authoritative row incomplete: %+v", msg)
	}

	// The provisional copy and the persisted row collapse into one entry.
	rows, ok := svc.Cache.Get(feed.EntityChat, nb.ID)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one visible message, got %d", len(rows))
	}

	select {
	case <-replier.done:
	case <-time.After(5 * time.Second):
		t.Fatal("AI reply never ran")
	}
	if replier.calls != 1 {
		t.Fatalf("replier called %d times", replier.calls)
	}
}

func TestSendMessageUnknownNotebook(t *testing.T) {
	replier := &stubReplier{done: make(chan struct{})}
	svc, _, _ := newChatFixture(t, replier)

	if _, err := svc.SendMessage(context.Background(), 1, "no-such-notebook", "hi"); err == nil {
		t.Fatal("expected error for unknown notebook")
	}
}

func TestHistoryOrderedAndCached(t *testing.T) {
	svc, nb, _ := newChatFixture(t, nil)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		msg := &model.ChatMessage{SessionID: nb.ID, Author: model.AuthorHuman, Content: content}
		if err := svc.Chat.Append(ctx, msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	rows, err := svc.History(ctx, nb.OwnerID, nb.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(rows))
	}
	var first struct {
		Content string `json:"content"`
	}
	json.Unmarshal(rows[0], &first)
	if first.Content != "one" {
		t.Fatalf("first = %q, want one", first.Content)
	}

	// Second call serves from the warm cache.
	if _, ok := svc.Cache.Get(feed.EntityChat, nb.ID); !ok {
		t.Fatal("expected transcript cached after History")
	}
}
