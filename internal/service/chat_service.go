package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/internal/model"
	"lingua_lms_backend/internal/repository"
	"lingua_lms_backend/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const historyWindow = 20

// ChatReplier produces the AI side of a chat turn.
type ChatReplier interface {
	ChatReply(ctx context.Context, sessionID, message string, history []WorkflowChatTurn) (string, json.RawMessage, error)
}

// ChatService implements the optimistic send protocol: the caller's message
// becomes visible immediately under a provisional client id, the
// authoritative row is persisted with the same client id, and feed
// consumers deduplicate the two so exactly one message stays visible.
type ChatService struct {
	Chat      *repository.ChatRepository
	Notebooks *repository.NotebookRepository
	Bus       feed.Bus
	Cache     *QueryCache
	Replier   ChatReplier
	Log       *zap.Logger
}

func NewChatService(chat *repository.ChatRepository, notebooks *repository.NotebookRepository, bus feed.Bus, cache *QueryCache, replier ChatReplier, log *zap.Logger) *ChatService {
	return &ChatService{
		Chat:      chat,
		Notebooks: notebooks,
		Bus:       bus,
		Cache:     cache,
		Replier:   replier,
		Log:       log,
	}
}

func (s *ChatService) checkOwner(ctx context.Context, ownerID uint, notebookID string) error {
	nb, err := s.Notebooks.FindByID(ctx, notebookID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrNotebookNotFound
	}
	if err != nil {
		return err
	}
	if nb.OwnerID != ownerID {
		return util.ErrNotOwner
	}
	return nil
}

// History returns the notebook's transcript in send order.
func (s *ChatService) History(ctx context.Context, ownerID uint, notebookID string) ([]json.RawMessage, error) {
	if err := s.checkOwner(ctx, ownerID, notebookID); err != nil {
		return nil, err
	}
	if rows, ok := s.Cache.Get(feed.EntityChat, notebookID); ok {
		return rows, nil
	}

	msgs, err := s.Chat.ListBySession(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(msgs))
	rows := make([]json.RawMessage, len(msgs))
	for i := range msgs {
		ids[i] = util.FormatUint(msgs[i].ID)
		data, err := json.Marshal(msgs[i])
		if err != nil {
			return nil, err
		}
		rows[i] = data
	}
	s.Cache.PutChat(notebookID, ids, rows)
	return rows, nil
}

// SendMessage persists the caller's chat turn and kicks off the AI reply.
// The returned message is the authoritative row; the reply arrives later
// through the change feed.
func (s *ChatService) SendMessage(ctx context.Context, ownerID uint, notebookID, content string) (*model.ChatMessage, error) {
	if err := s.checkOwner(ctx, ownerID, notebookID); err != nil {
		return nil, err
	}

	clientMsgID := "temp-" + uuid.New().String()

	// Provisional copy, visible to subscribers before the row exists.
	provisional := map[string]interface{}{
		"clientMsgId": clientMsgID,
		"sessionId":   notebookID,
		"author":      model.AuthorHuman,
		"content":     content,
		"createdAt":   time.Now().Format(time.RFC3339Nano),
	}
	if err := s.Bus.Publish(ctx, feed.NewEvent(feed.EntityChat, feed.ActionInsert, notebookID, clientMsgID, provisional)); err != nil {
		s.Log.Warn("publish provisional chat message", zap.Error(err))
	}

	msg := &model.ChatMessage{
		SessionID:   notebookID,
		Author:      model.AuthorHuman,
		Content:     content,
		ClientMsgID: clientMsgID,
	}
	if err := s.Chat.Append(ctx, msg); err != nil {
		// Retract the provisional copy so a failed send leaves nothing
		// behind.
		_ = s.Bus.Publish(ctx, feed.NewEvent(feed.EntityChat, feed.ActionDelete, notebookID, clientMsgID, nil))
		return nil, err
	}

	go s.reply(notebookID, content)

	return msg, nil
}

// reply runs the workflow turn outside the request so a slow engine never
// blocks the send. Failures are logged; the transcript simply gains no AI
// row and the caller may resend.
func (s *ChatService) reply(notebookID, content string) {
	if s.Replier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	history, err := s.historyTurns(ctx, notebookID)
	if err != nil {
		s.Log.Error("load chat history for reply", zap.Error(err), zap.String("notebookId", notebookID))
		return
	}

	replyText, segments, err := s.Replier.ChatReply(ctx, notebookID, content, history)
	if err != nil {
		s.Log.Error("workflow chat reply failed", zap.Error(err), zap.String("notebookId", notebookID))
		return
	}

	aiMsg := &model.ChatMessage{
		SessionID: notebookID,
		Author:    model.AuthorAI,
		Content:   replyText,
		Segments:  string(segments),
	}
	if err := s.Chat.Append(ctx, aiMsg); err != nil {
		s.Log.Error("persist AI reply", zap.Error(err), zap.String("notebookId", notebookID))
	}
}

func (s *ChatService) historyTurns(ctx context.Context, notebookID string) ([]WorkflowChatTurn, error) {
	msgs, err := s.Chat.ListBySession(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	if len(msgs) > historyWindow {
		msgs = msgs[len(msgs)-historyWindow:]
	}
	turns := make([]WorkflowChatTurn, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Author == model.AuthorAI {
			role = "assistant"
		}
		turns = append(turns, WorkflowChatTurn{Role: role, Content: m.Content})
	}
	return turns, nil
}
