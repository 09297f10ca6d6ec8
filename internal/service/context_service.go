package service

import (
	"context"

	"github.com/nyayasathi/kanun/internal/model"
	"github.com/nyayasathi/kanun/internal/repo"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// ContextService supplies the bounded conversation window used by the
// context-analysis stages.
type ContextService struct {
	conversations *repo.ConversationRepo
	messages      *repo.MessageRepo
}

func NewContextService(conversations *repo.ConversationRepo, messages *repo.MessageRepo) *ContextService {
	return &ContextService{conversations: conversations, messages: messages}
}

// GetRecentContext returns the newest limit turns of a conversation in
// chronological order. The conversation must belong to userID; on an
// ownership mismatch or any storage error it returns an empty window
// rather than failing the turn, since chat still works without context.
func (s *ContextService) GetRecentContext(ctx context.Context, conversationID, userID string, limit int) []model.Turn {
	if conversationID == "" || limit <= 0 {
		return nil
	}
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil || conv.UserID != userID {
		if err != nil {
			logutil.GetLogger(ctx).Warn("fetch conversation for context failed",
				zap.String("conversation_id", conversationID), zap.Error(err))
		}
		return nil
	}
	msgs, err := s.messages.ListRecent(ctx, conversationID, limit)
	if err != nil {
		logutil.GetLogger(ctx).Warn("fetch recent messages failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return nil
	}
	turns := make([]model.Turn, 0, len(msgs))
	for _, msg := range msgs {
		turns = append(turns, model.Turn{Role: msg.Role, Content: msg.Content})
	}
	return turns
}
