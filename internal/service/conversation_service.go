package service

import (
	"context"
	"strings"
	"time"

	"github.com/nyayasathi/kanun/internal/model"
	appErr "github.com/nyayasathi/kanun/internal/pkg/errors"
)

// ConversationRepository is the conversation persistence surface the
// management API needs.
type ConversationRepository interface {
	Create(ctx context.Context, conv *model.Conversation) error
	Get(ctx context.Context, conversationID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Conversation, error)
	UpdateTitle(ctx context.Context, conversationID string, title string, mtime int64) error
	Delete(ctx context.Context, conversationID string) error
}

// MessageRepository reads the turns of a conversation.
type MessageRepository interface {
	List(ctx context.Context, conversationID string) ([]*model.Message, error)
	CountByConversation(ctx context.Context, conversationID string) (int64, error)
}

type ConversationService struct {
	conversations ConversationRepository
	messages      MessageRepository
}

func NewConversationService(conversations ConversationRepository, messages MessageRepository) *ConversationService {
	return &ConversationService{conversations: conversations, messages: messages}
}

func (s *ConversationService) Create(ctx context.Context, userID, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New Conversation"
	}
	now := time.Now().Unix()
	conv := &model.Conversation{
		ID:     newID(),
		UserID: userID,
		Title:  title,
		Ctime:  now,
		Mtime:  now,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// List returns the user's conversations, most recently active first,
// each with its message count for the sidebar view.
func (s *ConversationService) List(ctx context.Context, userID string) ([]*model.ConversationSummary, error) {
	convs, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]*model.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		count, err := s.messages.CountByConversation(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &model.ConversationSummary{
			Conversation: *conv,
			MessageCount: count,
		})
	}
	return summaries, nil
}

func (s *ConversationService) getOwned(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, appErr.ErrForbidden
	}
	return conv, nil
}

func (s *ConversationService) GetMessages(ctx context.Context, userID, conversationID string) ([]*model.Message, error) {
	if _, err := s.getOwned(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.messages.List(ctx, conversationID)
}

func (s *ConversationService) Rename(ctx context.Context, userID, conversationID, title string) error {
	if _, err := s.getOwned(ctx, userID, conversationID); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return appErr.ErrInvalid
	}
	return s.conversations.UpdateTitle(ctx, conversationID, title, time.Now().Unix())
}

func (s *ConversationService) Delete(ctx context.Context, userID, conversationID string) error {
	if _, err := s.getOwned(ctx, userID, conversationID); err != nil {
		return err
	}
	return s.conversations.Delete(ctx, conversationID)
}
