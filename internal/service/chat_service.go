package service

import (
	"context"
	"strings"
	"time"

	"github.com/nyayasathi/kanun/internal/model"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Explainer is the retrieval-augmented generation stage.
type Explainer interface {
	GetExplanation(ctx context.Context, query string) (*model.Explanation, error)
}

// Analyzer covers the LLM-backed context decisions of a chat turn.
type Analyzer interface {
	IsNonLegalQuery(ctx context.Context, message string) bool
	IsIndependentQuery(ctx context.Context, message string, history []model.Turn) bool
	SummarizeConversation(ctx context.Context, message string, history []model.Turn) string
	DetectLetterOpportunity(ctx context.Context, query string, nextSteps string) *model.SuggestedAction
}

// ContextProvider supplies the bounded conversation window.
type ContextProvider interface {
	GetRecentContext(ctx context.Context, conversationID, userID string, limit int) []model.Turn
}

// ConversationStore is the slice of the conversation repo the orchestrator
// needs for ownership checks and activity timestamps.
type ConversationStore interface {
	Get(ctx context.Context, conversationID string) (*model.Conversation, error)
	Touch(ctx context.Context, conversationID string, mtime int64) error
}

// TurnStore persists a completed question-answer pair.
type TurnStore interface {
	CreatePair(ctx context.Context, userMsg *model.Message, assistantMsg *model.Message) error
}

// ChatService drives one chat turn through classification, independence
// analysis, summarization, retrieval and generation. Each turn is a
// single request-response unit; the only cross-turn state is the
// persisted history.
type ChatService struct {
	analyzer      Analyzer
	rag           Explainer
	contexts      ContextProvider
	conversations ConversationStore
	messages      TurnStore
	contextWindow int
}

func NewChatService(
	analyzer Analyzer,
	rag Explainer,
	contexts ContextProvider,
	conversations ConversationStore,
	messages TurnStore,
	contextWindow int,
) *ChatService {
	if contextWindow <= 0 {
		contextWindow = 5
	}
	return &ChatService{
		analyzer:      analyzer,
		rag:           rag,
		contexts:      contexts,
		conversations: conversations,
		messages:      messages,
		contextWindow: contextWindow,
	}
}

// turnState names the stages a chat turn passes through. Each state has
// exactly one transition decision, so the non-legal, independent and
// dependent branches all reach turnResponded through an explicit path.
type turnState int

const (
	turnReceived turnState = iota
	turnClassified
	turnAnalyzed
	turnSummarized
	turnAnswering
	turnResponded
)

type chatTurn struct {
	state          turnState
	query          string
	retrievalQuery string
	history        []model.Turn
	contextUsed    bool
	result         *model.ChatResult
}

// Chat processes one turn. Classification failures degrade to the
// configured defaults; retrieval or generation failures abort the turn
// and nothing is persisted.
func (s *ChatService) Chat(ctx context.Context, userID, conversationID, query string) (*model.ChatResult, error) {
	t := &chatTurn{state: turnReceived, query: query, retrievalQuery: query}
	for {
		switch t.state {
		case turnReceived:
			if conversationID != "" {
				t.history = s.contexts.GetRecentContext(ctx, conversationID, userID, s.contextWindow)
			}
			t.state = turnClassified

		case turnClassified:
			if s.analyzer.IsNonLegalQuery(ctx, t.query) {
				logutil.GetLogger(ctx).Info("non-legal query, skipping retrieval")
				t.result = nonLegalResult(t.query)
				t.state = turnResponded
				continue
			}
			t.state = turnAnalyzed

		case turnAnalyzed:
			if len(t.history) > 0 && !s.analyzer.IsIndependentQuery(ctx, t.query, t.history) {
				t.state = turnSummarized
				continue
			}
			t.state = turnAnswering

		case turnSummarized:
			summarized := s.analyzer.SummarizeConversation(ctx, t.query, t.history)
			if summarized != "" && summarized != t.query {
				t.retrievalQuery = summarized
				t.contextUsed = true
			}
			t.state = turnAnswering

		case turnAnswering:
			explanation, err := s.rag.GetExplanation(ctx, t.retrievalQuery)
			if err != nil {
				return nil, err
			}
			t.result = &model.ChatResult{
				Summary:     explanation.Summary,
				KeyPoint:    explanation.KeyPoint,
				Explanation: explanation.Explanation,
				NextSteps:   explanation.NextSteps,
				Sources:     explanation.Sources,
				Query:       t.retrievalQuery,
				ContextUsed: t.contextUsed,
			}
			if t.contextUsed {
				t.result.OriginalQuery = t.query
				t.result.SummarizedQuery = t.retrievalQuery
			}
			t.result.SuggestedAction = s.analyzer.DetectLetterOpportunity(ctx, t.query, explanation.NextSteps)
			t.state = turnResponded

		case turnResponded:
			s.persistTurn(ctx, userID, conversationID, t.query, t.result)
			return t.result, nil
		}
	}
}

// Explain answers a single query without conversation context.
func (s *ChatService) Explain(ctx context.Context, query string) (*model.Explanation, *model.SuggestedAction, error) {
	explanation, err := s.rag.GetExplanation(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	action := s.analyzer.DetectLetterOpportunity(ctx, query, explanation.NextSteps)
	return explanation, action, nil
}

// persistTurn stores the user message and the assistant reply as one
// transactional pair, only after the full response is assembled. The
// conversation must exist and belong to the user; otherwise the turn is
// served but not recorded, matching the fail-soft context read path.
func (s *ChatService) persistTurn(ctx context.Context, userID, conversationID, query string, result *model.ChatResult) {
	if conversationID == "" || s.conversations == nil || s.messages == nil {
		return
	}
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil || conv.UserID != userID {
		logutil.GetLogger(ctx).Warn("skip turn persistence, conversation not owned",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return
	}
	now := time.Now().Unix()
	userMsg := &model.Message{
		ConversationID: conversationID,
		Role:           model.RoleUser,
		Content:        query,
		Ctime:          now,
	}
	assistantMsg := &model.Message{
		ConversationID: conversationID,
		Role:           model.RoleAssistant,
		Content:        result.Explanation,
		Metadata: &model.MessageMetadata{
			Summary:         result.Summary,
			KeyPoint:        result.KeyPoint,
			NextSteps:       result.NextSteps,
			Sources:         result.Sources,
			ContextUsed:     result.ContextUsed,
			IsNonLegal:      result.IsNonLegal,
			OriginalQuery:   result.OriginalQuery,
			SummarizedQuery: result.SummarizedQuery,
		},
		Ctime: now,
	}
	if err := s.messages.CreatePair(ctx, userMsg, assistantMsg); err != nil {
		logutil.GetLogger(ctx).Error("persist chat turn failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return
	}
	if err := s.conversations.Touch(ctx, conversationID, now); err != nil {
		logutil.GetLogger(ctx).Warn("touch conversation failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
	}
}

var (
	greetingWords = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}
	thanksWords   = []string{"thank", "thanks", "appreciate"}
	byeWords      = []string{"bye", "goodbye", "see you"}
)

func nonLegalResult(query string) *model.ChatResult {
	queryLower := strings.ToLower(query)
	var response string
	switch {
	case containsAny(queryLower, greetingWords):
		response = "Hello! I'm here to help you with legal questions. Feel free to ask me anything about laws, regulations, or legal procedures."
	case containsAny(queryLower, thanksWords):
		response = "You're welcome! I'm glad I could help. If you have any more legal questions, feel free to ask."
	case containsAny(queryLower, byeWords):
		response = "Goodbye! Feel free to come back anytime you have legal questions."
	default:
		response = "I'm here to assist you with legal matters. How can I help you today?"
	}
	return &model.ChatResult{
		Summary:     response,
		Explanation: response,
		Query:       query,
		IsNonLegal:  true,
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
