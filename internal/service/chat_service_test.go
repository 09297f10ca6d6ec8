package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/nyayasathi/kanun/internal/model"
	appErr "github.com/nyayasathi/kanun/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedAnalyzer struct {
	nonLegal         bool
	independent      bool
	summarized       string
	action           *model.SuggestedAction
	independenceRuns int
	summarizeRuns    int
}

func (s *scriptedAnalyzer) IsNonLegalQuery(ctx context.Context, message string) bool {
	return s.nonLegal
}

func (s *scriptedAnalyzer) IsIndependentQuery(ctx context.Context, message string, history []model.Turn) bool {
	s.independenceRuns++
	return s.independent
}

func (s *scriptedAnalyzer) SummarizeConversation(ctx context.Context, message string, history []model.Turn) string {
	s.summarizeRuns++
	if s.summarized == "" {
		return message
	}
	return s.summarized
}

func (s *scriptedAnalyzer) DetectLetterOpportunity(ctx context.Context, query string, nextSteps string) *model.SuggestedAction {
	return s.action
}

type scriptedExplainer struct {
	explanation *model.Explanation
	err         error
	queries     []string
}

func (s *scriptedExplainer) GetExplanation(ctx context.Context, query string) (*model.Explanation, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	e := *s.explanation
	e.Query = query
	return &e, nil
}

type scriptedContexts struct {
	turns []model.Turn
}

func (s *scriptedContexts) GetRecentContext(ctx context.Context, conversationID, userID string, limit int) []model.Turn {
	return s.turns
}

type fakeConversationStore struct {
	conv    *model.Conversation
	err     error
	touched []string
}

func (f *fakeConversationStore) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.conv, nil
}

func (f *fakeConversationStore) Touch(ctx context.Context, conversationID string, mtime int64) error {
	f.touched = append(f.touched, conversationID)
	return nil
}

type fakeTurnStore struct {
	pairs [][2]*model.Message
}

func (f *fakeTurnStore) CreatePair(ctx context.Context, userMsg *model.Message, assistantMsg *model.Message) error {
	f.pairs = append(f.pairs, [2]*model.Message{userMsg, assistantMsg})
	return nil
}

func legalExplanation() *model.Explanation {
	return &model.Explanation{
		Summary:     "summary",
		KeyPoint:    "key point",
		Explanation: "full explanation",
		NextSteps:   "1. do things",
		Sources:     []model.Source{{File: "constitution.pdf", Section: "Article 11"}},
	}
}

func TestChatNonLegalSkipsRetrieval(t *testing.T) {
	rag := &scriptedExplainer{explanation: legalExplanation()}
	svc := NewChatService(&scriptedAnalyzer{nonLegal: true}, rag, &scriptedContexts{}, nil, nil, 5)

	result, err := svc.Chat(context.Background(), "u1", "", "thanks a lot!")
	require.NoError(t, err)
	assert.True(t, result.IsNonLegal)
	assert.False(t, result.ContextUsed)
	assert.Empty(t, result.Sources)
	assert.Empty(t, rag.queries)
	assert.Contains(t, result.Explanation, "You're welcome")
}

func TestChatNonLegalCannedReplies(t *testing.T) {
	svc := NewChatService(&scriptedAnalyzer{nonLegal: true}, &scriptedExplainer{}, &scriptedContexts{}, nil, nil, 5)
	tests := []struct {
		query string
		want  string
	}{
		{"hello there", "Hello!"},
		{"thank you so much", "You're welcome"},
		{"goodbye", "Goodbye!"},
		{"ok", "I'm here to assist"},
	}
	for _, tt := range tests {
		result, err := svc.Chat(context.Background(), "u1", "", tt.query)
		require.NoError(t, err)
		assert.Contains(t, result.Explanation, tt.want, tt.query)
	}
}

func TestChatNoHistorySkipsIndependenceCheck(t *testing.T) {
	analyzer := &scriptedAnalyzer{independent: false}
	rag := &scriptedExplainer{explanation: legalExplanation()}
	svc := NewChatService(analyzer, rag, &scriptedContexts{}, nil, nil, 5)

	result, err := svc.Chat(context.Background(), "u1", "conv-1", "what are my rights?")
	require.NoError(t, err)
	assert.Equal(t, 0, analyzer.independenceRuns)
	assert.Equal(t, 0, analyzer.summarizeRuns)
	assert.False(t, result.ContextUsed)
	assert.Equal(t, []string{"what are my rights?"}, rag.queries)
}

func TestChatIndependentUsesOriginalQuery(t *testing.T) {
	analyzer := &scriptedAnalyzer{independent: true}
	rag := &scriptedExplainer{explanation: legalExplanation()}
	contexts := &scriptedContexts{turns: []model.Turn{{Role: model.RoleUser, Content: "earlier"}}}
	svc := NewChatService(analyzer, rag, contexts, nil, nil, 5)

	result, err := svc.Chat(context.Background(), "u1", "conv-1", "new topic question")
	require.NoError(t, err)
	assert.Equal(t, 1, analyzer.independenceRuns)
	assert.Equal(t, 0, analyzer.summarizeRuns)
	assert.False(t, result.ContextUsed)
	assert.Empty(t, result.SummarizedQuery)
	assert.Equal(t, "new topic question", result.Query)
}

func TestChatDependentUsesSummarizedQuery(t *testing.T) {
	analyzer := &scriptedAnalyzer{independent: false, summarized: "My brother is suing me over property. What are my rights?"}
	rag := &scriptedExplainer{explanation: legalExplanation()}
	contexts := &scriptedContexts{turns: []model.Turn{
		{Role: model.RoleUser, Content: "I had a fight with my brother over property"},
		{Role: model.RoleAssistant, Content: "property law says..."},
	}}
	svc := NewChatService(analyzer, rag, contexts, nil, nil, 5)

	result, err := svc.Chat(context.Background(), "u1", "conv-1", "he is suing me now")
	require.NoError(t, err)
	assert.True(t, result.ContextUsed)
	assert.Equal(t, "he is suing me now", result.OriginalQuery)
	assert.Equal(t, analyzer.summarized, result.SummarizedQuery)
	assert.Equal(t, []string{analyzer.summarized}, rag.queries)
}

func TestChatSummarizerFallbackDisablesContext(t *testing.T) {
	// summarizer returning the original message means the rewrite failed
	analyzer := &scriptedAnalyzer{independent: false}
	rag := &scriptedExplainer{explanation: legalExplanation()}
	contexts := &scriptedContexts{turns: []model.Turn{{Role: model.RoleUser, Content: "earlier"}}}
	svc := NewChatService(analyzer, rag, contexts, nil, nil, 5)

	result, err := svc.Chat(context.Background(), "u1", "conv-1", "he is suing me now")
	require.NoError(t, err)
	assert.Equal(t, 1, analyzer.summarizeRuns)
	assert.False(t, result.ContextUsed)
	assert.Equal(t, []string{"he is suing me now"}, rag.queries)
}

func TestChatRetrievalFailureIsFatal(t *testing.T) {
	rag := &scriptedExplainer{err: fmt.Errorf("%w: index down", appErr.ErrRetrieval)}
	svc := NewChatService(&scriptedAnalyzer{}, rag, &scriptedContexts{}, nil, nil, 5)

	result, err := svc.Chat(context.Background(), "u1", "", "legal question")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, appErr.IsFatalTurn(err))
}

func TestChatPersistsTurnPair(t *testing.T) {
	convs := &fakeConversationStore{conv: &model.Conversation{ID: "conv-1", UserID: "u1"}}
	msgs := &fakeTurnStore{}
	rag := &scriptedExplainer{explanation: legalExplanation()}
	svc := NewChatService(&scriptedAnalyzer{independent: true}, rag, &scriptedContexts{}, convs, msgs, 5)

	result, err := svc.Chat(context.Background(), "u1", "conv-1", "what are my rights?")
	require.NoError(t, err)
	require.Len(t, msgs.pairs, 1)
	userMsg, assistantMsg := msgs.pairs[0][0], msgs.pairs[0][1]
	assert.Equal(t, model.RoleUser, userMsg.Role)
	assert.Equal(t, "what are my rights?", userMsg.Content)
	assert.Equal(t, model.RoleAssistant, assistantMsg.Role)
	assert.Equal(t, result.Explanation, assistantMsg.Content)
	require.NotNil(t, assistantMsg.Metadata)
	assert.Equal(t, result.Sources, assistantMsg.Metadata.Sources)
	assert.Equal(t, []string{"conv-1"}, convs.touched)
}

func TestChatUnownedConversationServedNotRecorded(t *testing.T) {
	convs := &fakeConversationStore{conv: &model.Conversation{ID: "conv-1", UserID: "someone-else"}}
	msgs := &fakeTurnStore{}
	svc := NewChatService(&scriptedAnalyzer{independent: true}, &scriptedExplainer{explanation: legalExplanation()}, &scriptedContexts{}, convs, msgs, 5)

	result, err := svc.Chat(context.Background(), "u1", "conv-1", "what are my rights?")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Explanation)
	assert.Empty(t, msgs.pairs)
	assert.Empty(t, convs.touched)
}

func TestChatWithoutStoresCompletes(t *testing.T) {
	// stateless deployments run the orchestrator with no persistence wired
	svc := NewChatService(&scriptedAnalyzer{independent: true}, &scriptedExplainer{explanation: legalExplanation()}, &scriptedContexts{}, nil, nil, 5)

	result, err := svc.Chat(context.Background(), "u1", "conv-1", "what are my rights?")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Explanation)
}

func TestChatCarriesSuggestedAction(t *testing.T) {
	action := &model.SuggestedAction{Action: "generate_letter", LetterType: "citizenship application"}
	svc := NewChatService(&scriptedAnalyzer{independent: true, action: action}, &scriptedExplainer{explanation: legalExplanation()}, &scriptedContexts{}, nil, nil, 5)

	result, err := svc.Chat(context.Background(), "u1", "", "I want to apply for citizenship")
	require.NoError(t, err)
	require.NotNil(t, result.SuggestedAction)
	assert.Equal(t, "citizenship application", result.SuggestedAction.LetterType)
}
