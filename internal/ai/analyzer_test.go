package ai

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nyayasathi/kanun/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTurns(t *testing.T) {
	turns := []model.Turn{
		{Role: model.RoleUser, Content: "I had a fight with my brother over property"},
		{Role: model.RoleAssistant, Content: "Property disputes are governed by..."},
		{Role: "system", Content: "ignored"},
		{Role: model.RoleUser, Content: "He is making fake allegations"},
	}
	got := FormatTurns(turns, 10)
	want := "Human: I had a fight with my brother over property\n" +
		"Chatbot: Property disputes are governed by...\n" +
		"Human: He is making fake allegations"
	assert.Equal(t, want, got)
}

func TestFormatTurnsLimit(t *testing.T) {
	turns := make([]model.Turn, 0, 15)
	for i := 0; i < 15; i++ {
		turns = append(turns, model.Turn{Role: model.RoleUser, Content: fmt.Sprintf("msg %d", i)})
	}
	got := FormatTurns(turns, 10)
	assert.NotContains(t, got, "msg 4")
	assert.Contains(t, got, "msg 5")
	assert.Contains(t, got, "msg 14")
}

func TestIsIndependentQueryEmptyHistory(t *testing.T) {
	a := NewContextAnalyzer(&fakeGenerator{err: fmt.Errorf("should not be called")}, time.Second, true, true)
	assert.True(t, a.IsIndependentQuery(context.Background(), "hello", nil))
}

func TestIsIndependentQueryFallback(t *testing.T) {
	history := []model.Turn{{Role: model.RoleUser, Content: "first"}}

	a := NewContextAnalyzer(&fakeGenerator{err: fmt.Errorf("boom")}, time.Second, true, true)
	assert.False(t, a.IsIndependentQuery(context.Background(), "and then?", history))

	a = NewContextAnalyzer(&fakeGenerator{err: fmt.Errorf("boom")}, time.Second, true, false)
	assert.True(t, a.IsIndependentQuery(context.Background(), "and then?", history))
}

func TestIsNonLegalQueryFallback(t *testing.T) {
	a := NewContextAnalyzer(&fakeGenerator{reply: "unsure"}, time.Second, true, true)
	assert.False(t, a.IsNonLegalQuery(context.Background(), "???"))

	a = NewContextAnalyzer(&fakeGenerator{reply: "NON_LEGAL"}, time.Second, true, true)
	assert.True(t, a.IsNonLegalQuery(context.Background(), "thanks!"))
}

func TestSummarizeConversationFallback(t *testing.T) {
	history := []model.Turn{{Role: model.RoleUser, Content: "property dispute"}}

	a := NewContextAnalyzer(&fakeGenerator{err: fmt.Errorf("boom")}, time.Second, true, true)
	assert.Equal(t, "he sued me", a.SummarizeConversation(context.Background(), "he sued me", history))

	a = NewContextAnalyzer(&fakeGenerator{reply: "  My brother sued me over property.  "}, time.Second, true, true)
	assert.Equal(t, "My brother sued me over property.", a.SummarizeConversation(context.Background(), "he sued me", history))
}

func TestParseLetterReply(t *testing.T) {
	reply := "REQUIRES_LETTER: YES\nLETTER_TYPE: citizenship application"
	got := parseLetterReply(reply, "I want to apply for citizenship")
	require.NotNil(t, got)
	assert.Equal(t, "generate_letter", got.Action)
	assert.Equal(t, "citizenship application", got.LetterType)
	assert.Equal(t, "I want to apply for citizenship", got.Description)
	assert.Equal(t, "Would you like me to help you draft a citizenship application?", got.Prompt)

	assert.Nil(t, parseLetterReply("REQUIRES_LETTER: NO\nLETTER_TYPE:", "what are my rights?"))
	assert.Nil(t, parseLetterReply("REQUIRES_LETTER: YES\nLETTER_TYPE:", "missing type"))
	assert.Nil(t, parseLetterReply("garbage", "q"))
}

func TestKeywordLetterDetection(t *testing.T) {
	got := keywordLetterDetection("I want to apply for citizenship", "")
	require.NotNil(t, got)
	assert.Equal(t, "citizenship application", got.LetterType)

	got = keywordLetterDetection("my neighbor is noisy", "file a formal complaint with the ward office")
	require.NotNil(t, got)
	assert.Equal(t, "formal complaint", got.LetterType)

	assert.Nil(t, keywordLetterDetection("what is the penalty for theft?", "the penalty is up to..."))
}

func TestDetectLetterOpportunityFallsBackToKeywords(t *testing.T) {
	a := NewContextAnalyzer(&fakeGenerator{err: fmt.Errorf("boom")}, time.Second, true, true)
	got := a.DetectLetterOpportunity(context.Background(), "how to appeal the decision", "")
	require.NotNil(t, got)
	assert.Equal(t, "appeal", got.LetterType)
}
