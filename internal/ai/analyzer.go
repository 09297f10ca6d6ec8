package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nyayasathi/kanun/internal/model"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const analyzerHistoryTurns = 10

// ContextAnalyzer decides how a chat message relates to the conversation
// around it: whether it is a legal question at all, whether it stands on
// its own, and how to rewrite it into a self-contained retrieval query.
type ContextAnalyzer struct {
	gen             IGenerator
	timeout         time.Duration
	classify        *textDecision
	independence    *textDecision
	assumeDependent bool
}

// NewContextAnalyzer builds an analyzer over gen. assumeLegal and
// assumeDependent pick the value each check resolves to when the model
// cannot give a usable answer.
func NewContextAnalyzer(gen IGenerator, timeout time.Duration, assumeLegal bool, assumeDependent bool) *ContextAnalyzer {
	return &ContextAnalyzer{
		gen:     gen,
		timeout: timeout,
		classify: &textDecision{
			name:     "legal_classify",
			gen:      gen,
			timeout:  timeout,
			parse:    parseLegal,
			fallback: !assumeLegal,
		},
		independence: &textDecision{
			name:     "independence",
			gen:      gen,
			timeout:  timeout,
			parse:    parseIndependent,
			fallback: !assumeDependent,
		},
		assumeDependent: assumeDependent,
	}
}

// IsNonLegalQuery reports whether the message is casual conversation
// rather than a legal question.
func (a *ContextAnalyzer) IsNonLegalQuery(ctx context.Context, message string) bool {
	return a.classify.Decide(ctx, buildClassifierPrompt(message))
}

// IsIndependentQuery reports whether the message can be understood without
// the conversation history. An empty history is always independent.
func (a *ContextAnalyzer) IsIndependentQuery(ctx context.Context, message string, history []model.Turn) bool {
	if len(history) == 0 {
		return true
	}
	prompt := buildIndependencePrompt(message, FormatTurns(history, analyzerHistoryTurns))
	return a.independence.Decide(ctx, prompt)
}

// SummarizeConversation rewrites a context-dependent message into one
// self-contained query, resolving pronouns against the history. On any
// failure the original message is returned unchanged.
func (a *ContextAnalyzer) SummarizeConversation(ctx context.Context, message string, history []model.Turn) string {
	if a.gen == nil {
		return message
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	prompt := buildSummarizerPrompt(message, FormatTurns(history, analyzerHistoryTurns))
	reply, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		logutil.GetLogger(ctx).Warn("conversation summarize failed, using original message", zap.Error(err))
		return message
	}
	summarized := strings.TrimSpace(reply)
	if summarized == "" {
		return message
	}
	return summarized
}

// DetectLetterOpportunity checks whether the advice given for a query
// implies drafting a formal letter or application. Returns nil when no
// letter is called for.
func (a *ContextAnalyzer) DetectLetterOpportunity(ctx context.Context, query string, nextSteps string) *model.SuggestedAction {
	if a.gen == nil {
		return keywordLetterDetection(query, nextSteps)
	}
	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	reply, err := a.gen.Generate(callCtx, buildLetterPrompt(query, nextSteps))
	if err != nil {
		logutil.GetLogger(ctx).Warn("letter detection failed, trying keyword fallback", zap.Error(err))
		return keywordLetterDetection(query, nextSteps)
	}
	return parseLetterReply(reply, query)
}

func parseLetterReply(reply string, query string) *model.SuggestedAction {
	var requiresLetter bool
	var letterType string
	for _, line := range strings.Split(reply, "\n") {
		switch {
		case strings.Contains(line, "REQUIRES_LETTER:"):
			requiresLetter = strings.Contains(strings.ToUpper(line), "YES")
		case strings.Contains(line, "LETTER_TYPE:"):
			_, value, _ := strings.Cut(line, ":")
			letterType = strings.TrimSpace(value)
		}
	}
	if !requiresLetter || letterType == "" {
		return nil
	}
	return newLetterSuggestion(query, letterType)
}

var letterKeywords = []string{
	"write", "letter", "application", "submit", "file", "petition",
	"request", "appeal", "complaint", "notice", "draft", "apply",
}

var letterIntentKeywords = []string{
	"apply for", "want to apply", "need to apply", "how to apply",
	"get citizenship", "obtain", "register", "request for",
}

func keywordLetterDetection(query string, nextSteps string) *model.SuggestedAction {
	queryLower := strings.ToLower(query)
	stepsLower := strings.ToLower(nextSteps)

	hasLetterKeyword := false
	for _, kw := range letterKeywords {
		if strings.Contains(stepsLower, kw) || strings.Contains(queryLower, kw) {
			hasLetterKeyword = true
			break
		}
	}
	hasIntentKeyword := false
	for _, kw := range letterIntentKeywords {
		if strings.Contains(queryLower, kw) {
			hasIntentKeyword = true
			break
		}
	}
	if !hasLetterKeyword && !hasIntentKeyword {
		return nil
	}

	letterType := "formal letter"
	switch {
	case strings.Contains(queryLower, "citizenship") || strings.Contains(stepsLower, "citizenship"):
		letterType = "citizenship application"
	case strings.Contains(stepsLower, "complaint") || strings.Contains(queryLower, "complaint"):
		letterType = "formal complaint"
	case strings.Contains(stepsLower, "appeal") || strings.Contains(queryLower, "appeal"):
		letterType = "appeal"
	case strings.Contains(stepsLower, "application") || strings.Contains(queryLower, "application"):
		letterType = "application"
	}
	return newLetterSuggestion(query, letterType)
}

func newLetterSuggestion(query string, letterType string) *model.SuggestedAction {
	return &model.SuggestedAction{
		Action:      "generate_letter",
		Description: query,
		LetterType:  letterType,
		Prompt:      fmt.Sprintf("Would you like me to help you draft a %s?", letterType),
	}
}
