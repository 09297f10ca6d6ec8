package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nyayasathi/kanun/internal/model"
	appErr "github.com/nyayasathi/kanun/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vector      []float32
	err         error
	tasks       []string
	hadDeadline bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	f.tasks = append(f.tasks, taskType)
	_, f.hadDeadline = ctx.Deadline()
	return f.vector, f.err
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

type fakeRetriever struct {
	result      *model.RetrievalResult
	err         error
	lastN       int
	hadDeadline bool
}

func (f *fakeRetriever) QueryWithEmbedding(ctx context.Context, vector []float32, nResults int) (*model.RetrievalResult, error) {
	f.lastN = nResults
	_, f.hadDeadline = ctx.Deadline()
	return f.result, f.err
}

type fakeGenerator struct {
	reply       string
	err         error
	hadDeadline bool
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	_, f.hadDeadline = ctx.Deadline()
	return f.reply, f.err
}

func TestParseStructuredResponse(t *testing.T) {
	raw := "**Summary**\nYou can apply at the ward office.\n\n" +
		"**Key Legal Point**\nArticle 11 grants citizenship by descent.\n\n" +
		"**Explanation**\nThe constitution says so in detail.\n\n" +
		"**Next Steps**\n1. Gather documents\n2. Visit the office"
	e := parseStructuredResponse(raw)
	assert.Equal(t, "You can apply at the ward office.", e.Summary)
	assert.Equal(t, "Article 11 grants citizenship by descent.", e.KeyPoint)
	assert.Equal(t, "The constitution says so in detail.", e.Explanation)
	assert.Equal(t, "1. Gather documents\n2. Visit the office", e.NextSteps)
}

func TestParseStructuredResponseUnformatted(t *testing.T) {
	raw := "I could not find a relevant provision for that question."
	e := parseStructuredResponse(raw)
	assert.Equal(t, raw, e.Explanation)
	assert.Empty(t, e.Summary)
	assert.Empty(t, e.NextSteps)
}

func TestParseStructuredResponsePartial(t *testing.T) {
	raw := "**Summary**\nShort answer.\n\n**Explanation**\nLonger answer."
	e := parseStructuredResponse(raw)
	assert.Equal(t, "Short answer.", e.Summary)
	assert.Equal(t, "Longer answer.", e.Explanation)
	assert.Empty(t, e.KeyPoint)
}

func TestExtractSection(t *testing.T) {
	assert.Equal(t, "Article 11", extractSection("Article 11: Citizenship by descent...", 0))
	assert.Equal(t, "Article 42B", extractSection("See Article 42B for details", 2))
	assert.Equal(t, "Section 3", extractSection("no article reference here", 2))
	assert.Equal(t, "Section 1", extractSection("", 0))
}

func TestGetExplanation(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.5}}
	retriever := &fakeRetriever{result: &model.RetrievalResult{
		IDs:       []string{"c1", "c2"},
		Documents: []string{"Article 11: provisions...", "other text"},
		Metadatas: []model.ChunkMetadata{{SourceFile: "constitution.pdf"}, {SourceFile: "civil_code.pdf"}},
		Scores:    []float32{0.9, 0.7},
	}}
	gen := &fakeGenerator{reply: "**Summary**\nYes.\n\n**Next Steps**\n1. Apply."}

	svc := NewRAGService(embedder, retriever, gen, 5, time.Second)
	e, err := svc.GetExplanation(context.Background(), "how to get citizenship?")
	require.NoError(t, err)
	assert.Equal(t, "Yes.", e.Summary)
	assert.Equal(t, "1. Apply.", e.NextSteps)
	assert.Equal(t, "how to get citizenship?", e.Query)
	assert.Equal(t, 5, retriever.lastN)
	assert.Equal(t, []string{"RETRIEVAL_QUERY"}, embedder.tasks)
	require.Len(t, e.Sources, 2)
	assert.Equal(t, "constitution.pdf", e.Sources[0].File)
	assert.Equal(t, "Article 11", e.Sources[0].Section)
	assert.Equal(t, "Section 2", e.Sources[1].Section)
	assert.Equal(t, float32(0.9), e.Sources[0].Relevance)
}

func TestGetExplanationEmbedFailure(t *testing.T) {
	svc := NewRAGService(&fakeEmbedder{err: fmt.Errorf("quota")}, &fakeRetriever{}, &fakeGenerator{}, 5, time.Second)
	_, err := svc.GetExplanation(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErr.ErrRetrieval)
}

func TestGetExplanationGenerationFailure(t *testing.T) {
	retriever := &fakeRetriever{result: &model.RetrievalResult{}}
	svc := NewRAGService(&fakeEmbedder{vector: []float32{1}}, retriever, &fakeGenerator{err: fmt.Errorf("down")}, 5, time.Second)
	_, err := svc.GetExplanation(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErr.ErrGeneration)
}

func TestOutboundCallsCarryDeadline(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1}}
	retriever := &fakeRetriever{result: &model.RetrievalResult{}}
	gen := &fakeGenerator{reply: "text"}
	svc := NewRAGService(embedder, retriever, gen, 5, time.Second)

	_, err := svc.GetExplanation(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, embedder.hadDeadline)
	assert.True(t, retriever.hadDeadline)
	assert.True(t, gen.hadDeadline)
}

func TestSearchSources(t *testing.T) {
	retriever := &fakeRetriever{result: &model.RetrievalResult{
		IDs:       []string{"c1"},
		Documents: []string{"Article 7 text"},
		Metadatas: []model.ChunkMetadata{{SourceFile: "labor_act.pdf"}},
		Scores:    []float32{0.8},
	}}
	svc := NewRAGService(&fakeEmbedder{vector: []float32{1}}, retriever, &fakeGenerator{}, 5, time.Second)
	sources, err := svc.SearchSources(context.Background(), "overtime pay", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, retriever.lastN)
	require.Len(t, sources, 1)
	assert.Equal(t, "Article 7 text", sources[0].Text)
	assert.Equal(t, "labor_act.pdf", sources[0].File)
}
