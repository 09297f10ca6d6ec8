package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/nyayasathi/kanun/internal/ai"
	"github.com/nyayasathi/kanun/internal/model"
	appErr "github.com/nyayasathi/kanun/internal/pkg/errors"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Retriever is the hybrid vector-index + text-store query interface.
type Retriever interface {
	QueryWithEmbedding(ctx context.Context, vector []float32, nResults int) (*model.RetrievalResult, error)
}

// RAGService runs retrieval-augmented generation: embed the query, fetch
// the nearest legal provisions, generate a structured explanation.
type RAGService struct {
	embedder  ai.IEmbedder
	retriever Retriever
	generator ai.IGenerator
	topK      int
	timeout   time.Duration
}

func NewRAGService(embedder ai.IEmbedder, retriever Retriever, generator ai.IGenerator, topK int, timeout time.Duration) *RAGService {
	if topK <= 0 {
		topK = 5
	}
	return &RAGService{
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		topK:      topK,
		timeout:   timeout,
	}
}

var (
	summaryPattern     = regexp.MustCompile(`(?is)\*\*Summary\*\*\s*(.*?)\s*(?:\*\*Key Legal Point\*\*|$)`)
	keyPointPattern    = regexp.MustCompile(`(?is)\*\*Key Legal Point\*\*\s*(.*?)\s*(?:\*\*Explanation\*\*|$)`)
	explanationPattern = regexp.MustCompile(`(?is)\*\*Explanation\*\*\s*(.*?)\s*(?:\*\*Next Steps\*\*|$)`)
	nextStepsPattern   = regexp.MustCompile(`(?is)\*\*Next Steps\*\*\s*(.*?)\s*$`)
	articlePattern     = regexp.MustCompile(`Article\s+(\d+[A-Za-z]?)`)
)

// opCtx bounds one outbound call with the configured timeout.
func (s *RAGService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// GetExplanation runs the full pipeline for one self-contained query.
func (s *RAGService) GetExplanation(ctx context.Context, query string) (*model.Explanation, error) {
	chunks, err := s.retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("retrieved chunks for query", zap.Int("count", len(chunks)))

	genCtx, cancel := s.opCtx(ctx)
	defer cancel()
	raw, err := s.generator.Generate(genCtx, ai.FormatRAGPrompt(query, chunks))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrGeneration, err)
	}

	explanation := parseStructuredResponse(raw)
	explanation.Query = query
	explanation.RawResponse = raw
	explanation.Sources = buildSources(chunks)
	return explanation, nil
}

// SearchSources returns the hydrated top-k provisions without generation.
func (s *RAGService) SearchSources(ctx context.Context, query string, k int) ([]model.SourceDetail, error) {
	if k <= 0 {
		k = s.topK
	}
	return s.search(ctx, query, k)
}

func (s *RAGService) retrieve(ctx context.Context, query string) ([]model.SourceDetail, error) {
	return s.search(ctx, query, s.topK)
}

func (s *RAGService) search(ctx context.Context, query string, k int) ([]model.SourceDetail, error) {
	embedCtx, cancelEmbed := s.opCtx(ctx)
	defer cancelEmbed()
	vector, err := s.embedder.Embed(embedCtx, query, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", appErr.ErrRetrieval, err)
	}

	queryCtx, cancelQuery := s.opCtx(ctx)
	defer cancelQuery()
	res, err := s.retriever.QueryWithEmbedding(queryCtx, vector, k)
	if err != nil {
		return nil, err
	}
	return hydrateDetails(res), nil
}

func hydrateDetails(res *model.RetrievalResult) []model.SourceDetail {
	details := make([]model.SourceDetail, 0, res.Len())
	for i := range res.IDs {
		details = append(details, model.SourceDetail{
			Text:      res.Documents[i],
			File:      res.Metadatas[i].SourceFile,
			Section:   extractSection(res.Documents[i], i),
			Relevance: res.Scores[i],
		})
	}
	return details
}

// extractSection pulls an article reference from the head of the chunk
// text, falling back to a positional label.
func extractSection(text string, rank int) string {
	head := text
	if len(head) > 200 {
		head = head[:200]
	}
	if m := articlePattern.FindStringSubmatch(head); m != nil {
		return "Article " + m[1]
	}
	return fmt.Sprintf("Section %d", rank+1)
}

func buildSources(chunks []model.SourceDetail) []model.Source {
	sources := make([]model.Source, 0, len(chunks))
	for _, chunk := range chunks {
		file := chunk.File
		if file == "" {
			file = "Legal Document"
		}
		sources = append(sources, model.Source{
			File:      file,
			Section:   chunk.Section,
			Relevance: chunk.Relevance,
		})
	}
	return sources
}

// parseStructuredResponse splits the generated markdown into its named
// sections. If the model ignored the format entirely, the whole text
// lands in Explanation so nothing is lost.
func parseStructuredResponse(text string) *model.Explanation {
	e := &model.Explanation{}
	if m := summaryPattern.FindStringSubmatch(text); m != nil {
		e.Summary = m[1]
	}
	if m := keyPointPattern.FindStringSubmatch(text); m != nil {
		e.KeyPoint = m[1]
	}
	if m := explanationPattern.FindStringSubmatch(text); m != nil {
		e.Explanation = m[1]
	}
	if m := nextStepsPattern.FindStringSubmatch(text); m != nil {
		e.NextSteps = m[1]
	}
	if e.Summary == "" && e.KeyPoint == "" && e.Explanation == "" && e.NextSteps == "" {
		e.Explanation = text
	}
	return e
}
