package retrieval

import (
	"context"
	"fmt"

	"github.com/nyayasathi/kanun/internal/model"
	apperr "github.com/nyayasathi/kanun/internal/pkg/errors"
	"github.com/nyayasathi/kanun/internal/textstore"
	"github.com/nyayasathi/kanun/internal/vectorindex"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Retriever joins the remote vector index with the local text store so
// callers get fully-hydrated documents from one call.
type Retriever struct {
	index vectorindex.Index
	texts *textstore.Store
}

func New(index vectorindex.Index, texts *textstore.Store) *Retriever {
	return &Retriever{index: index, texts: texts}
}

// QueryWithEmbedding runs a nearest-neighbor search and hydrates each hit
// with its full text. Ranking comes from the index untouched. A hit whose
// text is missing locally gets an empty document string; that is a sync
// gap, logged for offline remediation, never an error for the caller.
func (r *Retriever) QueryWithEmbedding(ctx context.Context, vector []float32, nResults int) (*model.RetrievalResult, error) {
	matches, err := r.index.Query(ctx, vector, nResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrRetrieval, err)
	}
	result := &model.RetrievalResult{
		IDs:       make([]string, 0, len(matches)),
		Documents: make([]string, 0, len(matches)),
		Metadatas: make([]model.ChunkMetadata, 0, len(matches)),
		Scores:    make([]float32, 0, len(matches)),
	}
	for _, m := range matches {
		text := r.texts.Get(m.ID)
		if text == "" {
			logutil.GetLogger(ctx).Warn("chunk in vector index has no local text",
				zap.String("chunk_id", m.ID), zap.String("source_file", m.Metadata.SourceFile))
		}
		result.IDs = append(result.IDs, m.ID)
		result.Documents = append(result.Documents, text)
		result.Metadatas = append(result.Metadatas, m.Metadata)
		result.Scores = append(result.Scores, m.Score)
	}
	return result, nil
}
