package ingest

import (
	"context"
	"fmt"

	"github.com/nyayasathi/kanun/internal/ai"
	"github.com/nyayasathi/kanun/internal/model"
	"github.com/nyayasathi/kanun/internal/textstore"
	"github.com/nyayasathi/kanun/internal/vectorindex"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// persistEvery bounds how much ingest progress a crash can lose.
const persistEvery = 100

// Ingestor pushes chunked legal documents into the two stores. Text goes
// into the local store first and is persisted before any vector upsert:
// a crash mid-run leaves text without vectors, which is harmless, never
// vectors without text.
type Ingestor struct {
	chunker  *Chunker
	embedder ai.IEmbedder
	index    vectorindex.Index
	texts    *textstore.Store
}

func New(embedder ai.IEmbedder, index vectorindex.Index, texts *textstore.Store) *Ingestor {
	return &Ingestor{
		chunker:  NewChunker(),
		embedder: embedder,
		index:    index,
		texts:    texts,
	}
}

type Result struct {
	Documents int
	Chunks    int
	Uploaded  int
}

// IngestDocuments chunks each document, writes all text locally, then
// embeds and upserts the vectors in batches.
func (g *Ingestor) IngestDocuments(ctx context.Context, docs map[string]string) (*Result, error) {
	logger := logutil.GetLogger(ctx)
	res := &Result{}

	var chunks []model.Chunk
	for name, content := range docs {
		docChunks := g.chunker.Chunk(name, content)
		logger.Info("chunked document", zap.String("source_file", name), zap.Int("chunks", len(docChunks)))
		chunks = append(chunks, docChunks...)
		res.Documents++
	}
	res.Chunks = len(chunks)

	sincePersist := 0
	for _, chunk := range chunks {
		g.texts.Put(chunk.ChunkID, chunk.Text)
		sincePersist++
		if sincePersist >= persistEvery {
			if err := g.texts.Persist(); err != nil {
				return res, fmt.Errorf("persist text store: %w", err)
			}
			sincePersist = 0
		}
	}
	if err := g.texts.Persist(); err != nil {
		return res, fmt.Errorf("persist text store: %w", err)
	}
	logger.Info("local text store persisted", zap.Int("total_entries", g.texts.Count()))

	records := make([]model.EmbeddingRecord, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := g.embedder.Embed(ctx, chunk.Text, ai.TaskRetrievalDocument)
		if err != nil {
			return res, fmt.Errorf("embed chunk %s: %w", chunk.ChunkID, err)
		}
		records = append(records, model.EmbeddingRecord{
			ID:     chunk.ChunkID,
			Vector: vector,
			Metadata: model.ChunkMetadata{
				TextPreview: Preview(chunk.Text),
				TextLength:  len(chunk.Text),
				SourceFile:  chunk.SourceFile,
				PageNumber:  chunk.PageNumber,
			},
		})
	}

	uploaded, err := vectorindex.UpsertInBatches(ctx, g.index, records, vectorindex.DefaultUpsertBatchSize)
	res.Uploaded = uploaded
	if err != nil {
		return res, err
	}
	logger.Info("ingest completed", zap.Int("documents", res.Documents), zap.Int("chunks", res.Chunks), zap.Int("uploaded", res.Uploaded))
	return res, nil
}

// Report compares the two stores' cardinalities. A text count below the
// vector count means some retrievals will come back with empty documents.
type Report struct {
	VectorCount int64
	TextCount   int64
}

func (r *Report) InSync() bool {
	return r.TextCount >= r.VectorCount
}

// Verify runs the cross-store consistency check.
func (g *Ingestor) Verify(ctx context.Context) (*Report, error) {
	stats, err := g.index.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector index stats: %w", err)
	}
	report := &Report{
		VectorCount: stats.TotalCount,
		TextCount:   int64(g.texts.Count()),
	}
	if !report.InSync() {
		logutil.GetLogger(ctx).Warn("stores out of sync",
			zap.Int64("vector_count", report.VectorCount), zap.Int64("text_count", report.TextCount))
	}
	return report, nil
}
