package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nyayasathi/kanun/internal/model"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// DefaultUpsertBatchSize bounds how many records go to the backend per
// upsert call.
const DefaultUpsertBatchSize = 100

// Match is one nearest-neighbor hit. Score is cosine similarity, higher
// is better; backends built on distance metrics must convert before
// returning.
type Match struct {
	ID       string
	Score    float32
	Metadata model.ChunkMetadata
}

type Stats struct {
	TotalCount int64
}

// Index is the remote similarity-search backend.
type Index interface {
	Upsert(ctx context.Context, records []model.EmbeddingRecord) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// UpsertInBatches splits records into fixed-size batches and upserts them
// in order. It returns how many records made it in; on a batch failure
// the error names the failing batch so the caller knows exactly where the
// upload stopped.
func UpsertInBatches(ctx context.Context, idx Index, records []model.EmbeddingRecord, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultUpsertBatchSize
	}
	uploaded := 0
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		batchNum := start/batchSize + 1
		if err := idx.Upsert(ctx, records[start:end]); err != nil {
			return uploaded, fmt.Errorf("upsert batch %d (records %d-%d): %w", batchNum, start, end-1, err)
		}
		uploaded += end - start
		logutil.GetLogger(ctx).Debug("upserted vector batch", zap.Int("batch", batchNum), zap.Int("size", end-start))
	}
	return uploaded, nil
}

type IndexFactory func(args interface{}, dim int) (Index, error)

var registry = map[string]IndexFactory{}

func Register(name string, factory IndexFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func New(name string, args interface{}, dim int) (Index, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("vector_index.type is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector index type: %s", name)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	return factory(args, dim)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("vector index config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode vector index config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode vector index config: %w", err)
	}
	return nil
}
