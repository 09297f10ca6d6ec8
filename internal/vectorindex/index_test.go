package vectorindex

import (
	"context"
	"fmt"
	"testing"

	"github.com/nyayasathi/kanun/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingIndex struct {
	batches  [][]model.EmbeddingRecord
	failNext int
}

func (r *recordingIndex) Upsert(ctx context.Context, records []model.EmbeddingRecord) error {
	if r.failNext > 0 && len(r.batches)+1 == r.failNext {
		return fmt.Errorf("backend rejected batch")
	}
	r.batches = append(r.batches, records)
	return nil
}

func (r *recordingIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	return nil, nil
}

func (r *recordingIndex) Stats(ctx context.Context) (Stats, error) {
	return Stats{}, nil
}

func (r *recordingIndex) Close() error {
	return nil
}

func makeRecords(n int) []model.EmbeddingRecord {
	records := make([]model.EmbeddingRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, model.EmbeddingRecord{
			ID:     fmt.Sprintf("chunk-%d", i),
			Vector: []float32{float32(i)},
		})
	}
	return records
}

func TestUpsertInBatchesSplits(t *testing.T) {
	idx := &recordingIndex{}
	uploaded, err := UpsertInBatches(context.Background(), idx, makeRecords(250), 100)
	require.NoError(t, err)
	assert.Equal(t, 250, uploaded)
	require.Len(t, idx.batches, 3)
	assert.Len(t, idx.batches[0], 100)
	assert.Len(t, idx.batches[1], 100)
	assert.Len(t, idx.batches[2], 50)
	assert.Equal(t, "chunk-0", idx.batches[0][0].ID)
	assert.Equal(t, "chunk-249", idx.batches[2][49].ID)
}

func TestUpsertInBatchesReportsFailingBatch(t *testing.T) {
	idx := &recordingIndex{failNext: 2}
	uploaded, err := UpsertInBatches(context.Background(), idx, makeRecords(250), 100)
	require.Error(t, err)
	assert.Equal(t, 100, uploaded)
	assert.Contains(t, err.Error(), "batch 2")
	assert.Len(t, idx.batches, 1)
}

func TestUpsertInBatchesEmpty(t *testing.T) {
	idx := &recordingIndex{}
	uploaded, err := UpsertInBatches(context.Background(), idx, nil, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, uploaded)
	assert.Empty(t, idx.batches)
}

func TestUpsertInBatchesDefaultSize(t *testing.T) {
	idx := &recordingIndex{}
	uploaded, err := UpsertInBatches(context.Background(), idx, makeRecords(101), 0)
	require.NoError(t, err)
	assert.Equal(t, 101, uploaded)
	require.Len(t, idx.batches, 2)
	assert.Len(t, idx.batches[0], DefaultUpsertBatchSize)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New("chroma", map[string]interface{}{}, 768)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported vector index type")
}

func TestNewRejectsBadDimension(t *testing.T) {
	_, err := New("pgvector", map[string]interface{}{"dsn": "postgres://x"}, 0)
	require.Error(t, err)
}

func TestRedisParseMatches(t *testing.T) {
	idx := &redisIndex{keyPrefix: "chunk:"}
	raw := []interface{}{
		int64(2),
		"chunk:a", []interface{}{"distance", "0.1", "metadata", `{"source_file":"law.pdf","page_number":3}`},
		"chunk:b", []interface{}{"distance", "0.25", "metadata", `{}`},
	}
	matches, err := idx.parseMatches(raw)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].ID)
	assert.InDelta(t, 0.9, matches[0].Score, 1e-6)
	assert.Equal(t, "law.pdf", matches[0].Metadata.SourceFile)
	assert.Equal(t, 3, matches[0].Metadata.PageNumber)
	assert.Equal(t, "b", matches[1].ID)
	assert.InDelta(t, 0.75, matches[1].Score, 1e-6)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestEncodeFloat32s(t *testing.T) {
	buf := encodeFloat32s([]float32{1.0})
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, buf)
	assert.Len(t, encodeFloat32s(make([]float32, 5)), 20)
}
