package retrieval

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nyayasathi/kanun/internal/model"
	apperr "github.com/nyayasathi/kanun/internal/pkg/errors"
	"github.com/nyayasathi/kanun/internal/textstore"
	"github.com/nyayasathi/kanun/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIndex struct {
	matches []vectorindex.Match
	err     error
}

func (s *stubIndex) Upsert(ctx context.Context, records []model.EmbeddingRecord) error {
	return nil
}

func (s *stubIndex) Query(ctx context.Context, vector []float32, topK int) ([]vectorindex.Match, error) {
	return s.matches, s.err
}

func (s *stubIndex) Stats(ctx context.Context) (vectorindex.Stats, error) {
	return vectorindex.Stats{TotalCount: int64(len(s.matches))}, nil
}

func (s *stubIndex) Close() error {
	return nil
}

func newStore(t *testing.T) *textstore.Store {
	t.Helper()
	st, err := textstore.New(filepath.Join(t.TempDir(), "texts.json"))
	require.NoError(t, err)
	return st
}

func TestQueryWithEmbeddingHydratesInRankOrder(t *testing.T) {
	st := newStore(t)
	st.Put("c1", "first chunk text")
	st.Put("c2", "second chunk text")

	idx := &stubIndex{matches: []vectorindex.Match{
		{ID: "c2", Score: 0.91, Metadata: model.ChunkMetadata{SourceFile: "civil_code.pdf", PageNumber: 12}},
		{ID: "c1", Score: 0.84, Metadata: model.ChunkMetadata{SourceFile: "civil_code.pdf", PageNumber: 3}},
	}}

	res, err := New(idx, st).QueryWithEmbedding(context.Background(), []float32{0.1}, 2)
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, []string{"c2", "c1"}, res.IDs)
	assert.Equal(t, []string{"second chunk text", "first chunk text"}, res.Documents)
	assert.Equal(t, []float32{0.91, 0.84}, res.Scores)
	assert.Equal(t, 12, res.Metadatas[0].PageNumber)
}

func TestQueryWithEmbeddingSyncGap(t *testing.T) {
	st := newStore(t)
	st.Put("present", "some text")

	idx := &stubIndex{matches: []vectorindex.Match{
		{ID: "present", Score: 0.9},
		{ID: "missing", Score: 0.8},
	}}

	res, err := New(idx, st).QueryWithEmbedding(context.Background(), []float32{0.1}, 2)
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, "some text", res.Documents[0])
	assert.Equal(t, "", res.Documents[1])
	assert.Equal(t, "missing", res.IDs[1])
}

func TestQueryWithEmbeddingIndexFailure(t *testing.T) {
	idx := &stubIndex{err: fmt.Errorf("backend down")}
	res, err := New(idx, newStore(t)).QueryWithEmbedding(context.Background(), []float32{0.1}, 5)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperr.ErrRetrieval)
}

func TestQueryWithEmbeddingEmptyIndex(t *testing.T) {
	idx := &stubIndex{}
	res, err := New(idx, newStore(t)).QueryWithEmbedding(context.Background(), []float32{0.1}, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
}
