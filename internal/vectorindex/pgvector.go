package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/nyayasathi/kanun/internal/model"
	"github.com/pgvector/pgvector-go"
)

type pgvectorConfig struct {
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

type pgvectorIndex struct {
	db    *sqlx.DB
	table string
	dim   int
}

func createPgvectorIndex(args interface{}, dim int) (Index, error) {
	cfg := &pgvectorConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("pgvector dsn is required")
	}
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = "legal_chunks"
	}
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open pgvector database: %w", err)
	}
	idx := &pgvectorIndex{db: db, table: table, dim: dim}
	if err := idx.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (p *pgvectorIndex) ensureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb
		)`, p.table, p.dim),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)", p.table, p.table),
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure pgvector schema: %w", err)
		}
	}
	return nil
}

func (p *pgvectorIndex) Upsert(ctx context.Context, records []model.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`INSERT INTO %s (id, embedding, metadata) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`, p.table)
	for _, rec := range records {
		if len(rec.Vector) != p.dim {
			return fmt.Errorf("record %s has dimension %d, index expects %d", rec.ID, len(rec.Vector), p.dim)
		}
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", rec.ID, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, rec.ID, pgvector.NewVector(rec.Vector), meta); err != nil {
			return fmt.Errorf("upsert record %s: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

func (p *pgvectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	// cosine distance flipped into similarity so callers always see
	// higher-is-better scores
	stmt := fmt.Sprintf(`SELECT id, metadata, 1 - (embedding <=> $1) AS score
		FROM %s ORDER BY embedding <=> $1 LIMIT $2`, p.table)
	rows, err := p.db.QueryxContext(ctx, stmt, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("pgvector query: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			id    string
			meta  []byte
			score float64
		)
		if err := rows.Scan(&id, &meta, &score); err != nil {
			return nil, fmt.Errorf("scan pgvector row: %w", err)
		}
		m := Match{ID: id, Score: float32(score)}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pgvector rows: %w", err)
	}
	return matches, nil
}

func (p *pgvectorIndex) Stats(ctx context.Context) (Stats, error) {
	var count int64
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s", p.table)
	if err := p.db.GetContext(ctx, &count, stmt); err != nil {
		return Stats{}, fmt.Errorf("pgvector stats: %w", err)
	}
	return Stats{TotalCount: count}, nil
}

func (p *pgvectorIndex) Close() error {
	return p.db.Close()
}

func init() {
	Register("pgvector", createPgvectorIndex)
}
