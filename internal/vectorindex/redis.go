package vectorindex

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nyayasathi/kanun/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	redisFieldVector   = "vector"
	redisFieldMetadata = "metadata"
)

type redisConfig struct {
	Addr      string `json:"addr"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	IndexName string `json:"index_name"`
	KeyPrefix string `json:"key_prefix"`
}

type redisIndex struct {
	client    *redis.Client
	indexName string
	keyPrefix string
	dim       int
}

func createRedisIndex(args interface{}, dim int) (Index, error) {
	cfg := &redisConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	indexName := strings.TrimSpace(cfg.IndexName)
	if indexName == "" {
		indexName = "legal-chunks"
	}
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "chunk:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	idx := &redisIndex{
		client:    client,
		indexName: indexName,
		keyPrefix: keyPrefix,
		dim:       dim,
	}
	if err := idx.ensureIndex(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return idx, nil
}

func (r *redisIndex) ensureIndex(ctx context.Context) error {
	if _, err := r.client.Do(ctx, "FT.INFO", r.indexName).Result(); err == nil {
		return nil
	}
	_, err := r.client.Do(ctx, "FT.CREATE", r.indexName,
		"ON", "HASH",
		"PREFIX", "1", r.keyPrefix,
		"SCHEMA",
		redisFieldVector, "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(r.dim),
		"DISTANCE_METRIC", "COSINE",
		redisFieldMetadata, "TEXT", "NOINDEX",
	).Result()
	if err != nil {
		return fmt.Errorf("create redis vector index: %w", err)
	}
	return nil
}

func (r *redisIndex) Upsert(ctx context.Context, records []model.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, rec := range records {
		if len(rec.Vector) != r.dim {
			return fmt.Errorf("record %s has dimension %d, index expects %d", rec.ID, len(rec.Vector), r.dim)
		}
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", rec.ID, err)
		}
		pipe.HSet(ctx, r.keyPrefix+rec.ID,
			redisFieldVector, encodeFloat32s(rec.Vector),
			redisFieldMetadata, meta,
		)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis upsert: %w", err)
	}
	return nil
}

func (r *redisIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	queryStr := fmt.Sprintf("*=>[KNN %d @%s $query_vector AS distance]", topK, redisFieldVector)
	raw, err := r.client.Do(ctx, "FT.SEARCH", r.indexName, queryStr,
		"PARAMS", "2", "query_vector", encodeFloat32s(vector),
		"RETURN", "2", "distance", redisFieldMetadata,
		"SORTBY", "distance",
		"LIMIT", "0", strconv.Itoa(topK),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("redis vector search: %w", err)
	}
	return r.parseMatches(raw)
}

// parseMatches decodes the FT.SEARCH reply: a count followed by
// (key, field-list) pairs in rank order.
func (r *redisIndex) parseMatches(raw interface{}) ([]Match, error) {
	values, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected redis search reply type %T", raw)
	}
	var matches []Match
	for i := 1; i+1 < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		fields, ok := values[i+1].([]interface{})
		if !ok {
			continue
		}
		m := Match{ID: strings.TrimPrefix(key, r.keyPrefix)}
		for j := 0; j+1 < len(fields); j += 2 {
			name, ok := fields[j].(string)
			if !ok {
				continue
			}
			value, ok := fields[j+1].(string)
			if !ok {
				continue
			}
			switch name {
			case "distance":
				dist, err := strconv.ParseFloat(value, 32)
				if err != nil {
					return nil, fmt.Errorf("parse distance for %s: %w", m.ID, err)
				}
				// cosine distance to similarity, higher is better
				m.Score = 1 - float32(dist)
			case redisFieldMetadata:
				if err := json.Unmarshal([]byte(value), &m.Metadata); err != nil {
					return nil, fmt.Errorf("decode metadata for %s: %w", m.ID, err)
				}
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (r *redisIndex) Stats(ctx context.Context) (Stats, error) {
	raw, err := r.client.Do(ctx, "FT.INFO", r.indexName).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("redis index info: %w", err)
	}
	values, ok := raw.([]interface{})
	if !ok {
		return Stats{}, fmt.Errorf("unexpected redis info reply type %T", raw)
	}
	for i := 0; i+1 < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok || key != "num_docs" {
			continue
		}
		switch v := values[i+1].(type) {
		case int64:
			return Stats{TotalCount: v}, nil
		case string:
			count, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return Stats{}, fmt.Errorf("parse num_docs: %w", err)
			}
			return Stats{TotalCount: count}, nil
		}
	}
	return Stats{}, nil
}

func (r *redisIndex) Close() error {
	return r.client.Close()
}

func encodeFloat32s(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func init() {
	Register("redis", createRedisIndex)
}
