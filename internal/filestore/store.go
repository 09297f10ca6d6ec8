package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Store reads the legal corpus documents that feed ingestion. The corpus
// is read-only from the application's point of view.
type Store interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Factory func(args interface{}) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(storeType string, args interface{}) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(storeType))
	if key == "" {
		return nil, fmt.Errorf("corpus_store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported corpus store type: %s", storeType)
	}
	return factory(args)
}

// ReadAll loads every listed document into memory, keyed by name.
func ReadAll(ctx context.Context, store Store) (map[string]string, error) {
	keys, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	docs := make(map[string]string, len(keys))
	for _, key := range keys {
		rc, err := store.Open(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("open corpus document %s: %w", key, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read corpus document %s: %w", key, err)
		}
		docs[key] = string(content)
	}
	return docs, nil
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}
