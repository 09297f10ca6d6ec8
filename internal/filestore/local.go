package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type localConfig struct {
	Dir        string   `json:"dir"`
	Extensions []string `json:"extensions"`
}

type localStore struct {
	dir  string
	exts []string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	exts := config.Extensions
	if len(exts) == 0 {
		exts = []string{".md", ".txt"}
	}
	return &localStore{dir: config.Dir, exts: exts}, nil
}

func (s *localStore) List(ctx context.Context) ([]string, error) {
	_ = ctx
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		for _, ext := range s.exts {
			if strings.EqualFold(filepath.Ext(name), ext) {
				keys = append(keys, name)
				break
			}
		}
	}
	return keys, nil
}

func (s *localStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	_ = ctx
	if strings.Contains(key, "/") || strings.Contains(key, "\\") {
		return nil, fmt.Errorf("invalid file key")
	}
	return os.Open(filepath.Join(s.dir, key))
}
