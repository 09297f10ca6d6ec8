package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/nyayasathi/kanun/internal/filestore"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "chunk, embed and index the legal corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			stack, err := buildAIStack(cfg)
			if err != nil {
				return err
			}
			ingestor, _, index, err := buildIngestor(cfg, stack)
			if err != nil {
				return err
			}
			defer index.Close()

			store, err := filestore.New(cfg.CorpusStore.Type, cfg.CorpusStore.Data)
			if err != nil {
				return fmt.Errorf("init corpus store: %w", err)
			}
			ctx := cmd.Context()
			docs, err := filestore.ReadAll(ctx, store)
			if err != nil {
				return fmt.Errorf("read corpus: %w", err)
			}
			if len(docs) == 0 {
				return fmt.Errorf("corpus store %s is empty", cfg.CorpusStore.Type)
			}

			res, err := ingestor.IngestDocuments(ctx, docs)
			if err != nil {
				logutil.GetLogger(ctx).Error("ingest failed",
					zap.Int("documents", res.Documents),
					zap.Int("chunks", res.Chunks),
					zap.Int("uploaded", res.Uploaded),
					zap.Error(err))
				return err
			}
			fmt.Printf("ingested %d documents, %d chunks, %d vectors uploaded\n",
				res.Documents, res.Chunks, res.Uploaded)
			return nil
		},
	}
}
