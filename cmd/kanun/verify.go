package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "check the vector index against the local text store",
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

			report, err := ingestor.Verify(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("vector index: %d entries\nlocal text store: %d entries\n",
				report.VectorCount, report.TextCount)
			if !report.InSync() {
				return fmt.Errorf("stores out of sync, re-run ingest")
			}
			fmt.Println("stores in sync")
			return nil
		},
	}
}
