package job

import (
	"context"

	"github.com/nyayasathi/kanun/internal/ingest"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// StoreReconcileJob periodically compares the vector index against the
// local text store and reports drift between the two.
type StoreReconcileJob struct {
	ingestor *ingest.Ingestor
}

func NewStoreReconcileJob(ingestor *ingest.Ingestor) *StoreReconcileJob {
	return &StoreReconcileJob{ingestor: ingestor}
}

func (j *StoreReconcileJob) Name() string {
	return "store_reconcile"
}

func (j *StoreReconcileJob) Run(ctx context.Context) error {
	report, err := j.ingestor.Verify(ctx)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx).With(
		zap.Int64("vector_count", report.VectorCount),
		zap.Int64("text_count", report.TextCount),
	)
	if !report.InSync() {
		logger.Warn("vector index and text store out of sync, re-ingest the corpus")
		return nil
	}
	logger.Info("stores in sync")
	return nil
}
