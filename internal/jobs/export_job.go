package jobs

import (
	"context"
	"time"

	"github.com/straye-as/renovation-api/internal/domain"
	"go.uber.org/zap"
)

// ExportJobName is the name of the snapshot export job
const ExportJobName = "snapshot_export"

// Exporter writes a snapshot of customers, deals and projects to storage.
type Exporter interface {
	Export(ctx context.Context) (*domain.ExportResultDTO, error)
}

// ExportJob exports the current snapshot on a schedule
type ExportJob struct {
	exporter Exporter
	logger   *zap.Logger
}

// NewExportJob creates the export job.
func NewExportJob(exporter Exporter, logger *zap.Logger) *ExportJob {
	return &ExportJob{exporter: exporter, logger: logger}
}

func (j *ExportJob) Name() string { return ExportJobName }

// Run performs one export
func (j *ExportJob) Run(ctx context.Context) error {
	result, err := j.exporter.Export(ctx)
	if err != nil {
		return err
	}
	j.logger.Info("scheduled snapshot export written",
		zap.String("prefix", result.Prefix),
		zap.Int("files", len(result.Files)))
	return nil
}

// RegisterExportJob schedules the export job under cronExpr.
func RegisterExportJob(scheduler *Scheduler, exporter Exporter, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	return scheduler.AddJob(cronExpr, timeout, NewExportJob(exporter, logger))
}
