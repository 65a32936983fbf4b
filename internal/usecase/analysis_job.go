package usecase

import (
	"context"
	"fmt"

	"FundPilot/internal/domain/models"
	"FundPilot/pkg/logger"
	"FundPilot/pkg/queue"
)

// AnalysisJobType is the queue message type for asynchronous analysis runs.
const AnalysisJobType = "hedge.analysis"

// AnalysisJob runs the decision pipeline for analysis requests pulled off
// the job queue. Results are not returned to the caller; the audit sink
// records the decisions and clients read them back via the decisions API.
type AnalysisJob struct {
	pipeline *PipelineUseCase
	logger   *logger.Logger
}

func NewAnalysisJob(pipeline *PipelineUseCase, lgr *logger.Logger) *AnalysisJob {
	return &AnalysisJob{
		pipeline: pipeline,
		logger:   lgr,
	}
}

func (j *AnalysisJob) Name() string {
	return "analysis_job"
}

func (j *AnalysisJob) Type() string {
	return AnalysisJobType
}

func (j *AnalysisJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[models.AnalysisRequest](payload)
	if err != nil {
		return fmt.Errorf("parse analysis payload: %w", err)
	}

	j.logger.Info("running queued analysis",
		logger.Strings("tickers", req.Tickers),
		logger.String("start_date", req.StartDate),
		logger.String("end_date", req.EndDate),
	)

	results, err := j.pipeline.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("queued analysis failed: %w", err)
	}

	for _, res := range results {
		if len(res.Errors) > 0 {
			j.logger.Warn("queued analysis completed with errors",
				logger.String("ticker", res.Ticker),
				logger.Int("error_count", len(res.Errors)),
			)
		}
	}
	j.logger.Info("queued analysis finished", logger.Int("tickers", len(results)))
	return nil
}
