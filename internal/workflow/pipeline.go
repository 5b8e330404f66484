package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"adgen/internal/job"
	"adgen/internal/logging"
	"adgen/internal/stage"
	"adgen/internal/stageexec"
)

// Pipeline is an ordered list of stages run one after another with fail-fast
// routing.
type Pipeline struct {
	stages    []stage.Stage
	publisher stageexec.Publisher
	logger    *slog.Logger
}

// NewPipeline validates the stage list and binds the publisher every
// transition snapshot is pushed to. publisher may be nil.
func NewPipeline(stages []stage.Stage, publisher stageexec.Publisher, logger *slog.Logger) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, errors.New("pipeline: at least one stage required")
	}
	seen := make(map[string]struct{}, len(stages))
	for i, stg := range stages {
		name := strings.TrimSpace(stg.Name)
		if name == "" {
			return nil, fmt.Errorf("pipeline: stage %d has no name", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("pipeline: duplicate stage %q", name)
		}
		seen[name] = struct{}{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		stages:    append([]stage.Stage(nil), stages...),
		publisher: publisher,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Names returns the stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, stg := range p.stages {
		names[i] = stg.Name
	}
	return names
}

// Stages returns a copy of the stage descriptors.
func (p *Pipeline) Stages() []stage.Stage {
	return append([]stage.Stage(nil), p.stages...)
}

// Run executes every stage of j in order. It stops as soon as the job fails,
// leaving later stages pending, and marks the job successful once the last
// stage completes with a final image. Stage failures are recorded on the job
// and are not returned; a returned error means the job could not be driven at
// all, in which case it has been aborted.
func (p *Pipeline) Run(ctx context.Context, j *job.Job) error {
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldJobID, j.ID()))
	for _, stg := range p.stages {
		if err := ctx.Err(); err != nil {
			p.abort(logger, j, "pipeline cancelled: "+err.Error())
			return err
		}
		if err := stageexec.Run(ctx, stageexec.Options{
			Logger:    p.logger,
			Publisher: p.publisher,
			Stage:     stg,
			Job:       j,
		}); err != nil {
			p.abort(logger, j, "internal error: "+err.Error())
			return err
		}
		if j.Status() == job.StatusFailed {
			snap := j.Snapshot()
			logger.Info("pipeline halted",
				logging.String(logging.FieldEventType, "pipeline_failed"),
				logging.Int("error_step", snap.ErrorStep),
				logging.String("error", snap.Error),
			)
			return nil
		}
	}

	if strings.TrimSpace(j.Snapshot().Artifacts.FinalImageURL) == "" {
		p.abort(logger, j, "pipeline finished without a final image")
		return nil
	}
	if err := j.Succeed(); err != nil {
		p.abort(logger, j, "internal error: "+err.Error())
		return err
	}
	p.publish(j)
	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_success"),
		logging.String("final_image_url", j.Snapshot().Artifacts.FinalImageURL),
	)
	return nil
}

// Abort fails j outside of any stage and publishes the result. It is a no-op
// for terminal jobs.
func (p *Pipeline) Abort(j *job.Job, reason string) {
	p.abort(p.logger.With(logging.String(logging.FieldJobID, j.ID())), j, reason)
}

func (p *Pipeline) abort(logger *slog.Logger, j *job.Job, reason string) {
	if err := j.Abort(reason); err != nil {
		return
	}
	p.publish(j)
	logging.ErrorWithContext(logger, "pipeline aborted", "pipeline_aborted",
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "check daemon logs and resubmit the job"),
	)
}

func (p *Pipeline) publish(j *job.Job) {
	if p.publisher == nil {
		return
	}
	p.publisher.Publish(j.Snapshot())
}
