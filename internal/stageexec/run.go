package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"adgen/internal/job"
	"adgen/internal/logging"
	"adgen/internal/services"
	"adgen/internal/stage"
)

// Publisher receives a snapshot after every lifecycle transition.
type Publisher interface {
	Publish(job.State)
}

// Options controls a single stage execution.
type Options struct {
	Logger    *slog.Logger
	Publisher Publisher
	Stage     stage.Stage
	Job       *job.Job
}

// Run executes one stage under the gate lifecycle: pre-check, start, body,
// post-check, completion. Any failure of the stage itself is recorded on the
// job, which becomes failed, and Run returns nil; callers inspect the job
// status to decide whether to continue. A non-nil error means the job
// refused a transition, which only happens when the caller breaks the stage
// order or reuses a terminal job.
func Run(ctx context.Context, opts Options) error {
	if opts.Job == nil {
		return errors.New("stage execution: job is required")
	}
	name := strings.TrimSpace(opts.Stage.Name)
	if name == "" {
		return errors.New("stage execution: stage name is required")
	}
	step, ok := opts.Job.StepOf(name)
	if !ok {
		return fmt.Errorf("stage execution: %w: %q", job.ErrUnknownStage, name)
	}

	stageCtx := services.WithStage(services.WithJobID(ctx, opts.Job.ID()), name)
	logger := logging.WithContext(stageCtx, opts.Logger).With(logging.Int(logging.FieldStep, step))

	if pre := opts.Stage.Pre; pre != nil {
		if err := pre(opts.Job.Snapshot()); err != nil {
			reason := failureMessage(err)
			if terr := opts.Job.RejectStage(name, reason); terr != nil {
				return fmt.Errorf("record pre-check failure: %w", terr)
			}
			publish(opts.Publisher, opts.Job)
			logging.WarnWithContext(logger, "stage pre-check failed", "stage_rejected",
				logging.String("reason", reason),
				logging.String("error_kind", string(services.KindOf(err))),
				logging.String(logging.FieldErrorHint, "fix the job input and submit a new job"),
				logging.String(logging.FieldImpact, "job stopped before the stage ran"),
			)
			return nil
		}
	}

	if err := opts.Job.StartStage(name); err != nil {
		return fmt.Errorf("record stage start: %w", err)
	}
	publish(opts.Publisher, opts.Job)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("label", opts.Stage.Label),
	)
	started := time.Now()

	result, err := invoke(stageCtx, opts.Stage.Body, opts.Job.Snapshot())
	if err != nil {
		return fail(logger, opts, name, err, "stage body failed")
	}
	if err := opts.Job.SetArtifacts(result.Artifacts); err != nil {
		return fmt.Errorf("record stage output: %w", err)
	}

	if post := opts.Stage.Post; post != nil {
		if err := post(opts.Job.Snapshot()); err != nil {
			return fail(logger, opts, name, err, "stage post-check failed")
		}
	}

	if err := opts.Job.CompleteStage(name, result.ResultURL); err != nil {
		return fmt.Errorf("record stage completion: %w", err)
	}
	publish(opts.Publisher, opts.Job)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("result_url", result.ResultURL),
	)
	return nil
}

func fail(logger *slog.Logger, opts Options, name string, stageErr error, msg string) error {
	reason := failureMessage(stageErr)
	if err := opts.Job.FailStage(name, reason); err != nil {
		return fmt.Errorf("record stage failure: %w", err)
	}
	publish(opts.Publisher, opts.Job)
	logging.ErrorWithContext(logger, msg, "stage_failure",
		logging.String("reason", reason),
		logging.String("error_kind", string(services.KindOf(stageErr))),
		logging.Error(stageErr),
	)
	return nil
}

// invoke runs body, converting a panic into an error so it stays inside the
// stage boundary.
func invoke(ctx context.Context, body stage.Body, state job.State) (result stage.Result, err error) {
	if body == nil {
		return stage.Result{Artifacts: state.Artifacts}, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrCollaborator, "", "", fmt.Sprintf("stage panicked: %v", r), nil)
		}
	}()
	return body(ctx, state)
}

func failureMessage(err error) string {
	if err == nil {
		return "stage failed"
	}
	message := strings.TrimSpace(services.Details(err).Message)
	if message == "" {
		message = strings.TrimSpace(err.Error())
	}
	return message
}

func publish(p Publisher, j *job.Job) {
	if p == nil {
		return
	}
	p.Publish(j.Snapshot())
}
