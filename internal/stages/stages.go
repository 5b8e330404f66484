package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"adgen/internal/logging"
	"adgen/internal/services"
	"adgen/internal/stage"
)

// Dependencies are the collaborators the stage bodies call. History and
// Logger are optional.
type Dependencies struct {
	Assets   AssetResolver
	Remover  BackgroundRemover
	Fitter   Fitter
	Scenes   SceneSynthesizer
	Captions CaptionWriter
	Layouts  LayoutComposer
	Renderer Renderer
	Store    ObjectStore
	History  HistoryRecorder
	Logger   *slog.Logger
}

// Validate reports the first missing required collaborator.
func (d Dependencies) Validate() error {
	var missing []string
	if d.Assets == nil {
		missing = append(missing, "asset resolver")
	}
	if d.Remover == nil {
		missing = append(missing, "background remover")
	}
	if d.Fitter == nil {
		missing = append(missing, "fitter")
	}
	if d.Scenes == nil {
		missing = append(missing, "scene synthesizer")
	}
	if d.Captions == nil {
		missing = append(missing, "caption writer")
	}
	if d.Layouts == nil {
		missing = append(missing, "layout composer")
	}
	if d.Renderer == nil {
		missing = append(missing, "renderer")
	}
	if d.Store == nil {
		missing = append(missing, "object store")
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrConfiguration, "", "build stages",
			"missing collaborators: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// Build returns the pipeline stages in execution order, each paired with its
// gates and, where the collaborator supports it, a health check.
func Build(deps Dependencies) ([]stage.Stage, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	b := &bodies{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "stages")}

	table := map[string]struct {
		body         stage.Body
		collaborator any
	}{
		stage.SelectImage:        {b.selectImage, deps.Assets},
		stage.RemoveBackground:   {b.removeBackground, deps.Remover},
		stage.VirtualFitting:     {b.virtualFitting, deps.Fitter},
		stage.GenerateBackground: {b.generateBackground, deps.Scenes},
		stage.GenerateCaption:    {b.generateCaption, deps.Captions},
		stage.GenerateHTML:       {b.generateHTML, deps.Layouts},
		stage.SaveImage:          {b.saveImage, deps.Renderer},
	}

	out := make([]stage.Stage, 0, len(table))
	for _, name := range stage.Order() {
		entry, ok := table[name]
		if !ok {
			return nil, fmt.Errorf("build stages: no body for %q", name)
		}
		stg := stage.Stage{
			Name:  name,
			Label: stage.Label(name),
			Pre:   stage.PreCheck(name),
			Body:  entry.body,
			Post:  stage.PostCheck(name),
		}
		if checker, ok := entry.collaborator.(HealthChecker); ok {
			stg.Health = checker.HealthCheck
		}
		out = append(out, stg)
	}
	return out, nil
}

type bodies struct {
	deps   Dependencies
	logger *slog.Logger
}

// collaboratorError tags a raw collaborator failure. Errors that already
// carry a marker pass through so not-found and configuration problems keep
// their kind.
func collaboratorError(stageName, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrCollaborator, stageName, operation, operation+" interrupted: "+err.Error(), err)
	}
	if services.KindOf(err) != services.KindUnknown {
		return err
	}
	return services.Wrap(services.ErrCollaborator, stageName, operation, fmt.Sprintf("%s failed: %v", operation, err), err)
}
