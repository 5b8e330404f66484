package stages

import (
	"context"
	"time"

	"adgen/internal/job"
	"adgen/internal/logging"
	"adgen/internal/stage"
)

func (b *bodies) selectImage(ctx context.Context, s job.State) (stage.Result, error) {
	asset, err := b.deps.Assets.ResolveAsset(ctx, s.UserID, s.ContentID)
	if err != nil {
		return stage.Result{}, collaboratorError(stage.SelectImage, "resolve content", err)
	}
	s.Artifacts.ProductImageURL = asset.ImageURL
	s.Artifacts.ProductCategory = stage.NormalizeCategory(asset.Category)
	return stage.Result{Artifacts: s.Artifacts, ResultURL: asset.ImageURL}, nil
}

func (b *bodies) removeBackground(ctx context.Context, s job.State) (stage.Result, error) {
	data, err := b.deps.Remover.RemoveBackground(ctx, s.Artifacts.ProductImageURL)
	if err != nil {
		return stage.Result{}, collaboratorError(stage.RemoveBackground, "background removal", err)
	}
	url, err := b.store(ctx, stage.RemoveBackground, IntermediateKey(s.JobID, "removed_bg"), data)
	if err != nil {
		return stage.Result{}, err
	}
	s.Artifacts.RemovedBgURL = url
	return stage.Result{Artifacts: s.Artifacts, ResultURL: url}, nil
}

func (b *bodies) virtualFitting(ctx context.Context, s job.State) (stage.Result, error) {
	profile := stage.ProfileFor(s.Style)
	data, err := b.deps.Fitter.Fit(ctx, FitRequest{
		GarmentURL: s.Artifacts.RemovedBgURL,
		Style:      string(profile.Style),
		Pose:       profile.Wears,
		ModelIndex: s.ModelIndex,
		UserPrompt: s.UserPrompt,
	})
	if err != nil {
		return stage.Result{}, collaboratorError(stage.VirtualFitting, "virtual fitting", err)
	}
	url, err := b.store(ctx, stage.VirtualFitting, IntermediateKey(s.JobID, "fitted"), data)
	if err != nil {
		return stage.Result{}, err
	}
	s.Artifacts.FittedImageURL = url
	return stage.Result{Artifacts: s.Artifacts, ResultURL: url}, nil
}

func (b *bodies) generateBackground(ctx context.Context, s job.State) (stage.Result, error) {
	started := time.Now()
	data, err := b.deps.Scenes.Synthesize(ctx, SceneRequest{
		ImageURL:   s.Artifacts.FittedImageURL,
		Style:      s.Style,
		UserPrompt: s.UserPrompt,
	})
	if err != nil {
		return stage.Result{}, collaboratorError(stage.GenerateBackground, "background synthesis", err)
	}
	url, err := b.store(ctx, stage.GenerateBackground, IntermediateKey(s.JobID, "background"), data)
	if err != nil {
		return stage.Result{}, err
	}
	s.Artifacts.BackgroundImageURL = url

	if b.deps.History != nil {
		id, err := b.deps.History.RecordGeneration(ctx, GenerationRecord{
			ContentID: s.ContentID,
			UserID:    s.UserID,
			Style:     s.Style,
			ResultURL: url,
			Elapsed:   time.Since(started).Seconds(),
		})
		if err != nil {
			return stage.Result{}, collaboratorError(stage.GenerateBackground, "record generation", err)
		}
		s.Artifacts.GenerationID = id
	}
	return stage.Result{Artifacts: s.Artifacts, ResultURL: url}, nil
}

func (b *bodies) store(ctx context.Context, stageName, key string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", collaboratorError(stageName, "image generation", errEmptyImage)
	}
	url, err := b.deps.Store.Put(ctx, key, pngContentType, data)
	if err != nil {
		return "", collaboratorError(stageName, "upload", err)
	}
	b.logger.Debug("stored stage image",
		logging.String(logging.FieldStage, stageName),
		logging.String("key", key),
		logging.Int("bytes", len(data)),
	)
	return url, nil
}
