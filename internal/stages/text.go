package stages

import (
	"context"
	"errors"
	"strings"

	"adgen/internal/job"
	"adgen/internal/logging"
	"adgen/internal/stage"
)

var errEmptyImage = errors.New("collaborator returned no image data")

func (b *bodies) generateCaption(ctx context.Context, s job.State) (stage.Result, error) {
	profile := stage.ProfileFor(s.Style)
	caption, err := b.deps.Captions.WriteCaption(ctx, CaptionRequest{
		Style:       string(profile.Style),
		StyleLabel:  profile.Label(),
		Category:    s.Artifacts.ProductCategory,
		UserPrompt:  s.UserPrompt,
		Keywords:    s.AdInputs.Keywords,
		MustInclude: s.AdInputs.MustInclude,
	})
	if err != nil {
		return stage.Result{}, collaboratorError(stage.GenerateCaption, "caption generation", err)
	}
	s.Artifacts.Caption = strings.TrimSpace(caption)

	if b.deps.History != nil && s.Artifacts.Caption != "" {
		id, err := b.deps.History.RecordCaption(ctx, CaptionRecord{
			ContentID:    s.ContentID,
			UserID:       s.UserID,
			GenerationID: s.Artifacts.GenerationID,
			Caption:      s.Artifacts.Caption,
			Style:        s.Style,
		})
		if err != nil {
			return stage.Result{}, collaboratorError(stage.GenerateCaption, "record caption", err)
		}
		s.Artifacts.CaptionID = id
	}
	return stage.Result{Artifacts: s.Artifacts}, nil
}

func (b *bodies) generateHTML(ctx context.Context, s job.State) (stage.Result, error) {
	profile := stage.ProfileFor(s.Style)
	asset, err := b.deps.Assets.ResolveAsset(ctx, s.UserID, s.ContentID)
	if err != nil {
		b.logger.Warn("content metadata unavailable for layout; using category only",
			logging.String(logging.FieldJobID, s.JobID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "layout_metadata_missing"),
			logging.String(logging.FieldErrorHint, "check the content catalogue"),
			logging.String(logging.FieldImpact, "ad copy omits product attributes"),
		)
		asset = Asset{ContentID: s.ContentID, Category: s.Artifacts.ProductCategory}
	}

	layout, err := b.deps.Layouts.Compose(ctx, LayoutRequest{
		Template:    profile.Template,
		ImageURL:    s.Artifacts.BackgroundImageURL,
		Caption:     s.Artifacts.Caption,
		Asset:       asset,
		Keywords:    s.AdInputs.Keywords,
		MustInclude: s.AdInputs.MustInclude,
	})
	if err != nil {
		return stage.Result{}, collaboratorError(stage.GenerateHTML, "layout composition", err)
	}
	s.Artifacts.HTMLContent = layout.HTML

	if b.deps.History != nil && strings.TrimSpace(layout.HTML) != "" {
		id, err := b.deps.History.RecordAdCopy(ctx, AdCopyRecord{
			ContentID:    s.ContentID,
			UserID:       s.UserID,
			CaptionID:    s.Artifacts.CaptionID,
			GenerationID: s.Artifacts.GenerationID,
			Template:     profile.Template,
			AdCopy:       layout.AdCopy,
			HTML:         layout.HTML,
		})
		if err != nil {
			return stage.Result{}, collaboratorError(stage.GenerateHTML, "record ad copy", err)
		}
		s.Artifacts.AdCopyID = id
	}
	return stage.Result{Artifacts: s.Artifacts}, nil
}

func (b *bodies) saveImage(ctx context.Context, s job.State) (stage.Result, error) {
	data, err := b.deps.Renderer.Render(ctx, s.Artifacts.HTMLContent)
	if err != nil {
		return stage.Result{}, collaboratorError(stage.SaveImage, "render", err)
	}
	url, err := b.store(ctx, stage.SaveImage, FinalKey(s.UserID), data)
	if err != nil {
		return stage.Result{}, err
	}
	s.Artifacts.FinalImageURL = url

	if b.deps.History != nil && s.Artifacts.AdCopyID != "" {
		if err := b.deps.History.SetAdCopyImage(ctx, s.Artifacts.AdCopyID, url); err != nil {
			logging.WarnWithContext(b.logger, "ad copy record not updated with final image", "ad_copy_update_failed",
				logging.String(logging.FieldJobID, s.JobID),
				logging.String("ad_copy_id", s.Artifacts.AdCopyID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "history lacks the final image link"),
			)
		}
	}
	return stage.Result{Artifacts: s.Artifacts, ResultURL: url}, nil
}
