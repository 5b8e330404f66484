package stages

import (
	"context"

	"adgen/internal/stage"
)

// Asset is what the catalogue knows about a registered product image.
type Asset struct {
	ContentID   string
	UserID      string
	ImageURL    string
	Category    string
	SubCategory string
	Color       string
	Material    string
	Fit         string
	StyleTags   []string
}

// AssetResolver looks up a content item owned by userID.
type AssetResolver interface {
	ResolveAsset(ctx context.Context, userID, contentID string) (Asset, error)
}

// BackgroundRemover strips the background from the image at imageURL and
// returns PNG bytes.
type BackgroundRemover interface {
	RemoveBackground(ctx context.Context, imageURL string) ([]byte, error)
}

// FitRequest describes a virtual fitting call.
type FitRequest struct {
	GarmentURL string
	Style      string
	Pose       string
	ModelIndex *int
	UserPrompt string
}

// Fitter dresses a model in the garment and returns PNG bytes.
type Fitter interface {
	Fit(ctx context.Context, req FitRequest) ([]byte, error)
}

// SceneRequest describes a background synthesis call.
type SceneRequest struct {
	ImageURL   string
	Style      string
	UserPrompt string
}

// SceneSynthesizer places the fitted image in a generated scene and returns
// PNG bytes.
type SceneSynthesizer interface {
	Synthesize(ctx context.Context, req SceneRequest) ([]byte, error)
}

// CaptionRequest describes a caption generation call.
type CaptionRequest struct {
	Style       string
	StyleLabel  string
	Category    string
	UserPrompt  string
	Keywords    []string
	MustInclude []string
}

// CaptionWriter writes a short ad caption.
type CaptionWriter interface {
	WriteCaption(ctx context.Context, req CaptionRequest) (string, error)
}

// LayoutRequest describes a markup composition call.
type LayoutRequest struct {
	Template    string
	ImageURL    string
	Caption     string
	Asset       Asset
	Keywords    []string
	MustInclude []string
}

// Layout is composed markup plus the ad copy fields that went into it.
type Layout struct {
	HTML   string
	AdCopy map[string]string
}

// LayoutComposer fills a layout template.
type LayoutComposer interface {
	Compose(ctx context.Context, req LayoutRequest) (Layout, error)
}

// Renderer turns markup into PNG bytes.
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// ObjectStore persists bytes under key and returns their public https URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// GenerationRecord is written once the scene image exists.
type GenerationRecord struct {
	ContentID string
	UserID    string
	Style     string
	ResultURL string
	Elapsed   float64
}

// CaptionRecord is written once a caption exists.
type CaptionRecord struct {
	ContentID    string
	UserID       string
	GenerationID string
	Caption      string
	Style        string
}

// AdCopyRecord is written once markup exists.
type AdCopyRecord struct {
	ContentID    string
	UserID       string
	CaptionID    string
	GenerationID string
	Template     string
	AdCopy       map[string]string
	HTML         string
}

// HistoryRecorder keeps the generation history records produced mid-pipeline.
type HistoryRecorder interface {
	RecordGeneration(ctx context.Context, rec GenerationRecord) (string, error)
	RecordCaption(ctx context.Context, rec CaptionRecord) (string, error)
	RecordAdCopy(ctx context.Context, rec AdCopyRecord) (string, error)
	SetAdCopyImage(ctx context.Context, adCopyID, imageURL string) error
}

// HealthChecker is implemented by collaborators that can report readiness.
type HealthChecker interface {
	HealthCheck(ctx context.Context) stage.Health
}
