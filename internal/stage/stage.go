package stage

import (
	"context"

	"adgen/internal/job"
)

// Names of the stages in the ad generation pipeline, in execution order.
const (
	SelectImage        = "select_image"
	RemoveBackground   = "remove_background"
	VirtualFitting     = "virtual_fitting"
	GenerateBackground = "generate_background"
	GenerateCaption    = "generate_caption"
	GenerateHTML       = "generate_html"
	SaveImage          = "save_image"
)

var labels = map[string]string{
	SelectImage:        "상품 이미지 선택",
	RemoveBackground:   "배경 제거",
	VirtualFitting:     "가상 모델 피팅",
	GenerateBackground: "배경 생성",
	GenerateCaption:    "광고 캡션 생성",
	GenerateHTML:       "HTML 광고 페이지 생성",
	SaveImage:          "페이지 이미지 저장",
}

// Order lists the pipeline stages in execution order.
func Order() []string {
	return []string{
		SelectImage,
		RemoveBackground,
		VirtualFitting,
		GenerateBackground,
		GenerateCaption,
		GenerateHTML,
		SaveImage,
	}
}

// Label returns the display label for a stage name, or the name itself.
func Label(name string) string {
	if label, ok := labels[name]; ok {
		return label
	}
	return name
}

// Check inspects a snapshot before or after a stage body. A nil error passes.
type Check func(job.State) error

// Result is what a stage body hands back: the full artifact set after its
// work and the artifact reference recorded on the stage, if any.
type Result struct {
	Artifacts job.Artifacts
	ResultURL string
}

// Body performs the external work of a stage against a snapshot of the job.
type Body func(ctx context.Context, state job.State) (Result, error)

// Stage describes one pipeline step. Nil Pre or Post means no gate. Health,
// when set, reports whether the collaborator behind Body is reachable.
type Stage struct {
	Name   string
	Label  string
	Pre    Check
	Body   Body
	Post   Check
	Health func(ctx context.Context) Health
}
