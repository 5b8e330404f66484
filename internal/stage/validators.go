package stage

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"adgen/internal/job"
	"adgen/internal/services"
)

// Minimum lengths for text produced inside the pipeline, counted in characters.
const (
	MinTextLength    = 5
	MinCaptionLength = 10
	MinMarkupLength  = 100
)

// RequireImageURL fails unless url is present and externally fetchable.
func RequireImageURL(stageName, subject, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return gateError(stageName, subject+": image url is missing")
	}
	if !strings.HasPrefix(url, "https://") {
		return gateError(stageName, subject+": image url is not a valid https reference")
	}
	return nil
}

// RequireText fails unless text holds at least minLength characters.
func RequireText(stageName, subject, text string, minLength int) error {
	if strings.TrimSpace(text) == "" {
		return gateError(stageName, subject+": result is empty")
	}
	if utf8.RuneCountInString(text) < minLength {
		return gateError(stageName, fmt.Sprintf("%s: result is too short (minimum %d characters)", subject, minLength))
	}
	return nil
}

func gateError(stageName, message string) error {
	return services.Wrap(services.ErrValidation, stageName, "gate", message, nil)
}

// PreCheck returns the entry gate of the named stage, or nil.
func PreCheck(name string) Check {
	return preChecks[name]
}

// PostCheck returns the exit gate of the named stage, or nil.
func PostCheck(name string) Check {
	return postChecks[name]
}

var preChecks = map[string]Check{
	SelectImage: func(s job.State) error {
		if strings.TrimSpace(s.ContentID) == "" {
			return gateError(SelectImage, "content id is missing")
		}
		return nil
	},
	RemoveBackground: func(s job.State) error {
		return RequireImageURL(RemoveBackground, "background removal input", s.Artifacts.ProductImageURL)
	},
	VirtualFitting: func(s job.State) error {
		if err := RequireImageURL(VirtualFitting, "virtual fitting input", s.Artifacts.RemovedBgURL); err != nil {
			return err
		}
		return CheckCategoryConflict(s.Artifacts.ProductCategory, s.Style)
	},
	GenerateBackground: func(s job.State) error {
		return RequireImageURL(GenerateBackground, "background input", s.Artifacts.FittedImageURL)
	},
	GenerateCaption: func(s job.State) error {
		return RequireImageURL(GenerateCaption, "caption input", s.Artifacts.BackgroundImageURL)
	},
	GenerateHTML: func(s job.State) error {
		return RequireText(GenerateHTML, "markup input caption", s.Artifacts.Caption, MinTextLength)
	},
	SaveImage: func(s job.State) error {
		return RequireText(SaveImage, "render input markup", s.Artifacts.HTMLContent, MinMarkupLength)
	},
}

var postChecks = map[string]Check{
	SelectImage: func(s job.State) error {
		return RequireImageURL(SelectImage, "selected product image", s.Artifacts.ProductImageURL)
	},
	RemoveBackground: func(s job.State) error {
		return RequireImageURL(RemoveBackground, "background removal result", s.Artifacts.RemovedBgURL)
	},
	VirtualFitting: func(s job.State) error {
		return RequireImageURL(VirtualFitting, "virtual fitting result", s.Artifacts.FittedImageURL)
	},
	GenerateBackground: func(s job.State) error {
		return RequireImageURL(GenerateBackground, "background result", s.Artifacts.BackgroundImageURL)
	},
	GenerateCaption: func(s job.State) error {
		return RequireText(GenerateCaption, "caption", s.Artifacts.Caption, MinCaptionLength)
	},
	GenerateHTML: func(s job.State) error {
		return RequireText(GenerateHTML, "markup", s.Artifacts.HTMLContent, MinMarkupLength)
	},
	SaveImage: func(s job.State) error {
		return RequireImageURL(SaveImage, "final image", s.Artifacts.FinalImageURL)
	},
}
