package imaging

import "strings"

var scenePrompts = map[string]string{
	"resort": "Transform this into a professional RESORT MAGAZINE advertisement. " +
		"Create a bright, clean, tropical vacation setting with: " +
		"white sand beach or poolside, palm trees, natural daylight, azure water background. " +
		"Style: Editorial magazine photography, bright and airy, luxury resort wear catalog. " +
		"Lighting: Natural sunlight, bright but soft shadows. " +
		"Mood: Relaxed, vacation vibes, sophisticated leisure. " +
		"Keep the clothing as main focus with professional model pose.",
	"retro": "Transform this into a Y2K FESTIVAL RETRO advertisement. " +
		"Create a vibrant retro setting with: " +
		"bright pop art colors (red, yellow, cyan), festival atmosphere, playful energy. " +
		"Style: NOT dark vintage - instead use bright 2000s aesthetic, fun and energetic. " +
		"Add retro patterns or geometric shapes as decorative elements. " +
		"Lighting: Bright and colorful, pop art style lighting. " +
		"Mood: Fun, energetic, festival party atmosphere.",
	"romantic": "Transform this into an ELEGANT BEIGE-GOLD ROMANTIC advertisement. " +
		"Create a sophisticated romantic setting with: " +
		"beige/cream/champagne color palette, soft golden lighting, elegant interior or garden. " +
		"Add elements: delicate flowers (roses, peonies), elegant furniture, soft curtains. " +
		"Style: Luxury brand photography, NOT bright pink - use beige and gold tones. " +
		"Lighting: Soft golden hour glow, dreamy but not overly bright. " +
		"Mood: Elegant, sophisticated, pure beauty, luxury romance.",
}

// ScenePrompt returns the scene synthesis prompt for style, with any user
// request appended. Unknown styles fall back to resort.
func ScenePrompt(style, userPrompt string) string {
	base, ok := scenePrompts[strings.ToLower(strings.TrimSpace(style))]
	if !ok {
		base = scenePrompts["resort"]
	}
	if extra := strings.TrimSpace(userPrompt); extra != "" {
		return base + "\n\nAdditional requirements: " + extra
	}
	return base
}

// fittingCategory maps the worn garment implied by a pose to the try-on
// model's garment category.
func fittingCategory(pose string) string {
	if pose == "원피스" {
		return "dresses"
	}
	return "upper_body"
}
