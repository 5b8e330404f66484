package stage

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"adgen/internal/services"
)

// Style is the closed set of model styles a job may request.
type Style string

const (
	StyleResort   Style = "resort"
	StyleRetro    Style = "retro"
	StyleRomantic Style = "romantic"

	// DefaultStyle applies when a submission names no style.
	DefaultStyle = StyleResort
)

// Worn garment categories implied by a model pose.
const (
	WearsTop      = "상의"
	WearsOnePiece = "원피스"
)

// StyleProfile is everything the pipeline derives from a style tag.
type StyleProfile struct {
	Style Style
	// Wears is the garment category the model already wears in this pose.
	Wears string
	// Template names the layout template used for the markup stage.
	Template string
}

// OnePiece reports whether the pose implies a one-piece outfit.
func (p StyleProfile) OnePiece() bool {
	return p.Wears == WearsOnePiece
}

// Label returns a title-cased display name for the style.
func (p StyleProfile) Label() string {
	return cases.Title(language.Und).String(string(p.Style))
}

var styleTable = map[Style]StyleProfile{
	StyleResort:   {Style: StyleResort, Wears: WearsTop, Template: "minimal"},
	StyleRetro:    {Style: StyleRetro, Wears: WearsTop, Template: "vintage"},
	StyleRomantic: {Style: StyleRomantic, Wears: WearsOnePiece, Template: "bold"},
}

// Styles returns the valid style tags in a stable order.
func Styles() []Style {
	out := make([]Style, 0, len(styleTable))
	for style := range styleTable {
		out = append(out, style)
	}
	slices.Sort(out)
	return out
}

// ParseStyle validates a submitted style. Tags are matched exactly, so
// "Retro" is rejected. Blank input selects DefaultStyle.
func ParseStyle(value string) (Style, error) {
	trimmed := Style(strings.TrimSpace(value))
	if trimmed == "" {
		return DefaultStyle, nil
	}
	if _, ok := styleTable[trimmed]; !ok {
		names := make([]string, 0, len(styleTable))
		for _, s := range Styles() {
			names = append(names, string(s))
		}
		return "", services.Wrap(services.ErrValidation, "", "parse style",
			fmt.Sprintf("invalid style %q: choose one of %s", value, strings.Join(names, ", ")), nil)
	}
	return trimmed, nil
}

// ProfileFor returns the profile of a style. Unknown tags fall back to a
// top-wearing pose with the default template.
func ProfileFor(style string) StyleProfile {
	if profile, ok := styleTable[Style(strings.ToLower(strings.TrimSpace(style)))]; ok {
		return profile
	}
	return StyleProfile{Style: Style(style), Wears: WearsTop, Template: styleTable[DefaultStyle].Template}
}
