package layout

import (
	"context"
	"fmt"
	"strings"

	"adgen/internal/config"
	"adgen/internal/services"
	"adgen/internal/stages"
)

const (
	defaultWidth  = 1080
	defaultHeight = 1080
)

// Page is the data every template receives.
type Page struct {
	Width    int
	Height   int
	ImageURL string
	Copy     map[string]string
}

// Composer fills catalogue templates.
type Composer struct {
	catalog *Catalog
	width   int
	height  int
}

// NewComposer returns a composer for catalog sized to width x height. Non
// positive sizes fall back to 1080.
func NewComposer(catalog *Catalog, width, height int) *Composer {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return &Composer{catalog: catalog, width: width, height: height}
}

// NewFromConfig returns a composer over the built-in catalogue sized to the
// renderer canvas.
func NewFromConfig(cfg *config.Config) (*Composer, error) {
	catalog, err := Builtin()
	if err != nil {
		return nil, err
	}
	return NewComposer(catalog, cfg.Renderer.Width, cfg.Renderer.Height), nil
}

// Compose executes the requested template.
func (c *Composer) Compose(ctx context.Context, req stages.LayoutRequest) (stages.Layout, error) {
	if err := ctx.Err(); err != nil {
		return stages.Layout{}, err
	}
	name := strings.ToLower(strings.TrimSpace(req.Template))
	e, ok := c.catalog.entries[name]
	if !ok {
		return stages.Layout{}, services.Wrap(services.ErrValidation, "", "compose layout",
			fmt.Sprintf("unknown template %q (available: %s)", req.Template, strings.Join(c.catalog.Names(), ", ")), nil)
	}
	adCopy := BuildCopy(e.def, req)
	var b strings.Builder
	if err := e.tmpl.Execute(&b, Page{
		Width:    c.width,
		Height:   c.height,
		ImageURL: req.ImageURL,
		Copy:     adCopy,
	}); err != nil {
		return stages.Layout{}, fmt.Errorf("execute template %s: %w", name, err)
	}
	return stages.Layout{HTML: b.String(), AdCopy: adCopy}, nil
}

// BuildCopy derives the ad copy fields for a template from the request.
func BuildCopy(def Definition, req stages.LayoutRequest) map[string]string {
	category := firstNonEmpty(req.Asset.SubCategory, req.Asset.Category, "상품")
	keywords := trimAll(req.Keywords)

	headline := category + " 특가"
	if len(keywords) > 0 {
		headline = keywords[0]
	}
	subtext := strings.TrimSpace(strings.Join(trimAll([]string{req.Asset.Color, req.Asset.Material, req.Asset.Fit}), " "))

	adCopy := map[string]string{
		"template": def.Name,
		"brand":    def.Brand,
		"headline": headline,
		"caption":  strings.TrimSpace(req.Caption),
	}
	if subtext != "" {
		adCopy["subtext"] = subtext
	}
	if phrases := trimAll(req.MustInclude); len(phrases) > 0 {
		adCopy["highlight"] = strings.Join(phrases, " · ")
	}
	tags := keywords
	if len(tags) == 0 {
		tags = trimAll(req.Asset.StyleTags)
	}
	if len(tags) > 0 {
		hashed := make([]string, len(tags))
		for i, tag := range tags {
			hashed[i] = "#" + strings.ReplaceAll(tag, " ", "")
		}
		adCopy["tags"] = strings.Join(hashed, " ")
	}
	return adCopy
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
