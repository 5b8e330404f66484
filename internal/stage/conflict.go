package stage

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"adgen/internal/services"
)

// Product categories the conflict rule knows about.
const (
	CategoryTop    = "상의"
	CategoryBottom = "하의"
	CategoryOuter  = "아우터"
)

// conflicts maps a product category to the worn categories it cannot be
// fitted over.
var conflicts = map[string][]string{
	CategoryTop:    {"원피스", "드레스", "점프수트"},
	CategoryBottom: {"원피스", "드레스", "점프수트"},
	CategoryOuter:  nil,
}

// NormalizeCategory trims a category label and brings it to NFC so
// decomposed Hangul from upstream metadata matches the table.
func NormalizeCategory(category string) string {
	return norm.NFC.String(strings.TrimSpace(category))
}

// CheckCategoryConflict rejects a product category that cannot be fitted
// onto the pose implied by style. A missing category passes.
func CheckCategoryConflict(category, style string) error {
	category = NormalizeCategory(category)
	if category == "" {
		return nil
	}
	profile := ProfileFor(style)
	if !slices.Contains(conflicts[category], profile.Wears) {
		return nil
	}
	message := fmt.Sprintf(
		"category conflict: a '%s' product cannot be fitted onto the '%s' style model (wearing %s); choose the resort or retro style",
		category, style, profile.Wears,
	)
	return services.Wrap(services.ErrConflict, VirtualFitting, "precheck", message, nil)
}
