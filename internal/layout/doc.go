// Package layout fills ad page templates.
//
// The template catalogue is a YAML document embedded in the binary. Each entry
// carries an html/template body that receives the image reference, the canvas
// size, and the ad copy fields derived from the caption, the product metadata,
// and the caller's keywords and required phrases. html/template escapes every
// field, so captions can never inject markup into the rendered page.
package layout
