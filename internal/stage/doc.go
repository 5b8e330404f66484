// Package stage defines the pipeline stage descriptor and the gates that
// guard each stage.
//
// A Stage pairs an opaque Body with optional Pre and Post checks. The checks
// for the ad pipeline live here as pure functions over a job snapshot: image
// references must be https URLs, generated text must meet a minimum length,
// and the virtual fitting stage refuses product categories that clash with
// the garment worn in the selected style's model pose. The style table is
// closed; every style-dependent decision (worn garment, layout template) is
// read from it.
package stage
