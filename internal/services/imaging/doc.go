// Package imaging talks to the image provider gateway that performs
// background removal, virtual try-on, and scene synthesis.
//
// Every operation is a JSON POST. The gateway answers either with raw image
// bytes (Content-Type image/*) or with a JSON envelope carrying
// image_base64 or image_url; the client normalizes all three into PNG bytes.
// Provider failures surface as plain errors and are classified by the
// calling stage.
package imaging
