// Package storage keeps pipeline images in a local bucket directory and maps
// object keys to public https URLs.
//
// Writes land in a temp file beside the target and are renamed into place
// after a size and SHA-256 check, so a reader never sees a partial object.
package storage
