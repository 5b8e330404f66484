package stages

import (
	"path"

	"github.com/google/uuid"

	"adgen/internal/storage"
)

const pngContentType = "image/png"

// IntermediateKey is the object key of an image produced mid-pipeline.
func IntermediateKey(jobID, name string) string {
	return path.Join(storage.IntermediatePrefix, jobID, name+".png")
}

// FinalKey returns a fresh object key for a rendered ad owned by userID.
func FinalKey(userID string) string {
	return path.Join(userID, "ads", "ad_"+uuid.NewString()+".png")
}
