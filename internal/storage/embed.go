package storage

import (
	"context"
	"log"

	"realtime-editor/internal/model"
	"realtime-editor/internal/store"
)

// Attribute keys used by image embedding.
const (
	KeyS3Key     = "s3_key"
	KeyBlobIndex = "blob_index"
)

// EmbedImages fetches the bytes of every image shape in tree that carries an
// s3_key attribute and returns them in frame order. Each embedded shape gets
// a blob_index attribute; shapes whose fetch fails are left URL-only.
func EmbedImages(ctx context.Context, f BlobFetcher, tree *store.DocumentTree) [][]byte {
	if f == nil || tree == nil {
		return nil
	}

	var blobs [][]byte
	for _, page := range tree.Pages {
		for _, sh := range page.Shapes {
			if kind, _ := sh["kind"].(string); kind != model.ShapeKindImage.String() {
				continue
			}
			key, _ := sh[KeyS3Key].(string)
			if key == "" {
				continue
			}
			data, err := f.Fetch(ctx, key)
			if err != nil {
				log.Printf("[S3] Skipping blob for shape %v: %v", sh["id"], err)
				continue
			}
			sh[KeyBlobIndex] = len(blobs)
			blobs = append(blobs, data)
		}
	}
	return blobs
}
