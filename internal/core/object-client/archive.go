package objectclient

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/markdave123-py/AmityBot/internal/core"
)

// Archive mirrors knowledge-base uploads into a bucket. The local data
// directory stays the source of truth for ingestion.
type Archive struct {
	client core.ObjectClient
	bucket string
	prefix string
}

func NewArchive(client core.ObjectClient, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket, prefix: "kb"}
}

// Key builds the object key for a stored file name. Stored names already
// carry a uuid, so the key is stable for the file's lifetime.
func (a *Archive) Key(storedName string) string {
	name := strings.ReplaceAll(strings.TrimSpace(path.Base(storedName)), " ", "_")
	return path.Join(a.prefix, name)
}

// Store uploads data and returns the object URL.
func (a *Archive) Store(ctx context.Context, storedName, contentType string, data []byte) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return a.client.UploadFile(ctx, a.bucket, a.Key(storedName), bytes.NewReader(data), contentType)
}

// Remove deletes the mirrored copy of a stored file.
func (a *Archive) Remove(ctx context.Context, storedName string) error {
	return a.client.DeleteFile(ctx, a.bucket, a.Key(storedName))
}
