package assets

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/roomforge/roomforge-backend/internal/apperr"
)

// ObjectInfo describes one stored object in a listing.
type ObjectInfo struct {
	Name string `json:"name"`
	Path string `json:"fullPath"`
	URL  string `json:"url"`
}

// Blob is the storage collaborator contract: put bytes under a path and get
// back a stable public URL, read them back, delete them, list a prefix.
type Blob interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix, pageToken string, pageSize int) ([]ObjectInfo, string, error)
}

// GCSBlob stores objects in a Cloud Storage bucket, public-read, addressed
// as https://storage.googleapis.com/{bucket}/{path}.
type GCSBlob struct {
	bucket     *storage.BucketHandle
	bucketName string
}

func NewGCSBlob(bucket *storage.BucketHandle, bucketName string) *GCSBlob {
	return &GCSBlob{bucket: bucket, bucketName: bucketName}
}

func (b *GCSBlob) publicURL(path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b.bucketName, path)
}

func (b *GCSBlob) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	obj := b.bucket.Object(path)

	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", path, err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("make object public %s: %w", path, err)
	}

	return b.publicURL(path), nil
}

func (b *GCSBlob) Get(ctx context.Context, path string) ([]byte, error) {
	r, err := b.bucket.Object(path).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, apperr.NotFound("object %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", path, err)
	}
	return data, nil
}

func (b *GCSBlob) Delete(ctx context.Context, path string) error {
	err := b.bucket.Object(path).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return apperr.NotFound("object %s", path)
	}
	return err
}

func (b *GCSBlob) List(ctx context.Context, prefix, pageToken string, pageSize int) ([]ObjectInfo, string, error) {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	pager := iterator.NewPager(it, pageSize, pageToken)

	var attrs []*storage.ObjectAttrs
	next, err := pager.NextPage(&attrs)
	if err != nil {
		return nil, "", fmt.Errorf("list prefix %s: %w", prefix, err)
	}

	out := make([]ObjectInfo, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, ObjectInfo{
			Name: baseName(a.Name),
			Path: a.Name,
			URL:  b.publicURL(a.Name),
		})
	}
	return out, next, nil
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
