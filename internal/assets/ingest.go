package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/roomforge/roomforge-backend/internal/apperr"
)

var dataURIPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// Ingestor persists image payloads to blob storage. Provider result URLs are
// not assumed durable, so generated images are always re-uploaded here.
type Ingestor struct {
	blob   Blob
	client *http.Client
}

func NewIngestor(blob Blob) *Ingestor {
	return &Ingestor{
		blob: blob,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// StoreBase64 decodes inline image data (optionally wrapped in a data-URI
// prefix) and stores it as a public PNG under path.
func (i *Ingestor) StoreBase64(ctx context.Context, data, path string) (string, error) {
	raw := dataURIPrefix.ReplaceAllString(data, "")

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", apperr.Validation("decode image data: %v", err)
	}

	return i.blob.Put(ctx, path, decoded, "image/png")
}

// StoreFromURL downloads a remote image and stores it as a public PNG
// under path.
func (i *Ingestor) StoreFromURL(ctx context.Context, srcURL, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperr.Upstream("image fetch", resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read image body: %w", err)
	}

	return i.blob.Put(ctx, path, data, "image/png")
}

// FetchBase64 downloads a remote image and returns it base64-encoded without
// storing it. Used to inline reference images for the vision provider.
func (i *Ingestor) FetchBase64(ctx context.Context, srcURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperr.Upstream("image fetch", resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read image body: %w", err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}
