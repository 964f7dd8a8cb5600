package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/roomforge/roomforge-backend/internal/apperr"
)

// TrellisClient calls the fal.ai Trellis image-to-3D endpoint.
type TrellisClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewTrellisClient(baseURL, apiKey string, timeout time.Duration) *TrellisClient {
	return &TrellisClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *TrellisClient) Reconstruct(ctx context.Context, imageURL string) (map[string]any, error) {
	payload, err := json.Marshal(map[string]string{"image_url": imageURL})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/fal-ai/trellis", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("trellis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperr.Upstream("trellis", resp.StatusCode, errBody)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode trellis response: %w", err)
	}
	return out, nil
}
