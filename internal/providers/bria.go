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

// BriaClient calls the Bria FIBO synchronous image generation API.
type BriaClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewBriaClient(baseURL, apiKey string, timeout time.Duration) *BriaClient {
	return &BriaClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type briaResponse struct {
	Result struct {
		ImageURL         string          `json:"image_url"`
		StructuredPrompt json.RawMessage `json:"structured_prompt"`
		Seed             int64           `json:"seed"`
	} `json:"result"`
}

func (c *BriaClient) Generate(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	body := map[string]any{"sync": true}
	if req.StructuredPrompt != "" {
		body["structured_prompt"] = req.StructuredPrompt
	}
	if req.Prompt != "" {
		body["prompt"] = req.Prompt
	}
	if req.Seed != nil {
		body["seed"] = *req.Seed
	}
	if len(req.ReferenceImages) > 0 {
		body["images"] = req.ReferenceImages
	}
	if req.AspectRatio != "" {
		body["aspect_ratio"] = req.AspectRatio
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/image/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("api_token", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("bria request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperr.Upstream("bria", resp.StatusCode, errBody)
	}

	var out briaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode bria response: %w", err)
	}
	if out.Result.ImageURL == "" {
		return nil, fmt.Errorf("bria response missing image_url")
	}

	return &ImageResult{
		ImageURL:         out.Result.ImageURL,
		StructuredPrompt: out.Result.StructuredPrompt,
		Seed:             out.Result.Seed,
	}, nil
}
