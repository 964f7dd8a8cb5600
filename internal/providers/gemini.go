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

const defaultMaxOutputTokens = 8192

// GeminiClient calls the Gemini generateContent REST API. The raw REST
// surface is used instead of an SDK because the detection calls need
// generationConfig knobs (thinking level, response MIME type) passed through
// as-is.
type GeminiClient struct {
	baseURL      string
	apiKey       string
	defaultModel string
	client       *http.Client
}

func NewGeminiClient(baseURL, apiKey, defaultModel string, timeout time.Duration) *GeminiClient {
	return &GeminiClient{
		baseURL:      baseURL,
		apiKey:       apiKey,
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: timeout},
	}
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) Analyze(ctx context.Context, req VisionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	mime := req.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}

	parts := []map[string]any{{"text": req.Prompt}}
	switch {
	case req.InlineImage != "":
		parts = append(parts, map[string]any{
			"inline_data": map[string]any{"mime_type": mime, "data": req.InlineImage},
		})
	case req.ImageURI != "":
		parts = append(parts, map[string]any{
			"file_data": map[string]any{"mime_type": mime, "file_uri": req.ImageURI},
		})
	}

	maxTokens := req.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxOutputTokens
	}
	genCfg := map[string]any{
		"temperature":     req.Temperature,
		"maxOutputTokens": maxTokens,
	}
	if req.JSONOutput {
		genCfg["responseMimeType"] = "application/json"
	}
	if req.ThinkingLevel != "" {
		genCfg["thinkingConfig"] = map[string]any{"thinkingLevel": req.ThinkingLevel}
	}

	payload, err := json.Marshal(map[string]any{
		"contents":         []map[string]any{{"parts": parts}},
		"generationConfig": genCfg,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperr.Upstream("gemini", resp.StatusCode, errBody)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no text")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
