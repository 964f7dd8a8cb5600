// Package providers holds the call contracts to the three external
// generative services. Each provider sits behind a narrow interface so the
// generation pipelines can run against fakes.
package providers

import (
	"context"
	"encoding/json"
)

// ImageRequest is one synchronous image generation call.
type ImageRequest struct {
	// Prompt and StructuredPrompt are alternatives; either may be set.
	// StructuredPrompt is the serialized form (Bria accepts it as a string).
	Prompt           string
	StructuredPrompt string
	Seed             *int64
	// ReferenceImages are base64 payloads or public URLs.
	ReferenceImages []string
	AspectRatio     string
}

// ImageResult is the provider's synchronous answer. StructuredPrompt is
// echoed back either as a JSON string or an already-structured object, so it
// stays raw until the orchestrator parses it.
type ImageResult struct {
	ImageURL         string
	StructuredPrompt json.RawMessage
	Seed             int64
}

type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// VisionRequest is one synchronous vision-language call.
type VisionRequest struct {
	Prompt string
	// Model overrides the configured default when set.
	Model string
	// InlineImage is base64 image data; ImageURI passes a hosted file
	// straight through. InlineImage wins when both are set.
	InlineImage string
	ImageURI    string
	MimeType    string
	// JSONOutput asks the model for an application/json response.
	JSONOutput bool
	// ThinkingLevel is passed through for models that support it.
	ThinkingLevel   string
	Temperature     float64
	MaxOutputTokens int
}

type VisionAnalyzer interface {
	Analyze(ctx context.Context, req VisionRequest) (string, error)
}

// MeshReconstructor turns a stored image into a 3D mesh. The response shape
// is provider-defined, so it is returned as a raw JSON document.
type MeshReconstructor interface {
	Reconstruct(ctx context.Context, imageURL string) (map[string]any, error)
}
