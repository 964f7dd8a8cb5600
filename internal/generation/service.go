package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roomforge/roomforge-backend/internal/apperr"
	"github.com/roomforge/roomforge-backend/internal/assets"
	"github.com/roomforge/roomforge-backend/internal/providers"
	"github.com/roomforge/roomforge-backend/internal/quota"
)

// scenePrompt wraps the stage-1 item list for the stage-2 generation call.
// The list is embedded verbatim; the constraint line keeps the model from
// inventing items.
const scenePrompt = `You are a professional interior designer converting real photos of interiors into pixel-perfect lifelike recreations. Given a reference image and a detailed description below, recreate the scene as accurately as possible. Preserve perspectives, colors, and objects as-is. Generate a structured prompt from the description.

Your task is to create a structured prompt that encapsulates the essence of the items below. Do NOT include any items that are not mentioned in this itemized list.

%s`

// variantPrompt drives every branch of the fan-out render pipeline.
const variantPrompt = "You must maintain and accurately describe all objects in the scene without changing any of their aspects, and accurately describe their spatial relations to each other. Then, create the photorealistic 3D render of the room for interior design. Add HDR lighting effect."

// meshExtensions are the suffixes accepted as a mesh URL in a
// reconstruction response.
var meshExtensions = []string{".glb", ".gltf", ".obj"}

var dataURIPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// UsageLedger is the slice of the quota ledger the pipelines need;
// *quota.Ledger satisfies it.
type UsageLedger interface {
	Check(ctx context.Context, userID string, res quota.Resource) (int64, error)
	Commit(ctx context.Context, userID string, res quota.Resource, count int64) error
}

// Service sequences the generation pipelines. Every pipeline follows the
// same shape: quota check up front, provider calls, asset ingestion, and a
// usage commit only after the last stage succeeds. A failure anywhere before
// the commit leaves usage untouched.
type Service struct {
	ledger   UsageLedger
	images   providers.ImageGenerator
	vision   providers.VisionAnalyzer
	mesh     providers.MeshReconstructor
	ingestor *assets.Ingestor

	bucketName   string
	variantCount int
}

func NewService(
	ledger UsageLedger,
	images providers.ImageGenerator,
	vision providers.VisionAnalyzer,
	mesh providers.MeshReconstructor,
	ingestor *assets.Ingestor,
	bucketName string,
	variantCount int,
) *Service {
	if variantCount < 1 {
		variantCount = 1
	}
	return &Service{
		ledger:       ledger,
		images:       images,
		vision:       vision,
		mesh:         mesh,
		ingestor:     ingestor,
		bucketName:   bucketName,
		variantCount: variantCount,
	}
}

func renderPath(userID, filename string) string {
	return fmt.Sprintf("users/%s/renders/%s", userID, filename)
}

// GenerateImageInput carries either a structured prompt (string or object)
// or a free-text prompt, with an optional seed and reference image.
type GenerateImageInput struct {
	StructuredPrompt json.RawMessage `json:"structuredPrompt"`
	Prompt           string          `json:"prompt"`
	Seed             *int64          `json:"seed"`
	ImageBase64      string          `json:"imageBase64"`
}

type GenerateImageOutput struct {
	ImageURL         string `json:"imageUrl"`
	StructuredPrompt any    `json:"structuredPrompt"`
	Seed             int64  `json:"seed"`
	OriginalURL      string `json:"originalUrl"`
}

// GenerateImage is the single-stage image pipeline.
func (s *Service) GenerateImage(ctx context.Context, userID string, in GenerateImageInput) (*GenerateImageOutput, error) {
	if len(in.StructuredPrompt) == 0 && in.Prompt == "" {
		return nil, apperr.Validation("structuredPrompt or prompt is required")
	}

	if _, err := s.ledger.Check(ctx, userID, quota.ResourceImage); err != nil {
		return nil, err
	}

	req := providers.ImageRequest{
		Prompt: in.Prompt,
		Seed:   in.Seed,
	}
	if len(in.StructuredPrompt) > 0 {
		req.StructuredPrompt = rawToString(in.StructuredPrompt)
	}
	if in.ImageBase64 != "" {
		req.ReferenceImages = []string{in.ImageBase64}
	}

	res, err := s.images.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	storedURL, err := s.ingestor.StoreFromURL(ctx, res.ImageURL, renderPath(userID, sessionID+".png"))
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Commit(ctx, userID, quota.ResourceImage, 1); err != nil {
		return nil, err
	}

	return &GenerateImageOutput{
		ImageURL:         storedURL,
		StructuredPrompt: parseStructuredPrompt(res.StructuredPrompt),
		Seed:             res.Seed,
		OriginalURL:      res.ImageURL,
	}, nil
}

type GenerateSceneInput struct {
	ImageBase64    string `json:"imageBase64"`
	MimeType       string `json:"mimeType"`
	AnalysisPrompt string `json:"analysisPrompt"`
}

type GenerateSceneOutput struct {
	FurnitureList    string `json:"furnitureList"`
	StructuredPrompt any    `json:"structuredPrompt"`
	Seed             int64  `json:"seed"`
	ImageURL         string `json:"imageUrl"`
}

// GenerateScene is the two-stage pipeline: vision analysis of the reference
// image, then generation from a prompt derived from the analysis. Stage 2
// never runs when stage 1 fails, and usage is committed only after both
// stages and the storage write succeed.
func (s *Service) GenerateScene(ctx context.Context, userID string, in GenerateSceneInput) (*GenerateSceneOutput, error) {
	if in.ImageBase64 == "" || in.AnalysisPrompt == "" {
		return nil, apperr.Validation("imageBase64 and analysisPrompt are required")
	}

	if _, err := s.ledger.Check(ctx, userID, quota.ResourceImage); err != nil {
		return nil, err
	}

	furnitureList, err := s.vision.Analyze(ctx, providers.VisionRequest{
		Prompt:      in.AnalysisPrompt,
		InlineImage: in.ImageBase64,
		MimeType:    in.MimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("scene analysis: %w", err)
	}
	if strings.TrimSpace(furnitureList) == "" {
		return nil, fmt.Errorf("scene analysis returned no item list")
	}

	res, err := s.images.Generate(ctx, providers.ImageRequest{
		Prompt:          fmt.Sprintf(scenePrompt, furnitureList),
		ReferenceImages: []string{in.ImageBase64},
	})
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	storedURL, err := s.ingestor.StoreFromURL(ctx, res.ImageURL, renderPath(userID, sessionID+".png"))
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Commit(ctx, userID, quota.ResourceImage, 1); err != nil {
		return nil, err
	}

	return &GenerateSceneOutput{
		FurnitureList:    furnitureList,
		StructuredPrompt: parseStructuredPrompt(res.StructuredPrompt),
		Seed:             res.Seed,
		ImageURL:         storedURL,
	}, nil
}

type VariantResult struct {
	ID          int    `json:"id"`
	ImageURL    string `json:"imageUrl"`
	OriginalURL string `json:"originalFiboUrl"`
}

type RenderOutput struct {
	SessionID   string          `json:"sessionId"`
	OriginalURL string          `json:"originalUrl"`
	Results     []VariantResult `json:"results"`
}

// RenderVariants is the fan-out pipeline: the uploaded screenshot is stored
// once, then N structurally identical generation calls run concurrently. All
// must succeed; the first failure fails the whole call. In-flight siblings
// are not cancelled and their storage writes persist. Usage is committed by
// exactly N only on full success.
func (s *Service) RenderVariants(ctx context.Context, userID, screenshot string) (*RenderOutput, error) {
	if screenshot == "" {
		return nil, apperr.Validation("screenshot is required")
	}

	if _, err := s.ledger.Check(ctx, userID, quota.ResourceImage); err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	originalURL, err := s.ingestor.StoreBase64(ctx, screenshot, renderPath(userID, sessionID+"-original.png"))
	if err != nil {
		return nil, err
	}

	results := make([]VariantResult, s.variantCount)

	var g errgroup.Group
	for k := 1; k <= s.variantCount; k++ {
		g.Go(func() error {
			res, err := s.images.Generate(ctx, providers.ImageRequest{
				Prompt:          variantPrompt,
				ReferenceImages: []string{originalURL},
				AspectRatio:     "4:3",
			})
			if err != nil {
				return fmt.Errorf("variant %d: %w", k, err)
			}

			filename := fmt.Sprintf("%s-variant%d.png", sessionID, k)
			storedURL, err := s.ingestor.StoreFromURL(ctx, res.ImageURL, renderPath(userID, filename))
			if err != nil {
				return fmt.Errorf("variant %d: %w", k, err)
			}

			results[k-1] = VariantResult{
				ID:          k,
				ImageURL:    storedURL,
				OriginalURL: res.ImageURL,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.ledger.Commit(ctx, userID, quota.ResourceImage, int64(s.variantCount)); err != nil {
		return nil, err
	}

	return &RenderOutput{
		SessionID:   sessionID,
		OriginalURL: originalURL,
		Results:     results,
	}, nil
}

type ModelOutput struct {
	ModelURL    string         `json:"modelUrl"`
	ImageURL    string         `json:"imageUrl,omitempty"`
	RawResponse map[string]any `json:"rawResponse"`
}

// GenerateModel is the 3D reconstruction pipeline. The mesh URL is taken
// from the well-known model_mesh.url field when present, otherwise located
// by a breadth-first search over the whole response document.
func (s *Service) GenerateModel(ctx context.Context, userID, imageURL string) (*ModelOutput, error) {
	if imageURL == "" {
		return nil, apperr.Validation("imageUrl is required")
	}

	if _, err := s.ledger.Check(ctx, userID, quota.ResourceModel); err != nil {
		return nil, err
	}

	doc, err := s.mesh.Reconstruct(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	modelURL := wellKnownMeshURL(doc)
	if modelURL == "" {
		modelURL = findFirstURLWithExtensions(doc, meshExtensions)
	}
	if modelURL == "" {
		return nil, apperr.NotFound("mesh url in reconstruction response")
	}

	if err := s.ledger.Commit(ctx, userID, quota.ResourceModel, 1); err != nil {
		return nil, err
	}

	out := &ModelOutput{ModelURL: modelURL, RawResponse: doc}
	if u, ok := doc["image_url"].(string); ok {
		out.ImageURL = u
	}
	return out, nil
}

type AnalyzeInput struct {
	Prompt      string `json:"prompt"`
	Model       string `json:"model"`
	JSON        bool   `json:"json"`
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
	ImageURL    string `json:"imageUrl"`
}

// AnalyzeImage is a quota-free passthrough to the vision provider. Inline
// image data takes precedence over a URL; a URL is fetched and inlined.
func (s *Service) AnalyzeImage(ctx context.Context, in AnalyzeInput) (any, error) {
	if in.Prompt == "" {
		return nil, apperr.Validation("prompt is required")
	}

	req := providers.VisionRequest{
		Prompt:     in.Prompt,
		Model:      in.Model,
		MimeType:   in.MimeType,
		JSONOutput: in.JSON,
	}

	switch {
	case in.ImageBase64 != "":
		req.InlineImage = in.ImageBase64
	case in.ImageURL != "":
		data, err := s.ingestor.FetchBase64(ctx, in.ImageURL)
		if err != nil {
			return nil, err
		}
		req.InlineImage = data
	}

	text, err := s.vision.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	if in.JSON {
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err != nil {
			return nil, fmt.Errorf("parse json response: %w", err)
		}
		return parsed, nil
	}
	return map[string]any{"text": text}, nil
}

type DetectInput struct {
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"imageBase64"`
	ImageURL    string `json:"imageUrl"`
}

// detectModel is pinned: box detection needs the thinking-capable model.
const detectModel = "gemini-3-pro-preview"

// DetectBoxes asks the vision provider for bounding boxes as JSON. Images
// already in our bucket are passed by URI instead of being re-encoded.
func (s *Service) DetectBoxes(ctx context.Context, in DetectInput) (any, error) {
	if in.Prompt == "" {
		return nil, apperr.Validation("prompt is required")
	}
	if in.ImageBase64 == "" && in.ImageURL == "" {
		return nil, apperr.Validation("imageBase64 or imageUrl is required")
	}

	level := "low"
	if strings.Contains(in.Prompt, "spatial") {
		level = "high"
	}

	req := providers.VisionRequest{
		Prompt:          in.Prompt,
		Model:           detectModel,
		JSONOutput:      true,
		Temperature:     0.1,
		MaxOutputTokens: 8192 * 4,
		ThinkingLevel:   level,
	}

	switch {
	case in.ImageURL != "" && strings.Contains(in.ImageURL, "storage.googleapis.com/"+s.bucketName):
		req.ImageURI = in.ImageURL
	case in.ImageBase64 != "":
		req.InlineImage = dataURIPrefix.ReplaceAllString(in.ImageBase64, "")
	default:
		data, err := s.ingestor.FetchBase64(ctx, in.ImageURL)
		if err != nil {
			return nil, err
		}
		req.InlineImage = data
	}

	text, err := s.vision.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("parse detection response: %w", err)
	}
	return parsed, nil
}

// rawToString renders a caller-supplied structured prompt for the provider:
// JSON strings pass through unquoted, objects are re-serialized.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// parseStructuredPrompt handles the provider echoing the structured prompt
// as either a JSON string or an already-structured value. Unparseable
// strings pass through as-is.
func parseStructuredPrompt(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			return parsed
		}
		return s
	}

	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	return string(raw)
}

func wellKnownMeshURL(doc map[string]any) string {
	mm, ok := doc["model_mesh"].(map[string]any)
	if !ok {
		return ""
	}
	u, _ := mm["url"].(string)
	return u
}
