package generation

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roomforge/roomforge-backend/internal/apperr"
	"github.com/roomforge/roomforge-backend/internal/auth"
)

type Handler struct {
	svc *Service
}

func Register(rg *gin.RouterGroup, svc *Service) {
	h := &Handler{svc: svc}

	rg.POST("/generate-image", h.generateImage)
	rg.POST("/generate-scene", h.generateScene)
	rg.POST("/analyze-image", h.analyzeImage)
	rg.POST("/detect-bboxes", h.detectBoxes)
	rg.POST("/generate-3d-model", h.generateModel)
	rg.POST("/fibo-render", h.renderVariants)
}

func (h *Handler) generateImage(c *gin.Context) {
	var in GenerateImageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	out, err := h.svc.GenerateImage(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		writeError(c, "generate image", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) generateScene(c *gin.Context) {
	var in GenerateSceneInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	out, err := h.svc.GenerateScene(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		writeError(c, "generate scene", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) analyzeImage(c *gin.Context) {
	var in AnalyzeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	out, err := h.svc.AnalyzeImage(c.Request.Context(), in)
	if err != nil {
		writeError(c, "analyze image", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) detectBoxes(c *gin.Context) {
	var in DetectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	out, err := h.svc.DetectBoxes(c.Request.Context(), in)
	if err != nil {
		writeError(c, "detect bboxes", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type generateModelReq struct {
	ImageURL string `json:"imageUrl"`
}

func (h *Handler) generateModel(c *gin.Context) {
	var req generateModelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	out, err := h.svc.GenerateModel(c.Request.Context(), auth.UserID(c), req.ImageURL)
	if err != nil {
		writeError(c, "generate 3d model", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type renderReq struct {
	Screenshot string `json:"screenshot"`
}

func (h *Handler) renderVariants(c *gin.Context) {
	var req renderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	out, err := h.svc.RenderVariants(c.Request.Context(), auth.UserID(c), req.Screenshot)
	if err != nil {
		writeError(c, "render variants", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// writeError maps the error taxonomy to HTTP codes. Quota exhaustion is
// distinct so clients can show upgrade messaging.
func writeError(c *gin.Context, op string, err error) {
	log.Printf("%s failed for user %s: %v", op, auth.UserID(c), err)

	switch {
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": "quota exceeded. Please upgrade your account."})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.IsUpstream(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
