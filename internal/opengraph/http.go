package opengraph

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roomforge/roomforge-backend/internal/apperr"
)

type Handler struct {
	fetcher *Fetcher
}

func Register(rg *gin.RouterGroup, fetcher *Fetcher) {
	h := &Handler{fetcher: fetcher}

	rg.POST("/fetch-opengraph", h.fetch)
}

type fetchReq struct {
	URL string `json:"url"`
}

func (h *Handler) fetch(c *gin.Context) {
	var req fetchReq
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
		return
	}

	meta, err := h.fetcher.Fetch(c.Request.Context(), req.URL)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, meta)
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.IsUpstream(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Link not supported"})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No OpenGraph metadata found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
