package projects

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roomforge/roomforge-backend/internal/apperr"
	"github.com/roomforge/roomforge-backend/internal/auth"
)

type Handler struct {
	store *Store
}

func Register(rg *gin.RouterGroup, store *Store) {
	h := &Handler{store: store}

	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.PATCH("/:project_id", h.rename)
	rg.DELETE("/:project_id", h.delete)
	rg.PUT("/:project_id/state", h.save)
	rg.GET("/:project_id/state", h.load)
	rg.POST("/variations", h.createVariation)
	rg.GET("/renders", h.listRenders)
}

type createReq struct {
	Name string `json:"name"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	p, err := h.store.CreateProject(c.Request.Context(), auth.UserID(c), strings.TrimSpace(req.Name))
	if err != nil {
		h.writeError(c, "create project", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.store.ListProjects(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.writeError(c, "list projects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": items})
}

type renameReq struct {
	Name string `json:"name"`
}

func (h *Handler) rename(c *gin.Context) {
	var req renameReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	p, err := h.store.RenameProject(c.Request.Context(), auth.UserID(c), c.Param("project_id"), strings.TrimSpace(req.Name))
	if err != nil {
		h.writeError(c, "rename project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": p})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), auth.UserID(c), c.Param("project_id")); err != nil {
		h.writeError(c, "delete project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) save(c *gin.Context) {
	var state ProjectState
	if err := c.ShouldBindJSON(&state); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	err := h.store.Save(c.Request.Context(), auth.UserID(c), c.Param("project_id"), &state)
	if err != nil {
		h.writeError(c, "save project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) load(c *gin.Context) {
	state, err := h.store.Load(c.Request.Context(), auth.UserID(c), c.Param("project_id"))
	if err != nil {
		h.writeError(c, "load project", err)
		return
	}

	// Never-saved projects load as null, not an error.
	c.JSON(http.StatusOK, gin.H{"state": state})
}

type variationReq struct {
	BaseName string        `json:"baseName"`
	State    *ProjectState `json:"state"`
}

func (h *Handler) createVariation(c *gin.Context) {
	var req variationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	p, state, err := h.store.CreateVariation(c.Request.Context(), auth.UserID(c), req.BaseName, req.State)
	if err != nil {
		h.writeError(c, "create variation", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"project": p, "state": state})
}

func (h *Handler) listRenders(c *gin.Context) {
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "8"))

	page, err := h.store.ListRenders(c.Request.Context(), auth.UserID(c), c.Query("pageToken"), pageSize)
	if err != nil {
		h.writeError(c, "list renders", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) writeError(c *gin.Context, op string, err error) {
	log.Printf("%s failed for user %s: %v", op, auth.UserID(c), err)

	switch {
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
