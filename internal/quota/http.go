package quota

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/roomforge/roomforge-backend/internal/apperr"
	"github.com/roomforge/roomforge-backend/internal/auth"
)

type Handler struct {
	ledger *Ledger
}

func Register(rg *gin.RouterGroup, ledger *Ledger) {
	h := &Handler{ledger: ledger}

	rg.GET("/quota", h.get)
}

func (h *Handler) get(c *gin.Context) {
	userID := auth.UserID(c)

	acct, err := h.ledger.Get(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"imagesQuota":     acct.ImagesQuota,
		"modelsQuota":     acct.ModelsQuota,
		"imagesUsed":      acct.ImagesUsed,
		"modelsUsed":      acct.ModelsUsed,
		"imagesRemaining": acct.Remaining(ResourceImage),
		"modelsRemaining": acct.Remaining(ResourceModel),
	})
}
