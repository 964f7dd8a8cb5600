package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Providers gin.H     `json:"providers"`
	Cache     string    `json:"cache,omitempty"`
}

// ProviderFlags reports which upstream providers are configured. The health
// endpoint does not probe them; it only reflects configuration.
type ProviderFlags struct {
	Firebase bool
	ImageGen bool
	Vision   bool
	Mesh     bool
}

type HealthHandler struct {
	serviceName string
	version     string
	providers   ProviderFlags
	cache       *redis.Client
}

func NewHealthHandler(serviceName, version string, providers ProviderFlags, cache *redis.Client) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		providers:   providers,
		cache:       cache,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	cacheStatus := "disabled"
	if h.cache != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := h.cache.Ping(pingCtx).Err(); err != nil {
			cacheStatus = "down"
		} else {
			cacheStatus = "up"
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Providers: gin.H{
			"firebase": h.providers.Firebase,
			"imageGen": h.providers.ImageGen,
			"vision":   h.providers.Vision,
			"mesh":     h.providers.Mesh,
		},
		Cache: cacheStatus,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
