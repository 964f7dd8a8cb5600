package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/roomforge/roomforge-backend/internal/api/http"
	"github.com/roomforge/roomforge-backend/internal/api/http/middleware"
	"github.com/roomforge/roomforge-backend/internal/auth"
	"github.com/roomforge/roomforge-backend/internal/generation"
	"github.com/roomforge/roomforge-backend/internal/opengraph"
	"github.com/roomforge/roomforge-backend/internal/projects"
	"github.com/roomforge/roomforge-backend/internal/quota"
)

type RouterDeps struct {
	ServiceName string
	Version     string

	Verifier      auth.TokenVerifier
	EnsureAccount auth.EnsureAccountFunc

	Ledger     *quota.Ledger
	Generation *generation.Service
	Projects   *projects.Store
	OpenGraph  *opengraph.Fetcher

	HealthFlags httpapi.ProviderFlags
	Redis       *redis.Client

	RateLimitRPS   float64
	RateLimitBurst int
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestID())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.HealthFlags, dep.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api")

	// Link previews need no auth; everything else does.
	opengraph.Register(api, dep.OpenGraph)

	authed := api.Group("")
	authed.Use(auth.RequireUser(dep.Verifier, dep.EnsureAccount))

	rl := middleware.NewRateLimiter(dep.RateLimitRPS, dep.RateLimitBurst)
	authed.Use(rl.Middleware())

	quota.Register(authed, dep.Ledger)
	generation.Register(authed, dep.Generation)
	projects.Register(authed.Group("/projects"), dep.Projects)

	return r
}
