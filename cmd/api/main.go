package main

import (
	"context"
	"log"

	"github.com/roomforge/roomforge-backend/config"
	httpapi "github.com/roomforge/roomforge-backend/internal/api/http"
	"github.com/roomforge/roomforge-backend/internal/assets"
	"github.com/roomforge/roomforge-backend/internal/bootstrap"
	"github.com/roomforge/roomforge-backend/internal/generation"
	"github.com/roomforge/roomforge-backend/internal/opengraph"
	"github.com/roomforge/roomforge-backend/internal/platform"
	"github.com/roomforge/roomforge-backend/internal/projects"
	"github.com/roomforge/roomforge-backend/internal/providers"
	"github.com/roomforge/roomforge-backend/internal/quota"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()
	svc, err := platform.New(ctx, cfg)
	if err != nil {
		log.Fatalf("initialize platform: %v", err)
	}
	defer svc.Close()

	ledger := quota.NewLedger(quota.NewFirestoreStore(svc.Firestore))
	blob := assets.NewGCSBlob(svc.Bucket, svc.BucketName)
	ingestor := assets.NewIngestor(blob)

	images := providers.NewBriaClient(cfg.Providers.BriaBaseURL, cfg.Providers.BriaAPIKey, cfg.Providers.GenerateTimeout)
	vision := providers.NewGeminiClient(cfg.Providers.GeminiBaseURL, cfg.Providers.GeminiAPIKey, cfg.Providers.GeminiModel, cfg.Providers.AnalyzeTimeout)
	mesh := providers.NewTrellisClient(cfg.Providers.FalBaseURL, cfg.Providers.FalAPIKey, cfg.Providers.ModelTimeout)

	genService := generation.NewService(ledger, images, vision, mesh, ingestor, svc.BucketName, cfg.Providers.VariantCount)
	projectStore := projects.NewStore(projects.NewFirestoreMeta(svc.Firestore), blob)
	ogFetcher := opengraph.NewFetcher(svc.Redis)

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "roomforge-backend",
		Version:     cfg.App.Version,

		Verifier: svc.Auth,
		EnsureAccount: func(ctx context.Context, userID, email string, isAnonymous bool) error {
			_, err := ledger.EnsureAccount(ctx, userID, email, isAnonymous)
			return err
		},

		Ledger:     ledger,
		Generation: genService,
		Projects:   projectStore,
		OpenGraph:  ogFetcher,

		HealthFlags: httpapi.ProviderFlags{
			Firebase: true,
			ImageGen: cfg.Providers.BriaAPIKey != "",
			Vision:   cfg.Providers.GeminiAPIKey != "",
			Mesh:     cfg.Providers.FalAPIKey != "",
		},
		Redis: svc.Redis,

		RateLimitRPS:   cfg.App.RateLimitRPS,
		RateLimitBurst: cfg.App.RateLimitBurst,
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
