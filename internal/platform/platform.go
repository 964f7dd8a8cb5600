package platform

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/roomforge/roomforge-backend/config"
)

// Services holds the shared infrastructure handles (Firestore, Storage,
// Firebase Auth, optional Redis). Constructed once in cmd/api and passed
// into the feature packages; nothing in the service reaches for globals.
type Services struct {
	Auth       *fbauth.Client
	Firestore  *firestore.Client
	Bucket     *storage.BucketHandle
	BucketName string
	Redis      *redis.Client
}

// New initializes the Firebase Admin SDK and derives the auth, Firestore and
// storage clients from it. Redis is optional: an empty addr leaves it nil.
func New(ctx context.Context, cfg *config.Config) (*Services, error) {
	if cfg.Firebase.CredentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	opt := option.WithCredentialsFile(cfg.Firebase.CredentialsPath)
	app, err := firebase.NewApp(ctx, &firebase.Config{
		StorageBucket: cfg.Firebase.StorageBucket,
	}, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}

	fsClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	storageClient, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	bucket, err := storageClient.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("default bucket: %w", err)
	}

	svcs := &Services{
		Auth:       authClient,
		Firestore:  fsClient,
		Bucket:     bucket,
		BucketName: cfg.Firebase.StorageBucket,
	}

	if cfg.Redis.Addr != "" {
		svcs.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	return svcs, nil
}

// Close releases the underlying clients.
func (s *Services) Close() {
	if s.Firestore != nil {
		s.Firestore.Close()
	}
	if s.Redis != nil {
		s.Redis.Close()
	}
}
