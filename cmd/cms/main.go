package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/chi-demo/middleware"
	"github.com/tendant/simple-cms/pkg/simplecms"
	"github.com/tendant/simple-cms/pkg/simplecms/api"
	repopg "github.com/tendant/simple-cms/pkg/simplecms/repo/postgres"
	"github.com/tendant/simple-cms/pkg/simplecms/storage/s3"
)

type Config struct {
	DB           DbConfig
	S3           S3Config
	ApiKeySHA256 string `env:"API_KEY_SHA256" env-default:"1"`
	JWTSecret    string `env:"JWT_SECRET"`
}

type DbConfig struct {
	Port        uint16 `env:"CMS_PG_PORT" env-default:"5432"`
	Host        string `env:"CMS_PG_HOST" env-default:"localhost"`
	Name        string `env:"CMS_PG_NAME" env-default:"cms_db"`
	User        string `env:"CMS_PG_USER" env-default:"cms"`
	Password    string `env:"CMS_PG_PASSWORD" env-default:"pwd"`
	AutoMigrate bool   `env:"CMS_PG_AUTO_MIGRATE" env-default:"false"`
}

type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	BucketName      string `env:"AWS_S3_BUCKET" env-default:"cms-bucket"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
}

func (c DbConfig) toDatabaseUrl() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

func NewDbPool(ctx context.Context, dbConfig DbConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dbConfig.toDatabaseUrl())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func initializeS3Backend(config S3Config) (simplecms.BlobStore, error) {
	backend, err := s3.New(s3.Config{
		Endpoint:               config.Endpoint,
		AccessKeyID:            config.AccessKeyID,
		SecretAccessKey:        config.SecretAccessKey,
		Bucket:                 config.BucketName,
		Region:                 config.Region,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
		PresignDuration:        3600, // 1 hour
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 backend: %w", err)
	}

	return backend, nil
}

func main() {
	// Load configuration
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}
	apiKeyConfig := middleware.ApiKeyConfig{
		APIKeys: map[string]string{
			"key1": config.ApiKeySHA256,
		},
	}

	// Initialize database connection
	ctx := context.Background()
	dbPool, err := NewDbPool(ctx, config.DB)
	if err != nil {
		slog.Error("Failed to connect to database", "err", err)
		os.Exit(1)
	}

	// Initialize repository
	repo := repopg.NewWithPool(dbPool)
	if config.DB.AutoMigrate {
		if err := repopg.EnsureSchema(ctx, dbPool); err != nil {
			slog.Error("Failed to apply database schema", "err", err)
			os.Exit(1)
		}
	}

	// Initialize S3 storage backend
	s3Backend, err := initializeS3Backend(config.S3)
	if err != nil {
		slog.Error("Failed to initialize S3 backend", "err", err)
		os.Exit(1)
	}

	// Initialize service
	svc, err := simplecms.New(
		simplecms.WithRepository(repo),
		simplecms.WithTaxonomyRepository(repo),
		simplecms.WithCapabilityStore(repo),
		simplecms.WithBlobStore("s3-default", s3Backend),
		simplecms.WithDefaultBackend("s3-default"),
		simplecms.WithEventSink(simplecms.NewLoggingEventSink(nil)),
	)
	if err != nil {
		slog.Error("Failed to create service", "err", err)
		os.Exit(1)
	}

	for _, pt := range []simplecms.PostType{
		&simplecms.BaseType{TypeKey: "post"},
		&simplecms.BaseType{TypeKey: "page"},
		simplecms.AttachmentType(),
	} {
		if _, err := svc.RegisterType(ctx, pt); err != nil {
			slog.Error("Failed to register post type", "type", pt.Key(), "err", err)
			os.Exit(1)
		}
	}

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	// Initialize API handlers
	var guard *api.Guard
	if config.JWTSecret != "" {
		guard = api.NewGuard([]byte(config.JWTSecret), svc, repo)
	}
	postsHandler := api.NewPostsHandler(svc, guard)
	mediaHandler := api.NewMediaHandler(svc, guard)

	apiKeyMiddleware, err := middleware.ApiKeyMiddleware(apiKeyConfig)
	if err != nil {
		slog.Error("Failed initialize API Key middleware", "err", err)
		return
	}
	server.R.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			r.Mount("/types", postsHandler.Routes())
			r.Mount("/media", mediaHandler.Routes())
		})
	})

	defer dbPool.Close()

	// Start server
	server.Run()
}
