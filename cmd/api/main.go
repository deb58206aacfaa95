package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/rurikon/gallery-api/internal/config"
	"github.com/rurikon/gallery-api/internal/domain/auth"
	"github.com/rurikon/gallery-api/internal/domain/compress"
	"github.com/rurikon/gallery-api/internal/domain/events"
	"github.com/rurikon/gallery-api/internal/domain/gallery"
	"github.com/rurikon/gallery-api/internal/domain/upload"
	"github.com/rurikon/gallery-api/internal/middleware"
	"github.com/rurikon/gallery-api/internal/pkg/cache"
	"github.com/rurikon/gallery-api/internal/pkg/database"
	"github.com/rurikon/gallery-api/internal/pkg/docstore"
	"github.com/rurikon/gallery-api/internal/pkg/imaging"
	"github.com/rurikon/gallery-api/internal/pkg/jwt"
	"github.com/rurikon/gallery-api/internal/pkg/logger"
	pkgresponse "github.com/rurikon/gallery-api/internal/pkg/response"
	"github.com/rurikon/gallery-api/internal/pkg/storage"
	"github.com/rurikon/gallery-api/internal/pkg/telegram"
)

const cachePrefix = "gallery:"

func main() {
	cfg := config.Load()

	logCloser, err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	defer logCloser.Close()

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("blob_backend", cfg.BlobBackend).
		Msg("Starting gallery API")

	ctx := context.Background()

	// ---------- Document store ----------
	store, db := openStore(ctx, cfg)
	if db != nil {
		defer database.ClosePostgres(db)
	}

	// ---------- Redis ----------
	redisClient, err := database.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis, continuing without cache")
		redisClient = nil
	}
	defer database.CloseRedis(redisClient)

	// ---------- Events ----------
	hub := events.NewHub(redisClient)
	go hub.Run()
	defer hub.Shutdown()

	// ---------- Services ----------
	galleryService := gallery.NewService(
		gallery.NewRepository(store),
		cache.New(redisClient, cachePrefix, cfg.CategoryCacheTTL),
		hub,
	)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	if cfg.AdminEmail == "" || cfg.AdminPasswordHash == "" {
		log.Warn().Msg("Admin credentials not configured, login is disabled")
	}
	authService := auth.NewService(cfg.AdminEmail, cfg.AdminPasswordHash, jwtService)

	transport, media := openBlobTransport(ctx, cfg)
	uploadService := upload.NewService(transport, galleryService, cfg.UploadMaxBytes)

	// ---------- Handlers ----------
	h := handlers{
		auth:     auth.NewHandler(authService),
		gallery:  gallery.NewHandler(galleryService),
		upload:   upload.NewHandler(uploadService, cfg.UploadMaxBytes),
		compress: compress.NewHandler(imaging.NewProcessor(0, 0), cfg.CompressMaxBytes),
		events:   events.NewHandler(hub, jwtService, cfg.AllowedOrigins),
		media:    media,
	}

	r := newRouter(cfg, h, middleware.Auth(jwtService))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

type handlers struct {
	auth     *auth.Handler
	gallery  *gallery.Handler
	upload   *upload.Handler
	compress *compress.Handler
	events   *events.Handler

	// media serves locally stored uploads; nil for remote backends.
	media http.Handler
}

func newRouter(cfg *config.Config, h handlers, authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket authenticates inside the handler so browsers can pass ?token=
	r.Get("/ws", h.events.WebSocket)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	if h.media != nil {
		r.Handle("/media/*", http.StripPrefix("/media", h.media))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/auth", h.auth.Routes(authMiddleware))
		r.Mount("/categories", h.gallery.CategoryRoutes(authMiddleware))
		r.Mount("/photos", h.gallery.PhotoRoutes(authMiddleware))
		r.Mount("/homepage", h.gallery.HomepageRoutes(authMiddleware))
		r.Mount("/admin", h.gallery.AdminRoutes(authMiddleware, middleware.RequireAdmin()))

		r.Route("/images", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/", h.gallery.ListImages)
			r.Post("/upload", h.upload.Upload)
		})

		r.Post("/compress", h.compress.Compress)
	})

	return r
}

func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, *sqlx.DB) {
	if cfg.UsesMemoryStore() {
		log.Warn().Msg("DATABASE_URL not set, documents are kept in memory only")
		return docstore.NewMemoryStore(), nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}

	store := docstore.NewPostgresStore(db)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate document store")
	}
	return store, db
}

func openBlobTransport(ctx context.Context, cfg *config.Config) (upload.Transport, http.Handler) {
	switch cfg.BlobBackend {
	case config.BlobBackendTelegram:
		if cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
			log.Fatal().Msg("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required for the telegram backend")
		}
		log.Info().Msg("Uploads go to Telegram")
		return telegram.NewClient(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramTimeout), nil

	case config.BlobBackendR2:
		r2, err := storage.NewR2Storage(ctx, storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 storage")
		}
		log.Info().Str("bucket", cfg.R2BucketName).Msg("Uploads go to R2")
		return storage.NewObjectTransport(r2), nil

	case config.BlobBackendLocal:
		local, err := storage.NewLocalStorage(cfg.LocalStoragePath, cfg.LocalStorageURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize local storage")
		}
		log.Info().Str("path", local.BasePath()).Msg("Uploads go to local storage")
		return storage.NewObjectTransport(local), http.FileServer(http.Dir(local.BasePath()))

	default:
		log.Fatal().Str("backend", cfg.BlobBackend).Msg("Unknown BLOB_BACKEND")
		return nil, nil
	}
}

