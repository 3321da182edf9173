package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"artgram/internal/blob"
	"artgram/internal/cache"
	"artgram/internal/config"
	"artgram/internal/database"
	"artgram/internal/handler"
	"artgram/internal/queue"
	"artgram/internal/redis"
	"artgram/internal/repository"
	"artgram/internal/service"
	"artgram/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	// 2. Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// 3. Blob store: R2 when configured, local directory otherwise
	var store blob.Store
	var mediaHandler *handler.MediaHandler
	var mediaPrefix string
	if cfg.HasR2() {
		r2, err := blob.NewR2Store(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create R2 store: %w", err)
		}
		store = r2
		log.Printf("[Server] Blob store: R2 bucket=%s", cfg.R2BucketName)
	} else {
		local, err := blob.NewLocalStore(cfg.MediaDir, cfg.MediaPublicURL)
		if err != nil {
			return fmt.Errorf("failed to create local store: %w", err)
		}
		store = local
		mediaPrefix = mediaRoutePrefix(cfg.MediaPublicURL)
		mediaHandler = handler.NewMediaHandler(mediaPrefix, local.Dir())
		log.Printf("[Server] Blob store: local dir=%s", local.Dir())
	}

	// 4. Optional Redis: feed cache and cleanup stream
	var (
		feedCache cache.FeedCache
		publisher queue.Publisher
		manager   *worker.Manager
	)
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer client.Close()

		if err := client.Ping(ctx); err != nil {
			log.Printf("[Server] Redis unavailable, running without feed cache and worker: %v", err)
		} else {
			feedCache = cache.NewFeedCache(client.Client)
			// The window may have missed writes while the service was down;
			// rebuild it on first read.
			if err := feedCache.Invalidate(ctx); err != nil {
				log.Printf("[Server] Failed to reset feed cache: %v", err)
			}
			publisher = queue.NewPublisher(client.Client)

			workerCfg := worker.DefaultManagerConfig()
			workerCfg.WorkerCount = cfg.WorkerCount
			manager = worker.NewManager(queue.NewConsumer(client.Client), worker.NewHandler(store, feedCache), workerCfg)
		}
	} else {
		log.Printf("[Server] REDIS_URL not set, running without feed cache and worker")
	}

	// 5. Repositories and services
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	mediaService := service.NewMediaService(store)
	activity := service.NewActivity(publisher, store)

	authService := service.NewAuthService(cfg)
	userService := service.NewUserService(userRepo, postRepo, likeRepo, mediaService, feedCache, activity)
	postService := service.NewPostService(postRepo, commentRepo, likeRepo, mediaService, feedCache, activity)
	commentService := service.NewCommentService(commentRepo)
	likeService := service.NewLikeService(likeRepo)
	feedService := service.NewFeedService(feedCache, postRepo, likeRepo)

	router := NewRouter(RouterConfig{
		AuthHandler:    handler.NewAuthHandler(userService, authService, cfg),
		UserHandler:    handler.NewUserHandler(userService),
		FeedHandler:    handler.NewFeedHandler(feedService),
		PostHandler:    handler.NewPostHandler(postService),
		LikeHandler:    handler.NewLikeHandler(likeService),
		CommentHandler: handler.NewCommentHandler(commentService),
		MediaHandler:   mediaHandler,
		MediaPrefix:    mediaPrefix,
		JWTSecret:      cfg.JWTSecret,
		RequestTimeout: cfg.RequestTimeout,
	})

	// 6. Start workers
	if manager != nil {
		if err := manager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		defer manager.Stop()
	}

	// 7. Setup Server
	srv := &stdhttp.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Printf("Server stopped")
	return nil
}

// mediaRoutePrefix extracts the path the local store's files are served
// under, so MEDIA_PUBLIC_URL may be "/media" or "https://host/media".
func mediaRoutePrefix(publicURL string) string {
	u, err := url.Parse(publicURL)
	if err != nil || strings.Trim(u.Path, "/") == "" {
		return "/media"
	}
	return "/" + strings.Trim(u.Path, "/")
}
