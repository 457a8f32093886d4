package http

import (
	"context"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hairkim/Fitness-App-sub000/internal/cache"
	"github.com/hairkim/Fitness-App-sub000/internal/config"
	"github.com/hairkim/Fitness-App-sub000/internal/database"
	"github.com/hairkim/Fitness-App-sub000/internal/handler"
	"github.com/hairkim/Fitness-App-sub000/internal/queue"
	appredis "github.com/hairkim/Fitness-App-sub000/internal/redis"
	"github.com/hairkim/Fitness-App-sub000/internal/repository"
	"github.com/hairkim/Fitness-App-sub000/internal/service"
	"github.com/hairkim/Fitness-App-sub000/internal/worker"
)

// Run wires the whole application together and blocks until shutdown.
func Run() error {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := appredis.NewClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	forumRepo := repository.NewForumRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	chatRepo := repository.NewChatRepository(db)
	healthRepo := repository.NewHealthRepository(db)
	deviceTokenRepo := repository.NewDeviceTokenRepository(db)

	// Redis-backed infrastructure
	feedCache := cache.NewFeedCache(redisClient.Client)
	publisher := queue.NewPublisher(redisClient.Client)
	consumer := queue.NewConsumer(redisClient.Client)

	mediaService, err := service.NewMediaService(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create media service: %w", err)
	}

	var expoPush *service.ExpoPushClient
	if os.Getenv("DISABLE_PUSH") == "" {
		expoPush = service.NewExpoPushClient()
	}

	// Services
	authService := service.NewAuthService(refreshTokenRepo, cfg)
	userService := service.NewUserService(userRepo, followRepo)
	notificationService := service.NewNotificationService(notifRepo, deviceTokenRepo, userRepo, expoPush)
	followService := service.NewFollowService(followRepo, userRepo, notificationService, db, publisher)
	feedService := service.NewFeedService(feedCache, postRepo, followRepo, userRepo)
	postService := service.NewPostService(postRepo, userRepo, publisher, db)
	commentService := service.NewCommentService(commentRepo, postRepo, userRepo, db, publisher)
	forumService := service.NewForumService(forumRepo, userRepo)
	chatService := service.NewChatService(chatRepo, userRepo, db)
	healthService := service.NewHealthService(healthRepo, userRepo)

	// Stream workers: fan-out plus interaction notifications
	eventHandler := worker.NewHandler(feedCache, followRepo, postRepo)
	eventHandler.SetNotificationCreator(notificationService)
	manager := worker.NewManager(consumer, eventHandler, worker.ManagerConfig{
		WorkerCount: cfg.WorkerCount,
	})
	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer manager.Stop()

	// HTTP surface
	router := NewRouter(RouterConfig{
		AuthHandler:         handler.NewAuthHandler(userService, authService, mediaService, cfg),
		UserHandler:         handler.NewUserHandler(userService, mediaService),
		FollowHandler:       handler.NewFollowHandler(followService),
		FeedHandler:         handler.NewFeedHandler(feedService),
		PostHandler:         handler.NewPostHandler(postService),
		CommentHandler:      handler.NewCommentHandler(commentService),
		ForumHandler:        handler.NewForumHandler(forumService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		ChatHandler:         handler.NewChatHandler(chatService, mediaService),
		HealthHandler:       handler.NewHealthHandler(healthService),
		MediaHandler:        handler.NewMediaHandler(mediaService),
		JWTSecret:           cfg.JWTSecret,
	})

	server := &stdhttp.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		log.Printf("Received %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
