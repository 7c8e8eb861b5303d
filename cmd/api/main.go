package main

import (
	"context"
	"log"
	"time"

	"agency-portal/internal/chat"
	"agency-portal/internal/config"
	"agency-portal/internal/domain/user"
	"agency-portal/internal/handler"
	"agency-portal/internal/identity"
	"agency-portal/internal/middleware"
	portalredis "agency-portal/internal/redis"
	"agency-portal/internal/repository"
	"agency-portal/internal/server"
	"agency-portal/internal/services"
	"agency-portal/internal/storage"
	"agency-portal/internal/websocket"
	"agency-portal/pkg/database"
	"agency-portal/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	logger.SetGlobalLogger(l)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.RunFullMigration(db, "migrations"); err != nil {
		l.Fatalf("Failed to apply migrations: %v", err)
	}

	redisClient := portalredis.NewClient(portalredis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	publisher := portalredis.NewPublisher(redisClient)
	subscriber := portalredis.NewSubscriber(redisClient)
	presence := portalredis.NewPresenceStore(redisClient, publisher, cfg.Chat.PresenceTTL)
	limiter := portalredis.NewRateLimiter(redisClient, portalredis.DefaultRateLimitConfig())
	directory := identity.NewDirectory(redisClient, 24*time.Hour)
	verifier := identity.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	ctx := context.Background()
	store, err := storage.NewClient(ctx, storage.S3Config{
		Region:     cfg.Storage.Region,
		Bucket:     cfg.Storage.Bucket,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Endpoint:   cfg.Storage.Endpoint,
		PublicBase: cfg.Storage.PublicBase,
		MaxSize:    cfg.Storage.MaxUploadSize,
	})
	if err != nil {
		l.Fatalf("Failed to build storage client: %v", err)
	}

	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	readService := services.NewReadService(roomRepo, messageRepo)
	roomService := services.NewRoomService(roomRepo, messageRepo, readService, directory, publisher, l)
	messageService := services.NewMessageService(messageRepo, roomRepo, publisher, l)
	uploadService := services.NewUploadService(store)
	history := services.NewChatHistory(messageRepo, directory)
	authors := services.NewChatAuthors(directory)

	hub := websocket.NewHub()
	feed := websocket.NewRoomFeed(hub)
	bridge := websocket.NewRedisBridge(subscriber, hub, l)
	go bridge.Run(ctx)

	sessionFactory := func(id user.Identity, sink chat.Sink) *chat.Session {
		return chat.NewSession(id, cfg.Chat.PageSize, cfg.Chat.OptimisticRegistrySize, chat.Deps{
			Feed:     feed,
			History:  history,
			Sender:   messageService,
			Authors:  authors,
			Presence: presence,
			Read:     readService,
			Sink:     sink,
			Log:      l,
		})
	}

	wsHandler := websocket.NewHandler(hub, sessionFactory, messageService, l)

	srv := server.New(cfg, l, db)
	srv.SetupRoutes(&server.Handlers{
		Rooms:    handler.NewRoomHandler(roomService, readService, presence),
		Messages: handler.NewMessageHandler(messageService, cfg.Chat.PageSize),
		Uploads:  handler.NewUploadHandler(uploadService),
		Chat:     wsHandler,
	}, &server.Middleware{
		Auth:        middleware.AuthMiddleware(verifier, directory, l),
		MessageRate: middleware.MessageRateLimitMiddleware(limiter),
		UploadRate:  middleware.UploadRateLimitMiddleware(limiter),
	})

	if err := srv.Start(); err != nil {
		l.Fatalf("Server exited with error: %v", err)
	}
}
