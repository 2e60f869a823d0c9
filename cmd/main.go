package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/joblink/chat-service/internal/config"
	"github.com/joblink/chat-service/internal/domain"
	"github.com/joblink/chat-service/internal/handler"
	"github.com/joblink/chat-service/internal/hub"
	"github.com/joblink/chat-service/internal/notifier"
	"github.com/joblink/chat-service/internal/push"
	"github.com/joblink/chat-service/internal/repository"
	"github.com/joblink/chat-service/internal/service"

	"github.com/joblink/chat-service/internal/auth"
	"github.com/joblink/chat-service/pkg/database"
	"github.com/joblink/chat-service/pkg/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	l := log.L()
	l.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting chat service")

	if cfg.Auth.JWTSecret == "" {
		l.Fatal().Msg("auth.jwt_secret is required")
	}

	// Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.ConversationModel{}, &domain.MessageModel{}); err != nil {
		l.Fatal().Err(err).Msg("failed to run migrations")
	}
	convRepo := repository.NewGormConversationRepository(db)
	msgRepo := repository.NewGormMessageRepository(db)

	// Personal-channel notifier
	personalNotifier, err := notifier.NewRedisNotifier(cfg.Redis)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer personalNotifier.Close()
	l.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")

	// Offline push hook
	var pusher push.Producer = push.NoopProducer{}
	if cfg.Kafka.Brokers != "" {
		p, err := push.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			l.Fatal().Err(err).Msg("failed to create kafka producer")
		}
		pusher = p
		l.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("offline push hook enabled")
	}
	defer pusher.Close()

	// Hub
	wsHub := hub.New()
	go wsHub.Run()

	// Personal-channel consumer: deliver notifications to local connections.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := personalNotifier.Run(ctx, wsHub.DeliverToIdentity); err != nil {
			l.Error().Err(err).Msg("personal channel consumer stopped")
		}
	}()

	// Identity verification
	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	// Chat service
	chatSvc := service.NewChatService(wsHub, convRepo, msgRepo, personalNotifier, pusher, cfg.Chat)

	// HTTP surface
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(log.GinMiddleware(l))
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	authMiddleware := handler.NewAuthMiddleware(verifier)
	httpHandler := handler.NewHTTPHandler(chatSvc, authMiddleware)
	httpHandler.RegisterRoutes(engine)

	wsHandler := handler.NewWSHandler(wsHub, chatSvc, verifier, cfg.WebSocket)
	engine.GET("/chat/ws", wsHandler.HandleWebSocket)

	engine.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("chat service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down chat service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("chat service stopped")
}
