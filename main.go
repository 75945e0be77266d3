package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"dm-service/internal/auth"
	"dm-service/internal/chat"
	"dm-service/internal/config"
	"dm-service/internal/db"
	grpcclient "dm-service/internal/grpc"
	"dm-service/internal/handlers"
	"dm-service/internal/middleware"
	"dm-service/internal/observability"
	"dm-service/internal/rabbitmq"
	"dm-service/internal/repositories"
	"dm-service/internal/signaling"
	"dm-service/internal/telemetry"
	"dm-service/internal/ws"
)

const serviceName = "dm-service"

type stores struct {
	users    repositories.UserRepository
	groups   repositories.ChatGroupRepository
	messages repositories.MessageRepository
	close    func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracing, err := telemetry.InitTracing(context.Background(), serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("rabbitmq publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	observability.SetPublisher(publisher)
	auditEmitter := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)

	store, err := openStores(cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.close()

	verifier, closeVerifier, err := openVerifier(cfg)
	if err != nil {
		log.Fatalf("failed to build verifier: %v", err)
	}
	defer closeVerifier()

	hub := ws.NewHub()
	pipeline := chat.NewPipeline(hub, store.users, store.groups, store.messages)
	relay := signaling.NewRelay(hub)
	gateway := ws.NewGateway(hub, verifier, pipeline, relay, ws.GatewayOptions{
		EventTimeout: cfg.StoreTimeout,
		SendBuffer:   cfg.WSSendBuffer,
	})
	chatHandler := handlers.NewChatHandler(store.groups, store.messages, store.users, auditEmitter)

	router := gin.New()

	// middlewares
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online": hub.Len()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", gateway.Handle)

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.GET("/chats/:chat_group_id", authMiddleware, chatHandler.GetChat)
	router.DELETE("/chats/:chat_group_id", authMiddleware, chatHandler.DeleteChat)
	router.PATCH("/chats/:chat_group_id/read", authMiddleware, chatHandler.MarkRead)
	router.DELETE("/chats/messages/:message_id", authMiddleware, chatHandler.DeleteMessage)

	handlers.RegisterDebugRoutes(router, auditEmitter, hub, cfg.DebugRoutes)

	log.Printf("dm-service listening port=%s store=%s auth=%s", cfg.Port, cfg.StoreDriver, cfg.AuthMode)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func openStores(cfg config.Config) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		mem := repositories.NewMemoryStore()
		if err := mem.Seed(cfg.SeedUsers); err != nil {
			return stores{}, err
		}
		log.Printf("using in-memory store seeded_users=%d", len(cfg.SeedUsers))
		return stores{
			users:    mem.Users(),
			groups:   mem.ChatGroups(),
			messages: mem.Messages(),
			close:    func() error { return nil },
		}, nil
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		return stores{}, err
	}
	return stores{
		users:    repositories.NewUserRepo(database),
		groups:   repositories.NewChatGroupRepo(database),
		messages: repositories.NewMessageRepo(database),
		close:    database.Close,
	}, nil
}

func openVerifier(cfg config.Config) (auth.Verifier, func() error, error) {
	if cfg.AuthMode == config.AuthModeJWT {
		return auth.NewJWTVerifier(cfg.JWTSecret), func() error { return nil }, nil
	}

	conn, err := grpcclient.Dial(cfg.AuthGRPCAddr)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("auth-service grpc addr=%s", cfg.AuthGRPCAddr)
	return grpcclient.NewAuthClient(conn), conn.Close, nil
}
