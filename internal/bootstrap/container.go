package bootstrap

import (
	"context"
	"log"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/controller"
	"ai-docchat-be/internal/feedback"
	"ai-docchat-be/internal/pkg/logger"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/memory"
	"ai-docchat-be/internal/repository/postgres"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/internal/service"
	"ai-docchat-be/internal/stream"
	"ai-docchat-be/internal/websocket"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/llm/ollama"
	"ai-docchat-be/pkg/llm/scripted"

	pktNats "ai-docchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const eventTopic = "chat.events"

type Container struct {
	ChatController controller.IChatController

	// Background services, exposed for main.go to run.
	ConsumerService service.IConsumerService

	WebSocketHub *websocket.Hub
}

// NewContainer wires the full dependency graph. db may be nil, in which
// case chat state lives in memory.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Chat store: Postgres when a DSN is configured, in-memory otherwise.
	var store contract.ChatStore
	if db != nil {
		uowFactory := unitofwork.NewRepositoryFactory(db)
		store = postgres.NewChatStore(uowFactory)
		log.Println("[INFO] Using chat store: POSTGRES")
	} else {
		store = memory.NewChatStore()
		log.Println("[INFO] Using chat store: MEMORY")
	}

	// LLM provider selection.
	var provider llm.StreamProvider
	switch cfg.Ai.LLMProvider {
	case "scripted":
		provider = scripted.New("This deployment streams a fixed reply. ", "Configure LLM_PROVIDER=ollama for live generation.")
		log.Println("[INFO] Using LLM Provider: SCRIPTED")
	default:
		provider = ollama.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.LLMModel)
		log.Printf("[INFO] Using LLM Provider: OLLAMA (%s)", cfg.Ai.LLMModel)
	}

	// Event bus.
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	publisherService := service.NewPublisherService(eventTopic, pubSub)

	// NATS, for external consumers. Optional at runtime.
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Durable audit consumer on the chat event stream; the server-side
	// offset lets it resume where it left off after a restart.
	if natsPub != nil {
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else if err := natsSub.Subscribe("chat-events-audit", func(subject string, data []byte) error {
			sysLogger.Info("NatsAudit", "Chat event", map[string]interface{}{
				"subject": subject,
				"event":   string(data),
			})
			return nil
		}); err != nil {
			log.Printf("[WARN] Failed to start NATS audit consumer: %v", err)
			natsSub.Close()
		}
	}

	// Redis, for cross-instance websocket fan-out. Optional at runtime.
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	consumerService := service.NewConsumerService(
		pubSub,
		eventTopic,
		natsPub,
		wsHub,
		sysLogger,
	)

	dispatcher := stream.NewDispatcher(store, provider, publisherService, sysLogger)
	aggregator := feedback.NewAggregator(store, publisherService, sysLogger)

	chatService := service.NewChatService(store, dispatcher, aggregator, sysLogger)

	return &Container{
		ChatController:  controller.NewChatController(chatService, cfg.Stream),
		ConsumerService: consumerService,
		WebSocketHub:    wsHub,
	}
}
