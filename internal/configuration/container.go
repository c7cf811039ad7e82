package configuration

import (
	"LingoChat/internal/bot"
	"LingoChat/internal/db"
	"LingoChat/internal/detect"
	"LingoChat/internal/handler"
	"LingoChat/internal/hub"
	"LingoChat/internal/jobs"
	"LingoChat/internal/model"
	"LingoChat/internal/moderation"
	"LingoChat/internal/repo"
	"LingoChat/internal/service"
	"LingoChat/internal/translation"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	ChatHandler        handler.ChatHandler
	TranslationHandler handler.TranslationHandler
	MonitorHandler     handler.MonitorHandler
	Hub                *hub.Hub
	Scheduler          *jobs.Scheduler
	Config             Config
	Logger             *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

type stores struct {
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	memory        repo.TranslationMemoryRepository
}

func BuildContainer() (*Container, error) {
	config, err := LoadConfig(ConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := NewLogger(config.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return NewContainer(*config, logger)
}

// NewContainer wires every component from config.
func NewContainer(config Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: config, Logger: logger}

	st, err := c.openStores()
	if err != nil {
		return nil, err
	}

	engine, err := c.newEngine(st.memory)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	detector := detect.NewDetector(logger)
	bridge := bot.NewBridge(config.Bot.URL, logger, bot.WithTimeout(time.Duration(config.Bot.TimeoutSeconds)*time.Second))
	if !bridge.Enabled() {
		logger.Warn("chatbot url not configured, bot replies fall back to the user's text")
	}
	gate := moderation.NewGate(config.Moderation.Blocklist)

	chat := service.NewChatService(
		st.conversations,
		st.messages,
		detector,
		engine,
		bridge,
		service.Config{
			BotID:         config.Bot.ID,
			BotNativeLang: config.Bot.NativeLang,
		},
		logger,
	)

	c.Hub = hub.NewHub(chat, gate, logger, hub.WithAllowedOrigins(config.Server.AllowedOrigins))
	c.ChatHandler = handler.NewChatHandler(chat, gate, c.Hub, logger)
	c.TranslationHandler = handler.NewTranslationHandler(detector, engine)
	c.MonitorHandler = handler.NewMonitorHandler(hub.NewMonitorService(c.Hub), logger)

	if config.Dashboard.RefreshSchedule != "" {
		c.Scheduler, err = jobs.NewScheduler(config.Dashboard.RefreshSchedule, c.Hub, logger)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	return c, nil
}

// NewLogger builds the production logger, or the development one when
// configured, at the configured level.
func NewLogger(config LoggingConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if config.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

func (c *Container) openStores() (*stores, error) {
	if c.Config.Storage.Driver != StorageMongo {
		c.Logger.Info("using in-memory storage")
		return &stores{
			conversations: repo.NewMemoryConversationRepository(),
			messages:      repo.NewMemoryMessageRepository(),
			memory:        repo.NewMemoryTranslationMemoryRepository(),
		}, nil
	}

	mc := c.Config.Mongo
	con, err := db.OpenConnection(mc.Uri, mc.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	c.mongoClient = con

	conversations := db.NewRepository[model.Conversation](con, mc.ConversationsCollection)
	messages := db.NewRepository[model.Message](con, mc.MessagesCollection)
	memory := db.NewRepository[model.TranslationMemory](con, mc.MemoryCollection)

	if err := repo.EnsureIndexes(context.Background(), conversations.Collection(), messages.Collection(), memory.Collection()); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Logger.Info("connected to MongoDB", zap.String("database", mc.Database))

	return &stores{
		conversations: repo.NewConversationRepository(conversations, c.Logger),
		messages:      repo.NewMessageRepository(messages, c.Logger),
		memory:        repo.NewTranslationMemoryRepository(memory, c.Logger),
	}, nil
}

func (c *Container) newEngine(memory repo.TranslationMemoryRepository) (*translation.Engine, error) {
	tc := c.Config.Translation

	var loader translation.Loader
	switch tc.Provider {
	case ProviderHTTP:
		p, err := translation.NewHTTPProvider(tc.BaseURL, translation.WithTimeout(time.Duration(tc.TimeoutSeconds)*time.Second))
		if err != nil {
			return nil, err
		}
		loader = p
	default:
		c.Logger.Warn("using stub translation provider")
		loader = translation.NewStubProvider(nil)
	}

	opts := []translation.EngineOption{translation.WithDefaultModel(tc.DefaultModel)}
	if tc.MemoryEnabled {
		opts = append(opts, translation.WithMemory(memory))
	}
	return translation.NewEngine(loader, c.Logger, opts...), nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}

	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
