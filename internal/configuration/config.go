package configuration

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const DefaultConfigPath = "config/config.dev.json"

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"

	ProviderHTTP = "http"
	ProviderStub = "stub"
)

type StorageConfig struct {
	Driver string `json:"driver" validate:"oneof=mongo memory"`
}

type MongoConfig struct {
	Uri                     string `json:"uri" validate:"required_if=Enabled true"`
	Database                string `json:"database" validate:"required_if=Enabled true"`
	ConversationsCollection string `json:"conversationsCollection"`
	MessagesCollection      string `json:"messagesCollection"`
	MemoryCollection        string `json:"memoryCollection"`

	// Enabled mirrors storage.driver == mongo.
	Enabled bool `json:"-"`
}

type ServerConfig struct {
	AppPort        int      `json:"app_port" validate:"min=1,max=65535"`
	AllowedOrigins []string `json:"allowed_origins"`
	SocketRoute    string   `json:"socket_route" validate:"required"`
}

type TranslationConfig struct {
	Provider       string `json:"provider" validate:"oneof=http stub"`
	BaseURL        string `json:"base_url" validate:"required_if=Provider http"`
	DefaultModel   string `json:"default_model" validate:"oneof=600M 3.3B"`
	TimeoutSeconds int    `json:"timeout_seconds" validate:"min=1"`
	MemoryEnabled  bool   `json:"memory_enabled"`
}

type BotConfig struct {
	URL            string `json:"url" validate:"omitempty,url"`
	ID             string `json:"id" validate:"required"`
	NativeLang     string `json:"native_lang" validate:"required"`
	TimeoutSeconds int    `json:"timeout_seconds" validate:"min=1"`
}

type ModerationConfig struct {
	Blocklist []string `json:"blocklist"`
}

type DashboardConfig struct {
	// RefreshSchedule is a cron spec; empty disables the periodic broadcast.
	RefreshSchedule string `json:"refresh_schedule"`
}

type LoggingConfig struct {
	Level       string `json:"level" validate:"oneof=debug info warn error"`
	Development bool   `json:"development"`
}

type Config struct {
	Storage     StorageConfig     `json:"storage"`
	Mongo       MongoConfig       `json:"mongo"`
	Server      ServerConfig      `json:"server"`
	Translation TranslationConfig `json:"translation"`
	Bot         BotConfig         `json:"bot"`
	Moderation  ModerationConfig  `json:"moderation"`
	Dashboard   DashboardConfig   `json:"dashboard"`
	Logging     LoggingConfig     `json:"logging"`
}

// LoadConfig reads .env, then the JSON file at configPath, then applies
// environment overrides and defaults. A missing file leaves every value to
// the environment and defaults.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	var config Config
	file, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(file, &config); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	if err := applyEnv(&config); err != nil {
		return nil, err
	}
	applyDefaults(&config)

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// ConfigPath returns CONFIG_PATH or the default location.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultConfigPath
}

func applyEnv(config *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	setString("MONGO_URI", &config.Mongo.Uri)
	setString("MONGO_DATABASE", &config.Mongo.Database)
	setString("STORAGE_DRIVER", &config.Storage.Driver)
	setString("CHATBOT_API_URL", &config.Bot.URL)
	setString("TRANSLATION_API_URL", &config.Translation.BaseURL)
	setString("TRANSLATION_PROVIDER", &config.Translation.Provider)
	setString("LOG_LEVEL", &config.Logging.Level)

	if v, ok := os.LookupEnv("APP_PORT"); ok {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid APP_PORT %q: %w", v, err)
		}
		config.Server.AppPort = port
	}
	return nil
}

func applyDefaults(config *Config) {
	if config.Storage.Driver == "" {
		config.Storage.Driver = StorageMemory
	}
	config.Mongo.Enabled = config.Storage.Driver == StorageMongo
	if config.Mongo.ConversationsCollection == "" {
		config.Mongo.ConversationsCollection = "conversations"
	}
	if config.Mongo.MessagesCollection == "" {
		config.Mongo.MessagesCollection = "messages"
	}
	if config.Mongo.MemoryCollection == "" {
		config.Mongo.MemoryCollection = "translation_memory"
	}

	if config.Server.AppPort == 0 {
		config.Server.AppPort = 8080
	}
	if config.Server.SocketRoute == "" {
		config.Server.SocketRoute = "ws"
	}
	config.Server.SocketRoute = strings.Trim(config.Server.SocketRoute, "/")

	if config.Translation.Provider == "" {
		config.Translation.Provider = ProviderStub
	}
	if config.Translation.DefaultModel == "" {
		config.Translation.DefaultModel = "600M"
	}
	if config.Translation.TimeoutSeconds == 0 {
		config.Translation.TimeoutSeconds = 30
	}

	if config.Bot.ID == "" {
		config.Bot.ID = "lingo-bot"
	}
	if config.Bot.NativeLang == "" {
		config.Bot.NativeLang = "en"
	}
	if config.Bot.TimeoutSeconds == 0 {
		config.Bot.TimeoutSeconds = 15
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
}
