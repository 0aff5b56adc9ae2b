package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// defaultModels is used when EMBEDDING_MODEL is unset.
var defaultModels = map[string]string{
	ProviderOllama: "bge-m3",
	ProviderOpenAI: "text-embedding-3-small",
}

// Config holds runtime configuration read from the environment.
type Config struct {
	// Server
	Port            int           `env:"PORT" envDefault:"8567" validate:"min=1,max=65535"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`
	MaxBodySize     int64         `env:"MAX_BODY_SIZE" envDefault:"1048576" validate:"gt=0"` // 1MB in bytes
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Embedding model
	EmbedProvider   string `env:"EMBED_PROVIDER" envDefault:"ollama" validate:"oneof=ollama openai"`
	EmbeddingModel  string `env:"EMBEDDING_MODEL" validate:"required"` // defaults per provider
	StartupAttempts int    `env:"STARTUP_ATTEMPTS" envDefault:"5" validate:"min=1"`

	// Ollama
	OllamaHost      string        `env:"OLLAMA_HOST" envDefault:"http://127.0.0.1:11434" validate:"omitempty,url"`
	OllamaPull      bool          `env:"OLLAMA_PULL" envDefault:"false"`
	OllamaKeepAlive time.Duration `env:"OLLAMA_KEEP_ALIVE"`

	// OpenAI-compatible
	OpenAIKey     string `env:"OPENAI_API_KEY" validate:"required_if=EmbedProvider openai"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" validate:"omitempty,url"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultModels[cfg.EmbedProvider]
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Addr is the listen address; the server binds all interfaces.
func (c Config) Addr() string {
	return fmt.Sprintf("0.0.0.0:%d", c.Port)
}
