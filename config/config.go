package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string          `mapstructure:"port"`
	UploadDir       string          `mapstructure:"upload_dir"`
	AdminAPIKey     string          `mapstructure:"ADMIN_API_KEY"`
	AI              AIConfig        `mapstructure:"ai"`
	WeaviateConfig  WeaviateConfig  `mapstructure:"weaviate"`
	EventConfig     EventConfig     `mapstructure:"events"`
	PipelineConfig  PipelineConfig  `mapstructure:"pipeline"`
	EmbedderConfig  EmbedderConfig  `mapstructure:"embedder"`
	ExtractorConfig ExtractorConfig `mapstructure:"alert_extractor"`
}

// AIConfig holds the shared AI Foundry endpoint and credentials used by
// both the vision extractor and the embedder.
type AIConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"AI_API_KEY"`
}

type WeaviateConfig struct {
	Host   string `mapstructure:"host"`
	APIKey string `mapstructure:"WEAVIATE_APIKEY"`
}

// EventConfig configures the NATS processing-event publisher. An empty
// URL disables publishing; the pipeline treats the publisher as
// best-effort either way.
type EventConfig struct {
	NatsURL string `mapstructure:"nats_url"`
	Subject string `mapstructure:"subject"`
}

type PipelineConfig struct {
	MaxChunkSize int `mapstructure:"max_chunk_size"`
}

type EmbedderConfig struct {
	Deployment string `mapstructure:"deployment"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
}

// ExtractorConfig configures the vision alert extractor. Backend picks
// the provider: "openai" (default) or "gemini". Timeout is the hard
// wall-clock bound on one extraction, independent of client timeouts.
type ExtractorConfig struct {
	Backend       string        `mapstructure:"backend"`
	Deployment    string        `mapstructure:"deployment"`
	Timeout       time.Duration `mapstructure:"timeout"`
	PriorityPages int           `mapstructure:"priority_pages"`
	GeminiAPIKey  string        `mapstructure:"GEMINI_API_KEY"`
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Bind environment variables for secrets
	v.BindEnv("ADMIN_API_KEY")
	v.BindEnv("ai.AI_API_KEY", "AI_API_KEY")
	v.BindEnv("weaviate.WEAVIATE_APIKEY", "WEAVIATE_APIKEY")
	v.BindEnv("alert_extractor.GEMINI_API_KEY", "GEMINI_API_KEY")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.PipelineConfig.MaxChunkSize == 0 {
		c.PipelineConfig.MaxChunkSize = 4000
	}
	if c.EmbedderConfig.Deployment == "" {
		c.EmbedderConfig.Deployment = "text-embedding-3-small"
	}
	if c.EmbedderConfig.Dimensions == 0 {
		c.EmbedderConfig.Dimensions = 1536
	}
	if c.EmbedderConfig.BatchSize == 0 {
		c.EmbedderConfig.BatchSize = 16
	}
	if c.ExtractorConfig.Backend == "" {
		c.ExtractorConfig.Backend = "openai"
	}
	if c.ExtractorConfig.Deployment == "" {
		c.ExtractorConfig.Deployment = "gpt-5.2"
	}
	if c.ExtractorConfig.Timeout == 0 {
		c.ExtractorConfig.Timeout = 90 * time.Second
	}
	if c.ExtractorConfig.PriorityPages == 0 {
		c.ExtractorConfig.PriorityPages = 4
	}
	if c.EventConfig.Subject == "" {
		c.EventConfig.Subject = "ewa.processing"
	}
}
