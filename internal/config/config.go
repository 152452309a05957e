package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"3000"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Processor sweep.
	ProcessorInterval  time.Duration `env:"PROCESSOR_INTERVAL" envDefault:"30s"`
	ProcessorBatchSize int           `env:"PROCESSOR_BATCH_SIZE" envDefault:"10"`
	SendDelay          time.Duration `env:"SEND_DELAY" envDefault:"0"`
	MaxRetries         int           `env:"MAX_RETRIES" envDefault:"3"`

	// Generator sweep.
	GeneratorInterval  time.Duration `env:"GENERATOR_INTERVAL" envDefault:"5s"`
	GeneratorBatchSize int           `env:"GENERATOR_BATCH_SIZE" envDefault:"5"`
	GenerationTimeout  time.Duration `env:"GENERATION_TIMEOUT" envDefault:"10m"`

	// SMTP dispatch. MockEmail swaps in the in-memory mailer.
	MockEmail    bool   `env:"MOCK_EMAIL" envDefault:"true"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	// AI content generation.
	MockAI      bool   `env:"MOCK_AI" envDefault:"true"`
	OpenAIKey   string `env:"OPENAI_API_KEY"`
	OpenAIModel string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// Company research.
	PerplexityKey   string `env:"PERPLEXITY_API_KEY"`
	PerplexityModel string `env:"PERPLEXITY_MODEL" envDefault:"sonar"`

	// RabbitMQ eventing. Empty URL disables the publisher and consumer.
	AMQPURL string `env:"AMQP_URL"`
}

func Load() (*Config, error) {
	// Missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if !cfg.MockEmail && cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is required when MOCK_EMAIL is false")
	}
	if !cfg.MockAI && cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required when MOCK_AI is false")
	}

	return cfg, nil
}
