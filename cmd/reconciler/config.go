package main

import (
	"fmt"
	"os"
	"time"

	"codejudge/internal/common/db"
	"codejudge/internal/common/mq"
	"codejudge/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultResultTopic     = "judge.results"
	defaultDeadLetterTopic = "judge.results.dlq"
	defaultConsumerGroup   = "reconciler"
	defaultConcurrency     = 4
	defaultMaxRetries      = 5
	defaultRetryDelay      = 2 * time.Second
)

// ConsumerConfig tunes the result consumer.
type ConsumerConfig struct {
	Topic           string        `yaml:"topic"`
	ConsumerGroup   string        `yaml:"consumerGroup"`
	Concurrency     int           `yaml:"concurrency"`
	MaxRetries      int           `yaml:"maxRetries"`
	RetryDelay      time.Duration `yaml:"retryDelay"`
	DeadLetterTopic string        `yaml:"deadLetterTopic"`
}

func (c ConsumerConfig) toSubscribeOptions() mq.SubscribeOptions {
	return mq.SubscribeOptions{
		ConsumerGroup:   c.ConsumerGroup,
		Concurrency:     c.Concurrency,
		MaxRetries:      c.MaxRetries,
		RetryDelay:      c.RetryDelay,
		DeadLetterTopic: c.DeadLetterTopic,
	}
}

// AppConfig holds reconciler configuration.
type AppConfig struct {
	Logger   logger.Config  `yaml:"logger"`
	Database db.MySQLConfig `yaml:"database"`
	Kafka    mq.KafkaConfig `yaml:"kafka"`
	Consumer ConsumerConfig `yaml:"consumer"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	if cfg.Consumer.Topic == "" {
		cfg.Consumer.Topic = defaultResultTopic
	}
	if cfg.Consumer.ConsumerGroup == "" {
		cfg.Consumer.ConsumerGroup = defaultConsumerGroup
	}
	if cfg.Consumer.Concurrency == 0 {
		cfg.Consumer.Concurrency = defaultConcurrency
	}
	if cfg.Consumer.MaxRetries == 0 {
		cfg.Consumer.MaxRetries = defaultMaxRetries
	}
	if cfg.Consumer.RetryDelay == 0 {
		cfg.Consumer.RetryDelay = defaultRetryDelay
	}
	if cfg.Consumer.DeadLetterTopic == "" {
		cfg.Consumer.DeadLetterTopic = defaultDeadLetterTopic
	}

	return &cfg, nil
}
