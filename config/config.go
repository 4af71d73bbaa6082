package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Mail     MailConfig     `yaml:"mail"`
	Telegram TelegramConfig `yaml:"telegram"`
	ShipBox  ShipBoxConfig  `yaml:"shipbox"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	DispatchResultTopic string `yaml:"dispatch_result_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type MailConfig struct {
	BrevoBaseURL string `yaml:"brevo_base_url"`
	BrevoAPIKey  string `yaml:"brevo_api_key"`
	SenderEmail  string `yaml:"sender_email"`
	SenderName   string `yaml:"sender_name"`
	AdminEmail   string `yaml:"admin_email"`
	LogoURL      string `yaml:"logo_url"`

	TranslateBaseURL string `yaml:"translate_base_url"`
	TranslateAPIKey  string `yaml:"translate_api_key"`
}

type TelegramConfig struct {
	BaseURL     string `yaml:"base_url"`
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
}

type ShipBoxConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	BaseURL            string `yaml:"base_url"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	JWTSecret       string `yaml:"jwt_secret"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes"`

	ChatLinkTTLHours int `yaml:"chat_link_ttl_hours"`

	WorkerPollIntervalSeconds int `yaml:"worker_poll_interval_seconds"`
	WorkerBatchSize           int `yaml:"worker_batch_size"`
	WorkerConcurrency         int `yaml:"worker_concurrency"`
	WorkerLeaseSeconds        int `yaml:"worker_lease_seconds"`
	WorkerMaxAttempts         int `yaml:"worker_max_attempts"`
	WorkerTelegramPerMinute   int `yaml:"worker_telegram_per_minute"`
	WorkerMailPerMinute       int `yaml:"worker_mail_per_minute"`

	WorkerHTTPAddr string `yaml:"worker_http_addr"`

	// Backoff ladder for failed dispatches (optional). Defaults are
	// 60/300/900/3600 seconds when unset.
	WorkerBackoff1Seconds int `yaml:"worker_backoff_1_seconds"`
	WorkerBackoff2Seconds int `yaml:"worker_backoff_2_seconds"`
	WorkerBackoff3Seconds int `yaml:"worker_backoff_3_seconds"`
	WorkerBackoff4Seconds int `yaml:"worker_backoff_4_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
