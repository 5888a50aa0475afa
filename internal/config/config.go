package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	Kafka  KafkaConfig
	Stripe StripeConfig
	Slots  SlotConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr string
	// AdmitLockTTL is the safety valve on the per-slot admission lock; a
	// crashed handler releases the slot after this long.
	AdmitLockTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	OrderCreated string
	OrderStatus  string
	SlotWarning  string
	SlotConfig   string
}

type StripeConfig struct {
	SecretKey string
	Currency  string
}

type SlotConfig struct {
	// QRCodeDir is where redemption QR images are written.
	QRCodeDir string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8084"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			AdmitLockTTL: time.Duration(getEnvInt("SLOT_ADMIT_LOCK_TTL_SECONDS", 10)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_ADDR", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				OrderCreated: getEnv("KAFKA_TOPIC_ORDER_CREATED", "canteen.order.created"),
				OrderStatus:  getEnv("KAFKA_TOPIC_ORDER_STATUS", "canteen.order.status"),
				SlotWarning:  getEnv("KAFKA_TOPIC_SLOT_WARNING", "canteen.slot.warning"),
				SlotConfig:   getEnv("KAFKA_TOPIC_SLOT_CONFIG", "canteen.slot.config"),
			},
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
			Currency:  getEnv("PAYMENT_CURRENCY", "inr"),
		},
		Slots: SlotConfig{
			QRCodeDir: getEnv("QR_CODE_DIR", "static/qrcodes"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
