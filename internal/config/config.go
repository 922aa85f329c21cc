package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	commoncfg "github.com/SirazSium84/Doctor-s-Helper-sub000/common/config"

	"github.com/joho/godotenv"
)

// Config is the dashboard backend configuration.
type Config struct {
	HTTP struct {
		Addr           string
		RequestTimeout time.Duration
	}

	DBEnabled bool
	Database  commoncfg.DatabaseConfig

	RedisEnabled bool
	Redis        commoncfg.RedisConfig

	MQTT struct {
		Enabled bool
		Topic   string
		commoncfg.MQTTConfig
	}

	Cache struct {
		TTL             time.Duration
		LoadTimeout     time.Duration
		RefreshSchedule string // cron expression; empty disables scheduled refresh
		MirrorKey       string
	}

	Events struct {
		Stream string
		MaxLen int64
	}

	LLM    LLMConfig
	Vector VectorConfig

	Log struct {
		Level  string
		Format string
	}
}

// LLMConfig configures the chat completion backend.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Configured reports whether a real LLM backend can be called.
func (c LLMConfig) Configured() bool {
	return c.APIKey != "" && c.BaseURL != ""
}

// VectorConfig configures the hosted embedding index.
type VectorConfig struct {
	APIKey    string
	IndexHost string
	Namespace string
	TopK      int
	Timeout   time.Duration
}

// Configured reports whether a real vector index can be queried.
func (c VectorConfig) Configured() bool {
	return c.APIKey != "" && c.IndexHost != ""
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.RequestTimeout = seconds("HTTP_REQUEST_TIMEOUT_SECONDS", 30)

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Database: "healthcare",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "doctors-helper/dashboard/snapshot")
	cfg.MQTT.MQTTConfig = commoncfg.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "doctors-helper",
		QoS:      1,
	}
	cfg.MQTT.MQTTConfig.LoadFromEnv("MQTT")

	cfg.Cache.TTL = seconds("CACHE_TTL_SECONDS", 600)
	cfg.Cache.LoadTimeout = seconds("CACHE_LOAD_TIMEOUT_SECONDS", 60)
	cfg.Cache.RefreshSchedule = os.Getenv("CACHE_REFRESH_SCHEDULE")
	cfg.Cache.MirrorKey = getEnv("CACHE_MIRROR_KEY", "dashboard:snapshot:full")

	cfg.Events.Stream = getEnv("EVENTS_STREAM", "dashboard:events")
	cfg.Events.MaxLen = int64(parseInt(getEnv("EVENTS_STREAM_MAXLEN", "1000"), 1000))

	cfg.LLM = LLMConfig{
		APIKey:  os.Getenv("LLM_API_KEY"),
		BaseURL: getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		Model:   getEnv("LLM_MODEL", "gpt-4o-mini"),
		Timeout: seconds("LLM_TIMEOUT_SECONDS", 60),
	}

	cfg.Vector = VectorConfig{
		APIKey:    os.Getenv("PINECONE_API_KEY"),
		IndexHost: os.Getenv("PINECONE_INDEX_HOST"),
		Namespace: getEnv("PINECONE_NAMESPACE", "dsm5"),
		TopK:      parseInt(getEnv("VECTOR_TOP_K", "5"), 5),
		Timeout:   seconds("VECTOR_TIMEOUT_SECONDS", 15),
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func seconds(key string, def int) time.Duration {
	n := parseInt(getEnv(key, strconv.Itoa(def)), def)
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}
