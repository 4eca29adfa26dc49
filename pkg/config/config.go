package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gatherly/chat-service/pkg/logging"
)

// Config is shared by every binary in this repository; each one reads the
// sections it needs.
type Config struct {
	Gateway   ServerConfig
	API       ServerConfig
	WebSocket WebSocketConfig
	Scylla    ScyllaConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Chat      ChatConfig
	MockFeed  MockFeedConfig `mapstructure:"mock_feed"`
	Log       logging.Config
}

type ServerConfig struct {
	Host string
	Port int
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type ScyllaConfig struct {
	Hosts    []string
	Keyspace string
	Timeout  time.Duration
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string `mapstructure:"group_id"`
}

type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type ChatConfig struct {
	HistoryLimit int   `mapstructure:"history_limit"`
	NodeID       int64 `mapstructure:"node_id"`
}

type MockFeedConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load reads config.yaml from ./config or the working directory, then
// applies environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	v.BindEnv("gateway.port", "GATEWAY_PORT")
	v.BindEnv("api.port", "API_PORT")
	v.BindEnv("scylla.hosts", "SCYLLA_HOSTS")
	v.BindEnv("scylla.keyspace", "SCYLLA_KEYSPACE")
	v.BindEnv("redis.address", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("auth.secret", "AUTH_SECRET")
	v.BindEnv("log.level", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file: defaults plus env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Comma-separated env values for slice fields.
	if hosts := v.GetString("scylla.hosts"); hosts != "" && len(cfg.Scylla.Hosts) <= 1 {
		cfg.Scylla.Hosts = splitList(hosts)
	}
	if brokers := v.GetString("kafka.brokers"); brokers != "" && len(cfg.Kafka.Brokers) <= 1 {
		cfg.Kafka.Brokers = splitList(brokers)
	}

	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.MockFeed.Interval = parseDuration(v, "mock_feed.interval", 45*time.Second)
	cfg.Auth.TokenTTL = parseDuration(v, "auth.token_ttl", 24*time.Hour)
	cfg.Scylla.Timeout = parseDuration(v, "scylla.timeout", 5*time.Second)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 8080)
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8081)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("scylla.hosts", "localhost:9042")
	v.SetDefault("scylla.keyspace", "gatherly_chat")
	v.SetDefault("scylla.timeout", "5s")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", "localhost:19092")
	v.SetDefault("kafka.topic", "chat-messages")
	v.SetDefault("kafka.group_id", "activity-service-group")
	v.SetDefault("auth.secret", "dev_secret_change_me")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("chat.node_id", 1)
	v.SetDefault("mock_feed.enabled", true)
	v.SetDefault("mock_feed.interval", "45s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return defaultVal
	}
	return d
}
