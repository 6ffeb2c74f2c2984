package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/go-demo/roomchat/internal/chat"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Chat     ChatConfig
	WS       WSConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	Mode            string // debug, release, test
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig configures the moderation audit log. The server runs
// without a database when Enabled is false.
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AuditBuffer     int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string
}

type ChatConfig struct {
	GeneralRoomName     string
	GeneralRoomCapacity int
	CreateLimit         int
	CreateWindow        time.Duration
	RateLimitBackend    string // memory, redis
	MuteDuration        time.Duration
	WarningThreshold    int
	MaxHistory          int
	SnapshotSize        int
	MaxMessageLength    int
	SweepInterval       time.Duration
	BannedWords         []string
}

type WSConfig struct {
	AllowedOrigins []string
	UpgradeRate    float64 // upgrades per second per IP
	UpgradeBurst   int
	MessageRate    float64 // frames per second per connection
	MessageBurst   int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads config.yaml (optional), CHAT_* environment variables and the
// defaults, in increasing order of precedence for env over file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// 環境變數前綴
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 預設值
	setDefaults(v)

	// 嘗試讀取設定檔（可選）
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// 沒有設定檔時使用環境變數和預設值
	}

	// 綁定環境變數
	bindEnvVariables(v)

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			Mode:            v.GetString("server.mode"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Enabled:         v.GetBool("database.enabled"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AuditBuffer:     v.GetInt("database.audit_buffer"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			PoolSize: v.GetInt("redis.pool_size"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			OutputPath: v.GetString("log.output_path"),
		},
		Chat: ChatConfig{
			GeneralRoomName:     v.GetString("chat.general_room_name"),
			GeneralRoomCapacity: v.GetInt("chat.general_room_capacity"),
			CreateLimit:         v.GetInt("chat.create_limit"),
			CreateWindow:        v.GetDuration("chat.create_window"),
			RateLimitBackend:    strings.ToLower(v.GetString("chat.rate_limit_backend")),
			MuteDuration:        v.GetDuration("chat.mute_duration"),
			WarningThreshold:    v.GetInt("chat.warning_threshold"),
			MaxHistory:          v.GetInt("chat.max_history"),
			SnapshotSize:        v.GetInt("chat.snapshot_size"),
			MaxMessageLength:    v.GetInt("chat.max_message_length"),
			SweepInterval:       v.GetDuration("chat.sweep_interval"),
			BannedWords:         v.GetStringSlice("chat.banned_words"),
		},
		WS: WSConfig{
			AllowedOrigins: v.GetStringSlice("ws.allowed_origins"),
			UpgradeRate:    v.GetFloat64("ws.upgrade_rate"),
			UpgradeBurst:   v.GetInt("ws.upgrade_burst"),
			MessageRate:    v.GetFloat64("ws.message_rate"),
			MessageBurst:   v.GetInt("ws.message_burst"),
		},
		CORS: CORSConfig{
			AllowedOrigins: v.GetStringSlice("cors.allowed_origins"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "chat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.audit_buffer", 256)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	// Chat defaults
	d := chat.DefaultConfig()
	v.SetDefault("chat.general_room_name", d.GeneralRoomName)
	v.SetDefault("chat.general_room_capacity", d.GeneralRoomCapacity)
	v.SetDefault("chat.create_limit", 5)
	v.SetDefault("chat.create_window", "1h")
	v.SetDefault("chat.rate_limit_backend", "memory")
	v.SetDefault("chat.mute_duration", d.MuteDuration.String())
	v.SetDefault("chat.warning_threshold", d.WarningThreshold)
	v.SetDefault("chat.max_history", d.MaxHistory)
	v.SetDefault("chat.snapshot_size", d.SnapshotSize)
	v.SetDefault("chat.max_message_length", d.MaxMessageLength)
	v.SetDefault("chat.sweep_interval", "1m")
	v.SetDefault("chat.banned_words", []string{})

	// WebSocket defaults
	v.SetDefault("ws.allowed_origins", []string{})
	v.SetDefault("ws.upgrade_rate", 1.0)
	v.SetDefault("ws.upgrade_burst", 10)
	v.SetDefault("ws.message_rate", 10.0)
	v.SetDefault("ws.message_burst", 20)

	v.SetDefault("cors.allowed_origins", []string{})
}

func bindEnvVariables(v *viper.Viper) {
	// Server
	_ = v.BindEnv("server.host", "SERVER_HOST")
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	_ = v.BindEnv("database.enabled", "DB_ENABLED")
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.dbname", "DB_NAME")
	_ = v.BindEnv("database.sslmode", "DB_SSLMODE")

	// Redis
	_ = v.BindEnv("redis.enabled", "REDIS_ENABLED")
	_ = v.BindEnv("redis.host", "REDIS_HOST")
	_ = v.BindEnv("redis.port", "REDIS_PORT")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Log
	_ = v.BindEnv("log.level", "LOG_LEVEL")
}

// ChatService maps the chat section onto the core's settings. Zero values
// fall back to the core defaults.
func (c *ChatConfig) ChatService() chat.Config {
	return chat.Config{
		GeneralRoomName:     c.GeneralRoomName,
		GeneralRoomCapacity: c.GeneralRoomCapacity,
		MuteDuration:        c.MuteDuration,
		WarningThreshold:    c.WarningThreshold,
		MaxHistory:          c.MaxHistory,
		SnapshotSize:        c.SnapshotSize,
		MaxMessageLength:    c.MaxMessageLength,
		BannedWords:         c.BannedWords,
	}
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr returns server address
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
