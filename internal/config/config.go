package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultConfigFile = "config.ini"

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Monitoring MonitoringConfig
	Security   SecurityConfig
	Telegram   TelegramConfig
	Logger     LoggerConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string
	Path            string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type MonitoringConfig struct {
	CheckInterval time.Duration
	AllowedDelay  time.Duration
}

type SecurityConfig struct {
	APIKeys []string
}

type TelegramConfig struct {
	BotToken  string
	ChatID    string
	APIServer string
	Timeout   time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

// Load reads configuration from, in increasing priority: defaults, the INI
// (or any viper-supported) file named by CONFIG_FILE, and the environment.
// A .env file in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/monitoring.db")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("monitoring.check_interval", "30")
	v.SetDefault("monitoring.allowed_delay", "300")
	v.SetDefault("security.api_keys", "")
	v.SetDefault("security.chat_id", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_server", "")
	v.SetDefault("telegram.timeout", "10s")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	// Env
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("monitoring.check_interval", "MONITORING_CHECK_INTERVAL", "CHECK_INTERVAL")
	_ = v.BindEnv("monitoring.allowed_delay", "MONITORING_ALLOWED_DELAY", "ALLOWED_DELAY")
	_ = v.BindEnv("security.api_keys", "SECURITY_API_KEYS", "API_KEYS")

	// File
	file := os.Getenv("CONFIG_FILE")
	if file == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			file = defaultConfigFile
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	checkInterval, err := seconds(v.GetString("monitoring.check_interval"))
	if err != nil {
		return nil, fmt.Errorf("monitoring.check_interval: %w", err)
	}
	if checkInterval <= 0 {
		return nil, fmt.Errorf("monitoring.check_interval must be positive")
	}
	allowedDelay, err := seconds(v.GetString("monitoring.allowed_delay"))
	if err != nil {
		return nil, fmt.Errorf("monitoring.allowed_delay: %w", err)
	}

	chatID, err := telegramChatID(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			ShutdownTimeout: duration(v.GetString("server.shutdown_timeout"), 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			Path:            v.GetString("database.path"),
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: duration(v.GetString("database.conn_max_lifetime"), 30*time.Minute),
		},
		Monitoring: MonitoringConfig{
			CheckInterval: checkInterval,
			AllowedDelay:  allowedDelay,
		},
		Security: SecurityConfig{
			APIKeys: splitList(v.GetString("security.api_keys")),
		},
		Telegram: TelegramConfig{
			BotToken:  v.GetString("telegram.bot_token"),
			ChatID:    chatID,
			APIServer: v.GetString("telegram.api_server"),
			Timeout:   duration(v.GetString("telegram.timeout"), 10*time.Second),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("logger.level"),
			Format: v.GetString("logger.format"),
		},
	}

	switch cfg.Database.Driver {
	case "sqlite", "sqlite3":
		cfg.Database.Driver = "sqlite"
	case "postgres", "postgresql":
		cfg.Database.Driver = "postgres"
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("database.url is required for the postgres driver")
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	return cfg, nil
}

// Addr is the listen address of the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// seconds accepts either a Go duration ("5m") or a bare number of seconds.
func seconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := seconds(s)
	if err != nil {
		return fallback
	}
	return d
}

// telegramChatID prefers telegram.chat_id and falls back to the [security] chat_id
// key of older config files. Numeric ids and @channel usernames are accepted.
func telegramChatID(v *viper.Viper) (string, error) {
	raw := strings.TrimSpace(v.GetString("telegram.chat_id"))
	if raw == "" {
		raw = strings.TrimSpace(v.GetString("security.chat_id"))
	}
	if raw == "" {
		return "", nil
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil && (!strings.HasPrefix(raw, "@") || len(raw) == 1) {
		return "", fmt.Errorf("telegram chat id %q: want a numeric id or @username", raw)
	}
	return raw, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
