package config

import (
	"errors"
	"fmt"
	"log"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultRunAddress        = "localhost:8080"
	defaultDataDir           = "../secure_data"
	defaultSessionTTL        = 24 * time.Hour
	defaultMaxFailedAttempts = 5
	defaultLockoutDuration   = 15 * time.Minute
)

var envPaths = []string{".env", "../.env", "../../.env"}

type Config struct {
	Env     string
	DB      db
	Server  server
	Logger  logger
	Auth    auth
	Notify  notify
	Session session
}

type db struct {
	DatabaseURI string `mapstructure:"database_uri"`
}

type server struct {
	RunAddress string `mapstructure:"run_address"`
	// TrustedProxies - только от этих адресов принимаются X-Forwarded-For и X-Real-IP
	TrustedProxies []netip.Prefix
}

type logger struct {
	// LogLevel - пустое значение означает уровень по умолчанию для APP_ENV
	LogLevel string `mapstructure:"log_level"`
}

type auth struct {
	// EncryptionKey - 64 hex символа, ключ хранилища учетных записей
	EncryptionKey     string        `mapstructure:"encryption_key"`
	DataDir           string        `mapstructure:"data_dir"`
	MaxFailedAttempts int           `mapstructure:"auth_max_failed_attempts"`
	LockoutDuration   time.Duration `mapstructure:"auth_lockout_duration"`
}

type notify struct {
	DiscordWebhookURL string `mapstructure:"discord_webhook_url"`
}

type session struct {
	TTL          time.Duration `mapstructure:"session_ttl"`
	CookieSecure bool          `mapstructure:"session_cookie_secure"`
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	loadDotEnv()

	v := viper.GetViper()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env: v.GetString("APP_ENV"),
		DB: db{
			DatabaseURI: v.GetString("DATABASE_URI"),
		},
		Server: server{RunAddress: v.GetString("RUN_ADDRESS")},
		Logger: logger{LogLevel: v.GetString("LOG_LEVEL")},
		Auth: auth{
			EncryptionKey:     v.GetString("ENCRYPTION_KEY"),
			DataDir:           v.GetString("DATA_DIR"),
			MaxFailedAttempts: v.GetInt("AUTH_MAX_FAILED_ATTEMPTS"),
			LockoutDuration:   v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Notify: notify{DiscordWebhookURL: v.GetString("DISCORD_WEBHOOK_URL")},
		Session: session{
			TTL:          v.GetDuration("SESSION_TTL"),
			CookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
		},
	}

	proxies, err := ParseTrustedProxies(v.GetString("TRUSTED_PROXIES"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Server.TrustedProxies = proxies

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// MustLoad как Load, но завершает процесс при ошибке конфигурации
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalln(err)
	}
	return cfg
}

// ParseTrustedProxies разбирает список адресов и подсетей через запятую.
// Одиночный адрес превращается в подсеть из одного адреса.
func ParseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvLocal)
	v.SetDefault("RUN_ADDRESS", defaultRunAddress)
	v.SetDefault("DATA_DIR", defaultDataDir)
	v.SetDefault("SESSION_TTL", defaultSessionTTL)
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("AUTH_MAX_FAILED_ATTEMPTS", defaultMaxFailedAttempts)
	v.SetDefault("AUTH_LOCKOUT_DURATION", defaultLockoutDuration)
}

func loadDotEnv() {
	for _, p := range envPaths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("failed to load %s: %v", p, err)
		}
		return
	}
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown APP_ENV %q", c.Env)
	}
	if c.Server.RunAddress == "" {
		return errors.New("RUN_ADDRESS must not be empty")
	}
	if c.Auth.DataDir == "" {
		return errors.New("DATA_DIR must not be empty")
	}
	if c.Auth.MaxFailedAttempts < 1 {
		return errors.New("AUTH_MAX_FAILED_ATTEMPTS must be positive")
	}
	if c.Auth.LockoutDuration <= 0 {
		return errors.New("AUTH_LOCKOUT_DURATION must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

// CredentialsPath путь к зашифрованному файлу учетных записей
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.Auth.DataDir, "users.enc")
}

// SessionsPath путь к sqlite базе сессий, если DATABASE_URI не задан
func (c *Config) SessionsPath() string {
	return filepath.Join(c.Auth.DataDir, "sessions.db")
}

func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}
