package config

import (
	"fmt"
	"time"

	"monitor-precos/internal/logger"
	"monitor-precos/internal/scraper"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config contém as configurações da aplicação
type Config struct {
	TelegramBotToken     string
	TelegramChatID       int64
	CheckIntervalMinutes int
	CheckInterval        time.Duration
	DatabasePath         string
	DatabaseURL          string // PostgreSQL; vazio usa SQLite em DatabasePath

	FetchMode    scraper.Strategy
	RequestDelay time.Duration
	HTTPTimeout  time.Duration
	BrowserBin   string

	LogLevel  string
	LogFormat string
}

// LoadDotEnv carrega o arquivo .env se existir. Retorna false se não houver arquivo.
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// Load carrega as configurações das variáveis de ambiente
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("CHECK_INTERVAL_MINUTES", 360)
	v.SetDefault("DATABASE_PATH", "./products.db")
	v.SetDefault("FETCH_MODE", string(scraper.StrategyAuto))
	v.SetDefault("REQUEST_DELAY_SECONDS", 2)
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	cfg := &Config{
		TelegramBotToken:     v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:       v.GetInt64("TELEGRAM_CHAT_ID"),
		CheckIntervalMinutes: v.GetInt("CHECK_INTERVAL_MINUTES"),
		DatabasePath:         v.GetString("DATABASE_PATH"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		RequestDelay:         time.Duration(v.GetInt("REQUEST_DELAY_SECONDS")) * time.Second,
		HTTPTimeout:          time.Duration(v.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second,
		BrowserBin:           v.GetString("BROWSER_BIN"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
	}

	if cfg.CheckIntervalMinutes <= 0 {
		cfg.CheckIntervalMinutes = 360
	}
	cfg.CheckInterval = time.Duration(cfg.CheckIntervalMinutes) * time.Minute
	if cfg.RequestDelay < 0 {
		cfg.RequestDelay = 0
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = scraper.DefaultHTTPTimeout
	}

	mode, err := scraper.ParseStrategy(v.GetString("FETCH_MODE"))
	if err != nil {
		return nil, err
	}
	cfg.FetchMode = mode

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate verifica as opções que não têm correção automática
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT inválido: %s", c.LogFormat)
	}
	return nil
}

// RequireTelegram verifica se o bot pode ser iniciado
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN não configurado")
	}
	return nil
}
