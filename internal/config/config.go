package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/njchilds90/contentfilter/internal/charsets"
)

type Config struct {
	LogLevel       string
	MIMEType       string
	Charset        string // empty means sniff, falling back to utf-8
	Strict         bool
	DeleteComments bool
	PolicyFile     string // YAML URI policy; empty means the built-in one
}

func Load() *Config {
	return &Config{
		LogLevel:       strings.ToLower(getEnv("CONTENTFILTER_LOG_LEVEL", "info")),
		MIMEType:       strings.ToLower(getEnv("CONTENTFILTER_MIME_TYPE", "text/html")),
		Charset:        getEnv("CONTENTFILTER_CHARSET", ""),
		Strict:         getEnv("CONTENTFILTER_STRICT", "false") == "true",
		DeleteComments: getEnv("CONTENTFILTER_DELETE_COMMENTS", "false") == "true",
		PolicyFile:     getEnv("CONTENTFILTER_POLICY_FILE", ""),
	}
}

// Normalize lower-cases the case-insensitive settings. Call it after
// flags have been applied.
func (c *Config) Normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.MIMEType = strings.ToLower(strings.TrimSpace(c.MIMEType))
	c.Charset = strings.TrimSpace(c.Charset)
}

// Validate checks the configuration after flags have been applied.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.Required, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.MIMEType, validation.Required, validation.In("text/html", "application/xhtml+xml", "text/css")),
		validation.Field(&c.Charset, validation.By(supportedCharset)),
	)
}

func supportedCharset(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, _, ok := charsets.Lookup(s); !ok {
		return errors.New("unsupported charset")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
