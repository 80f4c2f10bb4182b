package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"CONTENTFILTER_LOG_LEVEL", "CONTENTFILTER_MIME_TYPE", "CONTENTFILTER_CHARSET",
		"CONTENTFILTER_STRICT", "CONTENTFILTER_DELETE_COMMENTS", "CONTENTFILTER_POLICY_FILE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, &Config{LogLevel: "info", MIMEType: "text/html"}, cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoadFromEnv(t *testing.T) {
	// given
	t.Setenv("CONTENTFILTER_LOG_LEVEL", "DEBUG")
	t.Setenv("CONTENTFILTER_MIME_TYPE", "Text/CSS")
	t.Setenv("CONTENTFILTER_CHARSET", "iso-8859-1")
	t.Setenv("CONTENTFILTER_STRICT", "true")
	t.Setenv("CONTENTFILTER_DELETE_COMMENTS", "true")
	t.Setenv("CONTENTFILTER_POLICY_FILE", "/etc/contentfilter/policy.yaml")

	// when
	cfg := Load()

	// then
	assert.Equal(t, &Config{
		LogLevel:       "debug",
		MIMEType:       "text/css",
		Charset:        "iso-8859-1",
		Strict:         true,
		DeleteComments: true,
		PolicyFile:     "/etc/contentfilter/policy.yaml",
	}, cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{LogLevel: "warn", MIMEType: "application/xhtml+xml", Charset: "utf-8"}, true},
		{"bad level", Config{LogLevel: "verbose", MIMEType: "text/html"}, false},
		{"bad mime type", Config{LogLevel: "info", MIMEType: "image/png"}, false},
		{"bad charset", Config{LogLevel: "info", MIMEType: "text/html", Charset: "x-klingon"}, false},
		{"missing mime type", Config{LogLevel: "info"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Equal(t, tt.ok, err == nil, "%v", err)
		})
	}
}

func TestNormalizeFlagValues(t *testing.T) {
	// given: values as a user might pass them on the command line
	cfg := &Config{LogLevel: " WARN", MIMEType: "TEXT/CSS ", Charset: " utf-8 "}

	// when
	cfg.Normalize()

	// then
	assert.Equal(t, &Config{LogLevel: "warn", MIMEType: "text/css", Charset: "utf-8"}, cfg)
	assert.NoError(t, cfg.Validate())
}
