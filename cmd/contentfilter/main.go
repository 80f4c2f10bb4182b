package main

import (
	"bufio"
	"bytes"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/njchilds90/contentfilter"
	"github.com/njchilds90/contentfilter/internal/config"
	"github.com/njchilds90/contentfilter/internal/uripolicy"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist)
	_ = godotenv.Load()

	cfg := config.Load()

	flag.StringVar(&cfg.MIMEType, "type", cfg.MIMEType, "MIME type of the input: text/html, application/xhtml+xml or text/css")
	flag.StringVar(&cfg.Charset, "charset", cfg.Charset, "charset of the input (default: sniffed, then utf-8)")
	flag.BoolVar(&cfg.Strict, "strict", cfg.Strict, "fail on refused links, forms and base URIs")
	flag.BoolVar(&cfg.DeleteComments, "delete-comments", cfg.DeleteComments, "drop comments instead of escaping them")
	flag.StringVar(&cfg.PolicyFile, "policy", cfg.PolicyFile, "YAML URI policy file")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.Parse()
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	policy := uripolicy.Default()
	if cfg.PolicyFile != "" {
		var err error
		if policy, err = uripolicy.Load(cfg.PolicyFile); err != nil {
			log.Fatalf("Failed to load URI policy: %v", err)
		}
	}

	content, err := readInput(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	filter, _ := contentfilter.ForMIMEType(cfg.MIMEType, &contentfilter.Options{
		Strict:         cfg.Strict,
		DeleteComments: cfg.DeleteComments,
		Logger:         logger,
	})

	charset := cfg.Charset
	if charset == "" {
		var ok bool
		if charset, ok = filter.ExtractCharset(content, "utf-8"); !ok {
			charset = "utf-8"
		}
		logger.Debug("charset sniffed", "charset", charset)
	}

	cb := uripolicy.New(policy)
	out := bufio.NewWriter(os.Stdout)
	if err := filter.Filter(bytes.NewReader(content), out, charset, cb); err != nil {
		if fe, ok := contentfilter.AsError(err); ok {
			logger.Warn("document rejected", "reason", fe.Reason, "explanation", fe.Explanation)
		} else {
			logger.Warn("document rejected", "error", err)
		}
		os.Exit(1)
	}
	if err := out.Flush(); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}

	logger.Info("filtered",
		"type", cfg.MIMEType,
		"charset", charset,
		"input_bytes", len(content),
		"text_bytes", cb.TextBytes(),
	)
}

// readInput reads the whole input file, or stdin when path is empty. The
// file is closed before returning.
func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	content, err := io.ReadAll(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return content, err
}
