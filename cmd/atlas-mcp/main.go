package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/golovatskygroup/mcp-atlas/internal/server"
)

// Config mirrors the environment variables the server reads. File values
// only fill in variables that are not already set, so the environment stays
// authoritative.
type Config struct {
	LogLevel string `yaml:"log_level"`

	ConfluenceBaseURL string `yaml:"confluence_base_url"`
	JiraBaseURL       string `yaml:"jira_base_url"`

	IngestAPIURL   string `yaml:"ingest_api_url"`
	IngestAPIToken string `yaml:"ingest_api_token"`

	DownloadDir string  `yaml:"download_dir"`
	LedgerPath  string  `yaml:"ledger_path"`
	RPS         float64 `yaml:"rps"`
}

func (c Config) apply() {
	setIfUnset := func(key, val string) {
		if val != "" && os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
	setIfUnset("CONFLUENCE_BASE_URL", c.ConfluenceBaseURL)
	setIfUnset("JIRA_BASE_URL", c.JiraBaseURL)
	setIfUnset("INGEST_API_URL", c.IngestAPIURL)
	setIfUnset("INGEST_API_TOKEN", c.IngestAPIToken)
	setIfUnset("ATLAS_MCP_DOWNLOAD_DIR", c.DownloadDir)
	setIfUnset("ATLAS_MCP_LEDGER_PATH", c.LedgerPath)
	if c.RPS > 0 {
		setIfUnset("ATLAS_MCP_RPS", fmt.Sprintf("%g", c.RPS))
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config file")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	var cfg Config
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.apply()

	// stdout carries the protocol; everything human-readable goes to
	// stderr.
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "atlas-mcp",
	})
	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	if level != "" {
		lvl, err := log.ParseLevel(level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid log level %q\n", level)
			os.Exit(1)
		}
		logger.SetLevel(lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	srv := server.New(os.Stdin, os.Stdout, logger)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
