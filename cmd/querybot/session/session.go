// Package session wires configuration, logging, the ask client and a
// conversation store together for the querybot commands.
package session

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/papercomputeco/querybot/client"
	"github.com/papercomputeco/querybot/conversation"
	"github.com/papercomputeco/querybot/pkg/config"
	"github.com/papercomputeco/querybot/pkg/logger"
)

// Options are the flags every querybot command accepts.
type Options struct {
	ConfigPath string
	EnvFile    string
	BaseURL    string
	Timeout    time.Duration
	Debug      bool
}

// Bind registers the shared flags on flags.
func (o *Options) Bind(flags *pflag.FlagSet) {
	flags.StringVarP(&o.ConfigPath, "config", "c", "", "Path to config file (default ~/.querybot/config.toml)")
	flags.StringVar(&o.EnvFile, "env-file", ".env", "Path to a .env file to load")
	flags.StringVarP(&o.BaseURL, "base-url", "u", "", "QueryBot server base URL")
	flags.DurationVar(&o.Timeout, "timeout", 0, "Per-request timeout (e.g. 30s)")
	flags.BoolVar(&o.Debug, "debug", false, "Enable debug logging")
}

// ResolvePath loads the .env file, which may set QUERYBOT_CONFIG, and
// returns the config file location without reading it.
func (o *Options) ResolvePath() (string, error) {
	if err := config.LoadDotEnv(o.EnvFile); err != nil {
		return "", err
	}

	path, err := config.ResolvePath(o.ConfigPath)
	if err != nil {
		return "", fmt.Errorf("could not resolve config path: %w", err)
	}
	return path, nil
}

// LoadConfig resolves and loads the config file, applies flag overrides and
// validates the result. It returns the resolved file path alongside the
// config.
func (o *Options) LoadConfig() (*config.Config, string, error) {
	path, err := o.ResolvePath()
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}

	o.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, path, nil
}

// Apply overlays the flags that were set onto cfg.
func (o *Options) Apply(cfg *config.Config) {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	if o.Timeout > 0 {
		cfg.Timeout = config.Duration{Duration: o.Timeout}
	}
	if o.Debug {
		cfg.Debug = true
	}
}

// Session is one conversation with its supporting pieces.
type Session struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zap.Logger
	Client     *client.Client
	Store      *conversation.Store

	closeLog func() error
}

// Open builds a Session. When logTo is nil, logs go to the configured
// log file.
func (o *Options) Open(logTo io.Writer) (*Session, error) {
	cfg, path, err := o.LoadConfig()
	if err != nil {
		return nil, err
	}

	var log *zap.Logger
	closeLog := func() error { return nil }
	if logTo != nil {
		log = logger.NewLogger(cfg.Debug, logTo)
	} else {
		log, closeLog, err = logger.NewFileLogger(cfg.Debug, cfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("could not open log file %s: %w", cfg.LogFile, err)
		}
	}

	c, err := client.New(ClientConfig(cfg), log)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("could not create client: %w", err)
	}

	store := conversation.NewStore(c, log, conversation.WithTimeout(cfg.Timeout.Duration))

	log.Info("querybot session started",
		zap.String("conversation", store.ID()),
		zap.String("base_url", cfg.BaseURL),
		zap.Duration("timeout", cfg.Timeout.Duration),
		zap.String("config", path),
	)

	return &Session{
		Config:     cfg,
		ConfigPath: path,
		Logger:     log,
		Client:     c,
		Store:      store,
		closeLog:   closeLog,
	}, nil
}

// ClientConfig maps the file config onto the client's settings.
func ClientConfig(cfg *config.Config) client.Config {
	return client.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout.Duration,
	}
}

// Close shuts the store (dropping any late reply) and flushes logs.
func (s *Session) Close() error {
	s.Store.Close()
	_ = s.Logger.Sync()
	return s.closeLog()
}
