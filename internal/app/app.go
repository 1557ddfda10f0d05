package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/vk/comfygridgo/internal/client"
	"github.com/vk/comfygridgo/internal/config"
	"github.com/vk/comfygridgo/internal/export"
	"github.com/vk/comfygridgo/internal/listener"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	profile *config.Profile
	client  *client.Client
	sink    *export.Store
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and engine client.
func NewApp(outW io.Writer, appConfig *Config) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	// A .env next to the invocation is a convenience for credentials; its
	// absence is not an error.
	if err := godotenv.Load(); err == nil {
		logger.Debug("Environment loaded from .env file.")
	}

	profile, err := loadProfile(appConfig.ProfilePath)
	if err != nil {
		return nil, err
	}

	clientCfg, err := resolveClientConfig(appConfig, profile)
	if err != nil {
		return nil, err
	}
	engine, err := client.New(clientCfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Engine client configured.", "url", clientCfg.BaseURL)

	var sink *export.Store
	if profile != nil && profile.Export != nil {
		sink, err = export.New(export.Config{
			Endpoint:  profile.Export.Endpoint,
			AccessKey: profile.Export.AccessKey,
			SecretKey: profile.Export.SecretKey,
			Bucket:    profile.Export.Bucket,
			Prefix:    profile.Export.Prefix,
			UseSSL:    profile.Export.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		logger.Debug("Export sink configured.", "bucket", profile.Export.Bucket)
	}

	return &App{
		outW:    outW,
		logger:  logger,
		config:  appConfig,
		profile: profile,
		client:  engine,
		sink:    sink,
	}, nil
}

// Close releases the engine client's transport.
func (a *App) Close() error {
	return a.client.Close()
}

func loadProfile(path string) (*config.Profile, error) {
	if path == "" {
		return nil, nil
	}
	return config.LoadProfile(path)
}

// resolveClientConfig merges flags, profile and environment into the engine
// client's config. Precedence: flag, then profile, then environment, then
// built-in default.
func resolveClientConfig(appConfig *Config, profile *config.Profile) (client.Config, error) {
	cfg := client.Config{BaseURL: appConfig.ServerURL}

	var server *config.Server
	if profile != nil {
		server = profile.Server
	}
	if server != nil {
		if cfg.BaseURL == "" {
			cfg.BaseURL = server.URL
		}
		cfg.User = server.User
		cfg.Password = server.Password
		timeout, err := server.ParseTimeout()
		if err != nil {
			return client.Config{}, err
		}
		cfg.Timeout = timeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("COMFYGRID_SERVER")
	}
	if cfg.User == "" {
		cfg.User = os.Getenv("COMFYGRID_USER")
		cfg.Password = os.Getenv("COMFYGRID_PASSWORD")
	}

	if profile != nil && profile.Retry != nil {
		interval, err := profile.Retry.ParseInterval()
		if err != nil {
			return client.Config{}, err
		}
		cfg.Reconnect = listener.Config{
			ReconnectInterval: interval,
			MaxRetries:        uint64(max(profile.Retry.MaxRetries, 0)),
		}
	}

	// Bounded artifact cache; result assembly frequently re-reads artifacts.
	cfg.ViewCacheSize = 64
	return cfg, nil
}

func (a *App) extraData() (map[string]any, error) {
	if a.profile == nil || a.profile.Submit == nil {
		return nil, nil
	}
	extra, err := a.profile.Submit.ExtraDataMap()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve extra_data: %w", err)
	}
	return extra, nil
}
