package cli

import (
	"context"
	"fmt"
	"io"

	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/store"
)

// app is the wired runtime shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	backend *backend.BackendResult
	store   *store.Store
}

// openApp loads configuration, opens the configured medium and ensures the
// document exists.
func openApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	if err := LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	logger, err := SetupLogger(cfg.LogLevel, logOut)
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	storeOpts := []store.Option{
		store.WithKey(cfg.StorageKey),
		store.WithLogger(logger),
	}
	if res.Notifier != nil {
		storeOpts = append(storeOpts, store.WithNotifier(res.Notifier))
	}
	st := store.New(res.Medium, storeOpts...)

	if err := st.Init(ctx); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("initialize document: %w", err)
	}

	return &app{cfg: cfg, logger: logger, backend: res, store: st}, nil
}

func (a *app) Close() error {
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("Backend cleanup failed", log.FieldError, err)
		return err
	}
	return nil
}
