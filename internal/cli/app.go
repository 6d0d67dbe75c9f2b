// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wires configuration, logging, storage, auth and the session
// controller for every command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/streamchat/internal/auth"
	"github.com/jeranaias/streamchat/internal/config"
	"github.com/jeranaias/streamchat/internal/logging"
	"github.com/jeranaias/streamchat/internal/session"
	"github.com/jeranaias/streamchat/internal/storage"
	"github.com/jeranaias/streamchat/internal/think"
)

// App holds the long-lived services shared by CLI commands.
type App struct {
	Config     *config.Config
	Log        *logging.Logger
	Store      storage.Store
	Index      *storage.Index
	Controller *session.Controller

	tokens *auth.FileProvider
}

// loadConfig loads the config file named on the command line, or the
// default one.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

// NewApp loads configuration and builds the services for args.
func NewApp(args Args) (*App, error) {
	cfg, err := loadConfig(args.ConfigPath)
	if err != nil {
		return nil, err
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}
	return newApp(cfg)
}

func newApp(cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	app := &App{Config: cfg, Log: logger}
	if err := app.init(); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init() error {
	cfg := a.Config
	log := a.Log.Logger

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	a.Store = store
	a.Index = storage.NewIndex(store)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Index.Refresh(ctx); err != nil {
		log.Warn("failed to load conversation list", zap.Error(err))
	}

	provider, err := a.authProvider()
	if err != nil {
		return err
	}

	busy, err := session.ParseBusyPolicy(cfg.Stream.BusyPolicy)
	if err != nil {
		return &ConfigError{Err: err}
	}

	ctrl, err := session.New(session.Options{
		URL:           cfg.Server.ChatURL(),
		Auth:          provider,
		History:       a.Store,
		Conversations: a.Index,
		Logger:        log.Named("session"),
		Extractor:     think.New(cfg.Stream.ThinkOpen, cfg.Stream.ThinkClose),
		Salvage:       cfg.Stream.SalvageOnAbort,
		Busy:          busy,
		Timeout:       cfg.Server.RequestTimeout(),
		ReadSize:      cfg.Stream.ReadBufferSize,
		MaxLineSize:   cfg.Stream.MaxLineSize,
	})
	if err != nil {
		return &ConfigError{Err: err}
	}
	a.Controller = ctrl

	log.Debug("streamchat ready",
		zap.String("url", cfg.Server.ChatURL()),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("busy_policy", cfg.Stream.BusyPolicy))
	return nil
}

// authProvider prefers a watched token file over a static token.
func (a *App) authProvider() (auth.Provider, error) {
	cfg := a.Config.Auth
	if cfg.TokenFile == "" {
		return auth.StaticProvider{Token: cfg.Token, Tenant: cfg.Tenant}, nil
	}
	fp, err := auth.NewFileProvider(cfg.TokenFile, cfg.Tenant, a.Log.Named("auth"))
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("auth.token_file: %w", err)}
	}
	a.tokens = fp
	return fp, nil
}

// Close releases every service. It is safe to call on a partially built App.
func (a *App) Close() error {
	var errs []error
	if a.tokens != nil {
		errs = append(errs, a.tokens.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Log != nil {
		errs = append(errs, a.Log.Close())
	}
	return errors.Join(errs...)
}
