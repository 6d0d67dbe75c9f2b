// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - config show|path|init.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/streamchat/internal/config"
)

// redacted replaces secrets in printed configuration.
const redacted = "********"

// HandleConfigCommand handles "config [show|path|init]".
func HandleConfigCommand(args Args) error {
	switch args.Subcommand {
	case "", "show":
		cfg, err := loadConfig(args.ConfigPath)
		if err != nil {
			return err
		}
		return showConfig(cfg, os.Stdout)

	case "path":
		path, err := configFilePath(args.ConfigPath)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "init":
		path, err := configFilePath(args.ConfigPath)
		if err != nil {
			return err
		}
		return initConfig(path, os.Stdout)

	default:
		return &UsageError{Reason: fmt.Sprintf("unknown config subcommand %q (show, path, init)", args.Subcommand)}
	}
}

func configFilePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return path, nil
}

// showConfig prints the effective configuration as TOML with the token hidden.
func showConfig(cfg *config.Config, out io.Writer) error {
	shown := *cfg
	if shown.Auth.Token != "" {
		shown.Auth.Token = redacted
	}
	return toml.NewEncoder(out).Encode(&shown)
}

// initConfig writes the default configuration unless a file already exists.
func initConfig(path string, out io.Writer) error {
	if _, err := os.Stat(path); err == nil {
		return &UsageError{Reason: fmt.Sprintf("%s already exists", path)}
	}
	cfg := config.Default()
	cfg.SetDefaults()
	if err := config.SaveTOML(cfg, path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}
