// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration management.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)    Print the effective configuration, API key redacted
//   get <key>         Print one value
//   set <key> <val>   Update a value and save
//   path              Print the config file location
package cli

import (
	"fmt"

	"github.com/jeranaias/travelmind-tui/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		fmt.Println(config.Global().String())
		return nil

	case "get":
		if len(args.Raw) < 1 {
			return fmt.Errorf("usage: travelmind config get <key>")
		}
		value, err := config.Global().Get(args.Raw[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil

	case "set":
		if len(args.Raw) < 2 {
			return fmt.Errorf("usage: travelmind config set <key> <value>")
		}
		return configSet(args.Raw[0], args.Raw[1])

	case "path":
		path, err := config.ConfigPathJSON()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand: %s", args.Subcommand)
	}
}

func configSet(key, value string) error {
	cfg := config.Global().Clone()
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	config.SetGlobal(cfg)
	fmt.Printf("%s updated\n", key)
	return nil
}
