// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - The config command.

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/m4cd4r4/cosmos-collective-v2-sub002/internal/config"
)

// ConfigValue is the JSON form of config get/set.
type ConfigValue struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// HandleConfig dispatches the config subcommands.
func (a *App) HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return a.configShow()
	case "get":
		return a.configGet(args.ConfigKey)
	case "set":
		return a.configSet(args.ConfigKey, args.ConfigVal)
	case "path":
		if a.JSON {
			return a.writeJSON(CmdConfig, map[string]string{"path": a.ConfigPath})
		}
		a.println(a.ConfigPath)
		return nil
	case "keys":
		keys := config.Keys()
		if a.JSON {
			return a.writeJSON(CmdConfig, keys)
		}
		for _, k := range keys {
			a.println(k)
		}
		return nil
	default:
		return &UsageError{Message: fmt.Sprintf("unknown config subcommand %q", args.Subcommand)}
	}
}

func (a *App) configShow() error {
	if a.JSON {
		return a.writeJSON(CmdConfig, a.Config)
	}
	a.println(TitleStyle.Render("Configuration"))
	for _, k := range config.Keys() {
		v, err := a.Config.Get(k)
		if err != nil {
			continue
		}
		a.println(RenderField(k, formatValue(v)))
	}
	return nil
}

func (a *App) configGet(key string) error {
	v, err := a.Config.Get(key)
	if err != nil {
		return &UsageError{Message: err.Error()}
	}
	if a.JSON {
		return a.writeJSON(CmdConfig, ConfigValue{Key: key, Value: v})
	}
	a.println(formatValue(v))
	return nil
}

// configSet changes one key in the config file itself. Environment
// overrides are not applied, so they are never written back.
func (a *App) configSet(key, value string) error {
	if a.ConfigPath == "" {
		return NewCommandError("config", "set", errors.New("no config path"))
	}

	cfg := config.Default()
	if exists(a.ConfigPath) {
		var err error
		if strings.HasSuffix(a.ConfigPath, ".json") {
			err = config.LoadJSON(cfg, a.ConfigPath)
		} else {
			err = config.LoadTOML(cfg, a.ConfigPath)
		}
		if err != nil {
			return NewCommandError("config", "load", err)
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return &UsageError{Message: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var err error
	if strings.HasSuffix(a.ConfigPath, ".json") {
		err = config.SaveJSON(cfg, a.ConfigPath)
	} else {
		err = config.SaveTOML(cfg, a.ConfigPath)
	}
	if err != nil {
		return NewCommandError("config", "save", err)
	}

	v, _ := cfg.Get(key)
	if a.JSON {
		return a.writeJSON(CmdConfig, ConfigValue{Key: key, Value: v})
	}
	fmt.Fprintf(a.Out, "%s %s = %s\n", SuccessStyle.Render("[OK]"), key, formatValue(v))
	if _, statErr := os.Stat(a.ConfigPath); statErr == nil {
		a.println(DimStyle.Render("Saved to " + a.ConfigPath))
	}
	return nil
}

func formatValue(v interface{}) string {
	if s, ok := v.(string); ok && s == "" {
		return `""`
	}
	return fmt.Sprint(v)
}
