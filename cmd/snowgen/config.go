// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/snowgen/lang/codegen"
)

var (
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[dumpfile]",
		Flags:       generateFlags,
		Category:    "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command shows configuration values.`,
	}

	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type outputConfig struct {
	Path    string `toml:",omitempty"` // generated unit, stdout if empty
	Cache   string `toml:",omitempty"` // leveldb directory of generated units
	Runtime string `toml:",omitempty"` // directory of runtime files copied next to Path
	Emit    string
}

type snowgenConfig struct {
	Codegen codegen.Config
	Output  outputConfig
}

func defaultConfig() snowgenConfig {
	return snowgenConfig{
		Codegen: codegen.DefaultConfig,
		Output:  outputConfig{Emit: emitPython},
	}
}

func loadConfig(file string, cfg *snowgenConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads defaults, then the config file, then applies flags.
func makeConfig(ctx *cli.Context) (snowgenConfig, error) {
	cfg := defaultConfig()
	if file := stringFlag(ctx, configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	applyFlags(ctx, &cfg)
	if err := checkEmit(cfg.Output.Emit); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// isSet reports whether name was given to the command or to the app.
func isSet(ctx *cli.Context, name string) bool {
	return ctx.IsSet(name) || ctx.GlobalIsSet(name)
}

// stringFlag returns the command's value of name, falling back to the
// app-level one.
func stringFlag(ctx *cli.Context, name string) string {
	if ctx.IsSet(name) {
		return ctx.String(name)
	}
	return ctx.GlobalString(name)
}

func intFlag(ctx *cli.Context, name string) int {
	if ctx.IsSet(name) {
		return ctx.Int(name)
	}
	return ctx.GlobalInt(name)
}

func applyFlags(ctx *cli.Context, cfg *snowgenConfig) {
	if isSet(ctx, nameFlag.Name) {
		cfg.Codegen.Name = stringFlag(ctx, nameFlag.Name)
	}
	if isSet(ctx, parentFlag.Name) {
		cfg.Codegen.Parent = stringFlag(ctx, parentFlag.Name)
	}
	if isSet(ctx, workersFlag.Name) {
		cfg.Codegen.Workers = intFlag(ctx, workersFlag.Name)
	}
	if isSet(ctx, outFlag.Name) {
		cfg.Output.Path = stringFlag(ctx, outFlag.Name)
	}
	if isSet(ctx, cacheFlag.Name) {
		cfg.Output.Cache = stringFlag(ctx, cacheFlag.Name)
	}
	if isSet(ctx, runtimeFlag.Name) {
		cfg.Output.Runtime = stringFlag(ctx, runtimeFlag.Name)
	}
	if isSet(ctx, emitFlag.Name) {
		cfg.Output.Emit = stringFlag(ctx, emitFlag.Name)
	}
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := io.Writer(os.Stdout)
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	dump.Write(out)
	return nil
}
