// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// snowgen compiles a Snowball program, exported by the front end as JSON,
// into a Python stemmer class.
//
// Usage:
//
//	snowgen [flags] program.json
//	snowgen --emit stats program.json
//	snowgen --config snowgen.toml dumpconfig
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/cespare/cp"
	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/snowgen/internal/cache"
	"github.com/probechain/snowgen/internal/debug"
	"github.com/probechain/snowgen/lang/ast"
	"github.com/probechain/snowgen/lang/codegen"
	"github.com/probechain/snowgen/lang/loader"
)

const (
	emitPython = "python" // generated unit
	emitAST    = "ast"    // loaded tree
	emitStats  = "stats"  // per-routine table
)

var (
	nameFlag = cli.StringFlag{
		Name:  "name",
		Usage: "Name of the generated class",
		Value: codegen.DefaultConfig.Name,
	}
	parentFlag = cli.StringFlag{
		Name:  "parent",
		Usage: "Runtime base class the generated class extends",
		Value: codegen.DefaultConfig.Parent,
	}
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "Output file (default: stdout)",
	}
	workersFlag = cli.IntFlag{
		Name:  "workers",
		Usage: "Number of routines lowered concurrently",
		Value: codegen.DefaultConfig.Workers,
	}
	cacheFlag = cli.StringFlag{
		Name:  "cache",
		Usage: "Directory of the generated unit cache",
	}
	runtimeFlag = cli.StringFlag{
		Name:  "runtime",
		Usage: "Directory of Python runtime files to copy next to the output",
	}
	emitFlag = cli.StringFlag{
		Name:  "emit",
		Usage: "What to produce: python, ast or stats",
		Value: emitPython,
	}

	generateFlags = []cli.Flag{
		configFileFlag,
		nameFlag,
		parentFlag,
		outFlag,
		workersFlag,
		cacheFlag,
		runtimeFlag,
		emitFlag,
	}

	generateCommand = cli.Command{
		Action:    generate,
		Name:      "generate",
		Usage:     "Generate a Python unit from a program document",
		ArgsUsage: "<program.json>",
		Flags:     generateFlags,
		Category:  "GENERATOR COMMANDS",
		Description: `
The generate command loads a program document and writes the Python class
implementing it. This is also the default action.`,
	}
)

var app = cli.NewApp()

func init() {
	app.Name = "snowgen"
	app.Usage = "the Snowball to Python code generator"
	app.ArgsUsage = "<program.json>"
	app.Copyright = "Copyright 2024 The ProbeChain Authors"
	app.HideVersion = true
	app.Action = generate
	app.Commands = []cli.Command{
		generateCommand,
		dumpConfigCommand,
	}
	app.Flags = append(generateFlags, debug.Flags...)
	app.Before = debug.Setup
}

func main() {
	if err := app.Run(os.Args); err != nil {
		Fatalf("%v", err)
	}
}

func generate(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need exactly one program document")
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return run(sigctx, cfg, ctx.Args().First())
}

// run produces cfg.Output.Emit for the program document at path.
func run(ctx context.Context, cfg snowgenConfig, path string) error {
	data, err := loader.ReadFile(path)
	if err != nil {
		return err
	}

	var (
		out  []byte
		key  = cache.NewKey(data, cfg.Codegen.Name, cfg.Codegen.Parent)
		unit *cache.Cache
	)
	if cfg.Output.Emit == emitPython && cfg.Output.Cache != "" {
		if unit, err = cache.New(cfg.Output.Cache); err != nil {
			return fmt.Errorf("opening cache: %w", err)
		}
		defer unit.Close()

		src, ok, err := unit.Get(key)
		if err != nil {
			return err
		}
		if ok {
			log.Info("Using cached unit", "program", path, "key", key)
			out = src
		}
	}

	if out == nil {
		prog, err := loader.ParseFile(path, data)
		if err != nil {
			return err
		}
		if out, err = emit(ctx, cfg, prog); err != nil {
			return err
		}
		if unit != nil {
			if err := unit.Put(key, out); err != nil {
				return fmt.Errorf("storing unit: %w", err)
			}
		}
	}
	if err := writeOutput(cfg.Output.Path, out); err != nil {
		return err
	}
	if cfg.Output.Runtime != "" {
		return copyRuntime(cfg.Output.Runtime, cfg.Output.Path)
	}
	return nil
}

func emit(ctx context.Context, cfg snowgenConfig, prog *ast.Program) ([]byte, error) {
	if cfg.Output.Emit == emitAST {
		var buf bytes.Buffer
		dumper := spew.ConfigState{
			Indent:                  "  ",
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			DisableMethods:          true,
		}
		dumper.Fdump(&buf, prog)
		return buf.Bytes(), nil
	}

	res, err := codegen.New(cfg.Codegen).Generate(ctx, prog)
	if err != nil {
		return nil, err
	}
	log.Info("Generated unit", "class", cfg.Codegen.Name, "routines", len(res.Routines), "labels", res.MaxLabel+1, "bytes", len(res.Source))
	if cfg.Output.Emit == emitStats {
		return statsTable(res), nil
	}
	return res.Source, nil
}

func statsTable(res *codegen.Result) []byte {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Routine", "Line", "Labels", "Vars", "Bytes"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	total := 0
	for _, r := range res.Routines {
		table.Append([]string{
			r.Name,
			strconv.Itoa(r.Line),
			strconv.Itoa(r.Labels),
			strconv.Itoa(r.Vars),
			strconv.Itoa(r.Bytes),
		})
		total += r.Bytes
	}
	table.SetFooter([]string{"", "", "", "Total", strconv.Itoa(total)})
	table.Render()
	return buf.Bytes()
}

func checkEmit(mode string) error {
	switch mode {
	case emitPython, emitAST, emitStats:
		return nil
	}
	return fmt.Errorf("unknown emit mode %q", mode)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// copyRuntime copies the Python files in dir next to the generated unit.
func copyRuntime(dir, out string) error {
	if out == "" {
		return errors.New("runtime files need an output file")
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.py"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no runtime files in %s", dir)
	}
	dest := filepath.Dir(out)
	for _, src := range files {
		dst := filepath.Join(dest, filepath.Base(src))
		if err := cp.CopyFile(dst, src); err != nil {
			return fmt.Errorf("copying runtime: %w", err)
		}
		log.Debug("Copied runtime file", "src", src, "dst", dst)
	}
	return nil
}
