// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package debug wires up logging for the command line tools.
package debug

import (
	"io"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"
)

var (
	VerbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	VmoduleFlag = cli.StringFlag{
		Name:  "vmodule",
		Usage: "Per-module verbosity: comma-separated list of <pattern>=<level> (e.g. lang/lower=5)",
		Value: "",
	}
	LogJSONFlag = cli.BoolFlag{
		Name:  "log.json",
		Usage: "Format logs with JSON",
	}
)

// Flags holds all command-line flags required for debugging.
var Flags = []cli.Flag{
	VerbosityFlag, VmoduleFlag, LogJSONFlag,
}

var glogger *log.GlogHandler

func init() {
	glogger = log.NewGlogHandler(log.StreamHandler(os.Stderr, log.TerminalFormat(false)))
	glogger.Verbosity(log.LvlInfo)
	log.Root().SetHandler(glogger)
}

// Setup initializes logging based on the CLI flags. It should be called as
// early as possible in the program.
func Setup(ctx *cli.Context) error {
	return SetupWriter(os.Stderr, ctx.GlobalBool(LogJSONFlag.Name),
		ctx.GlobalInt(VerbosityFlag.Name), ctx.GlobalString(VmoduleFlag.Name))
}

// SetupWriter points the root logger at w. Colour is used only when w is a
// terminal that supports it.
func SetupWriter(w io.Writer, json bool, verbosity int, vmodule string) error {
	var ostream log.Handler
	if json {
		ostream = log.StreamHandler(w, log.JSONFormat())
	} else {
		usecolor := false
		if f, ok := w.(*os.File); ok {
			usecolor = (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) && os.Getenv("TERM") != "dumb"
			if usecolor {
				w = colorable.NewColorable(f)
			}
		}
		ostream = log.StreamHandler(w, log.TerminalFormat(usecolor))
	}
	glogger.SetHandler(ostream)
	glogger.Verbosity(log.Lvl(verbosity))
	if err := glogger.Vmodule(vmodule); err != nil {
		return err
	}
	log.Root().SetHandler(glogger)
	return nil
}
