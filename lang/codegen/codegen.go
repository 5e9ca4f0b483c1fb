// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// Package codegen assembles a Python compilation unit from a Snowball
// program.
//
// The unit is laid out as:
//
//	start-of-file notice
//	imports of the parent class and Among
//	class <Name>(<Parent>):
//	    among tables, grouping tables, members, copy_from
//	    one method per routine
//	class lab0(BaseException): pass ... one per label index
package codegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/probechain/snowgen/lang/analysis"
	"github.com/probechain/snowgen/lang/ast"
	"github.com/probechain/snowgen/lang/format"
	"github.com/probechain/snowgen/lang/lower"
	"github.com/probechain/snowgen/lang/tables"
)

// Config names the generated unit.
type Config struct {
	Name    string `toml:",omitempty"` // generated class
	Parent  string `toml:",omitempty"` // runtime base class
	Workers int    `toml:",omitempty"` // routines lowered concurrently
}

// DefaultConfig is the configuration used when nothing is overridden.
var DefaultConfig = Config{
	Name:    "Stemmer",
	Parent:  "BaseStemmer",
	Workers: runtime.NumCPU(),
}

// RoutineStats describes the code generated for one routine.
type RoutineStats struct {
	Name   string
	Line   int
	Labels int
	Vars   int
	Bytes  int
}

// Result is a generated compilation unit.
type Result struct {
	Source   []byte
	MaxLabel int // highest label used by any routine, -1 if none
	Routines []RoutineStats
}

// Generator turns programs into Python units.
type Generator struct {
	cfg      Config
	analyzer *analysis.Analyzer
}

// New creates a generator. Workers below one means one.
func New(cfg Config) *Generator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Generator{cfg: cfg, analyzer: analysis.New()}
}

// Generate emits the unit for prog. Either the whole unit is returned or an
// error; a malformed tree yields an error wrapping *lower.DefectError.
func (g *Generator) Generate(ctx context.Context, prog *ast.Program) (*Result, error) {
	if g.cfg.Name == "" {
		return nil, errors.New("missing unit name")
	}
	if g.cfg.Parent == "" {
		return nil, errors.New("missing parent class")
	}
	if prog == nil {
		return nil, errors.New("nil program")
	}

	// Grouping tables are written first: they decide NoGaps, which the
	// grouping tests in routine bodies depend on.
	head := format.New(g.cfg.Name)
	g.writeHeader(head, prog)

	bodies, stats, err := g.lowerRoutines(ctx, prog)
	if err != nil {
		return nil, err
	}

	maxLabel := lower.ReturnLabel
	var out bytes.Buffer
	out.Write(head.Bytes())
	for i, body := range bodies {
		out.Write(body.out)
		if body.maxLabel > maxLabel {
			maxLabel = body.maxLabel
		}
		stats[i].Bytes = len(body.out)
	}
	tail := format.New(g.cfg.Name)
	writeLabelClasses(tail, maxLabel)
	out.Write(tail.Bytes())

	log.Debug("Generated unit", "name", g.cfg.Name, "routines", len(bodies), "labels", maxLabel+1, "size", out.Len())
	return &Result{Source: out.Bytes(), MaxLabel: maxLabel, Routines: stats}, nil
}

func (g *Generator) writeHeader(w *format.Writer, prog *ast.Program) {
	w.Writef("# This file was generated automatically by the Snowball to Python compiler~N~N")

	w.S[0] = g.cfg.Parent
	w.Writef("from .basestemmer import ~S0~N" +
		"from .among import Among~N" +
		"~N" +
		"~N" +
		"class ~n(~S0):~N~+" +
		"~M'''~N" +
		"~MThis class was automatically generated by a Snowball to Python compiler~N" +
		"~MIt implements the stemming algorithm defined by a snowball script.~N" +
		"~M'''~N" +
		"~N")

	tables.WriteAmongs(w, prog.Amongs)
	tables.WriteGroupings(w, prog.Groupings)
	writeMembers(w, prog.Names)
	writeCopyFrom(w, prog.Names)
}

// writeMembers declares every variable with its zero value.
func writeMembers(w *format.Writer, names []*ast.Name) {
	for _, n := range names {
		w.V[0] = n
		switch n.Kind {
		case ast.KindString:
			w.Writef("~M~V0 = \"\"~N")
		case ast.KindInteger:
			w.Writef("~M~V0 = 0~N")
		case ast.KindBoolean:
			w.Writef("~M~V0 = False~N")
		}
	}
	w.Writef("~N")
}

func writeCopyFrom(w *format.Writer, names []*ast.Name) {
	w.Writef("~Mdef copy_from(self, other):~{")
	for _, n := range names {
		if n.IsField() {
			w.V[0] = n
			w.Writef("~Mself.~V0 = other.~V0~N")
		}
	}
	w.Writef("~Msuper().copy_from(other)~N~}")
}

// writeLabelClasses declares one exception class per label index.
func writeLabelClasses(w *format.Writer, maxLabel int) {
	for i := 0; i <= maxLabel; i++ {
		w.I[0] = i
		w.Writef("~N~Nclass lab~I0(BaseException): pass~N")
	}
}

type routineOutput struct {
	out      []byte
	maxLabel int
}

// lowerRoutines lowers every routine with its own writer and context. Work
// is spread over the configured number of workers; the output order is the
// program order regardless.
func (g *Generator) lowerRoutines(ctx context.Context, prog *ast.Program) ([]routineOutput, []RoutineStats, error) {
	var (
		debug  = debugIndexes(prog)
		bodies = make([]routineOutput, len(prog.Routines))
		stats  = make([]RoutineStats, len(prog.Routines))
		jobs   = make(chan int)
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(jobs)
		for i := range prog.Routines {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for n := 0; n < g.cfg.Workers && n < len(prog.Routines); n++ {
		eg.Go(func() error {
			for i := range jobs {
				def := prog.Routines[i]
				w := format.New(g.cfg.Name)
				w.Indent()
				lc := lower.NewContext(w, g.analyzer, debug)
				if err := lc.Routine(def); err != nil {
					return fmt.Errorf("routine %s: %w", routineIdent(def), err)
				}
				bodies[i] = routineOutput{out: w.Bytes(), maxLabel: lc.MaxLabel()}
				stats[i] = RoutineStats{
					Name:   routineIdent(def),
					Line:   def.Line(),
					Labels: lc.Labels(),
					Vars:   lc.Vars(),
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return bodies, stats, nil
}

// debugIndexes numbers the debug hooks in program order, so that the
// numbering does not depend on which worker lowers which routine.
func debugIndexes(prog *ast.Program) map[*ast.Debug]int {
	index := make(map[*ast.Debug]int)
	for _, def := range prog.Routines {
		if def == nil {
			continue
		}
		ast.Walk(def.Body, func(c ast.Command) {
			if d, ok := c.(*ast.Debug); ok {
				if _, seen := index[d]; !seen {
					index[d] = len(index)
				}
			}
		})
	}
	return index
}

func routineIdent(def *ast.Define) string {
	if def == nil || def.Name == nil {
		return "<unnamed>"
	}
	return def.Name.Ident
}
