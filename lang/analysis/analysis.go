// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package analysis decides how much cursor state the generated code has to
// save around a construct.
//
// Both analyses walk a command list and follow calls into routine bodies.
// Routines may call each other recursively, so every walk tracks the
// routines on its current path; reaching one again answers conservatively
// (cursor needed, repeat costly). Answers for routines whose walk never hit
// such a cycle are memoised, which keeps results independent of the order
// in which routines are analysed.
package analysis

import (
	mapset "github.com/deckarep/golang-set"
	lru "github.com/hashicorp/golang-lru"

	"github.com/probechain/snowgen/lang/ast"
)

const (
	// memoSize bounds the number of routines whose answers are kept.
	memoSize = 1024

	// restoreThreshold is the repeat cost from which a loop body restores
	// the cursor after a failed iteration.
	restoreThreshold = 2
)

// Analyzer runs the cursor analyses. It is safe for concurrent use.
type Analyzer struct {
	cursor *lru.ARCCache // *ast.Name -> bool
	cost   *lru.ARCCache // *ast.Name -> int
}

// New creates an analyzer with empty memo tables.
func New() *Analyzer {
	cursor, _ := lru.NewARC(memoSize)
	cost, _ := lru.NewARC(memoSize)
	return &Analyzer{cursor: cursor, cost: cost}
}

// isInert reports whether c can never move the cursor.
func isInert(c ast.Command) bool {
	switch c.(type) {
	case *ast.Dollar, *ast.LeftSlice, *ast.RightSlice, *ast.SliceTo,
		*ast.IntAssign, *ast.IntCompare,
		*ast.Set, *ast.Unset, *ast.BoolTest, *ast.True, *ast.False,
		*ast.Debug:
		return true
	}
	return false
}

// isSingleStep reports whether c advances the cursor by a bounded amount and
// leaves it untouched when it fails.
func isSingleStep(c ast.Command) bool {
	switch c.(type) {
	case *ast.NameMatch, *ast.Literal, *ast.Next, *ast.GroupingTest, *ast.Hop:
		return true
	}
	return false
}

// CursorNeeded reports whether running cmds in sequence may change the
// cursor, i.e. whether a surrounding construct must save and restore it.
func (a *Analyzer) CursorNeeded(cmds ...ast.Command) bool {
	needed, _ := a.cursorNeeded(cmds, mapset.NewSet())
	return needed
}

// cursorNeeded returns the answer and whether a recursive call was cut short
// on the way.
func (a *Analyzer) cursorNeeded(cmds []ast.Command, path mapset.Set) (bool, bool) {
	cut := false
	for _, c := range cmds {
		if c == nil || isInert(c) {
			continue
		}
		switch c := c.(type) {
		case *ast.Bra:
			needed, bcut := a.cursorNeeded(c.Body, path)
			cut = cut || bcut
			if needed {
				return true, cut
			}
		case *ast.Call:
			needed, ccut := a.callCursorNeeded(c.Name, path)
			cut = cut || ccut
			if needed {
				return true, cut
			}
		default:
			return true, cut
		}
	}
	return false, cut
}

func (a *Analyzer) callCursorNeeded(n *ast.Name, path mapset.Set) (bool, bool) {
	if n == nil || n.Kind != ast.KindRoutine || n.Definition == nil {
		// Externals are opaque.
		return true, false
	}
	if v, ok := a.cursor.Get(n); ok {
		return v.(bool), false
	}
	if path.Contains(n) {
		return true, true
	}
	path.Add(n)
	needed, cut := a.cursorNeeded([]ast.Command{n.Definition}, path)
	path.Remove(n)
	if !cut {
		a.cursor.Add(n, needed)
	}
	return needed, cut
}

// RepeatCost weighs how much cursor movement cmds may leave behind when they
// fail half way: 0 for inert commands, 1 for each single-step match, 2 for
// anything else, plus the cost of called routines and nested sequences.
func (a *Analyzer) RepeatCost(cmds ...ast.Command) int {
	cost, _ := a.repeatCost(cmds, mapset.NewSet())
	return cost
}

// RepeatRestore reports whether a loop body built from cmds must restore the
// cursor after a failed iteration.
func (a *Analyzer) RepeatRestore(cmds ...ast.Command) bool {
	return a.RepeatCost(cmds...) >= restoreThreshold
}

func (a *Analyzer) repeatCost(cmds []ast.Command, path mapset.Set) (int, bool) {
	cost, cut := 0, false
	for _, c := range cmds {
		if c == nil || isInert(c) {
			continue
		}
		if isSingleStep(c) {
			cost++
			continue
		}
		switch c := c.(type) {
		case *ast.Bra:
			n, bcut := a.repeatCost(c.Body, path)
			cost += n
			cut = cut || bcut
		case *ast.Call:
			n, ccut := a.callRepeatCost(c.Name, path)
			cost += n
			cut = cut || ccut
		default:
			cost += restoreThreshold
		}
	}
	return cost, cut
}

func (a *Analyzer) callRepeatCost(n *ast.Name, path mapset.Set) (int, bool) {
	if n == nil || n.Kind != ast.KindRoutine || n.Definition == nil {
		return restoreThreshold, false
	}
	if v, ok := a.cost.Get(n); ok {
		return v.(int), false
	}
	if path.Contains(n) {
		return restoreThreshold, true
	}
	path.Add(n)
	cost, cut := a.repeatCost([]ast.Command{n.Definition}, path)
	path.Remove(n)
	if !cut {
		a.cost.Add(n, cost)
	}
	return cost, cut
}
