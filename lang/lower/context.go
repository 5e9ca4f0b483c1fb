// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package lower translates Snowball's implicit backtracking into structured
// Python.
//
// Every command either falls through (success) or fails. A failing command
// runs the cleanup lines of the ambient failure continuation and then either
// returns False from the routine or raises the exception class of the
// continuation's label. Constructs that absorb failure (or, not, try, do,
// repeat, goto, gopast) wrap their operand in
//
//	try:
//	    ...
//	except labN: pass
//
// and hand the operand a continuation pointing at labN. Label numbers are
// allocated per routine; the assembler emits one exception class per label
// index used anywhere in the program.
package lower

import (
	"fmt"
	"strconv"

	"github.com/go-stack/stack"

	"github.com/probechain/snowgen/lang/analysis"
	"github.com/probechain/snowgen/lang/ast"
	"github.com/probechain/snowgen/lang/format"
)

// ReturnLabel is the continuation label meaning "fail the whole routine".
const ReturnLabel = -1

// Continuation says where control goes when a command fails, and what has to
// be restored before it gets there.
type Continuation struct {
	Label   int
	Cleanup []string
}

// Fail returns the continuation of a routine body.
func Fail() Continuation { return Continuation{Label: ReturnLabel} }

// To returns a continuation jumping to label without cleanup.
func To(label int) Continuation { return Continuation{Label: label} }

// Before returns k with lines run ahead of k's own cleanup.
func (k Continuation) Before(lines ...string) Continuation {
	cleanup := make([]string, 0, len(lines)+len(k.Cleanup))
	cleanup = append(cleanup, lines...)
	cleanup = append(cleanup, k.Cleanup...)
	return Continuation{Label: k.Label, Cleanup: cleanup}
}

// DefectError reports a malformed tree. It is a bug in the front end, not a
// Snowball-level failure, and aborts the generation run.
type DefectError struct {
	Construct string
	Line      int
	Msg       string
	Site      stack.Call // where in the generator the defect was detected
}

func (e *DefectError) Error() string {
	return fmt.Sprintf("malformed %q at line %d: %s (%v)", e.Construct, e.Line, e.Msg, e.Site)
}

// defect aborts lowering of the current routine.
func defect(c ast.Command, format string, args ...interface{}) {
	construct, line := "<nil>", 0
	if c != nil {
		construct, line = c.TokenLiteral(), c.Line()
	}
	panic(&DefectError{
		Construct: construct,
		Line:      line,
		Msg:       fmt.Sprintf(format, args...),
		Site:      stack.Caller(1),
	})
}

// Context is the mutable state of one lowering run. A Context is owned by a
// single goroutine; concurrent runs each need their own.
type Context struct {
	w        *format.Writer
	analyzer *analysis.Analyzer

	nextLabel int
	maxLabel  int
	vars      int

	debugIndex map[*ast.Debug]int
	debugCount int

	// unreachable is set right after code that unconditionally transfers
	// control; nothing may be emitted until a join point clears it.
	unreachable bool
}

// NewContext creates a context writing to w. debugIndex supplies the call
// site numbers of debug hooks; when nil they are numbered in emission order.
func NewContext(w *format.Writer, a *analysis.Analyzer, debugIndex map[*ast.Debug]int) *Context {
	if a == nil {
		a = analysis.New()
	}
	return &Context{
		w:          w,
		analyzer:   a,
		maxLabel:   ReturnLabel,
		debugIndex: debugIndex,
	}
}

// MaxLabel returns the highest label allocated so far, or ReturnLabel if
// none was.
func (ctx *Context) MaxLabel() int { return ctx.maxLabel }

// Labels returns the number of labels allocated in the current routine.
func (ctx *Context) Labels() int { return ctx.nextLabel }

// Vars returns the number of temporaries allocated in the current routine.
func (ctx *Context) Vars() int { return ctx.vars }

// Unreachable reports whether the last emitted code never falls through.
func (ctx *Context) Unreachable() bool { return ctx.unreachable }

func (ctx *Context) newLabel() int {
	l := ctx.nextLabel
	ctx.nextLabel++
	if l > ctx.maxLabel {
		ctx.maxLabel = l
	}
	return l
}

func (ctx *Context) newVar() string {
	ctx.vars++
	return "v_" + strconv.Itoa(ctx.vars)
}

// comment writes the source marker in front of a construct.
func (ctx *Context) comment(c ast.Command) {
	text := c.TokenLiteral()
	if n := ast.NameOf(c); n != nil {
		text += " " + n.Ident
	}
	ctx.w.WriteComment(text + ", line " + strconv.Itoa(c.Line()))
}

// fail is the single place where a failure leaves a construct: cleanup
// first, then the jump.
func (ctx *Context) fail(k Continuation) {
	for _, line := range k.Cleanup {
		ctx.w.WriteLine(line)
	}
	if k.Label == ReturnLabel {
		ctx.w.WriteLine("return False")
	} else {
		ctx.w.WriteLine("raise lab" + strconv.Itoa(k.Label) + "()")
	}
	ctx.unreachable = true
}

// failIf emits `if cond: <fail>`. cond is a template.
func (ctx *Context) failIf(cond string, k Continuation) {
	ctx.w.Writef("~Mif " + cond + ":~{")
	ctx.fail(k)
	ctx.w.Writef("~}")
	ctx.unreachable = false
}

// raise jumps to label unconditionally.
func (ctx *Context) raise(label int) {
	ctx.w.WriteLine("raise lab" + strconv.Itoa(label) + "()")
	ctx.unreachable = true
}

func (ctx *Context) beginTry() {
	ctx.w.Writef("~Mtry:~{")
}

// endTry closes a try block opened by beginTry and lands label there.
func (ctx *Context) endTry(label int) {
	ctx.w.Writef("~}")
	ctx.w.WriteLine("except lab" + strconv.Itoa(label) + ": pass")
}

func saveLine(mode ast.Mode, v string) string {
	if mode == ast.Backward {
		return v + " = self.limit - self.cursor"
	}
	return v + " = self.cursor"
}

func restoreLine(mode ast.Mode, v string) string {
	if mode == ast.Backward {
		return "self.cursor = self.limit - " + v
	}
	return "self.cursor = " + v
}

func (ctx *Context) saveCursor(mode ast.Mode, v string) {
	ctx.w.WriteLine(saveLine(mode, v))
}

func (ctx *Context) restoreCursor(mode ast.Mode, v string) {
	ctx.w.WriteLine(restoreLine(mode, v))
}

func suffix(mode ast.Mode) string {
	if mode == ast.Backward {
		return "_b"
	}
	return ""
}
