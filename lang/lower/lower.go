// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package lower

import (
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/probechain/snowgen/lang/ast"
	"github.com/probechain/snowgen/lang/format"
)

// Routine emits the method for one routine definition. Label and temporary
// counters restart at zero for every routine; the running maximum label is
// kept. A malformed tree is reported as a *DefectError.
func (ctx *Context) Routine(def *ast.Define) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(*DefectError)
			if !ok {
				panic(r)
			}
			err = d
		}
	}()
	if def == nil {
		defect(nil, "missing routine")
	}
	if def.Name == nil {
		defect(def, "routine without name")
	}
	ctx.nextLabel = 0
	ctx.vars = 0
	ctx.unreachable = false

	ctx.w.S[0] = format.RoutineName(def.Name)
	ctx.w.Writef("~N~Mdef ~S0(self):~{")
	ctx.Lower(def.Body, Fail())
	if !ctx.unreachable {
		ctx.w.WriteLine("return True")
	}
	ctx.w.Writef("~}")
	ctx.unreachable = false

	log.Trace("Lowered routine", "name", def.Name.Ident, "labels", ctx.nextLabel, "vars", ctx.vars)
	return nil
}

// Lower emits code for c with failure continuation k. Nothing is emitted
// when the current position is unreachable.
func (ctx *Context) Lower(c ast.Command, k Continuation) {
	if ctx.unreachable {
		return
	}
	switch c := c.(type) {
	case *ast.Bra:
		ctx.lowerBra(c, k)
	case *ast.And:
		ctx.lowerAnd(c, k)
	case *ast.Or:
		ctx.lowerOr(c, k)
	case *ast.Backwards:
		ctx.lowerBackwards(c, k)
	case *ast.Not:
		ctx.lowerNot(c, k)
	case *ast.Try:
		ctx.lowerTry(c)
	case *ast.Test:
		ctx.lowerTest(c, c.Mode, c.Body, k)
	case *ast.Reverse:
		ctx.lowerTest(c, c.Mode, c.Body, k)
	case *ast.Do:
		ctx.lowerDo(c)
	case *ast.Fail:
		ctx.comment(c)
		ctx.Lower(c.Body, k)
		if !ctx.unreachable {
			ctx.fail(k)
		}
	case *ast.GoTo:
		ctx.lowerGo(c, c.Mode, c.Body, true, k)
	case *ast.GoPast:
		ctx.lowerGo(c, c.Mode, c.Body, false, k)
	case *ast.Repeat:
		ctx.comment(c)
		ctx.lowerRepeat(c.Mode, c.Body, "")
	case *ast.Loop:
		ctx.lowerLoop(c, k)
	case *ast.AtLeast:
		ctx.lowerAtLeast(c, k)
	case *ast.SetLimit:
		ctx.lowerSetLimit(c, k)
	case *ast.Dollar:
		ctx.lowerDollar(c, k)
	case *ast.AmongDispatch:
		ctx.lowerAmong(c, k)
	case *ast.Substring:
		ctx.lowerSubstring(c, c.Mode, c.Among, k)
	case *ast.True:
	case nil:
		defect(nil, "missing command")
	default:
		if !ctx.lowerPrimitive(c, k) {
			defect(c, "unexpected command %T", c)
		}
	}
}

func (ctx *Context) lowerBra(c *ast.Bra, k Continuation) {
	ctx.comment(c)
	for _, child := range c.Body {
		ctx.Lower(child, k)
	}
}

// lowerAnd runs every item from the same start position.
func (ctx *Context) lowerAnd(c *ast.And, k Continuation) {
	keep := ctx.analyzer.CursorNeeded(c.Items...)
	v := ctx.newVar()
	ctx.comment(c)
	if keep {
		ctx.saveCursor(c.Mode, v)
	}
	for i, item := range c.Items {
		ctx.Lower(item, k)
		if ctx.unreachable {
			break
		}
		if keep && i < len(c.Items)-1 {
			ctx.restoreCursor(c.Mode, v)
		}
	}
}

func (ctx *Context) lowerOr(c *ast.Or, k Continuation) {
	if len(c.Alternatives) < 2 {
		defect(c, "or needs at least two alternatives, got %d", len(c.Alternatives))
	}
	keep := ctx.analyzer.CursorNeeded(c.Alternatives...)
	v := ctx.newVar()
	out := ctx.newLabel()

	ctx.comment(c)
	ctx.beginTry()
	if keep {
		ctx.saveCursor(c.Mode, v)
	}
	last := len(c.Alternatives) - 1
	escaped := false
	for _, alt := range c.Alternatives[:last] {
		label := ctx.newLabel()
		ctx.beginTry()
		ctx.Lower(alt, To(label))
		if !ctx.unreachable {
			ctx.raise(out)
			escaped = true
		}
		ctx.endTry(label)
		ctx.unreachable = false
		if keep {
			ctx.restoreCursor(c.Mode, v)
		}
	}
	ctx.Lower(c.Alternatives[last], k)
	reachable := escaped || !ctx.unreachable
	ctx.endTry(out)
	ctx.unreachable = !reachable
}

func (ctx *Context) lowerBackwards(c *ast.Backwards, k Continuation) {
	ctx.comment(c)
	ctx.w.WriteLine("self.limit_backward = self.cursor")
	ctx.w.WriteLine("self.cursor = self.limit")
	ctx.Lower(c.Body, k)
	if !ctx.unreachable {
		ctx.w.WriteLine("self.cursor = self.limit_backward")
	}
}

// lowerNot succeeds exactly when its body fails.
func (ctx *Context) lowerNot(c *ast.Not, k Continuation) {
	keep := ctx.analyzer.CursorNeeded(c.Body)
	v := ctx.newVar()
	ctx.comment(c)
	if keep {
		ctx.saveCursor(c.Mode, v)
	}
	label := ctx.newLabel()
	ctx.beginTry()
	ctx.Lower(c.Body, To(label))
	if !ctx.unreachable {
		ctx.fail(k)
	}
	ctx.endTry(label)
	ctx.unreachable = false
	if keep {
		ctx.restoreCursor(c.Mode, v)
	}
}

// lowerTry absorbs failure of its body; the cursor is put back on failure
// only.
func (ctx *Context) lowerTry(c *ast.Try) {
	keep := ctx.analyzer.CursorNeeded(c.Body)
	v := ctx.newVar()
	ctx.comment(c)
	if keep {
		ctx.saveCursor(c.Mode, v)
	}
	label := ctx.newLabel()
	inner := To(label)
	if keep {
		inner = inner.Before(restoreLine(c.Mode, v))
	}
	ctx.beginTry()
	ctx.Lower(c.Body, inner)
	ctx.endTry(label)
	ctx.unreachable = false
}

// lowerTest implements test and reverse: the body must succeed, then the
// cursor goes back to where it was.
func (ctx *Context) lowerTest(c ast.Command, mode ast.Mode, body ast.Command, k Continuation) {
	keep := ctx.analyzer.CursorNeeded(body)
	v := ctx.newVar()
	ctx.comment(c)
	if keep {
		ctx.saveCursor(mode, v)
	}
	ctx.Lower(body, k)
	if !ctx.unreachable && keep {
		ctx.restoreCursor(mode, v)
	}
}

// lowerDo runs its body, ignores the outcome and restores the cursor.
func (ctx *Context) lowerDo(c *ast.Do) {
	keep := ctx.analyzer.CursorNeeded(c.Body)
	v := ctx.newVar()
	ctx.comment(c)
	if keep {
		ctx.saveCursor(c.Mode, v)
	}
	label := ctx.newLabel()
	ctx.beginTry()
	ctx.Lower(c.Body, To(label))
	ctx.endTry(label)
	ctx.unreachable = false
	if keep {
		ctx.restoreCursor(c.Mode, v)
	}
}

// lowerGo implements goto (before == true) and gopast. The body is retried
// at every position until it matches or the limit is reached.
func (ctx *Context) lowerGo(c ast.Command, mode ast.Mode, body ast.Command, before bool, k Continuation) {
	keep := before || ctx.analyzer.RepeatRestore(body)
	v := ctx.newVar()
	golab := ctx.newLabel()

	ctx.comment(c)
	ctx.w.Writef("~Mtry:~{~Mwhile True:~{")
	if keep {
		ctx.saveCursor(mode, v)
	}
	label := ctx.newLabel()
	ctx.beginTry()
	ctx.Lower(body, To(label))
	endUnreachable := ctx.unreachable
	if !ctx.unreachable {
		if before {
			ctx.restoreCursor(mode, v)
		}
		ctx.raise(golab)
	}
	ctx.endTry(label)
	ctx.unreachable = false
	if keep {
		ctx.restoreCursor(mode, v)
	}
	ctx.checkLimit(mode, k)
	ctx.incCursor(mode)
	ctx.w.Writef("~}~}")
	ctx.w.WriteLine("except lab" + strconv.Itoa(golab) + ": pass")
	ctx.unreachable = endUnreachable
}

// lowerRepeat runs body until it fails. counter, when set, is decremented
// after every successful iteration. Repeat never fails.
func (ctx *Context) lowerRepeat(mode ast.Mode, body ast.Command, counter string) {
	keep := ctx.analyzer.RepeatRestore(body)
	v := ctx.newVar()
	brk := ctx.newLabel()
	cont := ctx.newLabel()

	ctx.w.Writef("~Mtry:~{~Mwhile True:~{~Mtry:~{")
	if keep {
		ctx.saveCursor(mode, v)
	}
	label := ctx.newLabel()
	ctx.beginTry()
	ctx.Lower(body, To(label))
	if !ctx.unreachable {
		if counter != "" {
			ctx.w.WriteLine(counter + " -= 1")
		}
		ctx.raise(cont)
	}
	ctx.endTry(label)
	ctx.unreachable = false
	if keep {
		ctx.restoreCursor(mode, v)
	}
	ctx.raise(brk)
	ctx.endTry(cont)
	ctx.w.Writef("~}~}")
	ctx.w.WriteLine("except lab" + strconv.Itoa(brk) + ": pass")
	ctx.unreachable = false
}

// lowerLoop runs the body a fixed number of times; any failure propagates.
func (ctx *Context) lowerLoop(c *ast.Loop, k Continuation) {
	v := ctx.newVar()
	ctx.comment(c)
	ctx.w.B[0] = v
	ctx.w.S[0] = ctx.expr(c, c.Count)
	ctx.w.Writef("~Mfor ~B0 in range(~S0, 0, -1):~{")
	ctx.Lower(c.Body, k)
	ctx.w.Writef("~}")
	ctx.unreachable = false
}

func (ctx *Context) lowerAtLeast(c *ast.AtLeast, k Continuation) {
	v := ctx.newVar()
	ctx.comment(c)
	ctx.w.WriteLine(v + " = " + ctx.expr(c, c.Count))
	ctx.lowerRepeat(c.Mode, c.Body, v)
	ctx.failIf(v+" > 0", k)
}

// lowerSetLimit runs Limit to find the new boundary, narrows the region to
// it and runs Body. The old boundary is restored on both exits.
func (ctx *Context) lowerSetLimit(c *ast.SetLimit, k Continuation) {
	v := ctx.newVar()
	lim := ctx.newVar()
	ctx.comment(c)
	ctx.saveCursor(c.Mode, v)
	ctx.Lower(c.Limit, k)
	if ctx.unreachable {
		return
	}
	var restore string
	if c.Mode == ast.Backward {
		ctx.w.WriteLine(lim + " = self.limit_backward")
		ctx.w.WriteLine("self.limit_backward = self.cursor")
		restore = "self.limit_backward = " + lim
	} else {
		ctx.w.WriteLine(lim + " = self.limit - self.cursor")
		ctx.w.WriteLine("self.limit = self.cursor")
		restore = "self.limit += " + lim
	}
	ctx.restoreCursor(c.Mode, v)
	ctx.Lower(c.Body, k.Before(restore))
	if !ctx.unreachable {
		ctx.w.WriteLine(restore)
	}
}

// matcherState lists the runtime fields $ redirects. Variables are not part
// of it: assignments made inside the body stay visible afterwards.
const matcherState = "self.current, self.cursor, self.limit, self.limit_backward, self.bra, self.ket"

// lowerDollar runs the body against a string variable. The matcher state is
// saved in a tuple and put back on both exits; the edited string is kept in
// the variable.
func (ctx *Context) lowerDollar(c *ast.Dollar, k Continuation) {
	if c.Name == nil || c.Name.Kind != ast.KindString {
		defect(c, "$ needs a string variable")
	}
	saved := ctx.newVar()
	ctx.comment(c)

	f := field(c.Name)
	w := ctx.w
	w.WriteLine(saved + " = (" + matcherState + ")")
	w.WriteLine("self.current = " + f)
	w.WriteLine("self.cursor = 0")
	w.WriteLine("self.limit_backward = 0")
	w.WriteLine("self.limit = len(self.current)")

	restore := []string{
		f + " = self.current",
		matcherState + " = " + saved,
	}
	ctx.Lower(c.Body, k.Before(restore...))
	if !ctx.unreachable {
		for _, line := range restore {
			w.WriteLine(line)
		}
	}
}

// checkLimit fails when the cursor is at the boundary of the scan region.
func (ctx *Context) checkLimit(mode ast.Mode, k Continuation) {
	if mode == ast.Backward {
		ctx.failIf("self.cursor <= self.limit_backward", k)
	} else {
		ctx.failIf("self.cursor >= self.limit", k)
	}
}

func (ctx *Context) incCursor(mode ast.Mode) {
	if mode == ast.Backward {
		ctx.w.WriteLine("self.cursor -= 1")
	} else {
		ctx.w.WriteLine("self.cursor += 1")
	}
}
