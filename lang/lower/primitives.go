// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package lower

import (
	"strconv"

	"github.com/probechain/snowgen/lang/ast"
	"github.com/probechain/snowgen/lang/format"
)

// Integer bounds of the generated code's maxint and minint.
const (
	maxInt = 2147483647
	minInt = -2147483648
)

func varName(n *ast.Name) string { return format.VarName(n) }

// field returns the Python expression reading variable n.
func field(n *ast.Name) string { return "self." + format.VarName(n) }

// lowerPrimitive emits the constructs that touch the runtime directly. It
// reports false for commands it does not know.
func (ctx *Context) lowerPrimitive(c ast.Command, k Continuation) bool {
	w := ctx.w
	switch c := c.(type) {
	case *ast.SetMark:
		ctx.comment(c)
		w.WriteLine(ctx.intField(c, c.Name) + " = self.cursor")

	case *ast.ToMark:
		ctx.comment(c)
		target := ctx.expr(c, c.Target)
		op := ">"
		if c.Mode == ast.Backward {
			op = "<"
		}
		w.S[0] = op
		w.S[1] = target
		ctx.failIf("self.cursor ~S0 ~S1", k)
		w.WriteLine("self.cursor = " + target)

	case *ast.AtMark:
		ctx.comment(c)
		w.S[0] = ctx.expr(c, c.Target)
		ctx.failIf("self.cursor != ~S0", k)

	case *ast.Hop:
		v := ctx.newVar()
		ctx.comment(c)
		op, low := "+", "0"
		if c.Mode == ast.Backward {
			op, low = "-", "self.limit_backward"
		}
		w.WriteLine(v + " = self.cursor " + op + " " + ctx.expr(c, c.Count))
		w.B[0] = v
		w.S[0] = low
		ctx.failIf("~S0 > ~B0 or ~B0 > self.limit", k)
		w.WriteLine("self.cursor = " + v)

	case *ast.Delete:
		ctx.comment(c)
		ctx.failIf("not self.slice_del()", k)

	case *ast.Next:
		ctx.comment(c)
		ctx.checkLimit(c.Mode, k)
		ctx.incCursor(c.Mode)

	case *ast.ToLimit:
		ctx.comment(c)
		w.WriteLine("self.cursor = " + limitField(c.Mode))

	case *ast.AtLimit:
		ctx.comment(c)
		w.S[0] = limitField(c.Mode)
		w.S[1] = "<"
		if c.Mode == ast.Backward {
			w.S[1] = ">"
		}
		ctx.failIf("self.cursor ~S1 ~S0", k)

	case *ast.LeftSlice:
		ctx.comment(c)
		if c.Mode == ast.Backward {
			w.WriteLine("self.ket = self.cursor")
		} else {
			w.WriteLine("self.bra = self.cursor")
		}

	case *ast.RightSlice:
		ctx.comment(c)
		if c.Mode == ast.Backward {
			w.WriteLine("self.bra = self.cursor")
		} else {
			w.WriteLine("self.ket = self.cursor")
		}

	case *ast.AssignTo:
		ctx.comment(c)
		f := ctx.stringField(c, c.Name)
		w.WriteLine(f + " = self.assign_to(" + f + ")")

	case *ast.SliceTo:
		ctx.comment(c)
		f := ctx.stringField(c, c.Name)
		w.WriteLine(f + " = self.slice_to(" + f + ")")
		w.S[0] = f
		ctx.failIf("~S0 == ''", k)

	case *ast.Insert:
		ctx.lowerInsert(c, c.Mode, c.Source, false)

	case *ast.Attach:
		ctx.lowerInsert(c, c.Mode, c.Source, true)

	case *ast.AssignFrom:
		ctx.lowerAssignFrom(c)

	case *ast.SliceFrom:
		ctx.comment(c)
		w.S[0] = ctx.source(c, c.Source)
		ctx.failIf("not self.slice_from(~S0)", k)

	case *ast.IntAssign:
		ctx.comment(c)
		f := ctx.intField(c, c.Name)
		value := ctx.expr(c, c.Value)
		if c.Op == ast.OpDivideAssign {
			w.WriteLine(f + " = int(" + f + " / " + value + ")")
		} else {
			w.WriteLine(f + " " + c.Op.String() + " " + value)
		}

	case *ast.IntCompare:
		ctx.comment(c)
		w.S[0] = ctx.intField(c, c.Name)
		w.S[1] = c.Op.String()
		w.S[2] = ctx.expr(c, c.Value)
		ctx.failIf("not (~S0 ~S1 ~S2)", k)

	case *ast.Call:
		ctx.comment(c)
		if c.Name == nil || (c.Name.Kind != ast.KindRoutine && c.Name.Kind != ast.KindExternal) {
			defect(c, "call of something that is not a routine")
		}
		w.S[0] = callName(c.Name)
		ctx.failIf("not self.~S0()", k)

	case *ast.GroupingTest:
		ctx.comment(c)
		ctx.lowerGrouping(c, k)

	case *ast.NameMatch:
		ctx.comment(c)
		w.S[0] = suffix(c.Mode)
		w.S[1] = ctx.stringField(c, c.Name)
		ctx.failIf("not self.eq_v~S0(~S1)", k)

	case *ast.Literal:
		ctx.comment(c)
		w.S[0] = suffix(c.Mode)
		w.I[0] = len(c.Value)
		w.L[0] = c.Value
		ctx.failIf("not self.eq_s~S0(~I0, ~L0)", k)

	case *ast.Set:
		ctx.comment(c)
		w.WriteLine(ctx.boolField(c, c.Name) + " = True")

	case *ast.Unset:
		ctx.comment(c)
		w.WriteLine(ctx.boolField(c, c.Name) + " = False")

	case *ast.BoolTest:
		ctx.comment(c)
		w.S[0] = ctx.boolField(c, c.Name)
		ctx.failIf("not ~S0", k)

	case *ast.False:
		ctx.comment(c)
		ctx.fail(k)

	case *ast.Debug:
		ctx.comment(c)
		w.I[0] = ctx.debugSite(c)
		w.I[1] = c.Line()
		w.Writef("~Mself.debug(~I0, ~I1)~N")

	default:
		return false
	}
	return true
}

// lowerInsert emits insert and attach. Insert leaves the cursor after the
// new text in the scan direction, attach leaves it before.
func (ctx *Context) lowerInsert(c ast.Command, mode ast.Mode, src ast.Source, attach bool) {
	keep := attach != (mode == ast.Backward)
	v := ctx.newVar()
	ctx.comment(c)
	if keep {
		ctx.w.WriteLine(v + " = self.cursor")
	}
	ctx.w.WriteLine("self.insert(self.cursor, self.cursor, " + ctx.source(c, src) + ")")
	if keep {
		ctx.w.WriteLine("self.cursor = " + v)
	}
}

// lowerAssignFrom replaces the text between the cursor and the limit.
func (ctx *Context) lowerAssignFrom(c *ast.AssignFrom) {
	v := ctx.newVar()
	ctx.comment(c)
	src := ctx.source(c, c.Source)
	if c.Mode == ast.Backward {
		ctx.w.WriteLine("self.insert(self.limit_backward, self.cursor, " + src + ")")
		return
	}
	ctx.w.WriteLine(v + " = self.cursor")
	ctx.w.WriteLine("self.insert(self.cursor, self.limit, " + src + ")")
	ctx.w.WriteLine("self.cursor = " + v)
}

// lowerGrouping emits a range test for contiguous groupings and a bitmap
// test otherwise. The grouping tables must have been written first so that
// NoGaps is known.
func (ctx *Context) lowerGrouping(c *ast.GroupingTest, k Continuation) {
	if c.Name == nil || c.Name.Grouping == nil {
		defect(c, "grouping test without grouping")
	}
	q := c.Name.Grouping
	w := ctx.w
	w.S[0] = suffix(c.Mode)
	w.S[1] = "in"
	if c.Complement {
		w.S[1] = "out"
	}
	w.I[0] = int(q.Smallest)
	w.I[1] = int(q.Largest)
	if q.NoGaps {
		ctx.failIf("not self.~S1_range~S0(~I0, ~I1)", k)
		return
	}
	w.V[0] = c.Name
	ctx.failIf("not self.~S1_grouping~S0(~n.~V0, ~I0, ~I1)", k)
}

// lowerSubstring emits the table match of an among.
func (ctx *Context) lowerSubstring(c ast.Command, mode ast.Mode, x *ast.Among, k Continuation) {
	if x == nil {
		defect(c, "missing among table")
	}
	ctx.comment(c)
	w := ctx.w
	w.S[0] = suffix(mode)
	w.I[0] = x.Number
	w.I[1] = len(x.Entries)
	if x.CommandCount == 0 && x.Starter == nil {
		ctx.failIf("self.find_among~S0(~n.a_~I0, ~I1) == 0", k)
		return
	}
	w.Writef("~Mamong_var = self.find_among~S0(~n.a_~I0, ~I1)~N")
	ctx.failIf("among_var == 0", k)
}

// lowerAmong emits the match (unless a substring command did it already),
// the starter and the dispatch on the match result.
func (ctx *Context) lowerAmong(c *ast.AmongDispatch, k Continuation) {
	x := c.Among
	if x == nil {
		defect(c, "missing among table")
	}
	if x.Substring {
		ctx.comment(c)
	} else {
		ctx.lowerSubstring(c, c.Mode, x, k)
	}
	if x.CommandCount == 0 && x.Starter == nil {
		return
	}
	if x.Starter != nil {
		ctx.Lower(x.Starter, k)
		if ctx.unreachable {
			return
		}
	}
	if len(c.Cases) == 0 {
		return
	}
	for _, e := range x.Entries {
		if e.Result < 1 || e.Result > len(c.Cases) {
			defect(c, "among result %d has no case (%d cases)", e.Result, len(c.Cases))
		}
	}
	w := ctx.w
	for i, body := range c.Cases {
		w.I[0] = i + 1
		if i == 0 {
			w.Writef("~Mif among_var == ~I0:~{")
		} else {
			w.Writef("~Melif among_var == ~I0:~{")
		}
		if body != nil {
			ctx.Lower(body, k)
		}
		w.Writef("~}")
		ctx.unreachable = false
	}
}

func (ctx *Context) debugSite(c *ast.Debug) int {
	if i, ok := ctx.debugIndex[c]; ok {
		return i
	}
	i := ctx.debugCount
	ctx.debugCount++
	return i
}

func limitField(mode ast.Mode) string {
	if mode == ast.Backward {
		return "self.limit_backward"
	}
	return "self.limit"
}

func callName(n *ast.Name) string {
	if n.Kind == ast.KindRoutine {
		return format.RoutineName(n)
	}
	return varName(n)
}

func (ctx *Context) typedField(c ast.Command, n *ast.Name, kind ast.NameKind) string {
	if n == nil || n.Kind != kind {
		defect(c, "%s variable expected", kind)
	}
	return field(n)
}

func (ctx *Context) intField(c ast.Command, n *ast.Name) string {
	return ctx.typedField(c, n, ast.KindInteger)
}

func (ctx *Context) stringField(c ast.Command, n *ast.Name) string {
	return ctx.typedField(c, n, ast.KindString)
}

func (ctx *Context) boolField(c ast.Command, n *ast.Name) string {
	return ctx.typedField(c, n, ast.KindBoolean)
}

// source renders the operand of insert, attach, `=` and `<-`.
func (ctx *Context) source(c ast.Command, s ast.Source) string {
	if s.Name != nil {
		return ctx.stringField(c, s.Name)
	}
	return format.Literal(s.Literal)
}

// expr renders an arithmetic expression. Integer division truncates
// towards zero as in the DSL.
func (ctx *Context) expr(c ast.Command, e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Number:
		return strconv.Itoa(e.Value)
	case *ast.VarRef:
		return ctx.intField(c, e.Name)
	case *ast.MaxInt:
		return strconv.Itoa(maxInt)
	case *ast.MinInt:
		return strconv.Itoa(minInt)
	case *ast.Neg:
		return "-" + ctx.expr(c, e.X)
	case *ast.Binary:
		x, y := ctx.expr(c, e.X), ctx.expr(c, e.Y)
		if e.Op == ast.OpDivide {
			return "int(" + x + " / " + y + ")"
		}
		return "(" + x + " " + e.Op.String() + " " + y + ")"
	case *ast.SizeOf:
		return "len(" + ctx.stringField(c, e.Name) + ")"
	case *ast.Cursor:
		return "self.cursor"
	case *ast.Limit:
		return limitField(e.Mode)
	case *ast.Size:
		return "len(self.current)"
	}
	defect(c, "unexpected expression %T", e)
	return ""
}
