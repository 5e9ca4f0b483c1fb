// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package loader

import (
	"fmt"

	"github.com/probechain/snowgen/lang/ast"
)

// builder resolves identifiers and turns decoded commands into ast nodes.
type builder struct {
	names  map[string]*ast.Name
	amongs []*ast.Among
}

func fail(line int, format string, args ...interface{}) error {
	return &Error{Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (b *builder) program(doc *document) (*ast.Program, error) {
	prog := new(ast.Program)
	for _, d := range doc.Names {
		kind, err := ast.ParseNameKind(d.Kind)
		if err != nil {
			return nil, fail(0, "name %q: %v", d.Name, err)
		}
		if d.Name == "" {
			return nil, fail(0, "name without identifier")
		}
		if _, dup := b.names[d.Name]; dup {
			return nil, fail(0, "name %q declared twice", d.Name)
		}
		n := &ast.Name{Kind: kind, Ident: d.Name}
		b.names[d.Name] = n
		prog.Names = append(prog.Names, n)
	}
	for _, d := range doc.Groupings {
		n, err := b.lookup(0, d.Name, ast.KindGrouping)
		if err != nil {
			return nil, err
		}
		if d.Members == "" {
			return nil, fail(0, "grouping %q is empty", d.Name)
		}
		prog.Groupings = append(prog.Groupings, ast.NewGrouping(n, []rune(d.Members)))
	}
	for _, n := range prog.Names {
		if n.Kind == ast.KindGrouping && n.Grouping == nil {
			return nil, fail(0, "grouping %q has no members", n.Ident)
		}
	}

	// Amongs first without starters: a starter may itself contain amongs.
	for i, d := range doc.Amongs {
		x := &ast.Among{Number: i, CommandCount: d.Commands, Substring: d.Substring}
		for _, e := range d.Entries {
			entry := ast.AmongEntry{Literal: []rune(e.S), Index: e.Index, Result: e.Result}
			if e.Function != "" {
				fn, err := b.lookup(0, e.Function, ast.KindRoutine)
				if err != nil {
					return nil, err
				}
				entry.Function = fn
			}
			x.Entries = append(x.Entries, entry)
		}
		b.amongs = append(b.amongs, x)
	}
	for i, d := range doc.Amongs {
		if d.Starter == nil {
			continue
		}
		starter, err := b.command(d.Starter)
		if err != nil {
			return nil, err
		}
		b.amongs[i].Starter = starter
	}
	prog.Amongs = b.amongs

	for _, d := range doc.Routines {
		n, err := b.lookup(d.Line, d.Name, ast.KindRoutine)
		if err != nil {
			return nil, err
		}
		if n.Definition != nil {
			return nil, fail(d.Line, "routine %q defined twice", d.Name)
		}
		if d.Body == nil {
			return nil, fail(d.Line, "routine %q has no body", d.Name)
		}
		body, err := b.command(d.Body)
		if err != nil {
			return nil, err
		}
		n.Definition = body
		prog.Routines = append(prog.Routines, &ast.Define{Pos: ast.Pos{LineNo: d.Line}, Name: n, Body: body})
	}
	return prog, nil
}

func (b *builder) lookup(line int, ident string, kinds ...ast.NameKind) (*ast.Name, error) {
	n, ok := b.names[ident]
	if !ok {
		return nil, fail(line, "undeclared name %q", ident)
	}
	for _, k := range kinds {
		if n.Kind == k {
			return n, nil
		}
	}
	return nil, fail(line, "%q is a %s, want %v", ident, n.Kind, kinds)
}

func parseMode(line int, s string) (ast.Mode, error) {
	switch s {
	case "", "forward":
		return ast.Forward, nil
	case "backward":
		return ast.Backward, nil
	}
	return 0, fail(line, "unknown mode %q", s)
}

func (b *builder) commands(cs []*command) ([]ast.Command, error) {
	out := make([]ast.Command, 0, len(cs))
	for _, c := range cs {
		cmd, err := b.command(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cmd)
	}
	return out, nil
}

// body converts the single operand of c.
func (b *builder) body(c *command) (ast.Command, error) {
	if c.Body == nil {
		return nil, fail(c.Line, "%s without operand", c.Kind)
	}
	return b.command(c.Body)
}

func (b *builder) source(c *command) (ast.Source, error) {
	if c.String != nil {
		return ast.Source{Literal: []rune(*c.String)}, nil
	}
	n, err := b.lookup(c.Line, c.Name, ast.KindString)
	if err != nil {
		return ast.Source{}, err
	}
	return ast.Source{Name: n}, nil
}

func (b *builder) among(c *command) (*ast.Among, error) {
	if c.Among == nil || *c.Among < 0 || *c.Among >= len(b.amongs) {
		return nil, fail(c.Line, "%s refers to a missing among table", c.Kind)
	}
	return b.amongs[*c.Among], nil
}

var assignOps = map[string]ast.AssignOp{
	"=": ast.OpAssign, "+=": ast.OpPlusAssign, "-=": ast.OpMinusAssign,
	"*=": ast.OpMultiplyAssign, "/=": ast.OpDivideAssign,
}

var compareOps = map[string]ast.CompareOp{
	"==": ast.OpEq, "!=": ast.OpNe, ">": ast.OpGr,
	">=": ast.OpGe, "<": ast.OpLs, "<=": ast.OpLe,
}

func (b *builder) command(c *command) (ast.Command, error) {
	if c == nil {
		return nil, fail(0, "missing command")
	}
	pos := ast.Pos{LineNo: c.Line}
	mode, err := parseMode(c.Line, c.Mode)
	if err != nil {
		return nil, err
	}

	switch c.Kind {
	case "bra", "(":
		items, err := b.commands(c.Items)
		if err != nil {
			return nil, err
		}
		return &ast.Bra{Pos: pos, Body: items}, nil
	case "and", "or":
		items, err := b.commands(c.Items)
		if err != nil {
			return nil, err
		}
		if c.Kind == "and" {
			return &ast.And{Pos: pos, Mode: mode, Items: items}, nil
		}
		return &ast.Or{Pos: pos, Mode: mode, Alternatives: items}, nil

	case "backwards", "not", "try", "test", "reverse", "do", "fail", "goto", "gopast", "repeat":
		body, err := b.body(c)
		if err != nil {
			return nil, err
		}
		return wrap(c.Kind, pos, mode, body), nil

	case "loop", "atleast":
		body, err := b.body(c)
		if err != nil {
			return nil, err
		}
		count, err := b.expr(c.Line, c.Count)
		if err != nil {
			return nil, err
		}
		if c.Kind == "loop" {
			return &ast.Loop{Pos: pos, Count: count, Body: body}, nil
		}
		return &ast.AtLeast{Pos: pos, Mode: mode, Count: count, Body: body}, nil

	case "setlimit":
		limit, err := b.command(c.Limit)
		if err != nil {
			return nil, err
		}
		body, err := b.body(c)
		if err != nil {
			return nil, err
		}
		return &ast.SetLimit{Pos: pos, Mode: mode, Limit: limit, Body: body}, nil

	case "$", "dollar":
		n, err := b.lookup(c.Line, c.Name, ast.KindString)
		if err != nil {
			return nil, err
		}
		body, err := b.body(c)
		if err != nil {
			return nil, err
		}
		return &ast.Dollar{Pos: pos, Name: n, Body: body}, nil

	case "tomark", "atmark", "hop":
		e, err := b.expr(c.Line, c.Value)
		if err != nil {
			return nil, err
		}
		switch c.Kind {
		case "tomark":
			return &ast.ToMark{Pos: pos, Mode: mode, Target: e}, nil
		case "atmark":
			return &ast.AtMark{Pos: pos, Target: e}, nil
		}
		return &ast.Hop{Pos: pos, Mode: mode, Count: e}, nil

	case "delete":
		return &ast.Delete{Pos: pos}, nil
	case "next":
		return &ast.Next{Pos: pos, Mode: mode}, nil
	case "tolimit":
		return &ast.ToLimit{Pos: pos, Mode: mode}, nil
	case "atlimit":
		return &ast.AtLimit{Pos: pos, Mode: mode}, nil
	case "[", "leftslice":
		return &ast.LeftSlice{Pos: pos, Mode: mode}, nil
	case "]", "rightslice":
		return &ast.RightSlice{Pos: pos, Mode: mode}, nil
	case "true":
		return &ast.True{Pos: pos}, nil
	case "false":
		return &ast.False{Pos: pos}, nil
	case "?", "debug":
		return &ast.Debug{Pos: pos}, nil

	case "=", "assign", "insert", "<+", "attach", "<-", "slicefrom":
		src, err := b.source(c)
		if err != nil {
			return nil, err
		}
		switch c.Kind {
		case "=", "assign":
			return &ast.AssignFrom{Pos: pos, Mode: mode, Source: src}, nil
		case "insert", "<+":
			return &ast.Insert{Pos: pos, Mode: mode, Source: src}, nil
		case "attach":
			return &ast.Attach{Pos: pos, Mode: mode, Source: src}, nil
		}
		return &ast.SliceFrom{Pos: pos, Source: src}, nil

	case "literalstring", "literal":
		if c.String == nil {
			return nil, fail(c.Line, "literal without string")
		}
		return &ast.Literal{Pos: pos, Mode: mode, Value: []rune(*c.String)}, nil

	case "among", "substring":
		x, err := b.among(c)
		if err != nil {
			return nil, err
		}
		if c.Kind == "substring" {
			return &ast.Substring{Pos: pos, Mode: mode, Among: x}, nil
		}
		cases, err := b.commands(c.Cases)
		if err != nil {
			return nil, err
		}
		return &ast.AmongDispatch{Pos: pos, Mode: mode, Among: x, Cases: cases}, nil

	case "intassign":
		op, ok := assignOps[c.Op]
		if !ok {
			return nil, fail(c.Line, "unknown assignment %q", c.Op)
		}
		n, err := b.lookup(c.Line, c.Name, ast.KindInteger)
		if err != nil {
			return nil, err
		}
		v, err := b.expr(c.Line, c.Value)
		if err != nil {
			return nil, err
		}
		return &ast.IntAssign{Pos: pos, Op: op, Name: n, Value: v}, nil

	case "intcompare":
		op, ok := compareOps[c.Op]
		if !ok {
			return nil, fail(c.Line, "unknown comparison %q", c.Op)
		}
		n, err := b.lookup(c.Line, c.Name, ast.KindInteger)
		if err != nil {
			return nil, err
		}
		v, err := b.expr(c.Line, c.Value)
		if err != nil {
			return nil, err
		}
		return &ast.IntCompare{Pos: pos, Op: op, Name: n, Value: v}, nil
	}

	return b.named(c, pos, mode)
}

// named converts the commands whose only operand is a name.
func (b *builder) named(c *command, pos ast.Pos, mode ast.Mode) (ast.Command, error) {
	var kinds []ast.NameKind
	switch c.Kind {
	case "setmark":
		kinds = []ast.NameKind{ast.KindInteger}
	case "=>", "assignto", "->", "sliceto", "name":
		kinds = []ast.NameKind{ast.KindString}
	case "call":
		kinds = []ast.NameKind{ast.KindRoutine, ast.KindExternal}
	case "grouping", "non":
		kinds = []ast.NameKind{ast.KindGrouping}
	case "set", "unset", "booltest":
		kinds = []ast.NameKind{ast.KindBoolean}
	default:
		return nil, fail(c.Line, "unknown command kind %q", c.Kind)
	}
	n, err := b.lookup(c.Line, c.Name, kinds...)
	if err != nil {
		return nil, err
	}
	switch c.Kind {
	case "setmark":
		return &ast.SetMark{Pos: pos, Name: n}, nil
	case "=>", "assignto":
		return &ast.AssignTo{Pos: pos, Name: n}, nil
	case "->", "sliceto":
		return &ast.SliceTo{Pos: pos, Name: n}, nil
	case "name":
		return &ast.NameMatch{Pos: pos, Mode: mode, Name: n}, nil
	case "call":
		return &ast.Call{Pos: pos, Name: n}, nil
	case "grouping", "non":
		return &ast.GroupingTest{Pos: pos, Mode: mode, Name: n, Complement: c.Kind == "non"}, nil
	case "set":
		return &ast.Set{Pos: pos, Name: n}, nil
	case "unset":
		return &ast.Unset{Pos: pos, Name: n}, nil
	}
	return &ast.BoolTest{Pos: pos, Name: n}, nil
}

func wrap(kind string, pos ast.Pos, mode ast.Mode, body ast.Command) ast.Command {
	switch kind {
	case "backwards":
		return &ast.Backwards{Pos: pos, Body: body}
	case "not":
		return &ast.Not{Pos: pos, Mode: mode, Body: body}
	case "try":
		return &ast.Try{Pos: pos, Mode: mode, Body: body}
	case "test":
		return &ast.Test{Pos: pos, Mode: mode, Body: body}
	case "reverse":
		return &ast.Reverse{Pos: pos, Mode: mode, Body: body}
	case "do":
		return &ast.Do{Pos: pos, Mode: mode, Body: body}
	case "fail":
		return &ast.Fail{Pos: pos, Body: body}
	case "goto":
		return &ast.GoTo{Pos: pos, Mode: mode, Body: body}
	case "gopast":
		return &ast.GoPast{Pos: pos, Mode: mode, Body: body}
	}
	return &ast.Repeat{Pos: pos, Mode: mode, Body: body}
}

var binaryOps = map[string]ast.BinaryOp{
	"plus": ast.OpPlus, "+": ast.OpPlus,
	"minus": ast.OpMinus, "-": ast.OpMinus,
	"multiply": ast.OpMultiply, "*": ast.OpMultiply,
	"divide": ast.OpDivide, "/": ast.OpDivide,
}

func (b *builder) expr(line int, e *expr) (ast.Expr, error) {
	if e == nil {
		return nil, fail(line, "missing arithmetic expression")
	}
	switch e.Kind {
	case "number":
		return &ast.Number{Value: e.Value}, nil
	case "name", "var":
		n, err := b.lookup(line, e.Name, ast.KindInteger)
		if err != nil {
			return nil, err
		}
		return &ast.VarRef{Name: n}, nil
	case "maxint":
		return &ast.MaxInt{}, nil
	case "minint":
		return &ast.MinInt{}, nil
	case "neg":
		x, err := b.expr(line, e.X)
		if err != nil {
			return nil, err
		}
		return &ast.Neg{X: x}, nil
	case "sizeof":
		n, err := b.lookup(line, e.Name, ast.KindString)
		if err != nil {
			return nil, err
		}
		return &ast.SizeOf{Name: n}, nil
	case "cursor":
		return &ast.Cursor{}, nil
	case "limit":
		mode, err := parseMode(line, e.Mode)
		if err != nil {
			return nil, err
		}
		return &ast.Limit{Mode: mode}, nil
	case "size":
		return &ast.Size{}, nil
	}
	op, ok := binaryOps[e.Kind]
	if !ok {
		return nil, fail(line, "unknown expression kind %q", e.Kind)
	}
	x, err := b.expr(line, e.X)
	if err != nil {
		return nil, err
	}
	y, err := b.expr(line, e.Y)
	if err != nil {
		return nil, err
	}
	return &ast.Binary{Op: op, X: x, Y: y}, nil
}
