// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package ast defines the tree and symbol tables a Snowball front end hands
// to the code generator.
//
// Design overview:
//
//   - Every construct is a distinct Go type implementing Command, so the
//     lowering engine dispatches with a type switch and each variant only
//     carries the fields it needs.
//   - Sibling lists are plain slices. A Bra holds the commands of one
//     parenthesised sequence; And/Or hold their operands.
//   - Arithmetic lives in a separate Expr sum type.
//   - Names, Amongs and Groupings are shared, read-only tables. A routine
//     Name points at its body so the analyzers can follow calls.
package ast

// ---------------------------------------------------------------------------
// Core interfaces
// ---------------------------------------------------------------------------

// Command is a Snowball construct that either succeeds (falls through) or
// fails (transfers control to the ambient failure continuation).
type Command interface {
	// TokenLiteral returns the DSL keyword of the construct. It is used for
	// the comment emitted in front of the generated code.
	TokenLiteral() string

	// Line returns the source line the construct was parsed from.
	Line() int

	commandNode()
}

// Expr is an integer arithmetic expression.
type Expr interface {
	exprNode()
}

// Mode is the scan direction of a construct.
type Mode int

const (
	Forward Mode = iota
	Backward
)

func (m Mode) String() string {
	if m == Backward {
		return "backward"
	}
	return "forward"
}

// Pos records the source line of a construct.
type Pos struct {
	LineNo int
}

func (p Pos) Line() int { return p.LineNo }

// ---------------------------------------------------------------------------
// Program: root handed over by the front end
// ---------------------------------------------------------------------------

// Program is everything the generator needs for one compilation unit.
type Program struct {
	Routines  []*Define
	Names     []*Name
	Amongs    []*Among
	Groupings []*Grouping
}

// Lookup returns the name with the given identifier, or nil.
func (p *Program) Lookup(ident string) *Name {
	for _, n := range p.Names {
		if n.Ident == ident {
			return n
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Structural commands
// ---------------------------------------------------------------------------

// Define is a routine definition: `define name as body`.
type Define struct {
	Pos
	Name *Name
	Body Command
}

// Bra is a parenthesised sequence `( C1 C2 ... )`.
type Bra struct {
	Pos
	Body []Command
}

// And is `C1 and C2 and ...`.
type And struct {
	Pos
	Mode  Mode
	Items []Command
}

// Or is `C1 or C2 or ...`. It always has at least two alternatives.
type Or struct {
	Pos
	Mode         Mode
	Alternatives []Command
}

// Backwards runs its body scanning from the limit towards the cursor.
type Backwards struct {
	Pos
	Body Command
}

// Not is `not C`.
type Not struct {
	Pos
	Mode Mode
	Body Command
}

// Try is `try C`.
type Try struct {
	Pos
	Mode Mode
	Body Command
}

// Test is `test C`.
type Test struct {
	Pos
	Mode Mode
	Body Command
}

// Reverse is `reverse C`.
type Reverse struct {
	Pos
	Mode Mode
	Body Command
}

// Do is `do C`.
type Do struct {
	Pos
	Mode Mode
	Body Command
}

// Fail is `fail C`.
type Fail struct {
	Pos
	Body Command
}

// GoTo is `goto C`.
type GoTo struct {
	Pos
	Mode Mode
	Body Command
}

// GoPast is `gopast C`.
type GoPast struct {
	Pos
	Mode Mode
	Body Command
}

// Repeat is `repeat C`.
type Repeat struct {
	Pos
	Mode Mode
	Body Command
}

// Loop is `loop AE C`.
type Loop struct {
	Pos
	Count Expr
	Body  Command
}

// AtLeast is `atleast AE C`.
type AtLeast struct {
	Pos
	Mode  Mode
	Count Expr
	Body  Command
}

// ---------------------------------------------------------------------------
// Cursor and slice primitives
// ---------------------------------------------------------------------------

// SetMark is `setmark i`.
type SetMark struct {
	Pos
	Name *Name
}

// ToMark is `tomark AE`.
type ToMark struct {
	Pos
	Mode   Mode
	Target Expr
}

// AtMark is `atmark AE`.
type AtMark struct {
	Pos
	Target Expr
}

// Hop is `hop AE`.
type Hop struct {
	Pos
	Mode  Mode
	Count Expr
}

// Delete is `delete`.
type Delete struct {
	Pos
}

// Next is `next`.
type Next struct {
	Pos
	Mode Mode
}

// ToLimit is `tolimit`.
type ToLimit struct {
	Pos
	Mode Mode
}

// AtLimit is `atlimit`.
type AtLimit struct {
	Pos
	Mode Mode
}

// LeftSlice is `[`.
type LeftSlice struct {
	Pos
	Mode Mode
}

// RightSlice is `]`.
type RightSlice struct {
	Pos
	Mode Mode
}

// AssignTo is `=> s`.
type AssignTo struct {
	Pos
	Name *Name
}

// SliceTo is `-> s`.
type SliceTo struct {
	Pos
	Name *Name
}

// Source is the operand of insert, attach, `=` and `<-`: a literal string or
// a string variable.
type Source struct {
	Literal []rune
	Name    *Name
}

// AssignFrom is `= S`.
type AssignFrom struct {
	Pos
	Mode   Mode
	Source Source
}

// Insert is `insert S` (also written `<+ S`).
type Insert struct {
	Pos
	Mode   Mode
	Source Source
}

// Attach is `attach S`.
type Attach struct {
	Pos
	Mode   Mode
	Source Source
}

// SliceFrom is `<- S`.
type SliceFrom struct {
	Pos
	Source Source
}

// SetLimit is `setlimit C1 for C2`. Limit moves the cursor to the new
// boundary, Body runs inside it.
type SetLimit struct {
	Pos
	Mode  Mode
	Limit Command
	Body  Command
}

// Dollar is `$s C`: run C against string variable s.
type Dollar struct {
	Pos
	Name *Name
	Body Command
}

// ---------------------------------------------------------------------------
// Integer, boolean and call commands
// ---------------------------------------------------------------------------

// AssignOp is the operator of an integer assignment.
type AssignOp int

const (
	OpAssign AssignOp = iota
	OpPlusAssign
	OpMinusAssign
	OpMultiplyAssign
	OpDivideAssign
)

var assignOps = [...]string{"=", "+=", "-=", "*=", "/="}

func (op AssignOp) String() string { return assignOps[op] }

// CompareOp is the operator of an integer comparison.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpGr
	OpGe
	OpLs
	OpLe
)

var compareOps = [...]string{"==", "!=", ">", ">=", "<", "<="}

func (op CompareOp) String() string { return compareOps[op] }

// IntAssign is `$i = AE` and the compound forms.
type IntAssign struct {
	Pos
	Op    AssignOp
	Name  *Name
	Value Expr
}

// IntCompare is `$i == AE` and the other comparisons.
type IntCompare struct {
	Pos
	Op    CompareOp
	Name  *Name
	Value Expr
}

// Call invokes a routine or external.
type Call struct {
	Pos
	Name *Name
}

// GroupingTest matches one character in (or, with Complement, not in) a
// grouping. Complement is the `non` construct.
type GroupingTest struct {
	Pos
	Mode       Mode
	Name       *Name
	Complement bool
}

// NameMatch matches the contents of a string variable.
type NameMatch struct {
	Pos
	Mode Mode
	Name *Name
}

// Literal matches a literal string.
type Literal struct {
	Pos
	Mode  Mode
	Value []rune
}

// AmongDispatch is `among(...)`. Cases[i] runs when the match result is i+1.
type AmongDispatch struct {
	Pos
	Mode  Mode
	Among *Among
	Cases []Command
}

// Substring is `substring`, the match half of a split among.
type Substring struct {
	Pos
	Mode  Mode
	Among *Among
}

// Set is `set b`.
type Set struct {
	Pos
	Name *Name
}

// Unset is `unset b`.
type Unset struct {
	Pos
	Name *Name
}

// BoolTest is a boolean name used as a command.
type BoolTest struct {
	Pos
	Name *Name
}

// True is `true`.
type True struct {
	Pos
}

// False is `false`.
type False struct {
	Pos
}

// Debug is `?`.
type Debug struct {
	Pos
}

// ---------------------------------------------------------------------------
// Command plumbing
// ---------------------------------------------------------------------------

func (*Define) commandNode()        {}
func (*Bra) commandNode()           {}
func (*And) commandNode()           {}
func (*Or) commandNode()            {}
func (*Backwards) commandNode()     {}
func (*Not) commandNode()           {}
func (*Try) commandNode()           {}
func (*Test) commandNode()          {}
func (*Reverse) commandNode()       {}
func (*Do) commandNode()            {}
func (*Fail) commandNode()          {}
func (*GoTo) commandNode()          {}
func (*GoPast) commandNode()        {}
func (*Repeat) commandNode()        {}
func (*Loop) commandNode()          {}
func (*AtLeast) commandNode()       {}
func (*SetMark) commandNode()       {}
func (*ToMark) commandNode()        {}
func (*AtMark) commandNode()        {}
func (*Hop) commandNode()           {}
func (*Delete) commandNode()        {}
func (*Next) commandNode()          {}
func (*ToLimit) commandNode()       {}
func (*AtLimit) commandNode()       {}
func (*LeftSlice) commandNode()     {}
func (*RightSlice) commandNode()    {}
func (*AssignTo) commandNode()      {}
func (*SliceTo) commandNode()       {}
func (*AssignFrom) commandNode()    {}
func (*Insert) commandNode()        {}
func (*Attach) commandNode()        {}
func (*SliceFrom) commandNode()     {}
func (*SetLimit) commandNode()      {}
func (*Dollar) commandNode()        {}
func (*IntAssign) commandNode()     {}
func (*IntCompare) commandNode()    {}
func (*Call) commandNode()          {}
func (*GroupingTest) commandNode()  {}
func (*NameMatch) commandNode()     {}
func (*Literal) commandNode()       {}
func (*AmongDispatch) commandNode() {}
func (*Substring) commandNode()     {}
func (*Set) commandNode()           {}
func (*Unset) commandNode()         {}
func (*BoolTest) commandNode()      {}
func (*True) commandNode()          {}
func (*False) commandNode()         {}
func (*Debug) commandNode()         {}

func (*Define) TokenLiteral() string        { return "define" }
func (*Bra) TokenLiteral() string           { return "(" }
func (*And) TokenLiteral() string           { return "and" }
func (*Or) TokenLiteral() string            { return "or" }
func (*Backwards) TokenLiteral() string     { return "backwards" }
func (*Not) TokenLiteral() string           { return "not" }
func (*Try) TokenLiteral() string           { return "try" }
func (*Test) TokenLiteral() string          { return "test" }
func (*Reverse) TokenLiteral() string       { return "reverse" }
func (*Do) TokenLiteral() string            { return "do" }
func (*Fail) TokenLiteral() string          { return "fail" }
func (*GoTo) TokenLiteral() string          { return "goto" }
func (*GoPast) TokenLiteral() string        { return "gopast" }
func (*Repeat) TokenLiteral() string        { return "repeat" }
func (*Loop) TokenLiteral() string          { return "loop" }
func (*AtLeast) TokenLiteral() string       { return "atleast" }
func (*SetMark) TokenLiteral() string       { return "setmark" }
func (*ToMark) TokenLiteral() string        { return "tomark" }
func (*AtMark) TokenLiteral() string        { return "atmark" }
func (*Hop) TokenLiteral() string           { return "hop" }
func (*Delete) TokenLiteral() string        { return "delete" }
func (*Next) TokenLiteral() string          { return "next" }
func (*ToLimit) TokenLiteral() string       { return "tolimit" }
func (*AtLimit) TokenLiteral() string       { return "atlimit" }
func (*LeftSlice) TokenLiteral() string     { return "[" }
func (*RightSlice) TokenLiteral() string    { return "]" }
func (*AssignTo) TokenLiteral() string      { return "=>" }
func (*SliceTo) TokenLiteral() string       { return "->" }
func (*AssignFrom) TokenLiteral() string    { return "=" }
func (*Insert) TokenLiteral() string        { return "insert" }
func (*Attach) TokenLiteral() string        { return "attach" }
func (*SliceFrom) TokenLiteral() string     { return "<-" }
func (*SetLimit) TokenLiteral() string      { return "setlimit" }
func (*Dollar) TokenLiteral() string        { return "$" }
func (c *IntAssign) TokenLiteral() string   { return c.Op.String() }
func (c *IntCompare) TokenLiteral() string  { return c.Op.String() }
func (*Call) TokenLiteral() string          { return "call" }
func (*NameMatch) TokenLiteral() string     { return "name" }
func (*Literal) TokenLiteral() string       { return "literalstring" }
func (*AmongDispatch) TokenLiteral() string { return "among" }
func (*Substring) TokenLiteral() string     { return "substring" }
func (*Set) TokenLiteral() string           { return "set" }
func (*Unset) TokenLiteral() string         { return "unset" }
func (*BoolTest) TokenLiteral() string      { return "booltest" }
func (*True) TokenLiteral() string          { return "true" }
func (*False) TokenLiteral() string         { return "false" }
func (*Debug) TokenLiteral() string         { return "?" }

func (c *GroupingTest) TokenLiteral() string {
	if c.Complement {
		return "non"
	}
	return "grouping"
}

// NameOf returns the symbol a command refers to, or nil.
func NameOf(c Command) *Name {
	switch c := c.(type) {
	case *Define:
		return c.Name
	case *SetMark:
		return c.Name
	case *AssignTo:
		return c.Name
	case *SliceTo:
		return c.Name
	case *Dollar:
		return c.Name
	case *IntAssign:
		return c.Name
	case *IntCompare:
		return c.Name
	case *Call:
		return c.Name
	case *GroupingTest:
		return c.Name
	case *NameMatch:
		return c.Name
	case *Set:
		return c.Name
	case *Unset:
		return c.Name
	case *BoolTest:
		return c.Name
	}
	return nil
}

// Walk calls fn for c and every command nested below it, depth first in
// source order. It does not follow calls into other routines.
func Walk(c Command, fn func(Command)) {
	if c == nil {
		return
	}
	fn(c)
	for _, child := range Children(c) {
		Walk(child, fn)
	}
}

// Children returns the commands directly nested in c, in source order.
func Children(c Command) []Command {
	switch c := c.(type) {
	case *Define:
		return []Command{c.Body}
	case *Bra:
		return c.Body
	case *And:
		return c.Items
	case *Or:
		return c.Alternatives
	case *Backwards:
		return []Command{c.Body}
	case *Not:
		return []Command{c.Body}
	case *Try:
		return []Command{c.Body}
	case *Test:
		return []Command{c.Body}
	case *Reverse:
		return []Command{c.Body}
	case *Do:
		return []Command{c.Body}
	case *Fail:
		return []Command{c.Body}
	case *GoTo:
		return []Command{c.Body}
	case *GoPast:
		return []Command{c.Body}
	case *Repeat:
		return []Command{c.Body}
	case *Loop:
		return []Command{c.Body}
	case *AtLeast:
		return []Command{c.Body}
	case *SetLimit:
		return []Command{c.Limit, c.Body}
	case *Dollar:
		return []Command{c.Body}
	case *AmongDispatch:
		var out []Command
		if c.Among != nil && c.Among.Starter != nil {
			out = append(out, c.Among.Starter)
		}
		return append(out, c.Cases...)
	}
	return nil
}
