// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package ast

import "fmt"

// NameKind classifies a symbol table entry.
type NameKind int

const (
	KindString NameKind = iota
	KindBoolean
	KindInteger
	KindRoutine
	KindExternal
	KindGrouping
)

// Prefix characters per kind; generated identifiers are `<prefix>_<ident>`
// so that same-named symbols of different kinds never collide.
const kindPrefixes = "SBIrxg"

var kindNames = [...]string{"string", "boolean", "integer", "routine", "external", "grouping"}

func (k NameKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("NameKind(%d)", int(k))
}

// Prefix returns the one-character identifier prefix of the kind.
func (k NameKind) Prefix() byte { return kindPrefixes[k] }

// ParseNameKind maps a kind name back to its NameKind.
func ParseNameKind(s string) (NameKind, error) {
	for i, n := range kindNames {
		if n == s {
			return NameKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown name kind %q", s)
}

// Name is a symbol table entry.
type Name struct {
	Kind  NameKind
	Ident string

	// Grouping is set for KindGrouping names.
	Grouping *Grouping

	// Definition is the body of a KindRoutine name. It may be filled in after
	// the Name is created so that routines can refer to each other.
	Definition Command
}

// IsField reports whether the name is stored as a member of the generated
// class.
func (n *Name) IsField() bool {
	switch n.Kind {
	case KindString, KindInteger, KindBoolean:
		return true
	}
	return false
}

func (n *Name) String() string { return n.Ident }

// AmongEntry is one candidate string of an among table.
type AmongEntry struct {
	Literal []rune

	// Index is the position of the longest earlier entry that is a prefix
	// (suffix, for backward tables) of this one, or -1.
	Index int

	// Result is the 1-based case selected when this entry matches.
	Result int

	// Function is an optional guard routine.
	Function *Name
}

// Among is a multi-way string dispatch table.
type Among struct {
	Number  int
	Entries []AmongEntry

	// CommandCount is the number of command blocks attached to the among.
	CommandCount int

	// Starter runs after the match and before the case dispatch.
	Starter Command

	// Substring is set when a separate substring command performs the match.
	Substring bool
}

// HasFunctions reports whether any entry carries a guard routine.
func (a *Among) HasFunctions() bool {
	for _, e := range a.Entries {
		if e.Function != nil {
			return true
		}
	}
	return false
}

// Grouping is a character set.
type Grouping struct {
	Name     *Name
	Members  []rune
	Smallest rune
	Largest  rune

	// NoGaps is derived by the grouping table emitter: every character
	// between Smallest and Largest is a member.
	NoGaps bool
}

// NewGrouping builds a grouping and derives its bounds.
func NewGrouping(name *Name, members []rune) *Grouping {
	g := &Grouping{Name: name, Members: members}
	for i, ch := range members {
		if i == 0 || ch < g.Smallest {
			g.Smallest = ch
		}
		if i == 0 || ch > g.Largest {
			g.Largest = ch
		}
	}
	if name != nil {
		name.Grouping = g
	}
	return g
}

// ---------------------------------------------------------------------------
// Arithmetic expressions
// ---------------------------------------------------------------------------

// Number is an integer literal.
type Number struct{ Value int }

// VarRef reads an integer variable.
type VarRef struct{ Name *Name }

// MaxInt is `maxint`.
type MaxInt struct{}

// MinInt is `minint`.
type MinInt struct{}

// Neg is unary minus.
type Neg struct{ X Expr }

// BinaryOp is an arithmetic operator.
type BinaryOp int

const (
	OpPlus BinaryOp = iota
	OpMinus
	OpMultiply
	OpDivide
)

var binaryOps = [...]string{"+", "-", "*", "/"}

func (op BinaryOp) String() string { return binaryOps[op] }

// Binary is `X op Y`.
type Binary struct {
	Op   BinaryOp
	X, Y Expr
}

// SizeOf is `sizeof s`.
type SizeOf struct{ Name *Name }

// Cursor is `cursor`.
type Cursor struct{}

// Limit is `limit`; in backward mode it reads limit_backward.
type Limit struct{ Mode Mode }

// Size is `size`.
type Size struct{}

func (*Number) exprNode() {}
func (*VarRef) exprNode() {}
func (*MaxInt) exprNode() {}
func (*MinInt) exprNode() {}
func (*Neg) exprNode()    {}
func (*Binary) exprNode() {}
func (*SizeOf) exprNode() {}
func (*Cursor) exprNode() {}
func (*Limit) exprNode()  {}
func (*Size) exprNode()   {}
