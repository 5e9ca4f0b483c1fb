// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package format buffers generated Python text.
//
// Emitters write declarative templates instead of concatenating strings.
// A template is plain text interleaved with `~` escapes:
//
//	~M        current margin (four spaces per level)
//	~N        newline
//	~+ ~-     indent / dedent
//	~{        newline, then open an indented block
//	~}        close the block; an empty block gets a `pass`
//	~S0..~S9  string register
//	~B0..~B9  raw text register (temporary variable names)
//	~I0..~I9  integer register
//	~V0..~V9  name register, written as its prefixed identifier
//	~L0..~L9  literal register, written as a Python unicode literal
//	~n        name of the generated unit
//
// Any other character after `~` is written verbatim.
package format

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/probechain/snowgen/lang/ast"
)

// Indent is the text written per margin level.
const Indent = "    "

// Writer accumulates generated text. It is not safe for concurrent use.
type Writer struct {
	buf     bytes.Buffer
	written int   // bytes written outside comments
	margin  int
	marks   []int // value of written at each open ~{
	unit    string

	// Template registers.
	S [10]string
	B [10]string
	I [10]int
	V [10]*ast.Name
	L [10][]rune
}

// New returns an empty writer for the unit with the given name.
func New(unit string) *Writer {
	return &Writer{unit: unit}
}

// Unit returns the generated unit name.
func (w *Writer) Unit() string { return w.unit }

// Margin returns the current indentation depth.
func (w *Writer) Margin() int { return w.margin }

// Indent increases the margin by one level.
func (w *Writer) Indent() { w.margin++ }

// Dedent decreases the margin by one level.
func (w *Writer) Dedent() {
	if w.margin == 0 {
		panic("format: dedent below zero margin")
	}
	w.margin--
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// Bytes returns the text written so far.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// String returns the text written so far.
func (w *Writer) String() string { return w.buf.String() }

// Write appends raw bytes, making Writer an io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	w.written += len(p)
	return w.buf.Write(p)
}

func (w *Writer) emit(s string) {
	w.written += len(s)
	w.buf.WriteString(s)
}

func (w *Writer) emitByte(b byte) {
	w.written++
	w.buf.WriteByte(b)
}

// WriteString appends raw text.
func (w *Writer) WriteString(s string) { w.emit(s) }

// WriteInt appends a decimal integer.
func (w *Writer) WriteInt(i int) { w.emit(strconv.Itoa(i)) }

// WriteMargin appends the indentation of the current margin.
func (w *Writer) WriteMargin() {
	for i := 0; i < w.margin; i++ {
		w.emit(Indent)
	}
}

// WriteNewline ends the current line.
func (w *Writer) WriteNewline() { w.emitByte('\n') }

// WriteComment writes a `#` comment line at the current margin. Comments do
// not count as block content.
func (w *Writer) WriteComment(text string) {
	for i := 0; i < w.margin; i++ {
		w.buf.WriteString(Indent)
	}
	w.buf.WriteString("# ")
	w.buf.WriteString(text)
	w.buf.WriteByte('\n')
}

// WriteLine writes s on its own line at the current margin.
func (w *Writer) WriteLine(s string) {
	w.WriteMargin()
	w.emit(s)
	w.WriteNewline()
}

// WriteVarName appends the prefixed identifier of n.
func (w *Writer) WriteVarName(n *ast.Name) { w.emit(VarName(n)) }

// WriteLiteral appends s as a Python unicode string literal.
func (w *Writer) WriteLiteral(s []rune) { w.emit(Literal(s)) }

// BeginBlock starts a new line and opens an indented block.
func (w *Writer) BeginBlock() {
	w.WriteNewline()
	w.margin++
	w.marks = append(w.marks, w.written)
}

// EndBlock closes the innermost block opened by BeginBlock. Python does not
// allow an empty suite, so a block that received nothing but comments gets
// a `pass`.
func (w *Writer) EndBlock() {
	n := len(w.marks)
	if n == 0 {
		panic("format: unbalanced block end")
	}
	mark := w.marks[n-1]
	w.marks = w.marks[:n-1]
	if w.written == mark {
		w.WriteLine("pass")
	}
	w.Dedent()
}

// Writef expands a template into the buffer.
func (w *Writer) Writef(tmpl string) {
	for i := 0; i < len(tmpl); i++ {
		ch := tmpl[i]
		if ch != '~' || i+1 == len(tmpl) {
			w.emitByte(ch)
			continue
		}
		i++
		switch tmpl[i] {
		case 'M':
			w.WriteMargin()
		case 'N':
			w.WriteNewline()
		case '+':
			w.Indent()
		case '-':
			w.Dedent()
		case '{':
			w.BeginBlock()
		case '}':
			w.EndBlock()
		case 'n':
			w.emit(w.unit)
		case 'S', 'B', 'I', 'V', 'L':
			if i+1 == len(tmpl) {
				panic(fmt.Sprintf("format: register escape ~%c without index in %q", tmpl[i], tmpl))
			}
			reg := int(tmpl[i+1] - '0')
			if reg < 0 || reg > 9 {
				panic(fmt.Sprintf("format: bad register ~%c%c in %q", tmpl[i], tmpl[i+1], tmpl))
			}
			w.writeRegister(tmpl[i], reg)
			i++
		default:
			w.emitByte(tmpl[i])
		}
	}
}

func (w *Writer) writeRegister(kind byte, reg int) {
	switch kind {
	case 'S':
		w.emit(w.S[reg])
	case 'B':
		w.emit(w.B[reg])
	case 'I':
		w.WriteInt(w.I[reg])
	case 'V':
		w.WriteVarName(w.V[reg])
	case 'L':
		w.WriteLiteral(w.L[reg])
	}
}

// VarName returns the generated identifier of n. Externals keep their
// source spelling; every other kind gets its one-letter prefix.
func VarName(n *ast.Name) string {
	if n.Kind == ast.KindExternal {
		return n.Ident
	}
	return string([]byte{n.Kind.Prefix(), '_'}) + n.Ident
}

// RoutineName returns the Python method name of a routine. The public
// `stem` entry point lives in the parent class and calls `_r_stem`.
func RoutineName(n *ast.Name) string {
	if n.Ident == "stem" {
		return "_r_stem"
	}
	return "r_" + n.Ident
}

// Literal renders s as a Python unicode literal. Printable ASCII is written
// as is, everything else as a \u or \U escape.
func Literal(s []rune) string {
	var b bytes.Buffer
	b.WriteString(`u"`)
	for _, ch := range s {
		switch {
		case ch == '"' || ch == '\\':
			b.WriteByte('\\')
			b.WriteRune(ch)
		case 32 <= ch && ch < 127:
			b.WriteRune(ch)
		case ch <= 0xffff:
			fmt.Fprintf(&b, `\u%04X`, ch)
		default:
			fmt.Fprintf(&b, `\U%08X`, ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}
