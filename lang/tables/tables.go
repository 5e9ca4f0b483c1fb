// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package tables emits the run-time data the generated matcher indexes:
// among tables for multi-way string dispatch and grouping bitmaps.
package tables

import (
	"github.com/probechain/snowgen/lang/ast"
	"github.com/probechain/snowgen/lang/format"
)

// bitsPerUnit is the number of set members packed into one table entry.
const bitsPerUnit = 8

// AmongName returns the class attribute holding among table x.
func AmongName(x *ast.Among) string {
	w := format.New("")
	w.I[0] = x.Number
	w.Writef("a_~I0")
	return w.String()
}

// WriteAmong emits among table x. Entries keep their source order: the
// run-time matcher relies on the Index back-references between them.
func WriteAmong(w *format.Writer, x *ast.Among) {
	w.S[0] = AmongName(x)
	w.Writef("~M~S0 = [~N~+")
	for i, e := range x.Entries {
		w.L[0] = e.Literal
		w.I[1] = e.Index
		w.I[2] = e.Result
		w.Writef("~MAmong(~L0, ~I1, ~I2")
		if e.Function != nil {
			w.S[0] = format.RoutineName(e.Function)
			w.Writef(", \"~S0\"")
		}
		w.S[0] = ""
		if i < len(x.Entries)-1 {
			w.S[0] = ","
		}
		w.Writef(")~S0~N")
	}
	w.Writef("~-~M]~N~N")
}

// WriteAmongs emits every among table in program order.
func WriteAmongs(w *format.Writer, amongs []*ast.Among) {
	for _, x := range amongs {
		WriteAmong(w, x)
	}
}

// Bitmap packs the members of q into a bitmap indexed by ch-q.Smallest and
// reports whether the members cover the whole range without gaps.
func Bitmap(q *ast.Grouping) (bitmap []byte, noGaps bool) {
	if len(q.Members) == 0 {
		return nil, false
	}
	span := int(q.Largest-q.Smallest) + 1
	bitmap = make([]byte, (span+bitsPerUnit-1)/bitsPerUnit)
	for _, ch := range q.Members {
		i := int(ch - q.Smallest)
		bitmap[i/bitsPerUnit] |= 1 << (i % bitsPerUnit)
	}
	noGaps = true
	for i := 0; i < span; i++ {
		if bitmap[i/bitsPerUnit]&(1<<(i%bitsPerUnit)) == 0 {
			noGaps = false
			break
		}
	}
	return bitmap, noGaps
}

// WriteGrouping derives q.NoGaps and, when the grouping has gaps, emits its
// bitmap. Contiguous groupings need no table: callers emit a range test.
func WriteGrouping(w *format.Writer, q *ast.Grouping) {
	bitmap, noGaps := Bitmap(q)
	q.NoGaps = noGaps
	if noGaps {
		return
	}
	w.V[0] = q.Name
	w.Writef("~M~V0 = [")
	for i, b := range bitmap {
		if i > 0 {
			w.WriteString(", ")
		}
		w.WriteInt(int(b))
	}
	w.Writef("]~N~N")
}

// WriteGroupings emits every grouping table in program order.
func WriteGroupings(w *format.Writer, groupings []*ast.Grouping) {
	for _, q := range groupings {
		WriteGrouping(w, q)
	}
}
