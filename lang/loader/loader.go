// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package loader reads the tree and symbol tables produced by a Snowball
// front end from their JSON dump.
//
// The document has four lists:
//
//	{
//	  "names":     [{"name": "p1", "kind": "integer"}, ...],
//	  "groupings": [{"name": "v", "members": "aeiouy"}, ...],
//	  "amongs":    [{"entries": [{"s": "ing", "index": -1, "result": 1}], "commands": 1}, ...],
//	  "routines":  [{"name": "stem", "line": 3, "body": {...}}, ...]
//	}
//
// Commands are objects tagged by "kind" (the DSL keyword), carrying "line",
// an optional "mode" ("backward"), and the operands of their kind. Amongs
// are referenced by their position in the "amongs" list.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/ethereum/go-ethereum/log"

	"github.com/probechain/snowgen/lang/ast"
)

// Error is a problem with the loaded document. Line is the Snowball source
// line of the offending command, or zero.
type Error struct {
	Path string
	Line int
	Msg  string
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Line > 0:
		return fmt.Sprintf("%s: line %d: %s", e.Path, e.Line, e.Msg)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, e.Msg)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Load reads the program document at path and builds the tree.
func Load(path string) (*ast.Program, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFile(path, data)
}

// ParseFile is Parse for a document read from path; errors carry the path.
func ParseFile(path string, data []byte) (*ast.Program, error) {
	prog, err := Parse(data)
	if err != nil {
		var lerr *Error
		if errors.As(err, &lerr) {
			lerr.Path = path
		}
		return nil, err
	}
	log.Debug("Loaded program", "path", path, "routines", len(prog.Routines), "names", len(prog.Names))
	return prog, nil
}

// ReadFile returns the contents of a program document. Empty files are
// rejected.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, &Error{Path: path, Msg: "empty file"}
	}
	mem, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	defer mem.Unmap()

	return append([]byte(nil), mem...), nil
}

// Parse builds a program from a JSON document.
func Parse(data []byte) (*ast.Program, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		var serr *json.SyntaxError
		if errors.As(err, &serr) {
			return nil, &Error{Msg: fmt.Sprintf("invalid JSON at offset %d: %v", serr.Offset, err)}
		}
		return nil, &Error{Msg: err.Error()}
	}
	b := &builder{names: make(map[string]*ast.Name)}
	return b.program(&doc)
}

type document struct {
	Names     []nameDecl     `json:"names"`
	Groupings []groupingDecl `json:"groupings"`
	Amongs    []amongDecl    `json:"amongs"`
	Routines  []routineDecl  `json:"routines"`
}

type nameDecl struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type groupingDecl struct {
	Name    string `json:"name"`
	Members string `json:"members"`
}

type amongDecl struct {
	Entries   []entryDecl `json:"entries"`
	Commands  int         `json:"commands"`
	Starter   *command    `json:"starter"`
	Substring bool        `json:"substring"`
}

type entryDecl struct {
	S        string `json:"s"`
	Index    int    `json:"index"`
	Result   int    `json:"result"`
	Function string `json:"function"`
}

type routineDecl struct {
	Name string   `json:"name"`
	Line int      `json:"line"`
	Body *command `json:"body"`
}

type command struct {
	Kind   string     `json:"kind"`
	Line   int        `json:"line"`
	Mode   string     `json:"mode"`
	Name   string     `json:"name"`
	String *string    `json:"string"`
	Op     string     `json:"op"`
	Body   *command   `json:"body"`
	Items  []*command `json:"items"`
	Limit  *command   `json:"limit"`
	Count  *expr      `json:"count"`
	Value  *expr      `json:"value"`
	Among  *int       `json:"among"`
	Cases  []*command `json:"cases"`
}

type expr struct {
	Kind  string `json:"kind"`
	Value int    `json:"value"`
	Name  string `json:"name"`
	Mode  string `json:"mode"`
	X     *expr  `json:"x"`
	Y     *expr  `json:"y"`
}
