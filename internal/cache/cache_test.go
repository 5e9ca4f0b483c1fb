// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package cache

import (
	"bytes"
	"testing"
)

func TestKeyCoversParameters(t *testing.T) {
	doc := []byte(`{"routines": []}`)
	base := NewKey(doc, "Stemmer", "BaseStemmer")

	if NewKey(doc, "Stemmer", "BaseStemmer") != base {
		t.Fatal("key is not deterministic")
	}
	for _, other := range []Key{
		NewKey(doc, "Other", "BaseStemmer"),
		NewKey(doc, "Stemmer", "Base"),
		NewKey([]byte(`{"routines": [ ]}`), "Stemmer", "BaseStemmer"),
		// Parameter boundaries are part of the key.
		NewKey(doc, "StemmerBase", "Stemmer"),
	} {
		if other == base {
			t.Errorf("key collision for %x", other)
		}
	}
	if len(base.String()) != 64 {
		t.Errorf("hex key has length %d", len(base.String()))
	}
}

func TestGetPut(t *testing.T) {
	c, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	k := NewKey([]byte("program"), "S")
	if _, ok, err := c.Get(k); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	src := []byte("class S(BaseStemmer):\n    pass\n")
	if err := c.Put(k, src); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(k)
	if err != nil || !ok {
		t.Fatalf("lookup after put: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, src) {
		t.Errorf("got %q, want %q", got, src)
	}
	if n, err := c.Len(); err != nil || n != 1 {
		t.Errorf("len = %d (%v), want 1", n, err)
	}
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	k := NewKey([]byte("program"))

	c, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(k, []byte("unit")); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c, err = New(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	got, ok, err := c.Get(k)
	if err != nil || !ok || string(got) != "unit" {
		t.Errorf("reopened cache: %q ok=%v err=%v", got, ok, err)
	}
}
