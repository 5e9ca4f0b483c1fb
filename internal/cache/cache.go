// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package cache keeps generated units in a leveldb store keyed by the hash
// of everything that determines the output.
package cache

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"golang.org/x/crypto/sha3"
)

// generatorVersion is mixed into every key. Bump it whenever the emitted
// code changes for the same input.
const generatorVersion = "snowgen-1"

var unitPrefix = []byte("u") // unitPrefix + key -> generated source

// Key identifies one generation run.
type Key [32]byte

// NewKey hashes the program document together with the unit parameters.
func NewKey(program []byte, params ...string) Key {
	h := sha3.New256()
	h.Write([]byte(generatorVersion))
	h.Write([]byte{0})
	h.Write(program)
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	var k Key
	h.Sum(k[:0])
	return k
}

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// Cache is a persistent store of generated units.
type Cache struct {
	db  *leveldb.DB
	log log.Logger
}

// New opens (or creates) the cache in dir. A corrupted store is recovered.
func New(dir string) (*Cache, error) {
	logger := log.New("cache", dir)
	db, err := leveldb.OpenFile(dir, &opt.Options{
		OpenFilesCacheCapacity: 16,
		BlockCacheCapacity:     8 * opt.MiB,
	})
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		logger.Warn("Recovering corrupted cache")
		db, err = leveldb.RecoverFile(dir, nil)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("Opened output cache")
	return &Cache{db: db, log: logger}, nil
}

// NewMemory returns a cache that lives in memory only.
func NewMemory() (*Cache, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Cache{db: db, log: log.New("cache", "memory")}, nil
}

func unitKey(k Key) []byte {
	return append(append([]byte{}, unitPrefix...), k[:]...)
}

// Get returns the unit stored under k, if any.
func (c *Cache) Get(k Key) ([]byte, bool, error) {
	src, err := c.db.Get(unitKey(k), nil)
	if err == leveldb.ErrNotFound {
		c.log.Trace("Cache miss", "key", k)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	c.log.Trace("Cache hit", "key", k, "size", len(src))
	return src, true, nil
}

// Put stores src under k.
func (c *Cache) Put(k Key, src []byte) error {
	return c.db.Put(unitKey(k), src, nil)
}

// Len returns the number of cached units.
func (c *Cache) Len() (int, error) {
	it := c.db.NewIterator(util.BytesPrefix(unitPrefix), nil)
	defer it.Release()
	n := 0
	for it.Next() {
		n++
	}
	return n, it.Error()
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.db.Close()
}
