// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package backend implements the loose object database: content-addressed
// reads and writes, decoded-metadata caching, and unique resolution of
// abbreviated object names.
package backend

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/grove-scm/grove/modules/grove/backend/storage"
	"github.com/grove-scm/grove/modules/grove/object"
	"github.com/grove-scm/grove/modules/plumbing"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHashALGO        = "BLAKE3"
	DefaultCompressionALGO = "zstd"
)

type Database struct {
	root string
	// ro is the location from which we can read objects.
	ro storage.Storage
	// rw is where new objects land.
	rw      storage.WritableStorage
	metaLRU *ristretto.Cache[string, any]
	// closed is a uint32 managed by sync/atomic's <X>Uint32 methods. It
	// yields a value of 0 if the *Database it is stored upon is open,
	// and a value of 1 if it is closed.
	closed    uint32
	mu        sync.RWMutex
	backend   object.Backend
	enableLRU bool
}

type Option func(*Database)

func WithEnableLRU(enableLRU bool) Option {
	return func(d *Database) {
		d.enableLRU = enableLRU
	}
}

func WithAbstractBackend(backend object.Backend) Option {
	return func(d *Database) {
		d.backend = backend
	}
}

func (d *Database) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.initializeStorage(); err != nil {
		return fmt.Errorf("reload objects storage error: %w", err)
	}
	return nil
}

func NewDatabase(root string, opts ...Option) (*Database, error) {
	d := &Database{
		root: root,
	}
	for _, o := range opts {
		o(d)
	}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	if d.backend == nil {
		d.backend = d
	}
	logrus.Debugf("odb: open loose database '%s' lru=%v", root, d.enableLRU)
	return d, nil
}

func (d *Database) initializeStorage() error {
	if d.ro != nil {
		_ = d.ro.Close()
		d.ro = nil
	}
	if d.rw != nil {
		_ = d.rw.Close()
		d.rw = nil
	}
	root := filepath.Join(d.root, "objects")
	incoming := filepath.Join(d.root, "incoming")
	if err := mkdir(root, incoming); err != nil {
		return err
	}
	fsobj := newFileStorer(root, incoming)
	d.ro = fsobj
	d.rw = fsobj
	if !d.enableLRU {
		return nil
	}
	if d.metaLRU != nil {
		d.metaLRU.Close()
		d.metaLRU = nil
	}
	var err error
	if d.metaLRU, err = ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: 100000,
		MaxCost:     100000,
		BufferItems: 64,
	}); err != nil {
		return err
	}
	return nil
}

// Close closes the *Database
//
// If Close() has already been called, this function will return an error.
func (d *Database) Close() error {
	if !atomic.CompareAndSwapUint32(&d.closed, 0, 1) {
		return fmt.Errorf("grove: *Database already closed")
	}
	logrus.Debugf("odb: close loose database '%s'", d.root)
	if d.metaLRU != nil {
		d.metaLRU.Close()
	}
	return d.ro.Close()
}

func (d *Database) Root() string {
	return d.root
}

// HashTo stores the raw blob content read from r and returns its name.
func (d *Database) HashTo(ctx context.Context, r io.Reader, size int64) (plumbing.Hash, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rw.HashTo(ctx, r, size)
}

// WriteEncoded stores an encoded metadata object (commit, tree or tag).
func (d *Database) WriteEncoded(e object.Encoder) (plumbing.Hash, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rw.WriteEncoded(e)
}
