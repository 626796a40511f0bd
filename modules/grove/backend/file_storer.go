// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/grove-scm/grove/modules/grove/backend/storage"
	"github.com/grove-scm/grove/modules/grove/object"
	"github.com/grove-scm/grove/modules/plumbing"
	"github.com/grove-scm/grove/modules/streamio"
)

const (
	sniffPacketSize = 4096
)

// fileStorer implements the storer interface by writing loose objects under
// the database root on disc, sharded as root/xx/yy/<full hex name>.
type fileStorer struct {
	// root is the top level objects directory's path on disc.
	root string

	// temp directory for objects in flight
	incoming string
}

var (
	_ storage.WritableStorage = &fileStorer{}
)

// newFileStorer returns a new fileStorer instance with the given root.
func newFileStorer(root, incoming string) *fileStorer {
	return &fileStorer{
		root:     root,
		incoming: incoming,
	}
}

func Join(root string, oid plumbing.Hash) string {
	encoded := oid.String()
	return filepath.Join(root, encoded[:2], encoded[2:4], encoded)
}

// path returns an absolute path on disk to the object given by the OID.
func (so *fileStorer) path(oid plumbing.Hash) string {
	return Join(so.root, oid)
}

// Open implements the storer.Open function, and returns a io.ReadCloser
// for the given OID. If the file does not exist, or if there was any other
// error in opening the file, an error will be returned.
//
// It is the caller's responsibility to close the given file "f" after its use
// is complete.
func (so *fileStorer) Open(oid plumbing.Hash) (f io.ReadCloser, err error) {
	f, err = so.open(so.path(oid), os.O_RDONLY)
	if os.IsNotExist(err) {
		return nil, plumbing.NoSuchObject(oid)
	}
	return f, err
}

func (so *fileStorer) Exists(oid plumbing.Hash) error {
	p := so.path(oid)
	if _, err := os.Stat(p); err != nil && os.IsNotExist(err) {
		return plumbing.NoSuchObject(oid)
	}
	return nil
}

// Root gives the absolute (fully-qualified) path to the file storer on disk.
func (so *fileStorer) Root() string {
	return so.root
}

// Close closes the file storer.
func (so *fileStorer) Close() error {
	return nil
}

// open opens a given file.
func (so *fileStorer) open(path string, flag int) (*os.File, error) {
	return os.OpenFile(path, flag, 0)
}

func isBinaryPayload(payload []byte) bool {
	return bytes.IndexByte(payload, 0) != -1
}

func (so *fileStorer) method(compressed bool) object.CompressMethod {
	if compressed {
		return object.STORE
	}
	return object.ZSTD
}

func compress(r io.Reader, w io.Writer, method object.CompressMethod) (written int64, err error) {
	switch method {
	case object.STORE:
		return streamio.Copy(w, r)
	case object.ZSTD:
		zw := streamio.GetZstdWriter(w)
		defer streamio.PutZstdWriter(zw)
		return zw.ReadFrom(r)
	default:
		return 0, fmt.Errorf("unsupported method: %d", method)
	}
}

func mkdir(paths ...string) error {
	for _, path := range paths {
		// os.MkdirAll check dir exists
		if err := os.MkdirAll(path, 0755); err != nil {
			return err
		}
	}
	return nil
}

// finalizeObject moves a finished temp file into its content-addressed
// location. Objects are immutable, a file already at newpath wins.
func finalizeObject(oldpath string, newpath string) error {
	if _, err := os.Stat(newpath); err == nil {
		return os.Remove(oldpath)
	}
	if err := os.Rename(oldpath, newpath); err != nil {
		return err
	}
	_ = os.Chmod(newpath, 0444)
	return nil
}

// HashTo encode input reader to blob
// BLOB format
//
//	4 byte magic
//	2 byte version
//	2 byte method
//	8 byte uncompressed length
//	N bytes raw or compressed data
//
// The object name is the hash of the raw content, not of the container.
func (so *fileStorer) HashTo(ctx context.Context, r io.Reader, size int64) (oid plumbing.Hash, err error) {
	var payload []byte
	if payload, err = streamio.ReadMax(r, sniffPacketSize); err != nil && err != io.EOF {
		return oid, fmt.Errorf("ReadFull error: %v", err)
	}
	compressed := isBinaryPayload(payload)
	var contents io.Reader = bytes.NewReader(payload)
	if err != io.EOF {
		contents = io.MultiReader(contents, r)
	}
	hasher := plumbing.NewHasher()
	if err = mkdir(so.incoming); err != nil {
		return
	}
	var fd *os.File
	if fd, err = os.CreateTemp(so.incoming, "blob"); err != nil {
		return oid, err
	}
	incomingPath := fd.Name()
	method := so.method(compressed)
	if err = object.WriteBlobHeader(fd, method, size); err != nil {
		_ = fd.Close()
		_ = os.Remove(incomingPath)
		return
	}
	var written int64
	if written, err = compress(io.TeeReader(contents, hasher), fd, method); err != nil {
		_ = fd.Close()
		_ = os.Remove(incomingPath)
		return
	}
	if size >= 0 && method == object.STORE && written != size {
		_ = fd.Close()
		_ = os.Remove(incomingPath)
		return oid, fmt.Errorf("blob size not match expected, actual size %d, expected size %d", written, size)
	}
	_ = fd.Sync() // flush
	_ = fd.Close()
	oid = hasher.Sum()
	objectPath := so.path(oid)
	if err = os.MkdirAll(filepath.Dir(objectPath), 0755); err != nil {
		_ = os.Remove(incomingPath)
		return
	}
	if err = finalizeObject(incomingPath, objectPath); err != nil {
		_ = os.Remove(incomingPath)
		return
	}
	return
}

func (so *fileStorer) WriteEncoded(e object.Encoder) (oid plumbing.Hash, err error) {
	var fd *os.File
	if err = mkdir(so.incoming); err != nil {
		return
	}
	if fd, err = os.CreateTemp(so.incoming, "metadata"); err != nil {
		return oid, err
	}
	incomingPath := fd.Name()
	hasher := plumbing.NewHasher()
	if err = e.Encode(io.MultiWriter(hasher, fd)); err != nil {
		_ = fd.Close()
		_ = os.Remove(incomingPath)
		return
	}
	_ = fd.Sync() // flush
	_ = fd.Close()
	oid = hasher.Sum()
	metaObjectPath := so.path(oid)
	if err = os.MkdirAll(filepath.Dir(metaObjectPath), 0755); err != nil {
		_ = os.Remove(incomingPath)
		return
	}
	if err = finalizeObject(incomingPath, metaObjectPath); err != nil {
		_ = os.Remove(incomingPath)
		return
	}
	return
}

// SearchPrefix collects every loose object whose name starts with the given
// hex prefix. Unlike a first-match search, all candidates come back so that
// callers can detect ambiguous abbreviations.
func (so *fileStorer) SearchPrefix(prefix string) ([]plumbing.Hash, error) {
	if !plumbing.ValidateHashPrefix(prefix) {
		return nil, nil
	}
	searchRoot := filepath.Join(so.root, prefix[0:2], prefix[2:4])
	var oids []plumbing.Hash
	err := filepath.WalkDir(searchRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		if !plumbing.ValidateHashHex(name) {
			return nil
		}
		oids = append(oids, plumbing.NewHash(name))
		return nil
	})
	if err != nil {
		return nil, err
	}
	plumbing.HashesSort(oids)
	return oids, nil
}

func (so *fileStorer) LooseObjects() ([]plumbing.Hash, error) {
	oids := make([]plumbing.Hash, 0, 100)
	err := filepath.WalkDir(so.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !plumbing.ValidateHashHex(name) {
			return nil
		}
		oids = append(oids, plumbing.NewHash(name))
		return nil
	})
	return oids, err
}
