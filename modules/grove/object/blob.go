// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/grove-scm/grove/modules/plumbing"
	"github.com/grove-scm/grove/modules/streamio"
)

type CompressMethod uint16

const (
	BLOB_CURRENT_VERSION uint16         = 1
	STORE                CompressMethod = 0
	ZSTD                 CompressMethod = 1
)

var (
	BLOB_MAGIC = [4]byte{'G', 'B', 0x00, 0x01}
)

var (
	ErrMismatchedMagic   = errors.New("mismatched magic")
	ErrMismatchedVersion = errors.New("mismatched version")
)

// Blob is an opened blob object. Contents streams the uncompressed payload;
// Size is the uncompressed byte count. Close must be called once the caller
// is done reading.
type Blob struct {
	Hash     plumbing.Hash
	Contents io.Reader
	Size     int64
	closeFn  func() error
}

func (b *Blob) Close() error {
	if b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}

// NewBlob parses the blob container header of raw and returns a Blob whose
// Contents field decompresses on the fly. Closing the Blob closes raw.
func NewBlob(raw io.ReadCloser) (*Blob, error) {
	var hdr [16]byte
	if _, err := io.ReadFull(raw, hdr[:]); err != nil {
		return nil, err
	}
	if !bytes.Equal(BLOB_MAGIC[:], hdr[:4]) {
		return nil, ErrMismatchedMagic
	}
	if version := binary.BigEndian.Uint16(hdr[4:6]); version != BLOB_CURRENT_VERSION {
		return nil, ErrMismatchedVersion
	}
	method := CompressMethod(binary.BigEndian.Uint16(hdr[6:8]))
	uncompressedSize := int64(binary.BigEndian.Uint64(hdr[8:16]))
	switch method {
	case STORE:
		return &Blob{Contents: raw, Size: uncompressedSize, closeFn: func() error {
			return raw.Close()
		}}, nil
	case ZSTD:
		zr, err := streamio.GetZstdReader(raw)
		if err != nil {
			return nil, fmt.Errorf("unable new zstd decoder: %v", err)
		}
		return &Blob{Contents: zr, Size: uncompressedSize, closeFn: func() error {
			streamio.PutZstdReader(zr)
			return raw.Close()
		}}, nil
	}
	return nil, fmt.Errorf("unsupported method: '%d'", method)
}

// WriteBlobHeader writes the blob container header for a payload of the
// given uncompressed size.
func WriteBlobHeader(w io.Writer, method CompressMethod, size int64) error {
	var hdr [16]byte
	copy(hdr[:4], BLOB_MAGIC[:])
	binary.BigEndian.PutUint16(hdr[4:6], BLOB_CURRENT_VERSION)
	binary.BigEndian.PutUint16(hdr[6:8], uint16(method))
	binary.BigEndian.PutUint64(hdr[8:16], uint64(size))
	_, err := w.Write(hdr[:])
	return err
}
