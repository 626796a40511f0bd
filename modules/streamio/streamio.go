// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package streamio provides pooled readers and small stream helpers shared by
// the object codec and the loose object store.
package streamio

import (
	"bufio"
	"bytes"
	"io"
	"sync"
)

var (
	byteSlice = sync.Pool{
		New: func() any {
			b := make([]byte, 32*1024)
			return &b
		},
	}
	bufioReader = sync.Pool{
		New: func() any {
			return bufio.NewReader(nil)
		},
	}
)

// GetBufioReader returns a *bufio.Reader managed by a sync.Pool, reset to
// read from reader. Put it back with PutBufioReader after use.
func GetBufioReader(reader io.Reader) *bufio.Reader {
	r := bufioReader.Get().(*bufio.Reader)
	r.Reset(reader)
	return r
}

// PutBufioReader puts reader back into its sync.Pool.
func PutBufioReader(reader *bufio.Reader) {
	bufioReader.Put(reader)
}

// Copy copies src to dst through a pooled buffer.
func Copy(dst io.Writer, src io.Reader) (written int64, err error) {
	buf := byteSlice.Get().(*[]byte)
	defer byteSlice.Put(buf)
	return io.CopyBuffer(dst, src, *buf)
}

// ReadMax reads at most n bytes from r.
func ReadMax(r io.Reader, n int64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(n))
	if _, err := buf.ReadFrom(io.LimitReader(r, n)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
