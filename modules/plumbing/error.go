// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package plumbing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStop is used to stop a ForEach function in an Iter
	ErrStop = errors.New("stop iter")
)

// noSuchObject is an error type that occurs when no object with a given
// object name is available.
type noSuchObject struct {
	name string
}

// Error implements the error.Error() function.
func (e *noSuchObject) Error() string {
	return fmt.Sprintf("grove: no such object: %s", e.name)
}

// NoSuchObject creates a new error representing a missing object with a given
// object ID.
func NoSuchObject(oid Hash) error {
	return &noSuchObject{name: oid.String()}
}

// NoSuchObjectName creates a new error representing a missing object named by
// an abbreviated (or otherwise partial) object name.
func NoSuchObjectName(name string) error {
	return &noSuchObject{name: name}
}

// IsNoSuchObject indicates whether an error is a noSuchObject and is non-nil.
func IsNoSuchObject(e error) bool {
	if e == nil {
		return false
	}
	err, ok := e.(*noSuchObject)
	return ok && err != nil
}

// ErrAmbiguousObjectName is returned when an abbreviated object name matches
// more than one object in the store. Candidates holds every match.
type ErrAmbiguousObjectName struct {
	Prefix     string
	Candidates []Hash
}

func (e *ErrAmbiguousObjectName) Error() string {
	shorts := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		shorts = append(shorts, c.Short())
	}
	return fmt.Sprintf("grove: short object name '%s' is ambiguous: %s", e.Prefix, strings.Join(shorts, ", "))
}

func IsErrAmbiguousObjectName(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*ErrAmbiguousObjectName)
	return ok
}

func NewErrAmbiguousObjectName(prefix string, candidates []Hash) error {
	return &ErrAmbiguousObjectName{Prefix: prefix, Candidates: candidates}
}

type ErrRevNotFound struct {
	Reason string
}

func (e *ErrRevNotFound) Error() string { return e.Reason }

func NewErrRevNotFound(format string, a ...any) error {
	return &ErrRevNotFound{Reason: fmt.Sprintf(format, a...)}
}

func IsErrRevNotFound(e error) bool {
	if e == nil {
		return false
	}
	err, ok := e.(*ErrRevNotFound)
	return ok && err != nil
}
