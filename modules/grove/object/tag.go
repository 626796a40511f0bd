// Copyright 2018 Sourced Technologies, S.L.
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"fmt"
	"io"
	"strings"

	"github.com/grove-scm/grove/modules/plumbing"
	"github.com/grove-scm/grove/modules/streamio"
)

var (
	TAG_MAGIC = [4]byte{'G', 'G', 0x00, 0x01}
)

// Tag is an annotated tag object: a named pointer at another object, with a
// tagger and free-form content (message plus optional signature).
type Tag struct {
	Hash       plumbing.Hash `json:"hash"`
	Object     plumbing.Hash `json:"object"`
	ObjectType ObjectType    `json:"type"`
	Name       string        `json:"name"`
	Tagger     Signature     `json:"tagger"`
	Content    string        `json:"content"`
}

func (t *Tag) Encode(w io.Writer) error {
	_, err := w.Write(TAG_MAGIC[:])
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(w,
		"object %s\ntype %s\ntag %s\ntagger %s\n\n%s",
		t.Object, t.ObjectType, t.Name, t.Tagger.String(), t.Content); err != nil {
		return err
	}
	return nil
}

func (t *Tag) Decode(reader Reader) error {
	if reader.Type() != TagObject {
		return ErrUnsupportedObject
	}
	t.Hash = reader.Hash()
	r := streamio.GetBufioReader(reader)
	defer streamio.PutBufioReader(r)

	var content strings.Builder
	var finishedHeaders bool
	for {
		line, readErr := r.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return readErr
		}
		text := strings.TrimSuffix(line, "\n")
		if len(text) == 0 && !finishedHeaders {
			finishedHeaders = true
			continue
		}
		if fields := strings.Split(text, " "); !finishedHeaders {
			switch fields[0] {
			case "object":
				if len(fields) != 2 {
					return fmt.Errorf("error parsing object: %s", text)
				}
				t.Object = plumbing.NewHash(fields[1])
			case "type":
				if len(fields) != 2 {
					return fmt.Errorf("error parsing type: %s", text)
				}
				t.ObjectType = ObjectTypeFromString(fields[1])
			case "tag":
				t.Name = text[4:]
			case "tagger":
				t.Tagger.Decode([]byte(text[7:]))
			}
		} else {
			_, _ = content.WriteString(line)
		}
		if readErr == io.EOF {
			break
		}
	}
	t.Content = content.String()
	return nil
}

// Message returns the tag message with the trailing signature, if any,
// stripped off.
func (t *Tag) Message() string {
	if i := strings.Index(t.Content, "-----BEGIN"); i != -1 {
		return t.Content[:i]
	}
	return t.Content
}

func (t *Tag) Subject() string {
	message := t.Message()
	if i := strings.IndexAny(message, "\r\n"); i != -1 {
		return message[0:i]
	}
	return message
}

func (t *Tag) String() string {
	return fmt.Sprintf(
		"%s %s\nTagger: %s\nDate:   %s\n\n%s\n",
		TagObject, t.Name, t.Tagger.String(),
		t.Tagger.When.Format(DateFormat), t.Message(),
	)
}
