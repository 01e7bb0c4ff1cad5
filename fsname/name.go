// Package fsname implements the fixed-length directory entry name
// (spec.md C5): a 56-byte zero-padded field, 55 bytes of usable
// content, that serves as the entry key inside a directory block.
package fsname

import (
	"bytes"
	"errors"
)

// Size is the fixed wire size of a Name, in bytes.
const Size = 56

// MaxLen is the largest usable (non-terminator) name length.
const MaxLen = Size - 1

// ErrTooLong is returned when constructing a Name from input longer than MaxLen bytes.
var ErrTooLong = errors.New("name exceeds 55 bytes")

// Name is a fixed-length, zero-padded entry name. The zero value is
// the empty name, used as the empty-slot sentinel in a directory
// block (spec.md §3 "Entity: DirEntry").
type Name struct {
	value string
}

// New constructs a Name, failing if s is longer than MaxLen bytes.
// A name of exactly 56 bytes is rejected because it would leave no
// room for the on-wire zero terminator.
func New(s string) (Name, error) {
	if len(s) >= Size {
		return Name{}, ErrTooLong
	}
	return Name{value: s}, nil
}

// Empty reports whether this is the empty-slot sentinel.
func (n Name) Empty() bool { return n.value == "" }

// String returns the logical (trimmed) value of the name.
func (n Name) String() string { return n.value }

// Equal compares two names by logical value.
func (n Name) Equal(o Name) bool { return n.value == o.value }

// Bytes encodes the name into its exact 56-byte on-wire form:
// the UTF-8 bytes of the value followed by zero padding.
func (n Name) Bytes() [Size]byte {
	var out [Size]byte
	copy(out[:], n.value)
	return out
}

// FromBytes decodes a 56-byte field, stopping at the first zero byte
// or the end of the field, whichever comes first.
func FromBytes(b []byte) Name {
	if len(b) > Size {
		b = b[:Size]
	}
	if idx := bytes.IndexByte(b, 0); idx >= 0 {
		b = b[:idx]
	}
	return Name{value: string(b)}
}
