// Package direntry implements the directory entry and directory
// block (spec.md C6): a fixed-capacity vector of fixed-size entries,
// with the find/add/remove/update primitives the directory tree (C8)
// builds its traversal and mutation logic on top of.
package direntry

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-blockfs/blockfs/fsname"
	"github.com/go-blockfs/blockfs/perm"
)

// FileType distinguishes a regular file entry from a directory entry.
type FileType uint8

const (
	// File marks a regular file entry.
	File FileType = iota
	// Directory marks a subdirectory entry.
	Directory
)

func (t FileType) String() string {
	if t == Directory {
		return "Directory"
	}
	return "File"
}

// entryWireSize is the fixed on-disk size of one Entry: a 56-byte
// name, a 1-byte type tag, an 8-byte size, a 2-byte block number and
// a 1-byte access level.
const entryWireSize = fsname.Size + 1 + 8 + 2 + 1

// Entry is a single slot in a directory block (spec.md "Entity:
// DirEntry"). An entry whose Name is empty is the empty-slot
// sentinel; every other field is then meaningless.
type Entry struct {
	Name   fsname.Name
	Type   FileType
	Size   uint64
	BlkNum uint16
	Access perm.Bits
}

// Empty reports whether this slot is the empty-slot sentinel.
func (e Entry) Empty() bool { return e.Name.Empty() }

func (e Entry) encode() []byte {
	buf := make([]byte, entryWireSize)
	nameBytes := e.Name.Bytes()
	copy(buf[0:fsname.Size], nameBytes[:])
	buf[fsname.Size] = byte(e.Type)
	binary.LittleEndian.PutUint64(buf[fsname.Size+1:fsname.Size+9], e.Size)
	binary.LittleEndian.PutUint16(buf[fsname.Size+9:fsname.Size+11], e.BlkNum)
	buf[fsname.Size+11] = byte(e.Access)
	return buf
}

func decodeEntry(b []byte) Entry {
	return Entry{
		Name:   fsname.FromBytes(b[0:fsname.Size]),
		Type:   FileType(b[fsname.Size]),
		Size:   binary.LittleEndian.Uint64(b[fsname.Size+1 : fsname.Size+9]),
		BlkNum: binary.LittleEndian.Uint16(b[fsname.Size+9 : fsname.Size+11]),
		Access: perm.Bits(b[fsname.Size+11]),
	}
}

// Errors returned by Block's mutating operations.
var (
	// ErrNoSpace is returned by Add when every slot is occupied.
	ErrNoSpace = errors.New("directory has no free slot")
	// ErrFileNotFound is returned by Remove/Update when no entry matches.
	ErrFileNotFound = errors.New("file not found")
)

// NumEntries returns how many fixed-size entries fit in one block of
// the given size (spec.md "N_ENTRIES = floor(BLOCK_SIZE / max
// serialized size(DirEntry))").
func NumEntries(blockSize int) int {
	return blockSize / entryWireSize
}

// Block is a directory block: a fixed-length vector of entries that
// persists, plus the in-memory-only bookkeeping (spec.md §3 "Entity:
// DirBlock") that a traversal fills in as it descends: the entry
// that names this block in its parent, this block's own number, and
// the absolute path the caller resolved to reach it.
type Block struct {
	Entries []Entry

	ParentEntry Entry
	BlkNum      uint16
	Path        string
}

// New creates an empty directory block sized for blockSize, with
// ParentEntry and BlkNum set as spec.md's create_dir requires.
func New(blockSize int, parentEntry Entry, blkNum uint16) *Block {
	return &Block{
		Entries:     make([]Entry, NumEntries(blockSize)),
		ParentEntry: parentEntry,
		BlkNum:      blkNum,
	}
}

// Find returns the first entry slot whose name equals name.
func (b *Block) Find(name fsname.Name) (Entry, bool) {
	for _, e := range b.Entries {
		if !e.Empty() && e.Name.Equal(name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Add places entry into the first empty slot.
func (b *Block) Add(entry Entry) error {
	for i, e := range b.Entries {
		if e.Empty() {
			b.Entries[i] = entry
			return nil
		}
	}
	return ErrNoSpace
}

// Remove replaces the slot matching name with the empty sentinel.
func (b *Block) Remove(name fsname.Name) error {
	for i, e := range b.Entries {
		if !e.Empty() && e.Name.Equal(name) {
			b.Entries[i] = Entry{}
			return nil
		}
	}
	return ErrFileNotFound
}

// Update overwrites the slot whose name matches entry.Name.
func (b *Block) Update(entry Entry) error {
	for i, e := range b.Entries {
		if !e.Empty() && e.Name.Equal(entry.Name) {
			b.Entries[i] = entry
			return nil
		}
	}
	return ErrFileNotFound
}

// Marshal encodes only the persisted entries vector; Path,
// ParentEntry and BlkNum are transient and reconstructed by the
// traversal that reads this block back (spec.md "Two-representation
// DirBlock").
func Marshal(b *Block) ([]byte, error) {
	out := make([]byte, 0, len(b.Entries)*entryWireSize)
	for _, e := range b.Entries {
		out = append(out, e.encode()...)
	}
	return out, nil
}

// Unmarshal decodes a persisted entries vector for the given block
// size. The transient fields are left zero; the caller (package vfs)
// fills them in from traversal context.
func Unmarshal(blockSize int) func([]byte) (*Block, error) {
	return func(b []byte) (*Block, error) {
		n := NumEntries(blockSize)
		if len(b) < n*entryWireSize {
			return nil, fmt.Errorf("directory block too short: got %d bytes, want %d", len(b), n*entryWireSize)
		}
		entries := make([]Entry, n)
		for i := 0; i < n; i++ {
			start := i * entryWireSize
			entries[i] = decodeEntry(b[start : start+entryWireSize])
		}
		return &Block{Entries: entries}, nil
	}
}
