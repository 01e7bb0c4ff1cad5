// Package fat implements the allocation map (spec.md C3): a FAT-style
// per-block state array that links the blocks belonging to one
// logical object into an ordered chain, persisted in store.FatBlock.
//
// The cell encoding and the (len == one block) sizing rule mirror
// the cluster table in a FAT filesystem (see table.go in the teacher
// corpus): a small fixed header followed by one fixed-width record
// per cell, each record either Free, Taken(next), or EOF.
package fat

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/go-blockfs/blockfs/store"
)

// magic identifies a FAT block; mirrors the fatID field of a FAT
// cluster table, used here only as a sanity check on read.
const magic uint32 = 0x54414642 // "BFAT"

const (
	headerSize   = 8 // magic (4 bytes) + cell count (4 bytes)
	cellWireSize = 4 // tag (1 byte) + next (2 bytes) + padding (1 byte)
)

// State is the tag of a FAT cell.
type State uint8

const (
	// Free marks a block not currently part of any chain.
	Free State = iota
	// Taken marks a block that is part of a chain and has a successor.
	Taken
	// EOF marks the last block of a chain.
	EOF
)

// Cell is one entry of the allocation map.
type Cell struct {
	State State
	Next  uint16 // meaningful only when State == Taken
}

var (
	// ErrNoFreeBlocks is returned when the allocator has no free cell to hand out.
	ErrNoFreeBlocks = errors.New("no free blocks")
	// ErrInvalidBlockReference is returned when a chain walk reaches a Free cell before EOF.
	ErrInvalidBlockReference = errors.New("invalid block reference")
	// ErrBadMagic is returned when a FAT block fails to decode because its header is corrupt.
	ErrBadMagic = errors.New("corrupt allocation map header")
)

// Table is the in-memory allocation map.
type Table struct {
	cells []Cell
}

// NumCells returns how many blocks this Table can address: as many
// 4-byte cell records as fit in one block alongside the 8-byte
// header, satisfying spec.md's "whole FAT serializes into one block"
// invariant for any configured block size.
func NumCells(blockSize int) int {
	return (blockSize - headerSize) / cellWireSize
}

// New creates a Table with every cell Free, sized for blockSize.
// The caller (package vfs, at format time) is responsible for then
// marking store.RootBlock and store.FatBlock as EOF.
func New(blockSize int) *Table {
	return &Table{cells: make([]Cell, NumCells(blockSize))}
}

// Len returns the number of addressable cells.
func (t *Table) Len() int { return len(t.cells) }

// Get returns the cell at index.
func (t *Table) Get(index uint16) (Cell, error) {
	if int(index) >= len(t.cells) {
		return Cell{}, fmt.Errorf("block %d out of range (%d cells)", index, len(t.cells))
	}
	return t.cells[index], nil
}

// Set overwrites the cell at index.
func (t *Table) Set(index uint16, c Cell) error {
	if int(index) >= len(t.cells) {
		return fmt.Errorf("block %d out of range (%d cells)", index, len(t.cells))
	}
	t.cells[index] = c
	return nil
}

// FindFree returns the lowest index i > 0 whose cell is Free,
// reserving it by marking it Taken(0) before returning it. Index 0
// (the root directory) is never returned.
func (t *Table) FindFree() (uint16, error) {
	for i := 1; i < len(t.cells); i++ {
		if t.cells[i].State == Free {
			t.cells[i] = Cell{State: Taken, Next: 0}
			return uint16(i), nil
		}
	}
	return 0, ErrNoFreeBlocks
}

// Flush persists the table to store.FatBlock.
func (t *Table) Flush(s *store.Store) error {
	return store.WriteBlock(s, store.FatBlock, t, marshal)
}

// Load reads the table back from store.FatBlock.
func Load(s *store.Store) (*Table, error) {
	return store.ReadBlock(s, store.FatBlock, unmarshal)
}

func marshal(t *Table) ([]byte, error) {
	buf := make([]byte, headerSize+len(t.cells)*cellWireSize)
	binary.LittleEndian.PutUint32(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(t.cells)))
	for i, c := range t.cells {
		start := headerSize + i*cellWireSize
		buf[start] = byte(c.State)
		binary.LittleEndian.PutUint16(buf[start+1:start+3], c.Next)
	}
	return buf, nil
}

func unmarshal(b []byte) (*Table, error) {
	if len(b) < headerSize {
		return nil, ErrBadMagic
	}
	if binary.LittleEndian.Uint32(b[0:4]) != magic {
		return nil, ErrBadMagic
	}
	count := int(binary.LittleEndian.Uint32(b[4:8]))
	if count < 0 || headerSize+count*cellWireSize > len(b) {
		return nil, fmt.Errorf("%w: cell count %d overruns block", ErrBadMagic, count)
	}
	cells := make([]Cell, count)
	for i := range cells {
		start := headerSize + i*cellWireSize
		cells[i] = Cell{
			State: State(b[start]),
			Next:  binary.LittleEndian.Uint16(b[start+1 : start+3]),
		}
	}
	return &Table{cells: cells}, nil
}
