// Package chain implements chain I/O (spec.md C4): writing an
// arbitrary byte sequence across a chain of blocks linked through the
// allocation map, reading the chain back, and clearing it.
package chain

import (
	"fmt"

	"github.com/go-blockfs/blockfs/fat"
	"github.com/go-blockfs/blockfs/store"
)

// WriteChain serializes data across the chain rooted at head, which
// the caller has already reserved (typically via table.FindFree).
// The FAT is flushed once, after the whole chain has been linked.
func WriteChain(s *store.Store, table *fat.Table, head uint16, data []byte) error {
	blockSize := s.BlockSize()
	current := head

	for {
		var chunk []byte
		remaining := data
		if len(remaining) > blockSize {
			chunk = remaining[:blockSize]
			data = remaining[blockSize:]
		} else {
			chunk = remaining
			data = nil
		}

		if err := s.WriteRaw(current, chunk); err != nil {
			return fmt.Errorf("write chain block %d: %w", current, err)
		}

		if len(data) == 0 {
			if err := table.Set(current, fat.Cell{State: fat.EOF}); err != nil {
				return err
			}
			break
		}

		next, err := table.FindFree()
		if err != nil {
			return err
		}
		if err := table.Set(current, fat.Cell{State: fat.Taken, Next: next}); err != nil {
			return err
		}
		current = next
	}

	return table.Flush(s)
}

// ReadChain follows the chain rooted at head and returns the
// concatenation, in chain order, of every visited block's raw
// payload. A chain that reaches a Free cell before EOF is corruption
// and is reported as fat.ErrInvalidBlockReference.
func ReadChain(s *store.Store, table *fat.Table, head uint16) ([]byte, error) {
	var out []byte
	blk := head

	for {
		cell, err := table.Get(blk)
		if err != nil {
			return nil, err
		}

		payload, err := s.ReadRaw(blk)
		if err != nil {
			return nil, fmt.Errorf("read chain block %d: %w", blk, err)
		}
		out = append(out, payload...)

		switch cell.State {
		case fat.Taken:
			blk = cell.Next
		case fat.EOF:
			return out, nil
		default:
			return nil, fmt.Errorf("%w: block %d", fat.ErrInvalidBlockReference, blk)
		}
	}
}

// ClearChain walks the chain rooted at head, zero-filling each
// visited block on disk and marking its FAT cell Free. The FAT is
// flushed after every cell update so a concurrent allocation within
// the same operation never sees a block that still looks referenced.
func ClearChain(s *store.Store, table *fat.Table, head uint16) error {
	blockSize := s.BlockSize()
	zero := make([]byte, blockSize)
	blk := head

	for {
		cell, err := table.Get(blk)
		if err != nil {
			return err
		}

		if err := s.WriteRaw(blk, zero); err != nil {
			return fmt.Errorf("clear chain block %d: %w", blk, err)
		}

		next := cell.Next
		isEOF := cell.State == fat.EOF

		if err := table.Set(blk, fat.Cell{State: fat.Free}); err != nil {
			return err
		}
		if err := table.Flush(s); err != nil {
			return err
		}

		if isEOF {
			return nil
		}
		if cell.State != fat.Taken {
			return fmt.Errorf("%w: block %d", fat.ErrInvalidBlockReference, blk)
		}
		blk = next
	}
}
