package chain

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/go-blockfs/blockfs/fat"
	"github.com/go-blockfs/blockfs/store"
)

func setup(t *testing.T) (*store.Store, *fat.Table) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.bin")
	s, err := store.Open(path, 64, 32)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	table := fat.New(s.BlockSize())
	if err := table.Set(store.RootBlock, fat.Cell{State: fat.EOF}); err != nil {
		t.Fatal(err)
	}
	if err := table.Set(store.FatBlock, fat.Cell{State: fat.EOF}); err != nil {
		t.Fatal(err)
	}
	return s, table
}

func TestWriteReadChainSingleBlock(t *testing.T) {
	s, table := setup(t)
	head, err := table.FindFree()
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("short payload")
	if err := WriteChain(s, table, head, data); err != nil {
		t.Fatalf("WriteChain: %v", err)
	}

	back, err := ReadChain(s, table, head)
	if err != nil {
		t.Fatalf("ReadChain: %v", err)
	}
	if !bytes.Equal(back[:len(data)], data) {
		t.Fatalf("round trip = %q, want %q", back[:len(data)], data)
	}

	cell, err := table.Get(head)
	if err != nil {
		t.Fatal(err)
	}
	if cell.State != fat.EOF {
		t.Fatalf("head cell state = %v, want EOF", cell.State)
	}
}

func TestWriteReadChainMultiBlock(t *testing.T) {
	s, table := setup(t)
	head, err := table.FindFree()
	if err != nil {
		t.Fatal(err)
	}

	data := bytes.Repeat([]byte("x"), s.BlockSize()*3+17)
	if err := WriteChain(s, table, head, data); err != nil {
		t.Fatalf("WriteChain: %v", err)
	}

	back, err := ReadChain(s, table, head)
	if err != nil {
		t.Fatalf("ReadChain: %v", err)
	}
	// ReadChain returns whole raw blocks; the written payload must be a prefix.
	if !bytes.Equal(back[:len(data)], data) {
		t.Fatal("multi-block round trip mismatch")
	}
}

func TestClearChainFreesEveryBlock(t *testing.T) {
	s, table := setup(t)
	head, err := table.FindFree()
	if err != nil {
		t.Fatal(err)
	}
	data := bytes.Repeat([]byte("y"), s.BlockSize()*2+5)
	if err := WriteChain(s, table, head, data); err != nil {
		t.Fatal(err)
	}

	visited := []uint16{head}
	blk := head
	for {
		cell, err := table.Get(blk)
		if err != nil {
			t.Fatal(err)
		}
		if cell.State == fat.EOF {
			break
		}
		blk = cell.Next
		visited = append(visited, blk)
	}

	if err := ClearChain(s, table, head); err != nil {
		t.Fatalf("ClearChain: %v", err)
	}

	for _, b := range visited {
		cell, err := table.Get(b)
		if err != nil {
			t.Fatal(err)
		}
		if cell.State != fat.Free {
			t.Fatalf("block %d state = %v after ClearChain, want Free", b, cell.State)
		}
		raw, err := s.ReadRaw(b)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(raw, make([]byte, s.BlockSize())) {
			t.Fatalf("block %d not zero-filled after ClearChain", b)
		}
	}
}

func TestReadChainCorruptionReportsInvalidBlockReference(t *testing.T) {
	s, table := setup(t)
	head, err := table.FindFree()
	if err != nil {
		t.Fatal(err)
	}
	if err := table.Set(head, fat.Cell{State: fat.Free}); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadChain(s, table, head); !errors.Is(err, fat.ErrInvalidBlockReference) {
		t.Fatalf("ReadChain(corrupt) = %v, want ErrInvalidBlockReference", err)
	}
}
