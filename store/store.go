// Package store implements the block device abstraction (spec.md C1,
// C2): block-addressed raw read/write over a fixed-size backing
// image, plus the single-block size limit every record must respect.
//
// The on-disk layout, following spec.md §6.1, reserves block 0 for
// the root directory and block 1 for the allocation map; everything
// from block 2 onward is handed out by the allocator in package fat.
package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/go-blockfs/blockfs/backend"
	"github.com/go-blockfs/blockfs/backend/file"
)

const (
	// BlockSize is the fixed size, in bytes, of every block on the image.
	BlockSize = 4096
	// NumBlocks is the fixed number of blocks the image holds.
	NumBlocks = 2048
	// DiskSize is the total size in bytes of a backing image.
	DiskSize = BlockSize * NumBlocks

	// RootBlock is the reserved block holding the root directory.
	RootBlock uint16 = 0
	// FatBlock is the reserved block holding the allocation map.
	FatBlock uint16 = 1
)

var (
	// ErrDataExceedsBlockSize is returned when a record does not fit in one block.
	ErrDataExceedsBlockSize = errors.New("data exceeds block size")
	// ErrPositionOverflow is returned when a block index overflows the byte offset computation.
	ErrPositionOverflow = errors.New("block position overflow")
	// ErrDeserialization is returned when a block's bytes cannot be decoded into the requested record.
	ErrDeserialization = errors.New("deserialization error")
)

// Store owns the on-disk image file and provides block-indexed
// raw read/write. It is the sole owner of the backing file handle
// for the lifetime of a FileSystem instance (spec.md §3 "Ownership").
type Store struct {
	path      string
	backend   backend.Storage
	blockSize int
	numBlocks int
	log       *logrus.Entry
}

// Open implements the C1 open() contract: if the image does not
// exist it is created, extended to size, and zero-filled; otherwise
// it is opened for read+write.
func Open(path string, blockSize, numBlocks int) (*Store, error) {
	if blockSize <= 0 {
		blockSize = BlockSize
	}
	if numBlocks <= 0 {
		numBlocks = NumBlocks
	}
	size := int64(blockSize) * int64(numBlocks)

	b, err := file.OpenOrCreate(path, size)
	if err != nil {
		return nil, fmt.Errorf("open backing image %s: %w", path, err)
	}

	return &Store{
		path:      path,
		backend:   b,
		blockSize: blockSize,
		numBlocks: numBlocks,
		log:       logrus.WithFields(logrus.Fields{"component": "store", "image": path}),
	}, nil
}

// BlockSize returns the configured block size of this store.
func (s *Store) BlockSize() int { return s.blockSize }

// NumBlocks returns the configured number of blocks of this store.
func (s *Store) NumBlocks() int { return s.numBlocks }

func (s *Store) offset(index uint16) (int64, error) {
	offset := int64(index) * int64(s.blockSize)
	if offset < 0 || offset/int64(s.blockSize) != int64(index) {
		return 0, ErrPositionOverflow
	}
	return offset, nil
}

// ReadRaw reads exactly one block of raw bytes at blockIndex.
func (s *Store) ReadRaw(index uint16) ([]byte, error) {
	offset, err := s.offset(index)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, s.blockSize)
	if _, err := s.backend.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("read block %d: %w", index, err)
	}
	return buf, nil
}

// WriteRaw writes bytes at blockIndex, zero-padding the remainder of
// the block. len(bytes) must be <= BlockSize.
func (s *Store) WriteRaw(index uint16, data []byte) error {
	if len(data) > s.blockSize {
		return ErrDataExceedsBlockSize
	}
	offset, err := s.offset(index)
	if err != nil {
		return err
	}
	w, err := s.backend.Writable()
	if err != nil {
		return fmt.Errorf("write block %d: %w", index, err)
	}
	buf := make([]byte, s.blockSize)
	copy(buf, data)
	if _, err := w.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("write block %d: %w", index, err)
	}
	return nil
}

// ReadBlock reads block index and decodes it with unmarshal.
func ReadBlock[T any](s *Store, index uint16, unmarshal func([]byte) (T, error)) (T, error) {
	var zero T
	raw, err := s.ReadRaw(index)
	if err != nil {
		return zero, err
	}
	v, err := unmarshal(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: block %d: %w", ErrDeserialization, index, err)
	}
	return v, nil
}

// WriteBlock encodes v and writes it to block index.
func WriteBlock[T any](s *Store, index uint16, v T, marshal func(T) ([]byte, error)) error {
	data, err := marshal(v)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", index, err)
	}
	if len(data) > s.blockSize {
		return ErrDataExceedsBlockSize
	}
	return s.WriteRaw(index, data)
}

// Exists reports whether the backing image is present on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Delete removes the backing image file.
func (s *Store) Delete() error {
	if err := s.Close(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil {
		return fmt.Errorf("delete image %s: %w", s.path, err)
	}
	return nil
}

// Close releases the backing file handle.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Path returns the backing image path this store was opened with.
func (s *Store) Path() string { return s.path }
