// Package file provides a backend.Storage implementation backed by a
// regular file or block device on the local filesystem.
package file

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/go-blockfs/blockfs/backend"
)

type rawBackend struct {
	storage  fs.File
	readOnly bool
	locked   bool
}

// New creates a backend.Storage from a provided fs.File.
func New(f fs.File, readOnly bool) backend.Storage {
	return rawBackend{
		storage:  f,
		readOnly: readOnly,
	}
}

// OpenFromPath creates a backend.Storage from a path to an existing
// image file or block device. The path must already exist.
func OpenFromPath(pathName string, readOnly bool) (backend.Storage, error) {
	if pathName == "" {
		return nil, errors.New("must pass image or device path")
	}

	if _, err := os.Stat(pathName); os.IsNotExist(err) {
		return nil, fmt.Errorf("image %s does not exist", pathName)
	}

	openMode := os.O_RDONLY
	if !readOnly {
		openMode |= os.O_RDWR
	}

	f, err := os.OpenFile(pathName, openMode, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open image %s with mode %v: %w", pathName, openMode, err)
	}

	locked := false
	if !readOnly {
		if err := lockFile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("could not lock image %s: %w", pathName, err)
		}
		locked = true
	}

	return rawBackend{
		storage:  f,
		readOnly: readOnly,
		locked:   locked,
	}, nil
}

// CreateFromPath creates a new zero-filled image file of the given
// size at pathName. The path must not already exist.
func CreateFromPath(pathName string, size int64) (backend.Storage, error) {
	if pathName == "" {
		return nil, errors.New("must pass image path")
	}
	if size <= 0 {
		return nil, errors.New("must pass valid image size to create")
	}
	f, err := os.OpenFile(pathName, os.O_RDWR|os.O_EXCL|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("could not create image %s: %w", pathName, err)
	}
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not expand image %s to size %d: %w", pathName, size, err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("could not lock image %s: %w", pathName, err)
	}

	return rawBackend{
		storage: f,
		locked:  true,
	}, nil
}

// OpenOrCreate implements the C1 contract: if pathName does not
// exist it is created, extended to size, and zero-filled; otherwise
// it is opened read+write. Either way the image is locked against
// concurrent writers from this process tree via an advisory lock.
func OpenOrCreate(pathName string, size int64) (backend.Storage, error) {
	if _, err := os.Stat(pathName); errors.Is(err, os.ErrNotExist) {
		return CreateFromPath(pathName, size)
	}
	return OpenFromPath(pathName, false)
}

// backend.Storage interface guard
var _ backend.Storage = (*rawBackend)(nil)

// Writable returns a handle usable for read-write operations.
func (f rawBackend) Writable() (backend.WritableFile, error) {
	if rwFile, ok := f.storage.(backend.WritableFile); ok {
		if !f.readOnly {
			return rwFile, nil
		}

		return nil, backend.ErrIncorrectOpenMode
	}
	return nil, backend.ErrNotSuitable
}

func (f rawBackend) Stat() (fs.FileInfo, error) {
	return f.storage.Stat()
}

func (f rawBackend) Read(b []byte) (int, error) {
	return f.storage.Read(b)
}

func (f rawBackend) Close() error {
	if f.locked {
		if osFile, ok := f.storage.(*os.File); ok {
			_ = unlockFile(osFile)
		}
	}
	return f.storage.Close()
}

func (f rawBackend) ReadAt(p []byte, off int64) (n int, err error) {
	if readerAt, ok := f.storage.(io.ReaderAt); ok {
		return readerAt.ReadAt(p, off)
	}
	return -1, backend.ErrNotSuitable
}

func (f rawBackend) Seek(offset int64, whence int) (int64, error) {
	if seeker, ok := f.storage.(io.Seeker); ok {
		return seeker.Seek(offset, whence)
	}
	return -1, backend.ErrNotSuitable
}
