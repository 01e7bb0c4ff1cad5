// Package testhelper provides a stub backend.Storage implementation
// for exercising store package error paths (injected read/write
// failures) without needing a real file that can be made to fail.
package testhelper

import (
	"fmt"
	"os"

	"github.com/go-blockfs/blockfs/backend"
)

type reader func(b []byte, offset int64) (int, error)
type writer func(b []byte, offset int64) (int, error)

// FileImpl is a backend.Storage whose Read/Write behavior is
// supplied by the caller, used to simulate backing-store failures
// (spec.md §7 "IO" errors) that a real file rarely produces on demand.
type FileImpl struct {
	Reader reader
	Writer writer
}

var _ backend.Storage = (*FileImpl)(nil)

func (f *FileImpl) Stat() (os.FileInfo, error) {
	return nil, nil
}

func (f *FileImpl) Read(b []byte) (int, error) {
	return f.Reader(b, 0)
}

func (f *FileImpl) Close() error {
	return nil
}

// ReadAt reads at a particular offset.
func (f *FileImpl) ReadAt(b []byte, offset int64) (int, error) {
	return f.Reader(b, offset)
}

// WriteAt writes at a particular offset.
func (f *FileImpl) WriteAt(b []byte, offset int64) (int, error) {
	return f.Writer(b, offset)
}

// Seek is unsupported; store never calls it (it addresses blocks via
// ReadAt/WriteAt only).
//
//nolint:unused,revive // to implement the interface
func (f *FileImpl) Seek(offset int64, whence int) (int64, error) {
	return 0, fmt.Errorf("FileImpl does not implement Seek()")
}

// Writable returns f itself: FileImpl always supports WriteAt.
func (f *FileImpl) Writable() (backend.WritableFile, error) {
	return f, nil
}
