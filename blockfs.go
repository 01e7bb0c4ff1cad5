// Package blockfs implements a small, self-contained virtual file
// system persisted inside a single fixed-size backing file, treated
// as an array of equally sized blocks.
//
// It exposes a hierarchical namespace of files and directories with
// UNIX-style read/write/execute permissions, and supports the usual
// file operations (create, read, append, delete, copy, move, chmod,
// list, change/print working directory, make/remove directory). All
// state — directory structure, file data, and the block allocation
// map — is persisted by writing blocks back to the backing file.
//
// This does **not** mount anything, neither locally nor via a VM:
// it manipulates the backing file's bytes directly, the way package
// vfs's block allocator and directory tree were designed to be driven
// either by the reference shell (package shell) or embedded directly.
//
// Some examples:
//
// 1. Format a fresh 8MB image and create a file in it.
//
//	cfg := blockfs.Config{Path: "/tmp/disk.bin"}
//	fs, err := blockfs.Format(cfg)
//	err = fs.CreateFile("/hello.txt", lineSource)
//
// 2. Reopen an existing image and list its root directory.
//
//	fs, err := blockfs.Open(cfg)
//	entries, err := fs.ListDir()
//
// 3. Walk an image with the standard library.
//
//	disk, err := blockfs.Open(cfg)
//	err = fs.WalkDir(blockfs.FS(disk), ".", func(path string, d fs.DirEntry, err error) error { ... })
package blockfs

import (
	"io/fs"

	"github.com/go-blockfs/blockfs/fsadapter"
	"github.com/go-blockfs/blockfs/vfs"
)

// Config parameterizes a backing image (spec.md §9 "Global state").
type Config = vfs.Config

// FileSystem is an open block-backed image.
type FileSystem = vfs.FileSystem

// Format creates a fresh image at cfg.Path, or re-initializes one
// that already exists there, and returns it open.
func Format(cfg Config) (*FileSystem, error) {
	return vfs.Format(cfg)
}

// Open opens an existing image at cfg.Path.
func Open(cfg Config) (*FileSystem, error) {
	return vfs.Open(cfg)
}

// Exists reports whether a backing image is already present at cfg.Path.
func Exists(cfg Config) bool {
	return vfs.ImageExists(cfg.Path)
}

// FS adapts fs as a read-only io/fs.FS, so it can be walked or served
// with the standard library (fs.WalkDir, http.FileServer).
func FS(f *FileSystem) fs.FS {
	return fsadapter.FS(f)
}
