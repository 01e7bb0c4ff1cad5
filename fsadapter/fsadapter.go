// Package fsadapter wraps a vfs.FileSystem as a standard io/fs.FS, the
// way the teacher's converter package wraps a filesystem.FileSystem,
// so stdlib consumers (fs.WalkDir, http.FileServer, text/template's
// template.ParseFS) can walk and read a block-backed image without
// going through the shell.
package fsadapter

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/go-blockfs/blockfs/direntry"
	"github.com/go-blockfs/blockfs/fsname"
	"github.com/go-blockfs/blockfs/vfs"
)

func mustEntryName(s string) fsname.Name {
	n, _ := fsname.New(s)
	return n
}

type fsCompatible struct {
	fs *vfs.FileSystem
}

// FS adapts fs as a read-only io/fs.FS.
func FS(f *vfs.FileSystem) fs.FS {
	return &fsCompatible{fs: f}
}

func (f *fsCompatible) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	abs := "/" + name
	if name == "." {
		abs = "/"
	}

	entry, err := f.fs.StatEntry(abs)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	if entry.Type == direntry.Directory {
		listing, err := f.fs.ListDirAt(abs)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &dirFile{name: path.Base(name), entries: listing, info: entryInfo(name, entry)}, nil
	}

	content, err := f.fs.ReadFileContent(abs)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &regularFile{Reader: bytes.NewReader([]byte(content)), info: entryInfo(name, entry)}, nil
}

type entryFileInfo struct {
	name  string
	size  int64
	isDir bool
	mode  fs.FileMode
}

func entryInfo(name string, e direntry.Entry) entryFileInfo {
	mode := fs.FileMode(0)
	if e.Access&4 != 0 {
		mode |= 0o400
	}
	if e.Access&2 != 0 {
		mode |= 0o200
	}
	if e.Access&1 != 0 {
		mode |= 0o100
	}
	isDir := e.Type == direntry.Directory
	if isDir {
		mode |= fs.ModeDir
	}
	return entryFileInfo{name: path.Base(name), size: int64(e.Size), isDir: isDir, mode: mode}
}

func (i entryFileInfo) Name() string       { return i.name }
func (i entryFileInfo) Size() int64        { return i.size }
func (i entryFileInfo) Mode() fs.FileMode  { return i.mode }
func (i entryFileInfo) ModTime() time.Time { return time.Time{} }
func (i entryFileInfo) IsDir() bool        { return i.isDir }
func (i entryFileInfo) Sys() interface{}   { return nil }

type regularFile struct {
	*bytes.Reader
	info entryFileInfo
}

func (r *regularFile) Stat() (fs.FileInfo, error) { return r.info, nil }
func (r *regularFile) Close() error                { return nil }

type dirFile struct {
	name    string
	entries []vfs.DirListing
	info    entryFileInfo
	offset  int
}

func (d *dirFile) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *dirFile) Read([]byte) (int, error)   { return 0, io.EOF }
func (d *dirFile) Close() error                { return nil }

func (d *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	remaining := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		out := make([]fs.DirEntry, len(remaining))
		for i, e := range remaining {
			out[i] = dirListingEntry{e}
		}
		return out, nil
	}
	if len(remaining) == 0 {
		return nil, io.EOF
	}
	if n > len(remaining) {
		n = len(remaining)
	}
	d.offset += n
	out := make([]fs.DirEntry, n)
	for i, e := range remaining[:n] {
		out[i] = dirListingEntry{e}
	}
	return out, nil
}

type dirListingEntry struct {
	vfs.DirListing
}

func (e dirListingEntry) Name() string { return e.DirListing.Name }
func (e dirListingEntry) IsDir() bool  { return e.DirListing.Type == direntry.Directory }
func (e dirListingEntry) Type() fs.FileMode {
	if e.IsDir() {
		return fs.ModeDir
	}
	return 0
}
func (e dirListingEntry) Info() (fs.FileInfo, error) {
	return entryInfo(e.DirListing.Name, direntry.Entry{
		Name:   mustEntryName(e.DirListing.Name),
		Type:   e.DirListing.Type,
		Size:   e.DirListing.Size,
		BlkNum: e.DirListing.Block,
		Access: e.DirListing.Access,
	}), nil
}
