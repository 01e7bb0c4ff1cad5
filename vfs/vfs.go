// Package vfs implements the directory tree (spec.md C8) and file
// operations (C9) built on top of the allocator and chain I/O: path
// resolution, permission checks, and the recursive operations that
// keep ancestor size accounting and the allocation map consistent.
package vfs

import (
	"github.com/sirupsen/logrus"

	"github.com/go-blockfs/blockfs/direntry"
	"github.com/go-blockfs/blockfs/fat"
	"github.com/go-blockfs/blockfs/fsname"
	"github.com/go-blockfs/blockfs/perm"
	"github.com/go-blockfs/blockfs/store"
	"github.com/go-blockfs/blockfs/util/timestamp"
)

// Config parameterizes an image: the path it lives at and the
// geometry it is formatted with (spec.md §9 "Global state").
type Config struct {
	Path      string
	BlockSize int
	NumBlocks int
}

// withDefaults fills zero fields with spec.md's standard geometry.
func (c Config) withDefaults() Config {
	if c.BlockSize <= 0 {
		c.BlockSize = store.BlockSize
	}
	if c.NumBlocks <= 0 {
		c.NumBlocks = store.NumBlocks
	}
	return c
}

// FileSystem is a single open image: the backing store, the
// in-memory allocation map, and the current directory (the only
// caching the core performs, per spec.md §1 Non-goals).
type FileSystem struct {
	cfg    Config
	store  *store.Store
	table  *fat.Table
	cwd    *direntry.Block
	log    *logrus.Entry
}

// rootEntry synthesizes the root DirEntry: name "/", DIRECTORY,
// blk_num ROOT_BLOCK (spec.md §4.7 read_root).
func rootEntry() direntry.Entry {
	name, _ := fsname.New("/")
	return direntry.Entry{
		Name:   name,
		Type:   direntry.Directory,
		BlkNum: store.RootBlock,
		Access: perm.All,
	}
}

// Format initializes a fresh image at cfg.Path: a zeroed backing
// file, an allocation map with every cell Free except ROOT_BLOCK and
// FAT_BLOCK (marked EOF), and an empty root directory block. Calling
// Format twice produces byte-identical images (spec.md §8 property 7):
// the backing store is always fully zero-filled on create, and every
// block this routine writes is written unconditionally.
func Format(cfg Config) (*FileSystem, error) {
	cfg = cfg.withDefaults()

	if store.Exists(cfg.Path) {
		if err := removeImage(cfg.Path); err != nil {
			return nil, err
		}
	}

	fs, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	table := fat.New(cfg.BlockSize)
	if err := table.Set(store.RootBlock, fat.Cell{State: fat.EOF}); err != nil {
		return nil, err
	}
	if err := table.Set(store.FatBlock, fat.Cell{State: fat.EOF}); err != nil {
		return nil, err
	}
	if err := table.Flush(fs.store); err != nil {
		return nil, err
	}
	fs.table = table

	root := direntry.New(cfg.BlockSize, rootEntry(), store.RootBlock)
	if err := writeDirBlock(fs.store, root); err != nil {
		return nil, err
	}

	root.Path = "/"
	fs.cwd = root

	fs.log.WithField("formatted_at", timestamp.GetTime()).Info("formatted image")
	return fs, nil
}

// Open opens an existing image at cfg.Path and restores the
// in-memory allocation map and root directory.
func Open(cfg Config) (*FileSystem, error) {
	cfg = cfg.withDefaults()

	fs, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	table, err := fat.Load(fs.store)
	if err != nil {
		return nil, err
	}
	fs.table = table

	root, err := fs.readRoot()
	if err != nil {
		return nil, err
	}
	fs.cwd = root

	fs.log.WithField("opened_at", timestamp.GetTime()).Info("opened image")
	return fs, nil
}

func openStore(cfg Config) (*FileSystem, error) {
	s, err := store.Open(cfg.Path, cfg.BlockSize, cfg.NumBlocks)
	if err != nil {
		return nil, err
	}
	return &FileSystem{
		cfg: cfg,
		store: s,
		log: logrus.WithFields(logrus.Fields{"component": "vfs", "image": cfg.Path}),
	}, nil
}

func removeImage(path string) error {
	s, err := store.Open(path, 0, 0)
	if err != nil {
		return err
	}
	return s.Delete()
}

// ImageExists reports whether a backing image is already present at path.
func ImageExists(path string) bool {
	return store.Exists(path)
}

// Close releases the backing image handle.
func (fs *FileSystem) Close() error {
	return fs.store.Close()
}

// Config returns the configuration this FileSystem was opened with.
func (fs *FileSystem) Config() Config { return fs.cfg }

func requirePermission(path string, held, required perm.Bits) error {
	if !perm.Granted(held, required) {
		return &NoPermissionError{Path: path, Required: required}
	}
	return nil
}
