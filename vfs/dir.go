package vfs

import (
	"fmt"

	"github.com/go-blockfs/blockfs/direntry"
	"github.com/go-blockfs/blockfs/fat"
	"github.com/go-blockfs/blockfs/fsname"
	"github.com/go-blockfs/blockfs/pathutil"
	"github.com/go-blockfs/blockfs/perm"
	"github.com/go-blockfs/blockfs/store"
)

// readDirBlock implements spec.md §4.7 read_dir_block: precondition
// entry must name a directory; the returned block's transient
// parent_entry/blk_num are overwritten from entry, its path is left
// for the caller (who knows the logical path) to fill in.
func readDirBlock(s *store.Store, entry direntry.Entry) (*direntry.Block, error) {
	if entry.Type != direntry.Directory {
		return nil, &NotADirectoryError{Path: entry.Name.String()}
	}
	blk, err := store.ReadBlock(s, entry.BlkNum, direntry.Unmarshal(s.BlockSize()))
	if err != nil {
		return nil, err
	}
	blk.ParentEntry = entry
	blk.BlkNum = entry.BlkNum
	return blk, nil
}

// writeDirBlock implements spec.md §4.7 write_dir_block.
func writeDirBlock(s *store.Store, blk *direntry.Block) error {
	return store.WriteBlock(s, blk.BlkNum, blk, direntry.Marshal)
}

// readRoot implements spec.md §4.7 read_root: synthesizes the root
// DirEntry and reads its block, setting path to "/".
func (fs *FileSystem) readRoot() (*direntry.Block, error) {
	blk, err := readDirBlock(fs.store, rootEntry())
	if err != nil {
		return nil, err
	}
	blk.Path = "/"
	return blk, nil
}

// traverse implements spec.md §4.7 traverse: always starts from the
// root, follows each non-empty path segment in order, and returns
// the last block reached.
func (fs *FileSystem) traverse(absPath string) (*direntry.Block, error) {
	blocks, err := fs.getAllDirs(absPath)
	if err != nil {
		return nil, err
	}
	return blocks[len(blocks)-1], nil
}

// getAllDirs implements spec.md §4.7 get_all_dirs: the same walk as
// traverse, but returning every block visited, root included.
func (fs *FileSystem) getAllDirs(absPath string) ([]*direntry.Block, error) {
	root, err := fs.readRoot()
	if err != nil {
		return nil, err
	}
	blocks := []*direntry.Block{root}

	current := root
	currentPath := "/"
	for _, segment := range splitSegments(absPath) {
		entry, ok := current.Find(mustName(segment))
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, joinPath(currentPath, segment))
		}
		if entry.Type != direntry.Directory {
			return nil, &NotADirectoryError{Path: joinPath(currentPath, segment)}
		}
		next, err := readDirBlock(fs.store, entry)
		if err != nil {
			return nil, err
		}
		currentPath = joinPath(currentPath, segment)
		next.Path = currentPath
		blocks = append(blocks, next)
		current = next
	}

	return blocks, nil
}

func splitSegments(absPath string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(absPath); i++ {
		if i == len(absPath) || absPath[i] == '/' {
			if i > start {
				out = append(out, absPath[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func joinPath(parent, segment string) string {
	if parent == "/" {
		return "/" + segment
	}
	return parent + "/" + segment
}

func mustName(s string) fsname.Name {
	n, _ := fsname.New(s)
	return n
}

// ChangeDir implements spec.md §4.7 change_dir: normalizes path,
// traverses it, requires READ on the target's parent, and installs
// the result as the current directory. "cd /" resets to root with no
// further check.
func (fs *FileSystem) ChangeDir(path string) error {
	abs := pathutil.Absolutize(path, fs.cwd.Path)
	if abs == "/" {
		root, err := fs.readRoot()
		if err != nil {
			return err
		}
		fs.cwd = root
		return nil
	}

	blocks, err := fs.getAllDirs(abs)
	if err != nil {
		return err
	}
	target := blocks[len(blocks)-1]
	if len(blocks) >= 2 {
		parent := blocks[len(blocks)-2]
		if err := requirePermission(parent.Path, parent.ParentEntry.Access, perm.Read); err != nil {
			return err
		}
	}
	fs.cwd = target
	return nil
}

// DirListing is one row of a ls-style listing (spec.md §4.7 list_dir).
type DirListing struct {
	Name   string
	Type   direntry.FileType
	Size   uint64
	Block  uint16
	Access perm.Bits
}

// ListDir implements spec.md §4.7 list_dir: requires READ on the
// current directory's own access level, emits one row per non-empty
// entry in physical slot order.
func (fs *FileSystem) ListDir() ([]DirListing, error) {
	if err := requirePermission(fs.cwd.Path, fs.cwd.ParentEntry.Access, perm.Read); err != nil {
		return nil, err
	}
	var out []DirListing
	for _, e := range fs.cwd.Entries {
		if e.Empty() {
			continue
		}
		out = append(out, DirListing{
			Name:   e.Name.String(),
			Type:   e.Type,
			Size:   e.Size,
			Block:  e.BlkNum,
			Access: e.Access,
		})
	}
	return out, nil
}

// ListDirAt lists the directory named by path without disturbing the
// current directory, used by package fsadapter to walk the tree.
func (fs *FileSystem) ListDirAt(path string) ([]DirListing, error) {
	abs := pathutil.Absolutize(path, fs.cwd.Path)
	blk, err := fs.traverse(abs)
	if err != nil {
		return nil, err
	}
	if err := requirePermission(blk.Path, blk.ParentEntry.Access, perm.Read); err != nil {
		return nil, err
	}
	var out []DirListing
	for _, e := range blk.Entries {
		if e.Empty() {
			continue
		}
		out = append(out, DirListing{Name: e.Name.String(), Type: e.Type, Size: e.Size, Block: e.BlkNum, Access: e.Access})
	}
	return out, nil
}

// StatEntry resolves path to its DirEntry without disturbing the
// current directory. The root path "/" resolves to the synthesized
// root entry.
func (fs *FileSystem) StatEntry(path string) (direntry.Entry, error) {
	abs := pathutil.Absolutize(path, fs.cwd.Path)
	if abs == "/" {
		return rootEntry(), nil
	}
	parentPath, name := pathutil.Split(abs)
	parent, err := fs.traverse(parentPath)
	if err != nil {
		return direntry.Entry{}, err
	}
	entry, ok := parent.Find(mustName(name))
	if !ok {
		return direntry.Entry{}, fmt.Errorf("%w: %s", ErrFileNotFound, abs)
	}
	return entry, nil
}

// PrintWorkingDir implements spec.md §4.7 print_working_dir.
func (fs *FileSystem) PrintWorkingDir() string {
	if fs.cwd.Path == "" {
		return "/"
	}
	return fs.cwd.Path
}

func validateBasename(name string) error {
	if len(name) == 0 {
		return ErrInvalidFilename
	}
	if len(name) > fsname.MaxLen {
		return ErrFilenameTooLong
	}
	return nil
}

// CreateDir implements spec.md §4.7 create_dir.
func (fs *FileSystem) CreateDir(path string) error {
	abs := pathutil.Absolutize(path, fs.cwd.Path)
	parentPath, name := pathutil.Split(abs)
	if err := validateBasename(name); err != nil {
		return err
	}

	parent, err := fs.traverse(parentPath)
	if err != nil {
		return err
	}
	if err := requirePermission(parent.Path, parent.ParentEntry.Access, perm.Write); err != nil {
		return err
	}

	nameVal := mustName(name)
	if existing, ok := parent.Find(nameVal); ok {
		if existing.Type == direntry.Directory {
			return &DirectoryExistsError{Name: name}
		}
		return &FileExistsError{Name: name}
	}

	head, err := fs.table.FindFree()
	if err != nil {
		return err
	}

	newEntry := direntry.Entry{Name: nameVal, Type: direntry.Directory, BlkNum: head, Access: perm.All}
	child := direntry.New(fs.store.BlockSize(), newEntry, head)
	if err := writeDirBlock(fs.store, child); err != nil {
		return err
	}
	if err := fs.table.Flush(fs.store); err != nil {
		return err
	}

	if err := parent.Add(newEntry); err != nil {
		return err
	}
	if err := writeDirBlock(fs.store, parent); err != nil {
		return err
	}

	return fs.propagateSize(parentPath, 0)
}

// DeleteDir implements spec.md §4.7 delete_dir: recursively frees the
// subtree (files before the directory block itself, per spec.md §9),
// then removes the entry from its parent.
func (fs *FileSystem) DeleteDir(path string) error {
	abs := pathutil.Absolutize(path, fs.cwd.Path)
	parentPath, name := pathutil.Split(abs)

	parent, err := fs.traverse(parentPath)
	if err != nil {
		return err
	}
	if err := requirePermission(parent.Path, parent.ParentEntry.Access, perm.Write); err != nil {
		return err
	}

	nameVal := mustName(name)
	entry, ok := parent.Find(nameVal)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, abs)
	}
	if entry.Type != direntry.Directory {
		return &NotADirectoryError{Path: abs}
	}

	if err := fs.freeSubtree(entry); err != nil {
		return err
	}

	if err := parent.Remove(nameVal); err != nil {
		return err
	}
	if err := writeDirBlock(fs.store, parent); err != nil {
		return err
	}

	return fs.propagateSize(parentPath, -int64(entry.Size))
}

// freeSubtree recursively frees every descendant of dirEntry, then
// zeroes and frees dirEntry's own block.
func (fs *FileSystem) freeSubtree(dirEntry direntry.Entry) error {
	blk, err := readDirBlock(fs.store, dirEntry)
	if err != nil {
		return err
	}

	for _, e := range blk.Entries {
		if e.Empty() {
			continue
		}
		if e.Type == direntry.Directory {
			if err := fs.freeSubtree(e); err != nil {
				return err
			}
		} else {
			if err := fs.freeChain(e.BlkNum); err != nil {
				return err
			}
		}
	}

	if err := fs.store.WriteRaw(dirEntry.BlkNum, make([]byte, fs.store.BlockSize())); err != nil {
		return err
	}
	if err := fs.table.Set(dirEntry.BlkNum, fat.Cell{State: fat.Free}); err != nil {
		return err
	}
	return fs.table.Flush(fs.store)
}

// RemoveEntry implements spec.md §4.7 remove_entry: dispatch by type.
func (fs *FileSystem) RemoveEntry(path string) error {
	abs := pathutil.Absolutize(path, fs.cwd.Path)
	parentPath, name := pathutil.Split(abs)

	parent, err := fs.traverse(parentPath)
	if err != nil {
		return err
	}
	entry, ok := parent.Find(mustName(name))
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, abs)
	}
	if entry.Type == direntry.Directory {
		return fs.DeleteDir(path)
	}
	return fs.DeleteFile(path)
}

// MoveEntry implements spec.md §4.7 move_entry.
func (fs *FileSystem) MoveEntry(src, dst string) error {
	srcAbs := pathutil.Absolutize(src, fs.cwd.Path)
	dstAbs := pathutil.Absolutize(dst, fs.cwd.Path)
	srcParentPath, srcName := pathutil.Split(srcAbs)

	srcParent, err := fs.traverse(srcParentPath)
	if err != nil {
		return err
	}
	if err := requirePermission(srcParent.Path, srcParent.ParentEntry.Access, perm.Read); err != nil {
		return err
	}

	entry, ok := srcParent.Find(mustName(srcName))
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, srcAbs)
	}
	if err := requirePermission(srcAbs, entry.Access, perm.Read|perm.Write); err != nil {
		return err
	}

	dstParentPath, dstName, dstParentBlk, err := resolveDestination(fs, dstAbs)
	if err != nil {
		return err
	}
	if err := requirePermission(dstParentBlk.Path, dstParentBlk.ParentEntry.Access, perm.Write); err != nil {
		return err
	}

	newName := dstName
	if newName == "" {
		newName = srcName
	}
	newNameVal := mustName(newName)

	if _, exists := dstParentBlk.Find(newNameVal); exists {
		return &FileExistsError{Name: newName}
	}

	sameBlock := dstParentBlk.BlkNum == srcParent.BlkNum
	if sameBlock {
		// Only dstParentBlk is written back in this case, so the source
		// slot must be removed from that copy of the block.
		if err := dstParentBlk.Remove(mustName(srcName)); err != nil {
			return err
		}
	}

	movedEntry := entry
	movedEntry.Name = newNameVal
	if err := dstParentBlk.Add(movedEntry); err != nil {
		return err
	}

	if !sameBlock {
		if err := srcParent.Remove(mustName(srcName)); err != nil {
			return err
		}
		if err := writeDirBlock(fs.store, srcParent); err != nil {
			return err
		}
	}
	if err := writeDirBlock(fs.store, dstParentBlk); err != nil {
		return err
	}

	crossParent := dstParentPath != srcParentPath
	srcDelta := int64(0)
	if crossParent {
		srcDelta = -int64(entry.Size)
	}
	if err := fs.propagateSize(srcParentPath, srcDelta); err != nil {
		return err
	}
	if crossParent {
		if err := fs.propagateSize(dstParentPath, int64(entry.Size)); err != nil {
			return err
		}
	}
	return fs.refreshCwd()
}

// CopyEntry implements spec.md §4.7 copy_entry. Directory copies are
// deep (SPEC_FULL.md §4 resolves spec.md's open question this way):
// every descendant file and subdirectory is recursively duplicated.
func (fs *FileSystem) CopyEntry(src, dst string) error {
	srcAbs := pathutil.Absolutize(src, fs.cwd.Path)
	dstAbs := pathutil.Absolutize(dst, fs.cwd.Path)
	srcParentPath, srcName := pathutil.Split(srcAbs)

	srcParent, err := fs.traverse(srcParentPath)
	if err != nil {
		return err
	}
	if err := requirePermission(srcParent.Path, srcParent.ParentEntry.Access, perm.Read); err != nil {
		return err
	}

	entry, ok := srcParent.Find(mustName(srcName))
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, srcAbs)
	}
	if err := requirePermission(srcAbs, entry.Access, perm.Read|perm.Write); err != nil {
		return err
	}

	dstParentPath, dstName, dstParentBlk, err := resolveDestination(fs, dstAbs)
	if err != nil {
		return err
	}
	if err := requirePermission(dstParentBlk.Path, dstParentBlk.ParentEntry.Access, perm.Write); err != nil {
		return err
	}

	newName := dstName
	if newName == "" {
		newName = srcName
	}
	newNameVal := mustName(newName)

	if _, exists := dstParentBlk.Find(newNameVal); exists {
		return &FileExistsError{Name: newName}
	}

	var copied direntry.Entry
	if entry.Type == direntry.Directory {
		copied, err = fs.copySubtree(entry, newNameVal)
	} else {
		copied, err = fs.copyFileEntry(entry, newNameVal)
	}
	if err != nil {
		return err
	}

	if err := dstParentBlk.Add(copied); err != nil {
		return err
	}
	if err := writeDirBlock(fs.store, dstParentBlk); err != nil {
		return err
	}

	if err := fs.propagateSize(dstParentPath, int64(copied.Size)); err != nil {
		return err
	}
	return fs.refreshCwd()
}

func (fs *FileSystem) copyFileEntry(src direntry.Entry, name fsname.Name) (direntry.Entry, error) {
	data, err := fs.readChain(src.BlkNum)
	if err != nil {
		return direntry.Entry{}, err
	}
	if uint64(len(data)) > src.Size {
		data = data[:src.Size]
	}
	head, err := fs.table.FindFree()
	if err != nil {
		return direntry.Entry{}, err
	}
	if err := fs.writeChain(head, data); err != nil {
		return direntry.Entry{}, err
	}
	return direntry.Entry{Name: name, Type: direntry.File, Size: uint64(len(data)), BlkNum: head, Access: src.Access}, nil
}

func (fs *FileSystem) copySubtree(src direntry.Entry, name fsname.Name) (direntry.Entry, error) {
	srcBlk, err := readDirBlock(fs.store, src)
	if err != nil {
		return direntry.Entry{}, err
	}

	head, err := fs.table.FindFree()
	if err != nil {
		return direntry.Entry{}, err
	}
	newEntry := direntry.Entry{Name: name, Type: direntry.Directory, BlkNum: head, Access: src.Access}
	dstBlk := direntry.New(fs.store.BlockSize(), newEntry, head)

	var totalSize uint64
	for _, child := range srcBlk.Entries {
		if child.Empty() {
			continue
		}
		var copiedChild direntry.Entry
		if child.Type == direntry.Directory {
			copiedChild, err = fs.copySubtree(child, child.Name)
		} else {
			copiedChild, err = fs.copyFileEntry(child, child.Name)
		}
		if err != nil {
			return direntry.Entry{}, err
		}
		if err := dstBlk.Add(copiedChild); err != nil {
			return direntry.Entry{}, err
		}
		totalSize += copiedChild.Size
	}
	newEntry.Size = totalSize

	if err := writeDirBlock(fs.store, dstBlk); err != nil {
		return direntry.Entry{}, err
	}
	if err := fs.table.Flush(fs.store); err != nil {
		return direntry.Entry{}, err
	}
	return newEntry, nil
}

// resolveDestination implements the "dst names an existing directory"
// branch of move_entry/copy_entry: if dst resolves to a directory,
// the operation targets a new entry inside it under the source's
// basename; otherwise dst's own parent/basename are the target.
func resolveDestination(fs *FileSystem, dstAbs string) (parentPath, name string, parentBlk *direntry.Block, err error) {
	if blk, terr := fs.traverse(dstAbs); terr == nil && blk.ParentEntry.Type == direntry.Directory {
		return dstAbs, "", blk, nil
	}
	parentPath, name = pathutil.Split(dstAbs)
	parentBlk, err = fs.traverse(parentPath)
	if err != nil {
		return "", "", nil, err
	}
	return parentPath, name, parentBlk, nil
}

// Chmod implements spec.md §4.7 chmod: sets the entry's access level
// and, if it is a directory, propagates the same level to every
// direct child (single-level propagation).
func (fs *FileSystem) Chmod(path, permStr string) error {
	bits, err := perm.Parse(permStr)
	if err != nil {
		return &InvalidAccessLevelError{Value: permStr}
	}

	abs := pathutil.Absolutize(path, fs.cwd.Path)
	parentPath, name := pathutil.Split(abs)

	parent, err := fs.traverse(parentPath)
	if err != nil {
		return err
	}
	nameVal := mustName(name)
	entry, ok := parent.Find(nameVal)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, abs)
	}

	entry.Access = bits
	if err := parent.Update(entry); err != nil {
		return err
	}
	if err := writeDirBlock(fs.store, parent); err != nil {
		return err
	}

	if entry.Type == direntry.Directory {
		blk, err := readDirBlock(fs.store, entry)
		if err != nil {
			return err
		}
		for i, child := range blk.Entries {
			if child.Empty() {
				continue
			}
			child.Access = bits
			blk.Entries[i] = child
		}
		if err := writeDirBlock(fs.store, blk); err != nil {
			return err
		}
	}

	return fs.refreshCwd()
}

// propagateSize implements spec.md §4.10: every ancestor directory's
// entry for the next descendant has its size adjusted by delta, then
// the in-memory current directory is refreshed.
func (fs *FileSystem) propagateSize(leafParentPath string, delta int64) error {
	blocks, err := fs.getAllDirs(leafParentPath)
	if err != nil {
		return err
	}

	for i := 0; i < len(blocks)-1; i++ {
		ancestor := blocks[i]
		next := blocks[i+1]
		entry, ok := ancestor.Find(next.ParentEntry.Name)
		if !ok {
			continue
		}
		entry.Size = applyDelta(entry.Size, delta)
		if err := ancestor.Update(entry); err != nil {
			return err
		}
		if err := writeDirBlock(fs.store, ancestor); err != nil {
			return err
		}
	}

	return fs.refreshCwd()
}

func applyDelta(size uint64, delta int64) uint64 {
	if delta < 0 && uint64(-delta) > size {
		return 0
	}
	return uint64(int64(size) + delta)
}

// refreshCwd re-traverses the current path so the in-memory current
// directory never goes stale after a tree-mutating operation
// (spec.md §9 "Re-reading current_dir").
func (fs *FileSystem) refreshCwd() error {
	path := fs.cwd.Path
	blk, err := fs.traverse(path)
	if err != nil {
		if path == "/" {
			root, rerr := fs.readRoot()
			if rerr != nil {
				return rerr
			}
			fs.cwd = root
			return nil
		}
		return err
	}
	fs.cwd = blk
	return nil
}

