package vfs

import (
	"fmt"
	"strings"

	"github.com/go-blockfs/blockfs/chain"
	"github.com/go-blockfs/blockfs/direntry"
	"github.com/go-blockfs/blockfs/fat"
	"github.com/go-blockfs/blockfs/pathutil"
	"github.com/go-blockfs/blockfs/perm"
)

// LineReader is the input half of the core's two-method I/O contract
// (spec.md §6.2): one line per call, with no trailing newline.
type LineReader interface {
	ReadLine() (string, error)
}

// LineWriter is the output half of the same contract.
type LineWriter interface {
	WriteLine(string) error
}

func (fs *FileSystem) writeChain(head uint16, data []byte) error {
	return chain.WriteChain(fs.store, fs.table, head, data)
}

func (fs *FileSystem) readChain(head uint16) ([]byte, error) {
	return chain.ReadChain(fs.store, fs.table, head)
}

func (fs *FileSystem) freeChain(head uint16) error {
	return chain.ClearChain(fs.store, fs.table, head)
}

// CreateFile implements spec.md §4.8 create_file: drains in line by
// line until an empty line (the terminator, not part of the
// contents), joins with "\n", and writes the result as a new chain.
func (fs *FileSystem) CreateFile(path string, in LineReader) error {
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
	if _, exists := parent.Find(nameVal); exists {
		return &FileExistsError{Name: name}
	}

	content, err := drainLines(in)
	if err != nil {
		return err
	}
	data := []byte(content)

	head, err := fs.table.FindFree()
	if err != nil {
		return err
	}
	if err := fs.writeChain(head, data); err != nil {
		return err
	}

	entry := direntry.Entry{Name: nameVal, Type: direntry.File, Size: uint64(len(data)), BlkNum: head, Access: perm.Read | perm.Write}
	if err := parent.Add(entry); err != nil {
		return err
	}
	if err := writeDirBlock(fs.store, parent); err != nil {
		return err
	}

	return fs.propagateSize(parentPath, int64(len(data)))
}

func drainLines(in LineReader) (string, error) {
	var lines []string
	for {
		line, err := in.ReadLine()
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// ReadFile implements spec.md §4.8 read_file: requires READ on the
// parent and on the entry itself, then emits the decoded content
// through out.
func (fs *FileSystem) ReadFile(path string, out LineWriter) error {
	content, err := fs.readFileContent(path)
	if err != nil {
		return err
	}
	return out.WriteLine(content)
}

// ReadFileContent resolves path to a readable file and returns its
// decoded contents directly, without a LineWriter; used by
// package fsadapter to serve file bytes through io/fs.FS.
func (fs *FileSystem) ReadFileContent(path string) (string, error) {
	return fs.readFileContent(path)
}

// readFileContent resolves path to a readable file and returns its
// decoded contents (the first entry.Size bytes of its chain), without
// touching a LineWriter; shared by ReadFile and ReadFileContent.
func (fs *FileSystem) readFileContent(path string) (string, error) {
	abs := pathutil.Absolutize(path, fs.cwd.Path)
	parentPath, name := pathutil.Split(abs)

	parent, err := fs.traverse(parentPath)
	if err != nil {
		return "", err
	}
	if err := requirePermission(parent.Path, parent.ParentEntry.Access, perm.Read); err != nil {
		return "", err
	}

	entry, ok := parent.Find(mustName(name))
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, abs)
	}
	if entry.Type != direntry.File {
		return "", ErrFileIsDirectory
	}
	if err := requirePermission(abs, entry.Access, perm.Read); err != nil {
		return "", err
	}

	data, err := fs.readChain(entry.BlkNum)
	if err != nil {
		return "", err
	}
	if uint64(len(data)) > entry.Size {
		data = data[:entry.Size]
	}
	return string(data), nil
}

// AppendFile implements spec.md §4.8 append_file: new = dst || "\n"
// || src, written starting back at dst's original head block.
func (fs *FileSystem) AppendFile(src, dst string) error {
	srcAbs := pathutil.Absolutize(src, fs.cwd.Path)
	dstAbs := pathutil.Absolutize(dst, fs.cwd.Path)
	srcParentPath, srcName := pathutil.Split(srcAbs)
	dstParentPath, dstName := pathutil.Split(dstAbs)

	srcParent, err := fs.traverse(srcParentPath)
	if err != nil {
		return err
	}
	if err := requirePermission(srcParent.Path, srcParent.ParentEntry.Access, perm.Read); err != nil {
		return err
	}
	srcEntry, ok := srcParent.Find(mustName(srcName))
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, srcAbs)
	}
	if srcEntry.Type != direntry.File {
		return ErrFileIsDirectory
	}

	dstParent, err := fs.traverse(dstParentPath)
	if err != nil {
		return err
	}
	if err := requirePermission(dstParent.Path, dstParent.ParentEntry.Access, perm.Write); err != nil {
		return err
	}
	dstEntry, ok := dstParent.Find(mustName(dstName))
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, dstAbs)
	}
	if dstEntry.Type != direntry.File {
		return ErrFileIsDirectory
	}

	srcData, err := fs.readChain(srcEntry.BlkNum)
	if err != nil {
		return err
	}
	if uint64(len(srcData)) > srcEntry.Size {
		srcData = srcData[:srcEntry.Size]
	}
	dstData, err := fs.readChain(dstEntry.BlkNum)
	if err != nil {
		return err
	}
	if uint64(len(dstData)) > dstEntry.Size {
		dstData = dstData[:dstEntry.Size]
	}

	newData := append(append(append([]byte{}, dstData...), '\n'), srcData...)

	if err := fs.freeChain(dstEntry.BlkNum); err != nil {
		return err
	}
	// Re-reserve the head so the allocator cannot hand it out again
	// while the new chain is being linked.
	if err := fs.table.Set(dstEntry.BlkNum, fat.Cell{State: fat.Taken}); err != nil {
		return err
	}
	if err := fs.writeChain(dstEntry.BlkNum, newData); err != nil {
		return err
	}

	delta := int64(len(newData)) - int64(len(dstData))
	dstEntry.Size = uint64(len(newData))
	if err := dstParent.Update(dstEntry); err != nil {
		return err
	}
	if err := writeDirBlock(fs.store, dstParent); err != nil {
		return err
	}

	return fs.propagateSize(dstParentPath, delta)
}

// DeleteFile implements spec.md §4.8 delete_file.
func (fs *FileSystem) DeleteFile(path string) error {
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
	if entry.Type != direntry.File {
		return ErrFileIsDirectory
	}

	if err := fs.freeChain(entry.BlkNum); err != nil {
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
