package vfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-blockfs/blockfs/direntry"
	"github.com/go-blockfs/blockfs/util"
)

// lineQueue feeds a fixed sequence of lines, terminated by an empty
// line, to CreateFile; WriteLine captures whatever ReadFile emits.
type lineQueue struct {
	lines []string
	i     int
	out   []string
}

func (q *lineQueue) ReadLine() (string, error) {
	if q.i >= len(q.lines) {
		return "", nil
	}
	line := q.lines[q.i]
	q.i++
	return line, nil
}

func (q *lineQueue) WriteLine(line string) error {
	q.out = append(q.out, line)
	return nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{Path: filepath.Join(t.TempDir(), "image.bin"), BlockSize: 512, NumBlocks: 64}
}

func mustFormat(t *testing.T) *FileSystem {
	t.Helper()
	fs, err := Format(testConfig(t))
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	t.Cleanup(func() { _ = fs.Close() })
	return fs
}

func createFile(t *testing.T, fs *FileSystem, path, content string) {
	t.Helper()
	q := &lineQueue{lines: []string{content}}
	if err := fs.CreateFile(path, q); err != nil {
		t.Fatalf("CreateFile(%s): %v", path, err)
	}
}

func readFile(t *testing.T, fs *FileSystem, path string) string {
	t.Helper()
	q := &lineQueue{}
	if err := fs.ReadFile(path, q); err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	if len(q.out) != 1 {
		t.Fatalf("ReadFile(%s) emitted %d lines, want 1", path, len(q.out))
	}
	return q.out[0]
}

// S1: create + cat.
func TestCreateAndCat(t *testing.T) {
	fs := mustFormat(t)
	createFile(t, fs, "f1", "Hello, World!")
	if got := readFile(t, fs, "f1"); got != "Hello, World!" {
		t.Fatalf("cat f1 = %q, want %q", got, "Hello, World!")
	}
}

// S3: name length boundary.
func TestCreateNameLengthBoundary(t *testing.T) {
	fs := mustFormat(t)
	name55 := make([]byte, 55)
	for i := range name55 {
		name55[i] = 'a'
	}
	createFile(t, fs, string(name55), "x")

	name56 := make([]byte, 56)
	for i := range name56 {
		name56[i] = 'b'
	}
	if err := fs.CreateFile(string(name56), &lineQueue{lines: []string{"x"}}); !errors.Is(err, ErrFilenameTooLong) {
		t.Fatalf("CreateFile(56-byte name) = %v, want ErrFilenameTooLong", err)
	}
}

// S4: copy collision leaves the destination untouched.
func TestCopyCollision(t *testing.T) {
	fs := mustFormat(t)
	createFile(t, fs, "f1", "Hello")
	createFile(t, fs, "f2", "World")

	var existsErr *FileExistsError
	err := fs.CopyEntry("f1", "f2")
	if !errors.As(err, &existsErr) {
		t.Fatalf("CopyEntry collision = %v, want *FileExistsError", err)
	}
	if got := readFile(t, fs, "f2"); got != "World" {
		t.Fatalf("cat f2 after failed copy = %q, want %q", got, "World")
	}
}

// S5: move then cat.
func TestMoveThenCat(t *testing.T) {
	fs := mustFormat(t)
	createFile(t, fs, "f1", "Hello")

	if err := fs.MoveEntry("f1", "f2"); err != nil {
		t.Fatalf("MoveEntry: %v", err)
	}
	if got := readFile(t, fs, "f2"); got != "Hello" {
		t.Fatalf("cat f2 = %q, want %q", got, "Hello")
	}
	if err := fs.ReadFile("f1", &lineQueue{}); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("cat f1 after move = %v, want ErrFileNotFound", err)
	}
}

// S6: nested append.
func TestNestedAppend(t *testing.T) {
	fs := mustFormat(t)
	if err := fs.CreateDir("d1"); err != nil {
		t.Fatalf("CreateDir: %v", err)
	}
	createFile(t, fs, "d1/f1", "Hello, World!")
	createFile(t, fs, "f2", "Hello, World!")

	if err := fs.ChangeDir("d1"); err != nil {
		t.Fatalf("ChangeDir: %v", err)
	}
	if err := fs.AppendFile("f1", "../f2"); err != nil {
		t.Fatalf("AppendFile: %v", err)
	}
	if got := readFile(t, fs, "../f2"); got != "Hello, World!\nHello, World!" {
		t.Fatalf("cat ../f2 = %q, want %q", got, "Hello, World!\nHello, World!")
	}
}

// S7: permission enforcement.
func TestPermissionEnforcement(t *testing.T) {
	fs := mustFormat(t)
	createFile(t, fs, "f1", "x")

	if err := fs.Chmod("f1", "0"); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	var permErr *NoPermissionError
	if err := fs.ReadFile("f1", &lineQueue{}); !errors.As(err, &permErr) {
		t.Fatalf("cat f1 with no permission = %v, want *NoPermissionError", err)
	}

	if err := fs.Chmod("f1", "4"); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	if got := readFile(t, fs, "f1"); got != "x" {
		t.Fatalf("cat f1 after chmod 4 = %q, want %q", got, "x")
	}
}

func TestDeleteDirRecursivelyFreesBlocks(t *testing.T) {
	fs := mustFormat(t)
	if err := fs.CreateDir("d1"); err != nil {
		t.Fatal(err)
	}
	createFile(t, fs, "d1/f1", "x")
	if err := fs.CreateDir("d1/d2"); err != nil {
		t.Fatal(err)
	}
	createFile(t, fs, "d1/d2/f2", "y")

	if err := fs.DeleteDir("d1"); err != nil {
		t.Fatalf("DeleteDir: %v", err)
	}
	if err := fs.ChangeDir("d1"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("cd into deleted dir = %v, want ErrFileNotFound", err)
	}
}

func TestIdempotentFormat(t *testing.T) {
	cfg := testConfig(t)
	fs1, err := Format(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs1.Close(); err != nil {
		t.Fatal(err)
	}

	first, err := os.ReadFile(cfg.Path)
	if err != nil {
		t.Fatal(err)
	}

	fs2, err := Format(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := fs2.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := os.ReadFile(cfg.Path)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("image sizes differ: %d vs %d", len(first), len(second))
	}
	if different, dump := util.DumpByteSlicesWithDiffs(first, second, 16, true, true, false); different {
		t.Fatalf("two Format() runs produced different images:\n%s", dump)
	}
}

func TestDirectoryCapacity(t *testing.T) {
	fs := mustFormat(t)
	created := 0
	for {
		name := "f" + string(rune('0'+created%10)) + string(rune('a'+created/10))
		err := fs.CreateFile(name, &lineQueue{lines: []string{"Hello!"}})
		if err != nil {
			if errors.Is(err, direntry.ErrNoSpace) {
				break
			}
			t.Fatalf("CreateFile #%d: %v", created, err)
		}
		created++
		if created > 200 {
			t.Fatal("directory never reported full")
		}
	}
	if created == 0 {
		t.Fatal("no files were created before the directory reported full")
	}
}
