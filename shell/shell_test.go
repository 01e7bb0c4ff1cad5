package shell

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/go-blockfs/blockfs/vfs"
)

// scriptTerminal replays a fixed script of input lines and records
// every line the shell writes back.
type scriptTerminal struct {
	script []string
	i      int
	out    []string
}

func (t *scriptTerminal) ReadLine() (string, error) {
	if t.i >= len(t.script) {
		return "", io.EOF
	}
	line := t.script[t.i]
	t.i++
	return line, nil
}

func (t *scriptTerminal) WriteLine(line string) error {
	t.out = append(t.out, line)
	return nil
}

func testConfig(t *testing.T) vfs.Config {
	t.Helper()
	return vfs.Config{Path: filepath.Join(t.TempDir(), "image.bin"), BlockSize: 512, NumBlocks: 64}
}

func run(t *testing.T, script []string) *scriptTerminal {
	t.Helper()
	term := &scriptTerminal{script: script}
	s := New(testConfig(t), term)
	defer s.Close()
	if err := s.Run(); err != nil && err != io.EOF {
		t.Fatalf("Run: %v", err)
	}
	return term
}

func TestFormatCreateCat(t *testing.T) {
	term := run(t, []string{
		"format",
		"create f1",
		"Hello, World!",
		"",
		"cat f1",
		"quit",
	})
	if len(term.out) != 1 || term.out[0] != "Hello, World!" {
		t.Fatalf("output = %v, want [\"Hello, World!\"]", term.out)
	}
}

func TestUnknownCommandReportsError(t *testing.T) {
	term := run(t, []string{
		"format",
		"bogus",
		"quit",
	})
	if len(term.out) != 1 {
		t.Fatalf("output = %v, want one error line", term.out)
	}
}

func TestCommandsBeforeFormatFail(t *testing.T) {
	term := run(t, []string{
		"pwd",
		"quit",
	})
	if len(term.out) != 1 {
		t.Fatalf("output = %v, want one error line", term.out)
	}
}

func TestMkdirLsCd(t *testing.T) {
	term := run(t, []string{
		"format",
		"mkdir d1",
		"ls",
		"cd d1",
		"pwd",
		"quit",
	})
	if len(term.out) != 2 {
		t.Fatalf("output = %v, want 2 lines (ls row, pwd)", term.out)
	}
	if term.out[1] != "/d1" {
		t.Fatalf("pwd = %q, want /d1", term.out[1])
	}
}

func TestReopenExistingImage(t *testing.T) {
	cfg := testConfig(t)
	term1 := &scriptTerminal{script: []string{"format", "mkdir d1", "quit"}}
	s1 := New(cfg, term1)
	if err := s1.Run(); err != nil && err != io.EOF {
		t.Fatalf("Run (first session): %v", err)
	}
	_ = s1.Close()

	term2 := &scriptTerminal{script: []string{"ls", "quit"}}
	s2 := New(cfg, term2)
	defer s2.Close()
	if err := s2.Run(); err != nil && err != io.EOF {
		t.Fatalf("Run (second session): %v", err)
	}
	if len(term2.out) != 1 {
		t.Fatalf("second session ls output = %v, want one row for d1", term2.out)
	}
}
