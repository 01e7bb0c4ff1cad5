// Package shell implements the reference line-based REPL (spec.md
// §6.3): a command loop driving a vfs.FileSystem through the
// two-method Terminal contract of spec.md §6.2. The shell is an
// embedder, not part of the core: it is the thing that supplies
// ReadLine/WriteLine, not a capability the core depends on.
package shell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/go-blockfs/blockfs/util"
	"github.com/go-blockfs/blockfs/vfs"
)

// Terminal is the two-method contract spec.md §6.2 asks of any
// embedder: one line of input, one line of output.
type Terminal interface {
	ReadLine() (string, error)
	WriteLine(string) error
}

// errQuit is returned internally to unwind Run's command loop; it is
// never surfaced to the caller of Run.
var errQuit = errors.New("quit")

// Shell drives a vfs.FileSystem from commands read off a Terminal.
type Shell struct {
	cfg  vfs.Config
	fs   *vfs.FileSystem
	term Terminal
	log  *logrus.Entry
}

// New creates a Shell bound to cfg and term. The image is opened
// lazily: only the "format" command (or a later command against an
// already-formatted image) establishes fs.
func New(cfg vfs.Config, term Terminal) *Shell {
	session := uuid.New().String()
	return &Shell{
		cfg:  cfg,
		term: term,
		log:  logrus.WithFields(logrus.Fields{"component": "shell", "session": session}),
	}
}

// Run reads commands from the terminal until "quit" or a read error,
// printing "filesystem> "-style prompts is left to the embedder; Run
// only emits command output and errors.
func (s *Shell) Run() error {
	s.log.Info("starting shell")
	defer s.log.Info("exiting shell")

	if err := s.open(); err != nil {
		return err
	}

	for {
		line, err := s.term.ReadLine()
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if err := s.dispatch(fields[0], fields[1:]); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			s.log.WithError(err).Warn("command failed")
			if werr := s.term.WriteLine(fmt.Sprintf("error: %s", err)); werr != nil {
				return werr
			}
		}
	}
}

func (s *Shell) open() error {
	if vfs.ImageExists(s.cfg.Path) {
		fs, err := vfs.Open(s.cfg)
		if err != nil {
			return err
		}
		s.fs = fs
	}
	return nil
}

func (s *Shell) requireFS() (*vfs.FileSystem, error) {
	if s.fs == nil {
		return nil, errors.New("no image open; run \"format\" first")
	}
	return s.fs, nil
}

func (s *Shell) dispatch(cmd string, args []string) error {
	switch cmd {
	case "format":
		return s.cmdFormat(args)
	case "ls":
		return s.cmdLs(args)
	case "pwd":
		return s.cmdPwd(args)
	case "cd":
		return s.cmdCd(args)
	case "mkdir":
		return s.cmdMkdir(args)
	case "rmdir", "rm":
		return s.cmdRemove(args)
	case "create":
		return s.cmdCreate(args)
	case "cat":
		return s.cmdCat(args)
	case "append":
		return s.cmdAppend(args)
	case "cp":
		return s.cmdCopy(args)
	case "mv":
		return s.cmdMove(args)
	case "chmod":
		return s.cmdChmod(args)
	case "xxd":
		return s.cmdDump(args)
	case "help":
		return s.cmdHelp(args)
	case "quit":
		return errQuit
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func requireArgs(args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("invalid usage: expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

func (s *Shell) cmdFormat(args []string) error {
	if err := requireArgs(args, 0); err != nil {
		return err
	}
	fs, err := vfs.Format(s.cfg)
	if err != nil {
		return err
	}
	if s.fs != nil {
		_ = s.fs.Close()
	}
	s.fs = fs
	return nil
}

func (s *Shell) cmdLs(args []string) error {
	if err := requireArgs(args, 0); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	listing, err := fs.ListDir()
	if err != nil {
		return err
	}
	for _, e := range listing {
		line := fmt.Sprintf("%-20s %-10s %10d %6d %s", e.Name, e.Type, e.Size, e.Block, e.Access)
		if err := s.term.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) cmdPwd(args []string) error {
	if err := requireArgs(args, 0); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	return s.term.WriteLine(fs.PrintWorkingDir())
}

func (s *Shell) cmdCd(args []string) error {
	if err := requireArgs(args, 1); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	return fs.ChangeDir(args[0])
}

func (s *Shell) cmdMkdir(args []string) error {
	if err := requireArgs(args, 1); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	return fs.CreateDir(args[0])
}

func (s *Shell) cmdRemove(args []string) error {
	if err := requireArgs(args, 1); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	return fs.RemoveEntry(args[0])
}

func (s *Shell) cmdCreate(args []string) error {
	if err := requireArgs(args, 1); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	return fs.CreateFile(args[0], s.term)
}

func (s *Shell) cmdCat(args []string) error {
	if err := requireArgs(args, 1); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	return fs.ReadFile(args[0], s.term)
}

func (s *Shell) cmdAppend(args []string) error {
	if err := requireArgs(args, 2); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	return fs.AppendFile(args[0], args[1])
}

func (s *Shell) cmdCopy(args []string) error {
	if err := requireArgs(args, 2); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	return fs.CopyEntry(args[0], args[1])
}

func (s *Shell) cmdMove(args []string) error {
	if err := requireArgs(args, 2); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	return fs.MoveEntry(args[0], args[1])
}

func (s *Shell) cmdChmod(args []string) error {
	if err := requireArgs(args, 2); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	return fs.Chmod(args[1], args[0])
}

// cmdDump implements "xxd PATH": a hex/ASCII dump of a file's decoded
// contents, for inspecting a block's bytes directly instead of
// through the line-oriented cat path.
func (s *Shell) cmdDump(args []string) error {
	if err := requireArgs(args, 1); err != nil {
		return err
	}
	fs, err := s.requireFS()
	if err != nil {
		return err
	}
	content, err := fs.ReadFileContent(args[0])
	if err != nil {
		return err
	}
	dump := util.DumpByteSlice([]byte(content), 16, true, true, false, nil)
	for _, line := range strings.Split(strings.TrimRight(dump, "\n"), "\n") {
		if err := s.term.WriteLine(line); err != nil {
			return err
		}
	}
	return nil
}

var helpCommands = []string{
	"format", "ls", "pwd", "cd", "mkdir", "rmdir", "rm", "create",
	"cat", "append", "cp", "mv", "chmod", "xxd", "help", "quit",
}

func (s *Shell) cmdHelp(args []string) error {
	if err := requireArgs(args, 0); err != nil {
		return err
	}
	for _, c := range helpCommands {
		if err := s.term.WriteLine(c); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying image, if one is open.
func (s *Shell) Close() error {
	if s.fs == nil {
		return nil
	}
	return s.fs.Close()
}
