// Command blockfs-shell is the reference line-based shell (spec.md
// §6.3) over a single block-backed image file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/go-blockfs/blockfs/shell"
	"github.com/go-blockfs/blockfs/store"
	"github.com/go-blockfs/blockfs/vfs"
)

// stdioTerminal implements shell.Terminal over the process's stdin/stdout
// (spec.md §6.4: "a single fixed-name image file next to the process").
type stdioTerminal struct {
	in  *bufio.Scanner
	out io.Writer
}

func (t *stdioTerminal) ReadLine() (string, error) {
	fmt.Fprint(t.out, "filesystem> ")
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return t.in.Text(), nil
}

func (t *stdioTerminal) WriteLine(line string) error {
	_, err := fmt.Fprintln(t.out, line)
	return err
}

func main() {
	path := flag.String("filename", "diskfile.bin", "path to the backing image file")
	blockSize := flag.Int("block-size", store.BlockSize, "block size in bytes")
	numBlocks := flag.Int("num-blocks", store.NumBlocks, "number of blocks in the image")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg := vfs.Config{Path: *path, BlockSize: *blockSize, NumBlocks: *numBlocks}
	term := &stdioTerminal{in: bufio.NewScanner(os.Stdin), out: os.Stdout}

	s := shell.New(cfg, term)
	defer s.Close()

	if err := s.Run(); err != nil && err != io.EOF {
		logrus.WithError(err).Fatal("shell exited with error")
	}
}
