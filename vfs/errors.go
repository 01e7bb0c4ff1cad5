package vfs

import (
	"errors"
	"fmt"

	"github.com/go-blockfs/blockfs/perm"
)

// Sentinel errors for conditions that carry no path (spec.md §7).
var (
	// ErrFileNotFound is returned when a path component does not resolve to an entry.
	ErrFileNotFound = errors.New("file not found")
	// ErrFilenameTooLong is returned when a basename exceeds fsname.MaxLen bytes.
	ErrFilenameTooLong = errors.New("filename too long")
	// ErrInvalidFilename is returned when a basename is empty.
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrFileIsDirectory is returned when an operation requiring a file is given a directory.
	ErrFileIsDirectory = errors.New("entry is a directory")
)

// NotADirectoryError is returned when an operation requiring a
// directory is given a path that resolves to a file.
type NotADirectoryError struct{ Path string }

func (e *NotADirectoryError) Error() string {
	return fmt.Sprintf("not a directory: %s", e.Path)
}

// FileExistsError is returned when a create/move/copy target name is
// already taken in the destination directory: by a file for CreateDir,
// by any entry for CreateFile, MoveEntry and CopyEntry.
type FileExistsError struct{ Name string }

func (e *FileExistsError) Error() string {
	return fmt.Sprintf("file exists: %s", e.Name)
}

// DirectoryExistsError is returned by CreateDir when the target name
// already names a directory in the destination directory.
type DirectoryExistsError struct{ Name string }

func (e *DirectoryExistsError) Error() string {
	return fmt.Sprintf("directory exists: %s", e.Name)
}

// NoPermissionError is returned when an entry's access level does not
// grant a required permission.
type NoPermissionError struct {
	Path     string
	Required perm.Bits
}

func (e *NoPermissionError) Error() string {
	return fmt.Sprintf("no permission (%s required) on %s", e.Required, e.Path)
}

// InvalidAccessLevelError is returned when a chmod argument is not a
// single octal digit in 0-7.
type InvalidAccessLevelError struct{ Value string }

func (e *InvalidAccessLevelError) Error() string {
	return fmt.Sprintf("invalid access level: %q", e.Value)
}
