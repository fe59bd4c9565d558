package filesystem

import (
	"io"
	"io/fs"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// FileSystemProvider reads files by path.
type FileSystemProvider interface {
	// Open returns a reader over the file's content. The caller closes it.
	Open(path string) (io.ReadCloser, error)

	// ReadFile reads the whole file.
	ReadFile(path string) ([]byte, error)

	// Stat returns file information for the given path.
	Stat(path string) (FileInfo, error)
}
