package filesystem

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sync"
	"time"
)

// memoryFileInfo implements fs.FileInfo for in-memory files
type memoryFileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (f *memoryFileInfo) Name() string       { return f.name }
func (f *memoryFileInfo) Size() int64        { return f.size }
func (f *memoryFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memoryFileInfo) ModTime() time.Time { return f.modTime }
func (f *memoryFileInfo) IsDir() bool        { return false }
func (f *memoryFileInfo) Sys() interface{}   { return nil }

type memoryFile struct {
	content []byte
	modTime time.Time
}

// MemoryFileSystem implements FileSystemProvider in memory for tests.
// Paths are normalized to forward slashes and cleaned.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string]memoryFile
}

// NewMemoryFileSystem creates an empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{files: make(map[string]memoryFile)}
}

// AddFile adds or replaces a file.
func (m *MemoryFileSystem) AddFile(p string, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[normalize(p)] = memoryFile{content: []byte(content), modTime: time.Now()}
}

// RemoveFile deletes a file if present.
func (m *MemoryFileSystem) RemoveFile(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, normalize(p))
}

func (m *MemoryFileSystem) Open(p string) (io.ReadCloser, error) {
	data, err := m.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryFileSystem) ReadFile(p string) ([]byte, error) {
	f, err := m.lookup("open", p)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(f.content), nil
}

func (m *MemoryFileSystem) Stat(p string) (FileInfo, error) {
	f, err := m.lookup("stat", p)
	if err != nil {
		return nil, err
	}
	return &memoryFileInfo{name: path.Base(normalize(p)), size: int64(len(f.content)), modTime: f.modTime}, nil
}

func (m *MemoryFileSystem) lookup(op, p string) (memoryFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[normalize(p)]
	if !ok {
		return memoryFile{}, &fs.PathError{Op: op, Path: p, Err: fs.ErrNotExist}
	}
	return f, nil
}

func normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

var _ FileSystemProvider = (*MemoryFileSystem)(nil)
