package store

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// MockFileSystem is an in-memory FileSystem for tests. Paths are compared
// after filepath.Clean; directories are implied by the files below them and
// by MkdirAll.
type MockFileSystem struct {
	mu    sync.RWMutex
	files map[string]*mockFile
	dirs  map[string]bool

	// Errors returned by the matching operation when set
	StatError      error
	ReadFileError  error
	WriteFileError error
	RenameError    error
	RemoveError    error
	ReadDirError   error
	MkdirAllError  error

	// Counters for asserting which writes happened
	Writes  int
	Renames int
}

type mockFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (fi mockFileInfo) Name() string       { return fi.name }
func (fi mockFileInfo) Size() int64        { return fi.size }
func (fi mockFileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi mockFileInfo) ModTime() time.Time { return fi.modTime }
func (fi mockFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi mockFileInfo) Sys() any           { return nil }

// NewMockFileSystem creates a new mock file system
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files: make(map[string]*mockFile),
		dirs:  make(map[string]bool),
	}
}

// Stat implements FileSystem.Stat
func (m *MockFileSystem) Stat(name string) (fs.FileInfo, error) {
	if m.StatError != nil {
		return nil, m.StatError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	name = filepath.Clean(name)
	if m.dirs[name] {
		return mockFileInfo{name: filepath.Base(name), mode: fs.ModeDir | 0o755}, nil
	}
	file, exists := m.files[name]
	if !exists {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}

	return mockFileInfo{
		name:    filepath.Base(name),
		size:    int64(len(file.content)),
		mode:    file.mode,
		modTime: file.modTime,
	}, nil
}

// ReadFile implements FileSystem.ReadFile
func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if m.ReadFileError != nil {
		return nil, m.ReadFileError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	file, exists := m.files[filepath.Clean(name)]
	if !exists {
		return nil, &fs.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}

	content := make([]byte, len(file.content))
	copy(content, file.content)
	return content, nil
}

// WriteFile implements FileSystem.WriteFile
func (m *MockFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if m.WriteFileError != nil {
		return m.WriteFileError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	content := make([]byte, len(data))
	copy(content, data)
	m.files[filepath.Clean(name)] = &mockFile{
		content: content,
		mode:    perm,
		modTime: time.Now(),
	}
	m.Writes++
	return nil
}

// Rename implements FileSystem.Rename
func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	if m.RenameError != nil {
		return m.RenameError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	oldpath, newpath = filepath.Clean(oldpath), filepath.Clean(newpath)
	file, exists := m.files[oldpath]
	if !exists {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: os.ErrNotExist}
	}

	// Overwrites the target like os.Rename
	m.files[newpath] = file
	delete(m.files, oldpath)
	m.Renames++
	return nil
}

// Remove implements FileSystem.Remove
func (m *MockFileSystem) Remove(name string) error {
	if m.RemoveError != nil {
		return m.RemoveError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name = filepath.Clean(name)
	if _, exists := m.files[name]; !exists {
		return &fs.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
	}
	delete(m.files, name)
	return nil
}

// ReadDir implements FileSystem.ReadDir. Only direct children are listed.
func (m *MockFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	if m.ReadDirError != nil {
		return nil, m.ReadDirError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	dir := filepath.Clean(name)
	seen := make(map[string]bool)
	var entries []fs.DirEntry
	for path := range m.files {
		if filepath.Dir(path) == dir {
			base := filepath.Base(path)
			if !seen[base] {
				seen[base] = true
				entries = append(entries, &mockDirEntry{name: base})
			}
		}
	}
	for path := range m.dirs {
		if path != dir && filepath.Dir(path) == dir {
			base := filepath.Base(path)
			if !seen[base] {
				seen[base] = true
				entries = append(entries, &mockDirEntry{name: base, isDir: true})
			}
		}
	}

	if len(entries) == 0 && !m.dirs[dir] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// MkdirAll implements FileSystem.MkdirAll
func (m *MockFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	if m.MkdirAllError != nil {
		return m.MkdirAllError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for dir := filepath.Clean(path); ; dir = filepath.Dir(dir) {
		m.dirs[dir] = true
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}
	return nil
}

// FileExists is a helper method for testing
func (m *MockFileSystem) FileExists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.files[filepath.Clean(name)]
	return exists
}

// GetFileContent is a helper method for testing
func (m *MockFileSystem) GetFileContent(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, exists := m.files[filepath.Clean(name)]
	if !exists {
		return nil, false
	}

	content := make([]byte, len(file.content))
	copy(content, file.content)
	return content, true
}

// Paths returns every file path currently stored, sorted
func (m *MockFileSystem) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// mockDirEntry implements fs.DirEntry
type mockDirEntry struct {
	name  string
	isDir bool
}

func (e *mockDirEntry) Name() string { return e.name }
func (e *mockDirEntry) IsDir() bool  { return e.isDir }
func (e *mockDirEntry) Type() fs.FileMode {
	if e.isDir {
		return fs.ModeDir
	}
	return 0
}
func (e *mockDirEntry) Info() (fs.FileInfo, error) {
	return mockFileInfo{
		name: e.name,
		mode: e.Type(),
	}, nil
}
