package store

import (
	"io/fs"
	"os"
)

// FileSystem is the set of file operations the collection store needs.
// Tests swap in MockFileSystem to inject failures.
type FileSystem interface {
	// Stat returns file info for the given path
	Stat(name string) (fs.FileInfo, error)

	// ReadFile reads the entire file and returns its contents
	ReadFile(name string) ([]byte, error)

	// WriteFile writes data to a file with the specified permissions
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Rename renames (moves) a file from oldpath to newpath
	Rename(oldpath, newpath string) error

	// Remove removes the named file
	Remove(name string) error

	// ReadDir reads the directory and returns its entries sorted by name
	ReadDir(name string) ([]fs.DirEntry, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(path string, perm fs.FileMode) error
}

// OSFileSystem is the default implementation using the os package
type OSFileSystem struct{}

// Stat implements FileSystem.Stat
func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// ReadFile implements FileSystem.ReadFile
func (OSFileSystem) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// WriteFile implements FileSystem.WriteFile
func (OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// Rename implements FileSystem.Rename
func (OSFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Remove implements FileSystem.Remove
func (OSFileSystem) Remove(name string) error {
	return os.Remove(name)
}

// ReadDir implements FileSystem.ReadDir
func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

// MkdirAll implements FileSystem.MkdirAll
func (OSFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}
