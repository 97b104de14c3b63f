// Package source reads the named source units of a project from the project
// directory. It holds no state beyond the directory itself.
package source

import (
	"fmt"
	"os"

	"github.com/vk/loopctl/internal/fsutil"
)

// IOError reports a unit that could not be read at the moment of reading.
type IOError struct {
	Name string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Name, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Store reads units relative to Dir.
type Store struct {
	Dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Exists reports whether name resolves to a regular file under Dir.
func (s *Store) Exists(name string) bool {
	path, err := fsutil.ResolveUnder(s.Dir, name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Read returns the current contents of name. Concurrent writers are not
// guarded against; whatever is on disk at the time of the read wins.
func (s *Store) Read(name string) (string, error) {
	path, err := fsutil.ResolveUnder(s.Dir, name)
	if err != nil {
		return "", &IOError{Name: name, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &IOError{Name: name, Path: path, Err: err}
	}
	return string(data), nil
}
