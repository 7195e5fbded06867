// Package mocks provides test doubles for the ports.
package mocks

import (
	"errors"
	"os"
	"sync"

	"github.com/felixgeelhaar/afm/internal/ports"
)

// ErrInjected is the default error returned by injected faults.
var ErrInjected = errors.New("injected fault")

// Op names a file system operation that can be faulted.
type Op string

// Faultable operations.
const (
	OpRename          Op = "rename"
	OpRemoveAll       Op = "remove_all"
	OpWriteFileAtomic Op = "write_file_atomic"
	OpCopyFile        Op = "copy_file"
	OpMkdirAll        Op = "mkdir_all"
)

// Call records one mutating operation.
type Call struct {
	Op   Op
	Path string
}

type fault struct {
	op    Op
	match func(path string) bool
	err   error
	times int // remaining triggers; <0 means unlimited
}

// FileSystem is a thread-safe test double for ports.FileSystem. It delegates
// to an underlying implementation and fails selected operations on demand,
// which simulates a process dying between two steps of a multi-step write.
type FileSystem struct {
	next ports.FileSystem

	mu     sync.Mutex
	faults []*fault
	calls  []Call
}

// NewFileSystem wraps next.
func NewFileSystem(next ports.FileSystem) *FileSystem {
	return &FileSystem{next: next}
}

// FailOn makes every op whose target path satisfies match return err.
// For Rename and CopyFile the target is the destination path.
func (fs *FileSystem) FailOn(op Op, match func(path string) bool, err error) {
	fs.addFault(op, match, err, -1)
}

// FailOnce is FailOn limited to the first matching call.
func (fs *FileSystem) FailOnce(op Op, match func(path string) bool, err error) {
	fs.addFault(op, match, err, 1)
}

func (fs *FileSystem) addFault(op Op, match func(path string) bool, err error, times int) {
	if err == nil {
		err = ErrInjected
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.faults = append(fs.faults, &fault{op: op, match: match, err: err, times: times})
}

// Reset clears faults and recorded calls.
func (fs *FileSystem) Reset() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.faults = nil
	fs.calls = nil
}

// Calls returns the mutating calls made so far.
func (fs *FileSystem) Calls() []Call {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]Call(nil), fs.calls...)
}

// CallCount returns how many times op was called.
func (fs *FileSystem) CallCount(op Op) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := 0
	for _, c := range fs.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (fs *FileSystem) check(op Op, path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.calls = append(fs.calls, Call{Op: op, Path: path})
	for _, f := range fs.faults {
		if f.op != op || f.times == 0 {
			continue
		}
		if f.match != nil && !f.match(path) {
			continue
		}
		if f.times > 0 {
			f.times--
		}
		return &os.PathError{Op: string(op), Path: path, Err: f.err}
	}
	return nil
}

// ReadFile delegates.
func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	return fs.next.ReadFile(path)
}

// WriteFileAtomic delegates unless faulted.
func (fs *FileSystem) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := fs.check(OpWriteFileAtomic, path); err != nil {
		return err
	}
	return fs.next.WriteFileAtomic(path, data, perm)
}

// Exists delegates.
func (fs *FileSystem) Exists(path string) bool {
	return fs.next.Exists(path)
}

// IsDir delegates.
func (fs *FileSystem) IsDir(path string) bool {
	return fs.next.IsDir(path)
}

// ReadDir delegates.
func (fs *FileSystem) ReadDir(path string) ([]os.DirEntry, error) {
	return fs.next.ReadDir(path)
}

// MkdirAll delegates unless faulted.
func (fs *FileSystem) MkdirAll(path string, perm os.FileMode) error {
	if err := fs.check(OpMkdirAll, path); err != nil {
		return err
	}
	return fs.next.MkdirAll(path, perm)
}

// Rename delegates unless faulted.
func (fs *FileSystem) Rename(oldPath, newPath string) error {
	if err := fs.check(OpRename, newPath); err != nil {
		return err
	}
	return fs.next.Rename(oldPath, newPath)
}

// RemoveAll delegates unless faulted.
func (fs *FileSystem) RemoveAll(path string) error {
	if err := fs.check(OpRemoveAll, path); err != nil {
		return err
	}
	return fs.next.RemoveAll(path)
}

// CopyFile delegates unless faulted.
func (fs *FileSystem) CopyFile(src, dest string) error {
	if err := fs.check(OpCopyFile, dest); err != nil {
		return err
	}
	return fs.next.CopyFile(src, dest)
}

// Ensure FileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*FileSystem)(nil)
