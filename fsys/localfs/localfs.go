// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package localfs trampolines the fsys capability set to the local disk. It
// exists so the facade has a real backend to wrap in tests, the demo daemon,
// and the load generator; it is not part of the rate-limiting core.
package localfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"ratelimitfs/fsys"
)

// FS is a local-disk backend. Paths are passed straight to the OS.
type FS struct {
	name string
}

// New returns a local backend registered under the given name.
func New(name string) *FS {
	if name == "" {
		name = "local"
	}
	return &FS{name: name}
}

type handle struct {
	f    *os.File
	path string
}

func (h *handle) Path() string { return h.path }
func (h *handle) Close() error { return h.f.Close() }

func (l *FS) Name() string          { return l.name }
func (l *FS) PathSeparator() string { return string(os.PathSeparator) }

func (l *FS) OpenFile(path string, flags fsys.OpenFlags) (fsys.FileHandle, error) {
	mode := 0
	switch {
	case flags&OpenRW() == OpenRW():
		mode = os.O_RDWR
	case flags&fsys.OpenWrite != 0:
		mode = os.O_WRONLY
	default:
		mode = os.O_RDONLY
	}
	if flags&fsys.OpenCreate != 0 {
		mode |= os.O_CREATE
	}
	if flags&fsys.OpenTruncate != 0 {
		mode |= os.O_TRUNC
	}
	if flags&fsys.OpenAppend != 0 {
		mode |= os.O_APPEND
	}
	f, err := os.OpenFile(path, mode, 0o644)
	if err != nil {
		return nil, err
	}
	return &handle{f: f, path: path}, nil
}

// OpenRW is the combined read-write flag set.
func OpenRW() fsys.OpenFlags { return fsys.OpenRead | fsys.OpenWrite }

func (l *FS) Read(h fsys.FileHandle, p []byte) (int, error) {
	f, err := file(h)
	if err != nil {
		return 0, err
	}
	n, err := f.Read(p)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (l *FS) ReadAt(h fsys.FileHandle, p []byte, off int64) (int, error) {
	f, err := file(h)
	if err != nil {
		return 0, err
	}
	n, err := f.ReadAt(p, off)
	if errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (l *FS) Write(h fsys.FileHandle, p []byte) (int, error) {
	f, err := file(h)
	if err != nil {
		return 0, err
	}
	return f.Write(p)
}

func (l *FS) WriteAt(h fsys.FileHandle, p []byte, off int64) (int, error) {
	f, err := file(h)
	if err != nil {
		return 0, err
	}
	return f.WriteAt(p, off)
}

func (l *FS) Truncate(h fsys.FileHandle, size int64) error {
	f, err := file(h)
	if err != nil {
		return err
	}
	return f.Truncate(size)
}

func (l *FS) Sync(h fsys.FileHandle) error {
	f, err := file(h)
	if err != nil {
		return err
	}
	return f.Sync()
}

func (l *FS) FileSize(h fsys.FileHandle) (int64, error) {
	info, err := stat(h)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (l *FS) LastModified(h fsys.FileHandle) (time.Time, error) {
	info, err := stat(h)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (l *FS) FileType(h fsys.FileHandle) (fsys.FileType, error) {
	info, err := stat(h)
	if err != nil {
		return fsys.FileTypeUnknown, err
	}
	return typeOf(info.Mode()), nil
}

func (l *FS) OnDiskFile(fsys.FileHandle) bool { return true }

func (l *FS) Seek(h fsys.FileHandle, pos int64) error {
	f, err := file(h)
	if err != nil {
		return err
	}
	_, err = f.Seek(pos, io.SeekStart)
	return err
}

func (l *FS) Reset(h fsys.FileHandle) error { return l.Seek(h, 0) }

func (l *FS) SeekPosition(h fsys.FileHandle) (int64, error) {
	f, err := file(h)
	if err != nil {
		return 0, err
	}
	return f.Seek(0, io.SeekCurrent)
}

func (l *FS) CanSeek() bool { return true }

func (l *FS) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (l *FS) IsPipe(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode()&os.ModeNamedPipe != 0, nil
}

func (l *FS) DirectoryExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (l *FS) RemoveFile(path string) error { return os.Remove(path) }

func (l *FS) TryRemoveFile(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (l *FS) CreateDirectory(path string) error { return os.Mkdir(path, 0o755) }

func (l *FS) RemoveDirectory(path string) error { return os.Remove(path) }

func (l *FS) MoveFile(src, dst string) error { return os.Rename(src, dst) }

func (l *FS) Glob(pattern string) ([]string, error) { return filepath.Glob(pattern) }

func (l *FS) ListFiles(dir string, fn func(fsys.ListEntry)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fn(fsys.ListEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return nil
}

func file(h fsys.FileHandle) (*os.File, error) {
	lh, ok := h.(*handle)
	if !ok {
		return nil, fmt.Errorf("localfs: foreign file handle %T", h)
	}
	return lh.f, nil
}

func stat(h fsys.FileHandle) (os.FileInfo, error) {
	f, err := file(h)
	if err != nil {
		return nil, err
	}
	return f.Stat()
}

func typeOf(mode os.FileMode) fsys.FileType {
	switch {
	case mode.IsRegular():
		return fsys.FileTypeRegular
	case mode.IsDir():
		return fsys.FileTypeDirectory
	case mode&os.ModeNamedPipe != 0:
		return fsys.FileTypePipe
	case mode&os.ModeSymlink != 0:
		return fsys.FileTypeSymlink
	}
	return fsys.FileTypeUnknown
}
