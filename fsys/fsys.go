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

// Package fsys defines the pluggable file-system capability set consumed by
// the rate-limiting facade. Backends are consumed through this interface
// only; the facade composes by containment, never by embedding a concrete
// implementation.
package fsys

import "time"

// FileType classifies a path or open handle.
type FileType uint8

const (
	FileTypeUnknown FileType = iota
	FileTypeRegular
	FileTypeDirectory
	FileTypePipe
	FileTypeSymlink
)

func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "regular"
	case FileTypeDirectory:
		return "directory"
	case FileTypePipe:
		return "pipe"
	case FileTypeSymlink:
		return "symlink"
	}
	return "unknown"
}

// OpenFlags select the access mode for OpenFile. Flags compose with |.
type OpenFlags int

const (
	OpenRead OpenFlags = 1 << iota
	OpenWrite
	OpenCreate
	OpenTruncate
	OpenAppend
)

// FileHandle is an open file issued by a backend. Handles are not
// thread-safe unless the backend makes them so.
type FileHandle interface {
	// Path returns the path the handle was opened with.
	Path() string
	// Close releases the handle. Backends may assume at most one call;
	// wrappers are responsible for idempotence.
	Close() error
}

// ListEntry is one directory child reported by ListFiles.
type ListEntry struct {
	Name  string
	IsDir bool
}

// FileSystem is the backend capability set. Every method returning an error
// passes backend errors through to the caller unchanged.
type FileSystem interface {
	// Name identifies the backend, e.g. in a host registry.
	Name() string
	// PathSeparator returns the separator the backend uses in paths.
	PathSeparator() string

	OpenFile(path string, flags OpenFlags) (FileHandle, error)
	Read(h FileHandle, p []byte) (int, error)
	ReadAt(h FileHandle, p []byte, off int64) (int, error)
	Write(h FileHandle, p []byte) (int, error)
	WriteAt(h FileHandle, p []byte, off int64) (int, error)
	Truncate(h FileHandle, size int64) error
	Sync(h FileHandle) error

	FileSize(h FileHandle) (int64, error)
	LastModified(h FileHandle) (time.Time, error)
	FileType(h FileHandle) (FileType, error)
	OnDiskFile(h FileHandle) bool

	Seek(h FileHandle, pos int64) error
	Reset(h FileHandle) error
	SeekPosition(h FileHandle) (int64, error)
	CanSeek() bool

	FileExists(path string) (bool, error)
	IsPipe(path string) (bool, error)
	DirectoryExists(path string) (bool, error)

	RemoveFile(path string) error
	TryRemoveFile(path string) (bool, error)
	CreateDirectory(path string) error
	RemoveDirectory(path string) error
	MoveFile(src, dst string) error

	Glob(pattern string) ([]string, error)
	ListFiles(dir string, fn func(ListEntry)) error
}
