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

// Package throttled implements the rate-limiting facade over a pluggable
// file-system backend. Every intercepted call is translated into an
// (operation class, cost) pair, checked against the shared config registry,
// and forwarded to the inner backend only once admitted. Backend errors pass
// through unchanged; the facade adds no synchronization around handle state.
package throttled

import (
	"fmt"
	"time"

	"ratelimitfs"
	"ratelimitfs/config"
	"ratelimitfs/fsys"
	"ratelimitfs/telemetry"

	"go.uber.org/atomic"
)

// FS wraps an inner file-system and gates entry to it according to the
// limits configured for its backend name. Limits are looked up under the
// inner backend's own name, so configuration written before or after
// wrapping applies equally.
type FS struct {
	inner   fsys.FileSystem
	reg     *config.Registry
	backend string
}

// Wrap builds a facade over inner, consulting reg for limits.
func Wrap(inner fsys.FileSystem, reg *config.Registry) *FS {
	return &FS{inner: inner, reg: reg, backend: inner.Name()}
}

// Inner returns the wrapped backend.
func (t *FS) Inner() fsys.FileSystem { return t.inner }

// Backend returns the name limits are looked up under.
func (t *FS) Backend() string { return t.backend }

// admit runs the admission algorithm for one intercepted call:
//
//  1. no limiter configured for (backend, op): forward immediately;
//  2. TryAcquire admitted: forward;
//  3. wait required and mode is non-blocking: fail with ErrRateLimited,
//     reporting the required wait in milliseconds;
//  4. wait required and mode is blocking: sleep on the limiter's clock until
//     admitted;
//  5. cost larger than burst: fail with ErrExceedsBurst in either mode.
func (t *FS) admit(op config.OperationClass, cost uint64) error {
	ev, ok := t.reg.Get(t.backend, op)
	if !ok || ev.Limiter == nil {
		return nil
	}
	d := ev.Limiter.TryAcquire(cost)
	switch d.Outcome {
	case ratelimitfs.OutcomeAdmitted:
		telemetry.ObserveAdmitted(t.backend, op.String(), cost)
		return nil
	case ratelimitfs.OutcomeExceeds:
		telemetry.ObserveExceedsBurst(t.backend, op.String(), cost)
		return fmt.Errorf("%w: %s request of %d units exceeds burst %d", ratelimitfs.ErrExceedsBurst, op, cost, ev.Burst)
	}
	if ev.Mode == config.ModeNonBlocking {
		telemetry.ObserveRateLimited(t.backend, op.String(), cost, d.Wait)
		return fmt.Errorf("%w: %s would need to wait %dms", ratelimitfs.ErrRateLimited, op, waitMillis(d.Wait))
	}
	if err := ev.Limiter.Acquire(cost); err != nil {
		telemetry.ObserveExceedsBurst(t.backend, op.String(), cost)
		return fmt.Errorf("%w: %s request of %d units exceeds burst %d", ratelimitfs.ErrExceedsBurst, op, cost, ev.Burst)
	}
	telemetry.ObserveBlocked(t.backend, op.String(), cost, d.Wait)
	return nil
}

// waitMillis truncates a wait to whole milliseconds, except that a positive
// sub-millisecond wait reports as 1 so it never reads as "0ms".
func waitMillis(d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		return 1
	}
	return ms
}

// handle wraps an inner handle by containment. It holds only the inner
// handle and its closed flag; it keeps no reference back to the facade.
type handle struct {
	inner  fsys.FileHandle
	closed atomic.Bool
}

func (h *handle) Path() string { return h.inner.Path() }

// Close forwards to the inner close exactly once; later calls are no-ops.
func (h *handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	return h.inner.Close()
}

// unwrap recovers the inner handle for delegation. Foreign handles are
// passed through so a backend can reject them itself.
func unwrap(h fsys.FileHandle) fsys.FileHandle {
	if th, ok := h.(*handle); ok {
		return th.inner
	}
	return h
}

func (t *FS) Name() string          { return "RateLimited(" + t.inner.Name() + ")" }
func (t *FS) PathSeparator() string { return t.inner.PathSeparator() }

// OpenFile is rate-limited as a metadata operation, uniformly for every
// access mode.
func (t *FS) OpenFile(path string, flags fsys.OpenFlags) (fsys.FileHandle, error) {
	if err := t.admit(config.OpStat, 1); err != nil {
		return nil, err
	}
	inner, err := t.inner.OpenFile(path, flags)
	if err != nil {
		return nil, err
	}
	return &handle{inner: inner}, nil
}

func (t *FS) Read(h fsys.FileHandle, p []byte) (int, error) {
	if err := t.admit(config.OpRead, uint64(len(p))); err != nil {
		return 0, err
	}
	return t.inner.Read(unwrap(h), p)
}

func (t *FS) ReadAt(h fsys.FileHandle, p []byte, off int64) (int, error) {
	if err := t.admit(config.OpRead, uint64(len(p))); err != nil {
		return 0, err
	}
	return t.inner.ReadAt(unwrap(h), p, off)
}

func (t *FS) Write(h fsys.FileHandle, p []byte) (int, error) {
	if err := t.admit(config.OpWrite, uint64(len(p))); err != nil {
		return 0, err
	}
	return t.inner.Write(unwrap(h), p)
}

func (t *FS) WriteAt(h fsys.FileHandle, p []byte, off int64) (int, error) {
	if err := t.admit(config.OpWrite, uint64(len(p))); err != nil {
		return 0, err
	}
	return t.inner.WriteAt(unwrap(h), p, off)
}

// Truncate mutates metadata only, so it is costed as a single write unit.
func (t *FS) Truncate(h fsys.FileHandle, size int64) error {
	if err := t.admit(config.OpWrite, 1); err != nil {
		return err
	}
	return t.inner.Truncate(unwrap(h), size)
}

// Sync is not rate-limited.
func (t *FS) Sync(h fsys.FileHandle) error { return t.inner.Sync(unwrap(h)) }

func (t *FS) FileSize(h fsys.FileHandle) (int64, error) {
	if err := t.admit(config.OpStat, 1); err != nil {
		return 0, err
	}
	return t.inner.FileSize(unwrap(h))
}

func (t *FS) LastModified(h fsys.FileHandle) (time.Time, error) {
	if err := t.admit(config.OpStat, 1); err != nil {
		return time.Time{}, err
	}
	return t.inner.LastModified(unwrap(h))
}

func (t *FS) FileType(h fsys.FileHandle) (fsys.FileType, error) {
	if err := t.admit(config.OpStat, 1); err != nil {
		return fsys.FileTypeUnknown, err
	}
	return t.inner.FileType(unwrap(h))
}

func (t *FS) OnDiskFile(h fsys.FileHandle) bool { return t.inner.OnDiskFile(unwrap(h)) }

// Seek family and capability probes are not rate-limited.
func (t *FS) Seek(h fsys.FileHandle, pos int64) error { return t.inner.Seek(unwrap(h), pos) }
func (t *FS) Reset(h fsys.FileHandle) error           { return t.inner.Reset(unwrap(h)) }
func (t *FS) SeekPosition(h fsys.FileHandle) (int64, error) {
	return t.inner.SeekPosition(unwrap(h))
}
func (t *FS) CanSeek() bool { return t.inner.CanSeek() }

func (t *FS) FileExists(path string) (bool, error) {
	if err := t.admit(config.OpStat, 1); err != nil {
		return false, err
	}
	return t.inner.FileExists(path)
}

func (t *FS) IsPipe(path string) (bool, error) {
	if err := t.admit(config.OpStat, 1); err != nil {
		return false, err
	}
	return t.inner.IsPipe(path)
}

func (t *FS) DirectoryExists(path string) (bool, error) {
	if err := t.admit(config.OpStat, 1); err != nil {
		return false, err
	}
	return t.inner.DirectoryExists(path)
}

func (t *FS) RemoveFile(path string) error {
	if err := t.admit(config.OpDelete, 1); err != nil {
		return err
	}
	return t.inner.RemoveFile(path)
}

func (t *FS) TryRemoveFile(path string) (bool, error) {
	if err := t.admit(config.OpDelete, 1); err != nil {
		return false, err
	}
	return t.inner.TryRemoveFile(path)
}

func (t *FS) CreateDirectory(path string) error {
	if err := t.admit(config.OpWrite, 1); err != nil {
		return err
	}
	return t.inner.CreateDirectory(path)
}

func (t *FS) RemoveDirectory(path string) error {
	if err := t.admit(config.OpDelete, 1); err != nil {
		return err
	}
	return t.inner.RemoveDirectory(path)
}

func (t *FS) MoveFile(src, dst string) error {
	if err := t.admit(config.OpWrite, 1); err != nil {
		return err
	}
	return t.inner.MoveFile(src, dst)
}

func (t *FS) Glob(pattern string) ([]string, error) {
	if err := t.admit(config.OpList, 1); err != nil {
		return nil, err
	}
	return t.inner.Glob(pattern)
}

func (t *FS) ListFiles(dir string, fn func(fsys.ListEntry)) error {
	if err := t.admit(config.OpList, 1); err != nil {
		return err
	}
	return t.inner.ListFiles(dir, fn)
}
