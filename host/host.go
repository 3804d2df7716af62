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

// Package host ties the pieces together for one embedding instance: a
// registry of named file-system backends, the shared rate-limit config
// registry, the string-typed configuration surface, and the wrap operation
// that swaps a backend for its rate-limited facade.
package host

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"ratelimitfs"
	"ratelimitfs/config"
	"ratelimitfs/fsys"
	"ratelimitfs/throttled"
)

// Wildcard matches every backend or every operation class in Clear.
const Wildcard = "*"

// WrappedName derives the registration name for a backend's facade.
func WrappedName(name string) string { return "RateLimited(" + name + ")" }

// Host is a per-instance singleton owning the named backends and their
// rate-limit configuration. It lives for the life of the embedding instance.
type Host struct {
	mu       sync.Mutex
	backends map[string]fsys.FileSystem
	reg      *config.Registry
}

// New returns an empty host with a fresh config registry.
func New() *Host {
	return &Host{
		backends: make(map[string]fsys.FileSystem),
		reg:      config.NewRegistry(),
	}
}

// Config exposes the shared config registry, e.g. for injecting a test
// clock.
func (h *Host) Config() *config.Registry { return h.reg }

// Register adds a backend under its own name. Registering a name twice is a
// caller mistake.
func (h *Host) Register(fs fsys.FileSystem) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	name := fs.Name()
	if _, ok := h.backends[name]; ok {
		return fmt.Errorf("%w: backend %q already registered", ratelimitfs.ErrInvalidConfig, name)
	}
	h.backends[name] = fs
	logrus.WithField("backend", name).Debug("backend registered")
	return nil
}

// Unregister removes a backend by name. It reports whether one existed.
func (h *Host) Unregister(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.backends[name]; !ok {
		return false
	}
	delete(h.backends, name)
	return true
}

// Get looks a backend up by name.
func (h *Host) Get(name string) (fsys.FileSystem, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fs, ok := h.backends[name]
	return fs, ok
}

// Names returns every registered backend name, sorted.
func (h *Host) Names() []string {
	h.mu.Lock()
	names := make([]string, 0, len(h.backends))
	for name := range h.backends {
		names = append(names, name)
	}
	h.mu.Unlock()
	sort.Strings(names)
	return names
}

// Wrap extracts the named backend, wraps it in a rate-limiting facade, and
// registers the facade back under the derived name. The inner backend stays
// registered under its original name; limits keyed by that name govern the
// facade. Wrapping an unknown backend fails with ErrInvalidConfig.
func (h *Host) Wrap(name string) (*throttled.FS, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	inner, ok := h.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q", ratelimitfs.ErrInvalidConfig, name)
	}
	wrapped := WrappedName(name)
	if _, ok := h.backends[wrapped]; ok {
		return nil, fmt.Errorf("%w: backend %q already wrapped", ratelimitfs.ErrInvalidConfig, name)
	}
	facade := throttled.Wrap(inner, h.reg)
	h.backends[wrapped] = facade
	logrus.WithFields(logrus.Fields{"backend": name, "wrapped": wrapped}).Info("backend wrapped")
	return facade, nil
}

// SetQuota declares (or clears, with value 0) the rate for one backend and
// operation, parsing op and mode from their string forms.
func (h *Host) SetQuota(backend, opName string, value int64, modeName string) error {
	op, err := config.ParseOp(opName)
	if err != nil {
		return err
	}
	mode, err := config.ParseMode(modeName)
	if err != nil {
		return err
	}
	return h.reg.SetRate(backend, op, value, mode)
}

// SetBurst declares (or clears, with value 0) the per-request cap for one
// backend and byte-bearing operation.
func (h *Host) SetBurst(backend, opName string, value int64) error {
	op, err := config.ParseOp(opName)
	if err != nil {
		return err
	}
	return h.reg.SetBurst(backend, op, value)
}

// Clear erases configured limits. Either slot accepts the "*" wildcard:
// backend "*" clears everything; op "*" clears every operation for one
// backend.
func (h *Host) Clear(backend, opName string) error {
	if backend == Wildcard {
		n := h.reg.ClearAll()
		logrus.WithField("cleared", n).Debug("all rate limits cleared")
		return nil
	}
	if opName == Wildcard {
		n := h.reg.ClearBackend(backend)
		logrus.WithFields(logrus.Fields{"backend": backend, "cleared": n}).Debug("backend rate limits cleared")
		return nil
	}
	op, err := config.ParseOp(opName)
	if err != nil {
		return err
	}
	h.reg.Clear(backend, op)
	return nil
}

// Limits returns a snapshot of every configured (backend, op, rate, mode,
// burst) tuple for introspection.
func (h *Host) Limits() []config.EntryView {
	return h.reg.Snapshot()
}
