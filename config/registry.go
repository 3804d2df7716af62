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

package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"ratelimitfs"
)

// Key identifies one configured limit: a backend name plus an operation
// class. Name equality is string-exact.
type Key struct {
	Backend string
	Op      OperationClass
}

// entry is the mutable per-key policy tuple. The limiter is rebuilt whenever
// rate, burst, or the registry clock changes; it is present iff at least one
// of rate and burst is non-zero.
type entry struct {
	rate    int64
	burst   int64
	mode    Mode
	limiter *ratelimitfs.Limiter
}

// EntryView is a snapshot of one configured key: the declared policy plus a
// shared handle to the limiter current at snapshot time. Holders of the
// handle keep using it even if the registry rebuilds or erases the entry
// afterwards; new lookups see the replacement.
type EntryView struct {
	Backend string
	Op      OperationClass
	Rate    int64
	Burst   int64
	Mode    Mode
	Limiter *ratelimitfs.Limiter
}

// Registry is the thread-safe store of rate-limit configuration, keyed by
// (backend name, operation class). A single mutex guards the map; it is held
// only for map updates and lookups, never across limiter execution, so
// reconfiguration is serialized while admissions stay lock-free on the
// limiter's own atomics.
type Registry struct {
	mu      sync.Mutex
	entries map[Key]*entry
	clock   ratelimitfs.Clock
}

// NewRegistry returns an empty registry building limiters on the real clock.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Key]*entry)}
}

// SetRate declares the steady-state rate (units per second) and mode for a
// key, creating, rebuilding, or erasing the entry as needed:
//
//   - rate 0 with no prior entry is a no-op;
//   - rate 0 that leaves both rate and burst at zero erases the entry;
//   - anything else inserts or updates, then rebuilds the limiter.
func (r *Registry) SetRate(backend string, op OperationClass, rate int64, mode Mode) error {
	if rate < 0 {
		return fmt.Errorf("%w: rate must be non-negative, got %d", ratelimitfs.ErrInvalidConfig, rate)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	k := Key{Backend: backend, Op: op}
	e, ok := r.entries[k]
	if !ok {
		if rate == 0 {
			return nil
		}
		e = &entry{}
		r.entries[k] = e
	}
	e.rate = rate
	e.mode = mode
	return r.rebuildLocked(k, e)
}

// SetBurst declares the per-request cap for a key. Burst applies only to
// byte-bearing classes; other classes are rejected with ErrInvalidConfig and
// the registry is left unchanged. Erase/insert/rebuild rules match SetRate.
func (r *Registry) SetBurst(backend string, op OperationClass, burst int64) error {
	if !op.SupportsBurst() {
		return fmt.Errorf("%w: burst applies only to read and write, not %s", ratelimitfs.ErrInvalidConfig, op)
	}
	if burst < 0 {
		return fmt.Errorf("%w: burst must be non-negative, got %d", ratelimitfs.ErrInvalidConfig, burst)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	k := Key{Backend: backend, Op: op}
	e, ok := r.entries[k]
	if !ok {
		if burst == 0 {
			return nil
		}
		e = &entry{}
		r.entries[k] = e
	}
	e.burst = burst
	return r.rebuildLocked(k, e)
}

// rebuildLocked reconciles an entry after a policy change: erase when both
// knobs are zero, otherwise replace the limiter with a fresh one (fresh
// state) bound to the current clock. Callers hold r.mu.
func (r *Registry) rebuildLocked(k Key, e *entry) error {
	if e.rate == 0 && e.burst == 0 {
		delete(r.entries, k)
		logrus.WithFields(logrus.Fields{"backend": k.Backend, "op": k.Op.String()}).
			Debug("rate limit cleared")
		return nil
	}
	q, err := ratelimitfs.NewQuota(e.rate, e.burst)
	if err != nil {
		// Unreachable given the zero/zero erase above; surface rather
		// than leave a limiterless entry behind.
		delete(r.entries, k)
		return err
	}
	e.limiter = ratelimitfs.NewLimiter(q, r.clock)
	logrus.WithFields(logrus.Fields{
		"backend": k.Backend,
		"op":      k.Op.String(),
		"rate":    e.rate,
		"burst":   e.burst,
		"mode":    e.mode.String(),
	}).Debug("rate limit configured")
	return nil
}

// Get returns a snapshot of the key's declared policy and a shared handle to
// its current limiter. ok is false when the key is not configured.
func (r *Registry) Get(backend string, op OperationClass) (EntryView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[Key{Backend: backend, Op: op}]
	if !ok {
		return EntryView{}, false
	}
	return EntryView{
		Backend: backend,
		Op:      op,
		Rate:    e.rate,
		Burst:   e.burst,
		Mode:    e.mode,
		Limiter: e.limiter,
	}, true
}

// Limiter returns the current limiter handle for a key, or nil when the key
// is not configured.
func (r *Registry) Limiter(backend string, op OperationClass) *ratelimitfs.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[Key{Backend: backend, Op: op}]; ok {
		return e.limiter
	}
	return nil
}

// Clear erases one key. It reports whether an entry existed.
func (r *Registry) Clear(backend string, op OperationClass) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := Key{Backend: backend, Op: op}
	if _, ok := r.entries[k]; !ok {
		return false
	}
	delete(r.entries, k)
	return true
}

// ClearBackend erases every operation class configured for one backend and
// returns the number of entries removed.
func (r *Registry) ClearBackend(backend string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.entries {
		if k.Backend == backend {
			delete(r.entries, k)
			n++
		}
	}
	return n
}

// ClearAll erases every entry and returns the number removed.
func (r *Registry) ClearAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.entries)
	r.entries = make(map[Key]*entry)
	return n
}

// Snapshot returns every configured key's view, sorted by backend then
// operation class, for introspection.
func (r *Registry) Snapshot() []EntryView {
	r.mu.Lock()
	views := make([]EntryView, 0, len(r.entries))
	for k, e := range r.entries {
		views = append(views, EntryView{
			Backend: k.Backend,
			Op:      k.Op,
			Rate:    e.rate,
			Burst:   e.burst,
			Mode:    e.mode,
			Limiter: e.limiter,
		})
	}
	r.mu.Unlock()

	sort.Slice(views, func(i, j int) bool {
		if views[i].Backend != views[j].Backend {
			return views[i].Backend < views[j].Backend
		}
		return views[i].Op < views[j].Op
	})
	return views
}

// SetClock replaces the clock used to build limiters and rebuilds every
// existing limiter under the lock, so new and rebuilt limiters observe the
// injected clock. In-flight callers keep the limiter handle they already
// fetched. A nil clock restores the real clock.
func (r *Registry) SetClock(c ratelimitfs.Clock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = c
	for k, e := range r.entries {
		if err := r.rebuildLocked(k, e); err != nil {
			// rebuildLocked erases zero/zero entries without error and
			// drops the entry itself if NewQuota fails; nothing further
			// to do.
			logrus.WithError(err).WithField("backend", k.Backend).
				Warn("dropping entry during clock swap")
		}
	}
}
