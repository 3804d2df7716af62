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
	"errors"
	"sync"
	"testing"
	"time"

	"ratelimitfs"
)

// TestRegistry_SetRateLifecycle verifies the insert / update / erase rules:
// rate 0 on a missing key is a no-op, zeroing both knobs erases the entry,
// and a key exists iff it has a limiter.
func TestRegistry_SetRateLifecycle(t *testing.T) {
	r := NewRegistry()

	// rate=0 with no prior entry: no-op.
	if err := r.SetRate("fs", OpRead, 0, ModeBlocking); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Get("fs", OpRead); ok {
		t.Fatal("rate=0 on a missing key must not create an entry")
	}

	if err := r.SetRate("fs", OpRead, 100, ModeNonBlocking); err != nil {
		t.Fatal(err)
	}
	ev, ok := r.Get("fs", OpRead)
	if !ok || ev.Limiter == nil {
		t.Fatal("configured key must have a limiter")
	}
	if ev.Rate != 100 || ev.Mode != ModeNonBlocking || ev.Burst != 0 {
		t.Fatalf("unexpected view: %+v", ev)
	}

	// Zeroing the rate with no burst erases the entry.
	if err := r.SetRate("fs", OpRead, 0, ModeNonBlocking); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Get("fs", OpRead); ok {
		t.Fatal("entry should be erased once rate and burst are both zero")
	}
	if lim := r.Limiter("fs", OpRead); lim != nil {
		t.Fatal("erased key must resolve to a nil limiter")
	}
}

// TestRegistry_SetBurstRules verifies burst is accepted only for byte-bearing
// classes, that rejection leaves the registry unchanged, and the
// erase-on-double-zero rule in both orders.
func TestRegistry_SetBurstRules(t *testing.T) {
	r := NewRegistry()

	for _, op := range []OperationClass{OpStat, OpList, OpDelete} {
		if err := r.SetBurst("fs", op, 10); !errors.Is(err, ratelimitfs.ErrInvalidConfig) {
			t.Fatalf("SetBurst on %v: expected ErrInvalidConfig, got %v", op, err)
		}
		if _, ok := r.Get("fs", op); ok {
			t.Fatalf("rejected SetBurst on %v must not create an entry", op)
		}
	}

	if err := r.SetBurst("fs", OpWrite, -1); !errors.Is(err, ratelimitfs.ErrInvalidConfig) {
		t.Fatalf("negative burst: expected ErrInvalidConfig, got %v", err)
	}
	if err := r.SetRate("fs", OpWrite, -1, ModeBlocking); !errors.Is(err, ratelimitfs.ErrInvalidConfig) {
		t.Fatalf("negative rate: expected ErrInvalidConfig, got %v", err)
	}

	// set rate then burst, then zero both in either order: entry gone.
	if err := r.SetRate("fs", OpRead, 10, ModeBlocking); err != nil {
		t.Fatal(err)
	}
	if err := r.SetBurst("fs", OpRead, 20); err != nil {
		t.Fatal(err)
	}
	if err := r.SetRate("fs", OpRead, 0, ModeBlocking); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Get("fs", OpRead); !ok {
		t.Fatal("burst is still set; entry must survive")
	}
	if err := r.SetBurst("fs", OpRead, 0); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Get("fs", OpRead); ok {
		t.Fatal("zeroing both knobs must erase the entry")
	}
}

// TestRegistry_RebuildReplacesLimiter verifies reconfiguration swaps in a
// fresh limiter while an already-fetched handle stays functional and
// isolated.
func TestRegistry_RebuildReplacesLimiter(t *testing.T) {
	r := NewRegistry()
	if err := r.SetRate("fs", OpRead, 10, ModeNonBlocking); err != nil {
		t.Fatal(err)
	}
	old := r.Limiter("fs", OpRead)
	if old == nil {
		t.Fatal("expected a limiter")
	}

	// Old handle keeps serving after a clear.
	r.Clear("fs", OpRead)
	if d := old.TryAcquire(1); d.Outcome != ratelimitfs.OutcomeAdmitted {
		t.Fatalf("old handle should still admit, got %v", d.Outcome)
	}

	// A new configuration builds a distinct limiter with fresh state.
	if err := r.SetRate("fs", OpRead, 10, ModeNonBlocking); err != nil {
		t.Fatal(err)
	}
	replacement := r.Limiter("fs", OpRead)
	if replacement == nil || replacement == old {
		t.Fatal("expected a freshly built limiter after reconfiguration")
	}
}

// TestRegistry_ClearScopes verifies single-key, per-backend, and global
// clears.
func TestRegistry_ClearScopes(t *testing.T) {
	r := NewRegistry()
	seed := func() {
		for _, b := range []string{"a", "b"} {
			for _, op := range []OperationClass{OpRead, OpWrite, OpStat} {
				if err := r.SetRate(b, op, 5, ModeBlocking); err != nil {
					t.Fatal(err)
				}
			}
		}
	}

	seed()
	if !r.Clear("a", OpRead) {
		t.Fatal("Clear on an existing key should report true")
	}
	if r.Clear("a", OpRead) {
		t.Fatal("second Clear on the same key should report false")
	}
	if len(r.Snapshot()) != 5 {
		t.Fatalf("expected 5 entries after single clear, got %d", len(r.Snapshot()))
	}

	if n := r.ClearBackend("a"); n != 2 {
		t.Fatalf("ClearBackend removed %d, want 2", n)
	}
	if n := r.ClearAll(); n != 3 {
		t.Fatalf("ClearAll removed %d, want 3", n)
	}
	if len(r.Snapshot()) != 0 {
		t.Fatal("registry should be empty")
	}

	// Key equality is string-exact: clearing "A" never touches "a".
	seed()
	if n := r.ClearBackend("A"); n != 0 {
		t.Fatalf("ClearBackend(\"A\") removed %d entries from backend \"a\"", n)
	}
}

// TestRegistry_SnapshotOrder verifies enumeration is sorted by backend then
// operation class and carries the declared policy.
func TestRegistry_SnapshotOrder(t *testing.T) {
	r := NewRegistry()
	if err := r.SetRate("b", OpWrite, 2, ModeBlocking); err != nil {
		t.Fatal(err)
	}
	if err := r.SetRate("a", OpRead, 1, ModeNonBlocking); err != nil {
		t.Fatal(err)
	}
	if err := r.SetBurst("a", OpWrite, 30); err != nil {
		t.Fatal(err)
	}

	views := r.Snapshot()
	if len(views) != 3 {
		t.Fatalf("expected 3 views, got %d", len(views))
	}
	wantOrder := []Key{
		{Backend: "a", Op: OpRead},
		{Backend: "a", Op: OpWrite},
		{Backend: "b", Op: OpWrite},
	}
	for i, want := range wantOrder {
		if views[i].Backend != want.Backend || views[i].Op != want.Op {
			t.Fatalf("snapshot[%d] = (%s,%v), want (%s,%v)", i, views[i].Backend, views[i].Op, want.Backend, want.Op)
		}
	}
	if views[1].Burst != 30 || views[1].Rate != 0 {
		t.Fatalf("burst-only view drifted: %+v", views[1])
	}
}

// TestRegistry_SetClock verifies injected clocks reach rebuilt limiters:
// after the swap, admission timing follows the mock.
func TestRegistry_SetClock(t *testing.T) {
	r := NewRegistry()
	if err := r.SetRate("fs", OpRead, 10, ModeNonBlocking); err != nil {
		t.Fatal(err)
	}
	if err := r.SetBurst("fs", OpRead, 10); err != nil {
		t.Fatal(err)
	}

	clock := ratelimitfs.NewMockClock(time.Time{})
	r.SetClock(clock)

	lim := r.Limiter("fs", OpRead)
	if d := lim.TryAcquire(10); d.Outcome != ratelimitfs.OutcomeAdmitted {
		t.Fatalf("fresh rebuilt limiter should admit the burst, got %v", d.Outcome)
	}
	d := lim.TryAcquire(5)
	if d.Outcome != ratelimitfs.OutcomeWait {
		t.Fatalf("expected a wait, got %v", d.Outcome)
	}
	clock.Advance(d.Wait)
	if d := lim.TryAcquire(5); d.Outcome != ratelimitfs.OutcomeAdmitted {
		t.Fatalf("after advancing the mock the request should admit, got %v", d.Outcome)
	}
}

// TestRegistry_ConcurrentLookupAndReconfigure races lookups, admissions, and
// reconfiguration to shake out locking mistakes under -race.
func TestRegistry_ConcurrentLookupAndReconfigure(t *testing.T) {
	r := NewRegistry()
	if err := r.SetRate("fs", OpRead, 1_000_000, ModeNonBlocking); err != nil {
		t.Fatal(err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if err := r.SetRate("fs", OpRead, int64(1_000_000+i%7), ModeNonBlocking); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if lim := r.Limiter("fs", OpRead); lim != nil {
					lim.TryAcquire(1)
				}
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
}
