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

package ratelimitfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestMockClock_SleepAdvances verifies the mock's defining property: sleeping
// advances stored time instead of suspending the caller, and past-directed
// sleeps are no-ops.
func TestMockClock_SleepAdvances(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewMockClock(start)
	assert.Equal(t, start, c.Now())

	c.SleepFor(time.Second)
	assert.Equal(t, start.Add(time.Second), c.Now())

	c.SleepFor(-time.Second)
	assert.Equal(t, start.Add(time.Second), c.Now())

	c.SleepUntil(start.Add(3 * time.Second))
	assert.Equal(t, start.Add(3*time.Second), c.Now())

	// SleepUntil an instant already in the past must not rewind.
	c.SleepUntil(start)
	assert.Equal(t, start.Add(3*time.Second), c.Now())

	c.Advance(500 * time.Millisecond)
	assert.Equal(t, start.Add(3500*time.Millisecond), c.Now())
}

// TestMockClock_ZeroStart pins the non-zero default epoch so nanosecond
// arithmetic in the limiter never sees time zero.
func TestMockClock_ZeroStart(t *testing.T) {
	c := NewMockClock(time.Time{})
	assert.False(t, c.Now().IsZero())
	assert.Positive(t, c.Now().UnixNano())
}

// TestRealClock_Sleep is a coarse sanity check that the real clock's sleeps
// actually suspend the caller.
func TestRealClock_Sleep(t *testing.T) {
	c := RealClock()
	start := c.Now()
	c.SleepFor(10 * time.Millisecond)
	assert.GreaterOrEqual(t, c.Now().Sub(start), 10*time.Millisecond)

	start = c.Now()
	c.SleepUntil(start.Add(10 * time.Millisecond))
	assert.GreaterOrEqual(t, c.Now().Sub(start), 10*time.Millisecond)

	// Past-directed sleeps return immediately.
	c.SleepUntil(start.Add(-time.Hour))
	c.SleepFor(-time.Hour)
}
