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

// Package ratelimitfs implements the GCRA (Generic Cell Rate Algorithm)
// admission core used to rate-limit file-system traffic. A Limiter tracks a
// single theoretical arrival time (TAT) in an atomic integer and admits,
// delays, or rejects cost-n requests against a Quota, with nanosecond
// precision and no locks on the hot path.
package ratelimitfs

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// Outcome classifies a single admission attempt.
type Outcome uint8

const (
	// OutcomeAdmitted means the request was admitted and the limiter state
	// was advanced.
	OutcomeAdmitted Outcome = iota
	// OutcomeWait means admission would require waiting; state is untouched.
	OutcomeWait
	// OutcomeExceeds means the request is larger than the burst and can
	// never be admitted; state is untouched.
	OutcomeExceeds
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdmitted:
		return "admitted"
	case OutcomeWait:
		return "wait"
	case OutcomeExceeds:
		return "exceeds"
	}
	return "unknown"
}

// Decision is the result of TryAcquire. ReadyAt and Wait are meaningful only
// when Outcome is OutcomeWait.
type Decision struct {
	Outcome Outcome
	// ReadyAt is the earliest instant at which an identical request would
	// be admitted.
	ReadyAt time.Time
	// Wait is ReadyAt minus the observed now.
	Wait time.Duration
}

// Limiter is a GCRA rate limiter. The sole mutable state is the TAT, stored
// as nanoseconds since the Unix epoch in a single atomic 64-bit integer; all
// admissions are decided by a CAS loop, so concurrent callers never block one
// another. Admission publishes state only on success: a request that would
// have to wait reserves no capacity.
//
// A Limiter is safe for concurrent use provided its Clock is (the real clock
// is; MockClock is single-threaded by design).
type Limiter struct {
	quota Quota
	clock Clock
	tat   atomic.Int64
}

// NewLimiter builds a limiter over the given quota. A nil clock selects the
// real clock. The initial TAT is zero (epoch start), so an idle limiter
// admits up to its full burst immediately.
func NewLimiter(q Quota, c Clock) *Limiter {
	if c == nil {
		c = RealClock()
	}
	return &Limiter{quota: q, clock: c}
}

// Quota returns the quota the limiter was built from.
func (l *Limiter) Quota() Quota { return l.quota }

// TryAcquire runs admission for a request of cost n without ever sleeping.
//
//   - n == 0 is admitted unconditionally and never touches state.
//   - If the burst cap is on and n exceeds it, the outcome is OutcomeExceeds.
//   - If rate limiting is off, the request is admitted without touching state.
//   - Otherwise one GCRA attempt runs: admitted on success, or a Decision
//     carrying the future ready time. A CAS loss against a concurrent admitter
//     retries locally; it is not a wait.
func (l *Limiter) TryAcquire(n uint64) Decision {
	if n == 0 {
		return Decision{Outcome: OutcomeAdmitted}
	}
	if b := l.quota.burst; b > 0 && n > uint64(b) {
		return Decision{Outcome: OutcomeExceeds}
	}
	if l.quota.rate == 0 {
		// Burst-only quota: the size check above is the whole policy.
		return Decision{Outcome: OutcomeAdmitted}
	}

	inc := int64(satMulDuration(l.quota.emission, n))
	tol := int64(l.quota.tolerance)
	burstless := l.quota.burst == 0
	for {
		nowNs := l.clock.Now().UnixNano()
		tat := l.tat.Load()

		// max(tat, now) clamps clock regressions so the TAT stays
		// monotone.
		base := tat
		if nowNs > base {
			base = nowNs
		}
		newTat := satAddNanos(base, inc)
		// With a burst the increment is pre-charged against the credit
		// window; without one the quota degrades to strict pacing: a
		// request conforms once the previous TAT has passed.
		earliest := satAddNanos(newTat, -tol)
		if burstless {
			earliest = tat
		}
		if earliest > nowNs {
			// Do not publish newTat: pending requests reserve nothing.
			return Decision{
				Outcome: OutcomeWait,
				ReadyAt: time.Unix(0, earliest),
				Wait:    time.Duration(earliest - nowNs),
			}
		}
		if l.tat.CompareAndSwap(tat, newTat) {
			return Decision{Outcome: OutcomeAdmitted}
		}
		// Lost the CAS to a concurrent admitter; reload and retry.
	}
}

// Acquire admits a request of cost n, sleeping on the limiter's clock until
// capacity is available. It returns nil once admitted, or ErrExceedsBurst
// when n can never fit. There is no cancellation: callers that need a bounded
// wait should use TryAcquire and their own retry policy.
func (l *Limiter) Acquire(n uint64) error {
	for {
		d := l.TryAcquire(n)
		switch d.Outcome {
		case OutcomeAdmitted:
			return nil
		case OutcomeExceeds:
			return fmt.Errorf("%w: request of %d units exceeds burst %d", ErrExceedsBurst, n, l.quota.burst)
		}
		l.clock.SleepUntil(d.ReadyAt)
	}
}
