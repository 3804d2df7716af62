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

import "errors"

// Error taxonomy shared by the limiter core, the config registry, and the
// file-system facade. Callers classify with errors.Is; all layers wrap these
// sentinels with fmt.Errorf("...: %w", ...) to add context.
var (
	// ErrInvalidConfig marks caller mistakes in configuration: unknown
	// operation or mode strings, negative values, burst on an operation
	// class that does not carry bytes, or wrapping an unknown backend.
	ErrInvalidConfig = errors.New("invalid rate limit config")

	// ErrRateLimited is returned in non-blocking mode when admitting the
	// request would require waiting. The wrapping message carries the
	// required wait in milliseconds; retry policy is the caller's.
	ErrRateLimited = errors.New("rate limited")

	// ErrExceedsBurst is returned when a single request is larger than the
	// configured burst and therefore can never be admitted. The caller must
	// shrink the request or re-tune the burst.
	ErrExceedsBurst = errors.New("request exceeds burst")
)
