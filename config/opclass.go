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

// Package config holds the rate-limit configuration registry: the closed set
// of rate-limitable operation classes, the per-key policy entries, and the
// thread-safe keyed store mapping (backend, operation class) to a limiter.
package config

import (
	"fmt"
	"strings"

	"ratelimitfs"
)

// OperationClass is the closed enumeration of rate-limitable file-system
// operation kinds. Byte-bearing classes (read, write) are costed by byte
// count; the rest cost 1 per call.
type OperationClass uint8

const (
	// OpStat covers metadata queries: file open, existence checks,
	// size/time/type lookups.
	OpStat OperationClass = iota
	// OpRead covers reading bytes from a file.
	OpRead
	// OpWrite covers writing bytes plus metadata-mutating writes such as
	// truncate, directory creation, and file moves.
	OpWrite
	// OpList covers directory enumeration.
	OpList
	// OpDelete covers file and directory removal.
	OpDelete
)

// AllOps enumerates every operation class in canonical order.
var AllOps = [...]OperationClass{OpStat, OpRead, OpWrite, OpList, OpDelete}

// String returns the lowercase canonical form.
func (op OperationClass) String() string {
	switch op {
	case OpStat:
		return "stat"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpList:
		return "list"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("operationclass(%d)", uint8(op))
}

// ParseOp maps a case-insensitive operation name to its class. Unknown
// inputs fail with ErrInvalidConfig.
func ParseOp(s string) (OperationClass, error) {
	switch strings.ToLower(s) {
	case "stat":
		return OpStat, nil
	case "read":
		return OpRead, nil
	case "write":
		return OpWrite, nil
	case "list":
		return OpList, nil
	case "delete":
		return OpDelete, nil
	}
	return 0, fmt.Errorf("%w: unknown operation %q (want stat|read|write|list|delete)", ratelimitfs.ErrInvalidConfig, s)
}

// SupportsBurst reports whether a burst cap is meaningful for the class.
// Only byte-bearing operations carry one.
func (op OperationClass) SupportsBurst() bool {
	return op == OpRead || op == OpWrite
}

// Mode selects what happens when an admission would require waiting:
// blocking mode sleeps until capacity is available, non-blocking mode fails
// fast with a rate-limited error.
type Mode uint8

const (
	ModeBlocking Mode = iota
	ModeNonBlocking
)

// String returns the canonical form used in configuration and introspection.
func (m Mode) String() string {
	if m == ModeNonBlocking {
		return "non_blocking"
	}
	return "blocking"
}

// ParseMode maps a case-insensitive mode name, accepting the usual aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "blocking", "block":
		return ModeBlocking, nil
	case "non_blocking", "non-blocking", "nonblocking":
		return ModeNonBlocking, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q (want blocking|non_blocking)", ratelimitfs.ErrInvalidConfig, s)
}
