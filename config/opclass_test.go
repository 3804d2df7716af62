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
	"testing"

	"ratelimitfs"
)

// TestParseOp covers the closed enumeration: canonical names, case
// insensitivity, and rejection of unknown inputs.
func TestParseOp(t *testing.T) {
	cases := []struct {
		in   string
		want OperationClass
	}{
		{"stat", OpStat},
		{"read", OpRead},
		{"write", OpWrite},
		{"list", OpList},
		{"delete", OpDelete},
		{"READ", OpRead},
		{"Write", OpWrite},
		{"dElEtE", OpDelete},
	}
	for _, tc := range cases {
		got, err := ParseOp(tc.in)
		if err != nil {
			t.Fatalf("ParseOp(%q) unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseOp(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, in := range []string{"", "open", "readwrite", "*"} {
		if _, err := ParseOp(in); !errors.Is(err, ratelimitfs.ErrInvalidConfig) {
			t.Errorf("ParseOp(%q) expected ErrInvalidConfig, got %v", in, err)
		}
	}
}

// TestOperationClass_RoundTrip verifies the formatter returns the canonical
// lowercase form the parser accepts.
func TestOperationClass_RoundTrip(t *testing.T) {
	for _, op := range AllOps {
		parsed, err := ParseOp(op.String())
		if err != nil {
			t.Fatalf("round trip of %v: %v", op, err)
		}
		if parsed != op {
			t.Errorf("round trip of %v gave %v", op, parsed)
		}
	}
}

// TestOperationClass_SupportsBurst pins the byte-bearing subset.
func TestOperationClass_SupportsBurst(t *testing.T) {
	want := map[OperationClass]bool{
		OpStat:   false,
		OpRead:   true,
		OpWrite:  true,
		OpList:   false,
		OpDelete: false,
	}
	for op, expect := range want {
		if got := op.SupportsBurst(); got != expect {
			t.Errorf("%v.SupportsBurst() = %v, want %v", op, got, expect)
		}
	}
}

// TestParseMode covers the accepted aliases and unknown-mode rejection.
func TestParseMode(t *testing.T) {
	blocking := []string{"blocking", "block", "BLOCKING", "Block"}
	for _, in := range blocking {
		m, err := ParseMode(in)
		if err != nil || m != ModeBlocking {
			t.Errorf("ParseMode(%q) = (%v, %v), want blocking", in, m, err)
		}
	}
	nonBlocking := []string{"non_blocking", "non-blocking", "nonblocking", "NON_BLOCKING", "NonBlocking"}
	for _, in := range nonBlocking {
		m, err := ParseMode(in)
		if err != nil || m != ModeNonBlocking {
			t.Errorf("ParseMode(%q) = (%v, %v), want non_blocking", in, m, err)
		}
	}
	for _, in := range []string{"", "async", "noblock"} {
		if _, err := ParseMode(in); !errors.Is(err, ratelimitfs.ErrInvalidConfig) {
			t.Errorf("ParseMode(%q) expected ErrInvalidConfig, got %v", in, err)
		}
	}

	if ModeBlocking.String() != "blocking" || ModeNonBlocking.String() != "non_blocking" {
		t.Errorf("mode formatter drifted: %q %q", ModeBlocking, ModeNonBlocking)
	}
}
