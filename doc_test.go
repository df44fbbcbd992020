// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drscal

import (
	"runtime/debug"
	"testing"
)

func TestVersionOf(t *testing.T) {
	const root = "github.com/datastreaming/frontend-digitizers-calibration"
	for _, tc := range []struct {
		name string
		b    *debug.BuildInfo
		ver  string
		sum  string
	}{
		{name: "nil"},
		{
			name: "not-a-dep",
			b: &debug.BuildInfo{Deps: []*debug.Module{
				{Path: "github.com/go-daq/tdaq", Version: "v0.14.2"},
			}},
		},
		{
			name: "dep",
			b: &debug.BuildInfo{Deps: []*debug.Module{
				{Path: root, Version: "v0.3.0", Sum: "h1:xyz="},
			}},
			ver: "v0.3.0",
			sum: "h1:xyz=",
		},
		{
			name: "replace-path",
			b: &debug.BuildInfo{Deps: []*debug.Module{
				{Path: root, Version: "v0.3.0", Replace: &debug.Module{Path: "../drscal"}},
			}},
			ver: "../drscal",
		},
		{
			name: "replace-version",
			b: &debug.BuildInfo{Deps: []*debug.Module{
				{Path: root, Version: "v0.3.0", Replace: &debug.Module{Path: "example.org/fork", Version: "v0.3.1", Sum: "h1:abc="}},
			}},
			ver: "example.org/fork v0.3.1",
			sum: "h1:abc=",
		},
		{
			name: "replace-empty",
			b: &debug.BuildInfo{Deps: []*debug.Module{
				{Path: root, Version: "v0.3.0", Replace: &debug.Module{}},
			}},
			ver: "v0.3.0*",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ver, sum := versionOf(tc.b)
			if ver != tc.ver || sum != tc.sum {
				t.Fatalf("invalid version: got=(%q, %q), want=(%q, %q)", ver, sum, tc.ver, tc.sum)
			}
		})
	}
}
