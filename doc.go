// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package drscal holds code to calibrate the waveforms of DRS digitizers.
//
// The drs package decodes the voltage and time calibration files of a
// digitizer board, the calib package binds them to the sampling frequency
// of the incoming pulses, the device package turns calibrated channels
// into device outputs and the stream package runs the whole chain as a
// TDAQ process.
package drscal // import "github.com/datastreaming/frontend-digitizers-calibration"

import (
	"fmt"
	"runtime/debug"
)

// Version returns the version of drscal and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	const root = "github.com/datastreaming/frontend-digitizers-calibration"
	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if m.Replace != nil {
			switch {
			case m.Replace.Version != "" && m.Replace.Path != "":
				return fmt.Sprintf("%s %s", m.Replace.Path, m.Replace.Version), m.Replace.Sum
			case m.Replace.Version != "":
				return m.Replace.Version, m.Replace.Sum
			case m.Replace.Path != "":
				return m.Replace.Path, m.Replace.Sum
			default:
				return m.Version + "*", ""
			}
		}
		return m.Version, m.Sum
	}
	return "", ""
}
