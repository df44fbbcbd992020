// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package calib binds the sampling frequency reported by a digitizer to
// the matching pair of voltage and time calibrations.
package calib // import "github.com/datastreaming/frontend-digitizers-calibration/calib"

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/datastreaming/frontend-digitizers-calibration/drs"
)

var (
	// ErrMissingMapping is returned when no calibration file is registered
	// for a sampling frequency.
	ErrMissingMapping = errors.New("calib: no calibration file for frequency")

	// ErrInvalidFrequency is returned when a non-positive sampling
	// frequency is resolved.
	ErrInvalidFrequency = errors.New("calib: invalid sampling frequency")
)

// Mapping associates sampling frequency codes to calibration file paths.
type Mapping struct {
	Voltage map[int]string // frequency -> vcal file
	Time    map[int]string // frequency -> tcal file
}

// Frequencies returns the sorted list of frequencies with a voltage
// calibration file.
func (m Mapping) Frequencies() []int {
	freqs := make([]int, 0, len(m.Voltage))
	for f := range m.Voltage {
		freqs = append(freqs, f)
	}
	sort.Ints(freqs)
	return freqs
}

func (m Mapping) clone() Mapping {
	o := Mapping{
		Voltage: make(map[int]string, len(m.Voltage)),
		Time:    make(map[int]string, len(m.Time)),
	}
	for k, v := range m.Voltage {
		o.Voltage[k] = v
	}
	for k, v := range m.Time {
		o.Time[k] = v
	}
	return o
}

// NoVoltageCalibrationError is returned by Manager.Resolve when no usable
// voltage calibration exists for a sampling frequency.
// Pulses acquired at that frequency can not be calibrated.
type NoVoltageCalibrationError struct {
	Frequency int
	Err       error
}

func (e *NoVoltageCalibrationError) Error() string {
	return fmt.Sprintf("calib: no voltage calibration for frequency %d: %v", e.Frequency, e.Err)
}

func (e *NoVoltageCalibrationError) Unwrap() error { return e.Err }

// Notifier is notified when a frequency transition leaves the manager
// without a voltage calibration.
type Notifier interface {
	Notify(err *NoVoltageCalibrationError) error
}

// Event describes one calibration load attempt.
type Event struct {
	Frequency int
	Kind      drs.Kind
	Path      string // empty for a synthetic time calibration
	Synthetic bool
	Err       error
	Duration  time.Duration
}
