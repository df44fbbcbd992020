// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drs

// Set is the pair of voltage and time calibrations bound to one sampling
// frequency. A Set is immutable and safe for concurrent use.
type Set struct {
	Frequency int // sampling frequency code the set was resolved for

	Voltage *VoltageCalibration
	Time    *TimeCalibration
}

// Calibrate corrects in place the waveform wf of channel ch, acquired
// starting at trigger cell tc. See VoltageCalibration.Calibrate.
func (set *Set) Calibrate(wf []float32, tc, ch uint32) []float32 {
	return set.Voltage.Calibrate(wf, tc, ch)
}

// TimeAxis returns the time axis, in ns, of channel ch for trigger cell tc.
// See TimeCalibration.TimeAxis.
func (set *Set) TimeAxis(tc, ch uint32) []float64 {
	return set.Time.TimeAxis(tc, ch)
}

// Integrate returns the time-weighted sum, in V.ns, of the calibrated
// waveform wf of channel ch, acquired starting at trigger cell tc.
func (set *Set) Integrate(wf []float32, tc, ch uint32) float64 {
	var sum float64
	for i, v := range wf {
		sum += float64(v) * set.Time.CellWidth(tc, ch, i)
	}
	return sum
}
