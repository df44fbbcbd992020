// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drs

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/datastreaming/frontend-digitizers-calibration/internal/mmap"
)

const (
	nsPerSecond = 1e9

	// cumLen is the length of the zero-prefixed running sum of the doubled
	// duration vector: any window of NumCells consecutive cells, starting
	// at any trigger cell, fits in it.
	cumLen = 2*NumCells - 1
)

// TimeCalibration reconstructs the time axis of a waveform from the
// per-cell durations of a time calibration record.
type TimeCalibration struct {
	rec       *TimeRecord
	synthetic bool

	axes []float64 // [NumChannels][NumCells][NumCells], in ns
}

// LoadTime reads, validates and unrolls the named time calibration file.
func LoadTime(fname string) (*TimeCalibration, error) {
	rec, err := ReadTime(fname)
	if err != nil {
		return nil, err
	}
	return NewTimeCalibration(rec), nil
}

// ReadTime reads and validates the named time calibration file, without
// building its time axes.
func ReadTime(fname string) (*TimeRecord, error) {
	h, err := mmap.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("drs: could not open tcal file: %w", err)
	}
	defer h.Close()

	rec, err := DecodeTime(h.Bytes())
	if err != nil {
		return nil, fmt.Errorf("drs: could not load tcal file %q: %w", fname, err)
	}
	return rec, nil
}

// NewTimeCalibration creates a time calibration from a decoded record.
// The record must not be modified afterwards.
func NewTimeCalibration(rec *TimeRecord) *TimeCalibration {
	tc := &TimeCalibration{
		rec:  rec,
		axes: make([]float64, NumChannels*NumCells*NumCells),
	}

	var grp errgroup.Group
	grp.SetLimit(runtime.GOMAXPROCS(0))
	for ch := range rec.Duration {
		ch := ch
		grp.Go(func() error {
			tc.unroll(ch)
			return nil
		})
	}
	_ = grp.Wait() // unroll can not fail.

	return tc
}

// SyntheticTime creates a time calibration with a uniform cell duration
// of 1/hz seconds on every cell of every channel.
// It stands in for a missing time calibration file.
func SyntheticTime(hz float64) (*TimeCalibration, error) {
	if !(hz > 0) || math.IsInf(hz, 0) {
		return nil, fmt.Errorf("drs: invalid synthetic sampling frequency %v", hz)
	}

	dt := float32(1 / hz)
	rec := &TimeRecord{
		Frequency: float32(hz),
	}
	copy(rec.Version[:], Version)
	for ch := range rec.Duration {
		for i := range rec.Duration[ch] {
			rec.Duration[ch][i] = dt
			rec.Period[ch][i] = dt
		}
	}

	tc := NewTimeCalibration(rec)
	tc.synthetic = true
	return tc, nil
}

func (tc *TimeCalibration) unroll(ch int) {
	var (
		dt  = make([]float64, cumLen)
		cum = make([]float64, cumLen)
		src = tc.rec.Duration[ch][:]
	)
	for k := 1; k < cumLen; k++ {
		dt[k] = float64(src[(k-1)%NumCells])
	}
	floats.CumSum(cum, dt)

	for trig := 0; trig < NumCells; trig++ {
		var (
			beg  = (ch*NumCells + trig) * NumCells
			axis = tc.axes[beg : beg+NumCells]
			t0   = cum[trig]
		)
		for i := range axis {
			axis[i] = (cum[trig+i] - t0) * nsPerSecond
		}
	}
}

// Record returns the decoded (or synthesized) calibration record.
func (tc *TimeCalibration) Record() *TimeRecord {
	return tc.rec
}

// Synthetic reports whether the calibration was synthesized from a
// sampling frequency instead of loaded from a file.
func (tc *TimeCalibration) Synthetic() bool {
	return tc.synthetic
}

// TimeAxis returns the sampling time, in ns, of each sample of a waveform
// acquired on channel ch starting at trigger cell trig.
// The first sample is always at t=0.
//
// The returned slice is shared and must not be modified.
func (tc *TimeCalibration) TimeAxis(trig, ch uint32) []float64 {
	beg := (int(ch)*NumCells + int(trig)) * NumCells
	end := beg + NumCells
	return tc.axes[beg:end:end]
}

// CellWidth returns the duration, in ns, of sample i of a waveform acquired
// on channel ch starting at trigger cell trig.
func (tc *TimeCalibration) CellWidth(trig, ch uint32, i int) float64 {
	cell := (int(trig) + i) % NumCells
	return float64(tc.rec.Duration[ch][cell]) * nsPerSecond
}
