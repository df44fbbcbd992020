// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drs

import (
	"fmt"

	"github.com/datastreaming/frontend-digitizers-calibration/internal/mmap"
)

// VoltageCalibration applies the cell-by-cell offset and gain corrections
// of a voltage calibration record.
//
// The per-cell tables are unrolled at construction time for every possible
// trigger cell: each channel table is stored twice back-to-back, so the
// table rotated left by tc is the contiguous window [tc, tc+NumCells).
// Calibrate thus never rotates nor allocates.
type VoltageCalibration struct {
	rec *VoltageRecord

	offset  []float32 // [NumChannels][2*NumCells]
	gainPos []float32 // [NumChannels][2*NumCells]
	gainNeg []float32 // [NumChannels][2*NumCells]
}

// LoadVoltage reads, validates and unrolls the named voltage calibration file.
func LoadVoltage(fname string) (*VoltageCalibration, error) {
	h, err := mmap.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("drs: could not open vcal file: %w", err)
	}
	defer h.Close()

	rec, err := DecodeVoltage(h.Bytes())
	if err != nil {
		return nil, fmt.Errorf("drs: could not load vcal file %q: %w", fname, err)
	}

	return NewVoltageCalibration(rec), nil
}

// NewVoltageCalibration creates a voltage calibration from a decoded record.
// The record must not be modified afterwards.
func NewVoltageCalibration(rec *VoltageRecord) *VoltageCalibration {
	return &VoltageCalibration{
		rec:     rec,
		offset:  unroll(&rec.CellOffset),
		gainPos: unroll(&rec.GainPositive),
		gainNeg: unroll(&rec.GainNegative),
	}
}

func unroll(tbl *Table) []float32 {
	const n = 2 * NumCells
	out := make([]float32, NumChannels*n)
	for ch := range tbl {
		beg := ch * n
		copy(out[beg:beg+NumCells], tbl[ch][:])
		copy(out[beg+NumCells:beg+n], tbl[ch][:])
	}
	return out
}

func window(tbl []float32, tc, ch uint32) []float32 {
	beg := int(ch)*2*NumCells + int(tc)
	end := beg + NumCells
	return tbl[beg:end:end]
}

// Record returns the decoded calibration record.
//
// The DRS and ADC range-offset tables are only reachable from the record:
// Calibrate does not apply them.
func (vc *VoltageCalibration) Record() *VoltageRecord {
	return vc.rec
}

// Frequency returns the sampling frequency code stored in the file.
func (vc *VoltageCalibration) Frequency() int16 {
	return vc.rec.Frequency
}

// RangeOffset returns the DRS and ADC offsets of range r (in [0, 3)) for
// channel ch (in [0, NumRanges)). Calibrate does not apply them.
func (vc *VoltageCalibration) RangeOffset(ch, r int) (drs, adc float32) {
	return vc.rec.DRSOffsetRange[r][ch], vc.rec.ADCOffsetRange[r][ch]
}

// UnrolledOffset returns the cell offsets of channel ch, rotated left by tc.
func (vc *VoltageCalibration) UnrolledOffset(tc, ch uint32) []float32 {
	return window(vc.offset, tc, ch)
}

// UnrolledGainPositive returns the positive gains of channel ch, rotated left by tc.
func (vc *VoltageCalibration) UnrolledGainPositive(tc, ch uint32) []float32 {
	return window(vc.gainPos, tc, ch)
}

// UnrolledGainNegative returns the negative gains of channel ch, rotated left by tc.
func (vc *VoltageCalibration) UnrolledGainNegative(tc, ch uint32) []float32 {
	return window(vc.gainNeg, tc, ch)
}

// Calibrate corrects in place the waveform wf, acquired on channel ch
// starting at trigger cell tc, and returns it.
//
// wf holds at most NumCells samples already converted from ADC counts to volts.
// tc must be in [0, NumCells) and ch in [0, NumChannels): they are not checked.
func (vc *VoltageCalibration) Calibrate(wf []float32, tc, ch uint32) []float32 {
	var (
		n    = len(wf)
		ofs  = window(vc.offset, tc, ch)[:n]
		tail = vc.rec.TailOffset[ch][:n]
		gpos = window(vc.gainPos, tc, ch)[:n]
		gneg = window(vc.gainNeg, tc, ch)[:n]
	)

	for i := range wf {
		v := wf[i] - ofs[i]
		v -= tail[i]
		if v > 0 {
			v /= gpos[i]
		} else {
			v /= gneg[i]
		}
		wf[i] = v
	}

	return wf
}
