// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drs

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"golang.org/x/xerrors"
)

var (
	// ErrSizeMismatch is returned when a calibration buffer does not have
	// the exact size of its record kind.
	ErrSizeMismatch = errors.New("drs: calibration record size mismatch")

	// ErrBadVersion is returned when a calibration buffer does not start
	// with the supported version tag.
	ErrBadVersion = errors.New("drs: invalid calibration version tag")
)

// DecodeVoltage decodes a voltage calibration record from p.
// p must hold exactly VoltageRecordSize bytes.
func DecodeVoltage(p []byte) (*VoltageRecord, error) {
	if len(p) != VoltageRecordSize {
		return nil, xerrors.Errorf(
			"drs: invalid vcal record size (got=%d, want=%d): %w",
			len(p), VoltageRecordSize, ErrSizeMismatch,
		)
	}

	var (
		rec VoltageRecord
		dec = decoder{p: p}
	)

	dec.tag(&rec.Version)
	if dec.err != nil {
		return nil, dec.err
	}
	rec.CRC = dec.readI32()
	rec.Frequency = dec.readI16()
	rec.Padding = dec.readI16()
	rec.Temperature = dec.readF32()
	dec.table(&rec.CellOffset)
	dec.table(&rec.TailOffset)
	dec.table(&rec.GainPositive)
	dec.table(&rec.GainNegative)
	for i := range rec.DRSOffsetRange {
		dec.floats(rec.DRSOffsetRange[i][:])
	}
	for i := range rec.ADCOffsetRange {
		dec.floats(rec.ADCOffsetRange[i][:])
	}

	if dec.err != nil {
		return nil, xerrors.Errorf("drs: could not decode vcal record: %w", dec.err)
	}
	return &rec, nil
}

// DecodeTime decodes a time calibration record from p.
// p must hold exactly TimeRecordSize bytes.
func DecodeTime(p []byte) (*TimeRecord, error) {
	if len(p) != TimeRecordSize {
		return nil, xerrors.Errorf(
			"drs: invalid tcal record size (got=%d, want=%d): %w",
			len(p), TimeRecordSize, ErrSizeMismatch,
		)
	}

	var (
		rec TimeRecord
		dec = decoder{p: p}
	)

	dec.tag(&rec.Version)
	if dec.err != nil {
		return nil, dec.err
	}
	rec.CRC = dec.readI32()
	rec.Frequency = dec.readF32()
	rec.Temperature = dec.readF32()
	dec.table(&rec.Duration)
	dec.table(&rec.Period)
	dec.floats(rec.Offset[:])

	if dec.err != nil {
		return nil, xerrors.Errorf("drs: could not decode tcal record: %w", dec.err)
	}
	return &rec, nil
}

// decoder reads little-endian values from a byte slice.
// The first error encountered is sticky.
type decoder struct {
	p   []byte
	pos int
	err error
}

func (dec *decoder) next(n int) []byte {
	if dec.err != nil {
		return nil
	}
	if len(dec.p)-dec.pos < n {
		dec.err = io.ErrUnexpectedEOF
		return nil
	}
	p := dec.p[dec.pos : dec.pos+n]
	dec.pos += n
	return p
}

func (dec *decoder) tag(v *[4]byte) {
	p := dec.next(4)
	if p == nil {
		return
	}
	copy(v[:], p)
	if string(v[:]) != Version {
		dec.err = xerrors.Errorf(
			"drs: invalid version tag (got=%q, want=%q): %w",
			v[:], Version, ErrBadVersion,
		)
	}
}

func (dec *decoder) readI16() int16 {
	p := dec.next(2)
	if p == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(p))
}

func (dec *decoder) readI32() int32 {
	p := dec.next(4)
	if p == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(p))
}

func (dec *decoder) readF32() float32 {
	p := dec.next(4)
	if p == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(p))
}

func (dec *decoder) floats(vs []float32) {
	p := dec.next(4 * len(vs))
	if p == nil {
		return
	}
	for i := range vs {
		vs[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[4*i:]))
	}
}

func (dec *decoder) table(tbl *Table) {
	for ch := range tbl {
		dec.floats(tbl[ch][:])
	}
}
