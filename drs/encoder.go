// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drs

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encoder writes calibration records to an output stream,
// using the exact on-disk layout read by DecodeVoltage and DecodeTime.
type Encoder struct {
	w   io.Writer
	buf []byte
	err error
}

// NewEncoder returns a new Encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w:   w,
		buf: make([]byte, 8),
	}
}

// EncodeVoltage writes a voltage calibration record.
func (enc *Encoder) EncodeVoltage(rec *VoltageRecord) error {
	if rec == nil {
		return nil
	}

	enc.write(rec.Version[:])
	if enc.err != nil {
		return fmt.Errorf("drs: could not write vcal version tag: %w", enc.err)
	}
	enc.writeU32(uint32(rec.CRC))
	enc.writeU16(uint16(rec.Frequency))
	enc.writeU16(uint16(rec.Padding))
	enc.writeF32(rec.Temperature)
	enc.table(&rec.CellOffset)
	enc.table(&rec.TailOffset)
	enc.table(&rec.GainPositive)
	enc.table(&rec.GainNegative)
	for i := range rec.DRSOffsetRange {
		enc.floats(rec.DRSOffsetRange[i][:])
	}
	for i := range rec.ADCOffsetRange {
		enc.floats(rec.ADCOffsetRange[i][:])
	}

	if enc.err != nil {
		return fmt.Errorf("drs: could not write vcal record: %w", enc.err)
	}
	return nil
}

// EncodeTime writes a time calibration record.
func (enc *Encoder) EncodeTime(rec *TimeRecord) error {
	if rec == nil {
		return nil
	}

	enc.write(rec.Version[:])
	if enc.err != nil {
		return fmt.Errorf("drs: could not write tcal version tag: %w", enc.err)
	}
	enc.writeU32(uint32(rec.CRC))
	enc.writeF32(rec.Frequency)
	enc.writeF32(rec.Temperature)
	enc.table(&rec.Duration)
	enc.table(&rec.Period)
	enc.floats(rec.Offset[:])

	if enc.err != nil {
		return fmt.Errorf("drs: could not write tcal record: %w", enc.err)
	}
	return nil
}

func (enc *Encoder) write(p []byte) {
	if enc.err != nil {
		return
	}
	_, enc.err = enc.w.Write(p)
}

func (enc *Encoder) writeU16(v uint16) {
	const n = 2
	binary.LittleEndian.PutUint16(enc.buf[:n], v)
	enc.write(enc.buf[:n])
}

func (enc *Encoder) writeU32(v uint32) {
	const n = 4
	binary.LittleEndian.PutUint32(enc.buf[:n], v)
	enc.write(enc.buf[:n])
}

func (enc *Encoder) writeF32(v float32) {
	enc.writeU32(math.Float32bits(v))
}

func (enc *Encoder) floats(vs []float32) {
	if enc.err != nil {
		return
	}
	n := 4 * len(vs)
	if cap(enc.buf) < n {
		enc.buf = make([]byte, n)
	}
	p := enc.buf[:n]
	for i, v := range vs {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(v))
	}
	enc.write(p)
}

func (enc *Encoder) table(tbl *Table) {
	for ch := range tbl {
		enc.floats(tbl[ch][:])
	}
}
