// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stream

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/go-daq/tdaq"
)

const (
	maxSamples = 1 << 16 // bounds the size of a decoded waveform
	maxEntries = 1 << 12 // bounds the number of decoded waveforms or scalars
)

// Pulse is one acquisition of a digitizer: raw waveforms and scalar
// values (trigger cells, gain settings, sampling frequency) keyed by name.
type Pulse struct {
	ID        uint64
	Timestamp int64 // seconds since the epoch
	Offset    int64 // nanoseconds

	Waveforms map[string][]uint16
	Scalars   map[string]float64
}

// Waveform returns the named raw waveform.
func (p *Pulse) Waveform(name string) ([]uint16, bool) {
	wf, ok := p.Waveforms[name]
	return wf, ok
}

// Scalar returns the named scalar value.
func (p *Pulse) Scalar(name string) (float64, bool) {
	v, ok := p.Scalars[name]
	return v, ok
}

func (p *Pulse) MarshalTDAQ() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)
	enc.WriteU64(p.ID)
	enc.WriteI64(p.Timestamp)
	enc.WriteI64(p.Offset)

	enc.WriteU32(uint32(len(p.Waveforms)))
	for _, k := range keys(p.Waveforms) {
		wf := p.Waveforms[k]
		enc.WriteStr(k)
		enc.WriteU32(uint32(len(wf)))
		for _, v := range wf {
			enc.WriteU16(v)
		}
	}
	writeScalars(enc, p.Scalars)

	return buf.Bytes(), enc.Err()
}

func (p *Pulse) UnmarshalTDAQ(b []byte) error {
	var (
		err error
		dec = tdaq.NewDecoder(bytes.NewReader(b))
	)
	p.ID = dec.ReadU64()
	p.Timestamp = dec.ReadI64()
	p.Offset = dec.ReadI64()

	n := dec.ReadU32()
	if n > maxEntries {
		return fmt.Errorf("stream: invalid number of pulse waveforms %d", n)
	}
	p.Waveforms = make(map[string][]uint16, n)
	for i := uint32(0); i < n && dec.Err() == nil; i++ {
		k := dec.ReadStr()
		sz := dec.ReadU32()
		if sz > maxSamples {
			return fmt.Errorf("stream: invalid pulse waveform %q size %d", k, sz)
		}
		wf := make([]uint16, sz)
		for j := range wf {
			wf[j] = dec.ReadU16()
		}
		p.Waveforms[k] = wf
	}
	p.Scalars, err = readScalars(dec)
	if err != nil {
		return fmt.Errorf("stream: could not decode pulse: %w", err)
	}

	if err = dec.Err(); err != nil {
		return fmt.Errorf("stream: could not decode pulse: %w", err)
	}
	return nil
}

// Result holds the calibrated data of a pulse.
type Result struct {
	ID        uint64
	Timestamp int64
	Offset    int64

	Scalars   map[string]float64
	Waveforms map[string][]float32
}

func (r *Result) MarshalTDAQ() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)
	enc.WriteU64(r.ID)
	enc.WriteI64(r.Timestamp)
	enc.WriteI64(r.Offset)

	writeScalars(enc, r.Scalars)
	enc.WriteU32(uint32(len(r.Waveforms)))
	for _, k := range keys(r.Waveforms) {
		wf := r.Waveforms[k]
		enc.WriteStr(k)
		enc.WriteU32(uint32(len(wf)))
		for _, v := range wf {
			enc.WriteF32(v)
		}
	}

	return buf.Bytes(), enc.Err()
}

func (r *Result) UnmarshalTDAQ(b []byte) error {
	var (
		err error
		dec = tdaq.NewDecoder(bytes.NewReader(b))
	)
	r.ID = dec.ReadU64()
	r.Timestamp = dec.ReadI64()
	r.Offset = dec.ReadI64()

	r.Scalars, err = readScalars(dec)
	if err != nil {
		return fmt.Errorf("stream: could not decode result: %w", err)
	}
	n := dec.ReadU32()
	if n > maxEntries {
		return fmt.Errorf("stream: invalid number of result waveforms %d", n)
	}
	r.Waveforms = make(map[string][]float32, n)
	for i := uint32(0); i < n && dec.Err() == nil; i++ {
		k := dec.ReadStr()
		sz := dec.ReadU32()
		if sz > maxSamples {
			return fmt.Errorf("stream: invalid result waveform %q size %d", k, sz)
		}
		wf := make([]float32, sz)
		for j := range wf {
			wf[j] = dec.ReadF32()
		}
		r.Waveforms[k] = wf
	}

	if err = dec.Err(); err != nil {
		return fmt.Errorf("stream: could not decode result: %w", err)
	}
	return nil
}

func writeScalars(enc *tdaq.Encoder, vs map[string]float64) {
	enc.WriteU32(uint32(len(vs)))
	for _, k := range keys(vs) {
		enc.WriteStr(k)
		enc.WriteF64(vs[k])
	}
}

func readScalars(dec *tdaq.Decoder) (map[string]float64, error) {
	n := dec.ReadU32()
	if n > maxEntries {
		return nil, fmt.Errorf("stream: invalid number of scalars %d", n)
	}
	vs := make(map[string]float64, n)
	for i := uint32(0); i < n && dec.Err() == nil; i++ {
		k := dec.ReadStr()
		vs[k] = dec.ReadF64()
	}
	return vs, nil
}

func keys[T any](m map[string]T) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}

var (
	_ tdaq.Marshaler   = (*Pulse)(nil)
	_ tdaq.Unmarshaler = (*Pulse)(nil)
	_ tdaq.Marshaler   = (*Result)(nil)
	_ tdaq.Unmarshaler = (*Result)(nil)
)
