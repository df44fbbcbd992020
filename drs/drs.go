// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package drs holds types and functions to decode and apply the factory
// calibration of DRS-style switched-capacitor-array digitizers.
//
// A calibration comes in two binary files sharing the same header shape:
// a voltage calibration (cell offsets and gains) and a time calibration
// (per-cell sampling durations). Both are indexed by physical capacitor cell,
// while a waveform is indexed from the trigger cell on: waveform sample i
// was produced by cell (tc+i) mod NumCells.
package drs // import "github.com/datastreaming/frontend-digitizers-calibration/drs"

const (
	NumChannels = 18   // number of channels of a digitizer board
	NumCells    = 1024 // number of capacitor cells per channel
	NumRanges   = 16   // number of entries of a range-offset table

	// Version is the version tag of the supported calibration files.
	Version = "CAL2"
)

const (
	hdrSize   = 16 // version, crc, frequency (+padding), temperature
	tableSize = NumChannels * NumCells * 4
	rangeSize = NumRanges * 4

	// VoltageRecordSize is the exact size in bytes of a voltage calibration file.
	VoltageRecordSize = hdrSize + 4*tableSize + 6*rangeSize

	// TimeRecordSize is the exact size in bytes of a time calibration file.
	TimeRecordSize = hdrSize + 2*tableSize + NumChannels*4
)

// Kind identifies the flavor of a calibration record.
type Kind uint8

const (
	UnknownKind Kind = iota
	VoltageKind
	TimeKind
)

func (k Kind) String() string {
	switch k {
	case VoltageKind:
		return "vcal"
	case TimeKind:
		return "tcal"
	default:
		return "unknown"
	}
}

// KindOf returns the kind of calibration record of the given byte size.
func KindOf(size int64) Kind {
	switch size {
	case VoltageRecordSize:
		return VoltageKind
	case TimeRecordSize:
		return TimeKind
	default:
		return UnknownKind
	}
}

// Table holds one float32 value per channel and per cell.
type Table [NumChannels][NumCells]float32

// RangeTable holds one of the DRS/ADC range-offset tables.
type RangeTable [NumRanges]float32

// VoltageRecord is the decoded content of a voltage calibration file.
type VoltageRecord struct {
	Version     [4]byte
	CRC         int32
	Frequency   int16 // sampling frequency code
	Padding     int16
	Temperature float32

	CellOffset   Table // wf_offset1: per physical cell
	TailOffset   Table // wf_offset2: per sample position (start-to-end)
	GainPositive Table // wf_gain1: divisor for samples > 0
	GainNegative Table // wf_gain2: divisor for samples <= 0

	// Range-offset tables are carried along but not applied by Calibrate.
	DRSOffsetRange [3]RangeTable
	ADCOffsetRange [3]RangeTable
}

// TimeRecord is the decoded content of a time calibration file.
type TimeRecord struct {
	Version     [4]byte
	CRC         int32
	Frequency   float32
	Temperature float32

	Duration Table                // dt: duration of each cell, in seconds
	Period   Table                // informational, in seconds
	Offset   [NumChannels]float32 // per-channel offset, in seconds
}
