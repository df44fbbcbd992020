// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drs

import (
	"bufio"
	"fmt"
	"io"
)

// Dump writes a human readable description of the record to w.
// The per-cell and range tables are written only when tables is true.
func (rec *VoltageRecord) Dump(w io.Writer, tables bool) error {
	o := bufio.NewWriter(w)
	fmt.Fprintf(o,
		"Voltage Cal Version %-4s  CRC=0x%08x  Freq: %4d  Temperature %.2f deg. C\n",
		rec.Version[:], uint32(rec.CRC), rec.Frequency, rec.Temperature,
	)
	if !tables {
		return o.Flush()
	}

	for ch := 0; ch < NumChannels; ch++ {
		for cell := 0; cell < NumCells; cell++ {
			fmt.Fprintf(o,
				"ch %2d - cell %4d :  offset1: %10.6f   offset2: %10.6f   gain1: %10.6f   gain2: %10.6f\n",
				ch, cell,
				rec.CellOffset[ch][cell], rec.TailOffset[ch][cell],
				rec.GainPositive[ch][cell], rec.GainNegative[ch][cell],
			)
		}
	}

	// range tables only cover the 16 analog channels.
	for i := 0; i < NumRanges; i++ {
		fmt.Fprintf(o, "ch %2d :  %.6f  %.6f  %.6f  %.6f  %.6f  %.6f\n", i,
			rec.DRSOffsetRange[0][i], rec.DRSOffsetRange[1][i], rec.DRSOffsetRange[2][i],
			rec.ADCOffsetRange[0][i], rec.ADCOffsetRange[1][i], rec.ADCOffsetRange[2][i],
		)
	}

	return o.Flush()
}

// Dump writes a human readable description of the record to w.
// The per-cell tables are written only when tables is true.
func (rec *TimeRecord) Dump(w io.Writer, tables bool) error {
	o := bufio.NewWriter(w)
	fmt.Fprintf(o,
		"Timing Cal Version %-4s  CRC=0x%08x  Freq: %.0f  Temperature %.2f deg. C\n",
		rec.Version[:], uint32(rec.CRC), rec.Frequency, rec.Temperature,
	)
	if !tables {
		return o.Flush()
	}

	for ch := 0; ch < NumChannels; ch++ {
		for cell := 0; cell < NumCells; cell++ {
			fmt.Fprintf(o, "ch %2d - cell %4d :  dt: %10.6f ns  period: %10.6f ns\n",
				ch, cell,
				rec.Duration[ch][cell]*nsPerSecond, rec.Period[ch][cell]*nsPerSecond,
			)
		}
	}

	for ch := 0; ch < NumChannels; ch++ {
		fmt.Fprintf(o, "ch %2d :  offset: %10.6f ns\n", ch, rec.Offset[ch]*nsPerSecond)
	}

	return o.Flush()
}
