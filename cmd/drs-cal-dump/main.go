// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// drs-cal-dump decodes and displays DRS calibration files.
//
// Usage: drs-cal-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//	$> drs-cal-dump -stats ./comb006-5120.vcal
//	=== ./comb006-5120.vcal (vcal) ===
//	Voltage Cal Version CAL2  CRC=0x1a2b3c4d  Freq: 5120  Temperature 36.50 deg. C
//	ch  0 gain1: entries=1024 mean=   0.998712 rms=   0.004127
//	ch  1 gain1: entries=1024 mean=   1.001046 rms=   0.003985
//	[...]
package main // import "github.com/datastreaming/frontend-digitizers-calibration/cmd/drs-cal-dump"

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/floats"

	"github.com/datastreaming/frontend-digitizers-calibration/drs"
	"github.com/datastreaming/frontend-digitizers-calibration/internal/mmap"
)

const usage = `drs-cal-dump decodes and displays DRS calibration files.

Usage: drs-cal-dump [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> drs-cal-dump -stats ./comb006-5120.vcal
 === ./comb006-5120.vcal (vcal) ===
 Voltage Cal Version CAL2  CRC=0x1a2b3c4d  Freq: 5120  Temperature 36.50 deg. C
 ch  0 gain1: entries=1024 mean=   0.998712 rms=   0.004127
 ch  1 gain1: entries=1024 mean=   1.001046 rms=   0.003985
 [...]

`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("drs-cal-dump: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("drs-cal-dump", flag.ExitOnError)

		verbose = fset.Bool("v", false, "dump the per-cell tables")
		stats   = fset.Bool("stats", false, "display per-channel statistics of the calibration tables")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input calibration file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *verbose, *stats)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, verbose, stats bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	h, err := mmap.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open calibration file: %w", err)
	}
	defer h.Close()

	kind := drs.KindOf(int64(h.Len()))
	fmt.Fprintf(wbuf, "=== %s (%v) ===\n", fname, kind)

	switch kind {
	case drs.VoltageKind:
		rec, err := drs.DecodeVoltage(h.Bytes())
		if err != nil {
			return fmt.Errorf("could not decode vcal file: %w", err)
		}
		err = rec.Dump(wbuf, verbose)
		if err != nil {
			return fmt.Errorf("could not dump vcal file: %w", err)
		}
		if stats {
			dumpStats(wbuf, "offset1", &rec.CellOffset, 1)
			dumpStats(wbuf, "offset2", &rec.TailOffset, 1)
			dumpStats(wbuf, "gain1", &rec.GainPositive, 1)
			dumpStats(wbuf, "gain2", &rec.GainNegative, 1)
		}

	case drs.TimeKind:
		rec, err := drs.DecodeTime(h.Bytes())
		if err != nil {
			return fmt.Errorf("could not decode tcal file: %w", err)
		}
		err = rec.Dump(wbuf, verbose)
		if err != nil {
			return fmt.Errorf("could not dump tcal file: %w", err)
		}
		if stats {
			dumpStats(wbuf, "dt[ns]", &rec.Duration, 1e9)
		}

	default:
		tag := make([]byte, len(drs.Version))
		n, _ := h.ReadAt(tag, 0)
		return fmt.Errorf("invalid calibration file size %d (vcal=%d, tcal=%d, tag=%q)",
			h.Len(), drs.VoltageRecordSize, drs.TimeRecordSize, tag[:n],
		)
	}

	return wbuf.Flush()
}

// dumpStats displays the distribution of the values of each channel of
// the table, scaled by factor.
func dumpStats(w io.Writer, name string, tbl *drs.Table, factor float64) {
	vs := make([]float64, drs.NumCells)
	for ch := range tbl {
		for i, v := range tbl[ch] {
			vs[i] = float64(v) * factor
		}
		var (
			lo = floats.Min(vs)
			hi = floats.Max(vs)
			h  = hbook.NewH1D(100, lo-1, hi+1)
		)
		for _, v := range vs {
			h.Fill(v, 1)
		}
		fmt.Fprintf(w, "ch %2d %s: entries=%d mean=%11.6f rms=%11.6f\n",
			ch, name, h.Entries(), h.XMean(), h.XStdDev(),
		)
	}
}
