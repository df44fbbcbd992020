// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// drs-cal-gen generates DRS calibration files with smeared nominal
// calibration constants, for tests and commissioning.
//
// Usage: drs-cal-gen [OPTIONS]
//
// Example:
//
//	$> drs-cal-gen -kind=vcal -freq=5120 -o ./comb000-5120.vcal
//	$> drs-cal-gen -kind=tcal -freq=5120 -noise=0.01 -o ./comb000-5120.tcal
package main // import "github.com/datastreaming/frontend-digitizers-calibration/cmd/drs-cal-gen"

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/datastreaming/frontend-digitizers-calibration/drs"
)

const usage = `drs-cal-gen generates DRS calibration files.

Usage: drs-cal-gen [OPTIONS]

Example:

 $> drs-cal-gen -kind=vcal -freq=5120 -o ./comb000-5120.vcal
 $> drs-cal-gen -kind=tcal -freq=5120 -noise=0.01 -o ./comb000-5120.tcal

`

func main() {
	xmain(os.Args[1:])
}

func xmain(args []string) {
	log.SetPrefix("drs-cal-gen: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("drs-cal-gen", flag.ExitOnError)

		kind  = fset.String("kind", "vcal", "kind of calibration file to generate (vcal, tcal)")
		freq  = fset.Int("freq", 5120, "sampling frequency code")
		temp  = fset.Float64("temp", 35, "board temperature (deg. C)")
		noise = fset.Float64("noise", 0, "relative smearing of the calibration constants")
		seed  = fset.Int64("seed", 1234, "seed of the smearing")
		oname = fset.String("o", "", "path to output calibration file")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if *oname == "" {
		fset.Usage()
		log.Fatalf("missing path to output calibration file")
	}

	gen := generator{
		freq:  *freq,
		temp:  *temp,
		noise: *noise,
		rnd:   rand.New(rand.NewSource(*seed)),
	}

	err = gen.create(*oname, *kind)
	if err != nil {
		log.Fatalf("could not generate %q: %+v", *oname, err)
	}
}

type generator struct {
	freq  int
	temp  float64
	noise float64
	rnd   *rand.Rand
}

func (gen *generator) create(oname, kind string) error {
	f, err := os.Create(oname)
	if err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}
	defer f.Close()

	err = gen.generate(f, kind)
	if err != nil {
		return err
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close output file: %w", err)
	}
	return nil
}

func (gen *generator) generate(w io.Writer, kind string) error {
	wbuf := bufio.NewWriter(w)
	enc := drs.NewEncoder(wbuf)

	var err error
	switch kind {
	case drs.VoltageKind.String():
		err = enc.EncodeVoltage(gen.voltage())
	case drs.TimeKind.String():
		err = enc.EncodeTime(gen.time())
	default:
		return fmt.Errorf("invalid calibration kind %q", kind)
	}
	if err != nil {
		return fmt.Errorf("could not encode %s record: %w", kind, err)
	}

	err = wbuf.Flush()
	if err != nil {
		return fmt.Errorf("could not flush %s record: %w", kind, err)
	}
	return nil
}

func (gen *generator) smear(v float64) float32 {
	if gen.noise == 0 {
		return float32(v)
	}
	return float32(v * (1 + gen.noise*gen.rnd.NormFloat64()))
}

func (gen *generator) voltage() *drs.VoltageRecord {
	rec := &drs.VoltageRecord{
		Frequency:   int16(gen.freq),
		Temperature: float32(gen.temp),
	}
	copy(rec.Version[:], drs.Version)
	for ch := range rec.GainPositive {
		for i := range rec.GainPositive[ch] {
			rec.CellOffset[ch][i] = gen.smear(1) - 1
			rec.TailOffset[ch][i] = gen.smear(1) - 1
			rec.GainPositive[ch][i] = gen.smear(1)
			rec.GainNegative[ch][i] = gen.smear(1)
		}
	}
	return rec
}

func (gen *generator) time() *drs.TimeRecord {
	hz := float64(gen.freq) * 1e6
	rec := &drs.TimeRecord{
		Frequency:   float32(gen.freq),
		Temperature: float32(gen.temp),
	}
	copy(rec.Version[:], drs.Version)
	for ch := range rec.Duration {
		for i := range rec.Duration[ch] {
			rec.Duration[ch][i] = gen.smear(1 / hz)
			rec.Period[ch][i] = float32(drs.NumCells / hz)
		}
	}
	return rec
}
