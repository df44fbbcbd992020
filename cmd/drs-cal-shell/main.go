// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// drs-cal-shell is an interactive shell to inspect DRS calibration files.
//
// Usage: drs-cal-shell [FILE1 [FILE2]]
//
// Example:
//
//	$> drs-cal-shell ./comb006-5120.vcal ./comb006-5120.tcal
//	drs> offset 3 42
//	ch  3 - cell   42 :  offset1:   0.001200   offset2:  -0.000300   gain1:   0.998700   gain2:   0.999100
//	drs> axis 3 1000 4
//	t[0] =     0.000000 ns
//	t[1] =     0.195312 ns
//	t[2] =     0.390625 ns
//	t[3] =     0.585938 ns
//	drs> quit
package main // import "github.com/datastreaming/frontend-digitizers-calibration/cmd/drs-cal-shell"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/datastreaming/frontend-digitizers-calibration/drs"
)

const usage = `drs-cal-shell is an interactive shell to inspect DRS calibration files.

Usage: drs-cal-shell [FILE1 [FILE2]]

Example:

 $> drs-cal-shell ./comb006-5120.vcal ./comb006-5120.tcal
 drs> offset 3 42
 drs> axis 3 1000 4
 drs> quit

`

const help = `commands:
 open FILE...           load vcal and/or tcal files
 info                   display the headers of the loaded files
 offset CH CELL         display the voltage calibration of a cell
 axis CH TC [N]         display the first N samples of a time axis
 calib CH TC V1 [V2...] calibrate the given voltages
 help                   display this help
 quit                   exit the shell
`

var errQuit = errors.New("quit")

func main() {
	log.SetPrefix("drs-cal-shell: ")
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Print(usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	sh := newShell(os.Stdout)
	if flag.NArg() > 0 {
		err := sh.open(flag.Args())
		if err != nil {
			log.Fatalf("could not open calibration files: %+v", err)
		}
	}

	err := sh.run()
	if err != nil {
		log.Fatalf("error: %+v", err)
	}
}

type shell struct {
	w io.Writer

	vcal *drs.VoltageCalibration
	tcal *drs.TimeCalibration
}

func newShell(w io.Writer) *shell {
	return &shell{w: w}
}

func (sh *shell) run() error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(sh.complete)

	for {
		line, err := term.Prompt("drs> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		term.AppendHistory(line)

		err = sh.exec(line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			fmt.Fprintf(sh.w, "error: %+v\n", err)
		}
	}
}

var commands = []string{"axis", "calib", "help", "info", "offset", "open", "quit"}

func (sh *shell) complete(line string) []string {
	var o []string
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, strings.ToLower(line)) {
			o = append(o, cmd)
		}
	}
	return o
}

func (sh *shell) exec(line string) error {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return nil
	}

	cmd, args := toks[0], toks[1:]
	switch cmd {
	case "open":
		return sh.open(args)
	case "info":
		return sh.info()
	case "offset":
		return sh.offset(args)
	case "axis":
		return sh.axis(args)
	case "calib":
		return sh.calib(args)
	case "help", "?":
		fmt.Fprint(sh.w, help)
		return nil
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (sh *shell) open(fnames []string) error {
	if len(fnames) == 0 {
		return fmt.Errorf("missing calibration file name")
	}

	for _, fname := range fnames {
		fi, err := os.Stat(fname)
		if err != nil {
			return fmt.Errorf("could not stat %q: %w", fname, err)
		}

		switch kind := drs.KindOf(fi.Size()); kind {
		case drs.VoltageKind:
			vc, err := drs.LoadVoltage(fname)
			if err != nil {
				return err
			}
			sh.vcal = vc
		case drs.TimeKind:
			tc, err := drs.LoadTime(fname)
			if err != nil {
				return err
			}
			sh.tcal = tc
		default:
			return fmt.Errorf("invalid calibration file size %d for %q", fi.Size(), fname)
		}
		fmt.Fprintf(sh.w, "loaded %q\n", fname)
	}
	return nil
}

func (sh *shell) info() error {
	if sh.vcal == nil && sh.tcal == nil {
		return fmt.Errorf("no calibration file loaded")
	}
	if sh.vcal != nil {
		err := sh.vcal.Record().Dump(sh.w, false)
		if err != nil {
			return err
		}
	}
	if sh.tcal != nil {
		prefix := ""
		if sh.tcal.Synthetic() {
			prefix = "(synthetic) "
		}
		fmt.Fprint(sh.w, prefix)
		err := sh.tcal.Record().Dump(sh.w, false)
		if err != nil {
			return err
		}
	}
	return nil
}

func (sh *shell) offset(args []string) error {
	if sh.vcal == nil {
		return fmt.Errorf("no vcal file loaded")
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: offset CH CELL")
	}
	ch, err := parseIndex(args[0], drs.NumChannels)
	if err != nil {
		return fmt.Errorf("invalid channel: %w", err)
	}
	cell, err := parseIndex(args[1], drs.NumCells)
	if err != nil {
		return fmt.Errorf("invalid cell: %w", err)
	}

	rec := sh.vcal.Record()
	fmt.Fprintf(sh.w,
		"ch %2d - cell %4d :  offset1: %10.6f   offset2: %10.6f   gain1: %10.6f   gain2: %10.6f\n",
		ch, cell,
		rec.CellOffset[ch][cell], rec.TailOffset[ch][cell],
		rec.GainPositive[ch][cell], rec.GainNegative[ch][cell],
	)
	return nil
}

func (sh *shell) axis(args []string) error {
	if len(args) != 2 && len(args) != 3 {
		return fmt.Errorf("usage: axis CH TC [N]")
	}
	ch, err := parseIndex(args[0], drs.NumChannels)
	if err != nil {
		return fmt.Errorf("invalid channel: %w", err)
	}
	tc, err := parseIndex(args[1], drs.NumCells)
	if err != nil {
		return fmt.Errorf("invalid trigger cell: %w", err)
	}
	n := 10
	if len(args) == 3 {
		n, err = parseIndex(args[2], drs.NumCells+1)
		if err != nil {
			return fmt.Errorf("invalid number of samples: %w", err)
		}
	}

	if sh.tcal == nil {
		if sh.vcal == nil {
			return fmt.Errorf("no calibration file loaded")
		}
		tcal, err := drs.SyntheticTime(float64(sh.vcal.Frequency()) * 1e6)
		if err != nil {
			return fmt.Errorf("could not create synthetic time calibration: %w", err)
		}
		sh.tcal = tcal
	}

	for i, t := range sh.tcal.TimeAxis(uint32(tc), uint32(ch))[:n] {
		fmt.Fprintf(sh.w, "t[%d] = %12.6f ns\n", i, t)
	}
	return nil
}

func (sh *shell) calib(args []string) error {
	if sh.vcal == nil {
		return fmt.Errorf("no vcal file loaded")
	}
	if len(args) < 3 {
		return fmt.Errorf("usage: calib CH TC V1 [V2...]")
	}
	ch, err := parseIndex(args[0], drs.NumChannels)
	if err != nil {
		return fmt.Errorf("invalid channel: %w", err)
	}
	tc, err := parseIndex(args[1], drs.NumCells)
	if err != nil {
		return fmt.Errorf("invalid trigger cell: %w", err)
	}
	vs := args[2:]
	if len(vs) > drs.NumCells {
		return fmt.Errorf("too many samples (%d > %d)", len(vs), drs.NumCells)
	}

	wf := make([]float32, len(vs))
	for i, v := range vs {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("invalid sample %q: %w", v, err)
		}
		wf[i] = float32(f)
	}

	for i, v := range sh.vcal.Calibrate(wf, uint32(tc), uint32(ch)) {
		fmt.Fprintf(sh.w, "v[%d] = %10.6f V\n", i, v)
	}
	return nil
}

func parseIndex(s string, max int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 0 || v >= max {
		return 0, fmt.Errorf("index %d out of range [0, %d)", v, max)
	}
	return v, nil
}
