// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datastreaming/frontend-digitizers-calibration/drs"
)

func TestProcess(t *testing.T) {
	dir := t.TempDir()

	vrec := &drs.VoltageRecord{Frequency: 5120, Temperature: 36.5}
	copy(vrec.Version[:], drs.Version)
	for ch := range vrec.GainPositive {
		for i := range vrec.GainPositive[ch] {
			vrec.GainPositive[ch][i] = float32(1 + 2*(i%2))
			vrec.GainNegative[ch][i] = 1
		}
	}

	trec := &drs.TimeRecord{Frequency: 5120, Temperature: 35.25}
	copy(trec.Version[:], drs.Version)
	for ch := range trec.Duration {
		for i := range trec.Duration[ch] {
			trec.Duration[ch][i] = 2e-10
		}
	}

	var (
		vcal = filepath.Join(dir, "5120.vcal")
		tcal = filepath.Join(dir, "5120.tcal")
		bad  = filepath.Join(dir, "bad.cal")
	)
	writeFile(t, vcal, func(enc *drs.Encoder) error { return enc.EncodeVoltage(vrec) })
	writeFile(t, tcal, func(enc *drs.Encoder) error { return enc.EncodeTime(trec) })
	err := os.WriteFile(bad, []byte("CAL2"), 0644)
	if err != nil {
		t.Fatalf("could not write invalid file: %+v", err)
	}

	for _, tc := range []struct {
		name    string
		fname   string
		verbose bool
		want    []string
		lines   int
	}{
		{
			name:  "vcal",
			fname: vcal,
			want: []string{
				"(vcal) ===\n",
				"Voltage Cal Version CAL2  CRC=0x00000000  Freq: 5120  Temperature 36.50 deg. C\n",
				"ch  0 gain1: entries=1024 mean=   2.000000 rms=   1.000",
				"ch 17 gain2: entries=1024 mean=   1.000000 rms=   0.000",
			},
			lines: 2 + 4*drs.NumChannels,
		},
		{
			name:    "vcal-verbose",
			fname:   vcal,
			verbose: true,
			want: []string{
				"ch  0 - cell    1 :  offset1:   0.000000   offset2:   0.000000   gain1:   3.000000   gain2:   1.000000\n",
			},
			lines: 2 + drs.NumChannels*drs.NumCells + drs.NumRanges + 4*drs.NumChannels,
		},
		{
			name:  "tcal",
			fname: tcal,
			want: []string{
				"(tcal) ===\n",
				"Timing Cal Version CAL2  CRC=0x00000000  Freq: 5120  Temperature 35.25 deg. C\n",
				"ch  3 dt[ns]: entries=1024 mean=   0.200000",
			},
			lines: 2 + drs.NumChannels,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			o := new(bytes.Buffer)
			err := process(o, tc.fname, tc.verbose, true)
			if err != nil {
				t.Fatalf("could not dump file: %+v", err)
			}
			out := o.String()
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Fatalf("missing %q in output:\n%s", want, head(out))
				}
			}
			if got, want := strings.Count(out, "\n"), tc.lines; got != want {
				t.Fatalf("invalid number of lines: got=%d, want=%d", got, want)
			}
		})
	}

	err = process(new(bytes.Buffer), bad, false, false)
	if err == nil {
		t.Fatalf("expected an error for an invalid file")
	}
	if got, want := err.Error(), "invalid calibration file size 4"; !strings.HasPrefix(got, want) {
		t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
	}
	if got, want := err.Error(), `tag="CAL2"`; !strings.Contains(got, want) {
		t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
	}

	empty := filepath.Join(dir, "empty.cal")
	err = os.WriteFile(empty, nil, 0644)
	if err != nil {
		t.Fatalf("could not write empty file: %+v", err)
	}
	err = process(new(bytes.Buffer), empty, false, false)
	if err == nil {
		t.Fatalf("expected an error for an empty file")
	}
	if got, want := err.Error(), `tag=""`; !strings.Contains(got, want) {
		t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
	}

	err = process(new(bytes.Buffer), filepath.Join(dir, "missing.vcal"), false, false)
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func head(s string) string {
	const max = 1024
	if len(s) > max {
		return s[:max] + "[...]"
	}
	return s
}

func writeFile(t *testing.T, fname string, encode func(enc *drs.Encoder) error) {
	t.Helper()
	f, err := os.Create(fname)
	if err != nil {
		t.Fatalf("could not create %q: %+v", fname, err)
	}
	defer f.Close()

	err = encode(drs.NewEncoder(f))
	if err != nil {
		t.Fatalf("could not encode %q: %+v", fname, err)
	}

	err = f.Close()
	if err != nil {
		t.Fatalf("could not close %q: %+v", fname, err)
	}
}
