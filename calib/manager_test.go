// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calib

import (
	"errors"
	"io"
	"io/fs"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/datastreaming/frontend-digitizers-calibration/drs"
)

type notifier struct {
	mu    sync.Mutex
	freqs []int
}

func (n *notifier) Notify(err *NoVoltageCalibrationError) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.freqs = append(n.freqs, err.Frequency)
	return nil
}

func (n *notifier) calls() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int(nil), n.freqs...)
}

func writeVoltage(t *testing.T, fname string, freq int16) {
	t.Helper()
	rec := &drs.VoltageRecord{Frequency: freq}
	copy(rec.Version[:], drs.Version)
	for ch := range rec.GainPositive {
		for i := range rec.GainPositive[ch] {
			rec.GainPositive[ch][i] = 1
			rec.GainNegative[ch][i] = 1
		}
	}
	writeFile(t, fname, func(enc *drs.Encoder) error { return enc.EncodeVoltage(rec) })
}

func writeTime(t *testing.T, fname string, dt float32) {
	t.Helper()
	rec := &drs.TimeRecord{}
	copy(rec.Version[:], drs.Version)
	for ch := range rec.Duration {
		for i := range rec.Duration[ch] {
			rec.Duration[ch][i] = dt
		}
	}
	writeFile(t, fname, func(enc *drs.Encoder) error { return enc.EncodeTime(rec) })
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

func discard() *log.Logger {
	return log.New(io.Discard, "calib: ", 0)
}

func TestResolveCached(t *testing.T) {
	dir := t.TempDir()
	var (
		vcal = filepath.Join(dir, "5120.vcal")
		tcal = filepath.Join(dir, "5120.tcal")
	)
	writeVoltage(t, vcal, 5120)
	writeTime(t, tcal, 2e-10)

	var (
		mu     sync.Mutex
		events []Event
	)
	mgr := NewManager(
		Mapping{
			Voltage: map[int]string{5120: vcal},
			Time:    map[int]string{5120: tcal},
		},
		WithLogger(discard()),
		WithObserver(func(evt Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, evt)
		}),
	)

	if mgr.Current() != nil {
		t.Fatalf("uninitialized manager has a bound set")
	}

	set, err := mgr.Resolve(5120)
	if err != nil {
		t.Fatalf("could not resolve frequency: %+v", err)
	}
	if set.Time.Synthetic() {
		t.Fatalf("tcal file was not used")
	}
	if got, want := set.Frequency, 5120; got != want {
		t.Fatalf("invalid set frequency: got=%d, want=%d", got, want)
	}
	if got, want := len(events), 2; got != want {
		t.Fatalf("invalid number of load events: got=%d, want=%d", got, want)
	}

	// same frequency: no I/O.
	for _, fname := range []string{vcal, tcal} {
		err = os.Remove(fname)
		if err != nil {
			t.Fatalf("could not remove %q: %+v", fname, err)
		}
	}

	for i := 0; i < 3; i++ {
		got, err := mgr.Resolve(5120)
		if err != nil {
			t.Fatalf("could not resolve cached frequency: %+v", err)
		}
		if got != set {
			t.Fatalf("cached set was replaced")
		}
	}
	if got, want := len(events), 2; got != want {
		t.Fatalf("cached resolution triggered a load: got=%d events, want=%d", got, want)
	}
	if got, want := mgr.Current(), set; got != want {
		t.Fatalf("invalid current set")
	}
	if got, want := mgr.Frequency(), 5120; got != want {
		t.Fatalf("invalid frequency: got=%d, want=%d", got, want)
	}
}

func TestResolveMissingVoltage(t *testing.T) {
	dir := t.TempDir()
	vcal := filepath.Join(dir, "5120.vcal")
	writeVoltage(t, vcal, 5120)

	n := new(notifier)
	mgr := NewManager(
		Mapping{
			Voltage: map[int]string{
				5120: vcal,
				2560: filepath.Join(dir, "missing.vcal"),
			},
		},
		WithLogger(discard()),
		WithNotifier(n),
		WithRetry(0),
	)

	_, err := mgr.Resolve(5120)
	if err != nil {
		t.Fatalf("could not resolve frequency: %+v", err)
	}

	for _, tc := range []struct {
		freq int
		want error
	}{
		{1280, ErrMissingMapping},
		{2560, fs.ErrNotExist},
	} {
		for i := 0; i < 5; i++ {
			set, err := mgr.Resolve(tc.freq)
			if set != nil {
				t.Fatalf("freq=%d: unexpected calibration set", tc.freq)
			}
			var nerr *NoVoltageCalibrationError
			if !errors.As(err, &nerr) {
				t.Fatalf("freq=%d: invalid error type: %T (%+v)", tc.freq, err, err)
			}
			if got, want := nerr.Frequency, tc.freq; got != want {
				t.Fatalf("invalid error frequency: got=%d, want=%d", got, want)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("freq=%d: invalid error: got=%+v, want=%+v", tc.freq, err, tc.want)
			}
		}
		if mgr.Current() != nil {
			t.Fatalf("freq=%d: previous set still bound", tc.freq)
		}
	}

	// back to a known frequency.
	_, err = mgr.Resolve(5120)
	if err != nil {
		t.Fatalf("could not resolve frequency: %+v", err)
	}
	_, err = mgr.Resolve(1280)
	if err == nil {
		t.Fatalf("expected an error")
	}

	got := n.calls()
	want := []int{1280, 2560, 1280}
	if len(got) != len(want) {
		t.Fatalf("invalid notifications: got=%v, want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("invalid notifications: got=%v, want=%v", got, want)
		}
	}
}

func TestResolveSyntheticTime(t *testing.T) {
	dir := t.TempDir()
	var (
		vcal  = filepath.Join(dir, "5120.vcal")
		short = filepath.Join(dir, "short.tcal")
	)
	writeVoltage(t, vcal, 5120)
	err := os.WriteFile(short, []byte("CAL2"), 0644)
	if err != nil {
		t.Fatalf("could not write short tcal: %+v", err)
	}

	for _, tc := range []struct {
		name  string
		tcals map[int]string
	}{
		{"no-mapping", nil},
		{"missing-file", map[int]string{5120: filepath.Join(dir, "missing.tcal")}},
		{"short-file", map[int]string{5120: short}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mgr := NewManager(
				Mapping{
					Voltage: map[int]string{5120: vcal},
					Time:    tc.tcals,
				},
				WithLogger(discard()),
			)
			set, err := mgr.Resolve(5120)
			if err != nil {
				t.Fatalf("could not resolve frequency: %+v", err)
			}
			if !set.Time.Synthetic() {
				t.Fatalf("expected a synthetic time calibration")
			}

			const step = 1e9 / (5120 * 1e6)
			axis := set.TimeAxis(42, 3)
			for _, i := range []int{0, 1, 100, drs.NumCells - 1} {
				if got, want := axis[i], float64(i)*step; math.Abs(got-want) > 1e-3 {
					t.Fatalf("invalid axis[%d]: got=%v, want=%v", i, got, want)
				}
			}
		})
	}
}

func TestResolveRetry(t *testing.T) {
	dir := t.TempDir()
	vcal := filepath.Join(dir, "5120.vcal")

	n := new(notifier)
	mgr := NewManager(
		Mapping{Voltage: map[int]string{5120: vcal}},
		WithLogger(discard()),
		WithNotifier(n),
		WithRetry(10*time.Second),
	)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return now }

	_, err := mgr.Resolve(5120)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("invalid error: %+v", err)
	}

	writeVoltage(t, vcal, 5120)

	now = now.Add(5 * time.Second)
	_, err = mgr.Resolve(5120)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("retried too early: %+v", err)
	}

	now = now.Add(5 * time.Second)
	set, err := mgr.Resolve(5120)
	if err != nil {
		t.Fatalf("could not recover calibration: %+v", err)
	}
	if set == nil || mgr.Current() != set {
		t.Fatalf("recovered set is not bound")
	}

	if got, want := len(n.calls()), 1; got != want {
		t.Fatalf("invalid number of notifications: got=%d, want=%d", got, want)
	}
}

func TestResolveInvalidFrequency(t *testing.T) {
	mgr := NewManager(Mapping{}, WithLogger(discard()))
	for _, freq := range []int{0, -5120} {
		_, err := mgr.Resolve(freq)
		if !errors.Is(err, ErrInvalidFrequency) {
			t.Fatalf("freq=%d: invalid error: %+v", freq, err)
		}
	}
	if got, want := mgr.Frequency(), 0; got != want {
		t.Fatalf("invalid frequency: got=%d, want=%d", got, want)
	}
}

func TestMappingFrequencies(t *testing.T) {
	m := Mapping{
		Voltage: map[int]string{5120: "a", 1280: "b", 2560: "c"},
	}
	got := m.Frequencies()
	want := []int{1280, 2560, 5120}
	if len(got) != len(want) {
		t.Fatalf("invalid frequencies: got=%v, want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("invalid frequencies: got=%v, want=%v", got, want)
		}
	}
}

func TestResolveInvalidVoltageSkipsTime(t *testing.T) {
	dir := t.TempDir()
	var (
		vcal = filepath.Join(dir, "5120.vcal")
		tcal = filepath.Join(dir, "5120.tcal")
	)
	writeTime(t, tcal, 2e-10)
	err := os.WriteFile(vcal, []byte("CAL2"), 0644)
	if err != nil {
		t.Fatalf("could not write short vcal: %+v", err)
	}

	var (
		mu     sync.Mutex
		events []Event
	)
	mgr := NewManager(
		Mapping{
			Voltage: map[int]string{5120: vcal},
			Time:    map[int]string{5120: tcal},
		},
		WithLogger(discard()),
		WithRetry(0),
		WithObserver(func(evt Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, evt)
		}),
	)

	for i := 0; i < 3; i++ {
		_, err = mgr.Resolve(5120)
		if !errors.Is(err, drs.ErrSizeMismatch) {
			t.Fatalf("invalid error: got=%+v, want=%+v", err, drs.ErrSizeMismatch)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 {
		t.Fatalf("missing vcal load events")
	}
	for _, evt := range events {
		if evt.Kind != drs.VoltageKind {
			t.Fatalf("time calibration built for an invalid vcal: %+v", evt)
		}
	}
}
