// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calib

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/datastreaming/frontend-digitizers-calibration/drs"
)

type config struct {
	msg     *log.Logger
	notify  Notifier
	scale   float64 // Hz per frequency code
	retry   time.Duration
	observe func(Event)
}

func newConfig() config {
	return config{
		msg:   log.New(os.Stdout, "calib: ", 0),
		scale: 1e6,
		retry: 10 * time.Second,
	}
}

// Option configures a Manager.
type Option func(*config)

// WithLogger sets the logger used to report calibration loads.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		cfg.msg = msg
	}
}

// WithNotifier sets the notifier called when a frequency transition
// leaves the manager without a voltage calibration.
func WithNotifier(n Notifier) Option {
	return func(cfg *config) {
		cfg.notify = n
	}
}

// WithFrequencyScale sets the number of Hz per frequency code, used to
// build a synthetic time calibration. The default is 1e6 (codes in MHz).
func WithFrequencyScale(hz float64) Option {
	return func(cfg *config) {
		cfg.scale = hz
	}
}

// WithRetry sets the minimal delay between two load attempts of a
// frequency without voltage calibration. A zero delay disables retries.
func WithRetry(d time.Duration) Option {
	return func(cfg *config) {
		cfg.retry = d
	}
}

// WithObserver registers a function called after each calibration load
// attempt. It may be called concurrently.
func WithObserver(f func(Event)) Option {
	return func(cfg *config) {
		cfg.observe = f
	}
}

// Manager resolves sampling frequencies into calibration sets.
//
// Only the set of the current frequency is kept in memory: a frequency
// change drops it and loads the set of the new frequency.
type Manager struct {
	cfg   config
	files Mapping

	mu   sync.Mutex
	freq int       // last resolved frequency, 0 if none
	last time.Time // last load attempt
	fail *NoVoltageCalibrationError
	now  func() time.Time

	cur atomic.Pointer[drs.Set]
}

// NewManager creates a manager for the provided calibration files.
func NewManager(files Mapping, opts ...Option) *Manager {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Manager{
		cfg:   cfg,
		files: files.clone(),
		now:   time.Now,
	}
}

// Current returns the currently bound calibration set, or nil.
func (mgr *Manager) Current() *drs.Set {
	return mgr.cur.Load()
}

// Frequency returns the last resolved sampling frequency, or 0.
func (mgr *Manager) Frequency() int {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.freq
}

// Resolve returns the calibration set for the sampling frequency freq,
// loading it if freq differs from the last resolved frequency.
//
// Resolve returns a *NoVoltageCalibrationError when no voltage calibration
// could be loaded for freq. A missing time calibration is replaced by a
// synthetic one.
func (mgr *Manager) Resolve(freq int) (*drs.Set, error) {
	if freq <= 0 {
		return nil, fmt.Errorf("calib: could not resolve frequency %d: %w", freq, ErrInvalidFrequency)
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if freq == mgr.freq {
		if set := mgr.cur.Load(); set != nil {
			return set, nil
		}
		if mgr.cfg.retry <= 0 || mgr.now().Sub(mgr.last) < mgr.cfg.retry {
			return nil, mgr.fail
		}
	}

	transition := freq != mgr.freq
	mgr.freq = freq
	mgr.last = mgr.now()

	set, err := mgr.load(freq)
	if err != nil {
		mgr.cur.Store(nil)
		mgr.fail = &NoVoltageCalibrationError{Frequency: freq, Err: err}
		if transition {
			mgr.report(mgr.fail)
		}
		return nil, mgr.fail
	}

	mgr.fail = nil
	mgr.cur.Store(set)
	if transition {
		mgr.cfg.msg.Printf("bound calibration for frequency %d (synthetic-time=%v)", freq, set.Time.Synthetic())
	} else {
		mgr.cfg.msg.Printf("recovered calibration for frequency %d", freq)
	}
	return set, nil
}

func (mgr *Manager) report(err *NoVoltageCalibrationError) {
	mgr.cfg.msg.Printf("%+v", err)
	if mgr.cfg.notify == nil {
		return
	}
	e := mgr.cfg.notify.Notify(err)
	if e != nil {
		mgr.cfg.msg.Printf("could not send notification for frequency %d: %+v", err.Frequency, e)
	}
}

func (mgr *Manager) load(freq int) (*drs.Set, error) {
	vpath, ok := mgr.files.Voltage[freq]
	if !ok {
		mgr.observe(Event{Frequency: freq, Kind: drs.VoltageKind, Err: ErrMissingMapping})
		return nil, ErrMissingMapping
	}

	var (
		grp  errgroup.Group
		vcal *drs.VoltageCalibration
		trec *drs.TimeRecord
		terr error
		tdur time.Duration
	)

	grp.Go(func() error {
		var (
			beg = time.Now()
			err error
		)
		vcal, err = drs.LoadVoltage(vpath)
		mgr.observe(Event{
			Frequency: freq,
			Kind:      drs.VoltageKind,
			Path:      vpath,
			Err:       err,
			Duration:  time.Since(beg),
		})
		return err
	})

	tpath, hasTime := mgr.files.Time[freq]
	if hasTime {
		// only the record is read here: time axes are built once the
		// voltage calibration is known to be valid.
		grp.Go(func() error {
			beg := time.Now()
			trec, terr = drs.ReadTime(tpath)
			tdur = time.Since(beg)
			return nil
		})
	}

	err := grp.Wait()
	if err != nil {
		return nil, err
	}

	var tcal *drs.TimeCalibration
	if hasTime {
		beg := time.Now()
		if terr == nil {
			tcal = drs.NewTimeCalibration(trec)
		}
		mgr.observe(Event{
			Frequency: freq,
			Kind:      drs.TimeKind,
			Path:      tpath,
			Err:       terr,
			Duration:  tdur + time.Since(beg),
		})
		if terr != nil {
			mgr.cfg.msg.Printf("could not load tcal for frequency %d, using synthetic time axis: %+v", freq, terr)
		}
	}

	if tcal == nil {
		tcal, err = mgr.syntheticTime(freq)
		if err != nil {
			return nil, err
		}
	}

	return &drs.Set{
		Frequency: freq,
		Voltage:   vcal,
		Time:      tcal,
	}, nil
}

func (mgr *Manager) syntheticTime(freq int) (*drs.TimeCalibration, error) {
	beg := time.Now()
	tcal, err := drs.SyntheticTime(float64(freq) * mgr.cfg.scale)
	mgr.observe(Event{
		Frequency: freq,
		Kind:      drs.TimeKind,
		Synthetic: true,
		Err:       err,
		Duration:  time.Since(beg),
	})
	if err != nil {
		return nil, fmt.Errorf("calib: could not create synthetic tcal for frequency %d: %w", freq, err)
	}
	return tcal, nil
}

func (mgr *Manager) observe(evt Event) {
	if mgr.cfg.observe == nil {
		return
	}
	mgr.cfg.observe(evt)
}
