// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stream calibrates a stream of digitizer pulses and serves it
// as a TDAQ process.
package stream // import "github.com/datastreaming/frontend-digitizers-calibration/stream"

import (
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/datastreaming/frontend-digitizers-calibration/calib"
	"github.com/datastreaming/frontend-digitizers-calibration/config"
	"github.com/datastreaming/frontend-digitizers-calibration/device"
)

// Engine calibrates the pulses of one ioc host.
type Engine struct {
	msg  *log.Logger
	freq string // name of the sampling frequency value

	mgr     *calib.Manager
	devs    []device.Device
	metrics *Metrics
}

// NewEngine creates an engine for the devices of cfg, using the provided
// calibration files. metrics may be nil.
func NewEngine(msg *log.Logger, cfg *config.Config, files calib.Mapping, metrics *Metrics, opts ...calib.Option) (*Engine, error) {
	eng := &Engine{
		msg:     msg,
		freq:    cfg.Frequency,
		metrics: metrics,
	}

	for _, name := range cfg.DeviceNames() {
		dev, err := device.New(name, cfg.Devices[name])
		if err != nil {
			return nil, fmt.Errorf("stream: could not create device %q: %w", name, err)
		}
		eng.devs = append(eng.devs, dev)
	}

	opts = append([]calib.Option{calib.WithLogger(msg)}, opts...)
	if metrics != nil {
		opts = append(opts, calib.WithObserver(metrics.Observe))
	}
	eng.mgr = calib.NewManager(files, opts...)

	return eng, nil
}

// Manager returns the calibration manager of the engine.
func (eng *Engine) Manager() *calib.Manager {
	return eng.mgr
}

// Reset clears the state the devices accumulate across pulses.
func (eng *Engine) Reset() {
	for _, dev := range eng.devs {
		dev.Reset()
	}
}

// Process calibrates the pulse p.
//
// Process returns a *calib.NoVoltageCalibrationError when no voltage
// calibration exists for the sampling frequency of the pulse: such
// pulses are dropped.
func (eng *Engine) Process(p *Pulse) (*Result, error) {
	beg := time.Now()
	res, err := eng.process(p)
	if eng.metrics != nil {
		var nerr *calib.NoVoltageCalibrationError
		switch {
		case err == nil:
			eng.metrics.pulses.WithLabelValues(Calibrated).Inc()
			eng.metrics.duration.Observe(time.Since(beg).Seconds())
		case errors.As(err, &nerr):
			eng.metrics.pulses.WithLabelValues(Skipped).Inc()
		default:
			eng.metrics.pulses.WithLabelValues(Failed).Inc()
		}
	}
	return res, err
}

func (eng *Engine) process(p *Pulse) (*Result, error) {
	v, ok := p.Scalar(eng.freq)
	if !ok {
		return nil, fmt.Errorf("stream: pulse %d has no sampling frequency %q", p.ID, eng.freq)
	}
	freq := int(math.Round(v))
	if eng.metrics != nil {
		eng.metrics.frequency.Set(v)
	}

	set, err := eng.mgr.Resolve(freq)
	if err != nil {
		return nil, err
	}

	out := device.NewData()
	for _, dev := range eng.devs {
		err := dev.Process(set, p, out)
		if err != nil {
			return nil, fmt.Errorf("stream: could not process pulse %d: %w", p.ID, err)
		}
	}

	// pass through the scalars of the pulse.
	for k, v := range p.Scalars {
		if _, dup := out.Scalars[k]; dup {
			continue
		}
		out.Scalars[k] = v
	}

	return &Result{
		ID:        p.ID,
		Timestamp: p.Timestamp,
		Offset:    p.Offset,
		Scalars:   out.Scalars,
		Waveforms: out.Waveforms,
	}, nil
}
