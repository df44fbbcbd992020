// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stream

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/datastreaming/frontend-digitizers-calibration/calib"
)

// Pulse outcomes.
const (
	Calibrated = "calibrated"
	Skipped    = "skipped" // no voltage calibration
	Failed     = "failed"
)

// Metrics holds the prometheus collectors of the calibration process.
type Metrics struct {
	pulses    *prometheus.CounterVec
	loads     *prometheus.CounterVec
	duration  prometheus.Histogram
	frequency prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pulses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drs_calib_pulses_total",
				Help: "Number of processed pulses, by outcome",
			},
			[]string{"outcome"},
		),
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drs_calib_loads_total",
				Help: "Number of calibration loads, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "drs_calib_pulse_duration_seconds",
				Help:    "Duration of the calibration of a pulse",
				Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
		),
		frequency: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "drs_calib_frequency",
				Help: "Sampling frequency code of the last pulse",
			},
		),
	}
	reg.MustRegister(m.pulses, m.loads, m.duration, m.frequency)
	return m
}

// Observe records a calibration load. It can be passed to calib.WithObserver.
func (m *Metrics) Observe(evt calib.Event) {
	outcome := "ok"
	switch {
	case evt.Err != nil:
		outcome = "error"
	case evt.Synthetic:
		outcome = "synthetic"
	}
	m.loads.WithLabelValues(evt.Kind.String(), outcome).Inc()
}
