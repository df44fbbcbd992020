// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package device combines the calibrated channels of a digitizer into
// device level quantities: intensity and beam position for the pbps and
// pbpg photon beam monitors, a scaled sum for single channel devices.
package device // import "github.com/datastreaming/frontend-digitizers-calibration/device"

import (
	"fmt"

	"github.com/datastreaming/frontend-digitizers-calibration/config"
	"github.com/datastreaming/frontend-digitizers-calibration/drs"
)

// Suffixes of the per-channel results.
const (
	SuffixDataSum          = "-DATA-SUM"
	SuffixBgDataSum        = "-BG-DATA-SUM"
	SuffixDataCalibrated   = "-DATA-CALIBRATED"
	SuffixBgDataCalibrated = "-BG-DATA-CALIBRATED"
	SuffixDataMin          = "-DATA-MIN"
	SuffixDataMax          = "-DATA-MAX"
	SuffixBgDataMin        = "-BG-DATA-MIN"
	SuffixBgDataMax        = "-BG-DATA-MAX"
)

// Suffixes of the per-device results.
const (
	SuffixIntensity     = "INTENSITY-CAL"
	SuffixXPos          = "XPOS"
	SuffixYPos          = "YPOS"
	SuffixIntensityAvg  = "-INTENSITY-AVG"
	SuffixIntensityCal  = "-INTENSITY-CAL"
	SuffixScaledDataSum = "SCALED-DATA-SUM"
)

// Source gives access to the named values of a pulse.
type Source interface {
	Waveform(name string) ([]uint16, bool)
	Scalar(name string) (float64, bool)
}

// Calibrator corrects raw waveforms. *drs.Set is a Calibrator.
type Calibrator interface {
	Calibrate(wf []float32, tc, ch uint32) []float32
	Integrate(wf []float32, tc, ch uint32) float64
}

var _ Calibrator = (*drs.Set)(nil)

// Data holds the named results of the devices for one pulse.
type Data struct {
	Scalars   map[string]float64
	Waveforms map[string][]float32
}

// NewData returns an empty set of results.
func NewData() *Data {
	return &Data{
		Scalars:   make(map[string]float64),
		Waveforms: make(map[string][]float32),
	}
}

// Device computes device level results from the channels of a pulse.
type Device interface {
	Name() string
	Process(cal Calibrator, src Source, out *Data) error
	Reset()
}

// New creates the device name described by cfg.
func New(name string, cfg config.Device) (Device, error) {
	chans := make([]channel, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		if ch.Number >= drs.NumChannels {
			return nil, fmt.Errorf(
				"device: invalid channel number %d for %q of device %q",
				ch.Number, ch.Prefix, name,
			)
		}
		if len(ch.PVs) != config.NumChannelPVs {
			return nil, fmt.Errorf(
				"device: invalid number of value names for %q of device %q",
				ch.Prefix, name,
			)
		}
		chans[i] = channel{
			prefix: ch.Prefix,
			number: ch.Number,
			pvs:    ch.PVs,
		}
	}

	switch cfg.Type {
	case "pbps":
		return newPBPS(name, cfg, chans)
	case "pbpg":
		return newPBPG(name, cfg, chans)
	case "single_channel":
		return newSingle(name, cfg, chans)
	default:
		return nil, fmt.Errorf("device: unknown device type %q for device %q", cfg.Type, name)
	}
}
