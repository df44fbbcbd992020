// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"fmt"
	"math"

	"github.com/datastreaming/frontend-digitizers-calibration/config"
)

// pbps is a photon beam position monitor made of four diodes:
// two for the horizontal position, two for the vertical one.
type pbps struct {
	name  string
	chans []channel
	integ bool

	xfactor, xoffset float64
	yfactor, yoffset float64
}

func newPBPS(name string, cfg config.Device, chans []channel) (*pbps, error) {
	if len(chans) != 4 {
		return nil, fmt.Errorf("device: %s device %q needs 4 channels (got=%d)", cfg.Type, name, len(chans))
	}
	return &pbps{
		name:    name,
		chans:   chans,
		integ:   cfg.TimeIntegration,
		xfactor: cfg.XScalingFactor,
		xoffset: cfg.XScalingOffset,
		yfactor: cfg.YScalingFactor,
		yoffset: cfg.YScalingOffset,
	}, nil
}

func (dev *pbps) Name() string { return dev.name }
func (dev *pbps) Reset()       {}

func (dev *pbps) Process(cal Calibrator, src Source, out *Data) error {
	_, err := dev.process(cal, src, out)
	return err
}

func (dev *pbps) process(cal Calibrator, src Source, out *Data) (float64, error) {
	var sums [4]float64
	for i := range dev.chans {
		v, err := dev.chans[i].process(cal, src, out, dev.integ)
		if err != nil {
			return 0, fmt.Errorf("device: could not process %q: %w", dev.name, err)
		}
		sums[i] = v
	}

	intensity := math.Abs((sums[0] + sums[1] + sums[2] + sums[3]) / 2)
	xpos := (sums[0] - sums[1]) / (sums[0] + sums[1])
	ypos := (sums[2] - sums[3]) / (sums[2] + sums[3])

	out.Scalars[dev.name+SuffixIntensity] = intensity
	out.Scalars[dev.name+SuffixXPos] = xpos*dev.xfactor + dev.xoffset
	out.Scalars[dev.name+SuffixYPos] = ypos*dev.yfactor + dev.yoffset

	return intensity, nil
}

// pbpgDepth is the number of pulses of the rolling intensity average.
const pbpgDepth = 240

// pbpg is a photon beam position monitor cross-calibrated against a
// keithley intensity reading.
type pbpg struct {
	pbps
	keithley string

	ring [pbpgDepth]float64
	pos  int
	n    int
}

func newPBPG(name string, cfg config.Device, chans []channel) (*pbpg, error) {
	dev, err := newPBPS(name, cfg, chans)
	if err != nil {
		return nil, err
	}
	return &pbpg{pbps: *dev, keithley: cfg.Keithley}, nil
}

func (dev *pbpg) Reset() {
	dev.pos = 0
	dev.n = 0
}

func (dev *pbpg) Process(cal Calibrator, src Source, out *Data) error {
	intensity, err := dev.pbps.process(cal, src, out)
	if err != nil {
		return err
	}

	avg := dev.push(intensity)
	out.Scalars[dev.name+SuffixIntensityAvg] = avg

	if dev.keithley == "" {
		return nil
	}
	keithley, ok := src.Scalar(dev.keithley)
	if !ok {
		return nil
	}
	out.Scalars[dev.name+SuffixIntensityCal] = intensity * (keithley / avg)
	return nil
}

// push adds v to the rolling window and returns the window average.
func (dev *pbpg) push(v float64) float64 {
	dev.ring[dev.pos] = v
	dev.pos = (dev.pos + 1) % pbpgDepth
	if dev.n < pbpgDepth {
		dev.n++
	}

	var sum float64
	for _, v := range dev.ring[:dev.n] {
		sum += v
	}
	return sum / float64(dev.n)
}
