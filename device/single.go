// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"fmt"

	"github.com/datastreaming/frontend-digitizers-calibration/config"
)

// single is a device read out by a single channel, whose data sum is
// scaled to a physical quantity.
type single struct {
	name  string
	chans []channel
	integ bool

	factor float64
	offset float64
}

func newSingle(name string, cfg config.Device, chans []channel) (*single, error) {
	if len(chans) == 0 {
		return nil, fmt.Errorf("device: single_channel device %q has no channel", name)
	}
	return &single{
		name:   name,
		chans:  chans,
		integ:  cfg.TimeIntegration,
		factor: cfg.ScalingFactor,
		offset: cfg.ScalingOffset,
	}, nil
}

func (dev *single) Name() string { return dev.name }
func (dev *single) Reset()       {}

// Process processes all the channels of the device and scales the data
// sum of the last one.
func (dev *single) Process(cal Calibrator, src Source, out *Data) error {
	var sum float64
	for i := range dev.chans {
		v, err := dev.chans[i].process(cal, src, out, dev.integ)
		if err != nil {
			return fmt.Errorf("device: could not process %q: %w", dev.name, err)
		}
		sum = v
	}

	out.Scalars[dev.name+SuffixScaledDataSum] = sum*dev.factor + dev.offset
	return nil
}
