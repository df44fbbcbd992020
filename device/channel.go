// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"fmt"

	"github.com/datastreaming/frontend-digitizers-calibration/config"
	"github.com/datastreaming/frontend-digitizers-calibration/drs"
)

// GainPDIM maps the gain setting of a PDIM amplifier to the factor
// converting a calibrated voltage back to the input voltage.
// Some gains can be reached with two configurations and appear twice.
var GainPDIM = [16]float32{
	7.9433e+00, // -18 dB
	3.9811e+00, // -12 dB
	1.9953e+00, // -6 dB
	1.0000e+00, // 0 dB
	7.9433e-01, // +2 dB
	3.9811e-01, // +8 dB
	1.9953e-01, // +14 dB
	1.0000e-01, // +20 dB
	7.9433e-02, // +22 dB
	3.9811e-02, // +28 dB
	1.9953e-02, // +34 dB
	1.0000e-02, // +40 dB
	7.9433e-01, // +2 dB
	3.9811e-01, // +8 dB
	1.9953e-01, // +14 dB
	1.0000e-01, // +20 dB
}

// ToVolts converts raw 12-bit ADC counts to volts, centered on 0.
func ToVolts(raw []uint16) []float32 {
	o := make([]float32, len(raw))
	for i, v := range raw {
		o[i] = (float32(v) - 2048) / 4096
	}
	return o
}

type channel struct {
	prefix string
	number uint32
	pvs    []string
}

func (ch *channel) waveform(src Source, i int) ([]float32, error) {
	name := ch.pvs[i]
	raw, ok := src.Waveform(name)
	if !ok {
		return nil, fmt.Errorf("device: missing waveform %q", name)
	}
	if len(raw) > drs.NumCells {
		return nil, fmt.Errorf("device: waveform %q too long (%d > %d)", name, len(raw), drs.NumCells)
	}
	return ToVolts(raw), nil
}

func (ch *channel) triggerCell(src Source, i int) (uint32, error) {
	name := ch.pvs[i]
	v, ok := src.Scalar(name)
	if !ok {
		return 0, fmt.Errorf("device: missing trigger cell %q", name)
	}
	if v < 0 || v >= drs.NumCells || v != float64(uint32(v)) {
		return 0, fmt.Errorf("device: invalid trigger cell %q=%v", name, v)
	}
	return uint32(v), nil
}

func (ch *channel) gain(src Source) (float32, error) {
	name := ch.pvs[config.GainPV]
	v, ok := src.Scalar(name)
	if !ok {
		return 0, fmt.Errorf("device: missing gain setting %q", name)
	}
	i := int(v)
	if float64(i) != v || i < 0 || i >= len(GainPDIM) {
		return 0, fmt.Errorf("device: invalid gain setting %q=%v", name, v)
	}
	return GainPDIM[i], nil
}

// process calibrates the data and background waveforms of the channel,
// stores the per-channel results in out and returns the data sum.
func (ch *channel) process(cal Calibrator, src Source, out *Data, integrate bool) (float64, error) {
	data, err := ch.waveform(src, config.DataPV)
	if err != nil {
		return 0, err
	}
	bg, err := ch.waveform(src, config.BackgroundPV)
	if err != nil {
		return 0, err
	}
	if len(data) != len(bg) {
		return 0, fmt.Errorf(
			"device: data and background waveforms of %q differ in length (%d != %d)",
			ch.prefix, len(data), len(bg),
		)
	}
	dtc, err := ch.triggerCell(src, config.DataTriggerCellPV)
	if err != nil {
		return 0, err
	}
	btc, err := ch.triggerCell(src, config.BackgroundTriggerCellPV)
	if err != nil {
		return 0, err
	}
	gain, err := ch.gain(src)
	if err != nil {
		return 0, err
	}

	bg = cal.Calibrate(bg, btc, ch.number)
	data = cal.Calibrate(data, dtc, ch.number)

	for i := range data {
		bg[i] *= gain
		data[i] *= gain
		data[i] -= bg[i]
	}

	var dsum, bsum float64
	switch {
	case integrate:
		dsum = cal.Integrate(data, dtc, ch.number)
		bsum = cal.Integrate(bg, btc, ch.number)
	default:
		dsum = sum(data)
		bsum = sum(bg)
	}

	dmin, dmax := MinMax(data, MinMaxWindow)
	bmin, bmax := MinMax(bg, MinMaxWindow)

	out.Scalars[ch.prefix+SuffixDataSum] = dsum
	out.Scalars[ch.prefix+SuffixBgDataSum] = bsum
	out.Scalars[ch.prefix+SuffixDataMin] = dmin
	out.Scalars[ch.prefix+SuffixDataMax] = dmax
	out.Scalars[ch.prefix+SuffixBgDataMin] = bmin
	out.Scalars[ch.prefix+SuffixBgDataMax] = bmax
	out.Waveforms[ch.prefix+SuffixDataCalibrated] = data
	out.Waveforms[ch.prefix+SuffixBgDataCalibrated] = bg

	return dsum, nil
}

func sum(vs []float32) float64 {
	var o float64
	for _, v := range vs {
		o += float64(v)
	}
	return o
}
