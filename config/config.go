// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the JSON description of an ioc host: the name of
// its sampling frequency value, its calibration files and its devices.
package config // import "github.com/datastreaming/frontend-digitizers-calibration/config"

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/datastreaming/frontend-digitizers-calibration/calib"
)

// Positions of the value names in a channel description.
const (
	DataPV = iota
	BackgroundPV
	DataTriggerCellPV
	BackgroundTriggerCellPV
	GainPV

	NumChannelPVs
)

// Config is the configuration of one ioc host.
type Config struct {
	Name string // name of the ioc host
	Dir  string // folder relative calibration paths are resolved against

	Host
}

// Host describes the calibration and devices of an ioc host.
type Host struct {
	Frequency    string            `json:"frequency"`                          // name of the sampling frequency value
	VoltageFiles map[string]string `json:"frequency_mapping"`                  // frequency -> vcal file
	TimeFiles    map[string]string `json:"time_calibration_frequency_mapping"` // frequency -> tcal file
	Devices      map[string]Device `json:"devices"`
	Alert        *Alert            `json:"alert,omitempty"`
}

// Device describes a device made of one or more digitizer channels.
type Device struct {
	Type     string    `json:"device_type"` // pbps, pbpg or single_channel
	Channels []Channel `json:"channels"`

	XScalingFactor float64 `json:"x_scaling_factor"`
	XScalingOffset float64 `json:"x_scaling_offset"`
	YScalingFactor float64 `json:"y_scaling_factor"`
	YScalingOffset float64 `json:"y_scaling_offset"`

	ScalingFactor float64 `json:"scaling_factor"`
	ScalingOffset float64 `json:"scaling_offset"`

	Keithley        string `json:"keithley_intensity"` // name of the keithley intensity value (pbpg)
	TimeIntegration bool   `json:"time_integration"`
}

// Channel describes one digitizer channel of a device.
type Channel struct {
	Prefix string   `json:"pv_prefix"`
	Number uint32   `json:"channel_number"`
	PVs    []string `json:"channel_pvs"` // data, background, data tc, background tc, gain
}

// Alert configures e-mail notifications.
type Alert struct {
	Host     string   `json:"smtp_host"`
	Port     int      `json:"smtp_port"`
	User     string   `json:"smtp_user"`
	Password string   `json:"smtp_password"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

// Load loads the configuration file name (with or without its .json
// extension) from the folder dir.
func Load(dir, name string) (*Config, error) {
	if filepath.Ext(name) != ".json" {
		name += ".json"
	}
	fname := filepath.Join(dir, name)

	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("config: could not open configuration file: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f, dir)
	if err != nil {
		return nil, fmt.Errorf("config: could not load %q: %w", fname, err)
	}
	return cfg, nil
}

// Parse decodes a configuration from r. Relative calibration paths are
// resolved against dir.
func Parse(r io.Reader, dir string) (*Config, error) {
	var raw map[string]Host
	err := json.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("config: could not decode configuration: %w", err)
	}

	if len(raw) != 1 {
		names := make([]string, 0, len(raw))
		for k := range raw {
			names = append(names, k)
		}
		sort.Strings(names)
		return nil, fmt.Errorf(
			"config: only one ioc host per configuration permitted, found %d %q",
			len(raw), names,
		)
	}

	cfg := &Config{Dir: dir}
	for name, host := range raw {
		cfg.Name = name
		cfg.Host = host
	}

	err = cfg.validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Frequency == "" {
		return fmt.Errorf("config: ioc host %q has no frequency value name", cfg.Name)
	}

	names := make([]string, 0, len(cfg.Devices))
	for name := range cfg.Devices {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		dev := cfg.Devices[name]
		if len(dev.Channels) == 0 {
			return fmt.Errorf("config: device %q has no channel", name)
		}
		for _, ch := range dev.Channels {
			if len(ch.PVs) != NumChannelPVs {
				return fmt.Errorf(
					"config: channel %q of device %q has %d value names (want %d)",
					ch.Prefix, name, len(ch.PVs), NumChannelPVs,
				)
			}
		}
	}
	return nil
}

// DeviceNames returns the sorted names of the configured devices.
func (cfg *Config) DeviceNames() []string {
	names := make([]string, 0, len(cfg.Devices))
	for name := range cfg.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mapping returns the calibration files of the ioc host, keyed by
// sampling frequency, with relative paths resolved against cfg.Dir.
func (cfg *Config) Mapping() (calib.Mapping, error) {
	vcal, err := cfg.files(cfg.VoltageFiles)
	if err != nil {
		return calib.Mapping{}, fmt.Errorf("config: invalid vcal mapping: %w", err)
	}

	tcal, err := cfg.files(cfg.TimeFiles)
	if err != nil {
		return calib.Mapping{}, fmt.Errorf("config: invalid tcal mapping: %w", err)
	}

	return calib.Mapping{Voltage: vcal, Time: tcal}, nil
}

func (cfg *Config) files(m map[string]string) (map[int]string, error) {
	o := make(map[int]string, len(m))
	for k, v := range m {
		freq, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("could not parse frequency %q: %w", k, err)
		}
		if !filepath.IsAbs(v) {
			v = filepath.Join(cfg.Dir, v)
		}
		o[freq] = v
	}
	return o, nil
}
