// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/go-daq/tdaq"

	"github.com/datastreaming/frontend-digitizers-calibration/calib"
	"github.com/datastreaming/frontend-digitizers-calibration/config"
	"github.com/datastreaming/frontend-digitizers-calibration/internal/alert"
)

// QueueSize is the number of calibrated pulses buffered for the output port.
const QueueSize = 1000

// Files retrieves the calibration files of an ioc host.
// *conddb.DB implements Files.
type Files interface {
	CalibrationFiles(ctx context.Context, host string) (calib.Mapping, error)
}

// Server is a TDAQ process calibrating the pulses it receives on its
// input port and sending the results on its output port.
type Server struct {
	Dir  string // configuration folder
	Name string // configuration file name
	DB   Files  // optional calibration files from the conditions DB

	Metrics *Metrics    // optional
	Logger  *log.Logger // optional

	cfg   *config.Config
	files calib.Mapping
	eng   *Engine

	running atomic.Bool
	out     chan []byte
}

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	cfg, err := config.Load(srv.Dir, srv.Name)
	if err != nil {
		ctx.Msg.Errorf("could not load configuration: %+v", err)
		return fmt.Errorf("could not load configuration: %w", err)
	}
	ctx.Msg.Infof("configuration defines ioc host %q", cfg.Name)

	files, err := cfg.Mapping()
	if err != nil {
		ctx.Msg.Errorf("could not build calibration mapping: %+v", err)
		return fmt.Errorf("could not build calibration mapping: %w", err)
	}

	if srv.DB != nil {
		dbfiles, err := srv.DB.CalibrationFiles(ctx.Ctx, cfg.Name)
		if err != nil {
			ctx.Msg.Errorf("could not retrieve calibration files from db: %+v", err)
			return fmt.Errorf("could not retrieve calibration files from db: %w", err)
		}
		for k, v := range dbfiles.Voltage {
			files.Voltage[k] = v
		}
		for k, v := range dbfiles.Time {
			files.Time[k] = v
		}
	}

	ctx.Msg.Infof("vcal frequencies: %v", files.Frequencies())
	ctx.Msg.Infof("devices: %v", cfg.DeviceNames())
	ctx.Msg.Infof("frequency value name: %q", cfg.Frequency)

	srv.cfg = cfg
	srv.files = files
	return nil
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	if srv.cfg == nil {
		return fmt.Errorf("could not initialize: process not configured")
	}

	msg := srv.Logger
	if msg == nil {
		msg = log.New(os.Stdout, "drs-calib: ", 0)
	}

	var opts []calib.Option
	if srv.cfg.Alert != nil {
		mailer, err := alert.New(srv.cfg.Name, *srv.cfg.Alert)
		if err != nil {
			ctx.Msg.Errorf("could not create mail alerter: %+v", err)
			return fmt.Errorf("could not create mail alerter: %w", err)
		}
		opts = append(opts, calib.WithNotifier(mailer))
	}

	eng, err := NewEngine(msg, srv.cfg, srv.files, srv.Metrics, opts...)
	if err != nil {
		ctx.Msg.Errorf("could not create calibration engine: %+v", err)
		return fmt.Errorf("could not create calibration engine: %w", err)
	}

	srv.eng = eng
	srv.out = make(chan []byte, QueueSize)
	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	srv.running.Store(false)
	if srv.eng != nil {
		srv.eng.Reset()
	}
	srv.drain()
	return nil
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	if srv.eng == nil {
		return fmt.Errorf("could not start: process not initialized")
	}
	srv.running.Store(true)
	return nil
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	srv.running.Store(false)
	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	srv.running.Store(false)
	return nil
}

func (srv *Server) drain() {
	for {
		select {
		case <-srv.out:
		default:
			return
		}
	}
}

// Pulses handles the pulses received on the input port.
func (srv *Server) Pulses(ctx tdaq.Context, src tdaq.Frame) error {
	if !srv.running.Load() {
		return nil
	}

	var p Pulse
	err := p.UnmarshalTDAQ(src.Body)
	if err != nil {
		ctx.Msg.Errorf("could not decode pulse: %+v", err)
		return nil
	}

	res, err := srv.eng.Process(&p)
	if err != nil {
		var nerr *calib.NoVoltageCalibrationError
		switch {
		case errors.As(err, &nerr):
			ctx.Msg.Debugf("pulse %d dropped: %+v", p.ID, err)
		default:
			ctx.Msg.Errorf("could not calibrate pulse %d: %+v", p.ID, err)
		}
		return nil
	}

	raw, err := res.MarshalTDAQ()
	if err != nil {
		ctx.Msg.Errorf("could not encode result of pulse %d: %+v", p.ID, err)
		return nil
	}

	select {
	case <-ctx.Ctx.Done():
	case srv.out <- raw:
	}
	return nil
}

// Calibrated sends the calibrated pulses on the output port.
func (srv *Server) Calibrated(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
	case raw := <-srv.out:
		dst.Body = raw
	}
	return nil
}
