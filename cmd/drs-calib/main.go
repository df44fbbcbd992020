// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command drs-calib starts a TDAQ process calibrating the DRS pulses of
// an ioc host.
//
// Usage: drs-calib [OPTIONS]
//
// Example:
//
//	$> drs-calib -cfg-dir=/configuration -cfg=SARFE10-CVME-PHO6211 \
//	   -metrics=:9090 -id=drs-calib-sarfe10
package main // import "github.com/datastreaming/frontend-digitizers-calibration/cmd/drs-calib"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sbinet/pmon"

	drscal "github.com/datastreaming/frontend-digitizers-calibration"
	"github.com/datastreaming/frontend-digitizers-calibration/conddb"
	"github.com/datastreaming/frontend-digitizers-calibration/stream"
)

func main() {
	log.SetPrefix("drs-calib: ")
	log.SetFlags(0)

	var (
		cfgdir  = flag.String("cfg-dir", "/configuration", "folder holding the configuration files")
		cfgname = flag.String("cfg", "", "name of the configuration file")
		dbname  = flag.String("db", "", "name of the conditions database holding calibration files")
		maddr   = flag.String("metrics", "", "[ip]:port to serve prometheus metrics on")
		doMon   = flag.Bool("pmon", false, "enable process monitoring")
		monFreq = flag.Duration("pmon-freq", 1*time.Second, "pmon frequency")
		monDir  = flag.String("pmon-dir", os.TempDir(), "folder where to store pmon log files")
	)

	cmd := flags.New()

	if v, sum := drscal.Version(); v != "" {
		log.Printf("version: %s (%s)", v, sum)
	}

	if *cfgname == "" {
		flag.Usage()
		log.Fatalf("missing configuration file name")
	}

	reg := newRegistry()
	proc := &stream.Server{
		Dir:     *cfgdir,
		Name:    *cfgname,
		Metrics: stream.NewMetrics(reg),
		Logger:  log.New(os.Stdout, "drs-calib: ", 0),
	}

	if *dbname != "" {
		db, err := conddb.Open(*dbname)
		if err != nil {
			log.Fatalf("could not open conditions db: %+v", err)
		}
		defer db.Close()
		proc.DB = db
	}

	if *maddr != "" {
		go func() {
			log.Printf("serving metrics on %q...", *maddr)
			err := http.ListenAndServe(*maddr, metricsMux(reg))
			if err != nil {
				log.Printf("could not serve metrics: %+v", err)
			}
		}()
	}

	if *doMon {
		stop, err := monitor(*monDir, cmd.Name, *monFreq)
		if err != nil {
			log.Fatalf("could not start process monitoring: %+v", err)
		}
		defer stop()
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", proc.OnConfig)
	srv.CmdHandle("/init", proc.OnInit)
	srv.CmdHandle("/reset", proc.OnReset)
	srv.CmdHandle("/start", proc.OnStart)
	srv.CmdHandle("/stop", proc.OnStop)
	srv.CmdHandle("/quit", proc.OnQuit)

	srv.InputHandle("/pulses", proc.Pulses)
	srv.OutputHandle("/calibrated", proc.Calibrated)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// monitor starts monitoring the current process, writing its resources
// usage under dir.
func monitor(dir, name string, freq time.Duration) (func(), error) {
	pid := os.Getpid()
	p, err := pmon.Monitor(pid)
	if err != nil {
		return nil, fmt.Errorf("could not monitor pid=%d: %w", pid, err)
	}

	if name == "" {
		name = "drs-calib"
	}
	f, err := os.Create(filepath.Join(dir, name+"-pmon.log"))
	if err != nil {
		return nil, fmt.Errorf("could not create pmon log file: %w", err)
	}
	p.W = f
	p.Freq = freq

	go func() {
		err := p.Run()
		if err != nil {
			log.Printf("could not run process monitoring: %+v", err)
		}
	}()

	return func() {
		err := p.Kill()
		if err != nil {
			log.Printf("could not stop process monitoring: %+v", err)
		}
		_ = f.Close()
	}, nil
}
