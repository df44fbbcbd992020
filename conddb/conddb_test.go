// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

import (
	"context"
	"database/sql/driver"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/datastreaming/frontend-digitizers-calibration/drs"
	"github.com/datastreaming/frontend-digitizers-calibration/internal/fakedb"
)

func init() {
	drvName = "fakedb"
}

func TestOpen(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	if got, want := dsn("calibs"), usr+":"+pwd+"@tcp("+host+")/calibs?parseTime=true"; got != want {
		t.Fatalf("invalid dsn: got=%q, want=%q", got, want)
	}
}

func TestCalibrations(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	const ioc = "SARFE10-CVME-PHO6211"

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"kind", "frequency", "path"},
		Values: [][]driver.Value{
			{"vcal", int64(5120), "/cal/old-5120.vcal"},
			{"tcal", int64(5120), "/cal/5120.tcal"},
			{"vcal", int64(2560), "/cal/2560.vcal"},
			{"vcal", int64(5120), "/cal/new-5120.vcal"},
		},
	}, func(ctx context.Context) error {
		m, err := db.CalibrationFiles(ctx, ioc)
		if err != nil {
			t.Fatalf("could not retrieve calibration files: %+v", err)
		}

		last := fakedb.Last()
		if !strings.Contains(last.SQL, "FROM calibrations") {
			t.Fatalf("invalid query: %q", last.SQL)
		}
		if got, want := last.Args, []driver.Value{ioc}; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid query args: got=%v, want=%v", got, want)
		}

		if got, want := m.Voltage, map[int]string{
			5120: "/cal/new-5120.vcal",
			2560: "/cal/2560.vcal",
		}; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid vcal files:\ngot= %v\nwant=%v", got, want)
		}
		if got, want := m.Time, map[int]string{5120: "/cal/5120.tcal"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("invalid tcal files:\ngot= %v\nwant=%v", got, want)
		}
		return nil
	})

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"kind", "frequency", "path"},
		Values: [][]driver.Value{
			{"tcal", int64(1280), "/cal/1280.tcal"},
		},
	}, func(ctx context.Context) error {
		cals, err := db.Calibrations(ctx, ioc)
		if err != nil {
			t.Fatalf("could not retrieve calibrations: %+v", err)
		}
		want := []Calibration{{Kind: drs.TimeKind, Frequency: 1280, Path: "/cal/1280.tcal"}}
		if !reflect.DeepEqual(cals, want) {
			t.Fatalf("invalid calibrations:\ngot= %#v\nwant=%#v", cals, want)
		}
		return nil
	})
}

func TestCalibrationsErrors(t *testing.T) {
	db, err := Open("fakedb")
	if err != nil {
		t.Fatalf("could not open conddb: %+v", err)
	}
	defer db.Close()

	_ = fakedb.Run(context.Background(), fakedb.Rows{
		Names: []string{"kind", "frequency", "path"},
		Values: [][]driver.Value{
			{"xcal", int64(1280), "/cal/1280.xcal"},
		},
	}, func(ctx context.Context) error {
		_, err := db.CalibrationFiles(ctx, "ioc")
		if err == nil {
			t.Fatalf("expected an error for an invalid calibration kind")
		}
		if got, want := err.Error(), `conddb: invalid calibration kind "xcal" for "ioc"`; got != want {
			t.Fatalf("invalid error:\ngot= %q\nwant=%q", got, want)
		}
		return nil
	})

	errBoom := errors.New("boom")
	_ = fakedb.Fail(context.Background(), errBoom, func(ctx context.Context) error {
		_, err := db.CalibrationFiles(ctx, "ioc")
		if !errors.Is(err, errBoom) {
			t.Fatalf("invalid error: got=%+v, want=%+v", err, errBoom)
		}
		return nil
	})
}
