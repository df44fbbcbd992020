// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb holds types to retrieve the calibration files of the
// digitizers from the conditions database.
package conddb // import "github.com/datastreaming/frontend-digitizers-calibration/conddb"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/datastreaming/frontend-digitizers-calibration/calib"
	"github.com/datastreaming/frontend-digitizers-calibration/drs"
)

var (
	host = envOr("CONDDB_HOST", "localhost")
	usr  = envOr("CONDDB_USER", "username")
	pwd  = envOr("CONDDB_PASSWORD", "s3cr3t")

	drvName = "mysql"
)

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// DB exposes convenience methods to retrieve calibration data from the
// conditions database.
type DB struct {
	db   *sql.DB
	name string // name of the conditions database
}

// Open opens a connection to the conditions database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true", usr, pwd, host, db)
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Calibration describes a calibration file registered for an ioc host.
type Calibration struct {
	Kind      drs.Kind
	Frequency int
	Path      string
}

// Calibrations returns the calibration files registered for the ioc host,
// oldest first.
func (db *DB) Calibrations(ctx context.Context, host string) ([]Calibration, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.db.QueryContext(
		ctx,
		"SELECT kind, frequency, path FROM calibrations WHERE ioc_host=? ORDER BY datetime ASC",
		host,
	)
	if err != nil {
		return nil, fmt.Errorf("conddb: could not query calibrations of %q: %w", host, err)
	}
	defer rows.Close()

	var cals []Calibration
	for rows.Next() {
		var (
			kind string
			cal  Calibration
		)
		err = rows.Scan(&kind, &cal.Frequency, &cal.Path)
		if err != nil {
			return nil, fmt.Errorf("conddb: could not get calibration of %q: %w", host, err)
		}
		switch kind {
		case drs.VoltageKind.String():
			cal.Kind = drs.VoltageKind
		case drs.TimeKind.String():
			cal.Kind = drs.TimeKind
		default:
			return nil, fmt.Errorf("conddb: invalid calibration kind %q for %q", kind, host)
		}
		cals = append(cals, cal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conddb: could not scan db for calibrations of %q: %w", host, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conddb: context error while retrieving calibrations: %w", err)
	}

	return cals, nil
}

// CalibrationFiles returns the calibration files of the ioc host, keyed
// by sampling frequency. The most recent registration of a (kind, frequency)
// pair wins.
func (db *DB) CalibrationFiles(ctx context.Context, host string) (calib.Mapping, error) {
	cals, err := db.Calibrations(ctx, host)
	if err != nil {
		return calib.Mapping{}, err
	}

	m := calib.Mapping{
		Voltage: make(map[int]string),
		Time:    make(map[int]string),
	}
	for _, cal := range cals {
		switch cal.Kind {
		case drs.VoltageKind:
			m.Voltage[cal.Frequency] = cal.Path
		case drs.TimeKind:
			m.Time[cal.Frequency] = cal.Path
		}
	}

	return m, nil
}
