// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakedb holds types to fake an in-memory DB.
package fakedb // import "github.com/datastreaming/frontend-digitizers-calibration/internal/fakedb"

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
)

var query struct {
	mu   sync.Mutex
	rows Rows
	err  error

	last Query
}

// Query describes the last query executed against the fake DB.
type Query struct {
	SQL  string
	Args []driver.Value
}

// Run runs f with rows as the result of every query executed during f.
func Run(ctx context.Context, rows Rows, f func(ctx context.Context) error) error {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = rows
	query.err = nil
	query.last = Query{}

	return f(ctx)
}

// Fail runs f with every query executed during f failing with err.
func Fail(ctx context.Context, err error, f func(ctx context.Context) error) error {
	query.mu.Lock()
	defer query.mu.Unlock()
	query.rows = Rows{}
	query.err = err
	query.last = Query{}

	return f(ctx)
}

// Last returns the last query executed by Run or Fail.
// It must be called from within the function passed to Run or Fail.
func Last() Query {
	return query.last
}

func init() {
	sql.Register("fakedb", &Driver{})
}

type Driver struct{}

// Open returns a new connection to the database.
func (drv *Driver) Open(name string) (driver.Conn, error) {
	return &Conn{}, nil
}

type Conn struct{}

// Prepare returns a prepared statement, bound to this connection.
func (c *Conn) Prepare(sql string) (driver.Stmt, error) {
	return &Stmt{sql: sql}, nil
}

func (c *Conn) Close() error {
	return nil
}

// Begin is not supported by the fake DB.
func (c *Conn) Begin() (driver.Tx, error) {
	panic("not implemented")
}

// QueryContext executes a query that may return rows, such as a SELECT.
func (c *Conn) QueryContext(ctx context.Context, sql string, args []driver.NamedValue) (driver.Rows, error) {
	vs := make([]driver.Value, len(args))
	for i, arg := range args {
		vs[i] = arg.Value
	}
	return run(sql, vs)
}

// Ping verifies the connection to the database is still alive.
func (c *Conn) Ping(ctx context.Context) error {
	return ctx.Err()
}

func run(sql string, args []driver.Value) (driver.Rows, error) {
	query.last = Query{SQL: sql, Args: args}
	if query.err != nil {
		return nil, query.err
	}
	return &query.rows, nil
}

type Stmt struct {
	sql string
}

func (stmt *Stmt) Close() error {
	return nil
}

// NumInput returns -1: the fake DB does not check placeholders.
func (stmt *Stmt) NumInput() int {
	return -1
}

// Exec is not supported by the fake DB.
func (stmt *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	panic("not implemented")
}

// Query executes a query that may return rows, such as a SELECT.
func (stmt *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return run(stmt.sql, args)
}

// Rows holds the column names and values returned by a fake query.
type Rows struct {
	Names  []string
	Values [][]driver.Value
}

// Columns returns the names of the columns.
func (rows *Rows) Columns() []string {
	return rows.Names
}

func (rows *Rows) Close() error {
	return nil
}

// Next populates dest with the next row of data.
// Next returns io.EOF when there are no more rows.
func (rows *Rows) Next(dest []driver.Value) error {
	if len(rows.Values) == 0 {
		return io.EOF
	}
	copy(dest, rows.Values[0])
	rows.Values = rows.Values[1:]
	return nil
}

var (
	_ driver.Driver         = (*Driver)(nil)
	_ driver.Conn           = (*Conn)(nil)
	_ driver.QueryerContext = (*Conn)(nil)
	_ driver.Pinger         = (*Conn)(nil)
	_ driver.Stmt           = (*Stmt)(nil)
	_ driver.Rows           = (*Rows)(nil)
)
