// Package testutil provides a stub database/sql driver that understands the
// handful of statements the postgres save store issues against its saves
// table.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
)

var driverSeq atomic.Int64

// StubConn records statements and keeps save rows in memory, keyed by id.
type StubConn struct {
	Execs []string
	// Saves holds one row per slot, column name to value.
	Saves      map[string]map[string]driver.Value
	FailPing   bool
	FailQuery  bool
	FailCommit bool
}

// NewStubDB registers a fresh driver and returns a sql.DB bound to it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Saves: map[string]map[string]driver.Value{}}
	name := fmt.Sprintf("stubpg%d", driverSeq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn. Every statement goes through the
// context-aware fast paths instead.
func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepared statements not supported")
}

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return stubTx{conn: c}, nil }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return errors.New("stub: ping refused")
	}
	return nil
}

// ExecContext implements driver.ExecerContext for the saves DDL, upsert and
// delete statements.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil, errors.New("stub: empty statement")
	}
	switch strings.ToUpper(fields[0]) {
	case "CREATE":
		return driver.RowsAffected(0), nil
	case "INSERT":
		cols := columnList(query)
		if len(cols) != len(args) || len(cols) == 0 {
			return nil, fmt.Errorf("stub: %d columns for %d args", len(cols), len(args))
		}
		row := make(map[string]driver.Value, len(cols))
		for i, col := range cols {
			row[col] = args[i].Value
		}
		c.Saves[fmt.Sprint(row["id"])] = row
		return driver.RowsAffected(1), nil
	case "DELETE":
		if len(args) == 0 {
			return nil, errors.New("stub: delete without id")
		}
		id := fmt.Sprint(args[0].Value)
		if _, ok := c.Saves[id]; !ok {
			return driver.RowsAffected(0), nil
		}
		delete(c.Saves, id)
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("stub: unsupported statement %q", query)
}

// QueryContext implements driver.QueryerContext for "SELECT cols FROM saves"
// with an optional "WHERE id = $1". Ordering is left to the caller.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if c.FailQuery {
		return nil, errors.New("stub: query refused")
	}
	lower := strings.ToLower(query)
	from := strings.Index(lower, " from ")
	if !strings.HasPrefix(lower, "select ") || from == -1 {
		return nil, fmt.Errorf("stub: unsupported query %q", query)
	}
	cols := splitColumns(query[len("select "):from])
	rows := &stubRows{cols: cols}
	for id, row := range c.Saves {
		if strings.Contains(lower, "where id") && (len(args) == 0 || fmt.Sprint(args[0].Value) != id) {
			continue
		}
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		rows.rows = append(rows.rows, vals)
	}
	return rows, nil
}

type stubTx struct{ conn *StubConn }

func (t stubTx) Commit() error {
	if t.conn.FailCommit {
		return errors.New("stub: commit refused")
	}
	return nil
}

func (t stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	next int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}

// columnList returns the parenthesised column list of an INSERT.
func columnList(query string) []string {
	open := strings.Index(query, "(")
	end := strings.Index(query, ")")
	if open == -1 || end < open {
		return nil
	}
	return splitColumns(query[open+1 : end])
}

func splitColumns(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
