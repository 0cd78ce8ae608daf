package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// loggingConnector opens connections through the wrapped driver and logs
// every statement at debug level.
type loggingConnector struct {
	drv    driver.Driver
	dsn    string
	logger *slog.Logger
}

type loggingConn struct {
	conn   driver.Conn
	logger *slog.Logger
}

type loggingStmt struct {
	stmt   driver.Stmt
	query  string
	logger *slog.Logger
}

// NewLoggingConnector returns a driver.Connector that logs all SQL (query,
// args, duration and error) using the given logger. Use sql.OpenDB(connector)
// to get a *sql.DB that logs. If logger is nil, slog.Default() is used.
func NewLoggingConnector(drv driver.Driver, dsn string, logger *slog.Logger) (driver.Connector, error) {
	if drv == nil {
		return nil, errors.New("sql logger: nil driver")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingConnector{drv: drv, dsn: dsn, logger: logger}, nil
}

func (c *loggingConnector) Driver() driver.Driver {
	return c.drv
}

func (c *loggingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	var (
		conn driver.Conn
		err  error
	)
	if dc, ok := c.drv.(driver.DriverContext); ok {
		var connector driver.Connector
		connector, err = dc.OpenConnector(c.dsn)
		if err != nil {
			return nil, err
		}
		conn, err = connector.Connect(ctx)
	} else {
		conn, err = c.drv.Open(c.dsn)
	}
	if err != nil {
		return nil, err
	}
	return &loggingConn{conn: conn, logger: c.logger}, nil
}

func (c *loggingConn) Prepare(query string) (driver.Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &loggingStmt{stmt: stmt, query: query, logger: c.logger}, nil
}

func (c *loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if prep, ok := c.conn.(driver.ConnPrepareContext); ok {
		stmt, err := prep.PrepareContext(ctx, query)
		if err != nil {
			return nil, err
		}
		return &loggingStmt{stmt: stmt, query: query, logger: c.logger}, nil
	}
	return c.Prepare(query)
}

func (c *loggingConn) Close() error {
	return c.conn.Close()
}

func (c *loggingConn) Begin() (driver.Tx, error) {
	//nolint:staticcheck // SA1019 – required when underlying conn does not implement ConnBeginTx
	return c.conn.Begin()
}

func (c *loggingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if beginTx, ok := c.conn.(driver.ConnBeginTx); ok {
		return beginTx.BeginTx(ctx, opts)
	}
	//nolint:staticcheck // SA1019 – fallback when underlying conn does not implement ConnBeginTx
	return c.conn.Begin()
}

// Ping lets db.PingContext reach the real connection; without it the
// healthcheck would always succeed.
func (c *loggingConn) Ping(ctx context.Context) error {
	if p, ok := c.conn.(driver.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *loggingStmt) Exec(args []driver.Value) (driver.Result, error) {
	start := time.Now()
	//nolint:staticcheck // SA1019 – required when underlying stmt does not implement StmtExecContext
	res, err := s.stmt.Exec(args)
	s.logQuery("exec", args, start, err)
	return res, err
}

func (s *loggingStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	start := time.Now()
	var (
		res driver.Result
		err error
	)
	if execCtx, ok := s.stmt.(driver.StmtExecContext); ok {
		res, err = execCtx.ExecContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019 – fallback when underlying stmt does not implement StmtExecContext
		res, err = s.stmt.Exec(namedValuesToValues(args))
	}
	s.logQuery("exec", namedValuesToSlice(args), start, err)
	return res, err
}

func (s *loggingStmt) Query(args []driver.Value) (driver.Rows, error) {
	start := time.Now()
	//nolint:staticcheck // SA1019 – required when underlying stmt does not implement StmtQueryContext
	rows, err := s.stmt.Query(args)
	s.logQuery("query", args, start, err)
	return rows, err
}

func (s *loggingStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	start := time.Now()
	var (
		rows driver.Rows
		err  error
	)
	if queryCtx, ok := s.stmt.(driver.StmtQueryContext); ok {
		rows, err = queryCtx.QueryContext(ctx, args)
	} else {
		//nolint:staticcheck // SA1019 – fallback when underlying stmt does not implement StmtQueryContext
		rows, err = s.stmt.Query(namedValuesToValues(args))
	}
	s.logQuery("query", namedValuesToSlice(args), start, err)
	return rows, err
}

func (s *loggingStmt) Close() error {
	return s.stmt.Close()
}

// NumInput implements driver.Stmt; -1 means unknown.
func (s *loggingStmt) NumInput() int {
	return s.stmt.NumInput()
}

func (s *loggingStmt) logQuery(op string, args any, start time.Time, err error) {
	attrs := []any{
		"op", op,
		"sql", s.query,
		"args", args,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	s.logger.Debug("sql", attrs...)
}

func namedValuesToSlice(args []driver.NamedValue) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if a.Name != "" {
			out[i] = a.Name + "=" + formatArg(a.Value)
		} else {
			out[i] = formatArg(a.Value)
		}
	}
	return out
}

func namedValuesToValues(args []driver.NamedValue) []driver.Value {
	out := make([]driver.Value, len(args))
	for i := range args {
		out[i] = args[i].Value
	}
	return out
}

func formatArg(v any) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
