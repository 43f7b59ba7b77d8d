package database

import (
	"context"
	"database/sql/driver"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

// busyRetries bounds how often Retry re-runs an operation that hit a locked
// database.
const busyRetries = 5

// pragmaConnector runs the setup pragmas on every new connection, since
// SQLite scopes them to the connection.
type pragmaConnector struct {
	driver.Connector
	pragmas []string
}

// openConnector wraps drivers that only implement driver.Driver.
type openConnector struct {
	drv driver.Driver
	dsn string
}

func (oc openConnector) Connect(context.Context) (driver.Conn, error) { return oc.drv.Open(oc.dsn) }
func (oc openConnector) Driver() driver.Driver                        { return oc.drv }

func (pc *pragmaConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := pc.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	execer, ok := conn.(driver.ExecerContext)
	if !ok {
		return conn, nil
	}
	for _, pragma := range pc.pragmas {
		if _, err := execer.ExecContext(ctx, pragma, nil); err != nil {
			_ = conn.Close()
			return nil, errors.Wrapf(err, "running %q", pragma)
		}
	}
	return conn, nil
}

// IsBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED. The two
// drivers behind sqliteshim word it differently.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{"database is locked", "database table is locked", "SQLITE_BUSY", "SQLITE_LOCKED", "(5)", "(6)"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Retry runs fn until it succeeds, fails with something other than a busy
// error, or the retries run out. Waits grow from 50ms up to 2s.
func Retry(ctx context.Context, fn func() error) error {
	return retry(ctx, busyRetries, fn)
}

func retry(ctx context.Context, maxRetries uint64, fn func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 50 * time.Millisecond
	eb.MaxInterval = 2 * time.Second
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, maxRetries), ctx)
	err := backoff.Retry(func() error {
		err := fn()
		if err != nil && !IsBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && IsBusy(err) {
		return errors.WithStack(ctxErr)
	}
	return err
}
