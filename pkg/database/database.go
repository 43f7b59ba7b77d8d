package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const slowQueryThreshold = 500 * time.Millisecond

type logQueryHook struct {
	log logger.Logger
}

func (*logQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (qh *logQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)
	data := logger.Data{"duration_ms": elapsed.Milliseconds()}
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		qh.log.Err(event.Err).Debug(event.Query, data)
		return
	}
	if elapsed > slowQueryThreshold {
		qh.log.Warn("slow query: "+event.Query, data)
		return
	}
	qh.log.Debug(event.Query, data)
}

// CheckFTS5Support verifies FTS5 is available in the SQLite build. Book search depends on it.
func CheckFTS5Support(db *bun.DB) error {
	_, err := db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS _fts5_check USING fts5(test)")
	if err != nil {
		return errors.New("FTS5 is not enabled on this SQLite build; book search requires it")
	}
	_, _ = db.Exec("DROP TABLE IF EXISTS _fts5_check")
	return nil
}

func New(cfg *config.Config) (*bun.DB, error) {
	drv := sqliteshim.Driver()
	drvCtx, ok := drv.(interface {
		OpenConnector(name string) (driver.Connector, error)
	})

	var connector driver.Connector = openConnector{drv: drv, dsn: cfg.DatabaseFilePath}
	if ok {
		c, err := drvCtx.OpenConnector(cfg.DatabaseFilePath)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		connector = c
	}

	sqldb := sql.OpenDB(&pragmaConnector{
		Connector: connector,
		pragmas: []string{
			"PRAGMA foreign_keys = ON",
			fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.DatabaseBusyTimeout.Milliseconds()),
		},
	})

	// A single connection serializes writers, which is what SQLite wants anyway.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if cfg.DatabaseDebug {
		db.AddQueryHook(&logQueryHook{logger.NewWithLevel("debug")})
	}

	// Retry up to a few times to ensure that the database can connect.
	var err error
	for i := 0; i < cfg.DatabaseConnectRetryCount; i++ {
		_, err = db.Exec("SELECT 1")
		if err != nil {
			time.Sleep(cfg.DatabaseConnectRetryDelay)
			continue
		}
		break
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if cfg.DatabaseFilePath != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			return nil, errors.Wrap(err, "failed to enable WAL mode")
		}
	}

	return db, nil
}
