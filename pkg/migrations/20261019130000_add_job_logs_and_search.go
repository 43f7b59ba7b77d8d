package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE job_logs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
				level TEXT NOT NULL,
				message TEXT NOT NULL,
				source TEXT,
				data TEXT,
				stack_trace TEXT
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`CREATE INDEX ix_job_logs_job_id ON job_logs(job_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		// Search index for books. Rows are maintained by the search service, not by triggers.
		_, err = db.Exec(`
			CREATE VIRTUAL TABLE books_fts USING fts5(
				book_id UNINDEXED,
				title,
				subtitle,
				authors,
				series_name,
				tokenize = 'unicode61 remove_diacritics 2'
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DROP TABLE IF EXISTS books_fts`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`DROP INDEX IF EXISTS ix_job_logs_job_id`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`DROP TABLE IF EXISTS job_logs`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
