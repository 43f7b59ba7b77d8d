package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		statements := []string{
			`CREATE TABLE users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				username TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				is_admin BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			`CREATE UNIQUE INDEX ux_users_username ON users (username COLLATE NOCASE)`,
			`CREATE TABLE locations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				type TEXT NOT NULL,
				description TEXT
			)`,
			`CREATE UNIQUE INDEX ux_locations_name ON locations (name COLLATE NOCASE)`,
			`CREATE TABLE series (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				description TEXT,
				total_volumes INTEGER
			)`,
			`CREATE UNIQUE INDEX ux_series_name ON series (name COLLATE NOCASE)`,
			`CREATE TABLE authors (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				sort_name TEXT NOT NULL,
				bio TEXT
			)`,
			`CREATE UNIQUE INDEX ux_authors_name ON authors (name COLLATE NOCASE)`,
			`CREATE TABLE categories (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				parent_id INTEGER REFERENCES categories (id) ON DELETE SET NULL
			)`,
			`CREATE UNIQUE INDEX ux_categories_name ON categories (name COLLATE NOCASE)`,
			`CREATE TABLE tags (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL
			)`,
			`CREATE UNIQUE INDEX ux_tags_name ON tags (name COLLATE NOCASE)`,
			`CREATE TABLE books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				sort_title TEXT NOT NULL,
				subtitle TEXT,
				description TEXT,
				isbn10 TEXT,
				isbn13 TEXT,
				publisher TEXT,
				language TEXT,
				page_count INTEGER,
				release_date TIMESTAMPTZ,
				series_id INTEGER REFERENCES series (id) ON DELETE SET NULL,
				series_number REAL,
				location_id INTEGER REFERENCES locations (id) ON DELETE SET NULL,
				cover_path TEXT,
				rating INTEGER,
				read_status TEXT NOT NULL DEFAULT 'unread',
				owned BOOLEAN NOT NULL DEFAULT FALSE,
				metadata_source TEXT NOT NULL
			)`,
			`CREATE INDEX ix_books_series_id ON books (series_id)`,
			`CREATE INDEX ix_books_location_id ON books (location_id)`,
			`CREATE INDEX ix_books_title ON books (title COLLATE NOCASE)`,
			`CREATE UNIQUE INDEX ux_books_isbn13 ON books (isbn13) WHERE isbn13 IS NOT NULL`,
			`CREATE TABLE book_authors (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				author_id INTEGER NOT NULL REFERENCES authors (id) ON DELETE CASCADE,
				sort_order INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE UNIQUE INDEX ux_book_authors ON book_authors (book_id, author_id)`,
			`CREATE INDEX ix_book_authors_author_id ON book_authors (author_id)`,
			`CREATE TABLE book_categories (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				category_id INTEGER NOT NULL REFERENCES categories (id) ON DELETE CASCADE
			)`,
			`CREATE UNIQUE INDEX ux_book_categories ON book_categories (book_id, category_id)`,
			`CREATE TABLE book_tags (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				tag_id INTEGER NOT NULL REFERENCES tags (id) ON DELETE CASCADE
			)`,
			`CREATE UNIQUE INDEX ux_book_tags ON book_tags (book_id, tag_id)`,
			`CREATE TABLE files (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				path TEXT NOT NULL,
				original_name TEXT NOT NULL,
				extension TEXT NOT NULL,
				mime_type TEXT NOT NULL,
				size_bytes INTEGER NOT NULL DEFAULT 0,
				sha256 TEXT NOT NULL,
				parsed_at TIMESTAMPTZ
			)`,
			`CREATE UNIQUE INDEX ux_files_path ON files (path)`,
			`CREATE UNIQUE INDEX ux_files_sha256 ON files (sha256)`,
			`CREATE INDEX ix_files_book_id ON files (book_id)`,
			`CREATE TABLE notifications (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
				type TEXT NOT NULL,
				title TEXT NOT NULL,
				message TEXT NOT NULL,
				link TEXT,
				read_at TIMESTAMPTZ
			)`,
			`CREATE INDEX ix_notifications_user_id_read_at ON notifications (user_id, read_at)`,
			`CREATE TABLE watchlists (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
				series_name TEXT NOT NULL,
				author_name TEXT,
				source TEXT NOT NULL,
				last_known_volume REAL NOT NULL DEFAULT 0,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				last_checked_at TIMESTAMPTZ
			)`,
			`CREATE UNIQUE INDEX ux_watchlists_user_series_source ON watchlists (user_id, series_name COLLATE NOCASE, source)`,
			`CREATE TABLE watchlist_results (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				watchlist_id INTEGER NOT NULL REFERENCES watchlists (id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				volume_number REAL,
				url TEXT,
				external_id TEXT NOT NULL,
				score REAL NOT NULL DEFAULT 0,
				release_date TIMESTAMPTZ,
				seen BOOLEAN NOT NULL DEFAULT FALSE
			)`,
			`CREATE UNIQUE INDEX ux_watchlist_results_external_id ON watchlist_results (watchlist_id, external_id)`,
			`CREATE TABLE jobs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				type TEXT NOT NULL,
				status TEXT NOT NULL,
				data TEXT,
				progress INTEGER NOT NULL DEFAULT 0,
				process_id TEXT,
				user_id INTEGER REFERENCES users (id) ON DELETE SET NULL
			)`,
			`CREATE INDEX ix_jobs_status_created_at ON jobs (status, created_at)`,
		}

		for _, stmt := range statements {
			if _, err := db.Exec(stmt); err != nil {
				return errors.WithStack(err)
			}
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		tables := []string{
			"jobs",
			"watchlist_results",
			"watchlists",
			"notifications",
			"files",
			"book_tags",
			"book_categories",
			"book_authors",
			"books",
			"tags",
			"categories",
			"authors",
			"series",
			"locations",
			"users",
		}
		for _, table := range tables {
			if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
