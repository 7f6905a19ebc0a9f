package db

import (
	"context"
	"database/sql"
	"fmt"
)

// 利用可能冊数の不変条件 (0 <= available_copies <= total_copies) は
// CHECK 制約でも二重に守る。アプリ側の更新は常に条件付き UPDATE。

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		member_id         BIGINT AUTO_INCREMENT PRIMARY KEY,
		first_name        VARCHAR(100) NOT NULL,
		last_name         VARCHAR(100) NOT NULL,
		email             VARCHAR(255) NOT NULL,
		phone_number      VARCHAR(32)  NULL,
		address           VARCHAR(255) NULL,
		password_hash     VARCHAR(255) NULL,
		role              VARCHAR(16)  NOT NULL DEFAULT 'user',
		membership_status VARCHAR(16)  NOT NULL DEFAULT 'active',
		created_at        DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_members_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS books (
		book_id          BIGINT AUTO_INCREMENT PRIMARY KEY,
		title            VARCHAR(255)  NOT NULL,
		author           VARCHAR(255)  NOT NULL DEFAULT '',
		publisher        VARCHAR(255)  NOT NULL DEFAULT '',
		genre            VARCHAR(64)   NOT NULL DEFAULT '',
		isbn_no          VARCHAR(32)   NOT NULL,
		pages            INT           NOT NULL DEFAULT 0,
		total_copies     INT           NOT NULL DEFAULT 0,
		available_copies INT           NOT NULL DEFAULT 0,
		price            DECIMAL(10,2) NOT NULL DEFAULT 0,
		created_at       DATETIME(6)   NOT NULL,
		UNIQUE KEY uq_books_isbn_title (isbn_no, title),
		KEY idx_books_genre (genre),
		CONSTRAINT chk_books_copies CHECK (available_copies >= 0 AND available_copies <= total_copies)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS requests (
		request_id   BIGINT AUTO_INCREMENT PRIMARY KEY,
		request_ulid CHAR(26)    NOT NULL,
		member_id    BIGINT      NOT NULL,
		book_id      BIGINT      NOT NULL,
		request_date DATETIME(6) NOT NULL,
		issued_date  DATETIME(6) NULL,
		return_date  DATETIME(6) NULL,
		status       VARCHAR(16) NOT NULL DEFAULT 'requested',
		UNIQUE KEY uq_requests_ulid (request_ulid),
		KEY idx_requests_book_status (book_id, status),
		KEY idx_requests_member (member_id),
		CONSTRAINT fk_requests_member FOREIGN KEY (member_id) REFERENCES members(member_id) ON DELETE CASCADE,
		CONSTRAINT fk_requests_book FOREIGN KEY (book_id) REFERENCES books(book_id) ON DELETE CASCADE,
		CONSTRAINT chk_requests_status CHECK (status IN ('requested','success','declined','returned'))
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		member_id         INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name        TEXT NOT NULL,
		last_name         TEXT NOT NULL,
		email             TEXT NOT NULL UNIQUE,
		phone_number      TEXT,
		address           TEXT,
		password_hash     TEXT,
		role              TEXT NOT NULL DEFAULT 'user',
		membership_status TEXT NOT NULL DEFAULT 'active',
		created_at        DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		book_id          INTEGER PRIMARY KEY AUTOINCREMENT,
		title            TEXT    NOT NULL,
		author           TEXT    NOT NULL DEFAULT '',
		publisher        TEXT    NOT NULL DEFAULT '',
		genre            TEXT    NOT NULL DEFAULT '',
		isbn_no          TEXT    NOT NULL,
		pages            INTEGER NOT NULL DEFAULT 0,
		total_copies     INTEGER NOT NULL DEFAULT 0,
		available_copies INTEGER NOT NULL DEFAULT 0,
		price            REAL    NOT NULL DEFAULT 0,
		created_at       DATETIME NOT NULL,
		UNIQUE (isbn_no, title),
		CHECK (available_copies >= 0 AND available_copies <= total_copies)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_books_genre ON books(genre)`,
	`CREATE TABLE IF NOT EXISTS requests (
		request_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		request_ulid TEXT    NOT NULL UNIQUE,
		member_id    INTEGER NOT NULL REFERENCES members(member_id) ON DELETE CASCADE,
		book_id      INTEGER NOT NULL REFERENCES books(book_id) ON DELETE CASCADE,
		request_date DATETIME NOT NULL,
		issued_date  DATETIME,
		return_date  DATETIME,
		status       TEXT NOT NULL DEFAULT 'requested'
			CHECK (status IN ('requested','success','declined','returned'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_book_status ON requests(book_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_member ON requests(member_id)`,
}

// Migrate creates the members, books and requests tables if missing.
func Migrate(ctx context.Context, conn *sql.DB, driver string) error {
	stmts := mysqlSchema
	if driver == DriverSQLite {
		stmts = sqliteSchema
	}
	return RunInTx(ctx, conn, nil, func(ctx context.Context, tx DBTX) error {
		for i, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				return fmt.Errorf("migration step %d: %w", i+1, err)
			}
		}
		return nil
	})
}
