// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/quillhq/quill/quillwww/user"

	// MySQL driver.
	_ "github.com/go-sql-driver/mysql"
)

const (
	// Database options
	connTimeout     = 1 * time.Minute
	connMaxLifetime = 1 * time.Minute
	maxOpenConns    = 0 // 0 is unlimited
	maxIdleConns    = 100

	// tableNameUsers is the table name for the users table.
	tableNameUsers = "users"
)

// tableUsers defines the users table. The salt is 16 raw bytes and the
// hashed password is a base64 encoded PBKDF2 digest.
const tableUsers = `
  id              BIGINT AUTO_INCREMENT PRIMARY KEY,
  username        VARCHAR(50) NOT NULL,
  email           VARCHAR(100) NOT NULL,
  hashed_password VARCHAR(100) NOT NULL,
  salt            BINARY(16) NOT NULL,
  date_of_birth   DATE NOT NULL,
  UNIQUE (username)
`

var (
	_ user.Database = (*mysql)(nil)
)

// mysql implements the user.Database interface.
type mysql struct {
	userdb *sql.DB
}

func ctxWithTimeout() (context.Context, func()) {
	return context.WithTimeout(context.Background(), connTimeout)
}

// UserNew creates a new user record in the database. The username check and
// the insert are performed inside a transaction so that two concurrent
// registrations of the same username cannot both succeed; the unique index
// on username is the backstop.
//
// UserNew satisfies the user.Database interface.
func (m *mysql) UserNew(u user.User) (*user.User, error) {
	log.Tracef("UserNew: %v", u.Username)

	if len(u.Salt) == 0 || u.HashedPassword == "" {
		return nil, user.ErrInvalidCredentials
	}

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	tx, err := m.userdb.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Duplicate username check
	var id int64
	q := fmt.Sprintf("SELECT id FROM %v WHERE username = ?", tableNameUsers)
	err = tx.QueryRowContext(ctx, q, u.Username).Scan(&id)
	switch {
	case err == nil:
		tx.Rollback()
		return nil, user.ErrUserExists
	case err != sql.ErrNoRows:
		tx.Rollback()
		return nil, errors.WithStack(err)
	}

	q = fmt.Sprintf(`INSERT INTO %v
    (username, email, hashed_password, salt, date_of_birth)
    VALUES (?, ?, ?, ?, ?)`, tableNameUsers)
	r, err := tx.ExecContext(ctx, q, u.Username, u.Email, u.HashedPassword,
		u.Salt, u.DateOfBirth)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("create user: %v", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	u.ID, err = r.LastInsertId()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &u, nil
}

// UserGetByUsername returns the user record for the given username.
//
// UserGetByUsername satisfies the user.Database interface.
func (m *mysql) UserGetByUsername(username string) (*user.User, error) {
	log.Tracef("UserGetByUsername: %v", username)

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	q := fmt.Sprintf(`SELECT id, username, email, hashed_password, salt,
    date_of_birth FROM %v WHERE username = ?`, tableNameUsers)
	return scanUser(m.userdb.QueryRowContext(ctx, q, username))
}

// UserGetByID returns the user record for the given id.
//
// UserGetByID satisfies the user.Database interface.
func (m *mysql) UserGetByID(id int64) (*user.User, error) {
	log.Tracef("UserGetByID: %v", id)

	ctx, cancel := ctxWithTimeout()
	defer cancel()

	q := fmt.Sprintf(`SELECT id, username, email, hashed_password, salt,
    date_of_birth FROM %v WHERE id = ?`, tableNameUsers)
	return scanUser(m.userdb.QueryRowContext(ctx, q, id))
}

// scanUser is the single row mapping for user records. All user queries
// select the same columns in the same order and go through this function.
func scanUser(row *sql.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword,
		&u.Salt, &u.DateOfBirth)
	switch {
	case err == sql.ErrNoRows:
		return nil, user.ErrUserNotFound
	case err != nil:
		return nil, errors.WithStack(err)
	}

	return &u, nil
}

// Close shuts down the database connection.
//
// Close satisfies the user.Database interface.
func (m *mysql) Close() error {
	return m.userdb.Close()
}

// createTable creates the users table if it does not exist already.
func (m *mysql) createTable() error {
	ctx, cancel := ctxWithTimeout()
	defer cancel()

	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %v (%v)",
		tableNameUsers, tableUsers)
	_, err := m.userdb.ExecContext(ctx, q)
	if err != nil {
		return errors.WithStack(err)
	}

	log.Debugf("Created %v database table", tableNameUsers)

	return nil
}

// New connects to the given mysql instance and returns a context that
// implements the user.Database interface. The users table is created if it
// does not exist yet.
//
// The parseTime DSN parameter is required so that DATE and DATETIME columns
// scan into time.Time values.
func New(host, username, password, dbname string) (*mysql, error) {
	log.Tracef("New: %v %v %v", host, username, dbname)

	h := fmt.Sprintf("%v:%v@tcp(%v)/%v?parseTime=true", username, password,
		host, dbname)
	db, err := sql.Open("mysql", h)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)

	err = db.Ping()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	m := mysql{
		userdb: db,
	}
	err = m.createTable()
	if err != nil {
		return nil, err
	}

	return &m, nil
}
