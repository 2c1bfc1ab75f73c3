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
	"github.com/quillhq/quill/quillwww/sessions"
)

// sessionsTable is the table for the session records.
//
// The token column is 64 bytes so that it can accommodate a base64, base32,
// or hex encoded token. Timestamps are stored as DATETIME columns so that
// they travel as ISO-8601 values; the parseTime DSN parameter scans them
// into time.Time.
const sessionsTable = `
  token         VARCHAR(64) NOT NULL PRIMARY KEY,
  user_id       BIGINT NOT NULL,
  created_at    DATETIME(3) NOT NULL,
  last_activity DATETIME(3) NOT NULL
`

var (
	_ sessions.DB = (*mysql)(nil)
)

// mysql implements the sessions.DB interface.
type mysql struct {
	// db is the mysql DB context.
	db *sql.DB

	// opts contains the session database options.
	opts *Opts
}

// Opts contains configurable options for the sessions database. These are
// not required. Sane defaults are used when the options are not provided.
type Opts struct {
	// TableName is the table name for the sessions table.
	TableName string

	// OpTimeout is the timeout for a single database operation.
	OpTimeout time.Duration
}

const (
	// defaultTableName is the default table name for the sessions table.
	defaultTableName = "sessions"

	// defaultOpTimeout is the default timeout for a single database
	// operation.
	defaultOpTimeout = 1 * time.Minute
)

// Save saves a session to the database.
//
// Save satisfies the sessions.DB interface.
func (m *mysql) Save(s sessions.Session) error {
	log.Tracef("Save")

	ctx, cancel := m.ctxForOp()
	defer cancel()

	q := `INSERT INTO %v
    (token, user_id, created_at, last_activity) VALUES (?, ?, ?, ?)
    ON DUPLICATE KEY UPDATE
    last_activity = VALUES(last_activity)`

	q = fmt.Sprintf(q, m.opts.TableName)
	_, err := m.db.ExecContext(ctx, q, s.Token, s.UserID, s.CreatedAt.UTC(),
		s.LastActivity.UTC())
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Get gets a session from the database. An ErrNotFound error is returned if
// a session is not found for the token.
//
// Get satisfies the sessions.DB interface.
func (m *mysql) Get(token string) (*sessions.Session, error) {
	log.Tracef("Get")

	ctx, cancel := m.ctxForOp()
	defer cancel()

	q := fmt.Sprintf(`SELECT token, user_id, created_at, last_activity
    FROM %v WHERE token = ?`, m.opts.TableName)

	var s sessions.Session
	err := m.db.QueryRowContext(ctx, q, token).Scan(&s.Token, &s.UserID,
		&s.CreatedAt, &s.LastActivity)
	switch {
	case err == sql.ErrNoRows:
		return nil, sessions.ErrNotFound
	case err != nil:
		return nil, errors.WithStack(err)
	}

	return &s, nil
}

// Del deletes a session from the database. An error is not returned if the
// session does not exist.
//
// Del satisfies the sessions.DB interface.
func (m *mysql) Del(token string) error {
	log.Tracef("Del")

	ctx, cancel := m.ctxForOp()
	defer cancel()

	q := fmt.Sprintf("DELETE FROM %v WHERE token = ?", m.opts.TableName)
	_, err := m.db.ExecContext(ctx, q, token)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// SessionsCleanup deletes all sessions whose last activity is before the
// given time and returns the number deleted.
//
// SessionsCleanup satisfies the sessions.DB interface.
func (m *mysql) SessionsCleanup(idleBefore time.Time) (int64, error) {
	log.Tracef("SessionsCleanup")

	ctx, cancel := m.ctxForOp()
	defer cancel()

	q := fmt.Sprintf("DELETE FROM %v WHERE last_activity < ?",
		m.opts.TableName)
	r, err := m.db.ExecContext(ctx, q, idleBefore.UTC())
	if err != nil {
		return 0, errors.WithStack(err)
	}
	rowsAffected, err := r.RowsAffected()
	if err != nil {
		return 0, err
	}

	log.Debugf("Deleted %v expired sessions from the database", rowsAffected)

	return rowsAffected, nil
}

// Close shuts down the database connection.
//
// Close satisfies the sessions.DB interface.
func (m *mysql) Close() error {
	return m.db.Close()
}

// createTable creates the sessions table.
func (m *mysql) createTable() error {
	ctx, cancel := m.ctxForOp()
	defer cancel()

	q := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %v (%v)",
		m.opts.TableName, sessionsTable)
	_, err := m.db.ExecContext(ctx, q)
	if err != nil {
		return errors.WithStack(err)
	}

	log.Debugf("Created %v database table", m.opts.TableName)

	return nil
}

// ctxForOp returns a context and cancel function for a single database
// operation.
func (m *mysql) ctxForOp() (context.Context, func()) {
	return context.WithTimeout(context.Background(), m.opts.OpTimeout)
}

// New returns a new mysql context that implements the sessions DB
// interface. The opts param can be used to override the default mysql
// context settings.
func New(db *sql.DB, opts *Opts) (*mysql, error) {
	// Setup the database options
	if opts == nil {
		opts = &Opts{}
	}
	if opts.TableName == "" {
		opts.TableName = defaultTableName
	}
	if opts.OpTimeout == 0 {
		opts.OpTimeout = defaultOpTimeout
	}

	// Setup the mysql context
	m := mysql{
		db:   db,
		opts: opts,
	}
	err := m.createTable()
	if err != nil {
		return nil, err
	}

	return &m, nil
}
