// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mysql

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-test/deep"
	"github.com/quillhq/quill/quillwww/user"
)

var (
	userColumns = []string{
		"id", "username", "email", "hashed_password", "salt",
		"date_of_birth",
	}

	testDOB = time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
)

func newTestDB(t *testing.T) (*mysql, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error %v while creating stub db conn", err)
	}

	return &mysql{userdb: db}, mock, func() {
		db.Close()
	}
}

func newTestUser(t *testing.T) user.User {
	t.Helper()

	salt, err := user.NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	return user.User{
		Username:       "alice",
		Email:          "alice@example.com",
		HashedPassword: user.HashPassword("Secret1", salt),
		Salt:           salt,
		DateOfBirth:    testDOB,
	}
}

func TestUserNew(t *testing.T) {
	mdb, mock, close := newTestDB(t)
	defer close()

	u := newTestUser(t)

	// Queries
	sqlSelect := regexp.QuoteMeta("SELECT id FROM users WHERE username = ?")
	sqlInsert := regexp.QuoteMeta("INSERT INTO users")

	// Expectations
	mock.ExpectBegin()
	mock.ExpectQuery(sqlSelect).
		WithArgs(u.Username).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(sqlInsert).
		WithArgs(u.Username, u.Email, u.HashedPassword, u.Salt,
			u.DateOfBirth).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	// Execute method
	created, err := mdb.UserNew(u)
	if err != nil {
		t.Errorf("UserNew unwanted error: %v", err)
	}
	if created.ID != 1 {
		t.Errorf("got user id %v, want 1", created.ID)
	}

	// Make sure expectations were met
	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserNewDuplicate(t *testing.T) {
	mdb, mock, close := newTestDB(t)
	defer close()

	u := newTestUser(t)

	sqlSelect := regexp.QuoteMeta("SELECT id FROM users WHERE username = ?")

	// The username already maps to a user id, so the registration must
	// be rejected and rolled back.
	mock.ExpectBegin()
	mock.ExpectQuery(sqlSelect).
		WithArgs(u.Username).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectRollback()

	_, err := mdb.UserNew(u)
	if err != user.ErrUserExists {
		t.Errorf("got err %v, want %v", err, user.ErrUserExists)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserNewMissingCredentials(t *testing.T) {
	mdb, _, close := newTestDB(t)
	defer close()

	_, err := mdb.UserNew(user.User{Username: "nocreds"})
	if err != user.ErrInvalidCredentials {
		t.Errorf("got err %v, want %v", err, user.ErrInvalidCredentials)
	}
}

func TestUserGetByUsername(t *testing.T) {
	mdb, mock, close := newTestDB(t)
	defer close()

	u := newTestUser(t)
	u.ID = 7

	sqlSelect := regexp.QuoteMeta("SELECT id, username, email, " +
		"hashed_password, salt,\n    date_of_birth FROM users WHERE " +
		"username = ?")

	rows := sqlmock.NewRows(userColumns).
		AddRow(u.ID, u.Username, u.Email, u.HashedPassword, u.Salt,
			u.DateOfBirth)
	mock.ExpectQuery(sqlSelect).
		WithArgs(u.Username).
		WillReturnRows(rows)

	got, err := mdb.UserGetByUsername(u.Username)
	if err != nil {
		t.Errorf("UserGetByUsername unwanted error: %v", err)
	}
	if diff := deep.Equal(*got, u); diff != nil {
		t.Errorf("got unexpected user: %v", diff)
	}

	// A missing user surfaces as ErrUserNotFound.
	mock.ExpectQuery(sqlSelect).
		WithArgs("nonexistent").
		WillReturnError(sql.ErrNoRows)

	_, err = mdb.UserGetByUsername("nonexistent")
	if err != user.ErrUserNotFound {
		t.Errorf("got err %v, want %v", err, user.ErrUserNotFound)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestUserGetByID(t *testing.T) {
	mdb, mock, close := newTestDB(t)
	defer close()

	u := newTestUser(t)
	u.ID = 7

	sqlSelect := regexp.QuoteMeta("SELECT id, username, email, " +
		"hashed_password, salt,\n    date_of_birth FROM users WHERE " +
		"id = ?")

	rows := sqlmock.NewRows(userColumns).
		AddRow(u.ID, u.Username, u.Email, u.HashedPassword, u.Salt,
			u.DateOfBirth)
	mock.ExpectQuery(sqlSelect).
		WithArgs(u.ID).
		WillReturnRows(rows)

	got, err := mdb.UserGetByID(u.ID)
	if err != nil {
		t.Errorf("UserGetByID unwanted error: %v", err)
	}
	if diff := deep.Equal(*got, u); diff != nil {
		t.Errorf("got unexpected user: %v", diff)
	}

	mock.ExpectQuery(sqlSelect).
		WithArgs(int64(9999)).
		WillReturnError(sql.ErrNoRows)

	_, err = mdb.UserGetByID(9999)
	if err != user.ErrUserNotFound {
		t.Errorf("got err %v, want %v", err, user.ErrUserNotFound)
	}

	err = mock.ExpectationsWereMet()
	if err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
