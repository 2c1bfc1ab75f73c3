// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package user

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound indicates that a user name was not found in the
	// database.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates that a user already exists in the
	// database.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidCredentials is returned when a user record is missing
	// its salt or password hash. The two are always set together; a
	// record with one but not the other is corrupt.
	ErrInvalidCredentials = errors.New("user record missing salt or password hash")

	// ErrShutdown is emitted when the database is shutting down.
	ErrShutdown = errors.New("database is shutting down")
)

// User record.
type User struct {
	ID             int64     // Unique id
	Username       string    // Unique username, 1-50 characters
	Email          string    // Email address
	HashedPassword string    // Base64 encoded password digest
	Salt           []byte    // 16 random bytes, unique per user
	DateOfBirth    time.Time // Date of birth
}

// Database describes the interface used for all user database commands.
// There is a single typed mapping layer per backend; the user shape never
// varies across backends.
type Database interface {
	// Add a new user to the database. The user's salt and password
	// hash must both be set. A ErrUserExists error is returned if the
	// username is taken.
	UserNew(User) (*User, error)

	// Return user record given its username. A ErrUserNotFound error
	// is returned if no user exists for the username.
	UserGetByUsername(string) (*User, error)

	// Return user record given its id. A ErrUserNotFound error is
	// returned if no user exists for the id.
	UserGetByID(int64) (*User, error)

	// Close performs cleanup of the backend.
	Close() error
}
