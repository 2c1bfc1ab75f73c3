// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sessions

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a session is not found in the
	// database. A missing, expired, and forged token are all treated
	// identically by the manager; they all surface as ErrNotFound.
	ErrNotFound = errors.New("session not found")

	// ErrShutdown is returned when the database backend has been shut
	// down.
	ErrShutdown = errors.New("session database is shutdown")
)

// Session is a server side session record. The token is the opaque value
// that travels in the client's cookie; it is the only thing that ties a
// request to this record.
//
// Invariant: LastActivity >= CreatedAt. A session record exists if and only
// if it has not yet been judged expired; expiry judgement happens lazily on
// validation, never in the background.
type Session struct {
	Token        string    `json:"token"`        // Opaque, unguessable, unique
	UserID       int64     `json:"userid"`       // Owning user
	CreatedAt    time.Time `json:"createdat"`    // Time of login
	LastActivity time.Time `json:"lastactivity"` // Slides on each validation
}

// DB represents the session database. The manager is the only component
// that is permitted to mutate a session's LastActivity or delete a session
// on expiry.
type DB interface {
	// Save saves a session to the database, overwriting an existing
	// record with the same token.
	Save(Session) error

	// Get gets a session from the database.
	//
	// An ErrNotFound error MUST be returned if a session is not found
	// for the token.
	Get(token string) (*Session, error)

	// Del deletes a session from the database.
	//
	// An error is not returned if the session does not exist.
	Del(token string) error

	// SessionsCleanup deletes all sessions whose last activity is
	// before the given time and returns the number deleted. This is
	// only used by the optional periodic sweep; the manager itself
	// evicts lazily.
	SessionsCleanup(idleBefore time.Time) (int64, error)

	// Close performs cleanup of the backend.
	Close() error
}

// EncodeSession encodes a Session into a JSON byte slice. Timestamps
// marshal as ISO-8601 strings. This is the single encoding used by
// key-value backends; SQL backends map columns instead.
func EncodeSession(s Session) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSession decodes a JSON byte slice into a Session.
func DecodeSession(payload []byte) (*Session, error) {
	var s Session
	err := json.Unmarshal(payload, &s)
	if err != nil {
		return nil, err
	}

	return &s, nil
}
