// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sessions

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/quillhq/quill/util"
)

const (
	// tokenSize is the size in bytes of the random data that a session
	// token is derived from. 16 bytes gives 128 bits of entropy, which
	// makes tokens unguessable in practice.
	tokenSize = 16

	// DefaultTimeout is the default inactivity window. A session that
	// is not used for longer than this is judged expired on its next
	// validation.
	DefaultTimeout = 5 * time.Minute
)

// Manager issues, validates, and destroys sessions.
//
// Validating a session is a read-then-conditional-write on a single token.
// The manager serializes this sequence per token with a refcounted keyed
// mutex so that two concurrent requests bearing the same token cannot both
// slide LastActivity off of stale reads, and a slide can never undo a
// concurrent expiry decision. This holds for any DB implementation.
//
// Expiry is lazy. A session that is never validated again persists in the
// database until a sweep runs; there is no background eviction unless the
// caller wires one up (see DB.SessionsCleanup).
type Manager struct {
	db      DB
	timeout time.Duration
	now     func() time.Time // Hook for testing time windows

	mtx   sync.Mutex
	locks map[string]*tokenLock
}

// Opts contains configurable manager options. These are not required. Sane
// defaults are used when the options are not provided.
type Opts struct {
	// Timeout is the inactivity window. Defaults to 5 minutes.
	Timeout time.Duration
}

type tokenLock struct {
	sync.Mutex
	refs int
}

// lock acquires the mutex for the given token and returns the matching
// unlock function.
func (m *Manager) lock(token string) func() {
	m.mtx.Lock()
	tl, ok := m.locks[token]
	if !ok {
		tl = &tokenLock{}
		m.locks[token] = tl
	}
	tl.refs++
	m.mtx.Unlock()

	tl.Lock()

	return func() {
		tl.Unlock()

		m.mtx.Lock()
		tl.refs--
		if tl.refs == 0 {
			delete(m.locks, token)
		}
		m.mtx.Unlock()
	}
}

// NewSession creates a session for the given user, persists it, and returns
// the session token. The caller attaches the token to the client as an
// HttpOnly, Secure cookie. A failure to generate random data is returned as
// an error and aborts the login; it is never degraded.
func (m *Manager) NewSession(userID int64) (string, error) {
	log.Tracef("NewSession: %v", userID)

	b, err := util.Random(tokenSize)
	if err != nil {
		return "", err
	}
	token := base64.StdEncoding.EncodeToString(b)

	now := m.now()
	err = m.db.Save(Session{
		Token:        token,
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
	})
	if err != nil {
		return "", err
	}

	log.Debugf("Session created for user %v", userID)

	return token, nil
}

// SessionValidate looks up the session for the given token and applies the
// sliding expiration policy. If the session has been idle for longer than
// the inactivity window it is deleted and ErrNotFound is returned; this
// deletion is the only eviction mechanism outside the optional sweep. An
// unknown token also returns ErrNotFound. Otherwise LastActivity slides
// forward to now and the owning user id is returned.
func (m *Manager) SessionValidate(token string) (int64, error) {
	log.Tracef("SessionValidate")

	unlock := m.lock(token)
	defer unlock()

	s, err := m.db.Get(token)
	if err != nil {
		return 0, err
	}

	now := m.now()
	if now.Sub(s.LastActivity) > m.timeout {
		log.Debugf("Session expired for user %v", s.UserID)
		err = m.db.Del(token)
		if err != nil {
			return 0, err
		}
		return 0, ErrNotFound
	}

	s.LastActivity = now
	err = m.db.Save(*s)
	if err != nil {
		return 0, err
	}

	return s.UserID, nil
}

// SessionDestroy unconditionally removes the session record if present.
// Destroying a token that does not exist is not an error; the operation is
// idempotent.
func (m *Manager) SessionDestroy(token string) error {
	log.Tracef("SessionDestroy")

	unlock := m.lock(token)
	defer unlock()

	return m.db.Del(token)
}

// SessionsCleanup deletes all sessions that have been idle for longer than
// the inactivity window and returns the number deleted. This is the
// optional sweep; behavior without it matches the lazy-only eviction of the
// validation path.
func (m *Manager) SessionsCleanup() (int64, error) {
	log.Tracef("SessionsCleanup")

	return m.db.SessionsCleanup(m.now().Add(-m.timeout))
}

// Timeout returns the inactivity window.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// New returns a new session Manager backed by the provided DB. The opts
// param can be used to override the default manager settings.
func New(db DB, opts *Opts) *Manager {
	if opts == nil {
		opts = &Opts{}
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Manager{
		db:      db,
		timeout: opts.Timeout,
		now:     time.Now,
		locks:   make(map[string]*tokenLock),
	}
}
