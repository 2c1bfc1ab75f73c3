// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sessions

import (
	"sync"
	"testing"
	"time"

	"github.com/go-test/deep"
)

// testDB is an in-memory session DB used to exercise the manager.
type testDB struct {
	mtx      sync.Mutex
	sessions map[string]Session
}

func newTestDB() *testDB {
	return &testDB{
		sessions: make(map[string]Session),
	}
}

func (db *testDB) Save(s Session) error {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	db.sessions[s.Token] = s
	return nil
}

func (db *testDB) Get(token string) (*Session, error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	s, ok := db.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (db *testDB) Del(token string) error {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	delete(db.sessions, token)
	return nil
}

func (db *testDB) SessionsCleanup(idleBefore time.Time) (int64, error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	var n int64
	for token, s := range db.sessions {
		if s.LastActivity.Before(idleBefore) {
			delete(db.sessions, token)
			n++
		}
	}
	return n, nil
}

func (db *testDB) Close() error {
	return nil
}

// newTestManager returns a manager whose clock is under the test's control.
// The returned function moves the clock.
func newTestManager(t *testing.T, db DB) (*Manager, func(d time.Duration)) {
	t.Helper()

	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	m := New(db, nil)
	m.now = func() time.Time { return now }

	return m, func(d time.Duration) { now = now.Add(d) }
}

func TestNewSession(t *testing.T) {
	db := newTestDB()
	m, _ := newTestManager(t, db)

	// Tokens must be unique across issuance.
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := m.NewSession(42)
		if err != nil {
			t.Fatalf("NewSession: %v", err)
		}
		if _, ok := seen[token]; ok {
			t.Fatalf("duplicate session token issued: %v", token)
		}
		seen[token] = struct{}{}

		s, err := db.Get(token)
		if err != nil {
			t.Fatalf("session was not persisted: %v", err)
		}
		want := Session{
			Token:        token,
			UserID:       42,
			CreatedAt:    m.now(),
			LastActivity: m.now(),
		}
		if diff := deep.Equal(*s, want); diff != nil {
			t.Fatalf("session record: %v", diff)
		}
	}
}

func TestSessionValidateSlides(t *testing.T) {
	db := newTestDB()
	m, advance := newTestManager(t, db)

	token, err := m.NewSession(7)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	createdAt := m.now()

	// Validate just inside the inactivity window. The session must
	// still be valid and its LastActivity must slide to now.
	advance(m.Timeout() - time.Second)
	userID, err := m.SessionValidate(token)
	if err != nil {
		t.Fatalf("SessionValidate: %v", err)
	}
	if userID != 7 {
		t.Fatalf("got user id %v, want 7", userID)
	}

	s, err := db.Get(token)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !s.LastActivity.Equal(m.now()) {
		t.Fatalf("LastActivity did not slide: got %v, want %v",
			s.LastActivity, m.now())
	}
	if !s.CreatedAt.Equal(createdAt) {
		t.Fatalf("CreatedAt changed: got %v, want %v", s.CreatedAt,
			createdAt)
	}

	// The slide restarts the window. Another validation just inside
	// the new window must also succeed even though the session is now
	// older than a single window.
	advance(m.Timeout() - time.Second)
	_, err = m.SessionValidate(token)
	if err != nil {
		t.Fatalf("SessionValidate after slide: %v", err)
	}
}

func TestSessionValidateBoundary(t *testing.T) {
	db := newTestDB()
	m, advance := newTestManager(t, db)

	token, err := m.NewSession(7)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	// Idle for exactly the inactivity window. The window is inclusive;
	// only sessions idle for strictly longer expire.
	advance(m.Timeout())
	_, err = m.SessionValidate(token)
	if err != nil {
		t.Fatalf("session idle for exactly the window should be valid: %v",
			err)
	}
}

func TestSessionValidateExpires(t *testing.T) {
	db := newTestDB()
	m, advance := newTestManager(t, db)

	token, err := m.NewSession(7)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	// Idle past the inactivity window. The session must be judged
	// expired and deleted.
	advance(m.Timeout() + time.Second)
	_, err = m.SessionValidate(token)
	if err != ErrNotFound {
		t.Fatalf("got err %v, want %v", err, ErrNotFound)
	}
	if _, err := db.Get(token); err != ErrNotFound {
		t.Fatalf("expired session was not deleted")
	}

	// An expired session must never come back, even if the clock moves
	// forward only a little between attempts.
	advance(time.Second)
	_, err = m.SessionValidate(token)
	if err != ErrNotFound {
		t.Fatalf("expired session was resurrected: %v", err)
	}
}

func TestSessionValidateUnknownToken(t *testing.T) {
	db := newTestDB()
	m, _ := newTestManager(t, db)

	_, err := m.SessionValidate("bogus")
	if err != ErrNotFound {
		t.Fatalf("got err %v, want %v", err, ErrNotFound)
	}
}

func TestSessionDestroy(t *testing.T) {
	db := newTestDB()
	m, _ := newTestManager(t, db)

	token, err := m.NewSession(7)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	err = m.SessionDestroy(token)
	if err != nil {
		t.Fatalf("SessionDestroy: %v", err)
	}
	if _, err := m.SessionValidate(token); err != ErrNotFound {
		t.Fatalf("destroyed session still validates")
	}

	// Destroy is idempotent.
	err = m.SessionDestroy(token)
	if err != nil {
		t.Fatalf("SessionDestroy on missing session: %v", err)
	}
}

func TestSessionsCleanup(t *testing.T) {
	db := newTestDB()
	m, advance := newTestManager(t, db)

	stale, err := m.NewSession(1)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	advance(m.Timeout() + time.Minute)
	fresh, err := m.NewSession(2)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	n, err := m.SessionsCleanup()
	if err != nil {
		t.Fatalf("SessionsCleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %v deleted sessions, want 1", n)
	}
	if _, err := db.Get(stale); err != ErrNotFound {
		t.Fatalf("stale session survived the sweep")
	}
	if _, err := db.Get(fresh); err != nil {
		t.Fatalf("fresh session was swept: %v", err)
	}
}

// TestSessionValidateConcurrent hammers a single token from many goroutines
// to exercise the per token locking. The run is only useful under the race
// detector; correctness wise every validation must either succeed or report
// ErrNotFound.
func TestSessionValidateConcurrent(t *testing.T) {
	db := newTestDB()
	m, _ := newTestManager(t, db)

	token, err := m.NewSession(7)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				userID, err := m.SessionValidate(token)
				if err != nil && err != ErrNotFound {
					t.Errorf("SessionValidate: %v", err)
					return
				}
				if err == nil && userID != 7 {
					t.Errorf("got user id %v, want 7", userID)
					return
				}
			}
		}()
	}
	wg.Wait()
}
