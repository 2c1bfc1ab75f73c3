// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
	"github.com/pkg/errors"
	v1 "github.com/quillhq/quill/quillwww/api/v1"
	"github.com/quillhq/quill/quillwww/sessions"
)

// authenticator translates between http requests and an authenticated
// identity. Exactly one strategy is active at a time; the hand rolled
// server side session store and the gorilla encrypted cookie store are
// mutually exclusive implementations of the same interface.
//
// All per request state travels through the request and response writer
// that are passed in. There is no ambient global cookie state.
type authenticator interface {
	// login issues a session for the given user and attaches it to the
	// response.
	login(w http.ResponseWriter, r *http.Request, userID int64) error

	// logout destroys the request's session, if any, and clears the
	// client cookie. Logging out an invalid session is not an error.
	logout(w http.ResponseWriter, r *http.Request) error

	// sessionUserID returns the user id that owns the request's
	// session. A sessions.ErrNotFound error is returned if the request
	// has no cookie, an expired session, or a forged token; the three
	// cases are indistinguishable to the caller.
	sessionUserID(w http.ResponseWriter, r *http.Request) (int64, error)
}

// sessionAuth implements the authenticator interface using the server side
// session manager. The cookie carries only the opaque session token; all
// state lives in the session database.
type sessionAuth struct {
	mgr *sessions.Manager
}

var _ authenticator = (*sessionAuth)(nil)

// newSessionCookie returns the session cookie for the given token. No
// explicit expiry is set; the cookie lives for the browser session and the
// server side inactivity timeout is what enforces the real session
// lifetime.
func newSessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     v1.CookieSession,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
	}
}

func (a *sessionAuth) login(w http.ResponseWriter, r *http.Request, userID int64) error {
	token, err := a.mgr.NewSession(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, newSessionCookie(token))
	return nil
}

func (a *sessionAuth) logout(w http.ResponseWriter, r *http.Request) error {
	c, err := r.Cookie(v1.CookieSession)
	if err == nil {
		err = a.mgr.SessionDestroy(c.Value)
		if err != nil {
			return err
		}
	}

	// Clear the cookie regardless of whether a session existed.
	expired := newSessionCookie("")
	expired.MaxAge = -1
	http.SetCookie(w, expired)

	return nil
}

func (a *sessionAuth) sessionUserID(w http.ResponseWriter, r *http.Request) (int64, error) {
	c, err := r.Cookie(v1.CookieSession)
	if err != nil {
		// No cookie; treat the caller as anonymous.
		return 0, sessions.ErrNotFound
	}

	return a.mgr.SessionValidate(c.Value)
}

// cookieAuth implements the authenticator interface using gorilla/sessions
// encrypted cookies. All of the interesting session handling is delegated
// to the library; the server holds no per session state. The cookie max age
// matches the inactivity window and the cookie is re-saved on every
// successful validation, which gives the same sliding behavior as the
// server side store.
type cookieAuth struct {
	store *gsessions.CookieStore
}

var _ authenticator = (*cookieAuth)(nil)

// cookieAuthUserID is the session value key for the owning user id.
const cookieAuthUserID = "user_id"

func (a *cookieAuth) login(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, err := a.store.Get(r, v1.CookieSession)
	if err != nil {
		// A malformed or forged cookie decodes to a new session, which
		// is what login wants anyway.
		session, _ = a.store.New(r, v1.CookieSession)
		if session == nil {
			return err
		}
	}
	session.Values[cookieAuthUserID] = userID
	return a.store.Save(r, w, session)
}

func (a *cookieAuth) logout(w http.ResponseWriter, r *http.Request) error {
	// A cookie that fails to decode still comes back as a new session;
	// the client cookie gets cleared either way.
	session, err := a.store.Get(r, v1.CookieSession)
	if session == nil {
		return err
	}
	session.Options.MaxAge = -1
	return a.store.Save(r, w, session)
}

func (a *cookieAuth) sessionUserID(w http.ResponseWriter, r *http.Request) (int64, error) {
	session, err := a.store.Get(r, v1.CookieSession)
	if err != nil || session.IsNew {
		return 0, sessions.ErrNotFound
	}

	userID, ok := session.Values[cookieAuthUserID].(int64)
	if !ok {
		return 0, sessions.ErrNotFound
	}

	// Re-save the session to slide the cookie expiry forward.
	err = a.store.Save(r, w, session)
	if err != nil {
		return 0, err
	}

	return userID, nil
}

// newCookieAuth returns a cookieAuth that encodes sessions with the given
// key pairs.
func newCookieAuth(timeout time.Duration, keyPairs ...[]byte) *cookieAuth {
	store := gsessions.NewCookieStore(keyPairs...)
	store.Options = &gsessions.Options{
		Path:     "/",
		MaxAge:   int(timeout.Seconds()),
		HttpOnly: true,
		Secure:   true,
	}
	return &cookieAuth{
		store: store,
	}
}

// loadCookieKey loads the secret cookie key from the config. A new key is
// generated and saved if one does not exist yet.
func loadCookieKey(cookieKeyFile string) ([]byte, error) {
	cookieKeyLength := 32 // In bytes

	cookieKey, err := os.ReadFile(cookieKeyFile)
	if err != nil {
		log.Infof("Cookie key not found; generating one")
		cookieKey = securecookie.GenerateRandomKey(cookieKeyLength)
		if cookieKey == nil {
			return nil, errors.Errorf("generate cookie key")
		}
		err = os.WriteFile(cookieKeyFile, cookieKey, 0400)
		if err != nil {
			return nil, err
		}
		log.Infof("Cookie key saved to %v", cookieKeyFile)
	}

	if len(cookieKey) != cookieKeyLength {
		return nil, errors.Errorf("cookie key is corrupt")
	}

	return cookieKey, nil
}
