// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/securecookie"
	v1 "github.com/quillhq/quill/quillwww/api/v1"
	"github.com/quillhq/quill/quillwww/sessions"
)

func newTestCookieAuth(t *testing.T) *cookieAuth {
	t.Helper()

	return newCookieAuth(sessions.DefaultTimeout,
		securecookie.GenerateRandomKey(32))
}

// sessionCookie returns the session cookie that the recorded response set.
func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == v1.CookieSession {
			return c
		}
	}
	t.Fatalf("no %v cookie in response", v1.CookieSession)
	return nil
}

func TestCookieAuthRoundTrip(t *testing.T) {
	a := newTestCookieAuth(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	err := a.login(w, r, 42)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	c := sessionCookie(t, w)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	userID, err := a.sessionUserID(w, r)
	if err != nil {
		t.Fatalf("sessionUserID: %v", err)
	}
	if userID != 42 {
		t.Fatalf("got user id %v, want 42", userID)
	}
}

func TestCookieAuthLogoutClears(t *testing.T) {
	a := newTestCookieAuth(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	err := a.login(w, r, 42)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	valid := sessionCookie(t, w)

	// A valid cookie and a cookie that fails to decode must both end up
	// cleared on the client.
	for _, c := range []*http.Cookie{
		valid,
		{Name: v1.CookieSession, Value: "bm90IGEgcmVhbCBjb29raWU"},
	} {
		w = httptest.NewRecorder()
		r = httptest.NewRequest(http.MethodPost, "/", nil)
		r.AddCookie(c)
		err = a.logout(w, r)
		if err != nil {
			t.Fatalf("logout: %v", err)
		}
		got := sessionCookie(t, w)
		if got.MaxAge >= 0 {
			t.Fatalf("cookie %q: got MaxAge %v, want negative",
				c.Value, got.MaxAge)
		}
	}
}
