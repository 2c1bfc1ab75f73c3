// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"net/http"
	"runtime/debug"

	v1 "github.com/quillhq/quill/quillwww/api/v1"
	"github.com/quillhq/quill/util"
)

// contextKey is the type used for request context keys so that they cannot
// collide with keys set by other packages.
type contextKey int

// ctxUserID is the request context key for the authenticated user id.
const ctxUserID contextKey = 0

// sessionUserID returns the authenticated user id that the auth gate
// attached to the request context. The returned bool indicates whether the
// request is authenticated.
func sessionUserID(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(ctxUserID).(int64)
	return id, ok
}

// isLoggedIn ensures that a user is logged in before calling the next
// function. A request with no cookie, an expired session, or a forged token
// is treated identically: the caller is anonymous and is redirected to the
// login route. The resolved user id is attached to the request context for
// downstream ownership checks and content attribution.
func (p *quillwww) isLoggedIn(f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("isLoggedIn: %v %v %v %v", util.RemoteAddr(r), r.Method,
			r.URL, r.Proto)

		id, err := p.auth.sessionUserID(w, r)
		if err != nil {
			http.Redirect(w, r, v1.QuillWWWAPIRoute+v1.RouteLogin,
				http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, id)
		f(w, r.WithContext(ctx))
	}
}

// logging logs all incoming commands before calling the next function.
//
// NOTE: LOGGING WILL LOG PASSWORDS IF TRACING IS ENABLED.
func logging(f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Trace incoming request
		log.Tracef("%v", newLogClosure(func() string {
			return r.Method + " " + r.URL.String()
		}))

		// Log incoming connection
		log.Infof("%v %v %v %v", util.RemoteAddr(r), r.Method, r.URL,
			r.Proto)
		f(w, r)
	}
}

// closeBody closes the request body after the provided handler is called.
func closeBody(f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f(w, r)
		r.Body.Close()
	}
}

// recoverMiddleware recovers from any panics by logging the panic and
// returning a 500 response.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				errorCode := int64(0)
				log.Criticalf("%v %v %v %v Internal error %v: %v",
					util.RemoteAddr(r), r.Method, r.URL, r.Proto,
					errorCode, err)
				log.Criticalf("Stacktrace (THIS IS AN ACTUAL PANIC): %s",
					debug.Stack())

				util.RespondWithJSON(w, http.StatusInternalServerError,
					v1.ErrorReply{})
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// logClosure is a closure that can be printed with %v to be used to
// generate expensive-to-create data for a detailed log level and avoid
// doing the work if the data isn't printed.
type logClosure func() string

func (c logClosure) String() string {
	return c()
}

func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
