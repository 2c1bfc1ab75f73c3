// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	v1 "github.com/quillhq/quill/quillwww/api/v1"
	"github.com/quillhq/quill/quillwww/articles"
	"github.com/quillhq/quill/quillwww/sessions"
	"github.com/quillhq/quill/quillwww/user"
	"github.com/quillhq/quill/util"
)

// permission determines the access level that a route requires.
type permission uint

const (
	permissionPublic permission = iota
	permissionLogin
)

// quillwww is the context for the quillwww daemon.
type quillwww struct {
	cfg    *config
	router *mux.Router

	// auth is the active authentication strategy. The hand rolled
	// session store and the gorilla cookie store are mutually
	// exclusive; exactly one is configured at startup.
	auth authenticator

	// smgr is only set when the hand rolled session store is the
	// active authentication strategy. It is used by the optional
	// session sweep.
	smgr *sessions.Manager

	userdb    user.Database
	articledb articles.Database
}

// RespondWithError returns an HTTP error status to the client. If it's a
// user error, it returns a 4xx HTTP status and the specific user error
// code. If it's an internal server error, it returns 500 and an error code
// which is also outputted to the logs so that it can be correlated later if
// the user files a complaint.
func RespondWithError(w http.ResponseWriter, r *http.Request, userHttpCode int, format string, args ...interface{}) {
	if userErr, ok := args[0].(v1.UserError); ok {
		if userHttpCode == 0 {
			userHttpCode = http.StatusBadRequest
		}

		if len(userErr.ErrorContext) == 0 {
			log.Errorf("RespondWithError: %v %v %v",
				util.RemoteAddr(r),
				int64(userErr.ErrorCode),
				v1.ErrorStatus[userErr.ErrorCode])
		} else {
			log.Errorf("RespondWithError: %v %v %v: %v",
				util.RemoteAddr(r),
				int64(userErr.ErrorCode),
				v1.ErrorStatus[userErr.ErrorCode],
				strings.Join(userErr.ErrorContext, ", "))
		}

		util.RespondWithJSON(w, userHttpCode,
			v1.ErrorReply{
				ErrorCode:    int64(userErr.ErrorCode),
				ErrorContext: userErr.ErrorContext,
			})
		return
	}

	errorCode := time.Now().Unix()
	ec := fmt.Sprintf("%v %v %v %v Internal error %v: ", util.RemoteAddr(r),
		r.Method, r.URL, r.Proto, errorCode)
	log.Errorf(ec+format, args...)
	if stack, ok := util.StackTrace(argErr(args)); ok {
		log.Errorf("Stacktrace (NOT A REAL CRASH): %v", stack)
	} else {
		log.Errorf("Stacktrace (NOT A REAL CRASH): %s", debug.Stack())
	}

	util.RespondWithJSON(w, http.StatusInternalServerError,
		v1.ErrorReply{
			ErrorCode: errorCode,
		})
}

// argErr returns the first error in the args, if any. RespondWithError is
// called with the causing error as one of the format args; pulling it back
// out lets the pkg/errors stack trace be logged when one is attached.
func argErr(args []interface{}) error {
	for _, v := range args {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return nil
}

// handleNotFound handles all invalid routes and returns a 404 to the
// client.
func (p *quillwww) handleNotFound(w http.ResponseWriter, r *http.Request) {
	// Log incoming connection
	log.Debugf("Invalid route: %v %v %v %v", util.RemoteAddr(r), r.Method,
		r.URL, r.Proto)

	util.RespondWithJSON(w, http.StatusNotFound, nil)
}

// handleVersion is an HTTP GET to determine the version and API route this
// backend is using. Additionally it is used to obtain a CSRF token.
func (p *quillwww) handleVersion(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleVersion")

	// Set the CSRF header. This is the only route that sets the CSRF
	// header.
	w.Header().Set(v1.CsrfToken, csrf.Token(r))

	util.RespondWithJSON(w, http.StatusOK, v1.VersionReply{
		Version: v1.QuillWWWAPIVersion,
		Route:   v1.QuillWWWAPIRoute,
	})
}

// handlePolicy returns the server policy.
func (p *quillwww) handlePolicy(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handlePolicy")

	util.RespondWithJSON(w, http.StatusOK, v1.PolicyReply{
		MinPasswordLength:        v1.PolicyMinPasswordLength,
		MinUsernameLength:        v1.PolicyMinUsernameLength,
		MaxUsernameLength:        v1.PolicyMaxUsernameLength,
		MaxArticleTitleLength:    v1.PolicyMaxArticleTitleLength,
		MaxArticleContentLength:  v1.PolicyMaxArticleContentLength,
		SessionTimeoutSeconds:    v1.SessionTimeoutSeconds,
		ArticleEditWindowSeconds: v1.PolicyArticleEditWindowSeconds,
		ArticleListPageSize:      v1.ArticleListPageSize,
	})
}

// addRoute sets up a handler for a specific method+route. The permission
// determines which middleware chain the handler is wrapped with.
func (p *quillwww) addRoute(method string, route string, handler http.HandlerFunc, perm permission) {
	fullRoute := v1.QuillWWWAPIRoute + route

	switch perm {
	case permissionLogin:
		handler = logging(p.isLoggedIn(handler))
	default:
		handler = logging(handler)
	}

	// All handlers need to close the body
	handler = closeBody(handler)

	p.router.StrictSlash(true).HandleFunc(fullRoute, handler).Methods(method)
}

// setQuillWWWRoutes sets up the quill www api routes.
func (p *quillwww) setQuillWWWRoutes() {
	// Public routes
	p.router.NotFoundHandler = closeBody(p.handleNotFound)
	p.addRoute(http.MethodGet, v1.RouteVersion, p.handleVersion,
		permissionPublic)
	p.addRoute(http.MethodGet, v1.RoutePolicy, p.handlePolicy,
		permissionPublic)
	p.addRoute(http.MethodPost, v1.RouteNewUser, p.handleNewUser,
		permissionPublic)
	p.addRoute(http.MethodPost, v1.RouteLogin, p.handleLogin,
		permissionPublic)
	p.addRoute(http.MethodPost, v1.RouteLogout, p.handleLogout,
		permissionPublic)
	p.addRoute(http.MethodGet, v1.RouteArticles, p.handleArticles,
		permissionPublic)
	p.addRoute(http.MethodGet, v1.RouteArticleDetails,
		p.handleArticleDetails, permissionPublic)

	// Routes that require being logged in
	p.addRoute(http.MethodGet, v1.RouteUserMe, p.handleMe,
		permissionLogin)
	p.addRoute(http.MethodPost, v1.RouteNewArticle, p.handleNewArticle,
		permissionLogin)
	p.addRoute(http.MethodPost, v1.RouteEditArticle, p.handleEditArticle,
		permissionLogin)
	p.addRoute(http.MethodPost, v1.RouteNewComment, p.handleNewComment,
		permissionLogin)
}
