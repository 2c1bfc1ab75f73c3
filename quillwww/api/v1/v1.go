// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package v1

import (
	"fmt"
)

type ErrorStatusT int

const (
	QuillWWWAPIVersion = 1 // API version this backend understands

	CsrfToken = "X-CSRF-Token" // CSRF token for replies

	RouteVersion        = "/version"
	RoutePolicy         = "/policy"
	RouteLogin          = "/login"
	RouteLogout         = "/logout"
	RouteNewUser        = "/user/new"
	RouteUserMe         = "/user/me"
	RouteArticles       = "/articles"
	RouteArticleDetails = "/articles/{articleid:[0-9]+}"
	RouteNewArticle     = "/articles/new"
	RouteEditArticle    = "/articles/edit"
	RouteNewComment     = "/comments/new"

	// CookieSession is the cookie name for the session token that
	// indicates a user is logged in. The cookie is set without an
	// explicit expiry. The server side inactivity timeout is what
	// enforces the real session lifetime.
	CookieSession = "SessionID"

	// SessionTokenSize is the size in bytes of the random data that a
	// session token is derived from. Tokens are base64 encoded before
	// being handed to the client.
	SessionTokenSize = 16

	// SessionTimeoutSeconds is the server side inactivity timeout for
	// a session. Each successful use of a session slides the timeout
	// forward.
	SessionTimeoutSeconds = 300

	// PolicyMinPasswordLength is the minimum number of characters
	// accepted for user passwords.
	PolicyMinPasswordLength = 6

	// PolicyMaxUsernameLength is the max length of a username.
	PolicyMaxUsernameLength = 50

	// PolicyMinUsernameLength is the min length of a username.
	PolicyMinUsernameLength = 1

	// PolicyMaxEmailLength is the max length of an email address.
	PolicyMaxEmailLength = 100

	// PolicyMaxArticleTitleLength is the max length of an article
	// title.
	PolicyMaxArticleTitleLength = 100

	// PolicyMaxArticleContentLength is the max length of the article
	// body.
	PolicyMaxArticleContentLength = 140

	// PolicyArticleEditWindowSeconds is the window after publication
	// during which the author may still edit an article.
	PolicyArticleEditWindowSeconds = 300

	// ArticleListPageSize is the maximum number of articles returned
	// for the routes that return lists of articles.
	ArticleListPageSize = 50

	// Error status codes
	ErrorStatusInvalid           ErrorStatusT = 0
	ErrorStatusInvalidInput      ErrorStatusT = 1
	ErrorStatusInvalidLogin      ErrorStatusT = 2
	ErrorStatusNotLoggedIn       ErrorStatusT = 3
	ErrorStatusMalformedUsername ErrorStatusT = 4
	ErrorStatusMalformedPassword ErrorStatusT = 5
	ErrorStatusMalformedEmail    ErrorStatusT = 6
	ErrorStatusDuplicateUsername ErrorStatusT = 7
	ErrorStatusArticleNotFound   ErrorStatusT = 8
	ErrorStatusMalformedTitle    ErrorStatusT = 9
	ErrorStatusMalformedContent  ErrorStatusT = 10
	ErrorStatusCommentEmpty      ErrorStatusT = 11
	ErrorStatusMalformedDOB      ErrorStatusT = 12
)

var (
	// QuillWWWAPIRoute is the prefix to the API route.
	QuillWWWAPIRoute = fmt.Sprintf("/v%v", QuillWWWAPIVersion)

	// ErrorStatus converts error status codes to human readable text.
	ErrorStatus = map[ErrorStatusT]string{
		ErrorStatusInvalid:           "invalid status",
		ErrorStatusInvalidInput:      "invalid input",
		ErrorStatusInvalidLogin:      "invalid username or password",
		ErrorStatusNotLoggedIn:       "user not logged in",
		ErrorStatusMalformedUsername: "malformed username",
		ErrorStatusMalformedPassword: "malformed password",
		ErrorStatusMalformedEmail:    "malformed email address",
		ErrorStatusDuplicateUsername: "duplicate username",
		ErrorStatusArticleNotFound:   "article not found",
		ErrorStatusMalformedTitle:    "malformed article title",
		ErrorStatusMalformedContent:  "malformed article content",
		ErrorStatusCommentEmpty:      "comment content is empty",
		ErrorStatusMalformedDOB:      "malformed date of birth",
	}
)

// UserError represents an error that is caused by something that the user
// did (malformed input, wrong order of commands, etc).
type UserError struct {
	ErrorCode    ErrorStatusT
	ErrorContext []string
}

// Error satisfies the error interface.
func (e UserError) Error() string {
	return fmt.Sprintf("user error code: %v", e.ErrorCode)
}

// ErrorReply are replies that the server returns when a command fails.
type ErrorReply struct {
	ErrorCode    int64    `json:"errorcode,omitempty"`
	ErrorContext []string `json:"errorcontext,omitempty"`
}

// Version command is used to determine the version of the API this backend
// understands and additionally it provides the route to said API. This call
// is required in order to establish CSRF for the session.
type Version struct{}

// VersionReply returns information that indicates how to access the backend.
type VersionReply struct {
	Version uint   `json:"version"` // quill WWW API version
	Route   string `json:"route"`   // Prefix to API calls
}

// Policy returns the server policy.
type Policy struct{}

// PolicyReply is used to reply to the policy command. It returns the policy
// for the server.
type PolicyReply struct {
	MinPasswordLength        uint   `json:"minpasswordlength"`
	MinUsernameLength        uint   `json:"minusernamelength"`
	MaxUsernameLength        uint   `json:"maxusernamelength"`
	MaxArticleTitleLength    uint   `json:"maxarticletitlelength"`
	MaxArticleContentLength  uint   `json:"maxarticlecontentlength"`
	SessionTimeoutSeconds    uint   `json:"sessiontimeoutseconds"`
	ArticleEditWindowSeconds uint   `json:"articleeditwindowseconds"`
	ArticleListPageSize      uint   `json:"articlelistpagesize"`
}

// NewUser is used to request that a new user be created within the db.
type NewUser struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DateOfBirth string `json:"dateofbirth"` // YYYY-MM-DD
}

// NewUserReply is used to reply to the NewUser command.
type NewUserReply struct {
	UserID int64 `json:"userid"`
}

// Login attempts to login the user. Note that by necessity the password
// travels in the clear.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginReply is used to reply to the Login command.
type LoginReply struct {
	UserID         int64  `json:"userid"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	SessionTimeout int64  `json:"sessiontimeout"` // Seconds
}

// Logout attempts to log the user out.
type Logout struct{}

// LogoutReply indicates whether the Logout command was success or not.
type LogoutReply struct{}

// Me asks the server to return pertinent user information for the user that
// owns the current session.
type Me struct{}

// MeReply contains the user record of the logged in user. The password hash
// and salt are never returned.
type MeReply struct {
	UserID      int64  `json:"userid"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DateOfBirth string `json:"dateofbirth"` // YYYY-MM-DD
}

// Article is an article record returned by the API.
type Article struct {
	ID            int64  `json:"id"`
	AuthorName    string `json:"authorname"`
	AuthorEmail   string `json:"authoremail"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	PublishedDate int64  `json:"publisheddate"` // Unix timestamp
	Edited        bool   `json:"edited"`
}

// Comment is a comment record returned by the API.
type Comment struct {
	ID            int64  `json:"id"`
	ArticleID     int64  `json:"articleid"`
	AuthorID      int64  `json:"authorid"`
	Content       string `json:"content"`
	PublishedDate int64  `json:"publisheddate"` // Unix timestamp
}

// GetArticles retrieves a page of articles, newest first. Start and End
// bound the publication dates that are included; a zero value means
// unbounded.
type GetArticles struct {
	Page  int   `schema:"page"`
	Start int64 `schema:"start"` // Unix timestamp
	End   int64 `schema:"end"`   // Unix timestamp
}

// GetArticlesReply is used to reply to the GetArticles command.
type GetArticlesReply struct {
	Articles   []Article `json:"articles"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalpages"`
}

// ArticleDetailsReply returns an article and its comments.
type ArticleDetailsReply struct {
	Article  Article   `json:"article"`
	Comments []Comment `json:"comments"`
}

// NewArticle publishes a new article. The author is the logged in user.
type NewArticle struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NewArticleReply is used to reply to the NewArticle command.
type NewArticleReply struct {
	Article Article `json:"article"`
}

// EditArticle edits an existing article. Only the original author may edit
// an article and only within the edit window following publication.
type EditArticle struct {
	ArticleID int64  `json:"articleid"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// EditArticleReply is used to reply to the EditArticle command.
type EditArticleReply struct {
	Article Article `json:"article"`
}

// NewComment adds a comment to an article.
type NewComment struct {
	ArticleID int64  `json:"articleid"`
	Content   string `json:"content"`
}

// NewCommentReply is used to reply to the NewComment command.
type NewCommentReply struct {
	Comment Comment `json:"comment"`
}
