// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	v1 "github.com/quillhq/quill/quillwww/api/v1"
	"github.com/quillhq/quill/quillwww/user"
	"github.com/quillhq/quill/util"
)

// dateOfBirthFormat is the wire format for dates of birth.
const dateOfBirthFormat = "2006-01-02"

// validUsername and validEmail are the allowed formats for the
// corresponding fields.
var (
	validUsername = regexp.MustCompile(fmt.Sprintf("^[a-z0-9.,;:@+_-]{%v,%v}$",
		v1.PolicyMinUsernameLength, v1.PolicyMaxUsernameLength))
	validEmail = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" +
		`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?` +
		`(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
)

// formatDateOfBirth converts a stored date of birth to its wire format. A
// zero date of birth is returned as an empty string.
func formatDateOfBirth(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateOfBirthFormat)
}

// validateNewUser verifies that all of the fields of a new user request
// conform to policy.
func validateNewUser(nu v1.NewUser) error {
	if !validUsername.MatchString(nu.Username) {
		return v1.UserError{
			ErrorCode: v1.ErrorStatusMalformedUsername,
			ErrorContext: []string{fmt.Sprintf("usernames must match %v",
				validUsername.String())},
		}
	}
	if len(nu.Password) < v1.PolicyMinPasswordLength {
		return v1.UserError{
			ErrorCode: v1.ErrorStatusMalformedPassword,
			ErrorContext: []string{fmt.Sprintf("passwords must be at least"+
				" %v characters", v1.PolicyMinPasswordLength)},
		}
	}
	if len(nu.Email) > v1.PolicyMaxEmailLength ||
		!validEmail.MatchString(nu.Email) {
		return v1.UserError{
			ErrorCode: v1.ErrorStatusMalformedEmail,
		}
	}
	// The date of birth is required. An empty string fails the parse the
	// same way a badly formatted one does.
	if _, err := time.Parse(dateOfBirthFormat, nu.DateOfBirth); err != nil {
		return v1.UserError{
			ErrorCode: v1.ErrorStatusMalformedDOB,
			ErrorContext: []string{"dateofbirth must be formatted " +
				dateOfBirthFormat},
		}
	}
	return nil
}

// processNewUser creates a new user in the db if it doesn't already exist.
func (p *quillwww) processNewUser(nu v1.NewUser) (*v1.NewUserReply, error) {
	log.Tracef("processNewUser: %v", nu.Username)

	err := validateNewUser(nu)
	if err != nil {
		return nil, err
	}

	// validateNewUser has already checked the format.
	dob, err := time.Parse(dateOfBirthFormat, nu.DateOfBirth)
	if err != nil {
		return nil, err
	}

	// Hash the password with a fresh salt. The plaintext password is
	// never stored.
	salt, err := user.NewSalt()
	if err != nil {
		return nil, err
	}
	u, err := p.userdb.UserNew(user.User{
		Username:       nu.Username,
		Email:          nu.Email,
		HashedPassword: user.HashPassword(nu.Password, salt),
		Salt:           salt,
		DateOfBirth:    dob,
	})
	if err == user.ErrUserExists {
		return nil, v1.UserError{
			ErrorCode: v1.ErrorStatusDuplicateUsername,
		}
	}
	if err != nil {
		return nil, err
	}

	log.Infof("New user created: %v (id %v)", u.Username, u.ID)

	return &v1.NewUserReply{
		UserID: u.ID,
	}, nil
}

// processLogin checks that a user exists and that the entered password
// derives to the stored digest. A missing user and a wrong password produce
// the same error so that login failures do not reveal which usernames are
// registered.
func (p *quillwww) processLogin(l v1.Login) (*user.User, error) {
	log.Tracef("processLogin: %v", l.Username)

	errInvalidLogin := v1.UserError{
		ErrorCode: v1.ErrorStatusInvalidLogin,
	}

	u, err := p.userdb.UserGetByUsername(l.Username)
	if err != nil {
		if err == user.ErrUserNotFound {
			return nil, errInvalidLogin
		}
		return nil, err
	}
	if !user.VerifyPassword(u, l.Password) {
		return nil, errInvalidLogin
	}
	return u, nil
}

// handleNewUser handles the incoming new user command. It verifies that the
// new user doesn't already exist, and then creates a new user in the db.
func (p *quillwww) handleNewUser(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleNewUser")

	// Get the new user command.
	var nu v1.NewUser
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&nu); err != nil {
		RespondWithError(w, r, 0, "handleNewUser: unmarshal", v1.UserError{
			ErrorCode: v1.ErrorStatusInvalidInput,
		})
		return
	}

	reply, err := p.processNewUser(nu)
	if err != nil {
		RespondWithError(w, r, 0, "handleNewUser: processNewUser %v", err)
		return
	}

	// Reply with the user id.
	util.RespondWithJSON(w, http.StatusOK, reply)
}

// handleLogin handles the incoming login command. It verifies that the user
// exists and the accompanying password. On success a session is created and
// the session cookie is attached to the response.
func (p *quillwww) handleLogin(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleLogin")

	var l v1.Login
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&l); err != nil {
		RespondWithError(w, r, 0, "handleLogin: unmarshal", v1.UserError{
			ErrorCode: v1.ErrorStatusInvalidInput,
		})
		return
	}

	u, err := p.processLogin(l)
	if err != nil {
		RespondWithError(w, r, http.StatusUnauthorized,
			"handleLogin: processLogin %v", err)
		return
	}

	// Mark the user as logged in.
	err = p.auth.login(w, r, u.ID)
	if err != nil {
		RespondWithError(w, r, 0, "handleLogin: login %v", err)
		return
	}

	log.Infof("User logged in: %v (id %v)", u.Username, u.ID)

	util.RespondWithJSON(w, http.StatusOK, v1.LoginReply{
		UserID:         u.ID,
		Username:       u.Username,
		Email:          u.Email,
		SessionTimeout: v1.SessionTimeoutSeconds,
	})
}

// handleLogout logs the user out. Logging out always succeeds, even when
// there is no active session; a client holding a dead cookie still ends up
// logged out.
func (p *quillwww) handleLogout(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleLogout")

	err := p.auth.logout(w, r)
	if err != nil {
		// Log it but don't fail the command. The server side record, if
		// any, may outlive this call; it ages out through the inactivity
		// timeout.
		log.Errorf("handleLogout: logout: %v", err)
	}

	util.RespondWithJSON(w, http.StatusOK, v1.LogoutReply{})
}

// handleMe returns the user record of the logged in user. The password
// digest and salt are never included.
func (p *quillwww) handleMe(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleMe")

	userID, ok := sessionUserID(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "handleMe: no "+
			"session user", v1.UserError{
			ErrorCode: v1.ErrorStatusNotLoggedIn,
		})
		return
	}

	u, err := p.userdb.UserGetByID(userID)
	if err != nil {
		RespondWithError(w, r, 0, "handleMe: UserGetByID %v", err)
		return
	}

	util.RespondWithJSON(w, http.StatusOK, v1.MeReply{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DateOfBirth: formatDateOfBirth(u.DateOfBirth),
	})
}
