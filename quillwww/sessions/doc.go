// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package sessions implements server side sessions with sliding expiration.

A session is created on login. The manager generates an opaque token from 16
bytes of cryptographically random data and persists a record keyed by that
token. The token is the only thing the client holds; all session state lives
on the server.

Every validation of a token slides the session's last activity timestamp
forward. A session whose last activity is older than the inactivity window
is deleted the next time its token is presented. There is no background
eviction: a session that is never presented again simply remains in the
database. This is a deliberate trade-off; callers that care about the
orphaned storage can run the cleanup method periodically, which is a
non-breaking addition on top of the lazy eviction.

The database is pluggable behind the DB interface. Two backends are
provided, leveldb and mysql, sharing a single session encoding.
*/
package sessions
