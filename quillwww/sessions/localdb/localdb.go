// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package localdb

import (
	"sync"
	"time"

	"github.com/quillhq/quill/quillwww/sessions"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// sessionPrefix is the prefix for all session record keys. The remainder of
// the key is the session token.
const sessionPrefix = "session:"

var (
	_ sessions.DB = (*localdb)(nil)
)

// localdb implements the sessions.DB interface with a leveldb backend.
type localdb struct {
	sync.Mutex

	shutdown  bool        // Backend is shutdown
	root      string      // Database root
	sessiondb *leveldb.DB // Database context
}

func sessionKey(token string) []byte {
	return []byte(sessionPrefix + token)
}

// Save saves a session to the database.
//
// Save satisfies the sessions.DB interface.
func (l *localdb) Save(s sessions.Session) error {
	log.Tracef("Save")

	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return sessions.ErrShutdown
	}

	payload, err := sessions.EncodeSession(s)
	if err != nil {
		return err
	}

	return l.sessiondb.Put(sessionKey(s.Token), payload, nil)
}

// Get gets a session from the database. An ErrNotFound error is returned if
// no session exists for the token.
//
// Get satisfies the sessions.DB interface.
func (l *localdb) Get(token string) (*sessions.Session, error) {
	log.Tracef("Get")

	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return nil, sessions.ErrShutdown
	}

	payload, err := l.sessiondb.Get(sessionKey(token), nil)
	if err == leveldb.ErrNotFound {
		return nil, sessions.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return sessions.DecodeSession(payload)
}

// Del deletes a session from the database. An error is not returned if the
// session does not exist.
//
// Del satisfies the sessions.DB interface.
func (l *localdb) Del(token string) error {
	log.Tracef("Del")

	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return sessions.ErrShutdown
	}

	return l.sessiondb.Delete(sessionKey(token), nil)
}

// SessionsCleanup deletes all sessions whose last activity is before the
// given time and returns the number deleted.
//
// SessionsCleanup satisfies the sessions.DB interface.
func (l *localdb) SessionsCleanup(idleBefore time.Time) (int64, error) {
	log.Tracef("SessionsCleanup")

	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return 0, sessions.ErrShutdown
	}

	batch := new(leveldb.Batch)
	var deleted int64

	iter := l.sessiondb.NewIterator(util.BytesPrefix([]byte(sessionPrefix)), nil)
	for iter.Next() {
		s, err := sessions.DecodeSession(iter.Value())
		if err != nil {
			iter.Release()
			return 0, err
		}
		if s.LastActivity.Before(idleBefore) {
			batch.Delete(append([]byte(nil), iter.Key()...))
			deleted++
		}
	}
	iter.Release()
	err := iter.Error()
	if err != nil {
		return 0, err
	}

	err = l.sessiondb.Write(batch, nil)
	if err != nil {
		return 0, err
	}

	log.Debugf("Deleted %v expired sessions from the database", deleted)

	return deleted, nil
}

// Close shuts down the database.
//
// Close satisfies the sessions.DB interface.
func (l *localdb) Close() error {
	l.Lock()
	defer l.Unlock()

	l.shutdown = true
	return l.sessiondb.Close()
}

// New creates a new localdb instance rooted at the provided path.
func New(root string) (*localdb, error) {
	log.Tracef("New: %v", root)

	db, err := leveldb.OpenFile(root, nil)
	if err != nil {
		return nil, err
	}

	return &localdb{
		root:      root,
		sessiondb: db,
	}, nil
}
