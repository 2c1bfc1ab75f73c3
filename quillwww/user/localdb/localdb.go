// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package localdb

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/quillhq/quill/quillwww/user"
	"github.com/syndtr/goleveldb/leveldb"
)

const (
	// userPrefix is the prefix for all user record keys. The remainder
	// of the key is the user id.
	userPrefix = "user:"

	// usernamePrefix is the prefix for the username index keys. The
	// remainder of the key is the username; the value is the user id.
	usernamePrefix = "username:"

	// lastUserIDKey is the key for the auto increment user id counter.
	lastUserIDKey = "lastuserid"

	// versionKey is the key for the database version record.
	versionKey = "userversion"

	databaseVersion uint32 = 1
)

var (
	_ user.Database = (*localdb)(nil)
)

// localdb implements the user.Database interface with a leveldb backend.
type localdb struct {
	sync.Mutex

	shutdown bool        // Backend is shutdown
	root     string      // Database root
	userdb   *leveldb.DB // Database context
}

// Version contains the database version.
type Version struct {
	Version uint32 `json:"version"` // Database version
	Time    int64  `json:"time"`    // Time of record creation
}

func userKey(id int64) []byte {
	return []byte(userPrefix + strconv.FormatInt(id, 10))
}

func usernameKey(username string) []byte {
	return []byte(usernamePrefix + username)
}

// nextUserID increments and returns the user id counter. The caller must
// hold the lock.
func (l *localdb) nextUserID() (int64, error) {
	var id int64
	b, err := l.userdb.Get([]byte(lastUserIDKey), nil)
	switch err {
	case nil:
		id = int64(binary.LittleEndian.Uint64(b))
	case leveldb.ErrNotFound:
		id = 0
	default:
		return 0, err
	}
	id++

	b = make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(id))
	err = l.userdb.Put([]byte(lastUserIDKey), b, nil)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// UserNew stores a new user record and assigns it a unique id. The username
// index is updated in the same batch as the record itself.
//
// UserNew satisfies the user.Database interface.
func (l *localdb) UserNew(u user.User) (*user.User, error) {
	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return nil, user.ErrShutdown
	}

	log.Debugf("UserNew: %v", u.Username)

	if len(u.Salt) == 0 || u.HashedPassword == "" {
		return nil, user.ErrInvalidCredentials
	}

	// Duplicate username check
	exists, err := l.userdb.Has(usernameKey(u.Username), nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, user.ErrUserExists
	}

	u.ID, err = l.nextUserID()
	if err != nil {
		return nil, err
	}

	payload, err := user.EncodeUser(u)
	if err != nil {
		return nil, err
	}

	idb := make([]byte, 8)
	binary.LittleEndian.PutUint64(idb, uint64(u.ID))

	batch := new(leveldb.Batch)
	batch.Put(userKey(u.ID), payload)
	batch.Put(usernameKey(u.Username), idb)
	err = l.userdb.Write(batch, nil)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// UserGetByUsername returns the user record for the given username.
//
// UserGetByUsername satisfies the user.Database interface.
func (l *localdb) UserGetByUsername(username string) (*user.User, error) {
	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return nil, user.ErrShutdown
	}

	log.Debugf("UserGetByUsername: %v", username)

	idb, err := l.userdb.Get(usernameKey(username), nil)
	if err == leveldb.ErrNotFound {
		return nil, user.ErrUserNotFound
	} else if err != nil {
		return nil, err
	}

	return l.userGet(int64(binary.LittleEndian.Uint64(idb)))
}

// UserGetByID returns the user record for the given id.
//
// UserGetByID satisfies the user.Database interface.
func (l *localdb) UserGetByID(id int64) (*user.User, error) {
	l.Lock()
	defer l.Unlock()

	if l.shutdown {
		return nil, user.ErrShutdown
	}

	log.Debugf("UserGetByID: %v", id)

	return l.userGet(id)
}

// userGet returns the user record for the given id. The caller must hold
// the lock.
func (l *localdb) userGet(id int64) (*user.User, error) {
	payload, err := l.userdb.Get(userKey(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, user.ErrUserNotFound
	} else if err != nil {
		return nil, err
	}

	return user.DecodeUser(payload)
}

// Close shuts down the database. All interface functions MUST return with
// errShutdown if the backend is shutting down.
//
// Close satisfies the user.Database interface.
func (l *localdb) Close() error {
	l.Lock()
	defer l.Unlock()

	l.shutdown = true
	return l.userdb.Close()
}

// openVersion writes out the version record if one does not exist yet and
// verifies the version of an existing database.
func (l *localdb) openVersion() error {
	payload, err := l.userdb.Get([]byte(versionKey), nil)
	switch err {
	case nil:
		version, err := DecodeVersion(payload)
		if err != nil {
			return err
		}
		if version.Version != databaseVersion {
			return fmt.Errorf("wrong database version: got %v, want %v",
				version.Version, databaseVersion)
		}
		return nil
	case leveldb.ErrNotFound:
		// Fresh database, write the record out below.
	default:
		return err
	}

	v, err := EncodeVersion(Version{
		Version: databaseVersion,
		Time:    time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return l.userdb.Put([]byte(versionKey), v, nil)
}

// New creates a new localdb instance rooted at the provided path.
func New(root string) (*localdb, error) {
	log.Tracef("New: %v", root)

	db, err := leveldb.OpenFile(root, nil)
	if err != nil {
		return nil, err
	}

	l := localdb{
		root:   root,
		userdb: db,
	}

	err = l.openVersion()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &l, nil
}
