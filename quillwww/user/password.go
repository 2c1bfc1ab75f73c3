// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package user

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/quillhq/quill/util"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// saltSize is the size in bytes of the random salt that is generated
	// for each user on registration.
	saltSize = 16

	// pbkdf2Iterations is the PBKDF2 iteration count. Raising this makes
	// offline brute forcing of stolen digests proportionally slower.
	pbkdf2Iterations = 100000

	// pbkdf2KeySize is the size in bytes of the derived key.
	pbkdf2KeySize = 32
)

// NewSalt returns a salt of cryptographically random data. A failure to read
// from the system RNG is fatal for the calling operation and is returned as
// an error; the caller must never fall back to a weaker source.
func NewSalt() ([]byte, error) {
	return util.Random(saltSize)
}

// HashPassword derives a digest from the password and salt using PBKDF2 with
// an HMAC-SHA256 core. The digest is deterministic for a given (password,
// salt) pair and is returned base64 encoded for storage.
func HashPassword(password string, salt []byte) string {
	digest := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations,
		pbkdf2KeySize, sha256.New)
	return base64.StdEncoding.EncodeToString(digest)
}

// VerifyPassword recomputes the digest of the entered password with the
// user's stored salt and compares it against the stored digest. The compare
// is constant time.
func VerifyPassword(u *User, password string) bool {
	if len(u.Salt) == 0 || u.HashedPassword == "" {
		return false
	}
	hashed := HashPassword(password, u.Salt)
	return subtle.ConstantTimeCompare([]byte(hashed),
		[]byte(u.HashedPassword)) == 1
}
