// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package user

import (
	"encoding/json"
)

// EncodeUser encodes a User into a JSON byte slice. This is the single
// encoding used by key-value backends; SQL backends map columns instead.
func EncodeUser(u User) ([]byte, error) {
	return json.Marshal(u)
}

// DecodeUser decodes a JSON byte slice into a User.
func DecodeUser(payload []byte) (*User, error) {
	var u User
	err := json.Unmarshal(payload, &u)
	if err != nil {
		return nil, err
	}

	return &u, nil
}
