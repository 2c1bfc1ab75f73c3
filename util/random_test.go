// Copyright (c) 2026 The Quill developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package util

import (
	"bytes"
	"testing"
)

func TestRandom(t *testing.T) {
	b1, err := Random(16)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if len(b1) != 16 {
		t.Fatalf("got %v bytes, want 16", len(b1))
	}

	b2, err := Random(16)
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if bytes.Equal(b1, b2) {
		t.Fatalf("two random reads should not be equal")
	}
}
