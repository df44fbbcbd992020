// Copyright 2026 The frontend-digitizers-calibration Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mmap // import "github.com/datastreaming/frontend-digitizers-calibration/internal/mmap"

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestHandle(t *testing.T) {
	t.Run("nil-handle", func(t *testing.T) {
		var h *Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		err = h.Close()
		if !errors.Is(err, os.ErrInvalid) {
			t.Fatalf("invalid close error: %+v", err)
		}
	})
	t.Run("nil-data", func(t *testing.T) {
		var h Handle

		_, err := h.ReadAt(nil, 0)
		if !errors.Is(err, errClosed) {
			t.Fatalf("invalid read-at error: %+v", err)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("error closing nil-data handle: %+v", err)
		}
	})
}

func TestReadAt(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "data.bin")
	err := os.WriteFile(fname, []byte{0, 1, 2, 3}, 0644)
	if err != nil {
		t.Fatalf("could not create file: %+v", err)
	}

	h, err := Open(fname)
	if err != nil {
		t.Fatalf("could not mmap file: %+v", err)
	}
	defer h.Close()

	if got, want := h.Len(), 4; got != want {
		t.Fatalf("invalid len: got=%d, want=%d", got, want)
	}

	p := make([]byte, 3)
	n, err := h.ReadAt(p, 2)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("invalid short read-at error: %+v", err)
	}
	if got, want := p[:n], []byte{2, 3}; !bytes.Equal(got, want) {
		t.Fatalf("invalid read-at: got=%v, want=%v", got, want)
	}

	n, err = h.ReadAt(p[:2], 1)
	if err != nil {
		t.Fatalf("could not read-at: %+v", err)
	}
	if got, want := p[:n], []byte{1, 2}; !bytes.Equal(got, want) {
		t.Fatalf("invalid read-at: got=%v, want=%v", got, want)
	}

	_, err = h.ReadAt(p, 5)
	if err == nil {
		t.Fatalf("expected an error for an out-of-bounds offset")
	}

	err = h.Close()
	if err != nil {
		t.Fatalf("could not close handle: %+v", err)
	}

	_, err = h.ReadAt(p, 0)
	if !errors.Is(err, errClosed) {
		t.Fatalf("invalid read-at error after close: %+v", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	t.Run("file", func(t *testing.T) {
		fname := filepath.Join(dir, "data.bin")
		want := []byte("CAL2-0123456789")
		err := os.WriteFile(fname, want, 0644)
		if err != nil {
			t.Fatalf("could not create file: %+v", err)
		}

		h, err := Open(fname)
		if err != nil {
			t.Fatalf("could not mmap file: %+v", err)
		}
		defer h.Close()

		if got := h.Bytes(); !bytes.Equal(got, want) {
			t.Fatalf("invalid content: got=%q, want=%q", got, want)
		}

		err = h.Close()
		if err != nil {
			t.Fatalf("could not close handle: %+v", err)
		}

		if got, want := h.Len(), 0; got != want {
			t.Fatalf("invalid len after close: got=%d, want=%d", got, want)
		}
	})

	t.Run("empty", func(t *testing.T) {
		fname := filepath.Join(dir, "empty.bin")
		err := os.WriteFile(fname, nil, 0644)
		if err != nil {
			t.Fatalf("could not create file: %+v", err)
		}

		h, err := Open(fname)
		if err != nil {
			t.Fatalf("could not open empty file: %+v", err)
		}
		if got, want := h.Len(), 0; got != want {
			t.Fatalf("invalid len: got=%d, want=%d", got, want)
		}
		err = h.Close()
		if err != nil {
			t.Fatalf("could not close handle: %+v", err)
		}
	})

	t.Run("not-exist", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "not-there.bin"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("invalid error: %+v", err)
		}
	})
}
