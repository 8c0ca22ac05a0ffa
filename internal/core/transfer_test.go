package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestManager(t *testing.T) *TransferManager {
	t.Helper()
	m, err := NewTransferManager(t.TempDir())
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestTransferLifecycle(t *testing.T) {
	m := newTestManager(t)

	tf := &Transfer{
		FileID:    "f-1",
		Sender:    "alice",
		Recipient: "bob",
		Filename:  "notes.txt",
		Path:      m.DestPath("f-1", "notes.txt"),
	}
	if err := m.Begin(tf); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := m.Begin(tf); !errors.Is(err, ErrTransferExists) {
		t.Fatalf("duplicate begin: got %v", err)
	}

	_, done, err := m.Apply("f-1", 0, 3, []byte("aa"))
	if err != nil || done {
		t.Fatalf("chunk 0: done=%v err=%v", done, err)
	}
	_, done, err = m.Apply("f-1", 1, 3, []byte("bb"))
	if err != nil || done {
		t.Fatalf("chunk 1: done=%v err=%v", done, err)
	}
	final, done, err := m.Apply("f-1", 2, 3, []byte("cc"))
	if err != nil || !done {
		t.Fatalf("chunk 2: done=%v err=%v", done, err)
	}
	if final.ChunksReceived != 3 {
		t.Fatalf("expected 3 chunks received, got %d", final.ChunksReceived)
	}

	data, err := os.ReadFile(final.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "aabbcc" {
		t.Fatalf("assembled = %q", data)
	}

	if m.Len() != 0 {
		t.Fatal("state must be discarded on completion")
	}
	if _, _, err := m.Apply("f-1", 3, 3, []byte("dd")); !errors.Is(err, ErrUnknownTransfer) {
		t.Fatalf("chunk after completion: got %v", err)
	}
}

func TestTransferRejectsOutOfOrderChunk(t *testing.T) {
	m := newTestManager(t)

	tf := &Transfer{FileID: "f-1", Filename: "a.bin", Path: m.DestPath("f-1", "a.bin")}
	if err := m.Begin(tf); err != nil {
		t.Fatalf("begin: %v", err)
	}

	if _, _, err := m.Apply("f-1", 1, 2, []byte("xx")); !errors.Is(err, ErrChunkOutOfOrder) {
		t.Fatalf("expected out-of-order rejection, got %v", err)
	}
	// The transfer is still usable with the right chunk.
	if _, done, err := m.Apply("f-1", 0, 2, []byte("xx")); err != nil || done {
		t.Fatalf("in-order chunk after rejection: done=%v err=%v", done, err)
	}
}

func TestTransferUnknownID(t *testing.T) {
	m := newTestManager(t)
	if _, _, err := m.Apply("ghost", 0, 1, []byte("x")); !errors.Is(err, ErrUnknownTransfer) {
		t.Fatalf("expected unknown transfer, got %v", err)
	}
}

func TestTransferAnyChunkSizeAccepted(t *testing.T) {
	m := newTestManager(t)

	tf := &Transfer{FileID: "f-1", Filename: "mix.bin", Path: m.DestPath("f-1", "mix.bin")}
	if err := m.Begin(tf); err != nil {
		t.Fatalf("begin: %v", err)
	}

	sizes := []int{1, 16384, 7}
	total := 0
	for i, n := range sizes {
		_, done, err := m.Apply("f-1", i, len(sizes), make([]byte, n))
		if err != nil {
			t.Fatalf("chunk %d (%d bytes): %v", i, n, err)
		}
		total += n
		if done != (i == len(sizes)-1) {
			t.Fatalf("chunk %d: done=%v", i, done)
		}
	}

	info, err := os.Stat(tf.Path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != int64(total) {
		t.Fatalf("file size %d, want %d", info.Size(), total)
	}
}

func TestDestPathFlattensTraversal(t *testing.T) {
	m := newTestManager(t)

	p := m.DestPath("f-1", "../../etc/passwd")
	if strings.Contains(p, "..") {
		t.Fatalf("destination must not contain traversal: %s", p)
	}
	if filepath.Base(p) != "f-1_passwd" {
		t.Fatalf("unexpected destination name: %s", p)
	}

	win := m.DestPath("f-2", `..\..\boot.ini`)
	if filepath.Base(win) != "f-2_boot.ini" {
		t.Fatalf("unexpected windows-style destination: %s", win)
	}
}

func TestTransferDrop(t *testing.T) {
	m := newTestManager(t)

	tf := &Transfer{FileID: "f-1", Filename: "a", Path: m.DestPath("f-1", "a")}
	if err := m.Begin(tf); err != nil {
		t.Fatalf("begin: %v", err)
	}

	dropped, ok := m.Drop("f-1")
	if !ok || dropped.FileID != "f-1" {
		t.Fatalf("drop: ok=%v t=%+v", ok, dropped)
	}
	if _, ok := m.Drop("f-1"); ok {
		t.Fatal("second drop must report absence")
	}
}
