package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Transfer is the bookkeeping for one in-progress chunked upload, keyed by
// a client-chosen file id. Owned exclusively by the manager for its
// lifetime: created on a transfer request, mutated per chunk, discarded on
// completion or rejection.
type Transfer struct {
	FileID         string
	Sender         string
	Recipient      string
	Filename       string
	Filesize       int64
	Path           string
	IsDirectory    bool
	TotalChunks    int
	ChunksReceived int
}

// TransferManager applies file chunks to their destination files. It is its
// own lock domain, distinct from both registries.
//
// Chunks must arrive strictly in order: chunk N is accepted only when N
// equals the number of chunks already applied. The router's single worker
// preserves arrival order per transfer, so under that invariant append-only
// writes cannot interleave or corrupt the output file. Out-of-order chunks
// are rejected with ErrChunkOutOfOrder rather than written blindly.
type TransferManager struct {
	mu        sync.Mutex
	dir       string
	transfers map[string]*Transfer
}

// NewTransferManager stores incoming files under dir, creating it if needed.
func NewTransferManager(dir string) (*TransferManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &TransferManager{
		dir:       dir,
		transfers: make(map[string]*Transfer),
	}, nil
}

// DestPath builds the destination path for a transfer. The filename is
// flattened to its base so a peer cannot climb out of the storage dir.
func (m *TransferManager) DestPath(fileID, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	return filepath.Join(m.dir, fileID+"_"+base)
}

// Begin registers a new transfer. Duplicate file ids are rejected.
func (m *TransferManager) Begin(t *Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.transfers[t.FileID]; exists {
		return fmt.Errorf("file %s: %w", t.FileID, ErrTransferExists)
	}
	m.transfers[t.FileID] = t
	return nil
}

// Get returns a snapshot of the transfer for fileID.
func (m *TransferManager) Get(fileID string) (Transfer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transfers[fileID]
	if !ok {
		return Transfer{}, false
	}
	return *t, true
}

// Apply appends one chunk to the destination file. It returns a snapshot of
// the transfer and done=true exactly when the final chunk was applied, at
// which point the state is discarded.
//
// Unknown ids return ErrUnknownTransfer. A chunk arriving out of order
// returns ErrChunkOutOfOrder. A write failure aborts the transfer: the
// state is dropped and the partial file is removed.
func (m *TransferManager) Apply(fileID string, chunkNumber, totalChunks int, data []byte) (Transfer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transfers[fileID]
	if !ok {
		return Transfer{}, false, fmt.Errorf("file %s: %w", fileID, ErrUnknownTransfer)
	}
	if chunkNumber != t.ChunksReceived {
		return *t, false, fmt.Errorf("file %s: got chunk %d, want %d: %w",
			fileID, chunkNumber, t.ChunksReceived, ErrChunkOutOfOrder)
	}
	if totalChunks > 0 {
		t.TotalChunks = totalChunks
	}

	if err := appendChunk(t.Path, data); err != nil {
		delete(m.transfers, fileID)
		os.Remove(t.Path)
		return *t, false, err
	}
	t.ChunksReceived++

	if t.TotalChunks > 0 && t.ChunksReceived >= t.TotalChunks {
		delete(m.transfers, fileID)
		return *t, true, nil
	}
	return *t, false, nil
}

// Drop discards the transfer state, if present. The caller decides what to
// do with any partially written file.
func (m *TransferManager) Drop(fileID string) (Transfer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transfers[fileID]
	if !ok {
		return Transfer{}, false
	}
	delete(m.transfers, fileID)
	return *t, true
}

// Len returns the number of transfers in flight.
func (m *TransferManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transfers)
}

func appendChunk(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return nil
}
