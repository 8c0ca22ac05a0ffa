package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// NewConnID returns a best-effort unique identifier for a client connection.
// It only has to be unique for the lifetime of the process, so a random
// token is enough.
func NewConnID() string {
	const size = 8

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err == nil {
		return "conn-" + hex.EncodeToString(buf)
	}

	// Fallback to timestamp if crypto/rand is unavailable.
	return "conn-" + strconv.FormatInt(time.Now().UnixNano(), 10)
}
