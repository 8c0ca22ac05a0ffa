package core

import "errors"

// Protocol error codes surfaced to clients in error envelopes.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnknownGroup    = "unknown_group"
	ErrCodeUnknownTransfer = "unknown_transfer"
	ErrCodeChunkOutOfOrder = "chunk_out_of_order"
	ErrCodeStorage         = "storage_error"
)

var (
	ErrTransferExists  = errors.New("transfer already exists")
	ErrUnknownTransfer = errors.New("unknown transfer")
	ErrChunkOutOfOrder = errors.New("chunk out of order")
)
