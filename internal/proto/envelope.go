package proto

import (
	"encoding/json"
	"fmt"
)

// Kind enumerates every message type the protocol knows about.
// The set is closed: Decode rejects frames carrying anything else.
type Kind string

const (
	KindLogin         Kind = "login"
	KindLoginResponse Kind = "login_response"
	KindLogout        Kind = "logout"

	KindPrivateMessage Kind = "private_message"
	KindGroupMessage   Kind = "group_message"

	KindCreateGroup  Kind = "create_group"
	KindGroupCreated Kind = "group_created"
	KindGroupList    Kind = "group_list"

	KindFileTransferRequest  Kind = "file_transfer_request"
	KindFileTransferAccept   Kind = "file_transfer_accept"
	KindFileTransferReject   Kind = "file_transfer_reject"
	KindFileChunk            Kind = "file_chunk"
	KindFileTransferComplete Kind = "file_transfer_complete"

	KindHistoryRequest  Kind = "history_request"
	KindHistoryResponse Kind = "history_response"

	KindTypingNotification Kind = "typing_notification"
	KindMessageDelivered   Kind = "message_delivered"
	KindMessageRead        Kind = "message_read"
	KindUserStatus         Kind = "user_status"

	KindPing  Kind = "ping"
	KindPong  Kind = "pong"
	KindError Kind = "error"
)

var knownKinds = map[Kind]struct{}{
	KindLogin:                {},
	KindLoginResponse:        {},
	KindLogout:               {},
	KindPrivateMessage:       {},
	KindGroupMessage:         {},
	KindCreateGroup:          {},
	KindGroupCreated:         {},
	KindGroupList:            {},
	KindFileTransferRequest:  {},
	KindFileTransferAccept:   {},
	KindFileTransferReject:   {},
	KindFileChunk:            {},
	KindFileTransferComplete: {},
	KindHistoryRequest:       {},
	KindHistoryResponse:      {},
	KindTypingNotification:   {},
	KindMessageDelivered:     {},
	KindMessageRead:          {},
	KindUserStatus:           {},
	KindPing:                 {},
	KindPong:                 {},
	KindError:                {},
}

// Valid reports whether k is part of the closed enumeration.
func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// SenderServer marks envelopes originating from the server itself.
const SenderServer = "server"

// Envelope is one protocol message unit exchanged over a connection.
// Content is kind-specific; see the *Content types below.
type Envelope struct {
	Type      Kind   `json:"type"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient,omitempty"`
	Content   any    `json:"content,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// ContentAs re-decodes the kind-specific content into dst. Content arrives
// as map[string]any from the codec, so handlers go through JSON once more
// to get a typed view.
func (e *Envelope) ContentAs(dst any) error {
	raw, err := json.Marshal(e.Content)
	if err != nil {
		return fmt.Errorf("remarshal content: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s content: %w", e.Type, err)
	}
	return nil
}

// TextContent returns the content as a plain string (private/group messages
// carry bare text, matching the desktop client).
func (e *Envelope) TextContent() (string, bool) {
	s, ok := e.Content.(string)
	return s, ok
}

// LoginContent is sent by the client as its first frame.
type LoginContent struct {
	Username string `json:"username"`
}

// LoginResponseContent acknowledges a login attempt. On success Users carries
// the full online/offline roster.
type LoginResponseContent struct {
	Success  bool       `json:"success"`
	Username string     `json:"username,omitempty"`
	Error    string     `json:"error,omitempty"`
	Users    []UserInfo `json:"users,omitempty"`
}

// UserInfo is one roster entry.
type UserInfo struct {
	Username string `json:"username"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen,omitempty"`
}

// CreateGroupContent asks the server to create a group. The creator is always
// a member even when omitted from Members.
type CreateGroupContent struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// GroupInfo describes a group to clients.
type GroupInfo struct {
	GroupID   string   `json:"group_id"`
	Name      string   `json:"name"`
	CreatedBy string   `json:"created_by"`
	Members   []string `json:"members"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// GroupListContent carries one or more group descriptions.
type GroupListContent struct {
	Groups []GroupInfo `json:"groups"`
}

// FileRequestContent announces an upcoming chunked upload.
type FileRequestContent struct {
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	Filesize    int64  `json:"filesize"`
	IsDirectory bool   `json:"is_directory,omitempty"`
}

// FileDecisionContent is the accept/reject answer relayed back to the sender.
type FileDecisionContent struct {
	FileID string `json:"file_id"`
	Reason string `json:"reason,omitempty"`
}

// FileChunkContent carries one slice of file data, hex-encoded.
type FileChunkContent struct {
	FileID      string `json:"file_id"`
	ChunkNumber int    `json:"chunk_number"`
	Data        string `json:"data"`
	TotalChunks int    `json:"total_chunks"`
}

// FileCompleteContent tells the recipient where the finished file landed.
type FileCompleteContent struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
}

// HistoryRequestContent asks for conversation history with a user or group.
type HistoryRequestContent struct {
	Target string `json:"target"`
	Limit  int    `json:"limit"`
}

// HistoryEntry is one persisted message in a history response.
type HistoryEntry struct {
	MessageID string `json:"message_id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
	Kind      string `json:"message_type"`
	Timestamp string `json:"timestamp"`
	Delivered bool   `json:"delivered"`
	Read      bool   `json:"read"`
	FilePath  string `json:"file_path,omitempty"`
}

// HistoryResponseContent returns messages oldest-first.
type HistoryResponseContent struct {
	Target   string         `json:"target"`
	Messages []HistoryEntry `json:"messages"`
}

// DeliveredContent acknowledges delivery of a message to its recipient.
type DeliveredContent struct {
	MessageID string `json:"message_id"`
}

// ReadContent reports that a message was read.
type ReadContent struct {
	MessageID string `json:"message_id"`
}

// UserStatusContent is the presence-changed broadcast.
type UserStatusContent struct {
	Username string `json:"username"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen,omitempty"`
}

// ErrorContent describes a per-action failure surfaced to the sender.
type ErrorContent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
