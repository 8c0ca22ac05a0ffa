package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// UserStatus is the durable presence state of a user.
type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusOffline UserStatus = "offline"
)

// MessageKind distinguishes plain text from file references.
type MessageKind string

const (
	MessageKindText MessageKind = "text"
	MessageKindFile MessageKind = "file"
)

// User is one durable user record. Connection state lives in the session
// registry; this is only what survives restarts.
type User struct {
	Username string
	Status   UserStatus
	LastSeen time.Time
}

// ChatMessage is a persisted message, private or group-addressed.
// Recipient holds a username or a group id.
type ChatMessage struct {
	MessageID string
	Sender    string
	Recipient string
	Content   string
	Kind      MessageKind
	Timestamp time.Time
	Delivered bool
	Read      bool
	FilePath  string
}

// Group is a named set of usernames with immutable membership.
type Group struct {
	GroupID   string
	Name      string
	CreatedBy string
	Members   []string
	CreatedAt time.Time
}

// UserStore handles durable user records.
type UserStore interface {
	// AddUser inserts the user if absent; existing users are left untouched.
	AddUser(ctx context.Context, username string) error

	// SetUserStatus updates status and last_seen.
	SetUserStatus(ctx context.Context, username string, status UserStatus) error

	// ListUsers returns every known user ordered by username.
	ListUsers(ctx context.Context) ([]User, error)
}

// MessageStore handles message persistence and the offline queue.
type MessageStore interface {
	// SaveMessage persists one message. Messages are written once.
	SaveMessage(ctx context.Context, msg *ChatMessage) error

	// GetHistory returns up to limit messages between a and b (either
	// direction), oldest first. For group history pass the group id as both
	// parties: every message addressed to the group matches, whoever sent it.
	GetHistory(ctx context.Context, a, b string, limit int) ([]ChatMessage, error)

	// QueueOffline associates an already-saved message with a recipient who
	// was offline at send time.
	QueueOffline(ctx context.Context, username string, msg *ChatMessage) error

	// DrainOffline returns the queued messages for username oldest first and
	// removes them in the same transaction, so a drain happens exactly once.
	DrainOffline(ctx context.Context, username string) ([]ChatMessage, error)
}

// GroupStore handles group persistence.
type GroupStore interface {
	// CreateGroup persists a group with its full member list.
	CreateGroup(ctx context.Context, g *Group) error

	// GroupsFor returns every group username belongs to.
	GroupsFor(ctx context.Context, username string) ([]Group, error)

	// ListGroups returns every group; used to warm the group registry at boot.
	ListGroups(ctx context.Context) ([]Group, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	GroupStore

	// Close closes the underlying database connection.
	Close() error
}
