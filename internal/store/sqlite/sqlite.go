package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lanchat/lanchat-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username   TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'offline',
	last_seen  TIMESTAMP,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	message_id   TEXT PRIMARY KEY,
	sender       TEXT NOT NULL,
	recipient    TEXT NOT NULL,
	content      TEXT NOT NULL,
	message_type TEXT NOT NULL,
	timestamp    TIMESTAMP NOT NULL,
	delivered    BOOLEAN NOT NULL DEFAULT 0,
	read         BOOLEAN NOT NULL DEFAULT 0,
	file_path    TEXT,
	FOREIGN KEY (sender) REFERENCES users(username)
);

CREATE INDEX IF NOT EXISTS idx_messages_pair
	ON messages (sender, recipient, timestamp);

CREATE TABLE IF NOT EXISTS groups (
	group_id   TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_by TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	members    TEXT NOT NULL,
	FOREIGN KEY (created_by) REFERENCES users(username)
);

CREATE TABLE IF NOT EXISTS offline_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	username   TEXT NOT NULL,
	message_id TEXT NOT NULL,
	stored_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (username) REFERENCES users(username),
	FOREIGN KEY (message_id) REFERENCES messages(message_id)
);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// AddUser inserts the user if absent; existing users are left untouched.
func (s *SQLiteStore) AddUser(ctx context.Context, username string) error {
	query := `
		INSERT INTO users (username, status, last_seen)
		VALUES (?, 'offline', ?)
		ON CONFLICT (username) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, username, time.Now()); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// SetUserStatus updates status and last_seen.
func (s *SQLiteStore) SetUserStatus(ctx context.Context, username string, status store.UserStatus) error {
	query := `UPDATE users SET status = ?, last_seen = ? WHERE username = ?`
	res, err := s.db.ExecContext(ctx, query, status, time.Now(), username)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	return nil
}

// ListUsers returns every known user ordered by username.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]store.User, error) {
	// last_seen and created_at are selected as plain columns: a COALESCE
	// expression loses the declared type and the driver would hand the
	// timestamp back as a string.
	query := `SELECT username, status, last_seen, created_at FROM users ORDER BY username`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []store.User
	for rows.Next() {
		var (
			u        store.User
			lastSeen sql.NullTime
			created  sql.NullTime
		)
		if err := rows.Scan(&u.Username, &u.Status, &lastSeen, &created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		switch {
		case lastSeen.Valid:
			u.LastSeen = lastSeen.Time
		case created.Valid:
			u.LastSeen = created.Time
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ==== MessageStore implementation ====

// SaveMessage persists one message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.ChatMessage) error {
	query := `
		INSERT INTO messages
			(message_id, sender, recipient, content, message_type, timestamp, delivered, read, file_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var filePath sql.NullString
	if msg.FilePath != "" {
		filePath = sql.NullString{String: msg.FilePath, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		msg.MessageID,
		msg.Sender,
		msg.Recipient,
		msg.Content,
		msg.Kind,
		msg.Timestamp,
		msg.Delivered,
		msg.Read,
		filePath,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetHistory returns up to limit messages between a and b, oldest first.
// When a == b the id is a group: every message addressed to it matches,
// whoever sent it.
func (s *SQLiteStore) GetHistory(ctx context.Context, a, b string, limit int) ([]store.ChatMessage, error) {
	// Newest-first with LIMIT picks the most recent window; re-sorted
	// ascending so the caller always sees chronological order.
	const columns = `message_id, sender, recipient, content, message_type, timestamp, delivered, read, COALESCE(file_path, '')`

	var (
		query string
		args  []any
	)
	if a == b {
		query = `
			SELECT ` + columns + `
			FROM (
				SELECT * FROM messages
				WHERE recipient = ?
				ORDER BY timestamp DESC
				LIMIT ?
			)
			ORDER BY timestamp ASC
		`
		args = []any{a, limit}
	} else {
		query = `
			SELECT ` + columns + `
			FROM (
				SELECT * FROM messages
				WHERE (sender = ? AND recipient = ?) OR (sender = ? AND recipient = ?)
				ORDER BY timestamp DESC
				LIMIT ?
			)
			ORDER BY timestamp ASC
		`
		args = []any{a, b, b, a, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// QueueOffline associates a saved message with an offline recipient.
func (s *SQLiteStore) QueueOffline(ctx context.Context, username string, msg *store.ChatMessage) error {
	query := `INSERT INTO offline_messages (username, message_id) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, username, msg.MessageID); err != nil {
		return fmt.Errorf("queue offline message: %w", err)
	}
	return nil
}

// DrainOffline returns and removes the queued messages for username in one
// transaction.
func (s *SQLiteStore) DrainOffline(ctx context.Context, username string) ([]store.ChatMessage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin drain: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT m.message_id, m.sender, m.recipient, m.content, m.message_type, m.timestamp, m.delivered, m.read, COALESCE(m.file_path, '')
		FROM messages m
		JOIN offline_messages om ON m.message_id = om.message_id
		WHERE om.username = ?
		ORDER BY m.timestamp ASC
	`
	rows, err := tx.QueryContext(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("query offline messages: %w", err)
	}
	msgs, err := scanMessages(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM offline_messages WHERE username = ?`, username); err != nil {
		return nil, fmt.Errorf("delete offline messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit drain: %w", err)
	}
	return msgs, nil
}

func scanMessages(rows *sql.Rows) ([]store.ChatMessage, error) {
	var msgs []store.ChatMessage
	for rows.Next() {
		var m store.ChatMessage
		if err := rows.Scan(
			&m.MessageID,
			&m.Sender,
			&m.Recipient,
			&m.Content,
			&m.Kind,
			&m.Timestamp,
			&m.Delivered,
			&m.Read,
			&m.FilePath,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ==== GroupStore implementation ====

// CreateGroup persists a group with its member list as JSON.
func (s *SQLiteStore) CreateGroup(ctx context.Context, g *store.Group) error {
	members, err := json.Marshal(g.Members)
	if err != nil {
		return fmt.Errorf("marshal members: %w", err)
	}
	query := `
		INSERT INTO groups (group_id, name, created_by, created_at, members)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, g.GroupID, g.Name, g.CreatedBy, g.CreatedAt, string(members)); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// GroupsFor returns every group username belongs to.
func (s *SQLiteStore) GroupsFor(ctx context.Context, username string) ([]store.Group, error) {
	groups, err := s.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	var mine []store.Group
	for _, g := range groups {
		for _, m := range g.Members {
			if m == username {
				mine = append(mine, g)
				break
			}
		}
	}
	return mine, nil
}

// ListGroups returns every group.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]store.Group, error) {
	query := `SELECT group_id, name, created_by, created_at, members FROM groups ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []store.Group
	for rows.Next() {
		var g store.Group
		var members string
		if err := rows.Scan(&g.GroupID, &g.Name, &g.CreatedBy, &g.CreatedAt, &members); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
			return nil, fmt.Errorf("unmarshal members: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

var _ store.Store = (*SQLiteStore)(nil)
