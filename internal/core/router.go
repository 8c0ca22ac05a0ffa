package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lanchat/lanchat-server/internal/proto"
	"github.com/lanchat/lanchat-server/internal/store"
)

// RouterConfig tunes the router's queue and limits.
type RouterConfig struct {
	// QueueSize bounds the inbound work queue shared by all connections.
	QueueSize int
	// HistoryLimit caps how many messages a history request may return.
	HistoryLimit int
}

// Router is the top-level dispatcher. All connection read loops feed its
// single bounded work queue; one worker goroutine consumes it, so side
// effects of envelope A complete before envelope B's begin whenever A was
// enqueued first. Registry and transfer state have their own locks only to
// let the presence monitor and admin surface read them concurrently.
type Router struct {
	sessions  *SessionRegistry
	groups    *GroupRegistry
	transfers *TransferManager
	store     store.Store
	log       *zerolog.Logger

	queue        chan work
	historyLimit int
}

type work struct {
	conn *Conn
	env  *proto.Envelope
}

// NewRouter wires the registries, transfer manager and persistence gateway
// into a dispatcher. Run must be started before Submit is called.
func NewRouter(
	sessions *SessionRegistry,
	groups *GroupRegistry,
	transfers *TransferManager,
	st store.Store,
	logger *zerolog.Logger,
	cfg RouterConfig,
) *Router {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	return &Router{
		sessions:     sessions,
		groups:       groups,
		transfers:    transfers,
		store:        st,
		log:          logger,
		queue:        make(chan work, cfg.QueueSize),
		historyLimit: cfg.HistoryLimit,
	}
}

// Submit enqueues one decoded envelope from conn. It blocks while the queue
// is full, which applies backpressure to that connection's read loop, and
// gives up when ctx is cancelled.
func (r *Router) Submit(ctx context.Context, conn *Conn, env *proto.Envelope) error {
	select {
	case r.queue <- work{conn: conn, env: env}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes the work queue until ctx is cancelled. It is the only
// goroutine that executes handlers.
func (r *Router) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-r.queue:
			r.dispatch(ctx, w)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, w work) {
	env := w.env

	sender := w.conn.Username()
	if sender == "" {
		// The transport enforces login-first, so anything else here is a
		// protocol violation.
		if env.Type != proto.KindLogin {
			r.log.Warn().Str("conn_id", w.conn.ID).Str("kind", string(env.Type)).
				Msg("envelope before login, closing")
			_ = w.conn.Peer().Close()
			return
		}
		r.handleLogin(ctx, w.conn, env)
		return
	}

	// Any successfully decoded inbound envelope counts as liveness.
	r.sessions.Touch(sender)

	switch env.Type {
	case proto.KindPrivateMessage:
		r.handlePrivateMessage(ctx, sender, env)
	case proto.KindGroupMessage:
		r.handleGroupMessage(ctx, sender, env)
	case proto.KindCreateGroup:
		r.handleCreateGroup(ctx, sender, env)
	case proto.KindFileTransferRequest:
		r.handleFileRequest(ctx, sender, env)
	case proto.KindFileTransferAccept, proto.KindFileTransferReject:
		r.handleFileDecision(sender, env)
	case proto.KindFileChunk:
		r.handleFileChunk(ctx, sender, env)
	case proto.KindHistoryRequest:
		r.handleHistoryRequest(ctx, sender, env)
	case proto.KindTypingNotification:
		r.handleTyping(sender, env)
	case proto.KindMessageRead:
		r.handleMessageRead(sender, env)
	case proto.KindPing:
		r.sendTo(sender, &proto.Envelope{Type: proto.KindPong, Sender: proto.SenderServer, Recipient: sender})
	case proto.KindPong:
		// Touch above already advanced last-seen.
	case proto.KindLogout:
		r.Disconnect(w.conn)
	case proto.KindLogin:
		r.sendError(sender, ErrCodeBadRequest, "already logged in")
	default:
		// Known kind, but server-originated; a client has no business
		// sending it.
		r.log.Warn().Str("user", sender).Str("kind", string(env.Type)).
			Msg("ignoring server-only kind from client")
	}
}

// ==== login / disconnect ====

func (r *Router) handleLogin(ctx context.Context, conn *Conn, env *proto.Envelope) {
	var lc proto.LoginContent
	if err := env.ContentAs(&lc); err != nil || lc.Username == "" || lc.Username == proto.SenderServer {
		r.rejectLogin(conn, "invalid username")
		return
	}

	if !r.sessions.InsertIfAbsent(lc.Username, conn) {
		r.log.Info().Str("user", lc.Username).Str("addr", conn.Peer().RemoteAddr()).
			Msg("login rejected, name in use")
		r.rejectLogin(conn, "username already in use")
		return
	}
	conn.setUsername(lc.Username)

	if err := r.upsertOnline(ctx, lc.Username); err != nil {
		r.log.Error().Err(err).Str("user", lc.Username).Msg("login persistence failed")
		r.sessions.Remove(lc.Username, conn)
		r.rejectLogin(conn, "storage unavailable, try again")
		return
	}

	roster, err := r.store.ListUsers(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("list users failed")
	}
	users := make([]proto.UserInfo, 0, len(roster))
	for _, u := range roster {
		users = append(users, proto.UserInfo{
			Username: u.Username,
			Status:   string(u.Status),
			LastSeen: u.LastSeen.UTC().Format(time.RFC3339),
		})
	}

	ack := &proto.Envelope{
		Type:      proto.KindLoginResponse,
		Sender:    proto.SenderServer,
		Recipient: lc.Username,
		Content: proto.LoginResponseContent{
			Success:  true,
			Username: lc.Username,
			Users:    users,
		},
	}
	if err := conn.Peer().Send(ack); err != nil {
		r.Disconnect(conn)
		return
	}

	r.log.Info().Str("user", lc.Username).Str("addr", conn.Peer().RemoteAddr()).Msg("user logged in")

	r.deliverOffline(ctx, lc.Username, conn)
	r.sendGroupList(ctx, lc.Username, conn)
	r.broadcastStatus(lc.Username, store.StatusOnline)
}

func (r *Router) upsertOnline(ctx context.Context, username string) error {
	if err := r.store.AddUser(ctx, username); err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	if err := r.store.SetUserStatus(ctx, username, store.StatusOnline); err != nil {
		return fmt.Errorf("mark online: %w", err)
	}
	return nil
}

func (r *Router) rejectLogin(conn *Conn, reason string) {
	resp := &proto.Envelope{
		Type:   proto.KindLoginResponse,
		Sender: proto.SenderServer,
		Content: proto.LoginResponseContent{
			Success: false,
			Error:   reason,
		},
	}
	if err := conn.Peer().Send(resp); err != nil {
		r.log.Debug().Err(err).Str("conn_id", conn.ID).Msg("login rejection not delivered")
	}
	_ = conn.Peer().Close()
}

// deliverOffline drains the user's offline queue and forwards each entry.
// The drain removes the queue entries atomically; a message that cannot be
// delivered on this session is re-queued so it is never lost or duplicated.
func (r *Router) deliverOffline(ctx context.Context, username string, conn *Conn) {
	msgs, err := r.store.DrainOffline(ctx, username)
	if err != nil {
		r.log.Error().Err(err).Str("user", username).Msg("offline drain failed")
		return
	}

	for i, msg := range msgs {
		env := &proto.Envelope{
			Type:      proto.KindPrivateMessage,
			Sender:    msg.Sender,
			Recipient: username,
			Content:   msg.Content,
			Timestamp: msg.Timestamp.UTC().Format(time.RFC3339),
			MessageID: msg.MessageID,
		}
		if err := conn.Peer().Send(env); err != nil {
			r.log.Warn().Err(err).Str("user", username).Msg("offline delivery interrupted, re-queueing")
			for j := i; j < len(msgs); j++ {
				m := msgs[j]
				if qErr := r.store.QueueOffline(ctx, username, &m); qErr != nil {
					r.log.Error().Err(qErr).Str("message_id", m.MessageID).Msg("re-queue failed")
				}
			}
			r.Disconnect(conn)
			return
		}
	}
}

func (r *Router) sendGroupList(ctx context.Context, username string, conn *Conn) {
	groups, err := r.store.GroupsFor(ctx, username)
	if err != nil {
		r.log.Error().Err(err).Str("user", username).Msg("groups lookup failed")
		return
	}
	if len(groups) == 0 {
		return
	}

	infos := make([]proto.GroupInfo, 0, len(groups))
	for _, g := range groups {
		infos = append(infos, groupInfo(g))
	}
	env := &proto.Envelope{
		Type:      proto.KindGroupList,
		Sender:    proto.SenderServer,
		Recipient: username,
		Content:   proto.GroupListContent{Groups: infos},
	}
	if err := conn.Peer().Send(env); err != nil {
		r.Disconnect(conn)
	}
}

// Disconnect moves a connection to its terminal state: close the socket,
// remove the session, mark the user offline durably, and broadcast the
// presence change. Safe to call from any goroutine and idempotent; the read
// loop, a failed write, and the presence monitor all funnel through here.
func (r *Router) Disconnect(conn *Conn) {
	if conn == nil || !conn.markClosed() {
		return
	}
	_ = conn.Peer().Close()

	username := conn.Username()
	if username == "" {
		return
	}
	if !r.sessions.Remove(username, conn) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.SetUserStatus(ctx, username, store.StatusOffline); err != nil {
		r.log.Error().Err(err).Str("user", username).Msg("mark offline failed")
	}

	r.log.Info().Str("user", username).Msg("user disconnected")
	r.broadcastStatus(username, store.StatusOffline)
}

// broadcastStatus tells every remaining session about a presence change.
func (r *Router) broadcastStatus(username string, status store.UserStatus) {
	env := &proto.Envelope{
		Type:   proto.KindUserStatus,
		Sender: proto.SenderServer,
		Content: proto.UserStatusContent{
			Username: username,
			Status:   string(status),
			LastSeen: time.Now().UTC().Format(time.RFC3339),
		},
	}
	for _, s := range r.sessions.Snapshot() {
		if s.Username == username {
			continue
		}
		if err := s.Conn.Peer().Send(env); err != nil {
			r.log.Warn().Err(err).Str("user", s.Username).Msg("presence broadcast failed")
			r.Disconnect(s.Conn)
		}
	}
}

// ==== messaging ====

func (r *Router) handlePrivateMessage(ctx context.Context, sender string, env *proto.Envelope) {
	content, ok := env.TextContent()
	if !ok || env.Recipient == "" {
		r.sendError(sender, ErrCodeBadRequest, "private message needs a recipient and text content")
		return
	}

	msg := &store.ChatMessage{
		MessageID: uuid.NewString(),
		Sender:    sender,
		Recipient: env.Recipient,
		Content:   content,
		Kind:      store.MessageKindText,
		Timestamp: time.Now().UTC(),
	}
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		r.log.Error().Err(err).Str("user", sender).Msg("save message failed")
		r.sendError(sender, ErrCodeStorage, "message not saved, try again")
		return
	}

	conn, online := r.sessions.ConnOf(env.Recipient)
	if !online {
		r.queueOffline(ctx, sender, env.Recipient, msg)
		return
	}

	fwd := &proto.Envelope{
		Type:      proto.KindPrivateMessage,
		Sender:    sender,
		Recipient: env.Recipient,
		Content:   content,
		Timestamp: msg.Timestamp.Format(time.RFC3339),
		MessageID: msg.MessageID,
	}
	if err := conn.Peer().Send(fwd); err != nil {
		// The recipient's socket went stale under us: treat as their
		// disconnect and fall back to the offline queue, never both paths.
		r.Disconnect(conn)
		r.queueOffline(ctx, sender, env.Recipient, msg)
		return
	}

	ack := &proto.Envelope{
		Type:      proto.KindMessageDelivered,
		Sender:    proto.SenderServer,
		Recipient: sender,
		Content:   proto.DeliveredContent{MessageID: msg.MessageID},
	}
	r.sendTo(sender, ack)
}

func (r *Router) queueOffline(ctx context.Context, sender, recipient string, msg *store.ChatMessage) {
	if err := r.store.QueueOffline(ctx, recipient, msg); err != nil {
		r.log.Error().Err(err).Str("recipient", recipient).Msg("offline queue failed")
		r.sendError(sender, ErrCodeStorage, "recipient offline and message could not be queued")
	}
}

func (r *Router) handleGroupMessage(ctx context.Context, sender string, env *proto.Envelope) {
	content, ok := env.TextContent()
	if !ok || env.Recipient == "" {
		r.sendError(sender, ErrCodeBadRequest, "group message needs a group id and text content")
		return
	}

	group, ok := r.groups.Get(env.Recipient)
	if !ok {
		r.sendError(sender, ErrCodeUnknownGroup, "no such group: "+env.Recipient)
		return
	}

	msg := &store.ChatMessage{
		MessageID: uuid.NewString(),
		Sender:    sender,
		Recipient: group.GroupID,
		Content:   content,
		Kind:      store.MessageKindText,
		Timestamp: time.Now().UTC(),
	}
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		r.log.Error().Err(err).Str("group", group.GroupID).Msg("save group message failed")
		r.sendError(sender, ErrCodeStorage, "message not saved, try again")
		return
	}

	fwd := &proto.Envelope{
		Type:      proto.KindGroupMessage,
		Sender:    sender,
		Recipient: group.GroupID,
		Content:   content,
		Timestamp: msg.Timestamp.Format(time.RFC3339),
		MessageID: msg.MessageID,
	}
	for _, member := range group.Members {
		if member == sender {
			continue
		}
		// A stale member socket disconnects that member only; the loop
		// keeps going for the rest of the group.
		r.sendTo(member, fwd)
	}
}

func (r *Router) handleCreateGroup(ctx context.Context, sender string, env *proto.Envelope) {
	var cg proto.CreateGroupContent
	if err := env.ContentAs(&cg); err != nil || cg.Name == "" {
		r.sendError(sender, ErrCodeBadRequest, "create_group needs a name")
		return
	}

	// The creator is always a member, even when omitted from the request.
	members := make([]string, 0, len(cg.Members)+1)
	seen := make(map[string]struct{}, len(cg.Members)+1)
	for _, m := range append(cg.Members, sender) {
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		members = append(members, m)
	}

	g := store.Group{
		GroupID:   uuid.NewString(),
		Name:      cg.Name,
		CreatedBy: sender,
		Members:   members,
		CreatedAt: time.Now().UTC(),
	}
	r.groups.Put(g)
	if err := r.store.CreateGroup(ctx, &g); err != nil {
		r.groups.Remove(g.GroupID)
		r.log.Error().Err(err).Str("group", g.Name).Msg("persist group failed")
		r.sendError(sender, ErrCodeStorage, "group not created, try again")
		return
	}

	r.log.Info().Str("group_id", g.GroupID).Str("name", g.Name).Str("creator", sender).
		Int("members", len(members)).Msg("group created")

	ack := &proto.Envelope{
		Type:      proto.KindGroupCreated,
		Sender:    proto.SenderServer,
		Recipient: sender,
		Content:   groupInfo(g),
	}
	r.sendTo(sender, ack)

	notify := &proto.Envelope{
		Type:    proto.KindGroupList,
		Sender:  proto.SenderServer,
		Content: proto.GroupListContent{Groups: []proto.GroupInfo{groupInfo(g)}},
	}
	for _, member := range members {
		if member == sender {
			continue
		}
		r.sendTo(member, notify)
	}
}

func (r *Router) handleHistoryRequest(ctx context.Context, sender string, env *proto.Envelope) {
	var hr proto.HistoryRequestContent
	if err := env.ContentAs(&hr); err != nil || hr.Target == "" {
		r.sendError(sender, ErrCodeBadRequest, "history_request needs a target")
		return
	}
	limit := hr.Limit
	if limit <= 0 || limit > r.historyLimit {
		limit = r.historyLimit
	}

	// A group target is its own conversation party; private history is
	// between the requester and the target user.
	a, b := sender, hr.Target
	if _, isGroup := r.groups.Get(hr.Target); isGroup {
		a = hr.Target
	}
	msgs, err := r.store.GetHistory(ctx, a, b, limit)
	if err != nil {
		r.log.Error().Err(err).Str("target", hr.Target).Msg("history lookup failed")
		r.sendError(sender, ErrCodeStorage, "history unavailable, try again")
		return
	}

	entries := make([]proto.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, proto.HistoryEntry{
			MessageID: m.MessageID,
			Sender:    m.Sender,
			Recipient: m.Recipient,
			Content:   m.Content,
			Kind:      string(m.Kind),
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
			Delivered: m.Delivered,
			Read:      m.Read,
			FilePath:  m.FilePath,
		})
	}
	resp := &proto.Envelope{
		Type:      proto.KindHistoryResponse,
		Sender:    proto.SenderServer,
		Recipient: sender,
		Content:   proto.HistoryResponseContent{Target: hr.Target, Messages: entries},
	}
	r.sendTo(sender, resp)
}

func (r *Router) handleTyping(sender string, env *proto.Envelope) {
	if env.Recipient == "" {
		return
	}
	// Ephemeral: forwarded only while the recipient is online, never
	// persisted, never queued.
	r.sendTo(env.Recipient, &proto.Envelope{
		Type:      proto.KindTypingNotification,
		Sender:    sender,
		Recipient: env.Recipient,
	})
}

func (r *Router) handleMessageRead(sender string, env *proto.Envelope) {
	var rc proto.ReadContent
	if err := env.ContentAs(&rc); err != nil || rc.MessageID == "" || env.Recipient == "" {
		r.sendError(sender, ErrCodeBadRequest, "message_read needs a recipient and message_id")
		return
	}
	r.sendTo(env.Recipient, &proto.Envelope{
		Type:      proto.KindMessageRead,
		Sender:    sender,
		Recipient: env.Recipient,
		Content:   rc,
	})
}

// ==== file transfer ====

func (r *Router) handleFileRequest(ctx context.Context, sender string, env *proto.Envelope) {
	var fr proto.FileRequestContent
	if err := env.ContentAs(&fr); err != nil || fr.FileID == "" || fr.Filename == "" || env.Recipient == "" {
		r.sendError(sender, ErrCodeBadRequest, "file_transfer_request needs file_id, filename and recipient")
		return
	}

	t := &Transfer{
		FileID:      fr.FileID,
		Sender:      sender,
		Recipient:   env.Recipient,
		Filename:    fr.Filename,
		Filesize:    fr.Filesize,
		Path:        r.transfers.DestPath(fr.FileID, fr.Filename),
		IsDirectory: fr.IsDirectory,
	}
	if err := r.transfers.Begin(t); err != nil {
		r.sendError(sender, ErrCodeBadRequest, "transfer id already in use: "+fr.FileID)
		return
	}

	if _, online := r.sessions.ConnOf(env.Recipient); online {
		r.sendTo(env.Recipient, &proto.Envelope{
			Type:      proto.KindFileTransferRequest,
			Sender:    sender,
			Recipient: env.Recipient,
			Content:   fr,
		})
		return
	}

	// Recipient offline: leave a durable trace so they learn about the file
	// at next login. The transfer stays open until chunks arrive, since the
	// client only uploads after an accept.
	msg := &store.ChatMessage{
		MessageID: uuid.NewString(),
		Sender:    sender,
		Recipient: env.Recipient,
		Content:   "File: " + fr.Filename,
		Kind:      store.MessageKindFile,
		Timestamp: time.Now().UTC(),
		FilePath:  t.Path,
	}
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		r.log.Error().Err(err).Str("file_id", fr.FileID).Msg("save file placeholder failed")
		r.sendError(sender, ErrCodeStorage, "recipient offline and request could not be recorded")
		return
	}
	r.queueOffline(ctx, sender, env.Recipient, msg)
}

func (r *Router) handleFileDecision(sender string, env *proto.Envelope) {
	var fd proto.FileDecisionContent
	if err := env.ContentAs(&fd); err != nil || fd.FileID == "" || env.Recipient == "" {
		r.sendError(sender, ErrCodeBadRequest, "file decision needs file_id and recipient")
		return
	}

	if env.Type == proto.KindFileTransferReject {
		// Rejection is terminal; only the transfer's recipient may reject.
		if t, ok := r.transfers.Get(fd.FileID); ok && t.Recipient == sender {
			r.transfers.Drop(fd.FileID)
			r.log.Info().Str("file_id", fd.FileID).Str("by", sender).Msg("transfer rejected")
		}
	}

	r.sendTo(env.Recipient, &proto.Envelope{
		Type:      env.Type,
		Sender:    sender,
		Recipient: env.Recipient,
		Content:   fd,
	})
}

func (r *Router) handleFileChunk(ctx context.Context, sender string, env *proto.Envelope) {
	var fc proto.FileChunkContent
	if err := env.ContentAs(&fc); err != nil || fc.FileID == "" {
		r.sendError(sender, ErrCodeBadRequest, "file_chunk needs file_id and data")
		return
	}
	data, err := hex.DecodeString(fc.Data)
	if err != nil {
		r.sendError(sender, ErrCodeBadRequest, "file_chunk data is not valid hex")
		return
	}

	t, done, err := r.transfers.Apply(fc.FileID, fc.ChunkNumber, fc.TotalChunks, data)
	switch {
	case errors.Is(err, ErrUnknownTransfer):
		r.sendError(sender, ErrCodeUnknownTransfer, "no transfer with id "+fc.FileID)
		return
	case errors.Is(err, ErrChunkOutOfOrder):
		r.sendError(sender, ErrCodeChunkOutOfOrder, err.Error())
		return
	case err != nil:
		r.log.Error().Err(err).Str("file_id", fc.FileID).Msg("chunk write failed")
		r.sendError(sender, ErrCodeStorage, "chunk could not be written, transfer aborted")
		return
	}
	if !done {
		return
	}

	// Final chunk: tell the recipient where the file landed and persist the
	// file message for history.
	r.log.Info().Str("file_id", t.FileID).Str("path", t.Path).
		Int("chunks", t.ChunksReceived).Msg("transfer complete")

	r.sendTo(t.Recipient, &proto.Envelope{
		Type:      proto.KindFileTransferComplete,
		Sender:    t.Sender,
		Recipient: t.Recipient,
		Content: proto.FileCompleteContent{
			FileID:   t.FileID,
			Filename: t.Filename,
			Filepath: t.Path,
		},
	})

	msg := &store.ChatMessage{
		MessageID: uuid.NewString(),
		Sender:    t.Sender,
		Recipient: t.Recipient,
		Content:   "File: " + t.Filename,
		Kind:      store.MessageKindFile,
		Timestamp: time.Now().UTC(),
		FilePath:  t.Path,
	}
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		r.log.Error().Err(err).Str("file_id", t.FileID).Msg("save file message failed")
		r.sendError(sender, ErrCodeStorage, "file received but not recorded")
	}
}

// ==== helpers ====

// sendTo delivers env to username's live session, if any. A failed write is
// a DeliveryFailure: that peer is disconnected, the current handler keeps
// going. Returns true only when the envelope was queued for the peer.
func (r *Router) sendTo(username string, env *proto.Envelope) bool {
	conn, ok := r.sessions.ConnOf(username)
	if !ok {
		return false
	}
	if err := conn.Peer().Send(env); err != nil {
		r.log.Warn().Err(err).Str("user", username).Msg("delivery failed, disconnecting peer")
		r.Disconnect(conn)
		return false
	}
	return true
}

func (r *Router) sendError(username, code, message string) {
	r.sendTo(username, &proto.Envelope{
		Type:      proto.KindError,
		Sender:    proto.SenderServer,
		Recipient: username,
		Content:   proto.ErrorContent{Code: code, Message: message},
	})
}

func groupInfo(g store.Group) proto.GroupInfo {
	return proto.GroupInfo{
		GroupID:   g.GroupID,
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		Members:   g.Members,
		CreatedAt: g.CreatedAt.UTC().Format(time.RFC3339),
	}
}
