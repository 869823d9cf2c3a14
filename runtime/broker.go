// Package runtime orchestrates the chat state engine: it owns the
// authoritative in-memory model of users, rooms, threads and logs, and
// turns inbound events into state mutations plus outbound fan-out.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"

	"chat-broker/contract"
	"chat-broker/domain"
	"chat-broker/domain/event"
	"chat-broker/errors"
	"chat-broker/moderation"
	"chat-broker/projection"
)

type Options struct {
	RoomLogCapacity   int
	ThreadLogCapacity int
	TypingTTL         time.Duration
}

// Broker is the single mutation point of the engine. Every
// state-changing inbound event resolves the acting user first, performs
// exactly one logical mutation, then emits fan-out events. Mutations are
// serialized under one write lock (the "single dispatcher" model);
// directory reads take snapshots under the read lock.
type Broker struct {
	mu        sync.RWMutex
	log       *slog.Logger
	opts      Options
	identity  *Identity
	sessions  contract.IRegistry
	moderator *moderation.Moderator
	typing    *TypingCoordinator
	rooms     map[string]*domain.Room
	threads   map[string]*domain.Thread
}

// NewBroker seeds the two permanent rooms. moderator may be nil to
// disable the censor pass.
func NewBroker(log *slog.Logger, sessions contract.IRegistry, moderator *moderation.Moderator, opts Options) *Broker {
	if opts.RoomLogCapacity <= 0 {
		opts.RoomLogCapacity = domain.DefaultLogCapacity
	}
	if opts.ThreadLogCapacity <= 0 {
		opts.ThreadLogCapacity = domain.DefaultLogCapacity
	}

	b := &Broker{
		log:       log,
		opts:      opts,
		identity:  NewIdentity(),
		sessions:  sessions,
		moderator: moderator,
		rooms:     make(map[string]*domain.Room),
		threads:   make(map[string]*domain.Thread),
	}
	b.typing = NewTypingCoordinator(opts.TypingTTL, b.expireTyping)

	b.rooms[domain.RoomGeneral] = domain.NewRoom(domain.RoomGeneral, "General", "Open discussion", domain.SystemSender, opts.RoomLogCapacity)
	b.rooms[domain.RoomRandom] = domain.NewRoom(domain.RoomRandom, "Random", "Anything goes", domain.SystemSender, opts.RoomLogCapacity)
	return b
}

// Join binds a username to the connection, places the user in the
// general room and returns the initial-state snapshot.
func (b *Broker) Join(ctx context.Context, connectionID, username string) (projection.WelcomeView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, err := b.identity.Join(connectionID, username)
	if err != nil {
		return projection.WelcomeView{}, err
	}
	user.ActiveRoom = domain.RoomGeneral

	general := b.rooms[domain.RoomGeneral]
	b.joinRoomLocked(ctx, general, user)

	welcome := projection.WelcomeView{
		You:          projection.NewUserView(user),
		ActiveRoomID: user.ActiveRoom,
		Rooms:        b.roomViewsLocked(),
		Users:        b.userViewsLocked(),
		Messages:     projection.NewMessageViews(general.Log.Recent(HistoryDefaultLimit)),
		Threads:      b.threadViewsLocked(user.Username),
	}
	b.broadcastDirectoriesLocked(ctx)

	b.log.Info("User joined", "username", user.Username, "connection", connectionID)
	return welcome, nil
}

// Disconnect tears down everything owned by a connection: typing timers
// and indicators in every conversation, room memberships (one leave
// notice each) and the username binding. Cleanup is unconditional and
// never fails.
func (b *Broker) Disconnect(ctx context.Context, connectionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Under b.mu so a concurrent SetTyping cannot re-arm a timer between
	// the cancel and the sweep below.
	b.typing.StopAll(connectionID)

	user, ok := b.identity.ByConn(connectionID)
	if ok {
		b.clearTypingLocked(ctx, user.Username)
		for roomID := range user.MemberRooms {
			if room, exists := b.rooms[roomID]; exists {
				b.leaveRoomLocked(ctx, room, user)
			}
		}
		b.identity.Leave(connectionID)
		b.log.Info("User disconnected", "username", user.Username, "connection", connectionID)
	}
	b.sessions.Unsubscribe(connectionID)

	if ok {
		b.broadcastDirectoriesLocked(ctx)
	}
}

// JoinRoom resolves or creates the room, then adds the user. Creation is
// idempotent: an existing id wins over normalization.
func (b *Broker) JoinRoom(ctx context.Context, connectionID, roomIDOrName, name, description string) (projection.RoomView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.identity.ByConn(connectionID)
	if !ok {
		return projection.RoomView{}, errors.ErrUnauthenticated
	}

	room, err := b.getOrCreateRoomLocked(roomIDOrName, name, description, user.Username)
	if err != nil {
		return projection.RoomView{}, err
	}

	if !user.IsMemberOf(room.ID) {
		b.joinRoomLocked(ctx, room, user)
		b.broadcastDirectoriesLocked(ctx)
	}
	return projection.NewRoomView(room), nil
}

// LeaveRoom removes membership. Leaving a room the user is not in is a
// no-op.
func (b *Broker) LeaveRoom(ctx context.Context, connectionID, roomID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.identity.ByConn(connectionID)
	if !ok {
		return errors.ErrUnauthenticated
	}
	room, ok := b.rooms[roomID]
	if !ok {
		return errors.ErrRoomNotFound
	}
	if !user.IsMemberOf(room.ID) {
		return nil
	}

	b.typing.Stop(connectionID, room.ID)
	b.leaveRoomLocked(ctx, room, user)
	b.broadcastDirectoriesLocked(ctx)
	return nil
}

// PostMessage appends a user message to a room log and fans it out to
// all members.
func (b *Broker) PostMessage(ctx context.Context, connectionID, roomID, body string, attachments []domain.Attachment, tempID string) (projection.MessageView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.identity.ByConn(connectionID)
	if !ok {
		return projection.MessageView{}, errors.ErrUnauthenticated
	}
	room, ok := b.rooms[roomID]
	if !ok {
		return projection.MessageView{}, errors.ErrRoomNotFound
	}
	if !user.IsMemberOf(room.ID) {
		return projection.MessageView{}, errors.ErrNotMember
	}

	body, err := b.moderateBody(user.Username, body)
	if err != nil {
		return projection.MessageView{}, err
	}

	msg := domain.NewMessage(room.ID, user.Username, user.ID, body, domain.MessageOptions{
		Attachments: attachments,
		TempID:      tempID,
	})
	room.Log.Append(msg)
	user.Touch()

	view := projection.NewMessageView(msg)
	b.fanRoomLocked(ctx, room, event.New(event.MessagePosted, view))
	return view, nil
}

// PostPrivateMessage delivers to a pairwise thread. The recipient must
// be online: offline targets reject the whole send rather than queue.
func (b *Broker) PostPrivateMessage(ctx context.Context, connectionID, toUsername, body, tempID string) (projection.MessageView, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.identity.ByConn(connectionID)
	if !ok {
		return projection.MessageView{}, "", errors.ErrUnauthenticated
	}
	recipient, ok := b.identity.ByName(toUsername)
	if !ok {
		return projection.MessageView{}, "", errors.ErrRecipientUnavailable
	}

	body, err := b.moderateBody(user.Username, body)
	if err != nil {
		return projection.MessageView{}, "", err
	}

	thread := b.getOrCreateThreadLocked(user.Username, recipient.Username)
	msg := domain.NewMessage(thread.ID, user.Username, user.ID, body, domain.MessageOptions{
		IsPrivate: true,
		TempID:    tempID,
	})
	// The recipient is online by construction, so delivery is recorded
	// up front.
	msg.MarkDelivered(recipient.Username)
	thread.Log.Append(msg)
	user.Touch()

	view := projection.NewMessageView(msg)
	b.fanThreadLocked(ctx, thread, event.New(event.PrivateMessagePosted, view))
	return view, thread.ID, nil
}

// MarkDelivered records a delivery receipt and fans out the delta.
func (b *Broker) MarkDelivered(ctx context.Context, connectionID, conversationID, messageID string) error {
	return b.markReceipt(ctx, connectionID, conversationID, messageID, "delivered")
}

// MarkRead records a read receipt and fans out the delta.
func (b *Broker) MarkRead(ctx context.Context, connectionID, conversationID, messageID string) error {
	return b.markReceipt(ctx, connectionID, conversationID, messageID, "read")
}

func (b *Broker) markReceipt(ctx context.Context, connectionID, conversationID, messageID, kind string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.identity.ByConn(connectionID)
	if !ok {
		return errors.ErrUnauthenticated
	}
	conv, err := b.memberConversationLocked(conversationID, user)
	if err != nil {
		return err
	}
	msg := conv.log.FindByID(messageID)
	if msg == nil {
		return errors.ErrMessageNotFound
	}

	var changed bool
	if kind == "read" {
		changed = msg.MarkRead(user.Username)
	} else {
		changed = msg.MarkDelivered(user.Username)
	}
	if !changed {
		return nil
	}

	conv.fan(ctx, event.New(event.ReceiptUpdated, projection.ReceiptView{
		ConversationID: conversationID,
		MessageID:      messageID,
		Username:       user.Username,
		Kind:           kind,
	}))
	return nil
}

// ToggleReaction flips the user's reaction on a message and fans out the
// updated reaction state.
func (b *Broker) ToggleReaction(ctx context.Context, connectionID, conversationID, messageID, emoji string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.identity.ByConn(connectionID)
	if !ok {
		return errors.ErrUnauthenticated
	}
	conv, err := b.memberConversationLocked(conversationID, user)
	if err != nil {
		return err
	}
	msg := conv.log.FindByID(messageID)
	if msg == nil {
		return errors.ErrMessageNotFound
	}

	msg.ToggleReaction(emoji, user.Username)

	conv.fan(ctx, event.New(event.ReactionUpdated, projection.ReactionView{
		ConversationID: conversationID,
		MessageID:      messageID,
		Emoji:          emoji,
		Reactions:      projection.NewMessageView(msg).Reactions,
	}))
	return nil
}

// SetTyping updates the typing indicator for a room conversation.
func (b *Broker) SetTyping(ctx context.Context, connectionID, roomID string, isTyping bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.identity.ByConn(connectionID)
	if !ok {
		return errors.ErrUnauthenticated
	}
	room, ok := b.rooms[roomID]
	if !ok {
		return errors.ErrRoomNotFound
	}

	b.setTypingLocked(ctx, connectionID, user.Username, room.ID, room.Typing, isTyping)
	return nil
}

// SetPrivateTyping updates the typing indicator for the thread with the
// given peer, opening the thread if needed.
func (b *Broker) SetPrivateTyping(ctx context.Context, connectionID, toUsername string, isTyping bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.identity.ByConn(connectionID)
	if !ok {
		return errors.ErrUnauthenticated
	}
	thread := b.getOrCreateThreadLocked(user.Username, toUsername)

	b.setTypingLocked(ctx, connectionID, user.Username, thread.ID, thread.Typing, isTyping)
	return nil
}

// SetActiveRoom records which room the user is currently viewing.
func (b *Broker) SetActiveRoom(ctx context.Context, connectionID, roomID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.identity.ByConn(connectionID)
	if !ok {
		return errors.ErrUnauthenticated
	}
	if _, exists := b.rooms[roomID]; !exists {
		return errors.ErrRoomNotFound
	}

	user.ActiveRoom = roomID
	user.Touch()
	b.broadcastLocked(ctx, event.New(event.UserDirectory, b.userViewsLocked()))
	return nil
}

// --- internal helpers, all called with b.mu held ---

func (b *Broker) joinRoomLocked(ctx context.Context, room *domain.Room, user *domain.User) {
	if !room.AddMember(user.ID) {
		return
	}
	user.JoinRoom(room.ID)

	notice := domain.NewSystemMessage(room.ID, fmt.Sprintf("%s joined %s", user.Username, room.Name))
	room.Log.Append(notice)
	b.fanRoomLocked(ctx, room, event.New(event.UserJoinedRoom, projection.NewMessageView(notice)))
}

func (b *Broker) leaveRoomLocked(ctx context.Context, room *domain.Room, user *domain.User) {
	if !room.RemoveMember(user.ID) {
		return
	}
	user.LeaveRoom(room.ID)
	delete(room.Typing, user.Username)

	notice := domain.NewSystemMessage(room.ID, fmt.Sprintf("%s left %s", user.Username, room.Name))
	room.Log.Append(notice)
	b.fanRoomLocked(ctx, room, event.New(event.UserLeftRoom, projection.NewMessageView(notice)))
}

func (b *Broker) getOrCreateRoomLocked(roomIDOrName, name, description, createdBy string) (*domain.Room, error) {
	if room, ok := b.rooms[roomIDOrName]; ok {
		return room, nil
	}

	display := strings.TrimSpace(name)
	if display == "" {
		display = strings.TrimSpace(roomIDOrName)
	}
	if display == "" {
		return nil, errors.ErrInvalidRoomName
	}

	id := domain.Slugify(display)
	if room, ok := b.rooms[id]; ok {
		return room, nil
	}

	room := domain.NewRoom(id, display, description, createdBy, b.opts.RoomLogCapacity)
	b.rooms[id] = room
	b.log.Info("Room created", "room", id, "by", createdBy)
	return room, nil
}

func (b *Broker) getOrCreateThreadLocked(a, bName string) *domain.Thread {
	key := domain.ThreadKey(a, bName)
	if thread, ok := b.threads[key]; ok {
		return thread
	}
	thread := domain.NewThread(a, bName, b.opts.ThreadLogCapacity)
	b.threads[key] = thread
	return thread
}

func (b *Broker) setTypingLocked(ctx context.Context, connectionID, username, conversationID string, typing map[string]struct{}, isTyping bool) {
	_, present := typing[username]
	if isTyping {
		typing[username] = struct{}{}
		b.typing.Start(connectionID, conversationID)
	} else {
		delete(typing, username)
		b.typing.Stop(connectionID, conversationID)
	}
	if present == isTyping {
		return
	}
	b.fanConversationLocked(ctx, conversationID, event.New(event.TypingChanged, projection.NewTypingView(conversationID, typing)))
}

// clearTypingLocked removes the username from every conversation's
// typing set, member or not, and fans a snapshot for each one it was in.
func (b *Broker) clearTypingLocked(ctx context.Context, username string) {
	for _, room := range b.rooms {
		if _, typing := room.Typing[username]; typing {
			delete(room.Typing, username)
			b.fanRoomLocked(ctx, room, event.New(event.TypingChanged, projection.NewTypingView(room.ID, room.Typing)))
		}
	}
	for _, thread := range b.threads {
		if _, typing := thread.Typing[username]; typing {
			delete(thread.Typing, username)
			b.fanThreadLocked(ctx, thread, event.New(event.TypingChanged, projection.NewTypingView(thread.ID, thread.Typing)))
		}
	}
}

// expireTyping runs from the typing coordinator's timer domain; it must
// re-enter the broker's serialization boundary before touching state.
func (b *Broker) expireTyping(connectionID, conversationID string) {
	ctx := context.Background()

	b.mu.Lock()
	defer b.mu.Unlock()

	user, ok := b.identity.ByConn(connectionID)
	if !ok {
		return
	}

	if room, exists := b.rooms[conversationID]; exists {
		if _, typing := room.Typing[user.Username]; typing {
			delete(room.Typing, user.Username)
			b.fanRoomLocked(ctx, room, event.New(event.TypingChanged, projection.NewTypingView(room.ID, room.Typing)))
		}
		return
	}
	if thread, exists := b.threads[conversationID]; exists {
		if _, typing := thread.Typing[user.Username]; typing {
			delete(thread.Typing, user.Username)
			b.fanThreadLocked(ctx, thread, event.New(event.TypingChanged, projection.NewTypingView(thread.ID, thread.Typing)))
		}
	}
}

// conversation bundles a log with its fan-out audience so receipt and
// reaction paths treat rooms and threads uniformly.
type conversation struct {
	log *domain.MessageLog
	fan func(ctx context.Context, e event.Event)
}

func (b *Broker) conversationLocked(conversationID string) (conversation, error) {
	if room, ok := b.rooms[conversationID]; ok {
		return conversation{
			log: room.Log,
			fan: func(ctx context.Context, e event.Event) { b.fanRoomLocked(ctx, room, e) },
		}, nil
	}
	if thread, ok := b.threads[conversationID]; ok {
		return conversation{
			log: thread.Log,
			fan: func(ctx context.Context, e event.Event) { b.fanThreadLocked(ctx, thread, e) },
		}, nil
	}
	return conversation{}, errors.ErrRoomNotFound
}

// memberConversationLocked resolves a conversation for a state-changing
// actor: rooms require membership, threads require participation.
func (b *Broker) memberConversationLocked(conversationID string, user *domain.User) (conversation, error) {
	if room, ok := b.rooms[conversationID]; ok && !user.IsMemberOf(room.ID) {
		return conversation{}, errors.ErrNotMember
	}
	if thread, ok := b.threads[conversationID]; ok && !thread.Has(user.Username) {
		return conversation{}, errors.ErrNotMember
	}
	return b.conversationLocked(conversationID)
}

func (b *Broker) fanConversationLocked(ctx context.Context, conversationID string, e event.Event) {
	if conv, err := b.conversationLocked(conversationID); err == nil {
		conv.fan(ctx, e)
	}
}

func (b *Broker) fanRoomLocked(ctx context.Context, room *domain.Room, e event.Event) {
	for connectionID := range room.Members {
		b.sendToLocked(ctx, connectionID, e)
	}
}

func (b *Broker) fanThreadLocked(ctx context.Context, thread *domain.Thread, e event.Event) {
	for _, username := range thread.Participants {
		if user, ok := b.identity.ByName(username); ok {
			b.sendToLocked(ctx, user.ID, e)
		}
	}
}

func (b *Broker) broadcastLocked(ctx context.Context, e event.Event) {
	for _, user := range b.identity.Users() {
		b.sendToLocked(ctx, user.ID, e)
	}
}

func (b *Broker) broadcastDirectoriesLocked(ctx context.Context) {
	b.broadcastLocked(ctx, event.New(event.RoomDirectory, b.roomViewsLocked()))
	b.broadcastLocked(ctx, event.New(event.UserDirectory, b.userViewsLocked()))
}

func (b *Broker) sendToLocked(ctx context.Context, connectionID string, e event.Event) {
	sink, ok := b.sessions.Get(connectionID)
	if !ok {
		return
	}
	if err := sink.Consume(ctx, e); err != nil {
		b.log.Debug("Sink rejected event", "connection", connectionID, "type", e.Type, "error", err)
	}
}

// moderateBody validates and censors a message body. Censored posts are
// logged with their detected language for moderation follow-up.
func (b *Broker) moderateBody(username, body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", errors.ErrEmptyBody
	}
	if b.moderator == nil {
		return body, nil
	}

	sanitized, found := b.moderator.Censor(body)
	if len(found) > 0 {
		info := whatlanggo.Detect(body)
		b.log.Warn("Message censored",
			"author", username,
			"lang", info.Lang.Iso6391(),
			"matches", len(found))
	}
	return sanitized, nil
}
