// Package chat implements the in-process routing registry: who is
// connected, what they are called, which channels they sit in, and which
// messages are waiting for them. The transport layer tells the registry
// when connections appear and disappear and drains each connection's queue
// with PullPending; it never receives a push.
package chat

import (
	"fmt"
	"sync"
)

// CommandHandler resolves command words the registry does not know itself.
// It is invoked synchronously while the registry lock is held, so it must
// not call back into the registry or block.
type CommandHandler func(from ConnectionID, command, args string) string

type clientInfo struct {
	id      ConnectionID
	nick    string
	pending []ReceivedMessage
}

// Registry tracks connected clients, their nicknames, channel memberships
// and per-client outbound queues. All public methods are safe for
// concurrent use; everything lives behind one mutex. Operations that need
// each other call the unexported *Locked variants so the lock is never
// re-acquired on the same goroutine.
type Registry struct {
	mu       sync.Mutex
	clients  map[ConnectionID]*clientInfo
	nicks    map[string]ConnectionID
	channels map[string]map[ConnectionID]struct{}
	handler  CommandHandler
}

// NewRegistry returns an empty registry with no command handler installed.
func NewRegistry() *Registry {
	return &Registry{
		clients:  make(map[ConnectionID]*clientInfo),
		nicks:    make(map[string]ConnectionID),
		channels: make(map[string]map[ConnectionID]struct{}),
	}
}

// Connect registers a new connection and returns the nickname it was
// assigned. An empty requested nick gets a default derived from the id.
// Every connected client, the new one included, is notified in the same
// critical section as the insertion.
func (r *Registry) Connect(id ConnectionID, nick string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if nick == "" {
		nick = fmt.Sprintf("Player_%d", id)
	}
	nick = r.uniqueNickLocked(nick)

	r.clients[id] = &clientInfo{id: id, nick: nick}
	r.nicks[nick] = id

	r.noticeLocked(fmt.Sprintf("Player '%s' connected", nick))
	return nick
}

// Disconnect removes the connection from every channel, the client table
// and the nickname index, notifies the remaining clients, and returns
// whatever was still pending in the departing client's queue. Disconnecting
// an id that was never connected is a caller bug and panics.
func (r *Registry) Disconnect(id ConnectionID) []ReceivedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	ci := r.mustClientLocked(id)

	for _, channel := range r.clientChannelsLocked(id) {
		r.leaveChannelLocked(id, channel)
	}

	delete(r.clients, id)
	delete(r.nicks, ci.nick)

	r.noticeLocked(fmt.Sprintf("Player '%s' disconnected", ci.nick))
	return ci.pending
}

// Rename changes the connection's nickname, uniquifying the requested name
// the same way Connect does, and returns the name actually assigned. Other
// clients are not notified. Unknown ids panic.
func (r *Registry) Rename(id ConnectionID, nick string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renameLocked(id, nick)
}

// Clients returns a snapshot of all connected connection ids.
func (r *Registry) Clients() []ConnectionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]ConnectionID, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

// Roster returns a snapshot of connected clients and their nicknames.
func (r *Registry) Roster() map[ConnectionID]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	roster := make(map[ConnectionID]string, len(r.clients))
	for id, ci := range r.clients {
		roster[id] = ci.nick
	}
	return roster
}

// HasClient reports whether the connection id is currently registered.
func (r *Registry) HasClient(id ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.clients[id]
	return ok
}

// FindConnection resolves a nickname to its connection id. The reserved
// server nickname resolves to ServerConnectionID.
func (r *Registry) FindConnection(nick string) (ConnectionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.nicks[nick]; ok {
		return id, true
	}
	if nick == ServerNick {
		return ServerConnectionID, true
	}
	return 0, false
}

// Nickname returns the nickname of a connection. The server id resolves to
// the reserved server nickname without a table lookup; any other unknown id
// panics.
func (r *Registry) Nickname(id ConnectionID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nicknameLocked(id)
}

// Join adds the connection to a channel, creating the channel on first
// reference. Returns false if the connection was already a member.
func (r *Registry) Join(id ConnectionID, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.channels[channel]
	if members == nil {
		members = make(map[ConnectionID]struct{})
		r.channels[channel] = members
	}
	if _, ok := members[id]; ok {
		return false
	}
	members[id] = struct{}{}
	return true
}

// Leave removes the connection from a channel. Returns false if it was not
// a member. Channels are never deleted, only emptied.
func (r *Registry) Leave(id ConnectionID, channel string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveChannelLocked(id, channel)
}

// ClientChannels returns the channels the connection currently belongs to,
// in no particular order.
func (r *Registry) ClientChannels(id ConnectionID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clientChannelsLocked(id)
}

// ActiveChannels returns the names of channels with at least one member.
func (r *Registry) ActiveChannels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeChannelsLocked()
}

// Broadcast routes text from the source to every connected client,
// including the source itself. Returns true if the text was consumed as a
// command and therefore not fanned out.
func (r *Registry) Broadcast(source ConnectionID, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcastLocked(source, text)
}

// Message routes text to every current member of the named channel. A
// channel with no members swallows the message silently. Returns true if
// the text was consumed as a command.
func (r *Registry) Message(source ConnectionID, mode Mode, channel, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := ReceivedMessage{
		Context:        MessageContext{Mode: mode, Channel: channel},
		FromConnection: source,
		FromNick:       r.nicknameLocked(source),
		Text:           text,
	}
	if r.interceptLocked(&msg) {
		return true
	}

	for id := range r.channels[channel] {
		ci := r.mustClientLocked(id)
		ci.pending = append(ci.pending, msg)
	}
	return false
}

// Whisper delivers text to the target's queue and echoes it into the
// sender's own queue, unless the sender is the server identity (which has
// no queue). Unknown target ids panic. Returns true if the text was
// consumed as a command.
func (r *Registry) Whisper(source, target ConnectionID, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.whisperLocked(source, target, text)
}

// WhisperNick resolves the target nickname and delivers in one critical
// section, so the target cannot disconnect between lookup and delivery.
// The second return is false when no client owns the nickname.
func (r *Registry) WhisperNick(source ConnectionID, nick, text string) (consumed, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, found := r.nicks[nick]
	if !found {
		return false, false
	}
	return r.whisperLocked(source, target, text), true
}

// AdminBroadcast is Broadcast with the server as the source.
func (r *Registry) AdminBroadcast(text string) bool {
	return r.Broadcast(ServerConnectionID, text)
}

// AdminMessage is Message with the server as the source.
func (r *Registry) AdminMessage(mode Mode, channel, text string) bool {
	return r.Message(ServerConnectionID, mode, channel, text)
}

// AdminWhisper is Whisper with the server as the source.
func (r *Registry) AdminWhisper(target ConnectionID, text string) bool {
	return r.Whisper(ServerConnectionID, target, text)
}

// PullPending swaps out and returns the connection's queued messages,
// leaving the queue empty. Pulling for an id that is not connected returns
// nil; this is the one identifier operation that tolerates unknown ids,
// because the transport layer may race a pull against a disconnect.
func (r *Registry) PullPending(id ConnectionID) []ReceivedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	ci, ok := r.clients[id]
	if !ok {
		return nil
	}
	pending := ci.pending
	ci.pending = nil
	return pending
}

// SetCommandHandler installs the fallback handler for command words the
// registry does not implement itself. It replaces any previous handler.
func (r *Registry) SetCommandHandler(handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = handler
}

// ClearCommandHandler removes the installed handler; unknown commands then
// produce the generic error response.
func (r *Registry) ClearCommandHandler() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = nil
}

func (r *Registry) broadcastLocked(source ConnectionID, text string) bool {
	msg := ReceivedMessage{
		Context:        MessageContext{Mode: ModeBroadcast},
		FromConnection: source,
		FromNick:       r.nicknameLocked(source),
		Text:           text,
	}
	if r.interceptLocked(&msg) {
		return true
	}

	for _, ci := range r.clients {
		ci.pending = append(ci.pending, msg)
	}
	return false
}

func (r *Registry) whisperLocked(source, target ConnectionID, text string) bool {
	msg := ReceivedMessage{
		Context:        MessageContext{Mode: ModeWhisper},
		FromConnection: source,
		FromNick:       r.nicknameLocked(source),
		Text:           text,
	}
	if r.interceptLocked(&msg) {
		return true
	}

	if source != ServerConnectionID {
		ci := r.mustClientLocked(source)
		ci.pending = append(ci.pending, msg)
	}
	ci := r.mustClientLocked(target)
	ci.pending = append(ci.pending, msg)
	return false
}

func (r *Registry) renameLocked(id ConnectionID, nick string) string {
	ci := r.mustClientLocked(id)

	delete(r.nicks, ci.nick)
	nick = r.uniqueNickLocked(nick)
	ci.nick = nick
	r.nicks[nick] = id
	return nick
}

func (r *Registry) leaveChannelLocked(id ConnectionID, channel string) bool {
	members, ok := r.channels[channel]
	if !ok {
		return false
	}
	if _, present := members[id]; !present {
		return false
	}
	delete(members, id)
	return true
}

func (r *Registry) clientChannelsLocked(id ConnectionID) []string {
	var names []string
	for name, members := range r.channels {
		if _, ok := members[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (r *Registry) activeChannelsLocked() []string {
	var names []string
	for name, members := range r.channels {
		if len(members) > 0 {
			names = append(names, name)
		}
	}
	return names
}

func (r *Registry) nicknameLocked(id ConnectionID) string {
	if id == ServerConnectionID {
		return ServerNick
	}
	return r.mustClientLocked(id).nick
}

// noticeLocked fans a server-attributed broadcast notification into every
// connected client's queue. Runs inside the caller's critical section, so
// no connect or disconnect can interleave with the fan-out.
func (r *Registry) noticeLocked(text string) {
	msg := ReceivedMessage{
		Context:        MessageContext{Mode: ModeBroadcast},
		FromConnection: ServerConnectionID,
		FromNick:       ServerNick,
		Text:           text,
	}
	for _, ci := range r.clients {
		ci.pending = append(ci.pending, msg)
	}
}

// uniqueNickLocked resolves collisions by appending underscores until the
// candidate is free. Known limitation: the loop has no length bound, so
// adversarial repeated requests grow the name by one character per retry.
func (r *Registry) uniqueNickLocked(nick string) string {
	for {
		_, taken := r.nicks[nick]
		if !taken && nick != ServerNick {
			return nick
		}
		nick += "_"
	}
}

func (r *Registry) mustClientLocked(id ConnectionID) *clientInfo {
	ci, ok := r.clients[id]
	if !ok {
		panic(fmt.Sprintf("chat: unknown connection id %d", id))
	}
	return ci
}
