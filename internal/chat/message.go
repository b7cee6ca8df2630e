package chat

// ConnectionID identifies a live network session. The transport layer
// assigns them; the registry never invents one.
type ConnectionID uint16

const (
	// ServerConnectionID is the reserved pseudo-connection representing the
	// server itself. It is always "connected" but owns no client record.
	ServerConnectionID ConnectionID = 0

	// ServerNick is the reserved nickname of the server identity. No client
	// can ever hold it.
	ServerNick = "server"
)

// Mode classifies how a message was addressed.
type Mode int

const (
	// ModeBroadcast goes to every connected client.
	ModeBroadcast Mode = iota
	// ModeChannel goes to the members of one named channel.
	ModeChannel
	// ModeWhisper goes to a single target (plus the sender's echo).
	ModeWhisper
	// ModeCommandResult carries a command response back to its issuer.
	ModeCommandResult
)

func (m Mode) String() string {
	switch m {
	case ModeBroadcast:
		return "broadcast"
	case ModeChannel:
		return "channel"
	case ModeWhisper:
		return "whisper"
	case ModeCommandResult:
		return "command_result"
	default:
		return "unknown"
	}
}

// MessageContext describes the addressing of a received message. Channel is
// set only for channel-addressed modes.
type MessageContext struct {
	Mode    Mode
	Channel string
}

// ReceivedMessage is a single entry in a client's pending queue. FromNick is
// captured when the message is built and never re-resolved, so a later
// rename does not rewrite messages already queued.
type ReceivedMessage struct {
	Context        MessageContext
	FromConnection ConnectionID
	FromNick       string
	Text           string
}
