// Package proto defines the JSON envelopes exchanged over the WebSocket
// transport. The registry itself has no wire format; these types are the
// transport's rendering of its inputs and outputs.
package proto

import "encoding/json"

const (
	ProtocolVersion = 1

	// Inbound frame types. Hello must be the first frame on a connection.
	InboundTypeHello   = "hello"
	InboundTypeJoin    = "join"
	InboundTypeLeave   = "leave"
	InboundTypeSay     = "say"
	InboundTypeMsg     = "msg"
	InboundTypeWhisper = "whisper"

	// Outbound frame types.
	OutboundTypeWelcome = "welcome"
	OutboundTypeMessage = "message"
	OutboundTypeError   = "error"
)

// Error codes carried in outbound error frames.
const (
	ErrCodeBadFrame    = "bad_frame"
	ErrCodeHelloFirst  = "hello_first"
	ErrCodeNoSuchNick  = "no_such_nick"
	ErrCodeBadProtocol = "bad_protocol"
)

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HelloData introduces the client and optionally requests a nickname.
type HelloData struct {
	Nick     string `json:"nick,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// JoinData requests membership of a channel.
type JoinData struct {
	Channel string `json:"channel"`
}

// LeaveData drops membership of a channel.
type LeaveData struct {
	Channel string `json:"channel"`
}

// SayData broadcasts text to everyone connected.
type SayData struct {
	Text string `json:"text"`
}

// MsgData sends text to the members of one channel.
type MsgData struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// WhisperData sends text to the client owning the nickname.
type WhisperData struct {
	Nick string `json:"nick"`
	Text string `json:"text"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// WelcomeData confirms the connection and reports the assigned nickname.
type WelcomeData struct {
	Nick     string `json:"nick"`
	Protocol int    `json:"protocol"`
}

// MessageData is one delivered chat message.
type MessageData struct {
	Context string `json:"context"`
	Channel string `json:"channel,omitempty"`
	From    uint16 `json:"from"`
	Nick    string `json:"nick"`
	Text    string `json:"text"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
