package http

import (
	"github.com/wireline/chatrelay/internal/chat"
	"github.com/wireline/chatrelay/internal/proto"
)

// outboundFromMessage renders a registry message as a wire frame.
func outboundFromMessage(msg chat.ReceivedMessage) proto.Outbound {
	return proto.Outbound{
		Type: proto.OutboundTypeMessage,
		Data: proto.MessageData{
			Context: msg.Context.Mode.String(),
			Channel: msg.Context.Channel,
			From:    uint16(msg.FromConnection),
			Nick:    msg.FromNick,
			Text:    msg.Text,
		},
	}
}
