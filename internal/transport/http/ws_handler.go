package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdhttp "net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wireline/chatrelay/internal/chat"
	"github.com/wireline/chatrelay/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to the chat
// registry: inbound frames become registry calls, and a ticker drains the
// connection's pending queue onto the wire. Delivery is pull-based; the
// registry never pushes.
type WSHandler struct {
	reg          *chat.Registry
	pullInterval time.Duration
	log          *zerolog.Logger
	nextID       atomic.Uint32
}

// NewWSHandler builds a new WebSocket handler. Connection ids are allocated
// from an atomic counter starting at 1; 0 is the server sentinel.
func NewWSHandler(reg *chat.Registry, pullInterval time.Duration, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{reg: reg, pullInterval: pullInterval, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	logger := h.log.With().Str("conn", uuid.NewString()).Logger()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	hello, err := h.readHello(ctx, conn)
	if err != nil {
		logger.Warn().Err(err).Msg("ws handshake failed")
		return
	}

	id := chat.ConnectionID(h.nextID.Add(1))
	nick := h.reg.Connect(id, hello.Nick)
	logger.Info().Uint16("id", uint16(id)).Str("nick", nick).Msg("client connected")

	if err := wsjson.Write(ctx, conn, proto.Outbound{
		Type: proto.OutboundTypeWelcome,
		Data: proto.WelcomeData{Nick: nick, Protocol: proto.ProtocolVersion},
	}); err != nil {
		h.reg.Disconnect(id)
		logger.Warn().Err(err).Msg("write welcome")
		return
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, id, &logger)
	}()
	go func() {
		errCh <- h.pullLoop(ctx, conn, id)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	drained := h.reg.Disconnect(id)
	h.flush(conn, drained)
	logger.Info().Str("nick", nick).Msg("client disconnected")

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			logger.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readHello waits for the mandatory first frame and validates it.
func (h *WSHandler) readHello(ctx context.Context, conn *websocket.Conn) (proto.HelloData, error) {
	var inbound proto.Inbound
	if err := wsjson.Read(ctx, conn, &inbound); err != nil {
		return proto.HelloData{}, err
	}
	if inbound.Type != proto.InboundTypeHello {
		_ = writeError(ctx, conn, proto.ErrCodeHelloFirst, "hello must be the first frame")
		return proto.HelloData{}, fmt.Errorf("first frame was %q", inbound.Type)
	}

	var hello proto.HelloData
	if len(inbound.Data) > 0 {
		if err := json.Unmarshal(inbound.Data, &hello); err != nil {
			_ = writeError(ctx, conn, proto.ErrCodeBadFrame, "invalid hello data")
			return proto.HelloData{}, fmt.Errorf("decode hello: %w", err)
		}
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		_ = writeError(ctx, conn, proto.ErrCodeBadProtocol, "unsupported protocol version")
		return proto.HelloData{}, fmt.Errorf("unsupported protocol %d", hello.Protocol)
	}
	return hello, nil
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, id chat.ConnectionID, logger *zerolog.Logger) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}
		if err := h.dispatch(ctx, conn, id, inbound, logger); err != nil {
			return err
		}
	}
}

// dispatch maps one inbound frame onto a registry operation. A non-nil
// return tears the connection down; recoverable problems are answered with
// an error frame instead.
func (h *WSHandler) dispatch(ctx context.Context, conn *websocket.Conn, id chat.ConnectionID, inbound proto.Inbound, logger *zerolog.Logger) error {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var d proto.JoinData
		if err := json.Unmarshal(inbound.Data, &d); err != nil || d.Channel == "" {
			return writeError(ctx, conn, proto.ErrCodeBadFrame, "invalid join data")
		}
		h.reg.Join(id, d.Channel)

	case proto.InboundTypeLeave:
		var d proto.LeaveData
		if err := json.Unmarshal(inbound.Data, &d); err != nil || d.Channel == "" {
			return writeError(ctx, conn, proto.ErrCodeBadFrame, "invalid leave data")
		}
		h.reg.Leave(id, d.Channel)

	case proto.InboundTypeSay:
		var d proto.SayData
		if err := json.Unmarshal(inbound.Data, &d); err != nil {
			return writeError(ctx, conn, proto.ErrCodeBadFrame, "invalid say data")
		}
		h.reg.Broadcast(id, d.Text)

	case proto.InboundTypeMsg:
		var d proto.MsgData
		if err := json.Unmarshal(inbound.Data, &d); err != nil || d.Channel == "" {
			return writeError(ctx, conn, proto.ErrCodeBadFrame, "invalid msg data")
		}
		h.reg.Message(id, chat.ModeChannel, d.Channel, d.Text)

	case proto.InboundTypeWhisper:
		var d proto.WhisperData
		if err := json.Unmarshal(inbound.Data, &d); err != nil || d.Nick == "" {
			return writeError(ctx, conn, proto.ErrCodeBadFrame, "invalid whisper data")
		}
		if _, ok := h.reg.WhisperNick(id, d.Nick, d.Text); !ok {
			return writeError(ctx, conn, proto.ErrCodeNoSuchNick, "no such nick "+d.Nick)
		}

	default:
		logger.Debug().Str("type", inbound.Type).Msg("unknown inbound frame")
		return writeError(ctx, conn, proto.ErrCodeBadFrame, "unknown frame type "+inbound.Type)
	}
	return nil
}

// pullLoop drains the connection's pending queue on a fixed cadence. This
// is the transport-side bound on queue growth: a connection that cannot
// keep up fails its write and gets disconnected.
func (h *WSHandler) pullLoop(ctx context.Context, conn *websocket.Conn, id chat.ConnectionID) error {
	ticker := time.NewTicker(h.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, msg := range h.reg.PullPending(id) {
				if err := wsjson.Write(ctx, conn, outboundFromMessage(msg)); err != nil {
					return err
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// flush makes a best-effort attempt to deliver the queue drained at
// disconnect before the socket closes.
func (h *WSHandler) flush(conn *websocket.Conn, drained []chat.ReceivedMessage) {
	if len(drained) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, msg := range drained {
		if err := wsjson.Write(ctx, conn, outboundFromMessage(msg)); err != nil {
			return
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, code, msg string) error {
	return wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: code, Msg: msg},
	})
}
