package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat-broker/contract"
	"chat-broker/domain/event"
	"chat-broker/errors"
	"chat-broker/runtime"
)

const DefaultSendBuffer = 256

// Gateway upgrades HTTP requests to websocket sessions and routes
// inbound frames to broker operations.
type Gateway struct {
	log        *slog.Logger
	broker     *runtime.Broker
	registry   contract.IRegistry
	validate   *validator.Validate
	sendBuffer int
	upgrader   websocket.Upgrader
}

func NewGateway(log *slog.Logger, broker *runtime.Broker, registry contract.IRegistry, sendBuffer int) *Gateway {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Gateway{
		log:        log,
		broker:     broker,
		registry:   registry,
		validate:   validator.New(),
		sendBuffer: sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler upgrades the request and runs the connection's read and write
// pumps. The session is registered before any frame is read so the
// broker can fan events to it from the first operation on.
func (g *Gateway) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			g.log.Error("Websocket upgrade failed", "error", err)
			return
		}

		client := &Client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan []byte, g.sendBuffer),
			gw:   g,
			log:  g.log,
		}
		g.registry.Subscribe(client.id, client)

		g.log.Debug("Connection opened", "connection", client.id)
		go client.writePump()
		client.readPump(c.Request.Context())
	}
}

// dispatch routes one inbound frame. A panic anywhere below is caught
// here and surfaces as a generic internal error; a malformed frame must
// never take the process down.
func (g *Gateway) dispatch(ctx context.Context, c *Client, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.enqueue(Response{For: "unknown", Error: &ErrorBody{Code: errors.CodeInvalid, Message: "malformed frame"}})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			g.log.Error("Panic while handling frame", "op", frame.Op, "connection", c.id, "panic", r)
			c.enqueue(Response{For: frame.Op, Error: &ErrorBody{Code: errors.CodeInternal, Message: "internal failure"}})
		}
	}()

	data, err := g.handle(ctx, c, frame)
	if err != nil {
		c.enqueue(Response{For: frame.Op, Error: &ErrorBody{Code: errors.Code(err), Message: err.Error()}})
		return
	}
	if data != nil {
		c.enqueue(Response{For: frame.Op, OK: true, Data: data})
	}
}

// handle decodes the payload variant for the op and delegates. A nil
// data with nil error means fire-and-forget: no acknowledgement.
func (g *Gateway) handle(ctx context.Context, c *Client, frame Frame) (any, error) {
	switch frame.Op {
	case OpJoin:
		var req JoinRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		welcome, err := g.broker.Join(ctx, c.id, req.Username)
		if err != nil {
			return nil, err
		}
		// The snapshot goes out as a welcome event rather than an ack so
		// clients consume one uniform stream.
		return nil, c.Consume(ctx, event.New(event.Welcome, welcome))

	case OpJoinRoom:
		var req JoinRoomRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		room, err := g.broker.JoinRoom(ctx, c.id, req.Room, req.Name, req.Description)
		if err != nil {
			return nil, err
		}
		return room, nil

	case OpLeaveRoom:
		var req LeaveRoomRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		return nil, g.broker.LeaveRoom(ctx, c.id, req.RoomID)

	case OpPostMessage:
		var req PostMessageRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		msg, err := g.broker.PostMessage(ctx, c.id, req.RoomID, req.Body, req.Attachments, req.TempID)
		if err != nil {
			return nil, err
		}
		return msg, nil

	case OpPostPrivate:
		var req PostPrivateRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		msg, _, err := g.broker.PostPrivateMessage(ctx, c.id, req.To, req.Body, req.TempID)
		if err != nil {
			return nil, err
		}
		return msg, nil

	case OpMarkDelivered:
		var req ReceiptRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		return nil, g.broker.MarkDelivered(ctx, c.id, req.ConversationID, req.MessageID)

	case OpMarkRead:
		var req ReceiptRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		return nil, g.broker.MarkRead(ctx, c.id, req.ConversationID, req.MessageID)

	case OpSetTyping:
		var req TypingRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		return nil, g.broker.SetTyping(ctx, c.id, req.RoomID, req.IsTyping)

	case OpSetPrivateTyping:
		var req PrivateTypingRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		return nil, g.broker.SetPrivateTyping(ctx, c.id, req.To, req.IsTyping)

	case OpToggleReaction, OpTogglePrivateReaction:
		var req ReactionRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		return nil, g.broker.ToggleReaction(ctx, c.id, req.ConversationID, req.MessageID, req.Emoji)

	case OpRequestHistory:
		var req HistoryRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		history, err := g.broker.History(req.ConversationID, req.BeforeID, req.Limit)
		if err != nil {
			return nil, err
		}
		return history, nil

	case OpSetActiveRoom:
		var req ActiveRoomRequest
		if err := g.decode(frame.Data, &req); err != nil {
			return nil, err
		}
		return nil, g.broker.SetActiveRoom(ctx, c.id, req.RoomID)

	default:
		return nil, errors.ErrUnknownOperation
	}
}

// decode unmarshals and validates one payload. Both failure modes map
// to the invalid code so clients get a uniform rejection.
func (g *Gateway) decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.ErrInvalidPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.ErrInvalidPayload
	}
	if err := g.validate.Struct(v); err != nil {
		return errors.ErrInvalidPayload
	}
	return nil
}
