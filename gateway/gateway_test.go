package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-broker/domain"
	"chat-broker/errors"
	"chat-broker/runtime"
)

// dispatch never touches the raw socket, so a client without a
// connection is enough to drive the full frame path.
func newTestClient(t *testing.T) (*Gateway, *Client) {
	t.Helper()
	log := slog.Default()
	registry := runtime.NewRegistry()
	broker := runtime.NewBroker(log, registry, nil, runtime.Options{})
	gw := NewGateway(log, broker, registry, 0)

	client := &Client{
		id:   "conn-test",
		send: make(chan []byte, DefaultSendBuffer),
		gw:   gw,
		log:  log,
	}
	registry.Subscribe(client.id, client)
	return gw, client
}

func frame(t *testing.T, op string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(Frame{Op: op, Data: data})
	require.NoError(t, err)
	return raw
}

func drain(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case data := <-c.send:
		var out map[string]any
		require.NoError(t, json.Unmarshal(data, &out))
		return out
	default:
		t.Fatal("expected an outbound message")
		return nil
	}
}

// drainAll empties the queued outbound messages.
func drainAll(t *testing.T, c *Client) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case data := <-c.send:
			var m map[string]any
			require.NoError(t, json.Unmarshal(data, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestDispatch_JoinEmitsWelcomeEvent(t *testing.T) {
	req := require.New(t)
	gw, client := newTestClient(t)

	gw.dispatch(context.Background(), client, frame(t, OpJoin, JoinRequest{Username: "Ada"}))

	// The join fan-out precedes the snapshot; the welcome is last.
	msgs := drainAll(t, client)
	req.NotEmpty(msgs)
	welcome := msgs[len(msgs)-1]
	req.Equal("welcome", welcome["type"])
	payload := welcome["payload"].(map[string]any)
	req.Equal(domain.RoomGeneral, payload["activeRoomId"])
}

func TestDispatch_ErrorsCarryStableCodes(t *testing.T) {
	req := require.New(t)
	gw, client := newTestClient(t)

	// Posting before joining.
	gw.dispatch(context.Background(), client, frame(t, OpPostMessage, PostMessageRequest{RoomID: "general", Body: "hi"}))
	out := drain(t, client)
	req.Equal(false, out["ok"])
	req.Equal(errors.CodeUnauthenticated, out["error"].(map[string]any)["code"])
}

func TestDispatch_RejectsMalformedInput(t *testing.T) {
	req := require.New(t)
	gw, client := newTestClient(t)

	gw.dispatch(context.Background(), client, []byte("{not json"))
	out := drain(t, client)
	req.Equal(errors.CodeInvalid, out["error"].(map[string]any)["code"])

	gw.dispatch(context.Background(), client, frame(t, OpJoin, JoinRequest{}))
	out = drain(t, client)
	req.Equal(errors.CodeInvalid, out["error"].(map[string]any)["code"])

	gw.dispatch(context.Background(), client, frame(t, "teleport", struct{}{}))
	out = drain(t, client)
	req.Equal(errors.CodeInvalid, out["error"].(map[string]any)["code"])
}

func TestDispatch_FireAndForgetStaysSilentOnSuccess(t *testing.T) {
	req := require.New(t)
	gw, client := newTestClient(t)

	gw.dispatch(context.Background(), client, frame(t, OpJoin, JoinRequest{Username: "Ada"}))
	drainAll(t, client)

	gw.dispatch(context.Background(), client, frame(t, OpSetTyping, TypingRequest{RoomID: domain.RoomGeneral, IsTyping: true}))

	// The only outbound message is the typing fan-out, not an ack.
	msgs := drainAll(t, client)
	req.Len(msgs, 1)
	req.Equal("typing", msgs[0]["type"])
}
