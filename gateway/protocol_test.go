package gateway

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestRequestValidation(t *testing.T) {
	validate := validator.New()

	cases := []struct {
		name    string
		payload any
		wantErr bool
	}{
		{"join ok", JoinRequest{Username: "Ada"}, false},
		{"join empty", JoinRequest{}, true},
		{"join too long", JoinRequest{Username: strings.Repeat("a", 25)}, true},
		{"post ok", PostMessageRequest{RoomID: "general", Body: "hi"}, false},
		{"post no room", PostMessageRequest{Body: "hi"}, true},
		{"post no body", PostMessageRequest{RoomID: "general"}, true},
		{"private ok", PostPrivateRequest{To: "Grace", Body: "psst"}, false},
		{"private no recipient", PostPrivateRequest{Body: "psst"}, true},
		{"receipt ok", ReceiptRequest{ConversationID: "general", MessageID: "m1"}, false},
		{"receipt partial", ReceiptRequest{ConversationID: "general"}, true},
		{"reaction ok", ReactionRequest{ConversationID: "general", MessageID: "m1", Emoji: "👍"}, false},
		{"reaction no emoji", ReactionRequest{ConversationID: "general", MessageID: "m1"}, true},
		{"history default limit", HistoryRequest{ConversationID: "general"}, false},
		{"history limit capped", HistoryRequest{ConversationID: "general", Limit: 101}, true},
		{"history negative limit", HistoryRequest{ConversationID: "general", Limit: -1}, true},
		{"typing ok", TypingRequest{RoomID: "general", IsTyping: true}, false},
		{"typing stop ok", TypingRequest{RoomID: "general"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Struct(tc.payload)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
