package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"chat-broker/domain"
	"chat-broker/httpapi"
	"chat-broker/runtime"
)

func newServer(t *testing.T) (*runtime.Broker, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.Default()
	registry := runtime.NewRegistry()
	broker := runtime.NewBroker(log, registry, nil, runtime.Options{})
	router := gin.New()
	httpapi.New(log, broker).Register(router)
	return broker, router
}

func get(t *testing.T, router *gin.Engine, url string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	router.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestAPI_ListsSeedRooms(t *testing.T) {
	req := require.New(t)
	_, router := newServer(t)

	code, body := get(t, router, "/rooms")
	req.Equal(http.StatusOK, code)
	req.Len(body["rooms"], 2)
}

func TestAPI_RoomHistoryPaginates(t *testing.T) {
	req := require.New(t)
	broker, router := newServer(t)

	ctx := context.Background()
	_, err := broker.Join(ctx, "conn-a", "Ada")
	req.NoError(err)
	for i := 0; i < 40; i++ {
		_, err := broker.PostMessage(ctx, "conn-a", domain.RoomGeneral, fmt.Sprintf("note %02d", i), nil, "")
		req.NoError(err)
	}

	code, body := get(t, router, "/rooms/general/messages?limit=10")
	req.Equal(http.StatusOK, code)
	req.Len(body["messages"], 10)
	req.Equal(true, body["hasMore"])
	cursor := body["nextCursor"].(string)

	code, body = get(t, router, "/rooms/general/messages?limit=10&before="+cursor)
	req.Equal(http.StatusOK, code)
	req.Len(body["messages"], 10)

	code, _ = get(t, router, "/rooms/nowhere/messages")
	req.Equal(http.StatusNotFound, code)
}

func TestAPI_SearchRequiresQuery(t *testing.T) {
	req := require.New(t)
	broker, router := newServer(t)

	ctx := context.Background()
	_, err := broker.Join(ctx, "conn-a", "Ada")
	req.NoError(err)
	_, err = broker.PostMessage(ctx, "conn-a", domain.RoomGeneral, "deploy at noon", nil, "")
	req.NoError(err)

	code, body := get(t, router, "/search?q=deploy")
	req.Equal(http.StatusOK, code)
	req.Len(body["messages"], 1)

	code, _ = get(t, router, "/search")
	req.Equal(http.StatusBadRequest, code)
}

func TestAPI_ListsUsers(t *testing.T) {
	req := require.New(t)
	broker, router := newServer(t)

	_, err := broker.Join(context.Background(), "conn-a", "Ada")
	req.NoError(err)

	code, body := get(t, router, "/users")
	req.Equal(http.StatusOK, code)
	users := body["users"].([]any)
	req.Len(users, 1)
	req.Equal("Ada", users[0].(map[string]any)["username"])
}
