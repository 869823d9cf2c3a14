// Package httpapi exposes the read-only query surface over HTTP. All
// writes go through the websocket gateway; these endpoints only read
// broker snapshots.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-broker/errors"
	"chat-broker/runtime"
)

type API struct {
	log    *slog.Logger
	broker *runtime.Broker
}

func New(log *slog.Logger, broker *runtime.Broker) *API {
	return &API{log: log, broker: broker}
}

// Register mounts the query routes on the given router group.
func (a *API) Register(r gin.IRouter) {
	r.GET("/rooms", a.listRooms)
	r.GET("/rooms/:id/messages", a.roomHistory)
	r.GET("/users", a.listUsers)
	r.GET("/search", a.search)
}

func (a *API) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": a.broker.Rooms()})
}

func (a *API) listUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": a.broker.Users()})
}

func (a *API) roomHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	history, err := a.broker.History(c.Param("id"), c.Query("before"), limit)
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (a *API) search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": errors.CodeInvalid, "message": "q is required"})
		return
	}
	matches, err := a.broker.SearchMessages(query, c.Query("roomId"))
	if err != nil {
		abortWith(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": matches})
}

func abortWith(c *gin.Context, err error) {
	code := errors.Code(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeInvalid:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"code": code, "message": err.Error()})
}
