package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"go-parley/internal/infrastructure/auth"
	"go-parley/internal/infrastructure/realtime"
)

// FeedController upgrades the request to a websocket and streams change
// events for the actor's records. The feed is one-way: inbound frames other
// than control messages are discarded.
type FeedController struct {
	hub *realtime.Hub
}

func NewFeedController(hub *realtime.Hub) *FeedController {
	return &FeedController{hub: hub}
}

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy belongs to the reverse proxy in front of the API.
		return true
	},
}

func (h *FeedController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := auth.ActorID(c)
		ws, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		conn := realtime.NewConnection(actorID, ws)
		h.hub.Attach(conn)

		// Reader loop drains control frames and detects the close.
		go func() {
			defer h.hub.Detach(conn)
			defer conn.Close(websocket.CloseNormalClosure, "bye")
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}
}
