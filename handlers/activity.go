package handlers

import (
	"log"
	"net/http"
	"os"

	"lifedrop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ActivityHandler upgrades admin dashboard connections onto the activity
// hub so they receive point and voucher events live.
type ActivityHandler struct {
	Hub *utils.ActivityHub
}

var activityUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return origin == os.Getenv("ADMIN_URL")
	},
}

func (h *ActivityHandler) Subscribe(c *gin.Context) {
	conn, err := activityUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Activity feed upgrade failed: %v", err)
		return
	}

	h.Hub.Register(conn)

	// The feed is push-only; the read loop exists to notice disconnects.
	go func() {
		defer h.Hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
