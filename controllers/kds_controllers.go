package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/locum-staffing/middlewares"
	"github.com/yeremiapane/locum-staffing/realtime"
)

// LiveFeedHandler upgrades to a websocket that streams assignment events. HR and ADMIN
// receive every event; staff receive their own.
func LiveFeedHandler(hub *realtime.Hub, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" || allowedOrigin == "*" {
				return true
			}
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		session, ok := middlewares.GetSession(c)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		hub.Serve(ws, session.UserID, session.Role)
	}
}
