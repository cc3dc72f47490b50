package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"think-alike/internal/engine"
	"think-alike/internal/notify"
)

const eventSnapshot = "snapshot"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebsocket subscribes the caller to a room's updates. The current room
// is sent first so clients never start from an empty state.
func (s *Server) handleWebsocket(c *gin.Context) {
	code := engine.NormalizeCode(c.Param("code"))
	room, err := s.engine.Get(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	channel := notify.Channel(code)
	client := s.hub.Add(channel, conn)
	log.Debug().Str("room", code).Str("remote", c.ClientIP()).Msg("ws connected")
	if err := s.hub.Send(client, eventSnapshot, room); err != nil {
		s.hub.Remove(channel, client)
		return
	}
	go s.hub.ReadLoop(channel, client)
}
