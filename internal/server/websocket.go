package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/reeveops/reeve/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleEvents streams bus events matching a tag prefix over a websocket.
// Slow consumers drop events rather than stalling publishers; replay=true
// resends the retained buffer on connect.
func (s *Server) handleEvents(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error(err, "websocket upgrade failed")
		return
	}
	defer ws.Close()

	prefix := c.DefaultQuery("prefix", "job/")

	feed := make(chan events.Event, 256)
	subID := s.opts.Events.Subscribe(prefix, func(ev events.Event) {
		select {
		case feed <- ev:
		default:
		}
	})
	defer s.opts.Events.Unsubscribe(subID)

	if c.Query("replay") == "true" {
		for _, ev := range s.opts.Events.Buffered(prefix) {
			if err := ws.WriteJSON(ev); err != nil {
				return
			}
		}
	}

	// Reads only serve to notice the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-feed:
			if err := ws.WriteJSON(ev); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
