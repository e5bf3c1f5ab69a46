package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/collabpad/collabpad/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1 << 20 // full-document payloads
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client ties a session to its websocket connection and pumps.
type client struct {
	conn    *websocket.Conn
	session *session
	send    chan []byte
}

// HandleWebSocket upgrades the request and runs the connection's pumps.
// Registered as GET /ws.
func (s *Server) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("websocket upgrade: %v", err)
		return
	}

	send := make(chan []byte, sendBuffer)
	cl := &client{conn: conn, session: s.newSession(send), send: send}

	go cl.writePump()
	go cl.readPump()
}

// readPump decodes inbound frames and feeds the session state machine in
// arrival order. Exits (and triggers disconnect cleanup) when the transport
// closes.
func (c *client) readPump() {
	ctx := context.Background()
	defer func() {
		c.session.disconnect(ctx)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		msg, err := DecodeClientMessage(data)
		if err != nil {
			logger.Debugf("dropping frame on %s: %v", c.session.id, err)
			continue
		}
		c.session.handle(ctx, msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
