package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"marketanalysis/internal/bus"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsClient bridges one WebSocket connection to a bus.Bus subscription.
// Grounded on the teacher's WSClient/writePump/readPump shape, subscribing
// to internal/bus instead of reimplementing a second broadcast hub.
type wsClient struct {
	conn  *websocket.Conn
	subID string
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	subID, busCh := s.bus.Subscribe()
	client := &wsClient{conn: conn, subID: subID}

	done := make(chan struct{})
	go client.readPump(done)
	go s.writePump(client, busCh, done)
}

// readPump discards incoming client messages; it exists only to detect
// disconnects and keep the read deadline/pong handler alive.
func (c *wsClient) readPump(done chan struct{}) {
	defer close(done)
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(client *wsClient, busCh <-chan bus.Message, done chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		s.bus.Unsubscribe(client.subID)
		client.conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-busCh:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				s.logger.WithError(err).Warn("websocket marshal failed")
				continue
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
