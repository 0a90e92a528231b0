package stream

import (
	"github.com/gofiber/websocket/v2"
)

// Pump writes every message from updates to the socket until the peer goes
// away. stop is called once the read side ends and must close updates.
func Pump(c *websocket.Conn, updates <-chan []byte, stop func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range updates {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
	stop()
	<-done
}
