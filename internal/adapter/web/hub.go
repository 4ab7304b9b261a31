package web

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// Run is the hub loop: it owns the client set and fans catalog updates out
// until ctx is cancelled, then disconnects every client. Run must be called once.
func (s *Server) Run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		for client := range s.clients {
			delete(s.clients, client)
			close(client.send)
		}
		s.setConnections(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.setConnections(len(s.clients))
			// Send the full catalog on connect
			client.send <- QuoteMessage{
				Type:      MessageSnapshot,
				Stocks:    s.Catalog.List(),
				Timestamp: time.Now().UnixMilli(),
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.setConnections(len(s.clients))
			}

		case msg := <-s.broadcast:
			s.mu.Lock()
			s.lastUpdate = msg.Timestamp
			s.mu.Unlock()

			for client := range s.clients {
				select {
				case client.send <- msg:
				default:
					// Slow consumer, drop it so the hub never blocks
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.setConnections(len(s.clients))
		}
	}
}

func (s *Server) setConnections(n int) {
	s.mu.Lock()
	s.connections = n
	s.mu.Unlock()
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Warnf("failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
