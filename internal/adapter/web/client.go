package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueue      = 64
)

// SubscribeCommand narrows the feed of one client to the listed symbols.
// An empty list restores the full feed.
type SubscribeCommand struct {
	Command string   `json:"command"`
	Symbols []string `json:"symbols"`
}

// Client is one websocket connection of the quote feed
type Client struct {
	hub  *Server
	conn *websocket.Conn
	send chan QuoteMessage

	mu      sync.RWMutex
	symbols map[string]bool
}

func newClient(hub *Server, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan QuoteMessage, sendQueue),
	}
}

// readPump handles subscribe commands and acts as the connection watchdog
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Warnf("websocket error: %v", err)
			}
			return
		}

		var cmd SubscribeCommand
		if err := json.Unmarshal(message, &cmd); err != nil || cmd.Command != "subscribe" {
			c.hub.Logger.Debugf("ignoring websocket message %q", message)
			continue
		}
		c.subscribe(cmd.Symbols)
	}
}

// writePump serializes every write to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			msg.Stocks = c.filter(msg.Stocks)
			if err := c.conn.WriteJSON(msg); err != nil {
				c.hub.Logger.Debugf("websocket write error: %v", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) subscribe(symbols []string) {
	filter := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			filter[s] = true
		}
	}

	c.mu.Lock()
	if len(filter) == 0 {
		c.symbols = nil
	} else {
		c.symbols = filter
	}
	c.mu.Unlock()
}

func (c *Client) filter(stocks []domain.Stock) []domain.Stock {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.symbols == nil {
		return stocks
	}
	out := make([]domain.Stock, 0, len(c.symbols))
	for _, st := range stocks {
		if c.symbols[strings.ToUpper(st.Symbol)] {
			out = append(out, st)
		}
	}
	return out
}
