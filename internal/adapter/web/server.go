package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/logger"
	"github.com/simaogato/papertrade-backend/internal/usecase/dashboard"
)

const (
	MessageSnapshot = "SNAPSHOT"
	MessageUpdate   = "UPDATE"

	broadcastQueue = 256
)

// StockReader is the catalog read side served over HTTP
type StockReader interface {
	List() []domain.Stock
	Get(id uuid.UUID) (domain.Stock, error)
}

// MarketSummarizer produces the dashboard overview
type MarketSummarizer interface {
	MarketSummary() *dashboard.MarketSummaryResult
}

// QuoteMessage is what the quote feed pushes to websocket clients
type QuoteMessage struct {
	Type      string         `json:"type"`
	Stocks    []domain.Stock `json:"stocks"`
	Timestamp int64          `json:"timestamp"`
}

// Server is the read-only JSON API plus the websocket quote feed
type Server struct {
	Catalog   StockReader
	Dashboard MarketSummarizer
	Logger    logger.Logger

	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader

	// Hub state, owned by Run
	clients    map[*Client]struct{}
	broadcast  chan QuoteMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu          sync.RWMutex
	connections int
	lastUpdate  int64
}

// NewServer creates the HTTP server. Call Run to start the quote hub.
func NewServer(catalog StockReader, summarizer MarketSummarizer, log logger.Logger, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		Catalog:   catalog,
		Dashboard: summarizer,
		Logger:    log,
		engine:    gin.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan QuoteMessage, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}

	s.engine.Use(gin.Recovery())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/stocks", s.listStocks)
	s.engine.GET("/api/stocks/:id", s.getStock)
	s.engine.GET("/api/market/summary", s.getMarketSummary)

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the routes, for tests and custom listeners
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves HTTP on addr until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.Logger.Infof("HTTP server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Publish queues a catalog snapshot for every connected client. It never blocks
// the caller; when the queue is full the update is dropped, and the next one
// carries the full catalog anyway.
func (s *Server) Publish(stocks []domain.Stock) {
	msg := QuoteMessage{
		Type:      MessageUpdate,
		Stocks:    stocks,
		Timestamp: time.Now().UnixMilli(),
	}

	select {
	case s.broadcast <- msg:
	default:
		s.Logger.Warnf("quote feed queue full, dropping update")
	}
}

func (s *Server) getHealth(c *gin.Context) {
	s.mu.RLock()
	connections := s.connections
	lastUpdate := s.lastUpdate
	s.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"stocks":        len(s.Catalog.List()),
		"connections":   connections,
		"latest_update": lastUpdate,
	})
}

func (s *Server) listStocks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stocks": s.Catalog.List()})
}

func (s *Server) getStock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stock id"})
		return
	}

	stock, err := s.Catalog.Get(id)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stock": stock})
}

func (s *Server) getMarketSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.Dashboard.MarketSummary())
}
