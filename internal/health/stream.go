package health

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/tradestats/internal/analytics"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
	streamSendBuffer   = 4
)

// ReportStream pushes every published report to connected WebSocket clients.
type ReportStream struct {
	upgrader websocket.Upgrader
	logger   *logrus.Logger

	mu      sync.RWMutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	conn *websocket.Conn
	send chan *analytics.Report
	done chan struct{}
	once sync.Once
}

// NewReportStream creates an empty stream hub.
func NewReportStream(logger *logrus.Logger) *ReportStream {
	return &ReportStream{
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  4096,
		},
		logger:  logger,
		clients: make(map[*streamClient]struct{}),
	}
}

// Broadcast queues report for every client. Clients that fall behind by more
// than the send buffer are disconnected.
func (rs *ReportStream) Broadcast(report *analytics.Report) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	for c := range rs.clients {
		select {
		case c.send <- report:
		default:
			rs.logger.Warn("Report stream client too slow, disconnecting")
			c.close()
		}
	}
}

// Clients returns the number of connected clients.
func (rs *ReportStream) Clients() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.clients)
}

// Serve upgrades the request and streams reports, starting with current
// when it is non-nil.
func (rs *ReportStream) Serve(w http.ResponseWriter, r *http.Request, current *analytics.Report) {
	conn, err := rs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rs.logger.WithError(err).Debug("Report stream upgrade failed")
		return
	}

	c := &streamClient{
		conn: conn,
		send: make(chan *analytics.Report, streamSendBuffer),
		done: make(chan struct{}),
	}
	if current != nil {
		c.send <- current
	}
	rs.register(c)
	rs.logger.WithField("remote", r.RemoteAddr).Info("Report stream client connected")

	go rs.writeLoop(c)
	rs.readLoop(c)
}

func (rs *ReportStream) register(c *streamClient) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.clients[c] = struct{}{}
}

func (rs *ReportStream) unregister(c *streamClient) {
	rs.mu.Lock()
	delete(rs.clients, c)
	rs.mu.Unlock()
	c.close()
}

// readLoop discards client messages and returns once the connection drops.
func (rs *ReportStream) readLoop(c *streamClient) {
	defer rs.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (rs *ReportStream) writeLoop(c *streamClient) {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case report := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := c.conn.WriteJSON(report); err != nil {
				rs.logger.WithError(err).Debug("Report stream write failed")
				c.close()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(streamWriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.close()
				return
			}
		}
	}
}

// CloseAll disconnects every client.
func (rs *ReportStream) CloseAll() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for c := range rs.clients {
		c.close()
		delete(rs.clients, c)
	}
}

func (c *streamClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
