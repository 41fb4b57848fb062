package server

import (
	"errors"
	"sync"
	"time"

	"github.com/cuprum-acid/o11y-kit/internal/loadtest"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"
)

var errStreamClosed = errors.New("stream closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// wsSubscriber forwards snapshots to one WebSocket client. Push only
// replaces a one slot mailbox; a single writer goroutine drains it and
// never writes a snapshot older than the last one written.
type wsSubscriber struct {
	id           string
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       log.Logger

	mu      sync.Mutex
	pending *loadtest.Snapshot
	closed  bool

	wake       chan struct{}
	closing    chan struct{}
	writerDone chan struct{}
}

func newWSSubscriber(conn *websocket.Conn, writeTimeout time.Duration, logger log.Logger) *wsSubscriber {
	return &wsSubscriber{
		id:           ksuid.New().String(),
		conn:         conn,
		writeTimeout: writeTimeout,
		logger:       logger,
		wake:         make(chan struct{}, 1),
		closing:      make(chan struct{}),
		writerDone:   make(chan struct{}),
	}
}

func (s *wsSubscriber) ID() string {
	return s.id
}

// Push queues snap for delivery. An older pending snapshot is dropped.
func (s *wsSubscriber) Push(snap loadtest.Snapshot) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errStreamClosed
	}
	if s.pending == nil || snap.Seq >= s.pending.Seq {
		s.pending = &snap
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}

	return nil
}

func (s *wsSubscriber) take() *loadtest.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.pending
	s.pending = nil

	return snap
}

func (s *wsSubscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.closing)
	}
}

func (s *wsSubscriber) writeLoop() {
	defer close(s.writerDone)

	var (
		lastSeq uint64
		written bool
	)

	for {
		select {
		case <-s.closing:
			return
		case <-s.wake:
		}

		snap := s.take()
		if snap == nil || (written && snap.Seq < lastSeq) {
			continue
		}

		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
		if err := s.conn.WriteJSON(snap); err != nil {
			level.Debug(s.logger).Log("msg", "Stream write failed", "subscriber", s.id, "error", err)
			s.close()
			return
		}

		lastSeq = snap.Seq
		written = true
	}
}

// readLoop discards client messages and notices when the peer goes away
func (s *wsSubscriber) readLoop() {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				level.Debug(s.logger).Log("msg", "Stream closed unexpectedly", "subscriber", s.id, "error", err)
			}
			s.close()
			return
		}
	}
}

func (s *Server) loadTestStream(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// The upgrader already answered the client
		level.Debug(s.logger).Log("msg", "WebSocket upgrade failed", "error", err)
		return
	}

	if !s.trackStream() {
		conn.Close()
		return
	}
	defer s.streams.Done()

	sub := newWSSubscriber(conn, s.opts.WriteTimeout, s.logger)
	registry := s.controller.Registry()

	registry.Join(sub)
	level.Debug(s.logger).Log("msg", "Stream subscriber joined", "subscriber", sub.ID(), "subscribers", registry.Len())

	go sub.writeLoop()
	go sub.readLoop()

	defer func() {
		registry.Leave(sub)
		sub.close()
		<-sub.writerDone
		conn.Close()
		level.Debug(s.logger).Log("msg", "Stream subscriber left", "subscriber", sub.ID(), "subscribers", registry.Len())
	}()

	heartbeat := time.NewTicker(s.opts.HeartbeatInterval)
	defer heartbeat.Stop()

	if err := sub.Push(s.controller.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-heartbeat.C:
			if err := sub.Push(s.controller.Snapshot()); err != nil {
				return
			}
		case <-sub.closing:
			return
		case <-s.closing:
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(s.opts.WriteTimeout),
			)
			return
		}
	}
}
