// Package httpserver handles all message traffic between Neovim and the browser.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mat-xc/blueprint-mode/internal/contracts"
	"github.com/mat-xc/blueprint-mode/internal/log"
)

const shutdownTimeout = 2 * time.Second

type renderPayload struct {
	html     string
	filename string
}

// PreviewServer serves the preview page and pushes updates to the browser.
// It can be stopped and started again any number of times; each start runs
// a fresh session with its own listener, run loop and channels.
type PreviewServer struct {
	shell    string
	upgrader websocket.Upgrader

	mu         sync.Mutex
	addr       string // configured listen address
	session    *session
	onGoToLine func(contracts.GoToLineMessage)
}

// session is one listening period of a PreviewServer. Everything a session
// owns is discarded on Stop.
type session struct {
	addr   string // bound address, with the real port when addr used :0
	server *http.Server

	updates    chan renderPayload
	cursors    chan contracts.CursorMessage
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	inbound    chan []byte

	// stop is closed by Stop; done is closed when the run loop has exited.
	stop chan struct{}
	done chan struct{}
}

// NewPreviewServer creates an HTTP/WebSocket preview server bound to addr.
func NewPreviewServer(addr string, shell string) *PreviewServer {
	return &PreviewServer{
		addr:  addr,
		shell: shell,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// URL returns the browser URL for the preview server. While running it
// carries the bound port.
func (m *PreviewServer) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return "http://" + m.session.addr
	}
	return "http://" + m.addr
}

// Running reports whether a session is active.
func (m *PreviewServer) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// SetGoToLineHandler registers the callback for browser go-to-line requests.
func (m *PreviewServer) SetGoToLineHandler(fn func(contracts.GoToLineMessage)) {
	m.mu.Lock()
	m.onGoToLine = fn
	m.mu.Unlock()
}

// StartOrUpdate starts a session if none is running and publishes new HTML.
// Binding happens synchronously so a busy address is reported to the caller.
func (m *PreviewServer) StartOrUpdate(fragment string, path string) error {
	s, err := m.ensureSession()
	if err != nil {
		return err
	}

	select {
	case s.updates <- renderPayload{html: fragment, filename: filepath.Base(path)}:
	case <-s.stop:
		// Stopped concurrently; the update has nowhere to go.
	}
	return nil
}

// UpdateCursor publishes a cursor update to connected browsers. Without a
// running session it does nothing.
func (m *PreviewServer) UpdateCursor(msg contracts.CursorMessage) error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return nil
	}

	msg.Type = contracts.MessageTypeCursor
	select {
	case s.cursors <- msg:
	case <-s.stop:
	}
	return nil
}

// Stop shuts the running session down and waits for its run loop to exit.
// Stopping a stopped server is a no-op.
func (m *PreviewServer) Stop() error {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()
	if s == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(ctx)

	// Websocket connections are hijacked and outlive Shutdown; the run loop
	// closes the live one on its way out.
	close(s.stop)
	<-s.done

	log.Info(log.CatPreview, "preview server stopped", "addr", s.addr)
	return err
}

func (m *PreviewServer) ensureSession() (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return m.session, nil
	}

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", m.addr, err)
	}
	s := &session{
		addr:       ln.Addr().String(),
		updates:    make(chan renderPayload, 8),
		cursors:    make(chan contracts.CursorMessage, 32),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		inbound:    make(chan []byte, 64),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	srv := &http.Server{Handler: m.handler(s), ReadHeaderTimeout: 5 * time.Second}
	s.server = srv
	m.session = s

	go m.runLoop(s)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorErr(log.CatPreview, "preview server failed", err, "addr", s.addr)
		}
	}()
	log.Info(log.CatPreview, "preview server started", "addr", s.addr)
	return s, nil
}

func (m *PreviewServer) handler(s *session) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", m.handleIndex)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		m.handleWS(s, w, r)
	})
	return mux
}

func (m *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(m.shell))
}

// handleWS upgrades the connection and forwards browser messages to the
// session's run loop until either side goes away.
func (m *PreviewServer) handleWS(s *session, w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn(log.CatPreview, "websocket upgrade failed", "error", err)
		return
	}

	select {
	case s.register <- conn:
	case <-s.stop:
		_ = conn.Close()
		return
	}
	defer func() {
		select {
		case s.unregister <- conn:
		case <-s.stop:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case s.inbound <- msg:
		case <-s.stop:
			return
		}
	}
}

func (m *PreviewServer) goToLine(raw []byte) {
	var msg contracts.GoToLineMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	m.mu.Lock()
	fn := m.onGoToLine
	m.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}

// runLoop owns the browser connection: every websocket write happens here.
// A reconnecting browser replaces the previous connection and is sent the
// latest render and cursor straight away.
func (m *PreviewServer) runLoop(s *session) {
	defer close(s.done)

	var conn *websocket.Conn
	render := contracts.RenderMessage{Type: contracts.MessageTypeRender}
	cursor := contracts.CursorMessage{Type: contracts.MessageTypeCursor}
	haveCursor := false

	// push sends the current render, then the cursor stamped with its
	// revision, dropping the connection on the first failed write.
	push := func(withRender bool) {
		if conn == nil || render.Rev == 0 {
			return
		}
		if withRender && !writeJSON(conn, render) {
			conn = nil
			return
		}
		if haveCursor {
			cursor.Rev = render.Rev
			if !writeJSON(conn, cursor) {
				conn = nil
			}
		}
	}

	for {
		select {
		case u := <-s.updates:
			render.Rev++
			render.HTML = u.html
			render.Filename = u.filename
			push(true)

		case c := <-s.cursors:
			cursor = c
			haveCursor = true
			push(false)

		case c := <-s.register:
			if conn != nil {
				_ = conn.Close()
			}
			conn = c
			push(true)

		case c := <-s.unregister:
			if conn == c {
				_ = conn.Close()
				conn = nil
			}

		case raw := <-s.inbound:
			var envelope contracts.IncomingMessage
			if err := json.Unmarshal(raw, &envelope); err != nil {
				continue
			}
			if envelope.Type == contracts.MessageTypeGoToLine {
				m.goToLine(raw)
			}

		case <-s.stop:
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
	}
}

// writeJSON writes a JSON message and reports whether the connection is usable.
func writeJSON(conn *websocket.Conn, v any) bool {
	if err := conn.WriteJSON(v); err != nil {
		_ = conn.Close()
		return false
	}
	return true
}
