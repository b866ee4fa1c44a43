package httpserver

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/mat-xc/blueprint-mode/internal/contracts"
)

func startServer(t *testing.T) (*PreviewServer, chan contracts.GoToLineMessage) {
	t.Helper()
	srv := NewPreviewServer("127.0.0.1:0", "<html>shell</html>")
	jumps := make(chan contracts.GoToLineMessage, 1)
	srv.SetGoToLineHandler(func(msg contracts.GoToLineMessage) { jumps <- msg })

	require.NoError(t, srv.StartOrUpdate("<p>one</p>", "/tmp/ui/window.blp"))
	t.Cleanup(func() { _ = srv.Stop() })
	return srv, jumps
}

func dial(t *testing.T, srv *PreviewServer) *websocket.Conn {
	t.Helper()
	url := "ws://" + strings.TrimPrefix(srv.URL(), "http://") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestPreviewServer_ServesShell(t *testing.T) {
	srv, _ := startServer(t)

	resp, err := http.Get(srv.URL())
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "<html>shell</html>", string(body))

	missing, err := http.Get(srv.URL() + "/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestPreviewServer_PushesRenderAndCursor(t *testing.T) {
	srv, _ := startServer(t)
	conn := dial(t, srv)

	var render contracts.RenderMessage
	require.NoError(t, conn.ReadJSON(&render))
	require.Equal(t, contracts.MessageTypeRender, render.Type)
	require.Equal(t, "<p>one</p>", render.HTML)
	require.Equal(t, "window.blp", render.Filename)
	require.Equal(t, uint64(1), render.Rev)

	require.NoError(t, srv.UpdateCursor(contracts.CursorMessage{Line: 3, Col: 1}))
	var cursor contracts.CursorMessage
	require.NoError(t, conn.ReadJSON(&cursor))
	require.Equal(t, contracts.MessageTypeCursor, cursor.Type)
	require.Equal(t, 3, cursor.Line)
	require.Equal(t, uint64(1), cursor.Rev)

	require.NoError(t, srv.StartOrUpdate("<p>two</p>", "/tmp/ui/window.blp"))
	require.NoError(t, conn.ReadJSON(&render))
	require.Equal(t, "<p>two</p>", render.HTML)
	require.Equal(t, uint64(2), render.Rev)

	require.NoError(t, conn.ReadJSON(&cursor))
	require.Equal(t, uint64(2), cursor.Rev, "cursor is replayed against the new revision")
}

func TestPreviewServer_ForwardsGoToLine(t *testing.T) {
	srv, jumps := startServer(t)
	conn := dial(t, srv)

	var render contracts.RenderMessage
	require.NoError(t, conn.ReadJSON(&render))

	require.NoError(t, conn.WriteJSON(contracts.GoToLineMessage{Type: contracts.MessageTypeGoToLine, Line: 7}))
	select {
	case msg := <-jumps:
		require.Equal(t, 7, msg.Line)
	case <-time.After(5 * time.Second):
		t.Fatal("go_to_line was not forwarded")
	}
}

func TestPreviewServer_UpdateCursorBeforeStartIsNoop(t *testing.T) {
	srv := NewPreviewServer("127.0.0.1:0", "")
	require.NoError(t, srv.UpdateCursor(contracts.CursorMessage{Line: 1}))
	require.NoError(t, srv.Stop())
}

func TestPreviewServer_ReportsBusyAddress(t *testing.T) {
	first, _ := startServer(t)
	second := NewPreviewServer(strings.TrimPrefix(first.URL(), "http://"), "")
	err := second.StartOrUpdate("", "x.blp")
	require.Error(t, err)
	require.Contains(t, err.Error(), "listen on")
}

func TestPreviewServer_RestartsAfterStop(t *testing.T) {
	srv := NewPreviewServer("127.0.0.1:0", "")
	t.Cleanup(func() { _ = srv.Stop() })

	for round := 1; round <= 3; round++ {
		require.NoError(t, srv.StartOrUpdate("<p>first</p>", "window.blp"))
		require.True(t, srv.Running())
		conn := dial(t, srv)

		var render contracts.RenderMessage
		require.NoError(t, conn.ReadJSON(&render))
		require.Equal(t, "<p>first</p>", render.HTML)
		require.Equal(t, uint64(1), render.Rev, "round %d starts a fresh session", round)

		// More updates than the channel buffers must not block.
		for i := 0; i < 20; i++ {
			done := make(chan error, 1)
			go func() { done <- srv.StartOrUpdate("<p>next</p>", "window.blp") }()
			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatalf("round %d: update %d blocked", round, i)
			}
			require.NoError(t, conn.ReadJSON(&render))
		}

		require.NoError(t, srv.Stop())
		require.False(t, srv.Running())
		require.NoError(t, srv.Stop(), "stopping twice is a no-op")

		_, _, err := conn.ReadMessage()
		require.Error(t, err, "browser connection is closed on stop")
	}
}

func TestPreviewServer_StopRightAfterStart(t *testing.T) {
	srv := NewPreviewServer("127.0.0.1:0", "")
	for i := 0; i < 20; i++ {
		require.NoError(t, srv.StartOrUpdate("<p>x</p>", "window.blp"))
		require.NoError(t, srv.Stop())
	}
	require.NoError(t, srv.UpdateCursor(contracts.CursorMessage{Line: 1}))
}

func TestPreviewServer_ConcurrentStopAndPublish(t *testing.T) {
	srv := NewPreviewServer("127.0.0.1:0", "")
	require.NoError(t, srv.StartOrUpdate("<p>x</p>", "window.blp"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = srv.StartOrUpdate("<p>y</p>", "window.blp")
			_ = srv.UpdateCursor(contracts.CursorMessage{Line: 2})
			_ = srv.Stop()
		}()
	}
	wg.Wait()
	require.NoError(t, srv.Stop())
	require.False(t, srv.Running())
}
