package host

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neovim/go-client/nvim"
	"github.com/stretchr/testify/require"

	"github.com/mat-xc/blueprint-mode/internal/config"
	"github.com/mat-xc/blueprint-mode/internal/contracts"
	"github.com/mat-xc/blueprint-mode/internal/log"
)

type fakeClient struct {
	lines    [][]byte
	name     string
	cursor   [2]int
	commands []string
	hls      []Highlight
	cleared  int
	nsCalls  int
	writes   int
	setErr   error
}

func newFakeClient(text string) *fakeClient {
	fc := &fakeClient{name: "/tmp/window.blp", cursor: [2]int{1, 0}}
	for _, l := range strings.Split(text, "\n") {
		fc.lines = append(fc.lines, []byte(l))
	}
	return fc
}

func (f *fakeClient) text() string {
	out := make([]string, len(f.lines))
	for i, l := range f.lines {
		out[i] = string(l)
	}
	return strings.Join(out, "\n")
}

func (f *fakeClient) CurrentBuffer() (nvim.Buffer, error) { return nvim.Buffer(1), nil }

func (f *fakeClient) BufferLines(_ nvim.Buffer, start, end int, _ bool) ([][]byte, error) {
	if end < 0 || end > len(f.lines) {
		end = len(f.lines)
	}
	out := make([][]byte, 0, end-start)
	for _, l := range f.lines[start:end] {
		out = append(out, append([]byte(nil), l...))
	}
	return out, nil
}

func (f *fakeClient) SetBufferLines(_ nvim.Buffer, start, end int, _ bool, replacement [][]byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.writes++
	tail := append([][]byte(nil), f.lines[end:]...)
	f.lines = append(append(f.lines[:start], replacement...), tail...)
	return nil
}

func (f *fakeClient) BufferName(nvim.Buffer) (string, error) { return f.name, nil }

func (f *fakeClient) Eval(expr string, result interface{}) error {
	p, ok := result.(*int)
	if !ok {
		return fmt.Errorf("unexpected result type %T", result)
	}
	switch expr {
	case `line(".")`:
		*p = f.cursor[0]
	case `col(".")`:
		*p = f.cursor[1] + 1
	default:
		return fmt.Errorf("unexpected expr %q", expr)
	}
	return nil
}

func (f *fakeClient) Command(cmd string) error {
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeClient) CurrentWindow() (nvim.Window, error) { return nvim.Window(1000), nil }

func (f *fakeClient) SetWindowCursor(_ nvim.Window, pos [2]int) error {
	f.cursor = pos
	return nil
}

func (f *fakeClient) CreateNamespace(string) (int, error) {
	f.nsCalls++
	return 7, nil
}

func (f *fakeClient) ClearBufferNamespace(nvim.Buffer, int, int, int) error {
	f.cleared++
	f.hls = nil
	return nil
}

func (f *fakeClient) AddBufferHighlights(_ nvim.Buffer, _ int, hls []Highlight) error {
	f.hls = append(f.hls, hls...)
	return nil
}

func testCommands() *Commands {
	cfg := config.Defaults()
	cfg.Preview.Addr = "127.0.0.1:0"
	return NewCommands(cfg)
}

func TestIndentAt(t *testing.T) {
	fc := newFakeClient("template $W : Gtk.Window {\n  child: Gtk.Box {\n    visible: true;\n  }\n}")
	c := testCommands()

	tests := []struct {
		lnum int
		want int
	}{
		{1, 0},
		{2, 2},
		{3, 4},
		{4, 2},
		{5, 0},
	}
	for _, tt := range tests {
		got, err := c.indentAt(fc, tt.lnum)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "line %d", tt.lnum)
	}
}

func TestIndentAt_ClampsNegative(t *testing.T) {
	fc := newFakeClient("}\n}")
	got, err := testCommands().indentAt(fc, 2)
	require.NoError(t, err)
	require.Equal(t, 0, got)
}

func TestIndentCursorLine(t *testing.T) {
	fc := newFakeClient("Gtk.Box {\nvisible: true;\n}")
	fc.cursor = [2]int{2, 0}
	c := testCommands()

	require.NoError(t, c.indentCursorLine(fc))
	require.Equal(t, "Gtk.Box {\n  visible: true;\n}", fc.text())
	require.Equal(t, 1, fc.writes)

	// Already indented: nothing is written.
	require.NoError(t, c.indentCursorLine(fc))
	require.Equal(t, 1, fc.writes)
}

func TestIndentCursorLine_WriteError(t *testing.T) {
	fc := newFakeClient("Gtk.Box {\nvisible: true;\n}")
	fc.cursor = [2]int{2, 0}
	fc.setErr = errors.New("buffer is not modifiable")

	err := testCommands().indentCursorLine(fc)
	require.Error(t, err)
	require.ErrorIs(t, err, fc.setErr)
}

func TestIndentBuffer(t *testing.T) {
	fc := newFakeClient("Gtk.Box {\n      styles [\n\"card\",\n   ]\n\n  }")
	c := testCommands()

	require.NoError(t, c.indentBuffer(fc))
	require.Equal(t, "Gtk.Box {\n  styles [\n    \"card\",\n  ]\n\n}", fc.text())
	require.Equal(t, 4, fc.writes)
}

func TestHighlight(t *testing.T) {
	fc := newFakeClient("using Gtk 4.0;\n// window\nGtk.Label {\n  label: \"hi\";\n}")
	c := testCommands()

	require.NoError(t, c.highlight(fc))
	require.Equal(t, 1, fc.cleared)
	require.Contains(t, fc.hls, Highlight{Group: "Keyword", Line: 0, StartCol: 0, EndCol: 5})
	require.Contains(t, fc.hls, Highlight{Group: "Comment", Line: 1, StartCol: 0, EndCol: 9})
	require.Contains(t, fc.hls, Highlight{Group: "Include", Line: 2, StartCol: 0, EndCol: 3})
	require.Contains(t, fc.hls, Highlight{Group: "Identifier", Line: 3, StartCol: 2, EndCol: 7})
	require.Contains(t, fc.hls, Highlight{Group: "String", Line: 3, StartCol: 9, EndCol: 13})

	// The namespace is created once and cleared on every pass.
	require.NoError(t, c.highlight(fc))
	require.Equal(t, 1, fc.nsCalls)
	require.Equal(t, 2, fc.cleared)
}

func TestSetupBuffer(t *testing.T) {
	fc := newFakeClient("Gtk.Box {}")
	require.NoError(t, testCommands().setupBuffer(fc))
	require.Len(t, fc.commands, 1)
	require.Contains(t, fc.commands[0], "indentexpr=BlueprintIndent(v:lnum)")
	require.NotEmpty(t, fc.hls)
}

func TestPreviewFlow(t *testing.T) {
	fc := newFakeClient("Gtk.Box {\n  visible: true;\n}")
	c := testCommands()
	t.Cleanup(func() { _ = c.previewStop() })

	require.NoError(t, c.previewStart(fc))
	require.Len(t, fc.commands, 1)
	require.Contains(t, fc.commands[0], "[blueprint-mode] preview: http://127.0.0.1:")

	// Browser asks for line 3.
	c.handleGoToLine(contracts.GoToLineMessage{Type: contracts.MessageTypeGoToLine, Line: 3})
	require.Equal(t, [2]int{3, 0}, fc.cursor)
	require.Equal(t, "normal! zz", fc.commands[len(fc.commands)-1])

	// Out of range requests are ignored.
	c.handleGoToLine(contracts.GoToLineMessage{Type: contracts.MessageTypeGoToLine, Line: 0})
	require.Equal(t, [2]int{3, 0}, fc.cursor)

	require.NoError(t, c.update(fc))
	require.NoError(t, c.previewStop())
	require.NoError(t, c.previewStop())

	c.handleGoToLine(contracts.GoToLineMessage{Type: contracts.MessageTypeGoToLine, Line: 1})
	require.Equal(t, [2]int{3, 0}, fc.cursor)

	// Restarting serves again and keeps accepting edits.
	require.NoError(t, c.previewStart(fc))
	for i := 0; i < 20; i++ {
		done := make(chan error, 1)
		go func() { done <- c.update(fc) }()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatalf("update %d after restart blocked", i)
		}
	}
	c.handleGoToLine(contracts.GoToLineMessage{Type: contracts.MessageTypeGoToLine, Line: 2})
	require.Equal(t, [2]int{2, 0}, fc.cursor)
	require.NoError(t, c.previewStop())
}

func TestInitLogging(t *testing.T) {
	var buf bytes.Buffer
	log.InitWriter(&buf, log.LevelDebug)
	t.Cleanup(func() { log.SetEnabled(false) })

	// No log path: nothing is written anywhere.
	require.NoError(t, initLogging(config.Defaults()))
	log.Info(log.CatHost, "should not appear")
	require.Empty(t, buf.String())

	cfg := config.Defaults()
	cfg.Log.Path = filepath.Join(t.TempDir(), "plugin.log")
	require.NoError(t, initLogging(cfg))
	log.Info(log.CatHost, "registered")

	data, err := os.ReadFile(cfg.Log.Path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[host] registered")
}
