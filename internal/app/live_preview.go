package app

import (
	"github.com/mat-xc/blueprint-mode/internal/contracts"
	"github.com/mat-xc/blueprint-mode/internal/render"
	httptransport "github.com/mat-xc/blueprint-mode/internal/transport/http"
)

// LivePreview is a coordinator between Blueprint rendering and HTTP delivery.
type LivePreview struct {
	renderer *render.Renderer
	preview  *httptransport.PreviewServer
}

func NewLivePreview(addr, style string) *LivePreview {
	renderer := render.NewRenderer(style)
	return &LivePreview{
		renderer: renderer,
		preview:  httptransport.NewPreviewServer(addr, renderer.RenderShell()),
	}
}

func (s *LivePreview) URL() string {
	return s.preview.URL()
}

// PublishSource renders source and pushes it to the browser, starting the
// server on first use.
func (s *LivePreview) PublishSource(source []byte, path string) error {
	fragment, err := s.renderer.ConvertFragment(source, path)
	if err != nil {
		return err
	}

	return s.preview.StartOrUpdate(fragment, path)
}

func (s *LivePreview) PublishCursor(line int, col int) error {
	return s.preview.UpdateCursor(contracts.CursorMessage{
		Type: contracts.MessageTypeCursor,
		Line: line,
		Col:  col,
	})
}

// SetGoToLineHandler forwards the handler registration to the transport server.
func (s *LivePreview) SetGoToLineHandler(fn func(contracts.GoToLineMessage)) {
	s.preview.SetGoToLineHandler(fn)
}

// Stop shuts the preview server down.
func (s *LivePreview) Stop() error {
	return s.preview.Stop()
}
