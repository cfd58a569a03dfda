package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dosewise/dosewise/internal/stream"
)

// sseWriter delivers stream events as server-sent events: one
// JSON-encoded event per "data:" frame, flushed immediately so the caller
// sees each stage as it happens.
type sseWriter struct {
	res *echo.Response
}

func newSSEWriter(c echo.Context) *sseWriter {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	return &sseWriter{res: res}
}

func (w *sseWriter) WriteEvent(event stream.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.res, "data: %s\n\n", data); err != nil {
		return err
	}
	w.res.Flush()
	return nil
}
