package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/fiberpath/bridge/internal/clog"
)

// WebSocketHandler serves the request envelope over WebSocket, one JSON
// document per text frame.
type WebSocketHandler struct {
	handler *Handler
	origins []string
	log     clog.Tracer

	ctx context.Context
}

// NewWebSocketHandler creates an http.Handler for the /ws endpoint.
// Operations run under ctx, so cancelling it reaps their children.
// origins are host patterns accepted in the Origin header.
func NewWebSocketHandler(ctx context.Context, handler *Handler, origins []string, log clog.Tracer) *WebSocketHandler {
	if log == nil {
		log = clog.Nop()
	}
	return &WebSocketHandler{handler: handler, origins: origins, log: log, ctx: ctx}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.log.Warn("websocket accept from %s: %v", r.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(maxRequestSize)
	h.log.Debug("websocket client connected: %s", r.RemoteAddr)

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()

	var inFlight sync.WaitGroup
	defer inFlight.Wait()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				h.log.Debug("websocket read error: %v", err)
			}
			if ctx.Err() != nil {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
			}
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "expected text frames")
			return
		}

		// Don't block the read pump on a running operation
		inFlight.Add(1)
		go func() {
			defer inFlight.Done()
			resp := h.handler.HandleRaw(ctx, data)
			if err := writeJSON(ctx, conn, resp); err != nil && !errors.Is(err, context.Canceled) {
				h.log.Debug("websocket write %s: %v", resp.ID, err)
			}
		}()
	}
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
