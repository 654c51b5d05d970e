package gateway

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/example/realtime-presence/modules/broadcast"
)

// PumpConfig bounds a single websocket session.
type PumpConfig struct {
	ReadLimit    int64
	PongWait     time.Duration
	PingInterval time.Duration
	WriteWait    time.Duration
}

// DefaultPumpConfig returns the keepalive settings used in production.
func DefaultPumpConfig() PumpConfig {
	return PumpConfig{
		ReadLimit:    64 * 1024,
		PongWait:     60 * time.Second,
		PingInterval: 25 * time.Second,
		WriteWait:    10 * time.Second,
	}
}

// Serve runs a session until the peer goes away or the hub closes the
// connection. The reader runs on the calling goroutine; the writer is the
// only goroutine that writes to ws.
func (h *Handlers) Serve(ctx context.Context, ws *websocket.Conn, s *Session, cfg PumpConfig) {
	h.Open(s)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writePump(ws, s.Conn, cfg)
	}()

	h.readPump(ctx, ws, s.Conn, cfg)
	h.Close(s)
	<-writerDone
}

func (h *Handlers) readPump(ctx context.Context, ws *websocket.Conn, c *broadcast.Connection, cfg PumpConfig) {
	ws.SetReadLimit(cfg.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		msgType, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Warn("WebSocket read error", "conn_id", c.ID(), "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		h.Handle(ctx, c, raw)
	}
}

// writePump drains the connection's queue onto the socket and keeps the
// peer alive with pings. Closing the connection ends the pump, which in
// turn closes the socket and unblocks the reader.
func writePump(ws *websocket.Conn, c *broadcast.Connection, cfg PumpConfig) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = ws.Close()
	}()

	for {
		select {
		case frame := <-c.Outbound():
			_ = ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.Done():
			_ = ws.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
