package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// handleLogStream serves GET /api/logs/stream (§4.13a): the hub replays
// its last-100 ring buffer, then streams live records until the client
// disconnects.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.Logger.Debug("websocket accept failed", slog.String("error", err.Error()))

		return
	}
	defer c.CloseNow()

	sub := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(sub)

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			_ = c.Close(websocket.StatusNormalClosure, "")

			return
		case rec, ok := <-sub.C():
			if !ok {
				_ = c.Close(websocket.StatusNormalClosure, "")

				return
			}

			if err := writeRecord(ctx, c, rec); err != nil {
				s.Logger.Debug("websocket write failed", slog.String("error", err.Error()))

				return
			}
		}
	}
}

func writeRecord(ctx context.Context, c *websocket.Conn, rec interface{}) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return wsjson.Write(writeCtx, c, rec)
}
