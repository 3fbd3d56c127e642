package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/shouni/go-comic-kit/pkg/workflow"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// snapshotMessage は接続直後に送る現在の状態です。
type snapshotMessage struct {
	Type     string            `json:"type"`
	Snapshot workflow.Snapshot `json:"snapshot"`
}

// streamEvents は Controller のイベントを websocket でそのまま配信するのだ。
// クライアントからのメッセージは読み捨て、切断の検知にだけ使います。
func (s *Server) streamEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket へのアップグレードに失敗しました", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.controller.Subscribe()
	defer unsubscribe()
	slog.Debug("websocket クライアントが接続しました", "remote", c.Request.RemoteAddr)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(snapshotMessage{Type: "snapshot", Snapshot: s.controller.Snapshot()}); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			slog.Debug("websocket クライアントが切断しました", "remote", c.Request.RemoteAddr)
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				slog.Debug("websocket への書き込みに失敗しました", "error", err)
				return
			}
		}
	}
}
