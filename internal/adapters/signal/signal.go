package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/voxmesh/meetrelay/internal/app"
	"github.com/voxmesh/meetrelay/internal/core"
)

// SignalWSController owns the websocket endpoint: one read/write pump pair
// per connection, events dispatched to the orchestrator.
type SignalWSController struct {
	Orch        *app.Orchestrator
	MaxRoomSize int // 0 = unlimited; >0 makes join reply "full" past the ceiling
	ReadLimit   int64
}

func NewSignalWSController(orch *app.Orchestrator, maxRoomSize int, readLimit int64) *SignalWSController {
	return &SignalWSController{Orch: orch, MaxRoomSize: maxRoomSize, ReadLimit: readLimit}
}

// WsSignalConn adapts one gorilla connection to core.SignalConnection.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

// TrySend never blocks; a full buffer drops the frame. The closed flag is
// checked under the lock so a send can never race Close onto a closed
// channel.
func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctl.Orch.Connect(sid, conn)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}
