package websocket

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wricardo/mazed/game/protocol"
	xlog "github.com/wricardo/mazed/internal/log"
	"github.com/wricardo/mazed/internal/metrics"
)

// PlayHandler runs the line protocol over websocket text messages. Each
// message carries one request and each reply is sent as one message.
type PlayHandler struct {
	ctx    context.Context
	driver *protocol.Driver
	logger zerolog.Logger
}

// NewPlayHandler returns a handler whose games end when ctx is cancelled.
func NewPlayHandler(ctx context.Context, driver *protocol.Driver, logger zerolog.Logger) *PlayHandler {
	return &PlayHandler{ctx: ctx, driver: driver, logger: logger}
}

func (p *PlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	done := metrics.TrackConnection("ws")
	defer done()

	ws.SetReadLimit(maxMessageSize)
	conn := &lineConn{ws: ws, remote: r.RemoteAddr}
	if err := p.driver.Serve(p.ctx, conn); err != nil {
		p.logger.Debug().Err(err).Str(xlog.FieldRemoteAddr, r.RemoteAddr).Msg("websocket game ended with error")
	}
}

// lineConn adapts a websocket connection to protocol.Conn.
type lineConn struct {
	ws     *websocket.Conn
	remote string
}

func (c *lineConn) ReadLine() (string, error) {
	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "", io.EOF
			}
			return "", err
		}
		if kind != websocket.TextMessage {
			continue
		}
		line := strings.TrimRight(string(data), "\r\n")
		if len(line) > protocol.MaxLineLength {
			return "", protocol.ErrLineTooLong
		}
		return line, nil
	}
}

func (c *lineConn) WriteLine(line string) error {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *lineConn) Close() error {
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.ws.Close()
}

func (c *lineConn) RemoteAddr() string { return c.remote }
