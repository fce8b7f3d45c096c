package handler

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"degenecho/internal/events"
	"degenecho/internal/models"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamPingInterval = 30 * time.Second

	eventSnapshot = "snapshot"
)

// @Summary Stream poll events
// @Description Websocket. Sends a snapshot of the poll, then every committed event for it.
// @Tags polls
// @Param id path string true "poll id"
// @Router /api/v1/polls/{id}/stream [get]
func (h *PollHandler) stream(c *gin.Context) {
	if h.Hub == nil || h.Query == nil {
		Error(c, http.StatusInternalServerError, "stream unavailable", nil)
		return
	}
	pollID := strings.TrimSpace(c.Param("id"))

	// Subscribe before reading the snapshot so a commit in between is still
	// delivered. It may then show up in both.
	ch, unsubscribe := h.Hub.Subscribe(pollID)
	defer unsubscribe()

	poll, err := h.Query.GetPoll(c.Request.Context(), pollID)
	if err != nil {
		LedgerError(c, err)
		return
	}

	conn, err := websocket.Accept(newUpgradeWriter(c.Writer), c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log().Warn("stream accept failed", zap.String("poll_id", pollID), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx := conn.CloseRead(c.Request.Context())
	if err := writeEvent(ctx, conn, events.Event{Type: eventSnapshot, PollID: poll.ID, Poll: poll, At: time.Now().UTC()}); err != nil {
		return
	}
	if poll.Settled {
		_ = conn.Close(websocket.StatusNormalClosure, "poll settled")
		return
	}

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.log().Debug("stream write failed", zap.String("poll_id", pollID), zap.Error(err))
				}
				return
			}
			if ev.Type == models.PollEventSettled {
				_ = conn.Close(websocket.StatusNormalClosure, "poll settled")
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}

// upgradeWriter lets the websocket handshake write its 101 on the net/http
// writer under gin, so net/http flushes it on hijack. gin refuses to hijack a
// response it has already written, and it does not pass a 101 down until then.
// Hijack still goes through gin so gin skips its own header write afterwards.
type upgradeWriter struct {
	http.ResponseWriter
	gw gin.ResponseWriter
}

func newUpgradeWriter(gw gin.ResponseWriter) upgradeWriter {
	raw := http.ResponseWriter(gw)
	if u, ok := gw.(interface{ Unwrap() http.ResponseWriter }); ok {
		raw = u.Unwrap()
	}
	return upgradeWriter{ResponseWriter: raw, gw: gw}
}

func (w upgradeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.gw.Hijack()
}
