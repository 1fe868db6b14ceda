package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/shopdesk-server/internal/core"
	"github.com/vovakirdan/shopdesk-server/internal/proto"
	"github.com/vovakirdan/shopdesk-server/internal/service/carts"
	"github.com/vovakirdan/shopdesk-server/internal/service/chat"
	"github.com/vovakirdan/shopdesk-server/internal/service/notifications"
	"github.com/vovakirdan/shopdesk-server/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub           *core.Hub
	chat          *chat.Service
	notifications *notifications.Service
	carts         *carts.Service
	opts          WSOptions
	log           *zerolog.Logger
}

// WSOptions tunes live connections.
type WSOptions struct {
	// Buffer is the per-connection outbound queue length.
	Buffer int
	// RateLimit caps inbound events per RateWindow; 0 disables it.
	RateLimit  int
	RateWindow time.Duration
	// Origins lists accepted Origin host patterns; "*" accepts any origin.
	Origins []string
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, chatService *chat.Service, notificationService *notifications.Service, cartService *carts.Service, opts WSOptions, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:           hub,
		chat:          chatService,
		notifications: notificationService,
		carts:         cartService,
		opts:          opts,
		log:           logger,
	}
}

func (h *WSHandler) acceptOptions() *websocket.AcceptOptions {
	if len(h.opts.Origins) == 0 || lo.Contains(h.opts.Origins, "*") {
		return &websocket.AcceptOptions{InsecureSkipVerify: true}
	}
	return &websocket.AcceptOptions{OriginPatterns: h.opts.Origins}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(utils.NewID(), h.opts.Buffer)
	h.hub.RegisterClient(client)
	defer h.hub.Disconnect(client.ID)

	// Queued through the client channel so it precedes every other event.
	h.hub.Send(client.ID, core.EventConnected, proto.ConnectedData{ID: client.ID})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := newRateLimiter(h.opts.RateLimit, h.opts.RateWindow)
	limiter.startReset(ctx.Done())

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, limiter)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, limiter *rateLimiter) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("read ws inbound")
			return err
		}

		var protoErr *proto.Error
		if !limiter.allow() {
			protoErr = &proto.Error{Code: "rate_limited", Msg: "too many events"}
		} else {
			protoErr = h.dispatchInbound(ctx, client, inbound)
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
