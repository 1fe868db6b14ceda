package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/vovakirdan/shopdesk-server/internal/core"
	"github.com/vovakirdan/shopdesk-server/internal/proto"
	"github.com/vovakirdan/shopdesk-server/internal/service"
	"github.com/vovakirdan/shopdesk-server/internal/service/chat"
)

// dispatchInbound applies one client envelope. A non-nil *proto.Error is
// reported back to the client; the connection stays open either way.
func (h *WSHandler) dispatchInbound(ctx context.Context, client *core.Client, inbound proto.Inbound) *proto.Error {
	switch inbound.Type {
	case proto.InboundTypeJoin, proto.InboundTypeLeave:
		var rd proto.RoomData
		if err := json.Unmarshal(inbound.Data, &rd); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: err.Error()}
		}
		var err error
		if inbound.Type == proto.InboundTypeJoin {
			err = h.hub.Join(client.ID, rd.Room)
		} else {
			err = h.hub.Leave(client.ID, rd.Room)
		}
		return h.protoError(err)

	case proto.InboundTypeTyping, proto.InboundTypeStopTyping:
		var rd proto.RoomData
		if err := json.Unmarshal(inbound.Data, &rd); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: err.Error()}
		}
		return h.protoError(h.chat.Relay(client.ID, rd.Room, inbound.Type, inbound.Data))

	case proto.InboundTypeSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid message payload"}
		}
		_, err := h.chat.Submit(ctx, chat.SubmitInput{
			Room:   msg.ToRoom,
			From:   msg.From,
			Text:   msg.Text,
			Image:  msg.Image,
			Source: chat.SourceLive,
		})
		return h.protoError(err)

	case proto.InboundTypeMarkSeen:
		var rd proto.RoomData
		if err := json.Unmarshal(inbound.Data, &rd); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: err.Error()}
		}
		_, err := h.chat.MarkSeen(ctx, rd.Room)
		return h.protoError(err)

	case proto.InboundTypeSendNotification:
		var td proto.TargetData
		if err := json.Unmarshal(inbound.Data, &td); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid notification payload"}
		}
		return h.protoError(h.notifications.Relay(td.Target, inbound.Data))

	case proto.InboundTypeCartUpdated:
		var ud proto.UserData
		if err := json.Unmarshal(inbound.Data, &ud); err != nil {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid cart payload"}
		}
		return h.protoError(h.carts.Relay(ud.UserID, inbound.Data))

	default:
		return &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func (h *WSHandler) protoError(err error) *proto.Error {
	var (
		verr    *service.ValidationError
		coreErr *core.CoreError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: verr.Message}
	case errors.As(err, &coreErr):
		return &proto.Error{Code: coreErr.Code, Msg: coreErr.Message}
	default:
		h.log.Error().Err(err).Msg("live event failed")
		return &proto.Error{Code: core.ErrCodeInternal, Msg: "internal error"}
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: event.Name,
		Data:  event.Payload,
	}
}
