package hub

import (
	"LingoChat/internal/event"
	"LingoChat/internal/model"
	"LingoChat/internal/service"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const handlerTimeout = 30 * time.Second

const (
	errNotAuthenticated = "not authenticated"
	errInternal         = "internal error"
)

// handleEvent runs one inbound event for c. Panics are recovered and
// reported to the sender.
func (h *Hub) handleEvent(c *Client, ev event.WsEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while handling event",
				zap.String("client_id", c.ID),
				zap.String("event", ev.Event),
				zap.Any("panic", r),
			)
			c.sendError(errInternal)
		}
	}()

	sess, ok := h.session(c.ID)
	if !ok {
		return
	}

	// in-flight work belongs to the hub so a dropped connection cannot cancel it
	ctx, cancel := context.WithTimeout(h.ctx, handlerTimeout)
	defer cancel()

	switch ev.Event {
	case event.EventAuthenticate:
		h.handleAuthenticate(c, ev)
	case event.EventJoinConversation:
		h.handleJoin(c, sess, ev)
	case event.EventSendMessage:
		h.handleSendMessage(ctx, c, sess, ev)
	case event.EventMarkRead:
		h.handleMarkRead(ctx, c, sess, ev)
	default:
		c.sendError(fmt.Sprintf("unknown event: %s", ev.Event))
	}
}

func (h *Hub) handleAuthenticate(c *Client, ev event.WsEvent) {
	userID, err := event.DecodeID(ev.Payload, "userId")
	if err != nil || userID == "" {
		c.sendError("userId is required")
		return
	}

	if _, ok := h.bindUser(c.ID, userID); !ok {
		return
	}
	h.logger.Info("client authenticated", zap.String("client_id", c.ID), zap.String("user_id", userID))

	out, err := event.New(event.EventAuthenticated, event.AuthenticatedPayload{UserID: userID})
	if err != nil {
		return
	}
	c.Send(out)
}

func (h *Hub) handleJoin(c *Client, sess Session, ev event.WsEvent) {
	if !sess.Authenticated() {
		c.sendError(errNotAuthenticated)
		return
	}

	conversationID, err := event.DecodeID(ev.Payload, "conversationId")
	if err != nil || conversationID == "" {
		c.sendError("conversationId is required")
		return
	}
	h.subscribe(c, conversationID)
}

func (h *Hub) handleSendMessage(ctx context.Context, c *Client, sess Session, ev event.WsEvent) {
	if !sess.Authenticated() {
		c.sendError(errNotAuthenticated)
		return
	}

	var p event.SendMessagePayload
	if err := ev.Decode(&p); err != nil {
		c.sendError(err.Error())
		return
	}
	if err := h.validate.Struct(p); err != nil {
		c.sendError("receiverId and text are required")
		return
	}

	if res := h.moderator.Moderate(p.Text); res.Flagged {
		h.logger.Info("message blocked",
			zap.String("user_id", sess.UserID),
			zap.String("reason", res.Reason),
		)
		out, err := event.New(event.EventMessageBlocked, event.MessageBlockedPayload{Reason: res.Reason})
		if err == nil {
			c.Send(out)
		}
		return
	}

	msg, err := h.chat.SendMessage(ctx, service.SendInput{
		SenderID:       sess.UserID,
		ReceiverID:     p.ReceiverID,
		ConversationID: p.ConversationID,
		Text:           p.Text,
		TargetLang:     p.TargetLang,
		ModelSize:      p.ModelSize,
	})
	if err != nil {
		h.logger.Warn("send message failed", zap.String("user_id", sess.UserID), zap.Error(err))
		c.sendError(clientMessage(err))
		return
	}

	h.PublishMessage(ctx, msg)
}

// PublishMessage delivers a persisted message to its conversation room and
// refreshes every dashboard.
func (h *Hub) PublishMessage(ctx context.Context, msg *model.Message) {
	out, err := event.New(event.EventReceiveMessage, msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.Error(err))
		return
	}
	h.publishToRoom(msg.ConversationID.Hex(), out)

	h.BroadcastDashboard(ctx)
}

func (h *Hub) handleMarkRead(ctx context.Context, c *Client, sess Session, ev event.WsEvent) {
	if !sess.Authenticated() {
		c.sendError(errNotAuthenticated)
		return
	}

	conversationID, err := event.DecodeID(ev.Payload, "conversationId")
	if err != nil || conversationID == "" {
		c.sendError("conversationId is required")
		return
	}

	if err := h.chat.ResetUnread(ctx, conversationID, sess.UserID); err != nil {
		c.sendError(clientMessage(err))
	}
}

// BroadcastDashboard sends a fresh dashboard snapshot to every connection.
func (h *Hub) BroadcastDashboard(ctx context.Context) {
	stats, err := h.Snapshot(ctx)
	if err != nil {
		h.logger.Error("failed to compute dashboard stats", zap.Error(err))
		return
	}

	out, err := event.New(event.EventDashboardUpdate, stats)
	if err != nil {
		return
	}
	h.broadcast(out)
}

// clientMessage turns err into text safe to show the sender.
func clientMessage(err error) string {
	switch service.CodeOf(err) {
	case service.ErrorValidation, service.ErrorNotFound:
		var svcErr *service.Error
		if errors.As(err, &svcErr) {
			return svcErr.Reason
		}
	case service.ErrorPersistence:
		return "failed to save message"
	}
	return errInternal
}
