package event

import (
	"encoding/json"
	"errors"
	"strings"
)

// Client to server
const (
	EventAuthenticate     = "authenticate"
	EventJoinConversation = "join_conversation"
	EventSendMessage      = "send_message"
	EventMarkRead         = "mark_read"
)

// Server to client
const (
	EventAuthenticated   = "authenticated"
	EventReceiveMessage  = "receive_message"
	EventMessageBlocked  = "message_blocked"
	EventDashboardUpdate = "dashboard_update"
	EventError           = "error"
)

var ErrInvalidPayload = errors.New("invalid payload")

type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds an event carrying payload encoded as JSON.
func New(name string, payload any) (WsEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: name, Payload: raw}, nil
}

// Decode unmarshals the payload into v.
func (e WsEvent) Decode(v any) error {
	if len(e.Payload) == 0 {
		return ErrInvalidPayload
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return ErrInvalidPayload
	}
	return nil
}

type AuthenticatePayload struct {
	UserID string `json:"userId" validate:"required"`
}

type JoinConversationPayload struct {
	ConversationID string `json:"conversationId" validate:"required"`
}

type SendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	ReceiverID     string `json:"receiverId" validate:"required"`
	Text           string `json:"text" validate:"required"`
	TargetLang     string `json:"targetLang"`
	ModelSize      string `json:"modelSize"`
}

type MarkReadPayload struct {
	ConversationID string `json:"conversationId" validate:"required"`
}

type AuthenticatedPayload struct {
	UserID string `json:"userId"`
}

type MessageBlockedPayload struct {
	Reason string `json:"reason"`
}

// DecodeID reads an identifier sent either as a bare JSON string or as an
// object holding it under field.
func DecodeID(raw json.RawMessage, field string) (string, error) {
	if len(raw) == 0 {
		return "", ErrInvalidPayload
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", ErrInvalidPayload
	}
	if err := json.Unmarshal(obj[field], &s); err != nil {
		return "", ErrInvalidPayload
	}
	return strings.TrimSpace(s), nil
}
