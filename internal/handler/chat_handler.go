package handler

import (
	"LingoChat/internal/model"
	"LingoChat/internal/moderation"
	"LingoChat/internal/service"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Moderator screens message text before it is stored.
type Moderator interface {
	Moderate(text string) moderation.Result
}

// Publisher pushes a stored message to live listeners.
type Publisher interface {
	PublishMessage(ctx context.Context, msg *model.Message)
}

type ChatHandler interface {
	CreateChat(c *gin.Context)
	GetChats(c *gin.Context)
	SendMessage(c *gin.Context)
	EndConversation(c *gin.Context)
	MarkRead(c *gin.Context)
	ExportConversation(c *gin.Context)
}

type chatHandler struct {
	service   service.ChatService
	moderator Moderator
	publisher Publisher
	logger    *zap.Logger
}

// NewChatHandler builds the chat API. publisher may be nil, in which case
// messages sent over HTTP are only stored.
func NewChatHandler(svc service.ChatService, moderator Moderator, publisher Publisher, logger *zap.Logger) ChatHandler {
	return &chatHandler{
		service:   svc,
		moderator: moderator,
		publisher: publisher,
		logger:    logger,
	}
}

type createChatRequest struct {
	SenderID   string `json:"senderId" binding:"required"`
	ReceiverID string `json:"receiverId" binding:"required"`
}

type sendMessageRequest struct {
	SenderID       string `json:"senderId" binding:"required"`
	ReceiverID     string `json:"receiverId" binding:"required"`
	ConversationID string `json:"conversationId"`
	Text           string `json:"text" binding:"required"`
	TargetLang     string `json:"targetLang"`
	ModelSize      string `json:"modelSize"`
}

type markReadRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *chatHandler) CreateChat(c *gin.Context) {
	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "senderId and receiverId are required")
		return
	}

	chat, err := h.service.CreateChat(c.Request.Context(), req.SenderID, req.ReceiverID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "conversation created", chat)
}

func (h *chatHandler) GetChats(c *gin.Context) {
	chats, err := h.service.GetChats(c.Request.Context(), c.Query("userId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "conversations retrieved", chats)
}

func (h *chatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "senderId, receiverId and text are required")
		return
	}

	if res := h.moderator.Moderate(req.Text); res.Flagged {
		h.logger.Info("message blocked", zap.String("user_id", req.SenderID), zap.String("reason", res.Reason))
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, Response{
			Success: false,
			Message: "message blocked",
			Data:    gin.H{"reason": res.Reason},
		})
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), service.SendInput{
		SenderID:       req.SenderID,
		ReceiverID:     req.ReceiverID,
		ConversationID: req.ConversationID,
		Text:           req.Text,
		TargetLang:     req.TargetLang,
		ModelSize:      req.ModelSize,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if h.publisher != nil {
		h.publisher.PublishMessage(context.WithoutCancel(c.Request.Context()), msg)
	}
	respond(c, http.StatusCreated, "message sent", msg)
}

func (h *chatHandler) EndConversation(c *gin.Context) {
	res, err := h.service.EndConversation(c.Request.Context(), c.Param("conversationId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "conversation ended", res)
}

func (h *chatHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "userId is required")
		return
	}

	if err := h.service.ResetUnread(c.Request.Context(), c.Param("conversationId"), req.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "unread count reset", nil)
}

// ExportConversation streams the conversation's messages as a JSON file.
func (h *chatHandler) ExportConversation(c *gin.Context) {
	conversationID := c.Param("conversationId")
	msgs, err := h.service.ExportConversation(c.Request.Context(), conversationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="conversation_%s.json"`, conversationID))
	c.IndentedJSON(http.StatusOK, msgs)
}
