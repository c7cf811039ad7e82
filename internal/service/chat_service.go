package service

import (
	"LingoChat/internal/bot"
	"LingoChat/internal/detect"
	"LingoChat/internal/model"
	"LingoChat/internal/repo"
	"LingoChat/internal/translation"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Detector guesses the language of a text.
type Detector interface {
	Detect(text string) string
}

// Translator never fails; on error it returns the original text.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang, modelSize string) translation.Result
}

// BotClient asks the chatbot for a reply.
type BotClient interface {
	Query(ctx context.Context, text, conversationID string) bot.Reply
}

type Config struct {
	// BotID identifies the bot participant, model.BotParticipantID by default.
	BotID string
	// BotNativeLang is the language the bot replies in, "en" by default.
	BotNativeLang string
}

// SendInput is one outgoing message. ConversationID, TargetLang and
// ModelSize are optional.
type SendInput struct {
	SenderID       string
	ReceiverID     string
	ConversationID string
	Text           string
	TargetLang     string
	ModelSize      string
}

// EndResult describes a conversation after it has been ended.
type EndResult struct {
	ConversationID string    `json:"conversationId"`
	MessagesEnded  int64     `json:"messagesEnded"`
	ClosedAt       time.Time `json:"closedAt"`
}

type ChatService interface {
	CreateChat(ctx context.Context, senderID, receiverID string) (*model.CreatedChat, error)
	GetChats(ctx context.Context, userID string) ([]model.ConversationSummary, error)
	SendMessage(ctx context.Context, in SendInput) (*model.Message, error)
	EndConversation(ctx context.Context, conversationID string) (*EndResult, error)
	ExportConversation(ctx context.Context, conversationID string) ([]model.Message, error)
	ResetUnread(ctx context.Context, conversationID, userID string) error
	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
}

type chatService struct {
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	detector      Detector
	translator    Translator
	bot           BotClient
	cfg           Config
	logger        *zap.Logger
	now           func() time.Time
}

func NewChatService(
	conversations repo.ConversationRepository,
	messages repo.MessageRepository,
	detector Detector,
	translator Translator,
	botClient BotClient,
	cfg Config,
	logger *zap.Logger,
) ChatService {
	if cfg.BotID == "" {
		cfg.BotID = model.BotParticipantID
	}
	if cfg.BotNativeLang == "" {
		cfg.BotNativeLang = detect.DefaultLanguage
	}
	return &chatService{
		conversations: conversations,
		messages:      messages,
		detector:      detector,
		translator:    translator,
		bot:           botClient,
		cfg:           cfg,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *chatService) CreateChat(ctx context.Context, senderID, receiverID string) (*model.CreatedChat, error) {
	senderID, receiverID = strings.TrimSpace(senderID), strings.TrimSpace(receiverID)
	if err := validatePair(senderID, receiverID); err != nil {
		return nil, err
	}

	conv, err := s.createConversation(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	return &model.CreatedChat{
		ConversationID: conv.ID.Hex(),
		Participants:   conv.Participants,
	}, nil
}

func (s *chatService) GetChats(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, validationError("userId is required")
	}

	convs, err := s.conversations.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, persistenceError("failed to load conversations", err)
	}

	out := make([]model.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, model.ConversationSummary{
			Conversation: c,
			UnreadCount:  c.UnreadCounts.For(userID),
		})
	}
	return out, nil
}

func (s *chatService) SendMessage(ctx context.Context, in SendInput) (*model.Message, error) {
	in.SenderID = strings.TrimSpace(in.SenderID)
	in.ReceiverID = strings.TrimSpace(in.ReceiverID)
	if err := validatePair(in.SenderID, in.ReceiverID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, validationError("text is required")
	}

	conv, err := s.resolveConversation(ctx, in)
	if err != nil {
		return nil, err
	}
	convID := conv.ID.Hex()

	sourceLang := s.detector.Detect(in.Text)
	translated := s.route(ctx, in, convID, sourceLang)

	targetLang := in.TargetLang
	if targetLang == "" {
		targetLang = sourceLang
	}

	msg, err := s.messages.InsertMessage(ctx, &model.Message{
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		ReceiverID:     in.ReceiverID,
		Text:           in.Text,
		TranslatedText: translated,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Status:         model.MessageStatusActive,
		CreatedAt:      s.now(),
	})
	if err != nil {
		return nil, persistenceError("failed to store message", err)
	}

	// the message is stored; a failed aggregate update is recoverable from history
	if err := s.recordMessage(ctx, conv, in.ReceiverID, msg); err != nil {
		s.logger.Error("failed to update conversation after message",
			zap.String("conversation_id", convID),
			zap.String("message_id", msg.ID.Hex()),
			zap.Error(err),
		)
	}

	s.logger.Info("message sent",
		zap.String("conversation_id", convID),
		zap.String("message_id", msg.ID.Hex()),
		zap.String("source_lang", sourceLang),
		zap.String("target_lang", targetLang),
	)
	return msg, nil
}

// recordMessage updates the conversation aggregate. Only participants hold
// an unread counter, so a receiver outside the conversation (the bot
// addressed from a human chat) just moves lastMessage forward.
func (s *chatService) recordMessage(ctx context.Context, conv *model.Conversation, receiverID string, msg *model.Message) error {
	if conv.HasParticipant(receiverID) {
		return s.conversations.RecordMessage(ctx, conv.ID, receiverID, msg.Preview())
	}
	return s.conversations.TouchLastMessage(ctx, conv.ID, msg.Preview())
}

// route produces the translated text for a message. It never fails: every
// upstream failure degrades to the best text available.
func (s *chatService) route(ctx context.Context, in SendInput, convID, sourceLang string) string {
	receiver := model.ParseParticipant(in.ReceiverID, s.cfg.BotID)
	if receiver.IsBot() {
		text := s.bot.Query(ctx, in.Text, convID).Text("")
		if text == "" {
			return in.Text
		}
		if in.TargetLang != "" && detect.Normalize(in.TargetLang) != detect.Normalize(s.cfg.BotNativeLang) {
			return s.translator.Translate(ctx, text, s.cfg.BotNativeLang, in.TargetLang, in.ModelSize).Translated
		}
		return text
	}

	if in.TargetLang != "" && detect.Normalize(in.TargetLang) != detect.Normalize(sourceLang) {
		return s.translator.Translate(ctx, in.Text, sourceLang, in.TargetLang, in.ModelSize).Translated
	}
	return in.Text
}

// resolveConversation loads the requested conversation, creating a new one
// when no usable id was given.
func (s *chatService) resolveConversation(ctx context.Context, in SendInput) (*model.Conversation, error) {
	if id := strings.TrimSpace(in.ConversationID); id != "" {
		conv, err := s.conversations.FindByID(ctx, id)
		switch {
		case err == nil:
			return conv, nil
		case isMissing(err):
			s.logger.Debug("conversation not found, creating a new one", zap.String("conversation_id", id))
		default:
			return nil, persistenceError("failed to load conversation", err)
		}
	}
	return s.createConversation(ctx, in.SenderID, in.ReceiverID)
}

func (s *chatService) createConversation(ctx context.Context, a, b string) (*model.Conversation, error) {
	conv, err := s.conversations.Create(ctx, model.NewConversation(a, b, s.now()))
	if err != nil {
		return nil, persistenceError("failed to create conversation", err)
	}
	return conv, nil
}

func (s *chatService) EndConversation(ctx context.Context, conversationID string) (*EndResult, error) {
	conv, err := s.findConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	ended, err := s.messages.EndConversation(ctx, conv.ID)
	if err != nil {
		return nil, persistenceError("failed to end messages", err)
	}
	if err := s.conversations.MarkClosed(ctx, conv.ID, s.now()); err != nil {
		return nil, persistenceError("failed to close conversation", err)
	}

	closed, err := s.conversations.FindByID(ctx, conv.ID.Hex())
	if err != nil {
		return nil, persistenceError("failed to reload conversation", err)
	}

	res := &EndResult{ConversationID: conv.ID.Hex(), MessagesEnded: ended}
	if closed.ClosedAt != nil {
		res.ClosedAt = *closed.ClosedAt
	}
	s.logger.Info("conversation ended",
		zap.String("conversation_id", res.ConversationID),
		zap.Int64("messages_ended", ended),
	)
	return res, nil
}

func (s *chatService) ExportConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	conv, err := s.findConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, persistenceError("failed to load messages", err)
	}
	return msgs, nil
}

func (s *chatService) ResetUnread(ctx context.Context, conversationID, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return validationError("userId is required")
	}

	conv, err := s.findConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return validationError("user is not a participant of the conversation")
	}

	if err := s.conversations.ResetUnread(ctx, conv.ID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return notFoundError("no unread counter for user")
		}
		return persistenceError("failed to reset unread count", err)
	}
	return nil
}

func (s *chatService) findConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	id := strings.TrimSpace(conversationID)
	if id == "" {
		return nil, validationError("conversationId is required")
	}

	conv, err := s.conversations.FindByID(ctx, id)
	if err != nil {
		if isMissing(err) {
			return nil, notFoundError("conversation not found")
		}
		return nil, persistenceError("failed to load conversation", err)
	}
	return conv, nil
}

func validatePair(senderID, receiverID string) error {
	if senderID == "" {
		return validationError("senderId is required")
	}
	if receiverID == "" {
		return validationError("receiverId is required")
	}
	if senderID == receiverID {
		return validationError("senderId and receiverId must differ")
	}
	return nil
}

// isMissing reports whether err means the conversation cannot exist.
func isMissing(err error) bool {
	return errors.Is(err, repo.ErrNotFound) ||
		errors.Is(err, repo.ErrInvalidID) ||
		errors.Is(err, repo.ErrInvalidConversationID)
}
