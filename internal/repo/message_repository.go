package repo

import (
	"LingoChat/internal/db"
	"LingoChat/internal/model"
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type MessageRepository interface {
	InsertMessage(ctx context.Context, msg *model.Message) (*model.Message, error)
	// EndConversation moves every message of the conversation to ended and
	// returns how many changed.
	EndConversation(ctx context.Context, conversationID primitive.ObjectID) (int64, error)
	// ListByConversation returns messages oldest first, ties broken by id.
	ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]model.Message, error)
	Count(ctx context.Context) (int64, error)
	LanguageUsage(ctx context.Context) ([]model.LanguageCount, error)
}

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

func NewMessageRepository(mongoRepo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: mongoRepo,
		logger:    logger,
	}
}

// -----------------------------------------------------------------------------
// InsertMessage
// -----------------------------------------------------------------------------

func (m *messageRepository) InsertMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if err := validateMessage(msg); err != nil {
		return nil, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	// Assign the id up front so a retried insert cannot duplicate the message
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	err := withRetry(ctx, m.logger, "message.insert", func(ctx context.Context) error {
		_, err := m.mongoRepo.Create(ctx, *msg)
		if mongo.IsDuplicateKeyError(err) {
			// an earlier attempt landed before its acknowledgement was lost
			return nil
		}
		return err
	})
	if err != nil {
		m.logger.Error("failed to insert message after all retries",
			zap.Error(err),
			zap.String("conversation_id", msg.ConversationID.Hex()),
		)
		return nil, fmt.Errorf("insert message failed: %w", err)
	}

	m.logger.Info("message inserted successfully",
		zap.String("message_id", msg.ID.Hex()),
		zap.String("conversation_id", msg.ConversationID.Hex()),
	)
	return msg, nil
}

func (m *messageRepository) EndConversation(ctx context.Context, conversationID primitive.ObjectID) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("conversation_id", conversationID).
		Ne("status", model.MessageStatusEnded).
		Build()

	var modified int64
	err := withRetry(ctx, m.logger, "message.end_conversation", func(ctx context.Context) error {
		res, err := m.mongoRepo.UpdateMany(ctx, filter, bson.M{"status": model.MessageStatusEnded})
		if err != nil {
			return err
		}
		modified = res.ModifiedCount
		return nil
	})
	if err != nil {
		m.logger.Error("failed to end conversation messages",
			zap.String("conversation_id", conversationID.Hex()),
			zap.Error(err),
		)
		return 0, fmt.Errorf("end conversation messages failed: %w", err)
	}
	return modified, nil
}

// -----------------------------------------------------------------------------
// ListByConversation
// -----------------------------------------------------------------------------

func (m *messageRepository) ListByConversation(ctx context.Context, conversationID primitive.ObjectID) ([]model.Message, error) {
	if conversationID.IsZero() {
		return nil, ErrInvalidConversationID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("conversation_id", conversationID).Build()
	sort := bson.D{{Key: "created_at", Value: db.SortAsc}, {Key: "_id", Value: db.SortAsc}}

	var msgs []model.Message
	err := withRetry(ctx, m.logger, "message.list", func(ctx context.Context) error {
		found, err := m.mongoRepo.FindAll(ctx, filter, sort)
		msgs = found
		return err
	})
	if err != nil {
		m.logger.Error("read failed", zap.Error(err), zap.String("conversation_id", conversationID.Hex()))
		return nil, fmt.Errorf("list messages failed: %w", err)
	}

	m.logger.Debug("messages listed",
		zap.String("conversation_id", conversationID.Hex()),
		zap.Int("count", len(msgs)),
	)
	return msgs, nil
}

func (m *messageRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var total int64
	err := withRetry(ctx, m.logger, "message.count", func(ctx context.Context) error {
		n, err := m.mongoRepo.Count(ctx, db.Empty())
		total = n
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count messages failed: %w", err)
	}
	return total, nil
}

// LanguageUsage groups messages by detected source language, busiest first.
func (m *messageRepository) LanguageUsage(ctx context.Context) ([]model.LanguageCount, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$source_lang"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	var usage []model.LanguageCount
	err := withRetry(ctx, m.logger, "message.language_usage", func(ctx context.Context) error {
		out, err := db.Aggregate[model.Message, model.LanguageCount](ctx, m.mongoRepo, pipeline)
		usage = out
		return err
	})
	if err != nil {
		m.logger.Error("language usage aggregation failed", zap.Error(err))
		return nil, fmt.Errorf("language usage failed: %w", err)
	}
	return usage, nil
}

// -----------------------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------------------

func validateMessage(msg *model.Message) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if msg.ConversationID.IsZero() {
		return ErrInvalidConversationID
	}
	return nil
}
