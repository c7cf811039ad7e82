package repo

import (
	"LingoChat/internal/db"
	"LingoChat/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ConversationRepository interface {
	Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error)
	FindByID(ctx context.Context, conversationID string) (*model.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]model.Conversation, error)
	// RecordMessage atomically increments the receiver's unread counter and
	// replaces the last-message snapshot.
	RecordMessage(ctx context.Context, conversationID primitive.ObjectID, receiverID string, last model.LastMessage) error
	// TouchLastMessage replaces the last-message snapshot without touching
	// any unread counter.
	TouchLastMessage(ctx context.Context, conversationID primitive.ObjectID, last model.LastMessage) error
	ResetUnread(ctx context.Context, conversationID primitive.ObjectID, userID string) error
	// MarkClosed sets closed_at unless it is already set.
	MarkClosed(ctx context.Context, conversationID primitive.ObjectID, at time.Time) error
	CountByState(ctx context.Context) (total int64, closed int64, err error)
}

type conversationRepository struct {
	mongoRepo *db.Repository[model.Conversation]
	logger    *zap.Logger
}

func NewConversationRepository(mongoRepo *db.Repository[model.Conversation], logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		mongoRepo: mongoRepo,
		logger:    logger,
	}
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	if conv == nil || len(conv.Participants) != 2 {
		return nil, fmt.Errorf("conversation needs exactly two participants")
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}

	err := withRetry(ctx, r.logger, "conversation.create", func(ctx context.Context) error {
		_, err := r.mongoRepo.Create(ctx, *conv)
		return err
	})
	if err != nil {
		r.logger.Error("failed to create conversation",
			zap.Strings("participants", conv.Participants),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create conversation failed: %w", err)
	}

	r.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID.Hex()),
		zap.Strings("participants", conv.Participants),
	)
	return conv, nil
}

// FindByID fetches a conversation document by its hex ID
func (r *conversationRepository) FindByID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	objectID, err := ParseID(conversationID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var conv *model.Conversation
	err = withRetry(ctx, r.logger, "conversation.find", func(ctx context.Context) error {
		found, err := r.mongoRepo.FindByID(ctx, objectID)
		conv = found
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.logger.Debug("conversation not found", zap.String("conversation_id", conversationID))
			return nil, ErrNotFound
		}
		r.logger.Error("failed to fetch conversation",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}

	return conv, nil
}

// ListByParticipant returns every conversation userID takes part in, most
// recently updated first.
func (r *conversationRepository) ListByParticipant(ctx context.Context, userID string) ([]model.Conversation, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("participants", userID).Build()
	sort := bson.D{{Key: "updated_at", Value: db.SortDesc}, {Key: "_id", Value: db.SortDesc}}

	var convs []model.Conversation
	err := withRetry(ctx, r.logger, "conversation.list", func(ctx context.Context) error {
		found, err := r.mongoRepo.FindAll(ctx, filter, sort)
		convs = found
		return err
	})
	if err != nil {
		r.logger.Error("failed to query conversations", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get conversations: %w", err)
	}

	r.logger.Debug("conversations retrieved", zap.String("user_id", userID), zap.Int("count", len(convs)))
	return convs, nil
}

func (r *conversationRepository) RecordMessage(ctx context.Context, conversationID primitive.ObjectID, receiverID string, last model.LastMessage) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("_id", conversationID).
		Eq("unread_counts.participant_id", receiverID).
		Build()
	update := bson.M{
		"$inc": bson.M{"unread_counts.$.count": 1},
		"$set": bson.M{
			"last_message": last,
			"updated_at":   last.CreatedAt,
		},
	}

	// single attempt, $inc is not idempotent
	res, err := r.mongoRepo.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("failed to update conversation aggregate",
			zap.String("conversation_id", conversationID.Hex()),
			zap.String("receiver_id", receiverID),
			zap.Error(err),
		)
		return fmt.Errorf("update conversation failed: %w", translateError(err))
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *conversationRepository) TouchLastMessage(ctx context.Context, conversationID primitive.ObjectID, last model.LastMessage) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("_id", conversationID).Build()
	update := bson.M{"$set": bson.M{
		"last_message": last,
		"updated_at":   last.CreatedAt,
	}}

	var matched int64
	err := withRetry(ctx, r.logger, "conversation.touch_last_message", func(ctx context.Context) error {
		res, err := r.mongoRepo.UpdateOne(ctx, filter, update)
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		r.logger.Error("failed to update last message",
			zap.String("conversation_id", conversationID.Hex()),
			zap.Error(err),
		)
		return fmt.Errorf("update last message failed: %w", err)
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *conversationRepository) ResetUnread(ctx context.Context, conversationID primitive.ObjectID, userID string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().
		Eq("_id", conversationID).
		Eq("unread_counts.participant_id", userID).
		Build()
	update := bson.M{"$set": bson.M{"unread_counts.$.count": 0}}

	var matched int64
	err := withRetry(ctx, r.logger, "conversation.reset_unread", func(ctx context.Context) error {
		res, err := r.mongoRepo.UpdateOne(ctx, filter, update)
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		r.logger.Error("failed to reset unread counter",
			zap.String("conversation_id", conversationID.Hex()),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return fmt.Errorf("reset unread failed: %w", err)
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *conversationRepository) MarkClosed(ctx context.Context, conversationID primitive.ObjectID, at time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("_id", conversationID).IsNull("closed_at").Build()
	update := bson.M{"$set": bson.M{"closed_at": at, "updated_at": at}}

	err := withRetry(ctx, r.logger, "conversation.mark_closed", func(ctx context.Context) error {
		_, err := r.mongoRepo.UpdateOne(ctx, filter, update)
		return err
	})
	if err != nil {
		r.logger.Error("failed to close conversation",
			zap.String("conversation_id", conversationID.Hex()),
			zap.Error(err),
		)
		return fmt.Errorf("close conversation failed: %w", err)
	}
	return nil
}

func (r *conversationRepository) CountByState(ctx context.Context) (int64, int64, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var total, closed int64
	err := withRetry(ctx, r.logger, "conversation.count", func(ctx context.Context) error {
		var err error
		if total, err = r.mongoRepo.Count(ctx, db.Empty()); err != nil {
			return err
		}
		closed, err = r.mongoRepo.Count(ctx, db.NewFilter().Ne("closed_at", nil).Build())
		return err
	})
	if err != nil {
		return 0, 0, fmt.Errorf("count conversations failed: %w", err)
	}
	return total, closed, nil
}
