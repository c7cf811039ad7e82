package repo

import (
	"LingoChat/internal/db"
	"LingoChat/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// TranslationMemoryRepository stores reusable translation pairs.
type TranslationMemoryRepository interface {
	Lookup(ctx context.Context, source, sourceLang, targetLang string) (*model.TranslationMemory, error)
	// Record upserts the pair and bumps its usage count.
	Record(ctx context.Context, source, translated, sourceLang, targetLang string) error
}

type translationMemoryRepository struct {
	mongoRepo *db.Repository[model.TranslationMemory]
	logger    *zap.Logger
}

func NewTranslationMemoryRepository(mongoRepo *db.Repository[model.TranslationMemory], logger *zap.Logger) TranslationMemoryRepository {
	return &translationMemoryRepository{
		mongoRepo: mongoRepo,
		logger:    logger,
	}
}

func memoryKey(source, sourceLang, targetLang string) bson.M {
	return db.NewFilter().
		Eq("source", source).
		Eq("source_lang", sourceLang).
		Eq("target_lang", targetLang).
		Build()
}

func (r *translationMemoryRepository) Lookup(ctx context.Context, source, sourceLang, targetLang string) (*model.TranslationMemory, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var entry *model.TranslationMemory
	err := withRetry(ctx, r.logger, "memory.lookup", func(ctx context.Context) error {
		found, err := r.mongoRepo.FindOne(ctx, memoryKey(source, sourceLang, targetLang))
		entry = found
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("translation memory lookup failed: %w", err)
	}
	return entry, nil
}

func (r *translationMemoryRepository) Record(ctx context.Context, source, translated, sourceLang, targetLang string) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$inc":         bson.M{"usage_count": 1},
		"$set":         bson.M{"translated": translated, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}

	// single attempt, $inc is not idempotent
	if _, err := r.mongoRepo.Upsert(ctx, memoryKey(source, sourceLang, targetLang), update); err != nil {
		r.logger.Warn("failed to record translation", zap.String("source_lang", sourceLang), zap.String("target_lang", targetLang), zap.Error(err))
		return fmt.Errorf("translation memory record failed: %w", translateError(err))
	}
	return nil
}
