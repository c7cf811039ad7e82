package repo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the chat queries rely on. Creating an
// existing index is a no-op in MongoDB.
func EnsureIndexes(ctx context.Context, conversations, messages, memory *mongo.Collection) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	specs := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{conversations, mongo.IndexModel{
			Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updated_at", Value: -1}},
		}},
		{messages, mongo.IndexModel{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
		}},
		{memory, mongo.IndexModel{
			Keys:    bson.D{{Key: "source", Value: 1}, {Key: "source_lang", Value: 1}, {Key: "target_lang", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}

	for _, s := range specs {
		if s.coll == nil {
			continue
		}
		if _, err := s.coll.Indexes().CreateOne(ctx, s.model); err != nil {
			return fmt.Errorf("create index on %s: %w", s.coll.Name(), err)
		}
	}
	return nil
}
