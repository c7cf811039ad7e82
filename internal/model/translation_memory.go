package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TranslationMemory is a reusable (source, sourceLang, targetLang) -> translated pair.
type TranslationMemory struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Source     string             `json:"source" bson:"source"`
	Translated string             `json:"translated" bson:"translated"`
	SourceLang string             `json:"sourceLang" bson:"source_lang"`
	TargetLang string             `json:"targetLang" bson:"target_lang"`
	UsageCount int64              `json:"usageCount" bson:"usage_count"`
	CreatedAt  time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updated_at"`
}
