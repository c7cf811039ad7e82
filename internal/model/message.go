package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageStatus string

const (
	MessageStatusActive MessageStatus = "active"
	MessageStatusEnded  MessageStatus = "ended"
)

// Message represents a chat message in MongoDB
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversationId" bson:"conversation_id"`
	SenderID       string             `json:"senderId" bson:"sender_id"`
	ReceiverID     string             `json:"receiverId" bson:"receiver_id"`
	Text           string             `json:"text" bson:"text"`
	TranslatedText string             `json:"translatedText" bson:"translated_text"`
	SourceLang     string             `json:"sourceLang" bson:"source_lang"`
	TargetLang     string             `json:"targetLang" bson:"target_lang"`
	Status         MessageStatus      `json:"status" bson:"status"`
	CreatedAt      time.Time          `json:"createdAt" bson:"created_at"`
}

// Preview builds the conversation's last-message snapshot from m.
func (m *Message) Preview() LastMessage {
	return LastMessage{
		Text:           m.Text,
		TranslatedText: m.TranslatedText,
		SenderID:       m.SenderID,
		CreatedAt:      m.CreatedAt,
	}
}
