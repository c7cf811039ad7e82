package model

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation represents a two-party chat in MongoDB
type Conversation struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Participants []string           `json:"participants" bson:"participants"`
	UnreadCounts UnreadCounts       `json:"unreadCounts" bson:"unread_counts"`
	LastMessage  *LastMessage       `json:"lastMessage,omitempty" bson:"last_message,omitempty"`
	ClosedAt     *time.Time         `json:"closedAt,omitempty" bson:"closed_at,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updated_at"`
}

// LastMessage stores the most recent message preview
type LastMessage struct {
	Text           string    `json:"text" bson:"text"`
	TranslatedText string    `json:"translatedText" bson:"translated_text"`
	SenderID       string    `json:"senderId" bson:"sender_id"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
}

// UnreadCounter is one participant's unread counter. Counters are stored as an
// array so the positional operator can increment any participant id atomically.
type UnreadCounter struct {
	ParticipantID string `json:"participantId" bson:"participant_id"`
	Count         int64  `json:"count" bson:"count"`
}

type UnreadCounts []UnreadCounter

// For returns the unread count of participantID, 0 when absent.
func (u UnreadCounts) For(participantID string) int64 {
	for _, c := range u {
		if c.ParticipantID == participantID {
			return c.Count
		}
	}
	return 0
}

// MarshalJSON renders the counters as a participant -> count object.
func (u UnreadCounts) MarshalJSON() ([]byte, error) {
	m := make(map[string]int64, len(u))
	for _, c := range u {
		m[c.ParticipantID] = c.Count
	}
	return json.Marshal(m)
}

func (u *UnreadCounts) UnmarshalJSON(data []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	out := make(UnreadCounts, 0, len(m))
	for id, n := range m {
		out = append(out, UnreadCounter{ParticipantID: id, Count: n})
	}
	*u = out
	return nil
}

// NewConversation builds an unsaved conversation between a and b with zeroed
// unread counters.
func NewConversation(a, b string, now time.Time) *Conversation {
	return &Conversation{
		Participants: []string{a, b},
		UnreadCounts: UnreadCounts{
			{ParticipantID: a},
			{ParticipantID: b},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasParticipant reports whether id occupies one of the two slots.
func (c *Conversation) HasParticipant(id string) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// IsClosed reports whether the conversation has been ended.
func (c *Conversation) IsClosed() bool {
	return c.ClosedAt != nil
}

// ConversationSummary is a conversation annotated with one user's unread count.
type ConversationSummary struct {
	Conversation
	UnreadCount int64 `json:"unreadCount"`
}

// CreatedChat is returned when a conversation is created explicitly.
type CreatedChat struct {
	ConversationID string   `json:"conversationId"`
	Participants   []string `json:"participants"`
}
