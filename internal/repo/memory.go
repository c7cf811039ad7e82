package repo

import (
	"LingoChat/internal/model"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory implementations used when storage.driver is "memory" and by tests.
// Every mutation happens under the store's lock, which makes the unread
// increment as atomic as MongoDB's $inc.

type memoryConversationRepository struct {
	mu    sync.RWMutex
	convs map[primitive.ObjectID]*model.Conversation
}

func NewMemoryConversationRepository() ConversationRepository {
	return &memoryConversationRepository{convs: make(map[primitive.ObjectID]*model.Conversation)}
}

func (r *memoryConversationRepository) Create(_ context.Context, conv *model.Conversation) (*model.Conversation, error) {
	if conv == nil || len(conv.Participants) != 2 {
		return nil, errors.New("conversation needs exactly two participants")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	r.convs[conv.ID] = cloneConversation(conv)
	return conv, nil
}

func (r *memoryConversationRepository) FindByID(_ context.Context, conversationID string) (*model.Conversation, error) {
	oid, err := ParseID(conversationID)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.convs[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (r *memoryConversationRepository) ListByParticipant(_ context.Context, userID string) ([]model.Conversation, error) {
	r.mu.RLock()
	out := make([]model.Conversation, 0)
	for _, conv := range r.convs {
		if conv.HasParticipant(userID) {
			out = append(out, *cloneConversation(conv))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (r *memoryConversationRepository) RecordMessage(_ context.Context, conversationID primitive.ObjectID, receiverID string, last model.LastMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[conversationID]
	if !ok {
		return ErrNotFound
	}
	idx := counterIndex(conv.UnreadCounts, receiverID)
	if idx < 0 {
		return ErrNotFound
	}
	conv.UnreadCounts[idx].Count++
	snapshot := last
	conv.LastMessage = &snapshot
	conv.UpdatedAt = last.CreatedAt
	return nil
}

func (r *memoryConversationRepository) TouchLastMessage(_ context.Context, conversationID primitive.ObjectID, last model.LastMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[conversationID]
	if !ok {
		return ErrNotFound
	}
	snapshot := last
	conv.LastMessage = &snapshot
	conv.UpdatedAt = last.CreatedAt
	return nil
}

func (r *memoryConversationRepository) ResetUnread(_ context.Context, conversationID primitive.ObjectID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[conversationID]
	if !ok {
		return ErrNotFound
	}
	idx := counterIndex(conv.UnreadCounts, userID)
	if idx < 0 {
		return ErrNotFound
	}
	conv.UnreadCounts[idx].Count = 0
	return nil
}

func (r *memoryConversationRepository) MarkClosed(_ context.Context, conversationID primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.convs[conversationID]
	if !ok || conv.ClosedAt != nil {
		return nil
	}
	closedAt := at
	conv.ClosedAt = &closedAt
	conv.UpdatedAt = at
	return nil
}

func (r *memoryConversationRepository) CountByState(_ context.Context) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var closed int64
	for _, conv := range r.convs {
		if conv.IsClosed() {
			closed++
		}
	}
	return int64(len(r.convs)), closed, nil
}

func counterIndex(counts model.UnreadCounts, participantID string) int {
	for i, c := range counts {
		if c.ParticipantID == participantID {
			return i
		}
	}
	return -1
}

func cloneConversation(c *model.Conversation) *model.Conversation {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	out.UnreadCounts = append(model.UnreadCounts(nil), c.UnreadCounts...)
	if c.LastMessage != nil {
		last := *c.LastMessage
		out.LastMessage = &last
	}
	if c.ClosedAt != nil {
		closedAt := *c.ClosedAt
		out.ClosedAt = &closedAt
	}
	return &out
}

type memoryMessageRepository struct {
	mu   sync.RWMutex
	msgs []model.Message
}

func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{}
}

func (r *memoryMessageRepository) InsertMessage(_ context.Context, msg *model.Message) (*model.Message, error) {
	if err := validateMessage(msg); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	r.msgs = append(r.msgs, *msg)
	return msg, nil
}

func (r *memoryMessageRepository) EndConversation(_ context.Context, conversationID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var modified int64
	for i := range r.msgs {
		if r.msgs[i].ConversationID == conversationID && r.msgs[i].Status != model.MessageStatusEnded {
			r.msgs[i].Status = model.MessageStatusEnded
			modified++
		}
	}
	return modified, nil
}

func (r *memoryMessageRepository) ListByConversation(_ context.Context, conversationID primitive.ObjectID) ([]model.Message, error) {
	if conversationID.IsZero() {
		return nil, ErrInvalidConversationID
	}

	r.mu.RLock()
	out := make([]model.Message, 0)
	for _, m := range r.msgs {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (r *memoryMessageRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.msgs)), nil
}

func (r *memoryMessageRepository) LanguageUsage(_ context.Context) ([]model.LanguageCount, error) {
	r.mu.RLock()
	counts := make(map[string]int64)
	for _, m := range r.msgs {
		counts[m.SourceLang]++
	}
	r.mu.RUnlock()

	out := make([]model.LanguageCount, 0, len(counts))
	for lang, n := range counts {
		out = append(out, model.LanguageCount{Lang: lang, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Lang < out[j].Lang
	})
	return out, nil
}

type memoryTranslationMemoryRepository struct {
	mu      sync.Mutex
	entries map[[3]string]*model.TranslationMemory
}

func NewMemoryTranslationMemoryRepository() TranslationMemoryRepository {
	return &memoryTranslationMemoryRepository{entries: make(map[[3]string]*model.TranslationMemory)}
}

func (r *memoryTranslationMemoryRepository) Lookup(_ context.Context, source, sourceLang, targetLang string) (*model.TranslationMemory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[[3]string{source, sourceLang, targetLang}]
	if !ok {
		return nil, ErrNotFound
	}
	out := *entry
	return &out, nil
}

func (r *memoryTranslationMemoryRepository) Record(_ context.Context, source, translated, sourceLang, targetLang string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC().Truncate(time.Millisecond)
	key := [3]string{source, sourceLang, targetLang}
	entry, ok := r.entries[key]
	if !ok {
		entry = &model.TranslationMemory{
			ID:         primitive.NewObjectID(),
			Source:     source,
			SourceLang: sourceLang,
			TargetLang: targetLang,
			CreatedAt:  now,
		}
		r.entries[key] = entry
	}
	entry.Translated = translated
	entry.UsageCount++
	entry.UpdatedAt = now
	return nil
}
