package service

import (
	"LingoChat/internal/model"
	"context"
)

// DashboardStats computes the persisted part of the dashboard snapshot. Live
// connection figures are filled in by the hub.
func (s *chatService) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	total, closed, err := s.conversations.CountByState(ctx)
	if err != nil {
		return nil, persistenceError("failed to count conversations", err)
	}

	messages, err := s.messages.Count(ctx)
	if err != nil {
		return nil, persistenceError("failed to count messages", err)
	}

	usage, err := s.messages.LanguageUsage(ctx)
	if err != nil {
		return nil, persistenceError("failed to compute language usage", err)
	}
	if usage == nil {
		usage = []model.LanguageCount{}
	}

	return &model.DashboardStats{
		TotalConversations:  total,
		ActiveConversations: total - closed,
		ClosedConversations: closed,
		TotalMessages:       messages,
		LanguageUsage:       usage,
		GeneratedAt:         s.now(),
	}, nil
}
