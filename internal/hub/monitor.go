package hub

import (
	"LingoChat/internal/model"
	"context"
	"sort"
	"time"
)

// Stats returns live connection and room counts.
func (h *Hub) Stats() model.ConnectionStats {
	h.clientsMu.RLock()
	users := make(map[string]struct{}, len(h.sessions))
	for _, s := range h.sessions {
		if s.Authenticated() {
			users[s.UserID] = struct{}{}
		}
	}
	stats := model.ConnectionStats{
		TotalConnected:     len(h.clients),
		AuthenticatedUsers: len(users),
	}
	h.clientsMu.RUnlock()

	for _, bucket := range h.shards {
		bucket.RLock()
		stats.TotalRooms += len(bucket.rooms)
		bucket.RUnlock()
	}

	return stats
}

// Snapshot merges the persisted chat statistics with the live gateway counts.
func (h *Hub) Snapshot(ctx context.Context) (*model.DashboardStats, error) {
	stats, err := h.chat.DashboardStats(ctx)
	if err != nil {
		return nil, err
	}

	live := h.Stats()
	stats.Connections = live.TotalConnected
	stats.AuthenticatedUsers = live.AuthenticatedUsers
	stats.Rooms = live.TotalRooms
	return stats, nil
}

// MonitorService exposes hub state to the monitoring API.
type MonitorService struct {
	hub *Hub
}

func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats returns the dashboard snapshot served by the monitor endpoint.
func (ms *MonitorService) GetStats(ctx context.Context) (*model.DashboardStats, error) {
	return ms.hub.Snapshot(ctx)
}

// GetClients lists connected clients, oldest connection first. When
// authenticatedOnly is set, anonymous connections are left out.
func (ms *MonitorService) GetClients(authenticatedOnly bool) []model.ClientInfo {
	ms.hub.clientsMu.RLock()
	sessions := make([]Session, 0, len(ms.hub.sessions))
	for _, s := range ms.hub.sessions {
		sessions = append(sessions, s.clone())
	}
	ms.hub.clientsMu.RUnlock()

	if authenticatedOnly {
		sessions = filter(sessions, Session.Authenticated)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ConnectedAt.Before(sessions[j].ConnectedAt)
	})

	clients := make([]model.ClientInfo, 0, len(sessions))
	for _, s := range sessions {
		if s.Rooms == nil {
			s.Rooms = []string{}
		}
		clients = append(clients, model.ClientInfo{
			ClientID:    s.ClientID,
			UserID:      s.UserID,
			Rooms:       s.Rooms,
			ConnectedAt: s.ConnectedAt.Truncate(time.Millisecond),
		})
	}
	return clients
}

func filter[T any](items []T, fn func(T) bool) []T {
	result := make([]T, 0, len(items))
	for _, v := range items {
		if fn(v) {
			result = append(result, v)
		}
	}
	return result
}
