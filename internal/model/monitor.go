package model

import "time"

// -----------------------------------------------------------------
// Dashboard / Monitor Response Models
// -----------------------------------------------------------------

// DashboardStats is the aggregate snapshot broadcast as dashboard_update
type DashboardStats struct {
	TotalConversations  int64           `json:"totalConversations"`
	ActiveConversations int64           `json:"activeConversations"` // closedAt unset
	ClosedConversations int64           `json:"closedConversations"`
	TotalMessages       int64           `json:"totalMessages"`
	LanguageUsage       []LanguageCount `json:"languageUsage"` // by detected source language
	Connections         int             `json:"connections"`
	AuthenticatedUsers  int             `json:"authenticatedUsers"`
	Rooms               int             `json:"rooms"`
	GeneratedAt         time.Time       `json:"generatedAt"`
}

// LanguageCount is the number of messages sent in one source language
type LanguageCount struct {
	Lang  string `json:"lang" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// ConnectionStats holds live gateway statistics
type ConnectionStats struct {
	TotalConnected     int `json:"totalConnected"`
	AuthenticatedUsers int `json:"authenticatedUsers"`
	TotalRooms         int `json:"totalRooms"`
}

// ClientInfo contains information about a connected client
type ClientInfo struct {
	ClientID    string    `json:"clientId"`
	UserID      string    `json:"userId,omitempty"`
	Rooms       []string  `json:"rooms"`
	ConnectedAt time.Time `json:"connectedAt"`
}
