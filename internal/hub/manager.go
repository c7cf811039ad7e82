package hub

import (
	"LingoChat/internal/event"
	"LingoChat/internal/moderation"
	"LingoChat/internal/service"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

// Moderator screens message text before it is stored.
type Moderator interface {
	Moderate(text string) moderation.Result
}

type roomBucket struct {
	sync.RWMutex
	rooms map[string]map[string]*Client
}

type Hub struct {
	shards [shardCount]*roomBucket

	clientsMu sync.RWMutex
	clients   map[string]*Client
	sessions  map[string]*Session

	unregister chan *Client

	chat      service.ChatService
	moderator Moderator
	validate  *validator.Validate
	logger    *zap.Logger
	upgrader  websocket.Upgrader

	// ctx scopes in-flight event handling to the hub, not to a connection
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Hub)

// WithAllowedOrigins restricts websocket upgrades to the given origins. "*"
// allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = checkOrigin(origins)
	}
}

func NewHub(chat service.ChatService, moderator Moderator, logger *zap.Logger, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[string]*Session),
		unregister: make(chan *Client, 1024),
		chat:       chat,
		moderator:  moderator,
		validate:   validator.New(),
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(nil),
		},
		ctx:    ctx,
		cancel: cancel,
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &roomBucket{
			rooms: make(map[string]map[string]*Client),
		}
	}

	h.wg.Add(1)
	go h.run()

	return h
}

func getShard(roomID string) uint32 {
	if roomID == "" {
		return 0
	}

	h := sha1.Sum([]byte(roomID))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (h *Hub) run() {
	defer h.wg.Done()
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	h.clients[c.ID] = c
	h.sessions[c.ID] = &Session{
		ClientID:    c.ID,
		ConnectedAt: time.Now().UTC(),
	}
	h.logger.Debug("client registered", zap.String("client_id", c.ID))
}

func (h *Hub) removeClient(c *Client) {
	c.Close()

	h.clientsMu.Lock()
	sess, ok := h.sessions[c.ID]
	delete(h.clients, c.ID)
	delete(h.sessions, c.ID)
	h.clientsMu.Unlock()

	if ok {
		for _, roomID := range sess.Rooms {
			h.leaveRoom(roomID, c.ID)
		}
		h.logger.Debug("client removed",
			zap.String("client_id", c.ID),
			zap.String("user_id", sess.UserID),
		)
	}
}

func (h *Hub) joinRoom(roomID string, c *Client) {
	b := h.shards[getShard(roomID)]
	b.Lock()
	room, ok := b.rooms[roomID]
	if !ok {
		room = make(map[string]*Client)
		b.rooms[roomID] = room
	}
	room[c.ID] = c
	b.Unlock()
}

func (h *Hub) leaveRoom(roomID, clientID string) {
	b := h.shards[getShard(roomID)]
	b.Lock()
	defer b.Unlock()

	if room, ok := b.rooms[roomID]; ok {
		delete(room, clientID)
		if len(room) == 0 {
			delete(b.rooms, roomID)
		}
	}
}

// publishToRoom delivers ev to every client subscribed to roomID.
func (h *Hub) publishToRoom(roomID string, ev event.WsEvent) {
	b := h.shards[getShard(roomID)]

	// collect clients while holding RLock
	b.RLock()
	room, ok := b.rooms[roomID]
	if !ok || len(room) == 0 {
		b.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(room))
	for _, c := range room {
		clients = append(clients, c)
	}
	b.RUnlock()

	for _, c := range clients {
		c.Send(ev)
	}
}

// broadcast delivers ev to every connection.
func (h *Hub) broadcast(ev event.WsEvent) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		c.Send(ev)
	}
}

func (h *Hub) Stop() {
	h.cancel()

	h.clientsMu.RLock()
	for _, c := range h.clients {
		c.Close()
	}
	h.clientsMu.RUnlock()

	h.wg.Wait()
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	RegisterClient(conn, h)
}
