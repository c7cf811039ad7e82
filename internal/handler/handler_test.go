package handler

import (
	"LingoChat/internal/bot"
	"LingoChat/internal/model"
	"LingoChat/internal/moderation"
	"LingoChat/internal/repo"
	"LingoChat/internal/service"
	"LingoChat/internal/translation"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedDetector string

func (d fixedDetector) Detect(string) string { return string(d) }

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*model.Message
}

func (p *recordingPublisher) PublishMessage(_ context.Context, msg *model.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

type fakeStats struct {
	err error
}

func (f fakeStats) GetStats(context.Context) (*model.DashboardStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.DashboardStats{TotalMessages: 3, Connections: 2, LanguageUsage: []model.LanguageCount{}}, nil
}

func (fakeStats) GetClients(authenticatedOnly bool) []model.ClientInfo {
	if authenticatedOnly {
		return []model.ClientInfo{}
	}
	return []model.ClientInfo{{ClientID: "c1", Rooms: []string{}}}
}

type apiFixture struct {
	router    *gin.Engine
	publisher *recordingPublisher
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()
	detector := fixedDetector("en")
	engine := translation.NewEngine(translation.NewStubProvider(nil), logger)

	chat := service.NewChatService(
		repo.NewMemoryConversationRepository(),
		repo.NewMemoryMessageRepository(),
		detector,
		engine,
		bot.NewBridge("", logger),
		service.Config{},
		logger,
	)
	publisher := &recordingPublisher{}

	chats := NewChatHandler(chat, moderation.NewGate(nil), publisher, logger)
	translations := NewTranslationHandler(detector, engine)
	monitor := NewMonitorHandler(fakeStats{}, logger)

	router := gin.New()
	router.POST("/chat", chats.CreateChat)
	router.GET("/chat", chats.GetChats)
	router.POST("/chat/message", chats.SendMessage)
	router.POST("/chat/:conversationId/end", chats.EndConversation)
	router.POST("/chat/:conversationId/read", chats.MarkRead)
	router.GET("/chat/:conversationId/export", chats.ExportConversation)
	router.POST("/translate", translations.Translate)
	router.POST("/detect", translations.Detect)
	router.GET("/translate/languages", translations.Languages)
	router.GET("/monitor/stats", monitor.GetHubStats)
	router.GET("/monitor/clients", monitor.GetClients)

	return &apiFixture{router: router, publisher: publisher}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// decode unmarshals the envelope and its data into data.
func decode(t *testing.T, w *httptest.ResponseRecorder, data any) Response {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Response
}

func (f *apiFixture) createChat(t *testing.T, a, b string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/chat", map[string]string{"senderId": a, "receiverId": b})
	require.Equal(t, http.StatusCreated, w.Code)

	var created model.CreatedChat
	resp := decode(t, w, &created)
	require.True(t, resp.Success)
	require.Equal(t, []string{a, b}, created.Participants)
	return created.ConversationID
}

func TestChatHandler_Flow(t *testing.T) {
	f := newAPIFixture(t)
	convID := f.createChat(t, "u1", "u2")

	w := f.do(t, http.MethodPost, "/chat/message", map[string]string{
		"senderId":       "u1",
		"receiverId":     "u2",
		"conversationId": convID,
		"text":           "Hello",
		"targetLang":     "fr",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var msg model.Message
	decode(t, w, &msg)
	require.Equal(t, "Bonjour", msg.TranslatedText)
	require.Equal(t, model.MessageStatusActive, msg.Status)
	require.Len(t, f.publisher.msgs, 1)

	w = f.do(t, http.MethodGet, "/chat?userId=u2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var chats []model.ConversationSummary
	decode(t, w, &chats)
	require.Len(t, chats, 1)
	require.EqualValues(t, 1, chats[0].UnreadCount)

	w = f.do(t, http.MethodPost, "/chat/"+convID+"/read", map[string]string{"userId": "u2"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, f.do(t, http.MethodGet, "/chat?userId=u2", nil), &chats)
	require.Zero(t, chats[0].UnreadCount)

	w = f.do(t, http.MethodGet, "/chat/"+convID+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `attachment; filename="conversation_`+convID+`.json"`, w.Header().Get("Content-Disposition"))
	var exported []model.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exported))
	require.Len(t, exported, 1)

	w = f.do(t, http.MethodPost, "/chat/"+convID+"/end", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ended service.EndResult
	decode(t, w, &ended)
	require.EqualValues(t, 1, ended.MessagesEnded)
	require.False(t, ended.ClosedAt.IsZero())
}

func TestChatHandler_Errors(t *testing.T) {
	f := newAPIFixture(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"create missing receiver", http.MethodPost, "/chat", map[string]string{"senderId": "u1"}, http.StatusBadRequest},
		{"create with self", http.MethodPost, "/chat", map[string]string{"senderId": "u1", "receiverId": "u1"}, http.StatusBadRequest},
		{"list without user", http.MethodGet, "/chat", nil, http.StatusBadRequest},
		{"send without text", http.MethodPost, "/chat/message", map[string]string{"senderId": "u1", "receiverId": "u2"}, http.StatusBadRequest},
		{"end unknown", http.MethodPost, "/chat/64b7f0c2a1b2c3d4e5f60718/end", nil, http.StatusNotFound},
		{"end malformed id", http.MethodPost, "/chat/nope/end", nil, http.StatusNotFound},
		{"export unknown", http.MethodGet, "/chat/64b7f0c2a1b2c3d4e5f60718/export", nil, http.StatusNotFound},
		{"read without user", http.MethodPost, "/chat/64b7f0c2a1b2c3d4e5f60718/read", map[string]string{}, http.StatusBadRequest},
		{"read unknown", http.MethodPost, "/chat/64b7f0c2a1b2c3d4e5f60718/read", map[string]string{"userId": "u1"}, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, w.Code)
			resp := decode(t, w, nil)
			require.False(t, resp.Success)
			require.NotEmpty(t, resp.Message)
		})
	}
}

func TestChatHandler_BlockedMessage(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/chat/message", map[string]string{
		"senderId":   "u1",
		"receiverId": "u2",
		"text":       "badword2!",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var data map[string]string
	resp := decode(t, w, &data)
	require.False(t, resp.Success)
	require.Equal(t, "message blocked", resp.Message)
	require.Equal(t, moderation.ReasonProfanity, data["reason"])
	require.Empty(t, f.publisher.msgs)

	var chats []model.ConversationSummary
	decode(t, f.do(t, http.MethodGet, "/chat?userId=u1", nil), &chats)
	require.Empty(t, chats)
}

func TestTranslationHandler(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/translate", map[string]string{"text": "Hello", "targetLang": "es"})
	require.Equal(t, http.StatusOK, w.Code)
	var res translation.Result
	decode(t, w, &res)
	require.Equal(t, "Hola", res.Translated)
	require.Equal(t, "en", res.SourceLang)
	require.Equal(t, translation.DefaultModelSize, res.ModelSize)

	w = f.do(t, http.MethodPost, "/translate", map[string]string{"text": "Hello"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/translate", map[string]string{"text": "Hello", "targetLang": "tlh"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/detect", map[string]string{"text": "whatever"})
	require.Equal(t, http.StatusOK, w.Code)
	var detected detectResponse
	decode(t, w, &detected)
	require.Equal(t, detectResponse{Lang: "en", ModelTag: "eng_Latn"}, detected)

	w = f.do(t, http.MethodGet, "/translate/languages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var langs struct {
		Languages    []string                `json:"languages"`
		LoadedModels []translation.ModelSize `json:"loadedModels"`
	}
	decode(t, w, &langs)
	require.Len(t, langs.Languages, 10)
	require.Equal(t, []translation.ModelSize{translation.DefaultModelSize}, langs.LoadedModels)
}

func TestMonitorHandler(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/monitor/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.DashboardStats
	decode(t, w, &stats)
	require.EqualValues(t, 3, stats.TotalMessages)
	require.Equal(t, 2, stats.Connections)

	var clients []model.ClientInfo
	decode(t, f.do(t, http.MethodGet, "/monitor/clients", nil), &clients)
	require.Len(t, clients, 1)
	decode(t, f.do(t, http.MethodGet, "/monitor/clients?authenticated=true", nil), &clients)
	require.Empty(t, clients)
}

func TestRespondError(t *testing.T) {
	router := gin.New()
	router.GET("/", NewMonitorHandler(fakeStats{err: context.DeadlineExceeded}, zap.NewNop()).GetHubStats)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, "internal server error", resp.Message)
}
