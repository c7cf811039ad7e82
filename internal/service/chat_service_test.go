package service

import (
	"LingoChat/internal/bot"
	"LingoChat/internal/model"
	"LingoChat/internal/repo"
	"LingoChat/internal/translation"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fixedDetector string

func (d fixedDetector) Detect(string) string { return string(d) }

type fakeBot struct {
	reply *string
	calls []string
}

func (b *fakeBot) Query(_ context.Context, text, _ string) bot.Reply {
	b.calls = append(b.calls, text)
	return bot.Reply{Reply: b.reply}
}

type failingLoader struct{}

func (failingLoader) Load(context.Context, translation.ModelSize) (translation.Translator, error) {
	return nil, errors.New("model server unavailable")
}

type recordingTranslator struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingTranslator) Translate(ctx context.Context, text, sourceLang, targetLang, modelSize string) translation.Result {
	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
	return translation.Result{Translated: "<" + targetLang + ">" + text, SourceLang: sourceLang, TargetLang: targetLang}
}

type fixture struct {
	svc    ChatService
	convs  repo.ConversationRepository
	msgs   repo.MessageRepository
	bot    *fakeBot
	engine Translator
}

func newFixture(t *testing.T, engine Translator) *fixture {
	t.Helper()
	if engine == nil {
		engine = translation.NewEngine(translation.NewStubProvider(nil), zap.NewNop())
	}
	f := &fixture{
		convs:  repo.NewMemoryConversationRepository(),
		msgs:   repo.NewMemoryMessageRepository(),
		bot:    &fakeBot{},
		engine: engine,
	}
	f.svc = NewChatService(f.convs, f.msgs, fixedDetector("en"), engine, f.bot, Config{}, zap.NewNop())
	return f
}

func ptr(s string) *string { return &s }

func TestCreateChat(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	chat, err := f.svc.CreateChat(ctx, "u1", "u2")
	require.NoError(t, err)
	require.Equal(t, []string{"u1", "u2"}, chat.Participants)

	conv, err := f.convs.FindByID(ctx, chat.ConversationID)
	require.NoError(t, err)
	require.EqualValues(t, 0, conv.UnreadCounts.For("u1"))
	require.EqualValues(t, 0, conv.UnreadCounts.For("u2"))
	require.Len(t, conv.UnreadCounts, 2)

	for _, pair := range [][2]string{{"", "u2"}, {"u1", ""}, {"u1", "u1"}} {
		_, err := f.svc.CreateChat(ctx, pair[0], pair[1])
		require.Equal(t, ErrorValidation, CodeOf(err))
	}
}

func TestSendMessage_TranslatesAndCountsUnread(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	chat, err := f.svc.CreateChat(ctx, "u1", "u2")
	require.NoError(t, err)

	msg, err := f.svc.SendMessage(ctx, SendInput{
		SenderID:       "u1",
		ReceiverID:     "u2",
		ConversationID: chat.ConversationID,
		Text:           "Hello",
		TargetLang:     "fr",
	})
	require.NoError(t, err)
	require.Equal(t, "en", msg.SourceLang)
	require.Equal(t, "fr", msg.TargetLang)
	require.Equal(t, "Bonjour", msg.TranslatedText)
	require.Equal(t, model.MessageStatusActive, msg.Status)
	require.Equal(t, chat.ConversationID, msg.ConversationID.Hex())

	conv, err := f.convs.FindByID(ctx, chat.ConversationID)
	require.NoError(t, err)
	require.EqualValues(t, 1, conv.UnreadCounts.For("u2"))
	require.EqualValues(t, 0, conv.UnreadCounts.For("u1"))
	require.NotNil(t, conv.LastMessage)
	require.Equal(t, "Hello", conv.LastMessage.Text)
	require.Equal(t, "Bonjour", conv.LastMessage.TranslatedText)
	require.Equal(t, "u1", conv.LastMessage.SenderID)
}

func TestSendMessage_EngineUnavailableKeepsText(t *testing.T) {
	f := newFixture(t, translation.NewEngine(failingLoader{}, zap.NewNop()))
	ctx := context.Background()

	chat, err := f.svc.CreateChat(ctx, "u1", "u2")
	require.NoError(t, err)

	msg, err := f.svc.SendMessage(ctx, SendInput{
		SenderID: "u1", ReceiverID: "u2", ConversationID: chat.ConversationID,
		Text: "Hello", TargetLang: "fr",
	})
	require.NoError(t, err)
	require.Equal(t, "Hello", msg.TranslatedText)
	require.Equal(t, "fr", msg.TargetLang)
}

func TestSendMessage_NoTargetLang(t *testing.T) {
	tr := &recordingTranslator{}
	f := newFixture(t, tr)
	ctx := context.Background()

	msg, err := f.svc.SendMessage(ctx, SendInput{SenderID: "u1", ReceiverID: "u2", Text: "Hello"})
	require.NoError(t, err)
	require.Equal(t, "Hello", msg.TranslatedText)
	require.Equal(t, "en", msg.TargetLang)

	msg, err = f.svc.SendMessage(ctx, SendInput{SenderID: "u1", ReceiverID: "u2", Text: "Hello", TargetLang: "en"})
	require.NoError(t, err)
	require.Equal(t, "Hello", msg.TranslatedText)
	require.Empty(t, tr.texts)
}

func TestSendMessage_CreatesConversationWhenMissing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, id := range []string{"", "not-an-id", primitive.NewObjectID().Hex()} {
		msg, err := f.svc.SendMessage(ctx, SendInput{SenderID: "u1", ReceiverID: "u2", ConversationID: id, Text: "hi"})
		require.NoError(t, err)
		require.NotEqual(t, id, msg.ConversationID.Hex())

		conv, err := f.convs.FindByID(ctx, msg.ConversationID.Hex())
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"u1", "u2"}, conv.Participants)
		require.EqualValues(t, 1, conv.UnreadCounts.For("u2"))
	}
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	chat, err := f.svc.CreateChat(ctx, "u1", "u2")
	require.NoError(t, err)

	cases := []SendInput{
		{SenderID: "", ReceiverID: "u2", Text: "hi"},
		{SenderID: "u1", ReceiverID: "", Text: "hi"},
		{SenderID: "u1", ReceiverID: "u2", Text: "   "},
		{SenderID: "u1", ReceiverID: "u1", ConversationID: chat.ConversationID, Text: "hi"},
	}
	for _, in := range cases {
		_, err := f.svc.SendMessage(ctx, in)
		require.Equal(t, ErrorValidation, CodeOf(err), "%+v", in)
	}

	n, err := f.msgs.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, n)
}

func TestSendMessage_BotReplyIsTranslated(t *testing.T) {
	tr := &recordingTranslator{}
	f := newFixture(t, tr)
	f.bot.reply = ptr("How can I help?")
	ctx := context.Background()

	msg, err := f.svc.SendMessage(ctx, SendInput{
		SenderID: "u1", ReceiverID: model.BotParticipantID, Text: "help", TargetLang: "fr",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"help"}, f.bot.calls)
	require.Equal(t, []string{"How can I help?"}, tr.texts)
	require.Equal(t, "<fr>How can I help?", msg.TranslatedText)
}

func TestSendMessage_BotReplyInNativeLanguage(t *testing.T) {
	tr := &recordingTranslator{}
	f := newFixture(t, tr)
	f.bot.reply = ptr("How can I help?")

	msg, err := f.svc.SendMessage(context.Background(), SendInput{
		SenderID: "u1", ReceiverID: model.BotParticipantID, Text: "help", TargetLang: "en",
	})
	require.NoError(t, err)
	require.Equal(t, "How can I help?", msg.TranslatedText)
	require.Empty(t, tr.texts)
}

func TestSendMessage_BotReplyTranslationFails(t *testing.T) {
	f := newFixture(t, translation.NewEngine(failingLoader{}, zap.NewNop()))
	f.bot.reply = ptr("How can I help?")

	msg, err := f.svc.SendMessage(context.Background(), SendInput{
		SenderID: "u1", ReceiverID: model.BotParticipantID, Text: "help", TargetLang: "fr",
	})
	require.NoError(t, err)
	require.Equal(t, "How can I help?", msg.TranslatedText)
}

func TestSendMessage_BotUnavailable(t *testing.T) {
	tr := &recordingTranslator{}
	f := newFixture(t, tr)

	msg, err := f.svc.SendMessage(context.Background(), SendInput{
		SenderID: "u1", ReceiverID: model.BotParticipantID, Text: "help", TargetLang: "fr",
	})
	require.NoError(t, err)
	require.Equal(t, "help", msg.TranslatedText)
	require.Empty(t, tr.texts)
}

func TestSendMessage_BlankBotReplyFallsBackToText(t *testing.T) {
	for _, reply := range []string{"", "   "} {
		tr := &recordingTranslator{}
		f := newFixture(t, tr)
		f.bot.reply = ptr(reply)

		msg, err := f.svc.SendMessage(context.Background(), SendInput{
			SenderID: "u1", ReceiverID: model.BotParticipantID, Text: "help", TargetLang: "fr",
		})
		require.NoError(t, err)
		require.Equal(t, "help", msg.TranslatedText)
		require.Empty(t, tr.texts)
	}
}

func TestSendMessage_BotAddressedFromHumanConversation(t *testing.T) {
	for _, tc := range []struct {
		name   string
		engine Translator
		want   string
	}{
		{"translated reply", nil, "Bonjour"},
		{"translation fails", translation.NewEngine(failingLoader{}, zap.NewNop()), "Hello"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.engine)
			f.bot.reply = ptr("Hello")
			ctx := context.Background()

			chat, err := f.svc.CreateChat(ctx, "u1", "u2")
			require.NoError(t, err)

			msg, err := f.svc.SendMessage(ctx, SendInput{
				SenderID: "u1", ReceiverID: model.BotParticipantID, ConversationID: chat.ConversationID,
				Text: "help", TargetLang: "fr",
			})
			require.NoError(t, err)
			require.Equal(t, []string{"help"}, f.bot.calls)
			require.Equal(t, chat.ConversationID, msg.ConversationID.Hex())
			require.Equal(t, tc.want, msg.TranslatedText)

			conv, err := f.convs.FindByID(ctx, chat.ConversationID)
			require.NoError(t, err)
			require.Equal(t, []string{"u1", "u2"}, conv.Participants)
			require.Len(t, conv.UnreadCounts, 2)
			require.EqualValues(t, 0, conv.UnreadCounts.For("u2"))
			require.EqualValues(t, 0, conv.UnreadCounts.For(model.BotParticipantID))
			require.NotNil(t, conv.LastMessage)
			require.Equal(t, "help", conv.LastMessage.Text)
			require.Equal(t, msg.CreatedAt, conv.UpdatedAt)

			history, err := f.svc.ExportConversation(ctx, chat.ConversationID)
			require.NoError(t, err)
			require.Len(t, history, 1)
		})
	}
}

func TestSendMessage_ConcurrentSendersKeepEveryIncrement(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	chat, err := f.svc.CreateChat(ctx, "u1", "u2")
	require.NoError(t, err)

	const sends = 40
	errs := make(chan error, sends)
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.SendMessage(ctx, SendInput{
				SenderID: "u1", ReceiverID: "u2", ConversationID: chat.ConversationID,
				Text: fmt.Sprintf("message %d", i),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	chats, err := f.svc.GetChats(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.EqualValues(t, sends, chats[0].UnreadCount)
}

func TestGetChats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.CreateChat(ctx, "u1", "u2")
	require.NoError(t, err)
	second, err := f.svc.CreateChat(ctx, "u1", "u3")
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	_, err = f.svc.SendMessage(ctx, SendInput{SenderID: "u2", ReceiverID: "u1", ConversationID: first.ConversationID, Text: "ping"})
	require.NoError(t, err)

	chats, err := f.svc.GetChats(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	require.Equal(t, first.ConversationID, chats[0].ID.Hex())
	require.EqualValues(t, 1, chats[0].UnreadCount)
	require.Equal(t, second.ConversationID, chats[1].ID.Hex())
	require.EqualValues(t, 0, chats[1].UnreadCount)

	for _, c := range chats {
		require.Equal(t, c.UnreadCounts.For("u1"), c.UnreadCount)
	}

	_, err = f.svc.GetChats(ctx, "")
	require.Equal(t, ErrorValidation, CodeOf(err))
}

func TestEndConversation_Idempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	chat, err := f.svc.CreateChat(ctx, "u1", "u2")
	require.NoError(t, err)
	for _, text := range []string{"one", "two"} {
		_, err := f.svc.SendMessage(ctx, SendInput{SenderID: "u1", ReceiverID: "u2", ConversationID: chat.ConversationID, Text: text})
		require.NoError(t, err)
	}

	first, err := f.svc.EndConversation(ctx, chat.ConversationID)
	require.NoError(t, err)
	require.EqualValues(t, 2, first.MessagesEnded)
	require.False(t, first.ClosedAt.IsZero())

	time.Sleep(2 * time.Millisecond)
	second, err := f.svc.EndConversation(ctx, chat.ConversationID)
	require.NoError(t, err)
	require.EqualValues(t, 0, second.MessagesEnded)
	require.Equal(t, first.ClosedAt, second.ClosedAt)

	msgs, err := f.svc.ExportConversation(ctx, chat.ConversationID)
	require.NoError(t, err)
	for _, m := range msgs {
		require.Equal(t, model.MessageStatusEnded, m.Status)
	}

	_, err = f.svc.EndConversation(ctx, primitive.NewObjectID().Hex())
	require.Equal(t, ErrorNotFound, CodeOf(err))
}

func TestExportConversation_Ordered(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	chat, err := f.svc.CreateChat(ctx, "u1", "u2")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := f.svc.SendMessage(ctx, SendInput{
			SenderID: "u1", ReceiverID: "u2", ConversationID: chat.ConversationID,
			Text: fmt.Sprintf("m%d", i),
		})
		require.NoError(t, err)
	}

	msgs, err := f.svc.ExportConversation(ctx, chat.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i := 1; i < len(msgs); i++ {
		require.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}

	_, err = f.svc.ExportConversation(ctx, "bogus")
	require.Equal(t, ErrorNotFound, CodeOf(err))
	_, err = f.svc.ExportConversation(ctx, "")
	require.Equal(t, ErrorValidation, CodeOf(err))
}

func TestResetUnread(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	chat, err := f.svc.CreateChat(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, SendInput{SenderID: "u1", ReceiverID: "u2", ConversationID: chat.ConversationID, Text: "hi"})
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetUnread(ctx, chat.ConversationID, "u2"))
	conv, err := f.convs.FindByID(ctx, chat.ConversationID)
	require.NoError(t, err)
	require.EqualValues(t, 0, conv.UnreadCounts.For("u2"))

	require.Equal(t, ErrorValidation, CodeOf(f.svc.ResetUnread(ctx, chat.ConversationID, "u9")))
	require.Equal(t, ErrorNotFound, CodeOf(f.svc.ResetUnread(ctx, primitive.NewObjectID().Hex(), "u2")))
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	a, err := f.svc.CreateChat(ctx, "u1", "u2")
	require.NoError(t, err)
	_, err = f.svc.CreateChat(ctx, "u1", "u3")
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, SendInput{SenderID: "u1", ReceiverID: "u2", ConversationID: a.ConversationID, Text: "hi"})
	require.NoError(t, err)
	_, err = f.svc.EndConversation(ctx, a.ConversationID)
	require.NoError(t, err)

	stats, err := f.svc.DashboardStats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.TotalConversations)
	require.EqualValues(t, 1, stats.ClosedConversations)
	require.EqualValues(t, 1, stats.ActiveConversations)
	require.EqualValues(t, 1, stats.TotalMessages)
	require.Equal(t, []model.LanguageCount{{Lang: "en", Count: 1}}, stats.LanguageUsage)
	require.False(t, stats.GeneratedAt.IsZero())
}
