package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeTelegram is a minimal Bot API: getMe and sendMessage.
type fakeTelegram struct {
	mu       sync.Mutex
	sent     []map[string]string
	failSend bool
}

func (f *fakeTelegram) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !strings.HasPrefix(r.URL.Path, "/bottest-token/") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
			return
		}

		switch strings.TrimPrefix(r.URL.Path, "/bottest-token/") {
		case "getMe":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bot","username":"status_bot"}}`))
		case "sendMessage":
			if err := r.ParseForm(); err != nil {
				t.Errorf("ParseForm() error = %v", err)
			}
			f.mu.Lock()
			f.sent = append(f.sent, map[string]string{
				"chat_id": r.PostForm.Get("chat_id"),
				"text":    r.PostForm.Get("text"),
			})
			fail := f.failSend
			f.mu.Unlock()

			if fail {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":10,"date":1700000000,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	})
}

func newFakeTelegram(t *testing.T) (*fakeTelegram, *httptest.Server) {
	t.Helper()
	fake := &fakeTelegram{}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	return fake, server
}

func TestTelegramMessenger_Send(t *testing.T) {
	fake, server := newFakeTelegram(t)

	m, err := NewTelegramMessenger("test-token", "42", TransportOptions{APIURL: server.URL + "/bot%s/%s"})
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), "Работ на проверке нет."))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "42", fake.sent[0]["chat_id"])
	assert.Equal(t, "Работ на проверке нет.", fake.sent[0]["text"])
}

func TestTelegramMessenger_Send_ChannelUsername(t *testing.T) {
	fake, server := newFakeTelegram(t)

	m, err := NewTelegramMessenger("test-token", "@reviews", TransportOptions{APIURL: server.URL + "/bot%s/%s"})
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), "hi"))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "@reviews", fake.sent[0]["chat_id"])
}

func TestTelegramMessenger_Send_APIError(t *testing.T) {
	fake, server := newFakeTelegram(t)
	fake.failSend = true

	m, err := NewTelegramMessenger("test-token", "42", TransportOptions{APIURL: server.URL + "/bot%s/%s"})
	require.NoError(t, err)

	err = m.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestNewTelegramMessenger_BadToken(t *testing.T) {
	_, server := newFakeTelegram(t)

	_, err := NewTelegramMessenger("wrong", "42", TransportOptions{APIURL: server.URL + "/bot%s/%s"})
	assert.Error(t, err)
}

func TestNewTelegramMessenger_BadTokenNotInError(t *testing.T) {
	_, server := newFakeTelegram(t)

	_, err := NewTelegramMessenger("wrong-secret", "42", TransportOptions{APIURL: server.URL + "/bot%s/%s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
	assert.NotContains(t, err.Error(), "wrong-secret")
}

func TestNewTelegramMessenger_UnreachableAPI(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	apiURL := server.URL + "/bot%s/%s"
	server.Close()

	core, logs := observer.New(zap.WarnLevel)
	m, err := NewTelegramMessenger("123:secret", "42", TransportOptions{APIURL: apiURL, Logger: zap.New(core)})
	require.NoError(t, err, "a transport failure at startup must not be fatal")
	require.NotNil(t, m)

	entries := logs.FilterMessage("telegram getMe failed, bot token not verified").All()
	require.Len(t, entries, 1)
	logged := entries[0].ContextMap()["error"]
	assert.NotContains(t, logged, "123:secret")
	assert.Contains(t, logged, redacted)
}

func TestNewTelegramMessenger_ServerErrorNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewTelegramMessenger("test-token", "42", TransportOptions{APIURL: server.URL + "/bot%s/%s"})
	assert.NoError(t, err)
}

func TestTelegramMessenger_Send_TransportErrorHidesToken(t *testing.T) {
	_, server := newFakeTelegram(t)

	m, err := NewTelegramMessenger("test-token", "42", TransportOptions{APIURL: server.URL + "/bot%s/%s"})
	require.NoError(t, err)
	server.Close()

	err = NewNotifier(m, nil).Notify(context.Background(), "hi")
	require.Error(t, err)

	var sendErr *SendMessageError
	require.ErrorAs(t, err, &sendErr)
	assert.NotContains(t, err.Error(), "test-token")
	assert.Contains(t, err.Error(), "/bot"+redacted+"/sendMessage")
}

func TestRedactToken(t *testing.T) {
	cause := errors.New("connection refused")
	urlErr := &url.Error{Op: "Post", URL: "https://api.telegram.org/bot123:abc/sendMessage", Err: cause}

	got := redactToken(urlErr, "123:abc")
	assert.NotContains(t, got.Error(), "123:abc")
	assert.ErrorIs(t, got, cause, "the cause stays reachable")

	plain := errors.New("token 123:abc refused")
	assert.Equal(t, "token "+redacted+" refused", redactToken(plain, "123:abc").Error())

	assert.Same(t, cause, redactToken(cause, "123:abc"))
	assert.Nil(t, redactToken(nil, "123:abc"))
}

func TestNewTelegramMessenger_EmptyChat(t *testing.T) {
	_, err := NewTelegramMessenger("test-token", " ", TransportOptions{})
	assert.Error(t, err)
}

type stubSender struct {
	got []tgbotapi.Chattable
	err error
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.got = append(s.got, c)
	return tgbotapi.Message{}, s.err
}

func TestTelegramMessenger_Send_CancelledContext(t *testing.T) {
	sender := &stubSender{}
	m := &TelegramMessenger{bot: sender, chat: "42"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Send(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.got)
}

func TestTelegramMessenger_Send_WrapsSenderError(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	m := &TelegramMessenger{bot: &stubSender{err: cause}, token: "test-token", chat: "42"}

	err := m.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "42")
}
