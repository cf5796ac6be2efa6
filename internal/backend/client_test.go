package backend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/carewell/medibot/internal/backend"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*backend.Client, *backend.TokenStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := backend.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	client := backend.New(backend.Config{BaseURL: srv.URL, Tokens: tokens})
	return client, tokens
}

func TestBearerTokenInjected(t *testing.T) {
	var gotAuth string
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"status":"healthy","timestamp":"now"}`))
	})
	tokens.Set("secret-token")

	if _, err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health err: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("unexpected Authorization header: %q", gotAuth)
	}
}

func TestUnauthorizedPurgesToken(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	tokens.Set("stale")

	_, err := client.Health(context.Background())
	if !backend.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if tokens.Token() != "" {
		t.Fatal("token should be cleared after a 401")
	}
}

func TestFetchAudioUnauthorizedPurgesToken(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	tokens.Set("stale")

	_, err := client.FetchAudio(context.Background(), "/media/reply.mp3")
	if !backend.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if tokens.Token() != "" {
		t.Fatal("token should be cleared after a 401 audio fetch")
	}
}

func TestChatTurnRequestShape(t *testing.T) {
	var gotPath, gotBody string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		buf := make([]byte, 256)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.Write([]byte(`{"response":"Can you describe more?","conversation_id":"c1"}`))
	})

	resp, err := client.SendChatMessage(context.Background(), backend.ChatRequest{Message: "I have a fever"})
	if err != nil {
		t.Fatalf("SendChatMessage err: %v", err)
	}
	if gotPath != "/api/chatbot/" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody != `{"message":"I have a fever"}` {
		t.Fatalf("first turn must omit conversation_id, got body %s", gotBody)
	}
	if resp.ReplyText() != "Can you describe more?" {
		t.Fatalf("unexpected reply: %q", resp.ReplyText())
	}
	if resp.ConversationID != "c1" {
		t.Fatalf("unexpected conversation id: %q", resp.ConversationID)
	}
}

func TestReplyTextPriority(t *testing.T) {
	resp := backend.ChatResponse{Message: "second", Reply: "third"}
	if got := resp.ReplyText(); got != "second" {
		t.Fatalf("expected higher-priority field to win, got %q", got)
	}

	lower := backend.ChatResponse{Content: "only content"}
	if got := lower.ReplyText(); got != "only content" {
		t.Fatalf("lower-priority field should be used verbatim, got %q", got)
	}

	vb := backend.VoicebotResponse{BotResponse: "from bot_response"}
	if got := vb.ReplyText(); got != "from bot_response" {
		t.Fatalf("voicebot extraction failed, got %q", got)
	}
}

func TestVoicebotTurnMultipart(t *testing.T) {
	var fields map[string]string
	var audioSize int
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		fields = map[string]string{}
		for name, values := range r.MultipartForm.Value {
			fields[name] = values[0]
		}
		if file, _, err := r.FormFile("audio"); err == nil {
			buf := make([]byte, 64)
			n, _ := file.Read(buf)
			audioSize = n
			file.Close()
		}
		w.Write([]byte(`{"response":"ok","session_id":"s9","status":"active"}`))
	})

	resp, err := client.VoicebotTurn(context.Background(), backend.VoicebotRequest{
		SessionID: "s9",
		Text:      "book me in",
		Action:    backend.VoicebotActionContinue,
		Audio:     []byte{1, 2, 3, 4},
	})
	if err != nil {
		t.Fatalf("VoicebotTurn err: %v", err)
	}
	if fields["session_id"] != "s9" || fields["text"] != "book me in" || fields["action"] != "continue" {
		t.Fatalf("unexpected form fields: %v", fields)
	}
	if audioSize != 4 {
		t.Fatalf("audio part not forwarded, read %d bytes", audioSize)
	}
	if resp.SessionID != "s9" {
		t.Fatalf("unexpected session id: %q", resp.SessionID)
	}
}

func TestEmptyMultipartFieldsOmitted(t *testing.T) {
	var form map[string][]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		form = r.MultipartForm.Value
		w.Write([]byte(`{"text_response":"hi","session_id":"v1"}`))
	})

	if _, err := client.VoiceAssistantTurn(context.Background(), backend.VoiceAssistantRequest{Text: "hello"}); err != nil {
		t.Fatalf("VoiceAssistantTurn err: %v", err)
	}
	if _, ok := form["conversation_id"]; ok {
		t.Fatal("empty conversation_id must be omitted so the backend starts a session")
	}
}

func TestLoginStoresTokenLogoutClears(t *testing.T) {
	client, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/login/":
			w.Write([]byte(`{"token":"tkn","user":{"id":"1","username":"admin","role":"staff"}}`))
		case "/admin/logout/":
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	if _, err := client.Login(context.Background(), backend.LoginRequest{Username: "admin", Password: "pw"}); err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if tokens.Token() != "tkn" {
		t.Fatalf("token not stored, got %q", tokens.Token())
	}

	if err := client.Logout(context.Background()); err == nil {
		t.Fatal("expected logout error from 500")
	}
	if tokens.Token() != "" {
		t.Fatal("token must be cleared even when logout fails")
	}
}

func TestChatHistoryEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chatbot/history/c7/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`))
	})

	msgs, err := client.ChatHistory(context.Background(), "c7")
	if err != nil {
		t.Fatalf("ChatHistory err: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Content != "hello" {
		t.Fatalf("unexpected history: %+v", msgs)
	}
}

func TestTokenStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	first := backend.NewTokenStore(path)
	first.Set("persisted")

	second := backend.NewTokenStore(path)
	if second.Token() != "persisted" {
		t.Fatalf("token not persisted, got %q", second.Token())
	}

	second.Clear()
	third := backend.NewTokenStore(path)
	if third.Token() != "" {
		t.Fatal("cleared token must not survive")
	}
}
