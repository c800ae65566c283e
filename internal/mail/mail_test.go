package mail

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"identity-registration/internal/user/domain"
)

type welcomeData struct {
	User             *domain.User
	ConfirmationLink string
}

func mustTemplates(t *testing.T) *Templates {
	t.Helper()
	tpl, err := LoadTemplates()
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}
	return tpl
}

func TestRender_Welcome(t *testing.T) {
	tpl := mustTemplates(t)
	u := &domain.User{Email: "ann@example.com"}

	msg, err := tpl.Render("Welcome", u.Email, TemplateWelcome, welcomeData{User: u, ConfirmationLink: "https://x/confirm/tok"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if msg.To != "ann@example.com" || msg.Subject != "Welcome" {
		t.Errorf("msg = %+v", msg)
	}
	if !strings.Contains(msg.HTML, `href="https://x/confirm/tok"`) {
		t.Errorf("HTML missing confirmation link: %s", msg.HTML)
	}
	if !strings.Contains(msg.Text, "https://x/confirm/tok") {
		t.Errorf("Text missing confirmation link: %s", msg.Text)
	}

	msg, err = tpl.Render("Welcome", u.Email, TemplateWelcome, welcomeData{User: u})
	if err != nil {
		t.Fatalf("Render without link: %v", err)
	}
	if strings.Contains(msg.HTML, "Confirm my account") || strings.Contains(msg.Text, "confirm your email") {
		t.Errorf("message without link should not mention confirmation: %+v", msg)
	}
	if msg.Text != "Welcome ann@example.com!" {
		t.Errorf("Text = %q", msg.Text)
	}
}

func TestRender_EscapesHTML(t *testing.T) {
	tpl := mustTemplates(t)
	u := &domain.User{Email: "<b>@example.com"}
	msg, err := tpl.Render("Welcome", u.Email, TemplateWelcome, welcomeData{User: u})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(msg.HTML, "<b>") {
		t.Errorf("HTML should escape user input: %s", msg.HTML)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := mustTemplates(t).Render("s", "a@b.c", "missing", nil)
	if !errors.Is(err, ErrUnknownTemplate) {
		t.Fatalf("err = %v, want ErrUnknownTemplate", err)
	}
}

func TestAPIClient_Send(t *testing.T) {
	var got Message
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("Authorization = %q, want Bearer key", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c := NewAPIClient("key", server.URL, "shop@example.com", mustTemplates(t))
	u := &domain.User{Email: "ann@example.com"}
	if err := c.Send(context.Background(), "Welcome", u.Email, TemplateWelcome, welcomeData{User: u}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.From != "shop@example.com" || got.To != "ann@example.com" || got.Subject != "Welcome" {
		t.Errorf("posted message = %+v", got)
	}
}

func TestAPIClient_Send_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()
	u := &domain.User{Email: "ann@example.com"}
	data := welcomeData{User: u}

	tests := []struct {
		name    string
		client  *APIClient
		wantErr string
	}{
		{"no url", NewAPIClient("key", "", "s", mustTemplates(t)), "not configured"},
		{"bad status", NewAPIClient("key", server.URL, "s", mustTemplates(t)), "status=502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.client.Send(context.Background(), "Welcome", u.Email, TemplateWelcome, data)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Send err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLogMailer_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := LogMailer{Logger: zap.New(core), Templates: mustTemplates(t)}
	u := &domain.User{Email: "ann@example.com"}
	if err := m.Send(context.Background(), "Welcome", u.Email, TemplateWelcome, welcomeData{User: u}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if to := entries[0].ContextMap()["to"]; to != "ann@example.com" {
		t.Errorf("logged to = %v", to)
	}
}
