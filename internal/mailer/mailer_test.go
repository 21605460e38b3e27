package mailer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/bytedance/sonic"
	"github.com/curaious/workboard/internal/perrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendWithoutAPIKeyIsSoftFailure(t *testing.T) {
	c := NewClient("", "http://127.0.0.1:1", "from@example.com", nil)

	result, err := c.Send(context.Background(), Message{To: []string{"a@x.com"}, Subject: "hi"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, notConfigured, result.Error)
}

func TestSendDeliversToProvider(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_123"}`))
	}))
	defer srv.Close()

	c := NewClient("re_test", srv.URL, "Workboard <noreply@example.com>", srv.Client())
	result, err := c.Send(context.Background(), Message{
		To:      []string{"a@x.com"},
		Subject: "Invitation",
		HTML:    "<p>hello</p>",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "email_123", result.ID)
	assert.Equal(t, []string{"a@x.com"}, got.To)
	assert.Equal(t, "Workboard <noreply@example.com>", got.From)
	assert.Equal(t, "Invitation", got.Subject)
}

func TestSendProviderErrorIsExternalServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"Invalid from address"}`))
	}))
	defer srv.Close()

	c := NewClient("re_test", srv.URL, "bad", srv.Client())
	_, err := c.Send(context.Background(), Message{To: []string{"a@x.com"}, Subject: "s"})
	require.Error(t, err)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeExternalService))
	assert.Contains(t, err.Error(), "Invalid from address")
}

func TestSendRequiresRecipients(t *testing.T) {
	c := NewClient("re_test", "http://127.0.0.1:1", "from@example.com", nil)
	_, err := c.Send(context.Background(), Message{Subject: "s"})
	require.Error(t, err)
	assert.True(t, perrors.HasCode(err, perrors.ErrCodeInvalidRequest))
}

func TestInvitationMessage(t *testing.T) {
	msg := InvitationMessage(Invitation{
		To:          "a@x.com",
		ProjectName: "Roadmap <2026>",
		InviterName: "Alice",
		Permissions: []string{"comment", "view"},
		AcceptURL:   "https://app.example.com/invitations/1",
	})

	assert.Equal(t, []string{"a@x.com"}, msg.To)
	assert.Equal(t, "Alice invited you to Roadmap <2026>", msg.Subject)
	assert.Contains(t, msg.HTML, "Roadmap &lt;2026&gt;")
	assert.Contains(t, msg.HTML, "comment, view")
	assert.True(t, strings.Contains(msg.Text, "https://app.example.com/invitations/1"))
}
