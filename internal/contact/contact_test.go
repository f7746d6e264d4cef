package contact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Zachkp/folio/internal/store"
)

var sample = Submission{Name: "Ada Lovelace", Email: "ada@example.com", Message: "Hello there"}

func TestFormRelaySuccess(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		got = r.Header.Clone()
		assert.Equal(t, "Ada Lovelace", r.PostForm.Get("name"))
		assert.Equal(t, "ada@example.com", r.PostForm.Get("_replyto"))
		assert.Equal(t, "Hello there", r.PostForm.Get("message"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	err := NewFormRelay(srv.URL, time.Second).Send(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", got.Get("Content-Type"))
}

func TestFormRelayNon2xxIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "form disabled", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewFormRelay(srv.URL, time.Second).Send(context.Background(), sample)
	var relayErr *RelayError
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, http.StatusForbidden, relayErr.Status)
	assert.Equal(t, "form disabled", relayErr.Body)
}

func TestFormRelayNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewFormRelay(url, time.Second).Send(context.Background(), sample)
	assert.Error(t, err)
}

func TestSMTPRelayComposesMail(t *testing.T) {
	var addr string
	var msg []byte
	r := NewSMTPRelay("smtp.example.com", "587", "me@example.com", "secret", "inbox@example.com")
	r.send = func(a string, _ smtp.Auth, from string, to []string, m []byte) error {
		addr, msg = a, m
		assert.Equal(t, "me@example.com", from)
		assert.Equal(t, []string{"inbox@example.com"}, to)
		return nil
	}

	require.NoError(t, r.Send(context.Background(), sample))
	assert.Equal(t, "smtp.example.com:587", addr)
	assert.Contains(t, string(msg), "Subject: Portfolio Contact: Ada Lovelace\r\n")
	assert.Contains(t, string(msg), "Reply-To: ada@example.com\r\n")
}

func TestSMTPRelayNeedsCredentials(t *testing.T) {
	r := NewSMTPRelay("smtp.example.com", "587", "", "", "inbox@example.com")
	assert.Error(t, r.Send(context.Background(), sample))
}

type memRecorder struct{ msgs []store.Message }

func (m *memRecorder) SaveMessage(_ context.Context, msg store.Message) error {
	m.msgs = append(m.msgs, msg)
	return nil
}

type failingRelay struct{ err error }

func (failingRelay) Name() string                             { return "broken" }
func (f failingRelay) Send(context.Context, Submission) error { return f.err }

func TestServiceRecordsSuccess(t *testing.T) {
	rec := &memRecorder{}
	svc := NewService(&LogRelay{Logger: zap.NewNop()}, rec, zap.NewNop())

	msg, err := svc.Submit(context.Background(), Submission{
		Name: "  Ada\r\nBcc: x@example.com ", Email: "ada@example.com", Message: " hi ",
	})
	require.NoError(t, err)
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, store.StatusSent, rec.msgs[0].Status)
	assert.Equal(t, "Ada  Bcc: x@example.com", msg.Name, "header injection neutralised")
	assert.Equal(t, "hi", msg.Body)
	assert.NotEmpty(t, msg.ID)
}

func TestServiceSurfacesRelayFailure(t *testing.T) {
	rec := &memRecorder{}
	boom := errors.New("boom")
	svc := NewService(failingRelay{err: boom}, rec, zap.NewNop())

	_, err := svc.Submit(context.Background(), sample)
	assert.ErrorIs(t, err, boom)
	require.Len(t, rec.msgs, 1)
	assert.Equal(t, store.StatusFailed, rec.msgs[0].Status)
	assert.Equal(t, "boom", rec.msgs[0].Error)
}

func TestServiceRejectsBlankFields(t *testing.T) {
	rec := &memRecorder{}
	relayed := false
	svc := NewService(relayFunc(func(Submission) { relayed = true }), rec, zap.NewNop())

	for _, s := range []Submission{
		{Name: "   ", Email: "ada@example.com", Message: "hi"},
		{Name: "Ada", Email: "ada@example.com", Message: "\n\t "},
		{Name: "\r\n", Email: "ada@example.com", Message: "hi"},
	} {
		_, err := svc.Submit(context.Background(), s)
		assert.ErrorIs(t, err, ErrIncomplete)
	}
	assert.False(t, relayed)
	assert.Empty(t, rec.msgs)
}

type relayFunc func(Submission)

func (relayFunc) Name() string { return "func" }

func (f relayFunc) Send(_ context.Context, s Submission) error {
	f(s)
	return nil
}
