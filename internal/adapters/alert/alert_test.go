package alert

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/repovault/internal/domain"
	"github.com/bft-labs/repovault/internal/ports"
)

func TestShouldSend(t *testing.T) {
	cases := []struct {
		policy Policy
		level  domain.AlertLevel
		want   bool
	}{
		{PolicyErrors, domain.AlertSuccess, false},
		{PolicyErrors, domain.AlertWarning, false},
		{PolicyErrors, domain.AlertError, true},
		{PolicyWarnings, domain.AlertSuccess, false},
		{PolicyWarnings, domain.AlertWarning, true},
		{PolicyWarnings, domain.AlertError, true},
		{PolicyAll, domain.AlertSuccess, true},
		{PolicyAll, domain.AlertWarning, true},
		{PolicyAll, domain.AlertError, true},
	}
	for _, tc := range cases {
		got := shouldSend(tc.policy, tc.level)
		assert.Equal(t, tc.want, got, "policy=%s level=%s", tc.policy, tc.level)
	}
}

type recordingAlerter struct {
	name string
	sent int
	err  error
}

func (r *recordingAlerter) Name() string { return r.name }

func (r *recordingAlerter) Send(context.Context, domain.RunSummary) error {
	r.sent++
	return r.err
}

func TestManagerDispatchesToAllChannels(t *testing.T) {
	a := &recordingAlerter{name: "webhook"}
	b := &recordingAlerter{name: "teams", err: io.ErrUnexpectedEOF}
	c := &recordingAlerter{name: "email"}

	m := NewManager(PolicyAll, []ports.Alerter{a, b, c}, nil)
	m.Dispatch(context.Background(), domain.RunSummary{Owner: "acme"})

	assert.Equal(t, 1, a.sent)
	assert.Equal(t, 1, b.sent)
	assert.Equal(t, 1, c.sent, "one failing channel must not block the rest")
}

func TestManagerSuppressesBelowPolicy(t *testing.T) {
	a := &recordingAlerter{name: "webhook"}

	m := NewManager(PolicyErrors, []ports.Alerter{a}, nil)
	m.Dispatch(context.Background(), domain.RunSummary{Owner: "acme", BackedUp: 3})

	assert.Equal(t, 0, a.sent)
}

func TestWebhookSendSignsBody(t *testing.T) {
	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "topsecret", nil)
	summary := domain.RunSummary{
		BackupID: "2024-06-01_02-00-00",
		Owner:    "acme",
		Total:    5,
		BackedUp: 4,
		Skipped:  1,
	}
	require.NoError(t, w.Send(context.Background(), summary))

	mac := hmac.New(sha256.New, []byte("topsecret"))
	mac.Write(gotBody)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), gotSig)

	var payload webhookPayload
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "backup_completed", payload.Event)
	assert.Equal(t, "success", payload.Level)
	assert.Equal(t, 4, payload.BackedUp)
}

func TestWebhookSendRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "", nil)
	err := w.Send(context.Background(), domain.RunSummary{Owner: "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestTeamsSendBuildsMessageCard(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	tm := NewTeams(srv.URL, nil)
	summary := domain.RunSummary{
		BackupID: "2024-06-01_02-00-00",
		Owner:    "acme",
		Errors:   []string{"acme/widgets: clone failed"},
	}
	require.NoError(t, tm.Send(context.Background(), summary))

	var card messageCard
	require.NoError(t, json.Unmarshal(gotBody, &card))
	assert.Equal(t, "MessageCard", card.Type)
	assert.Equal(t, levelColor(domain.AlertError), card.ThemeColor)
	require.Len(t, card.Sections, 1)
	assert.Contains(t, card.Sections[0].Text, "clone failed")
}

func TestRenderTextIncludesErrorsAndWarnings(t *testing.T) {
	text := renderText(domain.RunSummary{
		BackupID:  "2024-06-01_02-00-00",
		Owner:     "acme",
		StartedAt: time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC),
		Duration:  90 * time.Second,
		Total:     3,
		BackedUp:  1,
		Failed:    1,
		Skipped:   1,
		Errors:    []string{"acme/widgets: clone failed"},
		Warnings:  []string{"remote state sync failed"},
	})

	assert.Contains(t, text, "3 total, 1 backed up, 1 skipped, 1 failed")
	assert.Contains(t, text, "acme/widgets: clone failed")
	assert.Contains(t, text, "remote state sync failed")
	assert.Contains(t, text, "1m30s")
}
