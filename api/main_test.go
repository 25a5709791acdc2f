package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/bounty-radar/internal/alert"
	"github.com/DeafMist/bounty-radar/internal/config"
	"github.com/DeafMist/bounty-radar/internal/dedupe"
	"github.com/DeafMist/bounty-radar/internal/elasticsearch"
	"github.com/DeafMist/bounty-radar/internal/notify"
	"github.com/DeafMist/bounty-radar/internal/scraper"
)

const listingPage = `<html><body>
<ul>
<li>
<a href="/bounties/@alice/discord-bot">Build a Discord bot</a>
<span>$1,200</span>
</li>
</ul>
</body></html>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.API {
	return &config.API{DefaultPage: 20, MaxPage: 100}
}

type stubRunner struct {
	result   alert.Result
	triggers []string
	panics   bool
}

func (s *stubRunner) Run(_ context.Context, trigger string) alert.Result {
	if s.panics {
		panic("boom")
	}
	s.triggers = append(s.triggers, trigger)
	return s.result
}

func (s *stubRunner) Preview(context.Context) alert.Preview {
	return alert.Preview{Status: alert.StatusSuccess, BountiesFound: 2, HighestValue: 900}
}

type stubArchive struct {
	params elasticsearch.SearchParams
	err    error
}

func (s *stubArchive) SearchBounties(_ context.Context, p elasticsearch.SearchParams) (*elasticsearch.SearchResult, error) {
	s.params = p
	if s.err != nil {
		return nil, s.err
	}
	return &elasticsearch.SearchResult{Total: 1}, nil
}

func (s *stubArchive) Health(context.Context) error { return s.err }

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestDocs(t *testing.T) {
	srv := &server{log: discardLogger(), cfg: testConfig(), alerts: &stubRunner{}}
	rec, body := do(t, srv.routes(), http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "active", body["status"])
	require.Contains(t, body["endpoints"], "/api/manual")
}

func TestTestEndpoint(t *testing.T) {
	srv := &server{log: discardLogger(), cfg: testConfig(), alerts: &stubRunner{}}
	rec, body := do(t, srv.routes(), http.MethodGet, "/api/test")

	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 2, body["bounties_found"])
	require.EqualValues(t, 900, body["highest_value"])
}

func TestTriggerStatusCodes(t *testing.T) {
	tests := []struct {
		status string
		code   int
	}{
		{status: alert.StatusSuccess, code: http.StatusOK},
		{status: alert.StatusAlreadySent, code: http.StatusOK},
		{status: alert.StatusNotificationFailed, code: http.StatusOK},
		{status: alert.StatusConfigError, code: http.StatusInternalServerError},
		{status: alert.StatusError, code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			runner := &stubRunner{result: alert.Result{Status: tt.status}}
			srv := &server{log: discardLogger(), cfg: testConfig(), alerts: runner}

			rec, body := do(t, srv.routes(), http.MethodPost, "/api/manual")
			require.Equal(t, tt.code, rec.Code)
			require.Equal(t, tt.status, body["status"])
		})
	}
}

func TestCronMatchesManual(t *testing.T) {
	runner := &stubRunner{result: alert.Result{Status: alert.StatusSuccess}}
	srv := &server{log: discardLogger(), cfg: testConfig(), alerts: runner}
	h := srv.routes()

	do(t, h, http.MethodPost, "/api/manual")
	do(t, h, http.MethodPost, "/api/cron")
	require.Equal(t, []string{alert.TriggerManual, alert.TriggerCron}, runner.triggers)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cron", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTriggerPanicBecomesError(t *testing.T) {
	srv := &server{log: discardLogger(), cfg: testConfig(), alerts: &stubRunner{panics: true}}
	rec, body := do(t, srv.routes(), http.MethodPost, "/api/manual")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, alert.StatusError, body["status"])
}

func TestArchiveDisabled(t *testing.T) {
	srv := &server{log: discardLogger(), cfg: testConfig(), alerts: &stubRunner{}}
	rec, _ := do(t, srv.routes(), http.MethodGet, "/bounties")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = do(t, srv.routes(), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestArchiveSearchParams(t *testing.T) {
	archive := &stubArchive{}
	srv := &server{log: discardLogger(), cfg: testConfig(), alerts: &stubRunner{}, archive: archive}

	rec, body := do(t, srv.routes(), http.MethodGet, "/bounties?q=bot&trigger=cron&min_value=250&size=500&start=2024-01-01T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body["total"])

	require.Equal(t, "bot", archive.params.Query)
	require.Equal(t, "cron", archive.params.Trigger)
	require.Equal(t, 250.0, archive.params.MinValue)
	require.Equal(t, 100, archive.params.Size)
	require.NotNil(t, archive.params.Start)
	require.Nil(t, archive.params.End)
}

func TestArchiveErrors(t *testing.T) {
	archive := &stubArchive{err: errors.New("cluster red")}
	srv := &server{log: discardLogger(), cfg: testConfig(), alerts: &stubRunner{}, archive: archive}

	rec, _ := do(t, srv.routes(), http.MethodGet, "/bounties")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = do(t, srv.routes(), http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartScheduleRejectsBadExpression(t *testing.T) {
	_, err := startSchedule("every now and then", &stubRunner{}, discardLogger())
	require.Error(t, err)
}

func TestStartScheduleAccepts(t *testing.T) {
	c, err := startSchedule("*/5 * * * *", &stubRunner{}, discardLogger())
	require.NoError(t, err)
	require.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}

func newEndToEnd(t *testing.T, webhook string) http.Handler {
	t.Helper()
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(listingPage))
	}))
	t.Cleanup(page.Close)

	svc := alert.NewService(
		alert.Config{Recency: 24 * time.Hour},
		scraper.New(page.URL+"/bounties", time.Second, nil),
		notify.NewSlack(webhook, time.Second, nil),
		dedupe.NewCache(10, time.Hour),
		nil,
	)
	srv := &server{log: discardLogger(), cfg: testConfig(), alerts: svc}
	return srv.routes()
}

func TestEndToEndDedupesAcrossCalls(t *testing.T) {
	hits := 0
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	h := newEndToEnd(t, hook.URL)

	rec, body := do(t, h, http.MethodPost, "/api/manual")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, alert.StatusSuccess, body["status"])

	rec, body = do(t, h, http.MethodPost, "/api/cron")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, alert.StatusAlreadySent, body["status"])
	require.Equal(t, 1, hits)
}

func TestEndToEndMissingWebhook(t *testing.T) {
	h := newEndToEnd(t, "")

	rec, body := do(t, h, http.MethodPost, "/api/manual")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, alert.StatusConfigError, body["status"])
}
