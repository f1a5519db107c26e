package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redigma/partner-dashboard/internal/testutil"
	"github.com/redigma/partner-dashboard/pkg/auth"
	"github.com/redigma/partner-dashboard/pkg/cache"
	"github.com/redigma/partner-dashboard/pkg/upstream"
	"github.com/rs/zerolog"
)

var hidden = []string{"db_system_created_on", "db_pk_pesanan"}

var fixedNow = time.Date(2026, 1, 12, 3, 0, 0, 0, time.UTC)

// testEnv is a dashboard wired to a mock upstream.
type testEnv struct {
	upstream *testutil.MockUpstream
	store    *cache.Store
	sessions *testutil.MemorySessions
	handler  http.Handler
}

type envOption func(*Deps)

func withAuth(creds testutil.StaticCredentials) envOption {
	return func(d *Deps) {
		d.AuthEnabled = true
		d.Authenticator = auth.NewAuthenticator(creds)
	}
}

func newTestEnv(t *testing.T, resp testutil.MockUpstreamResponse, opts ...envOption) *testEnv {
	t.Helper()

	mock := testutil.NewMockUpstream()
	t.Cleanup(mock.Close)
	mock.SetResponse(resp)

	store := cache.NewStore(upstream.New(upstream.DefaultConfig(mock.URL())), cache.WithLogger(zerolog.Nop()))
	sessions := testutil.NewMemorySessions()

	deps := Deps{
		Rows:          store,
		DateColumn:    DefaultDateColumn,
		HiddenColumns: hidden,
		Sessions:      sessions,
		Logger:        zerolog.Nop(),
		Now:           func() time.Time { return fixedNow },
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testEnv{
		upstream: mock,
		store:    store,
		sessions: sessions,
		handler:  NewRouter(deps),
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

type listBody struct {
	Data         []map[string]any `json:"data"`
	Page         int              `json:"page"`
	HasMore      bool             `json:"hasMore"`
	TotalRows    int              `json:"totalRows"`
	TotalShown   int              `json:"totalShown"`
	Headers      []string         `json:"headers"`
	Filters      map[string]any   `json:"filters"`
	CacheCleared bool             `json:"cacheCleared"`
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[errorResponse](t, rec).Error
}

func newStoreFor(url string) *cache.Store {
	return cache.NewStore(upstream.New(upstream.DefaultConfig(url)), cache.WithLogger(zerolog.Nop()))
}
