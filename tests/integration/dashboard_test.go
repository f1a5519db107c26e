//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redigma/partner-dashboard/internal/api"
	"github.com/redigma/partner-dashboard/internal/testutil"
	"github.com/redigma/partner-dashboard/pkg/auth"
	"github.com/redigma/partner-dashboard/pkg/cache"
	"github.com/redigma/partner-dashboard/pkg/export"
	"github.com/redigma/partner-dashboard/pkg/ratelimit"
	"github.com/redigma/partner-dashboard/pkg/upstream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: endpoint})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// dashboard is a full server backed by real Redis and a mock upstream.
type dashboard struct {
	server   *httptest.Server
	upstream *testutil.MockUpstream
	client   *http.Client
}

func newDashboard(t *testing.T, redisClient *redis.Client) *dashboard {
	t.Helper()

	mock := testutil.NewMockUpstream()
	t.Cleanup(mock.Close)
	mock.SetResponse(testutil.NewRowsResponse(append(
		testutil.OrderRows(25, "2026-01-10T03:00:00.000Z"),
		testutil.OrderRow("ORD-OLD", "15/12/2025"),
	)...))

	creds := testutil.NewStaticCredentials(t, "partner@example.com", "s3cret")

	handler := api.NewRouter(api.Deps{
		Rows:          cache.NewStore(upstream.New(upstream.DefaultConfig(mock.URL())), cache.WithLogger(zerolog.Nop())),
		HiddenColumns: []string{"db_system_created_on", "db_pk_pesanan"},
		AuthEnabled:   true,
		Authenticator: auth.NewAuthenticator(creds),
		Sessions:      auth.NewRedisSessionStore(redisClient, time.Hour),
		Guard: ratelimit.NewTracker(redisClient, ratelimit.Policy{
			MaxFailures: 3,
			Lockout:     time.Minute,
		}, zerolog.Nop()),
		Redis:  redisClient,
		Logger: zerolog.Nop(),
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}

	return &dashboard{
		server:   srv,
		upstream: mock,
		client:   &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
}

func (d *dashboard) request(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, d.server.URL+path, rdr)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := d.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestDashboard_Integration_SigninListExport(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	d := newDashboard(t, redisClient)

	if resp := d.request(t, http.MethodGet, "/api/tiktok", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("listing before signin: status = %d, want 401", resp.StatusCode)
	}

	resp := d.request(t, http.MethodPost, "/api/auth/signin", `{"email":"partner@example.com","password":"s3cret"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signin status = %d", resp.StatusCode)
	}

	keys, err := redisClient.Keys(context.Background(), auth.RedisKeySessionPrefix+"*").Result()
	if err != nil || len(keys) != 1 {
		t.Fatalf("session keys = %v (%v), want one", keys, err)
	}

	resp = d.request(t, http.MethodGet, "/api/tiktok?page=2&startDate=2026-01-01", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("listing status = %d", resp.StatusCode)
	}
	var list struct {
		Page       int  `json:"page"`
		HasMore    bool `json:"hasMore"`
		TotalRows  int  `json:"totalRows"`
		TotalShown int  `json:"totalShown"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if list.TotalRows != 25 || list.TotalShown != 5 || list.HasMore {
		t.Errorf("listing = %+v, want 25 rows with 5 on the last page", list)
	}

	resp = d.request(t, http.MethodGet, "/api/tiktok/export?format=xlsx&startDate=2026-01-01", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != export.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "data-tiktok_2026-01-01_to_end_") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	if got := d.upstream.GetRequestCount(); got != 1 {
		t.Errorf("upstream requests = %d, want 1", got)
	}

	if resp := d.request(t, http.MethodPost, "/api/auth/signout", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("signout status = %d", resp.StatusCode)
	}
	if n, _ := redisClient.Exists(context.Background(), keys[0]).Result(); n != 0 {
		t.Error("signout should delete the session key")
	}
	if resp := d.request(t, http.MethodGet, "/api/tiktok", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("listing after signout: status = %d, want 401", resp.StatusCode)
	}
}

func TestDashboard_Integration_Lockout(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	d := newDashboard(t, redisClient)

	bad := `{"email":"partner@example.com","password":"wrong"}`
	for i := 0; i < 3; i++ {
		if resp := d.request(t, http.MethodPost, "/api/auth/signin", bad); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i+1, resp.StatusCode)
		}
	}

	good := `{"email":"partner@example.com","password":"s3cret"}`
	if resp := d.request(t, http.MethodPost, "/api/auth/signin", good); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("locked signin: status = %d, want 429", resp.StatusCode)
	}

	ttl, err := redisClient.TTL(context.Background(), ratelimit.RedisKeyFailuresPrefix+"partner@example.com").Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("failure counter TTL = %v (%v)", ttl, err)
	}
}

func TestDashboard_Integration_Ready(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	d := newDashboard(t, redisClient)

	if resp := d.request(t, http.MethodGet, "/ready", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d, want 200", resp.StatusCode)
	}
}
