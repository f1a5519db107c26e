package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestMiddleware_RecordsRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware)
	r.HandleFunc("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	counter := httpRequestsTotal.WithLabelValues("/api/items/{id}", "202")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", rec.Code)
		}
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("counter delta = %v, want 2", got)
	}
}

func TestRouteTemplate_Unmatched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if got := RouteTemplate(req); got != UnmatchedRoute {
		t.Errorf("RouteTemplate() = %q, want %q", got, UnmatchedRoute)
	}
}
